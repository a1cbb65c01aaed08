package combat

import (
	"sync"

	"github.com/c360/actmeter/lazy"
)

// Encounter is the aggregate of one combat session.
type Encounter struct {
	Title        string
	DurationRaw  string
	DPS          lazy.Float
	HPS          lazy.Float
	DamageTotal  lazy.Float
	HealingTotal lazy.Float
	DamageTaken  lazy.Float
	Deaths       string
	Kills        string

	derive   sync.Once
	duration lazy.Text
}

func (e *Encounter) init() {
	e.derive.Do(func() {
		raw := e.DurationRaw
		e.duration = lazy.TextFrom(func() string { return NormalizeDuration(raw) })
	})
}

// Duration returns DurationRaw normalized by NormalizeDuration.
func (e *Encounter) Duration() string {
	e.init()
	return e.duration.String()
}

// Tag resolves a template tag against the encounter.
func (e *Encounter) Tag(name string) (any, bool) {
	return EncounterTags.Lookup(e, name)
}

// sameAs is the encounter half of Event.Equal.
func (e *Encounter) sameAs(o *Encounter) bool {
	return e.DurationRaw == o.DurationRaw &&
		e.Title == o.Title &&
		e.DamageTotal.Value() == o.DamageTotal.Value()
}
