package combat

import (
	"sync"
	"time"

	"github.com/c360/actmeter/lazy"
)

// Event is one aggregator payload.
type Event struct {
	Type        string
	IsActiveRaw string
	Encounter   *Encounter
	Combatants  map[string]*Combatant

	// Timestamp is the receipt time, never a time taken from the payload.
	Timestamp time.Time
	// Raw is the payload as received.
	Raw []byte

	derive sync.Once
	active lazy.Bool
}

func (e *Event) init() {
	e.derive.Do(func() {
		e.active = lazy.ParseBool(e.IsActiveRaw)
	})
}

// IsActive reports whether the encounter is still running. Only "true"
// (any case) is active.
func (e *Event) IsActive() bool {
	e.init()
	return e.active.Value()
}

// Complete reports whether the event carries an encounter and at least one
// combatant. Incomplete events are never kept.
func (e *Event) Complete() bool {
	return e != nil && e.Encounter != nil && len(e.Combatants) > 0
}

// Equal is the shallow comparison used to detect repeated payloads. Two
// events are equal when encounter and combatant presence match and, where
// present, the encounter duration, title and damage total match, along with
// the active state and the number of combatants. Combatant contents are not
// compared.
func (e *Event) Equal(o *Event) bool {
	if e == nil || o == nil {
		return e == o
	}
	if (e.Encounter == nil) != (o.Encounter == nil) {
		return false
	}
	if (e.Combatants == nil) != (o.Combatants == nil) {
		return false
	}
	if e.Encounter != nil && !e.Encounter.sameAs(o.Encounter) {
		return false
	}
	return e.IsActive() == o.IsActive() && len(e.Combatants) == len(o.Combatants)
}

// ApplyLocalPlayerName sets NameOverwrite on every combatant reported under
// LocalPlayerSentinel. An empty name is ignored.
func (e *Event) ApplyLocalPlayerName(name string) {
	if e == nil || name == "" {
		return
	}
	for _, c := range e.Combatants {
		if c.IsLocalPlayer() {
			c.NameOverwrite = name
		}
	}
}

// warm resolves the lazy fields read on the ingestion path.
func (e *Event) warm() {
	e.init()
	e.active.Value()
	if e.Encounter != nil {
		e.Encounter.init()
		e.Encounter.DamageTotal.Value()
	}
	for _, c := range e.Combatants {
		c.init()
	}
}
