package combat

import (
	"strings"
	"sync"

	"github.com/c360/actmeter/lazy"
)

// LocalPlayerSentinel is the name the aggregator uses for the local player.
const LocalPlayerSentinel = "YOU"

// Combatant is one party member's (or pet's) statistics within an encounter.
// Percentages arrive preformatted and are kept as text.
type Combatant struct {
	OriginalName  string
	NameOverwrite string
	Job           Job
	DurationRaw   string

	DPS          lazy.Float
	HPS          lazy.Float
	DamageTotal  lazy.Float
	HealingTotal lazy.Float
	OverHeal     lazy.Float
	DamageTaken  lazy.Float

	DamagePct        string
	CritHitPct       string
	DirectHitPct     string
	CritDirectHitPct string
	HealingPct       string
	OverHealPct      string

	Deaths string
	Kills  string

	// MaxHit is encoded as "<SkillName>-<Value>".
	MaxHit string

	derive           sync.Once
	duration         lazy.Text
	maxHitName       lazy.Text
	maxHitValue      lazy.Float
	effectiveHealing lazy.Float
}

func (c *Combatant) init() {
	c.derive.Do(func() {
		durationRaw := c.DurationRaw
		c.duration = lazy.TextFrom(func() string { return NormalizeDuration(durationRaw) })

		split := lazy.Map(lazy.Of(c.MaxHit), splitMaxHit)
		c.maxHitName = lazy.MapText(split, func(p [2]string) string { return p[0] })
		c.maxHitValue = lazy.FloatFrom(func() float64 { return lazy.Number(split.Value()[1]) })

		healed, over := c.HealingTotal, c.OverHeal
		c.effectiveHealing = lazy.FloatFrom(func() float64 { return healed.Value() - over.Value() })
	})
}

// splitMaxHit splits on the last '-' so skill names containing dashes keep
// them. Without a dash the whole string is the skill name.
func splitMaxHit(s string) [2]string {
	i := strings.LastIndexByte(s, '-')
	if i < 0 {
		return [2]string{strings.TrimSpace(s), ""}
	}
	return [2]string{strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])}
}

// Name returns NameOverwrite when set, otherwise OriginalName.
func (c *Combatant) Name() string {
	if c.NameOverwrite != "" {
		return c.NameOverwrite
	}
	return c.OriginalName
}

// FirstName returns the first word of Name.
func (c *Combatant) FirstName() string {
	fields := strings.Fields(c.Name())
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// LastName returns the last word of Name.
func (c *Combatant) LastName() string {
	fields := strings.Fields(c.Name())
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// Duration returns DurationRaw normalized by NormalizeDuration.
func (c *Combatant) Duration() string {
	c.init()
	return c.duration.String()
}

// MaxHitName is the skill part of MaxHit.
func (c *Combatant) MaxHitName() lazy.Text {
	c.init()
	return c.maxHitName
}

// MaxHitValue is the numeric part of MaxHit.
func (c *Combatant) MaxHitValue() lazy.Float {
	c.init()
	return c.maxHitValue
}

// EffectiveHealing is HealingTotal minus OverHeal.
func (c *Combatant) EffectiveHealing() lazy.Float {
	c.init()
	return c.effectiveHealing
}

// IsLocalPlayer reports whether the aggregator named this combatant with
// the local-player sentinel.
func (c *Combatant) IsLocalPlayer() bool {
	return c.OriginalName == LocalPlayerSentinel
}

// Tag resolves a template tag against the combatant.
func (c *Combatant) Tag(name string) (any, bool) {
	return CombatantTags.Lookup(c, name)
}
