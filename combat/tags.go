package combat

import (
	"sort"
	"strconv"
	"strings"

	"github.com/c360/actmeter/lazy"
	"github.com/c360/actmeter/texttag"
)

// EncounterTags is the template tag table for encounters.
var EncounterTags = texttag.NewRegistry(map[string]texttag.Accessor[Encounter]{
	"title":        func(e *Encounter) any { return e.Title },
	"duration":     func(e *Encounter) any { return e.Duration() },
	"dps":          func(e *Encounter) any { return e.DPS },
	"hps":          func(e *Encounter) any { return e.HPS },
	"damagetotal":  func(e *Encounter) any { return e.DamageTotal },
	"healingtotal": func(e *Encounter) any { return e.HealingTotal },
	"damagetaken":  func(e *Encounter) any { return e.DamageTaken },
	"deaths":       func(e *Encounter) any { return e.Deaths },
	"kills":        func(e *Encounter) any { return e.Kills },
})

// CombatantTags is the template tag table for combatants. The "rank" tag is
// provided by Ranked.
var CombatantTags = texttag.NewRegistry(map[string]texttag.Accessor[Combatant]{
	"name":             func(c *Combatant) any { return c.Name() },
	"name_first":       func(c *Combatant) any { return c.FirstName() },
	"name_last":        func(c *Combatant) any { return c.LastName() },
	"job":              func(c *Combatant) any { return c.Job.String() },
	"jobname":          func(c *Combatant) any { return c.Job.FullName() },
	"duration":         func(c *Combatant) any { return c.Duration() },
	"dps":              func(c *Combatant) any { return c.DPS },
	"hps":              func(c *Combatant) any { return c.HPS },
	"damagetotal":      func(c *Combatant) any { return c.DamageTotal },
	"damagepct":        func(c *Combatant) any { return c.DamagePct },
	"crithitpct":       func(c *Combatant) any { return c.CritHitPct },
	"directhitpct":     func(c *Combatant) any { return c.DirectHitPct },
	"critdirecthitpct": func(c *Combatant) any { return c.CritDirectHitPct },
	"healingtotal":     func(c *Combatant) any { return c.HealingTotal },
	"healingpct":       func(c *Combatant) any { return c.HealingPct },
	"overheal":         func(c *Combatant) any { return c.OverHeal },
	"overhealpct":      func(c *Combatant) any { return c.OverHealPct },
	"effectivehealing": func(c *Combatant) any { return c.EffectiveHealing() },
	"damagetaken":      func(c *Combatant) any { return c.DamageTaken },
	"deaths":           func(c *Combatant) any { return c.Deaths },
	"kills":            func(c *Combatant) any { return c.Kills },
	"maxhit":           func(c *Combatant) any { return c.MaxHit },
	"maxhitname":       func(c *Combatant) any { return c.MaxHitName() },
	"maxhitvalue":      func(c *Combatant) any { return c.MaxHitValue() },
})

const rankTag = "rank"

// Ranked is a combatant with its position in a sorted listing.
type Ranked struct {
	*Combatant
	ID   string
	Rank int
}

// Tag resolves "rank" and defers everything else to the combatant.
func (r Ranked) Tag(name string) (any, bool) {
	if strings.EqualFold(name, rankTag) {
		return strconv.Itoa(r.Rank), true
	}
	return r.Combatant.Tag(name)
}

// RankedTags lists every tag a Ranked resolves, in template form.
func RankedTags() []string {
	tags := append(CombatantTags.Tags(), "["+rankTag+"]")
	sort.Strings(tags)
	return tags
}

// SortCombatants orders the combatants by the tag named by, highest first,
// and numbers them from 1. Numeric tags compare by value and text tags
// lexically; ties, and an unknown tag, fall back to name then id.
func (e *Event) SortCombatants(by string) []Ranked {
	if e == nil {
		return nil
	}

	out := make([]Ranked, 0, len(e.Combatants))
	for id, c := range e.Combatants {
		out = append(out, Ranked{Combatant: c, ID: id})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := compareByTag(out[i].Combatant, out[j].Combatant, by); c != 0 {
			return c > 0
		}
		if ni, nj := out[i].Name(), out[j].Name(); ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func compareByTag(a, b *Combatant, by string) int {
	va, ok := CombatantTags.Lookup(a, by)
	if !ok {
		return 0
	}
	vb, _ := CombatantTags.Lookup(b, by)

	fa, aNum := va.(lazy.Float)
	fb, bNum := vb.(lazy.Float)
	if aNum && bNum {
		switch x, y := fa.Value(), fb.Value(); {
		case x > y:
			return 1
		case x < y:
			return -1
		}
		return 0
	}
	// Text sorts ascending, so invert for the descending caller.
	return -strings.Compare(asText(va), asText(vb))
}

func asText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case lazy.Text:
		return s.String()
	default:
		return ""
	}
}
