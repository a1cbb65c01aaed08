package combat

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/c360/actmeter/errors"
	"github.com/c360/actmeter/lazy"
)

// Payload keys. Matching is exact: aggregators also send upper-case
// variants of several keys (ENCDPS, DAMAGE, ...) that carry rounded values.
const (
	keyType       = "type"
	keyIsActive   = "isActive"
	keyEncounter  = "Encounter"
	keyCombatants = "Combatant"
)

// ErrEmptyPayload is returned by Decode for empty or null payloads.
var ErrEmptyPayload = errors.New("empty payload")

type object map[string]json.RawMessage

// field decodes one payload key into a model value.
type field[T any] struct {
	key string
	set func(*T, json.RawMessage)
}

// floatField accepts a JSON string or number; see lazy.Float.
func floatField[T any](key string, dst func(*T) *lazy.Float) field[T] {
	return field[T]{key: key, set: func(v *T, raw json.RawMessage) {
		_ = dst(v).UnmarshalJSON(raw)
	}}
}

// textField accepts a JSON string, number or boolean; see lazy.Text.
func textField[T any](key string, dst func(*T) *string) field[T] {
	return field[T]{key: key, set: func(v *T, raw json.RawMessage) {
		var t lazy.Text
		_ = t.UnmarshalJSON(raw)
		*dst(v) = t.String()
	}}
}

func jobField[T any](key string, dst func(*T) *Job) field[T] {
	return field[T]{key: key, set: func(v *T, raw json.RawMessage) {
		_ = dst(v).UnmarshalJSON(raw)
	}}
}

// decodeFields applies fields in table order. Keys missing from obj leave
// the zero value.
func decodeFields[T any](dst *T, obj object, fields []field[T]) {
	for _, f := range fields {
		if raw, ok := obj[f.key]; ok {
			f.set(dst, raw)
		}
	}
}

var eventFields = []field[Event]{
	textField(keyType, func(e *Event) *string { return &e.Type }),
	textField(keyIsActive, func(e *Event) *string { return &e.IsActiveRaw }),
}

var encounterFields = []field[Encounter]{
	textField("title", func(e *Encounter) *string { return &e.Title }),
	textField("duration", func(e *Encounter) *string { return &e.DurationRaw }),
	floatField("encdps", func(e *Encounter) *lazy.Float { return &e.DPS }),
	floatField("enchps", func(e *Encounter) *lazy.Float { return &e.HPS }),
	floatField("damage", func(e *Encounter) *lazy.Float { return &e.DamageTotal }),
	floatField("healed", func(e *Encounter) *lazy.Float { return &e.HealingTotal }),
	floatField("damagetaken", func(e *Encounter) *lazy.Float { return &e.DamageTaken }),
	textField("deaths", func(e *Encounter) *string { return &e.Deaths }),
	textField("kills", func(e *Encounter) *string { return &e.Kills }),
}

var combatantFields = []field[Combatant]{
	textField("name", func(c *Combatant) *string { return &c.OriginalName }),
	jobField("Job", func(c *Combatant) *Job { return &c.Job }),
	textField("duration", func(c *Combatant) *string { return &c.DurationRaw }),
	floatField("encdps", func(c *Combatant) *lazy.Float { return &c.DPS }),
	// "hps" is a fallback; "enchps" wins when both are present.
	floatField("hps", func(c *Combatant) *lazy.Float { return &c.HPS }),
	floatField("enchps", func(c *Combatant) *lazy.Float { return &c.HPS }),
	floatField("damage", func(c *Combatant) *lazy.Float { return &c.DamageTotal }),
	floatField("healed", func(c *Combatant) *lazy.Float { return &c.HealingTotal }),
	floatField("overHeal", func(c *Combatant) *lazy.Float { return &c.OverHeal }),
	floatField("damagetaken", func(c *Combatant) *lazy.Float { return &c.DamageTaken }),
	textField("damage%", func(c *Combatant) *string { return &c.DamagePct }),
	textField("crithit%", func(c *Combatant) *string { return &c.CritHitPct }),
	textField("DirectHitPct", func(c *Combatant) *string { return &c.DirectHitPct }),
	textField("CritDirectHitPct", func(c *Combatant) *string { return &c.CritDirectHitPct }),
	textField("healed%", func(c *Combatant) *string { return &c.HealingPct }),
	textField("OverHealPct", func(c *Combatant) *string { return &c.OverHealPct }),
	textField("deaths", func(c *Combatant) *string { return &c.Deaths }),
	textField("kills", func(c *Combatant) *string { return &c.Kills }),
	textField("maxhit", func(c *Combatant) *string { return &c.MaxHit }),
}

// Decode builds an Event from a raw payload received at now. Unknown keys
// are ignored and malformed field values decode to their zero value; only a
// payload that is not a JSON object is an error.
func Decode(payload []byte, now time.Time) (*Event, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	var top object
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, errors.WrapInvalid(err, "combat", "Decode", "unmarshal event")
	}
	if top == nil {
		return nil, ErrEmptyPayload
	}

	ev := &Event{
		Timestamp: now,
		Raw:       bytes.Clone(payload),
	}
	decodeFields(ev, top, eventFields)

	if obj, ok := decodeObject(top[keyEncounter]); ok {
		enc := &Encounter{}
		decodeFields(enc, obj, encounterFields)
		ev.Encounter = enc
	}

	if entries, ok := decodeObject(top[keyCombatants]); ok {
		ev.Combatants = make(map[string]*Combatant, len(entries))
		for id, raw := range entries {
			obj, ok := decodeObject(raw)
			if !ok {
				continue
			}
			c := &Combatant{}
			decodeFields(c, obj, combatantFields)
			ev.Combatants[id] = c
		}
	}

	ev.warm()
	return ev, nil
}

// decodeObject returns raw as an object. Missing keys, null and non-object
// values report false.
func decodeObject(raw json.RawMessage) (object, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
