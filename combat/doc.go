// Package combat holds the typed event model decoded from aggregator
// payloads: the envelope (Event), the encounter totals (Encounter) and the
// per-party-member statistics (Combatant).
//
// Numeric fields are lazy.Float values so that a payload carrying dozens of
// combatants only pays for the fields a template actually reads. Derived
// fields (normalized duration, max-hit split, effective healing) are built
// on first use from the raw fields, which must not be modified afterwards.
//
// Templates reach the model through the static tag tables EncounterTags and
// CombatantTags; see package texttag for the template syntax.
package combat
