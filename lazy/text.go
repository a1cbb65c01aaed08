package lazy

import (
	"encoding/json"
	"strings"
)

// Text is a lazily produced string. The zero Text reads as "".
type Text struct {
	v *Value[string]
}

// TextOf returns a resolved Text.
func TextOf(s string) Text {
	return Text{v: Of(s)}
}

// TextFrom returns a Text computed by fn on first access.
func TextFrom(fn func() string) Text {
	return Text{v: From(fn)}
}

// MapText applies convert to src on first access.
func MapText[A any](src *Value[A], convert func(A) string) Text {
	return Text{v: Map(src, convert)}
}

// String returns the resolved string.
func (t Text) String() string {
	return t.v.Value()
}

// UnmarshalJSON accepts a JSON string, number or boolean; numbers and
// booleans keep their literal spelling. Other tokens decode to "".
func (t *Text) UnmarshalJSON(data []byte) error {
	*t = decodeText(data)
	return nil
}

// MarshalJSON writes the resolved string.
func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Bool is a lazily parsed boolean. Only "true" (any case, surrounding space
// ignored) is true. A failed parse still counts as parsed and yields false.
type Bool struct {
	v *Value[bool]
}

// ParseBool returns a Bool that parses raw on first access.
func ParseBool(raw string) Bool {
	return Bool{v: From(func() bool {
		return strings.EqualFold(strings.TrimSpace(raw), "true")
	})}
}

// BoolOf returns a resolved Bool.
func BoolOf(b bool) Bool {
	return Bool{v: Of(b)}
}

// Value returns the parsed boolean.
func (b Bool) Value() bool {
	return b.v.Value()
}

// Resolved reports whether the boolean has been parsed.
func (b Bool) Resolved() bool {
	return b.v.Resolved()
}
