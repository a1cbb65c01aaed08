package lazy

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Float is a lazily parsed float64. The zero Float reads as 0.
//
// Parsing never fails: unparseable input, NaN and infinities all become 0 so
// one malformed field cannot poison an event.
type Float struct {
	v *Value[float64]
}

// ParseFloat returns a Float that parses raw on first access.
func ParseFloat(raw string) Float {
	return Float{v: From(func() float64 { return parseFloat(raw) })}
}

// FloatOf returns a resolved Float.
func FloatOf(f float64) Float {
	return Float{v: Of(sanitize(f))}
}

// FloatFrom returns a Float computed by fn on first access.
func FloatFrom(fn func() float64) Float {
	return Float{v: From(func() float64 { return sanitize(fn()) })}
}

// Value returns the parsed number.
func (f Float) Value() float64 {
	return f.v.Value()
}

// Resolved reports whether the number has been parsed.
func (f Float) Resolved() bool {
	return f.v.Resolved()
}

// Format renders the number according to spec. With kilo set, values of at
// least one million are divided by 1e6 and suffixed "M", values of at least
// one thousand by 1e3 and suffixed "K". With blankIfZero set a zero value
// renders as the empty string.
func (f Float) Format(spec NumberSpec, kilo, blankIfZero bool) string {
	return FormatNumber(f.Value(), spec, kilo, blankIfZero)
}

// String renders the number with no decimals and no grouping.
func (f Float) String() string {
	return f.Format(NumberSpec{}, false, false)
}

// UnmarshalJSON accepts a JSON string or number. Any other token decodes to
// zero. It never returns an error.
func (f *Float) UnmarshalJSON(data []byte) error {
	*f = decodeFloat(data)
	return nil
}

// MarshalJSON writes the resolved number.
func (f Float) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value())
}

// Number parses raw immediately with the same rules as ParseFloat.
func Number(raw string) float64 {
	return parseFloat(raw)
}

func parseFloat(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return sanitize(v)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
