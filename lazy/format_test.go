package lazy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		spec  NumberSpec
		kilo  bool
		blank bool
		want  string
	}{
		{"plain integer", 999999, NumberSpec{}, false, false, "999999"},
		{"grouped integer", 999999, NumberSpec{Grouping: true}, false, false, "999,999"},
		{"grouped decimals", 1234567.891, NumberSpec{Decimals: 2, Grouping: true}, false, false, "1,234,567.89"},
		{"kilo below threshold", 999, NumberSpec{}, true, false, "999"},
		{"kilo thousands", 1500, NumberSpec{Decimals: 1}, true, false, "1.5K"},
		{"kilo rounding", 123456, NumberSpec{Decimals: 1}, true, false, "123.5K"},
		{"kilo million boundary", 1_000_000, NumberSpec{Decimals: 1}, true, false, "1.0M"},
		{"kilo just below million", 999_999, NumberSpec{Decimals: 1}, true, false, "1000.0K"},
		{"kilo negative", -2500, NumberSpec{Decimals: 1}, true, false, "-2.5K"},
		{"zero shown", 0, NumberSpec{}, false, false, "0"},
		{"zero blanked", 0, NumberSpec{Decimals: 2}, true, true, ""},
		{"nonzero not blanked", 0.5, NumberSpec{Decimals: 1}, false, true, "0.5"},
		{"rounds up", 2.36, NumberSpec{Decimals: 1}, false, false, "2.4"},
		{"precision clamped", 1.5, NumberSpec{Decimals: 40}, false, false, "1.500000000"},
		{"beyond int64", 1e20, NumberSpec{}, false, false, "100000000000000000000"},
		{"beyond int64 grouped", 1e20, NumberSpec{Decimals: 1, Grouping: true}, false, false, "100,000,000,000,000,000,000.0"},
		{"beyond int64 negative", -1e20, NumberSpec{Grouping: true}, false, false, "-100,000,000,000,000,000,000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.value, tt.spec, tt.kilo, tt.blank))
		})
	}
}

func TestFloat_Format(t *testing.T) {
	f := ParseFloat("123456")
	assert.Equal(t, "123.5K", f.Format(NumberSpec{Decimals: 1}, true, false))
	assert.Equal(t, "123,456", f.Format(NumberSpec{Grouping: true}, false, false))
	assert.Equal(t, "123456", f.String())
}
