package lazy

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// MaxDecimals is the largest precision FormatNumber renders.
const MaxDecimals = 9

// NumberSpec describes how a number is rendered: a fixed count of decimals
// and optional "," thousands grouping.
type NumberSpec struct {
	Decimals int
	Grouping bool
}

// pattern builds the go-humanize format directive for the spec.
func (s NumberSpec) pattern() string {
	decimals := min(max(s.Decimals, 0), MaxDecimals)

	var b strings.Builder
	if s.Grouping {
		b.WriteString("#,###")
	} else {
		b.WriteString("#")
	}
	b.WriteByte('.')
	b.WriteString(strings.Repeat("#", decimals))
	return b.String()
}

// FormatNumber renders v per spec, applying kilo suffixing and zero
// suppression. See Float.Format.
func FormatNumber(v float64, spec NumberSpec, kilo, blankIfZero bool) string {
	v = sanitize(v)
	if blankIfZero && v == 0 {
		return ""
	}

	suffix := ""
	if kilo {
		switch abs := math.Abs(v); {
		case abs >= 1_000_000:
			v /= 1_000_000
			suffix = "M"
		case abs >= 1_000:
			v /= 1_000
			suffix = "K"
		}
	}

	if math.Abs(v) >= maxInt64Float {
		return formatHuge(v, spec) + suffix
	}
	return humanize.FormatFloat(spec.pattern(), v) + suffix
}

// maxInt64Float is 2^63. humanize.FormatFloat truncates through int64, so
// magnitudes from here up take the big-number path.
const maxInt64Float = 1 << 63

func formatHuge(v float64, spec NumberSpec) string {
	decimals := min(max(spec.Decimals, 0), MaxDecimals)
	out := strconv.FormatFloat(v, 'f', decimals, 64)
	if !spec.Grouping {
		return out
	}

	whole, frac, _ := strings.Cut(out, ".")
	n, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return out
	}
	if frac == "" {
		return humanize.BigComma(n)
	}
	return humanize.BigComma(n) + "." + frac
}
