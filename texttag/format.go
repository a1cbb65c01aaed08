// Package texttag renders user templates such as "[name] [dps:k.1]" against
// the tag tables of the combat model.
//
// A tag is written [name], [name:k], [name.N] or [name:k.N]. Names match
// case-insensitively. ":k" asks numeric fields for K/M suffixing. ".N" is the
// decimal count for numeric fields and a character limit for text fields.
// Tags that do not resolve are copied to the output unchanged.
package texttag

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/c360/actmeter/lazy"
)

var tagPattern = regexp.MustCompile(`(?i)\[(\w+)(:k)?(?:\.(\d{1,2}))?\]`)

// Resolver exposes a model instance's tag table.
type Resolver interface {
	Tag(name string) (any, bool)
}

// Numeric is implemented by values that format themselves as numbers.
type Numeric interface {
	Format(spec lazy.NumberSpec, kilo, blankIfZero bool) string
}

// Options are the caller-wide formatting policies.
type Options struct {
	// Grouping inserts "," thousands separators in numeric fields.
	Grouping bool
	// BlankIfZero renders zero values, numeric or numeric-looking text, as "".
	BlankIfZero bool
}

// Format replaces every tag in format with the matching field of r.
func Format(format string, r Resolver, opts Options) string {
	if r == nil || !strings.Contains(format, "[") {
		return format
	}

	matches := tagPattern.FindAllStringSubmatchIndex(format, -1)
	if len(matches) == 0 {
		return format
	}

	var b strings.Builder
	b.Grow(len(format))
	last := 0
	for _, m := range matches {
		b.WriteString(format[last:m[0]])
		b.WriteString(resolve(format, m, r, opts))
		last = m[1]
	}
	b.WriteString(format[last:])
	return b.String()
}

// resolve renders one match; m holds submatch index pairs for the whole
// match, the name, the ":k" flag and the precision digits.
func resolve(format string, m []int, r Resolver, opts Options) string {
	original := format[m[0]:m[1]]
	name := format[m[2]:m[3]]
	kilo := m[4] >= 0

	precision := -1
	if m[6] >= 0 {
		if n, err := strconv.Atoi(format[m[6]:m[7]]); err == nil {
			precision = n
		}
	}

	value, ok := r.Tag(name)
	if !ok || value == nil {
		return original
	}

	if num, ok := value.(Numeric); ok {
		spec := lazy.NumberSpec{Decimals: max(precision, 0), Grouping: opts.Grouping}
		return num.Format(spec, kilo, opts.BlankIfZero)
	}

	text := stringify(value)
	if precision >= 0 && precision < utf8.RuneCountInString(text) {
		text = truncate(text, precision)
	}
	if opts.BlankIfZero && isZeroText(text) {
		return ""
	}
	return text
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// isZeroText reports whether s reads as the number zero. A trailing "%" is
// ignored so preformatted percentages like "0%" count as zero.
func isZeroText(s string) bool {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f == 0
}
