package texttag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360/actmeter/lazy"
)

type fields map[string]any

func (f fields) Tag(name string) (any, bool) {
	v, ok := f[name]
	return v, ok
}

type sample struct {
	Damage lazy.Float
	Name   string
}

var sampleTags = NewRegistry(map[string]Accessor[sample]{
	"damagetotal": func(s *sample) any { return s.Damage },
	"Name":        func(s *sample) any { return s.Name },
})

type sampleResolver struct{ s *sample }

func (r sampleResolver) Tag(name string) (any, bool) { return sampleTags.Lookup(r.s, name) }

func TestFormat_NumericTags(t *testing.T) {
	r := sampleResolver{&sample{Damage: lazy.ParseFloat("123456"), Name: "Tataru Taru"}}

	tests := []struct {
		format string
		opts   Options
		want   string
	}{
		{"[damagetotal:k.1]", Options{}, "123.5K"},
		{"[damagetotal]", Options{}, "123456"},
		{"[damagetotal]", Options{Grouping: true}, "123,456"},
		{"[DamageTotal.2]", Options{Grouping: true}, "123,456.00"},
		{"[damagetotal:K]", Options{}, "123K"},
		{"dmg=[damagetotal:k] / [damagetotal:k.2]!", Options{}, "dmg=123K / 123.46K!"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.format, r, tt.opts))
		})
	}
}

func TestFormat_TextTags(t *testing.T) {
	r := sampleResolver{&sample{Name: "Tataru Taru"}}

	assert.Equal(t, "Tataru Taru", Format("[name]", r, Options{}))
	assert.Equal(t, "Tat", Format("[NAME.3]", r, Options{}))
	assert.Equal(t, "Tataru Taru", Format("[name.40]", r, Options{}))
	assert.Equal(t, "", Format("[name.0]", r, Options{}))
}

func TestFormat_TruncatesRunes(t *testing.T) {
	r := fields{"name": "Ältere Dämonin"}
	assert.Equal(t, "Älte", Format("[name.4]", r, Options{}))
}

func TestFormat_UnknownTagsPassThrough(t *testing.T) {
	r := sampleResolver{&sample{Name: "Y'shtola"}}
	assert.Equal(t, "[doesnotexist] Y'shtola [also:k.1]", Format("[doesnotexist] [name] [also:k.1]", r, Options{}))
}

func TestFormat_MalformedTagsStayLiteral(t *testing.T) {
	r := fields{"dps": lazy.FloatOf(10)}
	assert.Equal(t, "[dps:x] [dps.] [dps.123] [ dps]", Format("[dps:x] [dps.] [dps.123] [ dps]", r, Options{}))
}

func TestFormat_BlankIfZero(t *testing.T) {
	r := fields{
		"dps":    lazy.FloatOf(0),
		"deaths": "0",
		"pct":    "0%",
		"name":   "Alphinaud",
	}
	opts := Options{BlankIfZero: true}

	assert.Equal(t, "", Format("[dps]", r, opts))
	assert.Equal(t, "", Format("[dps:k.1]", r, opts))
	assert.Equal(t, "", Format("[deaths]", r, opts))
	assert.Equal(t, "", Format("[pct]", r, opts))
	assert.Equal(t, "Alphinaud", Format("[name]", r, opts))
	assert.Equal(t, "0", Format("[dps]", r, Options{}))
	assert.Equal(t, "0", Format("[deaths]", r, Options{}))
}

func TestFormat_NoTags(t *testing.T) {
	assert.Equal(t, "plain text", Format("plain text", fields{}, Options{}))
	assert.Equal(t, "[x]", Format("[x]", nil, Options{}))
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"damagetotal", "name"}, sampleTags.Names())
	assert.Equal(t, []string{"[damagetotal]", "[name]"}, sampleTags.Tags())
	assert.True(t, sampleTags.Has("NAME"))
	assert.False(t, sampleTags.Has("dps"))

	_, ok := sampleTags.Lookup(nil, "name")
	assert.False(t, ok)
}
