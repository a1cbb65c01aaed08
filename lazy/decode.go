package lazy

import (
	"bytes"
	"encoding/json"
)

// tokenKind is the kind of a raw JSON value, read from its first byte.
type tokenKind int

const (
	kindInvalid tokenKind = iota
	kindNull
	kindString
	kindNumber
	kindBool
	kindObject
	kindArray
)

func kindOf(data []byte) tokenKind {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return kindInvalid
	}
	switch c := data[0]; {
	case c == 'n':
		return kindNull
	case c == '"':
		return kindString
	case c == 't' || c == 'f':
		return kindBool
	case c == '{':
		return kindObject
	case c == '[':
		return kindArray
	case c == '-' || (c >= '0' && c <= '9'):
		return kindNumber
	default:
		return kindInvalid
	}
}

// Decode tables keyed by the token kind found on the wire. Kinds missing from
// a table decode to the zero value.
var (
	floatDecoders = map[tokenKind]func([]byte) Float{
		kindString: func(data []byte) Float {
			s, ok := unquote(data)
			if !ok {
				return Float{}
			}
			return ParseFloat(s)
		},
		kindNumber: func(data []byte) Float {
			return ParseFloat(string(bytes.TrimSpace(data)))
		},
	}

	textDecoders = map[tokenKind]func([]byte) Text{
		kindString: func(data []byte) Text {
			s, _ := unquote(data)
			return TextOf(s)
		},
		kindNumber: func(data []byte) Text {
			return TextOf(string(bytes.TrimSpace(data)))
		},
		kindBool: func(data []byte) Text {
			return TextOf(string(bytes.TrimSpace(data)))
		},
	}
)

func decodeFloat(data []byte) Float {
	if dec, ok := floatDecoders[kindOf(data)]; ok {
		return dec(data)
	}
	return Float{}
}

func decodeText(data []byte) Text {
	if dec, ok := textDecoders[kindOf(data)]; ok {
		return dec(data)
	}
	return Text{}
}

func unquote(data []byte) (string, bool) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", false
	}
	return s, true
}
