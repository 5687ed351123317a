// Package canon implements RFC 8785 canonical JSON and the
// domain-separated hashing built on it. Every content-addressed identity
// and state hash in the system goes through Marshal; nothing else may.
package canon

import (
	"bytes"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Marshal produces RFC 8785 canonical JSON:
//
//   - object keys sorted by UTF-16 code units
//   - strings NFC-normalized, with only quote, backslash and control
//     characters escaped (no HTML escaping, no  /  escaping)
//   - integers only; floats and null are errors
//
// Equal logical content always produces identical bytes, which is what
// makes the hashes comparable across processes and replays.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := appendCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil, Null:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case String:
		appendCanonicalString(buf, string(val))
	case string:
		appendCanonicalString(buf, val)
	case Int:
		fmt.Fprintf(buf, "%d", int64(val))
	case int64:
		fmt.Fprintf(buf, "%d", val)
	case int:
		fmt.Fprintf(buf, "%d", val)
	case Bool:
		appendBool(buf, bool(val))
	case bool:
		appendBool(buf, val)
	case Array:
		return appendCanonicalArray(buf, val)
	case []any:
		arr := make(Array, len(val))
		for i, e := range val {
			ev, err := fromAny(e)
			if err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return appendCanonicalArray(buf, arr)
	case Object:
		return appendCanonicalObject(buf, val)
	case map[string]any:
		obj := make(Object, len(val))
		for k, e := range val {
			ev, err := fromAny(e)
			if err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = ev
		}
		return appendCanonicalObject(buf, obj)
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func appendBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteString("true")
	} else {
		buf.WriteString("false")
	}
}

// appendCanonicalString serializes per RFC 8785: NFC-normalize, then
// escape only quote, backslash, and the C0 controls (with the two-char
// escapes where JSON defines them, lowercase \u00xx otherwise).
func appendCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			buf.WriteString(`\"`)
		case c == '\\':
			buf.WriteString(`\\`)
		case c >= 0x20:
			buf.WriteByte(c)
		case c == '\b':
			buf.WriteString(`\b`)
		case c == '\t':
			buf.WriteString(`\t`)
		case c == '\n':
			buf.WriteString(`\n`)
		case c == '\f':
			buf.WriteString(`\f`)
		case c == '\r':
			buf.WriteString(`\r`)
		default:
			fmt.Fprintf(buf, `\u%04x`, c)
		}
	}
	buf.WriteByte('"')
}

func appendCanonicalArray(buf *bytes.Buffer, arr Array) error {
	buf.WriteByte('[')
	for i, e := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := appendCanonical(buf, e); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func appendCanonicalObject(buf *bytes.Buffer, obj Object) error {
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		appendCanonicalString(buf, k)
		buf.WriteByte(':')
		if err := appendCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}
