package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for hashing and golden
// traces. Two graphs with equal content always produce identical bytes.
//
// Differences from MarshalValue:
//  1. Strings and keys are NFC normalized
//  2. No HTML escaping (< > & are NOT escaped)
//  3. U+2028 and U+2029 are written literally
//
// A nil Value is written as null, same as Null.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v Value, depth int) error {
	if depth > MaxDepth {
		return ErrTooDeep
	}
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case String:
		return writeCanonicalString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case *Object:
		if val == nil {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('{')
		// CRITICAL: RFC 8785 UTF-16 code unit ordering
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val.fields[k], depth+1); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case *Array:
		if val == nil {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('[')
		for i, elem := range val.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem, depth+1); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString writes a JSON string per RFC 8785: only control
// characters, backslash and quote are escaped.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false) // CRITICAL: <, >, & must NOT be escaped
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))

	// encoding/json always escapes U+2028/U+2029 for JavaScript; RFC 8785
	// does not. An escape is real only when preceded by an even run of
	// backslashes.
	if !bytes.Contains(out, []byte(`\u202`)) {
		buf.Write(out)
		return nil
	}
	for i := 0; i < len(out); i++ {
		if out[i] == '\\' && i+5 < len(out) && out[i+1] == 'u' &&
			string(out[i+2:i+5]) == "202" && (out[i+5] == '8' || out[i+5] == '9') &&
			precedingBackslashes(out, i)%2 == 0 {
			if out[i+5] == '8' {
				buf.WriteString("\u2028")
			} else {
				buf.WriteString("\u2029")
			}
			i += 5
			continue
		}
		buf.WriteByte(out[i])
	}
	return nil
}

func precedingBackslashes(data []byte, i int) int {
	n := 0
	for j := i - 1; j >= 0 && data[j] == '\\'; j-- {
		n++
	}
	return n
}
