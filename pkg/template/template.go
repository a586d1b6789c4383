// Package template resolves the `{field_id}` placeholders of declarative
// APDU and parameter templates against a field value map.
//
// Two derived variants are supported, matching how real definitions encode
// PIN verification: `{pin_hex}` is the ASCII value hex-encoded, and
// `{pin_length}` is the byte count of that hex form as two hex digits, ready
// to serve as an Lc. Derived variants only kick in when the literal field id
// is absent from the map, so a definition can always override them.
package template

import (
	"fmt"
	"strings"

	"github.com/gregLibert/cardflow/pkg/hexutil"
)

const (
	suffixHex    = "_hex"
	suffixLength = "_length"
)

// UnresolvedError reports a placeholder with no value. Emitting garbage
// bytes instead would reach the card, so this always fails the caller.
type UnresolvedError struct {
	Placeholder string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved placeholder {%s}", e.Placeholder)
}

// Resolve substitutes every placeholder in tmpl from values.
func Resolve(tmpl string, values map[string]string) (string, error) {
	var sb strings.Builder

	for i := 0; i < len(tmpl); {
		open := strings.IndexByte(tmpl[i:], '{')
		if open < 0 {
			sb.WriteString(tmpl[i:])
			break
		}
		sb.WriteString(tmpl[i : i+open])
		i += open

		closing := strings.IndexByte(tmpl[i:], '}')
		if closing < 0 {
			return "", fmt.Errorf("unterminated placeholder in template %q", tmpl)
		}

		name := tmpl[i+1 : i+closing]
		if name == "" {
			return "", fmt.Errorf("empty placeholder in template %q", tmpl)
		}

		resolved, err := lookup(name, values)
		if err != nil {
			return "", err
		}
		sb.WriteString(resolved)

		i += closing + 1
	}

	return sb.String(), nil
}

// ResolveBytes resolves a template whose output is an APDU or parameter hex
// string and decodes it.
func ResolveBytes(tmpl string, values map[string]string) ([]byte, error) {
	resolved, err := Resolve(tmpl, values)
	if err != nil {
		return nil, err
	}
	raw, err := hexutil.Bytes(resolved)
	if err != nil {
		return nil, fmt.Errorf("template %q resolved to a non-hex string: %w", tmpl, err)
	}
	return raw, nil
}

func lookup(name string, values map[string]string) (string, error) {
	if v, ok := values[name]; ok {
		return v, nil
	}

	if base, ok := strings.CutSuffix(name, suffixHex); ok {
		if v, found := values[base]; found {
			return hexutil.String([]byte(v)), nil
		}
	}

	if base, ok := strings.CutSuffix(name, suffixLength); ok {
		if v, found := values[base]; found {
			return fmt.Sprintf("%02X", len(v)), nil
		}
	}

	return "", &UnresolvedError{Placeholder: name}
}
