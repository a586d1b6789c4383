// Package aid resolves Application Identifiers from plugin metadata: either
// a fixed literal or a dynamic construction from ordered byte segments.
// Resolution is pure and validated; a bad AID never reaches the card.
package aid

import (
	"fmt"

	"github.com/gregLibert/cardflow/pkg/hexutil"
	"github.com/gregLibert/cardflow/pkg/schema"
)

// ISO 7816-5 bounds for an Application Identifier.
const (
	MinLength = 5
	MaxLength = 16
)

// ValidationError reports an AID that cannot be assembled. It is raised
// before any SELECT is attempted.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "invalid AID: " + e.Msg
}

func errorf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Resolve produces the applet AID from plugin metadata and the current field
// values.
func Resolve(meta *schema.Metadata, values map[string]string) ([]byte, error) {
	if meta.AIDConstruction != nil {
		return Construct(meta.AIDConstruction, values)
	}

	raw, err := hexutil.Bytes(meta.AID)
	if err != nil {
		return nil, errorf("literal %q is not hex", meta.AID)
	}
	return checkLength(raw)
}

// Construct assembles base || segment_1 || ... || segment_n. Each segment
// contributes exactly its declared byte count, sourced from a field value or
// the segment default.
func Construct(c *schema.AIDConstruction, values map[string]string) ([]byte, error) {
	result, err := hexutil.Bytes(c.Base)
	if err != nil {
		return nil, errorf("base %q is not hex", c.Base)
	}

	for _, seg := range c.Segments {
		source := seg.Default
		if seg.Field != "" {
			if v, ok := values[seg.Field]; ok && v != "" {
				source = v
			}
		}
		if source == "" {
			return nil, errorf("segment %s: no value for field %q and no default", seg.Name, seg.Field)
		}

		raw, err := hexutil.Bytes(source)
		if err != nil {
			return nil, errorf("segment %s: value %q is not hex", seg.Name, source)
		}
		if len(raw) != seg.Length {
			return nil, errorf("segment %s: value %q is %d bytes, declared length is %d",
				seg.Name, source, len(raw), seg.Length)
		}

		result = append(result, raw...)
	}

	return checkLength(result)
}

func checkLength(raw []byte) ([]byte, error) {
	if len(raw) < MinLength || len(raw) > MaxLength {
		return nil, errorf("%d bytes, must be %d to %d", len(raw), MinLength, MaxLength)
	}
	return raw, nil
}
