// Package params assembles install-parameter byte strings from their
// declarative descriptions. Output is byte-exact: the same string is stored
// as configuration and sent as install payload, so every encoding kind must
// be deterministic.
package params

import (
	"fmt"

	"github.com/gregLibert/cardflow/pkg/aid"
	"github.com/gregLibert/cardflow/pkg/hexutil"
	"github.com/gregLibert/cardflow/pkg/schema"
	"github.com/gregLibert/cardflow/pkg/template"
	"github.com/gregLibert/cardflow/pkg/tlv"
)

// BuilderFunc is an external parameter builder registered by the host.
type BuilderFunc func(values map[string]string) ([]byte, error)

// Encoder resolves parameter definitions against field values. Builders are
// injected at construction, never looked up globally.
type Encoder struct {
	builders map[string]BuilderFunc
}

// NewEncoder creates an encoder with no builders registered.
func NewEncoder() *Encoder {
	return &Encoder{builders: make(map[string]BuilderFunc)}
}

// RegisterBuilder makes a named builder available to builder-encoded
// parameters.
func (e *Encoder) RegisterBuilder(name string, fn BuilderFunc) {
	e.builders[name] = fn
}

// Result carries the encoded parameter bytes and, when the definition asks
// for one, the instance AID to create at install time.
type Result struct {
	Payload     []byte
	InstanceAID []byte
}

// Encode produces the parameter bytes for one definition.
func (e *Encoder) Encode(param *schema.Parameter, values map[string]string) (*Result, error) {
	payload, err := e.encodePayload(param, values)
	if err != nil {
		return nil, fmt.Errorf("parameter %s: %w", param.ID, err)
	}

	result := &Result{Payload: payload}

	if param.InstanceAID != nil {
		instance, err := aid.Construct(param.InstanceAID, values)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", param.ID, err)
		}
		result.InstanceAID = instance
	}

	return result, nil
}

func (e *Encoder) encodePayload(param *schema.Parameter, values map[string]string) ([]byte, error) {
	switch param.Encoding {
	case schema.EncodingTLV:
		return encodeTLV(param.Entries, values)

	case schema.EncodingTemplate:
		return template.ResolveBytes(param.Template, values)

	case schema.EncodingBuilder:
		fn, ok := e.builders[param.Builder]
		if !ok {
			return nil, fmt.Errorf("no builder %q registered", param.Builder)
		}
		return fn(values)

	case schema.EncodingPositionalPatch:
		patched, err := ApplyFields(param.Patch, values[param.ID], values)
		if err != nil {
			return nil, err
		}
		return hexutil.Bytes(patched)

	default:
		return nil, fmt.Errorf("unknown encoding %q", param.Encoding)
	}
}

func encodeTLV(entries []schema.TLVEntry, values map[string]string) ([]byte, error) {
	resolved := make([]tlv.Entry, 0, len(entries))
	for _, entry := range entries {
		source := entry.Value
		if entry.Field != "" {
			v, ok := values[entry.Field]
			if !ok {
				return nil, fmt.Errorf("entry %s: no value for field %q", entry.Tag, entry.Field)
			}
			source = v
		}

		raw, err := hexutil.Bytes(source)
		if err != nil {
			return nil, fmt.Errorf("entry %s: value %q is not hex", entry.Tag, source)
		}
		resolved = append(resolved, tlv.Entry{Tag: entry.Tag, Value: raw})
	}
	return tlv.EncodeEntries(resolved)
}
