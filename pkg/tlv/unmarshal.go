package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// Unmarshaler allows custom types to implement their own TLV parsing logic.
type Unmarshaler interface {
	UnmarshalTLV(data []byte) error
}

// Unmarshal parses raw BER-TLV data and maps it into a target Go struct using
// `tlv:"<hex tag>"` struct tags. It is used for well-formed card structures
// (key templates, file control information); for lenient single-tag lookups
// use Find.
//
// Field kinds: []byte takes the raw value, string the upper-hex rendering,
// a struct or *struct descends into the constructed children, and a slice
// of structs grows by one element per occurrence of the tag. A field tagged
// `tlv:",unknown"` of type []bertlv.TLV collects every packet no other tag
// claims.
func Unmarshal(data []byte, target interface{}) error {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return fmt.Errorf("bertlv decode failed: %w", err)
	}
	return UnmarshalFromPackets(packets, target)
}

// UnmarshalFromPackets maps a slice of pre-decoded bertlv.TLV objects to a
// target struct.
func UnmarshalFromPackets(packets []bertlv.TLV, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer")
	}
	v = v.Elem()

	fields, leftover := fieldPlan(v)

	var unmatched []bertlv.TLV
	for _, packet := range packets {
		field, ok := fields[strings.ToUpper(packet.Tag)]
		if !ok {
			unmatched = append(unmatched, packet)
			continue
		}
		if err := assign(field, packet); err != nil {
			return err
		}
	}

	if leftover.IsValid() && leftover.CanSet() && len(unmatched) > 0 {
		leftover.Set(reflect.ValueOf(unmatched))
	}
	return nil
}

// fieldPlan indexes the target's fields by their tag, upper-cased, and
// picks out the leftover collector if one is declared.
func fieldPlan(v reflect.Value) (map[string]reflect.Value, reflect.Value) {
	fields := make(map[string]reflect.Value, v.NumField())
	var leftover reflect.Value

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("tlv")
		if tag == "" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			if opts == "unknown" {
				leftover = v.Field(i)
			}
			continue
		}
		fields[strings.ToUpper(name)] = v.Field(i)
	}
	return fields, leftover
}

// assign writes one packet into its field. Repeated tags accumulate into a
// slice field one element per occurrence; a scalar field keeps the last.
func assign(field reflect.Value, packet bertlv.TLV) error {
	if field.Kind() == reflect.Slice && field.Type().Elem().Kind() != reflect.Uint8 {
		elem := reflect.New(field.Type().Elem()).Elem()
		if err := setValue(elem, packet); err != nil {
			return err
		}
		field.Set(reflect.Append(field, elem))
		return nil
	}
	return setValue(field, packet)
}

func setValue(field reflect.Value, packet bertlv.TLV) error {
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTLV(rawValue(packet))
		}
	}

	switch {
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.Uint8:
		field.SetBytes(rawValue(packet))
		return nil
	case field.Kind() == reflect.String:
		field.SetString(strings.ToUpper(hex.EncodeToString(packet.Value)))
		return nil
	}

	if inner := structValue(field); inner.IsValid() {
		if len(packet.TLVs) > 0 {
			return UnmarshalFromPackets(packet.TLVs, inner.Interface())
		}
		return Unmarshal(packet.Value, inner.Interface())
	}
	return nil
}

// structValue returns a pointer to a struct field, allocating a nil
// pointer, or an invalid value when the field is not struct-shaped.
func structValue(field reflect.Value) reflect.Value {
	switch field.Kind() {
	case reflect.Struct:
		return field.Addr()
	case reflect.Ptr:
		if field.Type().Elem().Kind() != reflect.Struct {
			return reflect.Value{}
		}
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return field
	default:
		return reflect.Value{}
	}
}

// rawValue returns the value bytes of a packet, re-encoding the children of
// a constructed one so custom unmarshalers see the complete payload.
func rawValue(packet bertlv.TLV) []byte {
	if len(packet.TLVs) > 0 {
		if enc, err := bertlv.Encode(packet.TLVs); err == nil {
			return enc
		}
	}
	return packet.Value
}
