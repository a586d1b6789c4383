// Package tlv implements the BER-TLV subset used by card responses and
// install parameters: short, 0x81 and 0x82 length forms, 1- and 2-byte tags,
// and depth-first search through constructed templates.
//
// Decoding is deliberately lenient. Card responses are hostile input: a
// truncated or malformed structure must degrade to "tag not found", never to
// a failure that aborts the caller. Encoding is strict.
package tlv

import (
	"fmt"
	"strings"

	"github.com/gregLibert/cardflow/pkg/hexutil"
)

// Entry is one tag/value pair of an install-parameter list.
type Entry struct {
	Tag   string
	Value []byte
}

// Find performs a depth-first search for a tag inside raw BER-TLV data.
// The tag is given in hex ("C4", "7F49"). Constructed tags (bit 0x20 of the
// first tag byte) are descended into; the first match in depth-first order
// wins.
//
// The second return value distinguishes a present-but-empty value from an
// absent tag. Any malformed or truncated structure terminates the search
// with "not found".
func Find(tag string, data []byte) ([]byte, bool) {
	want, err := hexutil.Bytes(tag)
	if err != nil || len(want) == 0 || len(want) > 2 {
		return nil, false
	}
	return find(want, data)
}

func find(want, data []byte) ([]byte, bool) {
	i := 0
	for i < len(data) {
		// Padding bytes between entries, seen on some cards.
		if data[i] == 0x00 || data[i] == 0xFF {
			i++
			continue
		}

		tag, n := readTag(data[i:])
		if n == 0 {
			return nil, false
		}
		i += n

		length, n := readLength(data[i:])
		if n == 0 {
			return nil, false
		}
		i += n

		if length > len(data)-i {
			return nil, false
		}
		value := data[i : i+length]
		i += length

		if tagEqual(tag, want) {
			return value, true
		}

		// Constructed tag: search the template before the next sibling.
		if tag[0]&0x20 != 0 {
			if v, ok := find(want, value); ok {
				return v, true
			}
		}
	}
	return nil, false
}

// readTag reads a 1- or 2-byte tag. Low 5 bits of the first byte all set
// means a second tag byte follows. Returns the tag bytes and the number of
// bytes consumed, 0 on truncation.
func readTag(data []byte) ([]byte, int) {
	if len(data) == 0 {
		return nil, 0
	}
	if data[0]&0x1F == 0x1F {
		if len(data) < 2 {
			return nil, 0
		}
		return data[:2], 2
	}
	return data[:1], 1
}

// readLength decodes a BER length field. Accepted forms: 0x00-0x7F literal,
// 0x81 + one byte, 0x82 + two bytes big-endian. Any other indicator byte is
// malformed and consumes nothing, which the caller reports as "not found".
func readLength(data []byte) (int, int) {
	if len(data) == 0 {
		return 0, 0
	}
	switch b := data[0]; {
	case b <= 0x7F:
		return int(b), 1
	case b == 0x81:
		if len(data) < 2 {
			return 0, 0
		}
		return int(data[1]), 2
	case b == 0x82:
		if len(data) < 3 {
			return 0, 0
		}
		return int(data[1])<<8 | int(data[2]), 3
	default:
		return 0, 0
	}
}

func tagEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Encode produces tag || length || value for a single entry.
func Encode(tag string, value []byte) ([]byte, error) {
	tagBytes, err := hexutil.Bytes(tag)
	if err != nil || len(tagBytes) == 0 || len(tagBytes) > 2 {
		return nil, fmt.Errorf("invalid TLV tag %q", tag)
	}

	lengthBytes, err := EncodeLength(len(value))
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(tagBytes)+len(lengthBytes)+len(value))
	out = append(out, tagBytes...)
	out = append(out, lengthBytes...)
	out = append(out, value...)
	return out, nil
}

// EncodeLength encodes a length using the shortest of the accepted forms.
func EncodeLength(n int) ([]byte, error) {
	switch {
	case n < 0:
		return nil, fmt.Errorf("negative TLV length %d", n)
	case n <= 0x7F:
		return []byte{byte(n)}, nil
	case n <= 0xFF:
		return []byte{0x81, byte(n)}, nil
	case n <= 0xFFFF:
		return []byte{0x82, byte(n >> 8), byte(n)}, nil
	default:
		return nil, fmt.Errorf("TLV length %d exceeds the 0x82 form", n)
	}
}

// EncodeEntries concatenates the encodings of an ordered entry list.
func EncodeEntries(entries []Entry) ([]byte, error) {
	var out []byte
	for _, e := range entries {
		enc, err := Encode(e.Tag, e.Value)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", strings.ToUpper(e.Tag), err)
		}
		out = append(out, enc...)
	}
	return out, nil
}
