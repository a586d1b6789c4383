package params

import (
	"fmt"
	"strings"

	"github.com/gregLibert/cardflow/pkg/hexutil"
	"github.com/gregLibert/cardflow/pkg/schema"
)

// Positional patching edits a running hex string composed of fixed-width
// blocks in a declared order (container sizes, permission masks). Unlike
// generic TLV assembly, a patch edits the shared string in place: the block
// is replaced where its leading tag byte is found at the computed offset,
// inserted there when absent, and every trailing byte is preserved exactly.
// The string doubles as persisted configuration, so behavior here must stay
// byte-for-byte stable.

// Apply patches one block into current, identified by its leading tag byte.
// block must be exactly the declared width and start with the tag byte.
func Apply(layout *schema.PositionalPatch, current string, tag string, block []byte) (string, error) {
	tagByte, idx, err := findBlock(layout, tag)
	if err != nil {
		return "", err
	}

	width := layout.Blocks[idx].Width
	if len(block) != width {
		return "", fmt.Errorf("patch block %s: got %d bytes, layout declares %d", tag, len(block), width)
	}
	if block[0] != tagByte {
		return "", fmt.Errorf("patch block %s: content starts with %02X", tag, block[0])
	}

	data, err := hexutil.Bytes(current)
	if err != nil {
		return "", fmt.Errorf("current parameter string is not hex: %w", err)
	}

	// Walk the declared blocks before the target; each one present at the
	// running offset contributes its fixed width, absent blocks contribute
	// nothing.
	offset := 0
	for i := 0; i < idx; i++ {
		prevTag, err := tagOf(layout.Blocks[i])
		if err != nil {
			return "", err
		}
		if offset < len(data) && data[offset] == prevTag {
			if offset+layout.Blocks[i].Width > len(data) {
				return "", fmt.Errorf("block %s at offset %d is truncated", layout.Blocks[i].Tag, offset)
			}
			offset += layout.Blocks[i].Width
		}
	}

	if offset < len(data) && data[offset] == tagByte {
		// Replace in place.
		if offset+width > len(data) {
			return "", fmt.Errorf("block %s at offset %d is truncated", tag, offset)
		}
		out := append([]byte{}, data[:offset]...)
		out = append(out, block...)
		out = append(out, data[offset+width:]...)
		return hexutil.String(out), nil
	}

	// Insert, keeping whatever follows (later blocks) intact.
	out := append([]byte{}, data[:offset]...)
	out = append(out, block...)
	out = append(out, data[offset:]...)
	return hexutil.String(out), nil
}

// ApplyFields patches every block whose source field is present in values.
// The payload value is hex and must fill the block exactly (width minus the
// tag and length bytes).
func ApplyFields(layout *schema.PositionalPatch, current string, values map[string]string) (string, error) {
	result := strings.ToUpper(strings.ReplaceAll(current, " ", ""))

	for _, b := range layout.Blocks {
		if b.Field == "" {
			continue
		}
		v, ok := values[b.Field]
		if !ok {
			continue
		}

		payload, err := hexutil.Bytes(v)
		if err != nil {
			return "", fmt.Errorf("patch block %s: field %q value %q is not hex", b.Tag, b.Field, v)
		}
		if len(payload) != b.Width-2 {
			return "", fmt.Errorf("patch block %s: payload %q is %d bytes, block holds %d",
				b.Tag, v, len(payload), b.Width-2)
		}

		tagByte, _, err := findBlock(layout, b.Tag)
		if err != nil {
			return "", err
		}

		block := append([]byte{tagByte, byte(b.Width - 2)}, payload...)
		result, err = Apply(layout, result, b.Tag, block)
		if err != nil {
			return "", err
		}
	}

	return result, nil
}

func findBlock(layout *schema.PositionalPatch, tag string) (byte, int, error) {
	want, err := hexutil.Bytes(tag)
	if err != nil || len(want) != 1 {
		return 0, 0, fmt.Errorf("patch tag %q must be one byte", tag)
	}
	for i, b := range layout.Blocks {
		t, err := tagOf(b)
		if err != nil {
			return 0, 0, err
		}
		if t == want[0] {
			return want[0], i, nil
		}
	}
	return 0, 0, fmt.Errorf("tag %s is not part of the patch layout", strings.ToUpper(tag))
}

func tagOf(b schema.PatchBlock) (byte, error) {
	raw, err := hexutil.Bytes(b.Tag)
	if err != nil || len(raw) != 1 {
		return 0, fmt.Errorf("patch block tag %q must be one byte", b.Tag)
	}
	return raw[0], nil
}
