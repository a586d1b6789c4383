package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/cardflow/pkg/hexutil"
	"github.com/gregLibert/cardflow/pkg/schema"
)

// Layout in declaration order: C8 (permissions, 4 bytes), C6 (container
// size, 4 bytes), EF (reserved, 4 bytes).
func sizeLayout() *schema.PositionalPatch {
	return &schema.PositionalPatch{
		Blocks: []schema.PatchBlock{
			{Tag: "C8", Width: 4, Field: "permissions"},
			{Tag: "C6", Width: 4, Field: "container_size"},
			{Tag: "EF", Width: 4},
		},
	}
}

func TestApply(t *testing.T) {
	layout := sizeLayout()

	tests := []struct {
		name     string
		current  string
		tag      string
		block    string
		expected string
	}{
		{
			name:     "Insert into empty string",
			current:  "",
			tag:      "C6",
			block:    "C60200F0",
			expected: "C60200F0",
		},
		{
			name:     "Replace in place",
			current:  "C6020050",
			tag:      "C6",
			block:    "C60200F0",
			expected: "C60200F0",
		},
		{
			name:     "Insert after present earlier block",
			current:  "C8020001",
			tag:      "C6",
			block:    "C60200F0",
			expected: "C8020001C60200F0",
		},
		{
			name:     "Insert before trailing block",
			current:  "C8020001EF020000",
			tag:      "C6",
			block:    "C60200F0",
			expected: "C8020001C60200F0EF020000",
		},
		{
			name:     "Replace in middle preserves both sides",
			current:  "C8020001C6020050EF020000",
			tag:      "C6",
			block:    "C60200F0",
			expected: "C8020001C60200F0EF020000",
		},
		{
			name:     "Earlier block absent shifts offset to zero",
			current:  "C6020050EF020000",
			tag:      "C6",
			block:    "C60200F0",
			expected: "C60200F0EF020000",
		},
		{
			name:     "Patch first block in front of the rest",
			current:  "C6020050",
			tag:      "C8",
			block:    "C8020003",
			expected: "C8020003C6020050",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(layout, tt.current, tt.tag, hexutil.MustBytes(tt.block))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestApplyErrors(t *testing.T) {
	layout := sizeLayout()

	tests := []struct {
		name    string
		current string
		tag     string
		block   string
	}{
		{"Tag outside layout", "", "D0", "D0020000"},
		{"Block wrong width", "", "C6", "C60300F000"},
		{"Block content wrong tag", "", "C6", "C80200F0"},
		{"Current string not hex", "ZZZZ", "C6", "C60200F0"},
		{"Existing target block truncated", "C602", "C6", "C60200F0"},
		{"Earlier block truncated", "C802", "C6", "C60200F0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(layout, tt.current, tt.tag, hexutil.MustBytes(tt.block))
			require.Error(t, err)
		})
	}
}

func TestApplyFields(t *testing.T) {
	layout := sizeLayout()

	t.Run("Patches every block with a present field", func(t *testing.T) {
		got, err := ApplyFields(layout, "EF020000", map[string]string{
			"permissions":    "0001",
			"container_size": "00F6",
		})
		require.NoError(t, err)
		assert.Equal(t, "C8020001C60200F6EF020000", got)
	})

	t.Run("Absent fields leave the string alone", func(t *testing.T) {
		got, err := ApplyFields(layout, "C6020050", nil)
		require.NoError(t, err)
		assert.Equal(t, "C6020050", got)
	})

	t.Run("Payload must fill the block exactly", func(t *testing.T) {
		_, err := ApplyFields(layout, "", map[string]string{"container_size": "F6"})
		require.Error(t, err)
	})

	t.Run("Round-trip through the encoder", func(t *testing.T) {
		param := &schema.Parameter{
			ID:       "sizes",
			Encoding: schema.EncodingPositionalPatch,
			Patch:    layout,
		}
		enc := NewEncoder()
		result, err := enc.Encode(param, map[string]string{
			"sizes":          "C8020001EF020000", // current persisted string
			"container_size": "00F6",
		})
		require.NoError(t, err)
		assert.Equal(t, hexutil.MustBytes("C8020001C60200F6EF020000"), result.Payload)
	})
}
