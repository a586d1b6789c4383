package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/cardflow/pkg/schema"
)

func TestPreview(t *testing.T) {
	wf := &schema.Workflow{
		ID: "change_pin",
		Steps: []schema.Step{
			{ID: "ask", Type: schema.StepDialog},
			{ID: "verify", Type: schema.StepAPDU, APDU: "00200081{pin_length}{pin_hex}"},
			{ID: "pending", Type: schema.StepAPDU, APDU: "00240081{new_pin_length}{new_pin_hex}", DependsOn: []string{"ask"}},
		},
	}

	entries := Preview(wf, map[string]string{"pin": "123456"})

	require.Len(t, entries, 2, "dialog steps have nothing to preview")

	verify := entries["verify"]
	require.NoError(t, verify.Err)
	assert.Equal(t, "00200081"+"06"+"313233343536", verify.APDU)

	pending := entries["pending"]
	require.Error(t, pending.Err, "values only known after the dialog stay unresolved")
	assert.Contains(t, pending.Err.Error(), "new_pin")
}
