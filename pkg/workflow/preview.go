package workflow

import (
	"github.com/gregLibert/cardflow/pkg/schema"
	"github.com/gregLibert/cardflow/pkg/template"
)

// Preview resolves every apdu step of a workflow against the given values
// without touching a card, keyed by step id. It is meant for wizard-style
// review screens before a run. Steps whose templates reference values only
// produced at run time (dialog answers, saved responses) come back as an
// error for that step, not a failure of the whole preview.
func Preview(wf *schema.Workflow, values map[string]string) map[string]PreviewEntry {
	out := make(map[string]PreviewEntry)
	for i := range wf.Steps {
		step := &wf.Steps[i]
		if step.Type != schema.StepAPDU {
			continue
		}
		resolved, err := template.Resolve(step.APDU, values)
		out[step.ID] = PreviewEntry{APDU: resolved, Err: err}
	}
	return out
}

// PreviewEntry is one resolved apdu step, or the reason it could not be
// resolved yet.
type PreviewEntry struct {
	APDU string
	Err  error
}
