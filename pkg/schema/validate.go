package schema

import (
	"fmt"

	"github.com/gregLibert/cardflow/pkg/hexutil"
)

// ValidationError reports a definition defect found before any card contact.
type ValidationError struct {
	Section string
	Msg     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Section, e.Msg)
}

func invalid(section, format string, args ...interface{}) error {
	return &ValidationError{Section: section, Msg: fmt.Sprintf(format, args...)}
}

// Validate checks the definition for structural defects: unknown enum
// values, dangling dependency ids, dependency cycles, malformed hex. A
// definition that passes is safe to hand to the engine.
func (p *Plugin) Validate() error {
	if p.Metadata.Name == "" {
		return invalid("metadata", "name is required")
	}

	hasAID := p.Metadata.AID != ""
	hasConstruction := p.Metadata.AIDConstruction != nil
	if hasAID == hasConstruction {
		return invalid("metadata", "exactly one of aid and aid_construction is required")
	}
	if hasAID && !hexutil.IsHex(p.Metadata.AID) {
		return invalid("metadata", "aid %q is not a hex string", p.Metadata.AID)
	}
	if hasConstruction {
		if err := validateConstruction("metadata.aid_construction", p.Metadata.AIDConstruction); err != nil {
			return err
		}
	}

	if p.InstallUI != nil {
		if err := validateForm("install_ui", p.InstallUI.Fields); err != nil {
			return err
		}
	}

	if err := p.validateParameters(); err != nil {
		return err
	}
	if err := p.validateWorkflows(); err != nil {
		return err
	}
	if err := p.validateManagementUI(); err != nil {
		return err
	}

	for name, hook := range map[string]*Hook{
		"hooks.pre_install":  p.Hooks.PreInstall,
		"hooks.post_install": p.Hooks.PostInstall,
	} {
		if err := validateHook(name, hook); err != nil {
			return err
		}
	}

	return nil
}

func validateConstruction(section string, c *AIDConstruction) error {
	if !hexutil.IsHex(c.Base) {
		return invalid(section, "base %q is not a hex string", c.Base)
	}
	for _, seg := range c.Segments {
		if seg.Name == "" {
			return invalid(section, "segment without a name")
		}
		if seg.Length <= 0 {
			return invalid(section, "segment %s: length must be positive", seg.Name)
		}
		if seg.Field == "" && seg.Default == "" {
			return invalid(section, "segment %s: needs a field source or a default", seg.Name)
		}
		if seg.Default != "" && !hexutil.IsHex(seg.Default) {
			return invalid(section, "segment %s: default %q is not a hex string", seg.Name, seg.Default)
		}
	}
	return nil
}

func validateForm(section string, fields []Field) error {
	seen := make(map[string]bool)
	for _, f := range fields {
		if f.ID == "" {
			return invalid(section, "field without an id")
		}
		if seen[f.ID] {
			return invalid(section, "duplicate field id %q", f.ID)
		}
		seen[f.ID] = true

		switch f.Type {
		case FieldText, FieldPassword, FieldNumber, FieldDropdown,
			FieldCheckbox, FieldHexEditor, FieldFile, FieldHidden:
		default:
			return invalid(section, "field %s: unknown type %q", f.ID, f.Type)
		}

		if f.Type == FieldDropdown && len(f.Options) == 0 {
			return invalid(section, "field %s: dropdown without options", f.ID)
		}
	}
	return nil
}

func (p *Plugin) validateParameters() error {
	seen := make(map[string]bool)
	for _, param := range p.Parameters {
		section := fmt.Sprintf("parameters.%s", param.ID)
		if param.ID == "" {
			return invalid("parameters", "parameter without an id")
		}
		if seen[param.ID] {
			return invalid("parameters", "duplicate parameter id %q", param.ID)
		}
		seen[param.ID] = true

		switch param.Encoding {
		case EncodingTLV:
			if len(param.Entries) == 0 {
				return invalid(section, "tlv encoding without entries")
			}
			for _, e := range param.Entries {
				if !hexutil.IsHex(e.Tag) || e.Tag == "" {
					return invalid(section, "entry tag %q is not a hex string", e.Tag)
				}
				if e.Value != "" && e.Field != "" {
					return invalid(section, "entry %s: value and field are exclusive", e.Tag)
				}
				if e.Value != "" && !hexutil.IsHex(e.Value) {
					return invalid(section, "entry %s: value %q is not a hex string", e.Tag, e.Value)
				}
			}
		case EncodingTemplate:
			if param.Template == "" {
				return invalid(section, "template encoding without a template")
			}
		case EncodingBuilder:
			if param.Builder == "" {
				return invalid(section, "builder encoding without a builder name")
			}
		case EncodingPositionalPatch:
			if param.Patch == nil || len(param.Patch.Blocks) == 0 {
				return invalid(section, "positional-patch encoding without a block layout")
			}
			for _, b := range param.Patch.Blocks {
				tag, err := hexutil.Bytes(b.Tag)
				if err != nil || len(tag) != 1 {
					return invalid(section, "patch block tag %q must be one byte", b.Tag)
				}
				if b.Width < 2 {
					return invalid(section, "patch block %s: width %d too small for tag and length", b.Tag, b.Width)
				}
			}
		default:
			return invalid(section, "unknown encoding %q", param.Encoding)
		}

		if param.InstanceAID != nil {
			if err := validateConstruction(section+".instance_aid", param.InstanceAID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Plugin) validateWorkflows() error {
	seenWorkflow := make(map[string]bool)
	for _, wf := range p.Workflows {
		section := fmt.Sprintf("workflows.%s", wf.ID)
		if wf.ID == "" {
			return invalid("workflows", "workflow without an id")
		}
		if seenWorkflow[wf.ID] {
			return invalid("workflows", "duplicate workflow id %q", wf.ID)
		}
		seenWorkflow[wf.ID] = true

		if len(wf.Steps) == 0 {
			return invalid(section, "workflow without steps")
		}

		steps := make(map[string]*Step, len(wf.Steps))
		for i := range wf.Steps {
			step := &wf.Steps[i]
			if step.ID == "" {
				return invalid(section, "step without an id")
			}
			if _, dup := steps[step.ID]; dup {
				return invalid(section, "duplicate step id %q", step.ID)
			}
			steps[step.ID] = step

			if err := validateStep(section, step); err != nil {
				return err
			}
		}

		for _, step := range wf.Steps {
			for _, dep := range step.DependsOn {
				if _, ok := steps[dep]; !ok {
					return invalid(section, "step %s depends on unknown step %q", step.ID, dep)
				}
			}
		}

		if cycle := findCycle(wf.Steps); cycle != "" {
			return invalid(section, "dependency cycle through step %q", cycle)
		}
	}
	return nil
}

func validateStep(section string, step *Step) error {
	switch step.Type {
	case StepAPDU:
		if step.APDU == "" {
			return invalid(section, "step %s: apdu step without a template", step.ID)
		}
		for _, sw := range step.ExpectSW {
			raw, err := hexutil.Bytes(sw)
			if err != nil || len(raw) != 2 {
				return invalid(section, "step %s: expect_sw entry %q is not a status word", step.ID, sw)
			}
		}
	case StepDialog:
		if len(step.Fields) == 0 {
			return invalid(section, "step %s: dialog step without fields", step.ID)
		}
		if err := validateForm(fmt.Sprintf("%s.%s", section, step.ID), step.Fields); err != nil {
			return err
		}
	case StepScript:
		if step.Script == "" {
			return invalid(section, "step %s: script step without a script reference", step.ID)
		}
	case StepConfirmation:
		if step.Message == "" {
			return invalid(section, "step %s: confirmation step without a message", step.ID)
		}
	default:
		return invalid(section, "step %s: unknown type %q", step.ID, step.Type)
	}
	return nil
}

// findCycle runs a three-color depth-first search over the dependency graph
// and returns the id of a step inside a cycle, or "".
func findCycle(steps []Step) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	deps := make(map[string][]string, len(steps))
	for _, s := range steps {
		deps[s.ID] = s.DependsOn
	}

	color := make(map[string]int, len(steps))
	var visit func(id string) string
	visit = func(id string) string {
		color[id] = gray
		for _, dep := range deps[id] {
			switch color[dep] {
			case gray:
				return dep
			case white:
				if found := visit(dep); found != "" {
					return found
				}
			}
		}
		color[id] = black
		return ""
	}

	for _, s := range steps {
		if color[s.ID] == white {
			if found := visit(s.ID); found != "" {
				return found
			}
		}
	}
	return ""
}

func (p *Plugin) validateManagementUI() error {
	if p.ManagementUI == nil {
		return nil
	}

	for _, action := range p.ManagementUI.Actions {
		if action.ID == "" {
			return invalid("management_ui.actions", "action without an id")
		}
		if _, ok := p.FindWorkflow(action.Workflow); !ok {
			return invalid("management_ui.actions", "action %s references unknown workflow %q", action.ID, action.Workflow)
		}
	}

	seen := make(map[string]bool)
	for _, reader := range p.ManagementUI.StateReaders {
		section := fmt.Sprintf("management_ui.state_readers.%s", reader.ID)
		if reader.ID == "" {
			return invalid("management_ui.state_readers", "state reader without an id")
		}
		if seen[reader.ID] {
			return invalid("management_ui.state_readers", "duplicate state reader id %q", reader.ID)
		}
		seen[reader.ID] = true

		if reader.APDU == "" {
			return invalid(section, "state reader without an apdu")
		}
		if reader.SelectFile != "" && !hexutil.IsHex(reader.SelectFile) {
			return invalid(section, "select_file %q is not a hex string", reader.SelectFile)
		}

		switch reader.Parse.Type {
		case ParseByte, ParseASCII, ParseOpenPGPKey:
		case ParseHex:
			if reader.Parse.Length <= 0 {
				return invalid(section, "hex parse without a length")
			}
			// The as_int accumulator is a uint64; longer slices would
			// silently overflow into a wrong number.
			if reader.Parse.AsInt && reader.Parse.Length > 8 {
				return invalid(section, "as_int parse length %d exceeds 8 bytes", reader.Parse.Length)
			}
		case ParseTLV:
			if reader.Parse.Tag == "" {
				return invalid(section, "tlv parse without a tag")
			}
		default:
			return invalid(section, "unknown parse type %q", reader.Parse.Type)
		}
	}
	return nil
}

func validateHook(section string, h *Hook) error {
	if h == nil {
		return nil
	}
	switch h.Type {
	case HookNoOp:
	case HookAPDU:
		if h.APDU == "" {
			return invalid(section, "apdu hook without a template")
		}
	case HookNative:
		if h.Name == "" {
			return invalid(section, "native hook without a callback name")
		}
	default:
		return invalid(section, "unknown hook type %q", h.Type)
	}
	return nil
}
