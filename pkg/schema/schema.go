// Package schema defines the declarative applet description consumed by the
// engine: metadata and AID construction, install and management UI forms,
// install parameters, state readers, workflows and hooks.
//
// Definitions are data (json or yaml files), validated before any card
// contact. The engine never executes anything from a definition directly;
// scripts and builders are resolved through capabilities injected by the
// host application.
package schema

// FieldType enumerates the input widgets a UI collaborator can render for a
// field. The engine only cares about the value each one produces.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldPassword  FieldType = "password"
	FieldNumber    FieldType = "number"
	FieldDropdown  FieldType = "dropdown"
	FieldCheckbox  FieldType = "checkbox"
	FieldHexEditor FieldType = "hex_editor"
	FieldFile      FieldType = "file"
	FieldHidden    FieldType = "hidden"
)

// StepType enumerates workflow step kinds.
type StepType string

const (
	StepAPDU         StepType = "apdu"
	StepDialog       StepType = "dialog"
	StepScript       StepType = "script"
	StepConfirmation StepType = "confirmation"
)

// ParseType enumerates response parse rules.
type ParseType string

const (
	ParseByte       ParseType = "byte"
	ParseHex        ParseType = "hex"
	ParseTLV        ParseType = "tlv"
	ParseASCII      ParseType = "ascii"
	ParseOpenPGPKey ParseType = "openpgp_key"
)

// EncodingKind enumerates install-parameter encodings.
type EncodingKind string

const (
	EncodingTLV             EncodingKind = "tlv"
	EncodingTemplate        EncodingKind = "template"
	EncodingBuilder         EncodingKind = "builder"
	EncodingPositionalPatch EncodingKind = "positional-patch"
)

// HookType enumerates the tagged hook variants. General scripting stays
// outside the core; a native hook names a callback registered by the host.
type HookType string

const (
	HookNoOp   HookType = "noop"
	HookAPDU   HookType = "apdu"
	HookNative HookType = "native"
)

// Plugin is one complete applet description.
type Plugin struct {
	Source       Source        `mapstructure:"source" json:"source"`
	Metadata     Metadata      `mapstructure:"metadata" json:"metadata"`
	InstallUI    *Form         `mapstructure:"install_ui" json:"install_ui,omitempty"`
	ManagementUI *ManagementUI `mapstructure:"management_ui" json:"management_ui,omitempty"`
	Parameters   []Parameter   `mapstructure:"parameters" json:"parameters,omitempty"`
	Workflows    []Workflow    `mapstructure:"workflows" json:"workflows,omitempty"`
	Hooks        Hooks         `mapstructure:"hooks" json:"hooks,omitempty"`
}

// Source identifies where the applet binary comes from. The CAP file itself
// is opaque to the engine.
type Source struct {
	Name    string `mapstructure:"name" json:"name"`
	Version string `mapstructure:"version" json:"version,omitempty"`
	CAPURL  string `mapstructure:"cap_url" json:"cap_url,omitempty"`
}

// Metadata carries the applet identity: either a fixed AID or a dynamic
// construction, never both.
type Metadata struct {
	Name            string           `mapstructure:"name" json:"name"`
	AID             string           `mapstructure:"aid" json:"aid,omitempty"`
	AIDConstruction *AIDConstruction `mapstructure:"aid_construction" json:"aid_construction,omitempty"`
}

// AIDConstruction assembles an AID as base || segment_1 || ... || segment_n.
type AIDConstruction struct {
	Base     string       `mapstructure:"base" json:"base"`
	Segments []AIDSegment `mapstructure:"segments" json:"segments,omitempty"`
}

// AIDSegment contributes Length bytes sourced from a field value (hex
// string) or a default constant when the field is absent.
type AIDSegment struct {
	Name    string `mapstructure:"name" json:"name"`
	Length  int    `mapstructure:"length" json:"length"`
	Field   string `mapstructure:"field" json:"field,omitempty"`
	Default string `mapstructure:"default" json:"default,omitempty"`
}

// Form is an ordered list of input fields.
type Form struct {
	Fields []Field `mapstructure:"fields" json:"fields"`
}

// Field describes one input the UI collaborator prompts for.
type Field struct {
	ID       string    `mapstructure:"id" json:"id"`
	Label    string    `mapstructure:"label" json:"label,omitempty"`
	Type     FieldType `mapstructure:"type" json:"type"`
	Default  string    `mapstructure:"default" json:"default,omitempty"`
	Options  []string  `mapstructure:"options" json:"options,omitempty"`
	Required bool      `mapstructure:"required" json:"required,omitempty"`
}

// ManagementUI groups the actions and state readers of the management view.
type ManagementUI struct {
	Actions      []Action      `mapstructure:"actions" json:"actions,omitempty"`
	StateReaders []StateReader `mapstructure:"state_readers" json:"state_readers,omitempty"`
}

// Action binds a button to a workflow.
type Action struct {
	ID       string `mapstructure:"id" json:"id"`
	Label    string `mapstructure:"label" json:"label,omitempty"`
	Workflow string `mapstructure:"workflow" json:"workflow"`
}

// StateReader samples one piece of applet state: an APDU plus a parse rule.
type StateReader struct {
	ID         string    `mapstructure:"id" json:"id"`
	Label      string    `mapstructure:"label" json:"label,omitempty"`
	APDU       string    `mapstructure:"apdu" json:"apdu"`
	SelectFile string    `mapstructure:"select_file" json:"select_file,omitempty"`
	Parse      ParseRule `mapstructure:"parse" json:"parse"`
	EmptyValue string    `mapstructure:"empty_value" json:"empty_value,omitempty"`
}

// ParseRule describes how raw response bytes become a display value.
type ParseRule struct {
	Type       ParseType         `mapstructure:"type" json:"type"`
	Offset     int               `mapstructure:"offset" json:"offset,omitempty"`
	Length     int               `mapstructure:"length" json:"length,omitempty"`
	Tag        string            `mapstructure:"tag" json:"tag,omitempty"`
	ASCII      bool              `mapstructure:"ascii" json:"ascii,omitempty"`
	AsInt      bool              `mapstructure:"as_int" json:"as_int,omitempty"`
	DisplayMap map[string]string `mapstructure:"display_map" json:"display_map,omitempty"`
	Template   string            `mapstructure:"template" json:"template,omitempty"`
}

// Parameter describes one install-parameter byte string. The encoded output
// doubles as persisted configuration and install payload, so encoders must
// be byte-exact.
type Parameter struct {
	ID          string           `mapstructure:"id" json:"id"`
	Encoding    EncodingKind     `mapstructure:"encoding" json:"encoding"`
	Entries     []TLVEntry       `mapstructure:"entries" json:"entries,omitempty"`
	Template    string           `mapstructure:"template" json:"template,omitempty"`
	Builder     string           `mapstructure:"builder" json:"builder,omitempty"`
	Patch       *PositionalPatch `mapstructure:"patch" json:"patch,omitempty"`
	InstanceAID *AIDConstruction `mapstructure:"instance_aid" json:"instance_aid,omitempty"`
}

// TLVEntry is one tag of a tlv-encoded parameter. Value is a literal hex
// string; Field sources the value from the field map instead.
type TLVEntry struct {
	Tag   string `mapstructure:"tag" json:"tag"`
	Value string `mapstructure:"value" json:"value,omitempty"`
	Field string `mapstructure:"field" json:"field,omitempty"`
}

// PositionalPatch describes the fixed block layout of a patched parameter
// string (container sizes, permissions). Blocks appear in declaration order;
// each present block occupies Width bytes starting with its tag byte.
type PositionalPatch struct {
	Blocks []PatchBlock `mapstructure:"blocks" json:"blocks"`
}

// PatchBlock is one fixed-width block of a positional-patch layout. Width
// counts the whole block: tag byte, length byte, and payload. Field names
// the value-map entry supplying the payload hex when this block is patched.
type PatchBlock struct {
	Tag   string `mapstructure:"tag" json:"tag"`
	Width int    `mapstructure:"width" json:"width"`
	Field string `mapstructure:"field" json:"field,omitempty"`
}

// Workflow is a dependency-graphed sequence of steps run against one card
// session.
type Workflow struct {
	ID          string `mapstructure:"id" json:"id"`
	Label       string `mapstructure:"label" json:"label,omitempty"`
	Description string `mapstructure:"description" json:"description,omitempty"`
	Steps       []Step `mapstructure:"steps" json:"steps"`
}

// Step is one unit of a workflow. The populated fields depend on Type.
type Step struct {
	ID        string   `mapstructure:"id" json:"id"`
	Type      StepType `mapstructure:"type" json:"type"`
	DependsOn []string `mapstructure:"depends_on" json:"depends_on,omitempty"`

	// apdu
	APDU     string   `mapstructure:"apdu" json:"apdu,omitempty"`
	ExpectSW []string `mapstructure:"expect_sw" json:"expect_sw,omitempty"`
	SaveAs   string   `mapstructure:"save_as" json:"save_as,omitempty"`

	// dialog
	Fields []Field `mapstructure:"fields" json:"fields,omitempty"`

	// script
	Script string `mapstructure:"script" json:"script,omitempty"`

	// confirmation
	Message string `mapstructure:"message" json:"message,omitempty"`
}

// Hooks are the extension points around installation.
type Hooks struct {
	PreInstall  *Hook `mapstructure:"pre_install" json:"pre_install,omitempty"`
	PostInstall *Hook `mapstructure:"post_install" json:"post_install,omitempty"`
}

// Hook is a tagged variant: noop, a single APDU template, or a named native
// callback registered by the host.
type Hook struct {
	Type HookType `mapstructure:"type" json:"type"`
	APDU string   `mapstructure:"apdu" json:"apdu,omitempty"`
	Name string   `mapstructure:"name" json:"name,omitempty"`
}

// FindWorkflow returns the workflow with the given id.
func (p *Plugin) FindWorkflow(id string) (*Workflow, bool) {
	for i := range p.Workflows {
		if p.Workflows[i].ID == id {
			return &p.Workflows[i], true
		}
	}
	return nil, false
}

// FindStateReader returns the state reader with the given id.
func (p *Plugin) FindStateReader(id string) (*StateReader, bool) {
	if p.ManagementUI == nil {
		return nil, false
	}
	for i := range p.ManagementUI.StateReaders {
		if p.ManagementUI.StateReaders[i].ID == id {
			return &p.ManagementUI.StateReaders[i], true
		}
	}
	return nil, false
}
