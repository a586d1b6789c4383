// Package workflow executes the dependency-graphed step sequences of a
// plugin definition against one card session.
//
// Execution is a single-threaded sequential driver, not real parallelism:
// steps share one physical card connection, so among the steps whose
// dependencies have completed, declaration order decides. The engine itself
// never retries a failed transmission; the only automatic continuation is
// the session's single GET RESPONSE for 61XX.
package workflow

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gregLibert/cardflow/pkg/card"
	"github.com/gregLibert/cardflow/pkg/hexutil"
	"github.com/gregLibert/cardflow/pkg/iso7816"
	"github.com/gregLibert/cardflow/pkg/schema"
	"github.com/gregLibert/cardflow/pkg/template"
)

// UI is the collaborator that owns every prompt. Dialog and confirmation
// steps block synchronously on it; suspension inside the engine happens
// nowhere else.
type UI interface {
	PromptDialog(fields []schema.Field) (map[string]string, error)
	Confirm(message string) (bool, error)
}

// Script is the opaque external script capability. The engine grants it
// get/set access to the run context and nothing more.
type Script interface {
	Run(script string, ctx *Context) error
}

// NativeHook is a host-registered callback bound to a native hook variant.
type NativeHook func(ctx *Context) error

// ProgressFunc receives human-readable progress: a message and a completion
// percentage in [0,100].
type ProgressFunc func(message string, percent int)

// Result is the outcome of one workflow or action run. Partial progress is
// never reported as success.
type Result struct {
	Success    bool
	Message    string
	FailedStep string
}

// Config wires the engine's collaborators. UI and Script may be nil when no
// definition uses the corresponding step kinds; hitting such a step then
// fails the run.
type Config struct {
	UI       UI
	Script   Script
	Progress ProgressFunc
	Hooks    map[string]NativeHook
}

// Engine runs workflows. It holds no per-run state; a single engine serves
// any number of sequential runs.
type Engine struct {
	ui       UI
	script   Script
	progress ProgressFunc
	hooks    map[string]NativeHook
	log      *logrus.Entry
}

// NewEngine creates an engine from the given collaborator set.
func NewEngine(cfg Config) *Engine {
	progress := cfg.Progress
	if progress == nil {
		progress = func(string, int) {}
	}
	return &Engine{
		ui:       cfg.UI,
		script:   cfg.Script,
		progress: progress,
		hooks:    cfg.Hooks,
		log:      logrus.WithField("component", "workflow"),
	}
}

// Run executes a workflow on the session. The session is closed when Run
// returns, on success and on every failure path alike.
func (e *Engine) Run(wf *schema.Workflow, session *card.Session, initial map[string]string) *Result {
	defer session.Close()

	runID := uuid.NewString()
	log := e.log.WithFields(logrus.Fields{"workflow": wf.ID, "run_id": runID})
	log.WithField("steps", len(wf.Steps)).Info("workflow started")

	ctx := NewContext(session, initial)
	done := make(map[string]bool, len(wf.Steps))
	total := len(wf.Steps)

	for len(done) < total {
		step := nextReady(wf.Steps, done)
		if step == nil {
			// Unreachable with a validated definition; dependency cycles
			// are rejected before execution.
			return &Result{Success: false, Message: "no runnable step left, dependency graph is stuck"}
		}

		e.progress(fmt.Sprintf("Running %s", step.ID), len(done)*100/total)
		log.WithFields(logrus.Fields{"step": step.ID, "type": string(step.Type)}).Debug("step started")

		if err := e.runStep(step, ctx); err != nil {
			stepErr := &StepError{Step: step.ID, Err: err}
			log.WithField("step", step.ID).WithError(err).Warn("workflow aborted")
			return &Result{
				Success:    false,
				Message:    stepErr.Error(),
				FailedStep: step.ID,
			}
		}

		done[step.ID] = true
	}

	e.progress("Done", 100)
	log.Info("workflow completed")
	return &Result{Success: true, Message: fmt.Sprintf("workflow %s completed", wf.ID)}
}

// nextReady returns the first not-yet-run step, in declaration order, whose
// dependencies have all completed successfully.
func nextReady(steps []schema.Step, done map[string]bool) *schema.Step {
	for i := range steps {
		step := &steps[i]
		if done[step.ID] {
			continue
		}
		ready := true
		for _, dep := range step.DependsOn {
			if !done[dep] {
				ready = false
				break
			}
		}
		if ready {
			return step
		}
	}
	return nil
}

func (e *Engine) runStep(step *schema.Step, ctx *Context) error {
	switch step.Type {
	case schema.StepAPDU:
		return e.runAPDU(step, ctx)
	case schema.StepDialog:
		return e.runDialog(step, ctx)
	case schema.StepScript:
		return e.runScript(step, ctx)
	case schema.StepConfirmation:
		return e.runConfirmation(step, ctx)
	default:
		return fmt.Errorf("unknown step type %q", step.Type)
	}
}

func (e *Engine) runAPDU(step *schema.Step, ctx *Context) error {
	raw, err := template.ResolveBytes(step.APDU, ctx.Values())
	if err != nil {
		return err
	}

	resp, err := ctx.Session().Transmit(raw)
	if err != nil {
		return err
	}

	allowed, err := allowList(step.ExpectSW)
	if err != nil {
		return err
	}
	if !allowed[resp.Status] {
		return fmt.Errorf("unexpected status %s: %s", resp.Status.Hex(), resp.Status.Verbose())
	}

	key := step.SaveAs
	if key == "" {
		key = step.ID + "_response"
	}
	ctx.Set(key, hexutil.String(resp.Data))
	return nil
}

// allowList builds the accepted status set of an apdu step, defaulting to
// {9000}.
func allowList(expect []string) (map[iso7816.StatusWord]bool, error) {
	allowed := make(map[iso7816.StatusWord]bool, len(expect)+1)
	if len(expect) == 0 {
		allowed[iso7816.SW_NO_ERROR] = true
		return allowed, nil
	}
	for _, s := range expect {
		sw, err := iso7816.ParseStatusWord(s)
		if err != nil {
			return nil, err
		}
		allowed[sw] = true
	}
	return allowed, nil
}

func (e *Engine) runDialog(step *schema.Step, ctx *Context) error {
	if e.ui == nil {
		return fmt.Errorf("dialog step without a UI capability")
	}
	values, err := e.ui.PromptDialog(step.Fields)
	if err != nil {
		return err
	}
	ctx.Merge(values)
	return nil
}

func (e *Engine) runScript(step *schema.Step, ctx *Context) error {
	if e.script == nil {
		return fmt.Errorf("script step without a script capability")
	}
	if err := e.script.Run(step.Script, ctx); err != nil {
		return &ScriptError{Script: step.Script, Err: err}
	}
	return nil
}

func (e *Engine) runConfirmation(step *schema.Step, ctx *Context) error {
	if e.ui == nil {
		return fmt.Errorf("confirmation step without a UI capability")
	}
	ok, err := e.ui.Confirm(step.Message)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("declined by user, remaining steps cancelled")
	}
	return nil
}
