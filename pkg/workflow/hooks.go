package workflow

import (
	"fmt"

	"github.com/gregLibert/cardflow/pkg/iso7816"
	"github.com/gregLibert/cardflow/pkg/schema"
	"github.com/gregLibert/cardflow/pkg/template"
)

// RunHook executes one installation hook against the run context. A nil
// hook and a noop hook both succeed without touching the card.
func (e *Engine) RunHook(hook *schema.Hook, ctx *Context) error {
	if hook == nil {
		return nil
	}
	switch hook.Type {
	case schema.HookNoOp:
		return nil
	case schema.HookAPDU:
		return e.runHookAPDU(hook, ctx)
	case schema.HookNative:
		fn, ok := e.hooks[hook.Name]
		if !ok {
			return fmt.Errorf("native hook %q is not registered", hook.Name)
		}
		return fn(ctx)
	default:
		return fmt.Errorf("unknown hook type %q", hook.Type)
	}
}

func (e *Engine) runHookAPDU(hook *schema.Hook, ctx *Context) error {
	raw, err := template.ResolveBytes(hook.APDU, ctx.Values())
	if err != nil {
		return err
	}
	resp, err := ctx.Session().Transmit(raw)
	if err != nil {
		return err
	}
	if resp.Status != iso7816.SW_NO_ERROR {
		return fmt.Errorf("hook rejected with status %s: %s", resp.Status.Hex(), resp.Status.Verbose())
	}
	return nil
}
