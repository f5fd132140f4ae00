// Package scripting lets callers customize text recoloring with a
// user-supplied JavaScript rule. The script must evaluate to a
// function taking the fill components (r, g, b in 0..1) and returning
// either a replacement [r, g, b] array or null to keep the original.
package scripting

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/MayankSingamreddy/PrettyPapers/content"
)

type Engine struct {
	vm *goja.Runtime
}

func NewEngine() *Engine {
	return &Engine{vm: goja.New()}
}

// Execute runs a script with context cancellation support. The VM is
// interrupted when ctx ends and stays usable afterwards.
func (e *Engine) Execute(ctx context.Context, script string) (goja.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := e.vm.RunString(script)
	if err != nil {
		if interrupted, ok := err.(*goja.InterruptedError); ok {
			if cause := interrupted.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val, nil
}

// RecolorRule compiles the script into a content.Rule. Script errors
// during evaluation fail compilation; errors thrown later, while the
// rule runs, keep the span's original color.
func (e *Engine) RecolorRule(ctx context.Context, script string) (content.Rule, error) {
	val, err := e.Execute(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("recolor script: %w", err)
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return nil, fmt.Errorf("recolor script must evaluate to a function")
	}
	return func(c content.Color) content.Color {
		res, err := fn(goja.Undefined(),
			e.vm.ToValue(c.R), e.vm.ToValue(c.G), e.vm.ToValue(c.B))
		if err != nil || res == nil || goja.IsNull(res) || goja.IsUndefined(res) {
			return c
		}
		out, ok := exportColor(res)
		if !ok {
			return c
		}
		return out
	}, nil
}

func exportColor(val goja.Value) (content.Color, bool) {
	arr, ok := val.Export().([]interface{})
	if !ok || len(arr) != 3 {
		return content.Color{}, false
	}
	comps := make([]float64, 3)
	for i, item := range arr {
		switch v := item.(type) {
		case float64:
			comps[i] = v
		case int64:
			comps[i] = float64(v)
		default:
			return content.Color{}, false
		}
		comps[i] = clampUnit(comps[i])
	}
	return content.Color{R: comps[0], G: comps[1], B: comps[2]}, true
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
