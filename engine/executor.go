package engine

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/arlen/scriptpage/render"
)

// SurfaceBinding is the name of the single formal parameter a fragment
// is compiled with; scripts reach every capability through it
// (sp.page(...), sp.table(...), ...). The completion and decoration
// components agree on this name.
const SurfaceBinding = "sp"

// Executor compiles script fragments into callable units parameterized
// by the capability surface and invokes them on the runtime worker.
// It keeps no state across calls.
type Executor struct {
	worker *JSWorker
}

// NewExecutor creates an Executor on the given worker.
func NewExecutor(worker *JSWorker) *Executor {
	return &Executor{worker: worker}
}

// wrap turns a fragment into a one-parameter function body.
func wrap(source string) string {
	return "(function(" + SurfaceBinding + "){\n" + source + "\n})"
}

// Execute compiles and runs a fragment with the surface bound as the
// sole argument. Any compilation or runtime failure is rendered as a
// single error block inside the surface's container and returned for
// logging; it is never propagated beyond the caller. The fragment's
// top-level statements run to completion before Execute returns; any
// asynchronous continuation the fragment starts is not awaited.
func (ex *Executor) Execute(name, source string, surface *Surface) error {
	program, err := goja.Compile(name, wrap(source), false)
	if err != nil {
		renderError(surface.Container(), err.Error())
		return err
	}

	members := surface.Members()

	_, err = ex.worker.Do(func(rt *goja.Runtime) interface{} {
		val, err := rt.RunProgram(program)
		if err != nil {
			panic(err)
		}
		fn, ok := goja.AssertFunction(val)
		if !ok {
			panic(fmt.Errorf("compiled fragment is not callable"))
		}
		if _, err := fn(goja.Undefined(), rt.ToValue(members)); err != nil {
			panic(err)
		}
		return nil
	})
	if err != nil {
		renderError(surface.Container(), err.Error())
		return err
	}
	return nil
}

// Check compiles a fragment without running it, for editor
// diagnostics. Compilation happens on the worker goroutine, serialized
// with executions like every other runtime touch.
func (ex *Executor) Check(name, source string) error {
	result, err := ex.worker.Do(func(*goja.Runtime) interface{} {
		if _, err := goja.Compile(name, wrap(source), false); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	if compileErr, ok := result.(error); ok {
		return compileErr
	}
	return nil
}

// renderError mounts the single error block for a failed execution.
func renderError(target *render.Element, message string) {
	if target == nil {
		return
	}
	target.AppendChild(
		render.NewElement("div").
			AddClass("scriptpage-error").
			SetAttr("style", "color: red").
			SetText(message),
	)
}
