// Package vm implements the microphp stack virtual machine: the
// evaluation stack, locals/globals, instruction dispatch, and the
// call/return protocol described in §3 and §4.2.
package vm

import (
	"github.com/wudi/microphp/internal/bytecode"
	"github.com/wudi/microphp/runtime"
	"github.com/wudi/microphp/values"
)

const (
	initialStackSize = 1024
	globalCount      = 256
)

// frame is the per-call bookkeeping §3 calls a Frame: the caller's
// locals, return function index and return program counter.
type frame struct {
	savedLocals []values.Value
	returnFn    int
	returnPC    int
}

// Context is the VM Context of §3: a loaded module, the evaluation
// stack, the current frame's locals, the 256-slot globals array, a
// program counter, a running flag and a last-error string. Context
// ownership of the module runs from Load to Destroy.
type Context struct {
	module *bytecode.Module

	stack []values.Value

	locals  []values.Value
	globals []values.Value

	fnIndex int
	pc      int

	frames []frame

	running   bool
	lastError string

	registry *runtime.Registry
}

// NewContext creates an unloaded VM context bound to the given built-in
// registry (print/sleep_ms/millis plus any host-registered built-ins).
func NewContext(registry *runtime.Registry) *Context {
	ctx := &Context{
		stack:    make([]values.Value, 0, initialStackSize),
		globals:  make([]values.Value, globalCount),
		registry: registry,
	}
	for i := range ctx.globals {
		ctx.globals[i] = values.Null()
	}
	return ctx
}

// Load validates and installs a bytecode module (§6). On any framing
// error the context remains unloaded and Load returns the *bytecode.LoadError.
func (ctx *Context) Load(data []byte) error {
	m, err := bytecode.Decode(data)
	if err != nil {
		return err
	}
	ctx.destroyModule()
	ctx.module = m
	return nil
}

func (ctx *Context) destroyModule() {
	if ctx.module == nil {
		return
	}
	for i := range ctx.module.Constants {
		ctx.module.Constants[i].Destroy()
	}
	ctx.module = nil
}

// LastError returns the most recent runtime error message, or "" if none.
func (ctx *Context) LastError() string { return ctx.lastError }

// ClearError resets the last-error slot.
func (ctx *Context) ClearError() { ctx.lastError = "" }

// Reset clears the stack, locals, globals and last error but keeps the
// loaded module, so a host can re-run the same module without reloading
// it (per original_source/core/vm.c's microphp_vm_reset).
func (ctx *Context) Reset() {
	for i := range ctx.stack {
		ctx.stack[i].Destroy()
	}
	ctx.stack = ctx.stack[:0]
	for i := range ctx.locals {
		ctx.locals[i].Destroy()
	}
	ctx.locals = nil
	for i := range ctx.globals {
		ctx.globals[i].Destroy()
		ctx.globals[i] = values.Null()
	}
	ctx.frames = nil
	ctx.fnIndex = 0
	ctx.pc = 0
	ctx.running = false
	ctx.lastError = ""
}

// Destroy releases everything the context owns: module, stack, locals,
// globals. The context must not be used afterward.
func (ctx *Context) Destroy() {
	ctx.Reset()
	ctx.destroyModule()
}

// RegisterBuiltin plugs a host function into the shared registry; see
// runtime.Registry.Register.
func (ctx *Context) RegisterBuiltin(name string, fn runtime.Builtin) error {
	return ctx.registry.Register(name, fn)
}

// Run executes from the module's main_offset function until RETURN
// unwinds the top frame, an opcode fails, or the running flag is cleared
// externally (cooperative cancellation, §5).
func (ctx *Context) Run() error {
	if ctx.module == nil {
		return newError(ErrNoModuleLoaded, "no module loaded")
	}
	if int(ctx.module.MainOffset) >= len(ctx.module.Functions) {
		return newError(ErrUnknownFunction, "invalid main_offset")
	}
	ctx.fnIndex = int(ctx.module.MainOffset)
	fn := &ctx.module.Functions[ctx.fnIndex]
	ctx.locals = freshLocals(int(fn.LocalCount))
	ctx.pc = 0
	ctx.running = true
	ctx.lastError = ""

	for ctx.running {
		fn := &ctx.module.Functions[ctx.fnIndex]
		if ctx.pc < 0 || ctx.pc >= len(fn.Code) {
			return ctx.fail(newError(ErrUnknownOpcode, "program counter out of range"))
		}
		inst := fn.Code[ctx.pc]
		if err := ctx.execute(inst); err != nil {
			return ctx.fail(err)
		}
		if !ctx.running && ctx.lastError != "" {
			return &RuntimeError{Kind: ErrCancelled, Message: ctx.lastError}
		}
	}
	return nil
}

// Cancel clears the running flag; the in-flight instruction completes
// and the dispatch loop unwinds with a typed "cancelled" error.
func (ctx *Context) Cancel() {
	if ctx.running {
		ctx.running = false
		ctx.lastError = newError(ErrCancelled, "execution cancelled").Error()
	}
}

func (ctx *Context) fail(err error) error {
	ctx.running = false
	ctx.lastError = err.Error()
	return err
}

func freshLocals(n int) []values.Value {
	l := make([]values.Value, n)
	for i := range l {
		l[i] = values.Null()
	}
	return l
}
