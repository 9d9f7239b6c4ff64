package vm

import (
	"github.com/wudi/microphp/internal/bytecode"
	"github.com/wudi/microphp/opcodes"
	"github.com/wudi/microphp/values"
)

// execute dispatches one instruction. It returns a *RuntimeError for any
// failure; the caller (Run) stops the loop and surfaces it. A straight
// switch on opcode, as §4.2 specifies.
func (ctx *Context) execute(inst opcodes.Instruction) error {
	switch inst.Op {
	case opcodes.NOP:
		ctx.pc++

	case opcodes.CONST:
		k := int(inst.Op1)
		if k < 0 || k >= len(ctx.module.Constants) {
			return newError(ErrIndexOutOfBounds, "constant index %d out of range", k)
		}
		ctx.push(ctx.module.Constants[k].Copy())
		ctx.pc++

	case opcodes.ADD, opcodes.SUB, opcodes.MUL, opcodes.DIV, opcodes.MOD:
		if err := ctx.binArith(opFor(inst.Op)); err != nil {
			return err
		}
		ctx.pc++

	case opcodes.ASSIGN_ADD, opcodes.ASSIGN_SUB, opcodes.ASSIGN_MUL, opcodes.ASSIGN_DIV, opcodes.ASSIGN_MOD:
		if err := ctx.assignOp(int(inst.Op1), assignOpFor(inst.Op)); err != nil {
			return err
		}
		ctx.pc++

	case opcodes.INC, opcodes.DEC:
		if err := ctx.incDecLocal(int(inst.Op1), inst.Op == opcodes.INC); err != nil {
			return err
		}
		ctx.pc++

	case opcodes.EQ, opcodes.NEQ:
		b, a, err := ctx.pop2()
		if err != nil {
			return err
		}
		eq := a.Equal(b)
		a.Destroy()
		b.Destroy()
		if inst.Op == opcodes.NEQ {
			eq = !eq
		}
		ctx.push(values.Bool(eq))
		ctx.pc++

	case opcodes.LT, opcodes.LTE, opcodes.GT, opcodes.GTE:
		if err := ctx.relational(inst.Op); err != nil {
			return err
		}
		ctx.pc++

	case opcodes.AND, opcodes.OR:
		b, a, err := ctx.pop2()
		if err != nil {
			return err
		}
		var r bool
		if inst.Op == opcodes.AND {
			r = a.Truthy() && b.Truthy()
		} else {
			r = a.Truthy() || b.Truthy()
		}
		a.Destroy()
		b.Destroy()
		ctx.push(values.Bool(r))
		ctx.pc++

	case opcodes.NOT:
		a, err := ctx.pop()
		if err != nil {
			return err
		}
		r := !a.Truthy()
		a.Destroy()
		ctx.push(values.Bool(r))
		ctx.pc++

	case opcodes.JMP:
		ctx.pc = int(inst.Op1)

	case opcodes.JMPZ, opcodes.JMPNZ:
		a, err := ctx.pop()
		if err != nil {
			return err
		}
		truthy := a.Truthy()
		a.Destroy()
		branch := (inst.Op == opcodes.JMPZ && !truthy) || (inst.Op == opcodes.JMPNZ && truthy)
		if branch {
			ctx.pc = int(inst.Op1)
		} else {
			ctx.pc++
		}

	case opcodes.CALL:
		if err := ctx.call(int(inst.Op1), int(inst.Op2)); err != nil {
			return err
		}

	case opcodes.RETURN:
		ctx.doReturn()

	case opcodes.POP:
		v, err := ctx.pop()
		if err != nil {
			return err
		}
		v.Destroy()
		ctx.pc++

	case opcodes.DUP:
		if len(ctx.stack) == 0 {
			return newError(ErrStackUnderflow, "DUP on empty stack")
		}
		ctx.push(ctx.stack[len(ctx.stack)-1].Copy())
		ctx.pc++

	case opcodes.SWAP:
		n := len(ctx.stack)
		if n < 2 {
			return newError(ErrStackUnderflow, "SWAP needs 2 stack values")
		}
		ctx.stack[n-1], ctx.stack[n-2] = ctx.stack[n-2], ctx.stack[n-1]
		ctx.pc++

	case opcodes.GET_LOCAL:
		s := int(inst.Op1)
		if s < 0 || s >= len(ctx.locals) {
			return newError(ErrIndexOutOfBounds, "local slot %d out of range", s)
		}
		ctx.push(ctx.locals[s].Copy())
		ctx.pc++

	case opcodes.SET_LOCAL:
		s := int(inst.Op1)
		if s < 0 || s >= len(ctx.locals) {
			return newError(ErrIndexOutOfBounds, "local slot %d out of range", s)
		}
		v, err := ctx.pop()
		if err != nil {
			return err
		}
		ctx.locals[s].Destroy()
		ctx.locals[s] = v
		ctx.pc++

	case opcodes.GET_GLOBAL:
		g := int(inst.Op1)
		if g < 0 || g >= len(ctx.globals) {
			return newError(ErrIndexOutOfBounds, "global slot %d out of range", g)
		}
		ctx.push(ctx.globals[g].Copy())
		ctx.pc++

	case opcodes.SET_GLOBAL:
		g := int(inst.Op1)
		if g < 0 || g >= len(ctx.globals) {
			return newError(ErrIndexOutOfBounds, "global slot %d out of range", g)
		}
		v, err := ctx.pop()
		if err != nil {
			return err
		}
		ctx.globals[g].Destroy()
		ctx.globals[g] = v
		ctx.pc++

	case opcodes.NEW_ARRAY:
		ctx.push(values.NewArray(int(inst.Op1)))
		ctx.pc++

	case opcodes.ARRAY_GET:
		if err := ctx.arrayGet(); err != nil {
			return err
		}
		ctx.pc++

	case opcodes.ARRAY_SET:
		if err := ctx.arraySet(); err != nil {
			return err
		}
		ctx.pc++

	case opcodes.STRING_CONCAT:
		b, a, err := ctx.pop2()
		if err != nil {
			return err
		}
		r := values.Concat(a, b)
		a.Destroy()
		b.Destroy()
		ctx.push(r)
		ctx.pc++

	case opcodes.CAST_INT, opcodes.CAST_FLOAT, opcodes.CAST_STRING, opcodes.CAST_BOOL:
		a, err := ctx.pop()
		if err != nil {
			return err
		}
		ctx.push(castFor(inst.Op, a))
		a.Destroy()
		ctx.pc++

	default:
		return newError(ErrUnknownOpcode, "unknown opcode %d", inst.Op)
	}
	return nil
}

func (ctx *Context) push(v values.Value) {
	ctx.stack = append(ctx.stack, v)
}

func (ctx *Context) pop() (values.Value, error) {
	n := len(ctx.stack)
	if n == 0 {
		return values.Null(), newError(ErrStackUnderflow, "pop on empty stack")
	}
	v := ctx.stack[n-1]
	ctx.stack = ctx.stack[:n-1]
	return v, nil
}

// pop2 pops b then a (b was pushed last) and returns (b, a, err) so
// callers read `b, a, err := ctx.pop2()` matching "pop b, pop a" in §4.2.
func (ctx *Context) pop2() (values.Value, values.Value, error) {
	b, err := ctx.pop()
	if err != nil {
		return values.Null(), values.Null(), err
	}
	a, err := ctx.pop()
	if err != nil {
		b.Destroy()
		return values.Null(), values.Null(), err
	}
	return b, a, nil
}

func opFor(op opcodes.Opcode) values.ArithOp {
	switch op {
	case opcodes.ADD:
		return values.OpAdd
	case opcodes.SUB:
		return values.OpSub
	case opcodes.MUL:
		return values.OpMul
	case opcodes.DIV:
		return values.OpDiv
	default:
		return values.OpMod
	}
}

func assignOpFor(op opcodes.Opcode) values.ArithOp {
	switch op {
	case opcodes.ASSIGN_ADD:
		return values.OpAdd
	case opcodes.ASSIGN_SUB:
		return values.OpSub
	case opcodes.ASSIGN_MUL:
		return values.OpMul
	case opcodes.ASSIGN_DIV:
		return values.OpDiv
	default:
		return values.OpMod
	}
}

func (ctx *Context) binArith(op values.ArithOp) error {
	b, a, err := ctx.pop2()
	if err != nil {
		return err
	}
	r, err := values.Arith(op, a, b)
	a.Destroy()
	b.Destroy()
	if err != nil {
		return arithError(err)
	}
	ctx.push(r)
	return nil
}

func arithError(err error) error {
	if err == values.ErrDivByZero {
		return newError(ErrDivByZero, "division by zero")
	}
	return newError(ErrTypeError, "%s", err.Error())
}

func (ctx *Context) assignOp(slot int, op values.ArithOp) error {
	if slot < 0 || slot >= len(ctx.locals) {
		return newError(ErrIndexOutOfBounds, "local slot %d out of range", slot)
	}
	v, err := ctx.pop()
	if err != nil {
		return err
	}
	r, err := values.Arith(op, ctx.locals[slot], v)
	v.Destroy()
	if err != nil {
		return arithError(err)
	}
	ctx.locals[slot].Destroy()
	ctx.locals[slot] = r
	return nil
}

func (ctx *Context) incDecLocal(slot int, inc bool) error {
	if slot < 0 || slot >= len(ctx.locals) {
		return newError(ErrIndexOutOfBounds, "local slot %d out of range", slot)
	}
	delta := values.Int(1)
	op := values.OpAdd
	if !inc {
		op = values.OpSub
	}
	r, err := values.Arith(op, ctx.locals[slot], delta)
	if err != nil {
		return arithError(err)
	}
	ctx.locals[slot].Destroy()
	ctx.locals[slot] = r
	return nil
}

func (ctx *Context) relational(op opcodes.Opcode) error {
	b, a, err := ctx.pop2()
	if err != nil {
		return err
	}
	cmp, err := values.Compare(a, b)
	a.Destroy()
	b.Destroy()
	if err != nil {
		return arithError(err)
	}
	var r bool
	switch op {
	case opcodes.LT:
		r = cmp < 0
	case opcodes.LTE:
		r = cmp <= 0
	case opcodes.GT:
		r = cmp > 0
	case opcodes.GTE:
		r = cmp >= 0
	}
	ctx.push(values.Bool(r))
	return nil
}

func (ctx *Context) arrayGet() error {
	idx, arr, err := ctx.pop2()
	if err != nil {
		return err
	}
	defer idx.Destroy()
	if arr.Type != values.TypeArray {
		arr.Destroy()
		return newError(ErrTypeError, "ARRAY_GET on non-array value")
	}
	if idx.Type != values.TypeInt {
		arr.Destroy()
		return newError(ErrTypeError, "array index must be an integer")
	}
	v, err := arr.ArrayGet(int(idx.AsInt()))
	arr.Destroy()
	if err != nil {
		return newError(ErrIndexOutOfBounds, "%s", err.Error())
	}
	ctx.push(v)
	return nil
}

func (ctx *Context) arraySet() error {
	val, err := ctx.pop()
	if err != nil {
		return err
	}
	idx, err := ctx.pop()
	if err != nil {
		val.Destroy()
		return err
	}
	n := len(ctx.stack)
	if n == 0 {
		idx.Destroy()
		val.Destroy()
		return newError(ErrStackUnderflow, "ARRAY_SET needs an array on the stack")
	}
	arr := &ctx.stack[n-1]
	if arr.Type != values.TypeArray {
		idx.Destroy()
		val.Destroy()
		return newError(ErrTypeError, "ARRAY_SET on non-array value")
	}
	if idx.Type != values.TypeInt {
		idx.Destroy()
		val.Destroy()
		return newError(ErrTypeError, "array index must be an integer")
	}
	if err := arr.ArraySet(int(idx.AsInt()), val); err != nil {
		idx.Destroy()
		val.Destroy()
		return newError(ErrIndexOutOfBounds, "%s", err.Error())
	}
	idx.Destroy()
	val.Destroy()
	return nil
}

func castFor(op opcodes.Opcode, v values.Value) values.Value {
	switch op {
	case opcodes.CAST_INT:
		return values.CastInt(v)
	case opcodes.CAST_FLOAT:
		return values.CastFloat(v)
	case opcodes.CAST_STRING:
		return values.CastString(v)
	default:
		return values.CastBool(v)
	}
}

// call resolves nameIdx through the constant pool: first against user
// functions (by name), then against the host built-in registry.
// Resolving this way — rather than a raw function-table index — is what
// lets CALL dispatch uniformly to either callee kind through one opcode,
// per §4.5; see DESIGN.md for this Open Question's resolution.
func (ctx *Context) call(nameIdx, argc int) error {
	if nameIdx < 0 || nameIdx >= len(ctx.module.Constants) {
		return newError(ErrIndexOutOfBounds, "call name constant %d out of range", nameIdx)
	}
	nameVal := ctx.module.Constants[nameIdx]
	if nameVal.Type != values.TypeString {
		return newError(ErrTypeError, "CALL name constant is not a string")
	}
	name := nameVal.AsGoString()

	if len(ctx.stack) < argc {
		return newError(ErrStackUnderflow, "CALL %s needs %d arguments", name, argc)
	}
	args := make([]values.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, err := ctx.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}

	if fnIdx, fn := ctx.findFunction(name); fn != nil {
		if int(fn.ParamCount) != argc {
			for _, a := range args {
				a.Destroy()
			}
			return newError(ErrArgCountMismatch, "%s expects %d arguments, got %d", name, fn.ParamCount, argc)
		}
		ctx.frames = append(ctx.frames, frame{
			savedLocals: ctx.locals,
			returnFn:    ctx.fnIndex,
			returnPC:    ctx.pc + 1,
		})
		newLocals := freshLocals(int(fn.LocalCount))
		copy(newLocals, args)
		ctx.locals = newLocals
		ctx.fnIndex = fnIdx
		ctx.pc = 0
		return nil
	}

	if builtin, ok := ctx.registry.Lookup(name); ok {
		result, err := builtin(args)
		for _, a := range args {
			a.Destroy()
		}
		if err != nil {
			return newError(ErrBuiltinFailed, "%s: %s", name, err.Error())
		}
		ctx.push(result)
		ctx.pc++
		return nil
	}

	for _, a := range args {
		a.Destroy()
	}
	return newError(ErrUnknownFunction, "call to unknown function %s", name)
}

func (ctx *Context) findFunction(name string) (int, *bytecode.Function) {
	for i := range ctx.module.Functions {
		if ctx.module.Functions[i].Name == name {
			return i, &ctx.module.Functions[i]
		}
	}
	return -1, nil
}

// doReturn tears down the current frame. With no caller frame, the
// program terminates (running goes false) rather than underflowing.
func (ctx *Context) doReturn() {
	for i := range ctx.locals {
		ctx.locals[i].Destroy()
	}
	if len(ctx.frames) == 0 {
		ctx.running = false
		return
	}
	top := ctx.frames[len(ctx.frames)-1]
	ctx.frames = ctx.frames[:len(ctx.frames)-1]
	ctx.locals = top.savedLocals
	ctx.fnIndex = top.returnFn
	ctx.pc = top.returnPC
}
