package compiler

import (
	"fmt"

	"github.com/wudi/microphp/ast"
	"github.com/wudi/microphp/opcodes"
)

var assignOps = map[string]opcodes.Opcode{
	"+=": opcodes.ASSIGN_ADD, "-=": opcodes.ASSIGN_SUB,
	"*=": opcodes.ASSIGN_MUL, "/=": opcodes.ASSIGN_DIV, "%=": opcodes.ASSIGN_MOD,
}

var binOpForAssign = map[string]opcodes.Opcode{
	"+=": opcodes.ADD, "-=": opcodes.SUB, "*=": opcodes.MUL, "/=": opcodes.DIV, "%=": opcodes.MOD,
}

func (fc *funcCompiler) compileAssign(e *ast.AssignExpr) error {
	switch target := e.Target.(type) {
	case *ast.Identifier:
		return fc.compileIdentAssign(target.Name, e.Op, e.Value)
	case *ast.IndexExpr:
		return fc.compileIndexAssign(target, e.Op, e.Value)
	default:
		return fmt.Errorf("compiler: unsupported assignment target %T", e.Target)
	}
}

// compileIdentAssign handles `x = v` and `x += v` etc. for a plain
// variable, local or global. The result left on the stack is always
// the assigned value, since assignment is itself an expression.
func (fc *funcCompiler) compileIdentAssign(name, op string, value ast.Node) error {
	if slot, ok := fc.scope.lookup(name); ok {
		if op == "=" {
			if err := fc.compileExpr(value); err != nil {
				return err
			}
			fc.emit(opcodes.DUP, 0, 0)
			fc.emit(opcodes.SET_LOCAL, uint16(slot), 0)
			return nil
		}
		opc, ok := assignOps[op]
		if !ok {
			return fmt.Errorf("compiler: unsupported assignment operator %q", op)
		}
		if err := fc.compileExpr(value); err != nil {
			return err
		}
		fc.emit(opc, uint16(slot), 0)
		fc.emit(opcodes.GET_LOCAL, uint16(slot), 0)
		return nil
	}

	slot, err := fc.c.globalSlot(name)
	if err != nil {
		return err
	}
	if op == "=" {
		if err := fc.compileExpr(value); err != nil {
			return err
		}
		fc.emit(opcodes.DUP, 0, 0)
		fc.emit(opcodes.SET_GLOBAL, uint16(slot), 0)
		return nil
	}
	binOp, ok := binOpForAssign[op]
	if !ok {
		return fmt.Errorf("compiler: unsupported assignment operator %q", op)
	}
	fc.emit(opcodes.GET_GLOBAL, uint16(slot), 0)
	if err := fc.compileExpr(value); err != nil {
		return err
	}
	fc.emit(binOp, 0, 0)
	fc.emit(opcodes.DUP, 0, 0)
	fc.emit(opcodes.SET_GLOBAL, uint16(slot), 0)
	return nil
}

// compileIndexAssign handles `a[i] = v` and `a[i] += v`. Array values
// are copy-on-read (GET_LOCAL/GET_GLOBAL deep-copy), so the sequence
// loads the array, mutates the copy in place via ARRAY_SET, then
// writes the mutated copy back to the owning slot — a read-modify-write
// of the whole array value rather than an in-place slot mutation.
// Two scratch temp slots hold the index and the result across that
// sequence so the stack ordering ARRAY_GET/ARRAY_SET expect is never
// disturbed by re-evaluating either sub-expression.
func (fc *funcCompiler) compileIndexAssign(target *ast.IndexExpr, op string, value ast.Node) error {
	ident, ok := target.Target.(*ast.Identifier)
	if !ok {
		return fmt.Errorf("compiler: array assignment target must be a variable")
	}
	local, isLocal := fc.scope.lookup(ident.Name)
	var global int
	if !isLocal {
		var err error
		global, err = fc.c.globalSlot(ident.Name)
		if err != nil {
			return err
		}
	}
	getArr := func() { fc.emitGetVar(isLocal, local, global) }
	setArr := func() { fc.emitSetVar(isLocal, local, global) }

	tempIdx := fc.scope.allocTemp()
	defer fc.scope.freeTempSlot(tempIdx)

	if err := fc.compileExpr(target.Index); err != nil {
		return err
	}
	fc.emit(opcodes.SET_LOCAL, uint16(tempIdx), 0)

	if op == "=" {
		tempVal := fc.scope.allocTemp()
		defer fc.scope.freeTempSlot(tempVal)

		if err := fc.compileExpr(value); err != nil {
			return err
		}
		fc.emit(opcodes.SET_LOCAL, uint16(tempVal), 0)

		getArr()
		fc.emit(opcodes.GET_LOCAL, uint16(tempIdx), 0)
		fc.emit(opcodes.GET_LOCAL, uint16(tempVal), 0)
		fc.emit(opcodes.ARRAY_SET, 0, 0)
		setArr()
		fc.emit(opcodes.GET_LOCAL, uint16(tempVal), 0)
		return nil
	}

	binOp, ok := binOpForAssign[op]
	if !ok {
		return fmt.Errorf("compiler: unsupported assignment operator %q", op)
	}

	tempVal := fc.scope.allocTemp()
	defer fc.scope.freeTempSlot(tempVal)

	getArr()
	fc.emit(opcodes.GET_LOCAL, uint16(tempIdx), 0)
	fc.emit(opcodes.ARRAY_GET, 0, 0)
	if err := fc.compileExpr(value); err != nil {
		return err
	}
	fc.emit(binOp, 0, 0)
	fc.emit(opcodes.SET_LOCAL, uint16(tempVal), 0)

	getArr()
	fc.emit(opcodes.GET_LOCAL, uint16(tempIdx), 0)
	fc.emit(opcodes.GET_LOCAL, uint16(tempVal), 0)
	fc.emit(opcodes.ARRAY_SET, 0, 0)
	setArr()
	fc.emit(opcodes.GET_LOCAL, uint16(tempVal), 0)
	return nil
}

func (fc *funcCompiler) emitGetVar(isLocal bool, local, global int) {
	if isLocal {
		fc.emit(opcodes.GET_LOCAL, uint16(local), 0)
		return
	}
	fc.emit(opcodes.GET_GLOBAL, uint16(global), 0)
}

func (fc *funcCompiler) emitSetVar(isLocal bool, local, global int) {
	if isLocal {
		fc.emit(opcodes.SET_LOCAL, uint16(local), 0)
		return
	}
	fc.emit(opcodes.SET_GLOBAL, uint16(global), 0)
}
