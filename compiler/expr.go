package compiler

import (
	"fmt"

	"github.com/wudi/microphp/ast"
	"github.com/wudi/microphp/opcodes"
	"github.com/wudi/microphp/values"
)

func stringValue(s string) values.Value { return values.StringFromGo(s) }

// compileExpr emits code that leaves exactly one value on the
// evaluation stack: the expression's result.
func (fc *funcCompiler) compileExpr(n ast.Node) error {
	switch e := n.(type) {
	case *ast.IntLiteral:
		fc.emit(opcodes.CONST, uint16(fc.c.intern(values.Int(e.Value))), 0)
		return nil
	case *ast.FloatLiteral:
		fc.emit(opcodes.CONST, uint16(fc.c.intern(values.Float(e.Value))), 0)
		return nil
	case *ast.StringLiteral:
		fc.emit(opcodes.CONST, uint16(fc.c.intern(stringValue(e.Value))), 0)
		return nil
	case *ast.BoolLiteral:
		fc.emit(opcodes.CONST, uint16(fc.c.intern(values.Bool(e.Value))), 0)
		return nil
	case *ast.NullLiteral:
		fc.emit(opcodes.CONST, uint16(fc.c.intern(nullValue)), 0)
		return nil
	case *ast.ArrayLiteral:
		return fc.compileArrayLiteral(e)
	case *ast.Identifier:
		return fc.compileLoad(e.Name)
	case *ast.BinaryExpr:
		return fc.compileBinary(e)
	case *ast.UnaryExpr:
		return fc.compileUnary(e)
	case *ast.PostfixExpr:
		return fc.compilePostfix(e)
	case *ast.AssignExpr:
		return fc.compileAssign(e)
	case *ast.TernaryExpr:
		return fc.compileTernary(e)
	case *ast.CallExpr:
		return fc.compileCall(e)
	case *ast.IndexExpr:
		return fc.compileIndexLoad(e)
	default:
		return fmt.Errorf("compiler: unsupported expression %T", n)
	}
}

func (fc *funcCompiler) compileArrayLiteral(e *ast.ArrayLiteral) error {
	fc.emit(opcodes.NEW_ARRAY, uint16(len(e.Elements)), 0)
	for i, el := range e.Elements {
		fc.emit(opcodes.CONST, uint16(fc.c.intern(values.Int(int64(i)))), 0)
		if err := fc.compileExpr(el); err != nil {
			return err
		}
		fc.emit(opcodes.ARRAY_SET, 0, 0)
	}
	return nil
}

// compileLoad pushes an identifier's current value: a local/parameter
// slot if the current function owns that name, else a module global.
func (fc *funcCompiler) compileLoad(name string) error {
	if slot, ok := fc.scope.lookup(name); ok {
		fc.emit(opcodes.GET_LOCAL, uint16(slot), 0)
		return nil
	}
	slot, err := fc.c.globalSlot(name)
	if err != nil {
		return err
	}
	fc.emit(opcodes.GET_GLOBAL, uint16(slot), 0)
	return nil
}

var binOps = map[string]opcodes.Opcode{
	"+": opcodes.ADD, "-": opcodes.SUB, "*": opcodes.MUL, "/": opcodes.DIV, "%": opcodes.MOD,
	"==": opcodes.EQ, "!=": opcodes.NEQ,
	"<": opcodes.LT, "<=": opcodes.LTE, ">": opcodes.GT, ">=": opcodes.GTE,
	"&&": opcodes.AND, "||": opcodes.OR,
}

func (fc *funcCompiler) compileBinary(e *ast.BinaryExpr) error {
	if e.Op == "." {
		if err := fc.compileExpr(e.Left); err != nil {
			return err
		}
		if err := fc.compileExpr(e.Right); err != nil {
			return err
		}
		fc.emit(opcodes.STRING_CONCAT, 0, 0)
		return nil
	}
	op, ok := binOps[e.Op]
	if !ok {
		return fmt.Errorf("compiler: unsupported operator %q", e.Op)
	}
	if err := fc.compileExpr(e.Left); err != nil {
		return err
	}
	if err := fc.compileExpr(e.Right); err != nil {
		return err
	}
	fc.emit(op, 0, 0)
	return nil
}

func (fc *funcCompiler) compileUnary(e *ast.UnaryExpr) error {
	switch e.Op {
	case "!":
		if err := fc.compileExpr(e.Operand); err != nil {
			return err
		}
		fc.emit(opcodes.NOT, 0, 0)
		return nil
	case "-":
		// No dedicated negate opcode: lower to 0 - x.
		fc.emit(opcodes.CONST, uint16(fc.c.intern(values.Int(0))), 0)
		if err := fc.compileExpr(e.Operand); err != nil {
			return err
		}
		fc.emit(opcodes.SUB, 0, 0)
		return nil
	case "++", "--":
		return fc.compilePrefixIncDec(e)
	default:
		return fmt.Errorf("compiler: unsupported unary operator %q", e.Op)
	}
}

// compilePrefixIncDec lowers prefix ++x/--x: mutate, then load the
// updated value so the expression's result reflects the new value.
func (fc *funcCompiler) compilePrefixIncDec(e *ast.UnaryExpr) error {
	ident, ok := e.Operand.(*ast.Identifier)
	if !ok {
		return fmt.Errorf("compiler: %s operand must be a variable", e.Op)
	}
	inc := e.Op == "++"
	if slot, ok := fc.scope.lookup(ident.Name); ok {
		op := opcodes.INC
		if !inc {
			op = opcodes.DEC
		}
		fc.emit(op, uint16(slot), 0)
		fc.emit(opcodes.GET_LOCAL, uint16(slot), 0)
		return nil
	}
	slot, err := fc.c.globalSlot(ident.Name)
	if err != nil {
		return err
	}
	fc.emit(opcodes.GET_GLOBAL, uint16(slot), 0)
	fc.emit(opcodes.CONST, uint16(fc.c.intern(values.Int(1))), 0)
	if inc {
		fc.emit(opcodes.ADD, 0, 0)
	} else {
		fc.emit(opcodes.SUB, 0, 0)
	}
	fc.emit(opcodes.DUP, 0, 0)
	fc.emit(opcodes.SET_GLOBAL, uint16(slot), 0)
	return nil
}

// compilePostfix lowers x++/x--: load the old value, mutate, then
// leave the pre-mutation value as the expression's result.
func (fc *funcCompiler) compilePostfix(e *ast.PostfixExpr) error {
	ident, ok := e.Operand.(*ast.Identifier)
	if !ok {
		return fmt.Errorf("compiler: %s operand must be a variable", e.Op)
	}
	inc := e.Op == "++"
	if slot, ok := fc.scope.lookup(ident.Name); ok {
		fc.emit(opcodes.GET_LOCAL, uint16(slot), 0)
		op := opcodes.INC
		if !inc {
			op = opcodes.DEC
		}
		fc.emit(op, uint16(slot), 0)
		return nil
	}
	slot, err := fc.c.globalSlot(ident.Name)
	if err != nil {
		return err
	}
	fc.emit(opcodes.GET_GLOBAL, uint16(slot), 0)
	fc.emit(opcodes.DUP, 0, 0)
	fc.emit(opcodes.CONST, uint16(fc.c.intern(values.Int(1))), 0)
	if inc {
		fc.emit(opcodes.ADD, 0, 0)
	} else {
		fc.emit(opcodes.SUB, 0, 0)
	}
	fc.emit(opcodes.SET_GLOBAL, uint16(slot), 0)
	return nil
}

func (fc *funcCompiler) compileTernary(e *ast.TernaryExpr) error {
	if err := fc.compileExpr(e.Cond); err != nil {
		return err
	}
	jmpzIdx := fc.emit(opcodes.JMPZ, 0, 0)
	if err := fc.compileExpr(e.Then); err != nil {
		return err
	}
	jmpEndIdx := fc.emit(opcodes.JMP, 0, 0)
	fc.patchJumpTarget(jmpzIdx)
	if err := fc.compileExpr(e.Else); err != nil {
		return err
	}
	fc.patchJumpTarget(jmpEndIdx)
	return nil
}

func (fc *funcCompiler) compileCall(e *ast.CallExpr) error {
	for _, arg := range e.Args {
		if err := fc.compileExpr(arg); err != nil {
			return err
		}
	}
	nameIdx := fc.c.intern(stringValue(e.Callee))
	fc.emit(opcodes.CALL, uint16(nameIdx), uint16(len(e.Args)))
	return nil
}

func (fc *funcCompiler) compileIndexLoad(e *ast.IndexExpr) error {
	if err := fc.compileExpr(e.Target); err != nil {
		return err
	}
	if err := fc.compileExpr(e.Index); err != nil {
		return err
	}
	fc.emit(opcodes.ARRAY_GET, 0, 0)
	return nil
}
