package compiler

import (
	"fmt"

	"github.com/wudi/microphp/ast"
	"github.com/wudi/microphp/internal/bytecode"
	"github.com/wudi/microphp/opcodes"
)

// funcCompiler emits one function's instruction stream against its own
// scope; the constant pool and global table on Compiler are shared.
type funcCompiler struct {
	c     *Compiler
	scope *funcScope
	code  []opcodes.Instruction
	name  string
}

func (c *Compiler) compileFunction(name string, params []string, body []ast.Node) (bytecode.Function, error) {
	fc := &funcCompiler{c: c, scope: newFuncScope(params), name: name}
	predeclare(fc.scope, body)
	for _, stmt := range body {
		if err := fc.compileStmt(stmt); err != nil {
			return bytecode.Function{}, err
		}
	}
	// Every function falls through to an implicit `return;` so a body
	// that never explicitly returns still unwinds its frame cleanly.
	fc.emit(opcodes.CONST, uint16(fc.c.intern(nullValue)), 0)
	fc.emit(opcodes.RETURN, 0, 0)

	if fc.scope.nextSlot > bytecode.MaxLocals {
		return bytecode.Function{}, fmt.Errorf("compiler: function %q declares %d locals, exceeding the %d limit", name, fc.scope.nextSlot, bytecode.MaxLocals)
	}

	return bytecode.Function{
		Name:       name,
		Code:       fc.code,
		LocalCount: uint32(fc.scope.nextSlot),
		ParamCount: uint32(len(params)),
	}, nil
}

// emit appends an instruction and returns its index, for callers that
// need to back-patch a jump target once it's known.
func (fc *funcCompiler) emit(op opcodes.Opcode, a, b uint16) int {
	fc.code = append(fc.code, instr(op, a, b))
	return len(fc.code) - 1
}

// patchJumpTarget rewrites a previously emitted jump's target operand
// to the current end of the instruction stream.
func (fc *funcCompiler) patchJumpTarget(idx int) {
	fc.code[idx].Op1 = uint16(len(fc.code))
}

func (fc *funcCompiler) here() int { return len(fc.code) }
