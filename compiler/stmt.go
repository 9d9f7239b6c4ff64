package compiler

import (
	"fmt"

	"github.com/wudi/microphp/ast"
	"github.com/wudi/microphp/opcodes"
)

func (fc *funcCompiler) compileStmt(n ast.Node) error {
	switch stmt := n.(type) {
	case *ast.VarDecl:
		return fc.compileVarDecl(stmt)
	case *ast.ExprStmt:
		if err := fc.compileExpr(stmt.Expr); err != nil {
			return err
		}
		fc.emit(opcodes.POP, 0, 0)
		return nil
	case *ast.EchoStmt:
		return fc.compileEcho(stmt)
	case *ast.Block:
		for _, s := range stmt.Statements {
			if err := fc.compileStmt(s); err != nil {
				return err
			}
		}
		return nil
	case *ast.IfStmt:
		return fc.compileIf(stmt)
	case *ast.WhileStmt:
		return fc.compileWhile(stmt)
	case *ast.ForStmt:
		return fc.compileFor(stmt)
	case *ast.ReturnStmt:
		return fc.compileReturn(stmt)
	default:
		return fmt.Errorf("compiler: unsupported statement %T", n)
	}
}

func (fc *funcCompiler) compileVarDecl(stmt *ast.VarDecl) error {
	slot, ok := fc.scope.lookup(stmt.Name)
	if !ok {
		// predeclare always runs first; this would indicate a bug in
		// the predeclare walk rather than a user-facing error.
		slot = fc.scope.declare(stmt.Name)
	}
	if stmt.Init != nil {
		if err := fc.compileExpr(stmt.Init); err != nil {
			return err
		}
	} else {
		fc.emit(opcodes.CONST, uint16(fc.c.intern(nullValue)), 0)
	}
	fc.emit(opcodes.SET_LOCAL, uint16(slot), 0)
	return nil
}

// compileEcho prints each argument through the shared "print" builtin
// (same runtime entry point as an explicit print(...) call) and
// discards its Null return, since echo is a statement, not a value.
func (fc *funcCompiler) compileEcho(stmt *ast.EchoStmt) error {
	for _, arg := range stmt.Args {
		if err := fc.compileExpr(arg); err != nil {
			return err
		}
	}
	nameIdx := fc.c.intern(stringValue("print"))
	fc.emit(opcodes.CALL, uint16(nameIdx), uint16(len(stmt.Args)))
	fc.emit(opcodes.POP, 0, 0)
	return nil
}

func (fc *funcCompiler) compileIf(stmt *ast.IfStmt) error {
	if err := fc.compileExpr(stmt.Cond); err != nil {
		return err
	}
	jmpzIdx := fc.emit(opcodes.JMPZ, 0, 0)
	if err := fc.compileStmt(stmt.Then); err != nil {
		return err
	}
	if stmt.Else == nil {
		fc.patchJumpTarget(jmpzIdx)
		return nil
	}
	jmpEndIdx := fc.emit(opcodes.JMP, 0, 0)
	fc.patchJumpTarget(jmpzIdx)
	if err := fc.compileStmt(stmt.Else); err != nil {
		return err
	}
	fc.patchJumpTarget(jmpEndIdx)
	return nil
}

func (fc *funcCompiler) compileWhile(stmt *ast.WhileStmt) error {
	loopStart := fc.here()
	if err := fc.compileExpr(stmt.Cond); err != nil {
		return err
	}
	jmpzIdx := fc.emit(opcodes.JMPZ, 0, 0)
	if err := fc.compileStmt(stmt.Body); err != nil {
		return err
	}
	fc.emit(opcodes.JMP, uint16(loopStart), 0)
	fc.patchJumpTarget(jmpzIdx)
	return nil
}

func (fc *funcCompiler) compileFor(stmt *ast.ForStmt) error {
	if stmt.Init != nil {
		if err := fc.compileInitClause(stmt.Init); err != nil {
			return err
		}
	}
	loopStart := fc.here()
	var jmpzIdx int
	hasCond := stmt.Cond != nil
	if hasCond {
		if err := fc.compileExpr(stmt.Cond); err != nil {
			return err
		}
		jmpzIdx = fc.emit(opcodes.JMPZ, 0, 0)
	}
	if err := fc.compileStmt(stmt.Body); err != nil {
		return err
	}
	if stmt.Post != nil {
		if err := fc.compileExpr(stmt.Post); err != nil {
			return err
		}
		fc.emit(opcodes.POP, 0, 0)
	}
	fc.emit(opcodes.JMP, uint16(loopStart), 0)
	if hasCond {
		fc.patchJumpTarget(jmpzIdx)
	}
	return nil
}

// compileInitClause handles a for-loop's init node, which the parser
// hands back as either an *ast.VarDecl or a bare expression.
func (fc *funcCompiler) compileInitClause(n ast.Node) error {
	if decl, ok := n.(*ast.VarDecl); ok {
		return fc.compileVarDecl(decl)
	}
	if err := fc.compileExpr(n); err != nil {
		return err
	}
	fc.emit(opcodes.POP, 0, 0)
	return nil
}

func (fc *funcCompiler) compileReturn(stmt *ast.ReturnStmt) error {
	if stmt.Value != nil {
		if err := fc.compileExpr(stmt.Value); err != nil {
			return err
		}
	} else {
		// Bare `return;` still must leave a value for the caller's
		// CALL result to consume, so an implicit Null is pushed first.
		fc.emit(opcodes.CONST, uint16(fc.c.intern(nullValue)), 0)
	}
	fc.emit(opcodes.RETURN, 0, 0)
	return nil
}
