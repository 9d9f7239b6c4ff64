package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/microphp/ast"
)

func TestParseSimpleProgram(t *testing.T) {
	prog, err := Parse(`var x = 0; for (var i=0; i<5; i=i+1) { x = x + i; } print(x);`)
	require.NoError(t, err)
	require.Len(t, prog.Statements, 3)

	decl, ok := prog.Statements[0].(*ast.VarDecl)
	require.True(t, ok)
	assert.Equal(t, "x", decl.Name)

	forStmt, ok := prog.Statements[1].(*ast.ForStmt)
	require.True(t, ok)
	require.NotNil(t, forStmt.Init)
	require.NotNil(t, forStmt.Cond)
	require.NotNil(t, forStmt.Post)

	exprStmt, ok := prog.Statements[2].(*ast.ExprStmt)
	require.True(t, ok)
	call, ok := exprStmt.Expr.(*ast.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "print", call.Callee)
}

func TestParseFunctionDef(t *testing.T) {
	prog, err := Parse(`function add(a,b){ return a+b; } print(add(2,3));`)
	require.NoError(t, err)
	require.Len(t, prog.Statements, 2)
	fn, ok := prog.Statements[0].(*ast.FuncDef)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, []string{"a", "b"}, fn.Params)
	require.Len(t, fn.Body.Statements, 1)
	ret, ok := fn.Body.Statements[0].(*ast.ReturnStmt)
	require.True(t, ok)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
}

func TestOperatorPrecedence(t *testing.T) {
	prog, err := Parse(`var x = 1 + 2 * 3;`)
	require.NoError(t, err)
	decl := prog.Statements[0].(*ast.VarDecl)
	bin := decl.Init.(*ast.BinaryExpr)
	assert.Equal(t, "+", bin.Op)
	rhs := bin.Right.(*ast.BinaryExpr)
	assert.Equal(t, "*", rhs.Op)
}

func TestAssignmentIsRightAssociative(t *testing.T) {
	prog, err := Parse(`a = b = 3;`)
	require.NoError(t, err)
	stmt := prog.Statements[0].(*ast.ExprStmt)
	outer := stmt.Expr.(*ast.AssignExpr)
	assert.Equal(t, "=", outer.Op)
	_, ok := outer.Value.(*ast.AssignExpr)
	assert.True(t, ok)
}

func TestArrayLiteralAndIndex(t *testing.T) {
	prog, err := Parse(`var a = [10,20,30]; print(a[1]);`)
	require.NoError(t, err)
	decl := prog.Statements[0].(*ast.VarDecl)
	lit, ok := decl.Init.(*ast.ArrayLiteral)
	require.True(t, ok)
	assert.Len(t, lit.Elements, 3)
}

func TestTernaryAndLogicalPrecedence(t *testing.T) {
	prog, err := Parse(`var x = a ? b : c;`)
	require.NoError(t, err)
	decl := prog.Statements[0].(*ast.VarDecl)
	_, ok := decl.Init.(*ast.TernaryExpr)
	assert.True(t, ok)

	prog2, err := Parse(`var y = a && b || c;`)
	require.NoError(t, err)
	decl2 := prog2.Statements[0].(*ast.VarDecl)
	top := decl2.Init.(*ast.BinaryExpr)
	assert.Equal(t, "||", top.Op)
}

func TestForLoopWithPlainExpressionInit(t *testing.T) {
	prog, err := Parse(`var i; for (i=0; i<5; i=i+1) { print(i); }`)
	require.NoError(t, err)
	require.Len(t, prog.Statements, 2)
	forStmt, ok := prog.Statements[1].(*ast.ForStmt)
	require.True(t, ok)
	_, ok = forStmt.Init.(*ast.AssignExpr)
	require.True(t, ok)
	require.NotNil(t, forStmt.Cond)
	require.NotNil(t, forStmt.Post)
}

func TestMissingSemicolonIsSyntaxError(t *testing.T) {
	_, err := Parse(`var x = 1`)
	require.Error(t, err)
}

func TestUnterminatedBlockIsSyntaxError(t *testing.T) {
	_, err := Parse(`function f() { return 1;`)
	require.Error(t, err)
}

func TestMismatchedParenIsSyntaxError(t *testing.T) {
	_, err := Parse(`if (1 > 0 { print(1); }`)
	require.Error(t, err)
}
