// Package ast defines the microphp abstract syntax tree: a sum-type
// node per grammar production with owned sub-trees, replacing the
// source's raw-pointer tree with recursive free (§9).
package ast

import "github.com/wudi/microphp/lexer"

// Node is implemented by every AST node.
type Node interface {
	Pos() lexer.Position
}

type NodeBase struct {
	Position lexer.Position
}

func (b NodeBase) Pos() lexer.Position { return b.Position }

// Program is the root node: a flat list of top-level statements.
type Program struct {
	NodeBase
	Statements []Node
}

// --- Expressions ---

type IntLiteral struct {
	NodeBase
	Value int64
}

type FloatLiteral struct {
	NodeBase
	Value float64
}

type StringLiteral struct {
	NodeBase
	Value string
}

type BoolLiteral struct {
	NodeBase
	Value bool
}

type NullLiteral struct{ NodeBase }

type ArrayLiteral struct {
	NodeBase
	Elements []Node
}

type Identifier struct {
	NodeBase
	Name string
}

// BinaryExpr covers +, -, *, /, %, ., ==, !=, <, <=, >, >=, &&, ||.
type BinaryExpr struct {
	NodeBase
	Op    string
	Left  Node
	Right Node
}

// UnaryExpr covers !, unary -, prefix ++/--.
type UnaryExpr struct {
	NodeBase
	Op      string
	Operand Node
}

// PostfixExpr covers postfix ++/--.
type PostfixExpr struct {
	NodeBase
	Op      string
	Operand Node
}

// AssignExpr covers =, +=, -=, *=, /=, %=. Target is an Identifier or an
// IndexExpr.
type AssignExpr struct {
	NodeBase
	Op     string
	Target Node
	Value  Node
}

// TernaryExpr is cond ? then : else.
type TernaryExpr struct {
	NodeBase
	Cond Node
	Then Node
	Else Node
}

// CallExpr is name(args...).
type CallExpr struct {
	NodeBase
	Callee string
	Args   []Node
}

// IndexExpr is target[index].
type IndexExpr struct {
	NodeBase
	Target Node
	Index  Node
}

// --- Statements ---

type Block struct {
	NodeBase
	Statements []Node
}

// VarDecl covers both "var" and "const" declarations.
type VarDecl struct {
	NodeBase
	Name  string
	Init  Node // nil if no initializer
	Const bool
}

type ExprStmt struct {
	NodeBase
	Expr Node
}

type EchoStmt struct {
	NodeBase
	Args []Node
}

type IfStmt struct {
	NodeBase
	Cond Node
	Then Node
	Else Node // nil if no else branch
}

type WhileStmt struct {
	NodeBase
	Cond Node
	Body Node
}

// ForStmt's Init/Post may be nil (omitted clauses); Cond nil means "true".
type ForStmt struct {
	NodeBase
	Init Node
	Cond Node
	Post Node
	Body Node
}

type FuncDef struct {
	NodeBase
	Name   string
	Params []string
	Body   *Block
}

type ReturnStmt struct {
	NodeBase
	Value Node // nil for a bare return
}
