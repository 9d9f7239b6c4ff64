package compiler

import "github.com/wudi/microphp/ast"

// funcScope is the per-function slot table: parameters occupy
// [0,paramCount), declared locals are assigned the next free slots in
// declaration order, and temp slots (used by array-element
// assignment) share the same space via a free list so they get reused
// across independent statements instead of growing without bound.
type funcScope struct {
	slots    map[string]int
	nextSlot int
	freeTemp []int
}

func newFuncScope(params []string) *funcScope {
	s := &funcScope{slots: make(map[string]int)}
	for _, p := range params {
		s.declare(p)
	}
	return s
}

// declare assigns name a slot if it doesn't already have one.
func (s *funcScope) declare(name string) int {
	if slot, ok := s.slots[name]; ok {
		return slot
	}
	slot := s.nextSlot
	s.slots[name] = slot
	s.nextSlot++
	return slot
}

func (s *funcScope) lookup(name string) (int, bool) {
	slot, ok := s.slots[name]
	return slot, ok
}

func (s *funcScope) allocTemp() int {
	if n := len(s.freeTemp); n > 0 {
		slot := s.freeTemp[n-1]
		s.freeTemp = s.freeTemp[:n-1]
		return slot
	}
	slot := s.nextSlot
	s.nextSlot++
	return slot
}

func (s *funcScope) freeTempSlot(slot int) {
	s.freeTemp = append(s.freeTemp, slot)
}

// predeclare walks a function body collecting every VarDecl name in
// encounter order, assigning each a slot before any code is emitted, so
// a forward reference within a loop or branch still resolves to a
// stable slot (§9: no reliance on emission order for locals).
func predeclare(s *funcScope, stmts []ast.Node) {
	for _, n := range stmts {
		predeclareStmt(s, n)
	}
}

func predeclareStmt(s *funcScope, n ast.Node) {
	switch stmt := n.(type) {
	case *ast.VarDecl:
		s.declare(stmt.Name)
	case *ast.Block:
		predeclare(s, stmt.Statements)
	case *ast.IfStmt:
		predeclareStmt(s, stmt.Then)
		if stmt.Else != nil {
			predeclareStmt(s, stmt.Else)
		}
	case *ast.WhileStmt:
		predeclareStmt(s, stmt.Body)
	case *ast.ForStmt:
		if stmt.Init != nil {
			predeclareStmt(s, stmt.Init)
		}
		predeclareStmt(s, stmt.Body)
	}
}
