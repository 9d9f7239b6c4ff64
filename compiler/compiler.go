// Package compiler lowers an ast.Program into a bytecode.Module: it
// resolves names to local/global slots, builds the deduplicated
// constant pool, and emits the fixed-width instruction stream each
// function's body walk produces, per §4.4/§4.5.
package compiler

import (
	"fmt"

	"github.com/wudi/microphp/ast"
	"github.com/wudi/microphp/internal/bytecode"
	"github.com/wudi/microphp/opcodes"
	"github.com/wudi/microphp/values"
)

// mainFuncName is the synthetic entry function compiled from the
// program's top-level statements (everything that isn't a FuncDef).
const mainFuncName = "main"

// Compiler holds module-wide state shared across every function body:
// the constant pool and the global variable slot table. Per-function
// state (locals, temps, in-progress code) lives in funcCompiler.
type Compiler struct {
	constants  []values.Value
	constIndex map[string]int

	globals    map[string]int
	nextGlobal int
}

// New returns an empty Compiler. Reusing one Compiler across several
// CompileProgram calls keeps its constant pool and global slot table,
// which is what lets a REPL's successive lines see each other's
// globals (used by cmd/microvm's interactive mode).
func New() *Compiler {
	return &Compiler{
		constIndex: make(map[string]int),
		globals:    make(map[string]int),
	}
}

// Compile lowers prog into a bytecode.Module ready for bytecode.Encode
// or direct vm.Context.Load (once serialized). It is a convenience
// wrapper around a fresh Compiler for one-shot (non-REPL) use.
func Compile(prog *ast.Program) (*bytecode.Module, error) {
	return New().CompileProgram(prog)
}

// CompileProgram lowers prog against this Compiler's accumulated
// constant pool and global table.
func (c *Compiler) CompileProgram(prog *ast.Program) (*bytecode.Module, error) {
	var mainBody []ast.Node
	var defs []*ast.FuncDef
	for _, stmt := range prog.Statements {
		if fn, ok := stmt.(*ast.FuncDef); ok {
			defs = append(defs, fn)
			continue
		}
		mainBody = append(mainBody, stmt)
	}

	mod := &bytecode.Module{}

	mainFn, err := c.compileFunction(mainFuncName, nil, mainBody)
	if err != nil {
		return nil, err
	}

	for _, def := range defs {
		fn, err := c.compileFunction(def.Name, def.Params, def.Body.Statements)
		if err != nil {
			return nil, err
		}
		mod.Functions = append(mod.Functions, fn)
	}

	mod.MainOffset = uint32(len(mod.Functions))
	mod.Functions = append(mod.Functions, mainFn)
	mod.Constants = c.constants

	if len(mod.Constants) > bytecode.MaxConstants {
		return nil, fmt.Errorf("compiler: %d constants exceeds the %d limit", len(mod.Constants), bytecode.MaxConstants)
	}
	if len(mod.Functions) > bytecode.MaxFunctions {
		return nil, fmt.Errorf("compiler: %d functions exceeds the %d limit", len(mod.Functions), bytecode.MaxFunctions)
	}

	return mod, nil
}

// intern deduplicates a constant by its tag and literal content so that
// e.g. two int literals `1` in the source share one pool entry.
func (c *Compiler) intern(v values.Value) int {
	key := constKey(v)
	if idx, ok := c.constIndex[key]; ok {
		return idx
	}
	idx := len(c.constants)
	c.constants = append(c.constants, v)
	c.constIndex[key] = idx
	return idx
}

func constKey(v values.Value) string {
	switch v.Type {
	case values.TypeNull:
		return "n"
	case values.TypeBool:
		if v.AsBool() {
			return "b1"
		}
		return "b0"
	case values.TypeInt:
		return fmt.Sprintf("i%d", v.AsInt())
	case values.TypeFloat:
		return fmt.Sprintf("f%v", v.AsFloat())
	case values.TypeString:
		return "s" + v.AsGoString()
	default:
		return "u"
	}
}

// globalSlot returns name's global slot, auto-allocating one on first
// reference — any identifier a function doesn't own as a param or
// local resolves here (§4.5's free-name resolution).
func (c *Compiler) globalSlot(name string) (int, error) {
	if slot, ok := c.globals[name]; ok {
		return slot, nil
	}
	if c.nextGlobal >= 256 {
		return 0, fmt.Errorf("compiler: global %q exceeds the 256-slot global table", name)
	}
	slot := c.nextGlobal
	c.globals[name] = slot
	c.nextGlobal++
	return slot, nil
}

// instr is a convenience alias used across the compiler's emit sites.
func instr(op opcodes.Opcode, a, b uint16) opcodes.Instruction { return opcodes.New(op, a, b) }

var nullValue = values.Null()
