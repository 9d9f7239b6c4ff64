// Package bytecode implements the microphp bytecode container: the
// byte-exact, little-endian encode/decode pair specified in §6, plus the
// in-memory Module/Function shapes the compiler emits and the VM loads.
package bytecode

import (
	"fmt"

	"github.com/wudi/microphp/opcodes"
	"github.com/wudi/microphp/values"
)

const (
	Magic   = "MBC\x00"
	Version = uint32(1)

	MaxConstants = 1024
	MaxFunctions = 64
	MaxLocals    = 128
)

// Function is the compiled unit: an owned name, its instruction stream,
// and the declared local/parameter counts. The first ParamCount locals
// are the parameters, in call order.
type Function struct {
	Name       string
	Code       []opcodes.Instruction
	LocalCount uint32
	ParamCount uint32
}

// Module is the on-disk/in-memory bytecode unit: header, constant pool,
// function table, and the entry-function index.
type Module struct {
	Constants  []values.Value
	Functions  []Function
	MainOffset uint32
}

// LoadError is a typed load-time error per §7: bad magic, unsupported
// version, truncated entry, invalid main_offset. The loader surfaces one
// of these and leaves the VM unloaded.
type LoadError struct {
	Reason string
}

func (e *LoadError) Error() string { return "bytecode load error: " + e.Reason }

func loadErr(format string, args ...any) error {
	return &LoadError{Reason: fmt.Sprintf(format, args...)}
}
