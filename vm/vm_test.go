package vm

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/microphp/internal/bytecode"
	"github.com/wudi/microphp/opcodes"
	"github.com/wudi/microphp/runtime"
	"github.com/wudi/microphp/values"
)

type stubClock struct{}

func (stubClock) MillisSinceEpoch() int64 { return 0 }
func (stubClock) Sleep(time.Duration)     {}

func newTestContext(out *bytes.Buffer) *Context {
	reg := runtime.NewRegistry(stubClock{}, out)
	return NewContext(reg)
}

// loadModule builds and loads a module with one "main" function and the
// given instructions/constants, returning the context ready to Run.
func loadModule(t *testing.T, out *bytes.Buffer, constants []values.Value, code []opcodes.Instruction) *Context {
	t.Helper()
	m := &bytecode.Module{
		Constants: constants,
		Functions: []bytecode.Function{
			{Name: "main", Code: code, LocalCount: 4, ParamCount: 0},
		},
		MainOffset: 0,
	}
	ctx := newTestContext(out)
	require.NoError(t, ctx.Load(bytecode.Encode(m)))
	return ctx
}

func TestScenarioPrintSum(t *testing.T) {
	var out bytes.Buffer
	constants := []values.Value{values.Int(1), values.Int(2), values.StringFromGo("print")}
	code := []opcodes.Instruction{
		opcodes.New(opcodes.CONST, 0, 0),
		opcodes.New(opcodes.CONST, 1, 0),
		opcodes.New(opcodes.ADD, 0, 0),
		opcodes.New(opcodes.CALL, 2, 1),
		opcodes.New(opcodes.POP, 0, 0),
		opcodes.New(opcodes.RETURN, 0, 0),
	}
	ctx := loadModule(t, &out, constants, code)
	require.NoError(t, ctx.Run())
	assert.Equal(t, "3\n", out.String())
}

func TestScenarioDivisionByZero(t *testing.T) {
	var out bytes.Buffer
	constants := []values.Value{values.Int(1), values.Int(0)}
	code := []opcodes.Instruction{
		opcodes.New(opcodes.CONST, 0, 0),
		opcodes.New(opcodes.CONST, 1, 0),
		opcodes.New(opcodes.DIV, 0, 0),
		opcodes.New(opcodes.RETURN, 0, 0),
	}
	ctx := loadModule(t, &out, constants, code)
	err := ctx.Run()
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrDivByZero, rerr.Kind)
	assert.Equal(t, "", out.String())
	assert.NotEmpty(t, ctx.LastError())
}

func TestScenarioArrayIndex(t *testing.T) {
	var out bytes.Buffer
	arr := values.NewArray(3)
	_ = arr.ArraySet(0, values.Int(10))
	_ = arr.ArraySet(1, values.Int(20))
	_ = arr.ArraySet(2, values.Int(30))
	constants := []values.Value{arr, values.Int(1), values.StringFromGo("print")}
	code := []opcodes.Instruction{
		opcodes.New(opcodes.CONST, 0, 0), // array
		opcodes.New(opcodes.CONST, 1, 0), // index 1
		opcodes.New(opcodes.ARRAY_GET, 0, 0),
		opcodes.New(opcodes.CALL, 2, 1),
		opcodes.New(opcodes.POP, 0, 0),
		opcodes.New(opcodes.RETURN, 0, 0),
	}
	ctx := loadModule(t, &out, constants, code)
	require.NoError(t, ctx.Run())
	assert.Equal(t, "20\n", out.String())
}

func TestLoadBadMagicLeavesVMUnloaded(t *testing.T) {
	var out bytes.Buffer
	ctx := newTestContext(&out)
	err := ctx.Load([]byte("XYZ\x00\x01\x00\x00\x00"))
	require.Error(t, err)
	runErr := ctx.Run()
	require.Error(t, runErr)
	var rerr *RuntimeError
	require.ErrorAs(t, runErr, &rerr)
	assert.Equal(t, ErrNoModuleLoaded, rerr.Kind)
}

func TestCallUserFunction(t *testing.T) {
	var out bytes.Buffer
	constants := []values.Value{values.StringFromGo("add"), values.Int(2), values.Int(3), values.StringFromGo("print")}
	m := &bytecode.Module{
		Constants: constants,
		Functions: []bytecode.Function{
			{
				Name:       "main",
				LocalCount: 1,
				Code: []opcodes.Instruction{
					opcodes.New(opcodes.CONST, 1, 0), // 2
					opcodes.New(opcodes.CONST, 2, 0), // 3
					opcodes.New(opcodes.CALL, 0, 2),  // add(2,3)
					opcodes.New(opcodes.CALL, 3, 1),  // print(result)
					opcodes.New(opcodes.POP, 0, 0),
					opcodes.New(opcodes.RETURN, 0, 0),
				},
			},
			{
				Name:       "add",
				LocalCount: 2,
				ParamCount: 2,
				Code: []opcodes.Instruction{
					opcodes.New(opcodes.GET_LOCAL, 0, 0),
					opcodes.New(opcodes.GET_LOCAL, 1, 0),
					opcodes.New(opcodes.ADD, 0, 0),
					opcodes.New(opcodes.RETURN, 0, 0),
				},
			},
		},
		MainOffset: 0,
	}
	ctx := newTestContext(&out)
	require.NoError(t, ctx.Load(bytecode.Encode(m)))
	require.NoError(t, ctx.Run())
	assert.Equal(t, "5\n", out.String())
}

func TestResetKeepsModuleClearsState(t *testing.T) {
	var out bytes.Buffer
	constants := []values.Value{values.Int(42), values.StringFromGo("print")}
	code := []opcodes.Instruction{
		opcodes.New(opcodes.CONST, 0, 0),
		opcodes.New(opcodes.CALL, 1, 1),
		opcodes.New(opcodes.POP, 0, 0),
		opcodes.New(opcodes.RETURN, 0, 0),
	}
	ctx := loadModule(t, &out, constants, code)
	require.NoError(t, ctx.Run())
	assert.Equal(t, "42\n", out.String())

	ctx.Reset()
	out.Reset()
	require.NoError(t, ctx.Run())
	assert.Equal(t, "42\n", out.String())
}

func TestStackUnderflowIsTypedError(t *testing.T) {
	var out bytes.Buffer
	ctx := loadModule(t, &out, nil, []opcodes.Instruction{
		opcodes.New(opcodes.ADD, 0, 0),
	})
	err := ctx.Run()
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrStackUnderflow, rerr.Kind)
}
