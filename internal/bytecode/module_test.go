package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/microphp/opcodes"
	"github.com/wudi/microphp/values"
)

func sampleModule() *Module {
	arr := values.NewArray(2)
	_ = arr.ArraySet(0, values.Int(10))
	_ = arr.ArraySet(1, values.StringFromGo("hi"))
	return &Module{
		Constants: []values.Value{
			values.Null(),
			values.Bool(true),
			values.Int(-7),
			values.Float(3.5),
			values.StringFromGo("hello"),
			arr,
		},
		Functions: []Function{
			{
				Name:       "main",
				LocalCount: 2,
				ParamCount: 0,
				Code: []opcodes.Instruction{
					opcodes.New(opcodes.CONST, 0, 0),
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
}

func TestLoadEmitRoundTrip(t *testing.T) {
	m := sampleModule()
	encoded := Encode(m)
	decoded, err := Decode(encoded)
	require.NoError(t, err)

	require.Equal(t, len(m.Constants), len(decoded.Constants))
	for i := range m.Constants {
		assert.True(t, m.Constants[i].Equal(decoded.Constants[i]), "constant %d mismatch", i)
	}
	require.Equal(t, len(m.Functions), len(decoded.Functions))
	for i, fn := range m.Functions {
		assert.Equal(t, fn.Name, decoded.Functions[i].Name)
		assert.Equal(t, fn.LocalCount, decoded.Functions[i].LocalCount)
		assert.Equal(t, fn.ParamCount, decoded.Functions[i].ParamCount)
		assert.Equal(t, fn.Code, decoded.Functions[i].Code)
	}
	assert.Equal(t, m.MainOffset, decoded.MainOffset)
}

func TestDecodeBadMagic(t *testing.T) {
	data := []byte("XYZ\x00\x01\x00\x00\x00")
	_, err := Decode(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid magic")
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	var buf []byte
	buf = append(buf, []byte(Magic)...)
	buf = append(buf, 2, 0, 0, 0) // version 2
	_, err := Decode(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported bytecode version")
}

func TestDecodeTruncated(t *testing.T) {
	m := sampleModule()
	encoded := Encode(m)
	_, err := Decode(encoded[:len(encoded)-3])
	require.Error(t, err)
	var le *LoadError
	assert.ErrorAs(t, err, &le)
}

func TestDecodeInvalidMainOffset(t *testing.T) {
	m := sampleModule()
	m.MainOffset = 99
	encoded := Encode(m)
	_, err := Decode(encoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid main_offset")
}
