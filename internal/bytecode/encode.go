package bytecode

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/wudi/microphp/values"
)

// Encode serializes m into the §6 container: magic, version, constant
// pool, function table, main_offset — all little-endian.
func Encode(m *Module) []byte {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	writeU32(&buf, Version)

	writeU32(&buf, uint32(len(m.Constants)))
	for _, c := range m.Constants {
		encodeConstant(&buf, c)
	}

	writeU32(&buf, uint32(len(m.Functions)))
	for _, fn := range m.Functions {
		encodeFunction(&buf, fn)
	}

	writeU32(&buf, m.MainOffset)
	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

// constant tags, one byte each, matching §6's constant-entry encoding.
const (
	tagNull byte = iota
	tagBool
	tagInt
	tagFloat
	tagString
	tagArray
)

func encodeConstant(buf *bytes.Buffer, v values.Value) {
	switch v.Type {
	case values.TypeNull:
		buf.WriteByte(tagNull)
	case values.TypeBool:
		buf.WriteByte(tagBool)
		if v.AsBool() {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case values.TypeInt:
		buf.WriteByte(tagInt)
		writeU64(buf, uint64(v.AsInt()))
	case values.TypeFloat:
		buf.WriteByte(tagFloat)
		writeU64(buf, math.Float64bits(v.AsFloat()))
	case values.TypeString:
		buf.WriteByte(tagString)
		b := v.Bytes()
		writeU32(buf, uint32(len(b)))
		buf.Write(b)
	case values.TypeArray:
		buf.WriteByte(tagArray)
		n := v.ArraySize()
		writeU32(buf, uint32(n))
		for i := 0; i < n; i++ {
			el, _ := v.ArrayGet(i)
			encodeConstant(buf, el)
		}
	default:
		// Object/Closure/Resource are reserved and not realized in the
		// core; they are never placed in the constant pool by the
		// compiler, so encoding one is a logic error upstream.
		buf.WriteByte(tagNull)
	}
}

func encodeFunction(buf *bytes.Buffer, fn Function) {
	name := []byte(fn.Name)
	writeU32(buf, uint32(len(name)))
	buf.Write(name)
	writeU32(buf, fn.LocalCount)
	writeU32(buf, fn.ParamCount)
	writeU32(buf, uint32(len(fn.Code)))
	for _, inst := range fn.Code {
		writeU16(buf, uint16(inst.Op))
		writeU16(buf, inst.Op1)
		writeU16(buf, inst.Op2)
	}
}
