package bytecode

import (
	"encoding/binary"
	"math"

	"github.com/wudi/microphp/opcodes"
	"github.com/wudi/microphp/values"
)

// reader is a small bounds-checked cursor over the encoded byte slice.
// Every read that would run past the end returns a LoadError instead of
// panicking, per §7's "truncated entry" load-time error kind.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return loadErr("truncated entry at offset %d (need %d bytes)", r.pos, n)
	}
	return nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) byte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Decode parses and validates the §6 container. On any framing error it
// returns a *LoadError and no Module; the caller's VM remains unloaded.
func Decode(data []byte) (*Module, error) {
	if len(data) < len(Magic)+4 {
		return nil, loadErr("invalid magic")
	}
	if string(data[:len(Magic)]) != Magic {
		return nil, loadErr("invalid magic")
	}
	r := &reader{data: data, pos: len(Magic)}

	version, err := r.u32()
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, loadErr("unsupported bytecode version %d", version)
	}

	constCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	if constCount > MaxConstants {
		return nil, loadErr("constant_count %d exceeds maximum %d", constCount, MaxConstants)
	}
	constants := make([]values.Value, 0, constCount)
	for i := uint32(0); i < constCount; i++ {
		v, err := decodeConstant(r)
		if err != nil {
			return nil, err
		}
		constants = append(constants, v)
	}

	fnCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	if fnCount > MaxFunctions {
		return nil, loadErr("function_count %d exceeds maximum %d", fnCount, MaxFunctions)
	}
	functions := make([]Function, 0, fnCount)
	for i := uint32(0); i < fnCount; i++ {
		fn, err := decodeFunction(r)
		if err != nil {
			return nil, err
		}
		functions = append(functions, fn)
	}

	mainOffset, err := r.u32()
	if err != nil {
		return nil, err
	}
	if fnCount > 0 && mainOffset >= fnCount {
		return nil, loadErr("invalid main_offset %d (function_count %d)", mainOffset, fnCount)
	}

	return &Module{Constants: constants, Functions: functions, MainOffset: mainOffset}, nil
}

func decodeConstant(r *reader) (values.Value, error) {
	tag, err := r.byte()
	if err != nil {
		return values.Null(), err
	}
	switch tag {
	case tagNull:
		return values.Null(), nil
	case tagBool:
		b, err := r.byte()
		if err != nil {
			return values.Null(), err
		}
		return values.Bool(b != 0), nil
	case tagInt:
		u, err := r.u64()
		if err != nil {
			return values.Null(), err
		}
		return values.Int(int64(u)), nil
	case tagFloat:
		u, err := r.u64()
		if err != nil {
			return values.Null(), err
		}
		return values.Float(math.Float64frombits(u)), nil
	case tagString:
		n, err := r.u32()
		if err != nil {
			return values.Null(), err
		}
		b, err := r.bytes(int(n))
		if err != nil {
			return values.Null(), err
		}
		return values.String(b), nil
	case tagArray:
		n, err := r.u32()
		if err != nil {
			return values.Null(), err
		}
		arr := values.NewArray(int(n))
		for i := uint32(0); i < n; i++ {
			el, err := decodeConstant(r)
			if err != nil {
				return values.Null(), err
			}
			if err := arr.ArraySet(int(i), el); err != nil {
				return values.Null(), err
			}
		}
		// NewArray allocates n Null slots with size 0; each ArraySet in
		// the loop above writes slot i and grows size to i+1, so the
		// result has size n.
		return arr, nil
	default:
		return values.Null(), loadErr("unknown constant tag %d", tag)
	}
}

func decodeFunction(r *reader) (Function, error) {
	nameLen, err := r.u32()
	if err != nil {
		return Function{}, err
	}
	nameBytes, err := r.bytes(int(nameLen))
	if err != nil {
		return Function{}, err
	}
	localCount, err := r.u32()
	if err != nil {
		return Function{}, err
	}
	if localCount > MaxLocals {
		return Function{}, loadErr("local_count %d exceeds maximum %d", localCount, MaxLocals)
	}
	paramCount, err := r.u32()
	if err != nil {
		return Function{}, err
	}
	codeSize, err := r.u32()
	if err != nil {
		return Function{}, err
	}
	code := make([]opcodes.Instruction, 0, codeSize)
	for i := uint32(0); i < codeSize; i++ {
		opRaw, err := r.u16()
		if err != nil {
			return Function{}, err
		}
		op1, err := r.u16()
		if err != nil {
			return Function{}, err
		}
		op2, err := r.u16()
		if err != nil {
			return Function{}, err
		}
		code = append(code, opcodes.New(opcodes.Opcode(opRaw), op1, op2))
	}
	return Function{
		Name:       string(nameBytes),
		Code:       code,
		LocalCount: localCount,
		ParamCount: paramCount,
	}, nil
}
