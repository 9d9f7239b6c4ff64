package values

import (
	"fmt"
	"strconv"
	"strings"
)

// ErrNotNumeric is returned by ToNumber/CastInt/CastFloat when v cannot be
// coerced to a number under the language's parse rules.
var ErrNotNumeric = fmt.Errorf("value is not numeric")

// ToNumber coerces v to either an Int or a Float following §4.2's
// arithmetic coercion rules: Integer stays Integer, Float stays Float,
// numeric Strings parse per the grammar's number-literal shape (optional
// leading sign, digits, optional fractional part), anything else fails.
func ToNumber(v Value) (Value, error) {
	switch v.Type {
	case TypeInt, TypeFloat:
		return v, nil
	case TypeString:
		s := strings.TrimSpace(v.AsGoString())
		t := s
		if t != "" && (t[0] == '+' || t[0] == '-') {
			t = t[1:]
		}
		intPart, frac, hasDot := strings.Cut(t, ".")
		if intPart == "" || strings.Trim(intPart, "0123456789") != "" ||
			(hasDot && (frac == "" || strings.Trim(frac, "0123456789") != "")) {
			return Null(), ErrNotNumeric
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f), nil
		}
		return Null(), ErrNotNumeric
	default:
		return Null(), ErrNotNumeric
	}
}

// Arith applies one of the four-function-plus-mod arithmetic operators
// with two's-complement wraparound on Integer operands and promotion to
// Float whenever either side is (or becomes) a Float.
type ArithOp byte

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

var ErrDivByZero = fmt.Errorf("division by zero")
var ErrBadArithType = fmt.Errorf("invalid operand type for arithmetic")

// Arith computes a OP b per §4.2's numeric coercion table.
func Arith(op ArithOp, a, b Value) (Value, error) {
	na, err := ToNumber(a)
	if err != nil {
		return Null(), ErrBadArithType
	}
	nb, err := ToNumber(b)
	if err != nil {
		return Null(), ErrBadArithType
	}
	if na.Type == TypeInt && nb.Type == TypeInt {
		x, y := na.AsInt(), nb.AsInt()
		switch op {
		case OpAdd:
			return Int(x + y), nil
		case OpSub:
			return Int(x - y), nil
		case OpMul:
			return Int(x * y), nil
		case OpDiv:
			if y == 0 {
				return Null(), ErrDivByZero
			}
			return Int(x / y), nil
		case OpMod:
			if y == 0 {
				return Null(), ErrDivByZero
			}
			return Int(x % y), nil
		}
	}
	x := widen(na)
	y := widen(nb)
	switch op {
	case OpAdd:
		return Float(x + y), nil
	case OpSub:
		return Float(x - y), nil
	case OpMul:
		return Float(x * y), nil
	case OpDiv:
		if y == 0 {
			return Null(), ErrDivByZero
		}
		return Float(x / y), nil
	case OpMod:
		if int64(y) == 0 {
			return Null(), ErrDivByZero
		}
		return Float(float64(int64(x) % int64(y))), nil
	}
	return Null(), ErrBadArithType
}

func widen(v Value) float64 {
	if v.Type == TypeInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// Compare orders two numeric-coercible values (-1, 0, 1), used by the
// relational opcodes. Non-numeric String/String comparison falls back to
// byte-wise ordering; Bool compares false<true.
func Compare(a, b Value) (int, error) {
	if a.Type == TypeString && b.Type == TypeString {
		_, errA := ToNumber(a)
		_, errB := ToNumber(b)
		if errA != nil || errB != nil {
			sa, sb := a.AsGoString(), b.AsGoString()
			switch {
			case sa < sb:
				return -1, nil
			case sa > sb:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if a.Type == TypeBool || b.Type == TypeBool {
		ba, bb := a.Truthy(), b.Truthy()
		if ba == bb {
			return 0, nil
		}
		if !ba && bb {
			return -1, nil
		}
		return 1, nil
	}
	na, err := ToNumber(a)
	if err != nil {
		return 0, ErrBadArithType
	}
	nb, err := ToNumber(b)
	if err != nil {
		return 0, ErrBadArithType
	}
	if na.Type == TypeInt && nb.Type == TypeInt {
		x, y := na.AsInt(), nb.AsInt()
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		default:
			return 0, nil
		}
	}
	x, y := widen(na), widen(nb)
	switch {
	case x < y:
		return -1, nil
	case x > y:
		return 1, nil
	default:
		return 0, nil
	}
}

// CastInt coerces v to Int following the same numeric parse rules as
// arithmetic coercion; non-numeric strings cast to 0, matching the
// language's permissive CAST_INT semantics rather than failing.
func CastInt(v Value) Value {
	switch v.Type {
	case TypeInt:
		return v
	case TypeFloat:
		return Int(int64(v.AsFloat()))
	case TypeBool:
		if v.AsBool() {
			return Int(1)
		}
		return Int(0)
	case TypeString:
		n, err := ToNumber(v)
		if err != nil {
			return Int(0)
		}
		return CastInt(n)
	default:
		return Int(0)
	}
}

// CastFloat coerces v to Float.
func CastFloat(v Value) Value {
	switch v.Type {
	case TypeFloat:
		return v
	case TypeInt:
		return Float(float64(v.AsInt()))
	case TypeBool:
		if v.AsBool() {
			return Float(1)
		}
		return Float(0)
	case TypeString:
		n, err := ToNumber(v)
		if err != nil {
			return Float(0)
		}
		return CastFloat(n)
	default:
		return Float(0)
	}
}

// CastString coerces v to String via Stringify.
func CastString(v Value) Value {
	if v.Type == TypeString {
		return v
	}
	return StringFromGo(v.Stringify())
}

// CastBool coerces v to Bool via Truthy.
func CastBool(v Value) Value {
	return Bool(v.Truthy())
}
