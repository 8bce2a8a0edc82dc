package ast

import (
	"fmt"
	"math/big"
)

// Standard widths.
const (
	Width8  = 8
	Width16 = 16
	Width32 = 32
	Width64 = 64
)

// Int represents a fixed-width two's complement integer. Value holds the bit
// pattern masked to Width bits.
type Int struct {
	Value    uint64
	Width    uint
	Unsigned bool
}

// NewInt returns a signed integer holding the low width bits of value.
func NewInt(value uint64, width uint) Int {
	assert(width > 0 && width <= Width64, "int: invalid width: %d", width)
	return Int{Value: value & bitmask(width), Width: width}
}

// NewUnsignedInt returns an unsigned integer holding the low width bits of value.
func NewUnsignedInt(value uint64, width uint) Int {
	x := NewInt(value, width)
	x.Unsigned = true
	return x
}

// NewSignedInt returns a signed integer for value truncated to width bits.
func NewSignedInt(value int64, width uint) Int {
	return NewInt(uint64(value), width)
}

// String returns the decimal representation of the value.
func (x Int) String() string {
	if x.Unsigned {
		return fmt.Sprintf("%d", x.Value)
	}
	return fmt.Sprintf("%d", x.Int64())
}

// Int64 returns the value sign-extended to 64 bits.
func (x Int) Int64() int64 {
	if x.Width == 0 || x.Width >= Width64 {
		return int64(x.Value)
	}
	shift := Width64 - x.Width
	return int64(x.Value<<shift) >> shift
}

// Uint64 returns the value zero-extended to 64 bits.
func (x Int) Uint64() uint64 { return x.Value }

// IsZero returns true if all bits are zero.
func (x Int) IsZero() bool { return x.Value == 0 }

// IsNegative returns true if x is signed and its sign bit is set.
func (x Int) IsNegative() bool { return !x.Unsigned && x.Int64() < 0 }

// Big returns the mathematical value of x.
func (x Int) Big() *big.Int {
	if x.Unsigned {
		return new(big.Int).SetUint64(x.Value)
	}
	return big.NewInt(x.Int64())
}

// Add returns the wrapping sum of x and y.
func (x Int) Add(y Int) Int {
	assert(x.Width == y.Width, "add: width mismatch: %d != %d", x.Width, y.Width)
	return x.with(x.Value + y.Value)
}

// Sub returns the wrapping difference of x and y.
func (x Int) Sub(y Int) Int {
	assert(x.Width == y.Width, "sub: width mismatch: %d != %d", x.Width, y.Width)
	return x.with(x.Value - y.Value)
}

// Mul returns the wrapping product of x and y.
func (x Int) Mul(y Int) Int {
	assert(x.Width == y.Width, "mul: width mismatch: %d != %d", x.Width, y.Width)
	return x.with(x.Value * y.Value)
}

// Neg returns the wrapping negation of x.
func (x Int) Neg() Int { return x.with(-x.Value) }

// Not returns the bitwise complement of x.
func (x Int) Not() Int { return x.with(^x.Value) }

// And returns the bitwise AND of x and y.
func (x Int) And(y Int) Int { return x.with(x.Value & y.Value) }

// Or returns the bitwise OR of x and y.
func (x Int) Or(y Int) Int { return x.with(x.Value | y.Value) }

// Xor returns the bitwise XOR of x and y.
func (x Int) Xor(y Int) Int { return x.with(x.Value ^ y.Value) }

// Shl returns x shifted left by n bits.
func (x Int) Shl(n uint) Int {
	if n >= x.Width {
		return x.with(0)
	}
	return x.with(x.Value << n)
}

// Shr returns x shifted right by n bits. Signed values shift arithmetically.
func (x Int) Shr(n uint) Int {
	if x.Unsigned {
		if n >= x.Width {
			return x.with(0)
		}
		return x.with(x.Value >> n)
	}
	if n >= x.Width {
		n = x.Width - 1
	}
	return x.with(uint64(x.Int64() >> n))
}

// Div returns the quotient of x and y. Returns false on division by zero.
func (x Int) Div(y Int) (Int, bool) {
	if y.IsZero() {
		return Int{}, false
	} else if x.Unsigned {
		return x.with(x.Value / y.Value), true
	}
	return x.with(uint64(x.Int64() / y.Int64())), true
}

// Rem returns the remainder of x divided by y. Returns false on division by zero.
func (x Int) Rem(y Int) (Int, bool) {
	if y.IsZero() {
		return Int{}, false
	} else if x.Unsigned {
		return x.with(x.Value % y.Value), true
	}
	return x.with(uint64(x.Int64() % y.Int64())), true
}

// AddOv returns the sum of x and y and whether the signed addition overflowed.
func (x Int) AddOv(y Int) (Int, bool) {
	assert(x.Width == y.Width, "add: width mismatch: %d != %d", x.Width, y.Width)
	return x.checked(new(big.Int).Add(x.Big(), y.Big()))
}

// SubOv returns the difference of x and y and whether the signed subtraction overflowed.
func (x Int) SubOv(y Int) (Int, bool) {
	assert(x.Width == y.Width, "sub: width mismatch: %d != %d", x.Width, y.Width)
	return x.checked(new(big.Int).Sub(x.Big(), y.Big()))
}

// MulOv returns the product of x and y and whether the signed multiplication overflowed.
func (x Int) MulOv(y Int) (Int, bool) {
	assert(x.Width == y.Width, "mul: width mismatch: %d != %d", x.Width, y.Width)
	return x.checked(new(big.Int).Mul(x.Big(), y.Big()))
}

// NegOv returns the negation of x and whether it overflowed.
// Negating the minimum signed value overflows.
func (x Int) NegOv() (Int, bool) {
	return x.checked(new(big.Int).Neg(x.Big()))
}

// checked wraps v into x's width and reports whether v was out of range.
func (x Int) checked(v *big.Int) (Int, bool) {
	lo, hi := x.bounds()
	overflow := v.Cmp(lo) < 0 || v.Cmp(hi) > 0

	// Two's complement wraparound of v.
	m := new(big.Int).Lsh(big.NewInt(1), x.Width)
	w := new(big.Int).Mod(v, m)
	return x.with(w.Uint64()), overflow
}

// bounds returns the minimum and maximum representable values.
func (x Int) bounds() (lo, hi *big.Int) {
	if x.Unsigned {
		hi = new(big.Int).Lsh(big.NewInt(1), x.Width)
		return big.NewInt(0), hi.Sub(hi, big.NewInt(1))
	}
	hi = new(big.Int).Lsh(big.NewInt(1), x.Width-1)
	lo = new(big.Int).Neg(hi)
	return lo, hi.Sub(hi, big.NewInt(1))
}

// Cmp compares x and y as signed or unsigned values based on x.
func (x Int) Cmp(y Int) int {
	if x.Unsigned {
		if x.Value < y.Value {
			return -1
		} else if x.Value > y.Value {
			return 1
		}
		return 0
	}
	if a, b := x.Int64(), y.Int64(); a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// Convert returns x converted to the given width and signedness.
// Narrowing truncates; widening sign-extends signed sources.
func (x Int) Convert(width uint, unsigned bool) Int {
	var v uint64
	if x.Unsigned {
		v = x.Value
	} else {
		v = uint64(x.Int64())
	}
	return Int{Value: v & bitmask(width), Width: width, Unsigned: unsigned}
}

// ZExt returns x zero-extended to width.
func (x Int) ZExt(width uint) Int {
	return Int{Value: x.Value & bitmask(width), Width: width, Unsigned: x.Unsigned}
}

// SExt returns x sign-extended to width.
func (x Int) SExt(width uint) Int {
	return Int{Value: uint64(x.Int64()) & bitmask(width), Width: width, Unsigned: x.Unsigned}
}

func (x Int) with(v uint64) Int {
	return Int{Value: v & bitmask(x.Width), Width: x.Width, Unsigned: x.Unsigned}
}

func bitmask(width uint) uint64 {
	if width >= Width64 {
		return ^uint64(0)
	}
	return (1 << width) - 1
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
