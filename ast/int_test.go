package ast_test

import (
	"math"
	"testing"

	"github.com/benbjohnson/ntbounds/ast"
	"github.com/google/go-cmp/cmp"
)

func TestInt_Int64(t *testing.T) {
	t.Run("Positive", func(t *testing.T) {
		if v := ast.NewInt(5, 32).Int64(); v != 5 {
			t.Fatalf("unexpected value: %d", v)
		}
	})
	t.Run("Negative", func(t *testing.T) {
		if v := ast.NewSignedInt(-3, 32).Int64(); v != -3 {
			t.Fatalf("unexpected value: %d", v)
		}
	})
	t.Run("Width64", func(t *testing.T) {
		if v := ast.NewSignedInt(math.MinInt64, 64).Int64(); v != math.MinInt64 {
			t.Fatalf("unexpected value: %d", v)
		}
	})
	t.Run("Truncate", func(t *testing.T) {
		if v := ast.NewInt(0x1ff, 8); v.Value != 0xff || v.Int64() != -1 {
			t.Fatalf("unexpected value: %#v", v)
		}
	})
}

func TestInt_AddOv(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		v, overflow := ast.NewSignedInt(-4, 32).AddOv(ast.NewSignedInt(1, 32))
		if overflow {
			t.Fatal("unexpected overflow")
		} else if diff := cmp.Diff(ast.NewSignedInt(-3, 32), v); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Overflow", func(t *testing.T) {
		if _, overflow := ast.NewSignedInt(math.MaxInt32, 32).AddOv(ast.NewSignedInt(1, 32)); !overflow {
			t.Fatal("expected overflow")
		}
	})
	t.Run("Underflow64", func(t *testing.T) {
		if _, overflow := ast.NewSignedInt(math.MinInt64, 64).AddOv(ast.NewSignedInt(-1, 64)); !overflow {
			t.Fatal("expected overflow")
		}
	})
	t.Run("WidthMismatch", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic")
			}
		}()
		ast.NewInt(1, 8).AddOv(ast.NewInt(1, 32))
	})
}

func TestInt_SubOv(t *testing.T) {
	if v, overflow := ast.NewSignedInt(2, 32).SubOv(ast.NewSignedInt(5, 32)); overflow || v.Int64() != -3 {
		t.Fatalf("unexpected result: %s overflow=%v", v, overflow)
	}
	if _, overflow := ast.NewSignedInt(math.MinInt32, 32).SubOv(ast.NewSignedInt(1, 32)); !overflow {
		t.Fatal("expected overflow")
	}
}

func TestInt_MulOv(t *testing.T) {
	if v, overflow := ast.NewSignedInt(-6, 32).MulOv(ast.NewSignedInt(7, 32)); overflow || v.Int64() != -42 {
		t.Fatalf("unexpected result: %s overflow=%v", v, overflow)
	}
	if _, overflow := ast.NewSignedInt(1<<20, 32).MulOv(ast.NewSignedInt(1<<12, 32)); !overflow {
		t.Fatal("expected overflow")
	}
	if _, overflow := ast.NewSignedInt(math.MaxInt64, 64).MulOv(ast.NewSignedInt(2, 64)); !overflow {
		t.Fatal("expected overflow")
	}
}

func TestInt_NegOv(t *testing.T) {
	if v, overflow := ast.NewSignedInt(3, 32).NegOv(); overflow || v.Int64() != -3 {
		t.Fatalf("unexpected result: %s overflow=%v", v, overflow)
	}
	if _, overflow := ast.NewSignedInt(math.MinInt32, 32).NegOv(); !overflow {
		t.Fatal("expected overflow")
	}
}

func TestInt_Convert(t *testing.T) {
	t.Run("SignExtend", func(t *testing.T) {
		if v := ast.NewSignedInt(-1, 8).Convert(32, false); v.Int64() != -1 || v.Value != 0xffffffff {
			t.Fatalf("unexpected value: %#v", v)
		}
	})
	t.Run("ZeroExtendUnsigned", func(t *testing.T) {
		if v := ast.NewUnsignedInt(0xff, 8).Convert(32, false); v.Int64() != 255 {
			t.Fatalf("unexpected value: %#v", v)
		}
	})
	t.Run("Truncate", func(t *testing.T) {
		if v := ast.NewSignedInt(0x1234, 32).Convert(8, true); v.Value != 0x34 {
			t.Fatalf("unexpected value: %#v", v)
		}
	})
}

func TestInt_String(t *testing.T) {
	if s := ast.NewSignedInt(-7, 32).String(); s != "-7" {
		t.Fatalf("unexpected string: %s", s)
	}
	if s := ast.NewUnsignedInt(0xffffffff, 32).String(); s != "4294967295" {
		t.Fatalf("unexpected string: %s", s)
	}
}
