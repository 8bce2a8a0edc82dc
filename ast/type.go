package ast

import (
	"fmt"
	"strings"
)

// TypeKind represents the broad category of a type.
type TypeKind int

// Type kinds.
const (
	Void = TypeKind(iota)
	Char
	Short
	IntKind
	Long
	LongLong
	Pointer    // unchecked T*
	ArrayPtr   // _Array_ptr<T>
	NtArrayPtr // _Nt_array_ptr<T>
	Array
	Struct
)

// Type represents a C type.
type Type struct {
	Kind     TypeKind
	Unsigned bool

	// Pointee or element type for pointer and array kinds.
	Elem *Type

	// Array length. Zero if unknown.
	Len int

	// Struct name and members.
	Name   string
	Fields []*FieldDecl
}

// Predeclared types.
var (
	VoidType         = &Type{Kind: Void}
	CharType         = &Type{Kind: Char}
	ShortType        = &Type{Kind: Short}
	IntType          = &Type{Kind: IntKind}
	UnsignedIntType  = &Type{Kind: IntKind, Unsigned: true}
	LongType         = &Type{Kind: Long}
	UnsignedLongType = &Type{Kind: Long, Unsigned: true}
	LongLongType     = &Type{Kind: LongLong}
)

// PointerTo returns an unchecked pointer to elem.
func PointerTo(elem *Type) *Type { return &Type{Kind: Pointer, Elem: elem} }

// ArrayPtrTo returns an _Array_ptr to elem.
func ArrayPtrTo(elem *Type) *Type { return &Type{Kind: ArrayPtr, Elem: elem} }

// NtArrayPtrTo returns an _Nt_array_ptr to elem.
func NtArrayPtrTo(elem *Type) *Type { return &Type{Kind: NtArrayPtr, Elem: elem} }

// ArrayOf returns an array of n elements of elem.
func ArrayOf(elem *Type, n int) *Type { return &Type{Kind: Array, Elem: elem, Len: n} }

// IsInteger returns true for the integer kinds.
func (t *Type) IsInteger() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case Char, Short, IntKind, Long, LongLong:
		return true
	default:
		return false
	}
}

// IsPointer returns true for checked and unchecked pointers.
func (t *Type) IsPointer() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case Pointer, ArrayPtr, NtArrayPtr:
		return true
	default:
		return false
	}
}

// IsNtArrayPtr returns true if t is a pointer to a null-terminated array.
func (t *Type) IsNtArrayPtr() bool {
	return t != nil && t.Kind == NtArrayPtr
}

// Field returns the named struct member, if any.
func (t *Type) Field(name string) *FieldDecl {
	if t == nil {
		return nil
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// String returns the C spelling of the type.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}

	var prefix string
	if t.Unsigned {
		prefix = "unsigned "
	}

	switch t.Kind {
	case Void:
		return "void"
	case Char:
		return prefix + "char"
	case Short:
		return prefix + "short"
	case IntKind:
		return prefix + "int"
	case Long:
		return prefix + "long"
	case LongLong:
		return prefix + "long long"
	case Pointer:
		return strings.TrimSuffix(t.Elem.String(), " ") + " *"
	case ArrayPtr:
		return fmt.Sprintf("_Array_ptr<%s>", t.Elem)
	case NtArrayPtr:
		return fmt.Sprintf("_Nt_array_ptr<%s>", t.Elem)
	case Array:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Len)
	case Struct:
		return "struct " + t.Name
	default:
		return fmt.Sprintf("Type<%d>", t.Kind)
	}
}
