package ntbounds

import (
	"bytes"

	"github.com/benbjohnson/immutable"
	"github.com/benbjohnson/ntbounds/ast"
	"golang.org/x/tools/container/intsets"
)

// Bounds represents the bounds of a pointer. It is either Top or a *Range.
type Bounds interface {
	bounds()
	String() string
}

func (Top) bounds()    {}
func (*Range) bounds() {}

// Top represents unconstrained bounds. It is a superset of every range and
// seeds the dataflow sets of every block other than the entry.
type Top struct{}

// String returns "Top".
func (Top) String() string { return "Top" }

// IsTop returns true if b is Top.
func IsTop(b Bounds) bool {
	_, ok := b.(Top)
	return ok
}

// Range represents the bounds [Lower, Upper) of a pointer.
type Range struct {
	Lower ast.Expr
	Upper ast.Expr
}

// String returns the range in Checked C syntax.
func (r *Range) String() string {
	return ast.String(&ast.RangeBoundsExpr{Lower: r.Lower, Upper: r.Upper})
}

// boundsEqual returns true if a and b are syntactically identical.
func boundsEqual(a, b Bounds) bool {
	switch a := a.(type) {
	case Top:
		return IsTop(b)
	case *Range:
		b, ok := b.(*Range)
		return ok && ast.Compare(a.Lower, b.Lower) == ast.Equal && ast.Compare(a.Upper, b.Upper) == ast.Equal
	default:
		return false
	}
}

// BoundsMap is a persistent map of variables to bounds. Updates return a new
// map and leave the receiver unchanged. The zero value is an empty map.
type BoundsMap struct {
	m *immutable.SortedMap
}

type boundsEntry struct {
	v *ast.VarDecl
	b Bounds
}

// NewBoundsMap returns an empty map.
func NewBoundsMap() BoundsMap {
	return BoundsMap{m: immutable.NewSortedMap(&intComparer{})}
}

// Len returns the number of variables in the map.
func (m BoundsMap) Len() int {
	if m.m == nil {
		return 0
	}
	return m.m.Len()
}

// Get returns the bounds of v.
func (m BoundsMap) Get(v *ast.VarDecl) (Bounds, bool) {
	if m.m == nil {
		return nil, false
	}
	value, ok := m.m.Get(v.ID)
	if !ok {
		return nil, false
	}
	return value.(boundsEntry).b, true
}

// Set returns a copy of the map with v set to b.
func (m BoundsMap) Set(v *ast.VarDecl, b Bounds) BoundsMap {
	if m.m == nil {
		m = NewBoundsMap()
	}
	return BoundsMap{m: m.m.Set(v.ID, boundsEntry{v: v, b: b})}
}

// Delete returns a copy of the map without v.
func (m BoundsMap) Delete(v *ast.VarDecl) BoundsMap {
	if m.m == nil {
		return m
	}
	return BoundsMap{m: m.m.Delete(v.ID)}
}

// Each calls fn for every variable in ascending ID order.
func (m BoundsMap) Each(fn func(v *ast.VarDecl, b Bounds)) {
	if m.m == nil {
		return
	}
	itr := m.m.Iterator()
	for !itr.Done() {
		_, value := itr.Next()
		entry := value.(boundsEntry)
		fn(entry.v, entry.b)
	}
}

// Vars returns the variables in the map in ascending ID order.
func (m BoundsMap) Vars() []*ast.VarDecl {
	a := make([]*ast.VarDecl, 0, m.Len())
	m.Each(func(v *ast.VarDecl, b Bounds) { a = append(a, v) })
	return a
}

// Union returns a copy of the map with every entry of other added. Entries
// of other take precedence.
func (m BoundsMap) Union(other BoundsMap) BoundsMap {
	other.Each(func(v *ast.VarDecl, b Bounds) { m = m.Set(v, b) })
	return m
}

// Difference returns a copy of the map without the variables in set.
func (m BoundsMap) Difference(set *VarSet) BoundsMap {
	for _, v := range set.Vars() {
		m = m.Delete(v)
	}
	return m
}

// Restrict returns a copy of the map with only the variables in set.
func (m BoundsMap) Restrict(set *VarSet) BoundsMap {
	m.Each(func(v *ast.VarDecl, b Bounds) {
		if !set.Has(v) {
			m = m.Delete(v)
		}
	})
	return m
}

// Equal returns true if both maps hold syntactically identical bounds for
// the same variables.
func (m BoundsMap) Equal(other BoundsMap) bool {
	if m.Len() != other.Len() {
		return false
	}
	equal := true
	m.Each(func(v *ast.VarDecl, b Bounds) {
		if ob, ok := other.Get(v); !ok || !boundsEqual(b, ob) {
			equal = false
		}
	})
	return equal
}

// String returns a human readable representation of the map.
func (m BoundsMap) String() string {
	var buf bytes.Buffer
	buf.WriteString("{")
	var i int
	m.Each(func(v *ast.VarDecl, b Bounds) {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(v.Name)
		buf.WriteString(": ")
		buf.WriteString(b.String())
		i++
	})
	buf.WriteString("}")
	return buf.String()
}

// intComparer compares variable IDs. Implements immutable.Comparer.
type intComparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not an int.
func (c *intComparer) Compare(a, b interface{}) int {
	if i, j := a.(int), b.(int); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}

// VarSet represents a set of variables keyed by ID.
type VarSet struct {
	ids  intsets.Sparse
	vars map[int]*ast.VarDecl
}

// NewVarSet returns a set containing vars.
func NewVarSet(vars ...*ast.VarDecl) *VarSet {
	s := &VarSet{vars: make(map[int]*ast.VarDecl)}
	for _, v := range vars {
		s.Add(v)
	}
	return s
}

// Add inserts v into the set. Returns true if v was not already present.
func (s *VarSet) Add(v *ast.VarDecl) bool {
	if !s.ids.Insert(v.ID) {
		return false
	}
	s.vars[v.ID] = v
	return true
}

// Has returns true if v is in the set.
func (s *VarSet) Has(v *ast.VarDecl) bool {
	return s != nil && s.ids.Has(v.ID)
}

// Len returns the number of variables in the set.
func (s *VarSet) Len() int {
	if s == nil {
		return 0
	}
	return s.ids.Len()
}

// Vars returns the variables in ascending ID order.
func (s *VarSet) Vars() []*ast.VarDecl {
	if s == nil {
		return nil
	}
	ids := s.ids.AppendTo(nil)
	a := make([]*ast.VarDecl, len(ids))
	for i, id := range ids {
		a[i] = s.vars[id]
	}
	return a
}

// Union returns a new set with the variables of both sets.
func (s *VarSet) Union(other *VarSet) *VarSet {
	u := NewVarSet(s.Vars()...)
	for _, v := range other.Vars() {
		u.Add(v)
	}
	return u
}
