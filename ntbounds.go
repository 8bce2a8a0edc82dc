// Package ntbounds implements bounds widening for null-terminated array
// pointers.
//
// A null-terminated pointer p with bounds(lo, hi) may be read at hi since the
// element there may be the terminator. Once a branch tests that *hi is not
// null, the upper bound of p can be widened by one on the true edge. The
// analysis propagates widened bounds forward through the control flow graph
// until a fixed point is reached.
package ntbounds

import (
	"fmt"
)

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
