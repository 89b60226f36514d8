//go:build debug

// Package check holds invariant assertions that only fire in builds tagged
// debug.
package check

// Assert panics with msg when cond is false.
func Assert(cond bool, msg string) {
	if !cond {
		panic("assertion failed: " + msg)
	}
}
