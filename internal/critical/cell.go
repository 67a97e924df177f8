// SPDX-License-Identifier: MIT
//
// Package critical provides the exclusive-access cell shared between the
// foreground loop and interrupt handlers. A Cell plays the part of a global
// guarded by masking interrupts: every access runs the whole closure with
// the competing context locked out, and nothing escapes the closure.
package critical

import "sync"

// Cell owns a value that is shared between execution contexts.
type Cell[T any] struct {
	mu    sync.Mutex
	value *T
}

// NewCell moves v into a new cell.
func NewCell[T any](v *T) *Cell[T] {
	return &Cell[T]{value: v}
}

// With runs fn with exclusive access to the value. fn must not retain the
// pointer after it returns.
func (c *Cell[T]) With(fn func(v *T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.value)
}

// Free runs fn like With and returns its result.
func Free[T, R any](c *Cell[T], fn func(v *T) R) R {
	var r R
	c.With(func(v *T) { r = fn(v) })
	return r
}
