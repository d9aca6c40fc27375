// Package varray implements a contiguous, growable, typed slab, ported
// from the original proxy's nc_array: a thin header over a backing slice
// that exposes slot-pointer Push/Pop instead of Go's copy-by-value append,
// so callers can finish initializing a newly pushed element in place.
//
// It backs the hash ring's sorted continuum (see hashring.Ring), which
// needs to swap an entire rebuilt backing store into a live structure
// without disturbing anything else referencing the header. The server
// pool keeps its backend table in a plain slice.
package varray

import "sort"

// Array is a growable slab of T. The zero value is an empty, usable array.
type Array[T any] struct {
	elems []T
}

// New creates an Array with the given initial capacity preallocated.
func New[T any](capacity int) *Array[T] {
	return &Array[T]{elems: make([]T, 0, capacity)}
}

// Len returns the number of elements currently stored.
func (a *Array[T]) Len() int { return len(a.elems) }

// Push grows the array by one element and returns a pointer to the new
// (zero-valued) slot, for the caller to populate.
func (a *Array[T]) Push() *T {
	var zero T
	a.elems = append(a.elems, zero)
	return &a.elems[len(a.elems)-1]
}

// Pop removes and returns the last element. It panics if the array is
// empty.
func (a *Array[T]) Pop() T {
	n := len(a.elems)
	if n == 0 {
		panic("varray: pop of empty array")
	}
	v := a.elems[n-1]
	a.elems = a.elems[:n-1]
	return v
}

// Get returns a pointer to the element at idx, panicking if out of range.
func (a *Array[T]) Get(idx int) *T {
	return &a.elems[idx]
}

// Top returns a pointer to the last element, or nil if the array is empty.
func (a *Array[T]) Top() *T {
	if len(a.elems) == 0 {
		return nil
	}
	return &a.elems[len(a.elems)-1]
}

// Swap exchanges the backing storage of a and b. This is how the hash ring
// hot-swaps a freshly rebuilt continuum into a live Array header without
// allocating a new one or disturbing any other reference to the header
// itself — only the contents change.
func (a *Array[T]) Swap(b *Array[T]) {
	a.elems, b.elems = b.elems, a.elems
}

// Sort orders the elements in place using less as the ordering predicate.
func (a *Array[T]) Sort(less func(i, j T) bool) {
	sort.Slice(a.elems, func(i, j int) bool { return less(a.elems[i], a.elems[j]) })
}

// Each calls fn for every element in order, stopping and returning the
// first non-nil error encountered.
func (a *Array[T]) Each(fn func(idx int, v *T) error) error {
	for i := range a.elems {
		if err := fn(i, &a.elems[i]); err != nil {
			return err
		}
	}
	return nil
}

// Slice returns the backing slice directly, for read-only iteration in
// hot paths (e.g. the ring's binary search) where the Each callback's
// overhead is unwelcome.
func (a *Array[T]) Slice() []T { return a.elems }

// Reset empties the array without releasing its backing storage, so a
// subsequent rebuild can reuse the capacity.
func (a *Array[T]) Reset() { a.elems = a.elems[:0] }
