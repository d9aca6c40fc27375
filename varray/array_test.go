package varray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArray_PushPopGet(t *testing.T) {
	a := New[int](0)
	*a.Push() = 1
	*a.Push() = 2
	*a.Push() = 3
	require.Equal(t, 3, a.Len())
	assert.Equal(t, 3, *a.Top())

	v := a.Pop()
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, *a.Get(1))
}

func TestArray_PopEmptyPanics(t *testing.T) {
	a := New[int](0)
	assert.Panics(t, func() { a.Pop() })
}

func TestArray_SwapHotSwapsBackingStore(t *testing.T) {
	a := New[string](0)
	*a.Push() = "old"

	b := New[string](0)
	*b.Push() = "new1"
	*b.Push() = "new2"

	a.Swap(b)
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, "new1", *a.Get(0))
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, "old", *b.Get(0))
}

func TestArray_Sort(t *testing.T) {
	a := New[int](0)
	for _, v := range []int{5, 3, 4, 1, 2} {
		*a.Push() = v
	}
	a.Sort(func(i, j int) bool { return i < j })
	assert.Equal(t, []int{1, 2, 3, 4, 5}, a.Slice())
}

func TestArray_EachStopsOnError(t *testing.T) {
	a := New[int](0)
	for i := 0; i < 5; i++ {
		*a.Push() = i
	}
	var seen []int
	err := a.Each(func(idx int, v *int) error {
		seen = append(seen, *v)
		if *v == 2 {
			return assert.AnError
		}
		return nil
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestArray_Reset(t *testing.T) {
	a := New[int](4)
	*a.Push() = 1
	*a.Push() = 2
	a.Reset()
	assert.Equal(t, 0, a.Len())
	*a.Push() = 9
	assert.Equal(t, 9, *a.Get(0))
}
