package livecontext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingFIFO(t *testing.T) {
	r := NewRing[int](3)
	assert.Equal(t, 3, r.Cap())

	assert.False(t, r.Push(1))
	assert.False(t, r.Push(2))
	assert.False(t, r.Push(3))
	assert.Equal(t, []int{1, 2, 3}, r.Items())

	assert.True(t, r.Push(4))
	assert.True(t, r.Push(5))
	assert.Equal(t, []int{3, 4, 5}, r.Items())
	assert.Equal(t, 3, r.Len())

	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, 5, last)
}

func TestRingFilterAndClear(t *testing.T) {
	r := NewRing[int](4)
	for i := 1; i <= 6; i++ {
		r.Push(i)
	}
	assert.Equal(t, []int{4, 6}, r.Filter(func(v int) bool { return v%2 == 0 }))

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Items())
	_, ok := r.Last()
	assert.False(t, ok)
}

func TestRingMinimumCapacity(t *testing.T) {
	r := NewRing[string](0)
	assert.Equal(t, 1, r.Cap())
	r.Push("a")
	r.Push("b")
	assert.Equal(t, []string{"b"}, r.Items())
}

func TestRingAtPanicsOutOfRange(t *testing.T) {
	r := NewRing[int](2)
	r.Push(1)
	assert.Panics(t, func() { r.At(1) })
}
