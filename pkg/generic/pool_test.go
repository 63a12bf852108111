package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type buffer struct{ items []int }

func TestPool(t *testing.T) {
	built := 0
	p := NewPool(func() *buffer {
		built++
		return &buffer{}
	}, func(b *buffer) { b.items = b.items[:0] })

	b := p.Get()
	assert.Equal(t, 1, built)
	b.items = append(b.items, 1, 2, 3)
	p.Put(b)

	// sync.Pool may drop values, but whatever comes back is empty
	again := p.Get()
	assert.Empty(t, again.items)
}

func TestPool_NilReset(t *testing.T) {
	p := NewPool(func() int { return 7 }, nil)
	assert.Equal(t, 7, p.Get())
	p.Put(3)
}
