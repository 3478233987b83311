package inject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toitlang/wlansim/sim/wlan/ieee80211"
)

func numbered(n int) ieee80211.Frame {
	var f ieee80211.Frame
	f.Sequence = uint16(n)
	return f
}

func TestQueueFIFOAcrossGrowth(t *testing.T) {
	var q Queue
	next, expect := 0, 0
	// interleave pushes and pops so the ring wraps before it grows
	for round := 0; round < 10; round++ {
		for i := 0; i < 7; i++ {
			q.Push(numbered(next))
			next++
		}
		for i := 0; i < 4; i++ {
			f, ok := q.Pop()
			require.True(t, ok)
			require.Equal(t, uint16(expect), f.Sequence)
			expect++
		}
	}
	assert.Equal(t, next-expect, q.Len())
	for q.Len() > 0 {
		f, _ := q.Pop()
		require.Equal(t, uint16(expect), f.Sequence)
		expect++
	}
	assert.Equal(t, next, expect)

	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestQueueClear(t *testing.T) {
	var q Queue
	for i := 0; i < 20; i++ {
		q.Push(numbered(i))
	}
	q.Clear()
	assert.Equal(t, 0, q.Len())
	q.Push(numbered(99))
	f, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, uint16(99), f.Sequence)
}
