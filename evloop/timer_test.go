package evloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerWheel_FiresInDeadlineOrder(t *testing.T) {
	var w TimerWheel
	var order []string

	w.Schedule(300, func() { order = append(order, "c") })
	w.Schedule(100, func() { order = append(order, "a") })
	w.Schedule(200, func() { order = append(order, "b") })

	w.FireDue(250)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, w.Len())

	w.FireDue(1000)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, w.Len())
}

func TestTimerWheel_CancelSkipsCallback(t *testing.T) {
	var w TimerWheel
	fired := false
	timer := w.Schedule(100, func() { fired = true })
	timer.Cancel()

	w.FireDue(1000)
	assert.False(t, fired)
}

func TestTimerWheel_NextDeadline_SkipsCanceledRoot(t *testing.T) {
	var w TimerWheel
	t1 := w.Schedule(50, func() {})
	w.Schedule(150, func() {})
	t1.Cancel()

	d, ok := w.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, int64(150), d)
}

func TestTimerWheel_EmptyHasNoDeadline(t *testing.T) {
	var w TimerWheel
	_, ok := w.NextDeadline()
	assert.False(t, ok)
}
