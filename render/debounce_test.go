package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeBurstCoalescesToLatestSize(t *testing.T) {
	d := newResizeDebouncer(800, 600)
	now := time.Now()

	// A drag-resize delivers a stream of small deltas.
	for i := 1; i <= 20; i++ {
		d.Observe(800+i, 600+i, now.Add(time.Duration(i)*5*time.Millisecond))
	}

	last := now.Add(100 * time.Millisecond)

	_, _, ok := d.Ready(last.Add(50 * time.Millisecond))
	assert.False(t, ok, "must stay quiet inside the debounce window")

	w, h, ok := d.Ready(last.Add(resizeQuietWindow))
	require.True(t, ok)
	assert.Equal(t, 820, w)
	assert.Equal(t, 620, h)

	_, _, ok = d.Ready(last.Add(time.Second))
	assert.False(t, ok, "an applied resize must not fire again")
}

func TestLargeDeltaAppliesImmediately(t *testing.T) {
	d := newResizeDebouncer(800, 600)
	now := time.Now()

	d.Observe(800+resizeImmediateDelta, 600, now)

	w, h, ok := d.Ready(now)
	require.True(t, ok)
	assert.Equal(t, 800+resizeImmediateDelta, w)
	assert.Equal(t, 600, h)
}

func TestSmallDeltaWaitsOutTheQuietWindow(t *testing.T) {
	d := newResizeDebouncer(800, 600)
	now := time.Now()

	d.Observe(810, 600, now)

	_, _, ok := d.Ready(now)
	assert.False(t, ok)

	_, _, ok = d.Ready(now.Add(resizeQuietWindow - time.Millisecond))
	assert.False(t, ok)

	_, _, ok = d.Ready(now.Add(resizeQuietWindow))
	assert.True(t, ok)
}

func TestImmediateDeltaMeasuredFromAppliedSize(t *testing.T) {
	d := newResizeDebouncer(800, 600)
	now := time.Now()

	// Creep past the threshold in small steps; each step alone is small
	// but the distance from the applied size grows.
	d.Observe(860, 600, now)
	d.Observe(920, 600, now.Add(time.Millisecond))
	d.Observe(980, 600, now.Add(2*time.Millisecond))

	w, _, ok := d.Ready(now.Add(2 * time.Millisecond))
	require.True(t, ok, "cumulative drift past the threshold fires immediately")
	assert.Equal(t, 980, w)
}

func TestAppliedSuppressesPendingResize(t *testing.T) {
	d := newResizeDebouncer(800, 600)
	now := time.Now()

	d.Observe(810, 605, now)

	// An out-of-date present already forced a recreation at this size.
	d.Applied(810, 605)

	_, _, ok := d.Ready(now.Add(time.Second))
	assert.False(t, ok)
}
