package render

import "time"

const (
	// resizeQuietWindow is how long resize events must stay quiet before a
	// debounced recreation fires.
	resizeQuietWindow = 200 * time.Millisecond

	// resizeImmediateDelta is the size change, in pixels on either axis,
	// past which recreation happens right away instead of waiting out the
	// quiet window.
	resizeImmediateDelta = 128
)

// resizeDebouncer coalesces resize events so a window drag does not force a
// swapchain recreation on every intermediate size. Only the latest size
// survives.
type resizeDebouncer struct {
	pending       bool
	width, height int

	appliedWidth, appliedHeight int

	deadline time.Time
}

func newResizeDebouncer(width, height int) *resizeDebouncer {
	return &resizeDebouncer{
		appliedWidth:  width,
		appliedHeight: height,
	}
}

// Observe records a resize event at the given time.
func (d *resizeDebouncer) Observe(width, height int, now time.Time) {
	d.pending = true
	d.width, d.height = width, height

	if abs(width-d.appliedWidth) >= resizeImmediateDelta ||
		abs(height-d.appliedHeight) >= resizeImmediateDelta {
		d.deadline = now
		return
	}

	d.deadline = now.Add(resizeQuietWindow)
}

// Ready reports whether a recreation should happen now; when it does, the
// pending size is returned and marked applied.
func (d *resizeDebouncer) Ready(now time.Time) (width, height int, ok bool) {
	if !d.pending || now.Before(d.deadline) {
		return 0, 0, false
	}

	d.pending = false
	d.appliedWidth, d.appliedHeight = d.width, d.height
	return d.width, d.height, true
}

// Applied overrides the last applied size, used when recreation happened
// for reasons other than a resize event (out-of-date acquire).
func (d *resizeDebouncer) Applied(width, height int) {
	d.pending = false
	d.appliedWidth, d.appliedHeight = width, height
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
