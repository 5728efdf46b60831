// Package clock tracks elapsed call time and renders it as HH:MM:SS.
package clock

import (
	"fmt"
	"time"
)

// Zero is the display shown whenever no call is active.
const Zero = "00:00:00"

// TickInterval is how often the session loop refreshes the display.
const TickInterval = time.Second

// Clock is the per-activation session clock. It is owned by the session loop.
type Clock struct {
	start   time.Time
	display string
}

// New returns a cleared clock.
func New() *Clock {
	return &Clock{display: Zero}
}

// Start records the start instant. Only the first call per active call counts.
func (c *Clock) Start(now time.Time) {
	if !c.start.IsZero() {
		return
	}
	c.start = now
	c.display = Zero
}

// Reset clears the start instant and the display.
func (c *Clock) Reset() {
	c.start = time.Time{}
	c.display = Zero
}

// Started reports whether a start instant is recorded.
func (c *Clock) Started() bool {
	return !c.start.IsZero()
}

// Tick recomputes the display for now. When the call is not active the clock
// is cleared.
func (c *Clock) Tick(now time.Time, active bool) string {
	if !active {
		c.Reset()
		return c.display
	}
	if c.start.IsZero() {
		return c.display
	}
	c.display = Format(now.Sub(c.start))
	return c.display
}

// Elapsed returns time since the start instant, or zero if not started.
func (c *Clock) Elapsed(now time.Time) time.Duration {
	if c.start.IsZero() {
		return 0
	}
	return now.Sub(c.start)
}

// Display returns the last rendered value.
func (c *Clock) Display() string {
	if c.display == "" {
		return Zero
	}
	return c.display
}

// Format renders d floored to whole seconds as zero-padded HH:MM:SS.
// Hours are not wrapped at 24.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
