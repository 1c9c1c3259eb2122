package cooldown

import (
	"time"

	"github.com/roomwatch/roomwatch/internal/clock"
)

// Tracker holds the believed cooldown expiry and the remaining minutes
// derived from it. Remaining is present exactly when an expiry is present,
// and is then always greater than zero.
//
// Tracker does no I/O and is not safe for concurrent use; it is owned by a
// single view and mutated from its update loop.
type Tracker struct {
	clk clock.Clock

	active    bool
	expiresAt time.Time
	remaining float64 // minutes
}

// NewTracker returns an empty tracker. A nil clock uses the system clock.
func NewTracker(clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Tracker{clk: clk}
}

// SetActive starts a cooldown lasting durationMinutes from now.
// Non-positive durations clear the tracker instead.
func (t *Tracker) SetActive(durationMinutes float64) {
	if durationMinutes <= 0 {
		t.Clear()
		return
	}
	t.active = true
	t.expiresAt = t.clk.Now().Add(minutesToDuration(durationMinutes))
	t.remaining = durationMinutes
}

// Clear drops any cooldown. Calling it repeatedly has no further effect.
func (t *Tracker) Clear() {
	t.active = false
	t.expiresAt = time.Time{}
	t.remaining = 0
}

// Recompute derives the remaining minutes from the expiry and now, clearing
// the tracker once nothing remains. The expiry itself is never moved.
func (t *Tracker) Recompute(now time.Time) {
	if !t.active {
		return
	}
	remaining := t.expiresAt.Sub(now).Minutes()
	if remaining <= 0 {
		t.Clear()
		return
	}
	t.remaining = remaining
}

// Active reports whether a cooldown is currently believed to be running.
func (t *Tracker) Active() bool {
	return t.active
}

// Remaining returns the remaining minutes, or false when no cooldown is set.
func (t *Tracker) Remaining() (float64, bool) {
	if !t.active {
		return 0, false
	}
	return t.remaining, true
}

// ExpiresAt returns the believed expiry instant, or false when none is set.
func (t *Tracker) ExpiresAt() (time.Time, bool) {
	if !t.active {
		return time.Time{}, false
	}
	return t.expiresAt, true
}

// RemainingDuration is Remaining expressed as a time.Duration, zero when idle.
func (t *Tracker) RemainingDuration() time.Duration {
	if !t.active {
		return 0
	}
	return minutesToDuration(t.remaining)
}

func minutesToDuration(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}
