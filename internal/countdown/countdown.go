// Package countdown drives a cooldown.Tracker from a recurring Bubble Tea
// timer. The driver owns at most one live timer: every start or stop bumps a
// tag, and tick messages carrying an older tag are dropped. This mirrors how
// the bubbles timer and spinner components discard stale ticks.
package countdown

import (
	"sync/atomic"
	"time"

	"github.com/roomwatch/roomwatch/internal/clock"
	"github.com/roomwatch/roomwatch/internal/cooldown"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultInterval is how often the remaining time is recomputed.
const DefaultInterval = time.Second

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// TickMsg is delivered once per interval while a countdown is running.
type TickMsg struct {
	ID  int
	At  time.Time
	tag int
}

// ExpiredMsg is sent once when a running countdown reaches zero.
type ExpiredMsg struct {
	ID int
}

// Driver keeps a tracker's remaining time live without polling the server.
type Driver struct {
	id       int
	tag      int
	interval time.Duration
	clk      clock.Clock
	tracker  *cooldown.Tracker

	running  bool
	armedFor time.Time // expiry the live timer was started for
}

// New returns an idle driver bound to tracker.
func New(tracker *cooldown.Tracker, clk clock.Clock, interval time.Duration) *Driver {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Driver{
		id:       nextID(),
		interval: interval,
		clk:      clk,
		tracker:  tracker,
	}
}

// ID identifies this driver's messages.
func (d *Driver) ID() int { return d.id }

// Running reports whether a timer is live.
func (d *Driver) Running() bool { return d.running }

// Interval returns the tick interval.
func (d *Driver) Interval() time.Duration { return d.interval }

// Sync aligns the timer with the tracker and must be called after every
// tracker mutation. A new expiry replaces the live timer; a cleared tracker
// stops it.
func (d *Driver) Sync() tea.Cmd {
	exp, ok := d.tracker.ExpiresAt()
	if !ok {
		d.Stop()
		return nil
	}
	if d.running && exp.Equal(d.armedFor) {
		return nil
	}
	d.tag++
	d.running = true
	d.armedFor = exp
	return d.tick()
}

// Stop cancels the live timer. Ticks already scheduled are ignored.
func (d *Driver) Stop() {
	d.tag++
	d.running = false
	d.armedFor = time.Time{}
}

// Update handles this driver's tick messages and ignores everything else.
func (d *Driver) Update(msg tea.Msg) tea.Cmd {
	tm, ok := msg.(TickMsg)
	if !ok || tm.ID != d.id || tm.tag != d.tag || !d.running {
		return nil
	}

	d.tracker.Recompute(d.clk.Now())
	if !d.tracker.Active() {
		d.Stop()
		id := d.id
		return func() tea.Msg { return ExpiredMsg{ID: id} }
	}
	return d.tick()
}

func (d *Driver) tick() tea.Cmd {
	id, tag := d.id, d.tag
	return tea.Tick(d.interval, func(t time.Time) tea.Msg {
		return TickMsg{ID: id, At: t, tag: tag}
	})
}
