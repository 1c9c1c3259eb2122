package tui

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/roomwatch/roomwatch/internal/apiclient"
	"github.com/roomwatch/roomwatch/internal/clock"
	"github.com/roomwatch/roomwatch/internal/cooldown"
	"github.com/roomwatch/roomwatch/internal/countdown"
	"github.com/roomwatch/roomwatch/internal/model"
)

// BoardPageID identifies the classroom board page.
const BoardPageID = "board"

// LoadErrorMessage is shown in place of the classroom list when the latest
// fetch failed.
const LoadErrorMessage = "Failed to load classrooms. Please try again later."

// step tags a result message with its place in a refresh cycle. Results
// outside a cycle carry stepNone.
type step int

const (
	stepNone step = iota
	stepRefreshReconcile
	stepRefreshFetch
	stepRefreshFollowUp
)

type cooldownStatusMsg struct {
	status model.CooldownStatus
	err    error
	step   step
}

type classroomsMsg struct {
	data model.OpenClassrooms
	err  error
	step step
}

type refreshMsg struct {
	result model.RefreshResult
	err    error
}

// BoardConfig wires a Board to its collaborators.
type BoardConfig struct {
	API            model.ClassroomAPI
	Clock          clock.Clock
	Logger         *slog.Logger
	Location       *time.Location
	TickInterval   time.Duration
	RequestTimeout time.Duration
}

// Board shows open classrooms and owns the refresh/cooldown state. All
// fields are touched only from the Bubble Tea update loop.
type Board struct {
	api     model.ClassroomAPI
	clk     clock.Clock
	log     *slog.Logger
	loc     *time.Location
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	tracker   *cooldown.Tracker
	countdown *countdown.Driver

	refreshing      bool
	cooldownLoading int

	lastUpdated    time.Time
	hasLastUpdated bool

	buildings    model.Buildings
	buildingsErr string
	loaded       bool

	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model
	width    int
	height   int
}

// NewBoard creates the board page. Nothing is fetched until Init.
func NewBoard(cfg BoardConfig) *Board {
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = model.DefaultRequestTimeout
	}

	tracker := cooldown.NewTracker(cfg.Clock)
	ctx, cancel := context.WithCancel(context.Background())

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &Board{
		api:       cfg.API,
		clk:       cfg.Clock,
		log:       cfg.Logger.With("component", "board"),
		loc:       cfg.Location,
		timeout:   cfg.RequestTimeout,
		ctx:       ctx,
		cancel:    cancel,
		tracker:   tracker,
		countdown: countdown.New(tracker, cfg.Clock, cfg.TickInterval),
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		viewport:  viewport.New(0, 0),
	}
}

func (b *Board) ID() string { return BoardPageID }

// Init fetches the latest data and reconciles the cooldown independently.
func (b *Board) Init() tea.Cmd {
	return tea.Batch(b.FetchLatestData(), b.ReconcileCooldownStatus(), b.spinner.Tick)
}

// ReconcileCooldownStatus asks the server whether a cooldown is running and
// mirrors the answer into the tracker.
func (b *Board) ReconcileCooldownStatus() tea.Cmd {
	return b.reconcile(stepNone)
}

func (b *Board) reconcile(s step) tea.Cmd {
	if b.closed {
		return nil
	}
	b.cooldownLoading++
	ctx, api, timeout := b.ctx, b.api, b.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		status, err := api.CooldownStatus(ctx)
		return cooldownStatusMsg{status: status, err: err, step: s}
	}
}

// FetchLatestData loads the classroom list and the server's last scrape time.
func (b *Board) FetchLatestData() tea.Cmd {
	return b.fetch(stepNone)
}

func (b *Board) fetch(s step) tea.Cmd {
	if b.closed {
		return nil
	}
	ctx, api, timeout := b.ctx, b.api, b.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		data, err := api.OpenClassrooms(ctx)
		return classroomsMsg{data: data, err: err, step: s}
	}
}

// TriggerRefresh asks the server to rescrape. It does nothing while a
// cooldown is running or another refresh is still in flight.
func (b *Board) TriggerRefresh() tea.Cmd {
	if b.closed || b.refreshing {
		return nil
	}
	if remaining, ok := b.tracker.Remaining(); ok && remaining > 0 {
		return nil
	}

	b.refreshing = true
	b.tracker.Clear()
	b.countdown.Stop()

	ctx, api, timeout := b.ctx, b.api, b.timeout
	return tea.Batch(b.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		result, err := api.Refresh(ctx)
		return refreshMsg{result: result, err: err}
	})
}

// Close discards all later results and stops the countdown.
func (b *Board) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.cancel()
	b.countdown.Stop()
}

func (b *Board) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	if b.closed {
		return nil, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
		return nil, nil

	case tea.KeyMsg:
		return b.handleKey(msg)

	case cooldownStatusMsg:
		return b.handleCooldownStatus(msg), nil

	case classroomsMsg:
		return b.handleClassrooms(msg), nil

	case refreshMsg:
		return b.handleRefresh(msg), nil

	case countdown.TickMsg, countdown.ExpiredMsg:
		return b.countdown.Update(msg), nil

	case spinner.TickMsg:
		if !b.busy() {
			return nil, nil
		}
		var cmd tea.Cmd
		b.spinner, cmd = b.spinner.Update(msg)
		return cmd, nil
	}

	var cmd tea.Cmd
	b.viewport, cmd = b.viewport.Update(msg)
	return cmd, nil
}

func (b *Board) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	switch {
	case key.Matches(msg, b.keys.Refresh):
		return b.TriggerRefresh(), nil
	case key.Matches(msg, b.keys.Notes):
		return nil, &PageNav{PageID: NotesPageID}
	case key.Matches(msg, b.keys.Help):
		b.help.ShowAll = !b.help.ShowAll
		b.resize(b.width, b.height)
		return nil, nil
	}
	var cmd tea.Cmd
	b.viewport, cmd = b.viewport.Update(msg)
	return cmd, nil
}

func (b *Board) handleCooldownStatus(msg cooldownStatusMsg) tea.Cmd {
	if b.cooldownLoading > 0 {
		b.cooldownLoading--
	}

	var tick tea.Cmd
	if msg.err != nil {
		b.log.Warn("cooldown status failed", "err", msg.err)
	} else {
		if msg.status.InCooldown {
			b.tracker.SetActive(msg.status.RemainingMinutes)
		} else {
			b.tracker.Clear()
		}
		tick = b.countdown.Sync()
	}

	switch msg.step {
	case stepRefreshReconcile:
		return tea.Batch(tick, b.fetch(stepRefreshFetch))
	case stepRefreshFollowUp:
		b.refreshing = false
	}
	return tick
}

func (b *Board) handleClassrooms(msg classroomsMsg) tea.Cmd {
	if msg.err != nil {
		b.log.Warn("load classrooms failed", "err", msg.err)
		b.buildingsErr = LoadErrorMessage
		if msg.step == stepRefreshFetch {
			b.refreshing = false
		}
		return nil
	}

	b.buildings = msg.data.Buildings
	if b.buildings == nil {
		b.buildings = model.Buildings{}
	}
	b.buildingsErr = ""
	b.loaded = true

	if msg.data.LastUpdated == nil {
		if msg.step == stepRefreshFetch {
			b.refreshing = false
		}
		return nil
	}

	if ts, err := model.ParseTimestamp(*msg.data.LastUpdated); err != nil {
		b.log.Warn("bad last_updated", "value", *msg.data.LastUpdated, "err", err)
	} else {
		b.setLastUpdated(ts)
	}

	if msg.step == stepRefreshFetch {
		return b.reconcile(stepRefreshFollowUp)
	}
	return b.reconcile(stepNone)
}

func (b *Board) handleRefresh(msg refreshMsg) tea.Cmd {
	if msg.err != nil {
		if apiclient.IsStatus(msg.err, http.StatusTooManyRequests) {
			b.log.Info("refresh rejected", "reason", apiclient.ErrorMessage(msg.err))
		} else {
			b.log.Warn("refresh failed", "err", msg.err)
		}
		var tick tea.Cmd
		if minutes, ok := cooldown.ParseWaitMinutes(apiclient.ErrorMessage(msg.err)); ok {
			b.tracker.SetActive(minutes)
			tick = b.countdown.Sync()
		}
		b.refreshing = false
		return tick
	}

	if ts, err := model.ParseTimestamp(msg.result.Timestamp); err != nil {
		b.log.Warn("bad refresh timestamp", "value", msg.result.Timestamp, "err", err)
	} else {
		b.lastUpdated = ts
		b.hasLastUpdated = true
	}
	return b.reconcile(stepRefreshReconcile)
}

// setLastUpdated only moves the timestamp forward. Equal timestamps are
// accepted.
func (b *Board) setLastUpdated(ts time.Time) {
	if b.hasLastUpdated && ts.Before(b.lastUpdated) {
		return
	}
	b.lastUpdated = ts
	b.hasLastUpdated = true
}

func (b *Board) busy() bool {
	return b.refreshing || b.cooldownLoading > 0 || (!b.loaded && b.buildingsErr == "")
}

// Refreshing reports whether a refresh cycle is in flight.
func (b *Board) Refreshing() bool { return b.refreshing }

// CooldownLoading reports whether any cooldown reconciliation is in flight.
func (b *Board) CooldownLoading() bool { return b.cooldownLoading > 0 }

// LastUpdated returns the newest known scrape time.
func (b *Board) LastUpdated() (time.Time, bool) { return b.lastUpdated, b.hasLastUpdated }

// Buildings returns the latest classroom snapshot and the load error, if any.
func (b *Board) Buildings() (model.Buildings, string) { return b.buildings, b.buildingsErr }

// Tracker exposes the cooldown state.
func (b *Board) Tracker() *cooldown.Tracker { return b.tracker }

// Countdown exposes the countdown driver.
func (b *Board) Countdown() *countdown.Driver { return b.countdown }
