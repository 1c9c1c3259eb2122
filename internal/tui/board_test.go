package tui

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/roomwatch/roomwatch/internal/apiclient"
	"github.com/roomwatch/roomwatch/internal/clock"
	"github.com/roomwatch/roomwatch/internal/countdown"
	"github.com/roomwatch/roomwatch/internal/logging"
	"github.com/roomwatch/roomwatch/internal/model"
)

type fakeAPI struct {
	calls   []string
	ctxErrs []error

	open    model.OpenClassrooms
	openErr error

	status    model.CooldownStatus
	statusErr error

	refresh    model.RefreshResult
	refreshErr error
}

func (f *fakeAPI) record(ctx context.Context, name string) {
	f.calls = append(f.calls, name)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
}

func (f *fakeAPI) OpenClassrooms(ctx context.Context) (model.OpenClassrooms, error) {
	f.record(ctx, "open")
	return f.open, f.openErr
}

func (f *fakeAPI) CooldownStatus(ctx context.Context) (model.CooldownStatus, error) {
	f.record(ctx, "status")
	return f.status, f.statusErr
}

func (f *fakeAPI) Refresh(ctx context.Context) (model.RefreshResult, error) {
	f.record(ctx, "refresh")
	return f.refresh, f.refreshErr
}

func (f *fakeAPI) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func strPtr(s string) *string { return &s }

var boardStart = time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)

func newTestBoard(api *fakeAPI) (*Board, *clock.Fake) {
	clk := clock.NewFake(boardStart)
	b := NewBoard(BoardConfig{
		API:          api,
		Clock:        clk,
		Logger:       logging.Discard(),
		Location:     time.UTC,
		TickInterval: time.Millisecond,
	})
	return b, clk
}

// pump runs cmd and feeds every resulting message back into the board until
// nothing is left. Countdown ticks are collected instead of delivered.
func pump(b *Board, cmd tea.Cmd) []countdown.TickMsg {
	var ticks []countdown.TickMsg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case countdown.TickMsg:
			ticks = append(ticks, msg)
		case spinner.TickMsg:
		default:
			next, _ := b.Update(msg)
			queue = append(queue, next)
		}
	}
	return ticks
}

func sampleBuildings() model.Buildings {
	return model.Buildings{
		"CAS": {Code: "CAS", Name: "College of Arts & Sciences", Classrooms: []model.Classroom{
			{ID: "342", Name: "116", Availability: []model.Slot{{Start: "14:00", End: "16:30"}}},
			{ID: "344", Name: "201", Availability: []model.Slot{{Start: "18:00", End: "20:00"}}},
		}},
	}
}

func TestBoardInitFetchesAndReconciles(t *testing.T) {
	api := &fakeAPI{
		open:   model.OpenClassrooms{Buildings: sampleBuildings(), LastUpdated: strPtr("2025-03-04T14:00:00Z")},
		status: model.CooldownStatus{InCooldown: true, RemainingMinutes: 12},
	}
	b, _ := newTestBoard(api)

	cmd := b.Init()
	if !b.CooldownLoading() {
		t.Fatalf("CooldownLoading() = false right after Init, want true")
	}
	pump(b, cmd)

	if got := api.count("open"); got != 1 {
		t.Fatalf("open calls = %d, want 1", got)
	}
	// One from Init, one follow-up because the server has data.
	if got := api.count("status"); got != 2 {
		t.Fatalf("status calls = %d, want 2", got)
	}
	if b.CooldownLoading() {
		t.Fatalf("CooldownLoading() = true after all results, want false")
	}
	if rem, ok := b.Tracker().Remaining(); !ok || rem != 12 {
		t.Fatalf("Remaining() = (%v, %v), want (12, true)", rem, ok)
	}
	if !b.Countdown().Running() {
		t.Fatalf("countdown not running with an active cooldown")
	}
}

func TestBoardReconcileInactiveClears(t *testing.T) {
	api := &fakeAPI{status: model.CooldownStatus{InCooldown: false}}
	b, _ := newTestBoard(api)
	b.Tracker().SetActive(3)

	pump(b, b.ReconcileCooldownStatus())

	if b.Tracker().Active() {
		t.Fatalf("tracker still active after server reported no cooldown")
	}
	if b.Countdown().Running() {
		t.Fatalf("countdown still running after clear")
	}
}

func TestBoardReconcileFailureKeepsState(t *testing.T) {
	api := &fakeAPI{statusErr: &apiclient.APIError{StatusCode: http.StatusBadGateway, Message: "Bad Gateway"}}
	b, _ := newTestBoard(api)
	b.Tracker().SetActive(3)

	pump(b, b.ReconcileCooldownStatus())

	if rem, ok := b.Tracker().Remaining(); !ok || rem != 3 {
		t.Fatalf("Remaining() = (%v, %v), want (3, true)", rem, ok)
	}
	if b.CooldownLoading() {
		t.Fatalf("CooldownLoading() = true after failure, want false")
	}
}

func TestBoardFetchSuccess(t *testing.T) {
	api := &fakeAPI{open: model.OpenClassrooms{Buildings: sampleBuildings(), LastUpdated: strPtr("2025-03-04T14:00:00Z")}}
	b, _ := newTestBoard(api)
	b.buildingsErr = LoadErrorMessage

	pump(b, b.FetchLatestData())

	buildings, errText := b.Buildings()
	if errText != "" {
		t.Fatalf("error = %q, want cleared", errText)
	}
	if len(buildings) != 1 {
		t.Fatalf("len(buildings) = %d, want 1", len(buildings))
	}
	ts, ok := b.LastUpdated()
	if !ok || !ts.Equal(time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("LastUpdated() = (%v, %v), want 14:00", ts, ok)
	}
	if got := api.count("status"); got != 1 {
		t.Fatalf("status calls = %d, want 1 follow-up", got)
	}
}

func TestBoardFetchWithoutTimestampSkipsReconcile(t *testing.T) {
	api := &fakeAPI{open: model.OpenClassrooms{Buildings: sampleBuildings()}}
	b, _ := newTestBoard(api)

	pump(b, b.FetchLatestData())

	if got := api.count("status"); got != 0 {
		t.Fatalf("status calls = %d, want 0", got)
	}
	if _, ok := b.LastUpdated(); ok {
		t.Fatalf("LastUpdated set without a server timestamp")
	}
}

func TestBoardFetchMissingBuildingsIsEmpty(t *testing.T) {
	api := &fakeAPI{}
	b, _ := newTestBoard(api)

	pump(b, b.FetchLatestData())

	buildings, _ := b.Buildings()
	if buildings == nil || len(buildings) != 0 {
		t.Fatalf("buildings = %#v, want empty non-nil", buildings)
	}
}

func TestBoardFetchFailureKeepsSnapshot(t *testing.T) {
	api := &fakeAPI{open: model.OpenClassrooms{Buildings: sampleBuildings()}}
	b, _ := newTestBoard(api)
	pump(b, b.FetchLatestData())

	api.openErr = errors.New("connection refused")
	pump(b, b.FetchLatestData())

	buildings, errText := b.Buildings()
	if errText != LoadErrorMessage {
		t.Fatalf("error = %q, want %q", errText, LoadErrorMessage)
	}
	if len(buildings) != 1 {
		t.Fatalf("snapshot replaced on failure")
	}
}

func TestBoardLastUpdatedIsMonotonic(t *testing.T) {
	b, _ := newTestBoard(&fakeAPI{})
	t1 := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)

	b.setLastUpdated(t1)
	b.setLastUpdated(t1.Add(-time.Minute))
	if got, _ := b.LastUpdated(); !got.Equal(t1) {
		t.Fatalf("older timestamp overwrote newer: got %v, want %v", got, t1)
	}

	same := t1.In(time.FixedZone("EST", -5*3600))
	b.setLastUpdated(same)
	if got, _ := b.LastUpdated(); got.Location() != same.Location() {
		t.Fatalf("equal timestamp not accepted")
	}

	t2 := t1.Add(time.Minute)
	b.setLastUpdated(t2)
	if got, _ := b.LastUpdated(); !got.Equal(t2) {
		t.Fatalf("LastUpdated = %v, want %v", got, t2)
	}
}

func TestBoardOutOfOrderFetchKeepsNewerTimestamp(t *testing.T) {
	api := &fakeAPI{open: model.OpenClassrooms{LastUpdated: strPtr("2025-03-04T14:00:00Z")}}
	b, _ := newTestBoard(api)
	pump(b, b.FetchLatestData())

	api.open.LastUpdated = strPtr("2025-03-04T13:00:00Z")
	pump(b, b.FetchLatestData())

	if got, _ := b.LastUpdated(); got.Hour() != 14 {
		t.Fatalf("LastUpdated hour = %d, want 14", got.Hour())
	}
}

func TestBoardTriggerRefreshNoopDuringCooldown(t *testing.T) {
	api := &fakeAPI{}
	b, _ := newTestBoard(api)
	b.Tracker().SetActive(5)
	expBefore, _ := b.Tracker().ExpiresAt()

	if cmd := b.TriggerRefresh(); cmd != nil {
		t.Fatalf("TriggerRefresh returned a command during cooldown")
	}
	if len(api.calls) != 0 {
		t.Fatalf("calls = %v, want none", api.calls)
	}
	if b.Refreshing() {
		t.Fatalf("Refreshing() = true, want false")
	}
	rem, _ := b.Tracker().Remaining()
	exp, _ := b.Tracker().ExpiresAt()
	if rem != 5 || !exp.Equal(expBefore) {
		t.Fatalf("tracker changed: remaining %v expires %v", rem, exp)
	}
}

func TestBoardTriggerRefreshNoopWhileRefreshing(t *testing.T) {
	api := &fakeAPI{refresh: model.RefreshResult{Timestamp: "2025-03-04T15:00:00Z"}}
	b, _ := newTestBoard(api)

	first := b.TriggerRefresh()
	if first == nil {
		t.Fatalf("first TriggerRefresh returned nil")
	}
	if second := b.TriggerRefresh(); second != nil {
		t.Fatalf("second TriggerRefresh returned a command while refreshing")
	}
}

func TestBoardTriggerRefreshSuccess(t *testing.T) {
	api := &fakeAPI{
		refresh: model.RefreshResult{Message: "Data refreshed successfully", Timestamp: "2024-01-01T10:00:00Z"},
		status:  model.CooldownStatus{InCooldown: true, RemainingMinutes: 30},
		// The classroom payload lags behind the refresh response.
		open: model.OpenClassrooms{Buildings: sampleBuildings(), LastUpdated: strPtr("2024-01-01T09:00:00Z")},
	}
	b, _ := newTestBoard(api)

	cmd := b.TriggerRefresh()
	if !b.Refreshing() {
		t.Fatalf("Refreshing() = false after trigger, want true")
	}
	pump(b, cmd)

	want := []string{"refresh", "status", "open", "status"}
	if strings.Join(api.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", api.calls, want)
	}
	if b.Refreshing() {
		t.Fatalf("Refreshing() = true after cycle, want false")
	}
	ts, _ := b.LastUpdated()
	if !ts.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("LastUpdated = %v, want 2024-01-01T10:00:00Z", ts)
	}
	if rem, ok := b.Tracker().Remaining(); !ok || rem != 30 {
		t.Fatalf("Remaining() = (%v, %v), want (30, true)", rem, ok)
	}
}

func TestBoardRefreshingHeldUntilFetchCompletes(t *testing.T) {
	api := &fakeAPI{refresh: model.RefreshResult{Timestamp: "2024-01-01T10:00:00Z"}}
	b, _ := newTestBoard(api)

	refreshCmd := b.TriggerRefresh()
	var refreshResult tea.Msg
	for _, c := range refreshCmd().(tea.BatchMsg) {
		if msg, ok := c().(refreshMsg); ok {
			refreshResult = msg
		}
	}
	reconcileCmd, _ := b.Update(refreshResult)
	if !b.Refreshing() {
		t.Fatalf("Refreshing() = false before follow-ups ran")
	}
	pump(b, reconcileCmd)
	if b.Refreshing() {
		t.Fatalf("Refreshing() = true after follow-ups, want false")
	}
}

func TestBoardTriggerRefreshCooldownRejection(t *testing.T) {
	api := &fakeAPI{refreshErr: &apiclient.APIError{
		StatusCode: http.StatusTooManyRequests,
		Message:    "Please wait 2.5 more minutes",
	}}
	b, clk := newTestBoard(api)

	ticks := pump(b, b.TriggerRefresh())

	if b.Refreshing() {
		t.Fatalf("Refreshing() = true after failure, want false")
	}
	if rem, ok := b.Tracker().Remaining(); !ok || rem != 2.5 {
		t.Fatalf("Remaining() = (%v, %v), want (2.5, true)", rem, ok)
	}
	if len(ticks) != 1 {
		t.Fatalf("pending ticks = %d, want 1", len(ticks))
	}
	if got := api.count("status"); got != 0 {
		t.Fatalf("status calls = %d, want 0", got)
	}

	tick := ticks[0]
	for i := 1; i <= 150; i++ {
		clk.Advance(time.Second)
		next, _ := b.Update(tick)
		if i < 150 {
			if !b.Tracker().Active() {
				t.Fatalf("cleared early at tick %d", i)
			}
			rem, _ := b.Tracker().Remaining()
			if rem <= 0 {
				t.Fatalf("remaining = %v at tick %d, want > 0", rem, i)
			}
			tick = next().(countdown.TickMsg)
			continue
		}
		if b.Tracker().Active() {
			t.Fatalf("still active after 150 seconds")
		}
		if _, ok := next().(countdown.ExpiredMsg); !ok {
			t.Fatalf("final tick did not report expiry")
		}
	}
	if b.RefreshLabel() != "Refresh" {
		t.Fatalf("RefreshLabel() = %q, want Refresh", b.RefreshLabel())
	}
}

func TestBoardTriggerRefreshFailureWithoutWait(t *testing.T) {
	cases := map[string]error{
		"server error": &apiclient.APIError{StatusCode: http.StatusInternalServerError, Message: "Server error"},
		"network":      errors.New("dial tcp: connection refused"),
	}
	for name, refreshErr := range cases {
		t.Run(name, func(t *testing.T) {
			api := &fakeAPI{refreshErr: refreshErr}
			b, _ := newTestBoard(api)

			pump(b, b.TriggerRefresh())

			if b.Refreshing() {
				t.Fatalf("Refreshing() = true, want false")
			}
			if b.Tracker().Active() {
				t.Fatalf("tracker active without a parseable wait")
			}
			if len(api.calls) != 1 {
				t.Fatalf("calls = %v, want only refresh", api.calls)
			}
		})
	}
}

func TestBoardCloseDiscardsLateResults(t *testing.T) {
	api := &fakeAPI{
		open:   model.OpenClassrooms{Buildings: sampleBuildings(), LastUpdated: strPtr("2025-03-04T14:00:00Z")},
		status: model.CooldownStatus{InCooldown: true, RemainingMinutes: 10},
	}
	b, _ := newTestBoard(api)

	cmd := b.Init()
	b.Close()
	pump(b, cmd)

	for i, err := range api.ctxErrs {
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("call %d (%s) ctx err = %v, want canceled", i, api.calls[i], err)
		}
	}
	if buildings, _ := b.Buildings(); buildings != nil {
		t.Fatalf("buildings applied after Close")
	}
	if _, ok := b.LastUpdated(); ok {
		t.Fatalf("LastUpdated applied after Close")
	}
	if b.Tracker().Active() || b.Countdown().Running() {
		t.Fatalf("cooldown applied after Close")
	}
	if b.TriggerRefresh() != nil {
		t.Fatalf("TriggerRefresh after Close returned a command")
	}
}

func TestBoardCloseStopsCountdown(t *testing.T) {
	api := &fakeAPI{status: model.CooldownStatus{InCooldown: true, RemainingMinutes: 1}}
	b, _ := newTestBoard(api)
	ticks := pump(b, b.ReconcileCooldownStatus())
	if len(ticks) != 1 {
		t.Fatalf("pending ticks = %d, want 1", len(ticks))
	}

	b.Close()
	if cmd, _ := b.Update(ticks[0]); cmd != nil {
		t.Fatalf("tick after Close produced a command")
	}
}

func TestBoardRefreshLabel(t *testing.T) {
	b, clk := newTestBoard(&fakeAPI{})

	if got := b.RefreshLabel(); got != "Refresh" {
		t.Fatalf("idle label = %q", got)
	}

	b.cooldownLoading = 1
	if got := b.RefreshLabel(); got != "Checking..." {
		t.Fatalf("loading label = %q", got)
	}
	b.cooldownLoading = 0

	b.Tracker().SetActive(4.5)
	if got := b.RefreshLabel(); got != "Wait 4m 30s" {
		t.Fatalf("cooldown label = %q", got)
	}
	clk.Advance(4*time.Minute + 15*time.Second)
	b.Tracker().Recompute(clk.Now())
	if got := b.RefreshLabel(); got != "Wait 15s" {
		t.Fatalf("cooldown label = %q", got)
	}

	b.refreshing = true
	if got := b.RefreshLabel(); got != "Refreshing..." {
		t.Fatalf("refreshing label = %q", got)
	}
}

func TestBoardStatusText(t *testing.T) {
	b, _ := newTestBoard(&fakeAPI{})
	if got := b.StatusText(); got != "Loading data..." {
		t.Fatalf("StatusText() = %q", got)
	}
	b.setLastUpdated(time.Date(2025, 3, 4, 15, 4, 0, 0, time.UTC))
	if got := b.StatusText(); got != "Last updated 3:04 PM" {
		t.Fatalf("StatusText() = %q", got)
	}
}

func TestBoardViewRendersRooms(t *testing.T) {
	api := &fakeAPI{open: model.OpenClassrooms{Buildings: sampleBuildings(), LastUpdated: strPtr("2025-03-04T14:00:00Z")}}
	b, _ := newTestBoard(api)
	pump(b, b.FetchLatestData())

	out := b.View(100, 40)
	for _, want := range []string{"CAS", "116", "open until 4:30 PM", "1 more open later today", "Last updated 2:00 PM"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "open until 8:00 PM") {
		t.Fatalf("busy room rendered as open:\n%s", out)
	}
}

func TestBoardViewShowsLoadError(t *testing.T) {
	api := &fakeAPI{openErr: errors.New("boom")}
	b, _ := newTestBoard(api)
	pump(b, b.FetchLatestData())

	if out := b.View(80, 20); !strings.Contains(out, LoadErrorMessage) {
		t.Fatalf("view missing error:\n%s", out)
	}
}
