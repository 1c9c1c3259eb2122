// Package httpserver is a stand-in for the classroom availability backend.
// It serves the endpoints the client talks to, enforces the refresh
// cooldown, and caches scraped availability in DuckDB.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roomwatch/roomwatch/internal/catalog"
	"github.com/roomwatch/roomwatch/internal/clock"
	"github.com/roomwatch/roomwatch/internal/duckdb"
	"github.com/roomwatch/roomwatch/internal/model"
)

// Refresh sources recorded alongside each refresh.
const (
	SourceManual    = "manual"
	SourceWake      = "wake"
	SourceCacheMiss = "cache-miss"
)

// Store is the narrow cache contract the server needs.
type Store interface {
	SaveSnapshot(ctx context.Context, takenAt time.Time, ttl time.Duration, rooms model.Availability) error
	LatestSnapshot(ctx context.Context, now time.Time) (duckdb.Snapshot, bool, error)
	RecordRefresh(ctx context.Context, at time.Time, ttl time.Duration, source string) error
	LastRefresh(ctx context.Context, now time.Time) (time.Time, bool, error)
}

// Config tunes the server. Zero values fall back to the backend defaults.
type Config struct {
	Addr        string
	Cooldown    time.Duration
	CacheExpiry time.Duration
	Location    *time.Location
	Clock       clock.Clock
	Logger      *slog.Logger
	Metrics     *Metrics
}

// Server serves the classroom availability API.
type Server struct {
	cfg     Config
	store   Store
	catalog *catalog.Catalog
	source  Source
	log     *slog.Logger
	metrics *Metrics

	// mu serialises the cooldown check with the refresh it guards.
	mu sync.Mutex

	engine    *gin.Engine
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(cfg Config, store Store, cat *catalog.Catalog, src Source) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8000"
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = model.DefaultRefreshCooldown
	}
	if cfg.CacheExpiry <= 0 {
		cfg.CacheExpiry = model.DefaultCacheExpiry
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		store:     store,
		catalog:   cat,
		source:    src,
		log:       cfg.Logger.With("component", "httpserver"),
		metrics:   cfg.Metrics,
		ctx:       ctx,
		cancel:    cancel,
		startTime: cfg.Clock.Now(),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.observe())

	r.GET("/", func(c *gin.Context) { c.JSON(http.StatusOK, "Hello World") })
	r.GET("/api/health", s.handleHealth)
	r.GET("/api/open-classrooms", s.handleOpenClassrooms)
	r.GET("/api/cooldown-status", s.handleCooldownStatus)
	r.GET("/api/last-updated", s.handleLastUpdated)
	r.POST("/api/refresh", s.handleRefresh)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	return r
}

// Handler returns the router, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Handler:           s.engine,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = s.cfg.Clock.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("serve failed", "err", err)
		}
	}()
	s.log.Info("listening", "addr", listener.Addr().String())
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Warm refreshes the cache at startup when nothing has been refreshed yet
// on the current calendar day. It reports whether a refresh ran.
func (s *Server) Warm(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Clock.Now()
	last, ok, err := s.store.LastRefresh(ctx, now)
	if err != nil {
		s.log.Warn("wake check failed, refreshing anyway", "err", err)
	} else if ok && !s.beforeToday(last, now) {
		s.log.Info("recent data available, skipping wake refresh", "last_refresh", last)
		return false, nil
	}

	if err := s.scrape(ctx, now, SourceWake); err != nil {
		return false, fmt.Errorf("wake refresh: %w", err)
	}
	s.log.Info("wake refresh completed")
	return true, nil
}

func (s *Server) beforeToday(last, now time.Time) bool {
	ly, lm, ld := last.In(s.cfg.Location).Date()
	ny, nm, nd := now.In(s.cfg.Location).Date()
	lastDay := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return lastDay.Before(today)
}

// scrape pulls fresh availability, caches it and records the refresh.
// Callers hold s.mu.
func (s *Server) scrape(ctx context.Context, now time.Time, source string) error {
	rooms, err := s.source.Availability(ctx, now)
	if err != nil {
		return fmt.Errorf("fetch availability: %w", err)
	}
	if err := s.store.SaveSnapshot(ctx, now, s.cfg.CacheExpiry, rooms); err != nil {
		return err
	}
	if err := s.store.RecordRefresh(ctx, now, s.cfg.CacheExpiry, source); err != nil {
		return err
	}
	s.metrics.Refreshes.WithLabelValues(source).Inc()
	return nil
}

// cooldownRemaining returns the time left before another refresh is allowed.
func (s *Server) cooldownRemaining(ctx context.Context, now time.Time) (time.Duration, error) {
	last, ok, err := s.store.LastRefresh(ctx, now)
	if err != nil || !ok {
		return 0, err
	}
	since := now.Sub(last)
	if since >= s.cfg.Cooldown {
		return 0, nil
	}
	return s.cfg.Cooldown - since, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": s.cfg.Clock.Now().Sub(s.startTime).String(),
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	ctx := c.Request.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Clock.Now()
	remaining, err := s.cooldownRemaining(ctx, now)
	if err != nil {
		s.log.Error("cooldown check failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh data"})
		return
	}
	if remaining > 0 {
		s.metrics.CooldownRejections.Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Refresh cooldown active. Please wait %.1f more minutes.", remaining.Minutes()),
		})
		return
	}

	if err := s.scrape(ctx, now, SourceManual); err != nil {
		s.log.Error("refresh failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh data"})
		return
	}

	c.JSON(http.StatusOK, model.RefreshResult{
		Message:   "Data refreshed successfully",
		Timestamp: s.timestamp(now),
	})
}

func (s *Server) handleCooldownStatus(c *gin.Context) {
	remaining, err := s.cooldownRemaining(c.Request.Context(), s.cfg.Clock.Now())
	if err != nil {
		// A broken cache must not lock users out of refreshing.
		s.log.Warn("cooldown status failed", "err", err)
	}
	c.JSON(http.StatusOK, model.CooldownStatus{
		InCooldown:       remaining > 0,
		RemainingMinutes: remaining.Minutes(),
	})
}

func (s *Server) handleLastUpdated(c *gin.Context) {
	c.JSON(http.StatusOK, model.LastUpdated{LastUpdated: s.lastUpdated(c.Request.Context())})
}

func (s *Server) lastUpdated(ctx context.Context) *string {
	last, ok, err := s.store.LastRefresh(ctx, s.cfg.Clock.Now())
	if err != nil {
		s.log.Warn("last refresh lookup failed", "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	ts := s.timestamp(last)
	return &ts
}

func (s *Server) handleOpenClassrooms(c *gin.Context) {
	ctx := c.Request.Context()

	rooms, err := s.cachedAvailability(ctx)
	if err != nil {
		s.log.Error("load availability failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load classroom availability"})
		return
	}

	c.JSON(http.StatusOK, model.OpenClassrooms{
		Buildings:   s.organise(rooms),
		LastUpdated: s.lastUpdated(ctx),
	})
}

// cachedAvailability serves the newest unexpired snapshot, scraping on a
// miss.
func (s *Server) cachedAvailability(ctx context.Context) (model.Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Clock.Now()
	snap, ok, err := s.store.LatestSnapshot(ctx, now)
	if err != nil {
		return nil, err
	}
	if ok {
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return snap.Rooms, nil
	}

	s.metrics.CacheLookups.WithLabelValues("miss").Inc()
	s.log.Info("cache miss, fetching new data")
	if err := s.scrape(ctx, now, SourceCacheMiss); err != nil {
		return nil, err
	}
	snap, ok, err = s.store.LatestSnapshot(ctx, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("snapshot missing after refresh")
	}
	return snap.Rooms, nil
}

// organise groups classroom availability under every catalog building.
func (s *Server) organise(rooms model.Availability) model.Buildings {
	out := make(model.Buildings, len(s.catalog.Buildings))
	for _, b := range s.catalog.Buildings {
		building := model.Building{Code: b.Code, Name: b.Name, Classrooms: []model.Classroom{}}
		for _, r := range s.catalog.ClassroomsIn(b.Code) {
			slots := rooms[r.ID]
			if slots == nil {
				slots = []model.Slot{}
			}
			building.Classrooms = append(building.Classrooms, model.Classroom{
				ID:           r.ID,
				Name:         r.Name,
				Availability: slots,
			})
		}
		out[b.Code] = building
	}
	return out
}

func (s *Server) timestamp(t time.Time) string {
	return model.FormatTimestamp(t.In(s.cfg.Location))
}
