// Package backup keeps rolling copies of the stub backend's cache file and
// optionally ships each copy to an S3 bucket.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roomwatch/roomwatch/internal/clock"
)

const (
	defaultInterval = 6 * time.Hour
	defaultKeepLast = 24

	filePrefix = "roomwatch-stub-"
	fileSuffix = ".duckdb"
)

// Config controls periodic cache backups.
type Config struct {
	Enabled   bool
	Interval  time.Duration
	Dir       string
	KeepLast  int
	BucketURL string
	Endpoint  string
	Region    string

	Clock  clock.Clock
	Logger *slog.Logger
}

// Copier is what the manager needs from the cache store.
type Copier interface {
	DBPath() string
	CopyTo(dstPath string) error
}

// Uploader ships one backup file somewhere off the host.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}

// Manager writes a backup on start and then every Interval, pruning old
// local copies.
type Manager struct {
	store    Copier
	cfg      Config
	uploader Uploader
	log      *slog.Logger

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewManager validates cfg and starts the backup loop. It returns nil when
// backups are disabled.
func NewManager(store Copier, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	m, err := newManager(store, cfg)
	if err != nil {
		return nil, err
	}

	if err := m.RunOnce(context.Background()); err != nil {
		m.log.Error("startup backup failed", "err", err)
	}

	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func newManager(store Copier, cfg Config) (*Manager, error) {
	if store == nil {
		return nil, errors.New("backup: nil store")
	}
	if strings.TrimSpace(store.DBPath()) == "" {
		return nil, errors.New("backup: db-path is empty (in-memory cache)")
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("backup: dir is required when backups are enabled")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create dir: %w", err)
	}

	var uploader Uploader
	if strings.TrimSpace(cfg.BucketURL) != "" {
		s3u, err := NewS3Uploader(cfg.BucketURL, cfg.Endpoint, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("backup: %w", err)
		}
		uploader = s3u
	}

	return &Manager{
		store:    store,
		cfg:      cfg,
		uploader: uploader,
		log:      cfg.Logger.With("component", "backup"),
		done:     make(chan struct{}),
	}, nil
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.RunOnce(context.Background()); err != nil {
				m.log.Error("periodic backup failed", "err", err)
			}
		case <-m.done:
			return
		}
	}
}

// RunOnce writes one backup, uploads it when a bucket is configured, and
// prunes local copies beyond KeepLast.
func (m *Manager) RunOnce(ctx context.Context) error {
	name := filePrefix + m.cfg.Clock.Now().UTC().Format("20060102-150405") + fileSuffix
	localPath := filepath.Join(m.cfg.Dir, name)

	if err := m.store.CopyTo(localPath); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	m.log.Info("backup written", "path", localPath)

	if m.uploader != nil {
		if err := m.uploader.UploadFile(ctx, localPath); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		m.log.Info("backup uploaded", "file", name)
	}

	if err := prune(m.cfg.Dir, m.cfg.KeepLast); err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	return nil
}

// Stop ends the backup loop.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

func prune(dir string, keepLast int) error {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}

	// Names embed a sortable UTC timestamp; newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	for _, old := range matches[keepLast:] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
