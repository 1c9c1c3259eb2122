package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomwatch/roomwatch/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRooms() model.Availability {
	return model.Availability{
		"342": {{Start: "09:00", End: "10:30"}},
		"344": {{Start: "07:00", End: "08:15"}, {Start: "13:00", End: "23:00"}},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC)

	_, ok, err := s.LatestSnapshot(ctx, base)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveSnapshot(ctx, base, 24*time.Hour, sampleRooms()))
	newer := sampleRooms()
	newer["342"] = nil
	require.NoError(t, s.SaveSnapshot(ctx, base.Add(time.Hour), 24*time.Hour, newer))

	snap, ok, err := s.LatestSnapshot(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, snap.TakenAt.Equal(base.Add(time.Hour)))
	assert.Empty(t, snap.Rooms["342"])
	assert.Len(t, snap.Rooms["344"], 2)
}

func TestLatestSnapshotIgnoresExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveSnapshot(ctx, base, time.Hour, sampleRooms()))

	_, ok, err := s.LatestSnapshot(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "snapshot at its expiry must not be served")
}

func TestLastRefresh(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC)

	_, ok, err := s.LastRefresh(ctx, base)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.RecordRefresh(ctx, base, 24*time.Hour, "wake"))
	require.NoError(t, s.RecordRefresh(ctx, base.Add(40*time.Minute), 24*time.Hour, "manual"))

	at, ok, err := s.LastRefresh(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, at.Equal(base.Add(40*time.Minute)), "got %v", at)
}

func TestDeleteExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveSnapshot(ctx, base, time.Hour, sampleRooms()))
	require.NoError(t, s.SaveSnapshot(ctx, base, 48*time.Hour, sampleRooms()))
	require.NoError(t, s.RecordRefresh(ctx, base, time.Hour, "manual"))

	n, err := s.DeleteExpired(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, ok, err := s.LatestSnapshot(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.duckdb")
	s, err := NewStore(path, 5*time.Second)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 5*time.Second, s.QueryTimeout)
	assert.FileExists(t, path)
}

func TestCopyTo(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "stub.duckdb"))
	require.NoError(t, err)
	defer store.Close()

	now := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSnapshot(context.Background(), now, time.Hour, sampleRooms()))

	dst := filepath.Join(dir, "backups", "copy.duckdb")
	require.NoError(t, store.CopyTo(dst))

	copied, err := NewStore(dst)
	require.NoError(t, err)
	defer copied.Close()

	snap, ok, err := copied.LatestSnapshot(context.Background(), now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleRooms(), snap.Rooms)

	_, err = os.Stat(dst + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestCopyToInMemory(t *testing.T) {
	store, err := NewStore("")
	require.NoError(t, err)
	defer store.Close()

	err = store.CopyTo(filepath.Join(t.TempDir(), "copy.duckdb"))
	assert.ErrorIs(t, err, ErrInMemoryStore)
}
