package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/repository"
)

type recordingArchive struct {
	mu   sync.Mutex
	recs []models.PatternRecord
	err  error
}

func (a *recordingArchive) Init(context.Context) error { return nil }
func (a *recordingArchive) Store(_ context.Context, r *models.PatternRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recs = append(a.recs, *r)
	return a.err
}
func (a *recordingArchive) StoreBatch(ctx context.Context, rs []*models.PatternRecord) error {
	for _, r := range rs {
		_ = a.Store(ctx, r)
	}
	return a.err
}
func (a *recordingArchive) Query(context.Context, string, time.Time, time.Time, int) ([]models.PatternRecord, error) {
	return nil, nil
}
func (a *recordingArchive) Health(context.Context) error { return nil }
func (a *recordingArchive) Close() error                 { return nil }

func rec(symbol string, n int) models.PatternRecord {
	return models.PatternRecord{ID: fmt.Sprintf("%s-%d", symbol, n), Symbol: symbol, RSI: float64(n)}
}

func TestPatternMemoryCapsAndPersists(t *testing.T) {
	ctx := context.Background()
	docs, err := repository.NewFileStore(t.TempDir())
	require.NoError(t, err)

	m := NewPatternMemory(ctx, docs, 3, nil)
	for n := 0; n < 5; n++ {
		require.NoError(t, m.Append(ctx, rec("btc", n)))
	}
	snap := m.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "btc-2", snap[0].ID)
	assert.Equal(t, "btc-4", snap[2].ID)

	reloaded := NewPatternMemory(ctx, docs, 3, nil)
	assert.Equal(t, snap, reloaded.Snapshot())
}

func TestPatternMemorySnapshotIsStable(t *testing.T) {
	ctx := context.Background()
	docs, err := repository.NewFileStore(t.TempDir())
	require.NoError(t, err)
	m := NewPatternMemory(ctx, docs, 10, nil)

	require.NoError(t, m.Append(ctx, rec("btc", 1)))
	before := m.Snapshot()
	require.NoError(t, m.Append(ctx, rec("btc", 2)))

	assert.Len(t, before, 1, "earlier snapshots are never extended in place")
	assert.Equal(t, 2, m.Len())
}

func TestPatternMemoryRecent(t *testing.T) {
	ctx := context.Background()
	docs, err := repository.NewFileStore(t.TempDir())
	require.NoError(t, err)
	m := NewPatternMemory(ctx, docs, 10, nil)

	require.NoError(t, m.Append(ctx, rec("btc", 1)))
	require.NoError(t, m.Append(ctx, rec("eth", 2)))
	require.NoError(t, m.Append(ctx, rec("btc", 3)))

	got := m.Recent("btc", 5)
	require.Len(t, got, 2)
	assert.Equal(t, "btc-3", got[0].ID)
	assert.Len(t, m.Recent("", 2), 2)
}

func TestPatternMemoryArchiveFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	docs, err := repository.NewFileStore(t.TempDir())
	require.NoError(t, err)
	m := NewPatternMemory(ctx, docs, 10, nil)
	archive := &recordingArchive{err: errors.New("clickhouse down")}
	m.SetArchive(archive)

	require.NoError(t, m.Append(ctx, rec("btc", 1)))
	assert.Equal(t, 1, m.Len())
	assert.Len(t, archive.recs, 1)
}
