package state

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
)

// PatternMemory is the capped, append-only record of completed cycles.
// Readers get an immutable snapshot; appends publish a new slice.
type PatternMemory struct {
	docs    domrepo.DocumentStore
	archive domrepo.PatternArchive
	limit   int
	logger  *applogger.Logger

	mu       sync.Mutex // serialises writers only
	snapshot atomic.Pointer[[]models.PatternRecord]
}

func NewPatternMemory(ctx context.Context, docs domrepo.DocumentStore, limit int, logger *applogger.Logger) *PatternMemory {
	if logger == nil {
		logger = applogger.Nop()
	}
	m := &PatternMemory{docs: docs, limit: limit, logger: logger}

	var recs []models.PatternRecord
	if err := docs.LoadList(ctx, domrepo.ListPatterns, &recs); err != nil {
		logger.Warn("pattern memory unreadable, starting empty", applogger.Error(err))
		recs = nil
	}
	if len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	m.snapshot.Store(&recs)
	return m
}

// SetArchive mirrors every appended record into a long-term archive.
func (m *PatternMemory) SetArchive(a domrepo.PatternArchive) { m.archive = a }

func (m *PatternMemory) Append(ctx context.Context, rec models.PatternRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.docs.AppendCapped(ctx, domrepo.ListPatterns, rec, m.limit); err != nil {
		return fmt.Errorf("append pattern: %w", err)
	}

	cur := *m.snapshot.Load()
	next := make([]models.PatternRecord, 0, min(len(cur)+1, m.limit))
	if over := len(cur) + 1 - m.limit; over > 0 {
		cur = cur[over:]
	}
	next = append(next, cur...)
	next = append(next, rec)
	m.snapshot.Store(&next)

	if m.archive != nil {
		if err := m.archive.Store(ctx, &rec); err != nil {
			m.logger.Warn("pattern archive write failed", applogger.Symbol(rec.Symbol), applogger.Error(err))
		}
	}
	return nil
}

// Snapshot returns the records oldest first. The slice must not be modified.
func (m *PatternMemory) Snapshot() []models.PatternRecord {
	return *m.snapshot.Load()
}

// Recent returns up to n newest records for symbol ("" matches all),
// newest first.
func (m *PatternMemory) Recent(symbol string, n int) []models.PatternRecord {
	recs := m.Snapshot()
	out := make([]models.PatternRecord, 0, min(n, len(recs)))
	for i := len(recs) - 1; i >= 0 && len(out) < n; i-- {
		if symbol == "" || recs[i].Symbol == symbol {
			out = append(out, recs[i])
		}
	}
	return out
}

func (m *PatternMemory) Len() int { return len(m.Snapshot()) }
