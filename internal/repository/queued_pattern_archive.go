package repository

import (
	"context"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/queue"
)

const archiveMessageType = "pattern.archive"

// QueuedPatternArchive defers archive writes through a durable queue so a
// slow or unavailable archive never holds up a decision cycle. Reads go
// straight to the underlying archive.
type QueuedPatternArchive struct {
	domrepo.PatternArchive
	q queue.Enqueuer
}

var _ domrepo.PatternArchive = (*QueuedPatternArchive)(nil)

func NewQueuedPatternArchive(inner domrepo.PatternArchive, q queue.Enqueuer) *QueuedPatternArchive {
	return &QueuedPatternArchive{PatternArchive: inner, q: q}
}

func (a *QueuedPatternArchive) Store(ctx context.Context, rec *models.PatternRecord) error {
	if err := a.q.Enqueue(ctx, archiveMessageType, rec); err != nil {
		return fmt.Errorf("enqueue pattern: %w", err)
	}
	return nil
}

func (a *QueuedPatternArchive) StoreBatch(ctx context.Context, recs []*models.PatternRecord) error {
	for _, rec := range recs {
		if err := a.Store(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// ArchiveJob drains queued pattern records into the archive.
type ArchiveJob struct {
	archive domrepo.PatternArchive
	timeout time.Duration
}

var _ queue.Job = (*ArchiveJob)(nil)

func NewArchiveJob(archive domrepo.PatternArchive) *ArchiveJob {
	return &ArchiveJob{archive: archive, timeout: 10 * time.Second}
}

func (j *ArchiveJob) Name() string { return "pattern_archive_writer" }

func (j *ArchiveJob) Type() string { return archiveMessageType }

func (j *ArchiveJob) Handle(ctx context.Context, payload []byte) error {
	rec, err := queue.ParsePayload[models.PatternRecord](payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	return j.archive.Store(ctx, rec)
}
