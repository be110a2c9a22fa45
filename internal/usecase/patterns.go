package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

const (
	maxPatternLimit   = 5000
	defaultPatternCap = 100
)

var (
	ErrArchiveDisabled = errors.New("pattern archive disabled")
	ErrInvalidRange    = errors.New("from must not be after to")
)

type PatternSnapshotter interface {
	Snapshot() []models.PatternRecord
}

// PatternsUseCase reads pattern history from the capped memory or the
// long-term archive.
type PatternsUseCase struct {
	memory  PatternSnapshotter
	archive domrepo.PatternArchive
}

// NewPatternsUseCase accepts a nil archive; archive queries then fail with
// ErrArchiveDisabled.
func NewPatternsUseCase(memory PatternSnapshotter, archive domrepo.PatternArchive) *PatternsUseCase {
	return &PatternsUseCase{memory: memory, archive: archive}
}

type GetPatternsParams struct {
	Symbol string
	Source string
	From   time.Time
	To     time.Time
	Limit  int
}

type GetPatternsResult struct {
	Symbol  string                 `json:"symbol,omitempty"`
	Source  string                 `json:"source"`
	Count   int                    `json:"count"`
	Records []models.PatternRecord `json:"records"`
}

func (uc *PatternsUseCase) GetPatterns(ctx context.Context, p GetPatternsParams) (*GetPatternsResult, error) {
	if p.Limit <= 0 {
		p.Limit = defaultPatternCap
	}
	if p.Limit > maxPatternLimit {
		p.Limit = maxPatternLimit
	}
	if p.Source == "" {
		p.Source = "memory"
	}

	var (
		recs []models.PatternRecord
		err  error
	)
	switch p.Source {
	case "memory":
		recs = uc.fromMemory(p)
	case "archive":
		recs, err = uc.fromArchive(ctx, p)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown pattern source %q", p.Source)
	}
	if recs == nil {
		recs = []models.PatternRecord{}
	}
	return &GetPatternsResult{Symbol: p.Symbol, Source: p.Source, Count: len(recs), Records: recs}, nil
}

// fromMemory returns the newest matching records, oldest first.
func (uc *PatternsUseCase) fromMemory(p GetPatternsParams) []models.PatternRecord {
	all := uc.memory.Snapshot()
	out := make([]models.PatternRecord, 0, min(len(all), p.Limit))
	for i := len(all) - 1; i >= 0 && len(out) < p.Limit; i-- {
		r := all[i]
		if p.Symbol != "" && r.Symbol != p.Symbol {
			continue
		}
		if !p.From.IsZero() && r.Timestamp.Before(p.From) {
			continue
		}
		if !p.To.IsZero() && r.Timestamp.After(p.To) {
			continue
		}
		out = append(out, r)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (uc *PatternsUseCase) fromArchive(ctx context.Context, p GetPatternsParams) ([]models.PatternRecord, error) {
	if uc.archive == nil {
		return nil, ErrArchiveDisabled
	}
	if !p.From.IsZero() && !p.To.IsZero() && p.From.After(p.To) {
		return nil, ErrInvalidRange
	}
	recs, err := uc.archive.Query(ctx, p.Symbol, p.From, p.To, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	return recs, nil
}
