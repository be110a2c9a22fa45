package usecase

import (
	"context"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

type StrategyView interface {
	Read() models.StrategyConfig
	Profile() models.PersonalityProfile
}

// CalibrationLogs exposes the persisted calibration logs, oldest first.
type CalibrationLogs interface {
	ReplayLog(ctx context.Context) ([]models.ReplayResult, error)
	MutationLog(ctx context.Context) ([]models.MutationRecord, error)
	CloneLog(ctx context.Context) ([]models.CloneRun, error)
}

type HoldingsReader interface {
	Holdings() models.WalletHoldings
}

// OverviewUseCase collects the service state in one response.
type OverviewUseCase struct {
	strategy StrategyView
	logs     CalibrationLogs
	patterns PatternSnapshotter
	wallet   HoldingsReader
	archive  domrepo.PatternArchive
	timeout  time.Duration
	now      func() time.Time
}

// NewOverviewUseCase accepts nil wallet and archive.
func NewOverviewUseCase(strategy StrategyView, logs CalibrationLogs, patterns PatternSnapshotter, wallet HoldingsReader, archive domrepo.PatternArchive) *OverviewUseCase {
	return &OverviewUseCase{
		strategy: strategy,
		logs:     logs,
		patterns: patterns,
		wallet:   wallet,
		archive:  archive,
		timeout:  5 * time.Second,
		now:      time.Now,
	}
}

func (uc *OverviewUseCase) Get(ctx context.Context) *models.Overview {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	res := &models.Overview{
		Timestamp:   uc.now().UTC(),
		Strategy:    uc.strategy.Read(),
		Personality: uc.strategy.Profile(),
		Patterns:    len(uc.patterns.Snapshot()),
		Errors:      map[string]string{},
	}
	if uc.wallet != nil {
		h := uc.wallet.Holdings()
		res.Wallet = &h
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 4)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.logs.ReplayLog(ctx)
		ch <- item{"replay", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.logs.MutationLog(ctx)
		ch <- item{"mutation", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.logs.CloneLog(ctx)
		ch <- item{"clone", v, err}
	}()
	if uc.archive != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch <- item{"archive", nil, uc.archive.Health(ctx)}
		}()
	}

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.name] = it.err.Error()
			if it.name == "archive" {
				res.Archive = "unhealthy"
			}
			continue
		}
		switch it.name {
		case "replay":
			if v := it.val.([]models.ReplayResult); len(v) > 0 {
				res.LastReplay = &v[len(v)-1]
			}
		case "mutation":
			if v := it.val.([]models.MutationRecord); len(v) > 0 {
				res.LastMutation = &v[len(v)-1]
			}
		case "clone":
			if v := it.val.([]models.CloneRun); len(v) > 0 {
				res.LastClone = &v[len(v)-1]
			}
		case "archive":
			res.Archive = "ok"
		}
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res
}
