package usecase

import (
	"context"
	"errors"
	"testing"

	"SignalForge/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogs struct {
	replays   []models.ReplayResult
	mutations []models.MutationRecord
	cloneErr  error
}

func (l fakeLogs) ReplayLog(context.Context) ([]models.ReplayResult, error) { return l.replays, nil }
func (l fakeLogs) MutationLog(context.Context) ([]models.MutationRecord, error) {
	return l.mutations, nil
}
func (l fakeLogs) CloneLog(context.Context) ([]models.CloneRun, error) { return nil, l.cloneErr }

type fixedHoldings struct{}

func (fixedHoldings) Holdings() models.WalletHoldings {
	return models.WalletHoldings{USD: 42, Units: map[string]float64{"bitcoin": 0.1}}
}

func TestOverviewCollectsEverything(t *testing.T) {
	logs := fakeLogs{
		replays:   []models.ReplayResult{{Accuracy: 0.5}, {Accuracy: 0.9}},
		mutations: []models.MutationRecord{{Mutated: true}},
	}
	uc := NewOverviewUseCase(staticStrategy{cfg: models.DefaultStrategy()}, logs,
		memoryOf("bitcoin", "ethereum"), fixedHoldings{}, &fakeArchive{})

	o := uc.Get(context.Background())
	assert.Equal(t, 30.0, o.Strategy.BuyRSIThreshold)
	assert.Equal(t, 2, o.Patterns)
	require.NotNil(t, o.Wallet)
	assert.Equal(t, 42.0, o.Wallet.USD)
	require.NotNil(t, o.LastReplay)
	assert.Equal(t, 0.9, o.LastReplay.Accuracy)
	require.NotNil(t, o.LastMutation)
	assert.True(t, o.LastMutation.Mutated)
	assert.Nil(t, o.LastClone)
	assert.Equal(t, "ok", o.Archive)
	assert.Nil(t, o.Errors)
}

func TestOverviewReportsPartialFailures(t *testing.T) {
	logs := fakeLogs{cloneErr: errors.New("store down")}
	uc := NewOverviewUseCase(staticStrategy{cfg: models.DefaultStrategy()}, logs,
		&memPatterns{}, nil, &fakeArchive{err: errors.New("ch down")})

	o := uc.Get(context.Background())
	assert.Nil(t, o.Wallet)
	assert.Equal(t, "store down", o.Errors["clone"])
	assert.Equal(t, "ch down", o.Errors["archive"])
	assert.Equal(t, "unhealthy", o.Archive)
}
