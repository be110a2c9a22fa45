package usecase

import (
	"context"
	"strconv"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/service/marketfeed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotHandlerStoresSnapshot(t *testing.T) {
	cache := marketfeed.NewSnapshotCache(0)
	h := NewKafkaSnapshotHandler("market-snapshots", cache, nil)
	assert.Equal(t, "market-snapshots", h.Topic())

	ms := time.Now().Add(-time.Second).UnixMilli()
	msg := []byte(`{"symbol":"bitcoin","price":64000,"volume":2500000,"change_24h":-1.2,"rsi":41,"t":` +
		strconv.FormatInt(ms, 10) + `}`)
	require.NoError(t, h.Handle(context.Background(), msg))

	s, err := cache.Snapshot(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, 64000.0, s.Price)
	assert.Equal(t, ms, s.Timestamp.UnixMilli())
}

func TestSnapshotHandlerRejectsBadMessages(t *testing.T) {
	h := NewKafkaSnapshotHandler("t", marketfeed.NewSnapshotCache(0), nil)

	assert.Error(t, h.Handle(context.Background(), []byte(`{not json`)))
	err := h.Handle(context.Background(), []byte(`{"symbol":"bitcoin","price":-1,"rsi":40}`))
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}
