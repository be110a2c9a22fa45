package sentimentfeed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/pkg/cache"
	"SignalForge/pkg/config"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]string{
		"Bitcoin skyrockets to new all-time high",
		"Crypto market crashes amid regulation fears",
		"Ethereum price remains steady",
		"Exchange hacked but token rally continues",
	})
	assert.Equal(t, models.SentimentSummary{Positive: 1, Negative: 1, Neutral: 2}, s)
}

func TestPolarity(t *testing.T) {
	assert.Equal(t, 1.0, Polarity("ETF approval sparks rally"))
	assert.Equal(t, -1.0, Polarity("Sell-off deepens, liquidations mount"))
	assert.Equal(t, 0.0, Polarity("Weekly roundup"))
}

func listingJSON(titles ...string) string {
	children := make([]string, 0, len(titles))
	for _, t := range titles {
		children = append(children, fmt.Sprintf(`{"data":{"title":%q}}`, t))
	}
	return `{"data":{"children":[` + strings.Join(children, ",") + `]}}`
}

func TestFeedCachesSummaries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/search.json", r.URL.Path)
		switch r.URL.Query().Get("q") {
		case "bitcoin":
			_, _ = w.Write([]byte(listingJSON("Bitcoin surges", "Bitcoin gains again", "Miners fear halving")))
		default:
			_, _ = w.Write([]byte(listingJSON("Markets crash", "")))
		}
	}))
	defer srv.Close()

	mem := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mem.Close()
	f := New(config.SentimentConfig{
		BaseURL:     srv.URL,
		GlobalQuery: "cryptocurrency",
		Limit:       25,
		CacheTTL:    time.Minute,
		Timeout:     time.Second,
	}, mem, ratelimit.New(0, 1), nil)

	ctx := context.Background()
	s, err := f.Sentiment(ctx, "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, models.SentimentSummary{Positive: 2, Negative: 1}, s)

	s, err = f.Sentiment(ctx, "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Positive)
	assert.EqualValues(t, 1, calls.Load())

	g, err := f.Global(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SentimentSummary{Negative: 1}, g)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFeedUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := New(config.SentimentConfig{BaseURL: srv.URL, Limit: 5, Timeout: time.Second}, nil, ratelimit.New(0, 1), nil)
	_, err := f.Sentiment(context.Background(), "bitcoin")
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}
