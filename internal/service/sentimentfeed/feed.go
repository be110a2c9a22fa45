// Package sentimentfeed summarises recent headlines into polarity counts.
package sentimentfeed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/service/metrics"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/pkg/cache"
	"SignalForge/pkg/config"
	xhttp "SignalForge/pkg/http"
	applogger "SignalForge/pkg/logger"
)

const limiterKey = "sentiment"

// Feed searches a Reddit-style listing API for headlines. Summaries are
// cached for the configured TTL.
type Feed struct {
	baseURL     string
	globalQuery string
	limit       int
	ttl         time.Duration

	client  *xhttp.Client
	limiter *ratelimit.Limiter
	cache   cache.Service
	logger  *applogger.Logger
}

var _ domsvc.Sentiment = (*Feed)(nil)

func New(cfg config.SentimentConfig, c cache.Service, limiter *ratelimit.Limiter, logger *applogger.Logger) *Feed {
	if logger == nil {
		logger = applogger.Nop()
	}
	if limiter == nil {
		limiter = ratelimit.New(cfg.RequestsPerSecond, 1)
	}
	return &Feed{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		globalQuery: cfg.GlobalQuery,
		limit:       cfg.Limit,
		ttl:         cfg.CacheTTL,
		client:      xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout), xhttp.WithUserAgent("signalforge/1.0")),
		limiter:     limiter,
		cache:       c,
		logger:      logger,
	}
}

type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title string `json:"title"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (f *Feed) Sentiment(ctx context.Context, symbol string) (models.SentimentSummary, error) {
	return f.summary(ctx, symbol)
}

func (f *Feed) Global(ctx context.Context) (models.SentimentSummary, error) {
	return f.summary(ctx, f.globalQuery)
}

func (f *Feed) summary(ctx context.Context, query string) (models.SentimentSummary, error) {
	key := cache.Key("sentiment", query)
	var s models.SentimentSummary
	if f.cache != nil {
		err := f.cache.Get(ctx, key, &s)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			f.logger.Warn("sentiment cache read failed", applogger.String("query", query), applogger.Error(err))
		}
	}

	headlines, err := f.headlines(ctx, query)
	if err != nil {
		return models.SentimentSummary{}, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}
	s = Summarize(headlines)

	if f.cache != nil {
		if err := f.cache.Set(ctx, key, s, f.ttl); err != nil {
			f.logger.Warn("sentiment cache write failed", applogger.String("query", query), applogger.Error(err))
		}
	}
	return s, nil
}

func (f *Feed) headlines(ctx context.Context, query string) ([]string, error) {
	if err := f.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, err
	}
	var l listing
	start := time.Now()
	err := f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    f.baseURL + "/search.json",
		QueryParams: map[string][]string{
			"q":     {query},
			"sort":  {"new"},
			"limit": {strconv.Itoa(f.limit)},
		},
	}, &l)
	metrics.ObserveUpstream("sentiment", start, err)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	out := make([]string, 0, len(l.Data.Children))
	for _, c := range l.Data.Children {
		if t := strings.TrimSpace(c.Data.Title); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

// Neutral is used when the sentiment feed is disabled.
type Neutral struct{}

func (Neutral) Sentiment(context.Context, string) (models.SentimentSummary, error) {
	return models.SentimentSummary{}, nil
}

func (Neutral) Global(context.Context) (models.SentimentSummary, error) {
	return models.SentimentSummary{}, nil
}
