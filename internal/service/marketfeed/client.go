// Package marketfeed supplies market snapshots, either polled over HTTP or
// cached from a Kafka topic.
package marketfeed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/service/metrics"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/internal/services/features"
	"SignalForge/pkg/config"
	xhttp "SignalForge/pkg/http"
	applogger "SignalForge/pkg/logger"
)

const limiterKey = "market"

// Client polls a CoinGecko-style markets endpoint and keeps a rolling
// window of prices per symbol for RSI.
type Client struct {
	baseURL     string
	vsCurrency  string
	rsiPeriod   int
	historySize int

	client  *xhttp.Client
	limiter *ratelimit.Limiter
	now     func() time.Time
	logger  *applogger.Logger

	mu      sync.Mutex
	history map[string][]float64
	seeded  map[string]bool
}

var _ domsvc.MarketData = (*Client)(nil)

func New(cfg config.MarketConfig, limiter *ratelimit.Limiter, logger *applogger.Logger) *Client {
	if logger == nil {
		logger = applogger.Nop()
	}
	if limiter == nil {
		limiter = ratelimit.New(cfg.RequestsPerSecond, cfg.Burst)
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		vsCurrency:  cfg.VsCurrency,
		rsiPeriod:   cfg.RSIPeriod,
		historySize: cfg.HistorySize,
		client:      xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		limiter:     limiter,
		now:         time.Now,
		logger:      logger,
		history:     make(map[string][]float64),
		seeded:      make(map[string]bool),
	}
}

type marketRow struct {
	ID                       string    `json:"id"`
	CurrentPrice             float64   `json:"current_price"`
	TotalVolume              float64   `json:"total_volume"`
	PriceChangePercentage24h float64   `json:"price_change_percentage_24h"`
	LastUpdated              time.Time `json:"last_updated"`
}

type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

func (c *Client) Snapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	row, err := c.fetchMarket(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}

	if c.needsSeed(symbol) {
		if err := c.seed(ctx, symbol); err != nil {
			c.logger.Warn("price history seed failed", applogger.Symbol(symbol), applogger.Error(err))
		}
	}

	closes := c.push(symbol, row.CurrentPrice)
	ts := row.LastUpdated
	if ts.IsZero() {
		ts = c.now()
	}
	snap := &models.MarketSnapshot{
		Symbol:    symbol,
		Price:     row.CurrentPrice,
		Volume:    row.TotalVolume,
		Change24h: row.PriceChangePercentage24h,
		RSI:       features.RSI(closes, c.rsiPeriod),
		Timestamp: ts.UTC(),
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (c *Client) fetchMarket(ctx context.Context, symbol string) (*marketRow, error) {
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, err
	}
	var rows []marketRow
	start := time.Now()
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/coins/markets",
		QueryParams: map[string][]string{
			"vs_currency": {c.vsCurrency},
			"ids":         {symbol},
		},
	}, &rows)
	metrics.ObserveUpstream("market", start, err)
	if err != nil {
		return nil, fmt.Errorf("get markets %s: %w", symbol, err)
	}
	for i := range rows {
		if rows[i].ID == symbol {
			return &rows[i], nil
		}
	}
	return nil, fmt.Errorf("symbol %s not listed", symbol)
}

func (c *Client) needsSeed(symbol string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.seeded[symbol]
}

// seed fills the window from the last day of prices so RSI is meaningful
// from the first cycle. It is attempted once per symbol.
func (c *Client) seed(ctx context.Context, symbol string) error {
	c.mu.Lock()
	c.seeded[symbol] = true
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return err
	}
	var chart marketChart
	start := time.Now()
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/coins/%s/market_chart", c.baseURL, symbol),
		QueryParams: map[string][]string{
			"vs_currency": {c.vsCurrency},
			"days":        {"1"},
		},
	}, &chart)
	metrics.ObserveUpstream("market_chart", start, err)
	if err != nil {
		return fmt.Errorf("get market chart %s: %w", symbol, err)
	}

	prices := make([]float64, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		if p[1] > 0 {
			prices = append(prices, p[1])
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history[symbol] = c.trim(append(prices, c.history[symbol]...))
	return nil
}

func (c *Client) push(symbol string, price float64) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.trim(append(c.history[symbol], price))
	c.history[symbol] = h
	return append([]float64(nil), h...)
}

func (c *Client) trim(h []float64) []float64 {
	if over := len(h) - c.historySize; over > 0 {
		h = append([]float64(nil), h[over:]...)
	}
	return h
}
