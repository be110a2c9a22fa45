package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgch "SignalForge/pkg/clickhouse"
	applogger "SignalForge/pkg/logger"
)

const patternTable = "pattern_records"

// PatternSchema is the DDL for the archive table.
var PatternSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + patternTable + ` (
		id String,
		ts DateTime64(3, 'UTC'),
		symbol LowCardinality(String),
		price Float64,
		rsi Float64,
		volume Float64,
		change_24h Float64,
		positive UInt32,
		negative UInt32,
		neutral UInt32,
		sentiment_score Float64,
		confidence Float64,
		trade_action LowCardinality(String),
		outcome LowCardinality(String),
		gain Float64
	) ENGINE = ReplacingMergeTree
	PARTITION BY toYYYYMM(ts)
	ORDER BY (symbol, ts, id)`,
}

const patternColumns = "id, ts, symbol, price, rsi, volume, change_24h, positive, negative, neutral, sentiment_score, confidence, trade_action, outcome, gain"

// CHPatternArchive stores every pattern record in ClickHouse. Pattern memory
// keeps only the newest few hundred; the archive keeps everything.
type CHPatternArchive struct {
	db     *sql.DB
	client *pkgch.Client
	l      *applogger.Logger
}

var _ domrepo.PatternArchive = (*CHPatternArchive)(nil)

func NewCHPatternArchive(client *pkgch.Client) *CHPatternArchive {
	return &CHPatternArchive{db: client.DB(), client: client, l: applogger.Nop()}
}

func (s *CHPatternArchive) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPatternArchive) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, PatternSchema)
}

func patternArgs(r *models.PatternRecord) []interface{} {
	return []interface{}{
		r.ID, r.Timestamp.UTC(), r.Symbol, r.Price, r.RSI, r.Volume, r.Change24h,
		uint32(r.Sentiment.Positive), uint32(r.Sentiment.Negative), uint32(r.Sentiment.Neutral),
		r.SentimentScore, r.Confidence, string(r.TradeAction), r.Outcome, r.Gain,
	}
}

func (s *CHPatternArchive) Store(ctx context.Context, rec *models.PatternRecord) error {
	return s.StoreBatch(ctx, []*models.PatternRecord{rec})
}

func (s *CHPatternArchive) StoreBatch(ctx context.Context, recs []*models.PatternRecord) error {
	values := make([]string, 0, len(recs))
	args := make([]interface{}, 0, len(recs)*15)
	for _, r := range recs {
		if r == nil || r.Symbol == "" {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, patternArgs(r)...)
	}
	if len(values) == 0 {
		return nil
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", patternTable, patternColumns, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse pattern insert failed", applogger.Int("rows", len(values)), applogger.Error(err))
		return fmt.Errorf("store patterns: %w", err)
	}
	return nil
}

// Query returns records newest first. An empty symbol matches all symbols;
// zero times leave that bound open.
func (s *CHPatternArchive) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.PatternRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	if symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, symbol)
	}
	if !from.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, to.UTC())
	}
	q := fmt.Sprintf("SELECT %s FROM %s FINAL", patternColumns, patternTable)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY ts DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	out := make([]models.PatternRecord, 0, limit)
	for rows.Next() {
		var (
			r             models.PatternRecord
			pos, neg, neu uint32
			action        string
		)
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Symbol, &r.Price, &r.RSI, &r.Volume, &r.Change24h,
			&pos, &neg, &neu, &r.SentimentScore, &r.Confidence, &action, &r.Outcome, &r.Gain); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		r.Sentiment = models.SentimentSummary{Positive: int(pos), Negative: int(neg), Neutral: int(neu)}
		r.TradeAction = models.Action(action)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *CHPatternArchive) Health(ctx context.Context) error { return s.client.Health(ctx) }

// Close is a no-op; the client is closed by its owner.
func (s *CHPatternArchive) Close() error { return nil }
