// Package paperwallet simulates balances for emitted signals. No orders
// leave the process.
package paperwallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
	applogger "SignalForge/pkg/logger"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

type position struct {
	Units    decimal.Decimal `json:"units"`
	AvgEntry decimal.Decimal `json:"avg_entry"`
}

type document struct {
	USD       decimal.Decimal     `json:"usd_balance"`
	Positions map[string]position `json:"positions"`
}

type Wallet struct {
	mu     sync.Mutex
	docs   domrepo.DocumentStore
	doc    document
	logger *applogger.Logger
}

var _ domsvc.Wallet = (*Wallet)(nil)

// New loads the persisted wallet or starts one with initialUSD.
func New(ctx context.Context, docs domrepo.DocumentStore, initialUSD float64, logger *applogger.Logger) *Wallet {
	if logger == nil {
		logger = applogger.Nop()
	}
	w := &Wallet{docs: docs, logger: logger}
	err := docs.LoadDocument(ctx, domrepo.DocWallet, &w.doc)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		w.doc = document{USD: decimal.NewFromFloat(initialUSD)}
	default:
		logger.Warn("wallet unreadable, starting fresh", applogger.Error(err))
		w.doc = document{USD: decimal.NewFromFloat(initialUSD)}
	}
	if w.doc.Positions == nil {
		w.doc.Positions = make(map[string]position)
	}
	return w
}

func (w *Wallet) Cash(context.Context) (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc.USD.InexactFloat64(), nil
}

func (w *Wallet) Balance(_ context.Context, symbol string) (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc.Positions[symbol].Units.InexactFloat64(), nil
}

func (w *Wallet) Holdings() models.WalletHoldings {
	w.mu.Lock()
	defer w.mu.Unlock()
	h := models.WalletHoldings{
		USD:      w.doc.USD.InexactFloat64(),
		Units:    make(map[string]float64, len(w.doc.Positions)),
		AvgEntry: make(map[string]float64, len(w.doc.Positions)),
	}
	for sym, p := range w.doc.Positions {
		h.Units[sym] = p.Units.InexactFloat64()
		h.AvgEntry[sym] = p.AvgEntry.InexactFloat64()
	}
	return h
}

// Execute fills the signal at the snapshot price. Buys spend Amount USD;
// sells dispose of Amount units and report the realised gain against the
// average entry price.
func (w *Wallet) Execute(ctx context.Context, sig *models.TradeSignal, snap *models.MarketSnapshot) (*models.Execution, error) {
	if sig == nil || snap == nil || snap.Price <= 0 || sig.Amount <= 0 {
		return nil, fmt.Errorf("execute: invalid signal")
	}
	price := decimal.NewFromFloat(snap.Price)
	amount := decimal.NewFromFloat(sig.Amount)

	w.mu.Lock()
	defer w.mu.Unlock()

	pos := w.doc.Positions[sig.Symbol]
	exec := &models.Execution{SignalID: sig.ID, Outcome: models.OutcomePending}

	switch sig.Action {
	case models.ActionBuy:
		if w.doc.USD.LessThan(amount) {
			return nil, fmt.Errorf("%w: need %s USD, have %s", ErrInsufficientFunds, amount.StringFixed(2), w.doc.USD.StringFixed(2))
		}
		units := amount.Div(price)
		cost := pos.Units.Mul(pos.AvgEntry).Add(amount)
		pos.Units = pos.Units.Add(units)
		pos.AvgEntry = cost.Div(pos.Units)
		w.doc.USD = w.doc.USD.Sub(amount)
		exec.Filled = units.InexactFloat64()

	case models.ActionSell:
		if pos.Units.LessThan(amount) {
			return nil, fmt.Errorf("%w: need %s %s, have %s", ErrInsufficientFunds, amount.String(), sig.Symbol, pos.Units.String())
		}
		gain := price.Sub(pos.AvgEntry).Mul(amount).Round(8)
		pos.Units = pos.Units.Sub(amount)
		w.doc.USD = w.doc.USD.Add(amount.Mul(price))
		exec.Filled = amount.InexactFloat64()
		exec.Gain = gain.InexactFloat64()
		switch gain.Sign() {
		case 1:
			exec.Outcome = models.OutcomeProfit
		case -1:
			exec.Outcome = models.OutcomeLoss
		default:
			exec.Outcome = models.OutcomeNeutral
		}

	default:
		return nil, fmt.Errorf("execute: unsupported action %q", sig.Action)
	}

	if pos.Units.IsZero() {
		delete(w.doc.Positions, sig.Symbol)
	} else {
		w.doc.Positions[sig.Symbol] = pos
	}

	if err := w.docs.SaveDocument(ctx, domrepo.DocWallet, w.doc); err != nil {
		w.logger.Warn("wallet persist failed", applogger.Symbol(sig.Symbol), applogger.Error(err))
	}
	return exec, nil
}
