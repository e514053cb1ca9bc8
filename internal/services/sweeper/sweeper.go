// Package sweeper converts accumulated quote profit into a long-term
// holding. It keeps a baseline of the free quote balance and, once growth
// clears a configured minimum, market-buys the sweep target and rebases.
package sweeper

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/accumbot/internal/services/executor"
	"go.uber.org/zap"
)

// BalanceReader supplies the current free balance of one asset.
type BalanceReader interface {
	FreeOf(ctx context.Context, asset string) (decimal.Decimal, error)
}

// Buyer places the sweep order.
type Buyer interface {
	MarketBuyQuote(ctx context.Context, symbol string, quoteAmount decimal.Decimal) (*executor.Fill, error)
}

// Sweeper sweeps quote-asset growth above a baseline into a target symbol.
type Sweeper struct {
	balances   BalanceReader
	buyer      Buyer
	quoteAsset string
	// targetSymbol is the trading pair bought with swept profit.
	targetSymbol string
	// minSweep is the minimal growth above baseline worth sweeping.
	minSweep decimal.Decimal
	baseline decimal.Decimal
	l        *zap.Logger
}

func New(balances BalanceReader, buyer Buyer, quoteAsset, targetSymbol string, minSweep decimal.Decimal, l *zap.Logger) *Sweeper {
	return &Sweeper{
		balances:     balances,
		buyer:        buyer,
		quoteAsset:   quoteAsset,
		targetSymbol: targetSymbol,
		minSweep:     minSweep,
		l:            l,
	}
}

// Init captures the starting baseline from the live balance.
func (s *Sweeper) Init(ctx context.Context) error {
	free, err := s.balances.FreeOf(ctx, s.quoteAsset)
	if err != nil {
		return errors.Wrap(err, "failed to read initial sweep baseline")
	}
	s.baseline = free
	s.l.Info("sweep baseline set",
		zap.String("asset", s.quoteAsset),
		zap.String("baseline", free.String()))
	return nil
}

// Baseline returns the current reference balance.
func (s *Sweeper) Baseline() decimal.Decimal {
	return s.baseline
}

// MaybeSweep checks the free quote balance against the baseline and sweeps
// the excess when it clears the minimum. Returns the swept amount, zero when
// nothing was done.
func (s *Sweeper) MaybeSweep(ctx context.Context) (decimal.Decimal, error) {
	free, err := s.balances.FreeOf(ctx, s.quoteAsset)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to read balance for sweep")
	}

	growth := free.Sub(s.baseline)
	if growth.LessThan(s.minSweep) {
		return decimal.Zero, nil
	}

	if _, err := s.buyer.MarketBuyQuote(ctx, s.targetSymbol, growth); err != nil {
		return decimal.Zero, errors.Wrapf(err, "failed to sweep %s into %s", growth, s.targetSymbol)
	}

	s.baseline = free.Sub(growth)
	s.l.Info("profit swept",
		zap.String("amount", growth.String()),
		zap.String("target", s.targetSymbol),
		zap.String("baseline", s.baseline.String()))
	return growth, nil
}
