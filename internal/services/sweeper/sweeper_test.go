package sweeper

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/accumbot/internal/services/executor"
	"go.uber.org/zap"
)

// fakeExchange models the balance side effect of a sweep buy: spending quote
// debits the free balance, as on a real exchange.
type fakeExchange struct {
	free   decimal.Decimal
	bought []decimal.Decimal
}

func (f *fakeExchange) FreeOf(_ context.Context, _ string) (decimal.Decimal, error) {
	return f.free, nil
}

func (f *fakeExchange) MarketBuyQuote(_ context.Context, _ string, quoteAmount decimal.Decimal) (*executor.Fill, error) {
	f.bought = append(f.bought, quoteAmount)
	f.free = f.free.Sub(quoteAmount)
	return &executor.Fill{QuoteQty: quoteAmount}, nil
}

func TestSweepBelowMinimumDoesNothing(t *testing.T) {
	ex := &fakeExchange{free: decimal.NewFromInt(100)}
	s := New(ex, ex, "USDT", "BTCUSDT", decimal.NewFromInt(5), zap.NewNop())
	require.NoError(t, s.Init(context.Background()))

	ex.free = decimal.NewFromInt(104)
	swept, err := s.MaybeSweep(context.Background())
	require.NoError(t, err)
	require.True(t, swept.IsZero())
	require.Empty(t, ex.bought)
}

func TestSweepAboveMinimumBuysAndRebases(t *testing.T) {
	ex := &fakeExchange{free: decimal.NewFromInt(100)}
	s := New(ex, ex, "USDT", "BTCUSDT", decimal.NewFromInt(5), zap.NewNop())
	require.NoError(t, s.Init(context.Background()))

	ex.free = decimal.NewFromInt(112)
	swept, err := s.MaybeSweep(context.Background())
	require.NoError(t, err)

	require.True(t, swept.Equal(decimal.NewFromInt(12)))
	require.Len(t, ex.bought, 1)
	require.True(t, ex.bought[0].Equal(decimal.NewFromInt(12)))
	// the buy spent the excess, so the balance and baseline are back at the
	// pre-growth level and the same profit is not swept twice
	require.True(t, ex.free.Equal(decimal.NewFromInt(100)))
	require.True(t, s.Baseline().Equal(decimal.NewFromInt(100)))

	swept, err = s.MaybeSweep(context.Background())
	require.NoError(t, err)
	require.True(t, swept.IsZero())
	require.Len(t, ex.bought, 1)
}

func TestSweepHandlesShrinkingBalance(t *testing.T) {
	ex := &fakeExchange{free: decimal.NewFromInt(100)}
	s := New(ex, ex, "USDT", "BTCUSDT", decimal.NewFromInt(5), zap.NewNop())
	require.NoError(t, s.Init(context.Background()))

	ex.free = decimal.NewFromInt(80)
	swept, err := s.MaybeSweep(context.Background())
	require.NoError(t, err)
	require.True(t, swept.IsZero())
	require.Empty(t, ex.bought)
}
