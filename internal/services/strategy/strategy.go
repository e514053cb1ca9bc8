// Package strategy implements the signal engines. Every variant exposes one
// pure function over an explicit candle window; the live path only fetches
// the window and delegates, so live and backtest behavior are identical.
package strategy

import (
	"context"

	"github.com/vadiminshakov/accumbot/internal/domain"
	"github.com/vadiminshakov/accumbot/internal/services/marketdata"
)

// Strategy generates trade signals from candle windows.
type Strategy interface {
	Name() string
	// Interval is the candle interval the strategy evaluates, e.g. "60m".
	Interval() string
	// WarmupBars is the minimum window length below which the strategy
	// declines to signal.
	WarmupBars() int
	// Generate is the live entry point: fetch the current window, delegate
	// to GenerateFromCandles.
	Generate(ctx context.Context, symbol string) (*domain.Signal, error)
	// GenerateFromCandles is the shared pure signal function. The window
	// must be ascending by time. Returns nil when no condition matches or
	// the window is too short.
	GenerateFromCandles(symbol string, candles []domain.Candle) *domain.Signal
}

// fetchWindow is the shared live adapter used by all variants.
func fetchWindow(ctx context.Context, provider marketdata.KlineProvider, symbol, interval string, limit int) ([]domain.Candle, error) {
	if provider == nil {
		return nil, nil
	}
	return provider.GetKlines(ctx, symbol, interval, limit)
}

// tail returns at most the last n elements; the whole slice when it is shorter.
func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
