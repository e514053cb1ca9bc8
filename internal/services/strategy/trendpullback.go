package strategy

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/accumbot/internal/domain"
	"github.com/vadiminshakov/accumbot/internal/services/marketdata"
	"github.com/vadiminshakov/accumbot/pkg/indicators"
)

// TrendPullbackParams configure the hourly trend-following entry. Immutable
// after construction.
type TrendPullbackParams struct {
	CandlesLimit    int
	EMAFast         int
	EMASlow         int
	RSIPeriod       int
	RSIBuyMax       float64
	ATRPeriod       int
	MinATR          float64
	PullbackATRMult float64
}

// DefaultTrendPullbackParams is the tuned hourly parameter set.
func DefaultTrendPullbackParams() TrendPullbackParams {
	return TrendPullbackParams{
		CandlesLimit:    300,
		EMAFast:         50,
		EMASlow:         200,
		RSIPeriod:       14,
		RSIBuyMax:       62.0,
		ATRPeriod:       14,
		MinATR:          0.01,
		PullbackATRMult: 0.35,
	}
}

// TrendPullback is a BUY-only hourly strategy: enter on a pullback to the
// fast EMA inside an established uptrend. It is exit-agnostic; exits are the
// portfolio policy's job.
type TrendPullback struct {
	provider      marketdata.KlineProvider
	params        TrendPullbackParams
	quotePerTrade decimal.Decimal
}

// NewTrendPullback creates the strategy. provider may be nil for backtests.
func NewTrendPullback(provider marketdata.KlineProvider, params TrendPullbackParams, quotePerTrade decimal.Decimal) *TrendPullback {
	return &TrendPullback{provider: provider, params: params, quotePerTrade: quotePerTrade}
}

func (s *TrendPullback) Name() string     { return "trend_pullback" }
func (s *TrendPullback) Interval() string { return "60m" }

func (s *TrendPullback) WarmupBars() int {
	need := s.params.EMASlow
	if s.params.RSIPeriod > need {
		need = s.params.RSIPeriod
	}
	if s.params.ATRPeriod > need {
		need = s.params.ATRPeriod
	}
	return need + 10
}

// Generate fetches the live window and delegates to GenerateFromCandles.
func (s *TrendPullback) Generate(ctx context.Context, symbol string) (*domain.Signal, error) {
	candles, err := fetchWindow(ctx, s.provider, symbol, s.Interval(), s.params.CandlesLimit)
	if err != nil {
		return nil, errors.Wrapf(err, "trend_pullback: failed to fetch candles for %s", symbol)
	}
	return s.GenerateFromCandles(symbol, candles), nil
}

// GenerateFromCandles evaluates the window. All conditions must hold:
// uptrend (fast EMA above slow), prior close pulled back to the fast EMA,
// RSI not overbought, ATR above the dead-market floor.
func (s *TrendPullback) GenerateFromCandles(symbol string, candles []domain.Candle) *domain.Signal {
	if len(candles) < s.WarmupBars() {
		return nil
	}

	closes := domain.Closes(candles)
	highs := domain.Highs(candles)
	lows := domain.Lows(candles)

	emaFast, err := indicators.EMA(tail(closes, s.params.EMAFast*3), s.params.EMAFast)
	if err != nil {
		return nil
	}
	emaSlow, err := indicators.EMA(tail(closes, s.params.EMASlow*2), s.params.EMASlow)
	if err != nil {
		return nil
	}
	rsi, err := indicators.RSI(closes, s.params.RSIPeriod)
	if err != nil {
		return nil
	}
	atr, err := indicators.ATR(highs, lows, closes, s.params.ATRPeriod)
	if err != nil {
		return nil
	}

	// dead or illiquid market
	if atr < s.params.MinATR {
		return nil
	}

	// trend filter
	if emaFast <= emaSlow {
		return nil
	}

	// pullback to the trend line, not a breakout chase
	closePrev := closes[len(closes)-2]
	if abs(closePrev-emaFast) > atr*s.params.PullbackATRMult {
		return nil
	}

	// overbought guard
	if rsi > s.params.RSIBuyMax {
		return nil
	}

	return &domain.Signal{
		Side:   domain.SideBuy,
		Symbol: symbol,
		Reason: fmt.Sprintf("trend pullback: EMA%d>EMA%d RSI=%.1f ATR=%.4f",
			s.params.EMAFast, s.params.EMASlow, rsi, atr),
		SizeQuote: s.quotePerTrade,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
