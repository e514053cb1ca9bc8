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

// MeanReversionParams configure the 4-hour XRP mean-reversion strategy.
type MeanReversionParams struct {
	CandlesLimit  int
	EMASlow       int
	EMAMid        int
	ATRPeriod     int
	RSIPeriod     int
	DevATRMult    float64
	RSIOversold   float64
	RSIOverbought float64
	MinATR        float64
}

// DefaultMeanReversionParams is the canonical 4-hour parameter set.
func DefaultMeanReversionParams() MeanReversionParams {
	return MeanReversionParams{
		CandlesLimit:  300,
		EMASlow:       200,
		EMAMid:        50,
		ATRPeriod:     14,
		RSIPeriod:     14,
		DevATRMult:    3.0,
		RSIOversold:   28.0,
		RSIOverbought: 72.0,
		MinATR:        0.005,
	}
}

// MeanReversion buys deep discounts below the 200 EMA when oversold and no
// downtrend is confirmed, and sells the symmetric premium when overbought.
type MeanReversion struct {
	provider      marketdata.KlineProvider
	params        MeanReversionParams
	quotePerTrade decimal.Decimal
}

// NewMeanReversion creates the strategy. provider may be nil for backtests.
func NewMeanReversion(provider marketdata.KlineProvider, params MeanReversionParams, quotePerTrade decimal.Decimal) *MeanReversion {
	return &MeanReversion{provider: provider, params: params, quotePerTrade: quotePerTrade}
}

func (s *MeanReversion) Name() string     { return "mean_reversion" }
func (s *MeanReversion) Interval() string { return "4h" }

func (s *MeanReversion) WarmupBars() int {
	need := s.params.EMASlow
	if s.params.RSIPeriod > need {
		need = s.params.RSIPeriod
	}
	if s.params.ATRPeriod > need {
		need = s.params.ATRPeriod
	}
	return need + 5
}

// Generate fetches the live window and delegates to GenerateFromCandles.
func (s *MeanReversion) Generate(ctx context.Context, symbol string) (*domain.Signal, error) {
	candles, err := fetchWindow(ctx, s.provider, symbol, s.Interval(), s.params.CandlesLimit)
	if err != nil {
		return nil, errors.Wrapf(err, "mean_reversion: failed to fetch candles for %s", symbol)
	}
	return s.GenerateFromCandles(symbol, candles), nil
}

func (s *MeanReversion) GenerateFromCandles(symbol string, candles []domain.Candle) *domain.Signal {
	if len(candles) < s.WarmupBars() {
		return nil
	}

	closes := domain.Closes(candles)
	highs := domain.Highs(candles)
	lows := domain.Lows(candles)

	emaSlow, err := indicators.EMA(tail(closes, s.params.EMASlow*2), s.params.EMASlow)
	if err != nil {
		return nil
	}
	emaMid, err := indicators.EMA(tail(closes, s.params.EMAMid*3), s.params.EMAMid)
	if err != nil {
		return nil
	}
	atr, err := indicators.ATR(highs, lows, closes, s.params.ATRPeriod)
	if err != nil {
		return nil
	}
	rsi, err := indicators.RSI(closes, s.params.RSIPeriod)
	if err != nil {
		return nil
	}

	if atr < s.params.MinATR {
		return nil
	}

	// last closed candle
	lastClose := closes[len(closes)-2]
	deviation := atr * s.params.DevATRMult

	// deep discount, oversold, no confirmed downtrend
	if lastClose < emaSlow-deviation && rsi < s.params.RSIOversold && emaMid >= emaSlow {
		return &domain.Signal{
			Side:   domain.SideBuy,
			Symbol: symbol,
			Reason: fmt.Sprintf("mean reversion: close %.4f below EMA%d by >%.1fxATR, RSI=%.1f oversold",
				lastClose, s.params.EMASlow, s.params.DevATRMult, rsi),
			SizeQuote: s.quotePerTrade,
		}
	}

	// symmetric premium, overbought, no confirmed uptrend
	if lastClose > emaSlow+deviation && rsi > s.params.RSIOverbought && emaMid <= emaSlow {
		return &domain.Signal{
			Side:   domain.SideSell,
			Symbol: symbol,
			Reason: fmt.Sprintf("mean reversion: close %.4f above EMA%d by >%.1fxATR, RSI=%.1f overbought",
				lastClose, s.params.EMASlow, s.params.DevATRMult, rsi),
			SizeQuote: s.quotePerTrade,
		}
	}

	return nil
}
