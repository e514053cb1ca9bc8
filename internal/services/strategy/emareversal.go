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

// EMAReversalParams configure the hourly ETH accumulation strategy.
type EMAReversalParams struct {
	CandlesLimit      int
	EMAFast           int
	EMASlow           int
	RSIPeriod         int
	RSIBuyLevel       float64
	RSISellLevel      float64
	ATRPeriod         int
	PullbackATRMult   float64
	RSIBuyCeiling     float64
	RSIExitOverbought float64
	PremiumATRMult    float64
}

// DefaultEMAReversalParams is the canonical hourly ETH parameter set.
func DefaultEMAReversalParams() EMAReversalParams {
	return EMAReversalParams{
		CandlesLimit:      300,
		EMAFast:           50,
		EMASlow:           200,
		RSIPeriod:         14,
		RSIBuyLevel:       45.0,
		RSISellLevel:      55.0,
		ATRPeriod:         14,
		PullbackATRMult:   0.6,
		RSIBuyCeiling:     50.0,
		RSIExitOverbought: 70.0,
		PremiumATRMult:    0.5,
	}
}

// EMAReversal buys the dip inside an uptrend when RSI turns up from a low
// level, and sells only on a confirmed downtrend with price at a meaningful
// premium and RSI reversing down from deep overbought. Sells are deliberately
// rare: exits reduce accumulation.
type EMAReversal struct {
	provider      marketdata.KlineProvider
	params        EMAReversalParams
	quotePerTrade decimal.Decimal
}

// NewEMAReversal creates the strategy. provider may be nil for backtests.
func NewEMAReversal(provider marketdata.KlineProvider, params EMAReversalParams, quotePerTrade decimal.Decimal) *EMAReversal {
	return &EMAReversal{provider: provider, params: params, quotePerTrade: quotePerTrade}
}

func (s *EMAReversal) Name() string     { return "ema_reversal" }
func (s *EMAReversal) Interval() string { return "60m" }

func (s *EMAReversal) WarmupBars() int {
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
func (s *EMAReversal) Generate(ctx context.Context, symbol string) (*domain.Signal, error) {
	candles, err := fetchWindow(ctx, s.provider, symbol, s.Interval(), s.params.CandlesLimit)
	if err != nil {
		return nil, errors.Wrapf(err, "ema_reversal: failed to fetch candles for %s", symbol)
	}
	return s.GenerateFromCandles(symbol, candles), nil
}

func (s *EMAReversal) GenerateFromCandles(symbol string, candles []domain.Candle) *domain.Signal {
	if len(candles) < s.WarmupBars() {
		return nil
	}

	closes := domain.Closes(candles)
	highs := domain.Highs(candles)
	lows := domain.Lows(candles)
	n := len(closes)

	// fast EMA on the last closed bar and one bar earlier
	emaFastCur, err := indicators.EMA(tail(closes, s.params.EMAFast*3), s.params.EMAFast)
	if err != nil {
		return nil
	}
	emaFastPrev, err := indicators.EMA(tail(closes[:n-1], s.params.EMAFast*3), s.params.EMAFast)
	if err != nil {
		return nil
	}
	emaSlow, err := indicators.EMA(tail(closes, s.params.EMASlow*2), s.params.EMASlow)
	if err != nil {
		return nil
	}

	rsiCur, err := indicators.RSI(closes, s.params.RSIPeriod)
	if err != nil {
		return nil
	}
	rsiPrev, err := indicators.RSI(closes[:n-1], s.params.RSIPeriod)
	if err != nil {
		return nil
	}

	atr, err := indicators.ATR(highs, lows, closes, s.params.ATRPeriod)
	if err != nil || atr <= 0 {
		return nil
	}

	lastClose := closes[n-2]

	upTrend := emaFastCur > emaSlow && emaFastCur > emaFastPrev
	downTrend := emaFastCur < emaSlow && emaFastCur < emaFastPrev

	pullbackRange := atr * s.params.PullbackATRMult
	pullbackBuy := lastClose <= emaFastCur+pullbackRange
	pullbackSell := lastClose >= emaFastCur-pullbackRange

	// RSI reverses up from below the buy level while staying under the
	// ceiling: do not buy an already-hot bounce.
	rsiBuy := rsiPrev < s.params.RSIBuyLevel && rsiCur > rsiPrev && rsiCur < s.params.RSIBuyCeiling
	if upTrend && pullbackBuy && rsiBuy {
		return &domain.Signal{
			Side:   domain.SideBuy,
			Symbol: symbol,
			Reason: fmt.Sprintf("ema reversal: uptrend + pullback + RSI up from %.1f to %.1f",
				rsiPrev, rsiCur),
			SizeQuote: s.quotePerTrade,
		}
	}

	// SELL only on deep overbought with price at a premium above the fast
	// EMA and trend confirmed down.
	rsiSell := rsiPrev > s.params.RSISellLevel && rsiCur < rsiPrev && rsiCur > s.params.RSIExitOverbought
	premium := lastClose > emaFastCur+atr*s.params.PremiumATRMult
	if downTrend && pullbackSell && rsiSell && premium {
		return &domain.Signal{
			Side:   domain.SideSell,
			Symbol: symbol,
			Reason: fmt.Sprintf("ema reversal: downtrend + premium + RSI down from %.1f (overbought)",
				rsiPrev),
			SizeQuote: s.quotePerTrade,
		}
	}

	return nil
}
