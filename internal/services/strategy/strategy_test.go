package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/accumbot/internal/domain"
)

// candlesFromCloses builds a candle series with highs and lows one unit
// around each close.
func candlesFromCloses(closes []float64) []domain.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		candles[i] = domain.Candle{
			OpenTime:  start.Add(time.Duration(i) * time.Hour),
			Open:      decimal.NewFromFloat(c),
			High:      decimal.NewFromFloat(c + 1),
			Low:       decimal.NewFromFloat(c - 1),
			Close:     decimal.NewFromFloat(c),
			Volume:    decimal.NewFromInt(1),
			CloseTime: start.Add(time.Duration(i+1) * time.Hour),
		}
	}
	return candles
}

func ramp(from, to, step float64) []float64 {
	var out []float64
	if step > 0 {
		for v := from; v <= to; v += step {
			out = append(out, v)
		}
	} else {
		for v := from; v >= to; v += step {
			out = append(out, v)
		}
	}
	return out
}

func smallTrendPullbackParams() TrendPullbackParams {
	return TrendPullbackParams{
		CandlesLimit:    300,
		EMAFast:         3,
		EMASlow:         10,
		RSIPeriod:       3,
		RSIBuyMax:       100,
		ATRPeriod:       3,
		MinATR:          0,
		PullbackATRMult: 100,
	}
}

func TestTrendPullbackBuysInUptrend(t *testing.T) {
	s := NewTrendPullback(nil, smallTrendPullbackParams(), decimal.NewFromInt(50))
	candles := candlesFromCloses(ramp(1, 40, 1))

	signal := s.GenerateFromCandles("ETHUSDT", candles)
	require.NotNil(t, signal)
	require.Equal(t, domain.SideBuy, signal.Side)
	require.Equal(t, "ETHUSDT", signal.Symbol)
	require.True(t, signal.SizeQuote.Equal(decimal.NewFromInt(50)))
}

func TestTrendPullbackDeclines(t *testing.T) {
	uptrend := ramp(1, 40, 1)

	t.Run("downtrend", func(t *testing.T) {
		s := NewTrendPullback(nil, smallTrendPullbackParams(), decimal.NewFromInt(50))
		require.Nil(t, s.GenerateFromCandles("ETHUSDT", candlesFromCloses(ramp(40, 1, -1))))
	})

	t.Run("overbought", func(t *testing.T) {
		params := smallTrendPullbackParams()
		params.RSIBuyMax = 0
		s := NewTrendPullback(nil, params, decimal.NewFromInt(50))
		require.Nil(t, s.GenerateFromCandles("ETHUSDT", candlesFromCloses(uptrend)))
	})

	t.Run("dead market", func(t *testing.T) {
		params := smallTrendPullbackParams()
		params.MinATR = 1000
		s := NewTrendPullback(nil, params, decimal.NewFromInt(50))
		require.Nil(t, s.GenerateFromCandles("ETHUSDT", candlesFromCloses(uptrend)))
	})

	t.Run("no pullback", func(t *testing.T) {
		params := smallTrendPullbackParams()
		params.PullbackATRMult = 0
		s := NewTrendPullback(nil, params, decimal.NewFromInt(50))
		// breakout spike: prior close far from the fast EMA
		closes := append(ramp(1, 40, 1), 60)
		require.Nil(t, s.GenerateFromCandles("ETHUSDT", candlesFromCloses(closes)))
	})

	t.Run("short window", func(t *testing.T) {
		s := NewTrendPullback(nil, smallTrendPullbackParams(), decimal.NewFromInt(50))
		require.Nil(t, s.GenerateFromCandles("ETHUSDT", candlesFromCloses(ramp(1, 10, 1))))
	})
}

func smallEMAReversalParams() EMAReversalParams {
	return EMAReversalParams{
		CandlesLimit:      300,
		EMAFast:           3,
		EMASlow:           10,
		RSIPeriod:         3,
		ATRPeriod:         3,
		RSIBuyLevel:       60,
		RSIBuyCeiling:     70,
		RSISellLevel:      40,
		RSIExitOverbought: 30,
		PullbackATRMult:   5,
		PremiumATRMult:    0.1,
	}
}

func TestEMAReversalBuysOnRSIUpturnInUptrend(t *testing.T) {
	s := NewEMAReversal(nil, smallEMAReversalParams(), decimal.NewFromInt(50))

	// uptrend, one-bar dip, reversal up: RSI turns up from 50 to 66.7
	closes := append(ramp(1, 30, 1), 28, 31)
	signal := s.GenerateFromCandles("ETHUSDT", candlesFromCloses(closes))
	require.NotNil(t, signal)
	require.Equal(t, domain.SideBuy, signal.Side)
}

func TestEMAReversalSellsOnOverboughtFadeInDowntrend(t *testing.T) {
	s := NewEMAReversal(nil, smallEMAReversalParams(), decimal.NewFromInt(50))

	// downtrend, one-bar bounce above the fast EMA, fade: RSI falls 50 to 33.3
	closes := append(ramp(60, 31, -1), 33, 30)
	signal := s.GenerateFromCandles("ETHUSDT", candlesFromCloses(closes))
	require.NotNil(t, signal)
	require.Equal(t, domain.SideSell, signal.Side)
}

func TestEMAReversalDeclines(t *testing.T) {
	s := NewEMAReversal(nil, smallEMAReversalParams(), decimal.NewFromInt(50))

	t.Run("steady uptrend without reversal", func(t *testing.T) {
		// RSI stays at 100, above the buy level
		require.Nil(t, s.GenerateFromCandles("ETHUSDT", candlesFromCloses(ramp(1, 40, 1))))
	})

	t.Run("steady downtrend without bounce", func(t *testing.T) {
		// RSI at 0, below the exit-overbought floor
		require.Nil(t, s.GenerateFromCandles("ETHUSDT", candlesFromCloses(ramp(40, 1, -1))))
	})

	t.Run("short window", func(t *testing.T) {
		require.Nil(t, s.GenerateFromCandles("ETHUSDT", candlesFromCloses(ramp(1, 10, 1))))
	})
}

func smallMeanReversionParams() MeanReversionParams {
	return MeanReversionParams{
		CandlesLimit:  300,
		EMAMid:        10,
		EMASlow:       15,
		RSIPeriod:     3,
		ATRPeriod:     3,
		DevATRMult:    0.5,
		RSIOversold:   28,
		RSIOverbought: 72,
		MinATR:        0,
	}
}

func TestMeanReversionBuysDeepDiscount(t *testing.T) {
	s := NewMeanReversion(nil, smallMeanReversionParams(), decimal.NewFromInt(40))

	// long uptrend keeps the mid EMA above the slow one, then a sharp
	// two-bar selloff opens a discount with RSI pinned low
	closes := append(ramp(1, 60, 1), 48, 47)
	signal := s.GenerateFromCandles("XRPUSDT", candlesFromCloses(closes))
	require.NotNil(t, signal)
	require.Equal(t, domain.SideBuy, signal.Side)
	require.True(t, signal.SizeQuote.Equal(decimal.NewFromInt(40)))
}

func TestMeanReversionSellsDeepPremium(t *testing.T) {
	s := NewMeanReversion(nil, smallMeanReversionParams(), decimal.NewFromInt(40))

	// mirror: long downtrend, then a sharp two-bar squeeze above the mean
	closes := append(ramp(100, 41, -1), 53, 54)
	signal := s.GenerateFromCandles("XRPUSDT", candlesFromCloses(closes))
	require.NotNil(t, signal)
	require.Equal(t, domain.SideSell, signal.Side)
}

func TestMeanReversionDeclines(t *testing.T) {
	t.Run("no deviation", func(t *testing.T) {
		s := NewMeanReversion(nil, smallMeanReversionParams(), decimal.NewFromInt(40))
		flat := make([]float64, 60)
		for i := range flat {
			flat[i] = 100
		}
		require.Nil(t, s.GenerateFromCandles("XRPUSDT", candlesFromCloses(flat)))
	})

	t.Run("dead market", func(t *testing.T) {
		params := smallMeanReversionParams()
		params.MinATR = 1000
		s := NewMeanReversion(nil, params, decimal.NewFromInt(40))
		closes := append(ramp(1, 60, 1), 48, 47)
		require.Nil(t, s.GenerateFromCandles("XRPUSDT", candlesFromCloses(closes)))
	})

	t.Run("short window", func(t *testing.T) {
		s := NewMeanReversion(nil, smallMeanReversionParams(), decimal.NewFromInt(40))
		require.Nil(t, s.GenerateFromCandles("XRPUSDT", candlesFromCloses(ramp(1, 10, 1))))
	})
}

func TestFactoryBuildsEachStrategy(t *testing.T) {
	for _, name := range []string{"trend_pullback", "ema_reversal", "mean_reversion"} {
		s, err := New(name, nil, 250, decimal.NewFromInt(50))
		require.NoError(t, err)
		require.Equal(t, name, s.Name())
	}

	_, err := New("momentum", nil, 0, decimal.NewFromInt(50))
	require.Error(t, err)
}
