package indicators

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func constantSeries(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestEMAConstantSeries(t *testing.T) {
	for _, v := range []float64{1, 42.5, 1900.0} {
		ema, err := EMA(constantSeries(v, 60), 14)
		require.NoError(t, err)
		require.InDelta(t, v, ema, 1e-9)
	}
}

func TestEMATrendsTowardRecentValues(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}

	ema, err := EMA(values, 10)
	require.NoError(t, err)
	require.Greater(t, ema, 90.0, "EMA of an increasing series should sit near the recent values")
	require.Less(t, ema, 99.0)
}

func TestEMAInsufficientData(t *testing.T) {
	_, err := EMA(constantSeries(1, 14), 14)
	require.Error(t, err)
}

func TestRSIAllGains(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	rsi, err := RSI(values, 14)
	require.NoError(t, err)
	require.Equal(t, 100.0, rsi, "RSI must be 100 when there are no losses")
}

func TestRSIBalancedMoves(t *testing.T) {
	// alternating equal gains and losses give RSI 50
	values := make([]float64, 30)
	for i := range values {
		if i%2 == 0 {
			values[i] = 10
		} else {
			values[i] = 11
		}
	}
	rsi, err := RSI(values, 14)
	require.NoError(t, err)
	require.InDelta(t, 50.0, rsi, 1e-9)
}

func TestRSIInsufficientData(t *testing.T) {
	_, err := RSI(constantSeries(1, 14), 14)
	require.Error(t, err)
}

func TestATRFlatRange(t *testing.T) {
	n := 20
	highs := constantSeries(11, n)
	lows := constantSeries(9, n)
	closes := constantSeries(10, n)

	atr, err := ATR(highs, lows, closes, 14)
	require.NoError(t, err)
	require.InDelta(t, 2.0, atr, 1e-9)
}

func TestATRUsesPrevCloseGap(t *testing.T) {
	// a gap above the previous close widens the true range
	highs := []float64{10, 10, 20}
	lows := []float64{9, 9, 19}
	closes := []float64{9.5, 9.5, 19.5}

	atr, err := ATR(highs, lows, closes, 2)
	require.NoError(t, err)
	// bar -1: max(1, |20-9.5|, |19-9.5|) = 10.5; bar -2: max(1, 0.5, 0.5) = 1
	require.InDelta(t, (10.5+1)/2, atr, 1e-9)
}

func TestATRInsufficientData(t *testing.T) {
	_, err := ATR(constantSeries(1, 14), constantSeries(1, 14), constantSeries(1, 14), 14)
	require.Error(t, err)
}
