// Package indicators provides the technical indicators (EMA, RSI, ATR) used by the strategies.
package indicators

import (
	"fmt"
	"math"
)

// EMA calculates the exponential moving average over the supplied window,
// oldest to newest. The first element seeds the average, then
// e = v*k + e*(1-k) with k = 2/(period+1). The caller controls the effective
// lookback by slicing the window; no internal clamping is applied.
func EMA(values []float64, period int) (float64, error) {
	if len(values) < period+1 {
		return 0, fmt.Errorf("not enough data points for EMA: need %d, got %d", period+1, len(values))
	}

	k := 2.0 / (float64(period) + 1.0)
	ema := values[0]
	for _, v := range values[1:] {
		ema = v*k + ema*(1-k)
	}
	return ema, nil
}

// RSI calculates the Wilder-style relative strength index over the most
// recent period differences, anchored at the end of the window. Returns 100
// when there are no losses.
func RSI(closes []float64, period int) (float64, error) {
	if len(closes) < period+1 {
		return 0, fmt.Errorf("not enough data points for RSI: need %d, got %d", period+1, len(closes))
	}

	var gains, losses float64
	n := len(closes)
	for i := 1; i <= period; i++ {
		diff := closes[n-i] - closes[n-i-1]
		if diff >= 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}

	if losses == 0 {
		return 100, nil
	}

	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - (100 / (1 + rs)), nil
}

// ATR calculates the average true range over the most recent period bars.
// True range is max(high-low, |high-prevClose|, |low-prevClose|).
func ATR(highs, lows, closes []float64, period int) (float64, error) {
	if len(closes) < period+1 || len(highs) < period+1 || len(lows) < period+1 {
		return 0, fmt.Errorf("not enough data points for ATR: need %d, got %d", period+1, len(closes))
	}

	var sum float64
	nh, nl, nc := len(highs), len(lows), len(closes)
	for i := 1; i <= period; i++ {
		h := highs[nh-i]
		l := lows[nl-i]
		prev := closes[nc-i-1]
		tr := math.Max(h-l, math.Max(math.Abs(h-prev), math.Abs(l-prev)))
		sum += tr
	}
	return sum / float64(period), nil
}
