package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle single OHLCV candlestick. Sequences are always ordered ascending by OpenTime.
type Candle struct {
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime time.Time
}

// Closes extracts close prices as float64 for indicator math.
func Closes(candles []Candle) []float64 {
	result := make([]float64, len(candles))
	for i, c := range candles {
		result[i], _ = c.Close.Float64()
	}
	return result
}

// Highs extracts high prices as float64 for indicator math.
func Highs(candles []Candle) []float64 {
	result := make([]float64, len(candles))
	for i, c := range candles {
		result[i], _ = c.High.Float64()
	}
	return result
}

// Lows extracts low prices as float64 for indicator math.
func Lows(candles []Candle) []float64 {
	result := make([]float64, len(candles))
	for i, c := range candles {
		result[i], _ = c.Low.Float64()
	}
	return result
}
