package marketdata

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/accumbot/internal/domain"
)

// BinanceKlineProvider implements KlineProvider for Binance as an alternate
// market data source. Symbols for the supported pairs match MEXC's.
type BinanceKlineProvider struct {
	client *binance.Client
}

// NewBinanceKlineProvider creates a Binance kline provider.
func NewBinanceKlineProvider(client *binance.Client) *BinanceKlineProvider {
	return &BinanceKlineProvider{client: client}
}

func (p *BinanceKlineProvider) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	return p.GetKlinesBefore(ctx, symbol, interval, limit, time.Time{})
}

func (p *BinanceKlineProvider) GetKlinesBefore(ctx context.Context, symbol, interval string, limit int, endTime time.Time) ([]domain.Candle, error) {
	svc := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(normalizeBinanceInterval(interval)).
		Limit(limit)
	if !endTime.IsZero() {
		svc = svc.EndTime(endTime.UnixMilli())
	}

	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", symbol)
	}

	result := make([]domain.Candle, len(klines))
	for i, k := range klines {
		open, err := decimal.NewFromString(k.Open)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse open price at index %d", i)
		}
		high, err := decimal.NewFromString(k.High)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse high price at index %d", i)
		}
		low, err := decimal.NewFromString(k.Low)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse low price at index %d", i)
		}
		close, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}
		volume, err := decimal.NewFromString(k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse volume at index %d", i)
		}

		result[i] = domain.Candle{
			OpenTime:  time.UnixMilli(k.OpenTime),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			CloseTime: time.UnixMilli(k.CloseTime),
		}
	}

	return result, nil
}

// normalizeBinanceInterval maps MEXC-style intervals to Binance's notation
// (MEXC uses "60m" where Binance uses "1h").
func normalizeBinanceInterval(interval string) string {
	if interval == "60m" {
		return "1h"
	}
	return interval
}
