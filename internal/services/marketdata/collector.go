// Package marketdata provides candle collection from exchanges, including
// backward-paginated history fetch for backtests.
package marketdata

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/accumbot/internal/domain"
	"github.com/vadiminshakov/accumbot/internal/exchange/mexc"
	"github.com/vadiminshakov/accumbot/pkg/retrier"
)

// pause between history pages to stay inside exchange rate limits
const pageDelay = 200 * time.Millisecond

// KlineProvider fetches candle data from an exchange. Candles are returned
// ascending by open time.
type KlineProvider interface {
	// GetKlines fetches up to limit of the most recent candles.
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
	// GetKlinesBefore fetches up to limit candles ending before endTime.
	// A zero endTime means "now".
	GetKlinesBefore(ctx context.Context, symbol, interval string, limit int, endTime time.Time) ([]domain.Candle, error)
}

// MexcKlineProvider implements KlineProvider over the MEXC REST client.
type MexcKlineProvider struct {
	client *mexc.Client
}

// NewMexcKlineProvider creates a MEXC kline provider.
func NewMexcKlineProvider(client *mexc.Client) *MexcKlineProvider {
	return &MexcKlineProvider{client: client}
}

func (p *MexcKlineProvider) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	return p.client.Klines(ctx, symbol, interval, limit)
}

func (p *MexcKlineProvider) GetKlinesBefore(ctx context.Context, symbol, interval string, limit int, endTime time.Time) ([]domain.Candle, error) {
	return p.client.KlinesBefore(ctx, symbol, interval, limit, endTime)
}

// FetchHistory pages backward from now until maxCandles are collected or the
// exchange returns an empty page. Each page is retried with bounded
// exponential backoff; a short delay separates pages.
func FetchHistory(ctx context.Context, provider KlineProvider, symbol, interval string, pageSize, maxCandles int) ([]domain.Candle, error) {
	if pageSize <= 0 || maxCandles <= 0 {
		return nil, errors.New("pageSize and maxCandles must be positive")
	}

	r := retrier.New()
	var all []domain.Candle
	var endTime time.Time

	for len(all) < maxCandles {
		page, err := retrier.DoWithData(r, ctx, func(ctx context.Context) ([]domain.Candle, error) {
			return provider.GetKlinesBefore(ctx, symbol, interval, pageSize, endTime)
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch history page for %s", symbol)
		}
		if len(page) == 0 {
			break
		}

		all = append(page, all...)
		endTime = page[0].OpenTime.Add(-time.Millisecond)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pageDelay):
		}
	}

	if len(all) > maxCandles {
		all = all[len(all)-maxCandles:]
	}
	return all, nil
}
