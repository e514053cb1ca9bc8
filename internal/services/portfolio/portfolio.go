// Package portfolio reads live account balances from the exchange.
package portfolio

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/accumbot/internal/exchange/mexc"
)

// AccountClient is the slice of the exchange client this service needs.
type AccountClient interface {
	Account(ctx context.Context) ([]mexc.AssetBalance, error)
}

// Balance is the free and locked amount of one asset.
type Balance struct {
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// Total returns free plus locked.
func (b Balance) Total() decimal.Decimal {
	return b.Free.Add(b.Locked)
}

// Service exposes account balances keyed by asset.
type Service struct {
	client AccountClient
}

func New(client AccountClient) *Service {
	return &Service{client: client}
}

// Balances fetches all non-zero balances.
func (s *Service) Balances(ctx context.Context) (map[string]Balance, error) {
	assets, err := s.client.Account(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch balances")
	}

	balances := make(map[string]Balance, len(assets))
	for _, a := range assets {
		if a.Free.IsZero() && a.Locked.IsZero() {
			continue
		}
		balances[a.Asset] = Balance{Free: a.Free, Locked: a.Locked}
	}
	return balances, nil
}

// FreeOf returns the free balance of a single asset, zero when absent.
func (s *Service) FreeOf(ctx context.Context, asset string) (decimal.Decimal, error) {
	balances, err := s.Balances(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return balances[asset].Free, nil
}
