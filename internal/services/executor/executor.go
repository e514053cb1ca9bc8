// Package executor turns decided trades into exchange orders. In dry-run
// mode no order leaves the process: fills are synthesized at the current
// book price so the rest of the pipeline behaves identically.
package executor

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/accumbot/internal/domain"
	"github.com/vadiminshakov/accumbot/internal/exchange/mexc"
	"go.uber.org/zap"
)

// OrderClient is the slice of the exchange client the executor needs.
type OrderClient interface {
	BookTickerBid(ctx context.Context, symbol string) (decimal.Decimal, error)
	PlaceOrder(ctx context.Context, req mexc.OrderRequest) (*mexc.OrderResult, error)
}

// Fill is a normalized execution report, real or synthesized.
type Fill struct {
	Symbol   string
	Side     domain.Side
	Price    decimal.Decimal
	BaseQty  decimal.Decimal
	QuoteQty decimal.Decimal
	Time     time.Time
	DryRun   bool
}

// Executor places market orders and normalizes the confirmations.
type Executor struct {
	client OrderClient
	dryRun bool
	l      *zap.Logger
}

func New(client OrderClient, dryRun bool, l *zap.Logger) *Executor {
	return &Executor{client: client, dryRun: dryRun, l: l}
}

// DryRun reports whether the executor synthesizes fills instead of trading.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Price returns the current best bid for symbol.
func (e *Executor) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return e.client.BookTickerBid(ctx, symbol)
}

// MarketBuyQuote buys for quoteAmount of the quote currency at market.
func (e *Executor) MarketBuyQuote(ctx context.Context, symbol string, quoteAmount decimal.Decimal) (*Fill, error) {
	if !quoteAmount.IsPositive() {
		return nil, errors.Errorf("non-positive buy amount %s for %s", quoteAmount, symbol)
	}

	price, err := e.client.BookTickerBid(ctx, symbol)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to price buy for %s", symbol)
	}

	if e.dryRun {
		fill := &Fill{
			Symbol:   symbol,
			Side:     domain.SideBuy,
			Price:    price,
			BaseQty:  quoteAmount.Div(price),
			QuoteQty: quoteAmount,
			Time:     time.Now(),
			DryRun:   true,
		}
		e.l.Info("dry-run buy",
			zap.String("symbol", symbol),
			zap.String("price", price.String()),
			zap.String("quote", quoteAmount.String()))
		return fill, nil
	}

	result, err := e.client.PlaceOrder(ctx, mexc.OrderRequest{
		Symbol:        symbol,
		Side:          domain.SideBuy,
		Type:          "MARKET",
		QuoteOrderQty: quoteAmount,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to place market buy for %s", symbol)
	}

	return e.fillFromResult(symbol, domain.SideBuy, price, result), nil
}

// MarketSellBase sells baseQty of the base asset at market.
func (e *Executor) MarketSellBase(ctx context.Context, symbol string, baseQty decimal.Decimal) (*Fill, error) {
	if !baseQty.IsPositive() {
		return nil, errors.Errorf("non-positive sell quantity %s for %s", baseQty, symbol)
	}

	price, err := e.client.BookTickerBid(ctx, symbol)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to price sell for %s", symbol)
	}

	if e.dryRun {
		fill := &Fill{
			Symbol:   symbol,
			Side:     domain.SideSell,
			Price:    price,
			BaseQty:  baseQty,
			QuoteQty: baseQty.Mul(price),
			Time:     time.Now(),
			DryRun:   true,
		}
		e.l.Info("dry-run sell",
			zap.String("symbol", symbol),
			zap.String("price", price.String()),
			zap.String("qty", baseQty.String()))
		return fill, nil
	}

	result, err := e.client.PlaceOrder(ctx, mexc.OrderRequest{
		Symbol:   symbol,
		Side:     domain.SideSell,
		Type:     "MARKET",
		Quantity: baseQty,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to place market sell for %s", symbol)
	}

	return e.fillFromResult(symbol, domain.SideSell, price, result), nil
}

// fillFromResult prefers exchange-reported executed amounts, falling back to
// the book price when the confirmation omits a field.
func (e *Executor) fillFromResult(symbol string, side domain.Side, bookPrice decimal.Decimal, result *mexc.OrderResult) *Fill {
	price := result.Price
	if !price.IsPositive() && result.ExecutedQty.IsPositive() && result.CumQuoteQty.IsPositive() {
		price = result.CumQuoteQty.Div(result.ExecutedQty)
	}
	if !price.IsPositive() {
		price = bookPrice
	}

	baseQty := result.ExecutedQty
	quoteQty := result.CumQuoteQty
	if !baseQty.IsPositive() && quoteQty.IsPositive() {
		baseQty = quoteQty.Div(price)
	}
	if !quoteQty.IsPositive() && baseQty.IsPositive() {
		quoteQty = baseQty.Mul(price)
	}

	e.l.Info("order executed",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.String("orderID", result.OrderID),
		zap.String("price", price.String()),
		zap.String("baseQty", baseQty.String()))

	return &Fill{
		Symbol:   symbol,
		Side:     side,
		Price:    price,
		BaseQty:  baseQty,
		QuoteQty: quoteQty,
		Time:     time.Now(),
	}
}
