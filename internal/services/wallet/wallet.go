// Package wallet simulates a spot wallet for backtests: balances, partial
// sells and weighted-average cost basis. The live cost-basis tracker mirrors
// this accounting exactly.
package wallet

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/accumbot/internal/domain"
)

// Trade is one executed simulated trade, appended to the wallet's log.
type Trade struct {
	Time         time.Time
	Side         domain.Side
	Symbol       string
	Price        decimal.Decimal
	Qty          decimal.Decimal
	QuoteBalance decimal.Decimal
}

// SpotWallet holds simulated balances and per-symbol cost basis. The quote
// balance never goes negative: buys that exceed it are rejected, not
// partially filled.
type SpotWallet struct {
	quote     decimal.Decimal
	holdings  map[string]decimal.Decimal
	totalCost map[string]decimal.Decimal
	avgCost   map[string]decimal.Decimal
	trades    []Trade
}

// NewSpotWallet creates a wallet with the given starting quote balance.
func NewSpotWallet(initialQuote decimal.Decimal) *SpotWallet {
	return &SpotWallet{
		quote:     initialQuote,
		holdings:  make(map[string]decimal.Decimal),
		totalCost: make(map[string]decimal.Decimal),
		avgCost:   make(map[string]decimal.Decimal),
	}
}

// Buy spends quoteAmount at price. A no-op returning false when the balance
// is insufficient; this is an expected condition during accumulation, not an
// error. Cost basis becomes the weighted average over all open quantity.
func (w *SpotWallet) Buy(symbol string, price, quoteAmount decimal.Decimal, at time.Time) bool {
	if quoteAmount.GreaterThan(w.quote) || price.LessThanOrEqual(decimal.Zero) || !quoteAmount.IsPositive() {
		return false
	}

	qty := quoteAmount.Div(price)
	w.quote = w.quote.Sub(quoteAmount)
	w.holdings[symbol] = w.holdings[symbol].Add(qty)
	w.totalCost[symbol] = w.totalCost[symbol].Add(quoteAmount)
	w.avgCost[symbol] = w.totalCost[symbol].Div(w.holdings[symbol])

	w.trades = append(w.trades, Trade{
		Time:         at,
		Side:         domain.SideBuy,
		Symbol:       symbol,
		Price:        price,
		Qty:          qty,
		QuoteBalance: w.quote,
	})
	return true
}

// SellPartial sells fraction (0,1] of the holdings at price. Total cost
// shrinks by the same fraction before the average is recomputed, so the
// remaining position keeps its average cost; only quantity and total cost
// shrink. When holdings reach zero the cost basis resets so a stale average
// cannot confuse later profitability checks.
func (w *SpotWallet) SellPartial(symbol string, price, fraction decimal.Decimal, at time.Time) bool {
	held := w.holdings[symbol]
	if !held.IsPositive() || !fraction.IsPositive() || fraction.GreaterThan(decimal.NewFromInt(1)) {
		return false
	}

	qty := held.Mul(fraction)
	w.quote = w.quote.Add(qty.Mul(price))
	w.holdings[symbol] = held.Sub(qty)
	w.totalCost[symbol] = w.totalCost[symbol].Sub(w.totalCost[symbol].Mul(fraction))

	if w.holdings[symbol].IsPositive() {
		w.avgCost[symbol] = w.totalCost[symbol].Div(w.holdings[symbol])
	} else {
		w.holdings[symbol] = decimal.Zero
		w.totalCost[symbol] = decimal.Zero
		w.avgCost[symbol] = decimal.Zero
	}

	w.trades = append(w.trades, Trade{
		Time:         at,
		Side:         domain.SideSell,
		Symbol:       symbol,
		Price:        price,
		Qty:          qty,
		QuoteBalance: w.quote,
	})
	return true
}

// SellAll liquidates the whole position.
func (w *SpotWallet) SellAll(symbol string, price decimal.Decimal, at time.Time) bool {
	return w.SellPartial(symbol, price, decimal.NewFromInt(1), at)
}

// IsProfitable reports whether selling at currentPrice clears minProfit
// (a fraction, e.g. 0.05 for 5%). False when no cost basis is recorded.
func (w *SpotWallet) IsProfitable(symbol string, currentPrice, minProfit decimal.Decimal) bool {
	avg := w.avgCost[symbol]
	if !avg.IsPositive() {
		return false
	}
	return currentPrice.Sub(avg).Div(avg).GreaterThanOrEqual(minProfit)
}

// AvgCost returns the weighted-average entry price, zero when flat.
func (w *SpotWallet) AvgCost(symbol string) decimal.Decimal {
	return w.avgCost[symbol]
}

// Holdings returns the open base quantity for symbol.
func (w *SpotWallet) Holdings(symbol string) decimal.Decimal {
	return w.holdings[symbol]
}

// AllHoldings returns a copy of the holdings map.
func (w *SpotWallet) AllHoldings() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(w.holdings))
	for symbol, qty := range w.holdings {
		out[symbol] = qty
	}
	return out
}

// QuoteBalance returns the free quote balance.
func (w *SpotWallet) QuoteBalance() decimal.Decimal {
	return w.quote
}

// Trades returns the append-only trade log.
func (w *SpotWallet) Trades() []Trade {
	return w.trades
}

// Value marks the portfolio to market: quote balance plus holdings at the
// supplied prices.
func (w *SpotWallet) Value(prices map[string]decimal.Decimal) decimal.Decimal {
	total := w.quote
	for symbol, qty := range w.holdings {
		if price, ok := prices[symbol]; ok {
			total = total.Add(qty.Mul(price))
		}
	}
	return total
}
