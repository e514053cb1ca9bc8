package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Side represents the direction of a trade signal.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Signal is the contract every strategy produces. It is created fresh on each
// evaluation and consumed immediately by the execution layer or the backtest
// engine, never mutated.
type Signal struct {
	Side   Side
	Symbol string
	// Reason is a human-readable explanation of which conditions fired.
	// It ends up in logs and the trade journal for audit.
	Reason string
	// SizeQuote is the quote-currency amount to transact.
	SizeQuote decimal.Decimal
}

// String returns a human-readable representation.
func (s *Signal) String() string {
	return fmt.Sprintf("%s %s size=%s reason=%s", s.Side, s.Symbol, s.SizeQuote.String(), s.Reason)
}
