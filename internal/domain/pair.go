// Package domain defines the core data structures shared by the live bot and the backtest engine.
package domain

import (
	"fmt"
	"strings"
)

// Pair cryptocurrency trading pair.
type Pair struct {
	// Base currency symbol, e.g. "ETH".
	Base string
	// Quote currency symbol, e.g. "USDT".
	Quote string
}

// String returns the underscore-separated representation, e.g. "ETH_USDT".
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.Base, p.Quote)
}

// Symbol returns the exchange symbol, e.g. "ETHUSDT".
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.Base, p.Quote)
}

// ParsePair parses the underscore-separated form, e.g. "ETH_USDT".
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("invalid pair %q, want BASE_QUOTE", s)
	}
	return Pair{Base: parts[0], Quote: parts[1]}, nil
}

// PairFromSymbol splits an exchange symbol into a Pair using the known quote asset.
func PairFromSymbol(symbol, quoteAsset string) (Pair, error) {
	if !strings.HasSuffix(symbol, quoteAsset) || len(symbol) == len(quoteAsset) {
		return Pair{}, fmt.Errorf("symbol %q is not quoted in %s", symbol, quoteAsset)
	}
	return Pair{Base: strings.TrimSuffix(symbol, quoteAsset), Quote: quoteAsset}, nil
}
