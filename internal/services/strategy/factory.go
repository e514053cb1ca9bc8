package strategy

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/accumbot/internal/services/marketdata"
)

// New builds a strategy by its config name with the tuned default parameters.
// candleLimit overrides the default window size when positive.
func New(name string, provider marketdata.KlineProvider, candleLimit int, quotePerTrade decimal.Decimal) (Strategy, error) {
	switch name {
	case "trend_pullback":
		params := DefaultTrendPullbackParams()
		if candleLimit > 0 {
			params.CandlesLimit = candleLimit
		}
		return NewTrendPullback(provider, params, quotePerTrade), nil
	case "ema_reversal":
		params := DefaultEMAReversalParams()
		if candleLimit > 0 {
			params.CandlesLimit = candleLimit
		}
		return NewEMAReversal(provider, params, quotePerTrade), nil
	case "mean_reversion":
		params := DefaultMeanReversionParams()
		if candleLimit > 0 {
			params.CandlesLimit = candleLimit
		}
		return NewMeanReversion(provider, params, quotePerTrade), nil
	default:
		return nil, errors.Errorf("unknown strategy %q", name)
	}
}
