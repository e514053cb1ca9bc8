package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
poll_interval: 1m
dry_run: true
data_source: mexc
quote_asset: USDT
sweep_symbol: BTCUSDT
min_sweep: "10"
min_quote_per_order: "5"
max_quote_per_order: "200"
pairs:
  - pair: ETH_USDT
    strategy: ema_reversal
    interval: 60m
    candle_limit: 300
    trade_quote: "50"
    sell_fraction: "0.15"
    min_holdings: "0.15"
    min_profit: "0.15"
    buy_spacing_bars: 6
    opposite_cooldown_bars: 3
  - pair: XRP_USDT
    strategy: mean_reversion
    trade_quote: "40"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestGetParsesFullConfig(t *testing.T) {
	cfg, err := Get(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.True(t, cfg.DryRun)
	require.Equal(t, "mexc", cfg.DataSource)
	require.Equal(t, "BTCUSDT", cfg.SweepSymbol)
	require.True(t, cfg.MinSweep.Equal(decimal.NewFromInt(10)))
	require.Len(t, cfg.Pairs, 2)

	eth := cfg.Pairs[0]
	require.Equal(t, "ETHUSDT", eth.Pair.Symbol())
	require.Equal(t, "ema_reversal", eth.Strategy)
	require.True(t, eth.SellFraction.Equal(decimal.RequireFromString("0.15")))
	require.Equal(t, 6, eth.BuySpacingBars)

	xrp := cfg.Pairs[1]
	require.Equal(t, "XRPUSDT", xrp.Pair.Symbol())
	// unset interval falls back to the strategy's own
	require.Equal(t, "4h", xrp.Interval)
	// unset policy fields fall back to defaults
	require.True(t, xrp.SellFraction.Equal(decimal.RequireFromString("0.5")))
	require.True(t, xrp.MinProfit.Equal(decimal.RequireFromString("0.05")))
	require.Equal(t, 300, xrp.CandleLimit)
}

func TestGetRequiresCredentialsWhenLive(t *testing.T) {
	t.Setenv("MEXC_API_KEY", "")
	t.Setenv("MEXC_API_SECRET", "")

	body := `
dry_run: false
pairs:
  - pair: ETH_USDT
    strategy: trend_pullback
`
	_, err := Get(writeConfig(t, body))
	require.Error(t, err)
	require.Contains(t, err.Error(), "MEXC_API_KEY")
}

func TestGetAcceptsCredentialsFromEnv(t *testing.T) {
	t.Setenv("MEXC_API_KEY", "key")
	t.Setenv("MEXC_API_SECRET", "secret")

	body := `
dry_run: false
pairs:
  - pair: ETH_USDT
    strategy: trend_pullback
`
	cfg, err := Get(writeConfig(t, body))
	require.NoError(t, err)
	require.Equal(t, "key", cfg.Credentials.APIKey)
	require.Equal(t, "secret", cfg.Credentials.APISecret)
}

func TestGetRejectsBadBlocks(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no pairs", "dry_run: true\n"},
		{"unknown strategy", `
dry_run: true
pairs:
  - pair: ETH_USDT
    strategy: momentum
`},
		{"bad pair format", `
dry_run: true
pairs:
  - pair: ETHUSDT
    strategy: trend_pullback
`},
		{"wrong quote asset", `
dry_run: true
quote_asset: USDT
pairs:
  - pair: ETH_BTC
    strategy: trend_pullback
`},
		{"interval mismatch", `
dry_run: true
pairs:
  - pair: XRP_USDT
    strategy: mean_reversion
    interval: 60m
`},
		{"sell fraction one", `
dry_run: true
pairs:
  - pair: ETH_USDT
    strategy: trend_pullback
    sell_fraction: "1"
`},
		{"sweep without symbol", `
dry_run: true
min_sweep: "10"
pairs:
  - pair: ETH_USDT
    strategy: trend_pullback
`},
		{"unknown data source", `
dry_run: true
data_source: kraken
pairs:
  - pair: ETH_USDT
    strategy: trend_pullback
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Get(writeConfig(t, tc.body))
			require.Error(t, err)
		})
	}
}
