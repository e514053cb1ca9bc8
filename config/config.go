// Package config loads the yaml runtime configuration and the API
// credentials from the environment (.env supported).
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/accumbot/internal/domain"
	"gopkg.in/yaml.v3"
)

// Credentials are read from the environment, never from the yaml file.
type Credentials struct {
	APIKey    string
	APISecret string
}

// PairConfig is one traded instrument with its strategy and trade policy.
type PairConfig struct {
	Pair domain.Pair

	Strategy             string
	Interval             string
	CandleLimit          int
	TradeQuote           decimal.Decimal
	SellFraction         decimal.Decimal
	MinHoldings          decimal.Decimal
	MinProfit            decimal.Decimal
	BuySpacingBars       int
	OppositeCooldownBars int
}

// Config is the fully validated runtime configuration.
type Config struct {
	PollInterval time.Duration
	DryRun       bool

	BaseURL    string
	RecvWindow int
	// DataSource selects the candle provider: "mexc" or "binance".
	DataSource string

	QuoteAsset  string
	SweepSymbol string
	MinSweep    decimal.Decimal

	MinQuotePerOrder decimal.Decimal
	MaxQuotePerOrder decimal.Decimal

	StatePath  string
	JournalDir string

	Pairs []PairConfig

	Credentials Credentials
}

// strategyIntervals is the candle interval each strategy evaluates; a
// configured interval must match it.
var strategyIntervals = map[string]string{
	"trend_pullback": "60m",
	"ema_reversal":   "60m",
	"mean_reversion": "4h",
}

type pairTmp struct {
	Pair                 string `yaml:"pair"`
	Strategy             string `yaml:"strategy"`
	Interval             string `yaml:"interval"`
	CandleLimit          int    `yaml:"candle_limit"`
	TradeQuote           string `yaml:"trade_quote"`
	SellFraction         string `yaml:"sell_fraction"`
	MinHoldings          string `yaml:"min_holdings"`
	MinProfit            string `yaml:"min_profit"`
	BuySpacingBars       int    `yaml:"buy_spacing_bars"`
	OppositeCooldownBars int    `yaml:"opposite_cooldown_bars"`
}

type configTmp struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	DryRun       bool          `yaml:"dry_run"`

	BaseURL    string `yaml:"base_url"`
	RecvWindow int    `yaml:"recv_window"`
	DataSource string `yaml:"data_source"`

	QuoteAsset  string `yaml:"quote_asset"`
	SweepSymbol string `yaml:"sweep_symbol"`
	MinSweep    string `yaml:"min_sweep"`

	MinQuotePerOrder string `yaml:"min_quote_per_order"`
	MaxQuotePerOrder string `yaml:"max_quote_per_order"`

	StatePath  string `yaml:"state_path"`
	JournalDir string `yaml:"journal_dir"`

	Pairs []pairTmp `yaml:"pairs"`
}

// Get loads and validates the config at path. Credentials come from
// MEXC_API_KEY / MEXC_API_SECRET; missing credentials are fatal unless
// dry-run is set.
func Get(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}

	var tmp configTmp
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}

	cfg := &Config{
		PollInterval: tmp.PollInterval,
		DryRun:       tmp.DryRun,
		BaseURL:      tmp.BaseURL,
		RecvWindow:   tmp.RecvWindow,
		DataSource:   tmp.DataSource,
		QuoteAsset:   tmp.QuoteAsset,
		SweepSymbol:  tmp.SweepSymbol,
		StatePath:    tmp.StatePath,
		JournalDir:   tmp.JournalDir,
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.DataSource == "" {
		cfg.DataSource = "mexc"
	}
	if cfg.DataSource != "mexc" && cfg.DataSource != "binance" {
		return nil, errors.Errorf("unknown data_source %q, want mexc or binance", cfg.DataSource)
	}
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	if cfg.StatePath == "" {
		cfg.StatePath = "costbasis.json"
	}
	if cfg.JournalDir == "" {
		cfg.JournalDir = "wal"
	}

	if cfg.MinSweep, err = decimalOrDefault(tmp.MinSweep, "0"); err != nil {
		return nil, errors.Wrap(err, "invalid min_sweep")
	}
	if cfg.MinQuotePerOrder, err = decimalOrDefault(tmp.MinQuotePerOrder, "5"); err != nil {
		return nil, errors.Wrap(err, "invalid min_quote_per_order")
	}
	if cfg.MaxQuotePerOrder, err = decimalOrDefault(tmp.MaxQuotePerOrder, "1000"); err != nil {
		return nil, errors.Wrap(err, "invalid max_quote_per_order")
	}
	if cfg.MinSweep.IsPositive() && cfg.SweepSymbol == "" {
		return nil, errors.New("min_sweep set without sweep_symbol")
	}

	if len(tmp.Pairs) == 0 {
		return nil, errors.New("no pairs configured")
	}
	for _, p := range tmp.Pairs {
		pc, err := parsePair(p, cfg.QuoteAsset)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pair block %q", p.Pair)
		}
		cfg.Pairs = append(cfg.Pairs, pc)
	}

	cfg.Credentials = Credentials{
		APIKey:    os.Getenv("MEXC_API_KEY"),
		APISecret: os.Getenv("MEXC_API_SECRET"),
	}
	if !cfg.DryRun && (cfg.Credentials.APIKey == "" || cfg.Credentials.APISecret == "") {
		return nil, errors.New("MEXC_API_KEY and MEXC_API_SECRET are required unless dry_run is set")
	}

	return cfg, nil
}

func parsePair(tmp pairTmp, quoteAsset string) (PairConfig, error) {
	pair, err := domain.ParsePair(tmp.Pair)
	if err != nil {
		return PairConfig{}, err
	}
	if pair.Quote != quoteAsset {
		return PairConfig{}, errors.Errorf("pair %s does not trade against %s", tmp.Pair, quoteAsset)
	}

	pc := PairConfig{
		Pair:                 pair,
		Strategy:             tmp.Strategy,
		Interval:             tmp.Interval,
		CandleLimit:          tmp.CandleLimit,
		BuySpacingBars:       tmp.BuySpacingBars,
		OppositeCooldownBars: tmp.OppositeCooldownBars,
	}

	if pc.Strategy == "" {
		return PairConfig{}, errors.New("strategy is required")
	}
	want, ok := strategyIntervals[pc.Strategy]
	if !ok {
		return PairConfig{}, errors.Errorf("unknown strategy %q", pc.Strategy)
	}

	if pc.Interval == "" {
		pc.Interval = want
	}
	if pc.Interval != want {
		return PairConfig{}, errors.Errorf("strategy %s evaluates %s candles, got interval %q",
			pc.Strategy, want, pc.Interval)
	}
	if pc.CandleLimit <= 0 {
		pc.CandleLimit = 300
	}

	if pc.TradeQuote, err = decimalOrDefault(tmp.TradeQuote, "50"); err != nil {
		return PairConfig{}, errors.Wrap(err, "invalid trade_quote")
	}
	if !pc.TradeQuote.IsPositive() {
		return PairConfig{}, errors.New("trade_quote must be positive")
	}
	if pc.SellFraction, err = decimalOrDefault(tmp.SellFraction, "0.5"); err != nil {
		return PairConfig{}, errors.Wrap(err, "invalid sell_fraction")
	}
	if !pc.SellFraction.IsPositive() || pc.SellFraction.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return PairConfig{}, errors.New("sell_fraction must be in (0, 1)")
	}
	if pc.MinHoldings, err = decimalOrDefault(tmp.MinHoldings, "0"); err != nil {
		return PairConfig{}, errors.Wrap(err, "invalid min_holdings")
	}
	if pc.MinProfit, err = decimalOrDefault(tmp.MinProfit, "0.05"); err != nil {
		return PairConfig{}, errors.Wrap(err, "invalid min_profit")
	}

	if pc.BuySpacingBars < 0 || pc.OppositeCooldownBars < 0 {
		return PairConfig{}, errors.New("cooldown bars must not be negative")
	}

	return pc, nil
}

func decimalOrDefault(s, def string) (decimal.Decimal, error) {
	if s == "" {
		s = def
	}
	return decimal.NewFromString(s)
}
