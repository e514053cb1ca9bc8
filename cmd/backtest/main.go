// Command backtest replays configured strategies over historical candles
// and prints per-pair results. Market data is fetched from the configured
// provider; no orders are placed.
//
// Usage:
//
//	backtest --config config.yaml --years 2
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/accumbot/config"
	"github.com/vadiminshakov/accumbot/internal/backtest"
	"github.com/vadiminshakov/accumbot/internal/exchange/mexc"
	"github.com/vadiminshakov/accumbot/internal/services/marketdata"
	"github.com/vadiminshakov/accumbot/internal/services/strategy"
	"github.com/vadiminshakov/accumbot/internal/services/wallet"
	"go.uber.org/zap"
)

const (
	historyPageSize = 500
	initialQuote    = 1000
)

// barObserver feeds the replay progress into a terminal progress bar.
type barObserver struct {
	bar *progressbar.ProgressBar
}

func (o *barObserver) OnBar(_ string, bar, _ int) {
	_ = o.bar.Set(bar)
}

func (o *barObserver) OnEquity(string, backtest.EquityPoint) {}

func (o *barObserver) OnTrade(wallet.Trade, string) {}

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	years := flag.Int("years", 2, "years of history to replay")
	flag.Parse()

	cfg, err := config.Get(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *years, logger); err != nil && ctx.Err() == nil {
		logger.Fatal("backtest failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, years int, logger *zap.Logger) error {
	var provider marketdata.KlineProvider
	switch cfg.DataSource {
	case "binance":
		provider = marketdata.NewBinanceKlineProvider(binance.NewClient("", ""))
	default:
		opts := []mexc.ClientOption{}
		if cfg.BaseURL != "" {
			opts = append(opts, mexc.WithBaseURL(cfg.BaseURL))
		}
		provider = marketdata.NewMexcKlineProvider(mexc.NewClient("", "", opts...))
	}

	for _, pairCfg := range cfg.Pairs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		strat, err := strategy.New(pairCfg.Strategy, nil, pairCfg.CandleLimit, pairCfg.TradeQuote)
		if err != nil {
			return err
		}

		span, err := time.ParseDuration(strat.Interval())
		if err != nil {
			return err
		}
		maxCandles := int(time.Duration(years) * 365 * 24 * time.Hour / span)

		symbol := pairCfg.Pair.Symbol()
		logger.Info("fetching history",
			zap.String("symbol", symbol),
			zap.String("interval", strat.Interval()),
			zap.Int("max_candles", maxCandles))

		candles, err := marketdata.FetchHistory(ctx, provider, symbol, strat.Interval(), historyPageSize, maxCandles)
		if err != nil {
			return err
		}

		policy := backtest.DefaultPolicy()
		policy.TradeQuote = pairCfg.TradeQuote
		policy.SellFraction = pairCfg.SellFraction
		policy.MinHoldings = pairCfg.MinHoldings
		policy.MinProfit = pairCfg.MinProfit
		policy.BuySpacingBars = pairCfg.BuySpacingBars
		policy.OppositeCooldownBars = pairCfg.OppositeCooldownBars

		bar := progressbar.NewOptions(len(candles),
			progressbar.OptionSetDescription(fmt.Sprintf("%s %s", symbol, strat.Name())),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		w := wallet.NewSpotWallet(decimal.NewFromInt(initialQuote))
		engine := backtest.New(strat, w, policy, &barObserver{bar: bar}, logger)

		result, err := engine.Run(ctx, symbol, candles)
		if err != nil {
			return err
		}
		_ = bar.Finish()

		printResult(result)
	}

	return nil
}

func printResult(r *backtest.Result) {
	if r.Skipped {
		fmt.Printf("%-10s skipped: not enough history\n", r.Symbol)
		return
	}
	fmt.Printf("%-10s trades=%d final_quote=%s holdings=%s profit=%s%%\n",
		r.Symbol,
		r.TradeCount,
		r.FinalQuote.StringFixed(2),
		r.Holdings.String(),
		r.ProfitPct.StringFixed(2),
	)
}
