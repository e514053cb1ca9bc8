// Command accumbot runs the spot accumulation bot against MEXC.
//
// Usage:
//
//	accumbot --config config.yaml
//
// Required environment variables (may come from a .env file):
//
//	MEXC_API_KEY, MEXC_API_SECRET (not needed in dry-run mode)
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/adshao/go-binance/v2"
	"github.com/vadiminshakov/accumbot/config"
	"github.com/vadiminshakov/accumbot/internal"
	"github.com/vadiminshakov/accumbot/internal/exchange/mexc"
	"github.com/vadiminshakov/accumbot/internal/services/costbasis"
	"github.com/vadiminshakov/accumbot/internal/services/executor"
	"github.com/vadiminshakov/accumbot/internal/services/marketdata"
	"github.com/vadiminshakov/accumbot/internal/services/portfolio"
	"github.com/vadiminshakov/accumbot/internal/services/strategy"
	"github.com/vadiminshakov/accumbot/internal/services/sweeper"
	"github.com/vadiminshakov/accumbot/internal/storage/journal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
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

	if err := run(ctx, cfg, logger); err != nil && ctx.Err() == nil {
		logger.Fatal("bot failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	opts := []mexc.ClientOption{}
	if cfg.BaseURL != "" {
		opts = append(opts, mexc.WithBaseURL(cfg.BaseURL))
	}
	if cfg.RecvWindow > 0 {
		opts = append(opts, mexc.WithRecvWindow(int64(cfg.RecvWindow)))
	}
	client := mexc.NewClient(cfg.Credentials.APIKey, cfg.Credentials.APISecret, opts...)

	if err := client.Ping(ctx); err != nil {
		return err
	}

	var provider marketdata.KlineProvider
	switch cfg.DataSource {
	case "binance":
		// public kline endpoints, no credentials needed
		provider = marketdata.NewBinanceKlineProvider(binance.NewClient("", ""))
	default:
		provider = marketdata.NewMexcKlineProvider(client)
	}

	tracker, err := costbasis.NewTracker(cfg.StatePath)
	if err != nil {
		return err
	}

	jrnl, err := journal.Open(cfg.JournalDir, logger)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	exec := executor.New(client, cfg.DryRun, logger)

	var sweep internal.ProfitSweeper
	if cfg.MinSweep.IsPositive() && !cfg.DryRun {
		s := sweeper.New(portfolio.New(client), exec, cfg.QuoteAsset, cfg.SweepSymbol, cfg.MinSweep, logger)
		if err := s.Init(ctx); err != nil {
			return err
		}
		sweep = s
	}

	safety := internal.SafetyLimits{
		MinQuotePerOrder: cfg.MinQuotePerOrder,
		MaxQuotePerOrder: cfg.MaxQuotePerOrder,
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, pairCfg := range cfg.Pairs {
		strat, err := strategy.New(pairCfg.Strategy, provider, pairCfg.CandleLimit, pairCfg.TradeQuote)
		if err != nil {
			return err
		}

		bot, err := internal.NewTradingBot(pairCfg, strat, exec, tracker, jrnl, sweep, safety, logger)
		if err != nil {
			return err
		}

		g.Go(func() error {
			return bot.Run(ctx, cfg.PollInterval)
		})
	}

	return g.Wait()
}
