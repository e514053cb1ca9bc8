package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/accumbot/config"
	"github.com/vadiminshakov/accumbot/internal/domain"
	"github.com/vadiminshakov/accumbot/internal/services/costbasis"
	"github.com/vadiminshakov/accumbot/internal/services/executor"
	"github.com/vadiminshakov/accumbot/internal/services/strategy"
	"github.com/vadiminshakov/accumbot/internal/storage/journal"
	"go.uber.org/zap"
)

// ProfitSweeper is the optional profit sweep hook tried after each buy.
type ProfitSweeper interface {
	MaybeSweep(ctx context.Context) (decimal.Decimal, error)
}

// TradingBot runs one pair's accumulation loop. Cooldown timestamps are
// instance state, so bots for different pairs never interfere.
type TradingBot struct {
	pair     domain.Pair
	conf     config.PairConfig
	strategy strategy.Strategy
	executor *executor.Executor
	tracker  *costbasis.Tracker
	journal  *journal.Journal
	sweeper  ProfitSweeper
	safety   SafetyLimits
	l        *zap.Logger

	lastBuy  time.Time
	lastSell time.Time
	barSpan  time.Duration
}

// SafetyLimits clamp every order's quote size.
type SafetyLimits struct {
	MinQuotePerOrder decimal.Decimal
	MaxQuotePerOrder decimal.Decimal
}

// NewTradingBot wires one pair's loop. sweeper and journal may be nil.
func NewTradingBot(conf config.PairConfig, strat strategy.Strategy, exec *executor.Executor,
	tracker *costbasis.Tracker, jrnl *journal.Journal, sweeper ProfitSweeper,
	safety SafetyLimits, l *zap.Logger) (*TradingBot, error) {

	barSpan, err := intervalDuration(strat.Interval())
	if err != nil {
		return nil, errors.Wrapf(err, "strategy %s has unusable interval", strat.Name())
	}

	return &TradingBot{
		pair:     conf.Pair,
		conf:     conf,
		strategy: strat,
		executor: exec,
		tracker:  tracker,
		journal:  jrnl,
		sweeper:  sweeper,
		safety:   safety,
		l:        l.With(zap.String("pair", conf.Pair.String())),
		barSpan:  barSpan,
	}, nil
}

// Run polls the strategy until the context ends. A failed iteration is
// logged and the loop continues; only cancellation stops it.
func (b *TradingBot) Run(ctx context.Context, pollInterval time.Duration) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	b.l.Info("starting trading loop",
		zap.String("strategy", b.strategy.Name()),
		zap.Duration("poll_interval", pollInterval))

	for {
		select {
		case <-ctx.Done():
			b.l.Info("context done, stopping trading loop")
			return ctx.Err()
		case <-ticker.C:
			if err := b.iterate(ctx); err != nil {
				b.l.Error("trading iteration failed", zap.Error(err))
			}
		}
	}
}

func (b *TradingBot) iterate(ctx context.Context) error {
	signal, err := b.strategy.Generate(ctx, b.pair.Symbol())
	if err != nil {
		return errors.Wrap(err, "failed to generate signal")
	}
	if signal == nil {
		return nil
	}

	switch signal.Side {
	case domain.SideBuy:
		return b.handleBuy(ctx, signal)
	case domain.SideSell:
		return b.handleSell(ctx, signal)
	default:
		return errors.Errorf("unknown signal side %q", signal.Side)
	}
}

func (b *TradingBot) handleBuy(ctx context.Context, signal *domain.Signal) error {
	now := time.Now()
	if b.inCooldown(now, b.lastBuy, b.conf.BuySpacingBars) {
		b.l.Debug("buy suppressed by spacing window", zap.String("reason", signal.Reason))
		return nil
	}
	if b.inCooldown(now, b.lastSell, b.conf.OppositeCooldownBars) {
		b.l.Debug("buy suppressed by opposite-side cooldown", zap.String("reason", signal.Reason))
		return nil
	}

	size := signal.SizeQuote
	if !size.IsPositive() {
		size = b.conf.TradeQuote
	}
	if size.LessThan(b.safety.MinQuotePerOrder) {
		b.l.Debug("buy below minimum order size", zap.String("size", size.String()))
		return nil
	}
	if size.GreaterThan(b.safety.MaxQuotePerOrder) {
		size = b.safety.MaxQuotePerOrder
	}

	fill, err := b.executor.MarketBuyQuote(ctx, b.pair.Symbol(), size)
	if err != nil {
		return errors.Wrap(err, "failed to execute buy")
	}
	b.lastBuy = now

	if err := b.tracker.RecordBuy(fill.Symbol, fill.BaseQty, fill.QuoteQty); err != nil {
		return errors.Wrap(err, "failed to record buy in cost basis")
	}
	b.journalFill(fill)

	b.l.Info("bought",
		zap.String("price", fill.Price.String()),
		zap.String("qty", fill.BaseQty.String()),
		zap.String("reason", signal.Reason))

	if b.sweeper != nil {
		// sweep failures never fail the trading iteration
		if _, err := b.sweeper.MaybeSweep(ctx); err != nil {
			b.l.Error("profit sweep failed", zap.Error(err))
		}
	}
	return nil
}

func (b *TradingBot) handleSell(ctx context.Context, signal *domain.Signal) error {
	now := time.Now()
	if b.inCooldown(now, b.lastSell, b.conf.BuySpacingBars) {
		b.l.Debug("sell suppressed by spacing window", zap.String("reason", signal.Reason))
		return nil
	}
	if b.inCooldown(now, b.lastBuy, b.conf.OppositeCooldownBars) {
		b.l.Debug("sell suppressed by opposite-side cooldown", zap.String("reason", signal.Reason))
		return nil
	}

	holdings := b.tracker.Holdings(b.pair.Symbol())
	if holdings.LessThan(b.conf.MinHoldings) || !holdings.IsPositive() {
		b.l.Debug("sell skipped, holdings below minimum", zap.String("holdings", holdings.String()))
		return nil
	}

	price, err := b.executor.Price(ctx, b.pair.Symbol())
	if err != nil {
		return errors.Wrap(err, "failed to price position")
	}
	if !b.tracker.IsProfitable(b.pair.Symbol(), price, b.conf.MinProfit) {
		b.l.Debug("sell skipped, position below profit floor",
			zap.String("price", price.String()),
			zap.String("avg_cost", b.tracker.AvgCost(b.pair.Symbol()).String()))
		return nil
	}

	qty := holdings.Mul(b.conf.SellFraction)
	fill, err := b.executor.MarketSellBase(ctx, b.pair.Symbol(), qty)
	if err != nil {
		return errors.Wrap(err, "failed to execute sell")
	}
	b.lastSell = now

	if err := b.tracker.RecordSell(fill.Symbol, fill.BaseQty); err != nil {
		return errors.Wrap(err, "failed to record sell in cost basis")
	}
	b.journalFill(fill)

	b.l.Info("sold",
		zap.String("price", fill.Price.String()),
		zap.String("qty", fill.BaseQty.String()),
		zap.String("reason", signal.Reason))
	return nil
}

func (b *TradingBot) journalFill(fill *executor.Fill) {
	if b.journal == nil {
		return
	}
	err := b.journal.Append(journal.Record{
		Symbol:   fill.Symbol,
		Side:     fill.Side,
		Price:    fill.Price,
		BaseQty:  fill.BaseQty,
		QuoteQty: fill.QuoteQty,
		DryRun:   fill.DryRun,
		Time:     fill.Time,
	})
	if err != nil {
		// journaling is audit, not state: log and keep trading
		b.l.Error("failed to journal fill", zap.Error(err))
	}
}

func (b *TradingBot) inCooldown(now, last time.Time, bars int) bool {
	if last.IsZero() || bars <= 0 {
		return false
	}
	return now.Sub(last) < time.Duration(bars)*b.barSpan
}

// intervalDuration converts a candle interval like "60m" or "4h" to its span.
func intervalDuration(interval string) (time.Duration, error) {
	d, err := time.ParseDuration(interval)
	if err != nil {
		return 0, errors.Errorf("cannot parse interval %q", interval)
	}
	if d <= 0 {
		return 0, errors.Errorf("non-positive interval %q", interval)
	}
	return d, nil
}
