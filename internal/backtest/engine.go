// Package backtest replays historical candles through a strategy and a
// simulated wallet, applying the same trade-spacing and profitability policy
// the live loop uses.
package backtest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/accumbot/internal/domain"
	"github.com/vadiminshakov/accumbot/internal/services/wallet"
	"go.uber.org/zap"
)

// SignalSource is the strategy surface the engine needs: the shared pure
// signal function, same one the live path delegates to.
type SignalSource interface {
	Name() string
	GenerateFromCandles(symbol string, candles []domain.Candle) *domain.Signal
}

// Policy is the per-instrument trade gating applied around strategy signals.
type Policy struct {
	// WarmupBars is the number of leading candles never evaluated.
	WarmupBars int
	// TradeQuote is the default quote size when a signal carries none.
	TradeQuote decimal.Decimal
	// SellFraction of holdings sold per SELL trigger; always below 1 so a
	// base position keeps compounding.
	SellFraction decimal.Decimal
	// MinHoldings refuses to sell dust.
	MinHoldings decimal.Decimal
	// MinProfit is the profitability floor checked against the wallet's
	// cost basis before any sell.
	MinProfit decimal.Decimal
	// BuySpacingBars is the minimum bars between two buys.
	BuySpacingBars int
	// OppositeCooldownBars is the minimum bars after a trade on the other side.
	OppositeCooldownBars int
	// EquitySampleEvery is the equity-curve sampling cadence in bars.
	EquitySampleEvery int
}

// DefaultPolicy returns the baseline replay policy.
func DefaultPolicy() Policy {
	return Policy{
		WarmupBars:           200,
		TradeQuote:           decimal.NewFromInt(50),
		SellFraction:         decimal.RequireFromString("0.5"),
		MinHoldings:          decimal.Zero,
		MinProfit:            decimal.RequireFromString("0.05"),
		BuySpacingBars:       6,
		OppositeCooldownBars: 3,
		EquitySampleEvery:    50,
	}
}

// EquityPoint is one mark-to-market sample of the simulated portfolio.
type EquityPoint struct {
	Bar   int
	Time  time.Time
	Value decimal.Decimal
}

// Result summarizes one replay run.
type Result struct {
	Symbol     string
	FinalQuote decimal.Decimal
	Holdings   decimal.Decimal
	TradeCount int
	// ProfitPct is relative to starting capital, in percent.
	ProfitPct decimal.Decimal
	Equity    []EquityPoint
	// Skipped is set when the symbol lacked enough history to evaluate.
	Skipped bool
}

// Observer receives presentation-layer updates (progress, equity samples,
// trades). Observer failures never affect the replay state.
type Observer interface {
	OnBar(symbol string, bar, total int)
	OnEquity(symbol string, point EquityPoint)
	OnTrade(trade wallet.Trade, reason string)
}

// Engine drives one strategy + wallet pair over history. Cooldown state is
// instance state, so independent runs never interfere.
type Engine struct {
	strategy SignalSource
	wallet   *wallet.SpotWallet
	policy   Policy
	observer Observer
	l        *zap.Logger

	lastBuyBar  int
	lastSellBar int
}

// New creates a replay engine. observer may be nil.
func New(strategy SignalSource, w *wallet.SpotWallet, policy Policy, observer Observer, l *zap.Logger) *Engine {
	return &Engine{
		strategy:    strategy,
		wallet:      w,
		policy:      policy,
		observer:    observer,
		l:           l,
		lastBuyBar:  -1 << 30,
		lastSellBar: -1 << 30,
	}
}

// Run replays the candle sequence. Windows are strictly causal: bar i sees
// candles[:i] only. Cancellation is cooperative, checked once per bar, so an
// in-flight bar always completes its trade logic.
func (e *Engine) Run(ctx context.Context, symbol string, candles []domain.Candle) (*Result, error) {
	if len(candles) <= e.policy.WarmupBars {
		e.l.Warn("not enough history, skipping symbol",
			zap.String("symbol", symbol),
			zap.Int("candles", len(candles)),
			zap.Int("warmup", e.policy.WarmupBars))
		return &Result{Symbol: symbol, Skipped: true, FinalQuote: e.wallet.QuoteBalance()}, nil
	}

	initial := e.wallet.QuoteBalance()
	result := &Result{Symbol: symbol}

	for i := e.policy.WarmupBars; i < len(candles); i++ {
		select {
		case <-ctx.Done():
			e.finalize(result, symbol, initial, candles[i].Close)
			return result, ctx.Err()
		default:
		}

		window := candles[:i]
		candle := candles[i]
		closePrice := candle.Close

		signal := e.strategy.GenerateFromCandles(symbol, window)
		if signal != nil {
			switch signal.Side {
			case domain.SideBuy:
				e.tryBuy(symbol, signal, closePrice, candle.OpenTime, i)
			case domain.SideSell:
				e.trySell(symbol, signal, closePrice, candle.OpenTime, i)
			}
		}

		if e.policy.EquitySampleEvery > 0 && i%e.policy.EquitySampleEvery == 0 {
			point := EquityPoint{
				Bar:   i,
				Time:  candle.OpenTime,
				Value: e.wallet.Value(map[string]decimal.Decimal{symbol: closePrice}),
			}
			result.Equity = append(result.Equity, point)
			e.notify(func(o Observer) { o.OnEquity(symbol, point) })
		}

		e.notify(func(o Observer) { o.OnBar(symbol, i, len(candles)) })
	}

	e.finalize(result, symbol, initial, candles[len(candles)-1].Close)
	return result, nil
}

func (e *Engine) tryBuy(symbol string, signal *domain.Signal, price decimal.Decimal, at time.Time, bar int) {
	if bar-e.lastBuyBar < e.policy.BuySpacingBars {
		return
	}
	if bar-e.lastSellBar < e.policy.OppositeCooldownBars {
		return
	}

	size := signal.SizeQuote
	if !size.IsPositive() {
		size = e.policy.TradeQuote
	}

	if !e.wallet.Buy(symbol, price, size, at) {
		return
	}
	e.lastBuyBar = bar

	trades := e.wallet.Trades()
	e.l.Debug("backtest buy",
		zap.String("symbol", symbol),
		zap.Int("bar", bar),
		zap.String("price", price.String()),
		zap.String("reason", signal.Reason))
	e.notify(func(o Observer) { o.OnTrade(trades[len(trades)-1], signal.Reason) })
}

func (e *Engine) trySell(symbol string, signal *domain.Signal, price decimal.Decimal, at time.Time, bar int) {
	if bar-e.lastSellBar < e.policy.BuySpacingBars {
		return
	}
	if bar-e.lastBuyBar < e.policy.OppositeCooldownBars {
		return
	}

	if e.wallet.Holdings(symbol).LessThan(e.policy.MinHoldings) {
		return
	}
	if !e.wallet.IsProfitable(symbol, price, e.policy.MinProfit) {
		return
	}

	if !e.wallet.SellPartial(symbol, price, e.policy.SellFraction, at) {
		return
	}
	e.lastSellBar = bar

	trades := e.wallet.Trades()
	e.l.Debug("backtest sell",
		zap.String("symbol", symbol),
		zap.Int("bar", bar),
		zap.String("price", price.String()),
		zap.String("reason", signal.Reason))
	e.notify(func(o Observer) { o.OnTrade(trades[len(trades)-1], signal.Reason) })
}

func (e *Engine) finalize(result *Result, symbol string, initial, lastClose decimal.Decimal) {
	result.FinalQuote = e.wallet.QuoteBalance()
	result.Holdings = e.wallet.Holdings(symbol)
	result.TradeCount = len(e.wallet.Trades())

	if initial.IsPositive() {
		value := e.wallet.Value(map[string]decimal.Decimal{symbol: lastClose})
		result.ProfitPct = value.Div(initial).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
	}
}

// notify delivers a presentation update; a panicking observer is logged and
// otherwise ignored so it can never corrupt a run.
func (e *Engine) notify(fn func(Observer)) {
	if e.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.l.Warn("backtest observer failed", zap.Any("panic", r))
		}
	}()
	fn(e.observer)
}
