// Package costbasis tracks weighted-average cost of live positions across
// restarts. Fills are recorded with exchange-reported quantities, so the
// basis reflects what was actually executed, not what was requested.
package costbasis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type position struct {
	Holdings  decimal.Decimal
	TotalCost decimal.Decimal
}

// snapshot is the on-disk shape: per-symbol average cost, total quote spent
// and total base quantity. The average is derived state, persisted alongside
// the totals.
type snapshot struct {
	CostBasis map[string]decimal.Decimal `json:"cost_basis"`
	TotalCost map[string]decimal.Decimal `json:"total_cost"`
	TotalQty  map[string]decimal.Decimal `json:"total_qty"`
}

// Tracker keeps per-symbol holdings and total quote cost, persisted to a JSON
// snapshot after every mutation. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	path      string
	positions map[string]position
}

// NewTracker loads the snapshot at path if it exists. A missing file starts
// an empty tracker; a corrupt file is an error so a broken basis is never
// silently discarded.
func NewTracker(path string) (*Tracker, error) {
	t := &Tracker{
		path:      path,
		positions: make(map[string]position),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read cost basis snapshot %s", path)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrapf(err, "failed to parse cost basis snapshot %s", path)
	}
	for symbol, qty := range snap.TotalQty {
		t.positions[symbol] = position{
			Holdings:  qty,
			TotalCost: snap.TotalCost[symbol],
		}
	}

	return t, nil
}

// RecordBuy adds an executed buy: baseQty received for quoteSpent.
func (t *Tracker) RecordBuy(symbol string, baseQty, quoteSpent decimal.Decimal) error {
	if !baseQty.IsPositive() || !quoteSpent.IsPositive() {
		return errors.Errorf("invalid buy fill for %s: qty=%s quote=%s", symbol, baseQty, quoteSpent)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.positions[symbol]
	p.Holdings = p.Holdings.Add(baseQty)
	p.TotalCost = p.TotalCost.Add(quoteSpent)
	t.positions[symbol] = p

	return t.save()
}

// RecordSell removes an executed sell of baseQty, releasing cost basis at the
// current weighted average. Selling down to zero resets the basis entirely.
func (t *Tracker) RecordSell(symbol string, baseQty decimal.Decimal) error {
	if !baseQty.IsPositive() {
		return errors.Errorf("invalid sell fill for %s: qty=%s", symbol, baseQty)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.positions[symbol]
	if !ok || !p.Holdings.IsPositive() {
		return errors.Errorf("sell recorded for %s with no tracked position", symbol)
	}
	if baseQty.GreaterThan(p.Holdings) {
		baseQty = p.Holdings
	}

	costReleased := p.TotalCost.Mul(baseQty).Div(p.Holdings)
	p.Holdings = p.Holdings.Sub(baseQty)
	p.TotalCost = p.TotalCost.Sub(costReleased)

	if !p.Holdings.IsPositive() {
		delete(t.positions, symbol)
	} else {
		t.positions[symbol] = p
	}

	return t.save()
}

// AvgCost returns the weighted-average entry price, zero when no position.
func (t *Tracker) AvgCost(symbol string) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.positions[symbol]
	if !ok || !p.Holdings.IsPositive() {
		return decimal.Zero
	}
	return p.TotalCost.Div(p.Holdings)
}

// Holdings returns the tracked base quantity for symbol.
func (t *Tracker) Holdings(symbol string) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positions[symbol].Holdings
}

// IsProfitable reports whether selling at currentPrice clears minProfit
// (fractional, e.g. 0.05 for 5%) over the average cost. No basis means not
// profitable: never sell a position we cannot price.
func (t *Tracker) IsProfitable(symbol string, currentPrice, minProfit decimal.Decimal) bool {
	avg := t.AvgCost(symbol)
	if !avg.IsPositive() {
		return false
	}
	return currentPrice.Sub(avg).Div(avg).GreaterThanOrEqual(minProfit)
}

// save writes the snapshot atomically: temp file in the same directory, then
// rename over the target.
func (t *Tracker) save() error {
	snap := snapshot{
		CostBasis: make(map[string]decimal.Decimal, len(t.positions)),
		TotalCost: make(map[string]decimal.Decimal, len(t.positions)),
		TotalQty:  make(map[string]decimal.Decimal, len(t.positions)),
	}
	for symbol, p := range t.positions {
		snap.TotalCost[symbol] = p.TotalCost
		snap.TotalQty[symbol] = p.Holdings
		if p.Holdings.IsPositive() {
			snap.CostBasis[symbol] = p.TotalCost.Div(p.Holdings)
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal cost basis snapshot")
	}

	dir := filepath.Dir(t.path)
	tmp, err := os.CreateTemp(dir, ".costbasis-*.json")
	if err != nil {
		return errors.Wrap(err, "failed to create temp snapshot file")
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to write temp snapshot file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to close temp snapshot file")
	}

	if err := os.Rename(tmp.Name(), t.path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to replace snapshot %s", t.path)
	}
	return nil
}
