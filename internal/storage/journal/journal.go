// Package journal keeps an append-only record of executed fills in a
// write-ahead log, replayable at startup for audit.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/accumbot/internal/domain"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"
)

const (
	fillKeyPrefix = "fill_"

	walSegmentThreshold = 1000
	walMaxSegments      = 100
)

// Record is one journaled fill.
type Record struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	Side     domain.Side     `json:"side"`
	Price    decimal.Decimal `json:"price"`
	BaseQty  decimal.Decimal `json:"base_qty"`
	QuoteQty decimal.Decimal `json:"quote_qty"`
	DryRun   bool            `json:"dry_run,omitempty"`
	Time     time.Time       `json:"time"`
}

// Journal appends fill records to a WAL and replays them on open.
type Journal struct {
	wal *gowal.Wal
	l   *zap.Logger
}

// Open creates or reopens the journal in dir.
func Open(dir string, l *zap.Logger) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure journal directory %s", dir)
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "log_",
		SegmentThreshold: walSegmentThreshold,
		MaxSegments:      walMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open fills journal")
	}

	return &Journal{wal: wal, l: l}, nil
}

// Append writes one fill record. The ID is assigned here.
func (j *Journal) Append(r Record) error {
	r.ID = uuid.New().String()

	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "failed to marshal fill record")
	}

	key := fmt.Sprintf("%s%s", fillKeyPrefix, r.ID)
	if err := j.wal.Write(j.wal.CurrentIndex()+1, key, data); err != nil {
		return errors.Wrap(err, "failed to append fill record")
	}
	return nil
}

// Replay returns all journaled fills in write order. Records that fail to
// decode are logged and skipped so one bad entry never hides the rest.
func (j *Journal) Replay() []Record {
	var records []Record
	for msg := range j.wal.Iterator() {
		if !strings.HasPrefix(msg.Key, fillKeyPrefix) {
			continue
		}
		var r Record
		if err := json.Unmarshal(msg.Value, &r); err != nil {
			j.l.Error("failed to unmarshal fill record", zap.Error(err), zap.String("key", msg.Key))
			continue
		}
		records = append(records, r)
	}
	return records
}

func (j *Journal) Close() error {
	return j.wal.Close()
}
