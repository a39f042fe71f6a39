package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pvaldes/stockfolio/internal/domain"
)

// TransactionArchiveStore is the read access the archiver needs: just the
// time-ranged log query, not the full transaction store.
type TransactionArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Transaction, error)
}

// Archiver exports the append-only transaction log to object storage as
// JSONL snapshots. Archived rows are NOT deleted from the primary store:
// the log is immutable and the export exists for durability, not pruning.
type Archiver struct {
	writer domain.BlobWriter
	txns   TransactionArchiveStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, txns TransactionArchiveStore) *Archiver {
	return &Archiver{writer: writer, txns: txns}
}

// archiveRecord is the export shape of one transaction. Unlike the API
// representation it carries the owning account.
type archiveRecord struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"account_id"`
	Ticker     string          `json:"ticker"`
	Side       string          `json:"side"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// ArchiveTransactions exports all transactions executed before the cutoff to
// archive/transactions/<YYYY-MM>.jsonl and returns the number of exported
// records. A cutoff with no matching rows uploads nothing.
func (a *Archiver) ArchiveTransactions(ctx context.Context, before time.Time) (int64, error) {
	txns, err := a.txns.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive transactions query: %w", err)
	}
	if len(txns) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, t := range txns {
		rec := archiveRecord{
			ID:         t.ID,
			AccountID:  t.AccountID,
			Ticker:     t.Ticker,
			Side:       string(t.Side),
			Quantity:   t.Quantity,
			Price:      t.Price,
			ExecutedAt: t.ExecutedAt,
		}
		if err := enc.Encode(rec); err != nil {
			return 0, fmt.Errorf("s3blob: archive transactions marshal: %w", err)
		}
	}

	path := fmt.Sprintf("archive/transactions/%s.jsonl", before.UTC().Format("2006-01"))
	if err := a.writer.Put(ctx, path, &buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive transactions upload: %w", err)
	}

	return int64(len(txns)), nil
}
