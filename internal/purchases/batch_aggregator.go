package purchases

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
)

// Aggregator recomputes a batch's derived totals from its live purchase
// lines. Every transaction that creates, corrects or deletes a line calls
// Recompute itself, so the dependency stays visible in the call graph
// instead of hiding in persistence hooks.
type Aggregator interface {
	Recompute(tx *goqu.TxDatabase, batchID int64) error
}

type batchAggregator struct{}

func NewAggregator() Aggregator {
	return &batchAggregator{}
}

// Recompute sums quantity and quantity*price_per_unit over non-deleted
// lines and writes the totals back. Idempotent and order-independent:
// running it twice yields the same row.
func (a *batchAggregator) Recompute(tx *goqu.TxDatabase, batchID int64) error {
	var totals struct {
		TotalQty    float64 `db:"total_qty"`
		TotalAmount float64 `db:"total_amount"`
	}

	_, err := tx.From("purchases").
		Select(
			goqu.L("COALESCE(SUM(quantity), 0)").As("total_qty"),
			goqu.L("COALESCE(SUM(quantity * price_per_unit), 0)").As("total_amount"),
		).
		Where(goqu.Ex{"batch_id": batchID, "deleted_at": nil}).
		Executor().ScanStruct(&totals)
	if err != nil {
		return fmt.Errorf("failed to sum purchase lines of batch %d: %w", batchID, err)
	}

	_, err = tx.Update("purchase_batches").
		Set(goqu.Record{
			"total_qty":    totals.TotalQty,
			"total_amount": totals.TotalAmount,
		}).
		Where(goqu.Ex{"id": batchID}).
		Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to write totals of batch %d: %w", batchID, err)
	}

	return nil
}
