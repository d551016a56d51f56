package purchases

import (
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAggregatorTx(t *testing.T) (*goqu.TxDatabase, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectBegin()
	rawTx, err := db.Begin()
	require.NoError(t, err)

	return goqu.NewTx("postgres", rawTx), mock
}

func expectRecompute(mock sqlmock.Sqlmock, batchID string, qty, amount float64) {
	mock.ExpectQuery(regexp.QuoteMeta(
		`FROM "purchases" WHERE (("batch_id" = ` + batchID + `) AND ("deleted_at" IS NULL))`,
	)).WillReturnRows(
		sqlmock.NewRows([]string{"total_qty", "total_amount"}).AddRow(qty, amount),
	)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "purchase_batches" SET `)).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestRecomputeSumsOnlyLiveLines(t *testing.T) {
	tx, mock := newAggregatorTx(t)

	// The WHERE clause in the expectation pins the deleted_at filter;
	// soft-deleted lines must never count toward the totals.
	expectRecompute(mock, "10", 56, 129500)

	err := NewAggregator().Recompute(tx, 10)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeTwiceWritesSameTotals(t *testing.T) {
	tx, mock := newAggregatorTx(t)

	expectRecompute(mock, "10", 56, 129500)
	expectRecompute(mock, "10", 56, 129500)

	agg := NewAggregator()
	assert.NoError(t, agg.Recompute(tx, 10))
	assert.NoError(t, agg.Recompute(tx, 10))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeEmptyBatchZeroesTotals(t *testing.T) {
	tx, mock := newAggregatorTx(t)

	// COALESCE turns the empty SUM into 0 so a batch whose last line was
	// deleted goes back to zero totals instead of keeping stale ones.
	expectRecompute(mock, "11", 0, 0)

	err := NewAggregator().Recompute(tx, 11)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeSumFailurePropagates(t *testing.T) {
	tx, mock := newAggregatorTx(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "purchases"`)).
		WillReturnError(assert.AnError)

	err := NewAggregator().Recompute(tx, 10)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to sum purchase lines of batch 10")
}
