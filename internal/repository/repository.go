package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
)

type Repository struct {
	DB            *sql.DB
	GoquDBWrapper *goqu.Database
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		DB:            db,
		GoquDBWrapper: goqu.New("postgres", db),
	}
}

// DefaultLockTimeout bounds how long a transaction waits on a contended
// stock lot row before failing with a retryable conflict.
const DefaultLockTimeout = 3 * time.Second

func WithTransaction(db *goqu.Database, fn func(tx *goqu.TxDatabase) error) (err error) {
	rawTx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	tx := goqu.NewTx("postgres", rawTx)
	defer func() {
		if p := recover(); p != nil {
			rawTx.Rollback()
			panic(p)
		} else if err != nil {
			rawTx.Rollback()
		} else {
			err = rawTx.Commit()
		}
	}()

	if _, err = tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", DefaultLockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}

	err = fn(tx)
	if err != nil {
		err = mapPqError(err)
	}
	return
}

// mapPqError translates lock-timeout and serialization SQLSTATEs into the
// typed conflict error so callers know a retry is safe. Typed ledger errors
// pass through untouched.
func mapPqError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return custom_error.WrapDBError(pqErr.Message, string(pqErr.Code))
	}
	return err
}
