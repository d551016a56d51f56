package custom_error

import "fmt"

// ConversionUnresolvedError means the commodity's conversion table cannot
// resolve the requested unit or has no smallest-unit entry. Not retryable.
type ConversionUnresolvedError struct {
	CommodityID int64
	Unit        string
	Missing     string // "unit" or "smallest"
}

func (e *ConversionUnresolvedError) Error() string {
	return fmt.Sprintf("cannot resolve %s entry for commodity %d (unit %q)", e.Missing, e.CommodityID, e.Unit)
}

// InsufficientStockError means the requested quantity exceeds the available
// quantity across every candidate lot. The whole operation is rolled back.
type InsufficientStockError struct {
	CommodityID int64
	Requested   float64
	Available   float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for commodity %d: requested %.4f, available %.4f", e.CommodityID, e.Requested, e.Available)
}

// BelowAllocatedError means a downward quantity correction would drop a lot
// below what usage and mutation records have already consumed.
type BelowAllocatedError struct {
	PurchaseID int64
	NewQty     float64
	Allocated  float64
}

func (e *BelowAllocatedError) Error() string {
	return fmt.Sprintf("purchase %d: new quantity %.4f is below the %.4f already allocated", e.PurchaseID, e.NewQty, e.Allocated)
}

// MutationLockedError means a mutation cannot be reversed because one of its
// destination lots has already been used or mutated further downstream.
type MutationLockedError struct {
	MutationID int64
	LotID      int64
}

func (e *MutationLockedError) Error() string {
	return fmt.Sprintf("mutation %d is locked: destination lot %d has downstream consumption", e.MutationID, e.LotID)
}

// ConflictError means concurrent writers contended on the same lot or batch.
// The caller may retry the whole operation from scratch.
type ConflictError struct {
	message string
}

func (e *ConflictError) Error() string {
	return e.message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{message: message}
}

// StockLockedError means a lot or production-unit mapping cannot be removed
// while usage or mutation records still depend on it.
type StockLockedError struct {
	LotID int64
}

func (e *StockLockedError) Error() string {
	return fmt.Sprintf("stock lot %d still has recorded usage or mutation and cannot be removed", e.LotID)
}

// InvalidStatusTransitionError rejects a purchase-batch status change that
// the status machine does not allow.
type InvalidStatusTransitionError struct {
	From string
	To   string
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("cannot move purchase batch from %q to %q", e.From, e.To)
}
