package models

import (
	"time"

	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
)

type BatchStatus string

const (
	BatchDraft     BatchStatus = "draft"
	BatchPending   BatchStatus = "pending"
	BatchConfirmed BatchStatus = "confirmed"
	BatchInTransit BatchStatus = "in_transit"
	BatchArrived   BatchStatus = "arrived"
	BatchCompleted BatchStatus = "completed"
	BatchCancelled BatchStatus = "cancelled"
)

var batchTransitions = map[BatchStatus]BatchStatus{
	BatchDraft:     BatchPending,
	BatchPending:   BatchConfirmed,
	BatchConfirmed: BatchInTransit,
	BatchInTransit: BatchArrived,
	BatchArrived:   BatchCompleted,
}

func NewBatchStatus(value string) (BatchStatus, error) {
	status := BatchStatus(value)
	if !status.isValid() {
		return "", &custom_error.InvalidStatusTransitionError{From: "", To: value}
	}
	return status, nil
}

func (s BatchStatus) isValid() bool {
	switch s {
	case BatchDraft, BatchPending, BatchConfirmed, BatchInTransit, BatchArrived, BatchCompleted, BatchCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchCompleted || s == BatchCancelled
}

// CanTransition checks the linear status machine: draft -> pending ->
// confirmed -> in_transit -> arrived -> completed, with cancellation
// allowed from any non-terminal state.
func (s BatchStatus) CanTransition(to BatchStatus) bool {
	if !to.isValid() || s.IsTerminal() {
		return false
	}
	if to == BatchCancelled {
		return true
	}
	return batchTransitions[s] == to
}

// PurchaseBatch groups purchase lines from one supplier shipment. TotalQty
// and TotalAmount are derived from the child lines and never hand-edited.
type PurchaseBatch struct {
	ID          int64       `json:"id" db:"id"`
	Supplier    string      `json:"supplier" db:"supplier"`
	BatchDate   time.Time   `json:"batch_date" db:"batch_date"`
	Status      BatchStatus `json:"status" db:"status"`
	TotalQty    float64     `json:"total_qty" db:"total_qty"`
	TotalAmount float64     `json:"total_amount" db:"total_amount"`
	CreatedBy   string      `json:"created_by" db:"created_by"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

func (b *PurchaseBatch) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   b.ID,
		ResourceType: "purchase_batch",
	}
}

// Purchase is one line item of a batch. Quantity is in the purchase unit;
// ConvertedQuantity and PricePerConvertedUnit are derived through the
// commodity's conversion table. ProductionUnitID names the unit that owns
// the resulting stock lot.
type Purchase struct {
	ID                    int64      `json:"id" db:"id"`
	BatchID               int64      `json:"batch_id" db:"batch_id"`
	CommodityID           int64      `json:"commodity_id" db:"commodity_id"`
	ProductionUnitID      int64      `json:"production_unit_id" db:"production_unit_id"`
	Unit                  string     `json:"unit" db:"unit"`
	Quantity              float64    `json:"quantity" db:"quantity"`
	ConvertedQuantity     float64    `json:"converted_quantity" db:"converted_quantity"`
	PricePerUnit          float64    `json:"price_per_unit" db:"price_per_unit"`
	PricePerConvertedUnit float64    `json:"price_per_converted_unit" db:"price_per_converted_unit"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	DeletedAt             *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (p *Purchase) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   p.ID,
		ResourceType: "purchase",
	}
}
