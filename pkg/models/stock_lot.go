package models

import "time"

// StockLot is the canonical unit of inventory: one row per inbound quantity
// event, counters in the commodity's smallest unit. Exactly one of
// PurchaseID and MutationItemID is set (purchased-in XOR mutated-in).
type StockLot struct {
	ID               int64      `json:"id" db:"id"`
	CommodityID      int64      `json:"commodity_id" db:"commodity_id"`
	ProductionUnitID int64      `json:"production_unit_id" db:"production_unit_id"`
	PurchaseID       *int64     `json:"purchase_id,omitempty" db:"purchase_id"`
	MutationItemID   *int64     `json:"mutation_item_id,omitempty" db:"mutation_item_id"`
	QuantityIn       float64    `json:"quantity_in" db:"quantity_in"`
	QuantityUsed     float64    `json:"quantity_used" db:"quantity_used"`
	QuantityMutated  float64    `json:"quantity_mutated" db:"quantity_mutated"`
	EntryDate        time.Time  `json:"entry_date" db:"entry_date"`
	CreatedBy        string     `json:"created_by" db:"created_by"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Available is the quantity still on hand; never negative.
func (l *StockLot) Available() float64 {
	return l.QuantityIn - l.QuantityUsed - l.QuantityMutated
}

// Touched reports whether any usage or mutation has consumed from the lot.
// Touched lots cannot be deleted and block batch cancellation.
func (l *StockLot) Touched() bool {
	return l.QuantityUsed > 0 || l.QuantityMutated > 0
}

func (l *StockLot) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   l.ID,
		ResourceType: "stock_lot",
	}
}
