package models

import "time"

// Usage groups the detail rows recorded for one consumption event on a
// production unit.
type Usage struct {
	ID               int64         `json:"id" db:"id"`
	TransCode        string        `json:"trans_code" db:"trans_code"`
	ProductionUnitID int64         `json:"production_unit_id" db:"production_unit_id"`
	CommodityID      int64         `json:"commodity_id" db:"commodity_id"`
	UsageDate        time.Time     `json:"usage_date" db:"usage_date"`
	CreatedBy        string        `json:"created_by" db:"created_by"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	Details          []UsageDetail `json:"details"`
}

// UsageDetail is the portion taken from a single stock lot, in the
// smallest unit.
type UsageDetail struct {
	ID            int64   `json:"id" db:"id"`
	UsageID       int64   `json:"usage_id" db:"usage_id"`
	StockLotID    int64   `json:"stock_lot_id" db:"stock_lot_id"`
	QuantityTaken float64 `json:"quantity_taken" db:"quantity_taken"`
}

func (u *Usage) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   u.ID,
		ResourceType: "usage",
	}
}
