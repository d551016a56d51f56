package models

import "time"

// Mutation is a transfer event moving stock from one production unit's lots
// into new lots owned by another production unit.
type Mutation struct {
	ID           int64          `json:"id" db:"id"`
	TransCode    string         `json:"trans_code" db:"trans_code"`
	SourceUnitID int64          `json:"source_unit_id" db:"source_unit_id"`
	DestUnitID   int64          `json:"dest_unit_id" db:"dest_unit_id"`
	CommodityID  int64          `json:"commodity_id" db:"commodity_id"`
	MutationDate time.Time      `json:"mutation_date" db:"mutation_date"`
	Type         string         `json:"type" db:"type"`
	CreatedBy    string         `json:"created_by" db:"created_by"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	ReversedAt   *time.Time     `json:"reversed_at,omitempty" db:"reversed_at"`
	Items        []MutationItem `json:"items"`
}

// MutationItem draws Quantity (smallest unit) from one source lot. When the
// two units track in different units the original unit and rate are kept
// for display.
type MutationItem struct {
	ID             int64    `json:"id" db:"id"`
	MutationID     int64    `json:"mutation_id" db:"mutation_id"`
	SourceLotID    int64    `json:"source_lot_id" db:"source_lot_id"`
	Quantity       float64  `json:"quantity" db:"quantity"`
	OriginalUnit   *string  `json:"original_unit,omitempty" db:"original_unit"`
	ConversionRate *float64 `json:"conversion_rate,omitempty" db:"conversion_rate"`
}

func (m *Mutation) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   m.ID,
		ResourceType: "mutation",
	}
}
