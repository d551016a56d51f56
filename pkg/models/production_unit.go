package models

// ProductionUnit is a livestock flock, coop or farm section that owns stock
// lots. The ledger treats it as an opaque owner; master data beyond the
// name lives elsewhere.
type ProductionUnit struct {
	ID      int64   `json:"id" db:"id"`
	Name    string  `json:"name" db:"name"`
	FarmID  *int64  `json:"farm_id,omitempty" db:"farm_id"`
	Details *string `json:"details,omitempty" db:"details"`
}

func (p *ProductionUnit) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   p.ID,
		ResourceType: "production_unit",
	}
}
