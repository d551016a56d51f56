package models

import "fmt"

type CommodityKind string

const (
	KindFeed   CommodityKind = "feed"
	KindSupply CommodityKind = "supply"
)

func NewCommodityKind(value string) (CommodityKind, error) {
	kind := CommodityKind(value)
	switch kind {
	case KindFeed, KindSupply:
		return kind, nil
	default:
		return "", fmt.Errorf("invalid commodity kind: %s", value)
	}
}

// ConversionMode selects how purchase-unit quantities become smallest-unit
// quantities. Picked once when the commodity row is loaded, never probed
// per call.
type ConversionMode string

const (
	// ConversionModeTable resolves both the purchase unit and the
	// smallest unit from the commodity's conversion table.
	ConversionModeTable ConversionMode = "table"
	// ConversionModeScalar is the legacy path: a single multiplicative
	// factor, for commodities that predate conversion tables.
	ConversionModeScalar ConversionMode = "scalar"
)

type Commodity struct {
	ID           int64                 `json:"id" db:"id"`
	Code         string                `json:"code" db:"code"`
	Name         string                `json:"name" db:"name"`
	Kind         CommodityKind         `json:"kind" db:"kind"`
	Mode         ConversionMode        `json:"conversion_mode" db:"conversion_mode"`
	ScalarFactor float64               `json:"conversion_factor" db:"conversion_factor"`
	Units        []UnitConversionEntry `json:"units"`
}

// UnitConversionEntry maps one unit of a commodity to the smallest unit.
// Value is the ratio of this unit to the smallest unit; exactly one entry
// per commodity has IsSmallest set.
type UnitConversionEntry struct {
	ID          int64   `json:"id" db:"id"`
	CommodityID int64   `json:"commodity_id" db:"commodity_id"`
	Unit        string  `json:"unit" db:"unit"`
	Value       float64 `json:"value" db:"value"`
	IsSmallest  bool    `json:"is_smallest" db:"is_smallest"`
}

// UnitEntry returns the conversion entry for the given unit, if present.
func (c *Commodity) UnitEntry(unit string) (*UnitConversionEntry, bool) {
	for i := range c.Units {
		if c.Units[i].Unit == unit {
			return &c.Units[i], true
		}
	}
	return nil, false
}

// SmallestEntry returns the entry flagged as the smallest unit, if present.
func (c *Commodity) SmallestEntry() (*UnitConversionEntry, bool) {
	for i := range c.Units {
		if c.Units[i].IsSmallest {
			return &c.Units[i], true
		}
	}
	return nil, false
}

func (c *Commodity) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   c.ID,
		ResourceType: "commodity",
	}
}
