package conversion

import (
	"math"

	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

// ToSmallest converts a purchase-unit quantity into the commodity's
// smallest unit. Table mode resolves both the requested unit and the
// smallest-unit entry from the conversion table; scalar mode is the legacy
// single-factor path and must stay distinct because the two round
// differently downstream.
func ToSmallest(commodity *models.Commodity, unit string, qty float64) (float64, error) {
	switch commodity.Mode {
	case models.ConversionModeScalar:
		if commodity.ScalarFactor == 0 {
			return 0, &custom_error.ConversionUnresolvedError{CommodityID: commodity.ID, Unit: unit, Missing: "scalar factor"}
		}
		return qty * commodity.ScalarFactor, nil
	default:
		unitEntry, smallest, err := resolveEntries(commodity, unit)
		if err != nil {
			return 0, err
		}
		return qty * unitEntry.Value / smallest.Value, nil
	}
}

// FromSmallest converts a smallest-unit quantity back into the given unit.
func FromSmallest(commodity *models.Commodity, unit string, qtySmallest float64) (float64, error) {
	switch commodity.Mode {
	case models.ConversionModeScalar:
		if commodity.ScalarFactor == 0 {
			return 0, &custom_error.ConversionUnresolvedError{CommodityID: commodity.ID, Unit: unit, Missing: "scalar factor"}
		}
		return qtySmallest / commodity.ScalarFactor, nil
	default:
		unitEntry, smallest, err := resolveEntries(commodity, unit)
		if err != nil {
			return 0, err
		}
		return qtySmallest * smallest.Value / unitEntry.Value, nil
	}
}

// Rate returns the smallest-units-per-unit ratio, used by mutation items to
// retain cross-unit conversion metadata.
func Rate(commodity *models.Commodity, unit string) (float64, error) {
	return ToSmallest(commodity, unit, 1)
}

func resolveEntries(commodity *models.Commodity, unit string) (*models.UnitConversionEntry, *models.UnitConversionEntry, error) {
	unitEntry, ok := commodity.UnitEntry(unit)
	if !ok {
		return nil, nil, &custom_error.ConversionUnresolvedError{CommodityID: commodity.ID, Unit: unit, Missing: "unit"}
	}
	smallest, ok := commodity.SmallestEntry()
	if !ok {
		return nil, nil, &custom_error.ConversionUnresolvedError{CommodityID: commodity.ID, Unit: unit, Missing: "smallest"}
	}
	return unitEntry, smallest, nil
}

// Round2 is the fixed display rounding. Applied at presentation boundaries
// only; running sums stay unrounded.
func Round2(qty float64) float64 {
	return math.Round(qty*100) / 100
}
