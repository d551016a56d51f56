package stocklots

import (
	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

// Portion is the slice of one lot consumed by an allocation.
type Portion struct {
	Lot      *models.StockLot
	Quantity float64
}

// PlanAllocation walks the candidate lots in the caller-supplied order,
// taking min(available, remaining) from each until the requested quantity
// is satisfied. The ordering policy (earliest purchase first, or an
// explicit lot) belongs to the caller, not here. All-or-nothing: if the
// candidates cannot cover the request, no portions are returned.
func PlanAllocation(commodityID int64, candidates []*models.StockLot, requested float64) ([]Portion, error) {
	remaining := requested
	portions := make([]Portion, 0, len(candidates))

	for _, lot := range candidates {
		if remaining <= 0 {
			break
		}
		available := lot.Available()
		if available <= 0 {
			continue
		}
		take := available
		if remaining < take {
			take = remaining
		}
		portions = append(portions, Portion{Lot: lot, Quantity: take})
		remaining -= take
	}

	if remaining > 0 {
		return nil, &custom_error.InsufficientStockError{
			CommodityID: commodityID,
			Requested:   requested,
			Available:   requested - remaining,
		}
	}

	return portions, nil
}
