package stocklots

import (
	"testing"

	"github.com/stretchr/testify/assert"

	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

func lot(id int64, in, used, mutated float64) *models.StockLot {
	return &models.StockLot{ID: id, CommodityID: 1, QuantityIn: in, QuantityUsed: used, QuantityMutated: mutated}
}

func TestPlanAllocationSingleLot(t *testing.T) {
	portions, err := PlanAllocation(1, []*models.StockLot{lot(10, 500, 0, 0)}, 120)

	assert.NoError(t, err)
	assert.Len(t, portions, 1)
	assert.Equal(t, int64(10), portions[0].Lot.ID)
	assert.Equal(t, 120.0, portions[0].Quantity)
}

func TestPlanAllocationSpansLots(t *testing.T) {
	candidates := []*models.StockLot{
		lot(1, 100, 80, 0),  // 20 available
		lot(2, 50, 0, 10),   // 40 available
		lot(3, 500, 0, 0),   // 500 available
	}

	portions, err := PlanAllocation(1, candidates, 100)

	assert.NoError(t, err)
	assert.Len(t, portions, 3)
	assert.Equal(t, 20.0, portions[0].Quantity)
	assert.Equal(t, 40.0, portions[1].Quantity)
	assert.Equal(t, 40.0, portions[2].Quantity)
}

func TestPlanAllocationSkipsExhaustedLots(t *testing.T) {
	candidates := []*models.StockLot{
		lot(1, 100, 100, 0),
		lot(2, 60, 0, 0),
	}

	portions, err := PlanAllocation(1, candidates, 30)

	assert.NoError(t, err)
	assert.Len(t, portions, 1)
	assert.Equal(t, int64(2), portions[0].Lot.ID)
}

func TestPlanAllocationInsufficient(t *testing.T) {
	candidates := []*models.StockLot{
		lot(1, 100, 80, 0),
		lot(2, 50, 20, 10),
	}

	portions, err := PlanAllocation(1, candidates, 100)

	assert.Nil(t, portions)
	var insufficient *custom_error.InsufficientStockError
	assert.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 100.0, insufficient.Requested)
	assert.Equal(t, 40.0, insufficient.Available)
}

func TestPlanAllocationRespectsCallerOrder(t *testing.T) {
	// The planner must not re-sort; the caller owns the policy.
	candidates := []*models.StockLot{
		lot(9, 100, 0, 0),
		lot(1, 100, 0, 0),
	}

	portions, err := PlanAllocation(1, candidates, 150)

	assert.NoError(t, err)
	assert.Equal(t, int64(9), portions[0].Lot.ID)
	assert.Equal(t, 100.0, portions[0].Quantity)
	assert.Equal(t, int64(1), portions[1].Lot.ID)
	assert.Equal(t, 50.0, portions[1].Quantity)
}

func TestPlanAllocationNoCandidates(t *testing.T) {
	_, err := PlanAllocation(1, nil, 10)

	var insufficient *custom_error.InsufficientStockError
	assert.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0.0, insufficient.Available)
}
