package productionunits

import (
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/synard1/ximopet-sub010/internal/repository"
	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

type UnitRepository struct {
	Repository *repository.Repository
}

func NewUnitRepository(r *repository.Repository) *UnitRepository {
	return &UnitRepository{Repository: r}
}

func (r *UnitRepository) GetUnits() (*[]models.ProductionUnit, error) {
	var units = []models.ProductionUnit{}
	query := r.Repository.GoquDBWrapper.
		Select("id", "name", "farm_id", "details").
		From("production_units").
		Order(goqu.C("name").Asc())
	if err := query.Executor().ScanStructs(&units); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	return &units, nil
}

func (r *UnitRepository) GetUnit(unitID int64) (*models.ProductionUnit, error) {
	var unit models.ProductionUnit
	found, err := r.Repository.GoquDBWrapper.
		Select("id", "name", "farm_id", "details").
		From("production_units").
		Where(goqu.Ex{"id": unitID}).
		Executor().ScanStruct(&unit)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("production unit %d not found", unitID)
	}
	return &unit, nil
}

func (r *UnitRepository) PersistUnit(unit *models.ProductionUnit) error {
	query := r.Repository.GoquDBWrapper.Insert("production_units").
		Rows(goqu.Record{
			"name":    unit.Name,
			"farm_id": unit.FarmID,
			"details": unit.Details,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&unit.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return custom_error.WrapDBError("Duplicate production unit name", string(pqErr.Code))
		}
		return fmt.Errorf("failed to insert production unit record: %w", err)
	}

	return nil
}

type UpdateUnitRequest struct {
	Name    *string `json:"name"`
	FarmID  *int64  `json:"farm_id"`
	Details *string `json:"details"`
}

func (r *UnitRepository) UpdateUnit(unitID int64, req UpdateUnitRequest) (models.ProductionUnit, error) {
	updates := make(map[string]interface{})

	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.FarmID != nil {
		updates["farm_id"] = *req.FarmID
	}
	if req.Details != nil {
		updates["details"] = *req.Details
	}
	if len(updates) == 0 {
		return models.ProductionUnit{}, fmt.Errorf("no fields to update")
	}

	query := r.Repository.GoquDBWrapper.
		Update("production_units").
		Set(updates).
		Where(goqu.Ex{"id": unitID}).
		Returning("id", "name", "farm_id", "details")

	var unit models.ProductionUnit
	_, err := query.Executor().ScanStruct(&unit)
	if err != nil {
		return models.ProductionUnit{}, fmt.Errorf("failed to update production unit: %w", err)
	}

	return unit, nil
}

// RemoveUnit deletes a production unit. Units referenced by stock lots are
// protected by the foreign key and surface as a conflict.
func (r *UnitRepository) RemoveUnit(unitID int64) error {
	result, err := r.Repository.GoquDBWrapper.Delete("production_units").
		Where(goqu.Ex{"id": unitID}).
		Executor().Exec()
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return custom_error.WrapDBError("Production unit still owns stock lots", string(pqErr.Code))
		}
		return fmt.Errorf("failed to delete production unit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no production unit found with id: %d", unitID)
	}

	return nil
}

// UnitStockRow is the per-commodity availability summary of one unit.
type UnitStockRow struct {
	CommodityID   int64   `json:"commodity_id" db:"commodity_id"`
	CommodityCode string  `json:"commodity_code" db:"commodity_code"`
	CommodityName string  `json:"commodity_name" db:"commodity_name"`
	Available     float64 `json:"available" db:"available"`
	Lots          int64   `json:"lots" db:"lots"`
}

// GetUnitStock sums the unit's open lots per commodity, in the smallest
// unit.
func (r *UnitRepository) GetUnitStock(unitID int64) ([]UnitStockRow, error) {
	var rows []UnitStockRow
	err := r.Repository.GoquDBWrapper.
		From(goqu.T("stock_lots").As("l")).
		Select(
			goqu.I("c.id").As("commodity_id"),
			goqu.I("c.code").As("commodity_code"),
			goqu.I("c.name").As("commodity_name"),
			goqu.L("SUM(l.quantity_in - l.quantity_used - l.quantity_mutated)").As("available"),
			goqu.L("COUNT(*)").As("lots"),
		).
		Join(
			goqu.T("commodities").As("c"),
			goqu.On(goqu.Ex{"c.id": goqu.I("l.commodity_id")}),
		).
		Where(goqu.Ex{"l.production_unit_id": unitID, "l.deleted_at": nil}).
		GroupBy(goqu.I("c.id"), goqu.I("c.code"), goqu.I("c.name")).
		Order(goqu.I("c.code").Asc()).
		Executor().ScanStructs(&rows)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return rows, nil
}
