package commodities

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/synard1/ximopet-sub010/internal/repository"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

type CommodityRepository interface {
	GetCommodity(commodityID int64) (*models.Commodity, error)
	GetCommodities(conditions repository.QueryBuilder) (*[]models.Commodity, error)
	PersistCommodity(commodity *models.Commodity) (*models.Commodity, error)
}

type commodityRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) CommodityRepository {
	return &commodityRepository{repo: r}
}

// GetCommodity loads the commodity row together with its conversion table.
// The conversion mode is fixed here, once, so the engine never probes for
// table presence at call time.
func (r *commodityRepository) GetCommodity(commodityID int64) (*models.Commodity, error) {
	var commodity models.Commodity
	found, err := r.repo.GoquDBWrapper.From("commodities").
		Select("id", "code", "name", "kind", "conversion_mode", "conversion_factor").
		Where(goqu.Ex{"id": commodityID}).
		Executor().ScanStruct(&commodity)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("commodity %d not found", commodityID)
	}

	if err := r.loadUnits(&commodity); err != nil {
		return nil, err
	}
	return &commodity, nil
}

func (r *commodityRepository) loadUnits(commodity *models.Commodity) error {
	err := r.repo.GoquDBWrapper.From("commodity_units").
		Select("id", "commodity_id", "unit", "value", "is_smallest").
		Where(goqu.Ex{"commodity_id": commodity.ID}).
		Order(goqu.C("id").Asc()).
		Executor().ScanStructs(&commodity.Units)
	if err != nil {
		return fmt.Errorf("failed to load conversion table for commodity %d: %w", commodity.ID, err)
	}
	return nil
}

func (r *commodityRepository) GetCommodities(conditions repository.QueryBuilder) (*[]models.Commodity, error) {
	var commodities []models.Commodity
	err := r.repo.GoquDBWrapper.From("commodities").
		Select("id", "code", "name", "kind", "conversion_mode", "conversion_factor").
		Where(conditions.BuildConditions(map[string]string{})).
		Order(goqu.C("code").Asc()).
		Executor().ScanStructs(&commodities)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	for i := range commodities {
		if err := r.loadUnits(&commodities[i]); err != nil {
			return nil, err
		}
	}
	return &commodities, nil
}

// PersistCommodity inserts the commodity and its conversion table in one
// transaction. Conversion-table writes are an administrative operation;
// request-time code only ever reads them.
func (r *commodityRepository) PersistCommodity(commodity *models.Commodity) (*models.Commodity, error) {
	err := repository.WithTransaction(r.repo.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		query := tx.Insert("commodities").
			Rows(goqu.Record{
				"code":              commodity.Code,
				"name":              commodity.Name,
				"kind":              commodity.Kind,
				"conversion_mode":   commodity.Mode,
				"conversion_factor": commodity.ScalarFactor,
			}).
			Returning("id")
		if _, err := query.Executor().ScanVal(&commodity.ID); err != nil {
			return fmt.Errorf("failed to insert commodity record: %w", err)
		}

		for i := range commodity.Units {
			entry := &commodity.Units[i]
			entry.CommodityID = commodity.ID
			unitQuery := tx.Insert("commodity_units").
				Rows(goqu.Record{
					"commodity_id": entry.CommodityID,
					"unit":         entry.Unit,
					"value":        entry.Value,
					"is_smallest":  entry.IsSmallest,
				}).
				Returning("id")
			if _, err := unitQuery.Executor().ScanVal(&entry.ID); err != nil {
				return fmt.Errorf("failed to insert conversion entry %q: %w", entry.Unit, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commodity, nil
}
