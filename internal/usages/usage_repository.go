package usages

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/synard1/ximopet-sub010/internal/repository"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

type UsageRepository interface {
	InsertUsage(tx *goqu.TxDatabase, usage *models.Usage) (int64, error)
	InsertUsageDetail(tx *goqu.TxDatabase, detail *models.UsageDetail) (int64, error)
	GetUsage(usageID int64) (*models.Usage, error)
	GetUsageForUpdate(tx *goqu.TxDatabase, usageID int64) (*models.Usage, error)
	GetUsages(conditions repository.QueryBuilder) (*[]models.Usage, error)
	DeleteUsage(tx *goqu.TxDatabase, usageID int64) error
}

type usageRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) UsageRepository {
	return &usageRepository{repo: r}
}

var usageColumns = []interface{}{
	"id", "trans_code", "production_unit_id", "commodity_id", "usage_date", "created_by", "created_at",
}

func (r *usageRepository) InsertUsage(tx *goqu.TxDatabase, usage *models.Usage) (int64, error) {
	var id int64
	query := tx.Insert("usages").
		Rows(goqu.Record{
			"trans_code":         usage.TransCode,
			"production_unit_id": usage.ProductionUnitID,
			"commodity_id":       usage.CommodityID,
			"usage_date":         usage.UsageDate,
			"created_by":         usage.CreatedBy,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&id); err != nil {
		return 0, fmt.Errorf("failed to insert usage record: %w", err)
	}
	return id, nil
}

func (r *usageRepository) InsertUsageDetail(tx *goqu.TxDatabase, detail *models.UsageDetail) (int64, error) {
	var id int64
	query := tx.Insert("usage_details").
		Rows(goqu.Record{
			"usage_id":       detail.UsageID,
			"stock_lot_id":   detail.StockLotID,
			"quantity_taken": detail.QuantityTaken,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&id); err != nil {
		return 0, fmt.Errorf("failed to insert usage detail record: %w", err)
	}
	return id, nil
}

func (r *usageRepository) GetUsage(usageID int64) (*models.Usage, error) {
	var usage models.Usage
	found, err := r.repo.GoquDBWrapper.From("usages").
		Select(usageColumns...).
		Where(goqu.Ex{"id": usageID}).
		Executor().ScanStruct(&usage)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("usage %d not found", usageID)
	}

	if err := r.loadDetails(&usage, r.repo.GoquDBWrapper.From("usage_details")); err != nil {
		return nil, err
	}
	return &usage, nil
}

func (r *usageRepository) GetUsageForUpdate(tx *goqu.TxDatabase, usageID int64) (*models.Usage, error) {
	var usage models.Usage
	found, err := tx.From("usages").
		Select(usageColumns...).
		Where(goqu.Ex{"id": usageID}).
		ForUpdate(exp.Wait).
		Executor().ScanStruct(&usage)
	if err != nil {
		return nil, fmt.Errorf("failed to lock usage %d: %w", usageID, err)
	}
	if !found {
		return nil, fmt.Errorf("usage %d not found", usageID)
	}

	if err := r.loadDetails(&usage, tx.From("usage_details")); err != nil {
		return nil, err
	}
	return &usage, nil
}

func (r *usageRepository) loadDetails(usage *models.Usage, dataset *goqu.SelectDataset) error {
	err := dataset.
		Select("id", "usage_id", "stock_lot_id", "quantity_taken").
		Where(goqu.Ex{"usage_id": usage.ID}).
		Order(goqu.C("id").Asc()).
		Executor().ScanStructs(&usage.Details)
	if err != nil {
		return fmt.Errorf("failed to load details for usage %d: %w", usage.ID, err)
	}
	return nil
}

func (r *usageRepository) GetUsages(conditions repository.QueryBuilder) (*[]models.Usage, error) {
	var usages []models.Usage
	err := r.repo.GoquDBWrapper.From("usages").
		Select(usageColumns...).
		Where(conditions.BuildConditions(map[string]string{})).
		Order(goqu.C("usage_date").Desc(), goqu.C("id").Desc()).
		Executor().ScanStructs(&usages)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	return &usages, nil
}

func (r *usageRepository) DeleteUsage(tx *goqu.TxDatabase, usageID int64) error {
	if _, err := tx.Delete("usage_details").
		Where(goqu.Ex{"usage_id": usageID}).
		Executor().Exec(); err != nil {
		return fmt.Errorf("failed to delete details of usage %d: %w", usageID, err)
	}

	if _, err := tx.Delete("usages").
		Where(goqu.Ex{"id": usageID}).
		Executor().Exec(); err != nil {
		return fmt.Errorf("failed to delete usage %d: %w", usageID, err)
	}
	return nil
}
