package purchases

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/synard1/ximopet-sub010/internal/repository"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

type PurchaseRepository interface {
	InsertBatch(batch *models.PurchaseBatch) (int64, error)
	GetBatch(batchID int64) (*models.PurchaseBatch, error)
	GetBatches() (*[]models.PurchaseBatch, error)
	GetBatchForUpdate(tx *goqu.TxDatabase, batchID int64) (*models.PurchaseBatch, error)
	UpdateBatchStatus(tx *goqu.TxDatabase, batchID int64, status models.BatchStatus) error
	InsertPurchase(tx *goqu.TxDatabase, purchase *models.Purchase) (int64, error)
	GetPurchase(purchaseID int64) (*models.Purchase, error)
	GetPurchaseForUpdate(tx *goqu.TxDatabase, purchaseID int64) (*models.Purchase, error)
	UpdatePurchaseQuantity(tx *goqu.TxDatabase, purchase *models.Purchase) error
	SoftDeletePurchase(tx *goqu.TxDatabase, purchaseID int64) error
	GetBatchIDByPurchase(tx *goqu.TxDatabase, purchaseID int64) (int64, error)
}

type purchaseRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) PurchaseRepository {
	return &purchaseRepository{repo: r}
}

var batchColumns = []interface{}{
	"id", "supplier", "batch_date", "status", "total_qty", "total_amount", "created_by", "created_at",
}

var purchaseColumns = []interface{}{
	"id", "batch_id", "commodity_id", "production_unit_id", "unit", "quantity",
	"converted_quantity", "price_per_unit", "price_per_converted_unit", "created_at", "deleted_at",
}

func (r *purchaseRepository) InsertBatch(batch *models.PurchaseBatch) (int64, error) {
	var id int64
	query := r.repo.GoquDBWrapper.Insert("purchase_batches").
		Rows(goqu.Record{
			"supplier":   batch.Supplier,
			"batch_date": batch.BatchDate,
			"status":     batch.Status,
			"created_by": batch.CreatedBy,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&id); err != nil {
		return 0, fmt.Errorf("failed to insert purchase batch record: %w", err)
	}
	return id, nil
}

func (r *purchaseRepository) GetBatch(batchID int64) (*models.PurchaseBatch, error) {
	var batch models.PurchaseBatch
	found, err := r.repo.GoquDBWrapper.From("purchase_batches").
		Select(batchColumns...).
		Where(goqu.Ex{"id": batchID}).
		Executor().ScanStruct(&batch)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("purchase batch %d not found", batchID)
	}
	return &batch, nil
}

func (r *purchaseRepository) GetBatches() (*[]models.PurchaseBatch, error) {
	var batches []models.PurchaseBatch
	err := r.repo.GoquDBWrapper.From("purchase_batches").
		Select(batchColumns...).
		Order(goqu.C("batch_date").Desc(), goqu.C("id").Desc()).
		Executor().ScanStructs(&batches)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	return &batches, nil
}

// GetBatchForUpdate locks the batch row, serializing aggregate recompute
// against concurrent line edits.
func (r *purchaseRepository) GetBatchForUpdate(tx *goqu.TxDatabase, batchID int64) (*models.PurchaseBatch, error) {
	var batch models.PurchaseBatch
	found, err := tx.From("purchase_batches").
		Select(batchColumns...).
		Where(goqu.Ex{"id": batchID}).
		ForUpdate(exp.Wait).
		Executor().ScanStruct(&batch)
	if err != nil {
		return nil, fmt.Errorf("failed to lock purchase batch %d: %w", batchID, err)
	}
	if !found {
		return nil, fmt.Errorf("purchase batch %d not found", batchID)
	}
	return &batch, nil
}

func (r *purchaseRepository) UpdateBatchStatus(tx *goqu.TxDatabase, batchID int64, status models.BatchStatus) error {
	_, err := tx.Update("purchase_batches").
		Set(goqu.Record{"status": status}).
		Where(goqu.Ex{"id": batchID}).
		Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to update status of batch %d: %w", batchID, err)
	}
	return nil
}

func (r *purchaseRepository) InsertPurchase(tx *goqu.TxDatabase, purchase *models.Purchase) (int64, error) {
	var id int64
	query := tx.Insert("purchases").
		Rows(goqu.Record{
			"batch_id":                 purchase.BatchID,
			"commodity_id":             purchase.CommodityID,
			"production_unit_id":       purchase.ProductionUnitID,
			"unit":                     purchase.Unit,
			"quantity":                 purchase.Quantity,
			"converted_quantity":       purchase.ConvertedQuantity,
			"price_per_unit":           purchase.PricePerUnit,
			"price_per_converted_unit": purchase.PricePerConvertedUnit,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&id); err != nil {
		return 0, fmt.Errorf("failed to insert purchase record: %w", err)
	}
	return id, nil
}

func (r *purchaseRepository) GetPurchase(purchaseID int64) (*models.Purchase, error) {
	var purchase models.Purchase
	found, err := r.repo.GoquDBWrapper.From("purchases").
		Select(purchaseColumns...).
		Where(goqu.Ex{"id": purchaseID, "deleted_at": nil}).
		Executor().ScanStruct(&purchase)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("purchase %d not found", purchaseID)
	}
	return &purchase, nil
}

func (r *purchaseRepository) GetPurchaseForUpdate(tx *goqu.TxDatabase, purchaseID int64) (*models.Purchase, error) {
	var purchase models.Purchase
	found, err := tx.From("purchases").
		Select(purchaseColumns...).
		Where(goqu.Ex{"id": purchaseID, "deleted_at": nil}).
		ForUpdate(exp.Wait).
		Executor().ScanStruct(&purchase)
	if err != nil {
		return nil, fmt.Errorf("failed to lock purchase %d: %w", purchaseID, err)
	}
	if !found {
		return nil, fmt.Errorf("purchase %d not found", purchaseID)
	}
	return &purchase, nil
}

func (r *purchaseRepository) UpdatePurchaseQuantity(tx *goqu.TxDatabase, purchase *models.Purchase) error {
	_, err := tx.Update("purchases").
		Set(goqu.Record{
			"quantity":                 purchase.Quantity,
			"converted_quantity":       purchase.ConvertedQuantity,
			"price_per_converted_unit": purchase.PricePerConvertedUnit,
		}).
		Where(goqu.Ex{"id": purchase.ID, "deleted_at": nil}).
		Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to update quantity of purchase %d: %w", purchase.ID, err)
	}
	return nil
}

func (r *purchaseRepository) SoftDeletePurchase(tx *goqu.TxDatabase, purchaseID int64) error {
	_, err := tx.Update("purchases").
		Set(goqu.Record{"deleted_at": goqu.L("NOW()")}).
		Where(goqu.Ex{"id": purchaseID, "deleted_at": nil}).
		Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to delete purchase %d: %w", purchaseID, err)
	}
	return nil
}

func (r *purchaseRepository) GetBatchIDByPurchase(tx *goqu.TxDatabase, purchaseID int64) (int64, error) {
	var batchID int64
	found, err := tx.From("purchases").
		Select("batch_id").
		Where(goqu.Ex{"id": purchaseID}).
		Executor().ScanVal(&batchID)
	if err != nil {
		return 0, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("purchase %d not found", purchaseID)
	}
	return batchID, nil
}
