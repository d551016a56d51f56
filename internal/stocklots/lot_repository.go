package stocklots

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/synard1/ximopet-sub010/internal/repository"
	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

// LotRepository covers every write against stock-lot counters. The
// check-then-deduct sequence is raced by concurrent usage and mutation
// recording, so reads that precede a deduction take a row lock and every
// counter update carries its own availability guard.
type LotRepository interface {
	GetLot(lotID int64) (*models.StockLot, error)
	GetLotForUpdate(tx *goqu.TxDatabase, lotID int64) (*models.StockLot, error)
	GetCandidateLotsForUpdate(tx *goqu.TxDatabase, commodityID, productionUnitID int64) ([]*models.StockLot, error)
	InsertLot(tx *goqu.TxDatabase, lot *models.StockLot) (int64, error)
	AddUsed(tx *goqu.TxDatabase, lotID int64, qty float64) error
	SubUsed(tx *goqu.TxDatabase, lotID int64, qty float64) error
	AddMutated(tx *goqu.TxDatabase, lotID int64, qty float64) error
	SubMutated(tx *goqu.TxDatabase, lotID int64, qty float64) error
	SetQuantityIn(tx *goqu.TxDatabase, lotID int64, newQty float64) error
	DeleteLot(tx *goqu.TxDatabase, lotID int64) error
	GetLotByPurchaseForUpdate(tx *goqu.TxDatabase, purchaseID int64) (*models.StockLot, error)
	GetDestinationLotsForUpdate(tx *goqu.TxDatabase, mutationID int64) ([]*models.StockLot, error)
	BatchHasTouchedLots(tx *goqu.TxDatabase, batchID int64) (bool, error)
}

type lotRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) LotRepository {
	return &lotRepository{repo: r}
}

var lotColumns = []interface{}{
	"id", "commodity_id", "production_unit_id", "purchase_id", "mutation_item_id",
	"quantity_in", "quantity_used", "quantity_mutated", "entry_date", "created_by", "created_at",
}

func (r *lotRepository) GetLot(lotID int64) (*models.StockLot, error) {
	var lot models.StockLot
	found, err := r.repo.GoquDBWrapper.From("stock_lots").
		Select(lotColumns...).
		Where(goqu.Ex{"id": lotID, "deleted_at": nil}).
		Executor().ScanStruct(&lot)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("stock lot %d not found", lotID)
	}
	return &lot, nil
}

func (r *lotRepository) GetLotForUpdate(tx *goqu.TxDatabase, lotID int64) (*models.StockLot, error) {
	var lot models.StockLot
	found, err := tx.From("stock_lots").
		Select(lotColumns...).
		Where(goqu.Ex{"id": lotID, "deleted_at": nil}).
		ForUpdate(exp.Wait).
		Executor().ScanStruct(&lot)
	if err != nil {
		return nil, fmt.Errorf("failed to lock stock lot %d: %w", lotID, err)
	}
	if !found {
		return nil, fmt.Errorf("stock lot %d not found", lotID)
	}
	return &lot, nil
}

// GetCandidateLotsForUpdate locks and returns the unit's open lots for a
// commodity, earliest entry first. This default ordering feeds auto-select;
// explicit selections bypass it.
func (r *lotRepository) GetCandidateLotsForUpdate(tx *goqu.TxDatabase, commodityID, productionUnitID int64) ([]*models.StockLot, error) {
	var lots []models.StockLot
	err := tx.From("stock_lots").
		Select(lotColumns...).
		Where(goqu.Ex{
			"commodity_id":       commodityID,
			"production_unit_id": productionUnitID,
			"deleted_at":         nil,
		}).
		Where(goqu.L("quantity_in - quantity_used - quantity_mutated > 0")).
		Order(goqu.C("entry_date").Asc(), goqu.C("id").Asc()).
		ForUpdate(exp.Wait).
		Executor().ScanStructs(&lots)
	if err != nil {
		return nil, fmt.Errorf("failed to lock candidate lots: %w", err)
	}

	result := make([]*models.StockLot, len(lots))
	for i := range lots {
		result[i] = &lots[i]
	}
	return result, nil
}

func (r *lotRepository) InsertLot(tx *goqu.TxDatabase, lot *models.StockLot) (int64, error) {
	var id int64
	query := tx.Insert("stock_lots").
		Rows(goqu.Record{
			"commodity_id":       lot.CommodityID,
			"production_unit_id": lot.ProductionUnitID,
			"purchase_id":        lot.PurchaseID,
			"mutation_item_id":   lot.MutationItemID,
			"quantity_in":        lot.QuantityIn,
			"quantity_used":      lot.QuantityUsed,
			"quantity_mutated":   lot.QuantityMutated,
			"entry_date":         lot.EntryDate,
			"created_by":         lot.CreatedBy,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&id); err != nil {
		return 0, fmt.Errorf("failed to insert stock lot record: %w", err)
	}
	return id, nil
}

// addCounter increments one counter under the availability guard. A zero
// row count means another writer got between our lock and this update.
func (r *lotRepository) addCounter(tx *goqu.TxDatabase, column string, lotID int64, qty float64) error {
	result, err := tx.Update("stock_lots").
		Set(goqu.Record{column: goqu.L(column+" + ?", qty)}).
		Where(goqu.Ex{"id": lotID, "deleted_at": nil}).
		Where(goqu.L("quantity_in - quantity_used - quantity_mutated >= ?", qty)).
		Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to increase %s on lot %d: %w", column, lotID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for lot %d: %w", lotID, err)
	}
	if rowsAffected == 0 {
		return custom_error.NewConflictError(fmt.Sprintf("stock lot %d changed concurrently", lotID))
	}
	return nil
}

// subCounter decrements one counter, guarding against going below zero.
func (r *lotRepository) subCounter(tx *goqu.TxDatabase, column string, lotID int64, qty float64) error {
	result, err := tx.Update("stock_lots").
		Set(goqu.Record{column: goqu.L(column+" - ?", qty)}).
		Where(goqu.Ex{"id": lotID, "deleted_at": nil}).
		Where(goqu.L(column+" >= ?", qty)).
		Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to decrease %s on lot %d: %w", column, lotID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for lot %d: %w", lotID, err)
	}
	if rowsAffected == 0 {
		return custom_error.NewConflictError(fmt.Sprintf("stock lot %d has less %s than the amount being restored", lotID, column))
	}
	return nil
}

func (r *lotRepository) AddUsed(tx *goqu.TxDatabase, lotID int64, qty float64) error {
	return r.addCounter(tx, "quantity_used", lotID, qty)
}

func (r *lotRepository) SubUsed(tx *goqu.TxDatabase, lotID int64, qty float64) error {
	return r.subCounter(tx, "quantity_used", lotID, qty)
}

func (r *lotRepository) AddMutated(tx *goqu.TxDatabase, lotID int64, qty float64) error {
	return r.addCounter(tx, "quantity_mutated", lotID, qty)
}

func (r *lotRepository) SubMutated(tx *goqu.TxDatabase, lotID int64, qty float64) error {
	return r.subCounter(tx, "quantity_mutated", lotID, qty)
}

// SetQuantityIn rewrites quantity_in during a purchase correction. The
// guard re-checks recorded consumption so a downward correction can never
// leave the lot overdrawn.
func (r *lotRepository) SetQuantityIn(tx *goqu.TxDatabase, lotID int64, newQty float64) error {
	result, err := tx.Update("stock_lots").
		Set(goqu.Record{"quantity_in": newQty}).
		Where(goqu.Ex{"id": lotID, "deleted_at": nil}).
		Where(goqu.L("quantity_used + quantity_mutated <= ?", newQty)).
		Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to set quantity_in on lot %d: %w", lotID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for lot %d: %w", lotID, err)
	}
	if rowsAffected == 0 {
		return custom_error.NewConflictError(fmt.Sprintf("stock lot %d changed concurrently during correction", lotID))
	}
	return nil
}

// DeleteLot soft-deletes a lot, refusing while any consumption is recorded.
func (r *lotRepository) DeleteLot(tx *goqu.TxDatabase, lotID int64) error {
	result, err := tx.Update("stock_lots").
		Set(goqu.Record{"deleted_at": goqu.L("NOW()")}).
		Where(goqu.Ex{"id": lotID, "deleted_at": nil}).
		Where(goqu.L("quantity_used = 0 AND quantity_mutated = 0")).
		Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to delete stock lot %d: %w", lotID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for lot %d: %w", lotID, err)
	}
	if rowsAffected == 0 {
		return &custom_error.StockLockedError{LotID: lotID}
	}
	return nil
}

func (r *lotRepository) GetLotByPurchaseForUpdate(tx *goqu.TxDatabase, purchaseID int64) (*models.StockLot, error) {
	var lot models.StockLot
	found, err := tx.From("stock_lots").
		Select(lotColumns...).
		Where(goqu.Ex{"purchase_id": purchaseID, "deleted_at": nil}).
		ForUpdate(exp.Wait).
		Executor().ScanStruct(&lot)
	if err != nil {
		return nil, fmt.Errorf("failed to lock lot for purchase %d: %w", purchaseID, err)
	}
	if !found {
		return nil, fmt.Errorf("no stock lot for purchase %d", purchaseID)
	}
	return &lot, nil
}

func (r *lotRepository) GetDestinationLotsForUpdate(tx *goqu.TxDatabase, mutationID int64) ([]*models.StockLot, error) {
	var lots []models.StockLot
	err := tx.From(goqu.T("stock_lots").As("l")).
		Select(
			goqu.I("l.id"), goqu.I("l.commodity_id"), goqu.I("l.production_unit_id"),
			goqu.I("l.purchase_id"), goqu.I("l.mutation_item_id"),
			goqu.I("l.quantity_in"), goqu.I("l.quantity_used"), goqu.I("l.quantity_mutated"),
			goqu.I("l.entry_date"), goqu.I("l.created_by"), goqu.I("l.created_at"),
		).
		Join(
			goqu.T("mutation_items").As("mi"),
			goqu.On(goqu.Ex{"mi.id": goqu.I("l.mutation_item_id")}),
		).
		Where(goqu.Ex{"mi.mutation_id": mutationID, "l.deleted_at": nil}).
		ForUpdate(exp.Wait).
		Executor().ScanStructs(&lots)
	if err != nil {
		return nil, fmt.Errorf("failed to lock destination lots for mutation %d: %w", mutationID, err)
	}

	result := make([]*models.StockLot, len(lots))
	for i := range lots {
		result[i] = &lots[i]
	}
	return result, nil
}

// BatchHasTouchedLots reports whether any lot created by the batch's
// purchase lines has recorded usage or mutation. Used by the cancellation
// guard.
func (r *lotRepository) BatchHasTouchedLots(tx *goqu.TxDatabase, batchID int64) (bool, error) {
	var count int64
	_, err := tx.From(goqu.T("stock_lots").As("l")).
		Select(goqu.COUNT("*")).
		Join(
			goqu.T("purchases").As("p"),
			goqu.On(goqu.Ex{"p.id": goqu.I("l.purchase_id")}),
		).
		Where(goqu.Ex{"p.batch_id": batchID, "l.deleted_at": nil}).
		Where(goqu.L("l.quantity_used + l.quantity_mutated > 0")).
		Executor().ScanVal(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check batch %d for touched lots: %w", batchID, err)
	}
	return count > 0, nil
}
