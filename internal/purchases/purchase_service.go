package purchases

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/synard1/ximopet-sub010/internal/commodities"
	"github.com/synard1/ximopet-sub010/internal/conversion"
	"github.com/synard1/ximopet-sub010/internal/repository"
	"github.com/synard1/ximopet-sub010/internal/stocklots"
	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

type PurchaseService struct {
	pr            PurchaseRepository
	lotRepo       stocklots.LotRepository
	commodityRepo commodities.CommodityRepository
	aggregator    Aggregator
	runInTx       func(fn func(tx *goqu.TxDatabase) error) error
}

func NewService(r *repository.Repository, pr PurchaseRepository, lr stocklots.LotRepository, cr commodities.CommodityRepository, agg Aggregator) *PurchaseService {
	return &PurchaseService{
		pr:            pr,
		lotRepo:       lr,
		commodityRepo: cr,
		aggregator:    agg,
		runInTx: func(fn func(tx *goqu.TxDatabase) error) error {
			return repository.WithTransaction(r.GoquDBWrapper, fn)
		},
	}
}

func (s *PurchaseService) CreateBatch(actor, supplier string, batchDate time.Time) (*models.PurchaseBatch, error) {
	batch := &models.PurchaseBatch{
		Supplier:  supplier,
		BatchDate: batchDate,
		Status:    models.BatchDraft,
		CreatedBy: actor,
	}

	id, err := s.pr.InsertBatch(batch)
	if err != nil {
		return nil, err
	}
	batch.ID = id
	return batch, nil
}

// UpdateBatchStatus advances the batch status machine. Cancelling is
// refused while any lot created by the batch has recorded consumption.
func (s *PurchaseService) UpdateBatchStatus(batchID int64, newStatus models.BatchStatus) error {
	return s.runInTx(func(tx *goqu.TxDatabase) error {
		batch, err := s.pr.GetBatchForUpdate(tx, batchID)
		if err != nil {
			return err
		}

		if !batch.Status.CanTransition(newStatus) {
			return &custom_error.InvalidStatusTransitionError{From: string(batch.Status), To: string(newStatus)}
		}

		if newStatus == models.BatchCancelled {
			touched, err := s.lotRepo.BatchHasTouchedLots(tx, batchID)
			if err != nil {
				return err
			}
			if touched {
				return &custom_error.StockLockedError{LotID: 0}
			}
		}

		return s.pr.UpdateBatchStatus(tx, batchID, newStatus)
	})
}

// RecordPurchase creates the purchase line and its stock lot atomically and
// recomputes the batch totals inside the same transaction. The lot is owned
// by the production unit the line was bought for; auto-selection during
// usage and mutation recording only sees lots of that unit.
func (s *PurchaseService) RecordPurchase(actor string, batchID, commodityID, productionUnitID int64, unit string, qty, pricePerUnit float64) (*models.Purchase, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("purchase quantity must be positive, got %f", qty)
	}

	commodity, err := s.commodityRepo.GetCommodity(commodityID)
	if err != nil {
		return nil, err
	}

	convertedQty, err := conversion.ToSmallest(commodity, unit, qty)
	if err != nil {
		return nil, err
	}
	if convertedQty <= 0 {
		return nil, fmt.Errorf("converted quantity must be positive, got %f", convertedQty)
	}

	purchase := &models.Purchase{
		BatchID:               batchID,
		CommodityID:           commodityID,
		ProductionUnitID:      productionUnitID,
		Unit:                  unit,
		Quantity:              qty,
		ConvertedQuantity:     convertedQty,
		PricePerUnit:          pricePerUnit,
		PricePerConvertedUnit: pricePerUnit * qty / convertedQty,
	}

	err = s.runInTx(func(tx *goqu.TxDatabase) error {
		batch, err := s.pr.GetBatchForUpdate(tx, batchID)
		if err != nil {
			return err
		}
		if batch.Status.IsTerminal() {
			return &custom_error.InvalidStatusTransitionError{From: string(batch.Status), To: "new purchase line"}
		}

		purchaseID, err := s.pr.InsertPurchase(tx, purchase)
		if err != nil {
			return err
		}
		purchase.ID = purchaseID

		lot := &models.StockLot{
			CommodityID:      commodityID,
			ProductionUnitID: productionUnitID,
			PurchaseID:       &purchase.ID,
			QuantityIn:       convertedQty,
			EntryDate:        batch.BatchDate,
			CreatedBy:        actor,
		}
		if _, err := s.lotRepo.InsertLot(tx, lot); err != nil {
			return err
		}

		return s.aggregator.Recompute(tx, batchID)
	})
	if err != nil {
		return nil, err
	}

	return purchase, nil
}

// CorrectPurchaseQuantity rewrites a line's quantity. The new smallest-unit
// quantity is validated against what usage and mutation records have
// already consumed from the lot; corrections below that fail outright.
func (s *PurchaseService) CorrectPurchaseQuantity(purchaseID int64, newQty float64) (*models.Purchase, error) {
	if newQty <= 0 {
		return nil, fmt.Errorf("corrected quantity must be positive, got %f", newQty)
	}

	var corrected *models.Purchase
	err := s.runInTx(func(tx *goqu.TxDatabase) error {
		batchID, err := s.pr.GetBatchIDByPurchase(tx, purchaseID)
		if err != nil {
			return err
		}
		// Lock order: batch before purchase before lot, same as every
		// other writer of these rows.
		if _, err := s.pr.GetBatchForUpdate(tx, batchID); err != nil {
			return err
		}

		purchase, err := s.pr.GetPurchaseForUpdate(tx, purchaseID)
		if err != nil {
			return err
		}

		commodity, err := s.commodityRepo.GetCommodity(purchase.CommodityID)
		if err != nil {
			return err
		}

		newConverted, err := conversion.ToSmallest(commodity, purchase.Unit, newQty)
		if err != nil {
			return err
		}

		lot, err := s.lotRepo.GetLotByPurchaseForUpdate(tx, purchaseID)
		if err != nil {
			return err
		}

		allocated := lot.QuantityUsed + lot.QuantityMutated
		if newConverted < allocated {
			return &custom_error.BelowAllocatedError{
				PurchaseID: purchaseID,
				NewQty:     newConverted,
				Allocated:  allocated,
			}
		}

		if err := s.lotRepo.SetQuantityIn(tx, lot.ID, newConverted); err != nil {
			return err
		}

		purchase.Quantity = newQty
		purchase.ConvertedQuantity = newConverted
		purchase.PricePerConvertedUnit = purchase.PricePerUnit * newQty / newConverted
		if err := s.pr.UpdatePurchaseQuantity(tx, purchase); err != nil {
			return err
		}
		corrected = purchase

		return s.aggregator.Recompute(tx, purchase.BatchID)
	})
	if err != nil {
		return nil, err
	}

	return corrected, nil
}

// DeletePurchase soft-deletes an untouched line together with its lot and
// recomputes the batch. Lines whose lot has recorded consumption cannot be
// removed.
func (s *PurchaseService) DeletePurchase(purchaseID int64) error {
	return s.runInTx(func(tx *goqu.TxDatabase) error {
		batchID, err := s.pr.GetBatchIDByPurchase(tx, purchaseID)
		if err != nil {
			return err
		}
		if _, err := s.pr.GetBatchForUpdate(tx, batchID); err != nil {
			return err
		}

		purchase, err := s.pr.GetPurchaseForUpdate(tx, purchaseID)
		if err != nil {
			return err
		}

		lot, err := s.lotRepo.GetLotByPurchaseForUpdate(tx, purchaseID)
		if err != nil {
			return err
		}
		if lot.Touched() {
			return &custom_error.StockLockedError{LotID: lot.ID}
		}

		if err := s.lotRepo.DeleteLot(tx, lot.ID); err != nil {
			return err
		}
		if err := s.pr.SoftDeletePurchase(tx, purchase.ID); err != nil {
			return err
		}

		return s.aggregator.Recompute(tx, batchID)
	})
}

func (s *PurchaseService) GetBatch(batchID int64) (*models.PurchaseBatch, error) {
	return s.pr.GetBatch(batchID)
}

func (s *PurchaseService) GetBatches() (*[]models.PurchaseBatch, error) {
	return s.pr.GetBatches()
}

func (s *PurchaseService) GetPurchase(purchaseID int64) (*models.Purchase, error) {
	return s.pr.GetPurchase(purchaseID)
}
