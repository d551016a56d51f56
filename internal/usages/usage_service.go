package usages

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/synard1/ximopet-sub010/internal/purchases"
	"github.com/synard1/ximopet-sub010/internal/repository"
	"github.com/synard1/ximopet-sub010/internal/stocklots"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

// batchResolver is the slice of the purchase repository the recorder needs
// to find which batch a touched lot belongs to.
type batchResolver interface {
	GetBatchIDByPurchase(tx *goqu.TxDatabase, purchaseID int64) (int64, error)
}

type UsageService struct {
	ur         UsageRepository
	lotRepo    stocklots.LotRepository
	batches    batchResolver
	aggregator purchases.Aggregator
	runInTx    func(fn func(tx *goqu.TxDatabase) error) error
}

func NewService(r *repository.Repository, ur UsageRepository, lr stocklots.LotRepository, br batchResolver, agg purchases.Aggregator) *UsageService {
	return &UsageService{
		ur:         ur,
		lotRepo:    lr,
		batches:    br,
		aggregator: agg,
		runInTx: func(fn func(tx *goqu.TxDatabase) error) error {
			return repository.WithTransaction(r.GoquDBWrapper, fn)
		},
	}
}

// RecordUsage deducts the requested smallest-unit quantity from the
// selected lots, creating one detail row per lot portion. All-or-nothing:
// if the candidates cannot cover the request the transaction rolls back
// with no counters touched.
func (s *UsageService) RecordUsage(actor string, productionUnitID, commodityID int64, usageDate time.Time, qty float64, selection stocklots.LotSelection) (*models.Usage, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("usage quantity must be positive, got %f", qty)
	}

	usage := &models.Usage{
		TransCode:        "USG-" + uuid.NewString(),
		ProductionUnitID: productionUnitID,
		CommodityID:      commodityID,
		UsageDate:        usageDate,
		CreatedBy:        actor,
	}

	err := s.runInTx(func(tx *goqu.TxDatabase) error {
		candidates, err := stocklots.SelectCandidatesForUpdate(tx, s.lotRepo, commodityID, productionUnitID, selection)
		if err != nil {
			return err
		}

		portions, err := stocklots.PlanAllocation(commodityID, candidates, qty)
		if err != nil {
			return err
		}

		usageID, err := s.ur.InsertUsage(tx, usage)
		if err != nil {
			return err
		}
		usage.ID = usageID

		for _, portion := range portions {
			detail := &models.UsageDetail{
				UsageID:       usageID,
				StockLotID:    portion.Lot.ID,
				QuantityTaken: portion.Quantity,
			}
			detailID, err := s.ur.InsertUsageDetail(tx, detail)
			if err != nil {
				return err
			}
			detail.ID = detailID
			usage.Details = append(usage.Details, *detail)

			if err := s.lotRepo.AddUsed(tx, portion.Lot.ID, portion.Quantity); err != nil {
				return err
			}
		}

		return s.recomputeTouchedBatches(tx, portions)
	})
	if err != nil {
		return nil, err
	}

	return usage, nil
}

// recomputeTouchedBatches re-aggregates every purchase batch whose lot was
// deducted. Mutation-derived lots have no batch and are skipped.
func (s *UsageService) recomputeTouchedBatches(tx *goqu.TxDatabase, portions []stocklots.Portion) error {
	seen := make(map[int64]bool)
	for _, portion := range portions {
		if portion.Lot.PurchaseID == nil {
			continue
		}
		batchID, err := s.batches.GetBatchIDByPurchase(tx, *portion.Lot.PurchaseID)
		if err != nil {
			return err
		}
		if seen[batchID] {
			continue
		}
		seen[batchID] = true
		if err := s.aggregator.Recompute(tx, batchID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteUsage reverses a recorded usage: every detail's quantity is
// restored to its lot and the usage rows are removed.
func (s *UsageService) DeleteUsage(usageID int64) error {
	return s.runInTx(func(tx *goqu.TxDatabase) error {
		usage, err := s.ur.GetUsageForUpdate(tx, usageID)
		if err != nil {
			return err
		}

		portions := make([]stocklots.Portion, 0, len(usage.Details))
		for _, detail := range usage.Details {
			lot, err := s.lotRepo.GetLotForUpdate(tx, detail.StockLotID)
			if err != nil {
				return err
			}
			if err := s.lotRepo.SubUsed(tx, detail.StockLotID, detail.QuantityTaken); err != nil {
				return err
			}
			portions = append(portions, stocklots.Portion{Lot: lot, Quantity: detail.QuantityTaken})
		}

		if err := s.ur.DeleteUsage(tx, usageID); err != nil {
			return err
		}

		return s.recomputeTouchedBatches(tx, portions)
	})
}

func (s *UsageService) GetUsage(usageID int64) (*models.Usage, error) {
	return s.ur.GetUsage(usageID)
}

func (s *UsageService) GetUsages(conditions repository.QueryBuilder) (*[]models.Usage, error) {
	return s.ur.GetUsages(conditions)
}
