package mutations

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/synard1/ximopet-sub010/internal/commodities"
	"github.com/synard1/ximopet-sub010/internal/conversion"
	"github.com/synard1/ximopet-sub010/internal/purchases"
	"github.com/synard1/ximopet-sub010/internal/repository"
	"github.com/synard1/ximopet-sub010/internal/stocklots"
	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

type batchResolver interface {
	GetBatchIDByPurchase(tx *goqu.TxDatabase, purchaseID int64) (int64, error)
}

type MutationService struct {
	mr            MutationRepository
	lotRepo       stocklots.LotRepository
	commodityRepo commodities.CommodityRepository
	batches       batchResolver
	aggregator    purchases.Aggregator
	runInTx       func(fn func(tx *goqu.TxDatabase) error) error
}

func NewService(r *repository.Repository, mr MutationRepository, lr stocklots.LotRepository, cr commodities.CommodityRepository, br batchResolver, agg purchases.Aggregator) *MutationService {
	return &MutationService{
		mr:            mr,
		lotRepo:       lr,
		commodityRepo: cr,
		batches:       br,
		aggregator:    agg,
		runInTx: func(fn func(tx *goqu.TxDatabase) error) error {
			return repository.WithTransaction(r.GoquDBWrapper, fn)
		},
	}
}

// MutationRequest carries everything a transfer needs. DisplayUnit is
// optional; when set, each item retains the original unit and its
// conversion rate for display on the receiving side.
type MutationRequest struct {
	SourceUnitID int64
	DestUnitID   int64
	CommodityID  int64
	MutationDate time.Time
	Quantity     float64 // smallest unit
	Type         string
	DisplayUnit  string
	Selection    stocklots.LotSelection
}

// RecordMutation atomically deducts from the source unit's lots and
// creates one destination lot per consumed portion, each tied to its
// mutation item. A mutation-derived lot is an ordinary lot afterwards and
// may itself be used or mutated further.
func (s *MutationService) RecordMutation(actor string, req MutationRequest) (*models.Mutation, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("mutation quantity must be positive, got %f", req.Quantity)
	}
	if req.SourceUnitID == req.DestUnitID {
		return nil, fmt.Errorf("mutation source and destination must differ")
	}

	var originalUnit *string
	var conversionRate *float64
	if req.DisplayUnit != "" {
		commodity, err := s.commodityRepo.GetCommodity(req.CommodityID)
		if err != nil {
			return nil, err
		}
		rate, err := conversion.Rate(commodity, req.DisplayUnit)
		if err != nil {
			return nil, err
		}
		originalUnit = &req.DisplayUnit
		conversionRate = &rate
	}

	mutation := &models.Mutation{
		TransCode:    "MUT-" + uuid.NewString(),
		SourceUnitID: req.SourceUnitID,
		DestUnitID:   req.DestUnitID,
		CommodityID:  req.CommodityID,
		MutationDate: req.MutationDate,
		Type:         req.Type,
		CreatedBy:    actor,
	}

	err := s.runInTx(func(tx *goqu.TxDatabase) error {
		candidates, err := stocklots.SelectCandidatesForUpdate(tx, s.lotRepo, req.CommodityID, req.SourceUnitID, req.Selection)
		if err != nil {
			return err
		}

		portions, err := stocklots.PlanAllocation(req.CommodityID, candidates, req.Quantity)
		if err != nil {
			return err
		}

		mutationID, err := s.mr.InsertMutation(tx, mutation)
		if err != nil {
			return err
		}
		mutation.ID = mutationID

		for _, portion := range portions {
			item := &models.MutationItem{
				MutationID:     mutationID,
				SourceLotID:    portion.Lot.ID,
				Quantity:       portion.Quantity,
				OriginalUnit:   originalUnit,
				ConversionRate: conversionRate,
			}
			itemID, err := s.mr.InsertMutationItem(tx, item)
			if err != nil {
				return err
			}
			item.ID = itemID
			mutation.Items = append(mutation.Items, *item)

			if err := s.lotRepo.AddMutated(tx, portion.Lot.ID, portion.Quantity); err != nil {
				return err
			}

			destLot := &models.StockLot{
				CommodityID:      req.CommodityID,
				ProductionUnitID: req.DestUnitID,
				MutationItemID:   &item.ID,
				QuantityIn:       portion.Quantity,
				EntryDate:        req.MutationDate,
				CreatedBy:        actor,
			}
			if _, err := s.lotRepo.InsertLot(tx, destLot); err != nil {
				return err
			}
		}

		return s.recomputeTouchedBatches(tx, portions)
	})
	if err != nil {
		return nil, err
	}

	return mutation, nil
}

// ReverseMutation undoes a transfer: destination lots are removed and the
// mutated quantity is restored to every source lot. Once any destination
// lot has downstream consumption the mutation is permanently locked.
func (s *MutationService) ReverseMutation(mutationID int64) error {
	return s.runInTx(func(tx *goqu.TxDatabase) error {
		mutation, err := s.mr.GetMutationForUpdate(tx, mutationID)
		if err != nil {
			return err
		}
		if mutation.ReversedAt != nil {
			return fmt.Errorf("mutation %d is already reversed", mutationID)
		}

		destLots, err := s.lotRepo.GetDestinationLotsForUpdate(tx, mutationID)
		if err != nil {
			return err
		}
		for _, lot := range destLots {
			if lot.Touched() {
				return &custom_error.MutationLockedError{MutationID: mutationID, LotID: lot.ID}
			}
		}

		sourcePortions := make([]stocklots.Portion, 0, len(mutation.Items))
		for _, item := range mutation.Items {
			sourceLot, err := s.lotRepo.GetLotForUpdate(tx, item.SourceLotID)
			if err != nil {
				return err
			}
			if err := s.lotRepo.SubMutated(tx, item.SourceLotID, item.Quantity); err != nil {
				return err
			}
			sourcePortions = append(sourcePortions, stocklots.Portion{Lot: sourceLot, Quantity: item.Quantity})
		}

		for _, lot := range destLots {
			if err := s.lotRepo.DeleteLot(tx, lot.ID); err != nil {
				return err
			}
		}

		if err := s.mr.MarkReversed(tx, mutationID); err != nil {
			return err
		}

		return s.recomputeTouchedBatches(tx, sourcePortions)
	})
}

func (s *MutationService) recomputeTouchedBatches(tx *goqu.TxDatabase, portions []stocklots.Portion) error {
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

func (s *MutationService) GetMutation(mutationID int64) (*models.Mutation, error) {
	return s.mr.GetMutation(mutationID)
}

func (s *MutationService) GetMutations(conditions repository.QueryBuilder) (*[]models.Mutation, error) {
	return s.mr.GetMutations(conditions)
}
