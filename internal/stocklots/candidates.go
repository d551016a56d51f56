package stocklots

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/synard1/ximopet-sub010/pkg/models"
)

// SelectCandidatesForUpdate resolves a LotSelection into locked lot rows.
// Explicit and ordered selections are validated against the commodity and
// owning production unit; auto-select falls back to the repository's
// earliest-entry-first ordering.
func SelectCandidatesForUpdate(tx *goqu.TxDatabase, repo LotRepository, commodityID, productionUnitID int64, selection LotSelection) ([]*models.StockLot, error) {
	switch {
	case selection.Explicit():
		lot, err := repo.GetLotForUpdate(tx, *selection.LotID)
		if err != nil {
			return nil, err
		}
		if err := validateCandidate(lot, commodityID, productionUnitID); err != nil {
			return nil, err
		}
		return []*models.StockLot{lot}, nil

	case selection.Ordered():
		lots := make([]*models.StockLot, 0, len(selection.CandidateIDs))
		for _, lotID := range selection.CandidateIDs {
			lot, err := repo.GetLotForUpdate(tx, lotID)
			if err != nil {
				return nil, err
			}
			if err := validateCandidate(lot, commodityID, productionUnitID); err != nil {
				return nil, err
			}
			lots = append(lots, lot)
		}
		return lots, nil

	default:
		return repo.GetCandidateLotsForUpdate(tx, commodityID, productionUnitID)
	}
}

func validateCandidate(lot *models.StockLot, commodityID, productionUnitID int64) error {
	if lot.CommodityID != commodityID {
		return fmt.Errorf("stock lot %d holds commodity %d, not %d", lot.ID, lot.CommodityID, commodityID)
	}
	if lot.ProductionUnitID != productionUnitID {
		return fmt.Errorf("stock lot %d belongs to production unit %d, not %d", lot.ID, lot.ProductionUnitID, productionUnitID)
	}
	return nil
}
