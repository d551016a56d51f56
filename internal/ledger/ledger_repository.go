package ledger

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/synard1/ximopet-sub010/internal/repository"
)

// LedgerRepository reads the scattered event rows replay is built from. It
// is strictly read-only; the reconstructor never writes anything back.
type LedgerRepository interface {
	GetInboundRows(commodityID, productionUnitID int64) ([]InboundRow, error)
	GetUsageOutflows(commodityID, productionUnitID int64) ([]OutflowRow, error)
	GetMutationOutflows(commodityID, productionUnitID int64) ([]OutflowRow, error)
}

type ledgerRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) LedgerRepository {
	return &ledgerRepository{repo: r}
}

// GetInboundRows returns the unit's lots for a commodity, earliest entry
// first, each labelled by the purchase or inbound mutation that created it.
func (r *ledgerRepository) GetInboundRows(commodityID, productionUnitID int64) ([]InboundRow, error) {
	var flat []struct {
		ID              int64     `db:"id"`
		CommodityID     int64     `db:"commodity_id"`
		QuantityIn      float64   `db:"quantity_in"`
		QuantityUsed    float64   `db:"quantity_used"`
		QuantityMutated float64   `db:"quantity_mutated"`
		EntryDate       time.Time `db:"entry_date"`
		PurchaseID      *int64    `db:"purchase_id"`
		MutationCode    *string   `db:"mutation_code"`
	}

	err := r.repo.GoquDBWrapper.
		From(goqu.T("stock_lots").As("l")).
		Select(
			goqu.I("l.id").As("id"),
			goqu.I("l.commodity_id").As("commodity_id"),
			goqu.I("l.quantity_in").As("quantity_in"),
			goqu.I("l.quantity_used").As("quantity_used"),
			goqu.I("l.quantity_mutated").As("quantity_mutated"),
			goqu.I("l.entry_date").As("entry_date"),
			goqu.I("l.purchase_id").As("purchase_id"),
			goqu.I("m.trans_code").As("mutation_code"),
		).
		LeftJoin(
			goqu.T("mutation_items").As("mi"),
			goqu.On(goqu.Ex{"mi.id": goqu.I("l.mutation_item_id")}),
		).
		LeftJoin(
			goqu.T("mutations").As("m"),
			goqu.On(goqu.Ex{"m.id": goqu.I("mi.mutation_id")}),
		).
		Where(goqu.Ex{
			"l.commodity_id":       commodityID,
			"l.production_unit_id": productionUnitID,
			"l.deleted_at":         nil,
		}).
		Order(goqu.I("l.entry_date").Asc(), goqu.I("l.id").Asc()).
		Executor().ScanStructs(&flat)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement for inbound lots: %w", err)
	}

	rows := make([]InboundRow, 0, len(flat))
	for _, f := range flat {
		row := InboundRow{}
		row.Lot.ID = f.ID
		row.Lot.CommodityID = f.CommodityID
		row.Lot.ProductionUnitID = productionUnitID
		row.Lot.QuantityIn = f.QuantityIn
		row.Lot.QuantityUsed = f.QuantityUsed
		row.Lot.QuantityMutated = f.QuantityMutated
		row.Lot.EntryDate = f.EntryDate
		row.Lot.PurchaseID = f.PurchaseID

		switch {
		case f.PurchaseID != nil:
			row.SourceCode = fmt.Sprintf("Purchase #%d", *f.PurchaseID)
		case f.MutationCode != nil:
			row.SourceCode = fmt.Sprintf("Mutation in %s", *f.MutationCode)
		default:
			row.SourceCode = fmt.Sprintf("Lot #%d", f.ID)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *ledgerRepository) GetUsageOutflows(commodityID, productionUnitID int64) ([]OutflowRow, error) {
	var flat []struct {
		LotID     int64     `db:"lot_id"`
		Date      time.Time `db:"usage_date"`
		TransCode string    `db:"trans_code"`
		Quantity  float64   `db:"quantity_taken"`
	}

	err := r.repo.GoquDBWrapper.
		From(goqu.T("usage_details").As("d")).
		Select(
			goqu.I("d.stock_lot_id").As("lot_id"),
			goqu.I("u.usage_date").As("usage_date"),
			goqu.I("u.trans_code").As("trans_code"),
			goqu.I("d.quantity_taken").As("quantity_taken"),
		).
		Join(
			goqu.T("usages").As("u"),
			goqu.On(goqu.Ex{"u.id": goqu.I("d.usage_id")}),
		).
		Join(
			goqu.T("stock_lots").As("l"),
			goqu.On(goqu.Ex{"l.id": goqu.I("d.stock_lot_id")}),
		).
		Where(goqu.Ex{
			"l.commodity_id":       commodityID,
			"l.production_unit_id": productionUnitID,
		}).
		Order(goqu.I("u.usage_date").Asc(), goqu.I("d.id").Asc()).
		Executor().ScanStructs(&flat)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement for usage outflows: %w", err)
	}

	rows := make([]OutflowRow, 0, len(flat))
	for _, f := range flat {
		rows = append(rows, OutflowRow{
			LotID:    f.LotID,
			Date:     f.Date,
			Code:     fmt.Sprintf("Usage %s", f.TransCode),
			Quantity: f.Quantity,
		})
	}
	return rows, nil
}

func (r *ledgerRepository) GetMutationOutflows(commodityID, productionUnitID int64) ([]OutflowRow, error) {
	var flat []struct {
		LotID     int64     `db:"lot_id"`
		Date      time.Time `db:"mutation_date"`
		TransCode string    `db:"trans_code"`
		Quantity  float64   `db:"quantity"`
	}

	err := r.repo.GoquDBWrapper.
		From(goqu.T("mutation_items").As("mi")).
		Select(
			goqu.I("mi.source_lot_id").As("lot_id"),
			goqu.I("m.mutation_date").As("mutation_date"),
			goqu.I("m.trans_code").As("trans_code"),
			goqu.I("mi.quantity").As("quantity"),
		).
		Join(
			goqu.T("mutations").As("m"),
			goqu.On(goqu.Ex{"m.id": goqu.I("mi.mutation_id")}),
		).
		Join(
			goqu.T("stock_lots").As("l"),
			goqu.On(goqu.Ex{"l.id": goqu.I("mi.source_lot_id")}),
		).
		Where(goqu.Ex{
			"l.commodity_id":       commodityID,
			"l.production_unit_id": productionUnitID,
			"m.reversed_at":        nil,
		}).
		Order(goqu.I("m.mutation_date").Asc(), goqu.I("mi.id").Asc()).
		Executor().ScanStructs(&flat)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement for mutation outflows: %w", err)
	}

	rows := make([]OutflowRow, 0, len(flat))
	for _, f := range flat {
		rows = append(rows, OutflowRow{
			LotID:    f.LotID,
			Date:     f.Date,
			Code:     fmt.Sprintf("Mutation out %s", f.TransCode),
			Quantity: f.Quantity,
		})
	}
	return rows, nil
}
