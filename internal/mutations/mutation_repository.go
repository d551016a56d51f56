package mutations

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/synard1/ximopet-sub010/internal/repository"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

type MutationRepository interface {
	InsertMutation(tx *goqu.TxDatabase, mutation *models.Mutation) (int64, error)
	InsertMutationItem(tx *goqu.TxDatabase, item *models.MutationItem) (int64, error)
	GetMutation(mutationID int64) (*models.Mutation, error)
	GetMutationForUpdate(tx *goqu.TxDatabase, mutationID int64) (*models.Mutation, error)
	GetMutations(conditions repository.QueryBuilder) (*[]models.Mutation, error)
	MarkReversed(tx *goqu.TxDatabase, mutationID int64) error
}

type mutationRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) MutationRepository {
	return &mutationRepository{repo: r}
}

var mutationColumns = []interface{}{
	"id", "trans_code", "source_unit_id", "dest_unit_id", "commodity_id",
	"mutation_date", "type", "created_by", "created_at", "reversed_at",
}

func (r *mutationRepository) InsertMutation(tx *goqu.TxDatabase, mutation *models.Mutation) (int64, error) {
	var id int64
	query := tx.Insert("mutations").
		Rows(goqu.Record{
			"trans_code":     mutation.TransCode,
			"source_unit_id": mutation.SourceUnitID,
			"dest_unit_id":   mutation.DestUnitID,
			"commodity_id":   mutation.CommodityID,
			"mutation_date":  mutation.MutationDate,
			"type":           mutation.Type,
			"created_by":     mutation.CreatedBy,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&id); err != nil {
		return 0, fmt.Errorf("failed to insert mutation record: %w", err)
	}
	return id, nil
}

func (r *mutationRepository) InsertMutationItem(tx *goqu.TxDatabase, item *models.MutationItem) (int64, error) {
	var id int64
	query := tx.Insert("mutation_items").
		Rows(goqu.Record{
			"mutation_id":     item.MutationID,
			"source_lot_id":   item.SourceLotID,
			"quantity":        item.Quantity,
			"original_unit":   item.OriginalUnit,
			"conversion_rate": item.ConversionRate,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&id); err != nil {
		return 0, fmt.Errorf("failed to insert mutation item record: %w", err)
	}
	return id, nil
}

func (r *mutationRepository) GetMutation(mutationID int64) (*models.Mutation, error) {
	var mutation models.Mutation
	found, err := r.repo.GoquDBWrapper.From("mutations").
		Select(mutationColumns...).
		Where(goqu.Ex{"id": mutationID}).
		Executor().ScanStruct(&mutation)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("mutation %d not found", mutationID)
	}

	if err := r.loadItems(&mutation, r.repo.GoquDBWrapper.From("mutation_items")); err != nil {
		return nil, err
	}
	return &mutation, nil
}

func (r *mutationRepository) GetMutationForUpdate(tx *goqu.TxDatabase, mutationID int64) (*models.Mutation, error) {
	var mutation models.Mutation
	found, err := tx.From("mutations").
		Select(mutationColumns...).
		Where(goqu.Ex{"id": mutationID}).
		ForUpdate(exp.Wait).
		Executor().ScanStruct(&mutation)
	if err != nil {
		return nil, fmt.Errorf("failed to lock mutation %d: %w", mutationID, err)
	}
	if !found {
		return nil, fmt.Errorf("mutation %d not found", mutationID)
	}

	if err := r.loadItems(&mutation, tx.From("mutation_items")); err != nil {
		return nil, err
	}
	return &mutation, nil
}

func (r *mutationRepository) loadItems(mutation *models.Mutation, dataset *goqu.SelectDataset) error {
	err := dataset.
		Select("id", "mutation_id", "source_lot_id", "quantity", "original_unit", "conversion_rate").
		Where(goqu.Ex{"mutation_id": mutation.ID}).
		Order(goqu.C("id").Asc()).
		Executor().ScanStructs(&mutation.Items)
	if err != nil {
		return fmt.Errorf("failed to load items for mutation %d: %w", mutation.ID, err)
	}
	return nil
}

func (r *mutationRepository) GetMutations(conditions repository.QueryBuilder) (*[]models.Mutation, error) {
	var mutations []models.Mutation
	err := r.repo.GoquDBWrapper.From("mutations").
		Select(mutationColumns...).
		Where(conditions.BuildConditions(map[string]string{})).
		Order(goqu.C("mutation_date").Desc(), goqu.C("id").Desc()).
		Executor().ScanStructs(&mutations)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	return &mutations, nil
}

func (r *mutationRepository) MarkReversed(tx *goqu.TxDatabase, mutationID int64) error {
	_, err := tx.Update("mutations").
		Set(goqu.Record{"reversed_at": goqu.L("NOW()")}).
		Where(goqu.Ex{"id": mutationID, "reversed_at": nil}).
		Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to mark mutation %d reversed: %w", mutationID, err)
	}
	return nil
}
