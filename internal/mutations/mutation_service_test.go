package mutations

import (
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/synard1/ximopet-sub010/internal/repository"
	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

type MockMutationRepository struct {
	mock.Mock
}

func (m *MockMutationRepository) InsertMutation(tx *goqu.TxDatabase, mutation *models.Mutation) (int64, error) {
	args := m.Called(tx, mutation)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMutationRepository) InsertMutationItem(tx *goqu.TxDatabase, item *models.MutationItem) (int64, error) {
	args := m.Called(tx, item)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMutationRepository) GetMutation(mutationID int64) (*models.Mutation, error) {
	args := m.Called(mutationID)
	return args.Get(0).(*models.Mutation), args.Error(1)
}

func (m *MockMutationRepository) GetMutationForUpdate(tx *goqu.TxDatabase, mutationID int64) (*models.Mutation, error) {
	args := m.Called(tx, mutationID)
	return args.Get(0).(*models.Mutation), args.Error(1)
}

func (m *MockMutationRepository) GetMutations(conditions repository.QueryBuilder) (*[]models.Mutation, error) {
	args := m.Called(conditions)
	return args.Get(0).(*[]models.Mutation), args.Error(1)
}

func (m *MockMutationRepository) MarkReversed(tx *goqu.TxDatabase, mutationID int64) error {
	args := m.Called(tx, mutationID)
	return args.Error(0)
}

type MockLotRepository struct {
	mock.Mock
}

func (m *MockLotRepository) GetLot(lotID int64) (*models.StockLot, error) {
	args := m.Called(lotID)
	return args.Get(0).(*models.StockLot), args.Error(1)
}

func (m *MockLotRepository) GetLotForUpdate(tx *goqu.TxDatabase, lotID int64) (*models.StockLot, error) {
	args := m.Called(tx, lotID)
	return args.Get(0).(*models.StockLot), args.Error(1)
}

func (m *MockLotRepository) GetCandidateLotsForUpdate(tx *goqu.TxDatabase, commodityID, productionUnitID int64) ([]*models.StockLot, error) {
	args := m.Called(tx, commodityID, productionUnitID)
	return args.Get(0).([]*models.StockLot), args.Error(1)
}

func (m *MockLotRepository) InsertLot(tx *goqu.TxDatabase, lot *models.StockLot) (int64, error) {
	args := m.Called(tx, lot)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLotRepository) AddUsed(tx *goqu.TxDatabase, lotID int64, qty float64) error {
	args := m.Called(tx, lotID, qty)
	return args.Error(0)
}

func (m *MockLotRepository) SubUsed(tx *goqu.TxDatabase, lotID int64, qty float64) error {
	args := m.Called(tx, lotID, qty)
	return args.Error(0)
}

func (m *MockLotRepository) AddMutated(tx *goqu.TxDatabase, lotID int64, qty float64) error {
	args := m.Called(tx, lotID, qty)
	return args.Error(0)
}

func (m *MockLotRepository) SubMutated(tx *goqu.TxDatabase, lotID int64, qty float64) error {
	args := m.Called(tx, lotID, qty)
	return args.Error(0)
}

func (m *MockLotRepository) SetQuantityIn(tx *goqu.TxDatabase, lotID int64, newQty float64) error {
	args := m.Called(tx, lotID, newQty)
	return args.Error(0)
}

func (m *MockLotRepository) DeleteLot(tx *goqu.TxDatabase, lotID int64) error {
	args := m.Called(tx, lotID)
	return args.Error(0)
}

func (m *MockLotRepository) GetLotByPurchaseForUpdate(tx *goqu.TxDatabase, purchaseID int64) (*models.StockLot, error) {
	args := m.Called(tx, purchaseID)
	return args.Get(0).(*models.StockLot), args.Error(1)
}

func (m *MockLotRepository) GetDestinationLotsForUpdate(tx *goqu.TxDatabase, mutationID int64) ([]*models.StockLot, error) {
	args := m.Called(tx, mutationID)
	return args.Get(0).([]*models.StockLot), args.Error(1)
}

func (m *MockLotRepository) BatchHasTouchedLots(tx *goqu.TxDatabase, batchID int64) (bool, error) {
	args := m.Called(tx, batchID)
	return args.Bool(0), args.Error(1)
}

type MockCommodityRepository struct {
	mock.Mock
}

func (m *MockCommodityRepository) GetCommodity(commodityID int64) (*models.Commodity, error) {
	args := m.Called(commodityID)
	return args.Get(0).(*models.Commodity), args.Error(1)
}

func (m *MockCommodityRepository) GetCommodities(conditions repository.QueryBuilder) (*[]models.Commodity, error) {
	args := m.Called(conditions)
	return args.Get(0).(*[]models.Commodity), args.Error(1)
}

func (m *MockCommodityRepository) PersistCommodity(commodity *models.Commodity) (*models.Commodity, error) {
	args := m.Called(commodity)
	return args.Get(0).(*models.Commodity), args.Error(1)
}

type MockBatchResolver struct {
	mock.Mock
}

func (m *MockBatchResolver) GetBatchIDByPurchase(tx *goqu.TxDatabase, purchaseID int64) (int64, error) {
	args := m.Called(tx, purchaseID)
	return args.Get(0).(int64), args.Error(1)
}

type MockAggregator struct {
	mock.Mock
}

func (m *MockAggregator) Recompute(tx *goqu.TxDatabase, batchID int64) error {
	args := m.Called(tx, batchID)
	return args.Error(0)
}

func newTestMutationService(mr MutationRepository, lr *MockLotRepository, cr *MockCommodityRepository, br *MockBatchResolver, agg *MockAggregator, tx *goqu.TxDatabase) *MutationService {
	return &MutationService{
		mr:            mr,
		lotRepo:       lr,
		commodityRepo: cr,
		batches:       br,
		aggregator:    agg,
		runInTx: func(fn func(tx *goqu.TxDatabase) error) error {
			return fn(tx)
		},
	}
}

func sourceLot(id, purchaseID int64, in, used, mutated float64) *models.StockLot {
	return &models.StockLot{
		ID:               id,
		CommodityID:      1,
		ProductionUnitID: 3,
		PurchaseID:       &purchaseID,
		QuantityIn:       in,
		QuantityUsed:     used,
		QuantityMutated:  mutated,
	}
}

func TestRecordMutationCreatesDestinationLots(t *testing.T) {
	mockMr := new(MockMutationRepository)
	mockLots := new(MockLotRepository)
	mockBatches := new(MockBatchResolver)
	mockAgg := new(MockAggregator)
	tx := new(goqu.TxDatabase)

	service := newTestMutationService(mockMr, mockLots, new(MockCommodityRepository), mockBatches, mockAgg, tx)

	lot := sourceLot(7, 42, 500, 120, 0)
	mutationDate := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)

	mockLots.On("GetCandidateLotsForUpdate", tx, int64(1), int64(3)).
		Return([]*models.StockLot{lot}, nil).Once()
	mockMr.On("InsertMutation", tx, mock.AnythingOfType("*models.Mutation")).Return(int64(300), nil).Once()
	mockMr.On("InsertMutationItem", tx, mock.AnythingOfType("*models.MutationItem")).Return(int64(400), nil).Once()
	mockLots.On("AddMutated", tx, int64(7), 100.0).Return(nil).Once()
	mockLots.On("InsertLot", tx, mock.AnythingOfType("*models.StockLot")).Return(int64(9), nil).Once()
	mockBatches.On("GetBatchIDByPurchase", tx, int64(42)).Return(int64(10), nil).Once()
	mockAgg.On("Recompute", tx, int64(10)).Return(nil).Once()

	mutation, err := service.RecordMutation("user-1", MutationRequest{
		SourceUnitID: 3,
		DestUnitID:   4,
		CommodityID:  1,
		MutationDate: mutationDate,
		Quantity:     100,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(300), mutation.ID)
	assert.Len(t, mutation.Items, 1)
	assert.Equal(t, int64(7), mutation.Items[0].SourceLotID)
	assert.Equal(t, 100.0, mutation.Items[0].Quantity)

	destLot := findInsertedLot(mockLots)
	assert.Equal(t, int64(4), destLot.ProductionUnitID)
	assert.Equal(t, 100.0, destLot.QuantityIn)
	assert.Equal(t, int64(400), *destLot.MutationItemID)
	assert.Nil(t, destLot.PurchaseID)
	assert.Equal(t, mutationDate, destLot.EntryDate)

	mockMr.AssertExpectations(t)
	mockLots.AssertExpectations(t)
	mockAgg.AssertExpectations(t)
}

func findInsertedLot(m *MockLotRepository) *models.StockLot {
	for _, call := range m.Calls {
		if call.Method == "InsertLot" {
			return call.Arguments.Get(1).(*models.StockLot)
		}
	}
	return nil
}

func TestRecordMutationKeepsDisplayUnitMetadata(t *testing.T) {
	mockMr := new(MockMutationRepository)
	mockLots := new(MockLotRepository)
	mockCommodities := new(MockCommodityRepository)
	mockBatches := new(MockBatchResolver)
	mockAgg := new(MockAggregator)
	tx := new(goqu.TxDatabase)

	service := newTestMutationService(mockMr, mockLots, mockCommodities, mockBatches, mockAgg, tx)

	commodity := &models.Commodity{
		ID:   1,
		Mode: models.ConversionModeTable,
		Units: []models.UnitConversionEntry{
			{Unit: "sack", Value: 50},
			{Unit: "kg", Value: 1, IsSmallest: true},
		},
	}
	mockCommodities.On("GetCommodity", int64(1)).Return(commodity, nil).Once()

	lot := sourceLot(7, 42, 500, 0, 0)
	mockLots.On("GetCandidateLotsForUpdate", tx, int64(1), int64(3)).
		Return([]*models.StockLot{lot}, nil).Once()
	mockMr.On("InsertMutation", tx, mock.AnythingOfType("*models.Mutation")).Return(int64(300), nil).Once()
	mockMr.On("InsertMutationItem", tx, mock.AnythingOfType("*models.MutationItem")).Return(int64(400), nil).Once()
	mockLots.On("AddMutated", tx, int64(7), 100.0).Return(nil).Once()
	mockLots.On("InsertLot", tx, mock.AnythingOfType("*models.StockLot")).Return(int64(9), nil).Once()
	mockBatches.On("GetBatchIDByPurchase", tx, int64(42)).Return(int64(10), nil).Once()
	mockAgg.On("Recompute", tx, int64(10)).Return(nil).Once()

	mutation, err := service.RecordMutation("user-1", MutationRequest{
		SourceUnitID: 3,
		DestUnitID:   4,
		CommodityID:  1,
		MutationDate: time.Now(),
		Quantity:     100,
		DisplayUnit:  "sack",
	})

	assert.NoError(t, err)
	assert.Equal(t, "sack", *mutation.Items[0].OriginalUnit)
	assert.Equal(t, 50.0, *mutation.Items[0].ConversionRate)
}

func TestRecordMutationRejectsSameUnit(t *testing.T) {
	service := newTestMutationService(new(MockMutationRepository), new(MockLotRepository), new(MockCommodityRepository), new(MockBatchResolver), new(MockAggregator), new(goqu.TxDatabase))

	_, err := service.RecordMutation("user-1", MutationRequest{
		SourceUnitID: 3,
		DestUnitID:   3,
		CommodityID:  1,
		MutationDate: time.Now(),
		Quantity:     100,
	})

	assert.Error(t, err)
}

func TestRecordMutationInsufficientStock(t *testing.T) {
	mockMr := new(MockMutationRepository)
	mockLots := new(MockLotRepository)
	tx := new(goqu.TxDatabase)

	service := newTestMutationService(mockMr, mockLots, new(MockCommodityRepository), new(MockBatchResolver), new(MockAggregator), tx)

	lot := sourceLot(7, 42, 100, 80, 0) // 20 available
	mockLots.On("GetCandidateLotsForUpdate", tx, int64(1), int64(3)).
		Return([]*models.StockLot{lot}, nil).Once()

	_, err := service.RecordMutation("user-1", MutationRequest{
		SourceUnitID: 3,
		DestUnitID:   4,
		CommodityID:  1,
		MutationDate: time.Now(),
		Quantity:     100,
	})

	var insufficient *custom_error.InsufficientStockError
	assert.ErrorAs(t, err, &insufficient)
	mockMr.AssertNotCalled(t, "InsertMutation", mock.Anything, mock.Anything)
	mockLots.AssertNotCalled(t, "AddMutated", mock.Anything, mock.Anything, mock.Anything)
}

func TestReverseMutationRestoresSourceLots(t *testing.T) {
	mockMr := new(MockMutationRepository)
	mockLots := new(MockLotRepository)
	mockBatches := new(MockBatchResolver)
	mockAgg := new(MockAggregator)
	tx := new(goqu.TxDatabase)

	service := newTestMutationService(mockMr, mockLots, new(MockCommodityRepository), mockBatches, mockAgg, tx)

	mutation := &models.Mutation{
		ID: 300,
		Items: []models.MutationItem{
			{ID: 400, MutationID: 300, SourceLotID: 7, Quantity: 100},
		},
	}
	itemID := int64(400)
	destLot := &models.StockLot{ID: 9, CommodityID: 1, ProductionUnitID: 4, MutationItemID: &itemID, QuantityIn: 100}

	mockMr.On("GetMutationForUpdate", tx, int64(300)).Return(mutation, nil).Once()
	mockLots.On("GetDestinationLotsForUpdate", tx, int64(300)).
		Return([]*models.StockLot{destLot}, nil).Once()
	mockLots.On("GetLotForUpdate", tx, int64(7)).Return(sourceLot(7, 42, 500, 0, 100), nil).Once()
	mockLots.On("SubMutated", tx, int64(7), 100.0).Return(nil).Once()
	mockLots.On("DeleteLot", tx, int64(9)).Return(nil).Once()
	mockMr.On("MarkReversed", tx, int64(300)).Return(nil).Once()
	mockBatches.On("GetBatchIDByPurchase", tx, int64(42)).Return(int64(10), nil).Once()
	mockAgg.On("Recompute", tx, int64(10)).Return(nil).Once()

	err := service.ReverseMutation(300)

	assert.NoError(t, err)
	mockMr.AssertExpectations(t)
	mockLots.AssertExpectations(t)
	mockAgg.AssertExpectations(t)
}

func TestReverseMutationLockedByDownstreamConsumption(t *testing.T) {
	mockMr := new(MockMutationRepository)
	mockLots := new(MockLotRepository)
	tx := new(goqu.TxDatabase)

	service := newTestMutationService(mockMr, mockLots, new(MockCommodityRepository), new(MockBatchResolver), new(MockAggregator), tx)

	mutation := &models.Mutation{
		ID: 300,
		Items: []models.MutationItem{
			{ID: 400, MutationID: 300, SourceLotID: 7, Quantity: 100},
		},
	}
	itemID := int64(400)
	destLot := &models.StockLot{ID: 9, MutationItemID: &itemID, QuantityIn: 100, QuantityUsed: 25}

	mockMr.On("GetMutationForUpdate", tx, int64(300)).Return(mutation, nil).Once()
	mockLots.On("GetDestinationLotsForUpdate", tx, int64(300)).
		Return([]*models.StockLot{destLot}, nil).Once()

	err := service.ReverseMutation(300)

	var locked *custom_error.MutationLockedError
	assert.ErrorAs(t, err, &locked)
	assert.Equal(t, int64(300), locked.MutationID)
	assert.Equal(t, int64(9), locked.LotID)
	mockLots.AssertNotCalled(t, "SubMutated", mock.Anything, mock.Anything, mock.Anything)
	mockMr.AssertNotCalled(t, "MarkReversed", mock.Anything, mock.Anything)
}

func TestReverseMutationAlreadyReversed(t *testing.T) {
	mockMr := new(MockMutationRepository)
	mockLots := new(MockLotRepository)
	tx := new(goqu.TxDatabase)

	service := newTestMutationService(mockMr, mockLots, new(MockCommodityRepository), new(MockBatchResolver), new(MockAggregator), tx)

	reversedAt := time.Now()
	mutation := &models.Mutation{ID: 300, ReversedAt: &reversedAt}
	mockMr.On("GetMutationForUpdate", tx, int64(300)).Return(mutation, nil).Once()

	err := service.ReverseMutation(300)

	assert.Error(t, err)
	mockLots.AssertNotCalled(t, "GetDestinationLotsForUpdate", mock.Anything, mock.Anything)
}
