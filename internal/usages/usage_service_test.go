package usages

import (
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/synard1/ximopet-sub010/internal/repository"
	"github.com/synard1/ximopet-sub010/internal/stocklots"
	custom_error "github.com/synard1/ximopet-sub010/pkg/errors"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

type MockUsageRepository struct {
	mock.Mock
}

func (m *MockUsageRepository) InsertUsage(tx *goqu.TxDatabase, usage *models.Usage) (int64, error) {
	args := m.Called(tx, usage)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsageRepository) InsertUsageDetail(tx *goqu.TxDatabase, detail *models.UsageDetail) (int64, error) {
	args := m.Called(tx, detail)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsageRepository) GetUsage(usageID int64) (*models.Usage, error) {
	args := m.Called(usageID)
	return args.Get(0).(*models.Usage), args.Error(1)
}

func (m *MockUsageRepository) GetUsageForUpdate(tx *goqu.TxDatabase, usageID int64) (*models.Usage, error) {
	args := m.Called(tx, usageID)
	return args.Get(0).(*models.Usage), args.Error(1)
}

func (m *MockUsageRepository) GetUsages(conditions repository.QueryBuilder) (*[]models.Usage, error) {
	args := m.Called(conditions)
	return args.Get(0).(*[]models.Usage), args.Error(1)
}

func (m *MockUsageRepository) DeleteUsage(tx *goqu.TxDatabase, usageID int64) error {
	args := m.Called(tx, usageID)
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

func newTestUsageService(ur UsageRepository, lr *MockLotRepository, br *MockBatchResolver, agg *MockAggregator, tx *goqu.TxDatabase) *UsageService {
	return &UsageService{
		ur:         ur,
		lotRepo:    lr,
		batches:    br,
		aggregator: agg,
		runInTx: func(fn func(tx *goqu.TxDatabase) error) error {
			return fn(tx)
		},
	}
}

func purchaseLot(id, purchaseID int64, in, used, mutated float64) *models.StockLot {
	return &models.StockLot{
		ID:              id,
		CommodityID:     1,
		PurchaseID:      &purchaseID,
		QuantityIn:      in,
		QuantityUsed:    used,
		QuantityMutated: mutated,
	}
}

func TestRecordUsageDeductsFromSingleLot(t *testing.T) {
	mockUr := new(MockUsageRepository)
	mockLots := new(MockLotRepository)
	mockBatches := new(MockBatchResolver)
	mockAgg := new(MockAggregator)
	tx := new(goqu.TxDatabase)

	service := newTestUsageService(mockUr, mockLots, mockBatches, mockAgg, tx)

	lot := purchaseLot(7, 42, 500, 0, 0)
	mockLots.On("GetCandidateLotsForUpdate", tx, int64(1), int64(3)).
		Return([]*models.StockLot{lot}, nil).Once()
	mockUr.On("InsertUsage", tx, mock.AnythingOfType("*models.Usage")).Return(int64(100), nil).Once()
	mockUr.On("InsertUsageDetail", tx, mock.AnythingOfType("*models.UsageDetail")).Return(int64(200), nil).Once()
	mockLots.On("AddUsed", tx, int64(7), 120.0).Return(nil).Once()
	mockBatches.On("GetBatchIDByPurchase", tx, int64(42)).Return(int64(10), nil).Once()
	mockAgg.On("Recompute", tx, int64(10)).Return(nil).Once()

	usage, err := service.RecordUsage("user-1", 3, 1, time.Now(), 120, stocklots.LotSelection{})

	assert.NoError(t, err)
	assert.Equal(t, int64(100), usage.ID)
	assert.Len(t, usage.Details, 1)
	assert.Equal(t, int64(7), usage.Details[0].StockLotID)
	assert.Equal(t, 120.0, usage.Details[0].QuantityTaken)
	mockUr.AssertExpectations(t)
	mockLots.AssertExpectations(t)
	mockAgg.AssertExpectations(t)
}

func TestRecordUsageSpansLotsOldestFirst(t *testing.T) {
	mockUr := new(MockUsageRepository)
	mockLots := new(MockLotRepository)
	mockBatches := new(MockBatchResolver)
	mockAgg := new(MockAggregator)
	tx := new(goqu.TxDatabase)

	service := newTestUsageService(mockUr, mockLots, mockBatches, mockAgg, tx)

	first := purchaseLot(7, 42, 100, 70, 0) // 30 available
	second := purchaseLot(8, 43, 200, 0, 0) // 200 available
	mockLots.On("GetCandidateLotsForUpdate", tx, int64(1), int64(3)).
		Return([]*models.StockLot{first, second}, nil).Once()
	mockUr.On("InsertUsage", tx, mock.AnythingOfType("*models.Usage")).Return(int64(100), nil).Once()
	mockUr.On("InsertUsageDetail", tx, mock.AnythingOfType("*models.UsageDetail")).Return(int64(200), nil).Twice()
	mockLots.On("AddUsed", tx, int64(7), 30.0).Return(nil).Once()
	mockLots.On("AddUsed", tx, int64(8), 20.0).Return(nil).Once()
	mockBatches.On("GetBatchIDByPurchase", tx, int64(42)).Return(int64(10), nil).Once()
	mockBatches.On("GetBatchIDByPurchase", tx, int64(43)).Return(int64(11), nil).Once()
	mockAgg.On("Recompute", tx, int64(10)).Return(nil).Once()
	mockAgg.On("Recompute", tx, int64(11)).Return(nil).Once()

	usage, err := service.RecordUsage("user-1", 3, 1, time.Now(), 50, stocklots.LotSelection{})

	assert.NoError(t, err)
	assert.Len(t, usage.Details, 2)
	assert.Equal(t, 30.0, usage.Details[0].QuantityTaken)
	assert.Equal(t, 20.0, usage.Details[1].QuantityTaken)
	mockLots.AssertExpectations(t)
	mockAgg.AssertExpectations(t)
}

func TestRecordUsageInsufficientStockRollsBack(t *testing.T) {
	mockUr := new(MockUsageRepository)
	mockLots := new(MockLotRepository)
	tx := new(goqu.TxDatabase)

	service := newTestUsageService(mockUr, mockLots, new(MockBatchResolver), new(MockAggregator), tx)

	lot := purchaseLot(7, 42, 500, 120, 0) // 380 available
	mockLots.On("GetCandidateLotsForUpdate", tx, int64(1), int64(3)).
		Return([]*models.StockLot{lot}, nil).Once()

	_, err := service.RecordUsage("user-1", 3, 1, time.Now(), 500, stocklots.LotSelection{})

	var insufficient *custom_error.InsufficientStockError
	assert.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 500.0, insufficient.Requested)
	assert.Equal(t, 380.0, insufficient.Available)
	mockUr.AssertNotCalled(t, "InsertUsage", mock.Anything, mock.Anything)
	mockLots.AssertNotCalled(t, "AddUsed", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordUsageExplicitLotOnly(t *testing.T) {
	mockUr := new(MockUsageRepository)
	mockLots := new(MockLotRepository)
	mockBatches := new(MockBatchResolver)
	mockAgg := new(MockAggregator)
	tx := new(goqu.TxDatabase)

	service := newTestUsageService(mockUr, mockLots, mockBatches, mockAgg, tx)

	lot := purchaseLot(8, 43, 200, 0, 0)
	lot.ProductionUnitID = 3
	lotID := int64(8)

	mockLots.On("GetLotForUpdate", tx, int64(8)).Return(lot, nil).Once()
	mockUr.On("InsertUsage", tx, mock.AnythingOfType("*models.Usage")).Return(int64(100), nil).Once()
	mockUr.On("InsertUsageDetail", tx, mock.AnythingOfType("*models.UsageDetail")).Return(int64(200), nil).Once()
	mockLots.On("AddUsed", tx, int64(8), 50.0).Return(nil).Once()
	mockBatches.On("GetBatchIDByPurchase", tx, int64(43)).Return(int64(11), nil).Once()
	mockAgg.On("Recompute", tx, int64(11)).Return(nil).Once()

	usage, err := service.RecordUsage("user-1", 3, 1, time.Now(), 50, stocklots.LotSelection{LotID: &lotID})

	assert.NoError(t, err)
	assert.Len(t, usage.Details, 1)
	mockLots.AssertNotCalled(t, "GetCandidateLotsForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordUsageRejectsNonPositiveQuantity(t *testing.T) {
	service := newTestUsageService(new(MockUsageRepository), new(MockLotRepository), new(MockBatchResolver), new(MockAggregator), new(goqu.TxDatabase))

	_, err := service.RecordUsage("user-1", 3, 1, time.Now(), 0, stocklots.LotSelection{})

	assert.Error(t, err)
}

func TestRecordUsageSkipsRecomputeForMutationDerivedLots(t *testing.T) {
	mockUr := new(MockUsageRepository)
	mockLots := new(MockLotRepository)
	mockBatches := new(MockBatchResolver)
	mockAgg := new(MockAggregator)
	tx := new(goqu.TxDatabase)

	service := newTestUsageService(mockUr, mockLots, mockBatches, mockAgg, tx)

	itemID := int64(5)
	lot := &models.StockLot{ID: 9, CommodityID: 1, MutationItemID: &itemID, QuantityIn: 100}
	mockLots.On("GetCandidateLotsForUpdate", tx, int64(1), int64(4)).
		Return([]*models.StockLot{lot}, nil).Once()
	mockUr.On("InsertUsage", tx, mock.AnythingOfType("*models.Usage")).Return(int64(100), nil).Once()
	mockUr.On("InsertUsageDetail", tx, mock.AnythingOfType("*models.UsageDetail")).Return(int64(200), nil).Once()
	mockLots.On("AddUsed", tx, int64(9), 40.0).Return(nil).Once()

	_, err := service.RecordUsage("user-1", 4, 1, time.Now(), 40, stocklots.LotSelection{})

	assert.NoError(t, err)
	mockBatches.AssertNotCalled(t, "GetBatchIDByPurchase", mock.Anything, mock.Anything)
	mockAgg.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestRecordUsageRecomputesEachBatchOnce(t *testing.T) {
	mockUr := new(MockUsageRepository)
	mockLots := new(MockLotRepository)
	mockBatches := new(MockBatchResolver)
	mockAgg := new(MockAggregator)
	tx := new(goqu.TxDatabase)

	service := newTestUsageService(mockUr, mockLots, mockBatches, mockAgg, tx)

	// two lots from different purchase lines of the same batch
	first := purchaseLot(7, 42, 100, 90, 0)
	second := purchaseLot(8, 43, 200, 0, 0)
	mockLots.On("GetCandidateLotsForUpdate", tx, int64(1), int64(3)).
		Return([]*models.StockLot{first, second}, nil).Once()
	mockUr.On("InsertUsage", tx, mock.AnythingOfType("*models.Usage")).Return(int64(100), nil).Once()
	mockUr.On("InsertUsageDetail", tx, mock.AnythingOfType("*models.UsageDetail")).Return(int64(200), nil).Twice()
	mockLots.On("AddUsed", tx, int64(7), 10.0).Return(nil).Once()
	mockLots.On("AddUsed", tx, int64(8), 40.0).Return(nil).Once()
	mockBatches.On("GetBatchIDByPurchase", tx, int64(42)).Return(int64(10), nil).Once()
	mockBatches.On("GetBatchIDByPurchase", tx, int64(43)).Return(int64(10), nil).Once()
	mockAgg.On("Recompute", tx, int64(10)).Return(nil).Once()

	_, err := service.RecordUsage("user-1", 3, 1, time.Now(), 50, stocklots.LotSelection{})

	assert.NoError(t, err)
	mockAgg.AssertNumberOfCalls(t, "Recompute", 1)
}

func TestDeleteUsageRestoresLots(t *testing.T) {
	mockUr := new(MockUsageRepository)
	mockLots := new(MockLotRepository)
	mockBatches := new(MockBatchResolver)
	mockAgg := new(MockAggregator)
	tx := new(goqu.TxDatabase)

	service := newTestUsageService(mockUr, mockLots, mockBatches, mockAgg, tx)

	usage := &models.Usage{
		ID: 100,
		Details: []models.UsageDetail{
			{ID: 200, UsageID: 100, StockLotID: 7, QuantityTaken: 30},
			{ID: 201, UsageID: 100, StockLotID: 8, QuantityTaken: 20},
		},
	}
	mockUr.On("GetUsageForUpdate", tx, int64(100)).Return(usage, nil).Once()
	mockLots.On("GetLotForUpdate", tx, int64(7)).Return(purchaseLot(7, 42, 100, 30, 0), nil).Once()
	mockLots.On("GetLotForUpdate", tx, int64(8)).Return(purchaseLot(8, 43, 200, 20, 0), nil).Once()
	mockLots.On("SubUsed", tx, int64(7), 30.0).Return(nil).Once()
	mockLots.On("SubUsed", tx, int64(8), 20.0).Return(nil).Once()
	mockUr.On("DeleteUsage", tx, int64(100)).Return(nil).Once()
	mockBatches.On("GetBatchIDByPurchase", tx, int64(42)).Return(int64(10), nil).Once()
	mockBatches.On("GetBatchIDByPurchase", tx, int64(43)).Return(int64(11), nil).Once()
	mockAgg.On("Recompute", tx, int64(10)).Return(nil).Once()
	mockAgg.On("Recompute", tx, int64(11)).Return(nil).Once()

	err := service.DeleteUsage(100)

	assert.NoError(t, err)
	mockUr.AssertExpectations(t)
	mockLots.AssertExpectations(t)
	mockAgg.AssertExpectations(t)
}
