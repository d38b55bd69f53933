package allocation

import (
	"context"
	"errors"
	"testing"

	ledgerapp "github.com/fieldops/stockledger/internal/application/ledger"
	"github.com/fieldops/stockledger/internal/domain/allocation"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockAllocationRepository is a mock implementation of allocation.Repository
type MockAllocationRepository struct {
	mock.Mock
}

func (m *MockAllocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*allocation.Allocation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*allocation.Allocation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]allocation.Allocation, error) {
	args := m.Called(ctx, projectID, filter)
	return args.Get(0).([]allocation.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) FindByVisit(ctx context.Context, visitID uuid.UUID, filter shared.Filter) ([]allocation.Allocation, error) {
	args := m.Called(ctx, visitID, filter)
	return args.Get(0).([]allocation.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) FindNeedingRelink(ctx context.Context, filter shared.Filter) ([]allocation.Allocation, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]allocation.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) Save(ctx context.Context, a *allocation.Allocation) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAllocationRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockConsumptionRepository is a mock implementation of allocation.ConsumptionRepository
type MockConsumptionRepository struct {
	mock.Mock
}

func (m *MockConsumptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*allocation.Consumption, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Consumption), args.Error(1)
}

func (m *MockConsumptionRepository) FindByAllocation(ctx context.Context, allocationID uuid.UUID) ([]allocation.Consumption, error) {
	args := m.Called(ctx, allocationID)
	return args.Get(0).([]allocation.Consumption), args.Error(1)
}

func (m *MockConsumptionRepository) FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]allocation.Consumption, error) {
	args := m.Called(ctx, projectID, filter)
	return args.Get(0).([]allocation.Consumption), args.Error(1)
}

func (m *MockConsumptionRepository) SumByAllocation(ctx context.Context, allocationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, allocationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockConsumptionRepository) Create(ctx context.Context, c *allocation.Consumption) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

// MockCatalogResolver is a mock implementation of allocation.CatalogResolver
type MockCatalogResolver struct {
	mock.Mock
}

func (m *MockCatalogResolver) Resolve(ctx context.Context, itemID uuid.UUID) (*allocation.CatalogItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.CatalogItem), args.Error(1)
}

// MockRequirementRecorder is a mock implementation of allocation.RequirementRecorder
type MockRequirementRecorder struct {
	mock.Mock
}

func (m *MockRequirementRecorder) RecordRequirement(ctx context.Context, projectID, itemID uuid.UUID, qty int64) error {
	args := m.Called(ctx, projectID, itemID, qty)
	return args.Error(0)
}

// MockStockWriter is a mock implementation of StockWriter
type MockStockWriter struct {
	mock.Mock
}

func (m *MockStockWriter) RecordMovement(ctx context.Context, req ledgerapp.RecordMovementRequest, actor shared.Actor) (*ledgerapp.RecordMovementResponse, error) {
	args := m.Called(ctx, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.RecordMovementResponse), args.Error(1)
}

type fixture struct {
	allocationRepo  *MockAllocationRepository
	consumptionRepo *MockConsumptionRepository
	catalogResolver *MockCatalogResolver
	stockWriter     *MockStockWriter
	service         *AllocationService
}

func newFixture() *fixture {
	allocationRepo := new(MockAllocationRepository)
	consumptionRepo := new(MockConsumptionRepository)
	catalogResolver := new(MockCatalogResolver)
	stockWriter := new(MockStockWriter)
	txScope := NewNoOpTransactionScope(allocationRepo, consumptionRepo, stockWriter)
	service := NewAllocationService(allocationRepo, consumptionRepo, catalogResolver, txScope, zap.NewNop())
	return &fixture{
		allocationRepo:  allocationRepo,
		consumptionRepo: consumptionRepo,
		catalogResolver: catalogResolver,
		stockWriter:     stockWriter,
		service:         service,
	}
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

func testActor() shared.Actor {
	return shared.Actor{ID: uuid.New(), Email: "tech@example.com", Name: "Field Tech"}
}

func TestCreateAllocation(t *testing.T) {
	ctx := context.Background()
	projectID := uuidPtr(uuid.New())

	t.Run("resolvable item gets the catalog label", func(t *testing.T) {
		f := newFixture()
		itemID := uuid.New()
		f.catalogResolver.On("Resolve", ctx, itemID).Return(&allocation.CatalogItem{ID: itemID, Name: "M8 anchor bolt"}, nil)
		f.allocationRepo.On("Save", ctx, mock.AnythingOfType("*allocation.Allocation")).Return(nil)

		resp, err := f.service.CreateAllocation(ctx, CreateAllocationRequest{
			ProjectID: projectID,
			ItemID:    &itemID,
			Qty:       10,
		})
		require.NoError(t, err)
		assert.Equal(t, "M8 anchor bolt", resp.ItemName)
		assert.False(t, resp.NeedsRelink)
		assert.Equal(t, int64(10), resp.QtyRemaining)
	})

	t.Run("unresolvable item is flagged, not refused", func(t *testing.T) {
		f := newFixture()
		itemID := uuid.New()
		f.catalogResolver.On("Resolve", ctx, itemID).Return(nil, shared.ErrNotFound)
		f.allocationRepo.On("Save", ctx, mock.AnythingOfType("*allocation.Allocation")).Return(nil)

		resp, err := f.service.CreateAllocation(ctx, CreateAllocationRequest{
			ProjectID: projectID,
			ItemID:    &itemID,
			Qty:       5,
		})
		require.NoError(t, err)
		assert.True(t, resp.NeedsRelink)
		assert.Equal(t, allocation.PlaceholderItemName, resp.ItemName)
	})

	t.Run("catalog outage degrades the same way", func(t *testing.T) {
		f := newFixture()
		itemID := uuid.New()
		f.catalogResolver.On("Resolve", ctx, itemID).Return(nil, errors.New("catalog unreachable"))
		f.allocationRepo.On("Save", ctx, mock.AnythingOfType("*allocation.Allocation")).Return(nil)

		resp, err := f.service.CreateAllocation(ctx, CreateAllocationRequest{
			ProjectID: projectID,
			ItemID:    &itemID,
			Qty:       5,
		})
		require.NoError(t, err)
		assert.True(t, resp.NeedsRelink)
	})

	t.Run("nil item skips the catalog entirely", func(t *testing.T) {
		f := newFixture()
		f.allocationRepo.On("Save", ctx, mock.AnythingOfType("*allocation.Allocation")).Return(nil)

		resp, err := f.service.CreateAllocation(ctx, CreateAllocationRequest{
			ProjectID: projectID,
			Qty:       5,
		})
		require.NoError(t, err)
		assert.True(t, resp.NeedsRelink)
		f.catalogResolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	})

	t.Run("missing project and visit is refused", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.CreateAllocation(ctx, CreateAllocationRequest{Qty: 5})
		require.Error(t, err)
		f.allocationRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestRecordConsumption(t *testing.T) {
	ctx := context.Background()
	actor := testActor()
	projectID := uuidPtr(uuid.New())
	itemID := uuid.New()
	vanID := uuidPtr(uuid.New())

	newAlloc := func(t *testing.T, qty int64) *allocation.Allocation {
		a, err := allocation.NewAllocation(projectID, nil, uuidPtr(itemID), "cable tie", qty, vanID, allocation.LabelSourceCatalogLookup)
		require.NoError(t, err)
		return a
	}

	movementOK := func(f *fixture) {
		f.stockWriter.On("RecordMovement", ctx, mock.MatchedBy(func(req ledgerapp.RecordMovementRequest) bool {
			return req.Reason == "job_usage" && req.FromLocationID != nil && *req.FromLocationID == *vanID
		}), actor).Return(&ledgerapp.RecordMovementResponse{
			Movement: ledgerapp.MovementResponse{ID: uuid.New(), Quantity: 0},
		}, nil)
	}

	t.Run("consumption against allocation writes one movement", func(t *testing.T) {
		f := newFixture()
		alloc := newAlloc(t, 10)

		f.allocationRepo.On("FindByIDForUpdate", ctx, alloc.ID).Return(alloc, nil)
		f.consumptionRepo.On("SumByAllocation", ctx, alloc.ID).Return(int64(0), nil)
		movementOK(f)
		f.consumptionRepo.On("Create", ctx, mock.AnythingOfType("*allocation.Consumption")).Return(nil)

		resp, err := f.service.RecordConsumption(ctx, RecordConsumptionRequest{
			AllocationID: &alloc.ID,
			ItemID:       itemID,
			Qty:          4,
		}, actor)
		require.NoError(t, err)
		assert.NotNil(t, resp.MovementID)
		assert.Equal(t, *projectID, *resp.ProjectID)
		assert.Equal(t, *vanID, *resp.ConsumedFromLocationID)
		f.stockWriter.AssertNumberOfCalls(t, "RecordMovement", 1)
		// Allocation still open, no status write.
		f.allocationRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("over-consumption is capped when a reservation exists", func(t *testing.T) {
		f := newFixture()
		alloc := newAlloc(t, 10)

		f.allocationRepo.On("FindByIDForUpdate", ctx, alloc.ID).Return(alloc, nil)
		f.consumptionRepo.On("SumByAllocation", ctx, alloc.ID).Return(int64(7), nil)

		_, err := f.service.RecordConsumption(ctx, RecordConsumptionRequest{
			AllocationID: &alloc.ID,
			ItemID:       itemID,
			Qty:          4,
		}, actor)
		require.ErrorIs(t, err, shared.ErrOverConsumption)
		f.stockWriter.AssertNotCalled(t, "RecordMovement", mock.Anything, mock.Anything, mock.Anything)
		f.consumptionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("reaching the allocated quantity closes the allocation", func(t *testing.T) {
		f := newFixture()
		alloc := newAlloc(t, 10)

		f.allocationRepo.On("FindByIDForUpdate", ctx, alloc.ID).Return(alloc, nil)
		f.consumptionRepo.On("SumByAllocation", ctx, alloc.ID).Return(int64(6), nil)
		movementOK(f)
		f.consumptionRepo.On("Create", ctx, mock.AnythingOfType("*allocation.Consumption")).Return(nil)
		f.allocationRepo.On("Save", ctx, mock.MatchedBy(func(a *allocation.Allocation) bool {
			return a.Status == allocation.StatusConsumed
		})).Return(nil)

		_, err := f.service.RecordConsumption(ctx, RecordConsumptionRequest{
			AllocationID: &alloc.ID,
			ItemID:       itemID,
			Qty:          4,
		}, actor)
		require.NoError(t, err)
		f.allocationRepo.AssertExpectations(t)
	})

	t.Run("ad-hoc consumption without reservation has no cap", func(t *testing.T) {
		f := newFixture()
		movementOK(f)
		f.consumptionRepo.On("Create", ctx, mock.AnythingOfType("*allocation.Consumption")).Return(nil)

		resp, err := f.service.RecordConsumption(ctx, RecordConsumptionRequest{
			ProjectID:              projectID,
			ItemID:                 itemID,
			Qty:                    50,
			ConsumedFromLocationID: vanID,
		}, actor)
		require.NoError(t, err)
		assert.Nil(t, resp.AllocationID)
		f.allocationRepo.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("no resolvable source skips the ledger", func(t *testing.T) {
		f := newFixture()
		f.consumptionRepo.On("Create", ctx, mock.AnythingOfType("*allocation.Consumption")).Return(nil)

		resp, err := f.service.RecordConsumption(ctx, RecordConsumptionRequest{
			ProjectID: projectID,
			ItemID:    itemID,
			Qty:       3,
		}, actor)
		require.NoError(t, err)
		assert.Nil(t, resp.MovementID)
		f.stockWriter.AssertNotCalled(t, "RecordMovement", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("insufficient stock fails before the consumption is stored", func(t *testing.T) {
		f := newFixture()
		f.stockWriter.On("RecordMovement", ctx, mock.Anything, actor).Return(nil, shared.ErrInsufficientStock)

		_, err := f.service.RecordConsumption(ctx, RecordConsumptionRequest{
			ProjectID:              projectID,
			ItemID:                 itemID,
			Qty:                    3,
			ConsumedFromLocationID: vanID,
		}, actor)
		require.ErrorIs(t, err, shared.ErrInsufficientStock)
		f.consumptionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCancelAllocation(t *testing.T) {
	ctx := context.Background()
	projectID := uuidPtr(uuid.New())

	t.Run("open reservation cancels without a ledger write", func(t *testing.T) {
		f := newFixture()
		alloc, err := allocation.NewAllocation(projectID, nil, uuidPtr(uuid.New()), "bolt", 5, nil, allocation.LabelSourceCatalogLookup)
		require.NoError(t, err)

		f.allocationRepo.On("FindByID", ctx, alloc.ID).Return(alloc, nil)
		f.allocationRepo.On("Save", ctx, alloc).Return(nil)
		f.consumptionRepo.On("SumByAllocation", ctx, alloc.ID).Return(int64(0), nil)

		resp, err := f.service.CancelAllocation(ctx, alloc.ID)
		require.NoError(t, err)
		assert.Equal(t, "cancelled", resp.Status)
		f.stockWriter.AssertNotCalled(t, "RecordMovement", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("closed allocation cannot cancel", func(t *testing.T) {
		f := newFixture()
		alloc, err := allocation.NewAllocation(projectID, nil, uuidPtr(uuid.New()), "bolt", 5, nil, allocation.LabelSourceCatalogLookup)
		require.NoError(t, err)
		alloc.MarkConsumed()

		f.allocationRepo.On("FindByID", ctx, alloc.ID).Return(alloc, nil)

		_, err = f.service.CancelAllocation(ctx, alloc.ID)
		require.Error(t, err)
		f.allocationRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestRelinkAllocation(t *testing.T) {
	ctx := context.Background()
	projectID := uuidPtr(uuid.New())

	newOrphan := func(t *testing.T) *allocation.Allocation {
		a, err := allocation.NewAllocation(projectID, nil, nil, "", 5, nil, allocation.LabelSourceCatalogLookup)
		require.NoError(t, err)
		return a
	}

	t.Run("relink repairs the label and clears the flag", func(t *testing.T) {
		f := newFixture()
		alloc := newOrphan(t)
		itemID := uuid.New()

		f.allocationRepo.On("FindByID", ctx, alloc.ID).Return(alloc, nil)
		f.allocationRepo.On("Save", ctx, alloc).Return(nil)
		f.consumptionRepo.On("SumByAllocation", ctx, alloc.ID).Return(int64(0), nil)

		resp, err := f.service.RelinkAllocation(ctx, alloc.ID, RelinkAllocationRequest{
			ItemID:   itemID,
			ItemName: "RJ45 connector",
		})
		require.NoError(t, err)
		assert.False(t, resp.NeedsRelink)
		assert.Equal(t, "RJ45 connector", resp.ItemName)
		assert.Equal(t, string(allocation.LabelSourceManualRelink), resp.LabelSource)
	})

	t.Run("requirement line is recorded when asked", func(t *testing.T) {
		f := newFixture()
		recorder := new(MockRequirementRecorder)
		f.service.SetRequirementRecorder(recorder)
		alloc := newOrphan(t)
		itemID := uuid.New()

		f.allocationRepo.On("FindByID", ctx, alloc.ID).Return(alloc, nil)
		f.allocationRepo.On("Save", ctx, alloc).Return(nil)
		f.consumptionRepo.On("SumByAllocation", ctx, alloc.ID).Return(int64(0), nil)
		recorder.On("RecordRequirement", ctx, *projectID, itemID, int64(5)).Return(nil)

		_, err := f.service.RelinkAllocation(ctx, alloc.ID, RelinkAllocationRequest{
			ItemID:            itemID,
			ItemName:          "RJ45 connector",
			RecordRequirement: true,
		})
		require.NoError(t, err)
		recorder.AssertExpectations(t)
	})

	t.Run("requirement failure does not undo the repair", func(t *testing.T) {
		f := newFixture()
		recorder := new(MockRequirementRecorder)
		f.service.SetRequirementRecorder(recorder)
		alloc := newOrphan(t)
		itemID := uuid.New()

		f.allocationRepo.On("FindByID", ctx, alloc.ID).Return(alloc, nil)
		f.allocationRepo.On("Save", ctx, alloc).Return(nil)
		f.consumptionRepo.On("SumByAllocation", ctx, alloc.ID).Return(int64(0), nil)
		recorder.On("RecordRequirement", ctx, *projectID, itemID, int64(5)).Return(errors.New("requirements service down"))

		resp, err := f.service.RelinkAllocation(ctx, alloc.ID, RelinkAllocationRequest{
			ItemID:            itemID,
			ItemName:          "RJ45 connector",
			RecordRequirement: true,
		})
		require.NoError(t, err)
		assert.False(t, resp.NeedsRelink)
	})
}

func TestFindOrphanAllocations(t *testing.T) {
	ctx := context.Background()
	projectID := uuidPtr(uuid.New())

	t.Run("lists flagged allocations with consumed totals", func(t *testing.T) {
		f := newFixture()
		orphan, err := allocation.NewAllocation(projectID, nil, nil, "", 5, nil, allocation.LabelSourceCatalogLookup)
		require.NoError(t, err)

		f.allocationRepo.On("FindNeedingRelink", ctx, mock.AnythingOfType("shared.Filter")).
			Return([]allocation.Allocation{*orphan}, nil)
		f.consumptionRepo.On("SumByAllocation", ctx, orphan.ID).Return(int64(2), nil)

		responses, err := f.service.FindOrphanAllocations(ctx, AllocationListFilter{})
		require.NoError(t, err)
		require.Len(t, responses, 1)
		assert.True(t, responses[0].NeedsRelink)
		assert.Equal(t, int64(2), responses[0].QtyConsumed)
		assert.Equal(t, int64(3), responses[0].QtyRemaining)
	})
}
