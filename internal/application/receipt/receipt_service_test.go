package receipt

import (
	"context"
	"testing"

	"github.com/fieldops/stockledger/internal/domain/receipt"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockReceiptRepository is a mock implementation of receipt.Repository
type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*receipt.Receipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receipt.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) FindByConfirmationRef(ctx context.Context, confirmationRef string) (*receipt.Receipt, error) {
	args := m.Called(ctx, confirmationRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receipt.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) FindOpenByDeliveryRun(ctx context.Context, deliveryRunRef string) ([]receipt.Receipt, error) {
	args := m.Called(ctx, deliveryRunRef)
	return args.Get(0).([]receipt.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]receipt.Receipt, error) {
	args := m.Called(ctx, projectID, filter)
	return args.Get(0).([]receipt.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) Create(ctx context.Context, r *receipt.Receipt) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReceiptRepository) Save(ctx context.Context, r *receipt.Receipt) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func testActor() shared.Actor {
	return shared.Actor{ID: uuid.New(), Email: "driver@example.com", Name: "Driver"}
}

func TestEnsureReceipt(t *testing.T) {
	ctx := context.Background()

	t.Run("first confirmation creates an open receipt", func(t *testing.T) {
		repo := new(MockReceiptRepository)
		svc := NewReceiptService(repo, zap.NewNop())

		repo.On("FindByConfirmationRef", ctx, "STOP-1").Return(nil, shared.ErrNotFound)
		repo.On("Create", ctx, mock.AnythingOfType("*receipt.Receipt")).Return(nil)

		resp, err := svc.EnsureReceipt(ctx, EnsureReceiptRequest{ConfirmationRef: "STOP-1", DeliveryRunRef: "RUN-9"})
		require.NoError(t, err)
		assert.True(t, resp.Created)
		assert.Equal(t, "open", resp.Receipt.Status)
	})

	t.Run("repeat confirmation returns the existing receipt", func(t *testing.T) {
		repo := new(MockReceiptRepository)
		svc := NewReceiptService(repo, zap.NewNop())
		existing, err := receipt.NewReceipt("STOP-1", "RUN-9", nil)
		require.NoError(t, err)

		repo.On("FindByConfirmationRef", ctx, "STOP-1").Return(existing, nil)

		resp, err := svc.EnsureReceipt(ctx, EnsureReceiptRequest{ConfirmationRef: "STOP-1"})
		require.NoError(t, err)
		assert.False(t, resp.Created)
		assert.Equal(t, existing.ID, resp.Receipt.ID)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("losing a concurrent create race returns the winner", func(t *testing.T) {
		repo := new(MockReceiptRepository)
		svc := NewReceiptService(repo, zap.NewNop())
		winner, err := receipt.NewReceipt("STOP-1", "RUN-9", nil)
		require.NoError(t, err)

		repo.On("FindByConfirmationRef", ctx, "STOP-1").Return(nil, shared.ErrNotFound).Once()
		repo.On("Create", ctx, mock.AnythingOfType("*receipt.Receipt")).Return(shared.ErrAlreadyExists)
		repo.On("FindByConfirmationRef", ctx, "STOP-1").Return(winner, nil).Once()

		resp, err := svc.EnsureReceipt(ctx, EnsureReceiptRequest{ConfirmationRef: "STOP-1"})
		require.NoError(t, err)
		assert.False(t, resp.Created)
		assert.Equal(t, winner.ID, resp.Receipt.ID)
	})
}

func TestClearReceipt(t *testing.T) {
	ctx := context.Background()
	actor := testActor()

	t.Run("direct match clears exactly once", func(t *testing.T) {
		repo := new(MockReceiptRepository)
		svc := NewReceiptService(repo, zap.NewNop())
		r, err := receipt.NewReceipt("STOP-1", "RUN-9", nil)
		require.NoError(t, err)

		repo.On("FindByConfirmationRef", ctx, "STOP-1").Return(r, nil)
		repo.On("Save", ctx, r).Return(nil)

		resp, err := svc.ClearReceipt(ctx, ClearReceiptRequest{ConfirmationRef: "STOP-1"}, actor)
		require.NoError(t, err)
		assert.True(t, resp.Cleared)
		assert.Equal(t, MatchedByConfirmation, resp.MatchedBy)
		assert.Equal(t, "cleared", resp.Receipt.Status)
	})

	t.Run("clearing an already-cleared receipt is a no-op", func(t *testing.T) {
		repo := new(MockReceiptRepository)
		svc := NewReceiptService(repo, zap.NewNop())
		r, err := receipt.NewReceipt("STOP-1", "RUN-9", nil)
		require.NoError(t, err)
		require.True(t, r.Clear(actor))

		repo.On("FindByConfirmationRef", ctx, "STOP-1").Return(r, nil)

		resp, err := svc.ClearReceipt(ctx, ClearReceiptRequest{ConfirmationRef: "STOP-1"}, actor)
		require.NoError(t, err)
		assert.False(t, resp.Cleared)
		assert.True(t, resp.AlreadyCleared)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("fallback prefers the project match on the run", func(t *testing.T) {
		repo := new(MockReceiptRepository)
		svc := NewReceiptService(repo, zap.NewNop())
		projectID := uuid.New()
		otherProject := uuid.New()

		newest, err := receipt.NewReceipt("STOP-2", "RUN-9", &otherProject)
		require.NoError(t, err)
		onProject, err := receipt.NewReceipt("STOP-3", "RUN-9", &projectID)
		require.NoError(t, err)

		repo.On("FindByConfirmationRef", ctx, "STOP-MISSING").Return(nil, shared.ErrNotFound)
		repo.On("FindOpenByDeliveryRun", ctx, "RUN-9").Return([]receipt.Receipt{*newest, *onProject}, nil)
		repo.On("Save", ctx, mock.MatchedBy(func(r *receipt.Receipt) bool {
			return r.ConfirmationRef == "STOP-3"
		})).Return(nil)

		resp, err := svc.ClearReceipt(ctx, ClearReceiptRequest{
			ConfirmationRef: "STOP-MISSING",
			DeliveryRunRef:  "RUN-9",
			ProjectID:       &projectID,
		}, actor)
		require.NoError(t, err)
		assert.Equal(t, MatchedByRunProject, resp.MatchedBy)
		assert.Equal(t, "STOP-3", resp.Receipt.ConfirmationRef)
	})

	t.Run("fallback takes the most recent open receipt otherwise", func(t *testing.T) {
		repo := new(MockReceiptRepository)
		svc := NewReceiptService(repo, zap.NewNop())

		newest, err := receipt.NewReceipt("STOP-2", "RUN-9", nil)
		require.NoError(t, err)
		older, err := receipt.NewReceipt("STOP-1", "RUN-9", nil)
		require.NoError(t, err)

		repo.On("FindOpenByDeliveryRun", ctx, "RUN-9").Return([]receipt.Receipt{*newest, *older}, nil)
		repo.On("Save", ctx, mock.MatchedBy(func(r *receipt.Receipt) bool {
			return r.ConfirmationRef == "STOP-2"
		})).Return(nil)

		resp, err := svc.ClearReceipt(ctx, ClearReceiptRequest{DeliveryRunRef: "RUN-9"}, actor)
		require.NoError(t, err)
		assert.Equal(t, MatchedByRunLatest, resp.MatchedBy)
		assert.Equal(t, "STOP-2", resp.Receipt.ConfirmationRef)
	})

	t.Run("no match anywhere fails", func(t *testing.T) {
		repo := new(MockReceiptRepository)
		svc := NewReceiptService(repo, zap.NewNop())

		repo.On("FindByConfirmationRef", ctx, "STOP-X").Return(nil, shared.ErrNotFound)
		repo.On("FindOpenByDeliveryRun", ctx, "RUN-9").Return([]receipt.Receipt{}, nil)

		_, err := svc.ClearReceipt(ctx, ClearReceiptRequest{
			ConfirmationRef: "STOP-X",
			DeliveryRunRef:  "RUN-9",
		}, actor)
		require.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("no confirmation and no run fails", func(t *testing.T) {
		repo := new(MockReceiptRepository)
		svc := NewReceiptService(repo, zap.NewNop())

		_, err := svc.ClearReceipt(ctx, ClearReceiptRequest{}, actor)
		require.ErrorIs(t, err, shared.ErrNotFound)
	})
}
