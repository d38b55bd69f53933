package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fieldops/stockledger/internal/domain/ledger"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockEventPublisher collects published domain events for assertions
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]shared.DomainEvent, 0)}
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// memMovementRepo is an in-memory MovementRepository with the unique
// idempotency key behavior of the real store
type memMovementRepo struct {
	mu        sync.Mutex
	movements []ledger.Movement
	byKey     map[string]int
}

func newMemMovementRepo() *memMovementRepo {
	return &memMovementRepo{byKey: make(map[string]int)}
}

func (r *memMovementRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.movements {
		if r.movements[i].ID == id {
			m := r.movements[i]
			return &m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMovementRepo) FindByIdempotencyKey(_ context.Context, key string) (*ledger.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byKey[key]; ok {
		m := r.movements[i]
		return &m, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memMovementRepo) FindByReference(_ context.Context, ref ledger.Reference) ([]ledger.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.Movement
	for i := range r.movements {
		if r.movements[i].ReferenceType == ref.Type && r.movements[i].ReferenceID == ref.ID {
			out = append(out, r.movements[i])
		}
	}
	return out, nil
}

func (r *memMovementRepo) FindByLocation(_ context.Context, locationID uuid.UUID, _, _ *time.Time, _ shared.Filter) ([]ledger.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.Movement
	for i := range r.movements {
		if r.movements[i].SignedDelta(locationID) != 0 {
			out = append(out, r.movements[i])
		}
	}
	return out, nil
}

func (r *memMovementRepo) FindByItem(_ context.Context, itemID uuid.UUID, _, _ *time.Time, _ shared.Filter) ([]ledger.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.Movement
	for i := range r.movements {
		if r.movements[i].ItemID == itemID {
			out = append(out, r.movements[i])
		}
	}
	return out, nil
}

func (r *memMovementRepo) FindForPair(_ context.Context, locationID, itemID uuid.UUID) ([]ledger.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.Movement
	for i := range r.movements {
		if r.movements[i].Touches(locationID, itemID) {
			out = append(out, r.movements[i])
		}
	}
	return out, nil
}

func (r *memMovementRepo) ListPairs(_ context.Context, locationFilter []uuid.UUID) ([]ledger.Pair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := func(id uuid.UUID) bool {
		if len(locationFilter) == 0 {
			return true
		}
		for _, f := range locationFilter {
			if f == id {
				return true
			}
		}
		return false
	}
	seen := make(map[ledger.Pair]bool)
	var out []ledger.Pair
	add := func(locationID *uuid.UUID, itemID uuid.UUID) {
		if locationID == nil || !allowed(*locationID) {
			return
		}
		p := ledger.Pair{LocationID: *locationID, ItemID: itemID}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for i := range r.movements {
		add(r.movements[i].FromLocationID, r.movements[i].ItemID)
		add(r.movements[i].ToLocationID, r.movements[i].ItemID)
	}
	return out, nil
}

func (r *memMovementRepo) Create(_ context.Context, m *ledger.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[m.IdempotencyKey]; ok {
		return shared.ErrAlreadyExists
	}
	r.movements = append(r.movements, *m)
	r.byKey[m.IdempotencyKey] = len(r.movements) - 1
	return nil
}

func (r *memMovementRepo) CountByLocation(_ context.Context, locationID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for i := range r.movements {
		if r.movements[i].SignedDelta(locationID) != 0 {
			count++
		}
	}
	return count, nil
}

func (r *memMovementRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.movements)
}

// memBalanceRepo is an in-memory BalanceRepository
type memBalanceRepo struct {
	mu       sync.Mutex
	balances map[ledger.Pair]*ledger.QuantityBalance
}

func newMemBalanceRepo() *memBalanceRepo {
	return &memBalanceRepo{balances: make(map[ledger.Pair]*ledger.QuantityBalance)}
}

func (r *memBalanceRepo) FindByPair(_ context.Context, locationID, itemID uuid.UUID) (*ledger.QuantityBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.balances[ledger.Pair{LocationID: locationID, ItemID: itemID}]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memBalanceRepo) FindByPairForUpdate(ctx context.Context, locationID, itemID uuid.UUID) (*ledger.QuantityBalance, error) {
	return r.FindByPair(ctx, locationID, itemID)
}

func (r *memBalanceRepo) GetOrCreateForUpdate(_ context.Context, locationID, itemID uuid.UUID) (*ledger.QuantityBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pair := ledger.Pair{LocationID: locationID, ItemID: itemID}
	if b, ok := r.balances[pair]; ok {
		copied := *b
		return &copied, nil
	}
	b, err := ledger.NewQuantityBalance(locationID, itemID)
	if err != nil {
		return nil, err
	}
	r.balances[pair] = b
	copied := *b
	return &copied, nil
}

func (r *memBalanceRepo) FindByLocation(_ context.Context, locationID uuid.UUID, _ shared.Filter) ([]ledger.QuantityBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.QuantityBalance
	for pair, b := range r.balances {
		if pair.LocationID == locationID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBalanceRepo) FindByItem(_ context.Context, itemID uuid.UUID, _ shared.Filter) ([]ledger.QuantityBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.QuantityBalance
	for pair, b := range r.balances {
		if pair.ItemID == itemID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBalanceRepo) Save(_ context.Context, b *ledger.QuantityBalance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *b
	r.balances[ledger.Pair{LocationID: b.LocationID, ItemID: b.ItemID}] = &copied
	return nil
}

func (r *memBalanceRepo) CountNonZeroByLocation(_ context.Context, locationID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for pair, b := range r.balances {
		if pair.LocationID == locationID && b.Quantity > 0 {
			count++
		}
	}
	return count, nil
}

func (r *memBalanceRepo) CountByLocation(_ context.Context, locationID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for pair := range r.balances {
		if pair.LocationID == locationID {
			count++
		}
	}
	return count, nil
}

func (r *memBalanceRepo) corrupt(locationID, itemID uuid.UUID, quantity int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.balances[ledger.Pair{LocationID: locationID, ItemID: itemID}]; ok {
		b.Quantity = quantity
	}
}

var _ ledger.MovementRepository = (*memMovementRepo)(nil)
var _ ledger.BalanceRepository = (*memBalanceRepo)(nil)

type serviceFixture struct {
	movementRepo *memMovementRepo
	balanceRepo  *memBalanceRepo
	publisher    *MockEventPublisher
	service      *LedgerService
}

func newServiceFixture() *serviceFixture {
	movementRepo := newMemMovementRepo()
	balanceRepo := newMemBalanceRepo()
	publisher := NewMockEventPublisher()
	service := NewLedgerService(
		movementRepo,
		balanceRepo,
		NewNoOpTransactionScope(movementRepo, balanceRepo),
		zap.NewNop(),
	)
	service.SetEventPublisher(publisher)
	return &serviceFixture{
		movementRepo: movementRepo,
		balanceRepo:  balanceRepo,
		publisher:    publisher,
		service:      service,
	}
}

func testActor() shared.Actor {
	return shared.Actor{ID: uuid.New(), Email: "tech@example.com", Name: "Field Tech"}
}

func receiptRequest(itemID uuid.UUID, to uuid.UUID, qty int64, refID string) RecordMovementRequest {
	return RecordMovementRequest{
		ItemID:        itemID,
		ToLocationID:  &to,
		Quantity:      qty,
		Reason:        ledger.ReasonPurchaseReceipt.String(),
		ReferenceType: "purchase_order_line",
		ReferenceID:   refID,
	}
}

func TestRecordMovement(t *testing.T) {
	ctx := context.Background()
	actor := testActor()
	itemID := uuid.New()
	warehouseID := uuid.New()
	vanID := uuid.New()

	t.Run("inbound receipt creates balance lazily", func(t *testing.T) {
		f := newServiceFixture()

		resp, err := f.service.RecordMovement(ctx, receiptRequest(itemID, warehouseID, 10, "POL-1"), actor)
		require.NoError(t, err)
		assert.False(t, resp.AlreadyRecorded)
		assert.Equal(t, int64(10), resp.Movement.Quantity)

		balance, err := f.service.GetBalance(ctx, warehouseID, itemID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), balance.Quantity)

		assert.Len(t, f.publisher.GetEventsByType(ledger.EventTypeMovementRecorded), 1)
	})

	t.Run("retry with same reference returns original movement", func(t *testing.T) {
		f := newServiceFixture()

		first, err := f.service.RecordMovement(ctx, receiptRequest(itemID, warehouseID, 10, "POL-1"), actor)
		require.NoError(t, err)

		second, err := f.service.RecordMovement(ctx, receiptRequest(itemID, warehouseID, 10, "POL-1"), actor)
		require.NoError(t, err)
		assert.True(t, second.AlreadyRecorded)
		assert.Equal(t, first.Movement.ID, second.Movement.ID)
		assert.Equal(t, 1, f.movementRepo.count())

		balance, err := f.service.GetBalance(ctx, warehouseID, itemID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), balance.Quantity)
	})

	t.Run("transfer moves quantity between locations", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.RecordMovement(ctx, receiptRequest(itemID, warehouseID, 10, "POL-1"), actor)
		require.NoError(t, err)

		_, err = f.service.RecordMovement(ctx, RecordMovementRequest{
			ItemID:         itemID,
			FromLocationID: &warehouseID,
			ToLocationID:   &vanID,
			Quantity:       4,
			Reason:         ledger.ReasonTransfer.String(),
			ReferenceType:  "transfer",
			ReferenceID:    "T-1",
		}, actor)
		require.NoError(t, err)

		warehouse, err := f.service.GetBalance(ctx, warehouseID, itemID)
		require.NoError(t, err)
		assert.Equal(t, int64(6), warehouse.Quantity)

		van, err := f.service.GetBalance(ctx, vanID, itemID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), van.Quantity)
	})

	t.Run("outbound past available stock is rejected", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.RecordMovement(ctx, receiptRequest(itemID, warehouseID, 3, "POL-1"), actor)
		require.NoError(t, err)

		_, err = f.service.RecordMovement(ctx, RecordMovementRequest{
			ItemID:         itemID,
			FromLocationID: &warehouseID,
			Quantity:       5,
			Reason:         ledger.ReasonJobUsage.String(),
			ReferenceType:  "consumption",
			ReferenceID:    "C-1",
		}, actor)
		require.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, 1, f.movementRepo.count())
	})

	t.Run("outbound from untouched location is rejected", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.RecordMovement(ctx, RecordMovementRequest{
			ItemID:         itemID,
			FromLocationID: &warehouseID,
			Quantity:       1,
			Reason:         ledger.ReasonJobUsage.String(),
			ReferenceType:  "consumption",
			ReferenceID:    "C-1",
		}, actor)
		require.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, 0, f.movementRepo.count())
	})

	t.Run("invalid request never reaches the store", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.RecordMovement(ctx, RecordMovementRequest{
			ItemID:        itemID,
			Quantity:      1,
			Reason:        ledger.ReasonAdjustment.String(),
			ReferenceType: "adjustment",
			ReferenceID:   "A-1",
		}, actor)
		require.Error(t, err)
		assert.Equal(t, 0, f.movementRepo.count())
	})
}

func TestReverseMovement(t *testing.T) {
	ctx := context.Background()
	actor := testActor()
	itemID := uuid.New()
	warehouseID := uuid.New()

	t.Run("reversal restores the prior balance", func(t *testing.T) {
		f := newServiceFixture()

		recorded, err := f.service.RecordMovement(ctx, receiptRequest(itemID, warehouseID, 10, "POL-1"), actor)
		require.NoError(t, err)

		resp, err := f.service.ReverseMovement(ctx, recorded.Movement.ID, actor)
		require.NoError(t, err)
		assert.False(t, resp.ReversalOfReversal)
		assert.Equal(t, recorded.Movement.ID, resp.OriginalID)

		balance, err := f.service.GetBalance(ctx, warehouseID, itemID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance.Quantity)

		assert.Len(t, f.publisher.GetEventsByType(ledger.EventTypeMovementReversed), 1)
	})

	t.Run("double reversal of the same movement is idempotent", func(t *testing.T) {
		f := newServiceFixture()

		recorded, err := f.service.RecordMovement(ctx, receiptRequest(itemID, warehouseID, 10, "POL-1"), actor)
		require.NoError(t, err)

		first, err := f.service.ReverseMovement(ctx, recorded.Movement.ID, actor)
		require.NoError(t, err)

		second, err := f.service.ReverseMovement(ctx, recorded.Movement.ID, actor)
		require.NoError(t, err)
		assert.True(t, second.AlreadyRecorded)
		assert.Equal(t, first.Reversal.ID, second.Reversal.ID)

		balance, err := f.service.GetBalance(ctx, warehouseID, itemID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance.Quantity)
	})

	t.Run("reversing a reversal is flagged but applied", func(t *testing.T) {
		f := newServiceFixture()

		recorded, err := f.service.RecordMovement(ctx, receiptRequest(itemID, warehouseID, 10, "POL-1"), actor)
		require.NoError(t, err)

		firstReversal, err := f.service.ReverseMovement(ctx, recorded.Movement.ID, actor)
		require.NoError(t, err)

		secondReversal, err := f.service.ReverseMovement(ctx, firstReversal.Reversal.ID, actor)
		require.NoError(t, err)
		assert.True(t, secondReversal.ReversalOfReversal)

		balance, err := f.service.GetBalance(ctx, warehouseID, itemID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), balance.Quantity)
	})

	t.Run("unknown movement fails", func(t *testing.T) {
		f := newServiceFixture()
		_, err := f.service.ReverseMovement(ctx, uuid.New(), actor)
		require.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("untouched pair reads as zero", func(t *testing.T) {
		f := newServiceFixture()
		balance, err := f.service.GetBalance(ctx, uuid.New(), uuid.New())
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance.Quantity)
	})
}

func TestRecomputeBalance(t *testing.T) {
	ctx := context.Background()
	actor := testActor()
	itemID := uuid.New()
	warehouseID := uuid.New()

	t.Run("drifted cache is overwritten from the ledger", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.RecordMovement(ctx, receiptRequest(itemID, warehouseID, 10, "POL-1"), actor)
		require.NoError(t, err)
		_, err = f.service.RecordMovement(ctx, receiptRequest(itemID, warehouseID, 5, "POL-2"), actor)
		require.NoError(t, err)

		f.balanceRepo.corrupt(warehouseID, itemID, 99)

		result, err := f.service.RecomputeBalance(ctx, warehouseID, itemID)
		require.NoError(t, err)
		assert.True(t, result.Drifted)
		assert.Equal(t, int64(99), result.OldQuantity)
		assert.Equal(t, int64(15), result.NewQuantity)

		balance, err := f.service.GetBalance(ctx, warehouseID, itemID)
		require.NoError(t, err)
		assert.Equal(t, int64(15), balance.Quantity)

		assert.Len(t, f.publisher.GetEventsByType(ledger.EventTypeBalanceCorrected), 1)
	})

	t.Run("consistent cache is left alone", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.RecordMovement(ctx, receiptRequest(itemID, warehouseID, 10, "POL-1"), actor)
		require.NoError(t, err)

		result, err := f.service.RecomputeBalance(ctx, warehouseID, itemID)
		require.NoError(t, err)
		assert.False(t, result.Drifted)
		assert.Empty(t, f.publisher.GetEventsByType(ledger.EventTypeBalanceCorrected))
	})

	t.Run("recompute converges to a fixed point", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.service.RecordMovement(ctx, receiptRequest(itemID, warehouseID, 7, "POL-1"), actor)
		require.NoError(t, err)
		f.balanceRepo.corrupt(warehouseID, itemID, 3)

		first, err := f.service.RecomputeBalance(ctx, warehouseID, itemID)
		require.NoError(t, err)
		assert.True(t, first.Drifted)

		second, err := f.service.RecomputeBalance(ctx, warehouseID, itemID)
		require.NoError(t, err)
		assert.False(t, second.Drifted)
		assert.Equal(t, first.NewQuantity, second.OldQuantity)
	})
}
