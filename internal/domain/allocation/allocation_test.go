package allocation

import (
	"testing"

	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

func TestNewAllocation(t *testing.T) {
	projectID := uuidPtr(uuid.New())
	itemID := uuidPtr(uuid.New())

	t.Run("creates reserved allocation with catalog label", func(t *testing.T) {
		a, err := NewAllocation(projectID, nil, itemID, "M8 anchor bolt", 10, nil, LabelSourceCatalogLookup)
		require.NoError(t, err)
		assert.Equal(t, StatusReserved, a.Status)
		assert.False(t, a.NeedsRelink)
		assert.True(t, a.IsOpen())
	})

	t.Run("nil item produces placeholder and relink flag", func(t *testing.T) {
		a, err := NewAllocation(projectID, nil, nil, "", 5, nil, LabelSourceCatalogLookup)
		require.NoError(t, err)
		assert.True(t, a.NeedsRelink)
		assert.Equal(t, PlaceholderItemName, a.ItemName)
		assert.True(t, a.IsOrphan())
	})

	t.Run("rejects missing project and visit", func(t *testing.T) {
		_, err := NewAllocation(nil, nil, itemID, "bolt", 5, nil, LabelSourceCatalogLookup)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewAllocation(projectID, nil, itemID, "bolt", 0, nil, LabelSourceCatalogLookup)
		assert.Error(t, err)
	})

	t.Run("visit-only allocation is valid", func(t *testing.T) {
		a, err := NewAllocation(nil, uuidPtr(uuid.New()), itemID, "bolt", 2, nil, LabelSourceCatalogLookup)
		require.NoError(t, err)
		assert.Nil(t, a.ProjectID)
	})
}

func TestAllocationConsumption(t *testing.T) {
	projectID := uuidPtr(uuid.New())
	itemID := uuidPtr(uuid.New())

	newAlloc := func(t *testing.T, qty int64) *Allocation {
		a, err := NewAllocation(projectID, nil, itemID, "cable tie", qty, nil, LabelSourceCatalogLookup)
		require.NoError(t, err)
		return a
	}

	t.Run("consumption within remaining passes", func(t *testing.T) {
		a := newAlloc(t, 10)
		assert.NoError(t, a.CanConsume(4, 0))
		assert.NoError(t, a.CanConsume(6, 4))
	})

	t.Run("consumption past the cap fails", func(t *testing.T) {
		a := newAlloc(t, 10)
		err := a.CanConsume(7, 4)
		require.ErrorIs(t, err, shared.ErrOverConsumption)
	})

	t.Run("exact remaining is allowed", func(t *testing.T) {
		a := newAlloc(t, 10)
		assert.NoError(t, a.CanConsume(10, 0))
	})

	t.Run("closed allocation cannot consume", func(t *testing.T) {
		a := newAlloc(t, 10)
		a.MarkConsumed()
		assert.Error(t, a.CanConsume(1, 10))
	})

	t.Run("remaining never goes negative", func(t *testing.T) {
		a := newAlloc(t, 10)
		assert.Equal(t, int64(3), a.Remaining(7))
		assert.Equal(t, int64(0), a.Remaining(12))
	})

	t.Run("mark consumed is idempotent across states", func(t *testing.T) {
		a := newAlloc(t, 5)
		require.NoError(t, a.Cancel())
		a.MarkConsumed()
		assert.Equal(t, StatusCancelled, a.Status)
	})
}

func TestAllocationCancel(t *testing.T) {
	projectID := uuidPtr(uuid.New())

	t.Run("reserved allocation cancels", func(t *testing.T) {
		a, err := NewAllocation(projectID, nil, uuidPtr(uuid.New()), "bolt", 5, nil, LabelSourceCatalogLookup)
		require.NoError(t, err)
		require.NoError(t, a.Cancel())
		assert.Equal(t, StatusCancelled, a.Status)
	})

	t.Run("consumed allocation cannot cancel", func(t *testing.T) {
		a, err := NewAllocation(projectID, nil, uuidPtr(uuid.New()), "bolt", 5, nil, LabelSourceCatalogLookup)
		require.NoError(t, err)
		a.MarkConsumed()
		assert.Error(t, a.Cancel())
	})
}

func TestAllocationRelink(t *testing.T) {
	projectID := uuidPtr(uuid.New())

	t.Run("relink repairs an orphan", func(t *testing.T) {
		a, err := NewAllocation(projectID, nil, nil, "", 5, nil, LabelSourceCatalogLookup)
		require.NoError(t, err)
		require.True(t, a.IsOrphan())

		itemID := uuid.New()
		require.NoError(t, a.Relink(itemID, "RJ45 connector"))
		assert.False(t, a.IsOrphan())
		assert.Equal(t, itemID, *a.ItemID)
		assert.Equal(t, LabelSourceManualRelink, a.LabelSource)
	})

	t.Run("relink rejects empty item or name", func(t *testing.T) {
		a, err := NewAllocation(projectID, nil, nil, "", 5, nil, LabelSourceCatalogLookup)
		require.NoError(t, err)
		assert.Error(t, a.Relink(uuid.Nil, "name"))
		assert.Error(t, a.Relink(uuid.New(), ""))
	})
}

func TestNewConsumption(t *testing.T) {
	actor := shared.Actor{ID: uuid.New(), Email: "tech@example.com", Name: "Field Tech"}
	itemID := uuid.New()

	t.Run("ad-hoc consumption without allocation is valid", func(t *testing.T) {
		c, err := NewConsumption(nil, uuidPtr(uuid.New()), nil, itemID, 3, nil, actor)
		require.NoError(t, err)
		assert.Nil(t, c.AllocationID)
		assert.Equal(t, actor.ID, c.ConsumedBy)
	})

	t.Run("rejects missing allocation, project and visit", func(t *testing.T) {
		_, err := NewConsumption(nil, nil, nil, itemID, 3, nil, actor)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewConsumption(nil, uuidPtr(uuid.New()), nil, itemID, 0, nil, actor)
		assert.Error(t, err)
	})

	t.Run("attach movement links ledger entry", func(t *testing.T) {
		c, err := NewConsumption(nil, uuidPtr(uuid.New()), nil, itemID, 3, nil, actor)
		require.NoError(t, err)
		movementID := uuid.New()
		c.AttachMovement(movementID)
		require.NotNil(t, c.MovementID)
		assert.Equal(t, movementID, *c.MovementID)
	})
}
