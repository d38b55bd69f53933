package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGormBalanceRepository_FindByPairForUpdate(t *testing.T) {
	t.Run("locks the balance row", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormBalanceRepository(gormDB)

		locationID := uuid.New()
		itemID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "location_id", "item_id", "quantity"}).
			AddRow(uuid.New(), locationID, itemID, int64(12))

		mock.ExpectQuery(`SELECT \* FROM "quantity_balances" WHERE location_id = \$1 AND item_id = \$2 ORDER BY .* LIMIT .* FOR UPDATE`).
			WithArgs(locationID, itemID, 1).
			WillReturnRows(rows)

		b, err := repo.FindByPairForUpdate(context.Background(), locationID, itemID)

		assert.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, int64(12), b.Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps untouched pair to not found", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormBalanceRepository(gormDB)

		locationID := uuid.New()
		itemID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "quantity_balances" WHERE location_id = \$1 AND item_id = \$2 ORDER BY .* LIMIT .* FOR UPDATE`).
			WithArgs(locationID, itemID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		b, err := repo.FindByPairForUpdate(context.Background(), locationID, itemID)

		assert.Nil(t, b)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBalanceRepository_GetOrCreateForUpdate(t *testing.T) {
	t.Run("creates the row lazily on first touch", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormBalanceRepository(gormDB)

		locationID := uuid.New()
		itemID := uuid.New()

		// First locked lookup misses.
		mock.ExpectQuery(`SELECT \* FROM "quantity_balances" WHERE location_id = \$1 AND item_id = \$2 ORDER BY .* LIMIT .* FOR UPDATE`).
			WithArgs(locationID, itemID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		// Conflict-tolerant insert of the zero balance.
		mock.ExpectExec(`INSERT INTO "quantity_balances" .* ON CONFLICT DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		// Second locked lookup returns the row.
		rows := sqlmock.NewRows([]string{"id", "location_id", "item_id", "quantity"}).
			AddRow(uuid.New(), locationID, itemID, int64(0))
		mock.ExpectQuery(`SELECT \* FROM "quantity_balances" WHERE location_id = \$1 AND item_id = \$2 ORDER BY .* LIMIT .* FOR UPDATE`).
			WithArgs(locationID, itemID, 1).
			WillReturnRows(rows)

		b, err := repo.GetOrCreateForUpdate(context.Background(), locationID, itemID)

		assert.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, int64(0), b.Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns the existing row without inserting", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormBalanceRepository(gormDB)

		locationID := uuid.New()
		itemID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "location_id", "item_id", "quantity"}).
			AddRow(uuid.New(), locationID, itemID, int64(30))
		mock.ExpectQuery(`SELECT \* FROM "quantity_balances" WHERE location_id = \$1 AND item_id = \$2 ORDER BY .* LIMIT .* FOR UPDATE`).
			WithArgs(locationID, itemID, 1).
			WillReturnRows(rows)

		b, err := repo.GetOrCreateForUpdate(context.Background(), locationID, itemID)

		assert.NoError(t, err)
		assert.Equal(t, int64(30), b.Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBalanceRepository_CountNonZeroByLocation(t *testing.T) {
	t.Run("counts only positive balances", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormBalanceRepository(gormDB)

		locationID := uuid.New()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "quantity_balances" WHERE location_id = \$1 AND quantity > 0`).
			WithArgs(locationID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		count, err := repo.CountNonZeroByLocation(context.Background(), locationID)

		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
