package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/fieldops/stockledger/internal/domain/ledger"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBalanceRepository implements BalanceRepository using GORM
type GormBalanceRepository struct {
	db *gorm.DB
}

// NewGormBalanceRepository creates a new GormBalanceRepository
func NewGormBalanceRepository(db *gorm.DB) *GormBalanceRepository {
	return &GormBalanceRepository{db: db}
}

// FindByPair finds the balance for a (location, item) pair
func (r *GormBalanceRepository) FindByPair(ctx context.Context, locationID, itemID uuid.UUID) (*ledger.QuantityBalance, error) {
	var b ledger.QuantityBalance
	if err := r.db.WithContext(ctx).
		First(&b, "location_id = ? AND item_id = ?", locationID, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// FindByPairForUpdate locks the balance row for the current transaction.
// Concurrent writers to the same pair serialize on this lock.
func (r *GormBalanceRepository) FindByPairForUpdate(ctx context.Context, locationID, itemID uuid.UUID) (*ledger.QuantityBalance, error) {
	var b ledger.QuantityBalance
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, "location_id = ? AND item_id = ?", locationID, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// GetOrCreateForUpdate returns the locked balance for the pair, creating the
// row lazily on first touch. The conflict-tolerant insert keeps two
// first-touchers of the same pair from failing each other.
func (r *GormBalanceRepository) GetOrCreateForUpdate(ctx context.Context, locationID, itemID uuid.UUID) (*ledger.QuantityBalance, error) {
	b, err := r.FindByPairForUpdate(ctx, locationID, itemID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	fresh, err := ledger.NewQuantityBalance(locationID, itemID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(fresh).Error; err != nil {
		return nil, err
	}

	return r.FindByPairForUpdate(ctx, locationID, itemID)
}

// FindByLocation lists balances at a location
func (r *GormBalanceRepository) FindByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]ledger.QuantityBalance, error) {
	var balances []ledger.QuantityBalance
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&ledger.QuantityBalance{}).
			Where("location_id = ?", locationID),
		filter,
	)
	if err := query.Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// FindByItem lists balances for an item across locations
func (r *GormBalanceRepository) FindByItem(ctx context.Context, itemID uuid.UUID, filter shared.Filter) ([]ledger.QuantityBalance, error) {
	var balances []ledger.QuantityBalance
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&ledger.QuantityBalance{}).
			Where("item_id = ?", itemID),
		filter,
	)
	if err := query.Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// Save creates or updates a balance row
func (r *GormBalanceRepository) Save(ctx context.Context, b *ledger.QuantityBalance) error {
	return r.db.WithContext(ctx).Save(b).Error
}

// CountNonZeroByLocation counts balances with quantity > 0 at a location
func (r *GormBalanceRepository) CountNonZeroByLocation(ctx context.Context, locationID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&ledger.QuantityBalance{}).
		Where("location_id = ? AND quantity > 0", locationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByLocation counts all balance rows at a location
func (r *GormBalanceRepository) CountByLocation(ctx context.Context, locationID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&ledger.QuantityBalance{}).
		Where("location_id = ?", locationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormBalanceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, BalanceSortFields, "item_id")
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(orderBy + " " + orderDir)
	} else {
		query = query.Order("item_id ASC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormBalanceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "non_zero":
			if nonZero, ok := value.(bool); ok && nonZero {
				query = query.Where("quantity <> 0")
			}
		case "item_id":
			query = query.Where("item_id = ?", value)
		case "location_id":
			query = query.Where("location_id = ?", value)
		}
	}
	return query
}

// Ensure GormBalanceRepository implements BalanceRepository
var _ ledger.BalanceRepository = (*GormBalanceRepository)(nil)
