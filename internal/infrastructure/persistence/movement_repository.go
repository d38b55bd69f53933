package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fieldops/stockledger/internal/domain/ledger"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMovementRepository implements MovementRepository using GORM
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// FindByID finds a movement by its ID
func (r *GormMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Movement, error) {
	var m ledger.Movement
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// FindByIdempotencyKey finds a movement by its natural idempotency key
func (r *GormMovementRepository) FindByIdempotencyKey(ctx context.Context, key string) (*ledger.Movement, error) {
	var m ledger.Movement
	if err := r.db.WithContext(ctx).First(&m, "idempotency_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// FindByReference finds all movements triggered by a business event
func (r *GormMovementRepository) FindByReference(ctx context.Context, ref ledger.Reference) ([]ledger.Movement, error) {
	var movements []ledger.Movement
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", ref.Type, ref.ID).
		Order("performed_at ASC, id ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByLocation finds movements touching a location as source or destination
func (r *GormMovementRepository) FindByLocation(ctx context.Context, locationID uuid.UUID, from, to *time.Time, filter shared.Filter) ([]ledger.Movement, error) {
	var movements []ledger.Movement
	query := r.db.WithContext(ctx).Model(&ledger.Movement{}).
		Where("from_location_id = ? OR to_location_id = ?", locationID, locationID)
	query = applyTimeWindow(query, from, to)

	if err := r.applyFilter(query, filter).Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByItem finds movements for an item across locations
func (r *GormMovementRepository) FindByItem(ctx context.Context, itemID uuid.UUID, from, to *time.Time, filter shared.Filter) ([]ledger.Movement, error) {
	var movements []ledger.Movement
	query := r.db.WithContext(ctx).Model(&ledger.Movement{}).
		Where("item_id = ?", itemID)
	query = applyTimeWindow(query, from, to)

	if err := r.applyFilter(query, filter).Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindForPair returns every movement touching a (location, item) pair in
// deterministic replay order
func (r *GormMovementRepository) FindForPair(ctx context.Context, locationID, itemID uuid.UUID) ([]ledger.Movement, error) {
	var movements []ledger.Movement
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND (from_location_id = ? OR to_location_id = ?)", itemID, locationID, locationID).
		Order("performed_at ASC, id ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// ListPairs returns the distinct (location, item) pairs with at least one movement
func (r *GormMovementRepository) ListPairs(ctx context.Context, locationFilter []uuid.UUID) ([]ledger.Pair, error) {
	sourceSide := r.db.WithContext(ctx).Model(&ledger.Movement{}).
		Select("from_location_id AS location_id, item_id").
		Where("from_location_id IS NOT NULL")
	destSide := r.db.WithContext(ctx).Model(&ledger.Movement{}).
		Select("to_location_id AS location_id, item_id").
		Where("to_location_id IS NOT NULL")

	if len(locationFilter) > 0 {
		sourceSide = sourceSide.Where("from_location_id IN ?", locationFilter)
		destSide = destSide.Where("to_location_id IN ?", locationFilter)
	}

	var pairs []ledger.Pair
	if err := r.db.WithContext(ctx).
		Raw("SELECT DISTINCT location_id, item_id FROM (? UNION ?) AS touched ORDER BY location_id, item_id",
			sourceSide, destSide).
		Scan(&pairs).Error; err != nil {
		return nil, err
	}
	return pairs, nil
}

// Create appends a new movement. A duplicate idempotency key surfaces as
// shared.ErrAlreadyExists so callers can resolve the retry.
func (r *GormMovementRepository) Create(ctx context.Context, m *ledger.Movement) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// CountByLocation counts movements referencing a location as source or destination
func (r *GormMovementRepository) CountByLocation(ctx context.Context, locationID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&ledger.Movement{}).
		Where("from_location_id = ? OR to_location_id = ?", locationID, locationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies pagination and ordering to the query
func (r *GormMovementRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, MovementSortFields, "performed_at")
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(orderBy + " " + orderDir)
	} else {
		query = query.Order("performed_at DESC")
	}

	return query
}

func applyTimeWindow(query *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		query = query.Where("performed_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("performed_at <= ?", *to)
	}
	return query
}

// Ensure GormMovementRepository implements MovementRepository
var _ ledger.MovementRepository = (*GormMovementRepository)(nil)
