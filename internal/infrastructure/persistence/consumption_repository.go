package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/fieldops/stockledger/internal/domain/allocation"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormConsumptionRepository implements allocation.ConsumptionRepository using GORM
type GormConsumptionRepository struct {
	db *gorm.DB
}

// NewGormConsumptionRepository creates a new GormConsumptionRepository
func NewGormConsumptionRepository(db *gorm.DB) *GormConsumptionRepository {
	return &GormConsumptionRepository{db: db}
}

// FindByID finds a consumption by its ID
func (r *GormConsumptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*allocation.Consumption, error) {
	var c allocation.Consumption
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByAllocation lists consumptions drawn against an allocation
func (r *GormConsumptionRepository) FindByAllocation(ctx context.Context, allocationID uuid.UUID) ([]allocation.Consumption, error) {
	var consumptions []allocation.Consumption
	if err := r.db.WithContext(ctx).
		Where("allocation_id = ?", allocationID).
		Order("consumed_at ASC").
		Find(&consumptions).Error; err != nil {
		return nil, err
	}
	return consumptions, nil
}

// FindByProject lists consumptions for a project
func (r *GormConsumptionRepository) FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]allocation.Consumption, error) {
	var consumptions []allocation.Consumption
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&allocation.Consumption{}).
			Where("project_id = ?", projectID),
		filter,
	)
	if err := query.Find(&consumptions).Error; err != nil {
		return nil, err
	}
	return consumptions, nil
}

// SumByAllocation sums qty_consumed for an allocation
func (r *GormConsumptionRepository) SumByAllocation(ctx context.Context, allocationID uuid.UUID) (int64, error) {
	var result struct {
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&allocation.Consumption{}).
		Select("COALESCE(SUM(qty_consumed), 0) as total").
		Where("allocation_id = ?", allocationID).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Total, nil
}

// Create appends a consumption record
func (r *GormConsumptionRepository) Create(ctx context.Context, c *allocation.Consumption) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// applyFilter applies filter options to the query
func (r *GormConsumptionRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, ConsumptionSortFields, "consumed_at")
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(orderBy + " " + orderDir)
	} else {
		query = query.Order("consumed_at DESC")
	}

	return query
}

// Ensure GormConsumptionRepository implements ConsumptionRepository
var _ allocation.ConsumptionRepository = (*GormConsumptionRepository)(nil)
