package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/fieldops/stockledger/internal/domain/allocation"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAllocationRepository implements allocation.Repository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByID finds an allocation by its ID
func (r *GormAllocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*allocation.Allocation, error) {
	var a allocation.Allocation
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindByIDForUpdate locks the allocation row for the current transaction.
// Concurrent consumption writers against the same allocation serialize here.
func (r *GormAllocationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*allocation.Allocation, error) {
	var a allocation.Allocation
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindByProject lists allocations for a project
func (r *GormAllocationRepository) FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]allocation.Allocation, error) {
	var allocations []allocation.Allocation
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&allocation.Allocation{}).
			Where("project_id = ?", projectID),
		filter,
	)
	if err := query.Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// FindByVisit lists allocations for a visit
func (r *GormAllocationRepository) FindByVisit(ctx context.Context, visitID uuid.UUID, filter shared.Filter) ([]allocation.Allocation, error) {
	var allocations []allocation.Allocation
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&allocation.Allocation{}).
			Where("visit_id = ?", visitID),
		filter,
	)
	if err := query.Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// FindNeedingRelink lists allocations with unresolved catalog labels
func (r *GormAllocationRepository) FindNeedingRelink(ctx context.Context, filter shared.Filter) ([]allocation.Allocation, error) {
	var allocations []allocation.Allocation
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&allocation.Allocation{}).
			Where("needs_relink = ?", true),
		filter,
	)
	if err := query.Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// Save creates or updates an allocation
func (r *GormAllocationRepository) Save(ctx context.Context, a *allocation.Allocation) error {
	return r.db.WithContext(ctx).Save(a).Error
}

// Count counts allocations matching the filter
func (r *GormAllocationRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&allocation.Allocation{}),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormAllocationRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, AllocationSortFields, "created_at")
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(orderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormAllocationRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "item_id":
			query = query.Where("item_id = ?", value)
		case "needs_relink":
			query = query.Where("needs_relink = ?", value)
		case "source_location_id":
			query = query.Where("source_location_id = ?", value)
		}
	}
	return query
}

// Ensure GormAllocationRepository implements Repository
var _ allocation.Repository = (*GormAllocationRepository)(nil)
