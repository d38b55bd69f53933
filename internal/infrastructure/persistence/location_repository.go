package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/fieldops/stockledger/internal/domain/location"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLocationRepository implements location.Repository using GORM
type GormLocationRepository struct {
	db *gorm.DB
}

// NewGormLocationRepository creates a new GormLocationRepository
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// FindByID finds a location by its ID
func (r *GormLocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*location.Location, error) {
	var l location.Location
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// FindByName finds a location by exact name
func (r *GormLocationRepository) FindByName(ctx context.Context, name string) (*location.Location, error) {
	var l location.Location
	if err := r.db.WithContext(ctx).First(&l, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// FindByOwner finds a location by its owning-entity reference
func (r *GormLocationRepository) FindByOwner(ctx context.Context, ownerType, ownerID string) (*location.Location, error) {
	var l location.Location
	if err := r.db.WithContext(ctx).
		First(&l, "owner_type = ? AND owner_id = ?", ownerType, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// FindAll lists locations, optionally restricted to active ones
func (r *GormLocationRepository) FindAll(ctx context.Context, activeOnly bool, filter shared.Filter) ([]location.Location, error) {
	var locations []location.Location
	query := r.db.WithContext(ctx).Model(&location.Location{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := r.applyFilter(query, filter).Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

// FindByKind lists locations of a kind
func (r *GormLocationRepository) FindByKind(ctx context.Context, kind location.Kind, activeOnly bool, filter shared.Filter) ([]location.Location, error) {
	var locations []location.Location
	query := r.db.WithContext(ctx).Model(&location.Location{}).
		Where("kind = ?", kind)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := r.applyFilter(query, filter).Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

// CountActiveWarehouses counts active warehouse locations, excluding the
// given ID when non-nil
func (r *GormLocationRepository) CountActiveWarehouses(ctx context.Context, excludeID *uuid.UUID) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&location.Location{}).
		Where("kind = ? AND active = ?", location.KindWarehouse, true)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a location
func (r *GormLocationRepository) Save(ctx context.Context, l *location.Location) error {
	return r.db.WithContext(ctx).Save(l).Error
}

// SaveWithVersion updates soft fields with an optimistic version check.
// The aggregate has already bumped its version in memory, so the stored row
// must still carry the previous one.
func (r *GormLocationRepository) SaveWithVersion(ctx context.Context, l *location.Location) error {
	result := r.db.WithContext(ctx).Model(&location.Location{}).
		Where("id = ? AND version = ?", l.ID, l.Version-1).
		Updates(map[string]interface{}{
			"name":       l.Name,
			"note":       l.Note,
			"active":     l.Active,
			"version":    l.Version,
			"updated_at": l.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrStaleWrite
	}
	return nil
}

// Count counts locations matching the filter
func (r *GormLocationRepository) Count(ctx context.Context, activeOnly bool, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&location.Location{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	query = r.applyFilterWithoutPagination(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormLocationRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, LocationSortFields, "name")
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(orderBy + " " + orderDir)
	} else {
		query = query.Order("name ASC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormLocationRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "kind":
			query = query.Where("kind = ?", value)
		case "owner_type":
			query = query.Where("owner_type = ?", value)
		}
	}
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	return query
}

// Ensure GormLocationRepository implements Repository
var _ location.Repository = (*GormLocationRepository)(nil)
