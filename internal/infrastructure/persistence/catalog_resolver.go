package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fieldops/stockledger/internal/domain/allocation"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogItemProjection is the read model of catalog entries maintained by
// the catalog subsystem. Rows disappear when items are delisted, which is
// exactly the signal the allocation tracker uses to flag orphans.
type CatalogItemProjection struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Name      string    `gorm:"type:varchar(200);not null"`
	Active    bool      `gorm:"not null;default:true"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CatalogItemProjection) TableName() string {
	return "catalog_item_projections"
}

// GormCatalogResolver implements allocation.CatalogResolver against the
// catalog projection table
type GormCatalogResolver struct {
	db *gorm.DB
}

// NewGormCatalogResolver creates a new GormCatalogResolver
func NewGormCatalogResolver(db *gorm.DB) *GormCatalogResolver {
	return &GormCatalogResolver{db: db}
}

// Resolve returns the catalog entry for an item ID. Inactive or missing
// entries report shared.ErrNotFound.
func (r *GormCatalogResolver) Resolve(ctx context.Context, itemID uuid.UUID) (*allocation.CatalogItem, error) {
	var p CatalogItemProjection
	if err := r.db.WithContext(ctx).
		First(&p, "id = ? AND active = ?", itemID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &allocation.CatalogItem{ID: p.ID, Name: p.Name}, nil
}

// Ensure GormCatalogResolver implements CatalogResolver
var _ allocation.CatalogResolver = (*GormCatalogResolver)(nil)

// NoopCatalogResolver never resolves. Deployments whose catalog lives in
// another system use it; every allocation is created needs_relink with the
// caller-supplied label.
type NoopCatalogResolver struct{}

// NewNoopCatalogResolver creates a NoopCatalogResolver
func NewNoopCatalogResolver() *NoopCatalogResolver {
	return &NoopCatalogResolver{}
}

// Resolve always reports shared.ErrNotFound
func (NoopCatalogResolver) Resolve(_ context.Context, _ uuid.UUID) (*allocation.CatalogItem, error) {
	return nil, shared.ErrNotFound
}

// Ensure NoopCatalogResolver implements CatalogResolver
var _ allocation.CatalogResolver = (*NoopCatalogResolver)(nil)
