package persistence

import (
	"context"
	"time"

	"github.com/fieldops/stockledger/internal/domain/location"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseLineProjection is the read model of purchase-order lines the
// receiving workflow maintains. The engine only consults it for the
// location deletability check.
type PurchaseLineProjection struct {
	ID                    uuid.UUID `gorm:"type:uuid;primary_key"`
	DestinationLocationID uuid.UUID `gorm:"type:uuid;not null;index:idx_purchase_line_dest"`
	Status                string    `gorm:"type:varchar(20);not null;index:idx_purchase_line_status"`
	UpdatedAt             time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseLineProjection) TableName() string {
	return "purchase_line_projections"
}

// GormPurchaseLineRepository implements location.PurchaseLineRepository using GORM
type GormPurchaseLineRepository struct {
	db *gorm.DB
}

// NewGormPurchaseLineRepository creates a new GormPurchaseLineRepository
func NewGormPurchaseLineRepository(db *gorm.DB) *GormPurchaseLineRepository {
	return &GormPurchaseLineRepository{db: db}
}

// CountOpenByDestination counts open purchase-order lines destined for a location
func (r *GormPurchaseLineRepository) CountOpenByDestination(ctx context.Context, locationID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&PurchaseLineProjection{}).
		Where("destination_location_id = ? AND status = ?", locationID, "open").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormPurchaseLineRepository implements PurchaseLineRepository
var _ location.PurchaseLineRepository = (*GormPurchaseLineRepository)(nil)
