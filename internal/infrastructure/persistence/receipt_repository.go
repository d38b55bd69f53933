package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/fieldops/stockledger/internal/domain/receipt"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReceiptRepository implements receipt.Repository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// FindByID finds a receipt by its ID
func (r *GormReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*receipt.Receipt, error) {
	var rec receipt.Receipt
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindByConfirmationRef finds a receipt by its delivery-stop confirmation reference
func (r *GormReceiptRepository) FindByConfirmationRef(ctx context.Context, confirmationRef string) (*receipt.Receipt, error) {
	var rec receipt.Receipt
	if err := r.db.WithContext(ctx).
		First(&rec, "confirmation_ref = ?", confirmationRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindOpenByDeliveryRun lists open receipts on a delivery run, most recent first
func (r *GormReceiptRepository) FindOpenByDeliveryRun(ctx context.Context, deliveryRunRef string) ([]receipt.Receipt, error) {
	var receipts []receipt.Receipt
	if err := r.db.WithContext(ctx).
		Where("delivery_run_ref = ? AND status = ?", deliveryRunRef, receipt.StatusOpen).
		Order("received_at DESC").
		Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

// FindByProject lists receipts for a project
func (r *GormReceiptRepository) FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]receipt.Receipt, error) {
	var receipts []receipt.Receipt
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&receipt.Receipt{}).
			Where("project_id = ?", projectID),
		filter,
	)
	if err := query.Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

// Create creates a receipt. The unique confirmation reference surfaces a
// concurrent duplicate as shared.ErrAlreadyExists.
func (r *GormReceiptRepository) Create(ctx context.Context, rec *receipt.Receipt) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Save updates a receipt
func (r *GormReceiptRepository) Save(ctx context.Context, rec *receipt.Receipt) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

// applyFilter applies filter options to the query
func (r *GormReceiptRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, ReceiptSortFields, "received_at")
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(orderBy + " " + orderDir)
	} else {
		query = query.Order("received_at DESC")
	}

	return query
}

// Ensure GormReceiptRepository implements Repository
var _ receipt.Repository = (*GormReceiptRepository)(nil)
