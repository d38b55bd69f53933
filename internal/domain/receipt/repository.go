package receipt

import (
	"context"

	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines the interface for receipt persistence
type Repository interface {
	// FindByID finds a receipt by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Receipt, error)

	// FindByConfirmationRef finds a receipt by its delivery-stop confirmation
	// reference, returning shared.ErrNotFound when absent
	FindByConfirmationRef(ctx context.Context, confirmationRef string) (*Receipt, error)

	// FindOpenByDeliveryRun lists open receipts on a delivery run, most
	// recent first (fallback lookup when the direct link is missing)
	FindOpenByDeliveryRun(ctx context.Context, deliveryRunRef string) ([]Receipt, error)

	// FindByProject lists receipts for a project
	FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]Receipt, error)

	// Create creates a receipt; the unique confirmation reference makes
	// concurrent duplicate creation fail at the store
	Create(ctx context.Context, r *Receipt) error

	// Save updates a receipt
	Save(ctx context.Context, r *Receipt) error
}
