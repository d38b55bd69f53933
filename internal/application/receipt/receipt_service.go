package receipt

import (
	"context"
	"errors"

	"github.com/fieldops/stockledger/internal/domain/receipt"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Match source labels for ClearReceiptResponse.MatchedBy
const (
	MatchedByConfirmation = "confirmation_ref"
	MatchedByRunProject   = "delivery_run_project"
	MatchedByRunLatest    = "delivery_run_latest"
)

// ReceiptService tracks goods arriving at delivery points. Creation is
// idempotent by confirmation reference and clearing happens exactly once per
// receipt; both operations tolerate the retries delivery hardware produces.
type ReceiptService struct {
	receiptRepo receipt.Repository
	logger      *zap.Logger
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(receiptRepo receipt.Repository, logger *zap.Logger) *ReceiptService {
	return &ReceiptService{
		receiptRepo: receiptRepo,
		logger:      logger,
	}
}

// EnsureReceipt records that goods arrived for a delivery-stop confirmation.
// The same confirmation arriving again returns the existing receipt with
// Created false; two concurrent firsts are resolved by the store's unique
// constraint.
func (s *ReceiptService) EnsureReceipt(ctx context.Context, req EnsureReceiptRequest) (*EnsureReceiptResponse, error) {
	if existing, err := s.receiptRepo.FindByConfirmationRef(ctx, req.ConfirmationRef); err == nil {
		return &EnsureReceiptResponse{Receipt: ToReceiptResponse(existing)}, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	r, err := receipt.NewReceipt(req.ConfirmationRef, req.DeliveryRunRef, req.ProjectID)
	if err != nil {
		return nil, err
	}

	if err := s.receiptRepo.Create(ctx, r); err != nil {
		// Lost the race to a concurrent duplicate; return the winner.
		if existing, lookupErr := s.receiptRepo.FindByConfirmationRef(ctx, req.ConfirmationRef); lookupErr == nil {
			return &EnsureReceiptResponse{Receipt: ToReceiptResponse(existing)}, nil
		}
		return nil, err
	}

	s.logger.Info("Recorded receipt",
		zap.String("receipt_id", r.ID.String()),
		zap.String("confirmation_ref", r.ConfirmationRef),
	)
	return &EnsureReceiptResponse{Receipt: ToReceiptResponse(r), Created: true}, nil
}

// ClearReceipt closes out a delivery leg. The confirmation reference is the
// direct link; when it is missing or unknown the fallback scans open receipts
// on the delivery run, preferring one on the same project and otherwise
// taking the most recent. Clearing an already-cleared receipt is a no-op.
func (s *ReceiptService) ClearReceipt(ctx context.Context, req ClearReceiptRequest, actor shared.Actor) (*ClearReceiptResponse, error) {
	r, matchedBy, err := s.findForClear(ctx, req)
	if err != nil {
		return nil, err
	}

	changed := r.Clear(actor)
	if changed {
		if err := s.receiptRepo.Save(ctx, r); err != nil {
			return nil, err
		}
		s.logger.Info("Cleared receipt",
			zap.String("receipt_id", r.ID.String()),
			zap.String("matched_by", matchedBy),
		)
	}

	return &ClearReceiptResponse{
		Receipt:        ToReceiptResponse(r),
		Cleared:        changed,
		MatchedBy:      matchedBy,
		AlreadyCleared: !changed,
	}, nil
}

func (s *ReceiptService) findForClear(ctx context.Context, req ClearReceiptRequest) (*receipt.Receipt, string, error) {
	if req.ConfirmationRef != "" {
		r, err := s.receiptRepo.FindByConfirmationRef(ctx, req.ConfirmationRef)
		if err == nil {
			return r, MatchedByConfirmation, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, "", err
		}
		// Fall through to the run-based lookup.
	}

	if req.DeliveryRunRef == "" {
		return nil, "", shared.ErrNotFound
	}

	open, err := s.receiptRepo.FindOpenByDeliveryRun(ctx, req.DeliveryRunRef)
	if err != nil {
		return nil, "", err
	}
	if len(open) == 0 {
		return nil, "", shared.ErrNotFound
	}

	if req.ProjectID != nil {
		for i := range open {
			if open[i].ProjectID != nil && *open[i].ProjectID == *req.ProjectID {
				return &open[i], MatchedByRunProject, nil
			}
		}
	}
	// Ordered most recent first by the repository.
	return &open[0], MatchedByRunLatest, nil
}

// GetReceipt retrieves a receipt by ID
func (s *ReceiptService) GetReceipt(ctx context.Context, id uuid.UUID) (*ReceiptResponse, error) {
	r, err := s.receiptRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToReceiptResponse(r)
	return &response, nil
}

// ListByProject lists receipts for a project
func (s *ReceiptService) ListByProject(ctx context.Context, projectID uuid.UUID, filter ReceiptListFilter) ([]ReceiptResponse, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	receipts, err := s.receiptRepo.FindByProject(ctx, projectID, domainFilter)
	if err != nil {
		return nil, err
	}
	return ToReceiptResponses(receipts), nil
}
