package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldops/stockledger/internal/domain/ledger"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService handles movement recording and balance queries. All writes go
// through the transaction scope so the appended movement and the touched
// balance rows commit atomically.
type LedgerService struct {
	movementRepo   ledger.MovementRepository
	balanceRepo    ledger.BalanceRepository
	txScope        TransactionScope
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	movementRepo ledger.MovementRepository,
	balanceRepo ledger.BalanceRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		movementRepo: movementRepo,
		balanceRepo:  balanceRepo,
		txScope:      txScope,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *LedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// RecordMovement appends a movement and applies its delta to the affected
// balance rows in one transaction. Retries with the same reference and item
// return the original movement instead of appending twice.
func (s *LedgerService) RecordMovement(ctx context.Context, req RecordMovementRequest, actor shared.Actor) (*RecordMovementResponse, error) {
	movement, err := ledger.NewMovement(
		req.ItemID,
		req.FromLocationID,
		req.ToLocationID,
		req.Quantity,
		ledger.Reason(req.Reason),
		ledger.Reference{Type: req.ReferenceType, ID: req.ReferenceID},
		actor,
	)
	if err != nil {
		return nil, err
	}

	// Fast path: a retry of an already-applied write.
	if existing, err := s.movementRepo.FindByIdempotencyKey(ctx, movement.IdempotencyKey); err == nil {
		return &RecordMovementResponse{Movement: ToMovementResponse(existing), AlreadyRecorded: true}, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if err := s.applyAndAppend(ctx, movement); err != nil {
		// A concurrent writer with the same key may have won the race; the
		// unique index turned our append into a conflict. Resolve it as a
		// successful retry.
		if existing, lookupErr := s.movementRepo.FindByIdempotencyKey(ctx, movement.IdempotencyKey); lookupErr == nil {
			return &RecordMovementResponse{Movement: ToMovementResponse(existing), AlreadyRecorded: true}, nil
		}
		return nil, err
	}

	s.publishEvents(ctx, ledger.NewMovementRecordedEvent(movement))
	s.logger.Info("Recorded stock movement",
		zap.String("movement_id", movement.ID.String()),
		zap.String("item_id", movement.ItemID.String()),
		zap.Int64("quantity", movement.Quantity),
		zap.String("reason", movement.Reason.String()),
	)

	return &RecordMovementResponse{Movement: ToMovementResponse(movement)}, nil
}

// ReverseMovement appends a compensating movement with swapped endpoints.
// The original stays untouched; reversing the same movement twice returns the
// first reversal. Reversing a reversal is allowed but flagged for review.
func (s *LedgerService) ReverseMovement(ctx context.Context, movementID uuid.UUID, actor shared.Actor) (*ReverseMovementResponse, error) {
	original, err := s.movementRepo.FindByID(ctx, movementID)
	if err != nil {
		return nil, err
	}

	reversal, err := ledger.NewMovement(
		original.ItemID,
		original.ToLocationID,
		original.FromLocationID,
		original.Quantity,
		ledger.ReasonReversal,
		ledger.Reference{Type: "movement_reversal", ID: original.ID.String()},
		actor,
	)
	if err != nil {
		return nil, err
	}

	reversalOfReversal := original.IsReversal()
	if reversalOfReversal {
		s.logger.Warn("Reversing a reversal movement",
			zap.String("original_id", original.ID.String()),
		)
	}

	if existing, err := s.movementRepo.FindByIdempotencyKey(ctx, reversal.IdempotencyKey); err == nil {
		return &ReverseMovementResponse{
			Reversal:           ToMovementResponse(existing),
			OriginalID:         original.ID,
			ReversalOfReversal: reversalOfReversal,
			AlreadyRecorded:    true,
		}, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if err := s.applyAndAppend(ctx, reversal); err != nil {
		if existing, lookupErr := s.movementRepo.FindByIdempotencyKey(ctx, reversal.IdempotencyKey); lookupErr == nil {
			return &ReverseMovementResponse{
				Reversal:           ToMovementResponse(existing),
				OriginalID:         original.ID,
				ReversalOfReversal: reversalOfReversal,
				AlreadyRecorded:    true,
			}, nil
		}
		return nil, err
	}

	s.publishEvents(ctx, ledger.NewMovementReversedEvent(original, reversal))
	s.logger.Info("Reversed stock movement",
		zap.String("original_id", original.ID.String()),
		zap.String("reversal_id", reversal.ID.String()),
	)

	return &ReverseMovementResponse{
		Reversal:           ToMovementResponse(reversal),
		OriginalID:         original.ID,
		ReversalOfReversal: reversalOfReversal,
	}, nil
}

// applyAndAppend runs the transactional core of a movement write: lock the
// touched balance rows, apply the signed deltas, append the movement.
func (s *LedgerService) applyAndAppend(ctx context.Context, movement *ledger.Movement) error {
	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, locationID := range lockOrder(movement.FromLocationID, movement.ToLocationID) {
			balance, err := s.lockBalance(ctx, repos, movement, locationID)
			if err != nil {
				return err
			}
			if err := balance.Apply(movement); err != nil {
				return err
			}
			if err := repos.BalanceRepo().Save(ctx, balance); err != nil {
				return err
			}
		}
		return repos.MovementRepo().Create(ctx, movement)
	})
}

// lockBalance fetches the balance row for the movement's item at the given
// location under a row lock. Destination rows are created lazily on first
// touch; a missing source row holds nothing and fails the deduction.
func (s *LedgerService) lockBalance(ctx context.Context, repos TransactionalRepositories, movement *ledger.Movement, locationID uuid.UUID) (*ledger.QuantityBalance, error) {
	if movement.ToLocationID != nil && *movement.ToLocationID == locationID {
		return repos.BalanceRepo().GetOrCreateForUpdate(ctx, locationID, movement.ItemID)
	}
	balance, err := repos.BalanceRepo().FindByPairForUpdate(ctx, locationID, movement.ItemID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("no stock of item %s at location %s: %w", movement.ItemID, locationID, shared.ErrInsufficientStock)
	}
	return balance, err
}

// lockOrder returns the movement's endpoints in a stable global order so two
// concurrent transfers over the same pair of locations never lock them in
// opposite sequence.
func lockOrder(from, to *uuid.UUID) []uuid.UUID {
	switch {
	case from == nil && to == nil:
		return nil
	case from == nil:
		return []uuid.UUID{*to}
	case to == nil:
		return []uuid.UUID{*from}
	}
	a, b := *from, *to
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return []uuid.UUID{a, b}
}

// GetMovement retrieves a movement by ID
func (s *LedgerService) GetMovement(ctx context.Context, id uuid.UUID) (*MovementResponse, error) {
	movement, err := s.movementRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToMovementResponse(movement)
	return &response, nil
}

// GetMovementsByReference retrieves all movements triggered by a business event
func (s *LedgerService) GetMovementsByReference(ctx context.Context, refType, refID string) ([]MovementResponse, error) {
	movements, err := s.movementRepo.FindByReference(ctx, ledger.Reference{Type: refType, ID: refID})
	if err != nil {
		return nil, err
	}
	return ToMovementResponses(movements), nil
}

// GetMovementsByLocation retrieves the movement history touching a location
func (s *LedgerService) GetMovementsByLocation(ctx context.Context, locationID uuid.UUID, filter MovementListFilter) ([]MovementResponse, error) {
	movements, err := s.movementRepo.FindByLocation(ctx, locationID, filter.From, filter.To, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	return ToMovementResponses(movements), nil
}

// GetMovementsByItem retrieves the movement history for an item across locations
func (s *LedgerService) GetMovementsByItem(ctx context.Context, itemID uuid.UUID, filter MovementListFilter) ([]MovementResponse, error) {
	movements, err := s.movementRepo.FindByItem(ctx, itemID, filter.From, filter.To, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	return ToMovementResponses(movements), nil
}

// GetBalance returns the on-hand quantity for a (location, item) pair.
// A pair never touched by any movement reads as zero, not as an error.
func (s *LedgerService) GetBalance(ctx context.Context, locationID, itemID uuid.UUID) (*BalanceResponse, error) {
	balance, err := s.balanceRepo.FindByPair(ctx, locationID, itemID)
	if errors.Is(err, shared.ErrNotFound) {
		return &BalanceResponse{LocationID: locationID, ItemID: itemID, Quantity: 0, UpdatedAt: time.Now()}, nil
	}
	if err != nil {
		return nil, err
	}
	response := ToBalanceResponse(balance)
	return &response, nil
}

// ListBalancesByLocation lists on-hand balances at a location
func (s *LedgerService) ListBalancesByLocation(ctx context.Context, locationID uuid.UUID, filter BalanceListFilter) ([]BalanceResponse, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.NonZero {
		domainFilter.Filters["non_zero"] = true
	}
	balances, err := s.balanceRepo.FindByLocation(ctx, locationID, domainFilter)
	if err != nil {
		return nil, err
	}
	return ToBalanceResponses(balances), nil
}

// ListBalancesByItem lists where an item is held and in what quantity
func (s *LedgerService) ListBalancesByItem(ctx context.Context, itemID uuid.UUID, filter BalanceListFilter) ([]BalanceResponse, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.NonZero {
		domainFilter.Filters["non_zero"] = true
	}
	balances, err := s.balanceRepo.FindByItem(ctx, itemID, domainFilter)
	if err != nil {
		return nil, err
	}
	return ToBalanceResponses(balances), nil
}

// RecomputeBalance replays the full movement history for one pair and
// overwrites the cached quantity when it has drifted. The balance row is held
// under a lock for the duration so no movement can slip between the replay
// and the overwrite.
func (s *LedgerService) RecomputeBalance(ctx context.Context, locationID, itemID uuid.UUID) (*RecomputeResult, error) {
	result := &RecomputeResult{LocationID: locationID, ItemID: itemID}
	var corrected *ledger.BalanceCorrectedEvent

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		balance, err := repos.BalanceRepo().GetOrCreateForUpdate(ctx, locationID, itemID)
		if err != nil {
			return err
		}
		movements, err := repos.MovementRepo().FindForPair(ctx, locationID, itemID)
		if err != nil {
			return err
		}

		result.OldQuantity = balance.Quantity
		result.NewQuantity = ledger.ReplayQuantity(locationID, movements)

		if result.OldQuantity == result.NewQuantity {
			return nil
		}
		result.Drifted = true

		var lastID *uuid.UUID
		if len(movements) > 0 {
			id := movements[len(movements)-1].ID
			lastID = &id
		}
		balance.Overwrite(result.NewQuantity, lastID)
		if err := repos.BalanceRepo().Save(ctx, balance); err != nil {
			return err
		}
		corrected = ledger.NewBalanceCorrectedEvent(balance, result.OldQuantity)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if corrected != nil {
		s.publishEvents(ctx, corrected)
		s.logger.Warn("Corrected drifted balance",
			zap.String("location_id", locationID.String()),
			zap.String("item_id", itemID.String()),
			zap.Int64("old_quantity", result.OldQuantity),
			zap.Int64("new_quantity", result.NewQuantity),
		)
	}

	return result, nil
}

func (s *LedgerService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish ledger events", zap.Error(err))
	}
}

func toDomainFilter(filter MovementListFilter) shared.Filter {
	domainFilter := shared.DefaultFilter()
	domainFilter.OrderBy = "performed_at"
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	return domainFilter
}
