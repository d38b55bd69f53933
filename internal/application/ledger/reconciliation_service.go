package ledger

import (
	"context"
	"time"

	"github.com/fieldops/stockledger/internal/domain/ledger"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// ReconciliationLockName is the shared lease key that keeps concurrent
	// reconciliation runs from double-correcting the same pairs
	ReconciliationLockName = "stock_ledger:reconciliation"
	// ReconciliationLockTTL bounds how long a crashed run holds the lease
	ReconciliationLockTTL = 30 * time.Minute
)

// JobLock is a distributed lease for single-runner background jobs
type JobLock interface {
	// Acquire attempts to take the named lease; returns false when another
	// runner already holds it
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	// Release gives the named lease back
	Release(ctx context.Context, name string) error
}

// ReconciliationReport summarizes one reconciliation run
type ReconciliationReport struct {
	TotalPairs  int               `json:"total_pairs"`
	Checked     int               `json:"checked"`
	Drifted     int               `json:"drifted"`
	Failed      int               `json:"failed"`
	Corrections []RecomputeResult `json:"corrections,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Interrupted bool              `json:"interrupted"`
}

// ReconciliationService recomputes cached balances from the movement ledger.
// Each pair gets its own short transaction so a long run never blocks live
// movement writes, and a second run over an already-consistent ledger is a
// no-op.
type ReconciliationService struct {
	movementRepo  ledger.MovementRepository
	ledgerService *LedgerService
	jobLock       JobLock
	logger        *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	movementRepo ledger.MovementRepository,
	ledgerService *LedgerService,
	jobLock JobLock,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		movementRepo:  movementRepo,
		ledgerService: ledgerService,
		jobLock:       jobLock,
		logger:        logger,
	}
}

// ReconcileAll checks every (location, item) pair the ledger has ever touched
// and corrects drifted balances. An empty locationFilter means all locations.
// Only one run executes at a time; a second caller gets ErrAlreadyExists.
func (s *ReconciliationService) ReconcileAll(ctx context.Context, locationFilter []uuid.UUID) (*ReconciliationReport, error) {
	if s.jobLock != nil {
		acquired, err := s.jobLock.Acquire(ctx, ReconciliationLockName, ReconciliationLockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			s.logger.Info("Reconciliation already running, skipping")
			return nil, shared.ErrAlreadyExists
		}
		defer func() {
			if err := s.jobLock.Release(context.WithoutCancel(ctx), ReconciliationLockName); err != nil {
				s.logger.Warn("Failed to release reconciliation lease", zap.Error(err))
			}
		}()
	}

	report := &ReconciliationReport{StartedAt: time.Now()}

	pairs, err := s.movementRepo.ListPairs(ctx, locationFilter)
	if err != nil {
		return nil, err
	}
	report.TotalPairs = len(pairs)

	s.logger.Info("Starting balance reconciliation",
		zap.Int("pairs", report.TotalPairs),
		zap.Int("location_filter", len(locationFilter)),
	)

	for _, pair := range pairs {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}

		result, err := s.ledgerService.RecomputeBalance(ctx, pair.LocationID, pair.ItemID)
		if err != nil {
			report.Failed++
			s.logger.Error("Failed to reconcile pair",
				zap.String("location_id", pair.LocationID.String()),
				zap.String("item_id", pair.ItemID.String()),
				zap.Error(err),
			)
			continue
		}
		report.Checked++
		if result.Drifted {
			report.Drifted++
			report.Corrections = append(report.Corrections, *result)
		}
	}

	report.FinishedAt = time.Now()
	s.logger.Info("Completed balance reconciliation",
		zap.Int("checked", report.Checked),
		zap.Int("drifted", report.Drifted),
		zap.Int("failed", report.Failed),
		zap.Bool("interrupted", report.Interrupted),
	)

	return report, nil
}

// ReconcilePair reconciles a single (location, item) pair on demand
func (s *ReconciliationService) ReconcilePair(ctx context.Context, locationID, itemID uuid.UUID) (*RecomputeResult, error) {
	return s.ledgerService.RecomputeBalance(ctx, locationID, itemID)
}
