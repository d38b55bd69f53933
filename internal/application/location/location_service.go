package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldops/stockledger/internal/domain/ledger"
	"github.com/fieldops/stockledger/internal/domain/location"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocationService manages the stock location registry: registration with the
// single-active-warehouse rule, retirement, deletability checks and legacy
// backfill.
type LocationService struct {
	locationRepo     location.Repository
	movementRepo     ledger.MovementRepository
	balanceRepo      ledger.BalanceRepository
	purchaseLineRepo location.PurchaseLineRepository
	eventPublisher   shared.EventPublisher
	logger           *zap.Logger
}

// NewLocationService creates a new LocationService
func NewLocationService(
	locationRepo location.Repository,
	movementRepo ledger.MovementRepository,
	balanceRepo ledger.BalanceRepository,
	purchaseLineRepo location.PurchaseLineRepository,
	logger *zap.Logger,
) *LocationService {
	return &LocationService{
		locationRepo:     locationRepo,
		movementRepo:     movementRepo,
		balanceRepo:      balanceRepo,
		purchaseLineRepo: purchaseLineRepo,
		logger:           logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *LocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateLocation registers a new location. At most one warehouse may be
// active at any time; a second one is refused, not demoted.
func (s *LocationService) CreateLocation(ctx context.Context, req CreateLocationRequest) (*LocationResponse, error) {
	kind := location.Kind(req.Kind)

	if kind == location.KindWarehouse {
		count, err := s.locationRepo.CountActiveWarehouses(ctx, nil)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, shared.NewDomainError("WAREHOUSE_EXISTS", "An active warehouse already exists")
		}
	}

	var owner *location.OwnerRef
	if req.OwnerType != "" || req.OwnerID != "" {
		owner = &location.OwnerRef{Type: req.OwnerType, ID: req.OwnerID}
	}

	loc, err := location.NewLocation(req.Name, kind, owner)
	if err != nil {
		return nil, err
	}
	loc.Note = req.Note

	if err := s.locationRepo.Save(ctx, loc); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, location.NewLocationCreatedEvent(loc))
	s.logger.Info("Registered location",
		zap.String("location_id", loc.ID.String()),
		zap.String("name", loc.Name),
		zap.String("kind", loc.Kind.String()),
	)

	response := ToLocationResponse(loc)
	return &response, nil
}

// GetLocation retrieves a location by ID
func (s *LocationService) GetLocation(ctx context.Context, id uuid.UUID) (*LocationResponse, error) {
	loc, err := s.locationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToLocationResponse(loc)
	return &response, nil
}

// ListLocations lists locations with optional kind and active filters
func (s *LocationService) ListLocations(ctx context.Context, filter LocationListFilter) ([]LocationResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}

	var (
		locations []location.Location
		err       error
	)
	if filter.Kind != "" {
		locations, err = s.locationRepo.FindByKind(ctx, location.Kind(filter.Kind), filter.ActiveOnly, domainFilter)
	} else {
		locations, err = s.locationRepo.FindAll(ctx, filter.ActiveOnly, domainFilter)
	}
	if err != nil {
		return nil, 0, err
	}

	total, err := s.locationRepo.Count(ctx, filter.ActiveOnly, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToLocationResponses(locations), total, nil
}

// UpdateLocation updates soft fields under the optimistic version contract.
// A request carrying a version the store has moved past gets ErrStaleWrite
// and must re-read before retrying.
func (s *LocationService) UpdateLocation(ctx context.Context, id uuid.UUID, req UpdateLocationRequest) (*LocationResponse, error) {
	loc, err := s.locationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc.Version != req.Version {
		return nil, shared.ErrStaleWrite
	}

	if err := loc.Rename(req.Name, req.Note); err != nil {
		return nil, err
	}

	if err := s.locationRepo.SaveWithVersion(ctx, loc); err != nil {
		return nil, err
	}

	response := ToLocationResponse(loc)
	return &response, nil
}

// RetireLocation deactivates a location. Retiring twice is a no-op, and the
// record is never removed while the ledger references it.
func (s *LocationService) RetireLocation(ctx context.Context, id uuid.UUID) (*LocationResponse, error) {
	loc, err := s.locationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	loc.Retire()
	if err := s.locationRepo.Save(ctx, loc); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, loc.GetDomainEvents()...)
	loc.ClearDomainEvents()

	response := ToLocationResponse(loc)
	return &response, nil
}

// ActivateLocation re-activates a retired location, re-checking the
// single-active-warehouse rule
func (s *LocationService) ActivateLocation(ctx context.Context, id uuid.UUID) (*LocationResponse, error) {
	loc, err := s.locationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if loc.Kind == location.KindWarehouse && !loc.Active {
		count, err := s.locationRepo.CountActiveWarehouses(ctx, &id)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, shared.NewDomainError("WAREHOUSE_EXISTS", "An active warehouse already exists")
		}
	}

	loc.Activate()
	if err := s.locationRepo.Save(ctx, loc); err != nil {
		return nil, err
	}

	response := ToLocationResponse(loc)
	return &response, nil
}

// CheckDeletable reports whether a location could be hard-deleted and
// itemizes every blocker when it cannot. The engine never deletes; the
// report feeds an operator decision.
func (s *LocationService) CheckDeletable(ctx context.Context, id uuid.UUID) (*location.DeletabilityReport, error) {
	if _, err := s.locationRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}

	report := &location.DeletabilityReport{LocationID: id}

	nonZero, err := s.balanceRepo.CountNonZeroByLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	report.NonZeroBalances = nonZero

	movements, err := s.movementRepo.CountByLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	report.StockMovements = movements

	if s.purchaseLineRepo != nil {
		openLines, err := s.purchaseLineRepo.CountOpenByDestination(ctx, id)
		if err != nil {
			return nil, err
		}
		report.OpenPurchaseLines = openLines
	}

	report.Deletable = report.NonZeroBalances == 0 && report.StockMovements == 0 && report.OpenPurchaseLines == 0
	return report, nil
}

// BulkBackfill imports legacy location records. The natural key is the owner
// reference when present, otherwise the exact name; records already imported
// are skipped so reruns are safe. Free-text kinds are canonicalized, and a
// warehouse entry that would break the single-active-warehouse rule is
// imported retired instead of refused.
func (s *LocationService) BulkBackfill(ctx context.Context, req BackfillRequest) (*BackfillReport, error) {
	report := &BackfillReport{}

	for _, entry := range req.Entries {
		created, demoted, err := s.backfillOne(ctx, entry)
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", entry.Name, err))
			s.logger.Warn("Backfill entry failed",
				zap.String("name", entry.Name),
				zap.Error(err),
			)
			continue
		}
		if !created {
			report.Skipped++
			continue
		}
		report.Created++
		if demoted {
			report.Demoted++
		}
	}

	s.logger.Info("Completed location backfill",
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("demoted", report.Demoted),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *LocationService) backfillOne(ctx context.Context, entry BackfillEntry) (created, demoted bool, err error) {
	existing, err := s.findByNaturalKey(ctx, entry)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return false, false, err
	}
	if existing != nil {
		return false, false, nil
	}

	kind := location.NormalizeKind(entry.RawKind)

	var owner *location.OwnerRef
	if entry.OwnerType != "" || entry.OwnerID != "" {
		owner = &location.OwnerRef{Type: entry.OwnerType, ID: entry.OwnerID}
	}

	loc, err := location.NewLocation(entry.Name, kind, owner)
	if err != nil {
		return false, false, err
	}
	loc.Note = entry.Note

	if kind == location.KindWarehouse {
		count, err := s.locationRepo.CountActiveWarehouses(ctx, nil)
		if err != nil {
			return false, false, err
		}
		if count > 0 {
			loc.Active = false
			demoted = true
		}
	}

	if err := s.locationRepo.Save(ctx, loc); err != nil {
		return false, false, err
	}
	return true, demoted, nil
}

func (s *LocationService) findByNaturalKey(ctx context.Context, entry BackfillEntry) (*location.Location, error) {
	if entry.OwnerType != "" && entry.OwnerID != "" {
		return s.locationRepo.FindByOwner(ctx, entry.OwnerType, entry.OwnerID)
	}
	return s.locationRepo.FindByName(ctx, entry.Name)
}

func (s *LocationService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish location events", zap.Error(err))
	}
}
