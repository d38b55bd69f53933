package allocation

import (
	"context"
	"errors"

	ledgerapp "github.com/fieldops/stockledger/internal/application/ledger"
	"github.com/fieldops/stockledger/internal/domain/allocation"
	"github.com/fieldops/stockledger/internal/domain/ledger"
	"github.com/fieldops/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockWriter is the ledger write surface the tracker needs: every
// consumption with a resolvable source produces exactly one movement.
type StockWriter interface {
	RecordMovement(ctx context.Context, req ledgerapp.RecordMovementRequest, actor shared.Actor) (*ledgerapp.RecordMovementResponse, error)
}

// AllocationService manages reservations and actual usage of stock on
// projects and visits. Catalog lookups are best-effort and happen before
// any ledger write, never under a balance lock.
type AllocationService struct {
	allocationRepo  allocation.Repository
	consumptionRepo allocation.ConsumptionRepository
	catalogResolver allocation.CatalogResolver
	requirementRec  allocation.RequirementRecorder
	txScope         TransactionScope
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	allocationRepo allocation.Repository,
	consumptionRepo allocation.ConsumptionRepository,
	catalogResolver allocation.CatalogResolver,
	txScope TransactionScope,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{
		allocationRepo:  allocationRepo,
		consumptionRepo: consumptionRepo,
		catalogResolver: catalogResolver,
		txScope:         txScope,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *AllocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetRequirementRecorder sets the optional project-requirements collaborator
func (s *AllocationService) SetRequirementRecorder(rec allocation.RequirementRecorder) {
	s.requirementRec = rec
}

// CreateAllocation reserves quantity for a project or visit. A missing or
// unresolvable catalog item never blocks creation: the allocation is made
// with a placeholder label and flagged for relinking.
func (s *AllocationService) CreateAllocation(ctx context.Context, req CreateAllocationRequest) (*AllocationResponse, error) {
	itemName := ""
	itemID := req.ItemID
	if itemID != nil && s.catalogResolver != nil {
		item, err := s.catalogResolver.Resolve(ctx, *itemID)
		switch {
		case err == nil:
			itemName = item.Name
		case errors.Is(err, shared.ErrNotFound):
			s.logger.Warn("Catalog item not found, flagging allocation for relink",
				zap.String("item_id", itemID.String()),
			)
		default:
			s.logger.Warn("Catalog lookup failed, flagging allocation for relink",
				zap.String("item_id", itemID.String()),
				zap.Error(err),
			)
		}
	}

	alloc, err := allocation.NewAllocation(
		req.ProjectID, req.VisitID, itemID, itemName,
		req.Qty, req.SourceLocationID,
		allocation.LabelSourceCatalogLookup,
	)
	if err != nil {
		return nil, err
	}

	if err := s.allocationRepo.Save(ctx, alloc); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, allocation.NewAllocationCreatedEvent(alloc))
	s.logger.Info("Created allocation",
		zap.String("allocation_id", alloc.ID.String()),
		zap.Int64("qty", alloc.QtyAllocated),
		zap.Bool("needs_relink", alloc.NeedsRelink),
	)

	response := ToAllocationResponse(alloc, 0)
	return &response, nil
}

// GetAllocation retrieves an allocation with its cumulative consumption
func (s *AllocationService) GetAllocation(ctx context.Context, id uuid.UUID) (*AllocationResponse, error) {
	alloc, err := s.allocationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	consumed, err := s.consumptionRepo.SumByAllocation(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToAllocationResponse(alloc, consumed)
	return &response, nil
}

// ListByProject lists allocations for a project
func (s *AllocationService) ListByProject(ctx context.Context, projectID uuid.UUID, filter AllocationListFilter) ([]AllocationResponse, error) {
	allocations, err := s.allocationRepo.FindByProject(ctx, projectID, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	return s.withConsumedTotals(ctx, allocations)
}

// ListByVisit lists allocations for a visit
func (s *AllocationService) ListByVisit(ctx context.Context, visitID uuid.UUID, filter AllocationListFilter) ([]AllocationResponse, error) {
	allocations, err := s.allocationRepo.FindByVisit(ctx, visitID, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	return s.withConsumedTotals(ctx, allocations)
}

// FindOrphanAllocations lists allocations whose catalog link is broken and
// need manual triage
func (s *AllocationService) FindOrphanAllocations(ctx context.Context, filter AllocationListFilter) ([]AllocationResponse, error) {
	allocations, err := s.allocationRepo.FindNeedingRelink(ctx, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	return s.withConsumedTotals(ctx, allocations)
}

// RecordConsumption records actual usage. When the consumption draws against
// a reservation the over-consumption cap applies; ad-hoc usage with no
// reservation has no cap beyond the on-hand balance. A resolvable source
// location produces exactly one job_usage ledger movement, written in the
// same transaction as the consumption row so neither survives without the
// other.
func (s *AllocationService) RecordConsumption(ctx context.Context, req RecordConsumptionRequest, actor shared.Actor) (*ConsumptionResponse, error) {
	var consumption *allocation.Consumption
	var closed *allocation.Allocation

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var alloc *allocation.Allocation
		var alreadyConsumed int64

		projectID := req.ProjectID
		visitID := req.VisitID
		fromLocationID := req.ConsumedFromLocationID

		if req.AllocationID != nil {
			var err error
			// The row lock serializes concurrent draws against the same
			// reservation; the cap is checked on a total no other writer
			// can change until we commit.
			alloc, err = repos.AllocationRepo().FindByIDForUpdate(ctx, *req.AllocationID)
			if err != nil {
				return err
			}
			alreadyConsumed, err = repos.ConsumptionRepo().SumByAllocation(ctx, alloc.ID)
			if err != nil {
				return err
			}
			if err := alloc.CanConsume(req.Qty, alreadyConsumed); err != nil {
				return err
			}
			if projectID == nil {
				projectID = alloc.ProjectID
			}
			if visitID == nil {
				visitID = alloc.VisitID
			}
			if fromLocationID == nil {
				fromLocationID = alloc.SourceLocationID
			}
		}

		c, err := allocation.NewConsumption(
			req.AllocationID, projectID, visitID,
			req.ItemID, req.Qty, fromLocationID, actor,
		)
		if err != nil {
			return err
		}

		// Ledger write first: if stock cannot leave the source location the
		// consumption is not recorded either.
		if fromLocationID != nil {
			movementResp, err := repos.StockWriter().RecordMovement(ctx, ledgerapp.RecordMovementRequest{
				ItemID:         req.ItemID,
				FromLocationID: fromLocationID,
				Quantity:       req.Qty,
				Reason:         ledger.ReasonJobUsage.String(),
				ReferenceType:  "consumption",
				ReferenceID:    c.ID.String(),
			}, actor)
			if err != nil {
				return err
			}
			c.AttachMovement(movementResp.Movement.ID)
		}

		if err := repos.ConsumptionRepo().Create(ctx, c); err != nil {
			return err
		}

		if alloc != nil && alreadyConsumed+req.Qty >= alloc.QtyAllocated {
			alloc.MarkConsumed()
			if err := repos.AllocationRepo().Save(ctx, alloc); err != nil {
				return err
			}
			closed = alloc
		}

		consumption = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if closed != nil {
		s.publishEvents(ctx, allocation.NewAllocationConsumedEvent(closed))
	}

	s.logger.Info("Recorded consumption",
		zap.String("consumption_id", consumption.ID.String()),
		zap.String("item_id", req.ItemID.String()),
		zap.Int64("qty", req.Qty),
		zap.Bool("against_allocation", req.AllocationID != nil),
	)

	response := ToConsumptionResponse(consumption)
	return &response, nil
}

// CancelAllocation abandons an open reservation. No ledger movement is
// written; reserving never moved stock in the first place.
func (s *AllocationService) CancelAllocation(ctx context.Context, id uuid.UUID) (*AllocationResponse, error) {
	alloc, err := s.allocationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := alloc.Cancel(); err != nil {
		return nil, err
	}
	if err := s.allocationRepo.Save(ctx, alloc); err != nil {
		return nil, err
	}
	consumed, err := s.consumptionRepo.SumByAllocation(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToAllocationResponse(alloc, consumed)
	return &response, nil
}

// RelinkAllocation repairs a broken catalog link by hand. When requested and
// the allocation belongs to a project, a requirement line is also recorded
// with the external collaborator; its failure does not undo the repair.
func (s *AllocationService) RelinkAllocation(ctx context.Context, id uuid.UUID, req RelinkAllocationRequest) (*AllocationResponse, error) {
	alloc, err := s.allocationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := alloc.Relink(req.ItemID, req.ItemName); err != nil {
		return nil, err
	}
	if err := s.allocationRepo.Save(ctx, alloc); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, allocation.NewAllocationRelinkedEvent(alloc, req.ItemID))

	if req.RecordRequirement && s.requirementRec != nil && alloc.ProjectID != nil {
		if err := s.requirementRec.RecordRequirement(ctx, *alloc.ProjectID, req.ItemID, alloc.QtyAllocated); err != nil {
			s.logger.Warn("Failed to record requirement line after relink",
				zap.String("allocation_id", alloc.ID.String()),
				zap.String("project_id", alloc.ProjectID.String()),
				zap.Error(err),
			)
		}
	}

	consumed, err := s.consumptionRepo.SumByAllocation(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToAllocationResponse(alloc, consumed)
	return &response, nil
}

// ListConsumptionsByProject lists usage records for a project
func (s *AllocationService) ListConsumptionsByProject(ctx context.Context, projectID uuid.UUID, filter AllocationListFilter) ([]ConsumptionResponse, error) {
	consumptions, err := s.consumptionRepo.FindByProject(ctx, projectID, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	responses := make([]ConsumptionResponse, len(consumptions))
	for i := range consumptions {
		responses[i] = ToConsumptionResponse(&consumptions[i])
	}
	return responses, nil
}

func (s *AllocationService) withConsumedTotals(ctx context.Context, allocations []allocation.Allocation) ([]AllocationResponse, error) {
	responses := make([]AllocationResponse, len(allocations))
	for i := range allocations {
		consumed, err := s.consumptionRepo.SumByAllocation(ctx, allocations[i].ID)
		if err != nil {
			return nil, err
		}
		responses[i] = ToAllocationResponse(&allocations[i], consumed)
	}
	return responses, nil
}

func (s *AllocationService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish allocation events", zap.Error(err))
	}
}

func toDomainFilter(filter AllocationListFilter) shared.Filter {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	return domainFilter
}
