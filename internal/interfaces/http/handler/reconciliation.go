package handler

import (
	ledgerapp "github.com/fieldops/stockledger/internal/application/ledger"
	"github.com/fieldops/stockledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconciliationHandler handles on-demand balance reconciliation endpoints
type ReconciliationHandler struct {
	BaseHandler
	reconciliationService *ledgerapp.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(reconciliationService *ledgerapp.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
	}
}

// RegisterRoutes registers reconciliation routes on the given group
func (h *ReconciliationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reconciliation := rg.Group("/reconciliation")
	{
		reconciliation.POST("/run", h.Run)
		reconciliation.POST("/pair", h.RunPair)
	}
}

// RunReconciliationRequest optionally narrows a run to specific locations
type RunReconciliationRequest struct {
	LocationIDs []uuid.UUID `json:"location_ids"`
}

// ReconcilePairRequest names the single balance to check
type ReconcilePairRequest struct {
	LocationID uuid.UUID `json:"location_id" binding:"required"`
	ItemID     uuid.UUID `json:"item_id" binding:"required"`
}

// Run reconciles every pair the ledger has touched, optionally filtered by
// location. A second concurrent run is refused while the first holds the
// job lease.
func (h *ReconciliationHandler) Run(c *gin.Context) {
	var req RunReconciliationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	report, err := h.reconciliationService.ReconcileAll(c.Request.Context(), req.LocationIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// RunPair reconciles a single (location, item) balance
func (h *ReconciliationHandler) RunPair(c *gin.Context) {
	var req ReconcilePairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.reconciliationService.ReconcilePair(c.Request.Context(), req.LocationID, req.ItemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
