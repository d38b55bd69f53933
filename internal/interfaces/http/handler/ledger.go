package handler

import (
	ledgerapp "github.com/fieldops/stockledger/internal/application/ledger"
	"github.com/fieldops/stockledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// LedgerHandler handles movement and balance API endpoints
type LedgerHandler struct {
	BaseHandler
	ledgerService *ledgerapp.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *ledgerapp.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
	}
}

// RegisterRoutes registers ledger routes on the given group
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	movements := rg.Group("/movements")
	{
		movements.POST("", h.RecordMovement)
		movements.GET("", h.GetMovementsByReference)
		movements.GET("/:id", h.GetMovement)
		movements.POST("/:id/reverse", h.ReverseMovement)
	}

	locations := rg.Group("/locations/:id")
	{
		locations.GET("/movements", h.GetMovementsByLocation)
		locations.GET("/balances", h.ListBalancesByLocation)
		locations.GET("/balances/:item_id", h.GetBalance)
		locations.POST("/balances/:item_id/recompute", h.RecomputeBalance)
	}

	items := rg.Group("/items/:id")
	{
		items.GET("/movements", h.GetMovementsByItem)
		items.GET("/balances", h.ListBalancesByItem)
	}
}

// RecordMovement appends a movement to the ledger. A retry carrying the same
// reference returns the original movement with already_recorded set.
func (h *LedgerHandler) RecordMovement(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Acting user is required to record movements")
		return
	}

	var req ledgerapp.RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.ledgerService.RecordMovement(c.Request.Context(), req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if resp.AlreadyRecorded {
		h.Success(c, resp)
		return
	}
	h.Created(c, resp)
}

// GetMovement retrieves a single movement by ID
func (h *LedgerHandler) GetMovement(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid movement ID format")
		return
	}

	movement, err := h.ledgerService.GetMovement(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, movement)
}

// ReverseMovement appends a compensating movement for the given one
func (h *LedgerHandler) ReverseMovement(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Acting user is required to reverse movements")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid movement ID format")
		return
	}

	resp, err := h.ledgerService.ReverseMovement(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if resp.AlreadyRecorded {
		h.Success(c, resp)
		return
	}
	h.Created(c, resp)
}

// GetMovementsByReference lists every movement recorded for a business
// document, in the order they happened
func (h *LedgerHandler) GetMovementsByReference(c *gin.Context) {
	refType := c.Query("reference_type")
	refID := c.Query("reference_id")
	if refType == "" || refID == "" {
		h.BadRequest(c, "reference_type and reference_id are required")
		return
	}

	movements, err := h.ledgerService.GetMovementsByReference(c.Request.Context(), refType, refID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, movements)
}

// GetMovementsByLocation lists movements touching a location
func (h *LedgerHandler) GetMovementsByLocation(c *gin.Context) {
	locationID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid location ID format")
		return
	}

	var filter ledgerapp.MovementListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	movements, err := h.ledgerService.GetMovementsByLocation(c.Request.Context(), locationID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, movements)
}

// GetMovementsByItem lists movements of an item across all locations
func (h *LedgerHandler) GetMovementsByItem(c *gin.Context) {
	itemID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var filter ledgerapp.MovementListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	movements, err := h.ledgerService.GetMovementsByItem(c.Request.Context(), itemID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, movements)
}

// GetBalance retrieves the on-hand quantity for one location and item.
// Pairs the ledger never touched read as zero.
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	locationID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid location ID format")
		return
	}
	itemID, err := parseIDParam(c, "item_id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), locationID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// ListBalancesByLocation lists balances held at a location
func (h *LedgerHandler) ListBalancesByLocation(c *gin.Context) {
	locationID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid location ID format")
		return
	}

	var filter ledgerapp.BalanceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	balances, err := h.ledgerService.ListBalancesByLocation(c.Request.Context(), locationID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balances)
}

// ListBalancesByItem lists where an item sits across locations
func (h *LedgerHandler) ListBalancesByItem(c *gin.Context) {
	itemID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var filter ledgerapp.BalanceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	balances, err := h.ledgerService.ListBalancesByItem(c.Request.Context(), itemID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balances)
}

// RecomputeBalance rebuilds one cached balance from the movement history
func (h *LedgerHandler) RecomputeBalance(c *gin.Context) {
	locationID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid location ID format")
		return
	}
	itemID, err := parseIDParam(c, "item_id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	result, err := h.ledgerService.RecomputeBalance(c.Request.Context(), locationID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
