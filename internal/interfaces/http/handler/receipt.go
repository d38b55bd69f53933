package handler

import (
	receiptapp "github.com/fieldops/stockledger/internal/application/receipt"
	"github.com/fieldops/stockledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// ReceiptHandler handles delivery receipt API endpoints
type ReceiptHandler struct {
	BaseHandler
	receiptService *receiptapp.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receiptService *receiptapp.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
	}
}

// RegisterRoutes registers receipt routes on the given group
func (h *ReceiptHandler) RegisterRoutes(rg *gin.RouterGroup) {
	receipts := rg.Group("/receipts")
	{
		receipts.POST("/ensure", h.Ensure)
		receipts.POST("/clear", h.Clear)
		receipts.GET("/:id", h.Get)
	}

	rg.GET("/projects/:id/receipts", h.ListByProject)
}

// Ensure records a delivery-stop confirmation. Replays of the same
// confirmation return the existing receipt.
func (h *ReceiptHandler) Ensure(c *gin.Context) {
	var req receiptapp.EnsureReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.receiptService.EnsureReceipt(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if resp.Created {
		h.Created(c, resp)
		return
	}
	h.Success(c, resp)
}

// Clear closes out a delivery leg, matching by confirmation ref first and
// falling back to the run and project
func (h *ReceiptHandler) Clear(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Acting user is required to clear receipts")
		return
	}

	var req receiptapp.ClearReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.receiptService.ClearReceipt(c.Request.Context(), req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Get retrieves a receipt by ID
func (h *ReceiptHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	receipt, err := h.receiptService.GetReceipt(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, receipt)
}

// ListByProject lists receipts belonging to a project
func (h *ReceiptHandler) ListByProject(c *gin.Context) {
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	var filter receiptapp.ReceiptListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receipts, err := h.receiptService.ListByProject(c.Request.Context(), projectID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, receipts)
}
