package handler

import (
	allocationapp "github.com/fieldops/stockledger/internal/application/allocation"
	"github.com/fieldops/stockledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// AllocationHandler handles allocation and consumption API endpoints
type AllocationHandler struct {
	BaseHandler
	allocationService *allocationapp.AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocationService *allocationapp.AllocationService) *AllocationHandler {
	return &AllocationHandler{
		allocationService: allocationService,
	}
}

// RegisterRoutes registers allocation routes on the given group
func (h *AllocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	allocations := rg.Group("/allocations")
	{
		allocations.POST("", h.Create)
		allocations.GET("/orphans", h.ListOrphans)
		allocations.GET("/:id", h.Get)
		allocations.POST("/:id/cancel", h.Cancel)
		allocations.POST("/:id/relink", h.Relink)
	}

	rg.POST("/consumptions", h.RecordConsumption)

	projects := rg.Group("/projects/:id")
	{
		projects.GET("/allocations", h.ListByProject)
		projects.GET("/consumptions", h.ListConsumptionsByProject)
	}

	rg.GET("/visits/:id/allocations", h.ListByVisit)
}

// Create reserves stock for a project or visit
func (h *AllocationHandler) Create(c *gin.Context) {
	var req allocationapp.CreateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	allocation, err := h.allocationService.CreateAllocation(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, allocation)
}

// Get retrieves an allocation with its consumed and remaining quantities
func (h *AllocationHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid allocation ID format")
		return
	}

	allocation, err := h.allocationService.GetAllocation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, allocation)
}

// ListByProject lists allocations belonging to a project
func (h *AllocationHandler) ListByProject(c *gin.Context) {
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	var filter allocationapp.AllocationListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	allocations, err := h.allocationService.ListByProject(c.Request.Context(), projectID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, allocations)
}

// ListByVisit lists allocations belonging to a visit
func (h *AllocationHandler) ListByVisit(c *gin.Context) {
	visitID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid visit ID format")
		return
	}

	var filter allocationapp.AllocationListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	allocations, err := h.allocationService.ListByVisit(c.Request.Context(), visitID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, allocations)
}

// ListOrphans lists allocations flagged for manual catalog relinking
func (h *AllocationHandler) ListOrphans(c *gin.Context) {
	var filter allocationapp.AllocationListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	allocations, err := h.allocationService.FindOrphanAllocations(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, allocations)
}

// RecordConsumption records actual usage against an allocation, or ad-hoc
// usage when no allocation is given
func (h *AllocationHandler) RecordConsumption(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Acting user is required to record consumption")
		return
	}

	var req allocationapp.RecordConsumptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	consumption, err := h.allocationService.RecordConsumption(c.Request.Context(), req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, consumption)
}

// Cancel cancels an allocation that has seen no consumption
func (h *AllocationHandler) Cancel(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid allocation ID format")
		return
	}

	allocation, err := h.allocationService.CancelAllocation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, allocation)
}

// Relink repairs an allocation's broken catalog link
func (h *AllocationHandler) Relink(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid allocation ID format")
		return
	}

	var req allocationapp.RelinkAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	allocation, err := h.allocationService.RelinkAllocation(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, allocation)
}

// ListConsumptionsByProject lists usage recorded against a project
func (h *AllocationHandler) ListConsumptionsByProject(c *gin.Context) {
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	var filter allocationapp.AllocationListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	consumptions, err := h.allocationService.ListConsumptionsByProject(c.Request.Context(), projectID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, consumptions)
}
