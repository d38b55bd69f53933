package handler

import (
	locationapp "github.com/fieldops/stockledger/internal/application/location"
	"github.com/fieldops/stockledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// LocationHandler handles location registry API endpoints
type LocationHandler struct {
	BaseHandler
	locationService *locationapp.LocationService
}

// NewLocationHandler creates a new LocationHandler
func NewLocationHandler(locationService *locationapp.LocationService) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
	}
}

// RegisterRoutes registers location routes on the given group
func (h *LocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	locations := rg.Group("/locations")
	{
		locations.POST("", h.Create)
		locations.GET("", h.List)
		locations.POST("/backfill", h.Backfill)
		locations.GET("/:id", h.Get)
		locations.PUT("/:id", h.Update)
		locations.POST("/:id/retire", h.Retire)
		locations.POST("/:id/activate", h.Activate)
		locations.GET("/:id/deletable", h.CheckDeletable)
	}
}

// Create registers a new stock-holding location
func (h *LocationHandler) Create(c *gin.Context) {
	var req locationapp.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	location, err := h.locationService.CreateLocation(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, location)
}

// Get retrieves a location by ID
func (h *LocationHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid location ID format")
		return
	}

	location, err := h.locationService.GetLocation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, location)
}

// List retrieves a paginated list of locations
func (h *LocationHandler) List(c *gin.Context) {
	var filter locationapp.LocationListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	locations, total, err := h.locationService.ListLocations(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, locations, total, filter.Page, filter.PageSize)
}

// Update changes a location's soft fields, guarded by the version the caller
// last saw
func (h *LocationHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid location ID format")
		return
	}

	var req locationapp.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	location, err := h.locationService.UpdateLocation(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, location)
}

// Retire deactivates a location. Its movement history and balances survive.
func (h *LocationHandler) Retire(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid location ID format")
		return
	}

	location, err := h.locationService.RetireLocation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, location)
}

// Activate reactivates a retired location
func (h *LocationHandler) Activate(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid location ID format")
		return
	}

	location, err := h.locationService.ActivateLocation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, location)
}

// CheckDeletable reports whether a location still carries stock or open
// references
func (h *LocationHandler) CheckDeletable(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid location ID format")
		return
	}

	report, err := h.locationService.CheckDeletable(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// Backfill bulk-imports legacy location records. Reruns skip every entry
// that already exists.
func (h *LocationHandler) Backfill(c *gin.Context) {
	var req locationapp.BackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	report, err := h.locationService.BulkBackfill(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}
