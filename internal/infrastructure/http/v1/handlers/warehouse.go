package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ventari/internal/domain/catalogs/warehouse"
	"ventari/internal/infrastructure/http/v1/dto"
)

// WarehouseHandler handles warehouse catalog endpoints.
type WarehouseHandler struct {
	*BaseHandler
	service *warehouse.Service
}

// NewWarehouseHandler creates a new warehouse handler.
func NewWarehouseHandler(base *BaseHandler, service *warehouse.Service) *WarehouseHandler {
	return &WarehouseHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /warehouses
func (h *WarehouseHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateWarehouseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	wh := req.ToWarehouse()
	if err := h.service.Create(ctx, wh); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, wh.ID.String())
}

// Get handles GET /warehouses/:id
func (h *WarehouseHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	whID, err := dto.ParseID(c.Param("id"), "id")
	if err != nil {
		h.Error(c, err)
		return
	}

	wh, err := h.service.GetByID(ctx, whID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromWarehouse(wh))
}

// Update handles PUT /warehouses/:id
func (h *WarehouseHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	whID, err := dto.ParseID(c.Param("id"), "id")
	if err != nil {
		h.Error(c, err)
		return
	}

	var req dto.UpdateWarehouseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	wh, err := h.service.GetByID(ctx, whID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.Apply(wh)

	if err := h.service.Update(ctx, wh); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromWarehouse(wh))
}

// List handles GET /warehouses
func (h *WarehouseHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var query dto.WarehouseQuery
	if !h.BindQuery(c, &query) {
		return
	}

	warehouses, err := h.service.List(ctx, query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromWarehouses(warehouses),
		TotalCount: int64(len(warehouses)),
	})
}

// RegisterRoutes registers warehouse catalog routes. mutate guards writes.
func (h *WarehouseHandler) RegisterRoutes(rg *gin.RouterGroup, mutate gin.HandlerFunc) {
	rg.POST("", mutate, h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", mutate, h.Update)
}
