package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ventari/internal/domain/catalogs/product"
	"ventari/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles product catalog endpoints.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := req.ToProduct()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, p.ID.String())
}

// Get handles GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	productID, err := dto.ParseID(c.Param("id"), "id")
	if err != nil {
		h.Error(c, err)
		return
	}

	p, err := h.service.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromProduct(p))
}

// Update handles PUT /products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	productID, err := dto.ParseID(c.Param("id"), "id")
	if err != nil {
		h.Error(c, err)
		return
	}

	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.Apply(p); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Update(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromProduct(p))
}

// List handles GET /products
func (h *ProductHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var query dto.ProductQuery
	if !h.BindQuery(c, &query) {
		return
	}

	products, err := h.service.List(ctx, query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromProducts(products),
		TotalCount: int64(len(products)),
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
}

// Variants handles GET /products/:id/variants
func (h *ProductHandler) Variants(c *gin.Context) {
	ctx := c.Request.Context()

	parentID, err := dto.ParseID(c.Param("id"), "id")
	if err != nil {
		h.Error(c, err)
		return
	}

	variants, err := h.service.Variants(ctx, parentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromProducts(variants),
		TotalCount: int64(len(variants)),
	})
}

// RegisterRoutes registers product catalog routes. mutate guards writes.
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup, mutate gin.HandlerFunc) {
	rg.POST("", mutate, h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", mutate, h.Update)
	rg.GET("/:id/variants", h.Variants)
}
