package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ventari/internal/domain/stock"
	"ventari/internal/infrastructure/cache"
	"ventari/internal/infrastructure/http/v1/dto"
	"ventari/pkg/logger"
)

// StockHandler handles stock mutations and ledger reads.
type StockHandler struct {
	*BaseHandler
	service      *stock.Service
	availability *cache.AvailabilityCache // optional
}

// NewStockHandler creates a new stock handler. availability may be nil.
func NewStockHandler(base *BaseHandler, service *stock.Service, availability *cache.AvailabilityCache) *StockHandler {
	return &StockHandler{
		BaseHandler:  base,
		service:      service,
		availability: availability,
	}
}

// Adjust handles POST /stock/adjust
func (h *StockHandler) Adjust(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.Adjust(ctx, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromAdjustmentResult(res))
}

// AdjustBatch handles POST /stock/adjust/batch
func (h *StockHandler) AdjustBatch(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.BatchAdjustRequest
	if !h.BindJSON(c, &req) {
		return
	}

	// Malformed IDs are a request-shape problem, rejected up front; business
	// failures inside the batch are reported per item.
	items := make([]stock.AdjustmentInput, len(req.Items))
	for i, item := range req.Items {
		in, err := item.ToInput()
		if err != nil {
			h.Error(c, err)
			return
		}
		items[i] = in
	}

	results := h.service.AdjustBatch(ctx, items)
	c.JSON(http.StatusOK, dto.FromBatchResults(results))
}

// Transfer handles POST /stock/transfer
func (h *StockHandler) Transfer(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.Transfer(ctx, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromTransferResult(res))
}

// RecordEntry handles POST /stock/record
func (h *StockHandler) RecordEntry(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RecordEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.RecordEntry(ctx, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromAdjustmentResult(res))
}

// BreakDown handles POST /products/:id/break-down
func (h *StockHandler) BreakDown(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.BreakdownRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput(c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.BreakDown(ctx, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromBreakdownResult(res))
}

// GetStock handles GET /stock?productId=&warehouseId=
func (h *StockHandler) GetStock(c *gin.Context) {
	ctx := c.Request.Context()

	productID, err := dto.ParseID(c.Query("productId"), "productId")
	if err != nil {
		h.Error(c, err)
		return
	}
	warehouseID, err := dto.ParseID(c.Query("warehouseId"), "warehouseId")
	if err != nil {
		h.Error(c, err)
		return
	}

	rec, err := h.service.GetStock(ctx, productID, warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromStockRecord(rec))
}

// StockByProduct handles GET /stock/product/:id
// Reads through the availability cache when one is configured.
func (h *StockHandler) StockByProduct(c *gin.Context) {
	ctx := c.Request.Context()

	productID, err := dto.ParseID(c.Param("id"), "id")
	if err != nil {
		h.Error(c, err)
		return
	}

	if h.availability != nil {
		if records, hit, err := h.availability.Get(ctx, productID); err != nil {
			logger.Warn(ctx, "availability cache read failed", "error", err)
		} else if hit {
			c.JSON(http.StatusOK, dto.ListResponse{
				Items:      dto.FromStockRecords(records),
				TotalCount: int64(len(records)),
			})
			return
		}
	}

	records, err := h.service.StockByProduct(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if h.availability != nil {
		if err := h.availability.Set(ctx, productID, records); err != nil {
			logger.Warn(ctx, "availability cache write failed", "error", err)
		}
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromStockRecords(records),
		TotalCount: int64(len(records)),
	})
}

// StockByWarehouse handles GET /stock/warehouse/:id
func (h *StockHandler) StockByWarehouse(c *gin.Context) {
	ctx := c.Request.Context()

	warehouseID, err := dto.ParseID(c.Param("id"), "id")
	if err != nil {
		h.Error(c, err)
		return
	}

	records, err := h.service.StockByWarehouse(ctx, warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromStockRecords(records),
		TotalCount: int64(len(records)),
	})
}

// ListMovements handles GET /movements
func (h *StockHandler) ListMovements(c *gin.Context) {
	ctx := c.Request.Context()

	var query dto.MovementQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	movements, total, err := h.service.ListMovements(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromMovements(movements),
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// MovementStats handles GET /movements/stats?period=today|week|month|all
func (h *StockHandler) MovementStats(c *gin.Context) {
	ctx := c.Request.Context()

	var filter stock.StatsFilter
	if pStr := c.Query("productId"); pStr != "" {
		pid, err := dto.ParseID(pStr, "productId")
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.ProductID = &pid
	}
	if whStr := c.Query("warehouseId"); whStr != "" {
		wid, err := dto.ParseID(whStr, "warehouseId")
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.WarehouseID = &wid
	}

	period := c.Query("period")
	stats, err := h.service.MovementStats(ctx, period, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromStats(period, stats))
}

// RegisterRoutes registers stock and ledger routes. mutate guards
// corrections, transfers and breakdowns; entry recording stays open to any
// authenticated user so cashiers can post sales.
// Breakdown lives under the products group; see RegisterBreakdownRoute.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup, mutate gin.HandlerFunc) {
	stockGroup := rg.Group("/stock")
	stockGroup.POST("/adjust", mutate, h.Adjust)
	stockGroup.POST("/adjust/batch", mutate, h.AdjustBatch)
	stockGroup.POST("/transfer", mutate, h.Transfer)
	stockGroup.POST("/record", h.RecordEntry)
	stockGroup.GET("", h.GetStock)
	stockGroup.GET("/product/:id", h.StockByProduct)
	stockGroup.GET("/warehouse/:id", h.StockByWarehouse)

	movements := rg.Group("/movements")
	movements.GET("", h.ListMovements)
	movements.GET("/stats", h.MovementStats)
}

// RegisterBreakdownRoute attaches the breakdown operation to the products group.
func (h *StockHandler) RegisterBreakdownRoute(products *gin.RouterGroup, mutate gin.HandlerFunc) {
	products.POST("/:id/break-down", mutate, h.BreakDown)
}
