package handler

import (
	stockapp "github.com/Ckph07/desert-brew-os/internal/application/stock"
	"github.com/Ckph07/desert-brew-os/internal/domain/stock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StockHandler handles stock ledger API endpoints
type StockHandler struct {
	BaseHandler
	stockService *stockapp.StockService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(stockService *stockapp.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

// RegisterRoutes registers stock routes on the API group
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/stock")
	{
		g.POST("/receipts", h.Receive)
		g.POST("/allocations", h.Allocate)
		g.GET("/batches", h.ListBatches)
		g.GET("/batches/:id", h.GetBatch)
		g.POST("/batches/:id/hold", h.Hold)
		g.POST("/batches/:id/release", h.ReleaseHold)
		g.GET("/movements", h.ListMovements)
		g.GET("/summary", h.Summary)
		g.GET("/skus/:sku/batches", h.GetBySKU)
	}
}

// Receive books a supplier receipt into stock
func (h *StockHandler) Receive(c *gin.Context) {
	var req stockapp.ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	batch, err := h.stockService.Receive(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, batch)
}

// Allocate performs an all-or-nothing FIFO allocation against one SKU
func (h *StockHandler) Allocate(c *gin.Context) {
	var req stockapp.AllocateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	allocation, err := h.stockService.Allocate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, allocation)
}

// GetBatch returns one batch by id
func (h *StockHandler) GetBatch(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "invalid batch id")
		return
	}

	batch, err := h.stockService.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// ListBatches lists batches with pagination and filters
func (h *StockHandler) ListBatches(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if sku := c.Query("sku"); sku != "" {
		filter.Filters["sku"] = sku
	}
	if category := c.Query("category"); category != "" {
		filter.Filters["category"] = category
	}
	if location := c.Query("location"); location != "" {
		filter.Filters["location"] = location
	}
	if v, ok := queryBool(c, "available"); ok {
		filter.Filters["available"] = v
	}
	if v, ok := queryBool(c, "exhausted"); ok {
		filter.Filters["exhausted"] = v
	}

	page, err := h.stockService.ListBatches(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetBySKU lists the allocatable batch position of one SKU
func (h *StockHandler) GetBySKU(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	batches, err := h.stockService.GetBySKU(c.Request.Context(), c.Param("sku"), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batches)
}

// holdRequest carries the audit fields of a hold or release
type holdRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// Hold places a batch under quality hold
func (h *StockHandler) Hold(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "invalid batch id")
		return
	}

	var req holdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	batch, err := h.stockService.Hold(c.Request.Context(), id, req.Actor, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// ReleaseHold lifts a quality hold from a batch
func (h *StockHandler) ReleaseHold(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "invalid batch id")
		return
	}

	var req holdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	batch, err := h.stockService.ReleaseHold(c.Request.Context(), id, req.Actor, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// ListMovements lists the movement log with pagination and filters
func (h *StockHandler) ListMovements(c *gin.Context) {
	base, err := parseListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := stock.MovementFilter{
		Filter:      base,
		SKU:         c.Query("sku"),
		ConsumerRef: c.Query("consumer_ref"),
	}
	if raw := c.Query("batch_id"); raw != "" {
		batchID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			h.BadRequest(c, "invalid batch_id")
			return
		}
		filter.BatchID = &batchID
	}
	if raw := c.Query("movement_type"); raw != "" {
		mt := stock.MovementType(raw)
		if !mt.IsValid() {
			h.BadRequest(c, "invalid movement_type")
			return
		}
		filter.MovementType = &mt
	}
	since, err := queryTime(c, "since")
	if err != nil {
		h.BadRequest(c, "invalid since timestamp")
		return
	}
	filter.Since = since
	until, err := queryTime(c, "until")
	if err != nil {
		h.BadRequest(c, "invalid until timestamp")
		return
	}
	filter.Until = until

	page, err := h.stockService.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Summary returns the aggregated stock position per SKU
func (h *StockHandler) Summary(c *gin.Context) {
	summaries, err := h.stockService.Summary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summaries)
}
