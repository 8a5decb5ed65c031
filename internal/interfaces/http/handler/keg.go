package handler

import (
	"net/http"
	"strconv"

	kegapp "github.com/Ckph07/desert-brew-os/internal/application/keg"
	"github.com/Ckph07/desert-brew-os/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// KegHandler handles keg lifecycle API endpoints
type KegHandler struct {
	BaseHandler
	kegService *kegapp.KegService
}

// NewKegHandler creates a new KegHandler
func NewKegHandler(kegService *kegapp.KegService) *KegHandler {
	return &KegHandler{kegService: kegService}
}

// RegisterRoutes registers keg routes on the API group
func (h *KegHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/kegs")
	{
		g.POST("", h.Register)
		g.GET("", h.List)
		g.GET("/fleet-summary", h.FleetSummary)
		g.GET("/at-risk", h.AtRisk)
		g.GET("/scan/:code", h.GetByScanCode)
		g.POST("/transitions", h.TransitionByScanCode)
		g.POST("/bulk-transitions", h.BulkTransition)
		g.GET("/bulk-operations/:id", h.BulkOperation)
		g.GET("/:id", h.Get)
		g.GET("/:id/history", h.History)
		g.POST("/:id/transitions", h.Transition)
	}
}

// Register enrolls a new keg asset
func (h *KegHandler) Register(c *gin.Context) {
	var req kegapp.RegisterKegRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	keg, err := h.kegService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, keg)
}

// Get returns one keg by id
func (h *KegHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "invalid keg id")
		return
	}

	keg, err := h.kegService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, keg)
}

// GetByScanCode resolves a keg from a floor scan
func (h *KegHandler) GetByScanCode(c *gin.Context) {
	keg, err := h.kegService.GetByScanCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, keg)
}

// List lists kegs with pagination and filters
func (h *KegHandler) List(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if state := c.Query("state"); state != "" {
		filter.Filters["state"] = state
	}
	if holder := c.Query("holder"); holder != "" {
		filter.Filters["holder"] = holder
	}
	if location := c.Query("location"); location != "" {
		filter.Filters["location"] = location
	}
	if batchRef := c.Query("batch_ref"); batchRef != "" {
		filter.Filters["batch_ref"] = batchRef
	}
	if v, ok := queryBool(c, "active"); ok {
		filter.Filters["active"] = v
	}

	page, err := h.kegService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Transition moves one keg, addressed by id, to a new state
func (h *KegHandler) Transition(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "invalid keg id")
		return
	}

	var req kegapp.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	keg, err := h.kegService.Transition(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, keg)
}

// TransitionByScanCode moves one keg, addressed by scan code in the body
func (h *KegHandler) TransitionByScanCode(c *gin.Context) {
	var req kegapp.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	keg, err := h.kegService.Transition(c.Request.Context(), uuid.Nil, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, keg)
}

// BulkTransition moves a group of kegs in one atomic operation. A group
// that failed validation rolls back entirely and reports per-keg results
// with 422.
func (h *KegHandler) BulkTransition(c *gin.Context) {
	var req kegapp.BulkTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.kegService.BulkTransition(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !resp.Committed {
		c.JSON(http.StatusUnprocessableEntity, dto.Response{
			Data: resp,
			Error: &dto.ErrorInfo{
				Code:      dto.ErrCodeInvalidTransition,
				Message:   "bulk operation rolled back",
				RequestID: getRequestID(c),
			},
		})
		return
	}
	h.Success(c, resp)
}

// BulkOperation returns the transition rows of one bulk operation
func (h *KegHandler) BulkOperation(c *gin.Context) {
	transitions, err := h.kegService.BulkOperation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, transitions)
}

// History returns a keg's transition log, newest first
func (h *KegHandler) History(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "invalid keg id")
		return
	}
	filter, err := parseListFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	history, err := h.kegService.History(c.Request.Context(), id, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}

// AtRisk lists kegs sitting at clients past the configured age
func (h *KegHandler) AtRisk(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.BadRequest(c, "invalid days parameter")
			return
		}
		days = parsed
	}

	kegs, err := h.kegService.AtRisk(c.Request.Context(), days)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, kegs)
}

// FleetSummary reports keg counts per lifecycle state
func (h *KegHandler) FleetSummary(c *gin.Context) {
	summary, err := h.kegService.FleetSummary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
