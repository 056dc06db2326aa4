package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
	"github.com/evade6ix/ctfinal-sub000/internal/core/service"
)

// HTTPHandler exposes the fulfillment core to the staff UI.
type HTTPHandler struct {
	alloc    *service.AllocationService
	stock    *service.StockService
	reversal *service.ReversalService
	sched    *service.Scheduler
	logger   *zap.Logger
}

func NewHTTPHandler(
	alloc *service.AllocationService,
	stock *service.StockService,
	reversal *service.ReversalService,
	sched *service.Scheduler,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{alloc: alloc, stock: stock, reversal: reversal, sched: sched, logger: logger}
}

func (h *HTTPHandler) Register(router *gin.Engine) {
	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/orders/:orderId/allocations", h.GetOrderAllocations)
		api.PATCH("/orders/:orderId/lines/:itemId/pick", h.PickLine)
		api.PATCH("/orders/:orderId/lines/:itemId/unpick", h.UnpickLine)
		api.POST("/orders/:orderId/pick-through", h.PickThrough)
		api.POST("/orders/:orderId/revert", h.RevertOrder)

		api.POST("/maintenance/cleanup-stale", h.CleanupStale)
		api.POST("/maintenance/items/:itemId/recompute-totals", h.RecomputeItemTotal)
		api.POST("/maintenance/reconcile-totals", h.ReconcileTotals)

		api.POST("/stock", h.AddStock)
		api.GET("/stock/:itemId", h.GetStockItem)
		api.DELETE("/stock/:itemId/locations/:binId/:row", h.RemoveLocation)

		api.POST("/bins", h.CreateBin)
		api.GET("/bins", h.ListBins)
	}
}

func (h *HTTPHandler) GetOrderAllocations(c *gin.Context) {
	orderID := c.Param("orderId")

	lines, err := h.alloc.AllocationsForOrder(c.Request.Context(), orderID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "lines": lines})
}

type pickRequest struct {
	PickedBy string `json:"picked_by"`
}

func (h *HTTPHandler) PickLine(c *gin.Context) {
	var req pickRequest
	// Body is optional; an unattributed pick is fine.
	_ = c.ShouldBindJSON(&req)

	err := h.alloc.SetPicked(c.Request.Context(), c.Param("orderId"), c.Param("itemId"), req.PickedBy)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) UnpickLine(c *gin.Context) {
	err := h.alloc.ClearPicked(c.Request.Context(), c.Param("orderId"), c.Param("itemId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type pickThroughRequest struct {
	ItemIDs  []string `json:"item_ids" binding:"required"`
	PickedBy string   `json:"picked_by"`
}

// PickThrough marks a run of lines as picked, in order. Not atomic: the
// response reports how many were marked before any failure.
func (h *HTTPHandler) PickThrough(c *gin.Context) {
	var req pickThroughRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.alloc.MarkPickedThrough(c.Request.Context(), c.Param("orderId"), req.ItemIDs, req.PickedBy)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "picked": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"picked": n})
}

func (h *HTTPHandler) RevertOrder(c *gin.Context) {
	n, err := h.reversal.RevertOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reverted": n})
}

func (h *HTTPHandler) CleanupStale(c *gin.Context) {
	n, err := h.sched.CleanupStale(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders_reverted": n})
}

func (h *HTTPHandler) RecomputeItemTotal(c *gin.Context) {
	total, err := h.reversal.RecomputeItemTotal(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_quantity": total})
}

func (h *HTTPHandler) ReconcileTotals(c *gin.Context) {
	repaired, err := h.reversal.ReconcileTotals(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"repaired": repaired})
}

func (h *HTTPHandler) AddStock(c *gin.Context) {
	var req service.IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.stock.AddStock(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *HTTPHandler) GetStockItem(c *gin.Context) {
	item, err := h.stock.GetItem(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "stock item not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *HTTPHandler) RemoveLocation(c *gin.Context) {
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "row must be an integer"})
		return
	}

	if err := h.stock.RemoveLocation(c.Request.Context(), c.Param("itemId"), c.Param("binId"), row); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createBinRequest struct {
	Name     string `json:"name"`
	RowCount int    `json:"row_count"`
}

func (h *HTTPHandler) CreateBin(c *gin.Context) {
	var req createBinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	bin, err := h.stock.CreateBin(c.Request.Context(), req.Name, req.RowCount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, bin)
}

func (h *HTTPHandler) ListBins(c *gin.Context) {
	bins, err := h.stock.ListBins(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bins)
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
	case http.StatusConflict:
		if errors.Is(err, service.ErrOrderLocked) {
			c.JSON(status, gin.H{"error": "order busy, retry shortly"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrOrderLocked), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
