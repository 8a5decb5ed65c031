package stock

import (
	"context"

	"github.com/Ckph07/desert-brew-os/internal/domain/shared"
	"github.com/Ckph07/desert-brew-os/internal/domain/stock"
	"go.uber.org/zap"
)

// LowStockHandler reacts to below-threshold events by logging a reorder
// warning. This is where a purchasing integration would hook in.
type LowStockHandler struct {
	logger *zap.Logger
}

// NewLowStockHandler creates a new low stock handler
func NewLowStockHandler(logger *zap.Logger) *LowStockHandler {
	return &LowStockHandler{logger: logger}
}

// EventTypes returns the event types this handler subscribes to
func (h *LowStockHandler) EventTypes() []string {
	return []string{stock.EventTypeStockBelowThreshold}
}

// Handle logs the low stock condition
func (h *LowStockHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	e, ok := event.(*stock.StockBelowThresholdEvent)
	if !ok {
		return nil
	}
	h.logger.Warn("stock below reorder threshold",
		zap.String("sku", e.SKU),
		zap.String("remaining", e.Remaining.String()),
		zap.String("threshold", e.Threshold.String()),
	)
	return nil
}

var _ shared.EventHandler = (*LowStockHandler)(nil)
