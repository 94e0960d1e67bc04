// internal/interfaces/http/handlers/order.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bella-notte/ordering-backend/internal/domain/analytics"
	"github.com/bella-notte/ordering-backend/internal/domain/cart"
	"github.com/bella-notte/ordering-backend/internal/domain/order"
	"github.com/bella-notte/ordering-backend/internal/domain/pricing"
	"github.com/bella-notte/ordering-backend/internal/infrastructure/storage"
	"github.com/bella-notte/ordering-backend/internal/interfaces/http/middleware"
	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
	"github.com/bella-notte/ordering-backend/internal/pkg/pdf"
)

// OrderHandler handles order submission and history
type OrderHandler struct {
	registry  *cart.Registry
	workflow  *order.Workflow
	orders    *order.Service
	receipts  *pdf.Service
	analytics *analytics.Service
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(registry *cart.Registry, workflow *order.Workflow, orders *order.Service, receipts *pdf.Service, tracker *analytics.Service) *OrderHandler {
	return &OrderHandler{
		registry:  registry,
		workflow:  workflow,
		orders:    orders,
		receipts:  receipts,
		analytics: tracker,
	}
}

// Submit handles POST /orders
func (h *OrderHandler) Submit(c *gin.Context) {
	var in order.CheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	in.UserID = middleware.UserIDPtr(c)

	sessionID := middleware.GetSessionID(c)
	store := h.registry.Get(c.Request.Context(), sessionID)

	result, err := h.workflow.Submit(c.Request.Context(), sessionID, store, in)
	if err != nil {
		respondError(c, err)
		return
	}

	h.analytics.Track(c.Request.Context(), sessionID, analytics.EventPurchase, map[string]any{
		"transaction_id": result.OrderID,
		"value":          pricing.Format(result.Order.Total),
		"payment_method": result.Order.PaymentMethod,
		"items":          len(result.Order.Items),
	})

	message := "Order placed successfully"
	if result.Backend == storage.BackendLocal {
		message = "Order saved locally and will be confirmed shortly"
	}
	respond(c, http.StatusCreated, message, result)
}

// Recent handles GET /orders/recent
func (h *OrderHandler) Recent(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondError(c, apperrors.New(apperrors.CodeUnauthorized, "Authentication required"))
		return
	}

	orders, err := h.orders.Recent(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Orders retrieved successfully", gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.orders.GetFor(c.Request.Context(), c.Param("id"), middleware.UserIDPtr(c), middleware.GetSessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order retrieved successfully", o)
}

// Cancel handles POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	o, err := h.orders.Cancel(c.Request.Context(), c.Param("id"), middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order cancelled successfully", o)
}

// Receipt handles GET /orders/:id/receipt
func (h *OrderHandler) Receipt(c *gin.Context) {
	o, err := h.orders.GetFor(c.Request.Context(), c.Param("id"), middleware.UserIDPtr(c), middleware.GetSessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	buf, err := h.receipts.GenerateReceipt(o)
	if err != nil {
		respondError(c, apperrors.Wrap(apperrors.CodeDependency, err, "Failed to generate receipt"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%s.pdf"`, o.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
