// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/bella-notte/ordering-backend/internal/domain/analytics"
	"github.com/bella-notte/ordering-backend/internal/domain/cart"
	"github.com/bella-notte/ordering-backend/internal/domain/menu"
	"github.com/bella-notte/ordering-backend/internal/domain/pricing"
	"github.com/bella-notte/ordering-backend/internal/interfaces/http/middleware"
	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
)

const (
	streamBuffer     = 16
	streamPingPeriod = 30 * time.Second
	streamWriteWait  = 10 * time.Second
)

// ErrLineNotInCart is returned when a cart key does not match any line
var ErrLineNotInCart = apperrors.New(apperrors.CodeNotFound, "Item not in cart")

// CartHandler handles cart endpoints
type CartHandler struct {
	registry  *cart.Registry
	minOrder  decimal.Decimal
	analytics *analytics.Service
	upgrader  websocket.Upgrader
	logger    logrus.FieldLogger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(registry *cart.Registry, minOrder decimal.Decimal, tracker *analytics.Service, allowedOrigins []string, logger logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		registry:  registry,
		minOrder:  minOrder,
		analytics: tracker,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.OriginAllowed(origin, allowedOrigins)
			},
		},
	}
}

// AddItemRequest represents an add-to-cart request
type AddItemRequest struct {
	ItemID        string             `json:"itemId" binding:"required"`
	Customization menu.Customization `json:"customization"`
}

// ChangeQuantityRequest represents a quantity step
type ChangeQuantityRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// CartView is the cart as returned to the storefront
type CartView struct {
	Items                 []cart.Line          `json:"items"`
	Count                 int                  `json:"count"`
	DeliveryType          pricing.DeliveryType `json:"deliveryType"`
	Totals                pricing.Totals       `json:"totals"`
	FreeDeliveryRemaining decimal.Decimal      `json:"freeDeliveryRemaining"`
}

func deliveryTypeFrom(c *gin.Context) pricing.DeliveryType {
	if pricing.DeliveryType(c.Query("deliveryType")) == pricing.DeliveryTypePickup {
		return pricing.DeliveryTypePickup
	}
	return pricing.DeliveryTypeDelivery
}

func (h *CartHandler) store(c *gin.Context) *cart.Store {
	return h.registry.Get(c.Request.Context(), middleware.GetSessionID(c))
}

func view(store *cart.Store, deliveryType pricing.DeliveryType) CartView {
	lines, totals := store.Snapshot(deliveryType)
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return CartView{
		Items:                 lines,
		Count:                 count,
		DeliveryType:          deliveryType,
		Totals:                totals.Rounded(),
		FreeDeliveryRemaining: pricing.Round(store.FreeDeliveryRemaining()),
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	store := h.store(c)
	v := view(store, deliveryTypeFrom(c))
	h.analytics.Track(c.Request.Context(), middleware.GetSessionID(c), analytics.EventViewCart, map[string]any{
		"items": v.Count,
		"value": pricing.Format(v.Totals.Subtotal),
	})
	respond(c, http.StatusOK, "Cart retrieved successfully", v)
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	store := h.store(c)
	line, err := store.AddItem(c.Request.Context(), req.ItemID, req.Customization)
	if err != nil {
		respondError(c, err)
		return
	}

	h.analytics.Track(c.Request.Context(), middleware.GetSessionID(c), analytics.EventAddToCart, map[string]any{
		"item_id":   line.ItemID,
		"item_name": line.Name,
		"price":     pricing.Format(line.UnitPrice),
		"quantity":  1,
	})
	respond(c, http.StatusOK, "Item added to cart successfully", gin.H{
		"line": line,
		"cart": view(store, deliveryTypeFrom(c)),
	})
}

// ChangeQuantity handles PATCH /cart/items/:key
func (h *CartHandler) ChangeQuantity(c *gin.Context) {
	var req ChangeQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	store := h.store(c)
	change, err := store.ChangeQuantity(c.Request.Context(), c.Param("key"), req.Delta)
	if err != nil {
		respondError(c, err)
		return
	}
	if !change.Found {
		respondError(c, ErrLineNotInCart)
		return
	}

	if change.Removed {
		h.trackRemoval(c, change.Line)
	}
	respond(c, http.StatusOK, "Cart updated successfully", gin.H{
		"line":    change.Line,
		"removed": change.Removed,
		"cart":    view(store, deliveryTypeFrom(c)),
	})
}

// RemoveItem handles DELETE /cart/items/:key
func (h *CartHandler) RemoveItem(c *gin.Context) {
	store := h.store(c)
	line, found, err := store.RemoveItem(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		respondError(c, ErrLineNotInCart)
		return
	}

	h.trackRemoval(c, line)
	respond(c, http.StatusOK, "Item removed from cart successfully", view(store, deliveryTypeFrom(c)))
}

func (h *CartHandler) trackRemoval(c *gin.Context, line cart.Line) {
	h.analytics.Track(c.Request.Context(), middleware.GetSessionID(c), analytics.EventRemoveFromCart, map[string]any{
		"item_id":   line.ItemID,
		"item_name": line.Name,
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	store := h.store(c)
	if err := store.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	h.analytics.Track(c.Request.Context(), middleware.GetSessionID(c), analytics.EventClearCart, nil)
	respond(c, http.StatusOK, "Cart cleared successfully", view(store, deliveryTypeFrom(c)))
}

// Checkout handles POST /cart/checkout, the gate before the checkout form
func (h *CartHandler) Checkout(c *gin.Context) {
	store := h.store(c)
	if err := store.CheckoutReady(h.minOrder); err != nil {
		respondError(c, err)
		return
	}

	v := view(store, deliveryTypeFrom(c))
	h.analytics.Track(c.Request.Context(), middleware.GetSessionID(c), analytics.EventBeginCheckout, map[string]any{
		"value": pricing.Format(v.Totals.Total),
		"items": v.Count,
	})
	respond(c, http.StatusOK, "Cart is ready for checkout", v)
}

// streamMessage is pushed to websocket subscribers
type streamMessage struct {
	Type   cart.EventType `json:"type"`
	Key    string         `json:"key,omitempty"`
	Lines  []cart.Line    `json:"lines"`
	Count  int            `json:"count"`
	Totals pricing.Totals `json:"totals"`
}

// Stream handles GET /cart/stream, pushing every cart change over a websocket
func (h *CartHandler) Stream(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	store := h.store(c)
	deliveryType := deliveryTypeFrom(c)
	logger := h.logger.WithField("session_id", sessionID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Warn("cart stream upgrade failed")
		return
	}
	defer conn.Close()

	events := make(chan cart.Event, streamBuffer)
	unsubscribe := store.Subscribe(func(ev cart.Event) {
		select {
		case events <- ev:
		default:
			logger.Warn("cart stream subscriber is slow, dropping event")
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	lines, totals := store.Snapshot(deliveryType)
	initial := streamMessage{Type: "snapshot", Lines: lines, Count: lineCount(lines), Totals: totals.Rounded()}
	if err := h.write(conn, initial); err != nil {
		return
	}

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			msg := streamMessage{
				Type:   ev.Type,
				Key:    ev.Key,
				Lines:  ev.Lines,
				Count:  ev.Count,
				Totals: store.TotalsFor(ev.Lines, deliveryType).Rounded(),
			}
			if err := h.write(conn, msg); err != nil {
				logger.WithError(err).Debug("cart stream closed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func lineCount(lines []cart.Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func (h *CartHandler) write(conn *websocket.Conn, msg streamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
