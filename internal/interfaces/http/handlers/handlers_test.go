package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bella-notte/ordering-backend/internal/config"
	"github.com/bella-notte/ordering-backend/internal/domain/analytics"
	"github.com/bella-notte/ordering-backend/internal/domain/cart"
	"github.com/bella-notte/ordering-backend/internal/domain/contact"
	"github.com/bella-notte/ordering-backend/internal/domain/menu"
	"github.com/bella-notte/ordering-backend/internal/domain/order"
	"github.com/bella-notte/ordering-backend/internal/domain/reservation"
	"github.com/bella-notte/ordering-backend/internal/infrastructure/cache"
	"github.com/bella-notte/ordering-backend/internal/infrastructure/storage"
	"github.com/bella-notte/ordering-backend/internal/interfaces/http/middleware"
	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
	"github.com/bella-notte/ordering-backend/internal/pkg/pdf"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    apperrors.Code  `json:"code"`
	Details json.RawMessage `json:"details"`
}

type testAPI struct {
	router  *gin.Engine
	mr      *miniredis.Miniredis
	session string
}

func restaurantConfig() config.RestaurantConfig {
	return config.RestaurantConfig{
		Name:                  "Bella Notte",
		MaxCartItems:          50,
		MaxLineQuantity:       10,
		CartMaxAge:            24 * time.Hour,
		CartStorageKey:        "bellaNotteCart",
		CartSessionIdle:       time.Hour,
		TaxRate:               decimal.RequireFromString("0.12"),
		DeliveryFee:           decimal.NewFromInt(40),
		FreeDeliveryThreshold: decimal.NewFromInt(500),
		MinOrderValue:         decimal.NewFromInt(200),
		LargeSizeSurcharge:    decimal.NewFromInt(100),
		ExtraCheeseSurcharge:  decimal.NewFromInt(50),
		ToppingSurcharge:      decimal.NewFromInt(30),
		OrderCancelWindow:     5 * time.Minute,
	}
}

// newTestAPI wires the guest-facing handlers against miniredis with the
// remote store disabled
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger, _ := test.NewNullLogger()
	cfg := restaurantConfig()

	provider := menu.NewProvider(nil, time.Minute, logger, nil)
	registry := cart.NewRegistry(provider, cache.NewRedisStore(client), cfg, logger, nil)
	queue := storage.NewQueueSink[*order.Order](client, "localOrders", order.LocalIDPrefix)
	workflow := order.NewWorkflow(queue, order.NewMemoryGuard(), logger, nil)
	orders := order.NewService(nil, queue, cfg.OrderCancelWindow, logger)
	tracker := analytics.NewService(client, 100, logger)
	reservations := reservation.NewService(storage.NewQueueSink[*reservation.Reservation](client, "reservations", reservation.IDPrefix), logger)
	messages := contact.NewService(storage.NewQueueSink[*contact.Message](client, "contactMessages", contact.IDPrefix), logger)

	menuHandler := NewMenuHandler(provider)
	cartHandler := NewCartHandler(registry, cfg.MinOrderValue, tracker, nil, logger)
	orderHandler := NewOrderHandler(registry, workflow, orders, pdf.NewService(config.PDFConfig{}, cfg.Name), tracker)
	enquiryHandler := NewEnquiryHandler(reservations, messages)
	analyticsHandler := NewAnalyticsHandler(tracker)

	router := gin.New()
	router.Use(middleware.Session(cfg.CartSessionIdle, false))
	api := router.Group("/api/v1")
	api.GET("/menu", menuHandler.List)
	api.GET("/menu/:id", menuHandler.Get)
	api.GET("/cart", cartHandler.GetCart)
	api.DELETE("/cart", cartHandler.ClearCart)
	api.POST("/cart/items", cartHandler.AddItem)
	api.PATCH("/cart/items/:key", cartHandler.ChangeQuantity)
	api.DELETE("/cart/items/:key", cartHandler.RemoveItem)
	api.POST("/cart/checkout", cartHandler.Checkout)
	api.GET("/cart/stream", cartHandler.Stream)
	api.POST("/orders", orderHandler.Submit)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/cancel", orderHandler.Cancel)
	api.POST("/reservations", enquiryHandler.Reserve)
	api.POST("/contact", enquiryHandler.Contact)
	api.GET("/analytics/events", analyticsHandler.Events)

	return &testAPI{router: router, mr: mr, session: uuid.NewString()}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: a.session})
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestMenuEndpoints(t *testing.T) {
	api := newTestAPI(t)

	w, env := api.do(t, http.MethodGet, "/api/v1/menu", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Items []menu.MenuItem `json:"items"`
		Count int             `json:"count"`
	}](t, env.Data)
	assert.Equal(t, len(menu.BuiltinCatalog()), list.Count)
	assert.Len(t, list.Items, list.Count)

	w, env = api.do(t, http.MethodGet, "/api/v1/menu?category=pizza", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pizzas := decode[struct {
		Items []menu.MenuItem `json:"items"`
	}](t, env.Data)
	require.NotEmpty(t, pizzas.Items)
	for _, item := range pizzas.Items {
		assert.Equal(t, menu.CategoryPizza, item.Category)
	}

	w, env = api.do(t, http.MethodGet, "/api/v1/menu?category=sushi", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeValidation, env.Code)

	w, env = api.do(t, http.MethodGet, "/api/v1/menu/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Margherita Pizza", decode[menu.MenuItem](t, env.Data).Name)

	w, env = api.do(t, http.MethodGet, "/api/v1/menu/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeNotFound, env.Code)
}

func TestCartFlow(t *testing.T) {
	api := newTestAPI(t)

	w, env := api.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"itemId": "1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	added := decode[struct {
		Line cart.Line `json:"line"`
		Cart CartView  `json:"cart"`
	}](t, env.Data)
	assert.Equal(t, "1", added.Line.ItemID)
	assert.Equal(t, 1, added.Cart.Count)

	// same item with the same customization merges into one line
	w, env = api.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"itemId": "1"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(t, http.MethodGet, "/api/v1/cart?deliveryType=pickup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := decode[CartView](t, env.Data)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 2, v.Count)
	assert.Equal(t, "pickup", string(v.DeliveryType))
	assert.True(t, v.Totals.DeliveryFee.IsZero())
	assert.True(t, v.Totals.Subtotal.Equal(decimal.NewFromInt(1440)))

	key := v.Items[0].Key
	w, env = api.do(t, http.MethodPatch, "/api/v1/cart/items/"+key, gin.H{"delta": -1})
	require.Equal(t, http.StatusOK, w.Code)
	changed := decode[struct {
		Removed bool     `json:"removed"`
		Cart    CartView `json:"cart"`
	}](t, env.Data)
	assert.False(t, changed.Removed)
	assert.Equal(t, 1, changed.Cart.Count)

	w, env = api.do(t, http.MethodPatch, "/api/v1/cart/items/"+key, gin.H{"delta": -1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[struct {
		Removed bool `json:"removed"`
	}](t, env.Data).Removed)

	w, env = api.do(t, http.MethodDelete, "/api/v1/cart/items/"+key, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrLineNotInCart.Message, env.Error)

	w, env = api.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"itemId": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeNotFound, env.Code)

	w, _ = api.do(t, http.MethodPost, "/api/v1/cart/items", `{"itemId":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	events := api.eventNames(t)
	assert.Contains(t, events, analytics.EventAddToCart)
	assert.Contains(t, events, analytics.EventViewCart)
	assert.Contains(t, events, analytics.EventRemoveFromCart)
}

func TestCartStreamPushesChanges(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/cart/stream"
	header := http.Header{"Cookie": {middleware.SessionCookie + "=" + api.session}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, cart.EventType("snapshot"), msg.Type)
	assert.Zero(t, msg.Count)

	w, _ := api.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"itemId": "2"})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, cart.EventItemAdded, msg.Type)
	assert.Equal(t, 1, msg.Count)
	require.Len(t, msg.Lines, 1)
	assert.Equal(t, "2", msg.Lines[0].ItemID)
}

func TestCartStreamTotalsMatchMessageLines(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/cart/stream?deliveryType=pickup"
	header := http.Header{"Cookie": {middleware.SessionCookie + "=" + api.session}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))

	// every mutation lands before the first change message is read
	for _, id := range []string{"1", "2", "1"} {
		w, _ := api.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"itemId": id})
		require.Equal(t, http.StatusOK, w.Code)
	}

	for want := 1; want <= 3; want++ {
		msg = streamMessage{}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, want, msg.Count)

		subtotal := decimal.Zero
		for _, l := range msg.Lines {
			subtotal = subtotal.Add(l.LineTotal())
		}
		assert.True(t, subtotal.Equal(msg.Totals.Subtotal), "message %d: lines %s, totals %s", want, subtotal, msg.Totals.Subtotal)
	}
}

func TestCheckoutGate(t *testing.T) {
	api := newTestAPI(t)

	w, env := api.do(t, http.MethodPost, "/api/v1/cart/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Your cart is empty", env.Error)

	_, _ = api.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"itemId": "1"})
	w, env = api.do(t, http.MethodPost, "/api/v1/cart/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[CartView](t, env.Data).Count)
	assert.Contains(t, api.eventNames(t), analytics.EventBeginCheckout)
}

func TestSubmitOrderToLocalQueue(t *testing.T) {
	api := newTestAPI(t)

	_, _ = api.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"itemId": "1"})
	w, env := api.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"deliveryType":  "pickup",
		"paymentMethod": "cod",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Order saved locally and will be confirmed shortly", env.Message)

	result := decode[order.Result](t, env.Data)
	assert.Equal(t, order.StateSucceeded, result.State)
	assert.Equal(t, storage.BackendLocal, result.Backend)
	assert.True(t, order.IsLocalID(result.OrderID))

	w, env = api.do(t, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[CartView](t, env.Data).Count)

	w, env = api.do(t, http.MethodGet, "/api/v1/orders/"+result.OrderID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, result.OrderID, decode[order.Order](t, env.Data).ID)

	assert.Contains(t, api.eventNames(t), analytics.EventPurchase)
}

func TestGuestOrderHiddenFromOtherSessions(t *testing.T) {
	api := newTestAPI(t)

	_, _ = api.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"itemId": "1"})
	w, env := api.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"deliveryType":  "pickup",
		"paymentMethod": "cod",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "sessionKey")
	orderID := decode[order.Result](t, env.Data).OrderID

	w, _ = api.do(t, http.MethodGet, "/api/v1/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "sessionKey")
	assert.NotContains(t, w.Body.String(), api.session)

	w, _ = api.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	placing := api.session
	api.session = uuid.NewString()
	w, env = api.do(t, http.MethodGet, "/api/v1/orders/"+orderID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeNotFound, env.Code)

	api.session = placing
	w, env = api.do(t, http.MethodGet, "/api/v1/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.OrderStatusPending, decode[order.Order](t, env.Data).Status)
}

func TestSubmitOrderValidationKeepsCart(t *testing.T) {
	api := newTestAPI(t)

	_, _ = api.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"itemId": "1"})
	w, env := api.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"deliveryType":  "delivery",
		"paymentMethod": "cod",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeValidation, env.Code)
	assert.NotEmpty(t, env.Details)

	w, env = api.do(t, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[CartView](t, env.Data).Count)
}

func TestEnquiries(t *testing.T) {
	api := newTestAPI(t)

	w, env := api.do(t, http.MethodPost, "/api/v1/reservations", gin.H{
		"name":  "Marco",
		"phone": "+91 98765-43210",
		"date":  time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		"time":  "20:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "local", decode[struct {
		Backend string `json:"backend"`
	}](t, env.Data).Backend)

	w, env = api.do(t, http.MethodPost, "/api/v1/reservations", gin.H{"name": "M"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeValidation, env.Code)

	w, _ = api.do(t, http.MethodPost, "/api/v1/contact", gin.H{
		"name":    "Giulia",
		"email":   "giulia@example.com",
		"message": "Do you cater for weddings?",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	stored, err := api.mr.List("contactMessages")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   apperrors.Code
		text   string
	}{
		{"not found", menu.ErrItemNotFound, http.StatusNotFound, apperrors.CodeNotFound, "Item not found"},
		{"unavailable", menu.ErrItemUnavailable, http.StatusConflict, apperrors.CodeUnavailable, "This item is currently unavailable"},
		{"capacity", cart.ErrCartFull, http.StatusUnprocessableEntity, apperrors.CodeCapacity, "cart full"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, apperrors.CodeInternal, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var env envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.Equal(t, tt.code, env.Code)
			assert.Equal(t, tt.text, env.Error)
		})
	}
}

func (a *testAPI) eventNames(t *testing.T) []string {
	t.Helper()
	_, env := a.do(t, http.MethodGet, "/api/v1/analytics/events", nil)
	list := decode[struct {
		Events []analytics.Event `json:"events"`
	}](t, env.Data)
	names := make([]string, len(list.Events))
	for i, e := range list.Events {
		names[i] = e.Event
	}
	return names
}
