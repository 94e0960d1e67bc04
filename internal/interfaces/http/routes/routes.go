// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/bella-notte/ordering-backend/internal/interfaces/http/handlers"
	"github.com/bella-notte/ordering-backend/internal/interfaces/http/middleware"
	"github.com/bella-notte/ordering-backend/internal/pkg/auth"
)

// Handlers bundles every API handler mounted under /api/v1
type Handlers struct {
	Menu      *handlers.MenuHandler
	Cart      *handlers.CartHandler
	Orders    *handlers.OrderHandler
	Enquiries *handlers.EnquiryHandler
	Auth      *handlers.AuthHandler
	Users     *handlers.UserHandler
	Analytics *handlers.AnalyticsHandler
}

// SetupRoutes mounts all API routes. Guests and signed-in customers share the
// public routes; a bearer token, when present, attaches the user to the request.
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	rg.Use(middleware.OptionalAuthMiddleware(jwtManager))
	requireAuth := middleware.AuthMiddleware(jwtManager)

	SetupMenuRoutes(rg, h.Menu)
	SetupCartRoutes(rg, h.Cart)
	SetupOrderRoutes(rg, h.Orders, requireAuth)
	SetupEnquiryRoutes(rg, h.Enquiries)
	SetupAnalyticsRoutes(rg, h.Analytics)

	// accounts need the relational store
	if h.Auth != nil {
		SetupAuthRoutes(rg, h.Auth, requireAuth)
	}
	if h.Users != nil {
		SetupUserRoutes(rg, h.Users, requireAuth)
	}
}

// SetupMenuRoutes sets up menu routes
func SetupMenuRoutes(rg *gin.RouterGroup, h *handlers.MenuHandler) {
	menu := rg.Group("/menu")
	{
		menu.GET("", h.List)
		menu.GET("/:id", h.Get)
	}
}

// SetupCartRoutes sets up cart routes, keyed by the visitor session
func SetupCartRoutes(rg *gin.RouterGroup, h *handlers.CartHandler) {
	cart := rg.Group("/cart")
	{
		cart.GET("", h.GetCart)
		cart.DELETE("", h.ClearCart)
		cart.POST("/items", h.AddItem)
		cart.PATCH("/items/:key", h.ChangeQuantity)
		cart.DELETE("/items/:key", h.RemoveItem)
		cart.POST("/checkout", h.Checkout)
		cart.GET("/stream", h.Stream)
	}
}

// SetupOrderRoutes sets up order routes
func SetupOrderRoutes(rg *gin.RouterGroup, h *handlers.OrderHandler, requireAuth gin.HandlerFunc) {
	orders := rg.Group("/orders")
	{
		orders.POST("", h.Submit)
		orders.GET("/recent", requireAuth, h.Recent)
		orders.GET("/:id", h.Get)
		orders.GET("/:id/receipt", h.Receipt)
		orders.POST("/:id/cancel", requireAuth, h.Cancel)
	}
}

// SetupEnquiryRoutes sets up reservation and contact routes
func SetupEnquiryRoutes(rg *gin.RouterGroup, h *handlers.EnquiryHandler) {
	rg.POST("/reservations", h.Reserve)
	rg.POST("/contact", h.Contact)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, h *handlers.AuthHandler, requireAuth gin.HandlerFunc) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/verify-email", h.VerifyEmail)
		auth.POST("/resend-verification", requireAuth, h.ResendVerification)
	}
}

// SetupUserRoutes sets up user related routes
func SetupUserRoutes(rg *gin.RouterGroup, h *handlers.UserHandler, requireAuth gin.HandlerFunc) {
	users := rg.Group("/users")
	users.Use(requireAuth)
	{
		users.GET("/profile", h.GetProfile)
		users.PUT("/profile", h.UpdateProfile)
		users.PUT("/preferences", h.UpdatePreferences)

		users.GET("/addresses", h.ListAddresses)
		users.POST("/addresses", h.CreateAddress)
		users.DELETE("/addresses/:id", h.DeleteAddress)
		users.PUT("/addresses/:id/default", h.SetDefaultAddress)
	}
}

// SetupAnalyticsRoutes sets up analytics routes
func SetupAnalyticsRoutes(rg *gin.RouterGroup, h *handlers.AnalyticsHandler) {
	rg.GET("/analytics/events", h.Events)
}
