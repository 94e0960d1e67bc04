// internal/interfaces/http/handlers/user.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bella-notte/ordering-backend/internal/domain/user"
	"github.com/bella-notte/ordering-backend/internal/interfaces/http/middleware"
	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
)

// UserHandler handles the signed-in customer's profile and addresses
type UserHandler struct {
	users     *user.Service
	addresses *user.AddressService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *user.Service, addresses *user.AddressService) *UserHandler {
	return &UserHandler{users: users, addresses: addresses}
}

// every route of this handler sits behind AuthMiddleware
func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondError(c, apperrors.New(apperrors.CodeUnauthorized, "Authentication required"))
	}
	return userID, ok
}

func addressID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, apperrors.New(apperrors.CodeValidation, "Invalid address ID"))
		return 0, false
	}
	return uint(id), true
}

// GetProfile handles GET /users/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	u, err := h.users.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Profile retrieved successfully", u)
}

// UpdateProfile handles PUT /users/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req user.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	u, err := h.users.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Profile updated successfully", u)
}

// UpdatePreferences handles PUT /users/preferences
func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req user.PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	u, err := h.users.UpdatePreferences(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Preferences updated successfully", u.Preferences)
}

// ListAddresses handles GET /users/addresses
func (h *UserHandler) ListAddresses(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	addresses, err := h.addresses.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Addresses retrieved successfully", addresses)
}

// CreateAddress handles POST /users/addresses
func (h *UserHandler) CreateAddress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req user.CreateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	address, err := h.addresses.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Address created successfully", address)
}

// DeleteAddress handles DELETE /users/addresses/:id
func (h *UserHandler) DeleteAddress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := addressID(c)
	if !ok {
		return
	}

	if err := h.addresses.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Address deleted successfully", nil)
}

// SetDefaultAddress handles PUT /users/addresses/:id/default
func (h *UserHandler) SetDefaultAddress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := addressID(c)
	if !ok {
		return
	}

	address, err := h.addresses.SetDefault(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Default address updated successfully", address)
}
