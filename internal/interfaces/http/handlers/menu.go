// internal/interfaces/http/handlers/menu.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bella-notte/ordering-backend/internal/domain/menu"
	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
)

// MenuHandler serves the catalog
type MenuHandler struct {
	provider *menu.Provider
}

// NewMenuHandler creates a new menu handler
func NewMenuHandler(provider *menu.Provider) *MenuHandler {
	return &MenuHandler{provider: provider}
}

// List handles GET /menu?category=&popular=
func (h *MenuHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var items []menu.MenuItem
	switch {
	case c.Query("category") != "":
		category := menu.Category(c.Query("category"))
		if !category.Valid() {
			respondError(c, apperrors.New(apperrors.CodeValidation, "Unknown menu category"))
			return
		}
		items = h.provider.ByCategory(ctx, category)
	case c.Query("popular") != "":
		popular, err := strconv.ParseBool(c.Query("popular"))
		if err != nil {
			respondError(c, apperrors.New(apperrors.CodeValidation, "popular must be true or false"))
			return
		}
		if popular {
			items = h.provider.Popular(ctx)
		} else {
			items = h.provider.Load(ctx)
		}
	default:
		items = h.provider.Load(ctx)
	}

	respond(c, http.StatusOK, "Menu retrieved successfully", gin.H{
		"items":    items,
		"count":    len(items),
		"fallback": h.provider.FromFallback(),
	})
}

// Get handles GET /menu/:id
func (h *MenuHandler) Get(c *gin.Context) {
	item, err := h.provider.Find(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Menu item retrieved successfully", item)
}
