// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bella-notte/ordering-backend/internal/domain/analytics"
	"github.com/bella-notte/ordering-backend/internal/interfaces/http/middleware"
	"github.com/bella-notte/ordering-backend/internal/pkg/apperrors"
)

// AnalyticsHandler exposes the visitor's own tracked events
type AnalyticsHandler struct {
	analytics *analytics.Service
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(tracker *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: tracker}
}

// Events handles GET /analytics/events
func (h *AnalyticsHandler) Events(c *gin.Context) {
	events, err := h.analytics.Recent(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		respondError(c, apperrors.Wrap(apperrors.CodeDependency, err, "Analytics are unavailable"))
		return
	}
	respond(c, http.StatusOK, "Events retrieved successfully", gin.H{
		"events": events,
		"count":  len(events),
	})
}
