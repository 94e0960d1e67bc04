// internal/interfaces/http/handlers/reservation.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bella-notte/ordering-backend/internal/domain/contact"
	"github.com/bella-notte/ordering-backend/internal/domain/reservation"
	"github.com/bella-notte/ordering-backend/internal/interfaces/http/middleware"
)

// EnquiryHandler handles table reservations and contact messages
type EnquiryHandler struct {
	reservations *reservation.Service
	messages     *contact.Service
}

// NewEnquiryHandler creates a new enquiry handler
func NewEnquiryHandler(reservations *reservation.Service, messages *contact.Service) *EnquiryHandler {
	return &EnquiryHandler{reservations: reservations, messages: messages}
}

// Reserve handles POST /reservations
func (h *EnquiryHandler) Reserve(c *gin.Context) {
	var in reservation.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	in.UserID = middleware.UserIDPtr(c)

	r, receipt, err := h.reservations.Submit(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Reservation request received. We will confirm shortly.", gin.H{
		"reservation": r,
		"backend":     receipt.Backend,
	})
}

// Contact handles POST /contact
func (h *EnquiryHandler) Contact(c *gin.Context) {
	var in contact.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	in.UserID = middleware.UserIDPtr(c)

	m, receipt, err := h.messages.Submit(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Thank you for your message. We will get back to you soon.", gin.H{
		"message": m,
		"backend": receipt.Backend,
	})
}
