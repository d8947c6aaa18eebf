package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-notify/internal/mail"
	"portfolio-notify/internal/model"
	"portfolio-notify/internal/service/contact"
)

type contactSubmitter interface {
	Submit(ctx context.Context, sub model.ContactSubmission) contact.Outcome
}

type ContactHandler struct {
	service contactSubmitter
}

func NewContactHandler(service contactSubmitter) *ContactHandler {
	return &ContactHandler{service: service}
}

// Submit handles POST /api/contact
func (h *ContactHandler) Submit(c *gin.Context) {
	var req model.ContactSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}

	outcome := h.service.Submit(c.Request.Context(), req)
	switch {
	case outcome.OK():
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(outcome.Err, contact.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
	case errors.Is(outcome.Err, contact.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
	case outcome.Partial():
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorDetail(outcome.Err), "partial": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorDetail(outcome.Err)})
	}
}

func errorDetail(err error) string {
	if err == nil {
		return "unknown error"
	}
	return mail.DetailOf(err)
}
