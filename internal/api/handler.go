// Package api exposes the load pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"itvetl/internal/domain"
	"itvetl/internal/logger"
	"itvetl/internal/pipeline"
)

// Loader runs one load.
type Loader interface {
	Load(ctx context.Context, req pipeline.Request) (domain.LoadResult, error)
}

// LoadRequest is the POST /api/v1/load body.
type LoadRequest struct {
	Sources             []string `json:"sources"`
	ValidateCoordinates bool     `json:"validate_coordinates"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the load endpoint.
type Handler struct {
	loader Loader
	log    logger.Logger
}

// NewHandler creates a Handler around loader.
func NewHandler(loader Loader, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{loader: loader, log: log}
}

// Load handles POST /api/v1/load.
func (h *Handler) Load(c *gin.Context) {
	var body LoadRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req := pipeline.Request{ValidateCoordinates: body.ValidateCoordinates}
	for _, s := range body.Sources {
		src, err := domain.ParseSource(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		req.Sources = append(req.Sources, src)
	}

	res, err := h.loader.Load(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrNoSources),
		errors.Is(err, pipeline.ErrNoGeocoder):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrSourceNotConfigured):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
