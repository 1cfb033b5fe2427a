// Package handlers contains the HTTP endpoint implementations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/linkforge/linkforge/internal/models"
	"github.com/linkforge/linkforge/internal/services"
	"github.com/linkforge/linkforge/pkg/logger"
)

// CreateLinkRequest represents the request body for creating a short link.
type CreateLinkRequest struct {
	LongURL     string `json:"long_url"`
	CustomAlias string `json:"custom_alias,omitempty"`
	ExpiryAt    string `json:"expiry_at,omitempty"`
}

// LinkResponse represents a short link in API responses.
type LinkResponse struct {
	ShortURL  string  `json:"short_url,omitempty"`
	ShortCode string  `json:"short_code"`
	LongURL   string  `json:"long_url"`
	CreatedAt string  `json:"created_at"`
	ExpiryAt  *string `json:"expiry_at,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// LinkHandler handles short-link endpoints.
type LinkHandler struct {
	service services.LinkService
	baseURL string
	log     *logger.Logger
}

// NewLinkHandler creates a new LinkHandler.
func NewLinkHandler(svc services.LinkService, baseURL string, log *logger.Logger) *LinkHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &LinkHandler{service: svc, baseURL: baseURL, log: log}
}

// Create handles POST /api/v1/urls requests.
func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	var expiryAt *time.Time
	if req.ExpiryAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiryAt)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "expiry_at must be an RFC3339 timestamp",
				Code:  "INVALID_EXPIRY",
			})
			return
		}
		expiryAt = &t
	}

	result, err := h.service.Create(r.Context(), services.CreateLinkRequest{
		LongURL:     req.LongURL,
		CustomAlias: req.CustomAlias,
		ExpiryAt:    expiryAt,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := LinkResponse{
		ShortURL:  result.ShortURL,
		ShortCode: result.ShortCode,
		LongURL:   result.LongURL,
		CreatedAt: result.CreatedAt.Format(time.RFC3339),
	}
	if result.ExpiryAt != nil {
		expiry := result.ExpiryAt.Format(time.RFC3339)
		resp.ExpiryAt = &expiry
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /api/v1/urls/{code} requests. Informational lookup, not
// the redirect path.
func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request, shortCode string) {
	link, err := h.service.Get(r.Context(), shortCode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := LinkResponse{
		ShortURL:  h.baseURL + "/" + link.ShortCode,
		ShortCode: link.ShortCode,
		LongURL:   link.LongURL,
		CreatedAt: link.CreatedAt.Format(time.RFC3339),
	}
	if link.ExpiryAt != nil {
		expiry := link.ExpiryAt.Format(time.RFC3339)
		resp.ExpiryAt = &expiry
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeError maps service errors to HTTP responses. Conflicts and validation
// failures carry actionable codes; everything else collapses to a generic
// internal error so internals never leak.
func (h *LinkHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *models.AliasConflictError

	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: conflict.Error(),
			Code:  "ALIAS_CONFLICT",
		})
	case models.IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	case errors.Is(err, models.ErrLinkNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "NOT_FOUND",
		})
	case errors.Is(err, models.ErrCodeSpaceExhausted):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: "could not allocate a short code, retry later",
			Code:  "ALLOCATION_EXHAUSTED",
		})
	default:
		h.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
