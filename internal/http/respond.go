package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts core and API client errors to HTTP responses.
func handleError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var apiErr *api.Error
	var netErr *api.NetworkError

	switch {
	case errors.As(err, &validation):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   validation.Message,
			Code:    "invalid_argument",
			Details: validation.Field,
		})
	case errors.Is(err, domain.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthenticated", "please log in first")
	case errors.Is(err, api.ErrSessionExpired):
		respondError(w, http.StatusUnauthorized, "session_expired", "session expired, please log in again")
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	case errors.As(err, &netErr):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "shop API is unreachable")
	case errors.As(err, &apiErr):
		if apiErr.Status == http.StatusNotFound {
			respondError(w, http.StatusNotFound, "not_found", api.Message(err))
			return
		}
		respondError(w, http.StatusBadGateway, "upstream_error", api.Message(err))
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
