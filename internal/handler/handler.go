package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"intratel/internal/codec"
	"intratel/internal/domain"
	"intratel/internal/repository"
	"intratel/internal/service"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// writeServiceError reports err with the status its kind maps to
func writeServiceError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", msg, err)
	}
	writeError(w, msg, err.Error(), status)
}

// statusFor maps service, domain and repository errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrLinkNotFound),
		errors.Is(err, repository.ErrLabNotFound),
		errors.Is(err, domain.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnknownDevice),
		errors.Is(err, domain.ErrInvalidPort),
		errors.Is(err, codec.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPortInUse),
		errors.Is(err, service.ErrSessionStopping):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoLabStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
