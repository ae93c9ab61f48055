// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/powderlines/powderlines/internal/api/middleware"
	"github.com/powderlines/powderlines/internal/api/models"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := middleware.GetRequestID(r.Context())
	if requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes the flat `{"error": ...}` envelope with the given status.
func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	JSON(w, r, status, models.ErrorBody{Error: message})
}

// ErrorBody writes a fully populated error envelope; use it when the
// body carries context keys beyond the message.
func ErrorBody(w http.ResponseWriter, r *http.Request, status int, body models.ErrorBody) {
	JSON(w, r, status, body)
}

// DatabaseDown writes the 500 body legacy clients expect when the
// database cannot be reached.
func DatabaseDown(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusInternalServerError, models.MsgDatabaseDown)
}
