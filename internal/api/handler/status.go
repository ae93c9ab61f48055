package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/api/models"
	"github.com/powderlines/powderlines/internal/api/response"
	"github.com/powderlines/powderlines/internal/resort"
)

// StatusHandler handles operational endpoints.
type StatusHandler struct {
	resorts *resort.Service
	logger  zerolog.Logger
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(resorts *resort.Service, logger zerolog.Logger) *StatusHandler {
	return &StatusHandler{resorts: resorts, logger: logger}
}

// Status handles GET /api/status - API liveness plus database
// reachability and the enabled-resort count. Always 200; a broken
// database shows up in the body, not the status code.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := models.StatusResponse{
		Status:    "running",
		Message:   "API is operational",
		Timestamp: timestamp(),
		Database:  models.DatabaseConnected,
	}

	count, err := h.resorts.Health(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("database health check failed")
		resp.Database = models.DatabaseError
	} else {
		resp.TotalResorts = &count
	}

	response.JSON(w, r, http.StatusOK, resp)
}

// Healthz handles GET /healthz - load balancer liveness. No dependency
// checks; the process answering is the signal.
func (h *StatusHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.HealthResponse{Status: "ok"})
}
