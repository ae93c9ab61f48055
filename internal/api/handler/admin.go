package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/api/models"
	"github.com/powderlines/powderlines/internal/api/response"
	"github.com/powderlines/powderlines/internal/resort"
)

// AdminHandler handles the admin endpoints. Key verification happens in
// the AdminKey middleware; handlers only see authenticated requests.
type AdminHandler struct {
	resorts *resort.Service
	logger  zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(resorts *resort.Service, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{resorts: resorts, logger: logger}
}

// DisableResort handles DELETE /api/admin/resorts/{id} - soft delete.
// The resort row and its history stay; it drops out of the registry of
// served and collected resorts.
func (h *AdminHandler) DisableResort(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, r, http.StatusNotFound, models.MsgResortNotFound)
		return
	}

	if err := h.resorts.Disable(r.Context(), id); err != nil {
		if errors.Is(err, resort.ErrNotFound) {
			response.ErrorBody(w, r, http.StatusNotFound, models.ErrorBody{
				Error:    models.MsgResortNotFound,
				ResortID: id,
			})
			return
		}
		h.logger.Error().Err(err).Int64("resort_id", id).Msg("disabling resort failed")
		response.DatabaseDown(w, r)
		return
	}

	h.logger.Info().Int64("resort_id", id).Msg("resort disabled")
	response.JSON(w, r, http.StatusOK, models.DisableResponse{
		Status:   models.StatusDisabled,
		ResortID: id,
	})
}
