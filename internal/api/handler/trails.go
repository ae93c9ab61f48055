package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/api/models"
	"github.com/powderlines/powderlines/internal/api/response"
	"github.com/powderlines/powderlines/internal/resort"
)

// TrailHandler handles the per-resort trail endpoints.
type TrailHandler struct {
	resorts *resort.Service
	logger  zerolog.Logger
}

// NewTrailHandler creates a new TrailHandler.
func NewTrailHandler(resorts *resort.Service, logger zerolog.Logger) *TrailHandler {
	return &TrailHandler{resorts: resorts, logger: logger}
}

// ByID handles GET /api/resorts/{id}/trails.
func (h *TrailHandler) ByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, r, http.StatusNotFound, models.MsgTrailsNotFound)
		return
	}

	trails, err := h.resorts.TrailsByID(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Int64("resort_id", id).Msg("loading trails failed")
		response.DatabaseDown(w, r)
		return
	}
	if len(trails) == 0 {
		response.ErrorBody(w, r, http.StatusNotFound, models.ErrorBody{
			Error:    models.MsgTrailsNotFound,
			ResortID: id,
			Message:  models.MsgTrailsNotFoundHint,
		})
		return
	}

	resp := buildTrailsResponse(trails, r)
	resp.ResortID = id
	response.JSON(w, r, http.StatusOK, resp)
}

// BySlug handles GET /api/resorts/slug/{slug}/trails.
func (h *TrailHandler) BySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	trails, err := h.resorts.TrailsBySlug(r.Context(), slug)
	if err != nil {
		h.logger.Error().Err(err).Str("slug", slug).Msg("loading trails failed")
		response.DatabaseDown(w, r)
		return
	}
	if len(trails) == 0 {
		response.ErrorBody(w, r, http.StatusNotFound, models.ErrorBody{
			Error:   models.MsgTrailsNotFound,
			Slug:    slug,
			Message: models.MsgTrailsNotFoundHint,
		})
		return
	}

	resp := buildTrailsResponse(trails, r)
	resp.Slug = slug
	response.JSON(w, r, http.StatusOK, resp)
}

// buildTrailsResponse applies the optional type/difficulty filters and
// aggregates the stats over the filtered set, the way the counters read
// on a trail map legend.
func buildTrailsResponse(trails []resort.TrailView, r *http.Request) models.TrailsResponse {
	q := r.URL.Query()

	var pisteType, difficulty *string
	if v := q.Get("type"); v != "" {
		pisteType = &v
	}
	if v := q.Get("difficulty"); v != "" {
		difficulty = &v
	}

	filtered := resort.FilterTrails(trails, deref(pisteType), deref(difficulty))
	diffStats, typeStats, totalKM := resort.TrailStats(filtered)

	return models.TrailsResponse{
		TotalTrails:     len(filtered),
		TotalLengthKM:   totalKM,
		DifficultyStats: diffStats,
		TypeStats:       typeStats,
		FiltersApplied:  models.TrailFilters{Type: pisteType, Difficulty: difficulty},
		Trails:          filtered,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
