// Package handler provides HTTP handlers for the powderlines API.
package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/api/models"
	"github.com/powderlines/powderlines/internal/api/response"
	"github.com/powderlines/powderlines/internal/resort"
)

// ResortHandler handles the resort read endpoints.
type ResortHandler struct {
	resorts *resort.Service
	logger  zerolog.Logger
}

// NewResortHandler creates a new ResortHandler.
func NewResortHandler(resorts *resort.Service, logger zerolog.Logger) *ResortHandler {
	return &ResortHandler{resorts: resorts, logger: logger}
}

// List handles GET /api/resorts - full records for every enabled resort.
func (h *ResortHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.resorts.AllResorts(r.Context())
	if err != nil {
		h.databaseError(w, r, err, "listing resorts")
		return
	}
	if len(views) == 0 {
		response.ErrorBody(w, r, http.StatusNotFound, models.ErrorBody{
			Error:   models.MsgNoData,
			Message: models.MsgNoDataHint,
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.ResortsResponse{
		Resorts: views,
		Metadata: models.ListMeta{
			TotalResorts: len(views),
			Timestamp:    timestamp(),
		},
	})
}

// Summary handles GET /api/resorts/summary - every resort without the
// forecast arrays and webcams.
func (h *ResortHandler) Summary(w http.ResponseWriter, r *http.Request) {
	views, err := h.resorts.Summaries(r.Context())
	if err != nil {
		h.databaseError(w, r, err, "listing resort summaries")
		return
	}
	if len(views) == 0 {
		response.ErrorBody(w, r, http.StatusNotFound, models.ErrorBody{
			Error:   models.MsgNoData,
			Message: models.MsgNoDataHint,
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.ResortsResponse{
		Resorts: views,
		Metadata: models.ListMeta{
			TotalResorts: len(views),
			Timestamp:    timestamp(),
		},
	})
}

// Open handles GET /api/resorts/open - resorts whose status is open or
// partial after the opening-date rewrite.
func (h *ResortHandler) Open(w http.ResponseWriter, r *http.Request) {
	views, err := h.resorts.OpenResorts(r.Context())
	if err != nil {
		h.databaseError(w, r, err, "listing open resorts")
		return
	}

	response.JSON(w, r, http.StatusOK, models.OpenResortsResponse{
		Resorts: views,
		Metadata: models.OpenMeta{
			TotalOpen: len(views),
			Timestamp: timestamp(),
		},
	})
}

// Search handles GET /api/resorts/search?name=&location= - substring
// match on either field, OR semantics.
func (h *ResortHandler) Search(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("name")))
	location := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("location")))

	if name == "" && location == "" {
		response.Error(w, r, http.StatusBadRequest, models.MsgInvalidParameters)
		return
	}

	views, err := h.resorts.Search(r.Context(), name, location)
	if err != nil {
		h.databaseError(w, r, err, "searching resorts")
		return
	}

	response.JSON(w, r, http.StatusOK, models.SearchResponse{
		Resorts: views,
		Metadata: models.SearchMeta{
			TotalFound: len(views),
			Query:      models.SearchQuery{Name: name, Location: location},
		},
	})
}

// Nearby handles GET /api/resorts/nearby?lat=&lon=&radius= - resorts
// within radius km of the point, closest first.
func (h *ResortHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, latErr := parseCoord(q.Get("lat"))
	lon, lonErr := parseCoord(q.Get("lon"))
	if latErr != nil || lonErr != nil {
		response.Error(w, r, http.StatusBadRequest, models.MsgInvalidParameters)
		return
	}

	radius := float64(resort.DefaultNearbyRadiusKM)
	if raw := q.Get("radius"); raw != "" {
		var err error
		radius, err = parseCoord(raw)
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, models.MsgInvalidParameters)
			return
		}
	}

	views, err := h.resorts.Nearby(r.Context(), lat, lon, radius)
	if err != nil {
		h.databaseError(w, r, err, "searching nearby resorts")
		return
	}

	response.JSON(w, r, http.StatusOK, models.NearbyResponse{
		Resorts: views,
		Metadata: models.NearbyMeta{
			TotalFound: len(views),
			Center:     models.Point{Lat: lat, Lon: lon},
			RadiusKM:   radius,
		},
	})
}

// ByID handles GET /api/resorts/{id} - one resort's full record.
func (h *ResortHandler) ByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, r, http.StatusNotFound, models.MsgResortNotFound)
		return
	}

	view, err := h.resorts.ResortByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, resort.ErrNotFound) {
			response.ErrorBody(w, r, http.StatusNotFound, models.ErrorBody{
				Error:    models.MsgResortNotFound,
				ResortID: id,
			})
			return
		}
		h.databaseError(w, r, err, "loading resort")
		return
	}

	response.JSON(w, r, http.StatusOK, view)
}

// BySlug handles GET /api/resorts/slug/{slug} - one resort's full record.
func (h *ResortHandler) BySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	view, err := h.resorts.ResortBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, resort.ErrNotFound) {
			response.ErrorBody(w, r, http.StatusNotFound, models.ErrorBody{
				Error: models.MsgResortNotFound,
				Slug:  slug,
			})
			return
		}
		h.databaseError(w, r, err, "loading resort")
		return
	}

	response.JSON(w, r, http.StatusOK, view)
}

// databaseError logs the underlying cause and writes the legacy
// database-down body. Clients only ever see the opaque envelope.
func (h *ResortHandler) databaseError(w http.ResponseWriter, r *http.Request, err error, action string) {
	h.logger.Error().Err(err).Str("path", r.URL.Path).Msg(action + " failed")
	response.DatabaseDown(w, r)
}

// parseCoord parses a strict float query parameter; NaN and infinities
// are rejected the same as garbage input.
func parseCoord(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
