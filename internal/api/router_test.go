package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powderlines/powderlines/internal/api"
	"github.com/powderlines/powderlines/internal/api/models"
	"github.com/powderlines/powderlines/internal/cache"
	"github.com/powderlines/powderlines/internal/resort"
)

const testAdminKey = "test-admin-key"

// newTestRouter wires the full middleware and handler stack over the
// given repository with a fresh in-process cache.
func newTestRouter(repo resort.Repository) http.Handler {
	logger := zerolog.New(io.Discard)
	svc := resort.NewService(resort.ServiceConfig{
		Repo:   repo,
		Cache:  cache.NewMemory(),
		Logger: logger,
	})
	return api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Resorts:     svc,
		AdminAPIKey: testAdminKey,
	})
}

// seededRouter returns a router over three resorts: Whistler (open, with
// weather, a webcam, and trails), Niseko (closed), Zermatt (partial).
func seededRouter(t *testing.T) http.Handler {
	t.Helper()
	repo := resort.NewInMemoryRepository()
	seedResorts(t, repo)
	return newTestRouter(repo)
}

func seedResorts(t *testing.T, repo *resort.InMemoryRepository) {
	t.Helper()
	ctx := context.Background()

	whistler := testSnapshot(1, "Whistler Blackcomb", "whistler-blackcomb",
		"British Columbia, Canada", 50.1150, -122.9485, resort.StatusOpen)
	snow := 12.5
	whistler.Condition.NewSnow = &snow
	temp := -4.2
	whistler.Weather = &resort.Weather{
		ResortID: 1,
		Current:  resort.WeatherCurrent{Temperature: &temp},
		Hourly:   []resort.HourlyPoint{{Time: "2026-01-15T08:00", Temperature: &temp}},
		Daily:    []resort.DailyPoint{{Date: "2026-01-15"}},
		Source:   "open-meteo",
	}
	whistler.Webcams = []resort.Webcam{{
		UUID:     "cam-peak",
		Title:    "Peak Chair",
		ImageURL: "https://example.com/cam-peak.jpg",
		Featured: true,
	}}
	require.NoError(t, repo.SaveSnapshot(ctx, whistler))

	require.NoError(t, repo.SaveSnapshot(ctx, testSnapshot(2, "Niseko United", "niseko-united",
		"Hokkaido, Japan", 42.8048, 140.6874, resort.StatusClosed)))
	require.NoError(t, repo.SaveSnapshot(ctx, testSnapshot(3, "Zermatt", "zermatt",
		"Valais, Switzerland", 46.0207, 7.7491, resort.StatusPartial)))

	lit := true
	require.NoError(t, repo.ReplaceTrails(ctx, 1, nil, []resort.Trail{
		{OSMID: "way/111", OSMType: "way", Name: "Dave Murray Downhill",
			Difficulty: resort.DifficultyAdvanced, PisteType: "downhill", LengthMeters: 800,
			Geometry: [][]float64{{-122.95, 50.11}, {-122.96, 50.10}}},
		{OSMID: "way/222", OSMType: "way", Name: "Ego Bowl",
			Difficulty: resort.DifficultyEasy, PisteType: "downhill", LengthMeters: 1200, Lit: &lit},
		{OSMID: "way/333", OSMType: "way", Name: "Lost Lake Loop",
			Difficulty: resort.DifficultyEasy, PisteType: "nordic", LengthMeters: 5000},
	}))
}

func testSnapshot(id int64, name, slug, location string, lat, lon float64, status resort.Status) *resort.Snapshot {
	return &resort.Snapshot{
		Resort: resort.Resort{
			ID:         id,
			Name:       name,
			Slug:       slug,
			Location:   location,
			Lat:        lat,
			Lon:        lon,
			DataSource: resort.SourceMtnPowder,
			Enabled:    true,
		},
		Condition: resort.Condition{
			ResortID:   id,
			Status:     status,
			DataSource: resort.SourceMtnPowder,
		},
	}
}

// downRepo simulates an unreachable database for the methods the read
// path touches. Everything else panics, which a test would catch.
type downRepo struct{ resort.Repository }

func (downRepo) ListEnabled(context.Context) ([]*resort.View, error) {
	return nil, errors.New("connection refused")
}

func (downRepo) Ping(context.Context) error {
	return errors.New("connection refused")
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_Healthz(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
}

func TestRouter_ListResorts(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp models.ResortsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 3, resp.Metadata.TotalResorts)
	assert.NotEmpty(t, resp.Metadata.Timestamp)
	require.Len(t, resp.Resorts, 3)

	// Ordered by id.
	assert.Equal(t, "Whistler Blackcomb", resp.Resorts[0].Name)
	assert.Equal(t, resort.StatusOpen, resp.Resorts[0].Status)
	require.NotNil(t, resp.Resorts[0].NewSnow)
	assert.Equal(t, 12.5, *resp.Resorts[0].NewSnow)
	require.NotNil(t, resp.Resorts[0].Weather)
	assert.NotEmpty(t, resp.Resorts[0].Weather.Hourly)
	require.Len(t, resp.Resorts[0].Webcams, 1)
	assert.Equal(t, "cam-peak", resp.Resorts[0].Webcams[0].UUID)

	assert.Equal(t, "Niseko United", resp.Resorts[1].Name)
	assert.Equal(t, "Zermatt", resp.Resorts[2].Name)
}

func TestRouter_ListResorts_EmptyDatabase(t *testing.T) {
	router := newTestRouter(resort.NewInMemoryRepository())

	w := get(router, "/api/resorts")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body models.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.MsgNoData, body.Error)
	assert.Equal(t, models.MsgNoDataHint, body.Message)
}

func TestRouter_ListResorts_DatabaseDown(t *testing.T) {
	router := newTestRouter(downRepo{})

	w := get(router, "/api/resorts")

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body models.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.MsgDatabaseDown, body.Error)
}

func TestRouter_ResortSummaries(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/summary")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ResortsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 3, resp.Metadata.TotalResorts)
	require.Len(t, resp.Resorts, 3)

	// Summaries keep conditions but drop webcams and forecast arrays.
	whistler := resp.Resorts[0]
	assert.Equal(t, resort.StatusOpen, whistler.Status)
	assert.NotNil(t, whistler.NewSnow)
	assert.Empty(t, whistler.Webcams)
	require.NotNil(t, whistler.Weather)
	assert.Empty(t, whistler.Weather.Hourly)
	assert.Empty(t, whistler.Weather.Daily)
}

func TestRouter_OpenResorts(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/open")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.OpenResortsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// Partial counts as open; Niseko (closed) is filtered out.
	assert.Equal(t, 2, resp.Metadata.TotalOpen)
	require.Len(t, resp.Resorts, 2)
	assert.Equal(t, "Whistler Blackcomb", resp.Resorts[0].Name)
	assert.Equal(t, "Zermatt", resp.Resorts[1].Name)
}

func TestRouter_SearchResorts_ByName(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/search?name=WHISTLER")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.Metadata.TotalFound)
	assert.Equal(t, "whistler", resp.Metadata.Query.Name)
	assert.Equal(t, "", resp.Metadata.Query.Location)
	require.Len(t, resp.Resorts, 1)
	assert.Equal(t, "Whistler Blackcomb", resp.Resorts[0].Name)
}

func TestRouter_SearchResorts_ByLocation(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/search?location=Japan")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.Metadata.TotalFound)
	assert.Equal(t, "japan", resp.Metadata.Query.Location)
	require.Len(t, resp.Resorts, 1)
	assert.Equal(t, "Niseko United", resp.Resorts[0].Name)
}

func TestRouter_SearchResorts_NoMatch(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/search?name=nonexistent")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Metadata.TotalFound)
	assert.Empty(t, resp.Resorts)
}

func TestRouter_SearchResorts_MissingParams(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/search")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body models.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.MsgInvalidParameters, body.Error)
}

func TestRouter_NearbyResorts(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/nearby?lat=50.0&lon=-123.0&radius=100")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.NearbyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.Metadata.TotalFound)
	assert.Equal(t, 50.0, resp.Metadata.Center.Lat)
	assert.Equal(t, -123.0, resp.Metadata.Center.Lon)
	assert.Equal(t, 100.0, resp.Metadata.RadiusKM)
	require.Len(t, resp.Resorts, 1)
	assert.Equal(t, "Whistler Blackcomb", resp.Resorts[0].Name)
	require.NotNil(t, resp.Resorts[0].Distance)
	assert.InDelta(t, 13.3, *resp.Resorts[0].Distance, 2.0)
}

func TestRouter_NearbyResorts_DefaultRadius(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/nearby?lat=50.0&lon=-123.0")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.NearbyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(resort.DefaultNearbyRadiusKM), resp.Metadata.RadiusKM)
	assert.Equal(t, 1, resp.Metadata.TotalFound)
}

func TestRouter_NearbyResorts_InvalidCoords(t *testing.T) {
	router := seededRouter(t)

	for _, path := range []string{
		"/api/resorts/nearby",
		"/api/resorts/nearby?lat=abc&lon=-123.0",
		"/api/resorts/nearby?lat=50.0&lon=NaN",
		"/api/resorts/nearby?lat=50.0&lon=-123.0&radius=wide",
	} {
		w := get(router, path)

		assert.Equal(t, http.StatusBadRequest, w.Code, "path %s", path)

		var body models.ErrorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, models.MsgInvalidParameters, body.Error)
	}
}

func TestRouter_ResortByID(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/1")

	assert.Equal(t, http.StatusOK, w.Code)

	// Detail endpoints return the bare view, no envelope.
	var view resort.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, int64(1), view.ResortID)
	assert.Equal(t, "whistler-blackcomb", view.Slug)
	require.Len(t, view.Webcams, 1)
}

func TestRouter_ResortByID_NotFound(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/999")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body models.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.MsgResortNotFound, body.Error)
	assert.Equal(t, int64(999), body.ResortID)
}

func TestRouter_ResortByID_NonNumeric(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/not-a-number")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body models.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.MsgResortNotFound, body.Error)
}

func TestRouter_ResortBySlug(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/slug/niseko-united")

	assert.Equal(t, http.StatusOK, w.Code)

	var view resort.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, int64(2), view.ResortID)
	assert.Equal(t, "Niseko United", view.Name)
}

func TestRouter_ResortBySlug_NotFound(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/slug/atlantis")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body models.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.MsgResortNotFound, body.Error)
	assert.Equal(t, "atlantis", body.Slug)
}

func TestRouter_Trails(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/1/trails")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.TrailsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, int64(1), resp.ResortID)
	assert.Equal(t, 3, resp.TotalTrails)
	assert.Equal(t, 7.0, resp.TotalLengthKM)
	assert.Equal(t, map[string]int{"easy": 2, "advanced": 1}, resp.DifficultyStats)
	assert.Equal(t, map[string]int{"downhill": 2, "nordic": 1}, resp.TypeStats)
	assert.Nil(t, resp.FiltersApplied.Type)
	assert.Nil(t, resp.FiltersApplied.Difficulty)
	require.Len(t, resp.Trails, 3)
	assert.Equal(t, "Dave Murray Downhill", resp.Trails[0].Name)
	assert.NotEmpty(t, resp.Trails[0].Geometry)
}

func TestRouter_Trails_FilterDifficulty(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/1/trails?difficulty=easy")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.TrailsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// Stats are computed over the filtered set.
	assert.Equal(t, 2, resp.TotalTrails)
	assert.Equal(t, 6.2, resp.TotalLengthKM)
	assert.Equal(t, map[string]int{"easy": 2}, resp.DifficultyStats)
	assert.Equal(t, map[string]int{"downhill": 1, "nordic": 1}, resp.TypeStats)
	require.NotNil(t, resp.FiltersApplied.Difficulty)
	assert.Equal(t, "easy", *resp.FiltersApplied.Difficulty)
	assert.Nil(t, resp.FiltersApplied.Type)
}

func TestRouter_Trails_FilterType(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/1/trails?type=nordic")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.TrailsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.TotalTrails)
	require.Len(t, resp.Trails, 1)
	assert.Equal(t, "Lost Lake Loop", resp.Trails[0].Name)
	require.NotNil(t, resp.FiltersApplied.Type)
	assert.Equal(t, "nordic", *resp.FiltersApplied.Type)
}

func TestRouter_Trails_NotCollected(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/2/trails")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body models.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.MsgTrailsNotFound, body.Error)
	assert.Equal(t, int64(2), body.ResortID)
	assert.Equal(t, models.MsgTrailsNotFoundHint, body.Message)
}

func TestRouter_TrailsBySlug(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/resorts/slug/whistler-blackcomb/trails")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.TrailsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "whistler-blackcomb", resp.Slug)
	assert.Zero(t, resp.ResortID)
	assert.Equal(t, 3, resp.TotalTrails)
}

func TestRouter_Status(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/status")

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, "running", status.Status)
	assert.Equal(t, "API is operational", status.Message)
	assert.Equal(t, models.DatabaseConnected, status.Database)
	assert.NotEmpty(t, status.Timestamp)
	require.NotNil(t, status.TotalResorts)
	assert.Equal(t, 3, *status.TotalResorts)
}

func TestRouter_Status_DatabaseDown(t *testing.T) {
	router := newTestRouter(downRepo{})

	w := get(router, "/api/status")

	// A broken database shows up in the body, not the status code.
	assert.Equal(t, http.StatusOK, w.Code)

	var status models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "running", status.Status)
	assert.Equal(t, models.DatabaseError, status.Database)
	assert.Nil(t, status.TotalResorts)
}

func TestRouter_AdminDisable(t *testing.T) {
	router := seededRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/resorts/2", http.NoBody)
	req.Header.Set("X-Admin-API-Key", testAdminKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.DisableResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusDisabled, resp.Status)
	assert.Equal(t, int64(2), resp.ResortID)

	// The resort is gone from the read surface.
	assert.Equal(t, http.StatusNotFound, get(router, "/api/resorts/2").Code)

	var list models.ResortsResponse
	lw := get(router, "/api/resorts")
	require.NoError(t, json.Unmarshal(lw.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Metadata.TotalResorts)
}

func TestRouter_AdminDisable_MissingKey(t *testing.T) {
	router := seededRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/resorts/1", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body models.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.MsgUnauthorized, body.Error)

	// The resort is untouched.
	assert.Equal(t, http.StatusOK, get(router, "/api/resorts/1").Code)
}

func TestRouter_AdminDisable_WrongKey(t *testing.T) {
	router := seededRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/resorts/1", http.NoBody)
	req.Header.Set("X-Admin-API-Key", "wrong-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_AdminDisable_UnknownResort(t *testing.T) {
	router := seededRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/resorts/999", http.NoBody)
	req.Header.Set("X-Admin-API-Key", testAdminKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body models.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.MsgResortNotFound, body.Error)
	assert.Equal(t, int64(999), body.ResortID)
}

func TestRouter_SecurityHeaders(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/status")

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestRouter_RequestID_Generated(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/healthz")

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)
	assert.Contains(t, requestID, "req_")
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	router := seededRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	router := seededRouter(t)

	w := get(router, "/api/nonexistent")

	assert.Equal(t, http.StatusNotFound, w.Code)
}
