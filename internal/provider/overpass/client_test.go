package overpass_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powderlines/powderlines/internal/provider/overpass"
	"github.com/powderlines/powderlines/internal/provider/resilience"
)

func testHTTPClient() *resilience.Client {
	cfg := resilience.DefaultClientConfig("test")
	cfg.InitialJitter = false
	return resilience.NewClient(cfg)
}

func TestClient_FetchPistes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		query := r.PostForm.Get("data")
		assert.Contains(t, query, `way["piste:type"]`)
		assert.Contains(t, query, `relation["piste:type"]`)
		assert.Contains(t, query, "[timeout:180]")
		assert.Contains(t, query, "out geom;")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"elements": [
			{
				"type": "way", "id": 123,
				"tags": {"piste:type": "downhill", "piste:difficulty": "easy", "name": "Crystal Ridge"},
				"geometry": [{"lat": 45.01, "lon": 6.01}, {"lat": 45.02, "lon": 6.02}]
			},
			{
				"type": "relation", "id": 456,
				"tags": {"piste:type": "downhill"},
				"members": [
					{"role": "outer", "geometry": [{"lat": 45.03, "lon": 6.03}]},
					{"role": "inner", "geometry": [{"lat": 45.04, "lon": 6.04}]}
				]
			}
		]}`))
	}))
	defer server.Close()

	client := overpass.NewClient(overpass.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient(),
	})

	elements, err := client.FetchPistes(context.Background(), 45.0, 6.0)
	require.NoError(t, err)
	require.Len(t, elements, 2)

	way := elements[0]
	assert.Equal(t, "way", way.Type)
	assert.Equal(t, int64(123), way.ID)
	assert.Equal(t, "Crystal Ridge", way.Tags["name"])
	assert.Equal(t, [][]float64{{6.01, 45.01}, {6.02, 45.02}}, way.Ring())

	rel := elements[1]
	assert.Equal(t, "relation", rel.Type)
	assert.Equal(t, [][]float64{{6.03, 45.03}}, rel.Ring())
}

func TestClient_FetchBoundary_ExactMatch(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, r.ParseForm())
		query := r.PostForm.Get("data")
		assert.Contains(t, query, `"landuse"="winter_sports"`)
		assert.Contains(t, query, `"name"="Les Arcs"`)

		w.Write([]byte(`{"elements": [{
			"type": "way", "id": 9,
			"geometry": [
				{"lat": 45.56, "lon": 6.79}, {"lat": 45.58, "lon": 6.79},
				{"lat": 45.58, "lon": 6.83}, {"lat": 45.56, "lon": 6.83}
			]
		}]}`))
	}))
	defer server.Close()

	client := overpass.NewClient(overpass.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient(),
	})

	ring, err := client.FetchBoundary(context.Background(), "Les Arcs", 45.57, 6.81)
	require.NoError(t, err)
	require.NotNil(t, ring)

	assert.Equal(t, int32(1), calls.Load())
	// Ring is closed.
	assert.Equal(t, ring[0], ring[len(ring)-1])
	assert.Len(t, ring, 5)
}

func TestClient_FetchBoundary_FallbackPicksClosest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		require.NoError(t, r.ParseForm())
		query := r.PostForm.Get("data")

		switch n {
		case 1:
			assert.Contains(t, query, `"name"="Val Thorens"`)
			w.Write([]byte(`{"elements": []}`))
		case 2:
			assert.Contains(t, query, `"name"~"Val.*"`)
			w.Write([]byte(`{"elements": []}`))
		default:
			assert.NotContains(t, query, `"name"`)
			w.Write([]byte(`{"elements": [
				{
					"type": "way", "id": 1,
					"geometry": [
						{"lat": 46.1, "lon": 7.1}, {"lat": 46.2, "lon": 7.1}, {"lat": 46.2, "lon": 7.2}
					]
				},
				{
					"type": "way", "id": 2,
					"geometry": [
						{"lat": 45.29, "lon": 6.57}, {"lat": 45.31, "lon": 6.57}, {"lat": 45.31, "lon": 6.59}
					]
				}
			]}`))
		}
	}))
	defer server.Close()

	client := overpass.NewClient(overpass.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient(),
	})

	ring, err := client.FetchBoundary(context.Background(), "Val Thorens", 45.30, 6.58)
	require.NoError(t, err)
	require.NotNil(t, ring)

	assert.Equal(t, int32(3), calls.Load())
	// The second polygon sits on the resort center; the first is ~100km off.
	assert.Equal(t, []float64{6.57, 45.29}, ring[0])
}

func TestClient_FetchBoundary_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"elements": []}`))
	}))
	defer server.Close()

	client := overpass.NewClient(overpass.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient(),
	})

	ring, err := client.FetchBoundary(context.Background(), "Nowhere", 45.0, 6.0)
	require.NoError(t, err)
	assert.Nil(t, ring)
}

func TestClient_FetchPistes_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too busy", http.StatusGatewayTimeout)
	}))
	defer server.Close()

	cfg := resilience.DefaultClientConfig("test")
	cfg.InitialJitter = false
	cfg.MaxRetries = 0
	client := overpass.NewClient(overpass.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: resilience.NewClient(cfg),
	})

	_, err := client.FetchPistes(context.Background(), 45.0, 6.0)
	require.Error(t, err)
}

func TestElement_Ring_IgnoresInnerMembers(t *testing.T) {
	e := overpass.Element{
		Type: "relation",
		Members: []overpass.Member{
			{Role: "outer", Geometry: []overpass.Node{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}}},
			{Role: "inner", Geometry: []overpass.Node{{Lat: 9, Lon: 9}}},
			{Role: "", Geometry: []overpass.Node{{Lat: 5, Lon: 6}}},
		},
	}

	assert.Equal(t, [][]float64{{2, 1}, {4, 3}, {6, 5}}, e.Ring())
}

func TestElement_Ring_UnknownType(t *testing.T) {
	e := overpass.Element{Type: "node"}

	assert.Nil(t, e.Ring())
}
