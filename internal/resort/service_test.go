package resort_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powderlines/powderlines/internal/cache"
	"github.com/powderlines/powderlines/internal/resort"
)

// fakeRepo is an in-memory Repository that counts reads so tests can
// tell cache hits from database round-trips.
type fakeRepo struct {
	views  []*resort.View
	trails map[int64][]resort.TrailView

	getCalls   int
	listCalls  int
	trailCalls int

	snapshots []*resort.Snapshot
	contacts  map[int64]*resort.ContactInfo
	disabled  []int64
	pingErr   error
}

func (f *fakeRepo) SaveSnapshot(_ context.Context, snap *resort.Snapshot) error {
	f.snapshots = append(f.snapshots, snap)
	return nil
}

func (f *fakeRepo) SaveContact(_ context.Context, resortID int64, info *resort.ContactInfo) error {
	if f.contacts == nil {
		f.contacts = make(map[int64]*resort.ContactInfo)
	}
	f.contacts[resortID] = info
	return nil
}

func (f *fakeRepo) ReplaceTrails(_ context.Context, resortID int64, _ [][]float64, trails []resort.Trail) error {
	views := make([]resort.TrailView, len(trails))
	for i, t := range trails {
		views[i] = resort.TrailView{OSMID: t.OSMID, Name: t.Name}
	}
	if f.trails == nil {
		f.trails = make(map[int64][]resort.TrailView)
	}
	f.trails[resortID] = views
	return nil
}

func (f *fakeRepo) Disable(_ context.Context, id int64) (string, error) {
	for _, v := range f.views {
		if v.ResortID == id {
			f.disabled = append(f.disabled, id)
			return v.Slug, nil
		}
	}
	return "", resort.ErrNotFound
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*resort.View, error) {
	f.getCalls++
	for _, v := range f.views {
		if v.ResortID == id {
			c := *v
			return &c, nil
		}
	}
	return nil, resort.ErrNotFound
}

func (f *fakeRepo) GetBySlug(_ context.Context, slug string) (*resort.View, error) {
	f.getCalls++
	for _, v := range f.views {
		if v.Slug == slug {
			c := *v
			return &c, nil
		}
	}
	return nil, resort.ErrNotFound
}

func (f *fakeRepo) ListEnabled(_ context.Context) ([]*resort.View, error) {
	f.listCalls++
	out := make([]*resort.View, 0, len(f.views))
	for _, v := range f.views {
		c := *v
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeRepo) TrailsByID(_ context.Context, id int64) ([]resort.TrailView, error) {
	f.trailCalls++
	return f.trails[id], nil
}

func (f *fakeRepo) TrailsBySlug(_ context.Context, slug string) ([]resort.TrailView, error) {
	f.trailCalls++
	for _, v := range f.views {
		if v.Slug == slug {
			return f.trails[v.ResortID], nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CountEnabled(_ context.Context) (int, error) { return len(f.views), nil }

func (f *fakeRepo) Ping(_ context.Context) error { return f.pingErr }

var _ resort.Repository = (*fakeRepo)(nil)

func newTestService(repo *fakeRepo) *resort.Service {
	return resort.NewService(resort.ServiceConfig{
		Repo:   repo,
		Cache:  cache.NewMemory(),
		Logger: zerolog.Nop(),
	})
}

func fixtureViews() []*resort.View {
	return []*resort.View{
		{
			ResortID: 1,
			Name:     "Whistler Blackcomb",
			Slug:     "whistler-blackcomb",
			Location: "British Columbia, Canada",
			Lat:      50.1163,
			Lon:      -122.9574,
			Status:   resort.StatusOpen,
		},
		{
			ResortID: 2,
			Name:     "Chamonix Mont-Blanc",
			Slug:     "chamonix",
			Location: "Haute-Savoie, France",
			Lat:      45.9237,
			Lon:      6.8694,
			Status:   resort.StatusClosed,
		},
		{
			ResortID: 3,
			Name:     "Powder Ridge",
			Slug:     "powder-ridge",
			Location: "Utah, USA",
			Lat:      40.6461,
			Lon:      -111.498,
			Status:   resort.StatusPartial,
		},
	}
}

func TestServiceResortByID_CachesReads(t *testing.T) {
	repo := &fakeRepo{views: fixtureViews()}
	svc := newTestService(repo)
	ctx := context.Background()

	v, err := svc.ResortByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Whistler Blackcomb", v.Name)

	again, err := svc.ResortByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, v.Name, again.Name)
	assert.Equal(t, 1, repo.getCalls)
}

func TestServiceResortBySlug_NotFound(t *testing.T) {
	svc := newTestService(&fakeRepo{views: fixtureViews()})

	_, err := svc.ResortBySlug(context.Background(), "no-such-resort")
	assert.ErrorIs(t, err, resort.ErrNotFound)
}

func TestServiceSaveSnapshot_InvalidatesReadKeys(t *testing.T) {
	repo := &fakeRepo{views: fixtureViews()}
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.AllResorts(ctx)
	require.NoError(t, err)
	_, err = svc.AllResorts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	_, err = svc.ResortByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getCalls)

	err = svc.SaveSnapshot(ctx, &resort.Snapshot{
		Resort: resort.Resort{ID: 1, Slug: "whistler-blackcomb"},
	})
	require.NoError(t, err)
	require.Len(t, repo.snapshots, 1)

	_, err = svc.AllResorts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)

	_, err = svc.ResortByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.getCalls)
}

func TestServiceSummaries_StripsAndCaches(t *testing.T) {
	views := fixtureViews()
	temp := -3.0
	views[0].Weather = &resort.WeatherView{
		Current: resort.WeatherCurrent{Temperature: &temp},
		Hourly:  make([]resort.HourlyPoint, 48),
		Daily:   make([]resort.DailyPoint, 7),
	}
	views[0].Webcams = []resort.WebcamView{{UUID: "cam-1"}}

	repo := &fakeRepo{views: views}
	svc := newTestService(repo)
	ctx := context.Background()

	sums, err := svc.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 3)

	first := sums[0]
	assert.Empty(t, first.Webcams)
	require.NotNil(t, first.Weather)
	assert.Empty(t, first.Weather.Hourly)
	assert.Empty(t, first.Weather.Daily)
	require.NotNil(t, first.Weather.Current.Temperature)
	assert.Equal(t, -3.0, *first.Weather.Current.Temperature)

	_, err = svc.Summaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestServiceOpenResorts_AppliesStatusRewrite(t *testing.T) {
	views := fixtureViews()
	// Provider still reports closed, but the published opening date was
	// ten days ago, so the read path must correct it.
	views[1].Extra = map[string]any{
		resort.ExtraOpeningDate: time.Now().AddDate(0, 0, -10).Format(time.DateOnly),
	}
	views[2].Status = resort.StatusClosed

	svc := newTestService(&fakeRepo{views: views})

	open, err := svc.OpenResorts(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 2)

	slugs := []string{open[0].Slug, open[1].Slug}
	assert.Contains(t, slugs, "whistler-blackcomb")
	assert.Contains(t, slugs, "chamonix")
	assert.Equal(t, resort.StatusOpen, open[1].Status)
}

func TestServiceSearch(t *testing.T) {
	svc := newTestService(&fakeRepo{views: fixtureViews()})
	ctx := context.Background()

	byName, err := svc.Search(ctx, "CHAM", "")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "chamonix", byName[0].Slug)

	byLocation, err := svc.Search(ctx, "", "usa")
	require.NoError(t, err)
	require.Len(t, byLocation, 1)
	assert.Equal(t, "powder-ridge", byLocation[0].Slug)

	// Filters combine with OR.
	either, err := svc.Search(ctx, "whistler", "france")
	require.NoError(t, err)
	assert.Len(t, either, 2)

	none, err := svc.Search(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestServiceNearby(t *testing.T) {
	views := []*resort.View{
		{ResortID: 1, Name: "Near", Slug: "near", Lat: 45.3, Lon: 6.0},
		{ResortID: 2, Name: "Here", Slug: "here", Lat: 45.0, Lon: 6.0},
		{ResortID: 3, Name: "Far", Slug: "far", Lat: 46.0, Lon: 6.0},
		{ResortID: 4, Name: "Unlocated", Slug: "unlocated"},
	}
	svc := newTestService(&fakeRepo{views: views})

	got, err := svc.Nearby(context.Background(), 45.0, 6.0, resort.DefaultNearbyRadiusKM)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "here", got[0].Slug)
	require.NotNil(t, got[0].Distance)
	assert.Zero(t, *got[0].Distance)

	// 0.3 degrees of latitude is ~33.36 km, rounded to two decimals.
	assert.Equal(t, "near", got[1].Slug)
	require.NotNil(t, got[1].Distance)
	assert.InDelta(t, 33.36, *got[1].Distance, 0.005)
}

func TestServiceTrails_CachesNonEmpty(t *testing.T) {
	repo := &fakeRepo{
		views: fixtureViews(),
		trails: map[int64][]resort.TrailView{
			1: {{ID: 11, OSMID: "815001", Name: "Peak to Creek", Difficulty: resort.DifficultyAdvanced}},
		},
	}
	svc := newTestService(repo)
	ctx := context.Background()

	trails, err := svc.TrailsByID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, trails, 1)
	assert.Equal(t, "Peak to Creek", trails[0].Name)

	_, err = svc.TrailsByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.trailCalls)

	// Empty result sets are not cached, so the next probe hits the
	// repository again.
	empty, err := svc.TrailsByID(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
	_, err = svc.TrailsByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.trailCalls)
}

func TestServiceDisable_InvalidatesTrailKeys(t *testing.T) {
	repo := &fakeRepo{
		views: fixtureViews(),
		trails: map[int64][]resort.TrailView{
			1: {{ID: 11, OSMID: "815001", Name: "Peak to Creek"}},
		},
	}
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.TrailsByID(ctx, 1)
	require.NoError(t, err)
	_, err = svc.TrailsByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.trailCalls)

	require.NoError(t, svc.Disable(ctx, 1))

	_, err = svc.TrailsByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.trailCalls)

	assert.ErrorIs(t, svc.Disable(ctx, 99), resort.ErrNotFound)
}

func TestServiceHealth(t *testing.T) {
	repo := &fakeRepo{views: fixtureViews()}
	svc := newTestService(repo)

	count, err := svc.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	repo.pingErr = assert.AnError
	_, err = svc.Health(context.Background())
	assert.Error(t, err)
}
