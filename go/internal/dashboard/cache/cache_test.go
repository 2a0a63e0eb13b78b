package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mcdev12/trafficdash/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	cityCalls         atomic.Int32
	areaCalls         atomic.Int32
	intersectionCalls atomic.Int32

	// gate, when set, blocks intersection fetches until closed
	gate    chan struct{}
	failFor atomic.Int32
}

func (f *fakeFetcher) GetCities(ctx context.Context) ([]models.City, error) {
	f.cityCalls.Add(1)
	return []models.City{{ID: 1, Name: "Metro"}, {ID: 2, Name: "Port"}}, nil
}

func (f *fakeFetcher) GetCityAreas(ctx context.Context, cityID int) ([]models.Area, error) {
	f.areaCalls.Add(1)
	return []models.Area{{ID: cityID * 10, Name: "Center"}}, nil
}

func (f *fakeFetcher) GetAreaIntersections(ctx context.Context, areaID int) ([]models.Intersection, error) {
	f.intersectionCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.failFor.Load() > 0 {
		f.failFor.Add(-1)
		return nil, errors.New("network down")
	}
	return []models.Intersection{
		{ID: areaID * 10, Name: "Main & 1st", Lights: []*models.TrafficLight{
			{ID: areaID*100 + 1, Direction: models.DirectionNorth, Status: models.StatusRed},
			{ID: areaID*100 + 2, Direction: models.DirectionEast, Status: models.StatusGreen},
		}},
		{ID: areaID*10 + 1, Name: "Main & 2nd", IsFavorite: true},
	}, nil
}

func loaded(t *testing.T, f *fakeFetcher) *Cache {
	t.Helper()
	c := New(f)
	ctx := context.Background()
	_, err := c.LoadCities(ctx)
	require.NoError(t, err)
	_, err = c.EnsureAreas(ctx, 1)
	require.NoError(t, err)
	return c
}

func TestLoadCities_Memoized(t *testing.T) {
	f := &fakeFetcher{}
	c := New(f)
	assert.Empty(t, c.Cities())

	first, err := c.LoadCities(context.Background())
	require.NoError(t, err)
	second, err := c.LoadCities(context.Background())
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Same(t, first[0], second[0])
	assert.Equal(t, int32(1), f.cityCalls.Load())
}

func TestEnsureAreas(t *testing.T) {
	f := &fakeFetcher{}
	c := loaded(t, f)

	areas, err := c.EnsureAreas(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, 1, areas[0].CityID)
	assert.Equal(t, int32(1), f.areaCalls.Load())

	_, err = c.EnsureAreas(context.Background(), 99)
	assert.True(t, errors.Is(err, ErrUnknownCity))
}

func TestEnsureIntersections_ConcurrentCallersShareOneFetch(t *testing.T) {
	f := &fakeFetcher{gate: make(chan struct{})}
	c := loaded(t, f)

	const callers = 8
	results := make([][]*models.Intersection, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := c.EnsureIntersections(context.Background(), 10)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}

	require.Eventually(t, func() bool { return f.intersectionCalls.Load() == 1 }, time.Second, time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.Equal(t, int32(1), f.intersectionCalls.Load())
	for _, r := range results {
		require.Len(t, r, 2)
		assert.Same(t, results[0][0], r[0])
	}
}

func TestEnsureIntersections_FailureIsRetried(t *testing.T) {
	f := &fakeFetcher{}
	f.failFor.Store(1)
	c := loaded(t, f)

	_, err := c.EnsureIntersections(context.Background(), 10)
	require.Error(t, err)
	_, ok := c.Light(1001)
	assert.False(t, ok, "failed load must not leave partial state")

	got, err := c.EnsureIntersections(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(2), f.intersectionCalls.Load())
}

func TestEnsureIntersections_UnknownArea(t *testing.T) {
	c := loaded(t, &fakeFetcher{})
	_, err := c.EnsureIntersections(context.Background(), 77)
	assert.True(t, errors.Is(err, ErrUnknownArea))
}

func TestEnsureIntersections_CallerCancel(t *testing.T) {
	f := &fakeFetcher{gate: make(chan struct{})}
	c := loaded(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.EnsureIntersections(ctx, 10)
	assert.True(t, errors.Is(err, context.Canceled))

	close(f.gate)
	got, err := c.EnsureIntersections(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestApplyLightState(t *testing.T) {
	c := loaded(t, &fakeFetcher{})
	_, err := c.EnsureIntersections(context.Background(), 10)
	require.NoError(t, err)

	exp := time.Unix(1700000000, 0)
	assert.True(t, c.ApplyLightState(1001, models.LightState{Status: models.StatusGreen, Expiry: &exp}))
	assert.False(t, c.ApplyLightState(4242, models.LightState{Status: models.StatusRed}))

	light, ok := c.Light(1001)
	require.True(t, ok)
	assert.Equal(t, models.StatusGreen, light.Status)
	assert.True(t, light.Synced)
	require.NotNil(t, light.Expiry)
	assert.Equal(t, exp, *light.Expiry)

	// the shared tree sees the same update
	c.Read(func() {
		assert.Equal(t, models.StatusGreen, c.areaByID[10].Intersections[0].Lights[0].Status)
	})

	assert.True(t, c.ApplyLightState(1001, models.LightState{Status: models.StatusRed}))
	light, _ = c.Light(1001)
	assert.Nil(t, light.Expiry)
	assert.Equal(t, []int{1001, 1002}, c.LightIDs())
}

func TestFavorites(t *testing.T) {
	c := loaded(t, &fakeFetcher{})
	_, err := c.EnsureIntersections(context.Background(), 10)
	require.NoError(t, err)

	favs := c.Favorites()
	require.Len(t, favs, 1)
	assert.Equal(t, 101, favs[0].ID)

	assert.True(t, c.SetFavorite(100, true))
	assert.False(t, c.SetFavorite(555, true))

	favs = c.Favorites()
	require.Len(t, favs, 2)
	assert.Equal(t, 100, favs[0].ID)

	in, ok := c.Intersection(100)
	require.True(t, ok)
	assert.True(t, in.IsFavorite)
	assert.Len(t, in.Lights, 2)
}
