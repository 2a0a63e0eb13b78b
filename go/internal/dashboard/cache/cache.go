package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/mcdev12/trafficdash/go/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnknownCity is returned when areas are requested for a city that is not in the loaded city list
	ErrUnknownCity = errors.New("unknown city")
	// ErrUnknownArea is returned when intersections are requested for an area whose city has not been expanded
	ErrUnknownArea = errors.New("unknown area")
)

// Fetcher is the read side of the signal server API
type Fetcher interface {
	GetCities(ctx context.Context) ([]models.City, error)
	GetCityAreas(ctx context.Context, cityID int) ([]models.Area, error)
	GetAreaIntersections(ctx context.Context, areaID int) ([]models.Intersection, error)
}

// Cache is the session's in-memory City → Area → Intersection → TrafficLight tree.
// Subtrees are fetched on first access and kept for the lifetime of the cache.
type Cache struct {
	fetcher Fetcher
	loads   singleflight.Group

	mu            sync.RWMutex
	cities        []*models.City
	citiesLoaded  bool
	cityByID      map[int]*models.City
	areaByID      map[int]*models.Area
	intersections map[int]*models.Intersection
	lights        map[int]*models.TrafficLight
}

// New creates an empty cache backed by fetcher.
func New(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher:       fetcher,
		cities:        []*models.City{},
		cityByID:      make(map[int]*models.City),
		areaByID:      make(map[int]*models.Area),
		intersections: make(map[int]*models.Intersection),
		lights:        make(map[int]*models.TrafficLight),
	}
}

// Cities returns the loaded city list, empty until LoadCities succeeds.
func (c *Cache) Cities() []*models.City {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cities
}

// LoadCities fetches the city list once. Later calls return the cached list.
func (c *Cache) LoadCities(ctx context.Context) ([]*models.City, error) {
	c.mu.RLock()
	if c.citiesLoaded {
		cities := c.cities
		c.mu.RUnlock()
		return cities, nil
	}
	c.mu.RUnlock()

	_, err := c.share(ctx, "cities", func(ctx context.Context) error {
		fetched, err := c.fetcher.GetCities(ctx)
		if err != nil {
			return err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.citiesLoaded {
			return nil
		}
		cities := make([]*models.City, 0, len(fetched))
		for i := range fetched {
			city := fetched[i]
			city.Areas = nil
			cities = append(cities, &city)
			c.cityByID[city.ID] = &city
		}
		c.cities = cities
		c.citiesLoaded = true
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to load cities")
		return nil, fmt.Errorf("load cities: %w", err)
	}
	return c.Cities(), nil
}

// EnsureAreas returns the areas of a city, fetching them the first time.
// The same slice is returned on every later call.
func (c *Cache) EnsureAreas(ctx context.Context, cityID int) ([]*models.Area, error) {
	c.mu.RLock()
	city, ok := c.cityByID[cityID]
	if ok && city.AreasLoaded() {
		areas := city.Areas
		c.mu.RUnlock()
		return areas, nil
	}
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCity, cityID)
	}

	_, err := c.share(ctx, "areas:"+strconv.Itoa(cityID), func(ctx context.Context) error {
		fetched, err := c.fetcher.GetCityAreas(ctx, cityID)
		if err != nil {
			return err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if city.AreasLoaded() {
			return nil
		}
		areas := make([]*models.Area, 0, len(fetched))
		for i := range fetched {
			area := fetched[i]
			area.CityID = cityID
			area.Intersections = nil
			areas = append(areas, &area)
		}
		for _, area := range areas {
			c.areaByID[area.ID] = area
		}
		city.Areas = areas
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Int("city_id", cityID).Msg("failed to load areas")
		return nil, fmt.Errorf("load areas for city %d: %w", cityID, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return city.Areas, nil
}

// EnsureIntersections returns the intersections of an area, fetching them
// (with their lights) the first time.
func (c *Cache) EnsureIntersections(ctx context.Context, areaID int) ([]*models.Intersection, error) {
	c.mu.RLock()
	area, ok := c.areaByID[areaID]
	if ok && area.IntersectionsLoaded() {
		intersections := area.Intersections
		c.mu.RUnlock()
		return intersections, nil
	}
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownArea, areaID)
	}

	_, err := c.share(ctx, "intersections:"+strconv.Itoa(areaID), func(ctx context.Context) error {
		fetched, err := c.fetcher.GetAreaIntersections(ctx, areaID)
		if err != nil {
			return err
		}

		intersections := make([]*models.Intersection, 0, len(fetched))
		for i := range fetched {
			in := fetched[i]
			in.AreaID = areaID
			if err := in.Validate(); err != nil {
				return err
			}
			for _, l := range in.Lights {
				l.IntersectionID = in.ID
			}
			intersections = append(intersections, &in)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if area.IntersectionsLoaded() {
			return nil
		}
		for _, in := range intersections {
			c.intersections[in.ID] = in
			for _, l := range in.Lights {
				c.lights[l.ID] = l
			}
		}
		area.Intersections = intersections
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Int("area_id", areaID).Msg("failed to load intersections")
		return nil, fmt.Errorf("load intersections for area %d: %w", areaID, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return area.Intersections, nil
}

// share runs load once per key across concurrent callers. The load itself is
// detached from the caller's cancellation so one impatient caller cannot fail
// the fetch for the others; each caller still stops waiting when its own
// context ends.
func (c *Cache) share(ctx context.Context, key string, load func(ctx context.Context) error) (bool, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.loads.DoChan(key, func() (interface{}, error) {
		return nil, load(detached)
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		return res.Shared, res.Err
	}
}

// ApplyLightState overwrites a light's status and expiry in place. It returns
// false, without error, when the light is not part of any loaded subtree.
func (c *Cache) ApplyLightState(lightID int, state models.LightState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	light, ok := c.lights[lightID]
	if !ok {
		return false
	}
	light.Status = state.Status
	if state.Expiry != nil {
		e := *state.Expiry
		light.Expiry = &e
	} else {
		light.Expiry = nil
	}
	light.Synced = true
	return true
}

// SetFavorite sets an intersection's favorite flag. It returns false when the
// intersection has not been loaded.
func (c *Cache) SetFavorite(intersectionID int, value bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	in, ok := c.intersections[intersectionID]
	if !ok {
		return false
	}
	in.IsFavorite = value
	return true
}

// Light returns a copy of a loaded light.
func (c *Cache) Light(lightID int) (models.TrafficLight, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	light, ok := c.lights[lightID]
	if !ok {
		return models.TrafficLight{}, false
	}
	return light.Clone(), true
}

// Intersection returns a copy of a loaded intersection and its lights.
func (c *Cache) Intersection(intersectionID int) (models.Intersection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	in, ok := c.intersections[intersectionID]
	if !ok {
		return models.Intersection{}, false
	}
	return in.Clone(), true
}

// Favorites returns copies of every loaded intersection marked as favorite, ordered by id.
func (c *Cache) Favorites() []models.Intersection {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Intersection, 0)
	for _, in := range c.intersections {
		if in.IsFavorite {
			out = append(out, in.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LightIDs returns the ids of all loaded lights in ascending order.
func (c *Cache) LightIDs() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]int, 0, len(c.lights))
	for id := range c.lights {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Read runs fn while holding the read lock, for callers that walk the
// pointers returned by the Ensure methods. fn must not call back into the cache.
func (c *Cache) Read(fn func()) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn()
}
