package traffic_api_client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mcdev12/trafficdash/go/clients"
	"github.com/mcdev12/trafficdash/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *TrafficApiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTrafficApiClient(srv.URL, time.Second)
}

func TestFetchSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, SyncEndpoint, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"7": {"status": "GREEN", "end_time": 1700000010.5},
			"8": {"status": "red", "end_time": null},
			"9": {"status": "BLUE", "end_time": 1},
			"x": {"status": "RED"}
		}`)
	})

	states, err := client.FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)

	green := states[7]
	assert.Equal(t, models.StatusGreen, green.Status)
	require.NotNil(t, green.Expiry)
	assert.Equal(t, time.Unix(1700000010, int64(500*time.Millisecond)), *green.Expiry)

	red := states[8]
	assert.Equal(t, models.StatusRed, red.Status)
	assert.Nil(t, red.Expiry)
}

func TestFetchSnapshot_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.FetchSnapshot(context.Background())
	require.Error(t, err)

	var apiErr *clients.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestGetCitiesAndAreas(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case CitiesEndpoint:
			_, _ = io.WriteString(w, `[{"id":1,"name":"Metro","code":"MET","areas":[]},{"id":2,"name":"Port","code":"PRT"}]`)
		case "/api/v1/cities/1":
			_, _ = io.WriteString(w, `{"id":1,"name":"Metro","code":"MET","areas":[{"id":10,"name":"Center","code":"C","city_id":1}]}`)
		default:
			http.NotFound(w, r)
		}
	})

	cities, err := client.GetCities(context.Background())
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, "Metro", cities[0].Name)
	assert.False(t, cities[0].AreasLoaded(), "city list never populates areas")

	areas, err := client.GetCityAreas(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, models.Area{ID: 10, CityID: 1, Name: "Center", Code: "C"}, areas[0])
}

func TestGetAreaIntersections(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/areas/10", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":10,"name":"Center","code":"C","city_id":1,"intersections":[
			{"id":100,"name":"Main & 1st","code":"M1","location":"x","is_favorite":true,"traffic_lights":[
				{"id":1,"direction":"North","status":"GREEN","duration":60,"is_manual":false},
				{"id":2,"direction":"East","status":"RED","duration":45,"is_manual":true}
			]}
		]}`)
	})

	intersections, err := client.GetAreaIntersections(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, intersections, 1)

	in := intersections[0]
	assert.Equal(t, 10, in.AreaID)
	assert.True(t, in.IsFavorite)
	require.Len(t, in.Lights, 2)
	assert.Equal(t, models.DirectionNorth, in.Lights[0].Direction)
	assert.Equal(t, 100, in.Lights[0].IntersectionID)
	assert.Equal(t, 45, in.Lights[1].DurationSeconds)
	assert.True(t, in.Lights[1].IsManual)
}

func TestGetAreaIntersections_RejectsBadDirection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":10,"intersections":[{"id":100,"traffic_lights":[{"id":1,"direction":"Up","status":"RED"}]}]}`)
	})

	_, err := client.GetAreaIntersections(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidDirection))
}

func TestSetFavorite_ReturnsServerValue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/intersections/5/favorite", r.URL.Path)

		var req favoriteRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.IsFavorite)

		_, _ = io.WriteString(w, `{"id":5,"is_favorite":false}`)
	})

	value, err := client.SetFavorite(context.Background(), 5, true)
	require.NoError(t, err)
	assert.False(t, value)
}

func TestSetFavorite_MissingValue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	})

	_, err := client.SetFavorite(context.Background(), 5, true)
	assert.Error(t, err)
}

func TestMutations(t *testing.T) {
	type call struct {
		method string
		uri    string
		body   string
	}
	var calls []call
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.RequestURI(), string(b)})
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	})
	ctx := context.Background()

	require.NoError(t, client.SetManualState(ctx, 3, models.StatusYellow, 20))
	require.NoError(t, client.ClearManualState(ctx, 3))
	require.NoError(t, client.SetDuration(ctx, 3, 30))
	require.NoError(t, client.ResetIntersection(ctx, 9))
	assert.Error(t, client.SetDuration(ctx, 3, 0))

	require.Len(t, calls, 4)
	assert.Equal(t, call{http.MethodPost, "/api/v1/admin/traffic-lights/3/manual", `{"status":"YELLOW","duration":20}`}, calls[0])
	assert.Equal(t, http.MethodDelete, calls[1].method)
	assert.Equal(t, "/api/v1/admin/traffic-lights/3/duration?duration=30", calls[2].uri)
	assert.Equal(t, "/api/v1/intersections/9/reset", calls[3].uri)
}

func TestPushURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8000", "ws://localhost:8000/api/v1/ws"},
		{"https://signals.example.com/", "wss://signals.example.com/api/v1/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := NewTrafficApiClient(tt.base, 0).PushURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NewTrafficApiClient("ftp://nope", 0).PushURL()
	assert.Error(t, err)
}
