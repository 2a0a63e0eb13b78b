package status

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mcdev12/trafficdash/go/internal/dashboard/coordinator"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/countdown"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/display"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/metrics"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/transport"
	"github.com/mcdev12/trafficdash/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct{}

func (fakeStore) Light(lightID int) (models.TrafficLight, bool) {
	if lightID != 1 {
		return models.TrafficLight{}, false
	}
	return models.TrafficLight{ID: 1, IntersectionID: 10, Direction: models.DirectionNorth, Status: models.StatusGreen}, true
}

func (fakeStore) Favorites() []models.Intersection {
	return []models.Intersection{{ID: 10, Name: "Main & 1st", Lights: []*models.TrafficLight{{ID: 1}}}}
}

type fakeCountdowns struct{}

func (fakeCountdowns) State(int) countdown.State { return countdown.CountingDown }

type fakeSync struct{}

func (fakeSync) Stats() coordinator.Stats { return coordinator.Stats{Pushes: 4, ResyncsCompleted: 2} }

type fakeChannel struct{}

func (fakeChannel) State() transport.ChannelState { return transport.StateOpen }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	board := display.NewBoard(nil)
	board.ShowRemaining(1, 7)

	prom := metrics.NewPrometheus()
	prom.ResyncRequested("startup")

	handler := NewStateHandler(Sources{
		SessionID:  "session-1",
		Lights:     fakeStore{},
		Board:      board,
		Countdowns: fakeCountdowns{},
		Sync:       fakeSync{},
		Channel:    fakeChannel{},
	})
	srv := httptest.NewServer(NewServer(":0", handler, prom.Registry()).Handler)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://dashboard.local")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestGetBoard(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/api/board")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var board BoardResponse
	require.NoError(t, json.Unmarshal([]byte(body), &board))
	assert.Equal(t, "session-1", board.SessionID)
	assert.Equal(t, "open", board.Channel)
	assert.Equal(t, 4, board.Sync.Pushes)
	assert.Equal(t, []display.LightView{{LightID: 1, Text: "7s"}}, board.Lights)
	assert.Equal(t, []FavoriteInfo{{ID: 10, Name: "Main & 1st", Lights: 1}}, board.Favorites)
}

func TestGetLight(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/api/lights/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var light LightResponse
	require.NoError(t, json.Unmarshal([]byte(body), &light))
	assert.Equal(t, models.StatusGreen, light.Light.Status)
	assert.Equal(t, "7s", light.Display)
	assert.Equal(t, "counting_down", light.Countdown)

	resp, _ = get(t, srv.URL+"/api/lights/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/api/lights/99")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)

	resp, body = get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(body, `trafficdash_resyncs_requested_total{reason="startup"} 1`), body)
}
