package status

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mcdev12/trafficdash/go/internal/dashboard/coordinator"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/countdown"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/display"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/transport"
	"github.com/mcdev12/trafficdash/go/internal/models"
	"github.com/rs/zerolog/log"
)

// LightStore is the read side of the domain cache
type LightStore interface {
	Light(lightID int) (models.TrafficLight, bool)
	Favorites() []models.Intersection
}

// Board renders countdown text
type Board interface {
	Snapshot() display.Snapshot
	Text(lightID int) string
}

// CountdownStates reports per-light countdown lifecycle
type CountdownStates interface {
	State(lightID int) countdown.State
}

// SyncStats exposes coordinator counters
type SyncStats interface {
	Stats() coordinator.Stats
}

// ChannelStater reports the push channel's state
type ChannelStater interface {
	State() transport.ChannelState
}

// Sources groups what the status handler reads from
type Sources struct {
	SessionID  string
	Lights     LightStore
	Board      Board
	Countdowns CountdownStates
	Sync       SyncStats
	Channel    ChannelStater
}

// FavoriteInfo summarizes a favorite intersection
type FavoriteInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Location string `json:"location"`
	Lights   int    `json:"lights"`
}

// BoardResponse is the full dashboard view
type BoardResponse struct {
	SessionID string              `json:"session_id"`
	Channel   string              `json:"channel"`
	Sync      coordinator.Stats   `json:"sync"`
	Lights    []display.LightView `json:"lights"`
	Favorites []FavoriteInfo      `json:"favorites"`
}

// LightResponse is one light with its rendered countdown
type LightResponse struct {
	Light     models.TrafficLight `json:"light"`
	Display   string              `json:"display"`
	Countdown string              `json:"countdown"`
}

// StateHandler serves read-only dashboard state over HTTP
type StateHandler struct {
	sources Sources
}

// NewStateHandler creates a new state handler
func NewStateHandler(sources Sources) *StateHandler {
	return &StateHandler{sources: sources}
}

// HandleGetBoard handles GET /api/board
func (h *StateHandler) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
	snap := h.sources.Board.Snapshot()

	favorites := h.sources.Lights.Favorites()
	infos := make([]FavoriteInfo, 0, len(favorites))
	for _, in := range favorites {
		infos = append(infos, FavoriteInfo{
			ID:       in.ID,
			Name:     in.Name,
			Code:     in.Code,
			Location: in.Location,
			Lights:   len(in.Lights),
		})
	}

	resp := BoardResponse{
		SessionID: h.sources.SessionID,
		Sync:      h.sources.Sync.Stats(),
		Lights:    snap.Lights,
		Favorites: infos,
	}
	if h.sources.Channel != nil {
		resp.Channel = h.sources.Channel.State().String()
	}
	writeJSON(w, resp)
}

// HandleGetLight handles GET /api/lights/{id}
func (h *StateHandler) HandleGetLight(w http.ResponseWriter, r *http.Request) {
	lightID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || lightID <= 0 {
		http.Error(w, "Invalid light ID", http.StatusBadRequest)
		return
	}

	light, ok := h.sources.Lights.Light(lightID)
	if !ok {
		http.Error(w, "Light not loaded", http.StatusNotFound)
		return
	}

	writeJSON(w, LightResponse{
		Light:     light,
		Display:   h.sources.Board.Text(lightID),
		Countdown: h.sources.Countdowns.State(lightID).String(),
	})
}

// HandleHealth handles GET /health
func (h *StateHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// RegisterRoutes registers the status routes on mux
func (h *StateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/board", h.HandleGetBoard)
	mux.HandleFunc("GET /api/lights/{id}", h.HandleGetLight)
	mux.HandleFunc("GET /health", h.HandleHealth)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode status response")
	}
}
