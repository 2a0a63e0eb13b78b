package traffic_api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mcdev12/trafficdash/go/internal/models"
	"github.com/rs/zerolog/log"
)

// WireState is the state object used by both the sync endpoint and the push channel
type WireState struct {
	Status  string   `json:"status"`
	EndTime *float64 `json:"end_time"`
}

// ToModel validates the wire state.
func (w WireState) ToModel() (models.LightState, error) {
	status, err := models.ParseStatus(w.Status)
	if err != nil {
		return models.LightState{}, err
	}
	return models.LightState{Status: status, Expiry: models.EpochToTime(w.EndTime)}, nil
}

type manualOverrideRequest struct {
	Status   models.Status `json:"status"`
	Duration *int          `json:"duration,omitempty"`
}

// FetchSnapshot pulls the full light state map. Entries that fail validation
// are skipped so one bad light cannot block the rest of the resync.
func (c *TrafficApiClient) FetchSnapshot(ctx context.Context) (map[int]models.LightState, error) {
	body, err := c.Get(ctx, SyncEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var response map[string]WireState
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	states := make(map[int]models.LightState, len(response))
	for key, ws := range response {
		id, err := strconv.Atoi(key)
		if err != nil || id <= 0 {
			log.Warn().Str("key", key).Msg("skipping snapshot entry with invalid light id")
			continue
		}
		state, err := ws.ToModel()
		if err != nil {
			log.Warn().Err(err).Int("light_id", id).Msg("skipping invalid snapshot entry")
			continue
		}
		states[id] = state
	}
	return states, nil
}

// SetManualState forces a light into a status. A zero duration keeps the current one.
func (c *TrafficApiClient) SetManualState(ctx context.Context, lightID int, status models.Status, durationSeconds int) error {
	req := manualOverrideRequest{Status: status}
	if durationSeconds > 0 {
		req.Duration = &durationSeconds
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal manual override: %w", err)
	}
	if _, err := c.Post(ctx, fmt.Sprintf(ManualOverrideEndpoint, lightID), bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("failed to set manual state for light %d: %w", lightID, err)
	}
	return nil
}

// ClearManualState returns a light to automatic cycling.
func (c *TrafficApiClient) ClearManualState(ctx context.Context, lightID int) error {
	if _, err := c.Delete(ctx, fmt.Sprintf(ManualOverrideEndpoint, lightID)); err != nil {
		return fmt.Errorf("failed to clear manual state for light %d: %w", lightID, err)
	}
	return nil
}

// SetDuration changes a light's phase duration.
func (c *TrafficApiClient) SetDuration(ctx context.Context, lightID, durationSeconds int) error {
	if durationSeconds <= 0 {
		return fmt.Errorf("duration must be positive, got %d", durationSeconds)
	}
	if _, err := c.Put(ctx, fmt.Sprintf(DurationEndpoint, lightID, durationSeconds), nil); err != nil {
		return fmt.Errorf("failed to set duration for light %d: %w", lightID, err)
	}
	return nil
}
