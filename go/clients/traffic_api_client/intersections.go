package traffic_api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

type favoriteRequest struct {
	IsFavorite bool `json:"is_favorite"`
}

type favoriteResponse struct {
	ID         int   `json:"id"`
	IsFavorite *bool `json:"is_favorite"`
}

// SetFavorite updates an intersection's favorite flag and returns the value
// the server actually stored.
func (c *TrafficApiClient) SetFavorite(ctx context.Context, intersectionID int, value bool) (bool, error) {
	payload, err := json.Marshal(favoriteRequest{IsFavorite: value})
	if err != nil {
		return false, fmt.Errorf("failed to marshal favorite: %w", err)
	}

	body, err := c.Put(ctx, fmt.Sprintf(FavoriteEndpoint, intersectionID), bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to set favorite for intersection %d: %w", intersectionID, err)
	}

	var response favoriteResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return false, fmt.Errorf("failed to unmarshal favorite response: %w", err)
	}
	if response.IsFavorite == nil {
		return false, fmt.Errorf("favorite response for intersection %d is missing is_favorite", intersectionID)
	}
	return *response.IsFavorite, nil
}

// ResetIntersection puts every light of an intersection back in automatic mode.
func (c *TrafficApiClient) ResetIntersection(ctx context.Context, intersectionID int) error {
	if _, err := c.Post(ctx, fmt.Sprintf(ResetEndpoint, intersectionID), nil); err != nil {
		return fmt.Errorf("failed to reset intersection %d: %w", intersectionID, err)
	}
	return nil
}
