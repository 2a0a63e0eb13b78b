package coordinator

import (
	"context"
	"fmt"

	"github.com/mcdev12/trafficdash/go/internal/models"
	"github.com/rs/zerolog/log"
)

// SelectArea loads an area's intersections and then requests a resync so
// their lights pick up current state.
func (c *Coordinator) SelectArea(ctx context.Context, areaID int) ([]*models.Intersection, error) {
	intersections, err := c.cache.EnsureIntersections(ctx, areaID)
	if err != nil {
		return nil, fmt.Errorf("select area %d: %w", areaID, err)
	}
	c.RequestResync("area_selected")
	return intersections, nil
}

// SetManual forces a light into status. The cache is only updated by the resync that follows.
func (c *Coordinator) SetManual(ctx context.Context, lightID int, status models.Status, durationSeconds int) error {
	if err := c.api.SetManualState(ctx, lightID, status, durationSeconds); err != nil {
		return err
	}
	log.Info().Int("light_id", lightID).Str("status", string(status)).Msg("manual override set")
	c.RequestResync("manual_override")
	return nil
}

// ClearManual returns a light to automatic cycling.
func (c *Coordinator) ClearManual(ctx context.Context, lightID int) error {
	if err := c.api.ClearManualState(ctx, lightID); err != nil {
		return err
	}
	log.Info().Int("light_id", lightID).Msg("manual override cleared")
	c.RequestResync("manual_cleared")
	return nil
}

// SetDuration changes a light's phase length.
func (c *Coordinator) SetDuration(ctx context.Context, lightID, durationSeconds int) error {
	if err := c.api.SetDuration(ctx, lightID, durationSeconds); err != nil {
		return err
	}
	log.Info().Int("light_id", lightID).Int("duration", durationSeconds).Msg("light duration updated")
	c.RequestResync("duration_changed")
	return nil
}

// ResetIntersection restarts an intersection's cycle.
func (c *Coordinator) ResetIntersection(ctx context.Context, intersectionID int) error {
	if err := c.api.ResetIntersection(ctx, intersectionID); err != nil {
		return err
	}
	log.Info().Int("intersection_id", intersectionID).Msg("intersection reset")
	c.RequestResync("intersection_reset")
	return nil
}
