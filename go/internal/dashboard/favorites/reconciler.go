package favorites

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// API is the favorite mutation endpoint. It returns the server's stored value.
type API interface {
	SetFavorite(ctx context.Context, intersectionID int, value bool) (bool, error)
}

// Store holds the cached favorite flags
type Store interface {
	SetFavorite(intersectionID int, value bool) bool
}

// View is notified once a favorite change is confirmed
type View interface {
	FavoriteChanged(intersectionID int, value bool)
}

// Resyncer requests a full state pull
type Resyncer interface {
	RequestResync(reason string)
}

// Result is the outcome of one toggle
type Result struct {
	IntersectionID int
	Value          bool
	Err            error
}

// OK reports whether the server accepted the change.
func (r Result) OK() bool {
	return r.Err == nil
}

// Reconciler applies favorite changes only after the server confirms them
type Reconciler struct {
	api      API
	store    Store
	view     View
	resyncer Resyncer
}

func NewReconciler(api API, store Store, view View, resyncer Resyncer) *Reconciler {
	return &Reconciler{
		api:      api,
		store:    store,
		view:     view,
		resyncer: resyncer,
	}
}

// Toggle asks the server to set the intersection's favorite flag to next.
// Nothing local changes unless the request succeeds, and then the value the
// server returned is applied, which may differ from next.
func (r *Reconciler) Toggle(ctx context.Context, intersectionID int, next bool) Result {
	value, err := r.api.SetFavorite(ctx, intersectionID, next)
	if err != nil {
		log.Warn().Err(err).Int("intersection_id", intersectionID).Bool("requested", next).Msg("favorite update failed")
		return Result{
			IntersectionID: intersectionID,
			Value:          next,
			Err:            fmt.Errorf("set favorite for intersection %d: %w", intersectionID, err),
		}
	}

	if !r.store.SetFavorite(intersectionID, value) {
		log.Debug().Int("intersection_id", intersectionID).Msg("favorite confirmed for intersection not in cache")
	}
	if r.view != nil {
		r.view.FavoriteChanged(intersectionID, value)
	}
	if value != next {
		log.Info().Int("intersection_id", intersectionID).Bool("requested", next).Bool("stored", value).Msg("server kept a different favorite value")
	}
	if r.resyncer != nil {
		r.resyncer.RequestResync("favorite_changed")
	}
	return Result{IntersectionID: intersectionID, Value: value}
}
