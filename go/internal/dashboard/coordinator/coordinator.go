package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mcdev12/trafficdash/go/internal/dashboard/metrics"
	"github.com/mcdev12/trafficdash/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Cache is the part of the domain cache the coordinator writes to
type Cache interface {
	ApplyLightState(lightID int, state models.LightState) bool
	EnsureIntersections(ctx context.Context, areaID int) ([]*models.Intersection, error)
}

// Countdowns drives the per-light countdown display
type Countdowns interface {
	Start(lightID int, expiry time.Time) bool
	Cancel(lightID int)
}

// API is the signal server surface used for pulls and operator actions
type API interface {
	FetchSnapshot(ctx context.Context) (map[int]models.LightState, error)
	SetManualState(ctx context.Context, lightID int, status models.Status, durationSeconds int) error
	ClearManualState(ctx context.Context, lightID int) error
	SetDuration(ctx context.Context, lightID, durationSeconds int) error
	ResetIntersection(ctx context.Context, intersectionID int) error
}

// Config holds coordinator tuning
type Config struct {
	FetchTimeout time.Duration
	QueueSize    int
}

// DefaultConfig returns default coordinator configuration
func DefaultConfig() Config {
	return Config{
		FetchTimeout: 10 * time.Second,
		QueueSize:    256,
	}
}

// Stats is a point-in-time view of the coordinator's sync activity
type Stats struct {
	Pushes           int       `json:"pushes"`
	ResyncsRequested int       `json:"resyncs_requested"`
	ResyncsCollapsed int       `json:"resyncs_collapsed"`
	ResyncsCompleted int       `json:"resyncs_completed"`
	ResyncsFailed    int       `json:"resyncs_failed"`
	StaleSkipped     int       `json:"stale_skipped"`
	Pulling          bool      `json:"pulling"`
	LastSync         time.Time `json:"last_sync,omitempty"`
}

type pushEvent struct {
	updates []models.LightUpdate
}

type resyncEvent struct {
	reason string
}

type reconnectedEvent struct{}

type snapshotEvent struct {
	seq    uint64
	reason string
	states map[int]models.LightState
	err    error
}

// Coordinator merges pushed deltas and pulled snapshots into the cache and
// keeps countdowns in step. All merging happens on the Run goroutine, one
// event at a time.
type Coordinator struct {
	cache      Cache
	countdowns Countdowns
	api        API
	metrics    metrics.Collector
	config     Config

	events chan interface{}
	done   chan struct{}

	// owned by the Run goroutine
	seq       uint64
	lastPush  map[int]uint64
	pulling   bool
	pullAgain bool

	statsMu sync.Mutex
	stats   Stats
}

// New creates a coordinator. Nothing happens until Run.
func New(cache Cache, countdowns Countdowns, api API, collector metrics.Collector, config Config) *Coordinator {
	def := DefaultConfig()
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = def.FetchTimeout
	}
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	if collector == nil {
		collector = metrics.NoOp{}
	}
	return &Coordinator{
		cache:      cache,
		countdowns: countdowns,
		api:        api,
		metrics:    collector,
		config:     config,
		events:     make(chan interface{}, config.QueueSize),
		done:       make(chan struct{}),
		lastPush:   make(map[int]uint64),
	}
}

// Run performs the startup resync and then processes events until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)

	log.Info().Msg("sync coordinator started")
	c.startPull(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sync coordinator stopped")
			return nil
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// HandleUpdates queues one pushed frame. A batch is merged as a unit.
func (c *Coordinator) HandleUpdates(updates []models.LightUpdate) {
	c.enqueue(pushEvent{updates: updates})
}

// HandleReconnected queues a full resync for a channel that has just reopened.
func (c *Coordinator) HandleReconnected() {
	c.enqueue(reconnectedEvent{})
}

// RequestResync asks for a full pull. Requests made while a pull is
// outstanding are folded into it.
func (c *Coordinator) RequestResync(reason string) {
	c.enqueue(resyncEvent{reason: reason})
}

// Stats returns a copy of the current counters.
func (c *Coordinator) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *Coordinator) enqueue(ev interface{}) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Coordinator) handle(ctx context.Context, ev interface{}) {
	switch e := ev.(type) {
	case pushEvent:
		c.handlePush(e)
	case resyncEvent:
		c.startPull(ctx, e.reason)
	case reconnectedEvent:
		if c.pulling {
			// the outstanding pull was issued before the reconnect
			c.pullAgain = true
			c.updateStats(func(s *Stats) { s.ResyncsRequested++ })
			c.metrics.ResyncRequested("reconnected")
			return
		}
		c.startPull(ctx, "reconnected")
	case snapshotEvent:
		c.handleSnapshot(e)
		if c.pullAgain {
			c.pullAgain = false
			c.startPull(ctx, "reconnected")
		}
	default:
		log.Error().Str("event", fmt.Sprintf("%T", ev)).Msg("unknown coordinator event")
	}
}

func (c *Coordinator) handlePush(e pushEvent) {
	c.seq++
	c.updateStats(func(s *Stats) { s.Pushes++ })

	final := make(map[int]models.LightState, len(e.updates))
	touched := make([]int, 0, len(e.updates))
	for _, u := range e.updates {
		if !c.cache.ApplyLightState(u.LightID, u.State) {
			log.Debug().Int("light_id", u.LightID).Msg("ignoring push for unknown light")
			continue
		}
		c.lastPush[u.LightID] = c.seq
		if _, ok := final[u.LightID]; !ok {
			touched = append(touched, u.LightID)
		}
		final[u.LightID] = u.State
	}

	for _, id := range touched {
		c.drive(id, final[id])
	}
}

func (c *Coordinator) startPull(ctx context.Context, reason string) {
	c.metrics.ResyncRequested(reason)
	if c.pulling {
		c.metrics.ResyncCollapsed()
		c.updateStats(func(s *Stats) {
			s.ResyncsRequested++
			s.ResyncsCollapsed++
		})
		log.Debug().Str("reason", reason).Msg("resync already in flight")
		return
	}

	c.pulling = true
	c.updateStats(func(s *Stats) {
		s.ResyncsRequested++
		s.Pulling = true
	})
	seq := c.seq
	log.Debug().Str("reason", reason).Uint64("seq", seq).Msg("starting resync")

	go func() {
		fetchCtx, cancel := context.WithTimeout(ctx, c.config.FetchTimeout)
		defer cancel()

		states, err := c.api.FetchSnapshot(fetchCtx)
		c.enqueue(snapshotEvent{seq: seq, reason: reason, states: states, err: err})
	}()
}

func (c *Coordinator) handleSnapshot(e snapshotEvent) {
	c.pulling = false
	if e.err != nil {
		log.Warn().Err(e.err).Str("reason", e.reason).Msg("resync failed")
		c.metrics.ResyncFailed()
		c.updateStats(func(s *Stats) {
			s.ResyncsFailed++
			s.Pulling = false
		})
		return
	}

	ids := make([]int, 0, len(e.states))
	for id := range e.states {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	applied, stale := 0, 0
	for _, id := range ids {
		if c.lastPush[id] > e.seq {
			stale++
			continue
		}
		if c.merge(id, e.states[id]) {
			applied++
		}
	}

	log.Debug().
		Str("reason", e.reason).
		Int("applied", applied).
		Int("stale", stale).
		Msg("resync merged")
	c.metrics.ResyncCompleted(applied, stale)
	c.updateStats(func(s *Stats) {
		s.ResyncsCompleted++
		s.StaleSkipped += stale
		s.Pulling = false
		s.LastSync = time.Now()
	})
}

func (c *Coordinator) merge(lightID int, state models.LightState) bool {
	if !c.cache.ApplyLightState(lightID, state) {
		return false
	}
	c.drive(lightID, state)
	return true
}

func (c *Coordinator) drive(lightID int, state models.LightState) {
	if state.Expiry != nil {
		c.countdowns.Start(lightID, *state.Expiry)
		return
	}
	c.countdowns.Cancel(lightID)
}

func (c *Coordinator) updateStats(fn func(s *Stats)) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	fn(&c.stats)
}
