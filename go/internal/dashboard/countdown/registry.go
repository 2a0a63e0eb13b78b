package countdown

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle position of a single light's countdown
type State int

const (
	NoTimer State = iota
	CountingDown
	ExpiredPendingResync
)

func (s State) String() string {
	switch s {
	case CountingDown:
		return "counting_down"
	case ExpiredPendingResync:
		return "expired_pending_resync"
	default:
		return "no_timer"
	}
}

// Sink receives what should be displayed for a light
type Sink interface {
	ShowRemaining(lightID int, seconds int)
	ShowPlaceholder(lightID int)
}

// Config controls tick granularity and how long an expired countdown waits
// before asking for a resync
type Config struct {
	TickInterval time.Duration
	ResyncDelay  time.Duration
}

// DefaultConfig returns the standard 100ms tick and 1s resync delay.
func DefaultConfig() Config {
	return Config{
		TickInterval: 100 * time.Millisecond,
		ResyncDelay:  time.Second,
	}
}

type countdown struct {
	lightID int
	expiry  time.Time
	state   State
	last    int

	ticker clockwork.Ticker
	timer  clockwork.Timer
	done   chan struct{}
}

// Registry owns at most one countdown per light id.
type Registry struct {
	clock clockwork.Clock
	cfg   Config
	sink  Sink

	mu       sync.Mutex
	onExpire func(lightID int)
	timers   map[int]*countdown
}

// NewRegistry creates a registry publishing to sink.
func NewRegistry(clock clockwork.Clock, cfg Config, sink Sink) *Registry {
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.ResyncDelay <= 0 {
		cfg.ResyncDelay = def.ResyncDelay
	}
	return &Registry{
		clock:  clock,
		cfg:    cfg,
		sink:   sink,
		timers: make(map[int]*countdown),
	}
}

// OnExpire sets the callback invoked once per expired countdown, ResyncDelay
// after it reached zero.
func (r *Registry) OnExpire(fn func(lightID int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = fn
}

// Start begins counting down toward expiry, replacing any existing countdown
// for the light. It returns false and changes nothing when the light already
// has a live countdown toward the same instant.
func (r *Registry) Start(lightID int, expiry time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cd, ok := r.timers[lightID]; ok {
		if cd.expiry.Equal(expiry) {
			return false
		}
		r.stopLocked(cd)
	}

	cd := &countdown{
		lightID: lightID,
		expiry:  expiry,
		state:   CountingDown,
		last:    -1,
		done:    make(chan struct{}),
	}
	r.timers[lightID] = cd

	remaining := r.remaining(expiry)
	if remaining == 0 {
		r.expireLocked(cd)
		r.publish(cd, 0)
		return true
	}

	r.publish(cd, remaining)
	cd.ticker = r.clock.NewTicker(r.cfg.TickInterval)
	go r.tick(cd)

	log.Debug().
		Int("light_id", lightID).
		Time("expiry", expiry).
		Int("remaining", remaining).
		Msg("countdown started")
	return true
}

// Cancel stops any countdown or pending resync for the light and shows the placeholder.
func (r *Registry) Cancel(lightID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cd, ok := r.timers[lightID]; ok {
		r.stopLocked(cd)
		log.Debug().Int("light_id", lightID).Msg("countdown cancelled")
	}
	r.sink.ShowPlaceholder(lightID)
}

// StopAll stops every countdown without touching the display.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cd := range r.timers {
		r.stopLocked(cd)
	}
}

// State reports where the light's countdown is in its lifecycle.
func (r *Registry) State(lightID int) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cd, ok := r.timers[lightID]; ok {
		return cd.state
	}
	return NoTimer
}

// Active returns the number of lights with a countdown or pending resync.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

func (r *Registry) tick(cd *countdown) {
	for {
		select {
		case <-cd.done:
			return
		case <-cd.ticker.Chan():
		}

		r.mu.Lock()
		if r.timers[cd.lightID] != cd || cd.state != CountingDown {
			r.mu.Unlock()
			return
		}
		remaining := r.remaining(cd.expiry)
		if remaining == 0 {
			cd.ticker.Stop()
			r.expireLocked(cd)
		}
		r.publish(cd, remaining)
		r.mu.Unlock()

		if remaining == 0 {
			return
		}
	}
}

// expireLocked arms the one-shot resync timer. Must hold r.mu.
func (r *Registry) expireLocked(cd *countdown) {
	cd.state = ExpiredPendingResync
	cd.timer = r.clock.NewTimer(r.cfg.ResyncDelay)
	go r.awaitResync(cd)
}

func (r *Registry) awaitResync(cd *countdown) {
	select {
	case <-cd.done:
		return
	case <-cd.timer.Chan():
	}

	r.mu.Lock()
	current := r.timers[cd.lightID] == cd && cd.state == ExpiredPendingResync
	if current {
		delete(r.timers, cd.lightID)
	}
	onExpire := r.onExpire
	r.mu.Unlock()

	if !current {
		return
	}
	log.Debug().Int("light_id", cd.lightID).Msg("countdown expired, requesting resync")
	if onExpire != nil {
		onExpire(cd.lightID)
	}
}

// stopLocked halts the countdown's goroutines and forgets it. Must hold r.mu.
func (r *Registry) stopLocked(cd *countdown) {
	close(cd.done)
	if cd.ticker != nil {
		cd.ticker.Stop()
	}
	if cd.timer != nil {
		stopAndDrainTimer(cd.timer)
	}
	cd.state = NoTimer
	delete(r.timers, cd.lightID)
}

func (r *Registry) publish(cd *countdown, remaining int) {
	if remaining == cd.last {
		return
	}
	cd.last = remaining
	r.sink.ShowRemaining(cd.lightID, remaining)
}

// remaining is max(0, ceil(expiry-now)) in whole seconds.
func (r *Registry) remaining(expiry time.Time) int {
	d := expiry.Sub(r.clock.Now())
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
