package transport

import (
	"context"
	"sync/atomic"

	"github.com/mcdev12/trafficdash/go/internal/dashboard/metrics"
	"github.com/mcdev12/trafficdash/go/internal/models"
	"github.com/rs/zerolog"
)

// ChannelState is the push channel's connection state
type ChannelState int32

const (
	StateConnecting ChannelState = iota
	StateOpen
	StateClosed
)

func (s ChannelState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "connecting"
	}
}

// Handler receives decoded pushes. Calls come from the channel's goroutine.
type Handler interface {
	// HandleUpdates is called once per frame; a batch arrives as one call.
	HandleUpdates(updates []models.LightUpdate)
	// HandleReconnected is called each time the channel opens again after having been open before.
	HandleReconnected()
}

// Channel is a long-lived push subscription
type Channel interface {
	Run(ctx context.Context) error
	State() ChannelState
}

type stateHolder struct {
	state   atomic.Int32
	metrics metrics.Collector
}

func (s *stateHolder) State() ChannelState {
	return ChannelState(s.state.Load())
}

func (s *stateHolder) setState(state ChannelState) {
	s.state.Store(int32(state))
	s.metrics.ChannelState(state.String())
}

// deliver decodes a raw frame and hands it to the handler. Bad frames are
// logged and counted, never returned.
func deliver(logger zerolog.Logger, handler Handler, collector metrics.Collector, raw []byte) {
	msg, err := Decode(raw)
	if err != nil {
		logger.Warn().Err(err).Int("bytes", len(raw)).Msg("dropping malformed push message")
		collector.MessageDropped(dropReason(err))
		return
	}
	collector.MessageReceived(msg.Type)
	if len(msg.Updates) == 0 {
		return
	}
	logger.Debug().Str("type", msg.Type).Int("updates", len(msg.Updates)).Msg("push received")
	handler.HandleUpdates(msg.Updates)
}

func orNoOp(c metrics.Collector) metrics.Collector {
	if c == nil {
		return metrics.NoOp{}
	}
	return c
}
