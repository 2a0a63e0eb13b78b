package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/mcdev12/trafficdash/go/internal/dashboard/metrics"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds configuration for the NATS push variant
type NATSConfig struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS push configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       "traffic.lights.state",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 3 * time.Second,
	}
}

// NATSChannel receives the same push frames from a NATS subject. The NATS
// client owns reconnection; its reconnect callback is reported as reconnected.
type NATSChannel struct {
	stateHolder
	config  NATSConfig
	handler Handler
}

// NewNATSChannel creates a NATS channel. Nothing connects until Run.
func NewNATSChannel(config NATSConfig, handler Handler, collector metrics.Collector) *NATSChannel {
	n := &NATSChannel{
		config:  config,
		handler: handler,
	}
	n.metrics = orNoOp(collector)
	n.state.Store(int32(StateClosed))
	return n
}

// Run subscribes and blocks until ctx is cancelled.
func (n *NATSChannel) Run(ctx context.Context) error {
	n.setState(StateConnecting)

	opts := []nats.Option{
		nats.MaxReconnects(n.config.MaxReconnects),
		nats.ReconnectWait(n.config.ReconnectWait),
		nats.RetryOnFailedConnect(true),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS connected")
			n.setState(StateOpen)
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
			n.setState(StateClosed)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
			n.setState(StateOpen)
			n.metrics.Reconnected()
			n.handler.HandleReconnected()
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		n.setState(StateClosed)
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	sub, err := nc.Subscribe(n.config.Subject, n.onMessage)
	if err != nil {
		n.setState(StateClosed)
		return fmt.Errorf("subscribe to %s: %w", n.config.Subject, err)
	}
	defer sub.Unsubscribe()

	if nc.IsConnected() {
		n.setState(StateOpen)
	}
	log.Info().Str("subject", n.config.Subject).Msg("listening for pushed light states on NATS")

	<-ctx.Done()
	n.setState(StateClosed)
	return nil
}

func (n *NATSChannel) onMessage(msg *nats.Msg) {
	deliver(log.With().Str("subject", msg.Subject).Logger(), n.handler, n.metrics, msg.Data)
}
