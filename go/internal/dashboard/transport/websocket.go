package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/metrics"
	"github.com/rs/zerolog/log"
)

// WebSocketConfig holds configuration for the push WebSocket
type WebSocketConfig struct {
	URL              string
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	MaxMessageSize   int64
	Header           http.Header
}

// DefaultWebSocketConfig returns the default push channel configuration
func DefaultWebSocketConfig(url string) WebSocketConfig {
	return WebSocketConfig{
		URL:              url,
		ReconnectDelay:   3 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		MaxMessageSize:   1 << 20,
	}
}

// WebSocketChannel keeps a WebSocket to the signal server open, reconnecting
// after a constant delay whenever it closes.
type WebSocketChannel struct {
	stateHolder
	config  WebSocketConfig
	clock   clockwork.Clock
	dialer  *websocket.Dialer
	handler Handler
	opened  bool
}

// NewWebSocketChannel creates a channel. Nothing is dialed until Run.
func NewWebSocketChannel(config WebSocketConfig, clock clockwork.Clock, handler Handler, collector metrics.Collector) *WebSocketChannel {
	def := DefaultWebSocketConfig(config.URL)
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = def.ReconnectDelay
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = def.WriteTimeout
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = def.ReadTimeout
	}
	if config.PingInterval <= 0 {
		config.PingInterval = def.PingInterval
	}

	c := &WebSocketChannel{
		config:  config,
		clock:   clock,
		handler: handler,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.HandshakeTimeout,
		},
	}
	c.metrics = orNoOp(collector)
	c.state.Store(int32(StateClosed))
	return c
}

// Run connects and reads until ctx is cancelled. Disconnects are not errors:
// the channel waits ReconnectDelay and dials again.
func (c *WebSocketChannel) Run(ctx context.Context) error {
	for {
		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err == nil {
			c.setState(StateOpen)
			if c.opened {
				log.Info().Str("url", c.config.URL).Msg("push channel reconnected")
				c.metrics.Reconnected()
				c.handler.HandleReconnected()
			}
			c.opened = true
			c.serve(ctx, conn)
		} else if ctx.Err() == nil {
			log.Warn().Err(err).Str("url", c.config.URL).Msg("failed to connect push channel")
		}
		c.setState(StateClosed)

		if ctx.Err() != nil {
			return nil
		}
		log.Debug().Dur("delay", c.config.ReconnectDelay).Msg("scheduling push channel reconnect")
		select {
		case <-ctx.Done():
			return nil
		case <-c.clock.After(c.config.ReconnectDelay):
		}
	}
}

func (c *WebSocketChannel) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.config.URL, c.config.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", c.config.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", c.config.URL, err)
	}
	return conn, nil
}

// serve reads frames until the connection fails or ctx ends. It returns only
// after the ping loop has stopped.
func (c *WebSocketChannel) serve(ctx context.Context, conn *websocket.Conn) {
	connID := uuid.New().String()
	logger := log.With().Str("connection_id", connID).Logger()
	logger.Info().Str("url", c.config.URL).Msg("push channel open")

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.pingLoop(ctx, conn, done)
	}()
	defer func() {
		close(done)
		conn.Close()
		wg.Wait()
		logger.Info().Msg("push channel closed")
	}()

	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}
	conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("unexpected push channel close")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		deliver(logger, c.handler, c.metrics, message)
	}
}

// pingLoop keeps the connection alive and closes it when ctx is cancelled so
// the blocked read returns.
func (c *WebSocketChannel) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := c.clock.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.config.WriteTimeout))
			conn.Close()
			return
		case <-ticker.Chan():
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout)); err != nil {
				log.Debug().Err(err).Msg("failed to send ping")
				conn.Close()
				return
			}
		}
	}
}
