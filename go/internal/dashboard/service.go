package dashboard

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/trafficdash/go/clients/traffic_api_client"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/cache"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/config"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/coordinator"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/countdown"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/display"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/favorites"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/metrics"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/status"
	"github.com/mcdev12/trafficdash/go/internal/dashboard/transport"
	"github.com/mcdev12/trafficdash/go/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// SessionHeader carries the client session id on every API request
const SessionHeader = "X-Dashboard-Session"

// Service wires the dashboard's state-sync components together
type Service struct {
	SessionID   string
	Config      config.Config
	API         *traffic_api_client.TrafficApiClient
	Cache       *cache.Cache
	Board       *display.Board
	Countdowns  *countdown.Registry
	Coordinator *coordinator.Coordinator
	Favorites   *favorites.Reconciler
	Channel     transport.Channel
	Metrics     *metrics.Prometheus

	statusServer *http.Server
}

// NewService builds every component from cfg. onChange receives board
// updates and may be nil.
func NewService(cfg config.Config, clock clockwork.Clock, onChange func(display.Change)) (*Service, error) {
	sessionID := uuid.New().String()

	api := traffic_api_client.NewTrafficApiClient(cfg.ServerURL, cfg.RequestTimeout)
	api.SetHeader(SessionHeader, sessionID)

	domainCache := cache.New(api)
	board := display.NewBoard(onChange)
	prom := metrics.NewPrometheus()

	registry := countdown.NewRegistry(clock, countdown.Config{
		TickInterval: cfg.TickInterval,
		ResyncDelay:  cfg.ResyncDelay,
	}, board)

	coord := coordinator.New(domainCache, registry, api, prom, coordinator.Config{
		FetchTimeout: cfg.RequestTimeout,
	})
	registry.OnExpire(func(lightID int) {
		coord.RequestResync("countdown_expired")
	})

	channel, err := newChannel(cfg, api, sessionID, clock, coord, prom)
	if err != nil {
		return nil, err
	}

	s := &Service{
		SessionID:   sessionID,
		Config:      cfg,
		API:         api,
		Cache:       domainCache,
		Board:       board,
		Countdowns:  registry,
		Coordinator: coord,
		Favorites:   favorites.NewReconciler(api, domainCache, board, coord),
		Channel:     channel,
		Metrics:     prom,
	}

	if cfg.ListenAddr != "" {
		handler := status.NewStateHandler(status.Sources{
			SessionID:  sessionID,
			Lights:     domainCache,
			Board:      board,
			Countdowns: registry,
			Sync:       coord,
			Channel:    channel,
		})
		s.statusServer = status.NewServer(cfg.ListenAddr, handler, prom.Registry())
	}

	return s, nil
}

func newChannel(cfg config.Config, api *traffic_api_client.TrafficApiClient, sessionID string, clock clockwork.Clock, handler transport.Handler, collector metrics.Collector) (transport.Channel, error) {
	switch cfg.Transport {
	case config.TransportNATS:
		natsConfig := transport.DefaultNATSConfig()
		natsConfig.URL = cfg.NATSURL
		natsConfig.Subject = cfg.NATSSubject
		natsConfig.ReconnectWait = cfg.ReconnectDelay
		return transport.NewNATSChannel(natsConfig, handler, collector), nil

	default:
		pushURL, err := api.PushURL()
		if err != nil {
			return nil, fmt.Errorf("failed to derive push URL: %w", err)
		}
		wsConfig := transport.DefaultWebSocketConfig(pushURL)
		wsConfig.ReconnectDelay = cfg.ReconnectDelay
		wsConfig.PingInterval = cfg.PingInterval
		wsConfig.ReadTimeout = cfg.ReadTimeout
		wsConfig.Header = http.Header{SessionHeader: []string{sessionID}}
		return transport.NewWebSocketChannel(wsConfig, clock, handler, collector), nil
	}
}

// Start runs the coordinator, the push channel and the optional status
// server until ctx is cancelled or one of them fails.
func (s *Service) Start(ctx context.Context) error {
	log.Info().
		Str("session_id", s.SessionID).
		Str("server_url", s.Config.ServerURL).
		Str("transport", s.Config.Transport).
		Msg("starting dashboard service")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Coordinator.Run(ctx)
	})
	g.Go(func() error {
		return s.Channel.Run(ctx)
	})
	if s.statusServer != nil {
		g.Go(func() error {
			return status.Serve(ctx, s.statusServer)
		})
	}

	err := g.Wait()
	s.Countdowns.StopAll()
	log.Info().Msg("dashboard service stopped")
	return err
}

// LoadCities fetches the city list.
func (s *Service) LoadCities(ctx context.Context) ([]*models.City, error) {
	return s.Cache.LoadCities(ctx)
}

// WatchCity expands a city and selects its areas so their lights are
// tracked. With no areaIDs every area of the city is selected. It returns the
// number of intersections loaded.
func (s *Service) WatchCity(ctx context.Context, cityID int, areaIDs ...int) (int, error) {
	if _, err := s.Cache.LoadCities(ctx); err != nil {
		return 0, err
	}
	areas, err := s.Cache.EnsureAreas(ctx, cityID)
	if err != nil {
		return 0, err
	}

	if len(areaIDs) == 0 {
		s.Cache.Read(func() {
			for _, a := range areas {
				areaIDs = append(areaIDs, a.ID)
			}
		})
	}

	total := 0
	for _, areaID := range areaIDs {
		n, err := s.WatchArea(ctx, areaID)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// WatchArea selects one area of an already expanded city and seeds the board's favorites from the cache.
func (s *Service) WatchArea(ctx context.Context, areaID int) (int, error) {
	intersections, err := s.Coordinator.SelectArea(ctx, areaID)
	if err != nil {
		return 0, err
	}

	favs := s.Cache.Favorites()
	ids := make([]int, 0, len(favs))
	for _, in := range favs {
		ids = append(ids, in.ID)
	}
	s.Board.SeedFavorites(ids)

	var n int
	s.Cache.Read(func() { n = len(intersections) })
	log.Info().Int("area_id", areaID).Int("intersections", n).Msg("watching area")
	return n, nil
}
