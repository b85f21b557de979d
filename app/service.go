// Package app wires the dispatch service from its configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldserve/dispatch/api"
	"github.com/fieldserve/dispatch/config"
	"github.com/fieldserve/dispatch/core/dispatch"
	"github.com/fieldserve/dispatch/core/geo"
	coremetrics "github.com/fieldserve/dispatch/core/metrics"
	"github.com/fieldserve/dispatch/core/model"
	"github.com/fieldserve/dispatch/core/notify"
	"github.com/fieldserve/dispatch/infra/logger"
	"github.com/fieldserve/dispatch/infra/metrics"
	"github.com/fieldserve/dispatch/infra/mongo"
	"github.com/fieldserve/dispatch/infra/push"
	"github.com/fieldserve/dispatch/infra/redisgeo"
	"github.com/fieldserve/dispatch/internal/eventbus"
)

// Service orchestrates the coordinator, the stores and the HTTP servers.
type Service struct {
	Coordinator *dispatch.Coordinator

	cfg     *config.Config
	bus     *eventbus.Bus
	gateway *push.Gateway
	index   *redisgeo.Index
	closeDB func(context.Context) error
	log     logger.Logger
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	client, err := mongo.Connect(ctx, cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("mongo: %w", err)
	}
	jobStore := mongo.NewJobStore(client, cfg.Mongo.Database)
	techStore := mongo.NewTechnicianStore(client, cfg.Mongo.Database)

	index, err := redisgeo.New(ctx, cfg.Redis)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("redis: %w", err)
	}
	search, err := geo.NewSearch(index, logger.New("geo"))
	if err != nil {
		return nil, err
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	registry := notify.NewRegistry()

	svc := &Service{
		cfg:   cfg,
		bus:   bus,
		index: index,
		closeDB: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
		log: log,
	}

	deps := dispatch.Deps{
		Search:   search,
		Index:    index,
		Filter:   dispatch.CategoryFilter{},
		Jobs:     jobStore,
		Techs:    techStore,
		Registry: registry,
		Bus:      bus,
		Sink:     sink,
		Log:      logger.New("dispatch"),
	}
	opts := dispatch.Options{
		RadiusMeters:  cfg.Dispatch.RadiusMeters,
		OfferTimeout:  time.Duration(cfg.Dispatch.OfferTimeoutSeconds) * time.Second,
		RequireActive: cfg.Dispatch.RequireActive,
	}

	if cfg.Dispatch.PushEnabled {
		// Technician responses arriving over MQTT run through the same
		// atomic record-response flow as the HTTP endpoint.
		gateway, err := push.NewGateway(cfg.MQTT, func(ctx context.Context, jobID, technicianID string, kind model.ResponseKind, ts time.Time) {
			if _, err := svc.Coordinator.RecordResponse(ctx, jobID, technicianID, kind, ts); err != nil {
				log.Errorf("mqtt response for job %s: %v", jobID, err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("push gateway: %w", err)
		}
		svc.gateway = gateway
		deps.Gateway = gateway
	}

	coord, err := dispatch.NewCoordinator(deps, opts)
	if err != nil {
		return nil, err
	}
	svc.Coordinator = coord
	return svc, nil
}

// Run starts the HTTP servers and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.watchEvents(ctx)
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	return api.Serve(ctx, s.cfg.HTTP.Address, s.Coordinator, s.log)
}

// watchEvents logs dispatch activity from the bus.
func (s *Service) watchEvents(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer sub.Close()
	for {
		select {
		case e, ok := <-sub.C():
			if !ok {
				return
			}
			s.log.Debugw("dispatch event", map[string]any{"event": fmt.Sprintf("%+v", e)})
		case <-ctx.Done():
			return
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.gateway != nil {
		s.gateway.Close()
	}
	s.bus.Close()
	if err := s.index.Close(); err != nil {
		s.log.Errorf("redis close: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.closeDB(ctx)
}
