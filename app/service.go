package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/evlife/evcore/api"
	"github.com/evlife/evcore/config"
	"github.com/evlife/evcore/core/coordinator"
	"github.com/evlife/evcore/core/health"
	coremetrics "github.com/evlife/evcore/core/metrics"
	"github.com/evlife/evcore/core/registry"
	"github.com/evlife/evcore/core/schedule"
	"github.com/evlife/evcore/core/telemetry"
	"github.com/evlife/evcore/infra/logger"
	"github.com/evlife/evcore/infra/metrics"
	"github.com/evlife/evcore/infra/store"
	"github.com/evlife/evcore/internal/eventbus"
)

// Service wires the coordinator and its collaborators from configuration and
// runs the HTTP surfaces.
type Service struct {
	Coordinator *coordinator.Coordinator
	Vehicles    *registry.MemoryRegistry

	apiServer   *api.Server
	apiAddr     string
	bus         *eventbus.Bus
	db          *store.DB
	log         logger.Logger
	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	vehicles := registry.NewMemoryRegistry()
	catalog := registry.NewMemoryCatalog()
	for _, seed := range cfg.Catalog.Stations {
		if err := catalog.PutStation(seed.Station()); err != nil {
			return nil, fmt.Errorf("seed station %s: %w", seed.ID, err)
		}
	}
	for _, seed := range cfg.Catalog.ServiceCenters {
		catalog.PutServiceCenter(seed.Center())
	}

	var (
		samples  telemetry.Store
		sessions schedule.Store
		db       *store.DB
	)
	switch cfg.Storage.Backend {
	case "sqlite":
		var err error
		db, err = store.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		samples = store.NewSampleStore(db, vehicles, logger.New("store"))
		sessions = store.NewSessionStore(db)
	default:
		samples = telemetry.NewMemoryStore(vehicles)
	}

	scorer, err := health.NewScorer(cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	sched, err := schedule.NewManager(vehicles, catalog, samples, cfg.Scheduling, logger.New("schedule"), sessions)
	if err != nil {
		return nil, fmt.Errorf("schedule manager: %w", err)
	}

	var sinks []coremetrics.MetricsSink
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
	var sink coremetrics.MetricsSink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	coord, err := coordinator.New(coordinator.Deps{
		Vehicles: vehicles,
		Catalog:  catalog,
		Samples:  samples,
		Scorer:   scorer,
		Schedule: sched,
		Bus:      bus,
		Sink:     sink,
		Log:      logger.New("coordinator"),
	})
	if err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}

	window := time.Duration(cfg.API.AssessmentWindowDays) * 24 * time.Hour
	apiServer := api.NewServer(coord, vehicles, window, logger.New("api"))

	return &Service{
		Coordinator: coord,
		Vehicles:    vehicles,
		apiServer:   apiServer,
		apiAddr:     cfg.API.Address,
		bus:         bus,
		db:          db,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

// drainEvents logs domain events until the bus closes the channel.
func drainEvents(log logger.Logger, events <-chan eventbus.Event) {
	for e := range events {
		switch ev := e.(type) {
		case eventbus.SampleIngested:
			log.Debugw("sample ingested", map[string]any{
				"vehicle_id":  ev.Sample.VehicleID,
				"recorded_at": ev.Sample.RecordedAt,
				"soc":         ev.Sample.SoC,
			})
		case eventbus.AssessmentComputed:
			log.Debugw("assessment computed", map[string]any{
				"vehicle_id": ev.Assessment.VehicleID,
				"score":      ev.Assessment.HealthScore,
				"samples":    ev.Assessment.SampleCount,
			})
		case eventbus.SessionBooked:
			log.Infof("session %s booked: vehicle %s at station %s until %s",
				ev.Session.ID, ev.Session.VehicleID, ev.Session.StationID,
				ev.Session.EndTime.Format(time.RFC3339))
		case eventbus.SessionCancelled:
			log.Infof("session %s cancelled: vehicle %s at station %s",
				ev.Session.ID, ev.Session.VehicleID, ev.Session.StationID)
		}
	}
}

// Run starts the HTTP surfaces and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go drainEvents(logger.New("events"), s.bus.Subscribe())
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.apiServer.Start(ctx, s.apiAddr) }()
	select {
	case <-ctx.Done():
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
