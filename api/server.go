package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/evlife/evcore/core/coordinator"
	"github.com/evlife/evcore/core/logger"
	"github.com/evlife/evcore/core/model"
)

// VehicleAdmin is the registration surface the API needs from the vehicle
// registry.
type VehicleAdmin interface {
	Register(model.Vehicle) (model.Vehicle, error)
	SetCapacity(id string, kwh float64) error
	Vehicle(id string) (model.Vehicle, error)
}

// Server exposes the coordinator over HTTP. Handlers stay thin: decode,
// delegate, encode; all domain decisions live behind the coordinator.
type Server struct {
	coord  *coordinator.Coordinator
	admin  VehicleAdmin
	log    logger.Logger
	window time.Duration
	router *mux.Router
}

// NewServer builds the HTTP facade. window is the default assessment span
// applied when a health request does not name one.
func NewServer(coord *coordinator.Coordinator, admin VehicleAdmin, window time.Duration, log logger.Logger) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}
	if window <= 0 {
		window = coordinator.DefaultAssessmentWindow
	}
	s := &Server{coord: coord, admin: admin, log: log, window: window}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealthz).Methods(http.MethodGet)

	apiR := r.PathPrefix("/api").Subrouter()
	apiR.HandleFunc("/vehicles", s.handleRegisterVehicle).Methods(http.MethodPost)
	apiR.HandleFunc("/vehicles/{id}", s.handleGetVehicle).Methods(http.MethodGet)
	apiR.HandleFunc("/vehicles/{id}/capacity", s.handleSetCapacity).Methods(http.MethodPut)
	apiR.HandleFunc("/vehicles/{id}/telemetry", s.handleIngest).Methods(http.MethodPost)
	apiR.HandleFunc("/vehicles/{id}/health", s.handleAssessment).Methods(http.MethodGet)
	apiR.HandleFunc("/vehicles/{id}/battery", s.handleBattery).Methods(http.MethodGet)
	apiR.HandleFunc("/vehicles/{id}/sessions", s.handleVehicleSessions).Methods(http.MethodGet)
	apiR.HandleFunc("/nearby", s.handleNearby).Methods(http.MethodGet)
	apiR.HandleFunc("/sessions", s.handleBook).Methods(http.MethodPost)
	apiR.HandleFunc("/sessions/{id}", s.handleCancel).Methods(http.MethodDelete)
	apiR.HandleFunc("/sessions/{id}/activate", s.handleActivate).Methods(http.MethodPost)
	apiR.HandleFunc("/sessions/{id}/complete", s.handleComplete).Methods(http.MethodPost)
	return r
}

// Router returns the configured handler, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start serves the API until the context is canceled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("api listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes. Anything unrecognized is
// an infrastructure fault.
func statusFor(err error) int {
	var (
		unknownVehicle model.UnknownVehicleError
		unknownStation model.UnknownStationError
		unknownSession model.UnknownSessionError
		duplicate      model.DuplicateSampleError
		capacity       model.CapacityExceededError
		transition     model.InvalidTransitionError
		target         model.InvalidTargetError
		insufficient   model.InsufficientDataError
	)
	switch {
	case errors.As(err, &unknownVehicle), errors.As(err, &unknownStation), errors.As(err, &unknownSession):
		return http.StatusNotFound
	case errors.As(err, &duplicate), errors.As(err, &capacity), errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &target), errors.As(err, &insufficient), errors.Is(err, coordinator.ErrUnknownKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
