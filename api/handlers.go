package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/evlife/evcore/core/coordinator"
	"github.com/evlife/evcore/core/geo"
	"github.com/evlife/evcore/core/model"
)

type vehicleRequest struct {
	OwnerID    string  `json:"owner_id"`
	VIN        string  `json:"vin"`
	BatteryKWh float64 `json:"battery_kwh"`
}

type vehicleResponse struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	VIN        string    `json:"vin"`
	BatteryKWh float64   `json:"battery_kwh"`
	CreatedAt  time.Time `json:"created_at"`
}

type capacityRequest struct {
	BatteryKWh float64 `json:"battery_kwh"`
}

type sampleRequest struct {
	SoC         float64   `json:"soc"`
	SoH         float64   `json:"soh"`
	Voltage     float64   `json:"voltage"`
	Temperature float64   `json:"temperature"`
	RecordedAt  time.Time `json:"recorded_at"`
}

type sampleResponse struct {
	VehicleID   string    `json:"vehicle_id"`
	SoC         float64   `json:"soc"`
	SoH         float64   `json:"soh"`
	Voltage     float64   `json:"voltage"`
	Temperature float64   `json:"temperature"`
	RecordedAt  time.Time `json:"recorded_at"`
	IngestedAt  time.Time `json:"ingested_at"`
}

func toSampleResponse(s model.TelemetrySample) sampleResponse {
	return sampleResponse{
		VehicleID:   s.VehicleID,
		SoC:         s.SoC,
		SoH:         s.SoH,
		Voltage:     s.Voltage,
		Temperature: s.Temperature,
		RecordedAt:  s.RecordedAt,
		IngestedAt:  s.IngestedAt,
	}
}

type assessmentResponse struct {
	VehicleID       string    `json:"vehicle_id"`
	HealthScore     float64   `json:"health_score"`
	DegradationRate float64   `json:"degradation_rate"`
	LifespanYears   *float64  `json:"lifespan_years,omitempty"`
	RiskFactors     []string  `json:"risk_factors"`
	WindowStart     time.Time `json:"window_start"`
	WindowEnd       time.Time `json:"window_end"`
	SampleCount     int       `json:"sample_count"`
	ComputedAt      time.Time `json:"computed_at"`
}

type bookingRequest struct {
	VehicleID string    `json:"vehicle_id"`
	StationID string    `json:"station_id"`
	StartTime time.Time `json:"start_time"`
	TargetSoC float64   `json:"target_soc"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicle_id"`
	StationID string    `json:"station_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	TargetSoC float64   `json:"target_soc"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toSessionResponse(s model.ChargingSession) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		VehicleID: s.VehicleID,
		StationID: s.StationID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		TargetSoC: s.TargetSoC,
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
	}
}

type nearbyResponse struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	Name        string   `json:"name"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	DistanceKm  float64  `json:"distance_km"`
	PowerKW     float64  `json:"power_kw,omitempty"`
	Connector   string   `json:"connector,omitempty"`
	Capacity    int      `json:"capacity,omitempty"`
	Status      string   `json:"status,omitempty"`
	Specialties []string `json:"specialties,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Errorf("request failed: %v", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegisterVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	v, err := s.admin.Register(model.Vehicle{
		OwnerID:    req.OwnerID,
		VIN:        req.VIN,
		BatteryKWh: req.BatteryKWh,
	})
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusCreated, vehicleResponse{
		ID: v.ID, OwnerID: v.OwnerID, VIN: v.VIN, BatteryKWh: v.BatteryKWh, CreatedAt: v.CreatedAt,
	})
}

func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := s.admin.Vehicle(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, vehicleResponse{
		ID: v.ID, OwnerID: v.OwnerID, VIN: v.VIN, BatteryKWh: v.BatteryKWh, CreatedAt: v.CreatedAt,
	})
}

func (s *Server) handleSetCapacity(w http.ResponseWriter, r *http.Request) {
	var req capacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	if err := s.admin.SetCapacity(mux.Vars(r)["id"], req.BatteryKWh); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req sampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	stored, err := s.coord.IngestTelemetry(model.TelemetrySample{
		VehicleID:   mux.Vars(r)["id"],
		SoC:         req.SoC,
		SoH:         req.SoH,
		Voltage:     req.Voltage,
		Temperature: req.Temperature,
		RecordedAt:  req.RecordedAt,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toSampleResponse(stored))
}

func (s *Server) handleAssessment(w http.ResponseWriter, r *http.Request) {
	span := s.window
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid window_days"})
			return
		}
		span = time.Duration(days) * 24 * time.Hour
	}
	a, err := s.coord.GetHealthAssessment(mux.Vars(r)["id"], span)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, assessmentResponse{
		VehicleID:       a.VehicleID,
		HealthScore:     a.HealthScore,
		DegradationRate: a.DegradationRate,
		LifespanYears:   a.LifespanYears,
		RiskFactors:     a.RiskFactors,
		WindowStart:     a.WindowStart,
		WindowEnd:       a.WindowEnd,
		SampleCount:     a.SampleCount,
		ComputedAt:      a.ComputedAt,
	})
}

func (s *Server) handleBattery(w http.ResponseWriter, r *http.Request) {
	latest, err := s.coord.LatestStatus(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSampleResponse(latest))
}

func (s *Server) handleVehicleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.coord.VehicleSessions(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	res := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		res = append(res, toSessionResponse(sess))
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	radius, radErr := strconv.ParseFloat(q.Get("radius_km"), 64)
	if latErr != nil || lonErr != nil || radErr != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "lat, lon and radius_km are required"})
		return
	}
	kind := q.Get("kind")
	if kind == "" {
		kind = coordinator.KindStation
	}

	matches, err := s.coord.FindNearby(kind, geo.Point{Lat: lat, Lon: lon}, radius)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res := make([]nearbyResponse, 0, len(matches))
	for _, m := range matches {
		item := nearbyResponse{
			ID:         m.ID,
			Kind:       kind,
			Latitude:   m.Point.Lat,
			Longitude:  m.Point.Lon,
			DistanceKm: m.DistanceKm,
		}
		switch v := m.Value.(type) {
		case model.ChargingStation:
			item.Name = v.Name
			item.PowerKW = v.PowerKW
			item.Connector = string(v.Connector)
			item.Capacity = v.Capacity
			item.Status = string(v.Status)
		case model.ServiceCenter:
			item.Name = v.Name
			item.Specialties = v.Specialties
		}
		res = append(res, item)
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	if req.StartTime.IsZero() {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "start_time is required"})
		return
	}
	sess, err := s.coord.BookSession(req.VehicleID, req.StationID, req.StartTime, req.TargetSoC)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess, err := s.coord.CancelSession(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.coord.ActivateSession(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	sess, err := s.coord.CompleteSession(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSessionResponse(sess))
}
