package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wlan-sim/wlan-sim-pro/internal/config"
	"github.com/wlan-sim/wlan-sim-pro/internal/models"
	"github.com/wlan-sim/wlan-sim-pro/internal/scenario"
	"github.com/wlan-sim/wlan-sim-pro/internal/storage"
)

const maxUsersPerScenario = 1000

// runScenarioRequest overrides the configured simulation parameters; zero values keep the defaults
type runScenarioRequest struct {
	Name         string  `json:"name" validate:"max=64"`
	UserCounts   []int   `json:"userCounts" validate:"max=16"`
	Iterations   int     `json:"iterations" validate:"min=0,max=1000"`
	Epochs       int     `json:"epochs" validate:"min=0,max=1000"`
	Workers      int     `json:"workers" validate:"min=0,max=1024"`
	Seed         uint64  `json:"seed"`
	BandwidthMHz float64 `json:"bandwidthMHz" validate:"min=0"`
	// Wait runs the scenario inside the request instead of in the background
	Wait bool `json:"wait"`
}

// parameters merges the request over the server defaults
func (req *runScenarioRequest) parameters(defaults config.SimulationConfig) (config.SimulationConfig, error) {
	p := defaults
	p.UserCounts = append([]int(nil), defaults.UserCounts...)
	p.Scheduled.SubChannels = append([]float64(nil), defaults.Scheduled.SubChannels...)

	if len(req.UserCounts) > 0 {
		for _, n := range req.UserCounts {
			if n > maxUsersPerScenario {
				return p, fmt.Errorf("%w: at most %d users per scenario", config.ErrInvalidConfig, maxUsersPerScenario)
			}
		}
		p.UserCounts = append([]int(nil), req.UserCounts...)
	}
	if req.Iterations > 0 {
		p.Iterations = req.Iterations
	}
	if req.Epochs > 0 {
		p.Epochs = req.Epochs
	}
	if req.Workers > 0 {
		p.Workers = req.Workers
	}
	if req.Seed != 0 {
		p.Seed = req.Seed
	}
	if req.BandwidthMHz > 0 {
		p.BandwidthMHz = req.BandwidthMHz
	}

	return p, p.Validate()
}

// HandleRunScenario creates a scenario run. It answers 202 and runs in the
// background unless the request asks to wait.
func (s *RESTServer) HandleRunScenario(w http.ResponseWriter, r *http.Request) {
	var req runScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	params, err := req.parameters(s.config.Simulation)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	runner, err := scenario.NewRunner(&params, s.publisher)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	run := scenario.NewRun(req.Name, params)
	if err := s.store.CreateRun(r.Context(), run); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger := log.With().Str("run_id", run.ID.String()).Logger()
	if claims, ok := claimsFrom(r.Context()); ok {
		logger = logger.With().Str("operator", claims.Username).Logger()
	}

	if req.Wait {
		runErr := runner.Run(r.Context(), run)
		if err := s.store.UpdateRun(context.Background(), run); err != nil {
			logger.Error().Err(err).Msg("Failed to save scenario run")
		}
		if runErr != nil {
			logger.Error().Err(runErr).Msg("Scenario run failed")
			s.respondJSON(w, http.StatusInternalServerError, run)
			return
		}
		s.respondJSON(w, http.StatusCreated, run)
		return
	}

	snapshot := *run
	run.Status = models.RunStatusRunning

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()

		if err := s.store.UpdateRun(s.runCtx, run); err != nil {
			logger.Error().Err(err).Msg("Failed to mark scenario running")
		}
		if err := runner.Run(s.runCtx, run); err != nil {
			logger.Error().Err(err).Msg("Scenario run failed")
		}
		if err := s.store.UpdateRun(context.Background(), run); err != nil {
			logger.Error().Err(err).Msg("Failed to save scenario run")
		}
	}()

	logger.Info().Ints("users", params.UserCounts).Msg("Scenario run queued")
	s.respondJSON(w, http.StatusAccepted, snapshot)
}

// HandleListScenarios lists runs, newest first
func (s *RESTServer) HandleListScenarios(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	var filters storage.RunFilters
	if status := r.URL.Query().Get("status"); status != "" {
		st := models.RunStatus(status)
		filters.Status = &st
	}

	runs, total, err := s.store.ListRuns(r.Context(), filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"scenarios": runs,
		"total":     total,
	})
}

// HandleGetScenario returns one run
func (s *RESTServer) HandleGetScenario(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, run)
}

// HandleDeleteScenario removes a finished run
func (s *RESTServer) HandleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if run.Status == models.RunStatusPending || run.Status == models.RunStatusRunning {
		s.respondError(w, http.StatusConflict, "scenario is still running")
		return
	}

	if err := s.store.DeleteRun(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleListScenarioEvents lists the epoch events of a run
func (s *RESTServer) HandleListScenarioEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	events, total, err := s.store.ListEpochEvents(r.Context(), id, limit, offset)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
	})
}

func (s *RESTServer) runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid scenario ID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *RESTServer) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "scenario not found")
		return
	}
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
