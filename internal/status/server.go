// Package status serves the operational HTTP surface of the generator:
// health, a status snapshot, manual job triggers, cache control, run history
// and the live record feed.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/flashfood-datagen/internal/circuitbreaker"
	"github.com/jogardn/flashfood-datagen/internal/jobs"
	"github.com/jogardn/flashfood-datagen/internal/scheduler"
	"github.com/jogardn/flashfood-datagen/internal/seeding"
)

const ServiceName = "FlashFood Fake Backend"

type Cache interface {
	Stats() seeding.CacheStats
	Clear()
}

type Scheduler interface {
	Trigger(name string) error
	Stats() []scheduler.Stats
}

type Breakers interface {
	AllMetrics() []circuitbreaker.Metrics
}

// Runs lists finished job runs, newest first.
type Runs interface {
	Recent(ctx context.Context, job string, limit int) ([]scheduler.Run, error)
}

// Options wires the server to the running generator. Breakers, Runs and Feed
// are optional.
type Options struct {
	Target    string
	Intervals jobs.Intervals
	Cache     Cache
	Scheduler Scheduler
	Breakers  Breakers
	Runs      Runs
	Feed      http.Handler
}

type Server struct {
	opts    Options
	logger  *logrus.Logger
	started time.Time
}

func New(opts Options, logger *logrus.Logger) *Server {
	return &Server{
		opts:    opts,
		logger:  logger,
		started: time.Now(),
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.health).Methods("GET", "OPTIONS")
	router.HandleFunc("/status", s.status).Methods("GET", "OPTIONS")
	router.HandleFunc("/jobs/{name}/run", s.runJob).Methods("POST", "OPTIONS")
	router.HandleFunc("/cache/clear", s.clearCache).Methods("POST", "OPTIONS")
	router.HandleFunc("/runs", s.runs).Methods("GET", "OPTIONS")
	if s.opts.Feed != nil {
		router.Handle("/ws", s.opts.Feed)
	}

	router.Use(corsMiddleware())
	router.Use(loggingMiddleware(s.logger))
	return router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

type intervals struct {
	Orders       string `json:"orders"`
	Users        string `json:"users"`
	CustomerCare string `json:"customer_care"`
	Restaurants  string `json:"restaurants"`
}

type snapshot struct {
	Service   string                   `json:"service"`
	Target    string                   `json:"target"`
	Uptime    string                   `json:"uptime"`
	Intervals intervals                `json:"intervals"`
	Cache     seeding.CacheStats       `json:"cache"`
	Jobs      []scheduler.Stats        `json:"jobs"`
	Breakers  []circuitbreaker.Metrics `json:"circuit_breakers"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	iv := s.opts.Intervals
	snap := snapshot{
		Service: ServiceName,
		Target:  s.opts.Target,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Intervals: intervals{
			Orders:       iv.Orders.String(),
			Users:        iv.Users.String(),
			CustomerCare: iv.CustomerCare.String(),
			Restaurants:  iv.Restaurants.String(),
		},
		Cache:    s.opts.Cache.Stats(),
		Jobs:     s.opts.Scheduler.Stats(),
		Breakers: []circuitbreaker.Metrics{},
	}
	if s.opts.Breakers != nil {
		snap.Breakers = s.opts.Breakers.AllMetrics()
	}
	s.respondWithJSON(w, http.StatusOK, snap)
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	err := s.opts.Scheduler.Trigger(name)
	switch {
	case err == nil:
	case errors.Is(err, scheduler.ErrUnknownJob):
		s.respondWithError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, scheduler.ErrJobRunning):
		s.respondWithError(w, http.StatusConflict, err.Error())
		return
	default:
		s.respondWithError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	s.logger.WithField("job", name).Info("Job triggered manually")
	s.respondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"job":     name,
	})
}

func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	s.opts.Cache.Clear()
	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "data collection cache cleared",
	})
}

func (s *Server) runs(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runs == nil {
		s.respondWithError(w, http.StatusServiceUnavailable, "run ledger disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.opts.Runs.Recent(r.Context(), r.URL.Query().Get("job"), limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list job runs")
		s.respondWithError(w, http.StatusInternalServerError, "failed to list job runs")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
		code = http.StatusInternalServerError
		response = []byte(`{"success":false,"message":"encoding failed"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
