package mockbackend

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/flashfood-datagen/pkg/models"
)

// Envelope error codes.
const (
	ECOK           = 0
	ECBadRequest   = 1
	ECReference    = 2
	ECInjected     = 3
	ECNotFound     = 4
	ECInternal     = -1
	maxRequestBody = 1 << 20
)

type Config struct {
	// Latency delays every collection request.
	Latency time.Duration
	// FailRate is the probability that a create is rejected with EC=3.
	FailRate float64
}

type Server struct {
	store  *Store
	logger *logrus.Logger
	cfg    Config
	known  map[string]bool
}

func NewServer(store *Store, logger *logrus.Logger, cfg Config) *Server {
	known := make(map[string]bool, len(models.Collections))
	for _, c := range models.Collections {
		known[c] = true
	}
	return &Server{store: store, logger: logger, cfg: cfg, known: known}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.stats).Methods(http.MethodGet)
	router.HandleFunc("/{collection}", s.list).Methods(http.MethodGet)
	router.HandleFunc("/{collection}", s.create).Methods(http.MethodPost)
	router.HandleFunc("/{collection}/{id}", s.get).Methods(http.MethodGet)
	return router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "backend-mock",
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int64, len(models.Collections))
	for _, c := range models.Collections {
		n, err := s.store.Count(c)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, ECInternal, err)
			return
		}
		counts[c] = n
	}
	respond(w, http.StatusOK, ECOK, "OK", counts)
}

// collection resolves the route's collection, answering 404 for unknown
// ones.
func (s *Server) collection(w http.ResponseWriter, r *http.Request) (string, bool) {
	c := mux.Vars(r)["collection"]
	if !s.known[c] {
		respond(w, http.StatusNotFound, ECNotFound, "unknown collection "+c, nil)
		return "", false
	}
	if s.cfg.Latency > 0 {
		time.Sleep(s.cfg.Latency)
	}
	return c, true
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	collection, ok := s.collection(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	if q.Get("limit") == "" {
		items, err := s.store.List(collection)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, ECInternal, err)
			return
		}
		respond(w, http.StatusOK, ECOK, "OK", items)
		return
	}

	limit, err := positive(q.Get("limit"), 10)
	if err != nil {
		respond(w, http.StatusBadRequest, ECBadRequest, "invalid limit", nil)
		return
	}
	offset := 0
	if p := q.Get("page"); p != "" {
		page, err := positive(p, 1)
		if err != nil {
			respond(w, http.StatusBadRequest, ECBadRequest, "invalid page", nil)
			return
		}
		offset = (page - 1) * limit
	} else if o := q.Get("offset"); o != "" {
		if offset, err = strconv.Atoi(o); err != nil || offset < 0 {
			respond(w, http.StatusBadRequest, ECBadRequest, "invalid offset", nil)
			return
		}
	}

	items, total, err := s.store.Page(collection, limit, offset)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, ECInternal, err)
		return
	}
	respond(w, http.StatusOK, ECOK, "OK", map[string]interface{}{
		"items":       items,
		"totalItems":  total,
		"totalPages":  int(math.Ceil(float64(total) / float64(limit))),
		"currentPage": offset/limit + 1,
	})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	collection, ok := s.collection(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	rec, err := s.store.Get(collection, id)
	if errors.Is(err, ErrNotFound) {
		respond(w, http.StatusNotFound, ECNotFound, collection+" "+id+" not found", nil)
		return
	}
	if err != nil {
		s.fail(w, http.StatusInternalServerError, ECInternal, err)
		return
	}
	respond(w, http.StatusOK, ECOK, "OK", rec)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	collection, ok := s.collection(w, r)
	if !ok {
		return
	}
	log := s.logger.WithField("collection", collection)

	var doc map[string]interface{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&doc); err != nil || doc == nil {
		log.WithError(err).Warn("Invalid request body")
		respond(w, http.StatusBadRequest, ECBadRequest, "invalid request body", nil)
		return
	}

	if s.cfg.FailRate > 0 && rand.Float64() < s.cfg.FailRate {
		log.Info("Injecting create failure")
		respond(w, http.StatusOK, ECInjected, "injected failure", nil)
		return
	}

	if err := s.store.checkReferences(collection, doc); err != nil {
		var refErr *ReferenceError
		if errors.As(err, &refErr) {
			log.WithField("field", refErr.Field).Warn("Rejected record with dangling reference")
			respond(w, http.StatusOK, ECReference, refErr.Error(), nil)
			return
		}
		s.fail(w, http.StatusInternalServerError, ECInternal, err)
		return
	}

	stored, err := s.store.Insert(collection, doc)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, ECInternal, err)
		return
	}
	log.WithField("id", stored["id"]).Debug("Record created")
	respond(w, http.StatusCreated, ECOK, "Created", stored)
}

func (s *Server) fail(w http.ResponseWriter, status, ec int, err error) {
	s.logger.WithError(err).Error("Request failed")
	respond(w, status, ec, err.Error(), nil)
}

func respond(w http.ResponseWriter, status, ec int, em string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"EC":   ec,
		"EM":   em,
		"data": data,
	})
}

func positive(v string, fallback int) (int, error) {
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return n, nil
}
