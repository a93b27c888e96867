// Package mockserver is an in-memory stand-in for the pipeline backend. It
// serves the same REST surface the client consumes, runs submitted pipelines
// by tagging the dataset with each step, and supports fault injection for
// tests.
package mockserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/functions"
	"pipeline-builder/internal/middleware"
)

// Options configure a mock backend
type Options struct {
	// Functions is the registry served by GET /functions, the built-in
	// catalog when nil
	Functions functions.Registry
	// AutoComplete completes each run after the delay; zero leaves runs
	// queued until Complete or Fail is called
	AutoComplete time.Duration
	// ListLag hides new saved graphs from GET /saved-graphs for a while,
	// like a replicated store would
	ListLag time.Duration
	Logger  logging.Logger
}

// Fault makes matching requests fail with Status. Times limits how many
// requests it affects; zero means until ClearFaults.
type Fault struct {
	Method     string
	PathPrefix string
	Status     int
	Detail     string
	Times      int
}

// Server is the mock backend. It implements http.Handler.
type Server struct {
	mu        sync.Mutex
	functions functions.Registry
	datasets  []*dataset
	analyses  []*analysis
	graphs    []*graph
	faults    []*Fault
	requests  map[string]int
	timers    []*time.Timer

	autoComplete time.Duration
	listLag      time.Duration
	now          func() time.Time

	router  *mux.Router
	handler http.Handler
	logger  logging.Logger
}

// New creates a mock backend
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Component("mock_backend")
	}
	registry := opts.Functions
	if registry == nil {
		registry = functions.Catalog()
	}

	s := &Server{
		functions:    registry,
		requests:     make(map[string]int),
		autoComplete: opts.AutoComplete,
		listLag:      opts.ListLag,
		now:          time.Now,
		router:       mux.NewRouter(),
		logger:       logger,
	}
	s.setupRoutes()
	s.handler = middleware.Logging(logger)(s.router)
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.countRequests, s.injectFaults)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/datasets", s.handleListDatasets).Methods(http.MethodGet)
	s.router.HandleFunc("/datasets", s.handleUploadDataset).Methods(http.MethodPost)
	s.router.HandleFunc("/datasets/truncated/{id}", s.handleTruncatedDataset).Methods(http.MethodGet)
	s.router.HandleFunc("/datasets/{id}", s.handleGetDataset).Methods(http.MethodGet)
	s.router.HandleFunc("/datasets/{id}", s.handleDeleteDataset).Methods(http.MethodDelete)

	s.router.HandleFunc("/functions", s.handleFunctions).Methods(http.MethodGet)
	s.router.HandleFunc("/compiler/run", s.handleRun).Methods(http.MethodPost)

	s.router.HandleFunc("/analyses", s.handleListAnalyses).Methods(http.MethodGet)
	s.router.HandleFunc("/analyses/{id}", s.handleGetAnalysis).Methods(http.MethodGet)
	s.router.HandleFunc("/analyses/{id}/artifacts/{key}", s.handleArtifact).Methods(http.MethodGet)

	s.router.HandleFunc("/saved-graphs", s.handleListGraphs).Methods(http.MethodGet)
	s.router.HandleFunc("/saved-graphs", s.handleSaveGraph).Methods(http.MethodPost)
	s.router.HandleFunc("/saved-graphs/{id}", s.handleGetGraph).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops pending auto-complete timers
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

// InjectFault registers f; matching requests fail before reaching a handler
func (s *Server) InjectFault(f Fault) {
	if f.Detail == "" {
		f.Detail = http.StatusText(f.Status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, &f)
}

// ClearFaults removes every injected fault
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = nil
}

// Requests counts the requests received for method on paths starting with
// pathPrefix
func (s *Server) Requests(method, pathPrefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for key, n := range s.requests {
		m, path, _ := strings.Cut(key, " ")
		if m == method && strings.HasPrefix(path, pathPrefix) {
			total += n
		}
	}
	return total
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f := s.matchFault(r); f != nil {
			writeDetail(w, f.Status, f.Detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) matchFault(r *http.Request) *Fault {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.faults {
		if f.Method != "" && f.Method != r.Method {
			continue
		}
		if !strings.HasPrefix(r.URL.Path, f.PathPrefix) {
			continue
		}
		matched := *f
		if f.Times > 0 {
			f.Times--
			if f.Times == 0 {
				s.faults = append(s.faults[:i], s.faults[i+1:]...)
			}
		}
		return &matched
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes an error body in the backend's {"detail": ...} form
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
