package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/flowgen"
	"github.com/aretw0/flowgen/internal/logging"
	"github.com/aretw0/flowgen/internal/presentation/graph"
	"github.com/aretw0/flowgen/internal/validator"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/manifest"
	"github.com/aretw0/flowgen/pkg/ports"
	"github.com/aretw0/flowgen/pkg/publish"
	"github.com/aretw0/flowgen/pkg/schema"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodySize bounds manifests and flow documents accepted by the API.
const maxBodySize = 1 << 20

// Compiler is the slice of *flowgen.Generator the server needs.
type Compiler interface {
	CompileDocument(ctx context.Context, data []byte) (*flowgen.Result, error)
}

// Server serves the flowgen HTTP API.
type Server struct {
	Compiler Compiler
	Flows    *publish.Manager
	Streams  *StreamManager
	metrics  http.Handler
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables the /flows endpoints and saving compiled flows.
func WithStore(store ports.FlowStore) Option {
	return func(s *Server) {
		s.Flows = publish.NewManager(store)
	}
}

// WithPublisher is WithStore with a preconfigured manager (e.g. one holding
// a distributed locker).
func WithPublisher(m *publish.Manager) Option {
	return func(s *Server) {
		s.Flows = m
	}
}

// WithStreams shares a stream manager, e.g. with other handlers.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetrics mounts a metrics handler (e.g. promhttp) on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for a compiler.
func NewHandler(c Compiler, opts ...Option) http.Handler {
	s := &Server{
		Compiler: c,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)
	if router, err := newSpecRouter(); err != nil {
		s.logger.Error("Request validation disabled", "error", err)
	} else {
		r.Use(validateRequests(router))
	}

	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Get("/swagger", s.GetSwagger)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/compile", s.Compile)
	r.Post("/graph", s.Graph)
	r.Post("/validate", s.Validate)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Route("/flows", func(r chi.Router) {
		r.Get("/", s.ListFlows)
		r.Get("/{name}", s.GetFlow)
		r.Delete("/{name}", s.DeleteFlow)
		r.Get("/{name}/events", s.SubscribeEvents)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Compile handles POST /compile. The body is a manifest or a flow document.
// With ?name=..., the result is saved and a diff against the previous
// version is broadcast to subscribers of that flow.
func (s *Server) Compile(w http.ResponseWriter, r *http.Request) {
	params, err := bindCompileParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, ok := s.compileBody(w, r)
	if !ok {
		return
	}

	if params.Name != nil && *params.Name != "" {
		name := *params.Name
		if !s.requireStore(w) {
			return
		}
		diff, err := s.Flows.Publish(r.Context(), name, res.Flow)
		if err != nil {
			s.fail(w, "Compile", err)
			return
		}
		if diff != nil {
			if data, err := json.Marshal(diff); err == nil {
				s.Streams.Broadcast(name, string(data))
			}
		}
		s.logger.Info("flow saved", "name", name, "states", res.Flow.Len())
	}

	writeJSON(w, http.StatusOK, res.Flow)
}

// Graph handles POST /graph, answering with a Mermaid flowchart.
func (s *Server) Graph(w http.ResponseWriter, r *http.Request) {
	res, ok := s.compileBody(w, r)
	if !ok {
		return
	}
	var overlay *graph.Overlay
	if renamed := graph.RenamedStates(res.Flow, res.Origins); len(renamed) > 0 {
		overlay = &graph.Overlay{Renamed: renamed}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(res.Flow, res.Origins, overlay))
}

// ValidateResponse is the body of POST /validate.
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate handles POST /validate for JSON flow documents.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	problems, err := validator.CheckDocument(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		s.logger.Warn("Validate: unreadable document", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: len(problems) == 0, Errors: problems})
}

// ListFlows handles GET /flows.
func (s *Server) ListFlows(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	names, err := s.Flows.List(r.Context())
	if err != nil {
		s.fail(w, "ListFlows", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// GetFlow handles GET /flows/{name}.
func (s *Server) GetFlow(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	name, err := bindFlowName(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	flow, err := s.Flows.Load(r.Context(), name)
	if err != nil {
		s.fail(w, "GetFlow", err)
		return
	}
	writeJSON(w, http.StatusOK, flow)
}

// DeleteFlow handles DELETE /flows/{name}.
func (s *Server) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	name, err := bindFlowName(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Flows.Delete(r.Context(), name); err != nil {
		s.fail(w, "DeleteFlow", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "flowgen-http",
		"version": flowgen.Version,
	})
}

func (s *Server) compileBody(w http.ResponseWriter, r *http.Request) (*flowgen.Result, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	res, err := s.Compiler.CompileDocument(r.Context(), data)
	if err != nil {
		s.fail(w, "Compile", err)
		return nil, false
	}
	return res, true
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.Flows == nil {
		http.Error(w, "No flow store configured", http.StatusNotImplemented)
		return false
	}
	return true
}

// fail maps domain errors to client errors and everything else to 500.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Warn(op+" rejected", "error", err)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}

// StatusFor returns the HTTP status for an error from the compile pipeline.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrFlowNotFound), errors.Is(err, domain.ErrToolNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrEmptyFlow),
		errors.Is(err, domain.ErrNoStartState),
		errors.Is(err, domain.ErrNoTerminalState),
		errors.Is(err, domain.ErrDanglingNext),
		errors.Is(err, domain.ErrUnreachableState),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrInvalidSelector),
		errors.Is(err, domain.ErrUnknownSelector),
		errors.Is(err, domain.ErrInvalidPath),
		errors.Is(err, domain.ErrProtectedField):
		return http.StatusBadRequest
	case isClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func isClientError(err error) bool {
	var aggr *schema.AggregateError
	var verr *schema.ValidationError
	return errors.Is(err, flowgen.ErrInvalidDocument) ||
		errors.Is(err, manifest.ErrNoLibrary) ||
		errors.As(err, &aggr) ||
		errors.As(err, &verr)
}
