package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/ltd-dasher/internal/metrics"
	"github.com/JakeFAU/ltd-dasher/internal/version"
)

// Builder runs dashboard builds for a list of Keeper product URLs.
type Builder interface {
	BuildAll(ctx context.Context, productURLs []string) error
}

// RequestIDGenerator tags each request.
type RequestIDGenerator interface {
	NewRequestID() string
}

// Config controls server-wide behavior.
type Config struct {
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the dashboard builder.
type Server struct {
	router  chi.Router
	builder Builder
	ids     RequestIDGenerator
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(builder Builder, ids RequestIDGenerator, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 120 * time.Second
	}
	s := &Server{
		builder: builder,
		ids:     ids,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.methodNotAllowed)

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(cfg.RequestTimeout))
		r.Get("/", s.root)
		r.Get("/healthz", s.healthz)
		r.Get("/readyz", s.readyz)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	})
	// A build runs to completion inside the request and is always answered
	// with 202, so it is exempt from the request deadline.
	r.Post("/build", s.build)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, version.Get())
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// Every dependency is dialed at startup; a running server is ready.
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

type buildRequest struct {
	ProductURLs *[]string `json:"product_urls"`
}

func (s *Server) build(w http.ResponseWriter, r *http.Request) {
	productURLs, err := decodeBuildRequest(r)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.writeError(w, r, http.StatusBadRequest, verr.Message)
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	logger := s.requestLogger(r)
	logger.Info("Starting dashboard build request", zap.Strings("product_urls", productURLs))
	// A client disconnect must not cancel uploads between publish and purge.
	if err := s.builder.BuildAll(context.WithoutCancel(r.Context()), productURLs); err != nil {
		// The client is acknowledged either way; failures are only logged.
		logger.Error("dashboard build request failed", zap.Error(err))
	}
	s.writeJSON(w, r, http.StatusAccepted, struct{}{})
}

// ValidationError reports a malformed request body.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Message
}

func decodeBuildRequest(r *http.Request) ([]string, error) {
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, &ValidationError{Message: "request body must be a JSON object"}
	}
	if req.ProductURLs == nil {
		return nil, &ValidationError{Message: "missing required field product_urls"}
	}
	urls := *req.ProductURLs
	if len(urls) == 0 {
		return nil, &ValidationError{Message: "product_urls must not be empty"}
	}
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, &ValidationError{Message: fmt.Sprintf("invalid product URL %q: must be an http or https URL", raw)}
		}
	}
	return urls, nil
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, "invalid resource URI")
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, "the method is not supported")
}

var errorNames = map[int]string{
	http.StatusBadRequest:          "bad request",
	http.StatusNotFound:            "not found",
	http.StatusMethodNotAllowed:    "method not supported",
	http.StatusInternalServerError: "internal server error",
}

type errorEnvelope struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.requestLogger(r).Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	name, ok := errorNames[status]
	if !ok {
		name = http.StatusText(status)
	}
	logger := s.requestLogger(r)
	if status >= http.StatusInternalServerError {
		logger.Error(name, zap.Int("status", status), zap.String("message", msg))
	} else {
		logger.Warn(name, zap.Int("status", status), zap.String("message", msg))
	}
	s.writeJSON(w, r, status, errorEnvelope{Status: status, Error: name, Message: msg})
}
