// Package api implements the HTTP surface of the distribution service. It
// translates notation query parameters into engine calls and maps the engine
// error taxonomy onto status codes, so clients can tell "your expression
// asked for something unsupported" apart from "your expression is too
// expensive to compute".
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cory-johannsen/d20dist/internal/cache"
	"github.com/cory-johannsen/d20dist/internal/dist"
	"github.com/cory-johannsen/d20dist/internal/engine"
	"github.com/cory-johannsen/d20dist/internal/expr"
)

// Server handles the HTTP requests of the distribution service.
type Server struct {
	logger *zap.Logger
	limits engine.Limits
	store  cache.Store
	ttl    time.Duration
}

// NewServer creates an API server. store may be nil to disable caching.
//
// Precondition: logger must be non-nil.
func NewServer(logger *zap.Logger, limits engine.Limits, store cache.Store, ttl time.Duration) *Server {
	return &Server{logger: logger, limits: limits, store: store, ttl: ttl}
}

// RegisterRoutes sets up the HTTP routes for the server on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/distribution", s.handleDistribution)
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns the complete HTTP handler for the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// distributionResponse is the JSON payload for a computed distribution.
type distributionResponse struct {
	Expression string          `json:"expression"`
	Min        int             `json:"min"`
	Max        int             `json:"max"`
	Mean       float64         `json:"mean"`
	Stdev      float64         `json:"stdev"`
	PMF        map[int]float64 `json:"pmf"`
}

// errorResponse is the JSON payload for a failed request. Kind is stable and
// machine-readable; Message is for humans.
type errorResponse struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	notation := r.URL.Query().Get("expr")
	if notation == "" {
		s.writeError(w, http.StatusBadRequest, "missing_expression", "query parameter 'expr' is required")
		return
	}

	requestID := uuid.NewString()
	logger := s.logger.With(
		zap.String("request_id", requestID),
		zap.String("expr", notation),
	)
	w.Header().Set("X-Request-ID", requestID)

	ctx := r.Context()
	key := cache.Key(notation, s.limits)
	if s.store != nil {
		payload, hit, err := s.store.Get(ctx, key)
		if err != nil {
			// Cache trouble must never fail a computable request.
			logger.Warn("cache get failed", zap.Error(err))
		} else if hit {
			cacheHitsTotal.Inc()
			requestsTotal.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(payload)
			return
		}
		cacheMissesTotal.Inc()
	}

	start := time.Now()
	d, err := engine.EvaluateNotation(notation, s.limits)
	if err != nil {
		kind, status := classifyError(err)
		errorsTotal.WithLabelValues(kind).Inc()
		requestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
		logger.Warn("evaluation failed", zap.String("kind", kind), zap.Error(err))
		s.writeError(w, status, kind, err.Error())
		return
	}
	evaluationSeconds.Observe(time.Since(start).Seconds())

	payload, err := json.Marshal(distributionResponse{
		Expression: notation,
		Min:        d.Min(),
		Max:        d.Max(),
		Mean:       d.Mean(),
		Stdev:      d.Stdev(),
		PMF:        d.ToMap(),
	})
	if err != nil {
		requestsTotal.WithLabelValues(strconv.Itoa(http.StatusInternalServerError)).Inc()
		logger.Error("encoding response", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal", "failed to encode response")
		return
	}

	if s.store != nil {
		if err := s.store.Set(ctx, key, payload, s.ttl); err != nil {
			logger.Warn("cache set failed", zap.Error(err))
		}
	}

	requestsTotal.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	logger.Info("distribution computed",
		zap.Int("support", len(d.Keys())),
		zap.Duration("elapsed", time.Since(start)),
	)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// classifyError maps the engine and parser error taxonomy onto stable kinds
// and HTTP status codes. Syntax errors are the client's notation (400);
// unsupported or too-expensive expressions are semantically valid but not
// computable (422).
func classifyError(err error) (kind string, status int) {
	switch {
	case errors.Is(err, expr.ErrSyntax):
		return "syntax_error", http.StatusBadRequest
	case errors.Is(err, engine.ErrUnsupportedOperator):
		return "unsupported_operator", http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrUnsupportedSelector):
		return "unsupported_selector", http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrInvalidSelector):
		return "invalid_selector", http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrComputationTooLarge):
		return "computation_too_large", http.StatusUnprocessableEntity
	case errors.Is(err, dist.ErrDivisionByZero):
		return "division_by_zero", http.StatusUnprocessableEntity
	default:
		return "internal", http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Kind: kind, Message: message})
}
