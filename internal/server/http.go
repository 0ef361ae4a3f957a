package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-delivery/internal/auth"
	"github.com/gokatarajesh/quiz-delivery/internal/config"
	"github.com/gokatarajesh/quiz-delivery/internal/logging"
)

// Check probes one upstream dependency.
type Check func(ctx context.Context) error

// Routes groups the API handlers mounted by NewHTTPServer. Nil handlers are not mounted.
type Routes struct {
	Evaluate     http.HandlerFunc
	Create       http.HandlerFunc
	Pick         http.HandlerFunc
	RepeatRates  http.HandlerFunc
	HotBuckets   http.HandlerFunc
	Authenticate func(http.Handler) http.Handler
	Checks       map[string]Check
}

// NewHTTPServer wires health, metrics and API routes for the delivery service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, routes Routes) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: NewHandler(logger, routes),
	}
}

// NewHandler builds the routed handler; split out so tests can drive it directly.
func NewHandler(logger zerolog.Logger, routes Routes) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())
		for name, check := range routes.Checks {
			if err := check(r.Context()); err != nil {
				log.Error().Err(err).Str("dependency", name).Msg("dependency ping failed")
				http.Error(w, "upstream error", http.StatusBadGateway)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	mount(mux, "/v1/questions/evaluate", routes.Evaluate, auth.RequireEditor)
	mount(mux, "/v1/questions", routes.Create, auth.RequireEditor)
	mount(mux, "/v1/questions/pick", routes.Pick, auth.RequireAuth)
	mount(mux, "/v1/analytics/repeat-rates", routes.RepeatRates, auth.RequireEditor)
	mount(mux, "/v1/analytics/hot-buckets", routes.HotBuckets, auth.RequireEditor)

	var h http.Handler = mux
	if routes.Authenticate != nil {
		h = routes.Authenticate(h)
	}
	return requestLogger(logger, h)
}

func mount(mux *http.ServeMux, pattern string, h http.HandlerFunc, guard func(http.Handler) http.Handler) {
	if h == nil {
		return
	}
	mux.Handle(pattern, guard(h))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger tags each request with an id, injects a request logger and logs the result.
func requestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		reqLogger := logger.With().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		rec.Header().Set("X-Request-ID", requestID)
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))

		reqLogger.Debug().
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}
