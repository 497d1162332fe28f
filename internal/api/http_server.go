package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"roombook/internal/clock"
	"roombook/internal/config"
	"roombook/internal/domain"
	"roombook/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	healthPath          = "/healthz"
	requestIDHeader     = "X-Request-ID"
	routeUnmatched      = "unmatched"
	maxRequestBodyBytes = 1 << 20
)

// HTTPServer exposes the booking service as a JSON API.
type HTTPServer struct {
	svc    domain.BookingService
	auth   *Authenticator
	clock  clock.Clock
	server *http.Server
	log    zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	svc domain.BookingService,
	auth *Authenticator,
	clk clock.Clock,
	logger *zerolog.Logger,
) *HTTPServer {
	if clk == nil {
		clk = clock.Real{}
	}
	srv := &HTTPServer{svc: svc, auth: auth, clock: clk, log: zerolog.Nop()}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+healthPath, srv.handleHealth)
	mux.HandleFunc("GET /api/v1/rooms", srv.handleListRooms)
	mux.HandleFunc("GET /api/v1/rooms/{room}", srv.handleGetRoom)
	mux.HandleFunc("GET /api/v1/rooms/{room}/export", srv.handleExportRoom)
	mux.HandleFunc("GET /api/v1/bookings", srv.handleListBookings)
	mux.HandleFunc("POST /api/v1/bookings", srv.handleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings/{booking}", srv.handleGetBooking)
	mux.HandleFunc("PATCH /api/v1/bookings/{booking}", srv.handleUpdateBooking)
	mux.HandleFunc("PUT /api/v1/bookings/{booking}", srv.handleUpdateBooking)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.loggingMiddleware(auth.Wrap(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := r.Pattern
		if route == "" {
			route = routeUnmatched
		}
		metrics.IncHTTP(route, recorder.status)

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// writeJSON writes payload as is. Successful responses go through writeData.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{"data": data})
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, body := errorResponse(err)
	if code == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, code, body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
