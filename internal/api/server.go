package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"slotdesk/internal/service"
)

// ReadyCheck reports whether downstream dependencies are reachable.
type ReadyCheck func(ctx context.Context) error

// Options configures the HTTP boundary.
type Options struct {
	Addr           string
	APIKey         string // empty disables key auth
	RateLimitRPS   float64
	RateLimitBurst int
	Ready          ReadyCheck
}

// HTTPServer exposes the scheduling operations as a JSON API.
type HTTPServer struct {
	server  *http.Server
	svc     *service.SchedulingService
	logger  *zerolog.Logger
	apiKey  string
	limiter *ipRateLimiter
	ready   ReadyCheck
}

func NewHTTPServer(svc *service.SchedulingService, opts Options, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		svc:     svc,
		logger:  logger,
		apiKey:  opts.APIKey,
		limiter: newIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		ready:   opts.Ready,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/generate-timeslots", s.handleGenerateTimeslots)
	mux.HandleFunc("/available-timeslots", s.handleAvailableTimeslots)
	mux.HandleFunc("/book-appointment", s.handleBookAppointment)
	mux.HandleFunc("/cancel-appointment", s.handleCancelAppointment)
	mux.HandleFunc("/booked-appointments", s.handleBookedAppointments)
	mux.HandleFunc("/export-appointments", s.handleExportAppointments)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)

	handler := s.withRequestID(s.withAPIKey(s.withRateLimit(mux)))

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the full middleware chain, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP server started")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctxPing, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.ready(ctxPing); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses:
// validation and conflict are client errors, everything else is a 500
// with the detail kept out of the response.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch service.KindOf(err) {
	case service.KindValidation, service.KindConflict:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
