package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Grabemic/Screenshot-wizard/internal/observability"
)

// Server serves /metrics and /healthz.
type Server struct {
	srv *http.Server
	log *observability.Logger
}

// NewRouter returns the HTTP handler for c.
func NewRouter(c *Collector) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"screenshot-wizard"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(c.Registry(), promhttp.HandlerOpts{}))
	return r
}

// NewServer creates a server for c listening on addr.
func NewServer(addr string, c *Collector, log *observability.Logger) *Server {
	if log == nil {
		log = observability.Nop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(c),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log.WithComponent("metrics"),
	}
}

// Start listens in the background and returns the bound address.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", err
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("metrics server listening")
	return ln.Addr().String(), nil
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
