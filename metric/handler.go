package metric

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/c360/actmeter/errors"
)

// Server is the HTTP endpoint serving /metrics plus any extra handlers the
// host mounts (health, for example).
type Server struct {
	addr     string
	path     string
	registry *MetricsRegistry
	mux      *http.ServeMux

	mu       sync.Mutex // protects server and listener
	server   *http.Server
	listener net.Listener
}

// NewServer creates a metrics server listening on addr. An empty path
// serves metrics at "/metrics".
func NewServer(addr, path string, registry *MetricsRegistry) *Server {
	if path == "" {
		path = "/metrics"
	}
	return &Server{
		addr:     addr,
		path:     path,
		registry: registry,
		mux:      http.NewServeMux(),
	}
}

// Handle mounts an extra handler. It must be called before Start.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Start listens and serves until Shutdown. It blocks, returning nil after a
// clean shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Server", "Start", "start metrics server")
	}
	if s.registry == nil {
		s.mu.Unlock()
		return errors.WrapFatal(errors.ErrMissingConfig, "Server", "Start", "metrics registry not provided")
	}

	s.mux.Handle(s.path, s.registry.Handler())

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return errors.WrapFatal(err, "Server", "Start", fmt.Sprintf("listen on %s", s.addr))
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.WrapTransient(err, "Server", "Start", "serve metrics")
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "Server", "Shutdown", "stop metrics server")
	}
	return nil
}

// Addr returns the bound address once Start is listening, or the configured
// address before that.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
