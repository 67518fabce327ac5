// Package server serves the built deck on localhost and pushes refresh
// notifications to connected browsers.
//
// Routes:
//
//	GET /refresh     server-sent events, one "refresh" message per rebuild
//	GET /refresh.js  the client script that listens on /refresh
//	GET /ws          the same notifications as JSON over a websocket
//	GET /health      server status and build counters
//	GET /*           files from the output directory
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/olynch/presentations/internal/broadcast"
	"github.com/olynch/presentations/internal/build"
	"github.com/olynch/presentations/internal/errors"
	"github.com/olynch/presentations/internal/logging"
)

const (
	// DefaultPort is the port serve listens on unless told otherwise.
	DefaultPort = 3000
	// DefaultKeepAlive is the idle time after which a comment is sent to
	// SSE clients.
	DefaultKeepAlive = time.Second

	shutdownTimeout = 5 * time.Second
)

// BuildStats exposes build counters to the health endpoint.
type BuildStats interface {
	Snapshot() build.Metrics
}

// Options configure a PreviewServer.
type Options struct {
	Port int
	// OutDir is the directory served at /.
	OutDir string
	// Open launches the platform browser at the first slide after binding.
	Open bool
	// KeepAlive overrides DefaultKeepAlive.
	KeepAlive time.Duration
	// Stats is reported by /health when set.
	Stats BuildStats
}

// PreviewServer serves the deck with live reload capability
type PreviewServer struct {
	opts        Options
	hub         *broadcast.Hub
	logger      logging.Logger
	keepAlive   time.Duration
	started     time.Time
	listener    net.Listener
	httpServer  *http.Server
	serverMutex sync.RWMutex
	shutdown    sync.Once
}

// New creates a new preview server publishing signals from hub.
func New(opts Options, hub *broadcast.Hub, logger logging.Logger) *PreviewServer {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	keepAlive := opts.KeepAlive
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	return &PreviewServer{
		opts:      opts,
		hub:       hub,
		logger:    logger.WithComponent("server"),
		keepAlive: keepAlive,
		started:   time.Now(),
	}
}

// Handler returns the router wrapped in the server's middleware.
func (s *PreviewServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodGet)
	r.HandleFunc("/refresh.js", s.handleRefreshScript).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.opts.OutDir))).Methods(http.MethodGet, http.MethodHead)

	r.Use(s.loggingMiddleware)
	return corsMiddleware(r)
}

// Listen binds 127.0.0.1 on the configured port. Port 0 in Options means
// DefaultPort; use Options.Port = -1 to pick a free port.
func (s *PreviewServer) Listen() (net.Addr, error) {
	port := s.opts.Port
	if port < 0 {
		port = 0
	}
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeBind, "binding preview server", err).
			WithContext("addr", addr)
	}

	s.serverMutex.Lock()
	s.listener = ln
	s.serverMutex.Unlock()
	return ln.Addr(), nil
}

// URL returns the address of the first slide. Listen must have succeeded.
func (s *PreviewServer) URL() string {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	if s.listener == nil {
		return ""
	}
	return fmt.Sprintf("http://%s/1.html", s.listener.Addr())
}

// Serve handles requests on the bound listener until ctx is done, then
// shuts the server down. Open streams are cancelled with ctx.
func (s *PreviewServer) Serve(ctx context.Context) error {
	s.serverMutex.Lock()
	ln := s.listener
	if ln == nil {
		s.serverMutex.Unlock()
		return errors.NewNetworkError(errors.ErrCodeBind, "serve called before listen", nil)
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "preview server listening", "url", s.URL())
	if s.opts.Open {
		go s.openBrowser(ctx, s.URL())
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(ln)
	}()

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return errors.NewNetworkError(errors.ErrCodeBind, "serving", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Start binds and serves until ctx is done.
func (s *PreviewServer) Start(ctx context.Context) error {
	if _, err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Shutdown gracefully shuts down the server
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdown.Do(func() {
		s.logger.Info(ctx, "shutting down preview server")

		s.serverMutex.RLock()
		server := s.httpServer
		ln := s.listener
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		} else if ln != nil {
			shutdownErr = ln.Close()
		}
	})

	return shutdownErr
}

func (s *PreviewServer) openBrowser(ctx context.Context, url string) {
	time.Sleep(100 * time.Millisecond) // Give server time to start

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	if err != nil {
		s.logger.Warn(ctx, err, "failed to open browser", "url", url)
	}
}
