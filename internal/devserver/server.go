package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/reload"
)

const defaultShutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. ":9000". Use "127.0.0.1:0" in tests.
	Addr string
	// Roots are searched in order for each request.
	Roots []string
	// LiveReload injects the client script and mounts the reload endpoints.
	LiveReload bool
	SSE        *reload.SSEHub
	WS         *reload.WSHub
	// Registry is exposed on /metrics when set.
	Registry *prom.Registry
	// Status, when set, adds extra fields to /health.
	Status          func() map[string]any
	ShutdownTimeout time.Duration
}

// Server serves built assets during development.
type Server struct {
	opts    Options
	handler http.Handler

	mu   sync.Mutex
	srv  *http.Server
	addr string
}

// New builds the handler tree. Nothing listens until Start.
func New(opts Options) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	s := &Server{opts: opts}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	var static http.Handler = &multiRoot{roots: s.opts.Roots}
	if s.opts.LiveReload {
		static = injectScript(static, reload.Tag)
		if s.opts.SSE != nil {
			mux.Handle("/livereload", cors(s.opts.SSE))
		}
		if s.opts.WS != nil {
			mux.Handle("/livereload/ws", s.opts.WS)
		}
		mux.HandleFunc(reload.ScriptPath, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			if _, err := w.Write([]byte(reload.ClientScript)); err != nil {
				slog.Error("failed to write livereload script", logfields.Error(err))
			}
		})
	}
	mux.HandleFunc("/health", s.health)
	if s.opts.Registry != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(s.opts.Registry))
	}
	mux.Handle("/", recoverPanics(logRequests(static)))
	return mux
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.opts.Status != nil {
		for k, v := range s.opts.Status() {
			body[k] = v
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("health write", logfields.Error(err))
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("dev server listen %s: %w", s.opts.Addr, err)
	}
	// No write timeout: event streams stay open.
	srv := &http.Server{Handler: s.handler, ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 300 * time.Second}
	s.mu.Lock()
	s.srv = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("dev server stopped", logfields.Error(err))
		}
	}()
	slog.Info("Dev server listening", logfields.URL("http://"+displayAddr(s.addr)), slog.Any("roots", s.opts.Roots))
	return nil
}

// Addr returns the bound address after Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop closes reload streams and shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.opts.SSE != nil {
		s.opts.SSE.Shutdown()
	}
	if s.opts.WS != nil {
		s.opts.WS.Shutdown()
	}
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("dev server shutdown: %w", err)
	}
	slog.Info("Dev server stopped")
	return nil
}

// Serve starts the server and blocks until ctx is done, then shuts down
// within the configured timeout.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	if strings.HasPrefix(addr, "[::]") {
		return "localhost" + strings.TrimPrefix(addr, "[::]")
	}
	return addr
}

// multiRoot serves the first root that has the requested file.
type multiRoot struct {
	roots []string
}

func (m *multiRoot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clean := path.Clean("/" + r.URL.Path)
	for _, root := range m.roots {
		if exists(root, clean) {
			http.FileServer(http.Dir(root)).ServeHTTP(w, r)
			return
		}
	}
	http.NotFound(w, r)
}

func exists(root, urlPath string) bool {
	p := filepath.Join(root, filepath.FromSlash(urlPath))
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return true
	}
	_, err = os.Stat(filepath.Join(p, "index.html"))
	return err == nil
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
