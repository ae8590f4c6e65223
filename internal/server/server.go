// Package server serves a built site and streams build status to browsers.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/yacobolo/sitecss/internal/status"
)

const (
	// StatusPath is the Server-Sent Events endpoint of the status channel
	StatusPath = "/__status"
	// NotFoundPage is served with status 404 for missing files
	NotFoundPage = "404.html"
	// DefaultAddr is used when Options.Addr is empty
	DefaultAddr = ":4200"

	shutdownTimeout = 5 * time.Second
)

// Options configures a Server
type Options struct {
	Addr        string
	Root        string              // Directory served as the site
	Broadcaster *status.Broadcaster // Enables the status channel when set
	Logger      *slog.Logger
	CertFile    string // Serve HTTPS when both CertFile and KeyFile are set
	KeyFile     string
}

// Server serves the output directory of a build
type Server struct {
	opts    Options
	logger  *slog.Logger
	handler http.Handler
}

// New creates a Server
func New(opts Options) (*Server, error) {
	if opts.Root == "" {
		return nil, errors.New("root directory is required")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	if opts.Broadcaster != nil {
		mux.Handle("GET "+StatusPath, status.NewHandler(opts.Broadcaster, logger))
	}
	mux.Handle("/", NewFileHandler(opts.Root))

	return &Server{opts: opts, logger: logger, handler: mux}, nil
}

// Handler returns the server's request router
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx ends, then closes the
// status channel and shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		var err error
		if s.tls() {
			s.logger.Info("serving site", "address", "https://"+ln.Addr().String(), "root", s.opts.Root)
			err = srv.ServeTLS(ln, s.opts.CertFile, s.opts.KeyFile)
		} else {
			s.logger.Info("serving site", "address", "http://"+ln.Addr().String(), "root", s.opts.Root)
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if !ok {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	if s.opts.Broadcaster != nil {
		s.opts.Broadcaster.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Debug("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) tls() bool {
	return s.opts.CertFile != "" && s.opts.KeyFile != ""
}

// FileHandler serves files below a directory. Directories resolve to their
// index.html; misses get the site's 404.html.
type FileHandler struct {
	root string
}

// NewFileHandler serves root
func NewFileHandler(root string) http.Handler {
	return &FileHandler{root: root}
}

func (h *FileHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + req.URL.Path)
	if f, info, ok := h.open(name); ok {
		defer f.Close()
		http.ServeContent(w, req, info.Name(), info.ModTime(), f)
		return
	}

	h.notFound(w)
}

// open resolves a request path to a regular file
func (h *FileHandler) open(name string) (*os.File, os.FileInfo, bool) {
	full := filepath.Join(h.root, filepath.FromSlash(name))

	info, err := os.Stat(full)
	if err != nil {
		return nil, nil, false
	}
	if info.IsDir() {
		full = filepath.Join(full, "index.html")
		if info, err = os.Stat(full); err != nil || info.IsDir() {
			return nil, nil, false
		}
	}

	// #nosec G304 - full is cleaned and joined below root
	f, err := os.Open(full)
	if err != nil {
		return nil, nil, false
	}
	return f, info, true
}

func (h *FileHandler) notFound(w http.ResponseWriter) {
	// #nosec G304 - fixed file below root
	content, err := os.ReadFile(filepath.Join(h.root, NotFoundPage))
	if err != nil {
		http.Error(w, "404 page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(content)
}
