// Package server implements the development server: it serves a directory
// or proxies an existing site, injects the live-reload client into HTML
// responses, and pushes reload signals to connected browsers.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/conneroisu/assetforge/internal/config"
	builderrors "github.com/conneroisu/assetforge/internal/errors"
	"github.com/conneroisu/assetforge/internal/logging"
	"github.com/conneroisu/assetforge/internal/validation"
	"github.com/conneroisu/assetforge/internal/websocket"
)

const (
	reloadScriptPath = "/__assetforge/reload.js"
	reloadSocketPath = "/__assetforge/ws"

	reloadSnippet = `<script src="` + reloadScriptPath + `" async></script>`
	greeting      = "Connected to assetforge"
)

//go:embed reload.js
var reloadScript []byte

// State is the lifecycle state of a DevServer.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Target selects what a session serves. Exactly one field must be set.
type Target struct {
	BaseDir string
	Proxy   string
}

func (t Target) String() string {
	if t.Proxy != "" {
		return "proxy " + t.Proxy
	}
	return "dir " + t.BaseDir
}

// Options configure the listener and browser behaviour.
type Options struct {
	Host      string
	Port      int
	StartPath string
	Notify    bool
	Open      bool
}

// OptionsFromConfig converts server configuration to Options.
func OptionsFromConfig(cfg config.ServerConfig) Options {
	return Options{
		Host:      cfg.Host,
		Port:      cfg.Port,
		StartPath: cfg.StartPath,
		Notify:    cfg.Notify,
		Open:      cfg.Open,
	}
}

// TargetFromConfig picks the session target for the configured mode.
func TargetFromConfig(cfg *config.Config, baseDir string) Target {
	if cfg.Server.Mode == config.ModeProxy {
		return Target{Proxy: cfg.ProxyURL()}
	}
	return Target{BaseDir: baseDir}
}

// DevServer is a restartable development server session.
type DevServer struct {
	name   string
	opts   Options
	logger logging.Logger

	// mu serializes transitions; state is readable without it.
	mu         sync.Mutex
	state      atomic.Int32
	target     Target
	httpServer *http.Server
	listener   net.Listener
	hub        *websocket.Hub
	served     chan struct{}
}

// New creates a stopped dev server.
func New(name string, opts Options, logger logging.Logger) *DevServer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.StartPath == "" {
		opts.StartPath = "/"
	}
	return &DevServer{
		name:   name,
		opts:   opts,
		logger: logger.WithComponent(name),
	}
}

// State returns the current lifecycle state.
func (s *DevServer) State() State {
	return State(s.state.Load())
}

// Start binds the listener and begins serving target. It returns once the
// server accepts connections; serving continues in the background until
// Stop is called.
func (s *DevServer) Start(ctx context.Context, target Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateStopped {
		return builderrors.NewInternalError(builderrors.ErrCodeServerState,
			fmt.Sprintf("%s is already %s", s.name, s.State()), nil)
	}
	if (target.BaseDir == "") == (target.Proxy == "") {
		return builderrors.NewConfigError(builderrors.ErrCodeConfigInvalid,
			"dev server needs exactly one of a base directory or a proxy target")
	}

	s.state.Store(int32(StateStarting))

	content, err := s.contentHandler(target)
	if err != nil {
		s.state.Store(int32(StateStopped))
		return err
	}

	var hubOpts []websocket.HubOption
	if s.opts.Notify {
		hubOpts = append(hubOpts, websocket.WithGreeting(greeting))
	}
	hub := websocket.NewHub(s.logger, hubOpts...)

	mux := http.NewServeMux()
	mux.Handle(reloadSocketPath, hub)
	mux.HandleFunc(reloadScriptPath, serveReloadScript)
	mux.Handle("/", content)

	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		hub.Shutdown(context.Background())
		s.state.Store(int32(StateStopped))
		return builderrors.NewIOError(builderrors.ErrCodeServerState,
			fmt.Sprintf("listening on %s", addr), err)
	}

	srv := &http.Server{
		Handler:           s.logRequests(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), err, "dev server stopped unexpectedly")
		}
	}()

	s.target = target
	s.httpServer = srv
	s.listener = ln
	s.hub = hub
	s.served = served
	s.state.Store(int32(StateRunning))

	s.logger.Info(ctx, "serving", "target", target.String(), "url", s.url())

	if s.opts.Open {
		go s.openBrowser(s.url())
	}
	return nil
}

// Addr returns the bound listener address, or "" when not running.
func (s *DevServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the browser entry URL, or "" when not running.
func (s *DevServer) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url()
}

func (s *DevServer) url() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String() + s.opts.StartPath
}

// Target returns the target of the current or last session.
func (s *DevServer) Target() Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// ClientCount returns the number of browsers listening for reloads.
func (s *DevServer) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hub == nil {
		return 0
	}
	return s.hub.ClientCount()
}

// NotifyReload pushes a reload signal to every connected browser. It does
// nothing unless the server is running.
func (s *DevServer) NotifyReload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateRunning {
		s.logger.Debug(ctx, "reload skipped, server not running")
		return
	}
	s.logger.Info(ctx, "Reloading Browsers...", "clients", s.hub.ClientCount())
	s.hub.Reload()
}

// Stop ends the session. Stopping a stopped server is a no-op.
func (s *DevServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateRunning {
		return nil
	}

	var err error
	err = multierr.Append(err, s.hub.Shutdown(ctx))
	if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
		err = multierr.Append(err, shutdownErr)
		err = multierr.Append(err, s.httpServer.Close())
	}
	<-s.served

	s.httpServer = nil
	s.listener = nil
	s.hub = nil
	s.served = nil
	s.state.Store(int32(StateStopped))

	s.logger.Info(ctx, "stopped")
	return err
}

func (s *DevServer) contentHandler(target Target) (http.Handler, error) {
	if target.Proxy != "" {
		return s.proxyHandler(target.Proxy)
	}

	info, err := os.Stat(target.BaseDir)
	if err != nil {
		return nil, builderrors.ErrFileNotFound(target.BaseDir, err)
	}
	if !info.IsDir() {
		return nil, builderrors.NewConfigError(builderrors.ErrCodeConfigInvalid,
			fmt.Sprintf("%s is not a directory", target.BaseDir))
	}
	return staticHandler(target.BaseDir), nil
}

func staticHandler(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/") {
			clean = path.Join(clean, "index.html")
		}

		if strings.HasSuffix(clean, ".html") {
			data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(clean)))
			if err == nil {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Header().Set("Cache-Control", "no-cache")
				w.Write(InjectScript(data, reloadSnippet))
				return
			}
		}

		fileServer.ServeHTTP(w, r)
	})
}

func (s *DevServer) proxyHandler(target string) (http.Handler, error) {
	upstream, err := validation.ProxyTarget(target)
	if err != nil {
		cfgErr := builderrors.NewConfigError(builderrors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid proxy target %q", target))
		cfgErr.Cause = err
		return nil, cfgErr
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(upstream)
			r.SetXForwarded()
			// Bodies are rewritten, so ask for them uncompressed.
			r.Out.Header.Del("Accept-Encoding")
		},
		ModifyResponse: func(resp *http.Response) error {
			if !isHTML(resp.Header.Get("Content-Type")) || resp.Header.Get("Content-Encoding") != "" {
				return nil
			}
			body, err := readAll(resp)
			if err != nil {
				return err
			}
			injected := InjectScript(body, reloadSnippet)
			setBody(resp, injected)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.logger.Warn(r.Context(), err, "proxy request failed", "path", r.URL.Path)
			http.Error(w, "Bad Gateway", http.StatusBadGateway)
		},
	}
	return proxy, nil
}

func serveReloadScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(reloadScript)
}

func (s *DevServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *DevServer) openBrowser(link string) {
	if err := validation.ValidateURL(link); err != nil {
		s.logger.Warn(context.Background(), err, "refusing to open browser", "url", link)
		return
	}

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", link).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", link).Start()
	case "darwin":
		err = exec.Command("open", link).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	if err != nil {
		s.logger.Warn(context.Background(), err, "failed to open browser", "url", link)
	}
}
