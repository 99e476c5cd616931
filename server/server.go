// Package server implements an in-memory task API on echo. It backs local
// development of the task client and its end-to-end tests: bearer auth,
// validation errors and injectable failures behave like the real service.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/taskclient/config"
	"github.com/gaborage/taskclient/logger"
)

// Options configures the stub server.
type Options struct {
	Host string
	Port int
	// Token is the accepted bearer token. Empty disables authentication.
	Token string
	// Bare answers the list route with a bare JSON array.
	Bare        bool
	ServiceName string
	UserID      string
	// TracerProvider defaults to the global provider.
	TracerProvider oteltrace.TracerProvider
}

// OptionsFromConfig maps the stub section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	name := cfg.App.Name
	if name == "" {
		name = "taskstub"
	}
	return Options{
		Host:        cfg.Stub.Host,
		Port:        cfg.Stub.Port,
		Token:       cfg.Stub.Token,
		Bare:        cfg.Stub.Bare,
		ServiceName: name,
	}
}

// Server is the stub task API.
type Server struct {
	echo   *echo.Echo
	opts   Options
	logger logger.Logger
	store  *taskStore
	faults *faultInjector
	bare   atomic.Bool

	tokenMu sync.RWMutex
	token   string
}

// New builds the server and registers its routes. It does not listen.
func New(opts Options, log logger.Logger) *Server {
	if opts.ServiceName == "" {
		opts.ServiceName = "taskstub"
	}
	if opts.UserID == "" {
		opts.UserID = "stub-user"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler(log)

	s := &Server{
		echo:   e,
		opts:   opts,
		logger: log,
		store:  newTaskStore(opts.UserID),
		faults: &faultInjector{},
		token:  opts.Token,
	}
	s.bare.Store(opts.Bare)

	s.setupMiddlewares()
	s.registerRoutes()

	log.Debug().
		Str("tasks_path", TasksPath).
		Bool("auth", opts.Token != "").
		Bool("bare", opts.Bare).
		Msg("Stub server routes configured")

	return s
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Handler returns the server as an http.Handler, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Address returns host:port from the options.
func (s *Server) Address() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// Start listens on Address and blocks until Shutdown.
// It returns http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start() error {
	addr := s.Address()
	s.logger.Info().
		Str("service", s.opts.ServiceName).
		Str("address", addr).
		Msg("Starting stub task API...")

	srv := &http.Server{
		Addr:         addr,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}
	if err := s.echo.StartServer(srv); err != nil {
		return fmt.Errorf("stub server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// FailNext makes the next n API requests fail with status.
// Status 0 closes the connection without responding.
func (s *Server) FailNext(n, status int) {
	s.faults.arm(n, status)
}

// InjectedFailures returns how many requests were failed by FailNext.
func (s *Server) InjectedFailures() int {
	return s.faults.count()
}

// SetToken replaces the accepted bearer token. Empty disables authentication.
func (s *Server) SetToken(token string) {
	s.tokenMu.Lock()
	s.token = token
	s.tokenMu.Unlock()
}

// SetBare switches the list route between envelope and bare array.
func (s *Server) SetBare(bare bool) {
	s.bare.Store(bare)
}

// Seed inserts a task directly, bypassing auth and validation.
func (s *Server) Seed(title string, completed bool) Task {
	return s.store.create(title, nil, completed)
}

func (s *Server) tokenFunc() string {
	s.tokenMu.RLock()
	defer s.tokenMu.RUnlock()
	return s.token
}
