// Package app wires configuration into a ready task client: logger, telemetry,
// token store, redirector, resilient HTTP client and the tasks API.
// Everything is constructed once and shared by reference.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/time/rate"

	"github.com/gaborage/taskclient/auth"
	"github.com/gaborage/taskclient/config"
	taskhttp "github.com/gaborage/taskclient/http"
	"github.com/gaborage/taskclient/logger"
	"github.com/gaborage/taskclient/observability"
	"github.com/gaborage/taskclient/tasks"
)

// App holds the process-wide client components.
type App struct {
	cfg           *config.Config
	logger        logger.Logger
	observability observability.Provider
	store         auth.Store
	client        taskhttp.Client
	tasks         *tasks.API

	closers []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// New validates cfg and builds the application. On error, anything already
// opened is released before returning.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: o.Logger}
	if a.logger == nil {
		a.logger = logger.New(cfg.Log.Level, cfg.Log.Pretty)
	}

	if err := a.init(&o); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}

	a.logger.Debug().
		Str("service", cfg.App.Name).
		Str("base_url", cfg.API.BaseURL).
		Str("token_store", cfg.Auth.Store.Type).
		Bool("observability", cfg.Observability.Enabled).
		Msg("Task client initialized")

	return a, nil
}

func (a *App) init(o *Options) error {
	ctx := context.Background()

	a.observability = o.Observability
	if a.observability == nil {
		oc, err := observabilityConfig(a.cfg)
		switch {
		case config.IsNotConfigured(err):
			a.logger.Debug().Err(err).Msg("Observability not configured")
			oc = &observability.Config{}
		case err != nil:
			return err
		}
		p, err := observability.NewProvider(oc, a.logger)
		if err != nil {
			return err
		}
		a.observability = p
		a.onClose("observability", func(ctx context.Context) error {
			return a.observability.Shutdown(ctx)
		})
	}

	a.store = o.TokenStore
	if a.store == nil {
		store, closeFn, err := newTokenStore(&a.cfg.Auth)
		if err != nil {
			return err
		}
		a.store = store
		if closeFn != nil {
			a.onClose("token store", func(context.Context) error { return closeFn() })
		}
	}

	if a.cfg.Auth.Token != "" {
		if err := a.store.SetToken(ctx, a.cfg.Auth.Token); err != nil {
			return fmt.Errorf("seed token: %w", err)
		}
	}

	redirector := o.Redirector
	if redirector == nil {
		out := o.SignInOutput
		if out == nil {
			out = os.Stderr
		}
		redirector = auth.NewSignInNotifier(out, a.cfg.API.BaseURL, a.cfg.Auth.Signin.Path)
	}

	a.client = a.buildClient(o, redirector)
	a.tasks = tasks.New(a.client, a.logger)
	return nil
}

func (a *App) buildClient(o *Options, redirector taskhttp.Redirector) taskhttp.Client {
	api := a.cfg.API

	b := taskhttp.NewBuilder(a.logger).
		WithBaseURL(api.BaseURL).
		WithTimeout(api.Timeout).
		WithRetries(api.Retry.Max, api.Retry.Delay).
		WithPayloadLogging(api.Log.Payloads, api.Log.MaxBytes).
		WithTokenStore(a.store).
		WithRedirector(redirector).
		WithTracerProvider(a.observability.TracerProvider()).
		WithMeterProvider(a.observability.MeterProvider())

	if api.Rate.Limit > 0 {
		b = b.WithRequestStage(taskhttp.NewRateLimitStage(rate.NewLimiter(rate.Limit(api.Rate.Limit), max(api.Rate.Burst, 1))))
	}
	if api.Trace.Header != "" {
		b = b.WithRequestStage(taskhttp.NewTraceIDStage(api.Trace.Header, nil))
	}
	if api.Trace.W3C {
		b = b.WithRequestStage(taskhttp.NewTraceParentStage())
	}

	if o.Transport != nil {
		b = b.WithTransport(o.Transport)
	}
	if o.HTTPClient != nil {
		b = b.WithHTTPClient(o.HTTPClient)
	}
	if o.Sleeper != nil {
		b = b.WithSleeper(o.Sleeper)
	}
	return b.Build()
}

func (a *App) onClose(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config { return a.cfg }

func (a *App) Logger() logger.Logger { return a.logger }

// Client returns the shared resilient client.
func (a *App) Client() taskhttp.Client { return a.client }

// Tasks returns the task API.
func (a *App) Tasks() *tasks.API { return a.tasks }

// TokenStore returns the store used for bearer authentication.
func (a *App) TokenStore() auth.Store { return a.store }

func (a *App) Observability() observability.Provider { return a.observability }

// Close releases resources in reverse order of creation. It is safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Error().Err(err).Str("component", c.name).Msg("Failed to close component")
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// observabilityConfig maps the observability section. Export headers and the
// exporter timings are optional keys read straight from the loaded sources.
func observabilityConfig(cfg *config.Config) (*observability.Config, error) {
	oc := cfg.Observability
	if !oc.Enabled {
		return nil, config.NewNotConfiguredError("observability", "OBSERVABILITY_ENABLED", "observability.enabled")
	}

	service := oc.Service
	if service == "" {
		service = cfg.App.Name
	}

	var headers map[string]string
	if cfg.Exists("observability.headers") {
		if err := cfg.Unmarshal("observability.headers", &headers); err != nil {
			return nil, config.NewInvalidFieldError("observability.headers", err.Error(), nil)
		}
	}

	return &observability.Config{
		Enabled:        true,
		Service:        observability.ServiceConfig{Name: service, Version: cfg.App.Version},
		Environment:    cfg.App.Env,
		Endpoint:       oc.Endpoint,
		Protocol:       oc.Protocol,
		Insecure:       oc.Insecure,
		Headers:        headers,
		SampleRate:     observability.Float64Ptr(oc.Sample),
		BatchTimeout:   cfg.GetDuration("observability.batchtimeout"),
		ExportTimeout:  cfg.GetDuration("observability.exporttimeout"),
		MetricInterval: cfg.GetDuration("observability.metricinterval"),
	}, nil
}
