package app

import (
	"io"
	nethttp "net/http"

	"github.com/gaborage/taskclient/auth"
	taskhttp "github.com/gaborage/taskclient/http"
	"github.com/gaborage/taskclient/logger"
	"github.com/gaborage/taskclient/observability"
)

// Options contains optional dependencies for creating an App instance.
// Anything left nil is built from configuration.
type Options struct {
	Logger        logger.Logger
	Observability observability.Provider
	TokenStore    auth.Store
	Redirector    taskhttp.Redirector
	Transport     taskhttp.Transport
	HTTPClient    *nethttp.Client
	Sleeper       taskhttp.Sleeper
	// SignInOutput receives sign-in hints when no Redirector is given. Default: stderr.
	SignInOutput io.Writer
}

// Option mutates Options.
type Option func(*Options)

func WithLogger(log logger.Logger) Option {
	return func(o *Options) { o.Logger = log }
}

func WithObservability(p observability.Provider) Option {
	return func(o *Options) { o.Observability = p }
}

// WithTokenStore replaces the store selected by auth.store.type.
func WithTokenStore(store auth.Store) Option {
	return func(o *Options) { o.TokenStore = store }
}

func WithRedirector(r taskhttp.Redirector) Option {
	return func(o *Options) { o.Redirector = r }
}

func WithTransport(t taskhttp.Transport) Option {
	return func(o *Options) { o.Transport = t }
}

func WithHTTPClient(c *nethttp.Client) Option {
	return func(o *Options) { o.HTTPClient = c }
}

func WithSleeper(s taskhttp.Sleeper) Option {
	return func(o *Options) { o.Sleeper = s }
}

func WithSignInOutput(w io.Writer) Option {
	return func(o *Options) { o.SignInOutput = w }
}
