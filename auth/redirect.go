package auth

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// DefaultSignInPath is the sign-in route of the task web front end.
const DefaultSignInPath = "/auth/sign-in"

// NoopRedirector is used where there is no user interface to redirect.
type NoopRedirector struct{}

func (NoopRedirector) RedirectToSignIn(context.Context) {}

// RedirectFunc adapts a function to the redirector interface.
type RedirectFunc func(ctx context.Context)

func (f RedirectFunc) RedirectToSignIn(ctx context.Context) {
	f(ctx)
}

// SignInNotifier tells a terminal user to sign in again.
type SignInNotifier struct {
	mu  sync.Mutex
	w   io.Writer
	url string
}

// NewSignInNotifier writes sign-in hints to w. path is joined onto baseURL;
// an empty path uses DefaultSignInPath.
func NewSignInNotifier(w io.Writer, baseURL, path string) *SignInNotifier {
	if path == "" {
		path = DefaultSignInPath
	}
	url := path
	if baseURL != "" {
		url = strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}
	return &SignInNotifier{w: w, url: url}
}

// URL returns the sign-in location shown to the user.
func (n *SignInNotifier) URL() string {
	return n.url
}

func (n *SignInNotifier) RedirectToSignIn(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "Session expired or invalid. Sign in again at %s, then run: taskctl login --token <token>\n", n.url)
}
