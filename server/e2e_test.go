package server_test

import (
	"context"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/taskclient/auth"
	taskhttp "github.com/gaborage/taskclient/http"
	"github.com/gaborage/taskclient/logger"
	"github.com/gaborage/taskclient/server"
	"github.com/gaborage/taskclient/tasks"
)

const e2eToken = "e2e-token"

type e2eEnv struct {
	stub      *server.Server
	store     *auth.MemoryStore
	api       *tasks.API
	redirects int
}

func newE2E(t *testing.T) *e2eEnv {
	t.Helper()

	stub := server.New(server.Options{Token: e2eToken}, logger.Nop())

	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: unable to bind IPv4 listener: %v", err)
	}
	srv := &httptest.Server{Listener: listener, Config: &nethttp.Server{Handler: stub.Handler()}}
	srv.Start()
	t.Cleanup(srv.Close)

	env := &e2eEnv{stub: stub, store: auth.NewMemoryStore(e2eToken)}
	client := taskhttp.NewBuilder(logger.Nop()).
		WithBaseURL(srv.URL).
		WithRetries(taskhttp.DefaultMaxRetries, time.Millisecond).
		WithTokenStore(env.store).
		WithRedirector(auth.RedirectFunc(func(context.Context) { env.redirects++ })).
		Build()
	env.api = tasks.New(client, logger.Nop())
	return env
}

func TestEndToEndTaskLifecycle(t *testing.T) {
	env := newE2E(t)
	ctx := context.Background()
	desc := "quarterly numbers"

	created, err := env.api.CreateTask(ctx, tasks.CreateInput{Title: "Write report", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Write report", created.Title)

	done := true
	updated, err := env.api.UpdateTask(ctx, created.ID.String(), tasks.UpdateInput{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	toggled, err := env.api.ToggleTaskCompletion(ctx, created.ID.String(), false)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)

	list, err := env.api.ListTasks(ctx, tasks.ListParams{})
	require.NoError(t, err)
	require.Len(t, list, 1)

	env.stub.SetBare(true)
	bare, err := env.api.ListTasks(ctx, tasks.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, list, bare)

	_, err = env.api.DeleteTask(ctx, created.ID.String())
	require.NoError(t, err)

	_, err = env.api.GetTask(ctx, created.ID.String())
	assert.True(t, taskhttp.IsHTTPStatusError(err, nethttp.StatusNotFound))
	assert.Zero(t, env.redirects)
}

func TestEndToEndTransientFailureIsRetriedOnce(t *testing.T) {
	env := newE2E(t)
	env.stub.Seed("a", false)

	env.stub.FailNext(1, nethttp.StatusServiceUnavailable)
	list, err := env.api.ListTasks(context.Background(), tasks.ListParams{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, env.stub.InjectedFailures())

	env.stub.FailNext(2, nethttp.StatusBadGateway)
	_, err = env.api.ListTasks(context.Background(), tasks.ListParams{})
	assert.True(t, taskhttp.IsHTTPStatusError(err, nethttp.StatusBadGateway), "second transient failure is terminal")
	assert.Equal(t, 3, env.stub.InjectedFailures())
}

func TestEndToEndDroppedConnectionIsRetried(t *testing.T) {
	env := newE2E(t)
	env.stub.Seed("a", false)
	env.stub.FailNext(1, 0)

	list, err := env.api.ListTasks(context.Background(), tasks.ListParams{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEndToEndUnauthorizedClearsTokenAndRedirects(t *testing.T) {
	env := newE2E(t)
	env.stub.SetToken("rotated-on-server")

	_, err := env.api.ListTasks(context.Background(), tasks.ListParams{})
	require.Error(t, err)
	assert.Equal(t, taskhttp.ClassAuth, taskhttp.Classify(err))
	assert.Equal(t, 1, env.redirects)

	_, ok, err := env.store.GetToken(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = env.api.ListTasks(context.Background(), tasks.ListParams{})
	assert.True(t, taskhttp.IsHTTPStatusError(err, nethttp.StatusUnauthorized), "no header is sent once the token is gone")
	assert.Equal(t, 2, env.redirects)
}

func TestEndToEndValidationErrorIsClientError(t *testing.T) {
	env := newE2E(t)
	task := env.stub.Seed("a", false)
	empty := ""

	_, err := env.api.UpdateTask(context.Background(), task.ID, tasks.UpdateInput{Title: &empty})
	require.Error(t, err)
	assert.True(t, taskhttp.IsHTTPStatusError(err, nethttp.StatusUnprocessableEntity))
	assert.Equal(t, taskhttp.ClassClient, taskhttp.Classify(err))
}
