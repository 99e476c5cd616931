// Package commands implements the taskctl command tree.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gaborage/taskclient/app"
	"github.com/gaborage/taskclient/config"
	"github.com/gaborage/taskclient/logger"
)

// RootOptions holds the persistent flags shared by every subcommand.
type RootOptions struct {
	ConfigFile string
	BaseURL    string
	Store      string
	Token      string
	LogLevel   string

	// AppOptions are passed to app.New; tests use them to inject stores and clients.
	AppOptions []app.Option
}

// session builds the application on demand for commands that talk to the API.
type session struct {
	opts *RootOptions
}

// NewRootCommand assembles taskctl with all subcommands.
func NewRootCommand(version string, appOpts ...app.Option) *cobra.Command {
	opts := &RootOptions{AppOptions: appOpts}
	s := &session{opts: opts}

	root := &cobra.Command{
		Use:   "taskctl",
		Short: "Command line client for the task API",
		Long: `taskctl talks to the task API through the resilient client: bearer
authentication, one retry on transient failures and a sign-in hint when the
session is rejected.

Configuration comes from config.yaml, environment variables (API_BASEURL,
AUTH_STORE_TYPE, ...) and the flags below, in increasing priority.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", config.DefaultFile, "Path to the YAML configuration file")
	flags.StringVar(&opts.BaseURL, "base-url", "", "Task API base URL (overrides api.baseurl)")
	flags.StringVar(&opts.Store, "store", "", "Token store: memory, file or redis (overrides auth.store.type)")
	flags.StringVar(&opts.Token, "token", "", "Bearer token to save in the token store before running")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level (overrides log.level)")

	root.AddCommand(
		newLoginCommand(s),
		newLogoutCommand(s),
		newListCommand(s),
		newGetCommand(s),
		newCreateCommand(s),
		newUpdateCommand(s),
		newDeleteCommand(s),
		newToggleCommand(s),
		NewVersionCommand(version),
	)

	return root
}

func (s *session) open(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.LoadFile(s.opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, s.opts, cmd.Flags().Changed("store"))

	// Logs go to stderr so stdout stays machine-readable.
	appOpts := []app.Option{
		app.WithLogger(logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Pretty, nil)),
		app.WithSignInOutput(cmd.ErrOrStderr()),
	}
	return app.New(cfg, append(appOpts, s.opts.AppOptions...)...)
}

// run builds the app, executes fn and always releases the app afterwards.
func (s *session) run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := s.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
	}()
	return fn(ctx, a)
}

// applyOverrides layers flags over loaded configuration. The memory store
// forgets the token on exit, so taskctl switches it to the file store unless
// --store names a backend.
func applyOverrides(cfg *config.Config, opts *RootOptions, storeFlagSet bool) {
	if opts.BaseURL != "" {
		cfg.API.BaseURL = opts.BaseURL
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.Token != "" {
		cfg.Auth.Token = opts.Token
	}
	switch {
	case storeFlagSet:
		cfg.Auth.Store.Type = opts.Store
	case cfg.Auth.Store.Type == config.StoreMemory:
		cfg.Auth.Store.Type = config.StoreFile
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
