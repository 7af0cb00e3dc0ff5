// Command inbox is a terminal client for MaarifaHub messaging. It runs an
// embedded session by default, or talks to a messages server with --remote.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nassor22/maarifaHub/clients/go/maarifa"
	"github.com/nassor22/maarifaHub/internal/config"
	"github.com/nassor22/maarifaHub/internal/feed"
	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/store"
)

type appConfig struct {
	remote       bool
	url          string
	token        string
	fixtures     string
	databaseURL  string
	logFile      string
	altScreen    bool
	pollInterval time.Duration
	minDelay     time.Duration
	maxDelay     time.Duration
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	app := appConfig{
		url:          cfg.MaarifaURL,
		token:        cfg.MaarifaToken,
		fixtures:     cfg.FixturesFile,
		databaseURL:  cfg.DatabaseURL,
		altScreen:    true,
		pollInterval: 2 * time.Second,
		minDelay:     cfg.ReplyMinDelay,
		maxDelay:     cfg.ReplyMaxDelay,
	}

	cmd := &cobra.Command{
		Use:           "inbox",
		Short:         "Terminal inbox for MaarifaHub conversations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), app)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&app.remote, "remote", app.remote, "use a messages server instead of an embedded session")
	flags.StringVar(&app.url, "url", app.url, "messages server base URL (with --remote)")
	flags.StringVar(&app.token, "token", app.token, "bearer token for write endpoints (with --remote)")
	flags.StringVar(&app.fixtures, "fixtures", app.fixtures, "YAML roster for the embedded session")
	flags.StringVar(&app.databaseURL, "db", app.databaseURL, "roster database for the embedded session (postgres:// or sqlite path)")
	flags.StringVar(&app.logFile, "log-file", "", "write session logs to this file")
	flags.BoolVar(&app.altScreen, "alt-screen", app.altScreen, "run in the terminal alternate screen")
	flags.DurationVar(&app.pollInterval, "poll", app.pollInterval, "refresh interval (with --remote)")
	flags.DurationVar(&app.minDelay, "reply-min-delay", app.minDelay, "minimum simulated reply delay")
	flags.DurationVar(&app.maxDelay, "reply-max-delay", app.maxDelay, "maximum simulated reply delay")

	return cmd
}

func run(ctx context.Context, app appConfig) error {
	logger := zerolog.Nop()
	if app.logFile != "" {
		f, err := os.OpenFile(app.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger = zerolog.New(f).With().Timestamp().Logger()
	}

	b, err := openBackend(ctx, app, logger)
	if err != nil {
		return err
	}
	defer b.close()

	opts := []tea.ProgramOption{tea.WithMouseCellMotion(), tea.WithContext(ctx)}
	if app.altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	_, err = tea.NewProgram(newModel(b, app.pollInterval), opts...).Run()
	return err
}

func openBackend(ctx context.Context, app appConfig, logger zerolog.Logger) (backend, error) {
	if app.remote {
		client := maarifa.NewClient(app.url, app.token)
		if _, err := client.Health(ctx); err != nil {
			return nil, fmt.Errorf("reach %s: %w", app.url, err)
		}
		return &remoteBackend{client: client}, nil
	}

	fixtures, err := store.LoadFixtures(app.fixtures)
	if err != nil {
		return nil, err
	}
	source, err := store.Open(ctx, app.databaseURL, fixtures)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	roster, notes, err := store.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	session, err := inbox.NewSession(roster, inbox.Options{
		ReplyMinDelay: app.minDelay,
		ReplyMaxDelay: app.maxDelay,
		Logger:        logger.With().Str("component", "inbox").Logger(),
	})
	if err != nil {
		return nil, err
	}
	return newLocalBackend(session, feed.New(notes)), nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "inbox fatal error: %v\n", err)
		os.Exit(1)
	}
}
