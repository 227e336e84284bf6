package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/macropower/chipper/api/v1beta1/configs"
	"github.com/macropower/chipper/pkg/analytics"
	"github.com/macropower/chipper/pkg/browser"
	"github.com/macropower/chipper/pkg/chip"
	"github.com/macropower/chipper/pkg/engine"
	"github.com/macropower/chipper/pkg/log"
	"github.com/macropower/chipper/pkg/mcp"
	"github.com/macropower/chipper/pkg/observer"
	"github.com/macropower/chipper/pkg/preference"
	"github.com/macropower/chipper/pkg/rule"
	"github.com/macropower/chipper/pkg/session"
	"github.com/macropower/chipper/pkg/telemetry"
	"github.com/macropower/chipper/pkg/version"
)

const (
	cmdExamples = `  # Open the feed and keep your preferred chip selected:
  chipper

  # Drive an already running browser (started with --remote-debugging-port):
  chipper run --browser-url ws://127.0.0.1:9222/devtools/browser/<id>

  # Try the engine against a fixed set of chips, controlled over MCP stdio:
  chipper run --demo --serve-mcp -

  # Serve the MCP tools over streamable HTTP:
  chipper run --serve-mcp localhost:8080`
)

// defaultDemoChips are the chips offered by --demo.
var defaultDemoChips = []string{chip.DefaultText, "Music", "Podcasts", "News", "Gaming", "Live"}

type RunArgs struct {
	*RootArgs

	ServeMCP   string
	BrowserURL string
	DemoChips  []string
	Demo       bool
	Headless   bool
}

func NewRunArgs(rootArgs *RootArgs) *RunArgs {
	return &RunArgs{
		RootArgs: rootArgs,
	}
}

func (ra *RunArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ra.ServeMCP, "serve-mcp", "", "Serve the MCP tools at the specified address, or - for stdio")
	cmd.Flags().StringVar(&ra.BrowserURL, "browser-url", "", "DevTools URL of a running browser to drive")
	cmd.Flags().BoolVar(&ra.Demo, "demo", false, "Use a fixed set of chips instead of a browser")
	cmd.Flags().StringSliceVar(&ra.DemoChips, "demo-chips", defaultDemoChips, "Chips offered in demo mode")
	cmd.Flags().BoolVar(&ra.Headless, "headless", false, "Launch the browser without a window")
}

func NewRunCmd(ra *RunArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Default command, applies preferences until interrupted",
		Example: cmdExamples,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, ra)
		},
	}
	ra.AddFlags(cmd)

	return cmd
}

// environment is the page the engine works against, and the source of its
// change notifications.
type environment struct {
	source  chip.Source
	changes observer.ChangeSource
	run     func(ctx context.Context) error
	close   func() error
}

func run(cmd *cobra.Command, ra *RunArgs) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ra.RootArgs)
	if err != nil {
		return err
	}

	if ra.BrowserURL != "" {
		cfg.Browser.ControlURL = ra.BrowserURL
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = &ra.Headless
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, cmdName)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}

	defer func() {
		err := shutdownTelemetry(context.WithoutCancel(ctx))
		if err != nil {
			slog.Error("shutdown telemetry", slog.Any("err", err))
		}
	}()

	recorder, closeRecorder, err := openRecorder(ctx, cfg.Analytics)
	if err != nil {
		return err
	}
	defer closeRecorder()

	store, err := preference.NewFileStore(ra.GetPreferencesPath())
	if err != nil {
		// The store reports itself unavailable until the file is fixed.
		slog.Warn("could not load preferences", slog.String("path", store.Path()), slog.Any("err", err))
	}

	env, err := openEnvironment(ctx, cfg, ra)
	if err != nil {
		return err
	}

	defer func() {
		err := env.close()
		if err != nil {
			slog.Error("close environment", slog.Any("err", err))
		}
	}()

	registryOpts := []chip.RegistryOpt{chip.WithDefaultText(cfg.Engine.DefaultCandidate)}
	tracker := session.NewTracker(recorder,
		session.WithMinimumDuration(cfg.Session.MinimumDuration.Get(session.DefaultMinimumDuration)),
	)

	ctrlOpts := append(cfg.Engine.Options(),
		engine.WithRecorder(recorder),
		engine.WithSessionTracker(tracker),
	)
	ctrl := engine.NewController(chip.NewRegistry(env.source, registryOpts...), store, ctrlOpts...)

	// Teardown must close the session even when ctx is already canceled.
	defer ctrl.Close(context.WithoutCancel(ctx))

	obs := observer.New(ctrl, env.changes, cfg.Observer.Options()...)

	sched := preference.NewScheduler(store, func(ctx context.Context, active *rule.TimeRule) {
		log.WithContext(ctx).InfoContext(ctx, "reapply preferences", slog.Any("rule", active))
		ctrl.ResetForNavigation(ctx)
		ctrl.Apply(ctx)
	}, preference.WithInterval(cfg.Schedule.Interval.Get(preference.DefaultInterval)))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return obs.Run(ctx) })
	g.Go(func() error { return sched.Run(ctx) })
	g.Go(func() error {
		err := store.Watch(ctx, sched.Trigger)
		if err != nil {
			slog.Warn("preferences will not be reloaded on change", slog.Any("err", err))
		}

		return nil
	})

	if env.run != nil {
		g.Go(func() error { return env.run(ctx) })
	}

	if ra.ServeMCP != "" {
		srv := mcp.NewServer(ctrl, mcp.WithPreferences(store))
		g.Go(func() error { return srv.Serve(ctx, ra.ServeMCP) })
	}

	slog.Info("chipper running",
		slog.String("version", version.GetVersion()),
		slog.String("preferences", store.Path()),
		slog.Bool("demo", ra.Demo),
	)

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run: %w", err)
	}

	return nil
}

func openEnvironment(ctx context.Context, cfg *configs.Config, ra *RunArgs) (*environment, error) {
	if ra.Demo {
		feed := observer.NewFeed(1)

		return &environment{
			source:  chip.NewStatic(ra.DemoChips...),
			changes: feed,
			close: func() error {
				feed.Close()
				return nil
			},
		}, nil
	}

	b, err := browser.Open(ctx, cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w: %w", chip.ErrEnvironmentUnavailable, err)
	}

	w := browser.NewWatcher(b, browser.WithPollInterval(cfg.Browser.PollInterval.Get(browser.DefaultPollInterval)))

	return &environment{
		source:  b,
		changes: w,
		run:     w.Run,
		close:   b.Close,
	}, nil
}

// openRecorder returns the analytics recorder described by cfg, and a
// function that flushes and closes it.
//
//nolint:ireturn // Discard and the emitter share the interface.
func openRecorder(ctx context.Context, cfg *analytics.Config) (analytics.Recorder, func(), error) {
	if !cfg.IsEnabled() {
		return analytics.Discard, func() {}, nil
	}

	db, err := analytics.OpenSQLite(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open analytics: %w", err)
	}

	userID, created, err := analytics.LoadOrCreateUserID(cfg.UserIDPath)
	if err != nil {
		slog.Warn("could not persist user id", slog.Any("err", err))
	}

	var sink analytics.Sink = db
	if cfg.Log {
		sink = analytics.Multi{db, analytics.NewLogSink(slog.Default(), slog.LevelDebug)}
	}

	emitter := analytics.NewEmitter(sink,
		analytics.WithUserID(userID),
		analytics.WithVersion(version.GetVersion()),
		analytics.WithQueueSize(cfg.QueueSize),
		analytics.WithLogger(slog.Default()),
	)

	if created {
		emitter.Record(ctx, analytics.KindInstalled, analytics.Payload{})
	}

	return emitter, func() {
		emitter.Close()

		err := db.Close()
		if err != nil {
			slog.Error("close analytics", slog.Any("err", err))
		}
	}, nil
}
