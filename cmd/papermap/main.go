package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/onnwee/citation-map/internal/config"
	"github.com/onnwee/citation-map/internal/errorreporting"
	"github.com/onnwee/citation-map/internal/graph"
	"github.com/onnwee/citation-map/internal/logger"
	"github.com/onnwee/citation-map/internal/server"
	"github.com/onnwee/citation-map/internal/tracing"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configFile string
	logLevel   string
	dim        int
	papersFile string
}

// app is filled by the root command before any subcommand runs.
type app struct {
	cfg      *config.Config
	shutdown func()
}

func newRootCmd(a *app) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:          "papermap",
		Short:        "Force-directed layout of a citation graph",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				fmt.Fprintln(os.Stderr, "no .env file found, using environment")
			}
			if flags.configFile != "" {
				os.Setenv("LAYOUT_CONFIG_FILE", flags.configFile)
			}
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			// flag overrides apply to this command only, not the cached config
			c := *loaded
			cfg := &c
			if cmd.Flags().Changed("dim") {
				cfg.Layout.Dim = flags.dim
			}
			if flags.papersFile != "" {
				cfg.Sources.PapersFile = flags.papersFile
			}
			if flags.logLevel != "" {
				cfg.LogLevel = strings.ToLower(flags.logLevel)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger.Init(cfg.LogLevel)

			stop, err := initTelemetry(cfg)
			if err != nil {
				return err
			}
			a.cfg, a.shutdown = cfg, stop
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.shutdown != nil {
				a.shutdown()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "YAML layout configuration file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.IntVar(&flags.dim, "dim", 2, "layout dimensions (2 or 3)")
	pf.StringVar(&flags.papersFile, "papers", "", "read papers from a JSON file instead of the database")

	root.AddCommand(newLayoutCmd(a), newServeCmd(a))
	return root
}

func initTelemetry(cfg *config.Config) (func(), error) {
	if err := errorreporting.Init(errorreporting.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.SentryRelease,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		logger.Warn("sentry disabled", "error", err)
	}
	stopTracing, err := tracing.Init(tracing.Options{
		Enabled:     cfg.OTELEnabled,
		ServiceName: "papermap",
		Version:     version,
		Endpoint:    cfg.OTELEndpoint,
		SampleRate:  cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	return func() {
		if err := stopTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
		errorreporting.Flush(2 * time.Second)
	}, nil
}

func newLayoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Run the layout once and save the positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			deps, err := wire(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			svc := graph.NewService(deps.source, deps.positions, deps.runs, graph.RunOptionsFromConfig(cfg.Layout))
			run, err := svc.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s, %d papers, iterations per level %v\n",
				run.ID, run.State, run.Nodes, run.Iterations)
			return nil
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var noJob bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Re-run the layout periodically and serve status and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg := cmd.Context(), a.cfg
			deps, err := wire(ctx, cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			svc := graph.NewService(deps.source, deps.positions, deps.runs, graph.RunOptionsFromConfig(cfg.Layout))
			if !noJob {
				go graph.NewJob(svc, cfg.LayoutInterval).Start(ctx)
			}
			return server.New(svc, deps.history).ListenAndServe(ctx, cfg.MetricsAddr)
		},
	}
	cmd.Flags().BoolVar(&noJob, "no-job", false, "only run layouts triggered through POST /runs")
	return cmd
}
