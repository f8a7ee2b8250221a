package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/filterjoin/internal/compiler"
	"github.com/roach88/filterjoin/internal/config"
	"github.com/roach88/filterjoin/internal/server"
	"github.com/roach88/filterjoin/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ConfigPath string
	Addr       string
	DBPath     string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the translate API over HTTP",
		Long: `Serve POST /translate and GET /health.

Settings come from the YAML file given by --config, then FILTERJOIN_*
environment variables, then the --addr and --db flags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "record translations in this SQLite database (overrides config)")

	return cmd
}

// loadServeConfig resolves the effective config for the serve command.
func loadServeConfig(opts *ServeOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadServeConfig(opts)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	level, err := cfg.Level()
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	log := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	var recorder server.Recorder
	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
		}
		defer st.Close()
		recorder = st
		log.Info("recording translations", "db", cfg.DBPath)
	}

	c := compiler.New(
		compiler.WithLogger(log),
		compiler.WithDuplicateEdges(cfg.Policy()),
	)
	srv := server.NewServer(c, recorder, log, cfg)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(ctx, cfg.Addr, srv, cfg.ShutdownTimeout, log); err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("server failed: %v", err))
	}
	return nil
}
