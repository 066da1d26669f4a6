package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/exapitools/npcinv/internal/catalog"
	"github.com/exapitools/npcinv/internal/config"
	"github.com/exapitools/npcinv/internal/engine"
	"github.com/exapitools/npcinv/internal/itemfilter"
	"github.com/exapitools/npcinv/internal/metrics"
	"github.com/exapitools/npcinv/internal/overlay"
	"github.com/exapitools/npcinv/internal/state"
	"github.com/exapitools/npcinv/internal/util"
)

type rootOptions struct {
	configPath string
	logLevel   string
	socketPath string
	// logWriter replaces the console log output, mainly for tests.
	logWriter io.Writer
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithOptions(&rootOptions{})
}

func newRootCmdWithOptions(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "npcinv",
		Short:         "Highlight filtered items in NPC trade windows",
		Long:          "npcinv frames items matching enabled rule files in the shown NPC trade tab and lists matches hidden in other tabs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath(), "path to YAML config")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace|debug|info|warn|error), overrides the config")
	flags.StringVar(&opts.socketPath, "socket", "", "control socket path (default $XDG_RUNTIME_DIR/npcinv/control.sock)")

	cmd.AddCommand(
		newRunCmd(opts),
		newRulesCmd(opts),
		newInspectCmd(opts),
		newReloadCmd(opts),
		newStatusCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// load reads the config and builds the logger it asks for.
func (o *rootOptions) load() (*config.Config, *util.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	var logger *util.Logger
	if o.logWriter != nil {
		logger = util.NewLoggerWithWriter(util.ParseLogLevel(level), o.logWriter)
	} else {
		logger = util.NewLogger(util.ParseLogLevel(level))
	}
	return cfg, logger, nil
}

func newCatalog(cfg *config.Config, logger *util.Logger) *catalog.Catalog {
	store := catalog.NewFileStore(cfg.CatalogPath)
	return catalog.New(cfg.RuleDir, cfg.RuleExtension, store, logger.With("catalog"))
}

func newEngine(cfg *config.Config, logger *util.Logger, source state.DataSource) (*engine.Engine, *metrics.Collector) {
	collector := metrics.NewCollector(!cfg.DisableMetrics)
	presenter := overlay.NewPresenter(overlay.StyleFromConfig(cfg))
	eng := engine.New(source, newCatalog(cfg, logger), itemfilter.Loader{}, presenter, logger.With("engine"), engine.Options{
		SnapshotTTL:   cfg.SnapshotTTL(),
		FrameInterval: cfg.FrameInterval(),
		FilterTest:    cfg.FilterTest,
		Metrics:       collector,
	})
	return eng, collector
}
