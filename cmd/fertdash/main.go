package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spektr-org/fertdash/config"
	"github.com/spektr-org/fertdash/dashboard"
	"github.com/spektr-org/fertdash/loader"
)

// ============================================================================
// FERTDASH CLI — Fertilizer comparison dashboard
// ============================================================================

var version = "0.3.0"

// app carries what every command needs once flags and config are resolved.
type app struct {
	configPath string
	dataPath   string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "fertdash",
		Short: "Compare fertilizers by N-P-K content and cost",
		Long: `fertdash loads a fertilizer comparison spreadsheet (CSV) and shows
N-P-K content, cost per hectare and cost per unit of nitrogen.

Run without a subcommand to start the dashboard on http://127.0.0.1:8501.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: a.runServe,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "fertdash.yaml", "Config file (missing file = defaults)")
	root.PersistentFlags().StringVarP(&a.dataPath, "data", "d", "", "Data file (overrides data.path)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	serve := newServeCmd(a)
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newReportCmd(a))
	root.AddCommand(newInspectCmd(a))
	root.AddCommand(newInitCmd(a))
	root.AddCommand(versionCmd)
	return root
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fertdash %s\n", version)
	},
}

// setup loads the config, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dataPath != "" {
		cfg.Data.Path = a.dataPath
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	a.logger, err = buildLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger.Debug("configuration loaded",
		zap.String("config", a.configPath),
		zap.String("data", cfg.Data.Path),
	)
	return nil
}

// buildLogger writes to stderr so report output on stdout stays clean.
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

func (a *app) newLoader() (*loader.Loader, error) {
	opts, err := a.cfg.LoaderOptions()
	if err != nil {
		return nil, err
	}
	return loader.New(opts, a.logger)
}

func (a *app) sessionOptions() dashboard.SessionOptions {
	p := a.cfg.Presentation
	return dashboard.SessionOptions{
		Title:    a.cfg.Server.Title,
		Currency: p.Currency,
		NColor:   p.NColor,
		PColor:   p.PColor,
		KColor:   p.KColor,
		Chart:    dashboard.ChartSize{Width: p.ChartWidth, Height: p.ChartHeight},
	}
}
