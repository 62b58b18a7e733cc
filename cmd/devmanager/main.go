// Command devmanager bundles the development tools for the device web UI:
// a debug server that mimics the device API, an ID generator and the asset
// staging step.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ning0612/devmanager/internal/config"
	"github.com/Ning0612/devmanager/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	logger.Shutdown()
	if err != nil {
		errorColor.Fprintf(os.Stderr, "devmanager: %v\n", err)
		os.Exit(1)
	}
}

// app carries the loaded configuration from the root command to its
// subcommands
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	logFile    string
	dataDir    string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "Development tools for the device web UI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: devmanager.yaml in ., ./configs or the user config dir)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text, json")
	flags.StringVar(&a.logFile, "log-file", "", "also write logs to this rotating file")
	flags.StringVar(&a.dataDir, "data-dir", "", "directory for the history database and PID file")

	cmd.AddCommand(
		newServeCmd(a),
		newGenIDCmd(a),
		newMoveCmd(a),
		newHistoryCmd(a),
		newStopCmd(a),
	)
	return cmd
}

// setup loads the configuration, applies the global flags and installs
// the process logger
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if flags.Changed("log-file") {
		cfg.Log.File = a.logFile
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = a.dataDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	return initLogger(cfg.Log, cmd)
}

func initLogger(lc config.LogConfig, cmd *cobra.Command) error {
	// A previous command in the same process may have installed one
	logger.Shutdown()

	lcfg := logger.Config{
		Level:   logger.ParseLevel(lc.Level),
		Format:  logger.ParseFormat(lc.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr, Writer: cmd.ErrOrStderr()}},
	}
	if lc.File != "" {
		lcfg.Outputs = append(lcfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		lcfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       config.ExpandPath(lc.File),
			MaxSizeMB:  lc.MaxSizeMB,
			MaxAgeDays: lc.MaxAgeDays,
			MaxBackups: lc.MaxBackups,
			Compress:   true,
		}
	}

	if err := logger.Init(lcfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}
