package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/olynch/presentations/internal/config"
	"github.com/olynch/presentations/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deck",
	Short: "Build slide decks from a single markup file",
	Long: `deck splits one markup document into slides, renders each slide through an
HTML template into out/1.html ... out/N.html, and serves the result locally
with automatic browser refresh while you edit.

Quick Start:
  deck init talk        Create config.toml, slides.md and a template
  deck serve            Build, watch and preview at http://127.0.0.1:3000
  deck build            Build once
  deck deploy           Build and publish to the configured destination`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat("log-format", logFormat, "text", "json"); err != nil {
			return err
		}
		_, err := logging.ParseLevel(logLevel)
		return err
	},
}

// Execute adds all child commands to the root command and runs it. SIGINT
// and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	fs := rootCmd.PersistentFlags()
	fs.StringVar(&cfgFile, "config", config.DefaultPath, "config file")
	fs.StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	addFormatFlag(fs, &logFormat, "log-format", "text", "json")
}

// newLogger builds the command logger from the global flags. Logs go to the
// command's error stream.
func newLogger(cmd *cobra.Command) (logging.Logger, error) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: logFormat,
		Output: cmd.ErrOrStderr(),
	}), nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// setup loads the configuration and logger shared by build, serve and deploy.
func setup(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger.Debug(cmd.Context(), "configuration loaded",
		"path", cfgFile, "src", cfg.Src, "out", cfg.Out, "template", cfg.Template, "static", cfg.Static)
	return cfg, logger, nil
}
