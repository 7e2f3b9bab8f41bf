// Wavelet Enhancer - wavelet detail enhancement and feature extraction for
// grayscale images.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"wavelet-enhancer/internal/config"
)

const (
	AppName    = "wavelet-enhancer"
	AppVersion = "1.0.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand once the root command
// has resolved configuration and logging.
type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           AppName,
		Short:         "Enhance image detail and extract features with the discrete wavelet transform",
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = initLogger(a.debug || cfg.Debug)
			a.logger.WithFields(logrus.Fields{
				"version": AppVersion,
				"command": cmd.Name(),
				"config":  a.configPath,
			}).Debug("Starting")
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "TOML configuration file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug mode with verbose logging")

	root.AddCommand(
		newEnhanceCmd(a),
		newFeaturesCmd(a),
		newBatchCmd(a),
		newWaveletsCmd(),
	)
	return root
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
