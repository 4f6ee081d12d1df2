// Package main is the entry point for turnkeeper.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samdwyer/turnkeeper/internal/config"
	"github.com/samdwyer/turnkeeper/internal/logging"
	"github.com/samdwyer/turnkeeper/internal/telemetry"
)

func main() {
	// Load .env file for local development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Note: .env file not loaded: %v", err)
	}
	setupOTelEnv()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs once the root has run.
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var shutdown func(context.Context) error

	root := &cobra.Command{
		Use:           "turnkeeper",
		Short:         "Encounter state machine for turn-based tabletop combat",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
			}
			a.cfg = cfg

			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			a.logger = logger

			shutdown, err = telemetry.Setup(cmd.Context(), telemetry.Options{
				Enabled:     cfg.OTelEnabled,
				Endpoint:    cfg.OTelEndpoint,
				SampleRatio: cfg.OTelSample,
			})
			if err != nil {
				// Not fatal - runs still work without traces
				logger.Warn("telemetry setup failed", zap.Error(err))
				shutdown = nil
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if shutdown != nil {
				if err := shutdown(cmd.Context()); err != nil {
					a.logger.Warn("telemetry shutdown failed", zap.Error(err))
				}
			}
			if a.logger != nil {
				_ = a.logger.Sync()
			}
			return nil
		},
	}
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newSimulateCmd(a), newConditionsCmd())
	return root
}

// setupOTelEnv builds OTLP headers from a Honeycomb key when one is set and
// the headers are not configured directly.
func setupOTelEnv() {
	if os.Getenv("OTEL_EXPORTER_OTLP_HEADERS") != "" {
		return
	}
	apiKey := os.Getenv("HONEYCOMB_TURNKEEPER_API_KEY")
	if apiKey == "" {
		return
	}
	dataset := os.Getenv("HONEYCOMB_TURNKEEPER_DATASET")
	if dataset == "" {
		dataset = "turnkeeper"
	}
	os.Setenv("OTEL_EXPORTER_OTLP_HEADERS",
		fmt.Sprintf("x-honeycomb-team=%s,x-honeycomb-dataset=%s", apiKey, dataset))
}
