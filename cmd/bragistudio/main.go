/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/friendsincode/bragi_studio/internal/config"
	"github.com/friendsincode/bragi_studio/internal/logging"
	"github.com/friendsincode/bragi_studio/internal/server"
	"github.com/friendsincode/bragi_studio/internal/telemetry"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "bragistudio",
		Short: "Bragi Studio - radio studio playout automation",
	}

	root.AddCommand(serveCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the studio automation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := logging.Setup(cfg.Environment)
			logger.Info().
				Str("version", version).
				Str("environment", cfg.Environment).
				Msg("starting bragi studio")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tp, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
				ServiceName:    "bragi_studio",
				ServiceVersion: version,
				OTLPEndpoint:   cfg.OTLPEndpoint,
				Enabled:        cfg.TracingEnabled,
				SampleRate:     cfg.TracingSampleRate,
			}, logger)
			if err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("tracer shutdown")
				}
			}()

			srv, err := server.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("assemble server: %w", err)
			}

			if err := srv.Run(ctx); err != nil {
				return err
			}

			logger.Info().Msg("shutting down")
			return srv.Shutdown(context.Background())
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bragistudio %s\n", version)
		},
	}
}
