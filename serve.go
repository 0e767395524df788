package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jan-sahayak/server/internal/core"
	"github.com/jan-sahayak/server/internal/server"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			logx.Error().Err(err).Msg("Failed to build application")
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				logx.Warn().Err(err).Msg("Error closing resources")
			}
		}()

		return server.New(a.engine, core.ParseEnvironment(cfg.Env)).Run(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides SERVER_ADDR)")
}
