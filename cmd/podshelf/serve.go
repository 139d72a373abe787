package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/podshelf/podshelf/internal/config"
	"github.com/podshelf/podshelf/internal/home"
	"github.com/podshelf/podshelf/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Podshelf server",
	Long: `Start the Podshelf HTTP server.

The server opens the SQLite book store and exposes the extraction
pipeline, the book CRUD API, and the maintenance operations over HTTP.
Configuration changes on disk are picked up without a restart.

The server provides:
  /health - Basic server health check
  /ready  - Readiness check (includes the book store)

Examples:
  podshelf serve                 # Start on default port 8580
  podshelf serve --port 3000     # Start on custom port
  podshelf serve --host 0.0.0.0  # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Load configuration with hot reload
		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		if err := mgr.Get().Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		mgr.WatchConfig()

		// Port flag overrides the configured port
		port := servePort
		if port == "" {
			port = strconv.Itoa(mgr.Get().Server.Port)
		}

		// Create server
		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          port,
			Home:          h,
			ConfigManager: mgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: from config)")

	rootCmd.AddCommand(serveCmd)
}
