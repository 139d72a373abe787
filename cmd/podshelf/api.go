package main

import (
	"github.com/spf13/cobra"

	"github.com/podshelf/podshelf/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Podshelf server via HTTP.

These commands require a running server (podshelf serve).
Use --server to specify a custom server URL.

Examples:
  podshelf api health           # Check server health
  podshelf api books list       # List all books
  podshelf api books get <id>   # Get a specific book
  podshelf api ingest           # Process the podcast feed`,
}

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Book management commands",
}

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Data quality and maintenance commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8580", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Pipeline commands at top level of api
	apiCmd.AddCommand((&endpoints.IngestEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ExtractEndpoint{}).Command(getServerURL))

	// Books as subcommand group
	booksCmd.AddCommand((&endpoints.ListBooksEndpoint{}).Command(getServerURL))
	booksCmd.AddCommand((&endpoints.GetBookEndpoint{}).Command(getServerURL))
	booksCmd.AddCommand((&endpoints.CreateBookEndpoint{}).Command(getServerURL))
	booksCmd.AddCommand((&endpoints.UpdateBookEndpoint{}).Command(getServerURL))
	booksCmd.AddCommand((&endpoints.DeleteBookEndpoint{}).Command(getServerURL))

	// Maintenance as subcommand group
	maintenanceCmd.AddCommand((&endpoints.QualityReportEndpoint{}).Command(getServerURL))
	maintenanceCmd.AddCommand((&endpoints.CleanEndpoint{}).Command(getServerURL))
	maintenanceCmd.AddCommand((&endpoints.MergeDuplicatesEndpoint{}).Command(getServerURL))
	maintenanceCmd.AddCommand((&endpoints.EnrichEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(booksCmd)
	apiCmd.AddCommand(maintenanceCmd)
	rootCmd.AddCommand(apiCmd)
}
