package main

import (
	"fmt"
	"os"

	"github.com/donhauser001/dongui/internal/server"
	"github.com/spf13/cobra"
)

var servePort int

// @title dongui API
// @version 1.0
// @description User, role and permission administration API
// @host localhost:50000
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	Long: `Start the dongui API server.

The database is migrated and seeded on startup. When ADMIN_EMAIL and
ADMIN_PASSWORD are set and no users exist, a super administrator is created.

Examples:
  dongui serve                    # Run with config defaults
  dongui serve --port 8080        # Override port

Environment variables:
  DONGUI_SERVER_PORT         Server port (default: 50000)
  DONGUI_DATABASE_DRIVER     Database driver: sqlite, postgres
  DONGUI_DATABASE_DSN        Database connection string
  DONGUI_AUTH_JWT_SECRET     JWT signing secret
  DONGUI_RATELIMIT_BACKEND   Rate limiter backend: memory, valkey
  ADMIN_EMAIL                Bootstrap admin email
  ADMIN_PASSWORD             Bootstrap admin password`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := server.Config{
		Port:    servePort,
		Version: Version,
	}

	if err := server.RunWithSignalHandling(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
