package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "github.com/donhauser001/dongui/docs" // Load swagger docs
)

// Version is set via ldflags at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "dongui",
	Short: "dongui - user, role and permission administration server",
	Long:  `dongui serves the authentication and role-based access control API.`,
	Example: `  # Prepare a database and create the first administrator
  dongui migrate
  dongui seed
  dongui admin create --email admin@example.com --name Admin

  # Run the API server
  dongui serve --port 8080`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "server", Title: "Server Commands:"},
		&cobra.Group{ID: "admin", Title: "Admin Commands:"},
	)

	serveCmd.GroupID = "server"
	migrateCmd.GroupID = "admin"
	seedCmd.GroupID = "admin"
	adminCmd.GroupID = "admin"

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
