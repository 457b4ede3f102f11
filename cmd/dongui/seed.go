package main

import (
	"fmt"

	"github.com/donhauser001/dongui/internal/db"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the system roles and permissions",
	Long: `Create the system roles and permissions and add the default grants.

Seeding is additive: existing roles keep their settings and seeded grants
are added where missing. Nothing is removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(database)

		if err := db.Migrate(database); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		seed, err := db.LoadSeed()
		if err != nil {
			return err
		}
		if err := db.Seed(database, seed); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}
		fmt.Printf("Seeded %d roles and %d permissions\n", len(seed.Roles), len(seed.Permissions))
		return nil
	},
}
