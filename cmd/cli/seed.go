package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/culturalx/backend/internal/database"
	"github.com/culturalx/backend/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed [dev|test|cities]",
	Short: "Seed the database",
	Long: `Seed the database with data:
  dev    - realistic development data (users, posts, connections, messages)
  test   - minimal deterministic data for e2e tests
  cities - only the built-in city list`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seeder := seed.NewSeeder(database.DB)

		switch args[0] {
		case "dev":
			if err := seeder.SeedDev(); err != nil {
				return fmt.Errorf("failed to seed dev data: %w", err)
			}
			fmt.Println("✅ Development database seeded")
		case "test":
			if err := seeder.SeedTest(); err != nil {
				return fmt.Errorf("failed to seed test data: %w", err)
			}
			fmt.Println("✅ Test database seeded")
		case "cities":
			if err := seeder.SeedCities(); err != nil {
				return fmt.Errorf("failed to seed cities: %w", err)
			}
			fmt.Println("✅ Cities seeded")
		default:
			return fmt.Errorf("unknown seed target %q", args[0])
		}
		return nil
	},
}
