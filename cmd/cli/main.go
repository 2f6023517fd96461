// culturalx-admin is the operator CLI: seeding, role management, city
// moderator assignment, and quick stats. It talks to the database
// directly, not the HTTP API.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/culturalx/backend/internal/database"
	"github.com/culturalx/backend/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "culturalx-admin",
	Short: "CulturalX admin CLI - seed data, manage roles and moderators",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found, using system environment variables")
		}
		if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		if err := database.Initialize(); err != nil {
			log.Fatalf("❌ Failed to initialize database: %v", err)
		}
		if err := database.Migrate(); err != nil {
			log.Fatalf("❌ Failed to run migrations: %v", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		database.Close()
		logger.Close()
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(assignCityCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
