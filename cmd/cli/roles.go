package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/culturalx/backend/internal/database"
	"github.com/culturalx/backend/internal/models"
)

var promoteRole string

var promoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Change a user's role",
	Long:  "Promote (or demote) the user with the given email to the given role: user, moderator, or admin.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch promoteRole {
		case models.RoleUser, models.RoleModerator, models.RoleAdmin:
		default:
			return fmt.Errorf("unknown role %q (expected user, moderator, or admin)", promoteRole)
		}

		var user models.User
		if err := database.DB.Where("email = ?", args[0]).First(&user).Error; err != nil {
			return fmt.Errorf("user not found: %s", args[0])
		}

		if user.Role == promoteRole {
			fmt.Printf("⚠️  %s already has role %s\n", user.Email, user.Role)
			return nil
		}

		if err := database.DB.Model(&user).Update("role", promoteRole).Error; err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}

		fmt.Printf("✅ %s is now a %s\n", user.Email, promoteRole)
		return nil
	},
}

var assignCityCmd = &cobra.Command{
	Use:   "assign-city <email> <city-name>",
	Short: "Assign a moderator to a city",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var user models.User
		if err := database.DB.Where("email = ?", args[0]).First(&user).Error; err != nil {
			return fmt.Errorf("user not found: %s", args[0])
		}
		if user.Role != models.RoleModerator && user.Role != models.RoleAdmin {
			return fmt.Errorf("%s is not a moderator (promote them first)", user.Email)
		}

		var city models.City
		if err := database.DB.Where("name = ?", args[1]).First(&city).Error; err != nil {
			return fmt.Errorf("city not found: %s", args[1])
		}

		var existing models.CityModerator
		if err := database.DB.Where("user_id = ? AND city_id = ?", user.ID, city.ID).First(&existing).Error; err == nil {
			fmt.Printf("⚠️  %s already moderates %s\n", user.Email, city.Name)
			return nil
		}

		cm := models.CityModerator{CityID: city.ID, UserID: user.ID}
		if err := database.DB.Create(&cm).Error; err != nil {
			return fmt.Errorf("failed to assign city: %w", err)
		}

		fmt.Printf("✅ %s now moderates %s, %s\n", user.Email, city.Name, city.Country)
		return nil
	},
}

func init() {
	promoteCmd.Flags().StringVar(&promoteRole, "role", models.RoleModerator, "Role to assign: user, moderator, or admin")
}
