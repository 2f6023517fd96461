package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/culturalx/backend/internal/database"
	"github.com/culturalx/backend/internal/models"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print database counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db := database.DB

		var users, posts, pending, flagged, messages, connections, notifications int64
		db.Model(&models.User{}).Count(&users)
		db.Model(&models.Post{}).Count(&posts)
		db.Model(&models.Post{}).Where("status = ?", models.PostStatusPending).Count(&pending)
		db.Model(&models.Post{}).Where("flagged = ?", true).Count(&flagged)
		db.Model(&models.Message{}).Count(&messages)
		db.Model(&models.Connection{}).Where("status = ?", models.ConnectionAccepted).Count(&connections)
		db.Model(&models.Notification{}).Count(&notifications)

		fmt.Printf("Users:          %d\n", users)
		fmt.Printf("Posts:          %d (%d pending, %d flagged)\n", posts, pending, flagged)
		fmt.Printf("Messages:       %d\n", messages)
		fmt.Printf("Connections:    %d accepted\n", connections)
		fmt.Printf("Notifications:  %d\n", notifications)
		return nil
	},
}
