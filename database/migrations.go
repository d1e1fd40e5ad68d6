package database

import (
	"log/slog"

	"gorm.io/gorm"

	"blogapi/models"
)

func RunMigrations(db *gorm.DB) error {
	slog.Info("running database migrations")

	err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Comment{},
	)

	if err != nil {
		slog.Error("migrations failed", "error", err)
		return err
	}

	slog.Info("migrations completed")
	return nil
}
