package database

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"estante/models"
)

func RunMigrations(db *gorm.DB, log logrus.FieldLogger) error {
	log.Info("Running database migrations...")

	if err := db.AutoMigrate(models.All()...); err != nil {
		log.WithError(err).Error("Error running migrations")
		return err
	}

	log.Info("Migrations completed successfully")
	return nil
}
