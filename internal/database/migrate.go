package database

import (
	"fmt"

	"storeadmin/internal/model"
	"storeadmin/pkg/log"
)

// AutoMigrate migrates all tables
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	models := []interface{}{
		&model.User{},
		&model.ActivationTemplate{},
		&model.Order{},
		&model.OrderItem{},
		&model.Client{},
		&model.ClientPurchase{},
		&model.ClientOrder{},
		&model.Notification{},
		&model.Settings{},
	}

	for _, m := range models {
		if err := DB.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", m, err)
		}
	}

	log.Info("Database migration completed")
	return nil
}
