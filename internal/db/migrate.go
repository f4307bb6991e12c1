package db

import (
	"fmt"

	"github.com/tbaldin/ferro/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Exercise{},
		&models.WorkoutSession{},
		&models.WorkoutExercise{},
		&models.AerobicExercise{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedUsers upserts the configured authorized users. Existing rows keep
// their profile fields; only the flags are refreshed.
func SeedUsers(conn *gorm.DB, userIDs, adminIDs []string) error {
	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}

	seen := make(map[string]bool, len(userIDs))
	all := make([]string, 0, len(userIDs)+len(adminIDs))
	for _, id := range append(append([]string{}, userIDs...), adminIDs...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		all = append(all, id)
	}

	for _, id := range all {
		user := models.User{
			UserID:   id,
			IsAdmin:  admins[id],
			IsActive: true,
		}
		result := conn.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_admin", "is_active"}),
		}).Create(&user)
		if result.Error != nil {
			return fmt.Errorf("db: seed user %q: %w", id, result.Error)
		}
	}
	return nil
}
