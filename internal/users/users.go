// Package users manages the authorized-user registry.
package users

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tbaldin/ferro/internal/ferr"
	"github.com/tbaldin/ferro/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service reads and mutates the user registry.
type Service struct {
	db *gorm.DB
}

// NewService creates a Service.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("users: db is required")
	}
	return &Service{db: db}, nil
}

// Authorized reports whether the user exists and is active. Errors are
// logged and treated as unauthorized.
func (s *Service) Authorized(userID string) bool {
	var u models.User
	err := s.db.Where("user_id = ? AND is_active = ?", userID, true).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if err != nil {
		log.Printf("users: authorize %s: %v", userID, err)
		return false
	}
	return true
}

// IsAdmin reports whether the user is an active admin.
func (s *Service) IsAdmin(userID string) bool {
	var u models.User
	err := s.db.Where("user_id = ? AND is_active = ? AND is_admin = ?", userID, true, true).
		First(&u).Error
	return err == nil
}

// Touch refreshes the stored profile fields for an already-authorized user
// on contact. Best effort; failures are logged.
func (s *Service) Touch(userID, username, firstName, lastName string) {
	err := s.db.Model(&models.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"username":   username,
			"first_name": firstName,
			"last_name":  lastName,
		}).Error
	if err != nil {
		log.Printf("users: touch %s: %v", userID, err)
	}
}

// Add authorizes a user, upserting by id. createdBy records the admin who
// added them.
func (s *Service) Add(userID, createdBy string, admin bool) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ferr.Validation("user_id", "user id required")
	}

	u := models.User{
		UserID:    userID,
		IsAdmin:   admin,
		IsActive:  true,
		CreatedBy: createdBy,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_admin", "is_active"}),
	}).Create(&u).Error
	if err != nil {
		return ferr.Database("users: add", err)
	}
	return nil
}

// Deactivate revokes a user's access without deleting their history.
func (s *Service) Deactivate(userID string) error {
	result := s.db.Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("is_active", false)
	if result.Error != nil {
		return ferr.Database("users: deactivate", result.Error)
	}
	if result.RowsAffected == 0 {
		return ferr.Validation("user_id", "user not found")
	}
	return nil
}

// List returns every registered user.
func (s *Service) List() ([]models.User, error) {
	var all []models.User
	if err := s.db.Order("created_at").Find(&all).Error; err != nil {
		return nil, ferr.Database("users: list", err)
	}
	return all, nil
}
