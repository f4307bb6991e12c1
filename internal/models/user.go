package models

import "time"

// User is an authorized user of the bot. Rows are keyed by the chat
// platform's opaque user identifier.
type User struct {
	UserID    string `gorm:"primaryKey;size:50"`
	Username  string `gorm:"size:100"`
	FirstName string `gorm:"size:100"`
	LastName  string `gorm:"size:100"`
	IsAdmin   bool   `gorm:"default:false"`
	IsActive  bool   `gorm:"default:true"`
	CreatedBy string `gorm:"size:50"` // user ID of whoever added this user
	CreatedAt time.Time
	UpdatedAt time.Time
}
