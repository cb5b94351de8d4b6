// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username        string          `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email           string          `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash    string          `json:"-" gorm:"size:255;not null"`
	Role            UserRole        `json:"role" gorm:"type:varchar(20);not null;default:'customer'"`
	Status          UserStatus      `json:"status" gorm:"type:varchar(20);default:'active'"`
	Preferences     UserPreferences `json:"preferences" gorm:"embedded;embeddedPrefix:pref_"`
	ProfileData     JSONB           `json:"profile_data" gorm:"type:jsonb"`
	EmailVerifiedAt *time.Time      `json:"email_verified_at"`
	LastLoginAt     *time.Time      `json:"last_login_at"`

	// Relationships
	Orders    []Order    `json:"orders,omitempty" gorm:"foreignKey:UserID"`
	Favorites []Favorite `json:"favorites,omitempty" gorm:"foreignKey:UserID"`
}

// UserPreferences holds the display currency and notification switches
// shown on the profile settings page.
type UserPreferences struct {
	Currency             string `json:"currency" gorm:"size:3;default:'USD'"`
	EmailNotifications   bool   `json:"email_notifications" gorm:"default:true"`
	OrderUpdates         bool   `json:"order_updates" gorm:"default:true"`
	PromotionalEmails    bool   `json:"promotional_emails" gorm:"default:false"`
	NewsletterSubscribed bool   `json:"newsletter_subscribed" gorm:"default:false"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
