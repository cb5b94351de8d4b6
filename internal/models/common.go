// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type GemstoneStatus string

const (
	GemstoneStatusDraft    GemstoneStatus = "draft"
	GemstoneStatusActive   GemstoneStatus = "active"
	GemstoneStatusArchived GemstoneStatus = "archived"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

type ChatSender string

const (
	ChatSenderUser      ChatSender = "user"
	ChatSenderAdmin     ChatSender = "admin"
	ChatSenderAssistant ChatSender = "assistant"
)

type ActivityType string

const (
	ActivityOrderPlaced        ActivityType = "order_placed"
	ActivityOrderStatusChanged ActivityType = "order_status_changed"
	ActivityOrderCancelled     ActivityType = "order_cancelled"
	ActivityFavoriteAdded      ActivityType = "favorite_added"
	ActivityProfileUpdated     ActivityType = "profile_updated"
	ActivityPasswordChanged    ActivityType = "password_changed"
)
