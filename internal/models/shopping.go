// internal/models/shopping.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type CartItem struct {
	BaseModel
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_gemstone"`
	GemstoneID uuid.UUID `json:"gemstone_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_gemstone"`
	Quantity   int       `json:"quantity" gorm:"not null;check:quantity > 0"`

	Gemstone Gemstone `json:"gemstone" gorm:"foreignKey:GemstoneID"`
}

type Favorite struct {
	BaseModel
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_favorite_user_gemstone"`
	GemstoneID uuid.UUID `json:"gemstone_id" gorm:"type:uuid;not null;uniqueIndex:idx_favorite_user_gemstone"`

	Gemstone Gemstone `json:"gemstone" gorm:"foreignKey:GemstoneID"`
}

type ChatMessage struct {
	BaseModel
	UserID     uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Sender     ChatSender `json:"sender" gorm:"type:varchar(20);not null"`
	SenderID   *uuid.UUID `json:"sender_id,omitempty" gorm:"type:uuid"`
	Content    string     `json:"content" gorm:"type:text;not null"`
	GemstoneID *uuid.UUID `json:"gemstone_id,omitempty" gorm:"type:uuid"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

type Activity struct {
	BaseModel
	UserID   uuid.UUID    `json:"user_id" gorm:"type:uuid;not null;index"`
	Type     ActivityType `json:"type" gorm:"type:varchar(40);not null;index"`
	Message  string       `json:"message" gorm:"type:text;not null"`
	Metadata JSONB        `json:"metadata,omitempty" gorm:"type:jsonb"`
}
