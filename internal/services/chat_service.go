// internal/services/chat_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

// ChatService stores the support conversation between a customer and the store.
// Each customer has exactly one conversation keyed by their user id.
type ChatService struct {
	db *gorm.DB
}

type SendMessageRequest struct {
	Content    string     `json:"content" validate:"required,min=1,max=2000"`
	GemstoneID *uuid.UUID `json:"gemstone_id,omitempty"`
}

type ConversationSummary struct {
	UserID        uuid.UUID `json:"user_id"`
	Username      string    `json:"username"`
	LastMessageAt time.Time `json:"last_message_at"`
	Unread        int64     `json:"unread"`
}

func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db}
}

func (s *ChatService) SendUserMessage(userID uuid.UUID, req *SendMessageRequest) (*models.ChatMessage, error) {
	return s.send(userID, models.ChatSenderUser, &userID, req)
}

func (s *ChatService) SendAdminReply(customerID, adminID uuid.UUID, req *SendMessageRequest) (*models.ChatMessage, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("id = ?", customerID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if count == 0 {
		return nil, ErrUserNotFound
	}
	return s.send(customerID, models.ChatSenderAdmin, &adminID, req)
}

func (s *ChatService) send(conversationID uuid.UUID, sender models.ChatSender, senderID *uuid.UUID, req *SendMessageRequest) (*models.ChatMessage, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if req.GemstoneID != nil {
		var gemstone models.Gemstone
		if err := s.db.Select("id").First(&gemstone, "id = ?", *req.GemstoneID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrGemstoneNotFound
			}
			return nil, fmt.Errorf("database error: %w", err)
		}
	}

	message := &models.ChatMessage{
		UserID:     conversationID,
		Sender:     sender,
		SenderID:   senderID,
		Content:    req.Content,
		GemstoneID: req.GemstoneID,
	}
	if err := s.db.Create(message).Error; err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return message, nil
}

// Conversation returns messages oldest first so clients can append.
func (s *ChatService) Conversation(userID uuid.UUID, params utils.PaginationParams) ([]models.ChatMessage, int64, error) {
	query := s.db.Model(&models.ChatMessage{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	var messages []models.ChatMessage
	if err := utils.ApplyPagination(query.Order("created_at ASC"), params).Find(&messages).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, total, nil
}

// MarkRead marks the other side's messages as read. A customer reads store
// replies; an admin reads the customer's messages.
func (s *ChatService) MarkRead(userID uuid.UUID, byAdmin bool) (int64, error) {
	query := s.db.Model(&models.ChatMessage{}).Where("user_id = ? AND read_at IS NULL", userID)
	if byAdmin {
		query = query.Where("sender = ?", models.ChatSenderUser)
	} else {
		query = query.Where("sender <> ?", models.ChatSenderUser)
	}

	result := query.Update("read_at", time.Now())
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *ChatService) UnreadCount(userID uuid.UUID) (int64, error) {
	var count int64
	if err := s.db.Model(&models.ChatMessage{}).
		Where("user_id = ? AND read_at IS NULL AND sender <> ?", userID, models.ChatSenderUser).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// UnreadForAdmins counts customer messages no admin has read yet.
func (s *ChatService) UnreadForAdmins() (int64, error) {
	var count int64
	if err := s.db.Model(&models.ChatMessage{}).
		Where("read_at IS NULL AND sender = ?", models.ChatSenderUser).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

func (s *ChatService) Conversations(params utils.PaginationParams) ([]ConversationSummary, int64, error) {
	var total int64
	if err := s.db.Model(&models.ChatMessage{}).Distinct("user_id").Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	var summaries []ConversationSummary
	query := s.db.Table("chat_messages AS m").
		Select("m.user_id, u.username, MAX(m.created_at) AS last_message_at, " +
			"COUNT(*) FILTER (WHERE m.read_at IS NULL AND m.sender = 'user') AS unread").
		Joins("JOIN users u ON u.id = m.user_id").
		Where("m.deleted_at IS NULL").
		Group("m.user_id, u.username").
		Order("last_message_at DESC")
	if err := utils.ApplyPagination(query, params).Scan(&summaries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch conversations: %w", err)
	}
	return summaries, total, nil
}
