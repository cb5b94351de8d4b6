// internal/handlers/shopping.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/gemstore-backend/internal/i18n"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

type FavoriteHandler struct {
	favoriteService *services.FavoriteService
}

func NewFavoriteHandler(favoriteService *services.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favoriteService: favoriteService}
}

// GET /favorites
func (h *FavoriteHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	favorites, total, err := h.favoriteService.List(userID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(favorites, total, params))
}

// POST /favorites/:gemstone_id
func (h *FavoriteHandler) Add(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gemstoneID, ok := paramUUID(c, "gemstone_id")
	if !ok {
		return
	}

	favorite, err := h.favoriteService.Add(userID, gemstoneID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyFavoriteAdded),
		"favorite": favorite,
	})
}

// DELETE /favorites/:gemstone_id
func (h *FavoriteHandler) Remove(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gemstoneID, ok := paramUUID(c, "gemstone_id")
	if !ok {
		return
	}

	if err := h.favoriteService.Remove(userID, gemstoneID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyFavoriteRemoved)})
}

type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) respondConversation(c *gin.Context, customerID uuid.UUID) {
	params := utils.GetPaginationParams(c)
	messages, total, err := h.chatService.Conversation(customerID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(messages, total, params))
}

// GET /chat/messages
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	h.respondConversation(c, userID)
}

// POST /chat/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	message, err := h.chatService.SendUserMessage(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyChatSent),
		"chat_message": message,
	})
}

// PUT /chat/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	updated, err := h.chatService.MarkRead(userID, false)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyChatMarkedRead),
		"updated": updated,
	})
}

// GET /chat/unread
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := h.chatService.UnreadCount(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"unread": count})
}

// GET /admin/chat/conversations
func (h *ChatHandler) ListConversations(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	conversations, total, err := h.chatService.Conversations(params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(conversations, total, params))
}

// GET /admin/chat/conversations/:user_id
func (h *ChatHandler) GetConversation(c *gin.Context) {
	customerID, ok := paramUUID(c, "user_id")
	if !ok {
		return
	}
	h.respondConversation(c, customerID)
}

// POST /admin/chat/conversations/:user_id/reply
func (h *ChatHandler) Reply(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	customerID, ok := paramUUID(c, "user_id")
	if !ok {
		return
	}

	var req services.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	message, err := h.chatService.SendAdminReply(customerID, adminID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyChatSent),
		"chat_message": message,
	})
}

// PUT /admin/chat/conversations/:user_id/read
func (h *ChatHandler) AdminMarkRead(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	customerID, ok := paramUUID(c, "user_id")
	if !ok {
		return
	}

	updated, err := h.chatService.MarkRead(customerID, true)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyChatMarkedRead),
		"updated": updated,
	})
}

type ActivityHandler struct {
	activityService *services.ActivityService
}

func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

func (h *ActivityHandler) respondFeed(c *gin.Context, userID uuid.UUID) {
	params := utils.GetPaginationParams(c)
	activities, total, err := h.activityService.ListForUser(userID, c.Query("type"), params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(activities, total, params))
}

// GET /activity
func (h *ActivityHandler) MyFeed(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	h.respondFeed(c, userID)
}

// GET /admin/users/:id/activity
func (h *ActivityHandler) UserFeed(c *gin.Context) {
	userID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	h.respondFeed(c, userID)
}
