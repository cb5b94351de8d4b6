// internal/handlers/admin.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/gemstore-backend/internal/i18n"
	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
	chatService  *services.ChatService
}

func NewAdminHandler(adminService *services.AdminService, chatService *services.ChatService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		chatService:  chatService,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats()
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"stats": stats})
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	after, before, err := createdRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	filter := services.AdminUserFilter{
		PaginationParams: utils.GetPaginationParams(c),
		CreatedAfter:     after,
		CreatedBefore:    before,
	}

	if role := c.Query("role"); role != "" {
		userRole := models.UserRole(role)
		filter.Role = &userRole
	}
	if status := c.Query("status"); status != "" {
		userStatus := models.UserStatus(status)
		filter.Status = &userStatus
	}

	users, total, err := h.adminService.GetUsers(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(users, total, filter.PaginationParams))
}

// PUT /admin/users/:id/status
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	userID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateUserStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.adminService.UpdateUserStatus(userID, adminID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyUserStatusUpdated),
		"user":    user,
	})
}

// PUT /admin/users/:id/role
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	userID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateUserRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.adminService.UpdateUserRole(userID, adminID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyUserStatusUpdated),
		"user":    user,
	})
}

// GET /admin/analytics/orders?from=YYYY-MM-DD&to=YYYY-MM-DD
// The to date is inclusive.
func (h *AdminHandler) GetOrderAnalytics(c *gin.Context) {
	fromParam, err := queryTime(c, "from")
	if err != nil {
		respondError(c, err)
		return
	}
	toParam, err := queryTime(c, "to")
	if err != nil {
		respondError(c, err)
		return
	}

	var from, to time.Time
	if fromParam != nil {
		from = *fromParam
	}
	if toParam != nil {
		to = *toParam
		if len(c.Query("to")) == len("2006-01-02") {
			to = to.AddDate(0, 0, 1)
		}
	}

	analytics, err := h.adminService.GetOrderAnalytics(from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"analytics": analytics})
}

// GET /admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.adminService.GetSettings()
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"settings": settings})
}

// PUT /admin/settings/:category/:key
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.UpdateSettingRequest
	if !bindJSON(c, &req) {
		return
	}

	setting, err := h.adminService.UpdateSetting(c.Param("category"), c.Param("key"), &req, adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeySuccess),
		"setting": setting,
	})
}

// GET /admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	filter := services.AuditLogFilter{
		PaginationParams: utils.GetPaginationParams(c),
		Action:           c.Query("action"),
		ResourceType:     c.Query("resource_type"),
	}
	if raw := c.Query("user_id"); raw != "" {
		if userID, err := uuid.Parse(raw); err == nil {
			filter.UserID = &userID
		}
	}

	logs, total, err := h.adminService.GetAuditLogs(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(logs, total, filter.PaginationParams))
}

// GET /admin/chat/unread
func (h *AdminHandler) GetUnreadChat(c *gin.Context) {
	count, err := h.chatService.UnreadForAdmins()
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"unread": count})
}
