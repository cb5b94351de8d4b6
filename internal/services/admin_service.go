// internal/services/admin_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

var (
	ErrSelfModification = errors.New("admins cannot change their own role or status")
	ErrInvalidDateRange = errors.New("invalid date range")
)

const (
	defaultAnalyticsWindow = 30 * 24 * time.Hour
	maxAnalyticsWindow     = 366 * 24 * time.Hour
	topGemstonesLimit      = 10
)

type AdminService struct {
	db                  *gorm.DB
	notificationService *NotificationService
	lowStockThreshold   int
	now                 func() time.Time
}

type AdminDashboardStats struct {
	TotalUsers         int64           `json:"total_users"`
	ActiveUsers        int64           `json:"active_users"`
	NewUsersThisMonth  int64           `json:"new_users_this_month"`
	ActiveGemstones    int64           `json:"active_gemstones"`
	LowStockGemstones  int64           `json:"low_stock_gemstones"`
	OpenInventoryAlert int64           `json:"open_inventory_alerts"`
	TotalOrders        int64           `json:"total_orders"`
	PendingOrders      int64           `json:"pending_orders"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	MonthlyRevenue     decimal.Decimal `json:"monthly_revenue"`
	UnreadChatMessages int64           `json:"unread_chat_messages"`
	UserGrowth         float64         `json:"user_growth"`
	RevenueGrowth      float64         `json:"revenue_growth"`
}

type AdminUserFilter struct {
	utils.PaginationParams
	Role          *models.UserRole   `json:"role,omitempty"`
	Status        *models.UserStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time         `json:"created_after,omitempty"`
	CreatedBefore *time.Time         `json:"created_before,omitempty"`
}

type UpdateUserStatusRequest struct {
	Status models.UserStatus `json:"status" validate:"required,oneof=active suspended"`
	Reason string            `json:"reason" validate:"max=500"`
}

type UpdateUserRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,oneof=customer admin"`
}

type UpdateSettingRequest struct {
	Value       interface{} `json:"value" validate:"required"`
	DataType    string      `json:"data_type" validate:"required,oneof=string integer float boolean json"`
	Description string      `json:"description" validate:"max=500"`
}

type AuditLogFilter struct {
	utils.PaginationParams
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	Action       string     `json:"action,omitempty"`
	ResourceType string     `json:"resource_type,omitempty"`
}

type StatusCount struct {
	Status models.OrderStatus `json:"status"`
	Count  int64              `json:"count"`
}

type DailyRevenue struct {
	Day     time.Time       `json:"day"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type TopGemstone struct {
	GemstoneID   uuid.UUID       `json:"gemstone_id"`
	GemstoneName string          `json:"gemstone_name"`
	Quantity     int64           `json:"quantity"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type OrderAnalytics struct {
	From              time.Time       `json:"from"`
	To                time.Time       `json:"to"`
	TotalOrders       int64           `json:"total_orders"`
	ByStatus          []StatusCount   `json:"by_status"`
	Revenue           decimal.Decimal `json:"revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	Daily             []DailyRevenue  `json:"daily"`
	TopGemstones      []TopGemstone   `json:"top_gemstones"`
}

func NewAdminService(db *gorm.DB, notificationService *NotificationService, lowStockThreshold int) *AdminService {
	return &AdminService{
		db:                  db,
		notificationService: notificationService,
		lowStockThreshold:   lowStockThreshold,
		now:                 time.Now,
	}
}

type sumRow struct {
	Total decimal.Decimal
}

func (s *AdminService) sumRevenue(query *gorm.DB) (decimal.Decimal, error) {
	var row sumRow
	err := query.Model(&models.Order{}).
		Where("status <> ?", models.OrderStatusCancelled).
		Select("COALESCE(SUM(total), 0) AS total").
		Scan(&row).Error
	return row.Total, err
}

// Dashboard Statistics
func (s *AdminService) GetDashboardStats() (*AdminDashboardStats, error) {
	stats := &AdminDashboardStats{}
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{s.db.Model(&models.User{}), &stats.TotalUsers},
		{s.db.Model(&models.User{}).Where("status = ?", models.UserStatusActive), &stats.ActiveUsers},
		{s.db.Model(&models.User{}).Where("created_at >= ?", monthStart), &stats.NewUsersThisMonth},
		{s.db.Model(&models.Gemstone{}).Where("status = ?", models.GemstoneStatusActive), &stats.ActiveGemstones},
		{s.db.Model(&models.Gemstone{}).Where("status = ? AND stock_quantity <= ?", models.GemstoneStatusActive, s.lowStockThreshold), &stats.LowStockGemstones},
		{s.db.Model(&models.InventoryAlert{}).Where("resolved = ?", false), &stats.OpenInventoryAlert},
		{s.db.Model(&models.Order{}), &stats.TotalOrders},
		{s.db.Model(&models.Order{}).Where("status = ?", models.OrderStatusPending), &stats.PendingOrders},
		{s.db.Model(&models.ChatMessage{}).Where("read_at IS NULL AND sender = ?", models.ChatSenderUser), &stats.UnreadChatMessages},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
		}
	}

	var err error
	if stats.TotalRevenue, err = s.sumRevenue(s.db); err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if stats.MonthlyRevenue, err = s.sumRevenue(s.db.Where("created_at >= ?", monthStart)); err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	// Growth calculations
	var lastMonthUsers int64
	if err := s.db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", lastMonthStart, monthStart).
		Count(&lastMonthUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}
	lastMonthRevenue, err := s.sumRevenue(s.db.Where("created_at >= ? AND created_at < ?", lastMonthStart, monthStart))
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	stats.UserGrowth = growthPercent(decimal.NewFromInt(stats.NewUsersThisMonth), decimal.NewFromInt(lastMonthUsers))
	stats.RevenueGrowth = growthPercent(stats.MonthlyRevenue, lastMonthRevenue)

	return stats, nil
}

// growthPercent is zero when there is no previous period to compare with.
func growthPercent(current, previous decimal.Decimal) float64 {
	if !previous.IsPositive() {
		return 0
	}
	growth, _ := current.Sub(previous).Div(previous).Mul(hundred).Round(2).Float64()
	return growth
}

// User Management
func (s *AdminService) GetUsers(filter AdminUserFilter) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})

	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		searchTerm := "%" + filter.Search + "%"
		query = query.Where("username ILIKE ? OR email ILIKE ?", searchTerm, searchTerm)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "username", "email", "role", "status", "last_login_at"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

func (s *AdminService) findUser(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (s *AdminService) UpdateUserStatus(userID, adminID uuid.UUID, req *UpdateUserStatusRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if userID == adminID {
		return nil, ErrSelfModification
	}

	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}

	oldStatus := user.Status
	if oldStatus == req.Status {
		return user, nil
	}

	if err := s.db.Model(user).Update("status", req.Status).Error; err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	user.Status = req.Status

	go s.createAuditLog(adminID, "UPDATE_USER_STATUS", "user", &userID,
		map[string]interface{}{"status": oldStatus},
		map[string]interface{}{"status": req.Status, "reason": req.Reason})

	go func(u models.User) {
		if err := s.notificationService.SendUserStatusChangeNotification(&u, oldStatus, req.Reason); err != nil {
			logrus.WithError(err).WithField("user_id", u.ID).Warn("Failed to send status change notification")
		}
	}(*user)

	return user, nil
}

func (s *AdminService) UpdateUserRole(userID, adminID uuid.UUID, req *UpdateUserRoleRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if userID == adminID {
		return nil, ErrSelfModification
	}

	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}

	oldRole := user.Role
	if oldRole == req.Role {
		return user, nil
	}

	if err := s.db.Model(user).Update("role", req.Role).Error; err != nil {
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}
	user.Role = req.Role

	go s.createAuditLog(adminID, "UPDATE_USER_ROLE", "user", &userID,
		map[string]interface{}{"role": oldRole},
		map[string]interface{}{"role": req.Role})

	return user, nil
}

// Settings
func (s *AdminService) GetSettings() (map[string]models.AdminSettings, error) {
	var settings []models.AdminSettings
	if err := s.db.Order("category, key").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}

	settingsMap := make(map[string]models.AdminSettings, len(settings))
	for _, setting := range settings {
		settingsMap[setting.Category+"."+setting.Key] = setting
	}

	return settingsMap, nil
}

func (s *AdminService) UpdateSetting(category, key string, req *UpdateSettingRequest, adminID uuid.UUID) (*models.AdminSettings, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var setting models.AdminSettings
	err := s.db.Where("category = ? AND key = ?", category, key).First(&setting).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		setting = models.AdminSettings{
			Category:    category,
			Key:         key,
			Value:       models.JSONB{"value": req.Value},
			DataType:    req.DataType,
			Description: req.Description,
			UpdatedBy:   &adminID,
		}
		if err := s.db.Create(&setting).Error; err != nil {
			return nil, fmt.Errorf("failed to create setting: %w", err)
		}
		go s.createAuditLog(adminID, "CREATE_SETTING", "admin_setting", &setting.ID,
			nil, map[string]interface{}{"value": setting.Value})

	case err != nil:
		return nil, fmt.Errorf("database error: %w", err)

	default:
		oldValue := setting.Value
		setting.Value = models.JSONB{"value": req.Value}
		setting.DataType = req.DataType
		if req.Description != "" {
			setting.Description = req.Description
		}
		setting.UpdatedBy = &adminID

		if err := s.db.Save(&setting).Error; err != nil {
			return nil, fmt.Errorf("failed to update setting: %w", err)
		}

		go s.createAuditLog(adminID, "UPDATE_SETTING", "admin_setting", &setting.ID,
			map[string]interface{}{"value": oldValue},
			map[string]interface{}{"value": setting.Value})
	}

	return &setting, nil
}

// AnalyticsWindow normalizes a requested window: zero values default to the
// last 30 days, and windows longer than a year are rejected.
func AnalyticsWindow(from, to, now time.Time) (time.Time, time.Time, error) {
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.Add(-defaultAnalyticsWindow)
	}
	if !from.Before(to) || to.Sub(from) > maxAnalyticsWindow {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return from, to, nil
}

func (s *AdminService) GetOrderAnalytics(from, to time.Time) (*OrderAnalytics, error) {
	from, to, err := AnalyticsWindow(from, to, s.now())
	if err != nil {
		return nil, err
	}

	window := func() *gorm.DB {
		return s.db.Model(&models.Order{}).Where("orders.created_at >= ? AND orders.created_at < ?", from, to)
	}

	result := &OrderAnalytics{
		From:         from,
		To:           to,
		ByStatus:     []StatusCount{},
		Daily:        []DailyRevenue{},
		TopGemstones: []TopGemstone{},
	}

	if err := window().
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&result.ByStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}

	var billable int64
	for _, sc := range result.ByStatus {
		result.TotalOrders += sc.Count
		if sc.Status != models.OrderStatusCancelled {
			billable += sc.Count
		}
	}

	if result.Revenue, err = s.sumRevenue(window()); err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if billable > 0 {
		result.AverageOrderValue = result.Revenue.Div(decimal.NewFromInt(billable)).Round(2)
	}

	if err := window().
		Where("status <> ?", models.OrderStatusCancelled).
		Select("DATE(created_at) AS day, COUNT(*) AS orders, COALESCE(SUM(total), 0) AS revenue").
		Group("DATE(created_at)").
		Order("day").
		Scan(&result.Daily).Error; err != nil {
		return nil, fmt.Errorf("failed to build daily revenue: %w", err)
	}

	if err := s.db.Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.created_at >= ? AND orders.created_at < ?", from, to).
		Where("orders.status <> ? AND orders.deleted_at IS NULL", models.OrderStatusCancelled).
		Select("order_items.gemstone_id, order_items.gemstone_name, SUM(order_items.quantity) AS quantity, SUM(order_items.line_total) AS revenue").
		Group("order_items.gemstone_id, order_items.gemstone_name").
		Order("quantity DESC").
		Limit(topGemstonesLimit).
		Scan(&result.TopGemstones).Error; err != nil {
		return nil, fmt.Errorf("failed to rank gemstones: %w", err)
	}

	return result, nil
}

// Audit log
func (s *AdminService) GetAuditLogs(filter AuditLogFilter) ([]models.AuditLog, int64, error) {
	query := s.db.Model(&models.AuditLog{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query = utils.ApplySort(query, filter.PaginationParams, []string{"created_at", "action", "resource_type"})
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return logs, total, nil
}

func (s *AdminService) createAuditLog(userID uuid.UUID, action, resourceType string, resourceID *uuid.UUID, oldValues, newValues map[string]interface{}) {
	auditLog := &models.AuditLog{
		UserID:       &userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OldValues:    models.JSONB(oldValues),
		NewValues:    models.JSONB(newValues),
	}

	if err := s.db.Create(auditLog).Error; err != nil {
		logrus.WithError(err).WithField("action", action).Warn("Failed to write audit log")
	}
}
