// internal/services/inventory_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/gemstore-backend/internal/metrics"
	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

type PriceAdjustmentMode string

const (
	PriceAdjustPercent PriceAdjustmentMode = "percent"
	PriceAdjustAmount  PriceAdjustmentMode = "amount"
)

type InventoryService struct {
	db                  *gorm.DB
	notificationService *NotificationService
	lowStockThreshold   int
}

type UpdatePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

type BulkPriceAdjustRequest struct {
	Mode        PriceAdjustmentMode `json:"mode" validate:"required,oneof=percent amount"`
	Value       decimal.Decimal     `json:"value"`
	Type        string              `json:"type,omitempty"`
	GemstoneIDs []uuid.UUID         `json:"gemstone_ids,omitempty"`
}

type BulkPriceAdjustResult struct {
	Updated int                 `json:"updated"`
	Changes []PriceChange       `json:"changes"`
	Mode    PriceAdjustmentMode `json:"mode"`
	Value   decimal.Decimal     `json:"value"`
}

type PriceChange struct {
	GemstoneID uuid.UUID       `json:"gemstone_id"`
	OldPrice   decimal.Decimal `json:"old_price"`
	NewPrice   decimal.Decimal `json:"new_price"`
}

type AdjustStockRequest struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason,omitempty" validate:"omitempty,max=255"`
}

type SetStockRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

type InventoryValue struct {
	TotalValue    decimal.Decimal `json:"total_value"`
	TotalUnits    int64           `json:"total_units"`
	GemstoneCount int64           `json:"gemstone_count"`
	OutOfStock    int64           `json:"out_of_stock"`
	ValueByType   []TypeValue     `json:"value_by_type"`
}

type TypeValue struct {
	Type  string          `json:"type"`
	Units int64           `json:"units"`
	Value decimal.Decimal `json:"value"`
}

func NewInventoryService(db *gorm.DB, notificationService *NotificationService, lowStockThreshold int) *InventoryService {
	if lowStockThreshold < 0 {
		lowStockThreshold = 0
	}
	return &InventoryService{
		db:                  db,
		notificationService: notificationService,
		lowStockThreshold:   lowStockThreshold,
	}
}

func (s *InventoryService) Threshold() int {
	return s.lowStockThreshold
}

func (s *InventoryService) UpdatePrice(id uuid.UUID, price decimal.Decimal) (*models.Gemstone, error) {
	if price.LessThan(minPrice) {
		return nil, ErrInvalidPrice
	}

	result := s.db.Model(&models.Gemstone{}).Where("id = ?", id).Update("price", price.Round(2))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update price: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrGemstoneNotFound
	}

	return s.load(s.db, id)
}

// AdjustedPrice applies a percent or absolute change and floors the result at 0.01.
func AdjustedPrice(price decimal.Decimal, mode PriceAdjustmentMode, value decimal.Decimal) decimal.Decimal {
	var next decimal.Decimal
	switch mode {
	case PriceAdjustPercent:
		next = price.Mul(hundred.Add(value)).Div(hundred)
	default:
		next = price.Add(value)
	}
	next = next.Round(2)
	if next.LessThan(minPrice) {
		return minPrice
	}
	return next
}

// BulkAdjustPrices reprices every matching stone in one transaction. With no
// type or id filter every gemstone in the catalog is adjusted.
func (s *InventoryService) BulkAdjustPrices(req *BulkPriceAdjustRequest) (*BulkPriceAdjustResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.Value.IsZero() {
		return nil, fmt.Errorf("%w: adjustment value cannot be zero", ErrInvalidInput)
	}
	if req.Mode == PriceAdjustPercent && req.Value.LessThanOrEqual(hundred.Neg()) {
		return nil, fmt.Errorf("%w: percentage decrease must be greater than -100", ErrInvalidInput)
	}

	result := &BulkPriceAdjustResult{Mode: req.Mode, Value: req.Value}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Model(&models.Gemstone{})
		if req.Type != "" {
			query = query.Where("type = ?", req.Type)
		}
		if len(req.GemstoneIDs) > 0 {
			query = query.Where("id IN ?", req.GemstoneIDs)
		}

		var gemstones []models.Gemstone
		if err := query.Find(&gemstones).Error; err != nil {
			return fmt.Errorf("failed to load gemstones: %w", err)
		}

		for _, gemstone := range gemstones {
			newPrice := AdjustedPrice(gemstone.Price, req.Mode, req.Value)
			if newPrice.Equal(gemstone.Price) {
				continue
			}
			if err := tx.Model(&models.Gemstone{}).Where("id = ?", gemstone.ID).
				Update("price", newPrice).Error; err != nil {
				return fmt.Errorf("failed to update price for %s: %w", gemstone.SerialNumber, err)
			}
			result.Changes = append(result.Changes, PriceChange{
				GemstoneID: gemstone.ID,
				OldPrice:   gemstone.Price,
				NewPrice:   newPrice,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Updated = len(result.Changes)
	return result, nil
}

// AdjustStock applies a signed delta. The update is conditional so stock never
// goes below zero even under concurrent adjustments.
func (s *InventoryService) AdjustStock(id uuid.UUID, req *AdjustStockRequest) (*models.Gemstone, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	result := s.db.Model(&models.Gemstone{}).
		Where("id = ? AND stock_quantity + ? >= 0", id, req.Delta).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", req.Delta))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := s.load(s.db, id); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientStock
	}

	gemstone, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"gemstone_id": id,
		"delta":       req.Delta,
		"stock":       gemstone.StockQuantity,
		"reason":      req.Reason,
	}).Info("Stock adjusted")

	s.checkOne(gemstone)
	return gemstone, nil
}

func (s *InventoryService) SetStock(id uuid.UUID, quantity int) (*models.Gemstone, error) {
	if quantity < 0 {
		return nil, ErrInsufficientStock
	}

	result := s.db.Model(&models.Gemstone{}).Where("id = ?", id).UpdateColumn("stock_quantity", quantity)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to set stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrGemstoneNotFound
	}

	gemstone, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	s.checkOne(gemstone)
	return gemstone, nil
}

// LowStock lists active stones at or below threshold. A negative threshold
// uses the configured default.
func (s *InventoryService) LowStock(threshold int, params utils.PaginationParams) ([]models.Gemstone, int64, error) {
	if threshold < 0 {
		threshold = s.lowStockThreshold
	}

	query := s.db.Model(&models.Gemstone{}).
		Where("status = ? AND stock_quantity <= ?", models.GemstoneStatusActive, threshold)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count low stock gemstones: %w", err)
	}

	var gemstones []models.Gemstone
	if err := utils.ApplyPagination(query.Order("stock_quantity ASC, name ASC"), params).
		Find(&gemstones).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch low stock gemstones: %w", err)
	}
	return gemstones, total, nil
}

// CheckInventoryAlerts opens an alert for every low stone that has none open.
func (s *InventoryService) CheckInventoryAlerts() ([]models.InventoryAlert, error) {
	var candidates []models.Gemstone
	if err := s.db.Where("status = ? AND stock_quantity <= ?", models.GemstoneStatusActive, s.lowStockThreshold).
		Where("NOT EXISTS (SELECT 1 FROM inventory_alerts a WHERE a.gemstone_id = gemstones.id AND a.resolved = false AND a.deleted_at IS NULL)").
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to scan inventory: %w", err)
	}

	if len(candidates) == 0 {
		return []models.InventoryAlert{}, nil
	}

	alerts := make([]models.InventoryAlert, 0, len(candidates))
	for i := range candidates {
		alert, err := s.openAlert(&candidates[i])
		if err != nil {
			return nil, fmt.Errorf("failed to create inventory alerts: %w", err)
		}
		if alert != nil {
			alerts = append(alerts, *alert)
		}
	}
	if len(alerts) == 0 {
		return alerts, nil
	}

	metrics.RecordLowStockAlerts(len(alerts))
	logrus.WithField("count", len(alerts)).Warn("Low stock alerts raised")
	s.notify(alerts)

	return alerts, nil
}

func (s *InventoryService) ListAlerts(includeResolved bool, params utils.PaginationParams) ([]models.InventoryAlert, int64, error) {
	query := s.db.Model(&models.InventoryAlert{})
	if !includeResolved {
		query = query.Where("resolved = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	var alerts []models.InventoryAlert
	if err := utils.ApplyPagination(query.Preload("Gemstone").Order("created_at DESC"), params).
		Find(&alerts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch alerts: %w", err)
	}
	return alerts, total, nil
}

func (s *InventoryService) ResolveAlert(alertID, adminID uuid.UUID) (*models.InventoryAlert, error) {
	var alert models.InventoryAlert
	if err := s.db.First(&alert, "id = ?", alertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !alert.Resolved {
		if err := s.db.Model(&alert).Updates(map[string]interface{}{
			"resolved":       true,
			"resolved_by_id": adminID,
		}).Error; err != nil {
			return nil, fmt.Errorf("failed to resolve alert: %w", err)
		}
	}

	if err := s.db.Preload("Gemstone").First(&alert, "id = ?", alertID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload alert: %w", err)
	}
	return &alert, nil
}

// InventoryValue sums price times stock over non-archived stones.
func (s *InventoryService) InventoryValue() (*InventoryValue, error) {
	value := &InventoryValue{}
	base := s.db.Model(&models.Gemstone{}).Where("status <> ?", models.GemstoneStatusArchived)

	var totals struct {
		TotalValue    decimal.Decimal
		TotalUnits    int64
		GemstoneCount int64
		OutOfStock    int64
	}
	if err := base.Session(&gorm.Session{}).Select(
		"COALESCE(SUM(price * stock_quantity), 0) AS total_value, " +
			"COALESCE(SUM(stock_quantity), 0) AS total_units, " +
			"COUNT(*) AS gemstone_count, " +
			"COUNT(*) FILTER (WHERE stock_quantity = 0) AS out_of_stock").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to compute inventory value: %w", err)
	}

	value.TotalValue = totals.TotalValue.Round(2)
	value.TotalUnits = totals.TotalUnits
	value.GemstoneCount = totals.GemstoneCount
	value.OutOfStock = totals.OutOfStock

	if err := base.Session(&gorm.Session{}).
		Select("type, COALESCE(SUM(stock_quantity), 0) AS units, COALESCE(SUM(price * stock_quantity), 0) AS value").
		Group("type").
		Order("value DESC").
		Scan(&value.ValueByType).Error; err != nil {
		return nil, fmt.Errorf("failed to compute value by type: %w", err)
	}

	return value, nil
}

func (s *InventoryService) load(db *gorm.DB, id uuid.UUID) (*models.Gemstone, error) {
	var gemstone models.Gemstone
	if err := db.First(&gemstone, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGemstoneNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &gemstone, nil
}

// checkOne raises an alert for a single stone after a stock change.
func (s *InventoryService) checkOne(gemstone *models.Gemstone) {
	if gemstone.StockQuantity > s.lowStockThreshold || !gemstone.IsVisible() {
		return
	}

	alert, err := s.openAlert(gemstone)
	if err != nil {
		logrus.WithError(err).WithField("gemstone_id", gemstone.ID).Warn("Failed to create inventory alert")
		return
	}
	if alert == nil {
		return
	}

	metrics.RecordLowStockAlerts(1)
	s.notify([]models.InventoryAlert{*alert})
}

// openAlert inserts an open alert for the gemstone. It returns nil when one is
// already open; the partial unique index on open alerts settles races.
func (s *InventoryService) openAlert(gemstone *models.Gemstone) (*models.InventoryAlert, error) {
	alert := models.InventoryAlert{
		GemstoneID:   gemstone.ID,
		StockAtAlert: gemstone.StockQuantity,
		Threshold:    s.lowStockThreshold,
	}
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Omit("Gemstone").Create(&alert)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	alert.Gemstone = *gemstone
	return &alert, nil
}

func (s *InventoryService) notify(alerts []models.InventoryAlert) {
	if s.notificationService == nil {
		return
	}
	go func() {
		if err := s.notificationService.SendLowStockAlert(alerts); err != nil {
			logrus.WithError(err).Warn("Failed to send low stock notification")
		}
	}()
}
