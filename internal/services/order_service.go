// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/gemstore-backend/internal/metrics"
	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrOrderNotCancellable     = errors.New("order can no longer be cancelled")
	ErrOrderAlreadyCancelled   = errors.New("order is already cancelled")
	ErrAccountInactive         = errors.New("account is not active")
)

type OrderService struct {
	db                  *gorm.DB
	pricing             PricingPolicy
	currencyService     *CurrencyService
	paymentService      *PaymentService
	notificationService *NotificationService
	inventoryService    *InventoryService
	now                 func() time.Time
}

type CheckoutRequest struct {
	Currency        string                 `json:"currency,omitempty" validate:"omitempty,currency_code"`
	ShippingAddress map[string]interface{} `json:"shipping_address" validate:"required"`
	Notes           string                 `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type CheckoutResult struct {
	Order   *models.Order  `json:"order"`
	Payment *PaymentIntent `json:"payment,omitempty"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required,order_status"`
	Note   string             `json:"note,omitempty" validate:"omitempty,max=500"`
}

type OrderFilter struct {
	utils.PaginationParams
	Status        *models.OrderStatus `json:"status,omitempty"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	CreatedAfter  *time.Time          `json:"created_after,omitempty"`
	CreatedBefore *time.Time          `json:"created_before,omitempty"`
}

var orderSortFields = []string{"created_at", "updated_at", "total", "status", "order_number"}

func NewOrderService(
	db *gorm.DB,
	pricing PricingPolicy,
	currencyService *CurrencyService,
	paymentService *PaymentService,
	notificationService *NotificationService,
	inventoryService *InventoryService,
) *OrderService {
	return &OrderService{
		db:                  db,
		pricing:             pricing,
		currencyService:     currencyService,
		paymentService:      paymentService,
		notificationService: notificationService,
		inventoryService:    inventoryService,
		now:                 time.Now,
	}
}

// Checkout turns the user's cart into a pending order. Stock is verified and
// decremented under row locks in the same transaction that creates the order.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, req *CheckoutRequest) (*CheckoutResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if user.Status != models.UserStatusActive {
		return nil, ErrAccountInactive
	}

	currency := req.Currency
	if currency == "" {
		currency = user.Preferences.Currency
	}
	code, err := s.currencyService.Normalize(currency)
	if err != nil {
		return nil, err
	}
	// Resolve the rate before opening the transaction; it may call out to the API.
	rate, err := s.currencyService.GetRate(ctx, s.currencyService.BaseCurrency(), code)
	if err != nil {
		return nil, err
	}

	var order models.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart []models.CartItem
		if err := tx.Where("user_id = ?", userID).Order("created_at ASC").Find(&cart).Error; err != nil {
			return fmt.Errorf("failed to load cart: %w", err)
		}
		if len(cart) == 0 {
			return ErrCartEmpty
		}

		ids := make([]uuid.UUID, 0, len(cart))
		for _, item := range cart {
			ids = append(ids, item.GemstoneID)
		}

		var gemstones []models.Gemstone
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).
			Find(&gemstones).Error; err != nil {
			return fmt.Errorf("failed to lock gemstones: %w", err)
		}
		byID := make(map[uuid.UUID]models.Gemstone, len(gemstones))
		for _, g := range gemstones {
			byID[g.ID] = g
		}

		items, subtotal, err := buildOrderItems(cart, byID)
		if err != nil {
			return err
		}

		totals := s.pricing.Totals(subtotal)
		number, err := utils.GenerateOrderNumber(s.now())
		if err != nil {
			return fmt.Errorf("failed to generate order number: %w", err)
		}

		order = models.Order{
			UserID:          userID,
			OrderNumber:     number,
			Status:          models.OrderStatusPending,
			Subtotal:        totals.Subtotal,
			Tax:             totals.Tax,
			Shipping:        totals.Shipping,
			Total:           totals.Total,
			Currency:        code,
			ExchangeRate:    rate,
			DisplayTotal:    RoundForCurrency(totals.Total.Mul(rate), code),
			ShippingAddress: models.JSONB(req.ShippingAddress),
			PaymentStatus:   models.PaymentStatusUnpaid,
			Notes:           req.Notes,
			Items:           items,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, item := range items {
			if err := tx.Model(&models.Gemstone{}).Where("id = ?", item.GemstoneID).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity)).Error; err != nil {
				return fmt.Errorf("failed to update stock: %w", err)
			}
		}

		if err := recordStatusChange(tx, &order, "", models.OrderStatusPending, &userID, "order placed"); err != nil {
			return err
		}
		if err := recordActivity(tx, userID, models.ActivityOrderPlaced,
			fmt.Sprintf("Placed order %s", order.OrderNumber),
			models.JSONB{"order_id": order.ID.String(), "total": order.DisplayTotal.String(), "currency": code}); err != nil {
			return err
		}

		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{Order: &order}
	if s.paymentService.Enabled() {
		intent, err := s.attachPayment(&order)
		if err != nil {
			// The order stands; the customer can start payment again from the order page.
			logrus.WithError(err).WithField("order", order.OrderNumber).Error("Failed to create payment intent")
		} else {
			result.Payment = intent
		}
	}

	metrics.RecordOrderPlaced(code)
	logrus.WithFields(logrus.Fields{
		"order":    order.OrderNumber,
		"user_id":  userID,
		"total":    order.Total.String(),
		"currency": code,
		"items":    len(order.Items),
	}).Info("Order placed")

	s.afterCheckout(&user, &order)
	return result, nil
}

// buildOrderItems snapshots names and prices and checks availability.
func buildOrderItems(cart []models.CartItem, gemstones map[uuid.UUID]models.Gemstone) ([]models.OrderItem, decimal.Decimal, error) {
	items := make([]models.OrderItem, 0, len(cart))
	subtotal := decimal.Zero

	for _, line := range cart {
		gemstone, ok := gemstones[line.GemstoneID]
		if !ok || !gemstone.IsVisible() {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrGemstoneUnavailable, line.GemstoneID)
		}
		if gemstone.StockQuantity < line.Quantity {
			return nil, decimal.Zero, fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, gemstone.Name, gemstone.StockQuantity)
		}

		lineTotal := LineTotal(gemstone.Price, line.Quantity)
		items = append(items, models.OrderItem{
			GemstoneID:   gemstone.ID,
			GemstoneName: gemstone.Name,
			Quantity:     line.Quantity,
			UnitPrice:    gemstone.Price,
			LineTotal:    lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return items, subtotal, nil
}

func (s *OrderService) afterCheckout(user *models.User, order *models.Order) {
	go func() {
		if s.notificationService != nil {
			if err := s.notificationService.SendOrderPlaced(user, order); err != nil {
				logrus.WithError(err).WithField("order", order.OrderNumber).Warn("Failed to send order confirmation")
			}
		}
		if s.inventoryService != nil {
			if _, err := s.inventoryService.CheckInventoryAlerts(); err != nil {
				logrus.WithError(err).Warn("Inventory check after checkout failed")
			}
		}
	}()
}

// StartPayment returns the payment intent for a pending, unpaid order,
// creating one when checkout could not.
func (s *OrderService) StartPayment(orderID, userID uuid.UUID, isAdmin bool) (*PaymentIntent, error) {
	if !s.paymentService.Enabled() {
		return nil, ErrPaymentsDisabled
	}

	order, err := s.GetOrder(orderID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusPending || order.PaymentStatus != models.PaymentStatusUnpaid {
		return nil, ErrPaymentNotNeeded
	}
	if order.PaymentIntentID != "" {
		return s.paymentService.GetOrderPayment(order)
	}
	return s.attachPayment(order)
}

// attachPayment creates an intent and stores it on the order. When another
// request stored one first, that intent wins.
func (s *OrderService) attachPayment(order *models.Order) (*PaymentIntent, error) {
	intent, err := s.paymentService.CreateOrderPayment(order)
	if err != nil {
		return nil, err
	}

	result := s.db.Model(&models.Order{}).
		Where("id = ? AND (payment_intent_id IS NULL OR payment_intent_id = '')", order.ID).
		Update("payment_intent_id", intent.ID)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to store payment intent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var stored models.Order
		if err := s.db.Select("id", "payment_intent_id").First(&stored, "id = ?", order.ID).Error; err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		order.PaymentIntentID = stored.PaymentIntentID
		return s.paymentService.GetOrderPayment(order)
	}

	order.PaymentIntentID = intent.ID
	return intent, nil
}

// ConfirmPayment records the outcome of the order's payment intent. The order
// row is locked and re-checked so a concurrent cancel or confirm cannot be
// overwritten.
func (s *OrderService) ConfirmPayment(orderID, userID uuid.UUID, isAdmin bool, req *ConfirmPaymentRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	order, err := s.GetOrder(orderID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return order, nil
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, ErrOrderAlreadyCancelled
	}

	status, err := s.paymentService.ConfirmOrderPayment(order, req.PaymentIntentID)
	if err != nil {
		return nil, err
	}

	var current models.Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "id = ?", order.ID).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if current.PaymentStatus == models.PaymentStatusPaid {
			return nil
		}
		if current.Status == models.OrderStatusCancelled {
			return ErrOrderAlreadyCancelled
		}
		if current.PaymentIntentID != req.PaymentIntentID {
			return ErrPaymentMismatch
		}

		updates := map[string]interface{}{"payment_status": status}
		if status == models.PaymentStatusPaid && current.Status == models.OrderStatusPending {
			updates["status"] = models.OrderStatusConfirmed
			if err := recordStatusChange(tx, &current, current.Status, models.OrderStatusConfirmed, &userID, "payment received"); err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", current.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrOrderAlreadyCancelled) && status == models.PaymentStatusPaid {
		// Cancelled while the customer was paying; hand the money back.
		current.PaymentStatus = models.PaymentStatusPaid
		s.refundPaid(&current)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	return s.GetOrder(orderID, userID, isAdmin)
}

// refundPaid refunds a paid order and records it. It reports whether the
// refund went through.
func (s *OrderService) refundPaid(order *models.Order) bool {
	if order.PaymentStatus != models.PaymentStatusPaid || !s.paymentService.Enabled() {
		return false
	}
	if err := s.paymentService.RefundOrder(order); err != nil {
		logrus.WithError(err).WithField("order", order.OrderNumber).Error("Refund failed for cancelled order")
		return false
	}
	if err := s.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("payment_status", models.PaymentStatusRefunded).Error; err != nil {
		logrus.WithError(err).WithField("order", order.OrderNumber).Error("Failed to record refund")
		return false
	}
	order.PaymentStatus = models.PaymentStatusRefunded
	return true
}

// GetOrder returns the order to its owner or an admin. Other users get not found.
func (s *OrderService) GetOrder(orderID, userID uuid.UUID, isAdmin bool) (*models.Order, error) {
	var order models.Order
	query := s.db.Preload("Items").Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
	if isAdmin {
		query = query.Preload("User")
	}

	if err := query.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !isAdmin && order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

func (s *OrderService) ListUserOrders(userID uuid.UUID, filter OrderFilter) ([]models.Order, int64, error) {
	filter.UserID = &userID
	return s.ListOrders(filter)
}

func (s *OrderService) ListOrders(filter OrderFilter) ([]models.Order, int64, error) {
	query := s.db.Model(&models.Order{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if filter.Search != "" {
		query = query.Where("order_number ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query = utils.ApplySort(query, filter.PaginationParams, orderSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var orders []models.Order
	if err := query.Preload("Items").Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, total, nil
}

// CheckCancellable applies the cancellation rules: customers may cancel only
// pending orders; admins may cancel anything the transition table allows.
func CheckCancellable(status models.OrderStatus, byAdmin bool) error {
	if status == models.OrderStatusCancelled {
		return ErrOrderAlreadyCancelled
	}
	if !byAdmin && status != models.OrderStatusPending {
		return ErrOrderNotCancellable
	}
	if !status.CanTransitionTo(models.OrderStatusCancelled) {
		return ErrOrderNotCancellable
	}
	return nil
}

// CancelOrder cancels, restores stock and refunds paid orders.
func (s *OrderService) CancelOrder(orderID, actorID uuid.UUID, byAdmin bool, reason string) (*models.Order, error) {
	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}
		if !byAdmin && order.UserID != actorID {
			return ErrOrderNotFound
		}
		if err := CheckCancellable(order.Status, byAdmin); err != nil {
			return err
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}
		for _, item := range items {
			if err := tx.Model(&models.Gemstone{}).Unscoped().Where("id = ?", item.GemstoneID).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", item.Quantity)).Error; err != nil {
				return fmt.Errorf("failed to restore stock: %w", err)
			}
		}
		order.Items = items

		now := s.now()
		previous := order.Status
		if reason == "" {
			reason = "cancelled by customer"
			if byAdmin {
				reason = "cancelled by store"
			}
		}
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":        models.OrderStatusCancelled,
			"cancelled_at":  now,
			"cancel_reason": reason,
			"cancelled_by":  actorID,
		}).Error; err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
		order.Status = models.OrderStatusCancelled
		order.CancelledAt = &now
		order.CancelReason = reason
		order.CancelledBy = &actorID

		if err := recordStatusChange(tx, &order, previous, models.OrderStatusCancelled, &actorID, reason); err != nil {
			return err
		}
		return recordActivity(tx, order.UserID, models.ActivityOrderCancelled,
			fmt.Sprintf("Order %s was cancelled", order.OrderNumber),
			models.JSONB{"order_id": order.ID.String(), "reason": reason, "by_admin": byAdmin})
	})
	if err != nil {
		return nil, err
	}

	refunded := s.refundPaid(&order)

	metrics.RecordOrderCancelled(byAdmin)
	logrus.WithFields(logrus.Fields{
		"order":    order.OrderNumber,
		"actor_id": actorID,
		"by_admin": byAdmin,
		"refunded": refunded,
	}).Info("Order cancelled")

	s.notifyCustomer(&order, func(user *models.User) error {
		return s.notificationService.SendOrderCancelled(user, &order, refunded)
	})
	return &order, nil
}

// UpdateStatus moves an order along the transition table. Cancellation is
// routed through CancelOrder so stock and payment are unwound.
func (s *OrderService) UpdateStatus(orderID, adminID uuid.UUID, req *UpdateOrderStatusRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.Status == models.OrderStatusCancelled {
		return s.CancelOrder(orderID, adminID, true, req.Note)
	}

	var order models.Order
	var previous models.OrderStatus
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		previous = order.Status
		if !previous.CanTransitionTo(req.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, previous, req.Status)
		}

		if err := tx.Model(&order).Update("status", req.Status).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		order.Status = req.Status

		if err := recordStatusChange(tx, &order, previous, req.Status, &adminID, req.Note); err != nil {
			return err
		}
		return recordActivity(tx, order.UserID, models.ActivityOrderStatusChanged,
			fmt.Sprintf("Order %s is now %s", order.OrderNumber, req.Status),
			models.JSONB{"order_id": order.ID.String(), "from": string(previous), "to": string(req.Status)})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordOrderTransition(string(previous), string(req.Status))
	s.notifyCustomer(&order, func(user *models.User) error {
		return s.notificationService.SendOrderStatusChanged(user, &order)
	})

	return s.GetOrder(orderID, adminID, true)
}

func (s *OrderService) notifyCustomer(order *models.Order, send func(user *models.User) error) {
	if s.notificationService == nil {
		return
	}
	go func() {
		var user models.User
		if err := s.db.First(&user, "id = ?", order.UserID).Error; err != nil {
			logrus.WithError(err).WithField("order", order.OrderNumber).Warn("Order notification skipped, user not found")
			return
		}
		if err := send(&user); err != nil {
			logrus.WithError(err).WithField("order", order.OrderNumber).Warn("Failed to send order notification")
		}
	}()
}

func recordStatusChange(tx *gorm.DB, order *models.Order, from, to models.OrderStatus, actorID *uuid.UUID, note string) error {
	entry := models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Note:       note,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record status history: %w", err)
	}
	return nil
}
