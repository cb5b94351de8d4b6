// internal/handlers/order.go
package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/gemstore-backend/internal/i18n"
	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// queryTime accepts RFC 3339 timestamps or plain YYYY-MM-DD dates. An absent
// parameter is nil; anything unparseable is ErrInvalidDateRange.
func queryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s=%q is not a date", services.ErrInvalidDateRange, name, raw)
}

// createdRange reads created_after and created_before.
func createdRange(c *gin.Context) (after, before *time.Time, err error) {
	if after, err = queryTime(c, "created_after"); err != nil {
		return nil, nil, err
	}
	if before, err = queryTime(c, "created_before"); err != nil {
		return nil, nil, err
	}
	return after, before, nil
}

func orderFilterFromQuery(c *gin.Context) (services.OrderFilter, error) {
	after, before, err := createdRange(c)
	if err != nil {
		return services.OrderFilter{}, err
	}
	filter := services.OrderFilter{
		PaginationParams: utils.GetPaginationParams(c),
		CreatedAfter:     after,
		CreatedBefore:    before,
	}
	if status := c.Query("status"); status != "" {
		orderStatus := models.OrderStatus(status)
		filter.Status = &orderStatus
	}
	return filter, nil
}

// POST /orders/checkout
func (h *OrderHandler) Checkout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.orderService.Checkout(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderPlaced),
		"order":   result.Order,
		"payment": result.Payment,
	})
}

// GET /orders
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	filter, err := orderFilterFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	orders, total, err := h.orderService.ListUserOrders(userID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, filter.PaginationParams))
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(orderID, userID, utils.IsAdminContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"order": order})
}

// POST /orders/:id/cancel and POST /admin/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.CancelOrderRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.CancelOrder(orderID, userID, utils.IsAdminContext(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderCancelled),
		"order":   order,
	})
}

// POST /orders/:id/payment
func (h *OrderHandler) StartPayment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	intent, err := h.orderService.StartPayment(orderID, userID, utils.IsAdminContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"payment": intent})
}

// POST /orders/:id/confirm-payment
func (h *OrderHandler) ConfirmPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.ConfirmPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.ConfirmPayment(orderID, userID, utils.IsAdminContext(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderPaymentConfirmed),
		"order":   order,
	})
}

// GET /admin/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter, err := orderFilterFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if raw := c.Query("user_id"); raw != "" {
		if userID, err := uuid.Parse(raw); err == nil {
			filter.UserID = &userID
		}
	}

	orders, total, err := h.orderService.ListOrders(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, filter.PaginationParams))
}

// PUT /admin/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateStatus(orderID, adminID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderStatusUpdated),
		"order":   order,
	})
}
