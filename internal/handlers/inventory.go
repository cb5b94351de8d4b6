// internal/handlers/inventory.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/gemstore-backend/internal/i18n"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

type InventoryHandler struct {
	inventoryService *services.InventoryService
}

func NewInventoryHandler(inventoryService *services.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// PUT /admin/gemstones/:id/price
func (h *InventoryHandler) UpdatePrice(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdatePriceRequest
	if !bindJSON(c, &req) {
		return
	}

	gemstone, err := h.inventoryService.UpdatePrice(id, req.Price)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyGemstonePriceSet),
		"gemstone": gemstone,
	})
}

// POST /admin/gemstones/bulk-price
func (h *InventoryHandler) BulkAdjustPrices(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.BulkPriceAdjustRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.inventoryService.BulkAdjustPrices(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyGemstonePriceSet),
		"result":  result,
	})
}

// POST /admin/gemstones/:id/stock/adjust
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.AdjustStockRequest
	if !bindJSON(c, &req) {
		return
	}

	gemstone, err := h.inventoryService.AdjustStock(id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyGemstoneStockSet),
		"gemstone": gemstone,
	})
}

// PUT /admin/gemstones/:id/stock
func (h *InventoryHandler) SetStock(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.SetStockRequest
	if !bindJSON(c, &req) {
		return
	}

	gemstone, err := h.inventoryService.SetStock(id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyGemstoneStockSet),
		"gemstone": gemstone,
	})
}

// GET /admin/inventory/low-stock?threshold=
func (h *InventoryHandler) LowStock(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	threshold := queryInt(c, "threshold", -1)

	gemstones, total, err := h.inventoryService.LowStock(threshold, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(gemstones, total, params))
}

// GET /admin/inventory/alerts?include_resolved=
func (h *InventoryHandler) ListAlerts(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	includeResolved := false
	if v := queryBool(c, "include_resolved"); v != nil {
		includeResolved = *v
	}

	alerts, total, err := h.inventoryService.ListAlerts(includeResolved, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(alerts, total, params))
}

// POST /admin/inventory/check
func (h *InventoryHandler) CheckAlerts(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	alerts, err := h.inventoryService.CheckInventoryAlerts()
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyInventoryChecked),
		"new_alerts": alerts,
		"threshold":  h.inventoryService.Threshold(),
	})
}

// PUT /admin/inventory/alerts/:id/resolve
func (h *InventoryHandler) ResolveAlert(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	alertID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	alert, err := h.inventoryService.ResolveAlert(alertID, adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyInventoryAlertResolved),
		"alert":   alert,
	})
}

// GET /admin/inventory/value
func (h *InventoryHandler) Value(c *gin.Context) {
	value, err := h.inventoryService.InventoryValue()
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, value)
}
