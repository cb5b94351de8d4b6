// internal/handlers/cart.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/gemstore-backend/internal/i18n"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

type CartHandler struct {
	cartService *services.CartService
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GET /cart?currency=
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(c.Request.Context(), userID, c.Query("currency"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, cart)
}

// POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.AddCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.cartService.AddItem(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCartItemAdded),
		"item":    item,
	})
}

// PUT /cart/items/:gemstone_id
func (h *CartHandler) UpdateItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gemstoneID, ok := paramUUID(c, "gemstone_id")
	if !ok {
		return
	}

	var req services.UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.cartService.UpdateQuantity(userID, gemstoneID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if item == nil {
		utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyCartItemRemoved)})
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCartItemUpdated),
		"item":    item,
	})
}

// DELETE /cart/items/:gemstone_id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gemstoneID, ok := paramUUID(c, "gemstone_id")
	if !ok {
		return
	}

	if err := h.cartService.RemoveItem(userID, gemstoneID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyCartItemRemoved)})
}

// DELETE /cart
func (h *CartHandler) Clear(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.cartService.Clear(userID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyCartCleared)})
}
