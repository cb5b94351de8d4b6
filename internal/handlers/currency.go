// internal/handlers/currency.go
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/javajoker/gemstore-backend/internal/i18n"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

const refreshTimeout = 30 * time.Second

type CurrencyHandler struct {
	currencyService *services.CurrencyService
}

func NewCurrencyHandler(currencyService *services.CurrencyService) *CurrencyHandler {
	return &CurrencyHandler{currencyService: currencyService}
}

// GET /currency/rates
func (h *CurrencyHandler) GetRates(c *gin.Context) {
	snapshot, err := h.currencyService.Rates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, snapshot)
}

// GET /currency/convert?amount=&from=&to=
func (h *CurrencyHandler) Convert(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil || amount.IsNegative() {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "amount"), nil)
		return
	}

	result, err := h.currencyService.ConvertDetailed(c.Request.Context(), amount, c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// POST /admin/currency/refresh
func (h *CurrencyHandler) RefreshRates(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), refreshTimeout)
	defer cancel()

	rates, err := h.currencyService.RefreshRates(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCurrencyRefreshed),
		"base":    h.currencyService.BaseCurrency(),
		"rates":   rates,
	})
}
