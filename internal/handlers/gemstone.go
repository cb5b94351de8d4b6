// internal/handlers/gemstone.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/javajoker/gemstore-backend/internal/i18n"
	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

const (
	defaultFeaturedLimit = 8
	defaultRelatedLimit  = 4
	maxListLimit         = 50
)

type GemstoneHandler struct {
	gemstoneService *services.GemstoneService
	currencyService *services.CurrencyService
	favoriteService *services.FavoriteService
}

func NewGemstoneHandler(
	gemstoneService *services.GemstoneService,
	currencyService *services.CurrencyService,
	favoriteService *services.FavoriteService,
) *GemstoneHandler {
	return &GemstoneHandler{
		gemstoneService: gemstoneService,
		currencyService: currencyService,
		favoriteService: favoriteService,
	}
}

func queryDecimal(c *gin.Context, name string) *decimal.Decimal {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &value
}

func searchParamsFromQuery(c *gin.Context) services.GemstoneSearchParams {
	params := services.GemstoneSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		Type:             c.Query("type"),
		Color:            c.Query("color"),
		Cut:              c.Query("cut"),
		Clarity:          c.Query("clarity"),
		Origin:           c.Query("origin"),
		Certified:        queryBool(c, "certified"),
		PriceMin:         queryDecimal(c, "price_min"),
		PriceMax:         queryDecimal(c, "price_max"),
		WeightMin:        queryDecimal(c, "weight_min"),
		WeightMax:        queryDecimal(c, "weight_max"),
		InStock:          queryBool(c, "in_stock"),
		Featured:         queryBool(c, "featured"),
	}

	if status := c.Query("status"); status != "" {
		gemStatus := models.GemstoneStatus(status)
		params.Status = &gemStatus
	}
	return params
}

// localize converts prices when ?currency= names something other than the
// base currency. It writes the error response itself.
func (h *GemstoneHandler) localize(c *gin.Context, gemstones []models.Gemstone) bool {
	currency := c.Query("currency")
	if currency == "" {
		return true
	}
	if err := h.currencyService.LocalizeGemstones(c.Request.Context(), gemstones, currency); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

// GET /gemstones
func (h *GemstoneHandler) GetGemstones(c *gin.Context) {
	params := searchParamsFromQuery(c)
	params.IncludeHidden = utils.IsAdminContext(c)

	gemstones, total, err := h.gemstoneService.SearchGemstones(params)
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.localize(c, gemstones) {
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(gemstones, total, params.PaginationParams))
}

// GET /gemstones/featured
func (h *GemstoneHandler) GetFeatured(c *gin.Context) {
	limit := queryInt(c, "limit", defaultFeaturedLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultFeaturedLimit
	}

	gemstones, err := h.gemstoneService.GetFeaturedGemstones(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.localize(c, gemstones) {
		return
	}

	utils.SuccessResponse(c, gin.H{"gemstones": gemstones})
}

// GET /gemstones/filters
func (h *GemstoneHandler) GetFilters(c *gin.Context) {
	facets, err := h.gemstoneService.GetFacets()
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"filters": facets})
}

// GET /gemstones/:id
func (h *GemstoneHandler) GetGemstone(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	gemstone, err := h.gemstoneService.GetGemstone(id, utils.IsAdminContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	single := []models.Gemstone{*gemstone}
	if !h.localize(c, single) {
		return
	}

	response := gin.H{"gemstone": single[0]}
	if userID, ok := utils.GetUserUUIDFromContext(c); ok {
		if favorite, err := h.favoriteService.IsFavorite(userID, id); err == nil {
			response["is_favorite"] = favorite
		}
	}

	utils.SuccessResponse(c, response)
}

// GET /gemstones/:id/related
func (h *GemstoneHandler) GetRelated(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	limit := queryInt(c, "limit", defaultRelatedLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultRelatedLimit
	}

	gemstones, err := h.gemstoneService.GetRelatedGemstones(id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.localize(c, gemstones) {
		return
	}

	utils.SuccessResponse(c, gin.H{"gemstones": gemstones})
}

// POST /admin/gemstones
func (h *GemstoneHandler) CreateGemstone(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateGemstoneRequest
	if !bindJSON(c, &req) {
		return
	}

	gemstone, err := h.gemstoneService.CreateGemstone(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyGemstoneCreated),
		"gemstone": gemstone,
	})
}

// PUT /admin/gemstones/:id
func (h *GemstoneHandler) UpdateGemstone(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateGemstoneRequest
	if !bindJSON(c, &req) {
		return
	}

	gemstone, err := h.gemstoneService.UpdateGemstone(id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyGemstoneUpdated),
		"gemstone": gemstone,
	})
}

// DELETE /admin/gemstones/:id
func (h *GemstoneHandler) DeleteGemstone(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.gemstoneService.DeleteGemstone(id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyGemstoneDeleted),
	})
}
