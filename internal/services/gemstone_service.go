// internal/services/gemstone_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

var ErrInvalidPrice = errors.New("price must be at least 0.01")

var minPrice = decimal.RequireFromString("0.01")

type GemstoneService struct {
	db      *gorm.DB
	matcher *ImageMatcher
}

type CreateGemstoneRequest struct {
	SerialNumber  string                 `json:"serial_number,omitempty" validate:"omitempty,max=64"`
	Name          string                 `json:"name" validate:"required,min=2,max=255"`
	Type          string                 `json:"type" validate:"required,max=50"`
	Color         string                 `json:"color,omitempty" validate:"omitempty,max=50"`
	Cut           string                 `json:"cut,omitempty" validate:"omitempty,max=50"`
	Clarity       string                 `json:"clarity,omitempty" validate:"omitempty,max=20"`
	Weight        decimal.Decimal        `json:"weight"`
	Origin        string                 `json:"origin,omitempty" validate:"omitempty,max=100"`
	Price         decimal.Decimal        `json:"price"`
	StockQuantity int                    `json:"stock_quantity" validate:"min=0"`
	Images        []string               `json:"images,omitempty"`
	Certified     bool                   `json:"certified"`
	CertLab       string                 `json:"cert_lab,omitempty"`
	CertNumber    string                 `json:"cert_number,omitempty"`
	Description   string                 `json:"description,omitempty"`
	Attributes    map[string]interface{} `json:"attributes,omitempty"`
	Status        models.GemstoneStatus  `json:"status,omitempty" validate:"omitempty,oneof=draft active archived"`
	Featured      bool                   `json:"featured"`
}

type UpdateGemstoneRequest struct {
	Name          *string                `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Type          *string                `json:"type,omitempty" validate:"omitempty,max=50"`
	Color         *string                `json:"color,omitempty" validate:"omitempty,max=50"`
	Cut           *string                `json:"cut,omitempty"`
	Clarity       *string                `json:"clarity,omitempty"`
	Weight        *decimal.Decimal       `json:"weight,omitempty"`
	Origin        *string                `json:"origin,omitempty"`
	Price         *decimal.Decimal       `json:"price,omitempty"`
	StockQuantity *int                   `json:"stock_quantity,omitempty" validate:"omitempty,min=0"`
	Images        []string               `json:"images,omitempty"`
	Certified     *bool                  `json:"certified,omitempty"`
	CertLab       *string                `json:"cert_lab,omitempty"`
	CertNumber    *string                `json:"cert_number,omitempty"`
	Description   *string                `json:"description,omitempty"`
	Attributes    map[string]interface{} `json:"attributes,omitempty"`
	Status        *models.GemstoneStatus `json:"status,omitempty" validate:"omitempty,oneof=draft active archived"`
	Featured      *bool                  `json:"featured,omitempty"`
}

type GemstoneSearchParams struct {
	utils.PaginationParams
	Type      string                 `json:"type,omitempty"`
	Color     string                 `json:"color,omitempty"`
	Cut       string                 `json:"cut,omitempty"`
	Clarity   string                 `json:"clarity,omitempty"`
	Origin    string                 `json:"origin,omitempty"`
	Certified *bool                  `json:"certified,omitempty"`
	PriceMin  *decimal.Decimal       `json:"price_min,omitempty"`
	PriceMax  *decimal.Decimal       `json:"price_max,omitempty"`
	WeightMin *decimal.Decimal       `json:"weight_min,omitempty"`
	WeightMax *decimal.Decimal       `json:"weight_max,omitempty"`
	InStock   *bool                  `json:"in_stock,omitempty"`
	Featured  *bool                  `json:"featured,omitempty"`
	Status    *models.GemstoneStatus `json:"status,omitempty"`

	// IncludeHidden lets admins see draft and archived stones.
	IncludeHidden bool `json:"-"`
}

type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

type GemstoneFacets struct {
	Types     []string   `json:"types"`
	Colors    []string   `json:"colors"`
	Cuts      []string   `json:"cuts"`
	Clarities []string   `json:"clarities"`
	Origins   []string   `json:"origins"`
	Price     PriceRange `json:"price"`
}

var gemstoneSortFields = []string{"created_at", "updated_at", "name", "price", "weight", "view_count", "stock_quantity"}

func NewGemstoneService(db *gorm.DB, matcher *ImageMatcher) *GemstoneService {
	return &GemstoneService{
		db:      db,
		matcher: matcher,
	}
}

func (s *GemstoneService) CreateGemstone(req *CreateGemstoneRequest) (*models.Gemstone, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.Price.LessThan(minPrice) {
		return nil, ErrInvalidPrice
	}
	if req.Weight.IsNegative() {
		return nil, fmt.Errorf("%w: weight cannot be negative", ErrInvalidInput)
	}

	serial := strings.TrimSpace(req.SerialNumber)
	if serial == "" {
		generated, err := utils.GenerateSerialNumber(req.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to generate serial number: %w", err)
		}
		serial = generated
	}

	var existing int64
	if err := s.db.Model(&models.Gemstone{}).Where("serial_number = ?", serial).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("gemstone serial number %w", ErrDuplicate)
	}

	status := req.Status
	if status == "" {
		status = models.GemstoneStatusActive
	}

	gemstone := &models.Gemstone{
		SerialNumber:  serial,
		Name:          strings.TrimSpace(req.Name),
		Type:          strings.ToLower(strings.TrimSpace(req.Type)),
		Color:         strings.ToLower(strings.TrimSpace(req.Color)),
		Cut:           req.Cut,
		Clarity:       req.Clarity,
		Weight:        req.Weight.Round(2),
		Origin:        req.Origin,
		Price:         req.Price.Round(2),
		StockQuantity: req.StockQuantity,
		Images:        pq.StringArray(req.Images),
		Certified:     req.Certified,
		CertLab:       req.CertLab,
		CertNumber:    req.CertNumber,
		Description:   req.Description,
		Attributes:    models.JSONB(req.Attributes),
		Status:        status,
		Featured:      req.Featured,
	}

	if err := s.db.Create(gemstone).Error; err != nil {
		return nil, fmt.Errorf("failed to create gemstone: %w", err)
	}

	return gemstone, nil
}

// GetGemstone loads a gemstone. Non-active stones are reported as not found
// unless the caller is an admin.
func (s *GemstoneService) GetGemstone(id uuid.UUID, isAdmin bool) (*models.Gemstone, error) {
	gemstone, err := s.findVisible(id, isAdmin)
	if err != nil {
		return nil, err
	}

	if !isAdmin {
		go s.incrementViewCount(id)
	}

	s.applyFallbackImage(gemstone)
	return gemstone, nil
}

func (s *GemstoneService) findVisible(id uuid.UUID, isAdmin bool) (*models.Gemstone, error) {
	var gemstone models.Gemstone
	if err := s.db.First(&gemstone, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGemstoneNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !gemstone.IsVisible() && !isAdmin {
		return nil, ErrGemstoneNotFound
	}
	return &gemstone, nil
}

func (s *GemstoneService) UpdateGemstone(id uuid.UUID, req *UpdateGemstoneRequest) (*models.Gemstone, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var gemstone models.Gemstone
	if err := s.db.First(&gemstone, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGemstoneNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		updates["type"] = strings.ToLower(strings.TrimSpace(*req.Type))
	}
	if req.Color != nil {
		updates["color"] = strings.ToLower(strings.TrimSpace(*req.Color))
	}
	if req.Cut != nil {
		updates["cut"] = *req.Cut
	}
	if req.Clarity != nil {
		updates["clarity"] = *req.Clarity
	}
	if req.Weight != nil {
		if req.Weight.IsNegative() {
			return nil, fmt.Errorf("%w: weight cannot be negative", ErrInvalidInput)
		}
		updates["weight"] = req.Weight.Round(2)
	}
	if req.Origin != nil {
		updates["origin"] = *req.Origin
	}
	if req.Price != nil {
		if req.Price.LessThan(minPrice) {
			return nil, ErrInvalidPrice
		}
		updates["price"] = req.Price.Round(2)
	}
	if req.StockQuantity != nil {
		updates["stock_quantity"] = *req.StockQuantity
	}
	if req.Images != nil {
		updates["images"] = pq.StringArray(req.Images)
	}
	if req.Certified != nil {
		updates["certified"] = *req.Certified
	}
	if req.CertLab != nil {
		updates["cert_lab"] = *req.CertLab
	}
	if req.CertNumber != nil {
		updates["cert_number"] = *req.CertNumber
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Attributes != nil {
		updates["attributes"] = models.JSONB(req.Attributes)
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Featured != nil {
		updates["featured"] = *req.Featured
	}

	if len(updates) > 0 {
		if err := s.db.Model(&gemstone).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update gemstone: %w", err)
		}
	}

	if err := s.db.First(&gemstone, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload gemstone: %w", err)
	}
	return &gemstone, nil
}

// AddImages appends uploaded image URLs to the gallery.
func (s *GemstoneService) AddImages(id uuid.UUID, urls []string) (*models.Gemstone, error) {
	var gemstone models.Gemstone
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&gemstone, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGemstoneNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		gemstone.Images = append(gemstone.Images, urls...)
		if err := tx.Model(&gemstone).Update("images", pq.StringArray(gemstone.Images)).Error; err != nil {
			return fmt.Errorf("failed to save images: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &gemstone, nil
}

// DeleteGemstone soft-deletes the stone and drops it from every cart and
// favorites list. Order items keep their snapshot.
func (s *GemstoneService) DeleteGemstone(id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Gemstone{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete gemstone: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrGemstoneNotFound
		}

		// Hard delete so the (user, gemstone) unique indexes are freed.
		if err := tx.Unscoped().Where("gemstone_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart items: %w", err)
		}
		if err := tx.Unscoped().Where("gemstone_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return fmt.Errorf("failed to clear favorites: %w", err)
		}
		return nil
	})
}

func (s *GemstoneService) SearchGemstones(params GemstoneSearchParams) ([]models.Gemstone, int64, error) {
	query := s.db.Model(&models.Gemstone{})

	switch {
	case params.Status != nil && params.IncludeHidden:
		query = query.Where("status = ?", *params.Status)
	case !params.IncludeHidden:
		query = query.Where("status = ?", models.GemstoneStatusActive)
	}

	if params.Type != "" {
		query = query.Where("type = ?", strings.ToLower(params.Type))
	} else if params.Category != "" {
		query = query.Where("type = ?", strings.ToLower(params.Category))
	}
	if params.Color != "" {
		query = query.Where("color = ?", strings.ToLower(params.Color))
	}
	if params.Cut != "" {
		query = query.Where("LOWER(cut) = ?", strings.ToLower(params.Cut))
	}
	if params.Clarity != "" {
		query = query.Where("UPPER(clarity) = ?", strings.ToUpper(params.Clarity))
	}
	if params.Origin != "" {
		query = query.Where("LOWER(origin) = ?", strings.ToLower(params.Origin))
	}
	if params.Certified != nil {
		query = query.Where("certified = ?", *params.Certified)
	}
	if params.Featured != nil {
		query = query.Where("featured = ?", *params.Featured)
	}

	if params.Search != "" {
		term := strings.TrimSpace(params.Search)
		query = query.Where(models.GemstoneSearchDocument+" @@ plainto_tsquery('english', ?) OR type = ? OR serial_number = ?",
			term, strings.ToLower(term), strings.ToUpper(term))
	}

	if params.PriceMin != nil {
		query = query.Where("price >= ?", *params.PriceMin)
	}
	if params.PriceMax != nil {
		query = query.Where("price <= ?", *params.PriceMax)
	}
	if params.WeightMin != nil {
		query = query.Where("weight >= ?", *params.WeightMin)
	}
	if params.WeightMax != nil {
		query = query.Where("weight <= ?", *params.WeightMax)
	}

	if params.InStock != nil {
		if *params.InStock {
			query = query.Where("stock_quantity > 0")
		} else {
			query = query.Where("stock_quantity = 0")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count gemstones: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams, gemstoneSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var gemstones []models.Gemstone
	if err := query.Find(&gemstones).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch gemstones: %w", err)
	}

	s.applyFallbackImages(gemstones)
	return gemstones, total, nil
}

func (s *GemstoneService) GetFeaturedGemstones(limit int) ([]models.Gemstone, error) {
	var gemstones []models.Gemstone
	if err := s.db.Where("status = ? AND featured = ?", models.GemstoneStatusActive, true).
		Order("created_at DESC").
		Limit(limit).
		Find(&gemstones).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch featured gemstones: %w", err)
	}

	s.applyFallbackImages(gemstones)
	return gemstones, nil
}

// GetRelatedGemstones returns other active stones of the same type, in-stock first.
func (s *GemstoneService) GetRelatedGemstones(id uuid.UUID, limit int) ([]models.Gemstone, error) {
	gemstone, err := s.findVisible(id, false)
	if err != nil {
		return nil, err
	}

	var related []models.Gemstone
	if err := s.db.Where("status = ? AND type = ? AND id <> ?", models.GemstoneStatusActive, gemstone.Type, id).
		Order("stock_quantity > 0 DESC, featured DESC, view_count DESC").
		Limit(limit).
		Find(&related).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch related gemstones: %w", err)
	}

	s.applyFallbackImages(related)
	return related, nil
}

// GetFacets lists the distinct filter values across active stones.
func (s *GemstoneService) GetFacets() (*GemstoneFacets, error) {
	facets := &GemstoneFacets{}
	active := s.db.Model(&models.Gemstone{}).Where("status = ?", models.GemstoneStatusActive)

	columns := []struct {
		name string
		dest *[]string
	}{
		{"type", &facets.Types},
		{"color", &facets.Colors},
		{"cut", &facets.Cuts},
		{"clarity", &facets.Clarities},
		{"origin", &facets.Origins},
	}
	for _, col := range columns {
		if err := active.Session(&gorm.Session{}).
			Where(col.name+" <> ''").
			Distinct(col.name).
			Order(col.name).
			Pluck(col.name, col.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to load %s facet: %w", col.name, err)
		}
	}

	var bounds struct {
		Min decimal.Decimal
		Max decimal.Decimal
	}
	if err := active.Session(&gorm.Session{}).
		Select("COALESCE(MIN(price), 0) AS min, COALESCE(MAX(price), 0) AS max").
		Scan(&bounds).Error; err != nil {
		return nil, fmt.Errorf("failed to load price range: %w", err)
	}
	facets.Price = PriceRange{Min: bounds.Min, Max: bounds.Max}

	return facets, nil
}

func (s *GemstoneService) applyFallbackImages(gemstones []models.Gemstone) {
	for i := range gemstones {
		s.applyFallbackImage(&gemstones[i])
	}
}

// applyFallbackImage only touches the response value, never the row.
func (s *GemstoneService) applyFallbackImage(gemstone *models.Gemstone) {
	if len(gemstone.Images) > 0 || s.matcher == nil {
		return
	}
	gemstone.Images = pq.StringArray{s.matcher.Match(gemstone.Type, gemstone.Color)}
}

func (s *GemstoneService) incrementViewCount(id uuid.UUID) {
	if err := s.db.Model(&models.Gemstone{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		logrus.WithError(err).WithField("gemstone_id", id).Warn("Failed to increment view count")
	}
}
