// internal/utils/pagination.go
package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	defaultSort     = "created_at"
)

// PaginationParams is the listing window shared by every paginated endpoint.
// Category narrows catalog listings by gemstone type.
type PaginationParams struct {
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
	Sort     string `json:"sort"`
	Order    string `json:"order"`
	Search   string `json:"search"`
	Category string `json:"category"`
}

func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

// GetPaginationParams reads page, limit (or per_page), sort, order, search and
// category. A leading "-" on sort selects descending order, e.g. sort=-price.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	rawLimit := c.Query("limit")
	if rawLimit == "" {
		rawLimit = c.Query("per_page")
	}
	limit, err := strconv.Atoi(rawLimit)
	switch {
	case err != nil || limit < 1:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	order := strings.ToLower(c.DefaultQuery("order", "desc"))
	sort := strings.TrimSpace(c.DefaultQuery("sort", defaultSort))
	if strings.HasPrefix(sort, "-") {
		sort, order = strings.TrimPrefix(sort, "-"), "desc"
	}
	if order != "asc" {
		order = "desc"
	}

	return PaginationParams{
		Page:     page,
		Limit:    limit,
		Sort:     sort,
		Order:    order,
		Search:   strings.TrimSpace(c.Query("search")),
		Category: strings.TrimSpace(c.Query("category")),
	}
}

func ApplyPagination(db *gorm.DB, params PaginationParams) *gorm.DB {
	return db.Offset(params.Offset()).Limit(params.Limit)
}

// ApplySort orders by a whitelisted column, falling back to created_at.
// Ties are broken on id so pages stay stable.
func ApplySort(db *gorm.DB, params PaginationParams, allowedSortFields []string) *gorm.DB {
	sortField := defaultSort
	for _, field := range allowedSortFields {
		if field == params.Sort {
			sortField = field
			break
		}
	}

	desc := params.Order != "asc"
	db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: sortField}, Desc: desc})
	if sortField != "id" {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
	}
	return db
}

func CreatePaginationResult(data interface{}, total int64, params PaginationParams) PaginationResult {
	totalPages := 0
	if params.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(params.Limit)))
	}

	return PaginationResult{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		Data:       data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Page", strconv.Itoa(result.Page))
	c.Header("X-Per-Page", strconv.Itoa(result.Limit))
	c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
}
