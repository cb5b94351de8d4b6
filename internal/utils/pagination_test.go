// internal/utils/pagination_test.go
package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func contextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/v1/gemstones?"+query, nil)
	return c
}

func TestGetPaginationParamsDefaults(t *testing.T) {
	params := GetPaginationParams(contextWithQuery(""))
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 20, params.Limit)
	assert.Equal(t, "created_at", params.Sort)
	assert.Equal(t, "desc", params.Order)
}

func TestGetPaginationParamsClampsInvalidValues(t *testing.T) {
	params := GetPaginationParams(contextWithQuery("page=-3&limit=500&order=sideways&search=ruby"))
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, MaxPageSize, params.Limit)
	assert.Equal(t, "desc", params.Order)
	assert.Equal(t, "ruby", params.Search)

	params = GetPaginationParams(contextWithQuery("limit=abc"))
	assert.Equal(t, DefaultPageSize, params.Limit)
}

func TestGetPaginationParamsSortShorthand(t *testing.T) {
	params := GetPaginationParams(contextWithQuery("sort=-price&order=asc&per_page=5&page=3"))
	assert.Equal(t, "price", params.Sort)
	assert.Equal(t, "desc", params.Order)
	assert.Equal(t, 5, params.Limit)
	assert.Equal(t, 10, params.Offset())
}

func TestCreatePaginationResult(t *testing.T) {
	result := CreatePaginationResult([]int{1, 2}, 41, PaginationParams{Page: 2, Limit: 20})
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, int64(41), result.Total)

	empty := CreatePaginationResult(nil, 0, PaginationParams{Page: 1, Limit: 20})
	assert.Equal(t, 0, empty.TotalPages)
}

func TestPaginatedResponseSetsHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	PaginatedResponse(c, CreatePaginationResult([]string{"a"}, 45, PaginationParams{Page: 1, Limit: 20}))

	assert.Equal(t, "45", w.Header().Get("X-Total-Count"))
	assert.Equal(t, "3", w.Header().Get("X-Total-Pages"))
	assert.Contains(t, w.Body.String(), `"total_pages":3`)
}
