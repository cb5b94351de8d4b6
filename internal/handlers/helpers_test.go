// internal/handlers/helpers_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser injects the identity the auth middleware would set.
func asUser(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Set("role", role)
		c.Next()
	}
}

func doRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrGemstoneNotFound, http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("loading: %w", services.ErrOrderNotFound), http.StatusNotFound, "NOT_FOUND"},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
		{services.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("%w: Ruby has 0 left", services.ErrInsufficientStock), http.StatusBadRequest, "BAD_REQUEST"},
		{services.ErrUnsupportedCurrency, http.StatusBadRequest, "BAD_REQUEST"},
		{services.ErrOrderAlreadyCancelled, http.StatusConflict, "CONFLICT"},
		{services.ErrInvalidStatusTransition, http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("%w: USD/EUR", services.ErrRateUnavailable), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{services.ErrPaymentsDisabled, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) { respondError(c, tt.err) })

			w := doRequest(r, http.MethodGet, "/x", nil)
			assert.Equal(t, tt.status, w.Code)

			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { respondError(c, errors.New("pq: password authentication failed")) })

	w := doRequest(r, http.MethodGet, "/x", nil)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestRespondErrorValidation(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		err := utils.ValidateStruct(&services.UpdateUserRoleRequest{Role: "owner"})
		respondError(c, fmt.Errorf("validation failed: %w", err))
	})

	w := doRequest(r, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeResponse(t, w).Error.Code)
}

func TestBindJSON(t *testing.T) {
	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		var req services.CancelOrderRequest
		if !bindJSON(c, &req) {
			return
		}
		c.String(http.StatusOK, req.Reason)
	})

	w := doRequest(r, http.MethodPost, "/x", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", decodeResponse(t, w).Error.Code)

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'a'
	}
	w = doRequest(r, http.MethodPost, "/x", map[string]string{"reason": string(long)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeResponse(t, w).Error.Code)

	w = doRequest(r, http.MethodPost, "/x", map[string]string{"reason": "changed my mind"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "changed my mind", w.Body.String())
}

func TestQueryTime(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		from, err := queryTime(c, "from")
		if err != nil {
			respondError(c, err)
			return
		}
		if from == nil {
			c.String(http.StatusOK, "nil")
			return
		}
		c.String(http.StatusOK, from.UTC().Format("2006-01-02T15:04:05Z"))
	})

	assert.Equal(t, "2024-03-01T00:00:00Z", doRequest(r, http.MethodGet, "/x?from=2024-03-01", nil).Body.String())
	assert.Equal(t, "2024-03-01T10:30:00Z", doRequest(r, http.MethodGet, "/x?from=2024-03-01T12:30:00%2B02:00", nil).Body.String())
	assert.Equal(t, "nil", doRequest(r, http.MethodGet, "/x", nil).Body.String())

	w := doRequest(r, http.MethodGet, "/x?from=March", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), services.ErrInvalidDateRange.Error())
}

func TestListOrdersRejectsMalformedDates(t *testing.T) {
	h := NewOrderHandler(nil)
	r := gin.New()
	r.GET("/orders", asUser(uuid.New(), "customer"), h.ListMyOrders)
	r.GET("/admin/orders", h.ListOrders)

	w := doRequest(r, http.MethodGet, "/orders?created_after=2024-13-45", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "created_after")

	w = doRequest(r, http.MethodGet, "/admin/orders?created_before=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "created_before")
}

func TestParamUUID(t *testing.T) {
	r := gin.New()
	r.GET("/gemstones/:id", func(c *gin.Context) {
		if id, ok := paramUUID(c, "id"); ok {
			c.String(http.StatusOK, id.String())
		}
	})

	id := uuid.New()
	assert.Equal(t, id.String(), doRequest(r, http.MethodGet, "/gemstones/"+id.String(), nil).Body.String())
	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodGet, "/gemstones/not-a-uuid", nil).Code)
}
