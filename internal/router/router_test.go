// internal/router/router_test.go
package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/gemstore-backend/internal/config"
	"github.com/javajoker/gemstore-backend/internal/middleware"
	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

type noopFetcher struct{}

func (noopFetcher) FetchRates(context.Context, string, []string) (map[string]decimal.Decimal, error) {
	return map[string]decimal.Decimal{}, nil
}

func (noopFetcher) Source() string { return "noop" }

func newTestEngine(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: "8080"},
		JWT:    config.JWTConfig{SecretKey: "router-test-secret", AccessTokenTTL: 1},
		Currency: config.CurrencyConfig{
			BaseCurrency:        "USD",
			SupportedCurrencies: []string{"USD", "EUR"},
			CacheTTLMinutes:     60,
		},
		Inventory: config.InventoryConfig{LowStockThreshold: 3},
		I18n:      config.I18nConfig{DefaultLocale: "en"},
		Frontend:  config.FrontendConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}

	svc := services.NewServices(db, cfg, services.Infrastructure{RateFetcher: noopFetcher{}})
	return Initialize(db, cfg, svc, middleware.DefaultRateLimiters()), mock
}

func TestHealthReportsDatabaseState(t *testing.T) {
	r, mock := newTestEngine(t)

	mock.ExpectPing()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"up"`)

	mock.ExpectPing().WillReturnError(assert.AnError)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"down"`)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _ := newTestEngine(t)

	for _, path := range []string{"/v1/cart", "/v1/orders", "/v1/users/profile", "/v1/admin/dashboard/stats"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	r, _ := newTestEngine(t)

	token, err := utils.GenerateJWT(uuid.New(), "buyer", string(models.UserRoleCustomer), 1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	r, _ := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
