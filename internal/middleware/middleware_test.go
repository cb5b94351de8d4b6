// internal/middleware/middleware_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("middleware-test-secret")
}

func tokenFor(t *testing.T, role models.UserRole) string {
	t.Helper()
	token, err := utils.GenerateJWT(uuid.New(), "jade", string(role), 1)
	require.NoError(t, err)
	return token
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	ok := func(c *gin.Context) {
		role, _ := utils.GetUserRoleFromContext(c)
		c.String(http.StatusOK, role)
	}
	r.GET("/me", AuthRequired(), ok)
	r.GET("/admin", AuthRequired(), AdminRequired(), ok)
	r.GET("/catalog", OptionalAuth(), ok)
	return r
}

func serve(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := newAuthRouter()

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/me", "garbage").Code)

	w := serve(r, "/me", tokenFor(t, models.UserRoleCustomer))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "customer", w.Body.String())
}

func TestAuthRequiredRejectsMalformedHeader(t *testing.T) {
	r := newAuthRouter()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token "+tokenFor(t, models.UserRoleCustomer))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRequired(t *testing.T) {
	r := newAuthRouter()

	assert.Equal(t, http.StatusForbidden, serve(r, "/admin", tokenFor(t, models.UserRoleCustomer)).Code)
	assert.Equal(t, http.StatusOK, serve(r, "/admin", tokenFor(t, models.UserRoleAdmin)).Code)
}

func TestRoleRequiredWithoutIdentity(t *testing.T) {
	r := gin.New()
	r.GET("/x", RoleRequired(models.UserRoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/x", "").Code)
}

func TestOptionalAuth(t *testing.T) {
	r := newAuthRouter()

	anonymous := serve(r, "/catalog", "")
	assert.Equal(t, http.StatusOK, anonymous.Code)
	assert.Equal(t, "", anonymous.Body.String())

	// an invalid token is treated as anonymous
	assert.Equal(t, http.StatusOK, serve(r, "/catalog", "garbage").Code)
	assert.Equal(t, "admin", serve(r, "/catalog", tokenFor(t, models.UserRoleAdmin)).Body.String())
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(0.001), 2)
	r := gin.New()
	r.GET("/x", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, "/x", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "/x", "").Code)

	w := serve(r, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	limiter.evictIdle(-1)
	assert.Equal(t, http.StatusOK, serve(r, "/x", "").Code)
}

func TestResolveLanguage(t *testing.T) {
	tests := map[string]string{
		"":                        "en",
		"zh-TW,zh;q=0.9,en;q=0.8": "zh_TW",
		"zh_Hant":                 "zh_TW",
		"fr-FR,en-GB;q=0.8":       "en",
		"de-DE":                   "en",
		"ja, zh-HK;q=0.5":         "zh_TW",
		"EN-us":                   "en",
	}
	for header, want := range tests {
		assert.Equal(t, want, ResolveLanguage(header, "en"), header)
	}
	assert.Equal(t, "zh_TW", ResolveLanguage("de", "zh_TW"))
}

func TestI18nMiddlewareSetsLang(t *testing.T) {
	r := gin.New()
	r.Use(I18nMiddleware(""))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, utils.GetLangFromContext(c)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Accept-Language", "zh-TW")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "zh_TW", w.Body.String())
}

func TestRedact(t *testing.T) {
	data := map[string]interface{}{
		"email":        "jade@example.com",
		"password":     "hunter2",
		"New_Password": "hunter3",
		"payment": map[string]interface{}{
			"client_secret": "pi_secret",
			"amount":        10,
		},
	}
	redact(data)

	assert.Equal(t, "jade@example.com", data["email"])
	assert.Equal(t, "[REDACTED]", data["password"])
	assert.Equal(t, "[REDACTED]", data["New_Password"])
	nested := data["payment"].(map[string]interface{})
	assert.Equal(t, "[REDACTED]", nested["client_secret"])
	assert.Equal(t, 10, nested["amount"])
}

func TestExtractResource(t *testing.T) {
	id := uuid.New()

	assert.Equal(t, "gemstones", extractResourceType("/v1/admin/gemstones/"+id.String()+"/price"))
	assert.Equal(t, "orders", extractResourceType("/v1/orders/checkout"))
	assert.Equal(t, "health", extractResourceType("/health"))
	assert.Equal(t, "unknown", extractResourceType("/"))

	got := extractResourceID("/v1/admin/gemstones/" + id.String() + "/price")
	require.NotNil(t, got)
	assert.Equal(t, id, *got)
	assert.Nil(t, extractResourceID("/v1/cart"))
}
