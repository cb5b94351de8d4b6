// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// I18nMiddleware resolves the response language from Accept-Language.
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = "en"
	}

	return func(c *gin.Context) {
		c.Set("lang", ResolveLanguage(c.GetHeader("Accept-Language"), defaultLang))
		c.Next()
	}
}

// ResolveLanguage handles headers like "zh-TW,zh;q=0.9,en;q=0.8" by taking
// the first supported tag.
func ResolveLanguage(header, defaultLang string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		switch strings.ToLower(strings.ReplaceAll(tag, "_", "-")) {
		case "zh-tw", "zh-hant", "zh-hk", "zh":
			return "zh_TW"
		case "en", "en-us", "en-gb":
			return "en"
		}
	}
	return defaultLang
}
