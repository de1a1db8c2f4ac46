// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/estate-backend/internal/i18n"
)

// I18nMiddleware picks the first supported language from Accept-Language,
// falling back to defaultLang.
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := defaultLang

		supported := map[string]bool{}
		for _, l := range i18n.GetSupportedLanguages() {
			supported[l] = true
		}

		// Handle cases like "zh-TW,zh;q=0.9,en;q=0.8"
		for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
			candidate := normalizeLang(strings.TrimSpace(strings.Split(part, ";")[0]))
			if candidate != "" && supported[candidate] {
				lang = candidate
				break
			}
		}

		c.Set("lang", lang)
		c.Next()
	}
}

func normalizeLang(tag string) string {
	switch tag {
	case "zh-TW", "zh-Hant", "zh_TW", "zh-HK":
		return "zh_TW"
	case "en", "en-US", "en-GB":
		return "en"
	}
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		return tag[:i]
	}
	return tag
}
