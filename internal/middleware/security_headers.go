package middleware

import (
	"github.com/gin-gonic/gin"
)

// apiSecurityHeaders are set on every response. Session and questionnaire
// payloads are personal data, so nothing may be cached.
var apiSecurityHeaders = map[string]string{
	"X-Frame-Options":        "DENY",
	"X-Content-Type-Options": "nosniff",
	"Referrer-Policy":        "no-referrer",
	"Permissions-Policy":     "camera=(), microphone=(), geolocation=()",
	"Cache-Control":          "no-store, no-cache, must-revalidate, private",
	"Pragma":                 "no-cache",
}

// SecurityHeadersMiddleware adds security headers to all HTTP responses
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for name, value := range apiSecurityHeaders {
			c.Header(name, value)
		}
		c.Next()
	}
}
