package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/psysupport/psysupport-api/pkg/errors"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"go.uber.org/zap"
)

// CaptchaHeader carries the client-side challenge token for guest requests
const CaptchaHeader = "X-Recaptcha-Token"

// CaptchaVerifier checks a challenge token
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// GuestChallenge requires a captcha token from requests without user claims.
// Must run after OptionalAuth.
func GuestChallenge(verifier CaptchaVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := GetUserClaims(c); err == nil {
			c.Next()
			return
		}

		err := verifier.Verify(c.Request.Context(), c.GetHeader(CaptchaHeader), c.ClientIP())
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, apperrors.ErrUnavailable):
			logger.Error("Captcha verification unavailable", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Captcha verification unavailable"})
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Captcha verification failed"})
		}
	}
}
