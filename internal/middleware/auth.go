package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psysupport/psysupport-api/pkg/jwt"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"go.uber.org/zap"
)

// UserClaimsContextKey is the key used to store verified claims in context
const UserClaimsContextKey = "user_claims"

var (
	ErrClaimsNotFound = errors.New("user claims not found in context")
	ErrInvalidClaims  = errors.New("invalid user claims type")
)

// TokenValidator verifies bearer tokens
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwt.UserClaims, error)
}

// RequireAuth rejects requests without a valid bearer token
func RequireAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			_ = c.Error(fmt.Errorf("missing bearer token")) //nolint:errcheck
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			_ = c.Error(fmt.Errorf("invalid bearer token: %w", err)) //nolint:errcheck
			logger.Warn("Invalid bearer token",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			if errors.Is(err, jwt.ErrExpiredToken) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			}
			c.Abort()
			return
		}

		c.Set(UserClaimsContextKey, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid bearer token is present and lets
// anonymous requests through. An invalid token is treated as anonymous.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := validator.ValidateToken(token); err == nil {
				c.Set(UserClaimsContextKey, claims)
			} else {
				logger.Debug("Ignoring invalid optional bearer token", zap.Error(err))
			}
		}
		c.Next()
	}
}

// RequirePsychologist must run after RequireAuth
func RequirePsychologist() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := GetUserClaims(c)
		if err != nil || !claims.IsPsychologist() {
			_ = c.Error(fmt.Errorf("psychologist role required")) //nolint:errcheck
			c.JSON(http.StatusForbidden, gin.H{"error": "Psychologist access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserClaims extracts verified claims from context
func GetUserClaims(c *gin.Context) (*jwt.UserClaims, error) {
	val, exists := c.Get(UserClaimsContextKey)
	if !exists {
		return nil, ErrClaimsNotFound
	}

	claims, ok := val.(*jwt.UserClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
