package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/psysupport/psysupport-api/pkg/jwt"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Set Gin to test mode
	gin.SetMode(gin.TestMode)

	// Initialize logger for tests
	if err := logger.Initialize(logger.Config{Level: "debug", Environment: "development"}); err != nil {
		panic(err)
	}
}

const testSecret = "test-secret-key-with-at-least-32-chars"

func newTokenManager() *jwt.TokenManager {
	return jwt.NewTokenManager(testSecret, "psysupport", 1)
}

func signToken(t *testing.T, userID, role, psychologistID string) string {
	t.Helper()
	token, err := newTokenManager().GenerateToken(userID, "Test User", role, psychologistID)
	require.NoError(t, err)
	return token
}

func claimsRouter(handlers ...gin.HandlerFunc) (*gin.Engine, *string) {
	router := gin.New()
	seen := new(string)
	handlers = append(handlers, func(c *gin.Context) {
		if claims, err := GetUserClaims(c); err == nil {
			*seen = claims.UserID()
		}
		c.Status(http.StatusOK)
	})
	router.GET("/test", handlers...)
	return router, seen
}

func doRequest(router http.Handler, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_ValidToken(t *testing.T) {
	router, seen := claimsRouter(RequireAuth(newTokenManager()))

	w := doRequest(router, "Bearer "+signToken(t, "user-1", jwt.RoleClient, ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", *seen)
}

func TestRequireAuth_LowercaseScheme(t *testing.T) {
	router, seen := claimsRouter(RequireAuth(newTokenManager()))

	w := doRequest(router, "bearer "+signToken(t, "user-1", jwt.RoleClient, ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", *seen)
}

func TestRequireAuth_MissingToken(t *testing.T) {
	router, seen := claimsRouter(RequireAuth(newTokenManager()))

	w := doRequest(router, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, *seen, "handler should not run")
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	router, _ := claimsRouter(RequireAuth(newTokenManager()))

	other := jwt.NewTokenManager("another-secret-key-with-32-characters!", "psysupport", 1)
	forged, err := other.GenerateToken("user-1", "Mallory", jwt.RoleClient, "")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, doRequest(router, "Bearer "+forged).Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(router, "Bearer not-a-jwt").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(router, "Basic dXNlcjpwYXNz").Code)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	router, _ := claimsRouter(RequireAuth(newTokenManager()))

	expired, err := jwt.NewTokenManager(testSecret, "psysupport", -1).GenerateToken("user-1", "Old", jwt.RoleClient, "")
	require.NoError(t, err)

	w := doRequest(router, "Bearer "+expired)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token expired")
}

func TestOptionalAuth(t *testing.T) {
	router, seen := claimsRouter(OptionalAuth(newTokenManager()))

	w := doRequest(router, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, *seen)

	w = doRequest(router, "Bearer garbage")
	assert.Equal(t, http.StatusOK, w.Code, "invalid token is treated as anonymous")
	assert.Empty(t, *seen)

	w = doRequest(router, "Bearer "+signToken(t, "user-2", jwt.RoleClient, ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-2", *seen)
}

func TestRequirePsychologist(t *testing.T) {
	router, _ := claimsRouter(RequireAuth(newTokenManager()), RequirePsychologist())

	client := doRequest(router, "Bearer "+signToken(t, "user-1", jwt.RoleClient, ""))
	assert.Equal(t, http.StatusForbidden, client.Code)

	noProfile := doRequest(router, "Bearer "+signToken(t, "user-2", jwt.RolePsychologist, ""))
	assert.Equal(t, http.StatusForbidden, noProfile.Code)

	psychologist := doRequest(router, "Bearer "+signToken(t, "user-3", jwt.RolePsychologist, "psy-1"))
	assert.Equal(t, http.StatusOK, psychologist.Code)
}

func TestGetUserClaims_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetUserClaims(c)
	assert.ErrorIs(t, err, ErrClaimsNotFound)

	c.Set(UserClaimsContextKey, "not claims")
	_, err = GetUserClaims(c)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
