package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims models.JWTClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func adminClaims() models.JWTClaims {
	return models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newProtectedRouter(secret string, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWT(secret)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.JSON(http.StatusOK, gin.H{"userId": claims.UserID})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestJWTAcceptsValidToken(t *testing.T) {
	router := newProtectedRouter(testSecret)

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, adminClaims(), testSecret))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "user-1")
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	router := newProtectedRouter(testSecret)

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	router := newProtectedRouter(testSecret)

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, adminClaims(), "other-secret"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	router := newProtectedRouter(testSecret)

	claims := adminClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims, testSecret))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRBACBlocksDisallowedRole(t *testing.T) {
	router := newProtectedRouter(testSecret, RequireRoles(models.RoleSuperAdmin))

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, adminClaims(), testSecret))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACAllowsListedRole(t *testing.T) {
	router := newProtectedRouter(testSecret, RequireRoles(models.RoleAdmin))

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, adminClaims(), testSecret))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}
