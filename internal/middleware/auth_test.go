package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mx-space/footprint/internal/pkg/jwt"
)

func adminRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/secret", Admin(), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c))
	})
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/secret", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAdmin(t *testing.T) {
	jwt.SetSecret("middleware-test")
	r := adminRouter()

	adminToken, err := jwt.Sign("root", jwt.RoleAdmin, time.Hour)
	require.NoError(t, err)
	readerToken, err := jwt.Sign("reader", "user", time.Hour)
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	})
	t.Run("garbage token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "not-a-jwt").Code)
	})
	t.Run("non admin", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, get(r, readerToken).Code)
	})
	t.Run("admin", func(t *testing.T) {
		rec := get(r, adminToken)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "root", rec.Body.String())
	})
}

func TestAdminAcceptsQueryToken(t *testing.T) {
	jwt.SetSecret("middleware-test")
	token, err := jwt.Sign("root", jwt.RoleAdmin, time.Hour)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	adminRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret?token="+token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "abc", NormalizeToken("  Bearer abc "))
	assert.Equal(t, "abc", NormalizeToken("bearer abc"))
	assert.Equal(t, "abc", NormalizeToken("abc"))
	assert.Equal(t, "", NormalizeToken("   "))
}
