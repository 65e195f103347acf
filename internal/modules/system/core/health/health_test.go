package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestCheck(t *testing.T) {
	cases := []struct {
		name         string
		store, redis Pinger
		want         string
	}{
		{"all up", up, up, StatusHealthy},
		{"no redis configured", up, nil, StatusHealthy},
		{"redis down", up, down, StatusDegraded},
		{"store down", down, up, StatusUnhealthy},
		{"both down", down, down, StatusUnhealthy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := NewChecker(tc.store, tc.redis).Check(t.Context())
			assert.Equal(t, tc.want, status.Status)
		})
	}

	status := NewChecker(up, down).Check(t.Context())
	assert.Equal(t, "connection refused", status.Dependencies["redis"].Message)
	assert.Equal(t, StatusHealthy, status.Dependencies["store"].Status)
}

func newRouter(checker *Checker, logDir string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api"), checker, logDir, func(c *gin.Context) { c.Next() })
	return r
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	r := newRouter(NewChecker(up, down), t.TempDir())
	rec := do(r, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	var body Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusDegraded, body.Status)

	r = newRouter(NewChecker(down, up), t.TempDir())
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/health").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/health/live").Code)
}

func TestLogRoutes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "footprint_2024-03-01.log"), []byte("hello\n"), 0o644))
	r := newRouter(NewChecker(up, nil), dir)

	rec := do(r, http.MethodGet, "/api/health/log/list")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []logItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "6 B", items[0].Size)

	rec = do(r, http.MethodGet, "/api/health/log?filename=../../footprint_2024-03-01.log")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello\n", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/health/log").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/health/log?filename=missing.log").Code)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/api/health/log?filename=footprint_2024-03-01.log").Code)
	_, err := os.Stat(filepath.Join(dir, "footprint_2024-03-01.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestFormatByteSize(t *testing.T) {
	assert.Equal(t, "512 B", formatByteSize(512))
	assert.Equal(t, "1.50 KB", formatByteSize(1536))
	assert.Equal(t, "2.00 MB", formatByteSize(2<<20))
}
