package crontask

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgcron "github.com/mx-space/footprint/internal/pkg/cron"
)

func newRouter(t *testing.T) (*gin.Engine, *pkgcron.Scheduler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sched := pkgcron.New(nil)
	require.NoError(t, sched.Register(pkgcron.Job{
		Name:     "cleanup_visitors",
		Interval: time.Hour,
		Fn:       func(context.Context) error { return errors.New("store down") },
	}))
	r := gin.New()
	NewHandler(sched).RegisterRoutes(r.Group("/api"), func(c *gin.Context) { c.Next() })
	return r, sched
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestCronTaskRoutes(t *testing.T) {
	r, sched := newRouter(t)

	rec := do(r, http.MethodGet, "/api/cron-task")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []pkgcron.ListItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "cleanup_visitors", items[0].Name)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/cron-task/cleanup_visitors/run").Code)
	assert.Eventually(t, func() bool {
		res, err := sched.GetTask("cleanup_visitors")
		return err == nil && res.Status == pkgcron.StatusReject
	}, time.Second, 5*time.Millisecond)

	rec = do(r, http.MethodGet, "/api/cron-task/cleanup_visitors")
	require.Equal(t, http.StatusOK, rec.Code)
	var res pkgcron.TaskResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "store down", res.Message)
}

func TestCronTaskUnknown(t *testing.T) {
	r, _ := newRouter(t)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/cron-task/nope").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/cron-task/nope/run").Code)
}
