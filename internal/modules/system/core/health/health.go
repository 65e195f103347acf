package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mx-space/footprint/internal/pkg/nativelog"
	"github.com/mx-space/footprint/internal/pkg/response"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// Status is the overall health report.
type Status struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the health of a single dependency.
type DependencyStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

// Checker probes the visit store and, when configured, Redis.
// A failing store makes the service unhealthy; a failing Redis only degrades it.
type Checker struct {
	store Pinger
	redis Pinger
}

func NewChecker(store, redis Pinger) *Checker {
	return &Checker{store: store, redis: redis}
}

// Check probes every configured dependency.
func (h *Checker) Check(ctx context.Context) Status {
	status := Status{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.store != nil {
		dep := probe(ctx, h.store)
		status.Dependencies["store"] = dep
		if dep.Status != StatusHealthy {
			status.Status = StatusUnhealthy
		}
	}
	if h.redis != nil {
		dep := probe(ctx, h.redis)
		status.Dependencies["redis"] = dep
		if dep.Status != StatusHealthy && status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}
	return status
}

func probe(ctx context.Context, ping Pinger) DependencyStatus {
	start := time.Now()
	err := ping(ctx)
	dep := DependencyStatus{Status: StatusHealthy, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
	}
	return dep
}

type logItem struct {
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Created  int64  `json:"created"`
}

// RegisterRoutes mounts the probes and the admin log browser.
func RegisterRoutes(rg *gin.RouterGroup, checker *Checker, logDir string, authMW gin.HandlerFunc) {
	rg.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := checker.Check(ctx)
		code := http.StatusOK
		if status.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})
	rg.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": StatusHealthy, "timestamp": time.Now()})
	})

	adminHealth := rg.Group("/health", authMW)
	logDir = nativelog.ResolveDir(logDir)
	logGroup := adminHealth.Group("/log")
	{
		logGroup.GET("/list", func(c *gin.Context) {
			entries, err := os.ReadDir(logDir)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					response.OK(c, []logItem{})
					return
				}
				response.InternalError(c, err)
				return
			}

			items := make([]logItem, 0, len(entries))
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				info, err := entry.Info()
				if err != nil {
					continue
				}
				items = append(items, logItem{
					Size:     formatByteSize(info.Size()),
					Filename: entry.Name(),
					Created:  info.ModTime().UnixMilli(),
				})
			}
			sort.Slice(items, func(i, j int) bool {
				return items[i].Created > items[j].Created
			})
			response.OK(c, items)
		})

		logGroup.GET("", func(c *gin.Context) {
			filename, ok := logFilename(c)
			if !ok {
				return
			}
			data, err := os.ReadFile(filepath.Join(logDir, filename))
			if err != nil {
				response.NotFoundMsg(c, "log file not exists")
				return
			}
			c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
		})

		logGroup.DELETE("", func(c *gin.Context) {
			filename, ok := logFilename(c)
			if !ok {
				return
			}
			target := filepath.Join(logDir, filename)
			var err error
			if filename == nativelog.TodayFilename(time.Now()) {
				// today's file is still being appended to
				err = os.WriteFile(target, nil, 0o644)
			} else {
				err = os.Remove(target)
			}
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				response.InternalError(c, err)
				return
			}
			response.NoContent(c)
		})
	}
}

func logFilename(c *gin.Context) (string, bool) {
	filename := filepath.Base(strings.TrimSpace(c.Query("filename")))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		response.BadRequest(c, "filename must be string")
		return "", false
	}
	return filename, true
}

func formatByteSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
