package visitor

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/mx-space/footprint/internal/pkg/pagination"
	"github.com/mx-space/footprint/internal/pkg/response"
)

// Edge headers carrying the client's geo location.
const (
	HeaderCountry = "CF-IPCountry"
	HeaderCity    = "CF-IPCity"
)

// Handler exposes ingestion endpoints publicly and reporting endpoints to admins.
type Handler struct {
	svc       *Service
	engine    *Engine
	retention *Retention
}

func NewHandler(svc *Service, engine *Engine, retention *Retention) *Handler {
	return &Handler{svc: svc, engine: engine, retention: retention}
}

// RegisterRoutes mounts the visitor API under /visitors. ingestMW guards the public
// endpoints, adminMW the reporting ones.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc, ingestMW ...gin.HandlerFunc) {
	g := rg.Group("/visitors")

	public := g.Group("", ingestMW...)
	public.POST("/track", h.track)
	public.PUT("/update/:id", h.update)
	public.POST("/update/:id", h.update) // beacon delivery
	public.PUT("/update-session/:sessionId", h.updateSession)

	admin := g.Group("", adminMW)
	admin.GET("/analytics", h.analytics)
	admin.GET("/realtime", h.realtime)
	admin.GET("/visitors", h.list)
	admin.GET("/recent", h.recent)
	admin.GET("/debug", h.debug)
	admin.POST("/cleanup", h.cleanup)
	admin.DELETE("/cleanup-all", h.cleanupAll)
}

func (h *Handler) track(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	res, err := h.svc.Track(c.Request.Context(), TrackInput{
		Page:           req.Page,
		PageTitle:      req.PageTitle,
		SessionID:      req.SessionID,
		GuestID:        req.GuestID,
		UserID:         req.UserID,
		TimeOnPage:     req.TimeOnPage,
		IsBounce:       req.IsBounce,
		Converted:      req.Converted,
		ConversionType: req.ConversionType,
		IP:             c.ClientIP(),
		UserAgent:      c.GetHeader("User-Agent"),
		Referrer:       c.GetHeader("Referer"),
		Country:        strings.TrimSpace(c.GetHeader(HeaderCountry)),
		City:           strings.TrimSpace(c.GetHeader(HeaderCity)),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, trackResponse{Success: true, Message: res.Message(), VisitorID: res.VisitID})
}

// update accepts any content type so navigator.sendBeacon payloads parse as JSON.
func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := h.svc.Update(c.Request.Context(), c.Param("id"), req.patch()); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, updateResponse{Success: true, Message: "Visit updated successfully"})
}

func (h *Handler) updateSession(c *gin.Context) {
	var req sessionTimeRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request body")
		return
	}

	n, err := h.svc.UpdateSessionTime(c.Request.Context(), c.Param("sessionId"), req.SessionTime)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, sessionTimeResponse{
		Success:      true,
		Message:      "Session time updated successfully",
		UpdatedCount: n,
	})
}

func (h *Handler) analytics(c *gin.Context) {
	report, err := h.engine.Analytics(c.Request.Context(), c.DefaultQuery("period", DefaultPeriod))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, report)
}

func (h *Handler) realtime(c *gin.Context) {
	snap, err := h.engine.Realtime(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, snap)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	rows, total, err := h.engine.List(c.Request.Context(), ListQuery{
		Search: c.Query("search"),
		Offset: q.Offset(),
		Limit:  q.Limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Paged(c, "visitors", withoutUserAgent(rows), pagination.Meta(q, len(rows), total))
}

func (h *Handler) recent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultRecentLimit)))
	if err != nil {
		response.BadRequest(c, "limit must be a number")
		return
	}
	rows, err := h.engine.Recent(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, withoutUserAgent(rows))
}

func (h *Handler) debug(c *gin.Context) {
	out, err := h.engine.Debug(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, out)
}

func (h *Handler) cleanup(c *gin.Context) {
	report, err := h.retention.Run(c.Request.Context())
	if err != nil {
		response.InternalErrorWith(c, err, gin.H{
			"oldRecordsDeleted":       report.OldRecordsDeleted,
			"duplicateRecordsDeleted": report.DuplicateRecordsDeleted,
		})
		return
	}
	response.OK(c, cleanupResponse{Message: "Cleanup completed", CleanupReport: *report})
}

func (h *Handler) cleanupAll(c *gin.Context) {
	res, err := h.retention.PurgeAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, purgeResponse{Success: true, Message: res.Message(), DeletedCount: res.DeletedCount})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFoundMsg(c, "Visit not found")
	default:
		response.InternalError(c, err)
	}
}
