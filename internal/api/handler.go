package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/activityfeed/internal/config"
	"github.com/gyaneshwarpardhi/activityfeed/internal/ingest"
	"github.com/gyaneshwarpardhi/activityfeed/internal/query"
	"github.com/gyaneshwarpardhi/activityfeed/internal/store"
)

const datasetVersionHeader = "X-Dataset-Version"

// Handler holds all HTTP handler dependencies.
type Handler struct {
	store  *store.Store
	sched  *ingest.Scheduler
	logger *slog.Logger
}

// New creates an HTTP handler and registers all routes.
func New(st *store.Store, sched *ingest.Scheduler, conf config.HTTPConf, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{store: st, sched: sched, logger: logger}

	r := gin.New()
	r.Use(requestID(), loggingMiddleware(logger), recovery(logger), corsMiddleware(conf.CORSOrigins))

	r.GET("/summary", instrument("summary"), h.summary)
	r.GET("/action_trends", instrument("action_trends"), h.actionTrends)
	r.GET("/v1/dataset", h.dataset)
	r.POST("/v1/dataset/reload", h.reload)
	r.GET("/v1/loads/last", h.lastLoad)
	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type summaryQuery struct {
	UserID    string `form:"user_id"`
	StartTime string `form:"start_time"`
	EndTime   string `form:"end_time"`
}

type windowQuery struct {
	StartTime string `form:"start_time"`
	EndTime   string `form:"end_time"`
}

// GET /summary — one user's activity inside [start_time, end_time].
func (h *Handler) summary(c *gin.Context) {
	var q summaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("invalid query: %s", err))
		return
	}
	p, err := query.ParseSummary(q.UserID, q.StartTime, q.EndTime)
	if err != nil {
		writeErr(c, err)
		return
	}
	ds := h.store.Current()
	c.Header(datasetVersionHeader, ds.Version)
	c.JSON(http.StatusOK, query.Summarize(ds.Records, p))
}

// GET /action_trends — top (user, action) pairs inside [start_time, end_time].
func (h *Handler) actionTrends(c *gin.Context) {
	var q windowQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("invalid query: %s", err))
		return
	}
	w, err := query.ParseWindow(q.StartTime, q.EndTime)
	if err != nil {
		writeErr(c, err)
		return
	}
	ds := h.store.Current()
	c.Header(datasetVersionHeader, ds.Version)
	c.JSON(http.StatusOK, query.Trends(ds.Records, w, query.DefaultTrendLimit))
}

// GET /v1/dataset — size, version and a sample of the published dataset.
func (h *Handler) dataset(c *gin.Context) {
	ds := h.store.Current()
	if ds.Empty() {
		c.JSON(http.StatusOK, gin.H{"error": "dataset empty", "total": 0})
		return
	}
	first := ds.Records[0]
	c.Header(datasetVersionHeader, ds.Version)
	c.JSON(http.StatusOK, gin.H{
		"total":            ds.Len(),
		"version":          ds.Version,
		"source":           ds.Source,
		"loaded_at":        ds.LoadedAt,
		"fingerprint":      fmt.Sprintf("%016x", ds.Fingerprint),
		"sample":           first,
		"timestamp_sample": first.Timestamp,
		"date_human":       first.Time().Format(time.RFC3339Nano),
	})
}

// POST /v1/dataset/reload — queue a fresh load from the feed.
func (h *Handler) reload(c *gin.Context) {
	id, err := h.sched.Trigger(ingest.TriggerOperator)
	if err != nil {
		writeErr(c, err)
		return
	}
	h.logger.Info("reload requested", "load_id", id, "request_id", c.GetString("request_id"))
	c.JSON(http.StatusAccepted, gin.H{"load_id": id, "status": ingest.StatusQueued})
}

// GET /v1/loads/last — report of the most recent load attempt.
func (h *Handler) lastLoad(c *gin.Context) {
	rep := h.sched.Last()
	if rep == nil {
		writeError(c, http.StatusNotFound, "no load has run yet")
		return
	}
	c.JSON(http.StatusOK, rep)
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /readyz — 503 until the first dataset has been published.
func (h *Handler) readyz(c *gin.Context) {
	ds := h.store.Current()
	if !h.store.Loaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "loading",
			"last_load": h.sched.Last(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ready",
		"records":      ds.Len(),
		"version":      ds.Version,
		"load_running": h.sched.Running(),
		"pending":      h.sched.Pending(),
		"queue_cap":    h.sched.Capacity(),
	})
}
