package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amosWeiskopf/seoautomation/pkg/automation"
	"github.com/amosWeiskopf/seoautomation/pkg/store"
)

const defaultLogLimit = 100

// taskTimeout bounds a dashboard-triggered task. The task is detached from
// the request, so a client disconnect does not abort it.
const taskTimeout = 10 * time.Minute

// reportFiles maps report types to stored JSON artifacts
var reportFiles = map[string]string{
	"rankings":      store.RankingsFile,
	"traffic":       store.TrafficFile,
	"conversions":   store.ConversionsFile,
	"technical":     store.TechnicalAuditFile,
	"full-analysis": store.FullAnalysisFile,
	"alerts":        store.AlertsFile,
	"notification":  store.NotificationStateFile,
	"content":       store.ContentStateFile,
}

const weeklyReportFile = "weekly-report.html"

func (s *Server) health(c *gin.Context) {
	h := s.orch.HealthCheck()
	code := http.StatusOK
	if h.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, h)
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.Status())
}

func (s *Server) runTask(c *gin.Context) {
	task := c.Param("task")
	s.log.Info("Task triggered from dashboard", map[string]any{"task": task})

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), taskTimeout)
	defer cancel()

	result, err := s.orch.RunTask(ctx, task)
	switch {
	case errors.Is(err, automation.ErrUnknownTask):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, automation.ErrTaskDisabled), errors.Is(err, automation.ErrTaskRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, result)
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) report(c *gin.Context) {
	kind := c.Param("type")
	st := s.orch.Store()

	if kind == "weekly" {
		data, err := st.ReadFile(weeklyReportFile)
		if err != nil {
			s.readError(c, kind, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
		return
	}

	name, ok := reportFiles[kind]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown report type: " + kind})
		return
	}
	data, err := st.ReadFile(name)
	if err != nil {
		s.readError(c, kind, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Server) readError(c *gin.Context, kind string, err error) {
	if store.IsNotExist(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not generated yet: " + kind})
		return
	}
	s.log.Error("Failed to read report", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read report"})
}

func (s *Server) services(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": s.orch.Services()})
}

func (s *Server) logs(c *gin.Context) {
	l, err := s.orch.Logger(c.Param("service"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := l.RecentLogs(limit)
	if err != nil {
		s.log.Error("Failed to read logs", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": l.Service(), "entries": entries})
}
