package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/raphaelgruber/veridata-go/internal/metrics"
	"github.com/raphaelgruber/veridata-go/internal/service"
)

type handlers struct {
	jobs     *service.JobRegistry
	analysis *service.AnalysisService
	stats    *metrics.Collector
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// startAnalysis launches a background analysis job and returns its id. The
// request only enqueues; progress is polled via the jobs endpoints.
func (h *handlers) startAnalysis(c *gin.Context) {
	jobID := h.analysis.StartAnalysis()
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

func (h *handlers) listJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.jobs.List()})
}

// jobInfo returns the job snapshot with log entries newer than the optional
// since query parameter.
func (h *handlers) jobInfo(c *gin.Context) {
	since := -1
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an integer"})
			return
		}
		since = parsed
	}

	info, ok := h.jobs.Info(c.Param("id"), since)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *handlers) cancelJob(c *gin.Context) {
	cancelled := h.jobs.RequestCancel(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

func (h *handlers) statsSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Snapshot())
}
