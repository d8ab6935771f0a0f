package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/friendgraph/internal/db"
	"github.com/persistorai/friendgraph/internal/domain"
	"github.com/persistorai/friendgraph/internal/models"
)

// CrawlHandler serves crawl run endpoints.
type CrawlHandler struct {
	svc domain.CrawlService
	log *logrus.Logger
}

// NewCrawlHandler creates a CrawlHandler with the given service and logger.
func NewCrawlHandler(svc domain.CrawlService, log *logrus.Logger) *CrawlHandler {
	return &CrawlHandler{svc: svc, log: log}
}

// graphResponse wraps a node-link export with the schema version it was stored under.
type graphResponse struct {
	RunID         string `json:"run_id"`
	SchemaVersion int    `json:"schema_version"`
	models.NodeLink
}

// Create handles POST /api/v1/crawls. With ?async=true the crawl is queued
// and the response is 202 with the queued run.
func (h *CrawlHandler) Create(c *gin.Context) {
	var req models.CrawlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if parseBool(c.Query("async")) {
		run, err := h.svc.SubmitCrawl(c.Request.Context(), req)
		if err != nil {
			respondServiceError(c, h.log, err, "submitting crawl")

			return
		}

		h.log.WithFields(logrus.Fields{"action": "crawl.submit", "run_id": run.ID, "seed": run.Seed}).Info("audit")
		c.Header("Location", "/api/v1/crawls/"+run.ID)
		c.JSON(http.StatusAccepted, run)

		return
	}

	run, err := h.svc.StartCrawl(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, h.log, err, "running crawl")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "crawl.create", "run_id": run.ID, "seed": run.Seed, "nodes": run.NodeCount}).Info("audit")

	c.JSON(http.StatusCreated, run)
}

// List handles GET /api/v1/crawls.
func (h *CrawlHandler) List(c *gin.Context) {
	limit := parseInt(c.DefaultQuery("limit", "50"), 50)

	runs, err := h.svc.ListRuns(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, h.log, err, "listing crawl runs")

		return
	}

	if runs == nil {
		runs = []models.CrawlRun{}
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// Get handles GET /api/v1/crawls/:id.
func (h *CrawlHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if err := validatePathID(id); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	run, err := h.svc.GetRun(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err, "getting crawl run")

		return
	}

	c.JSON(http.StatusOK, run)
}

// Delete handles DELETE /api/v1/crawls/:id.
func (h *CrawlHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := validatePathID(id); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	if err := h.svc.DeleteRun(c.Request.Context(), id); err != nil {
		respondServiceError(c, h.log, err, "deleting crawl run")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "crawl.delete", "run_id": id}).Info("audit")

	c.Status(http.StatusNoContent)
}

// Graph handles GET /api/v1/crawls/:id/graph and returns the snapshot in
// node-link form.
func (h *CrawlHandler) Graph(c *gin.Context) {
	id := c.Param("id")
	if err := validatePathID(id); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	g, err := h.svc.Graph(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err, "loading crawl graph")

		return
	}

	c.JSON(http.StatusOK, graphResponse{
		RunID:         id,
		SchemaVersion: db.SchemaVersion(),
		NodeLink:      models.ToNodeLink(g),
	})
}
