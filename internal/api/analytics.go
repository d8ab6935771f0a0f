package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/friendgraph/internal/analytics"
	"github.com/persistorai/friendgraph/internal/domain"
)

// maxTop caps the ranked list length a client may request.
const maxTop = 1000

// AnalyticsHandler serves structural metrics for stored runs.
type AnalyticsHandler struct {
	svc domain.AnalyticsService
	log *logrus.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(svc domain.AnalyticsService, log *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, log: log}
}

// Report handles GET /api/v1/crawls/:id/analytics.
//
// Query parameters: normalized (bool), top (int, 0 for the default, -1 to
// omit ranked lists), damping (float in (0, 1)).
func (h *AnalyticsHandler) Report(c *gin.Context) {
	id := c.Param("id")
	if err := validatePathID(id); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	opts, err := analyticsOptions(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	report, err := h.svc.Report(c.Request.Context(), id, opts)
	if err != nil {
		respondServiceError(c, h.log, err, "computing analytics")

		return
	}

	c.JSON(http.StatusOK, report)
}

func analyticsOptions(c *gin.Context) (analytics.Options, error) {
	opts := analytics.Options{
		Betweenness: analytics.BetweennessOptions{Normalized: parseBool(c.Query("normalized"))},
	}

	if s := c.Query("top"); s != "" {
		top, err := strconv.Atoi(s)
		if err != nil {
			return opts, errInvalidParam("top")
		}

		opts.Top = min(top, maxTop)
	}

	if s := c.Query("damping"); s != "" {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return opts, errInvalidParam("damping")
		}

		opts.PageRank.Damping = d
	}

	if err := opts.PageRank.Validate(); err != nil {
		return opts, err
	}

	return opts, nil
}
