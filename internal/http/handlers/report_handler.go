// Report endpoints. Each returns the structured view together with the
// MarkdownV2 text the bot sends for it.
//
//   - GET /reports/summary
//   - GET /reports/risk-areas?limit=N
//   - GET /regions/:name/history
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-corona-bot/internal/report"
	"github.com/tbourn/go-corona-bot/internal/services"
	"github.com/tbourn/go-corona-bot/internal/utils"
)

const (
	defaultRiskLimit = 50
	maxRiskLimit     = 500
)

// SummaryResponse is the national summary.
type SummaryResponse struct {
	Summary report.Summary `json:"summary"`
	Text    string         `json:"text"`
}

// RiskAreasResponse lists regions at or above the risk threshold.
type RiskAreasResponse struct {
	Date      time.Time         `json:"date"`
	Threshold int64             `json:"threshold"`
	Total     int               `json:"total"`
	RiskAreas []report.RiskArea `json:"risk_areas"`
	Text      string            `json:"text"`
}

// HistoryResponse is the per-region history.
type HistoryResponse struct {
	History report.History `json:"history"`
	Text    string         `json:"text"`
}

// Summary answers GET /reports/summary.
func (h *Handlers) Summary(c *gin.Context) {
	s, err := h.reports.Summarize(c.Request.Context(), h.reports.Today())
	if err != nil {
		internalError(c, ErrCodeReportFailed, "report could not be built", err)
		return
	}
	ok(c, http.StatusOK, SummaryResponse{Summary: s, Text: report.FormatSummary(s)})
}

// RiskAreas answers GET /reports/risk-areas. limit caps the JSON list only;
// the text always carries the full list.
func (h *Handlers) RiskAreas(c *gin.Context) {
	today := h.reports.Today()
	list, err := h.reports.RiskAreas(c.Request.Context(), today)
	if err != nil {
		internalError(c, ErrCodeReportFailed, "report could not be built", err)
		return
	}
	limit := utils.LimitParam(c.Query("limit"), defaultRiskLimit, maxRiskLimit)
	page := list
	if len(page) > limit {
		page = page[:limit]
	}
	ok(c, http.StatusOK, RiskAreasResponse{
		Date:      today,
		Threshold: report.RiskThreshold,
		Total:     len(list),
		RiskAreas: page,
		Text:      report.FormatRiskAreas(today, list),
	})
}

// RegionHistory answers GET /regions/:name/history. name is the region name
// as stored, e.g. "München, Landkreis".
func (h *Handlers) RegionHistory(c *gin.Context) {
	hist, err := h.reports.RegionHistory(c.Request.Context(), c.Param("name"))
	switch {
	case errors.Is(err, services.ErrRegionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	case err != nil:
		internalError(c, ErrCodeReportFailed, "report could not be built", err)
		return
	}
	ok(c, http.StatusOK, HistoryResponse{History: hist, Text: report.FormatHistory(hist)})
}
