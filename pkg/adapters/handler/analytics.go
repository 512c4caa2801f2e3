package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

type AnalyticsHandler struct {
	tracking ports.TrackingService
	reports  ports.AnalyticsService
}

func NewAnalyticsHandler(tracking ports.TrackingService, reports ports.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{tracking: tracking, reports: reports}
}

// PageView records one page load reported by the site's tracker script.
func (h *AnalyticsHandler) PageView(w http.ResponseWriter, r *http.Request) {
	var in ports.PageViewInput
	if !decodeBody(w, r, &in) {
		return
	}

	res, err := h.tracking.RecordPageView(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Report returns the admin analytics payload. ?range=7d or 30d selects the
// trend window; without it the configured default applies.
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	var opts ports.ReportOptions
	if v := r.URL.Query().Get("range"); v != "" {
		days, err := strconv.Atoi(strings.TrimSuffix(v, "d"))
		if err != nil || days <= 0 {
			writeBadRequest(w, "range must be 7d or 30d")
			return
		}
		opts.TrendDays = days
	}

	report, err := h.reports.Report(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
