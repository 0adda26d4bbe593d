package handlers

import (
	"log/slog"
	"net/http"

	"shoplytics/internal/errors"
	"shoplytics/internal/exporter"
	"shoplytics/internal/observability"
	"shoplytics/internal/services"
)

type ExportHandlers struct {
	analytics *services.Analytics
	exporter  *exporter.Exporter
	logger    *slog.Logger
}

func NewExportHandlers(analytics *services.Analytics, logger *slog.Logger) *ExportHandlers {
	return &ExportHandlers{
		analytics: analytics,
		exporter:  exporter.New(logger),
		logger:    logger,
	}
}

func (h *ExportHandlers) reportData() exporter.ReportData {
	return exporter.ReportData{
		Monthly:    h.analytics.MonthlySales(nil, nil),
		Categories: h.analytics.CategoryTable(nil),
		RFM:        h.analytics.RFM(),
		Deliveries: h.analytics.Deliveries(),
	}
}

func (h *ExportHandlers) HandleXLSX(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="dashboard-report.xlsx"`)

	if err := h.exporter.WriteWorkbook(w, h.reportData()); err != nil {
		// Headers are already out; all that is left is logging.
		h.logger.Error("write workbook", "error", err,
			"request_id", observability.GetRequestID(r.Context()))
	}
}

func (h *ExportHandlers) HandleCSV(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")

	valid := false
	for _, name := range exporter.CSVViews() {
		if name == view {
			valid = true
			break
		}
	}
	if !valid {
		requestID := observability.GetRequestID(r.Context())
		errors.WriteError(w, h.logger, errors.BadRequest("unknown export view"), requestID)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+view+`.csv"`)

	if err := h.exporter.WriteCSV(w, view, h.reportData()); err != nil {
		h.logger.Error("write csv export", "error", err, "view", view,
			"request_id", observability.GetRequestID(r.Context()))
	}
}
