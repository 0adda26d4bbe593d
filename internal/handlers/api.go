package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shoplytics/internal/config"
	"shoplytics/internal/errors"
	"shoplytics/internal/services"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	dashboard config.DashboardConfig
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger, dashboard config.DashboardConfig) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
		dashboard: dashboard,
	}
}

// parseDateRange reads the inclusive start/end filter. Anything short of two
// valid endpoints means no filtering.
func parseDateRange(r *http.Request) (from, to *time.Time) {
	start, err := time.Parse("2006-01-02", r.URL.Query().Get("start"))
	if err != nil {
		return nil, nil
	}
	end, err := time.Parse("2006-01-02", r.URL.Query().Get("end"))
	if err != nil {
		return nil, nil
	}
	return &start, &end
}

func parseNames(r *http.Request) []string {
	raw := r.URL.Query().Get("names")
	if raw == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func parseLimit(r *http.Request, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		return v
	}
	return fallback
}

func parseViewRequest(r *http.Request) services.ViewRequest {
	from, to := parseDateRange(r)
	return services.ViewRequest{
		Section:    services.ParseSection(r.URL.Query().Get("section")),
		From:       from,
		To:         to,
		Categories: parseNames(r),
		AxisX:      r.URL.Query().Get("x"),
		AxisY:      r.URL.Query().Get("y"),
	}
}

func writeCached(w http.ResponseWriter, data any) {
	errors.WriteSuccessWithHeaders(w, data, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.analytics.Overview())
}

func (h *APIHandlers) HandleMonthlySales(w http.ResponseWriter, r *http.Request) {
	from, to := parseDateRange(r)
	writeCached(w, h.analytics.MonthlySales(from, to))
}

func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.analytics.CategoryTable(parseNames(r)))
}

func (h *APIHandlers) HandleCategoryNames(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.analytics.CategoryNames())
}

func (h *APIHandlers) HandleTopCategories(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.analytics.TopCategories(parseLimit(r, h.dashboard.TopCategories)))
}

func (h *APIHandlers) HandleBottomCategories(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.analytics.BottomCategories(parseLimit(r, h.dashboard.BottomCategories)))
}

func (h *APIHandlers) HandleRFM(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.analytics.RFM())
}

func (h *APIHandlers) HandleRFMScatter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeCached(w, h.analytics.RFMScatter(q.Get("x"), q.Get("y")))
}

func (h *APIHandlers) HandleDelivery(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.analytics.DeliverySummary())
}

func (h *APIHandlers) HandleDeliveryRecords(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.analytics.Deliveries())
}

func (h *APIHandlers) HandlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.analytics.PaymentMethods())
}

func (h *APIHandlers) HandleReviews(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.analytics.Reviews())
}

func (h *APIHandlers) HandleCustomerStates(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.analytics.CustomerStates(parseLimit(r, h.dashboard.TopStates)))
}

// HandleView serves a whole section in one response, filters applied.
func (h *APIHandlers) HandleView(w http.ResponseWriter, r *http.Request) {
	writeCached(w, h.analytics.BuildView(parseViewRequest(r)))
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
