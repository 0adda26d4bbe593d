package server

import (
	"log/slog"
	"net/http"

	"shoplytics/internal/config"
	"shoplytics/internal/handlers"
	"shoplytics/internal/services"
)

type Server struct {
	analytics      *services.Analytics
	mux            *http.ServeMux
	logger         *slog.Logger
	apiHandlers    *handlers.APIHandlers
	sseHandlers    *handlers.SSEHandlers
	exportHandlers *handlers.ExportHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

// Options carries the optional route handlers the server exposes besides its
// own API surface.
type Options struct {
	Templates *TemplateHandlers
	Metrics   http.Handler
	Dashboard config.DashboardConfig
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, opts Options) *Server {
	s := &Server{
		analytics:      analytics,
		mux:            http.NewServeMux(),
		logger:         logger,
		apiHandlers:    handlers.NewAPIHandlers(analytics, logger, opts.Dashboard),
		sseHandlers:    handlers.NewSSEHandlers(analytics, logger),
		exportHandlers: handlers.NewExportHandlers(analytics, logger),
	}
	s.setupRoutes(opts)
	return s
}

func (s *Server) setupRoutes(opts Options) {
	// Dashboard routes
	if opts.Templates != nil && opts.Templates.Dashboard != nil {
		s.mux.HandleFunc("GET /", opts.Templates.Dashboard)
	}
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	if opts.Metrics != nil {
		s.mux.Handle("GET /metrics", opts.Metrics)
	}

	// REST API endpoints
	s.mux.HandleFunc("GET /api/overview", s.apiHandlers.HandleOverview)
	s.mux.HandleFunc("GET /api/monthly-sales", s.apiHandlers.HandleMonthlySales)
	s.mux.HandleFunc("GET /api/categories", s.apiHandlers.HandleCategories)
	s.mux.HandleFunc("GET /api/category-names", s.apiHandlers.HandleCategoryNames)
	s.mux.HandleFunc("GET /api/top-categories", s.apiHandlers.HandleTopCategories)
	s.mux.HandleFunc("GET /api/bottom-categories", s.apiHandlers.HandleBottomCategories)
	s.mux.HandleFunc("GET /api/rfm", s.apiHandlers.HandleRFM)
	s.mux.HandleFunc("GET /api/rfm-scatter", s.apiHandlers.HandleRFMScatter)
	s.mux.HandleFunc("GET /api/delivery", s.apiHandlers.HandleDelivery)
	s.mux.HandleFunc("GET /api/delivery-records", s.apiHandlers.HandleDeliveryRecords)
	s.mux.HandleFunc("GET /api/payment-methods", s.apiHandlers.HandlePaymentMethods)
	s.mux.HandleFunc("GET /api/reviews", s.apiHandlers.HandleReviews)
	s.mux.HandleFunc("GET /api/customer-states", s.apiHandlers.HandleCustomerStates)
	s.mux.HandleFunc("GET /api/view", s.apiHandlers.HandleView)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/section", s.sseHandlers.HandleSection)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)

	// Report downloads
	s.mux.HandleFunc("GET /export/xlsx", s.exportHandlers.HandleXLSX)
	s.mux.HandleFunc("GET /export/csv", s.exportHandlers.HandleCSV)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
