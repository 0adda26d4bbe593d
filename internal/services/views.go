package services

import (
	"time"

	"shoplytics/internal/models"
)

// Section is the sidebar selection driving which derived tables render.
type Section string

const (
	SectionOverview   Section = "overview"
	SectionSales      Section = "sales-trends"
	SectionCategories Section = "category-analysis"
	SectionCustomers  Section = "customer-analysis"
	SectionInsights   Section = "additional-insights"
)

// ParseSection falls back to the overview for anything unrecognized.
func ParseSection(s string) Section {
	switch Section(s) {
	case SectionSales, SectionCategories, SectionCustomers, SectionInsights:
		return Section(s)
	default:
		return SectionOverview
	}
}

// ViewRequest is the explicit application state for one render: the selected
// section plus the in-view filter choices. Filters only affect the sections
// that expose them; the rest ignore them.
type ViewRequest struct {
	Section    Section
	From       *time.Time
	To         *time.Time
	Categories []string
	AxisX      string
	AxisY      string
}

// ViewData carries the finished tables a section hands to the renderer.
type ViewData struct {
	Section          Section                     `json:"section"`
	Overview         *models.OverviewMetrics     `json:"overview,omitempty"`
	Monthly          []models.MonthlyBucket      `json:"monthly,omitempty"`
	TopCategories    []models.CategoryRank       `json:"top_categories,omitempty"`
	BottomCategories []models.CategoryRank       `json:"bottom_categories,omitempty"`
	CategoryTable    []models.CategoryStats      `json:"category_table,omitempty"`
	States           []models.StateCustomers     `json:"states,omitempty"`
	RFM              []models.RFMRecord          `json:"rfm,omitempty"`
	Scatter          *ScatterSpec                `json:"scatter,omitempty"`
	Delivery         *DeliverySummary            `json:"delivery,omitempty"`
	Deliveries       []models.DeliveryRecord     `json:"deliveries,omitempty"`
	PaymentMethods   []models.PaymentMethodStats `json:"payment_methods,omitempty"`
	Reviews          []models.ReviewBucket       `json:"reviews,omitempty"`
}

const (
	overviewTopCategories = 5
	rankedCategories      = 10
	topStates             = 10
)

// BuildView is the pure section dispatch: given the application state it
// assembles the derived tables for that section, nothing else.
func (a *Analytics) BuildView(req ViewRequest) ViewData {
	view := ViewData{Section: req.Section}

	switch req.Section {
	case SectionSales:
		view.Monthly = a.MonthlySales(req.From, req.To)

	case SectionCategories:
		view.TopCategories = a.TopCategories(rankedCategories)
		view.BottomCategories = a.BottomCategories(rankedCategories)
		view.CategoryTable = a.CategoryTable(req.Categories)

	case SectionCustomers:
		view.States = a.CustomerStates(topStates)
		view.RFM = a.RFM()
		scatter := a.RFMScatter(req.AxisX, req.AxisY)
		view.Scatter = &scatter

	case SectionInsights:
		summary := a.DeliverySummary()
		view.Delivery = &summary
		view.Deliveries = a.Deliveries()
		view.PaymentMethods = a.PaymentMethods()
		view.Reviews = a.Reviews()

	default:
		overview := a.Overview()
		view.Section = SectionOverview
		view.Overview = &overview
		view.TopCategories = a.TopCategories(overviewTopCategories)
		view.PaymentMethods = a.PaymentMethods()
		view.Reviews = a.Reviews()
	}

	return view
}
