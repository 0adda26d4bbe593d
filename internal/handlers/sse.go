package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"shoplytics/internal/services"
)

const maxTableRows = 50

var sectionTemplates = template.Must(template.New("sections").Funcs(template.FuncMap{
	"money": func(v *float64) string {
		if v == nil {
			return "—"
		}
		return fmt.Sprintf("%.2f", *v)
	},
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
}).Parse(`
{{define "overview"}}
<div id="section-content">
<div class="metric-cards">
<div class="metric"><span>Total Orders</span><strong>{{.Overview.TotalOrders}}</strong></div>
<div class="metric"><span>Total Revenue</span><strong>{{printf "%.2f" .Overview.TotalRevenue}}</strong></div>
<div class="metric"><span>Avg Order Value</span><strong>{{money .Overview.AvgOrderValue}}</strong></div>
<div class="metric"><span>On-time Delivery</span><strong>{{pct .Overview.OnTimeRate}}</strong></div>
<div class="metric"><span>Avg Review</span><strong>{{printf "%.2f" .Overview.AvgReviewScore}}</strong></div>
</div>
</div>
{{end}}

{{define "sales-trends"}}
<div id="section-content">
<table class="modern-table">
<thead><tr><th>Month</th><th>Orders</th><th>Revenue</th><th>Avg Order Value</th></tr></thead>
<tbody>
{{range .Monthly}}<tr>
<td>{{.Month.Format "2006-01"}}</td>
<td>{{.OrderCount}}</td>
<td>{{printf "%.2f" .Revenue}}</td>
<td>{{money .AvgOrderValue}}</td>
</tr>{{end}}
</tbody>
</table>
</div>
{{end}}

{{define "category-analysis"}}
<div id="section-content">
<table class="modern-table">
<thead><tr><th>Category</th><th>Orders</th><th>Items</th><th>Min</th><th>Avg</th><th>Max</th><th>Total Sales</th></tr></thead>
<tbody>
{{range $i, $row := .CategoryTable}}{{if lt $i $.MaxRows}}<tr>
<td><span class="category-badge">{{.Category}}</span></td>
<td>{{.OrderCount}}</td>
<td>{{.ItemCount}}</td>
<td>{{printf "%.2f" .MinPrice}}</td>
<td>{{printf "%.2f" .AvgPrice}}</td>
<td>{{printf "%.2f" .MaxPrice}}</td>
<td><strong>{{printf "%.2f" .TotalSales}}</strong></td>
</tr>{{end}}{{end}}
</tbody>
</table>
</div>
{{end}}

{{define "customer-analysis"}}
<div id="section-content">
<table class="modern-table">
<thead><tr><th>Customer</th><th>Recency (days)</th><th>Frequency</th><th>Monetary</th></tr></thead>
<tbody>
{{range $i, $row := .RFM}}{{if lt $i $.MaxRows}}<tr>
<td>{{.CustomerID}}</td>
<td>{{.Recency}}</td>
<td>{{.Frequency}}</td>
<td>{{printf "%.2f" .Monetary}}</td>
</tr>{{end}}{{end}}
</tbody>
</table>
</div>
{{end}}

{{define "additional-insights"}}
<div id="section-content">
<div class="metric-cards">
<div class="metric"><span>On-time Delivery</span><strong>{{pct .Delivery.OnTimeRate}}</strong></div>
<div class="metric"><span>Avg Actual Days</span><strong>{{printf "%.1f" .Delivery.AvgActualDays}}</strong></div>
<div class="metric"><span>Avg Estimated Days</span><strong>{{printf "%.1f" .Delivery.AvgEstimatedDays}}</strong></div>
</div>
<table class="modern-table">
<thead><tr><th>Payment Type</th><th>Orders</th><th>Total Value</th></tr></thead>
<tbody>
{{range .PaymentMethods}}<tr>
<td>{{.PaymentType}}</td>
<td>{{.OrderCount}}</td>
<td>{{printf "%.2f" .TotalValue}}</td>
</tr>{{end}}
</tbody>
</table>
</div>
{{end}}
`))

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type sectionTemplateData struct {
	services.ViewData
	MaxRows int
}

func renderSection(view services.ViewData) (string, error) {
	var buf strings.Builder
	data := sectionTemplateData{ViewData: view, MaxRows: maxTableRows}
	err := sectionTemplates.ExecuteTemplate(&buf, string(view.Section), data)
	return buf.String(), err
}

// HandleSection patches the active section's content and pushes the chart
// data as signals, with the in-view filters applied.
func (h *SSEHandlers) HandleSection(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	view := h.analytics.BuildView(parseViewRequest(r))

	html, err := renderSection(view)
	if err != nil {
		h.logger.Error("render section", "section", view.Section, "error", err)
		return
	}
	sse.PatchElements(html)

	signals, err := json.Marshal(map[string]any{
		"view": view,
	})
	if err != nil {
		h.logger.Error("marshal view signals", "section", view.Section, "error", err)
		return
	}
	sse.PatchSignals(signals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleRefreshAll repatches the overview and pushes every section's chart
// data in one stream.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	overview := h.analytics.BuildView(services.ViewRequest{Section: services.SectionOverview})
	html, err := renderSection(overview)
	if err != nil {
		h.logger.Error("render overview", "error", err)
		return
	}
	sse.PatchElements(html)

	allSignals, err := json.Marshal(map[string]any{
		"overview":   overview,
		"sales":      h.analytics.BuildView(services.ViewRequest{Section: services.SectionSales}),
		"categories": h.analytics.BuildView(services.ViewRequest{Section: services.SectionCategories}),
		"customers":  h.analytics.BuildView(services.ViewRequest{Section: services.SectionCustomers}),
		"insights":   h.analytics.BuildView(services.ViewRequest{Section: services.SectionInsights}),
	})
	if err != nil {
		h.logger.Error("marshal refresh signals", "error", err)
		return
	}
	sse.PatchSignals(allSignals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
