package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplytics/internal/models"
)

func newViewFixture() *Analytics {
	a := NewAnalytics()
	a.SetData([]models.OrderLine{
		{OrderID: "O1", CustomerID: "C1", Category: "toys", Price: 100, PaymentType: "credit_card", PaymentValue: 100,
			CustomerState: "SP", PurchasedAt: time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
			DeliveredAt: tp(time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)), EstimatedDeliveryAt: tp(time.Date(2023, 1, 20, 0, 0, 0, 0, time.UTC)),
			ReviewScore: fp(5)},
		{OrderID: "O2", CustomerID: "C2", Category: "books", Price: 50, PaymentType: "boleto", PaymentValue: 50,
			CustomerState: "RJ", PurchasedAt: time.Date(2023, 2, 5, 0, 0, 0, 0, time.UTC)},
		{OrderID: "O3", CustomerID: "C1", Category: "garden", Price: 25, PaymentType: "credit_card", PaymentValue: 25,
			CustomerState: "SP", PurchasedAt: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)},
	})
	return a
}

func TestParseSection(t *testing.T) {
	tests := []struct {
		input string
		want  Section
	}{
		{"overview", SectionOverview},
		{"sales-trends", SectionSales},
		{"category-analysis", SectionCategories},
		{"customer-analysis", SectionCustomers},
		{"additional-insights", SectionInsights},
		{"", SectionOverview},
		{"bogus", SectionOverview},
		{"Overview", SectionOverview},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSection(tt.input), "input %q", tt.input)
	}
}

func TestBuildView_Overview(t *testing.T) {
	a := newViewFixture()

	view := a.BuildView(ViewRequest{Section: SectionOverview})

	assert.Equal(t, SectionOverview, view.Section)
	require.NotNil(t, view.Overview)
	assert.Equal(t, 3, view.Overview.TotalOrders)
	assert.NotEmpty(t, view.TopCategories)
	assert.NotEmpty(t, view.PaymentMethods)
	assert.Len(t, view.Reviews, 5)
	assert.Nil(t, view.Monthly)
	assert.Nil(t, view.RFM)
}

func TestBuildView_UnknownSectionFallsBack(t *testing.T) {
	a := newViewFixture()

	view := a.BuildView(ViewRequest{Section: Section("bogus")})

	assert.Equal(t, SectionOverview, view.Section)
	assert.NotNil(t, view.Overview)
}

func TestBuildView_SalesTrends(t *testing.T) {
	a := newViewFixture()

	view := a.BuildView(ViewRequest{Section: SectionSales})
	require.Len(t, view.Monthly, 3)
	assert.Nil(t, view.Overview)

	from := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)

	filtered := a.BuildView(ViewRequest{Section: SectionSales, From: &from, To: &to})
	require.Len(t, filtered.Monthly, 1)
	assert.Equal(t, 1, filtered.Monthly[0].OrderCount)

	// Only one endpoint set: the filter does not apply.
	partial := a.BuildView(ViewRequest{Section: SectionSales, From: &from})
	assert.Len(t, partial.Monthly, 3)
}

func TestBuildView_Categories(t *testing.T) {
	a := newViewFixture()

	view := a.BuildView(ViewRequest{Section: SectionCategories})

	// No selection shows every category.
	assert.Len(t, view.CategoryTable, 3)
	require.Len(t, view.TopCategories, 3)
	require.Len(t, view.BottomCategories, 3)
	assert.Equal(t, "toys", view.TopCategories[0].Category)
	assert.Equal(t, "garden", view.BottomCategories[0].Category)

	selected := a.BuildView(ViewRequest{Section: SectionCategories, Categories: []string{"books"}})
	require.Len(t, selected.CategoryTable, 1)
	assert.Equal(t, "books", selected.CategoryTable[0].Category)

	// The ranked views ignore the selection.
	assert.Len(t, selected.TopCategories, 3)
}

func TestBuildView_CustomerAnalysis(t *testing.T) {
	a := newViewFixture()

	view := a.BuildView(ViewRequest{Section: SectionCustomers, AxisX: "recency", AxisY: "monetary"})

	assert.Len(t, view.RFM, 2)
	assert.NotEmpty(t, view.States)
	require.NotNil(t, view.Scatter)
	assert.Equal(t, "recency", view.Scatter.X)
	assert.Equal(t, "monetary", view.Scatter.Y)
	assert.Equal(t, "frequency", view.Scatter.Color, "color falls back when monetary is on an axis")
	assert.Equal(t, "monetary", view.Scatter.Size)
}

func TestRFMScatter_AxisFallbacks(t *testing.T) {
	a := newViewFixture()

	tests := []struct {
		x, y                              string
		wantX, wantY, wantColor, wantSize string
	}{
		{"recency", "frequency", "recency", "frequency", "monetary", "monetary"},
		{"recency", "monetary", "recency", "monetary", "frequency", "frequency"},
		{"frequency", "monetary", "frequency", "monetary", "frequency", "monetary"},
		{"monetary", "monetary", "monetary", "monetary", "frequency", "frequency"},
		{"", "", "recency", "frequency", "monetary", "monetary"},
		{"bogus", "recency", "recency", "recency", "monetary", "frequency"},
	}

	for _, tt := range tests {
		spec := a.RFMScatter(tt.x, tt.y)
		assert.Equal(t, tt.wantX, spec.X, "x for (%q,%q)", tt.x, tt.y)
		assert.Equal(t, tt.wantY, spec.Y, "y for (%q,%q)", tt.x, tt.y)
		assert.Equal(t, tt.wantColor, spec.Color, "color for (%q,%q)", tt.x, tt.y)
		assert.Equal(t, tt.wantSize, spec.Size, "size for (%q,%q)", tt.x, tt.y)
		assert.Len(t, spec.Points, 2)
	}
}

func TestBuildView_Insights(t *testing.T) {
	a := newViewFixture()

	view := a.BuildView(ViewRequest{Section: SectionInsights})

	require.NotNil(t, view.Delivery)
	assert.Equal(t, 1, view.Delivery.DeliveredOrders)
	assert.Equal(t, 100.0, view.Delivery.OnTimeRate)
	assert.Len(t, view.Deliveries, 1)
	assert.Len(t, view.PaymentMethods, 2)
	assert.Len(t, view.Reviews, 5)
	assert.Nil(t, view.Overview)
}
