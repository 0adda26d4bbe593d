package services

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"shoplytics/internal/models"
)

// Snapshot holds every derived view of one dataset load. It is immutable
// once installed; a reload replaces the whole value and bumps Version, which
// is the memoization key for all downstream reads.
type Snapshot struct {
	Overview       models.OverviewMetrics      `json:"overview"`
	MonthlyTrend   []models.MonthlyBucket      `json:"monthly_trend"`
	Categories     []models.CategoryStats      `json:"categories"`
	RFM            []models.RFMRecord          `json:"rfm"`
	Deliveries     []models.DeliveryRecord     `json:"deliveries"`
	PaymentMethods []models.PaymentMethodStats `json:"payment_methods"`
	Reviews        []models.ReviewBucket       `json:"reviews"`
	States         []models.StateCustomers     `json:"states"`
	LastModified   time.Time                   `json:"last_modified"`
	RecordCount    int64                       `json:"record_count"`
	Version        int64                       `json:"version"`
}

type Analytics struct {
	mu       sync.RWMutex
	snapshot *Snapshot
	csvPath  string
	cacheDir string
	version  atomic.Int64
	logger   *slog.Logger
}

func NewAnalytics() *Analytics {
	return &Analytics{
		snapshot: &Snapshot{},
		cacheDir: defaultCacheDir,
		logger:   slog.Default(),
	}
}

// SetCacheDir overrides where the derived-snapshot gob cache lives.
func (a *Analytics) SetCacheDir(dir string) {
	if dir != "" {
		a.cacheDir = dir
	}
}

// SetData installs a snapshot computed from in-memory order lines, bypassing
// the CSV path. Used by tests and tooling.
func (a *Analytics) SetData(lines []models.OrderLine) {
	snap := computeSnapshot(lines)
	snap.Version = a.version.Add(1)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshot = snap
}

func computeSnapshot(lines []models.OrderLine) *Snapshot {
	deliveries := aggregateDeliveries(lines)
	reviews, avgReview := aggregateReviews(lines)

	orders := make(map[string]struct{})
	revenue := 0.0
	for _, line := range lines {
		orders[line.OrderID] = struct{}{}
		revenue += line.Price
	}

	overview := models.OverviewMetrics{
		TotalOrders:    len(orders),
		TotalRevenue:   revenue,
		OnTimeRate:     onTimeRate(deliveries),
		AvgReviewScore: avgReview,
	}
	if overview.TotalOrders > 0 {
		v := revenue / float64(overview.TotalOrders)
		overview.AvgOrderValue = &v
	}

	return &Snapshot{
		Overview:       overview,
		MonthlyTrend:   aggregateMonthly(lines),
		Categories:     aggregateCategories(lines),
		RFM:            aggregateRFM(lines),
		Deliveries:     deliveries,
		PaymentMethods: aggregatePayments(lines),
		Reviews:        reviews,
		States:         aggregateStates(lines),
		LastModified:   time.Now(),
		RecordCount:    int64(len(lines)),
	}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// wholeDays floor-truncates the span between two timestamps to whole days.
func wholeDays(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}

// aggregateMonthly buckets order lines by calendar month of purchase using
// continuous framing: every month between the dataset's first and last
// purchase month appears, zero-filled when no record falls inside it.
func aggregateMonthly(lines []models.OrderLine) []models.MonthlyBucket {
	if len(lines) == 0 {
		return []models.MonthlyBucket{}
	}

	type acc struct {
		orders  map[string]struct{}
		revenue float64
	}
	buckets := make(map[time.Time]*acc)

	var first, last time.Time
	for _, line := range lines {
		m := monthStart(line.PurchasedAt)
		b := buckets[m]
		if b == nil {
			b = &acc{orders: make(map[string]struct{})}
			buckets[m] = b
		}
		b.orders[line.OrderID] = struct{}{}
		b.revenue += line.Price

		if first.IsZero() || m.Before(first) {
			first = m
		}
		if last.IsZero() || m.After(last) {
			last = m
		}
	}

	result := make([]models.MonthlyBucket, 0, len(buckets))
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		row := models.MonthlyBucket{Month: m}
		if b := buckets[m]; b != nil {
			row.OrderCount = len(b.orders)
			row.Revenue = b.revenue
		}
		if row.OrderCount > 0 {
			v := row.Revenue / float64(row.OrderCount)
			row.AvgOrderValue = &v
		}
		result = append(result, row)
	}
	return result
}

// aggregateCategories ranks categories by total sales descending. Ties
// resolve lexically by category name, consistently for the full table and
// both ranked views.
func aggregateCategories(lines []models.OrderLine) []models.CategoryStats {
	type acc struct {
		orders        map[string]struct{}
		count         int
		min, max, sum float64
	}
	groups := make(map[string]*acc)

	for _, line := range lines {
		g := groups[line.Category]
		if g == nil {
			g = &acc{orders: make(map[string]struct{}), min: line.Price, max: line.Price}
			groups[line.Category] = g
		}
		g.orders[line.OrderID] = struct{}{}
		g.count++
		if line.Price < g.min {
			g.min = line.Price
		}
		if line.Price > g.max {
			g.max = line.Price
		}
		g.sum += line.Price
	}

	result := make([]models.CategoryStats, 0, len(groups))
	for name, g := range groups {
		result = append(result, models.CategoryStats{
			Category:   name,
			OrderCount: len(g.orders),
			ItemCount:  g.count,
			MinPrice:   g.min,
			AvgPrice:   g.sum / float64(g.count),
			MaxPrice:   g.max,
			TotalSales: g.sum,
		})
	}

	slices.SortFunc(result, func(a, b models.CategoryStats) int {
		if a.TotalSales > b.TotalSales {
			return -1
		}
		if a.TotalSales < b.TotalSales {
			return 1
		}
		return strings.Compare(a.Category, b.Category)
	})
	return result
}

// aggregateRFM computes recency against the single dataset-wide maximum
// purchase timestamp. Every customer keeps a row, even at frequency 1.
func aggregateRFM(lines []models.OrderLine) []models.RFMRecord {
	if len(lines) == 0 {
		return []models.RFMRecord{}
	}

	type acc struct {
		last     time.Time
		orders   map[string]struct{}
		monetary float64
	}
	groups := make(map[string]*acc)

	var globalMax time.Time
	for _, line := range lines {
		g := groups[line.CustomerID]
		if g == nil {
			g = &acc{orders: make(map[string]struct{})}
			groups[line.CustomerID] = g
		}
		if line.PurchasedAt.After(g.last) {
			g.last = line.PurchasedAt
		}
		g.orders[line.OrderID] = struct{}{}
		g.monetary += line.Price

		if line.PurchasedAt.After(globalMax) {
			globalMax = line.PurchasedAt
		}
	}

	result := make([]models.RFMRecord, 0, len(groups))
	for id, g := range groups {
		result = append(result, models.RFMRecord{
			CustomerID: id,
			Recency:    wholeDays(g.last, globalMax),
			Frequency:  len(g.orders),
			Monetary:   g.monetary,
		})
	}

	// Map iteration order must not leak into the output.
	slices.SortFunc(result, func(a, b models.RFMRecord) int {
		return strings.Compare(a.CustomerID, b.CustomerID)
	})
	return result
}

// aggregateDeliveries keeps one row per delivered order. Delivery timestamps
// are order-level, so among duplicate payment-split rows the first wins.
func aggregateDeliveries(lines []models.OrderLine) []models.DeliveryRecord {
	seen := make(map[string]struct{})
	result := make([]models.DeliveryRecord, 0)

	for _, line := range lines {
		if line.DeliveredAt == nil {
			continue
		}
		if _, ok := seen[line.OrderID]; ok {
			continue
		}
		seen[line.OrderID] = struct{}{}

		rec := models.DeliveryRecord{
			OrderID:    line.OrderID,
			ActualDays: wholeDays(line.PurchasedAt, *line.DeliveredAt),
		}
		if line.EstimatedDeliveryAt != nil {
			rec.EstimatedDays = wholeDays(line.PurchasedAt, *line.EstimatedDeliveryAt)
		}
		rec.Difference = rec.EstimatedDays - rec.ActualDays
		result = append(result, rec)
	}
	return result
}

func onTimeRate(deliveries []models.DeliveryRecord) float64 {
	if len(deliveries) == 0 {
		return 0
	}
	onTime := 0
	for _, d := range deliveries {
		if d.Difference >= 0 {
			onTime++
		}
	}
	return 100 * float64(onTime) / float64(len(deliveries))
}

func aggregatePayments(lines []models.OrderLine) []models.PaymentMethodStats {
	type acc struct {
		orders map[string]struct{}
		value  float64
	}
	groups := make(map[string]*acc)

	for _, line := range lines {
		g := groups[line.PaymentType]
		if g == nil {
			g = &acc{orders: make(map[string]struct{})}
			groups[line.PaymentType] = g
		}
		g.orders[line.OrderID] = struct{}{}
		g.value += line.PaymentValue
	}

	result := make([]models.PaymentMethodStats, 0, len(groups))
	for name, g := range groups {
		result = append(result, models.PaymentMethodStats{
			PaymentType: name,
			OrderCount:  len(g.orders),
			TotalValue:  g.value,
		})
	}

	slices.SortFunc(result, func(a, b models.PaymentMethodStats) int {
		if a.OrderCount != b.OrderCount {
			return b.OrderCount - a.OrderCount
		}
		return strings.Compare(a.PaymentType, b.PaymentType)
	})
	return result
}

// aggregateReviews always yields the five score buckets. When no line has a
// score (including the column being absent from the file) the distribution
// stays zero-filled and the average is 0.
func aggregateReviews(lines []models.OrderLine) ([]models.ReviewBucket, float64) {
	var counts [5]int
	total := 0
	sum := 0.0

	for _, line := range lines {
		if line.ReviewScore == nil {
			continue
		}
		score := int(*line.ReviewScore)
		if score < 1 || score > 5 {
			continue
		}
		counts[score-1]++
		total++
		sum += *line.ReviewScore
	}

	buckets := make([]models.ReviewBucket, 5)
	for i := range buckets {
		buckets[i] = models.ReviewBucket{Score: i + 1, Count: counts[i]}
		if total > 0 {
			buckets[i].Percentage = 100 * float64(counts[i]) / float64(total)
		}
	}

	avg := 0.0
	if total > 0 {
		avg = sum / float64(total)
	}
	return buckets, avg
}

func aggregateStates(lines []models.OrderLine) []models.StateCustomers {
	groups := make(map[string]map[string]struct{})
	for _, line := range lines {
		g := groups[line.CustomerState]
		if g == nil {
			g = make(map[string]struct{})
			groups[line.CustomerState] = g
		}
		g[line.CustomerID] = struct{}{}
	}

	result := make([]models.StateCustomers, 0, len(groups))
	for state, customers := range groups {
		result = append(result, models.StateCustomers{
			State:         state,
			CustomerCount: len(customers),
		})
	}

	slices.SortFunc(result, func(a, b models.StateCustomers) int {
		if a.CustomerCount != b.CustomerCount {
			return b.CustomerCount - a.CustomerCount
		}
		return strings.Compare(a.State, b.State)
	})
	return result
}

// Query methods: O(1) reads from the memoized snapshot, with filter
// parameters applied to copies at read time. The snapshot itself is never
// mutated.

func (a *Analytics) Overview() models.OverviewMetrics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot.Overview
}

// MonthlySales returns the trend restricted to the inclusive [from, to]
// window. An incomplete range (either endpoint nil) applies no filtering.
func (a *Analytics) MonthlySales(from, to *time.Time) []models.MonthlyBucket {
	a.mu.RLock()
	defer a.mu.RUnlock()

	series := a.snapshot.MonthlyTrend
	if from == nil || to == nil {
		return series
	}

	start := monthStart(*from)
	end := monthStart(*to)

	filtered := make([]models.MonthlyBucket, 0, len(series))
	for _, b := range series {
		if b.Month.Before(start) || b.Month.After(end) {
			continue
		}
		filtered = append(filtered, b)
	}
	return filtered
}

// CategoryTable returns per-category statistics, optionally restricted to
// the named categories. An empty selection means show all.
func (a *Analytics) CategoryTable(names []string) []models.CategoryStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	table := a.snapshot.Categories
	if len(names) == 0 {
		return table
	}

	selected := make(map[string]struct{}, len(names))
	for _, name := range names {
		selected[name] = struct{}{}
	}

	filtered := make([]models.CategoryStats, 0, len(names))
	for _, row := range table {
		if _, ok := selected[row.Category]; ok {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func (a *Analytics) CategoryNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.snapshot.Categories))
	for _, row := range a.snapshot.Categories {
		names = append(names, row.Category)
	}
	return names
}

func (a *Analytics) TopCategories(limit int) []models.CategoryRank {
	a.mu.RLock()
	defer a.mu.RUnlock()

	table := a.snapshot.Categories
	if limit > len(table) {
		limit = len(table)
	}

	ranks := make([]models.CategoryRank, 0, limit)
	for _, row := range table[:limit] {
		ranks = append(ranks, models.CategoryRank{Category: row.Category, TotalSales: row.TotalSales})
	}
	return ranks
}

// BottomCategories walks the same ranking from the other end, so the two
// views are exact reverses of each other on the same sums.
func (a *Analytics) BottomCategories(limit int) []models.CategoryRank {
	a.mu.RLock()
	defer a.mu.RUnlock()

	table := a.snapshot.Categories
	if limit > len(table) {
		limit = len(table)
	}

	ranks := make([]models.CategoryRank, 0, limit)
	for i := len(table) - 1; i >= len(table)-limit; i-- {
		ranks = append(ranks, models.CategoryRank{Category: table[i].Category, TotalSales: table[i].TotalSales})
	}
	return ranks
}

func (a *Analytics) RFM() []models.RFMRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot.RFM
}

// ScatterSpec maps the RFM table onto two plotted dimensions plus color and
// size encodings for the remaining ones.
type ScatterSpec struct {
	X      string             `json:"x"`
	Y      string             `json:"y"`
	Color  string             `json:"color"`
	Size   string             `json:"size"`
	Points []models.RFMRecord `json:"points"`
}

var rfmAxes = map[string]bool{
	"recency":   true,
	"frequency": true,
	"monetary":  true,
}

// RFMScatter picks the axis pair and the fallback encodings: color is
// monetary unless an axis already uses it, then frequency; size mirrors the
// same rule for frequency and monetary. Unknown axis names fall back to the
// recency/frequency default.
func (a *Analytics) RFMScatter(x, y string) ScatterSpec {
	if !rfmAxes[x] {
		x = "recency"
	}
	if !rfmAxes[y] {
		y = "frequency"
	}

	color := "monetary"
	if x == "monetary" || y == "monetary" {
		color = "frequency"
	}
	size := "frequency"
	if x == "frequency" || y == "frequency" {
		size = "monetary"
	}

	return ScatterSpec{X: x, Y: y, Color: color, Size: size, Points: a.RFM()}
}

func (a *Analytics) Deliveries() []models.DeliveryRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot.Deliveries
}

type DeliverySummary struct {
	DeliveredOrders  int     `json:"delivered_orders"`
	OnTimeRate       float64 `json:"on_time_rate"`
	AvgActualDays    float64 `json:"avg_actual_days"`
	AvgEstimatedDays float64 `json:"avg_estimated_days"`
}

func (a *Analytics) DeliverySummary() DeliverySummary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	deliveries := a.snapshot.Deliveries
	summary := DeliverySummary{
		DeliveredOrders: len(deliveries),
		OnTimeRate:      a.snapshot.Overview.OnTimeRate,
	}
	if len(deliveries) == 0 {
		return summary
	}

	actual, estimated := 0, 0
	for _, d := range deliveries {
		actual += d.ActualDays
		estimated += d.EstimatedDays
	}
	summary.AvgActualDays = float64(actual) / float64(len(deliveries))
	summary.AvgEstimatedDays = float64(estimated) / float64(len(deliveries))
	return summary
}

func (a *Analytics) PaymentMethods() []models.PaymentMethodStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot.PaymentMethods
}

func (a *Analytics) Reviews() []models.ReviewBucket {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot.Reviews
}

func (a *Analytics) CustomerStates(limit int) []models.StateCustomers {
	a.mu.RLock()
	defer a.mu.RUnlock()

	states := a.snapshot.States
	if limit > 0 && len(states) > limit {
		return states[:limit]
	}
	return states
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"record_count":     a.snapshot.RecordCount,
		"last_processed":   a.snapshot.LastModified,
		"snapshot_version": a.snapshot.Version,
		"months":           len(a.snapshot.MonthlyTrend),
		"categories":       len(a.snapshot.Categories),
		"customers":        len(a.snapshot.RFM),
		"delivered_orders": len(a.snapshot.Deliveries),
		"states":           len(a.snapshot.States),
	}
}
