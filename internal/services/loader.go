package services

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"shoplytics/internal/errors"
	"shoplytics/internal/models"
)

const (
	batchSize       = 10000
	maxWorkers      = 8
	cacheVersion    = "v1"
	defaultCacheDir = ".cache"
)

// The dataset carries timezone-naive timestamps; both layouts occur.
var timestampLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

type columnIndex struct {
	orderID      int
	customerID   int
	category     int
	price        int
	paymentType  int
	paymentValue int
	purchased    int
	approved     int
	carrier      int
	delivered    int
	estimated    int
	state        int
	review       int // -1 when the optional review_score column is absent
}

func resolveColumns(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(name)] = i
	}

	idx := columnIndex{review: -1}
	required := []struct {
		name string
		dst  *int
	}{
		{"order_id", &idx.orderID},
		{"customer_id", &idx.customerID},
		{"product_category_name_english", &idx.category},
		{"price", &idx.price},
		{"payment_type", &idx.paymentType},
		{"payment_value", &idx.paymentValue},
		{"order_purchase_timestamp", &idx.purchased},
		{"order_approved_at", &idx.approved},
		{"order_delivered_carrier_date", &idx.carrier},
		{"order_delivered_customer_date", &idx.delivered},
		{"order_estimated_delivery_date", &idx.estimated},
		{"customer_state", &idx.state},
	}
	for _, col := range required {
		i, ok := pos[col.name]
		if !ok {
			return idx, fmt.Errorf("missing column %q", col.name)
		}
		*col.dst = i
	}

	// review_score is optional: absence degrades to a zero-filled
	// distribution instead of failing the load.
	if i, ok := pos["review_score"]; ok {
		idx.review = i
	}

	return idx, nil
}

func parseTimestamp(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseOptionalFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func parseOrderLine(record []string, cols columnIndex) (models.OrderLine, error) {
	purchased, err := parseTimestamp(field(record, cols.purchased))
	if err != nil {
		return models.OrderLine{}, err
	}
	if purchased == nil {
		return models.OrderLine{}, fmt.Errorf("missing purchase timestamp")
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(field(record, cols.price)), 64)
	if err != nil {
		return models.OrderLine{}, err
	}

	approved, err := parseTimestamp(field(record, cols.approved))
	if err != nil {
		return models.OrderLine{}, err
	}
	carrier, err := parseTimestamp(field(record, cols.carrier))
	if err != nil {
		return models.OrderLine{}, err
	}
	delivered, err := parseTimestamp(field(record, cols.delivered))
	if err != nil {
		return models.OrderLine{}, err
	}
	estimated, err := parseTimestamp(field(record, cols.estimated))
	if err != nil {
		return models.OrderLine{}, err
	}

	line := models.OrderLine{
		OrderID:             strings.TrimSpace(field(record, cols.orderID)),
		CustomerID:          strings.TrimSpace(field(record, cols.customerID)),
		Category:            strings.TrimSpace(field(record, cols.category)),
		Price:               price,
		PaymentType:         strings.TrimSpace(field(record, cols.paymentType)),
		PaymentValue:        parseOptionalFloat(field(record, cols.paymentValue)),
		PurchasedAt:         *purchased,
		ApprovedAt:          approved,
		CarrierHandoffAt:    carrier,
		DeliveredAt:         delivered,
		EstimatedDeliveryAt: estimated,
		CustomerState:       strings.TrimSpace(field(record, cols.state)),
	}

	if cols.review >= 0 {
		if s := strings.TrimSpace(field(record, cols.review)); s != "" {
			if score, err := strconv.ParseFloat(s, 64); err == nil {
				line.ReviewScore = &score
			}
		}
	}

	if line.OrderID == "" {
		return models.OrderLine{}, fmt.Errorf("missing order id")
	}

	return line, nil
}

// LoadFromCSV reads the dataset once and derives the full memoized snapshot.
// A warm gob cache keyed by path and cache version skips the recompute when
// the file has not changed since the snapshot was built.
func (a *Analytics) LoadFromCSV(ctx context.Context, filename string) error {
	a.csvPath = filename

	if cached, err := a.loadFromCache(filename); err == nil {
		if info, statErr := os.Stat(filename); statErr == nil && info.ModTime().Before(cached.LastModified) {
			cached.Version = a.version.Add(1)
			a.mu.Lock()
			a.snapshot = cached
			a.mu.Unlock()
			a.logger.Info("loaded derived snapshot from cache", "records", cached.RecordCount)
			return nil
		}
	}

	start := time.Now()
	a.logger.Info("processing dataset", "filename", filename)

	lines, err := a.readOrderLines(ctx, filename)
	if err != nil {
		return err
	}

	snap := computeSnapshot(lines)
	snap.Version = a.version.Add(1)

	a.mu.Lock()
	a.snapshot = snap
	a.mu.Unlock()

	if err := a.saveToCache(filename); err != nil {
		a.logger.Warn("failed to save snapshot cache", "error", err)
	}

	duration := time.Since(start)
	a.logger.Info("dataset processed",
		"records", snap.RecordCount,
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(snap.RecordCount)/duration.Seconds()))

	return nil
}

func (a *Analytics) readOrderLines(ctx context.Context, filename string) ([]models.OrderLine, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.DataLoadWrap(err, "open dataset file")
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReaderSize(file, 1<<20))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.DataLoad("dataset file is empty")
	}
	if err != nil {
		return nil, errors.DataLoadWrap(err, "read dataset header")
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, errors.DataLoadWrap(err, "resolve dataset columns")
	}

	var lines []models.OrderLine
	batch := make([][]string, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		parsed, err := parseBatch(ctx, batch, cols)
		if err != nil {
			return err
		}
		lines = append(lines, parsed...)
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.DataLoadWrap(err, "read dataset row")
		}
		batch = append(batch, record)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, errors.DataLoad("dataset contains no valid rows")
	}

	return lines, nil
}

func parseBatch(ctx context.Context, batch [][]string, cols columnIndex) ([]models.OrderLine, error) {
	results := make([]*models.OrderLine, len(batch))

	var wg errgroup.Group
	wg.SetLimit(maxWorkers)

	for i, record := range batch {
		wg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			line, err := parseOrderLine(record, cols)
			if err != nil {
				return nil // skip invalid rows
			}
			results[i] = &line
			return nil
		})
	}

	if err := wg.Wait(); err != nil {
		return nil, err
	}

	lines := make([]models.OrderLine, 0, len(batch))
	for _, line := range results {
		if line != nil {
			lines = append(lines, *line)
		}
	}
	return lines, nil
}

// Cache management
func (a *Analytics) cacheFilename(csvPath string) string {
	name := fmt.Sprintf("%s_%s.gob", strings.ReplaceAll(csvPath, string(os.PathSeparator), "_"), cacheVersion)
	return filepath.Join(a.cacheDir, name)
}

func (a *Analytics) saveToCache(csvPath string) error {
	if err := os.MkdirAll(a.cacheDir, 0755); err != nil {
		return err
	}

	file, err := os.Create(a.cacheFilename(csvPath))
	if err != nil {
		return err
	}
	defer file.Close()

	a.mu.RLock()
	defer a.mu.RUnlock()

	return gob.NewEncoder(file).Encode(a.snapshot)
}

func (a *Analytics) loadFromCache(csvPath string) (*Snapshot, error) {
	file, err := os.Open(a.cacheFilename(csvPath))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap Snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}

	return &snap, nil
}
