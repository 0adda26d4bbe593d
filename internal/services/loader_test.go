package services

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"shoplytics/internal/errors"
)

const csvHeader = "order_id,customer_id,product_category_name_english,price,payment_type,payment_value,review_score,order_purchase_timestamp,order_approved_at,order_delivered_carrier_date,order_delivered_customer_date,order_estimated_delivery_date,customer_state"

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp csv: %v", err)
	}
	return path
}

func newTestLoader(t *testing.T) *Analytics {
	t.Helper()
	a := NewAnalytics()
	a.SetCacheDir(t.TempDir())
	return a
}

func assertDataLoadError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Code != errors.CodeDataLoad {
		t.Errorf("expected code %s, got %s", errors.CodeDataLoad, appErr.Code)
	}
}

func TestLoadFromCSV(t *testing.T) {
	content := csvHeader + "\n" +
		"O1,C1,toys,10.00,credit_card,12.50,5,2023-01-05 10:30:00,2023-01-05 11:00:00,2023-01-07 09:00:00,2023-01-10 14:00:00,2023-01-13 00:00:00,SP\n" +
		"O1,C1,toys,5.00,credit_card,5.00,5,2023-01-05 10:30:00,2023-01-05 11:00:00,2023-01-07 09:00:00,2023-01-10 14:00:00,2023-01-13 00:00:00,SP\n" +
		"O2,C2,books,20.00,boleto,20.00,3,2023-02-14 08:00:00,,,2023-02-25 16:00:00,2023-02-20 00:00:00,RJ\n"

	a := newTestLoader(t)
	if err := a.LoadFromCSV(context.Background(), writeTempCSV(t, content)); err != nil {
		t.Fatalf("LoadFromCSV failed: %v", err)
	}

	overview := a.Overview()
	if overview.TotalOrders != 2 {
		t.Errorf("total orders: want 2, got %d", overview.TotalOrders)
	}
	if overview.TotalRevenue != 35 {
		t.Errorf("total revenue: want 35, got %f", overview.TotalRevenue)
	}

	stats := a.Stats()
	if stats["record_count"].(int64) != 3 {
		t.Errorf("record count: want 3 lines, got %v", stats["record_count"])
	}
	if stats["snapshot_version"].(int64) != 1 {
		t.Errorf("snapshot version: want 1 after first load, got %v", stats["snapshot_version"])
	}

	deliveries := a.Deliveries()
	if len(deliveries) != 2 {
		t.Errorf("expected 2 delivered orders, got %d", len(deliveries))
	}
}

func TestLoadFromCSV_MissingFile(t *testing.T) {
	a := newTestLoader(t)
	err := a.LoadFromCSV(context.Background(), filepath.Join(t.TempDir(), "no-such-file.csv"))
	assertDataLoadError(t, err)
}

func TestLoadFromCSV_EmptyFile(t *testing.T) {
	a := newTestLoader(t)
	err := a.LoadFromCSV(context.Background(), writeTempCSV(t, ""))
	assertDataLoadError(t, err)
}

func TestLoadFromCSV_HeaderOnly(t *testing.T) {
	a := newTestLoader(t)
	err := a.LoadFromCSV(context.Background(), writeTempCSV(t, csvHeader+"\n"))
	assertDataLoadError(t, err)
}

func TestLoadFromCSV_MissingRequiredColumn(t *testing.T) {
	content := "order_id,customer_id,price\nO1,C1,10.00\n"
	a := newTestLoader(t)
	err := a.LoadFromCSV(context.Background(), writeTempCSV(t, content))
	assertDataLoadError(t, err)
}

func TestLoadFromCSV_AllRowsInvalid(t *testing.T) {
	// Rows without a purchase timestamp never parse.
	content := csvHeader + "\n" +
		"O1,C1,toys,10.00,credit_card,10.00,5,,,,,,SP\n" +
		"O2,C2,toys,not-a-price,credit_card,10.00,5,2023-01-05 10:30:00,,,,,SP\n"

	a := newTestLoader(t)
	err := a.LoadFromCSV(context.Background(), writeTempCSV(t, content))
	assertDataLoadError(t, err)
}

func TestLoadFromCSV_SkipsInvalidRows(t *testing.T) {
	content := csvHeader + "\n" +
		"O1,C1,toys,10.00,credit_card,10.00,5,2023-01-05 10:30:00,,,,,SP\n" +
		"O2,C2,toys,bad,credit_card,10.00,5,2023-01-06 10:30:00,,,,,SP\n" +
		"O3,C3,toys,30.00,boleto,30.00,4,2023-01-07 10:30:00,,,,,RJ\n"

	a := newTestLoader(t)
	if err := a.LoadFromCSV(context.Background(), writeTempCSV(t, content)); err != nil {
		t.Fatalf("LoadFromCSV failed: %v", err)
	}
	if got := a.Overview().TotalOrders; got != 2 {
		t.Errorf("invalid rows should be skipped, want 2 orders, got %d", got)
	}
}

func TestLoadFromCSV_OptionalReviewColumn(t *testing.T) {
	header := "order_id,customer_id,product_category_name_english,price,payment_type,payment_value,order_purchase_timestamp,order_approved_at,order_delivered_carrier_date,order_delivered_customer_date,order_estimated_delivery_date,customer_state"
	content := header + "\n" +
		"O1,C1,toys,10.00,credit_card,10.00,2023-01-05 10:30:00,,,,,SP\n"

	a := newTestLoader(t)
	if err := a.LoadFromCSV(context.Background(), writeTempCSV(t, content)); err != nil {
		t.Fatalf("a file without review_score must still load: %v", err)
	}

	reviews := a.Reviews()
	if len(reviews) != 5 {
		t.Fatalf("expected zero-filled distribution, got %d buckets", len(reviews))
	}
	for _, b := range reviews {
		if b.Count != 0 {
			t.Errorf("bucket %d should be empty without a review column", b.Score)
		}
	}
	if avg := a.Overview().AvgReviewScore; avg != 0 {
		t.Errorf("average review score should be 0, got %f", avg)
	}
}

func TestLoadFromCSV_QuotedFields(t *testing.T) {
	content := csvHeader + "\n" +
		`O1,C1,"arts, crafts",10.00,credit_card,10.00,5,2023-01-05 10:30:00,,,,,SP` + "\n"

	a := newTestLoader(t)
	if err := a.LoadFromCSV(context.Background(), writeTempCSV(t, content)); err != nil {
		t.Fatalf("LoadFromCSV failed: %v", err)
	}

	table := a.CategoryTable(nil)
	if len(table) != 1 || table[0].Category != "arts, crafts" {
		t.Errorf("quoted category should survive parsing, got %+v", table)
	}
}

func TestLoadFromCSV_DateOnlyTimestamps(t *testing.T) {
	content := csvHeader + "\n" +
		"O1,C1,toys,10.00,credit_card,10.00,5,2023-01-05,,,2023-01-10,2023-01-13,SP\n"

	a := newTestLoader(t)
	if err := a.LoadFromCSV(context.Background(), writeTempCSV(t, content)); err != nil {
		t.Fatalf("LoadFromCSV failed: %v", err)
	}

	deliveries := a.Deliveries()
	if len(deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(deliveries))
	}
	if deliveries[0].ActualDays != 5 || deliveries[0].EstimatedDays != 8 {
		t.Errorf("date-only timestamps should parse: got actual=%d estimated=%d",
			deliveries[0].ActualDays, deliveries[0].EstimatedDays)
	}
}

func TestLoadFromCSV_CacheRoundTrip(t *testing.T) {
	content := csvHeader + "\n" +
		"O1,C1,toys,10.00,credit_card,10.00,5,2023-01-05 10:30:00,,,,,SP\n"
	path := writeTempCSV(t, content)

	a := newTestLoader(t)
	if err := a.LoadFromCSV(context.Background(), path); err != nil {
		t.Fatalf("first load failed: %v", err)
	}

	if _, err := os.Stat(a.cacheFilename(path)); err != nil {
		t.Fatalf("cache file should exist after load: %v", err)
	}

	// A second load serves from the cache; the numbers must not change and
	// the snapshot version must advance.
	if err := a.LoadFromCSV(context.Background(), path); err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if got := a.Overview().TotalOrders; got != 1 {
		t.Errorf("cached snapshot should match, want 1 order, got %d", got)
	}
	if v := a.Stats()["snapshot_version"].(int64); v != 2 {
		t.Errorf("snapshot version should advance on reload, got %v", v)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input   string
		wantNil bool
		wantErr bool
	}{
		{"2023-01-05 10:30:00", false, false},
		{"2023-01-05", false, false},
		{"", true, false},
		{"  ", true, false},
		{"05/01/2023", false, true},
	}

	for _, tt := range tests {
		got, err := parseTimestamp(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseTimestamp(%q) should fail", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTimestamp(%q) failed: %v", tt.input, err)
			continue
		}
		if (got == nil) != tt.wantNil {
			t.Errorf("parseTimestamp(%q) nil=%v, want %v", tt.input, got == nil, tt.wantNil)
		}
	}
}
