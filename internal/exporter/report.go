// Package exporter turns the derived dashboard tables into downloadable
// Excel workbooks and CSV files.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/xuri/excelize/v2"

	"shoplytics/internal/models"
)

// ReportData bundles the derived tables a report is built from.
type ReportData struct {
	Monthly    []models.MonthlyBucket
	Categories []models.CategoryStats
	RFM        []models.RFMRecord
	Deliveries []models.DeliveryRecord
}

type Exporter struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Exporter {
	return &Exporter{logger: logger}
}

const monthLayout = "2006-01"

type sheet struct {
	name    string
	headers []string
	rows    [][]any
}

func buildSheets(data ReportData) []sheet {
	monthly := sheet{
		name:    "Monthly",
		headers: []string{"month", "order_count", "revenue", "avg_order_value"},
	}
	for _, b := range data.Monthly {
		avg := any("")
		if b.AvgOrderValue != nil {
			avg = *b.AvgOrderValue
		}
		monthly.rows = append(monthly.rows, []any{b.Month.Format(monthLayout), b.OrderCount, b.Revenue, avg})
	}

	categories := sheet{
		name:    "Categories",
		headers: []string{"category", "order_count", "item_count", "min_price", "avg_price", "max_price", "total_sales"},
	}
	for _, c := range data.Categories {
		categories.rows = append(categories.rows, []any{c.Category, c.OrderCount, c.ItemCount, c.MinPrice, c.AvgPrice, c.MaxPrice, c.TotalSales})
	}

	rfm := sheet{
		name:    "RFM",
		headers: []string{"customer_id", "recency", "frequency", "monetary"},
	}
	for _, r := range data.RFM {
		rfm.rows = append(rfm.rows, []any{r.CustomerID, r.Recency, r.Frequency, r.Monetary})
	}

	delivery := sheet{
		name:    "Delivery",
		headers: []string{"order_id", "actual_delivery_time", "estimated_delivery_time", "delivery_difference"},
	}
	for _, d := range data.Deliveries {
		delivery.rows = append(delivery.rows, []any{d.OrderID, d.ActualDays, d.EstimatedDays, d.Difference})
	}

	return []sheet{monthly, categories, rfm, delivery}
}

// WriteWorkbook streams an Excel workbook with one sheet per derived table.
func (e *Exporter) WriteWorkbook(w io.Writer, data ReportData) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := buildSheets(data)
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(s.name); err != nil {
				return fmt.Errorf("create sheet %s: %w", s.name, err)
			}
		}

		for col, header := range s.headers {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(s.name, cell, header); err != nil {
				return err
			}
		}

		for rowIdx, row := range s.rows {
			for col, value := range row {
				cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(s.name, cell, value); err != nil {
					return err
				}
			}
		}
	}

	e.logger.Info("workbook assembled",
		"sheets", len(sheets),
		"monthly_rows", len(data.Monthly),
		"category_rows", len(data.Categories),
		"rfm_rows", len(data.RFM),
		"delivery_rows", len(data.Deliveries))

	return f.Write(w)
}

// CSVViews lists the view names WriteCSV accepts.
func CSVViews() []string {
	return []string{"monthly", "categories", "rfm", "delivery"}
}

// WriteCSV streams a single derived table as CSV. A UTF-8 BOM is prefixed so
// spreadsheet tools pick up the encoding.
func (e *Exporter) WriteCSV(w io.Writer, view string, data ReportData) error {
	var s sheet
	switch view {
	case "monthly":
		s = buildSheets(data)[0]
	case "categories":
		s = buildSheets(data)[1]
	case "rfm":
		s = buildSheets(data)[2]
	case "delivery":
		s = buildSheets(data)[3]
	default:
		return fmt.Errorf("unknown export view %q", view)
	}

	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(s.headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}

	for _, row := range s.rows {
		record := make([]string, len(row))
		for i, value := range row {
			record[i] = formatCell(value)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	return writer.Error()
}

func formatCell(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
