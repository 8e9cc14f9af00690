package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/maltedev/storefront-scraper/internal/models"
)

// Columns is the fixed column order of the results table.
var Columns = []string{
	"run_id",
	"timestamp_utc",
	"mode",
	"source_url",
	"final_url",
	"product_url",
	"title",
	"price_regular",
	"price_promo",
	"promo_low_confidence",
	"currency",
	"availability",
	"stock_text",
	"seller",
	"brand",
	"model",
	"sku",
	"category",
	"description_short",
	"description_full",
	"images",
	"rating",
	"reviews_count",
	"http_status",
	"page_type_detected",
	"status",
	"error",
	"attempts",
	"elapsed_sec",
}

const resultsSheet = "results"

// cells returns the row values in Columns order. Absent prices and status
// codes are empty strings; numbers keep their numeric type.
func cells(row *models.ResultRow) []interface{} {
	images, err := json.Marshal(row.Images)
	if err != nil || row.Images == nil {
		images = []byte("[]")
	}
	return []interface{}{
		row.RunID,
		row.Timestamp.UTC().Format(time.RFC3339Nano),
		string(row.Mode),
		row.SourceURL,
		row.FinalURL,
		row.ProductURL,
		row.Title,
		optionalFloat(row.PriceRegular),
		optionalFloat(row.PricePromo),
		row.PromoLowConfidence,
		row.Currency,
		row.Availability,
		row.StockText,
		row.Seller,
		row.Brand,
		row.Model,
		row.SKU,
		row.Category,
		row.DescriptionShort,
		row.DescriptionFull,
		string(images),
		row.Rating,
		row.ReviewsCount,
		optionalInt(row.HTTPStatus),
		string(row.PageTypeDetected),
		string(row.Status),
		row.Error,
		row.Attempts,
		row.ElapsedSec,
	}
}

func optionalFloat(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optionalInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

// Record renders a row as CSV fields.
func Record(row *models.ResultRow) []string {
	values := cells(row)
	out := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case int:
			out[i] = strconv.Itoa(x)
		case bool:
			out[i] = strconv.FormatBool(x)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

// WriteCSV writes a header and one record per row.
func WriteCSV(path string, rows []*models.ResultRow) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(Columns); err != nil {
			return err
		}
		for _, row := range rows {
			if err := cw.Write(Record(row)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// WriteXLSX writes the rows to a single-sheet workbook.
func WriteXLSX(path string, rows []*models.ResultRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := cells(row)
		if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	return writeAtomic(path, func(w io.Writer) error {
		return f.Write(w)
	})
}

// WriteSummary writes the per-mode status counts together with the run id
// and the row total.
func WriteSummary(path, runID string, summary models.Summary) error {
	doc := make(map[string]interface{}, len(summary)+2)
	for mode, counts := range summary {
		doc[mode] = counts
	}
	doc["run_id"] = runID
	doc["total_rows"] = summary.Total()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// ReadURLs returns the non-blank, non-comment lines of a URL list, trimmed.
// A positive max truncates the list.
func ReadURLs(path string, max int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseURLs(file, max)
}

func parseURLs(r io.Reader, max int) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
		if max > 0 && len(urls) == max {
			break
		}
	}
	return urls, scanner.Err()
}

// writeAtomic writes to a temp file next to path, then renames it over path.
func writeAtomic(path string, write func(w io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmpFile := path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, path)
}
