package receiving

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wms-core/server/internal/domain"
)

// ParseCSV reads the §4.6 receiving CSV (headers sku, qty, location?,
// damaged_qty?, unit_cost?, barcode?, notes?), handling quoted cells via
// the standard library reader. Each row that fails to parse gets a
// RowError and is still returned, so the caller can report per-row
// failures without aborting the rest of the import.
func ParseCSV(r io.Reader) ([]domain.CSVImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // optional trailing columns

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := colMap["sku"]; !ok {
		return nil, fmt.Errorf("missing required column: sku")
	}
	if _, ok := colMap["qty"]; !ok {
		return nil, fmt.Errorf("missing required column: qty")
	}

	var rows []domain.CSVImportRow
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			rows = append(rows, domain.CSVImportRow{RowNumber: rowNum, RowError: err.Error()})
			continue
		}
		rows = append(rows, parseRow(rowNum, record, colMap))
	}
	return rows, nil
}

func parseRow(rowNum int, record []string, colMap map[string]int) domain.CSVImportRow {
	row := domain.CSVImportRow{RowNumber: rowNum}
	get := func(col string) string {
		i, ok := colMap[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	row.SKU = get("sku")
	if row.SKU == "" {
		row.RowError = fmt.Sprintf("row %d: missing sku", rowNum)
		return row
	}

	qty, err := strconv.ParseInt(get("qty"), 10, 64)
	if err != nil {
		row.RowError = fmt.Sprintf("row %d: invalid qty %q", rowNum, get("qty"))
		return row
	}
	row.Qty = qty
	row.Location = get("location")
	row.Barcode = get("barcode")
	row.Notes = get("notes")

	if v := get("damaged_qty"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			row.RowError = fmt.Sprintf("row %d: invalid damaged_qty %q", rowNum, v)
			return row
		}
		row.DamagedQty = n
	}
	if v := get("unit_cost"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			row.RowError = fmt.Sprintf("row %d: invalid unit_cost %q", rowNum, v)
			return row
		}
		row.UnitCostCents = int64(f * 100)
	}
	return row
}
