package replen

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wms-core/server/internal/domain"
)

// ParseRuleCSV reads the §4.9 bulk-import CSV (headers pick_sku, source_sku,
// min_qty, max_qty?, replen_method) the same way receiving.ParseCSV reads
// its format: a row with a missing SKU or a bad value is recorded as a
// RowWarning (not a hard error), and every other row keeps parsing. SKUs are
// not looked up in the catalog, here or by the import handler, so a SKU that
// matches no variant produces no warning.
func ParseRuleCSV(r io.Reader) ([]domain.ReplenCSVRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"pick_sku", "source_sku", "min_qty", "replen_method"} {
		if _, ok := colMap[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}

	var rows []domain.ReplenCSVRow
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			rows = append(rows, domain.ReplenCSVRow{RowNumber: rowNum, RowWarning: err.Error()})
			continue
		}
		rows = append(rows, parseRuleRow(rowNum, record, colMap))
	}
	return rows, nil
}

func parseRuleRow(rowNum int, record []string, colMap map[string]int) domain.ReplenCSVRow {
	row := domain.ReplenCSVRow{RowNumber: rowNum}
	get := func(col string) string {
		i, ok := colMap[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	row.PickSKU = get("pick_sku")
	row.SourceSKU = get("source_sku")
	if row.PickSKU == "" || row.SourceSKU == "" {
		row.RowWarning = fmt.Sprintf("row %d: missing pick_sku or source_sku", rowNum)
		return row
	}

	minQty, err := strconv.ParseInt(get("min_qty"), 10, 64)
	if err != nil {
		row.RowWarning = fmt.Sprintf("row %d: invalid min_qty %q", rowNum, get("min_qty"))
		return row
	}
	row.MinQty = minQty

	if v := get("max_qty"); v != "" {
		maxQty, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			row.RowWarning = fmt.Sprintf("row %d: invalid max_qty %q", rowNum, v)
			return row
		}
		row.MaxQty = &maxQty
	}

	switch domain.ReplenMethod(get("replen_method")) {
	case domain.ReplenCaseBreak, domain.ReplenFullCase, domain.ReplenPalletDrop:
		row.ReplenMethod = domain.ReplenMethod(get("replen_method"))
	default:
		row.RowWarning = fmt.Sprintf("row %d: unrecognized replen_method %q, defaulting to case_break", rowNum, get("replen_method"))
		row.ReplenMethod = domain.ReplenCaseBreak
	}
	return row
}
