package receiving

import (
	"strings"
	"testing"
)

func TestParseCSVHandlesQuotedCellsAndBadRows(t *testing.T) {
	input := `sku,qty,location,damaged_qty,unit_cost,barcode,notes
WIDGET-1,10,A1,0,12.50,"012345","first batch, ok"
WIDGET-2,notanumber,A2,,,
WIDGET-3,5,B1,1,9.99,,
`
	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if rows[0].RowError != "" {
		t.Errorf("row 0 should parse cleanly, got error %q", rows[0].RowError)
	}
	if rows[0].SKU != "WIDGET-1" || rows[0].Qty != 10 || rows[0].UnitCostCents != 1250 {
		t.Errorf("row 0 parsed incorrectly: %+v", rows[0])
	}
	if rows[0].Notes != "first batch, ok" {
		t.Errorf("expected quoted comma to survive, got %q", rows[0].Notes)
	}

	if rows[1].RowError == "" {
		t.Error("row 1 has a non-numeric qty and should report a row error")
	}
	// a bad row must not abort parsing of subsequent rows.
	if rows[2].RowError != "" || rows[2].SKU != "WIDGET-3" {
		t.Errorf("row 2 should still parse after row 1's error: %+v", rows[2])
	}
}

func TestParseCSVMissingRequiredColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("name,qty\nfoo,1\n"))
	if err == nil {
		t.Fatal("expected an error for a missing sku column")
	}
}
