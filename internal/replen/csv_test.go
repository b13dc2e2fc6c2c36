package replen

import (
	"strings"
	"testing"
)

func TestParseRuleCSVWarnsButDoesNotAbortOnBadMethod(t *testing.T) {
	input := `pick_sku,source_sku,min_qty,max_qty,replen_method
SKU-1,SKU-1-CASE,5,50,case_break
SKU-2,SKU-2-CASE,10,,not_a_method
`
	rows, err := ParseRuleCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseRuleCSV returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].RowWarning != "" {
		t.Errorf("row 0 should parse cleanly, got warning %q", rows[0].RowWarning)
	}
	if rows[1].RowWarning == "" {
		t.Error("row 1 has an unrecognized replen_method and should warn")
	}
	if rows[1].ReplenMethod == "" {
		t.Error("row 1 should still default to a usable method despite the warning")
	}
}

func TestParseRuleCSVMissingColumn(t *testing.T) {
	_, err := ParseRuleCSV(strings.NewReader("pick_sku,source_sku\nA,B\n"))
	if err == nil {
		t.Fatal("expected an error for missing min_qty/replen_method columns")
	}
}
