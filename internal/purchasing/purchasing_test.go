package purchasing

import (
	"testing"

	"github.com/wms-core/server/internal/domain"
)

func TestRecalculateTotals(t *testing.T) {
	po := domain.PurchaseOrder{
		DiscountCents: 100,
		TaxCents:      50,
		ShippingCents: 200,
	}
	lines := []domain.PurchaseOrderLine{
		{OrderQty: 10, UnitCostCents: 1000, DiscountPct: 10, TaxPct: 8},   // subtotal 10000, discount 1000, tax 720 -> 9720
		{OrderQty: 5, UnitCostCents: 500, CancelledQty: 5},                 // fully cancelled -> 0
	}

	gotPO, gotLines := RecalculateTotals(po, lines)

	if gotLines[0].LineTotalCents != 9720 {
		t.Errorf("line[0] total = %d, want 9720", gotLines[0].LineTotalCents)
	}
	if gotLines[1].LineTotalCents != 0 {
		t.Errorf("line[1] total = %d, want 0 (cancelled)", gotLines[1].LineTotalCents)
	}
	if gotPO.SubtotalCents != 9720 {
		t.Errorf("subtotal = %d, want 9720", gotPO.SubtotalCents)
	}
	wantGrand := int64(9720 - 100 + 50 + 200)
	if gotPO.GrandTotalCents != wantGrand {
		t.Errorf("grand total = %d, want %d", gotPO.GrandTotalCents, wantGrand)
	}
}
