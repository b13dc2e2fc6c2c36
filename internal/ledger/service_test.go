package ledger

import (
	"testing"

	"github.com/wms-core/server/internal/domain"
)

// TestBuildATPResultFungibleAcrossUOM is seed scenario 1: Piece (units=1)
// and Case (units=12) share the same pooled base-unit figure but project
// it into different variant-unit counts. Receive 24 Piece into bin A,
// then pick 1 Case (12 base units); ATP must read 24/2 before the pick
// and 12/1 after, for Piece and Case respectively.
func TestBuildATPResultFungibleAcrossUOM(t *testing.T) {
	const piece domain.VariantID = 1
	const caseVariant domain.VariantID = 2
	const warehouse domain.WarehouseID = 1

	beforePick := int64(24)
	tests := []struct {
		name             string
		variant          domain.VariantID
		upv              int64
		baseUnits        int64
		wantVariantUnits int64
	}{
		{name: "piece before pick", variant: piece, upv: 1, baseUnits: beforePick, wantVariantUnits: 24},
		{name: "case before pick", variant: caseVariant, upv: 12, baseUnits: beforePick, wantVariantUnits: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildATPResult(tt.variant, warehouse, tt.baseUnits, tt.upv)
			if got.ATPVariantUnits != tt.wantVariantUnits {
				t.Errorf("ATPVariantUnits = %d, want %d", got.ATPVariantUnits, tt.wantVariantUnits)
			}
			if got.ATPBaseUnits != tt.baseUnits {
				t.Errorf("ATPBaseUnits = %d, want %d", got.ATPBaseUnits, tt.baseUnits)
			}
		})
	}

	// Pick 1 Case == 12 base units; the shared pool drops to 12.
	afterPick := beforePick - 1*12
	afterTests := []struct {
		name             string
		variant          domain.VariantID
		upv              int64
		wantVariantUnits int64
	}{
		{name: "piece after pick", variant: piece, upv: 1, wantVariantUnits: 12},
		{name: "case after pick", variant: caseVariant, upv: 12, wantVariantUnits: 1},
	}
	for _, tt := range afterTests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildATPResult(tt.variant, warehouse, afterPick, tt.upv)
			if got.ATPVariantUnits != tt.wantVariantUnits {
				t.Errorf("ATPVariantUnits = %d, want %d", got.ATPVariantUnits, tt.wantVariantUnits)
			}
		})
	}
}
