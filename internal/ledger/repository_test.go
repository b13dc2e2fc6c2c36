package ledger

import (
	"testing"

	"github.com/wms-core/server/internal/apperr"
	"github.com/wms-core/server/internal/domain"
)

// TestNextBalanceQtyRejectsNegative exercises §8 property 1: a balance
// must never go negative.
func TestNextBalanceQtyRejectsNegative(t *testing.T) {
	tests := []struct {
		name    string
		cur     int64
		delta   int64
		want    int64
		wantErr bool
	}{
		{name: "receive into empty cell", cur: 0, delta: 24, want: 24},
		{name: "pick down to zero", cur: 12, delta: -12, want: 0},
		{name: "pick more than on hand", cur: 5, delta: -6, wantErr: true},
		{name: "adjust negative on empty cell", cur: 0, delta: -1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextBalanceQty(tt.cur, tt.delta)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got qty=%d", got)
				}
				if !apperr.Is(err, apperr.InsufficientStock) {
					t.Errorf("expected InsufficientStock kind, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("nextBalanceQty(%d, %d) = %d, want %d", tt.cur, tt.delta, got, tt.want)
			}
		})
	}
}

// TestBuildMoveLegsNetsToZero exercises §8 property 2 (a relocation's own
// delta contribution nets to zero) and property 3 (base = variant * upv)
// for a single move's pair of legs.
func TestBuildMoveLegsNetsToZero(t *testing.T) {
	base := domain.InventoryTransaction{
		TransactionType: domain.TxnPick,
		VariantID:       7,
		UserRef:         "picker-1",
	}
	dec, inc := buildMoveLegs(base, 10, 10, domain.StateOnHand, domain.StatePicked, 12, 3)

	if sum := dec.VariantQtyDelta + inc.VariantQtyDelta; sum != 0 {
		t.Errorf("leg deltas sum to %d, want 0", sum)
	}
	if dec.BaseQtyDelta != dec.VariantQtyDelta*3 {
		t.Errorf("decrement base_qty_delta = %d, want variant_qty_delta(%d) * upv(3)", dec.BaseQtyDelta, dec.VariantQtyDelta)
	}
	if inc.BaseQtyDelta != inc.VariantQtyDelta*3 {
		t.Errorf("increment base_qty_delta = %d, want variant_qty_delta(%d) * upv(3)", inc.BaseQtyDelta, inc.VariantQtyDelta)
	}
	if dec.VariantID != base.VariantID || inc.VariantID != base.VariantID {
		t.Errorf("legs must carry the base variant id")
	}
	if dec.UserRef != base.UserRef || inc.UserRef != base.UserRef {
		t.Errorf("legs must inherit refs from base")
	}
	if dec.SourceState != domain.StateOnHand || dec.TargetState != domain.StateOnHand {
		t.Errorf("decrement leg should target the source cell only, got source=%s target=%s", dec.SourceState, dec.TargetState)
	}
	if inc.SourceState != domain.StateOnHand || inc.TargetState != domain.StatePicked {
		t.Errorf("increment leg should carry the move's source->target states, got source=%s target=%s", inc.SourceState, inc.TargetState)
	}
}

// TestBuildMoveLegsTransferBatchSumsToZero exercises §8 property 4: the
// two transactions written for a transfer, taken together, must sum to
// zero per variant per state even though they touch two locations.
func TestBuildMoveLegsTransferBatchSumsToZero(t *testing.T) {
	batch := domain.NewBatchID()
	base := domain.InventoryTransaction{TransactionType: domain.TxnTransfer, VariantID: 4, BatchID: &batch}
	dec, inc := buildMoveLegs(base, 1, 2, domain.StateOnHand, domain.StateOnHand, 5, 1)

	if dec.BatchID != inc.BatchID || dec.BatchID != &batch {
		t.Errorf("both legs of a transfer must share the batch id")
	}
	if dec.VariantQtyDelta+inc.VariantQtyDelta != 0 {
		t.Errorf("transfer batch deltas sum to %d, want 0", dec.VariantQtyDelta+inc.VariantQtyDelta)
	}
	if *dec.FromLocationID != 1 || *dec.ToLocationID != 1 {
		t.Errorf("decrement leg should be local to the source location, got from=%v to=%v", dec.FromLocationID, dec.ToLocationID)
	}
	if *inc.FromLocationID != 1 || *inc.ToLocationID != 2 {
		t.Errorf("increment leg should record the move from source to destination, got from=%v to=%v", inc.FromLocationID, inc.ToLocationID)
	}
}

// TestReceiveThenPickDeltaSumMatchesBalance is the maintainer's own
// regression scenario: receive 24 then pick 12 must leave
// Σ variant_qty_delta equal to the 24 units held (12 on_hand + 12 picked),
// not 36.
func TestReceiveThenPickDeltaSumMatchesBalance(t *testing.T) {
	receive := domain.InventoryTransaction{TransactionType: domain.TxnReceipt, VariantQtyDelta: 24}
	pickBase := domain.InventoryTransaction{TransactionType: domain.TxnPick}
	pickDec, pickInc := buildMoveLegs(pickBase, 1, 1, domain.StateOnHand, domain.StatePicked, 12, 1)

	sum := receive.VariantQtyDelta + pickDec.VariantQtyDelta + pickInc.VariantQtyDelta
	if sum != 24 {
		t.Errorf("Σ variant_qty_delta after receive 24 + pick 12 = %d, want 24 (Σ balances: 12 on_hand + 12 picked)", sum)
	}
}

func undoTestToken() domain.UndoToken {
	return domain.UndoToken{
		Variant: 1, FromLocation: 1, ToLocation: 2, Qty: 5,
		FromWatermark: 3, ToWatermark: 7,
	}
}

// TestWatermarkStale exercises the transfer-undo guard (§4.3): any change
// to either cell's version since the transfer blocks the undo.
func TestWatermarkStale(t *testing.T) {
	token := undoTestToken()
	tests := []struct {
		name        string
		fromVersion int64
		toVersion   int64
		wantStale   bool
	}{
		{name: "untouched since transfer", fromVersion: 3, toVersion: 7, wantStale: false},
		{name: "destination touched by a pick", fromVersion: 3, toVersion: 8, wantStale: true},
		{name: "source touched", fromVersion: 4, toVersion: 7, wantStale: true},
		{name: "both touched", fromVersion: 9, toVersion: 9, wantStale: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := watermarkStale(token, tt.fromVersion, tt.toVersion); got != tt.wantStale {
				t.Errorf("watermarkStale(from=%d, to=%d) = %v, want %v", tt.fromVersion, tt.toVersion, got, tt.wantStale)
			}
		})
	}
}

// TestTransferUndoGuardScenario is the seed scenario from §8: transfer 5
// units A->B, pick 1 from B (which bumps B's on_hand version), then the
// recorded watermark must no longer match and undo must be refused.
func TestTransferUndoGuardScenario(t *testing.T) {
	token := domain.UndoToken{
		Variant: 1, FromLocation: 1, ToLocation: 2, Qty: 5,
		FromWatermark: 0, ToWatermark: 1, // B's on_hand cell is at version 1 right after the transfer lands
	}
	// A pick at B decrements on_hand@B, bumping its version to 2.
	bTouchedVersion := int64(2)
	if !watermarkStale(token, token.FromWatermark, bTouchedVersion) {
		t.Fatal("expected undo to be blocked after B's on_hand cell was touched by a pick")
	}
}
