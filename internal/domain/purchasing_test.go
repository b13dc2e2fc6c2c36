package domain

import "testing"

func TestPurchaseOrderLineDeriveStatus(t *testing.T) {
	cases := []struct {
		name string
		line PurchaseOrderLine
		want POLineStatus
	}{
		{"nothing received or cancelled", PurchaseOrderLine{OrderQty: 10}, LineOpen},
		{"fully received", PurchaseOrderLine{OrderQty: 10, ReceivedQty: 10}, LineReceived},
		{"partially received", PurchaseOrderLine{OrderQty: 10, ReceivedQty: 4}, LinePartiallyReceived},
		{"received plus cancelled covers order", PurchaseOrderLine{OrderQty: 10, ReceivedQty: 6, CancelledQty: 4}, LineReceived},
		{"fully cancelled", PurchaseOrderLine{OrderQty: 10, CancelledQty: 10}, LineCancelled},
		{"partially cancelled, rest open", PurchaseOrderLine{OrderQty: 10, CancelledQty: 3}, LinePartiallyReceived},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.line.DeriveStatus(); got != tc.want {
				t.Errorf("DeriveStatus() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanTransitionPO(t *testing.T) {
	cases := []struct {
		from, to POStatus
		want     bool
	}{
		{PODraft, POPendingApproval, true},
		{PODraft, POSent, false},
		{POSent, POAcknowledged, true},
		{POSent, POApproved, false},
		{POClosed, POSent, false},
		{POCancelled, PODraft, false},
		{POPartiallyReceived, POReceived, true},
		{POPartiallyReceived, POCancelled, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%v, %v) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
