package domain

import "testing"

func TestReceivingLineDeriveStatus(t *testing.T) {
	cases := []struct {
		name string
		line ReceivingLine
		want ReceivingLineStatus
	}{
		{"nothing received yet", ReceivingLine{ExpectedQty: 10}, RecvLinePending},
		{"partially received", ReceivingLine{ExpectedQty: 10, ReceivedQty: 4}, RecvLinePartial},
		{"exactly complete", ReceivingLine{ExpectedQty: 10, ReceivedQty: 10}, RecvLineComplete},
		{"complete via received plus damaged", ReceivingLine{ExpectedQty: 10, ReceivedQty: 8, DamagedQty: 2}, RecvLineComplete},
		{"overage", ReceivingLine{ExpectedQty: 10, ReceivedQty: 12}, RecvLineOverage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.line.DeriveStatus(); got != tc.want {
				t.Errorf("DeriveStatus() = %v, want %v", got, tc.want)
			}
		})
	}
}
