package domain

import "testing"

func TestCanCombine(t *testing.T) {
	base := SalesOrder{AddressHash: "hash-1", CustomerName: "Jordan Blake", Status: SOReady}
	other := base
	other.ID = 2

	if !CanCombine(base, other) {
		t.Error("expected same address+customer, neither grouped, to be combinable")
	}

	shipped := other
	shipped.Status = SOShipped
	if CanCombine(base, shipped) {
		t.Error("a shipped order must not be combinable")
	}

	grouped := other
	gid := int64(7)
	grouped.CombinedGroupID = &gid
	if CanCombine(base, grouped) {
		t.Error("an order already in a group must not be combinable again")
	}

	diffAddress := other
	diffAddress.AddressHash = "hash-2"
	if CanCombine(base, diffAddress) {
		t.Error("different address hash must not combine")
	}
}

func TestPriorityRank(t *testing.T) {
	rush := SalesOrder{Priority: PriorityRush}
	high := SalesOrder{Priority: PriorityHigh}
	normal := SalesOrder{Priority: PriorityNormal}

	if !(rush.PriorityRank() > high.PriorityRank() && high.PriorityRank() > normal.PriorityRank()) {
		t.Error("expected rush > high > normal priority ranks")
	}
}
