package shipments

import (
	"testing"

	"github.com/wms-core/server/internal/domain"
)

func TestAllocateByVolumeSumsToTotal(t *testing.T) {
	cost := domain.ShipmentCost{ID: 1, CostType: domain.CostFreight, EstimatedCents: 10000}
	lines := []domain.InboundShipmentLine{
		{ID: 1, TotalVolumeCBM: 3},
		{ID: 2, TotalVolumeCBM: 1},
	}
	allocs := Allocate(cost, domain.ByVolume, domain.ModeSeaFCL, lines, nil)

	var sum int64
	for _, a := range allocs {
		sum += a.AllocatedCents
	}
	if sum != 10000 {
		t.Errorf("allocated sum = %d, want 10000 (no pennies lost)", sum)
	}
	// line 1 has 3x the volume of line 2, so it should get 3x the allocation.
	if allocs[0].AllocatedCents <= allocs[1].AllocatedCents*2 {
		t.Errorf("expected line with larger volume to receive proportionally more: %+v", allocs)
	}
}

func TestAllocateEvenSplitWhenBasisIsZero(t *testing.T) {
	cost := domain.ShipmentCost{ID: 1, CostType: domain.CostInsurance, EstimatedCents: 100}
	lines := []domain.InboundShipmentLine{{ID: 1}, {ID: 2}, {ID: 3}}
	allocs := Allocate(cost, domain.ByVolume, domain.ModeAir, lines, nil)

	var sum int64
	for _, a := range allocs {
		sum += a.AllocatedCents
	}
	if sum != 100 {
		t.Errorf("allocated sum = %d, want 100", sum)
	}
}

func TestAllocateDutyAlwaysByValueRegardlessOfDefault(t *testing.T) {
	cost := domain.ShipmentCost{ID: 1, CostType: domain.CostDuty, EstimatedCents: 1000}
	lines := []domain.InboundShipmentLine{{ID: 1, TotalVolumeCBM: 100}, {ID: 2, TotalVolumeCBM: 1}}
	values := map[domain.ShipLineID]int64{1: 100, 2: 900}

	allocs := Allocate(cost, domain.ByVolume, domain.ModeSeaFCL, lines, values)

	// Despite the shipment default being by_volume (which would favor line 1),
	// duty is hard-overridden to by_value, which favors line 2.
	if allocs[1].AllocatedCents <= allocs[0].AllocatedCents {
		t.Errorf("expected duty allocation to follow value, not volume: %+v", allocs)
	}
}

func TestResolveMethodPriority(t *testing.T) {
	override := domain.ByLineCount
	cost := domain.ShipmentCost{CostType: domain.CostFreight, AllocationOverride: &override}
	if got := resolveMethod(cost, domain.ByVolume, domain.ModeAir); got != domain.ByLineCount {
		t.Errorf("expected explicit per-cost override to win, got %v", got)
	}

	noOverride := domain.ShipmentCost{CostType: domain.CostFreight}
	if got := resolveMethod(noOverride, domain.ByWeight, domain.ModeAir); got != domain.ByWeight {
		t.Errorf("expected shipment default to win absent an override, got %v", got)
	}

	if got := resolveMethod(noOverride, "", domain.ModeAir); got != domain.ByChargeableWeight {
		t.Errorf("expected mode default when nothing else is set, got %v", got)
	}
}
