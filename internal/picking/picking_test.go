package picking

import (
	"testing"

	"github.com/wms-core/server/internal/domain"
)

func TestSortLinesOrdersByZoneThenLocationThenPriority(t *testing.T) {
	lines := []candidateLine{
		{OrderID: 1, LocationCode: "A10", ZoneSequence: 1, Priority: domain.PriorityNormal},
		{OrderID: 2, LocationCode: "A2", ZoneSequence: 1, Priority: domain.PriorityNormal},
		{OrderID: 3, LocationCode: "A2", ZoneSequence: 0, Priority: domain.PriorityNormal},
		{OrderID: 4, LocationCode: "A2", ZoneSequence: 1, Priority: domain.PriorityRush},
	}
	ordered := sortLines(lines)

	if ordered[0].OrderID != 3 {
		t.Fatalf("expected zone 0 line first, got order %d", ordered[0].OrderID)
	}
	if ordered[1].OrderID != 4 {
		t.Fatalf("expected rush priority to sort before normal at the same location, got order %d", ordered[1].OrderID)
	}
	if ordered[2].OrderID != 2 {
		t.Fatalf("expected order 2 (A2) before order 1 (A10) via natural sort, got order %d", ordered[2].OrderID)
	}
	if ordered[3].OrderID != 1 {
		t.Fatalf("expected A10 last, got order %d", ordered[3].OrderID)
	}
}

func TestSortLinesIsStable(t *testing.T) {
	lines := []candidateLine{
		{OrderID: 10, LocationCode: "B1", ZoneSequence: 0, Priority: domain.PriorityNormal},
		{OrderID: 11, LocationCode: "B1", ZoneSequence: 0, Priority: domain.PriorityNormal},
	}
	ordered := sortLines(lines)
	if ordered[0].OrderID != 10 || ordered[1].OrderID != 11 {
		t.Fatalf("expected stable original order for identical keys, got %d, %d", ordered[0].OrderID, ordered[1].OrderID)
	}
}
