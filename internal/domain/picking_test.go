package domain

import (
	"sort"
	"testing"
)

func TestWaveSortKeyNaturalOrder(t *testing.T) {
	keys := []WaveSortKey{
		{ZoneSequence: 1, LocationCode: "A10", PriorityRank: 0, TaskIndex: 0},
		{ZoneSequence: 1, LocationCode: "A2", PriorityRank: 0, TaskIndex: 1},
		{ZoneSequence: 1, LocationCode: "A1", PriorityRank: 0, TaskIndex: 2},
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	want := []string{"A1", "A2", "A10"}
	for i, k := range keys {
		if k.LocationCode != want[i] {
			t.Errorf("position %d = %s, want %s", i, k.LocationCode, want[i])
		}
	}
}

func TestWaveSortKeyZoneThenPriority(t *testing.T) {
	keys := []WaveSortKey{
		{ZoneSequence: 2, LocationCode: "B1", PriorityRank: 2, TaskIndex: 0},
		{ZoneSequence: 1, LocationCode: "A1", PriorityRank: 0, TaskIndex: 1},
		{ZoneSequence: 1, LocationCode: "A1", PriorityRank: 2, TaskIndex: 2},
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	if keys[0].ZoneSequence != 1 || keys[0].PriorityRank != 2 {
		t.Errorf("expected zone 1 / higher priority first, got %+v", keys[0])
	}
	if keys[len(keys)-1].ZoneSequence != 2 {
		t.Errorf("expected zone 2 last, got %+v", keys[len(keys)-1])
	}
}
