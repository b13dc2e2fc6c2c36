package oms

import "testing"

func TestHashAddressNormalizesWhitespaceAndCase(t *testing.T) {
	a := HashAddress(" 123 Main St ", "Springfield", "IL", "62704", "US")
	b := HashAddress("123 main st", "SPRINGFIELD", "il", "62704", "us")
	if a != b {
		t.Fatalf("expected normalized addresses to hash equally, got %q vs %q", a, b)
	}
}

func TestHashAddressDiffersOnDifferentStreet(t *testing.T) {
	a := HashAddress("123 Main St", "Springfield", "IL", "62704", "US")
	b := HashAddress("456 Main St", "Springfield", "IL", "62704", "US")
	if a == b {
		t.Fatal("expected different streets to hash differently")
	}
}
