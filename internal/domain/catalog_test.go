package domain

import "testing"

func TestParseExternalSKU(t *testing.T) {
	cases := []struct {
		name        string
		sku         string
		wantBase    string
		wantLevel   HierarchyLevel
		wantUnits   int64
	}{
		{"bare sku is piece", "WIDGET-RED", "WIDGET-RED", LevelPiece, 1},
		{"pack suffix", "WIDGET-RED-P6", "WIDGET-RED", LevelPack, 6},
		{"box suffix maps to case", "WIDGET-RED-B12", "WIDGET-RED", LevelCase, 12},
		{"case suffix", "WIDGET-RED-C24", "WIDGET-RED", LevelCase, 24},
		{"non-matching letter stays piece", "WIDGET-RED-X6", "WIDGET-RED-X6", LevelPiece, 1},
		{"zero units falls back to piece", "WIDGET-P0", "WIDGET-P0", LevelPiece, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base, level, units := ParseExternalSKU(tc.sku)
			if base != tc.wantBase || level != tc.wantLevel || units != tc.wantUnits {
				t.Errorf("ParseExternalSKU(%q) = (%q, %d, %d), want (%q, %d, %d)",
					tc.sku, base, level, units, tc.wantBase, tc.wantLevel, tc.wantUnits)
			}
		})
	}
}

func TestProductVariantValidate(t *testing.T) {
	cases := []struct {
		name    string
		variant ProductVariant
		wantErr bool
	}{
		{"piece with units 1 is valid", ProductVariant{HierarchyLevel: LevelPiece, UnitsPerVariant: 1}, false},
		{"piece with units >1 is invalid", ProductVariant{HierarchyLevel: LevelPiece, UnitsPerVariant: 2}, true},
		{"case with units >1 is valid", ProductVariant{HierarchyLevel: LevelCase, UnitsPerVariant: 24}, false},
		{"zero units is invalid", ProductVariant{HierarchyLevel: LevelPack, UnitsPerVariant: 0}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.variant.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
