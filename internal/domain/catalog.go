package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// HierarchyLevel orders UOM variants of a product from smallest to
// largest physical grouping (§3 ProductVariant).
type HierarchyLevel int

const (
	LevelPiece HierarchyLevel = 1
	LevelPack  HierarchyLevel = 2
	LevelCase  HierarchyLevel = 3
	LevelPallet HierarchyLevel = 4
)

// Product is the catalog root; it owns a set of ProductVariant.
type Product struct {
	ID                   ProductID `db:"id"`
	BaseSKU              string    `db:"base_sku"`
	Name                 string    `db:"name"`
	Category             string    `db:"category"`
	Brand                string    `db:"brand"`
	ExternalCatalogRefID string    `db:"external_catalog_ref_id"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

// ProductVariant is a UOM of a Product. Invariant: hierarchy_level=1 implies
// units_per_variant=1; variants of the same product form a partial order by
// units_per_variant ascending (§3).
type ProductVariant struct {
	ID                     VariantID      `db:"id"`
	ProductID              ProductID      `db:"product_id"`
	SKU                    string         `db:"sku"`
	Name                   string         `db:"name"`
	UnitsPerVariant        int64          `db:"units_per_variant"`
	HierarchyLevel         HierarchyLevel `db:"hierarchy_level"`
	Barcode                string         `db:"barcode"`
	ExternalVariantRefID   string         `db:"external_variant_ref_id"`
	ExternalInventoryRefID string         `db:"external_inventory_ref_id"`
	WeightGrams            int64          `db:"weight_grams"`
	LengthMM               int64          `db:"length_mm"`
	WidthMM                int64          `db:"width_mm"`
	HeightMM               int64          `db:"height_mm"`
	CreatedAt              time.Time      `db:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at"`
}

// Validate enforces the hierarchy_level/units_per_variant invariant.
func (v ProductVariant) Validate() error {
	if v.UnitsPerVariant < 1 {
		return errInvalidVariant("units_per_variant must be >= 1")
	}
	if v.HierarchyLevel == LevelPiece && v.UnitsPerVariant != 1 {
		return errInvalidVariant("a Piece-level variant must have units_per_variant=1")
	}
	return nil
}

func errInvalidVariant(msg string) error { return variantError(msg) }

type variantError string

func (e variantError) Error() string { return string(e) }

// skuSuffix matches the external-catalog SKU-suffix convention of §4.1:
// (BASE)-(P|B|C)(N) maps to Pack/Box(->treated as Case)/Case with
// units_per_variant=N. A bare SKU with no matching suffix is Each (level 1,
// units=1).
var skuSuffix = regexp.MustCompile(`^(.+)-([PBC])(\d+)$`)

// ParseExternalSKU decomposes an externally supplied SKU into its base SKU,
// hierarchy level, and units-per-variant per the §4.1 import convention.
func ParseExternalSKU(sku string) (baseSKU string, level HierarchyLevel, unitsPerVariant int64) {
	m := skuSuffix.FindStringSubmatch(strings.TrimSpace(sku))
	if m == nil {
		return sku, LevelPiece, 1
	}
	n, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil || n < 1 {
		return sku, LevelPiece, 1
	}
	switch m[2] {
	case "P":
		return m[1], LevelPack, n
	case "B", "C":
		return m[1], LevelCase, n
	default:
		return sku, LevelPiece, 1
	}
}
