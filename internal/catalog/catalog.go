// Package catalog implements Product/ProductVariant CRUD, SKU/barcode/
// external-reference lookup, and the external-catalog SKU import rules
// of §4.1.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/wms-core/server/internal/apperr"
	"github.com/wms-core/server/internal/dbx"
	"github.com/wms-core/server/internal/domain"
)

type Service struct {
	db *dbx.DB
}

func NewService(db *dbx.DB) *Service {
	return &Service{db: db}
}

func (s *Service) CreateProduct(ctx context.Context, p domain.Product) (domain.ProductID, error) {
	var id domain.ProductID
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO products (base_sku, name, category, brand, external_catalog_ref_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id`, p.BaseSKU, p.Name, p.Category, p.Brand, p.ExternalCatalogRefID).Scan(&id)
	if isUniqueViolation(err) {
		return 0, apperr.Conflictf("product_conflict", "a product with base SKU %q already exists", p.BaseSKU)
	}
	return id, err
}

func (s *Service) UpdateProduct(ctx context.Context, p domain.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET name = $2, category = $3, brand = $4, external_catalog_ref_id = $5, updated_at = now()
		WHERE id = $1`, p.ID, p.Name, p.Category, p.Brand, p.ExternalCatalogRefID)
	if err != nil {
		return err
	}
	return requireOneRow(res, "product", p.ID)
}

func (s *Service) CreateVariant(ctx context.Context, v domain.ProductVariant) (domain.VariantID, error) {
	if err := v.Validate(); err != nil {
		return 0, apperr.Validationf("invalid_variant", "%s", err.Error())
	}
	var id domain.VariantID
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := findBySKUTx(ctx, tx, v.SKU)
		if err == nil && existing.ProductID != v.ProductID {
			return apperr.Conflictf("sku_cross_product", "SKU %q already belongs to product %d", v.SKU, existing.ProductID)
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return tx.QueryRowxContext(ctx, `
			INSERT INTO product_variants (
				product_id, sku, name, units_per_variant, hierarchy_level, barcode,
				external_variant_ref_id, external_inventory_ref_id,
				weight_grams, length_mm, width_mm, height_mm, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12, now(), now())
			RETURNING id`,
			v.ProductID, v.SKU, v.Name, v.UnitsPerVariant, v.HierarchyLevel, v.Barcode,
			v.ExternalVariantRefID, v.ExternalInventoryRefID,
			v.WeightGrams, v.LengthMM, v.WidthMM, v.HeightMM,
		).Scan(&id)
	})
	if isUniqueViolation(err) {
		return 0, apperr.Conflictf("barcode_conflict", "barcode %q is already in use", v.Barcode)
	}
	return id, err
}

func (s *Service) FindBySKU(ctx context.Context, sku string) (domain.ProductVariant, error) {
	var v domain.ProductVariant
	err := s.db.GetContext(ctx, &v, `SELECT * FROM product_variants WHERE sku = $1`, sku)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProductVariant{}, apperr.NotFoundf("variant_not_found", "no variant with SKU %q", sku)
	}
	return v, err
}

func (s *Service) FindByBarcode(ctx context.Context, barcode string) (domain.ProductVariant, error) {
	var v domain.ProductVariant
	err := s.db.GetContext(ctx, &v, `SELECT * FROM product_variants WHERE barcode = $1`, barcode)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProductVariant{}, apperr.NotFoundf("variant_not_found", "no variant with barcode %q", barcode)
	}
	return v, err
}

func (s *Service) FindByExternalRef(ctx context.Context, ref string) (domain.ProductVariant, error) {
	var v domain.ProductVariant
	err := s.db.GetContext(ctx, &v, `SELECT * FROM product_variants WHERE external_variant_ref_id = $1`, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProductVariant{}, apperr.NotFoundf("variant_not_found", "no variant with external ref %q", ref)
	}
	return v, err
}

// ListVariants enumerates a product's variants ordered by hierarchy level
// ascending (§4.1).
func (s *Service) ListVariants(ctx context.Context, product domain.ProductID) ([]domain.ProductVariant, error) {
	var variants []domain.ProductVariant
	err := s.db.SelectContext(ctx, &variants, `
		SELECT * FROM product_variants WHERE product_id = $1 ORDER BY hierarchy_level ASC, id ASC`, product)
	return variants, err
}

// ImportRow is one row of an external catalog feed.
type ImportRow struct {
	ProductID domain.ProductID
	SKU       string
	Name      string
	Barcode   string
	ExternalVariantRefID string
}

// ImportResult reports per-row outcome; a row refused for cross-product
// conflict does not abort the rest of the batch (§4.1).
type ImportResult struct {
	Row     ImportRow
	Created bool
	Error   string
}

// ImportExternalCatalog applies §4.1's SKU-suffix parsing and the
// cross-product-conflict refusal rule to a batch of external rows.
func (s *Service) ImportExternalCatalog(ctx context.Context, rows []ImportRow) []ImportResult {
	results := make([]ImportResult, 0, len(rows))
	for _, row := range rows {
		baseSKU, level, units := domain.ParseExternalSKU(row.SKU)
		_ = baseSKU
		v := domain.ProductVariant{
			ProductID:            row.ProductID,
			SKU:                  row.SKU,
			Name:                 row.Name,
			UnitsPerVariant:      units,
			HierarchyLevel:       level,
			Barcode:              row.Barcode,
			ExternalVariantRefID: row.ExternalVariantRefID,
		}
		_, err := s.CreateVariant(ctx, v)
		if err != nil {
			results = append(results, ImportResult{Row: row, Error: err.Error()})
			continue
		}
		results = append(results, ImportResult{Row: row, Created: true})
	}
	return results
}

func findBySKUTx(ctx context.Context, tx *sqlx.Tx, sku string) (domain.ProductVariant, error) {
	var v domain.ProductVariant
	err := tx.GetContext(ctx, &v, `SELECT * FROM product_variants WHERE sku = $1`, sku)
	return v, err
}

func requireOneRow(res sql.Result, kind string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFoundf(kind+"_not_found", "%s %v does not exist", kind, id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "unique constraint")
}
