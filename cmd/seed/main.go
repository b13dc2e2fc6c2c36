// backend-go/cmd/seed/main.go
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/wms-core/server/internal/config"
	"github.com/wms-core/server/internal/dbx"
	"github.com/wms-core/server/internal/domain"
	"github.com/wms-core/server/internal/purchasing"
)

func newDataDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "data-dir",
		Usage:   "Directory containing master seed CSVs (vendors, warehouses, locations, products, variants)",
		Value:   "./data/seeds/master_data",
		EnvVars: []string{"SEED_DATA_DIR"},
	}
}

func main() {
	app := &cli.App{
		Name:  "seed",
		Usage: "Seed the database with fixture data",
		Commands: []*cli.Command{
			{
				Name:  "master",
				Usage: "Seed vendors, warehouses, locations, products, and variants",
				Flags: []cli.Flag{newDataDirFlag()},
				Action: func(c *cli.Context) error {
					db, err := openDB()
					if err != nil {
						return err
					}
					defer db.Close()
					return seedMasterData(c.Context, db, c.String("data-dir"))
				},
			},
			{
				Name:  "reorder-batch",
				Usage: "Create a draft reorder-to-PO batch from a suggested-quantity CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Usage:   "CSV with columns product_id,variant_id,suggested_qty",
						Value:   "./data/seeds/reorder_batch.csv",
						EnvVars: []string{"SEED_REORDER_FILE"},
					},
				},
				Action: func(c *cli.Context) error {
					db, err := openDB()
					if err != nil {
						return err
					}
					defer db.Close()
					return seedReorderBatch(c.Context, db, c.String("file"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDB() (*dbx.DB, error) {
	cfg := config.Load()
	db, err := dbx.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// seedMasterData loads each fixture table inside one transaction, grounded
// on the teacher's seedMasterData/seedTable CSV-driven shape, re-targeted
// at the WMS vendor/warehouse/location/catalog tables instead of
// autopo-py's brands/suppliers/stores.
func seedMasterData(ctx context.Context, db *dbx.DB, dataDir string) error {
	return db.WithTx(ctx, func(tx *sqlx.Tx) error {
		log.Println("Starting database seeding...")

		tables := []struct {
			name        string
			file        string
			columns     []string
			conflictCol string
		}{
			{"vendors", "vendors.csv", []string{"code", "name", "contact_info", "currency", "payment_terms", "active"}, "code"},
			{"warehouses", "warehouses.csv", []string{"code", "name", "is_default", "active", "external_location_ref", "inventory_source_type"}, "code"},
			{"locations", "locations.csv", []string{"warehouse_id", "code", "location_type", "is_pickable"}, "code"},
			{"products", "products.csv", []string{"base_sku", "name", "category", "brand", "external_catalog_ref_id"}, "base_sku"},
			{"product_variants", "variants.csv", []string{"product_id", "sku", "name", "units_per_variant", "hierarchy_level", "barcode"}, "sku"},
		}
		for _, t := range tables {
			path := filepath.Join(dataDir, t.file)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				log.Printf("skipping %s: %s not found", t.name, path)
				continue
			}
			if err := seedTable(ctx, tx, t.name, t.columns, t.conflictCol, path); err != nil {
				return fmt.Errorf("failed to seed %s: %w", t.name, err)
			}
		}

		log.Println("Database seeding completed successfully!")
		return nil
	})
}

// seedTable streams one CSV file into one table, upserting on conflictCol
// so re-running the seeder is idempotent. Columns are looked up by CSV
// header name rather than position, so a fixture file can list its
// columns in any order.
func seedTable(ctx context.Context, tx *sqlx.Tx, tableName string, columns []string, conflictCol, filePath string) error {
	log.Printf("Seeding %s from %s\n", tableName, filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		tableName, buildColumnList(columns), buildColumnList(placeholders), conflictCol, buildUpdateClause(columns, conflictCol))

	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		args := make([]interface{}, len(columns))
		for i, col := range columns {
			idx := getColumnIndex(header, col)
			if idx >= len(record) {
				return fmt.Errorf("column index %d out of bounds for column '%s' (record has %d columns)", idx, col, len(record))
			}
			args[i] = record[idx]
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert record into %s: %w", tableName, err)
		}
		count++
	}
	log.Printf("Successfully seeded %d rows into %s\n", count, tableName)
	return nil
}

func buildColumnList(columns []string) string {
	return stringJoin(columns, ", ")
}

func buildUpdateClause(columns []string, conflictCol string) string {
	updates := make([]string, 0, len(columns))
	for _, col := range columns {
		if col != conflictCol {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return stringJoin(updates, ", ")
}

func getColumnIndex(header []string, column string) int {
	for i, h := range header {
		if h == column {
			return i
		}
	}
	panic(fmt.Sprintf("column '%s' not found in header: %v", column, header))
}

func stringJoin(slice []string, sep string) string {
	if len(slice) == 0 {
		return ""
	}
	result := slice[0]
	for _, s := range slice[1:] {
		result += sep + s
	}
	return result
}

// seedReorderBatch reads a suggested-quantity CSV and routes it through
// purchasing.Service.ReorderToPO, the same group-by-preferred-vendor logic
// the HTTP "POST /api/purchasing/reorder" surface uses (§4.4), so a seeded
// reorder batch exercises real domain code rather than hand-rolled INSERTs.
func seedReorderBatch(ctx context.Context, db *dbx.DB, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	var items []purchasing.ReorderItem
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}
		productID, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid product_id %q: %w", record[0], err)
		}
		variantID, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid variant_id %q: %w", record[1], err)
		}
		qty, err := strconv.ParseInt(record[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid suggested_qty %q: %w", record[2], err)
		}
		items = append(items, purchasing.ReorderItem{
			ProductID:    domain.ProductID(productID),
			VariantID:    domain.VariantID(variantID),
			SuggestedQty: qty,
		})
	}
	if len(items) == 0 {
		log.Println("no reorder rows found, nothing to do")
		return nil
	}

	svc := purchasing.NewService(db)
	ids, err := svc.ReorderToPO(ctx, items)
	if err != nil {
		return fmt.Errorf("failed to create reorder batch: %w", err)
	}
	log.Printf("created %d draft purchase orders: %v\n", len(ids), ids)
	return nil
}
