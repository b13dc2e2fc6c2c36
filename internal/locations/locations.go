// Package locations implements Warehouse and Location CRUD, the
// at-most-one-default-per-tenant rule, and the delete-blocked-while-in-use
// rule of §4.2.
package locations

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

// CreateWarehouse inserts a warehouse. If IsDefault is set, any existing
// default is cleared first within the same transaction (§3 "exactly one
// default per tenant").
func (s *Service) CreateWarehouse(ctx context.Context, w domain.Warehouse) (domain.WarehouseID, error) {
	var id domain.WarehouseID
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if w.IsDefault {
			if _, err := tx.ExecContext(ctx, `UPDATE warehouses SET is_default = false WHERE is_default`); err != nil {
				return err
			}
		}
		return tx.QueryRowxContext(ctx, `
			INSERT INTO warehouses (code, name, is_default, active, external_location_ref, inventory_source_type, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6, now(), now())
			RETURNING id`, w.Code, w.Name, w.IsDefault, w.Active, w.ExternalLocationRef, w.InventorySourceType).Scan(&id)
	})
	return id, err
}

// SetDefault promotes one warehouse to default, demoting any other.
func (s *Service) SetDefault(ctx context.Context, id domain.WarehouseID) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE warehouses SET is_default = false WHERE is_default`); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE warehouses SET is_default = true, updated_at = now() WHERE id = $1`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFoundf("warehouse_not_found", "warehouse %d does not exist", id)
		}
		return nil
	})
}

func (s *Service) CreateLocation(ctx context.Context, l domain.Location) (domain.LocationID, error) {
	var id domain.LocationID
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO locations (warehouse_id, code, location_type, is_pickable, created_at, updated_at)
		VALUES ($1,$2,$3,$4, now(), now())
		RETURNING id`, l.WarehouseID, l.Code, l.LocationType, l.IsPickable).Scan(&id)
	if isUniqueViolation(err) {
		return 0, apperr.Conflictf("location_conflict", "location code %q already exists in this warehouse", l.Code)
	}
	return id, err
}

// DeleteLocation fails with InUse (modeled as apperr.Conflict, §4.2) when
// the location still carries a non-zero balance in any state.
func (s *Service) DeleteLocation(ctx context.Context, id domain.LocationID) error {
	var nonZero bool
	err := s.db.GetContext(ctx, &nonZero, `
		SELECT EXISTS(SELECT 1 FROM inventory_balances WHERE location_id = $1 AND qty <> 0)`, id)
	if err != nil {
		return err
	}
	if nonZero {
		return apperr.Conflictf("location_in_use", "location %d carries non-zero balances and cannot be deleted", id)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFoundf("location_not_found", "location %d does not exist", id)
	}
	return nil
}

func (s *Service) ListLocations(ctx context.Context, warehouse domain.WarehouseID) ([]domain.Location, error) {
	var locs []domain.Location
	err := s.db.SelectContext(ctx, &locs, `SELECT * FROM locations WHERE warehouse_id = $1 ORDER BY code ASC`, warehouse)
	return locs, err
}

func (s *Service) GetWarehouse(ctx context.Context, id domain.WarehouseID) (domain.Warehouse, error) {
	var w domain.Warehouse
	err := s.db.GetContext(ctx, &w, `SELECT * FROM warehouses WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Warehouse{}, apperr.NotFoundf("warehouse_not_found", "warehouse %d does not exist", id)
	}
	return w, err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "unique constraint")
}
