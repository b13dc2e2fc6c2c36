// Package oms implements Order Management (§4.7): status/hold/priority,
// address-hash combining, uncombine, and auto-release settings.
package oms

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
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

// HashAddress normalizes street+city+state+postal+country and hashes it,
// so two orders shipping to equivalent addresses combine regardless of
// whitespace/case differences (§4.7).
func HashAddress(street, city, state, postal, country string) string {
	norm := strings.ToLower(strings.Join(
		[]string{strings.TrimSpace(street), strings.TrimSpace(city), strings.TrimSpace(state), strings.TrimSpace(postal), strings.TrimSpace(country)},
		"|"))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

func (s *Service) SetHold(ctx context.Context, id domain.SalesOrderID, onHold bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sales_orders SET on_hold=$2, updated_at=now() WHERE id=$1`, id, onHold)
	if err != nil {
		return err
	}
	return requireOneRow(res, id)
}

func (s *Service) SetPriority(ctx context.Context, id domain.SalesOrderID, p domain.SalesOrderPriority) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sales_orders SET priority=$2, updated_at=now() WHERE id=$1`, id, p)
	if err != nil {
		return err
	}
	return requireOneRow(res, id)
}

func (s *Service) SetStatus(ctx context.Context, id domain.SalesOrderID, status domain.SalesOrderStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sales_orders SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	return requireOneRow(res, id)
}

// Combine groups two or more open, unshipped orders sharing a hashed
// address and customer into one group: the first order becomes parent,
// the rest children (§4.7).
func (s *Service) Combine(ctx context.Context, orderIDs []domain.SalesOrderID) (int64, error) {
	if len(orderIDs) < 2 {
		return 0, apperr.Validationf("combine_requires_two", "combining requires at least 2 orders")
	}
	var groupID int64
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var orders []domain.SalesOrder
		query, args, err := sqlxIn(`SELECT * FROM sales_orders WHERE id IN (?) FOR UPDATE`, orderIDs)
		if err != nil {
			return err
		}
		if err := tx.SelectContext(ctx, &orders, query, args...); err != nil {
			return err
		}
		if len(orders) != len(orderIDs) {
			return apperr.NotFoundf("order_not_found", "one or more orders do not exist")
		}
		for i := 1; i < len(orders); i++ {
			if !domain.CanCombine(orders[0], orders[i]) {
				return apperr.Validationf("cannot_combine", "orders %d and %d cannot be combined", orders[0].ID, orders[i].ID)
			}
		}
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO combined_groups (created_at) VALUES (now()) RETURNING id`).Scan(&groupID); err != nil {
			return err
		}
		for i, o := range orders {
			role := domain.CombinedChild
			if i == 0 {
				role = domain.CombinedParent
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE sales_orders SET combined_group_id=$2, combined_role=$3, updated_at=now() WHERE id=$1`,
				o.ID, groupID, role); err != nil {
				return err
			}
		}
		return nil
	})
	return groupID, err
}

// Uncombine is allowed only while no line in the group has been picked
// (§4.7). It is kept internal-only per SPEC_FULL.md's resolution of the
// spec's open question on group-join exposure: the HTTP API surfaces
// combine but not uncombine.
func (s *Service) Uncombine(ctx context.Context, groupID int64) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var pickedCount int
		err := tx.GetContext(ctx, &pickedCount, `
			SELECT COUNT(*) FROM sales_order_lines l
			JOIN sales_orders o ON o.id = l.order_id
			WHERE o.combined_group_id = $1 AND l.picked_qty > 0`, groupID)
		if err != nil {
			return err
		}
		if pickedCount > 0 {
			return apperr.Conflictf("group_already_picking", "cannot uncombine: at least one line has been picked")
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE sales_orders SET combined_group_id=NULL, combined_role=NULL, updated_at=now() WHERE combined_group_id = $1`, groupID)
		return err
	})
}

// ReleaseDue implements the §4.7 auto-release step: every order in "ready"
// status, not on hold, on one of the given channels moves to "in_progress",
// and the number moved is returned. cmd/server calls it once a minute with
// every active channel; per-channel cadences (immediate, every 5 or 15
// minutes, hourly) are not applied.
func (s *Service) ReleaseDue(ctx context.Context, channelIDs []domain.ChannelID) (int64, error) {
	if len(channelIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlxIn(`
		UPDATE sales_orders SET status='in_progress', updated_at=now()
		WHERE status='ready' AND on_hold=false AND channel_id IN (?)`, channelIDs)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Service) List(ctx context.Context, status *domain.SalesOrderStatus, channelID *domain.ChannelID) ([]domain.SalesOrder, error) {
	var orders []domain.SalesOrder
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM sales_orders
		WHERE ($1::text IS NULL OR status = $1) AND ($2::bigint IS NULL OR channel_id = $2)
		ORDER BY created_at ASC`, status, channelID)
	return orders, err
}

func requireOneRow(res sql.Result, id domain.SalesOrderID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFoundf("order_not_found", "sales order %d does not exist", id)
	}
	return nil
}

// sqlxIn expands an IN (?) placeholder for a slice argument; sqlx.In
// requires a *sqlx.DB/Tx-flavored rebind, which callers apply themselves
// via tx since every caller here is Postgres ($-style).
func sqlxIn(query string, args ...any) (string, []any, error) {
	expanded, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.DOLLAR, expanded), inArgs, nil
}
