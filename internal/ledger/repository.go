// Package ledger implements the Inventory Ledger & ATP Engine (the
// warehouse's hardest core): it applies movements to located inventory and
// derives the ATP projection on demand. Receiving's close and picking's pick
// recording write the balance and transaction tables directly rather than
// through this package.
package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/wms-core/server/internal/apperr"
	"github.com/wms-core/server/internal/dbx"
	"github.com/wms-core/server/internal/domain"
)

// Repository is the sqlx-backed persistence for balances and transactions.
// It is intentionally thin: every invariant-bearing decision lives in
// Service, not here, so Service can run it inside dbx.WithSerializableRetry.
type Repository struct {
	db *dbx.DB
}

func NewRepository(db *dbx.DB) *Repository {
	return &Repository{db: db}
}

// getBalanceForUpdate locks the (variant, location, state) row for the
// duration of the enclosing transaction (§4.3 "the balance row is the
// synchronization unit"). Returns a zero-value balance with Version 0 if
// the cell has never existed.
func getBalanceForUpdate(ctx context.Context, tx *sqlx.Tx, variant domain.VariantID, location domain.LocationID, state domain.BalanceState) (domain.InventoryBalance, error) {
	var b domain.InventoryBalance
	err := tx.GetContext(ctx, &b, `
		SELECT variant_id, location_id, state, qty, version, created_at, updated_at
		FROM inventory_balances
		WHERE variant_id = $1 AND location_id = $2 AND state = $3
		FOR UPDATE`, variant, location, state)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.InventoryBalance{VariantID: variant, LocationID: location, State: state, Qty: 0, Version: 0}, nil
	}
	if err != nil {
		return domain.InventoryBalance{}, err
	}
	return b, nil
}

// nextBalanceQty applies delta to cur and rejects the result if it would
// go negative (§8 property 1: every balance stays >= 0).
func nextBalanceQty(cur, delta int64) (int64, error) {
	next := cur + delta
	if next < 0 {
		return 0, apperr.New(apperr.InsufficientStock, "negative_balance", "balance would go negative")
	}
	return next, nil
}

// applyDelta upserts the cell with qty += delta, bumping Version, and
// rejects the negative-balance outcome before it is committed.
func applyDelta(ctx context.Context, tx *sqlx.Tx, variant domain.VariantID, location domain.LocationID, state domain.BalanceState, delta int64) error {
	cur, err := getBalanceForUpdate(ctx, tx, variant, location, state)
	if err != nil {
		return err
	}
	next, err := nextBalanceQty(cur.Qty, delta)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventory_balances (variant_id, location_id, state, qty, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, now(), now())
		ON CONFLICT (variant_id, location_id, state) DO UPDATE
		SET qty = $4, version = inventory_balances.version + 1, updated_at = now()`,
		variant, location, state, next)
	return err
}

// insertMove writes two linked inventory_transactions rows for an atomic
// relocation of qty units between two (location, state) cells of the same
// variant: a decrement leg against the source cell and an increment leg
// against the destination cell. Their deltas sum to zero, so a pure move
// leaves the variant's Σ variant_qty_delta unchanged — only Receive and
// Adjust, which create or destroy units rather than relocate them,
// contribute a nonzero net delta (§8 property 2). Both legs inherit refs
// and batch id from base; the increment leg's id is returned, since that
// is the cell callers query against (e.g. Ship's target_state = 'picked'
// sum).
func insertMove(ctx context.Context, tx *sqlx.Tx, base domain.InventoryTransaction, fromLocation, toLocation domain.LocationID, fromState, toState domain.BalanceState, qty, upv int64) (domain.TxnID, error) {
	decrement, increment := buildMoveLegs(base, fromLocation, toLocation, fromState, toState, qty, upv)
	if _, err := insertTxn(ctx, tx, decrement); err != nil {
		return 0, err
	}
	return insertTxn(ctx, tx, increment)
}

// buildMoveLegs computes the two rows a move writes without touching the
// database, so the §8 accounting properties it exists to satisfy can be
// checked directly: VariantQtyDelta sums to zero across the pair, and each
// leg's BaseQtyDelta equals its VariantQtyDelta * upv.
func buildMoveLegs(base domain.InventoryTransaction, fromLocation, toLocation domain.LocationID, fromState, toState domain.BalanceState, qty, upv int64) (decrement, increment domain.InventoryTransaction) {
	decrement = base
	decrement.FromLocationID = &fromLocation
	decrement.ToLocationID = &fromLocation
	decrement.SourceState = fromState
	decrement.TargetState = fromState
	decrement.VariantQtyDelta = -qty
	decrement.BaseQtyDelta = -qty * upv

	increment = base
	increment.FromLocationID = &fromLocation
	increment.ToLocationID = &toLocation
	increment.SourceState = fromState
	increment.TargetState = toState
	increment.VariantQtyDelta = qty
	increment.BaseQtyDelta = qty * upv
	return decrement, increment
}

// watermarkStale reports whether either balance cell behind an UndoToken
// has changed since the transfer it came from, which blocks the undo
// (§4.3 transfer-undo guard).
func watermarkStale(token domain.UndoToken, fromVersion, toVersion int64) bool {
	return fromVersion != token.FromWatermark || toVersion != token.ToWatermark
}

func insertTxn(ctx context.Context, tx *sqlx.Tx, t domain.InventoryTransaction) (domain.TxnID, error) {
	var id domain.TxnID
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO inventory_transactions (
			timestamp, transaction_type, variant_id, from_location_id, to_location_id,
			source_state, target_state, variant_qty_delta, base_qty_delta, batch_id,
			order_id, order_line_id, receiving_order_id, cycle_count_id,
			free_text_ref, user_ref, notes, reason
		) VALUES (
			now(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		) RETURNING id`,
		t.TransactionType, t.VariantID, t.FromLocationID, t.ToLocationID,
		t.SourceState, t.TargetState, t.VariantQtyDelta, t.BaseQtyDelta, t.BatchID,
		t.OrderID, t.OrderLineID, t.ReceivingOrderID, t.CycleCountID,
		t.FreeTextRef, t.UserRef, t.Notes, t.Reason,
	).Scan(&id)
	return id, err
}

func unitsPerVariant(ctx context.Context, tx *sqlx.Tx, variant domain.VariantID) (int64, error) {
	var n int64
	err := tx.GetContext(ctx, &n, `SELECT units_per_variant FROM product_variants WHERE id = $1`, variant)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.New(apperr.NotFound, "unknown_variant", "variant does not exist")
	}
	return n, err
}
