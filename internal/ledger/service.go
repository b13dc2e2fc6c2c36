package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/wms-core/server/internal/apperr"
	"github.com/wms-core/server/internal/dbx"
	"github.com/wms-core/server/internal/domain"
)

// ChangeNotifier is called after a successful commit that touched a
// variant's balances, so Channel Sync can queue its reactive push without
// C3 importing C10 directly (§4.10 "invoked by C3 after committing any
// mutation to that variant's balances").
type ChangeNotifier interface {
	QueueSyncAfterInventoryChange(ctx context.Context, variant domain.VariantID)
}

type noopNotifier struct{}

func (noopNotifier) QueueSyncAfterInventoryChange(context.Context, domain.VariantID) {}

// Service writes InventoryBalance and InventoryTransaction rows for the
// ledger's own operations. It is not the only writer: receiving's Close and
// picking's RecordPick also write those two tables directly, inside their
// own transactions, without calling Service.
type Service struct {
	db       *dbx.DB
	repo     *Repository
	notifier ChangeNotifier
}

func NewService(db *dbx.DB, notifier ChangeNotifier) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{db: db, repo: NewRepository(db), notifier: notifier}
}

// Receive adds qty base units to (variant, to_location, on_hand) (§4.3).
func (s *Service) Receive(ctx context.Context, variant domain.VariantID, toLocation domain.LocationID, qty int64, refs domain.TxnRefs) (domain.TxnID, error) {
	if qty <= 0 {
		return 0, apperr.Validationf("invalid_qty", "receive qty must be positive")
	}
	var id domain.TxnID
	err := s.db.WithSerializableRetry(ctx, func(tx *sqlx.Tx) error {
		if err := applyDelta(ctx, tx, variant, toLocation, domain.StateOnHand, qty); err != nil {
			return err
		}
		upv, err := unitsPerVariant(ctx, tx, variant)
		if err != nil {
			return err
		}
		txn := domain.InventoryTransaction{
			TransactionType: domain.TxnReceipt,
			VariantID:       variant,
			ToLocationID:    &toLocation,
			SourceState:     domain.StateExternal,
			TargetState:     domain.StateOnHand,
			VariantQtyDelta: qty,
			BaseQtyDelta:    qty * upv,
			ReceivingOrderID: refs.ReceivingOrderID,
			UserRef:         refs.User,
			Notes:           refs.Notes,
		}
		id, err = insertTxn(ctx, tx, txn)
		return err
	})
	if err == nil {
		s.notifier.QueueSyncAfterInventoryChange(ctx, variant)
	}
	return id, err
}

// Pick requires on_hand(variant, from_location) >= qty and moves qty from
// on_hand to picked at the same location (§4.3).
func (s *Service) Pick(ctx context.Context, variant domain.VariantID, fromLocation domain.LocationID, qty int64, orderLine *domain.SOLineID, refs domain.TxnRefs) (domain.TxnID, error) {
	if qty <= 0 {
		return 0, apperr.Validationf("invalid_qty", "pick qty must be positive")
	}
	var id domain.TxnID
	err := s.db.WithSerializableRetry(ctx, func(tx *sqlx.Tx) error {
		if err := applyDelta(ctx, tx, variant, fromLocation, domain.StateOnHand, -qty); err != nil {
			return err
		}
		if err := applyDelta(ctx, tx, variant, fromLocation, domain.StatePicked, qty); err != nil {
			return err
		}
		upv, err := unitsPerVariant(ctx, tx, variant)
		if err != nil {
			return err
		}
		base := domain.InventoryTransaction{
			TransactionType: domain.TxnPick,
			VariantID:       variant,
			OrderLineID:     orderLine,
			UserRef:         refs.User,
			Notes:           refs.Notes,
		}
		id, err = insertMove(ctx, tx, base, fromLocation, fromLocation, domain.StateOnHand, domain.StatePicked, qty, upv)
		return err
	})
	if err == nil {
		s.notifier.QueueSyncAfterInventoryChange(ctx, variant)
	}
	return id, err
}

// pickedRow is an internal projection of a location holding picked stock
// tied to an order line, used by Ship to move every such row to shipped.
type pickedRow struct {
	VariantID  domain.VariantID  `db:"variant_id"`
	LocationID domain.LocationID `db:"location_id"`
	Qty        int64             `db:"qty"`
}

// Ship moves all picked quantities tied to the order_line to shipped at
// the departing location(s) (§4.3).
func (s *Service) Ship(ctx context.Context, orderLine domain.SOLineID, refs domain.TxnRefs) ([]domain.TxnID, error) {
	var ids []domain.TxnID
	err := s.db.WithSerializableRetry(ctx, func(tx *sqlx.Tx) error {
		var rows []pickedRow
		err := tx.SelectContext(ctx, &rows, `
			SELECT variant_id, to_location_id AS location_id, SUM(variant_qty_delta) AS qty
			FROM inventory_transactions
			WHERE order_line_id = $1 AND target_state = 'picked'
			GROUP BY variant_id, to_location_id`, orderLine)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if r.Qty <= 0 {
				continue
			}
			if err := applyDelta(ctx, tx, r.VariantID, r.LocationID, domain.StatePicked, -r.Qty); err != nil {
				return err
			}
			if err := applyDelta(ctx, tx, r.VariantID, r.LocationID, domain.StateShipped, r.Qty); err != nil {
				return err
			}
			upv, err := unitsPerVariant(ctx, tx, r.VariantID)
			if err != nil {
				return err
			}
			base := domain.InventoryTransaction{
				TransactionType: domain.TxnShip,
				VariantID:       r.VariantID,
				OrderLineID:     &orderLine,
				UserRef:         refs.User,
				Notes:           refs.Notes,
			}
			id, err := insertMove(ctx, tx, base, r.LocationID, r.LocationID, domain.StatePicked, domain.StateShipped, r.Qty, upv)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

// Adjust adds a signed delta to a cell; the result must remain
// non-negative and reason is required (§4.3).
func (s *Service) Adjust(ctx context.Context, variant domain.VariantID, location domain.LocationID, state domain.BalanceState, signedQty int64, reason string, refs domain.TxnRefs) (domain.TxnID, error) {
	if reason == "" {
		return 0, apperr.Validationf("reason_required", "adjust requires an explicit reason code")
	}
	if signedQty == 0 {
		return 0, apperr.Validationf("invalid_qty", "adjust delta must be non-zero")
	}
	var id domain.TxnID
	err := s.db.WithSerializableRetry(ctx, func(tx *sqlx.Tx) error {
		if err := applyDelta(ctx, tx, variant, location, state, signedQty); err != nil {
			return err
		}
		upv, err := unitsPerVariant(ctx, tx, variant)
		if err != nil {
			return err
		}
		txn := domain.InventoryTransaction{
			TransactionType: domain.TxnAdjustment,
			VariantID:       variant,
			SourceState:     state,
			TargetState:     state,
			VariantQtyDelta: signedQty,
			BaseQtyDelta:    signedQty * upv,
			Reason:          reason,
			UserRef:         refs.User,
			Notes:           refs.Notes,
		}
		if signedQty >= 0 {
			txn.ToLocationID = &location
		} else {
			txn.FromLocationID = &location
		}
		id, err = insertTxn(ctx, tx, txn)
		return err
	})
	if err == nil {
		s.notifier.QueueSyncAfterInventoryChange(ctx, variant)
	}
	return id, err
}

// Transfer atomically moves qty on_hand from one location to another,
// sharing one batch id, and returns an UndoToken carrying the watermark
// of both cells at the moment of transfer (§4.3).
func (s *Service) Transfer(ctx context.Context, variant domain.VariantID, from, to domain.LocationID, qty int64, refs domain.TxnRefs) (domain.TxnID, domain.UndoToken, error) {
	if qty <= 0 {
		return 0, domain.UndoToken{}, apperr.Validationf("invalid_qty", "transfer qty must be positive")
	}
	batch := domain.NewBatchID()
	var id domain.TxnID
	var token domain.UndoToken
	err := s.db.WithSerializableRetry(ctx, func(tx *sqlx.Tx) error {
		if err := applyDelta(ctx, tx, variant, from, domain.StateOnHand, -qty); err != nil {
			return err
		}
		if err := applyDelta(ctx, tx, variant, to, domain.StateOnHand, qty); err != nil {
			return err
		}
		fromBal, err := getBalanceForUpdate(ctx, tx, variant, from, domain.StateOnHand)
		if err != nil {
			return err
		}
		toBal, err := getBalanceForUpdate(ctx, tx, variant, to, domain.StateOnHand)
		if err != nil {
			return err
		}
		upv, err := unitsPerVariant(ctx, tx, variant)
		if err != nil {
			return err
		}
		base := domain.InventoryTransaction{
			TransactionType: domain.TxnTransfer,
			VariantID:       variant,
			BatchID:         &batch,
			UserRef:         refs.User,
			Notes:           refs.Notes,
		}
		id, err = insertMove(ctx, tx, base, from, to, domain.StateOnHand, domain.StateOnHand, qty, upv)
		if err != nil {
			return err
		}
		token = domain.UndoToken{
			BatchID: batch, Variant: variant, FromLocation: from, ToLocation: to, Qty: qty,
			FromWatermark: fromBal.Version, ToWatermark: toBal.Version,
		}
		return nil
	})
	if err == nil {
		s.notifier.QueueSyncAfterInventoryChange(ctx, variant)
	}
	return id, token, err
}

// UndoTransfer fails with NotUndoable if either cell's state has changed
// since the original transfer, otherwise posts the mirror transfer (§4.3).
func (s *Service) UndoTransfer(ctx context.Context, token domain.UndoToken) (domain.TxnID, error) {
	mirrorBatch := domain.NewBatchID()
	var id domain.TxnID
	err := s.db.WithSerializableRetry(ctx, func(tx *sqlx.Tx) error {
		fromBal, err := getBalanceForUpdate(ctx, tx, token.Variant, token.FromLocation, domain.StateOnHand)
		if err != nil {
			return err
		}
		toBal, err := getBalanceForUpdate(ctx, tx, token.Variant, token.ToLocation, domain.StateOnHand)
		if err != nil {
			return err
		}
		if watermarkStale(token, fromBal.Version, toBal.Version) {
			return apperr.New(apperr.NotUndoable, "transfer_superseded",
				"one of the two cells has been touched since this transfer")
		}
		if err := applyDelta(ctx, tx, token.Variant, token.ToLocation, domain.StateOnHand, -token.Qty); err != nil {
			return err
		}
		if err := applyDelta(ctx, tx, token.Variant, token.FromLocation, domain.StateOnHand, token.Qty); err != nil {
			return err
		}
		upv, err := unitsPerVariant(ctx, tx, token.Variant)
		if err != nil {
			return err
		}
		base := domain.InventoryTransaction{
			TransactionType: domain.TxnTransfer,
			VariantID:       token.Variant,
			BatchID:         &mirrorBatch,
			Notes:           "undo of batch " + token.BatchID.String(),
		}
		id, err = insertMove(ctx, tx, base, token.ToLocation, token.FromLocation, domain.StateOnHand, domain.StateOnHand, token.Qty, upv)
		return err
	})
	if err == nil {
		s.notifier.QueueSyncAfterInventoryChange(ctx, token.Variant)
	}
	return id, err
}

type pickableLocation struct {
	LocationID domain.LocationID `db:"location_id"`
	Qty        int64             `db:"qty"`
}

// Reserve moves qty from on_hand to committed, selecting pickable
// locations by FIFO over (created_at, location_code) until qty is
// satisfied (§4.3).
func (s *Service) Reserve(ctx context.Context, variant domain.VariantID, warehouse domain.WarehouseID, qty int64, orderLine domain.SOLineID) (domain.TxnID, error) {
	return s.moveAcrossLocations(ctx, variant, warehouse, qty, orderLine, domain.StateOnHand, domain.StateCommitted, domain.TxnReserve)
}

// Unreserve is the inverse of Reserve (§4.3).
func (s *Service) Unreserve(ctx context.Context, variant domain.VariantID, warehouse domain.WarehouseID, qty int64, orderLine domain.SOLineID) (domain.TxnID, error) {
	return s.moveAcrossLocations(ctx, variant, warehouse, qty, orderLine, domain.StateCommitted, domain.StateOnHand, domain.TxnUnreserve)
}

func (s *Service) moveAcrossLocations(ctx context.Context, variant domain.VariantID, warehouse domain.WarehouseID, qty int64, orderLine domain.SOLineID, from, to domain.BalanceState, txnType domain.TransactionType) (domain.TxnID, error) {
	if qty <= 0 {
		return 0, apperr.Validationf("invalid_qty", "reserve/unreserve qty must be positive")
	}
	var id domain.TxnID
	err := s.db.WithSerializableRetry(ctx, func(tx *sqlx.Tx) error {
		var locs []pickableLocation
		err := tx.SelectContext(ctx, &locs, `
			SELECT b.location_id, b.qty
			FROM inventory_balances b
			JOIN locations l ON l.id = b.location_id
			WHERE b.variant_id = $1 AND b.state = $2 AND l.warehouse_id = $3 AND l.is_pickable AND b.qty > 0
			ORDER BY b.created_at ASC, l.code ASC
			FOR UPDATE OF b`, variant, from, warehouse)
		if err != nil {
			return err
		}
		remaining := qty
		upv, err := unitsPerVariant(ctx, tx, variant)
		if err != nil {
			return err
		}
		for _, loc := range locs {
			if remaining <= 0 {
				break
			}
			take := loc.Qty
			if take > remaining {
				take = remaining
			}
			if err := applyDelta(ctx, tx, variant, loc.LocationID, from, -take); err != nil {
				return err
			}
			if err := applyDelta(ctx, tx, variant, loc.LocationID, to, take); err != nil {
				return err
			}
			base := domain.InventoryTransaction{
				TransactionType: txnType,
				VariantID:       variant,
				OrderLineID:     &orderLine,
			}
			id, err = insertMove(ctx, tx, base, loc.LocationID, loc.LocationID, from, to, take, upv)
			if err != nil {
				return err
			}
			remaining -= take
		}
		if remaining > 0 {
			return apperr.InsufficientStockf("insufficient_pickable_stock",
				"only %d of %d requested units available at pickable locations", qty-remaining, qty)
		}
		return nil
	})
	return id, err
}

// ATP computes the §4.3 Available-To-Promise projection on demand: never
// cached on write.
func (s *Service) ATP(ctx context.Context, variant domain.VariantID, warehouse domain.WarehouseID) (domain.ATPResult, error) {
	var baseUnits int64
	var upv int64
	err := s.db.GetContext(ctx, &upv, `SELECT units_per_variant FROM product_variants WHERE id = $1`, variant)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ATPResult{}, apperr.New(apperr.NotFound, "unknown_variant", "variant does not exist")
	}
	if err != nil {
		return domain.ATPResult{}, err
	}

	// sibling pool: every variant of the same product shares base units,
	// so ATP is computed across the whole product, in base units, then
	// re-expressed per this variant's units_per_variant (§4.3 "fungible
	// across UOMs").
	err = s.db.GetContext(ctx, &baseUnits, `
		SELECT
			COALESCE(SUM(CASE WHEN b.state = 'on_hand' AND l.is_pickable THEN b.qty * pv.units_per_variant ELSE 0 END), 0)
			+ COALESCE(SUM(CASE WHEN b.state = 'committed' THEN b.qty * pv.units_per_variant ELSE 0 END), 0)
		FROM inventory_balances b
		JOIN locations l ON l.id = b.location_id
		JOIN product_variants pv ON pv.id = b.variant_id
		WHERE pv.product_id = (SELECT product_id FROM product_variants WHERE id = $1)
		  AND l.warehouse_id = $2`, variant, warehouse)
	if err != nil {
		return domain.ATPResult{}, err
	}

	return buildATPResult(variant, warehouse, baseUnits, upv), nil
}

// buildATPResult re-expresses base units (pooled across every UOM sibling
// of the product) in this variant's own unit via floor division, which is
// what makes ATP fungible across UOMs (§4.3).
func buildATPResult(variant domain.VariantID, warehouse domain.WarehouseID, baseUnits, upv int64) domain.ATPResult {
	return domain.ATPResult{
		VariantID:       variant,
		WarehouseID:     warehouse,
		ATPBaseUnits:    baseUnits,
		UnitsPerVariant: upv,
		ATPVariantUnits: baseUnits / upv,
	}
}

// TransactionFilter narrows ListTransactions to a variant and/or location;
// zero values are treated as "any".
type TransactionFilter struct {
	VariantID  domain.VariantID
	LocationID domain.LocationID
	Limit      int
}

// ListTransactions returns the most recent ledger entries matching filter,
// newest first, for the audit-trail view behind GET /api/inventory/transactions.
func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.InventoryTransaction, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT * FROM inventory_transactions WHERE 1=1`
	args := []interface{}{}
	if filter.VariantID != 0 {
		args = append(args, filter.VariantID)
		query += fmt.Sprintf(" AND variant_id = $%d", len(args))
	}
	if filter.LocationID != 0 {
		args = append(args, filter.LocationID, filter.LocationID)
		query += fmt.Sprintf(" AND (from_location_id = $%d OR to_location_id = $%d)", len(args)-1, len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", len(args))

	var txns []domain.InventoryTransaction
	if err := s.db.SelectContext(ctx, &txns, query, args...); err != nil {
		return nil, err
	}
	return txns, nil
}
