// Package purchasing implements the PO state machine, totals computation,
// approval-tier routing, revisions, reorder-to-PO batching, and the
// on-order query of §4.4.
package purchasing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/wms-core/server/internal/apperr"
	"github.com/wms-core/server/internal/dbx"
	"github.com/wms-core/server/internal/domain"
	"github.com/wms-core/server/internal/seqnum"
)

type Service struct {
	db *dbx.DB
}

func NewService(db *dbx.DB) *Service {
	return &Service{db: db}
}

// RecalculateTotals implements the §4.4 totals formula over non-cancelled
// lines: it sets each line's LineTotalCents and returns the PO, with
// SubtotalCents and GrandTotalCents set, together with the lines.
func RecalculateTotals(po domain.PurchaseOrder, lines []domain.PurchaseOrderLine) (domain.PurchaseOrder, []domain.PurchaseOrderLine) {
	var subtotal int64
	for i, l := range lines {
		if l.DeriveStatus() == domain.LineCancelled {
			lines[i].LineTotalCents = 0
			continue
		}
		lineSubtotal := l.OrderQty * l.UnitCostCents
		lineDiscount := roundCents(float64(lineSubtotal) * l.DiscountPct / 100)
		lineTax := roundCents(float64(lineSubtotal-lineDiscount) * l.TaxPct / 100)
		lines[i].LineTotalCents = lineSubtotal - lineDiscount + lineTax
		subtotal += lines[i].LineTotalCents
	}
	po.SubtotalCents = subtotal
	po.GrandTotalCents = subtotal - po.DiscountCents + po.TaxCents + po.ShippingCents
	return po, lines
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

// Create inserts a new PO in draft status along with its lines,
// computing totals before the lines are persisted so LineTotalCents is
// never stale on read (§4.4).
func (s *Service) Create(ctx context.Context, po domain.PurchaseOrder, lines []domain.PurchaseOrderLine) (domain.POID, error) {
	po, lines = RecalculateTotals(po, lines)

	var id domain.POID
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		number, err := seqnum.Next(ctx, tx, "po_number", "PO")
		if err != nil {
			return err
		}
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO purchase_orders (
				po_number, vendor_id, warehouse_id, status, priority, currency,
				expected_delivery_date, subtotal_cents, discount_cents, tax_cents,
				shipping_cents, grand_total_cents, revision_number, created_at, updated_at
			) VALUES ($1,$2,$3,'draft',$4,$5,$6,$7,$8,$9,$10,$11,1, now(), now())
			RETURNING id`,
			number, po.VendorID, po.WarehouseID, po.Priority, po.Currency,
			po.ExpectedDeliveryDate, po.SubtotalCents, po.DiscountCents, po.TaxCents,
			po.ShippingCents, po.GrandTotalCents,
		).Scan(&id); err != nil {
			return err
		}

		for i, l := range lines {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO purchase_order_lines (
					po_id, line_number, product_id, variant_id, vendor_product_id, sku_snapshot,
					unit_cost_cents, order_qty, discount_pct, tax_pct, line_total_cents, status
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,'open')`,
				id, i+1, l.ProductID, l.VariantID, l.VendorProductID, l.SKUSnapshot,
				l.UnitCostCents, l.OrderQty, l.DiscountPct, l.TaxPct, l.LineTotalCents); err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

// Submit recomputes totals, then routes the PO through the lowest
// matching ApprovalTier by grand-total threshold, or auto-approves it
// (§4.4).
func (s *Service) Submit(ctx context.Context, poID domain.POID, changedBy string) error {
	return s.db.WithSerializableRetry(ctx, func(tx *sqlx.Tx) error {
		var po domain.PurchaseOrder
		if err := tx.GetContext(ctx, &po, `SELECT * FROM purchase_orders WHERE id = $1 FOR UPDATE`, poID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFoundf("po_not_found", "purchase order %d does not exist", poID)
			}
			return err
		}
		if po.Status != domain.PODraft {
			return apperr.InvalidTransitionf("po_not_editable", "PO %d is not in draft", poID)
		}
		var lines []domain.PurchaseOrderLine
		if err := tx.SelectContext(ctx, &lines, `SELECT * FROM purchase_order_lines WHERE po_id = $1`, poID); err != nil {
			return err
		}
		po, lines = RecalculateTotals(po, lines)

		var tier domain.ApprovalTier
		err := tx.GetContext(ctx, &tier, `
			SELECT * FROM approval_tiers
			WHERE min_cents <= $1 AND (max_cents IS NULL OR max_cents >= $1)
			ORDER BY min_cents DESC LIMIT 1`, po.GrandTotalCents)
		next := domain.POApproved
		var tierID *domain.ApprovalID
		note := "auto-approved"
		if err == nil {
			next = domain.POPendingApproval
			tierID = &tier.ID
			note = ""
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if !domain.CanTransition(domain.PODraft, next) {
			return apperr.InvalidTransitionf("bad_submit_target", "cannot move draft PO to %s", next)
		}

		for _, l := range lines {
			if _, err := tx.ExecContext(ctx, `UPDATE purchase_order_lines SET line_total_cents = $2 WHERE id = $1`, l.ID, l.LineTotalCents); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE purchase_orders
			SET subtotal_cents=$2, grand_total_cents=$3, status=$4, approval_tier_id=$5, updated_at=now()
			WHERE id=$1`, poID, po.SubtotalCents, po.GrandTotalCents, next, tierID)
		if err != nil {
			return err
		}
		return recordTransition(ctx, tx, poID, domain.PODraft, next, changedBy, note)
	})
}

// Transition moves a PO to `to`, validating against the allowed-set table
// and appending a POStatusEvent (§4.4, §3).
func (s *Service) Transition(ctx context.Context, poID domain.POID, to domain.POStatus, changedBy, note string) error {
	return s.db.WithSerializableRetry(ctx, func(tx *sqlx.Tx) error {
		var from domain.POStatus
		if err := tx.GetContext(ctx, &from, `SELECT status FROM purchase_orders WHERE id = $1 FOR UPDATE`, poID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFoundf("po_not_found", "purchase order %d does not exist", poID)
			}
			return err
		}
		if !domain.CanTransition(from, to) {
			return apperr.InvalidTransitionf("po_bad_transition", "cannot move PO %d from %s to %s", poID, from, to)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE purchase_orders SET status=$2, updated_at=now() WHERE id=$1`, poID, to); err != nil {
			return err
		}
		return recordTransition(ctx, tx, poID, from, to, changedBy, note)
	})
}

func recordTransition(ctx context.Context, tx *sqlx.Tx, poID domain.POID, from, to domain.POStatus, changedBy, note string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO po_status_events (po_id, from_status, to_status, changed_by, note, changed_at)
		VALUES ($1,$2,$3,$4,$5, now())`, poID, from, to, changedBy, note)
	return err
}

// History returns the audit trail of status events for a PO, oldest first
// (§3 "audit trail of who/when for each state transition").
func (s *Service) History(ctx context.Context, poID domain.POID) ([]domain.POStatusEvent, error) {
	var events []domain.POStatusEvent
	err := s.db.SelectContext(ctx, &events, `
		SELECT * FROM po_status_events WHERE po_id = $1 ORDER BY changed_at ASC`, poID)
	return events, err
}

// EditLine snapshots a PoRevision for each changed field whenever a PO
// past `sent` is modified (§4.4 "Revisions").
func (s *Service) EditLine(ctx context.Context, poID domain.POID, lineID domain.POLineID, field, before, after, changedBy string) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var status domain.POStatus
		var revNum int
		if err := tx.QueryRowxContext(ctx, `SELECT status, revision_number FROM purchase_orders WHERE id = $1 FOR UPDATE`, poID).Scan(&status, &revNum); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFoundf("po_not_found", "purchase order %d does not exist", poID)
			}
			return err
		}
		pastSent := status != domain.PODraft && status != domain.POPendingApproval && status != domain.POApproved
		if pastSent {
			revNum++
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO po_revisions (po_id, revision_number, field_name, before_value, after_value, changed_by, changed_at)
				VALUES ($1,$2,$3,$4,$5,$6, now())`, poID, revNum, field, before, after, changedBy); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE purchase_orders SET revision_number=$2 WHERE id=$1`, poID, revNum); err != nil {
				return err
			}
		}
		return nil
	})
}

// OnOrderResult is the result of §4.4's on_order(variant) query: the sum
// of order_qty-received_qty-cancelled_qty over all open PO lines for the
// variant, plus the earliest expected_delivery_date among them.
type OnOrderResult struct {
	Qty                  int64
	EarliestExpectedDate *time.Time
}

func (s *Service) OnOrder(ctx context.Context, variant domain.VariantID) (OnOrderResult, error) {
	var res OnOrderResult
	var qty sql.NullInt64
	var earliest sql.NullTime
	err := s.db.QueryRowxContext(ctx, `
		SELECT COALESCE(SUM(l.order_qty - l.received_qty - l.cancelled_qty), 0), MIN(po.expected_delivery_date)
		FROM purchase_order_lines l
		JOIN purchase_orders po ON po.id = l.po_id
		WHERE l.variant_id = $1
		  AND l.status IN ('open', 'partially_received')`, variant).Scan(&qty, &earliest)
	if err != nil {
		return res, err
	}
	res.Qty = qty.Int64
	if earliest.Valid {
		res.EarliestExpectedDate = &earliest.Time
	}
	return res, nil
}

// ReorderItem is one line of a reorder request (§4.4 "Reorder -> PO").
type ReorderItem struct {
	ProductID     domain.ProductID
	VariantID     domain.VariantID
	SuggestedQty  int64
}

// Get returns a PO header and its lines.
func (s *Service) Get(ctx context.Context, poID domain.POID) (domain.PurchaseOrder, []domain.PurchaseOrderLine, error) {
	var po domain.PurchaseOrder
	if err := s.db.GetContext(ctx, &po, `SELECT * FROM purchase_orders WHERE id = $1`, poID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PurchaseOrder{}, nil, apperr.NotFoundf("po_not_found", "purchase order %d does not exist", poID)
		}
		return domain.PurchaseOrder{}, nil, err
	}
	var lines []domain.PurchaseOrderLine
	if err := s.db.SelectContext(ctx, &lines, `SELECT * FROM purchase_order_lines WHERE po_id = $1 ORDER BY line_number`, poID); err != nil {
		return domain.PurchaseOrder{}, nil, err
	}
	return po, lines, nil
}

// List returns PO headers, optionally filtered by status and vendor.
func (s *Service) List(ctx context.Context, status domain.POStatus, vendor domain.VendorID) ([]domain.PurchaseOrder, error) {
	query := `SELECT * FROM purchase_orders WHERE 1=1`
	args := []interface{}{}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if vendor != 0 {
		args = append(args, vendor)
		query += fmt.Sprintf(" AND vendor_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	var pos []domain.PurchaseOrder
	if err := s.db.SelectContext(ctx, &pos, query, args...); err != nil {
		return nil, err
	}
	return pos, nil
}

// OnReceivingOrderClosed implements receiving.POCallback: folds each
// closed receiving line's received/damaged quantities into its matching
// purchase_order_lines row, re-derives line status, and auto-transitions
// the parent PO to partially_received or received once every line clears
// (§4.6 "closing a receiving order against a PO auto-transitions it").
// Runs inside the caller's transaction, so a receiving close and its PO
// rollup commit atomically.
func (s *Service) OnReceivingOrderClosed(ctx context.Context, tx *sqlx.Tx, poID domain.POID, lines []domain.ReceivingLine) error {
	for _, rl := range lines {
		if rl.POLineID == nil {
			continue
		}
		var line domain.PurchaseOrderLine
		if err := tx.GetContext(ctx, &line, `SELECT * FROM purchase_order_lines WHERE id = $1 FOR UPDATE`, *rl.POLineID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return err
		}
		line.ReceivedQty += rl.ReceivedQty
		line.DamagedQty += rl.DamagedQty
		line.Status = line.DeriveStatus()
		if _, err := tx.ExecContext(ctx, `
			UPDATE purchase_order_lines
			SET received_qty=$2, damaged_qty=$3, status=$4
			WHERE id=$1`, line.ID, line.ReceivedQty, line.DamagedQty, line.Status); err != nil {
			return err
		}
	}

	var po domain.PurchaseOrder
	if err := tx.GetContext(ctx, &po, `SELECT * FROM purchase_orders WHERE id = $1 FOR UPDATE`, poID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	var poLines []domain.PurchaseOrderLine
	if err := tx.SelectContext(ctx, &poLines, `SELECT * FROM purchase_order_lines WHERE po_id = $1`, poID); err != nil {
		return err
	}
	allClosed := true
	for _, l := range poLines {
		status := l.DeriveStatus()
		if status != domain.LineReceived && status != domain.LineCancelled {
			allClosed = false
			break
		}
	}
	next := domain.POPartiallyReceived
	if allClosed {
		next = domain.POReceived
	}
	if next == domain.POReceived && po.Status == domain.POSent {
		// sent has no direct edge to received; step through partially_received.
		if _, err := tx.ExecContext(ctx, `UPDATE purchase_orders SET status=$2, updated_at=now() WHERE id=$1`, poID, domain.POPartiallyReceived); err != nil {
			return err
		}
		if err := recordTransition(ctx, tx, poID, po.Status, domain.POPartiallyReceived, "system", "receiving order closed"); err != nil {
			return err
		}
		po.Status = domain.POPartiallyReceived
	}
	if po.Status == next || !domain.CanTransition(po.Status, next) {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `UPDATE purchase_orders SET status=$2, updated_at=now() WHERE id=$1`, poID, next); err != nil {
		return err
	}
	return recordTransition(ctx, tx, poID, po.Status, next, "system", "receiving order closed")
}

// ReorderToPO groups items by resolved preferred vendor and creates one
// draft PO per vendor. A missing preferred vendor for any item fails the
// whole batch with NoPreferredVendor (modeled as apperr.Validation).
func (s *Service) ReorderToPO(ctx context.Context, items []ReorderItem) ([]domain.POID, error) {
	var ids []domain.POID
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		byVendor := map[domain.VendorID][]ReorderItem{}
		for _, item := range items {
			var vendorID domain.VendorID
			var unitCost int64
			err := tx.QueryRowxContext(ctx, `
				SELECT vendor_id, unit_cost_cents FROM vendor_products
				WHERE product_id = $1 AND preferred LIMIT 1`, item.ProductID).Scan(&vendorID, &unitCost)
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.Validationf("no_preferred_vendor", "product %d has no preferred vendor", item.ProductID)
			}
			if err != nil {
				return err
			}
			byVendor[vendorID] = append(byVendor[vendorID], item)
		}
		for vendorID, vendorItems := range byVendor {
			poNumber, err := seqnum.Next(ctx, tx, "po_number", "PO")
			if err != nil {
				return err
			}
			var poID domain.POID
			err = tx.QueryRowxContext(ctx, `
				INSERT INTO purchase_orders (po_number, vendor_id, status, currency, created_at, updated_at)
				VALUES ($1, $2, 'draft', 'USD', now(), now()) RETURNING id`,
				poNumber, vendorID).Scan(&poID)
			if err != nil {
				return err
			}
			for i, item := range vendorItems {
				var unitCost int64
				if err := tx.GetContext(ctx, &unitCost, `
					SELECT unit_cost_cents FROM vendor_products WHERE product_id=$1 AND vendor_id=$2`, item.ProductID, vendorID); err != nil {
					return err
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO purchase_order_lines (po_id, line_number, product_id, variant_id, unit_cost_cents, order_qty, status)
					VALUES ($1,$2,$3,$4,$5,$6,'open')`, poID, i+1, item.ProductID, item.VariantID, unitCost, item.SuggestedQty); err != nil {
					return err
				}
			}
			ids = append(ids, poID)
		}
		return nil
	})
	return ids, err
}
