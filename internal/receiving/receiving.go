// Package receiving implements the ReceivingOrder flow of §4.6: create,
// open, line updates, CSV import, and the idempotent close that emits
// ledger receipts and rolls status up to a linked PO.
package receiving

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/wms-core/server/internal/apperr"
	"github.com/wms-core/server/internal/catalog"
	"github.com/wms-core/server/internal/dbx"
	"github.com/wms-core/server/internal/domain"
	"github.com/wms-core/server/internal/ledger"
	"github.com/wms-core/server/internal/seqnum"
)

// POCallback is invoked once per closed receiving order that is
// PO-linked, so Purchasing can roll up received/damaged counts and
// auto-transition the PO (§4.6 on_receiving_order_closed).
type POCallback func(ctx context.Context, tx *sqlx.Tx, poID domain.POID, lines []domain.ReceivingLine) error

// noopNotifier discards the reactive sync trigger when the service is built
// without one (e.g. package tests).
type noopNotifier struct{}

func (noopNotifier) QueueSyncAfterInventoryChange(context.Context, domain.VariantID) {}

type Service struct {
	db         *dbx.DB
	ledger     *ledger.Service
	onPOClosed POCallback
	notifier   ledger.ChangeNotifier
}

func NewService(db *dbx.DB, ledgerSvc *ledger.Service, onPOClosed POCallback, notifier ledger.ChangeNotifier) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{db: db, ledger: ledgerSvc, onPOClosed: onPOClosed, notifier: notifier}
}

func (s *Service) Create(ctx context.Context, ro domain.ReceivingOrder) (domain.ReceivingID, error) {
	var id domain.ReceivingID
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		number, err := seqnum.Next(ctx, tx, "receipt_number", "RCV")
		if err != nil {
			return err
		}
		return tx.QueryRowxContext(ctx, `
			INSERT INTO receiving_orders (receipt_number, source_type, vendor_id, warehouse_id, po_id, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,'draft', now(), now())
			RETURNING id`, number, ro.SourceType, ro.VendorID, ro.WarehouseID, ro.POID).Scan(&id)
	})
	return id, err
}

// Get returns a receiving order header and its lines.
func (s *Service) Get(ctx context.Context, id domain.ReceivingID) (domain.ReceivingOrder, []domain.ReceivingLine, error) {
	var ro domain.ReceivingOrder
	if err := s.db.GetContext(ctx, &ro, `SELECT * FROM receiving_orders WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ReceivingOrder{}, nil, apperr.NotFoundf("receiving_not_found", "receiving order %d does not exist", id)
		}
		return domain.ReceivingOrder{}, nil, err
	}
	var lines []domain.ReceivingLine
	if err := s.db.SelectContext(ctx, &lines, `SELECT * FROM receiving_lines WHERE receiving_order_id = $1`, id); err != nil {
		return domain.ReceivingOrder{}, nil, err
	}
	return ro, lines, nil
}

// List returns receiving order headers, optionally filtered by status.
func (s *Service) List(ctx context.Context, status domain.ReceivingOrderStatus) ([]domain.ReceivingOrder, error) {
	var orders []domain.ReceivingOrder
	var err error
	if status != "" {
		err = s.db.SelectContext(ctx, &orders, `SELECT * FROM receiving_orders WHERE status = $1 ORDER BY created_at DESC`, status)
	} else {
		err = s.db.SelectContext(ctx, &orders, `SELECT * FROM receiving_orders ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) Open(ctx context.Context, id domain.ReceivingID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE receiving_orders SET status='open', updated_at=now() WHERE id=$1 AND status='draft'`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.InvalidTransitionf("receiving_not_draft", "receiving order %d is not in draft", id)
	}
	return nil
}

func (s *Service) UpdateLine(ctx context.Context, lineID domain.RecvLineID, receivedQty, damagedQty int64, putaway *domain.LocationID, notes string) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var expectedQty int64
		if err := tx.GetContext(ctx, &expectedQty, `SELECT expected_qty FROM receiving_lines WHERE id = $1 FOR UPDATE`, lineID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFoundf("receiving_line_not_found", "receiving line %d does not exist", lineID)
			}
			return err
		}
		line := domain.ReceivingLine{ExpectedQty: expectedQty, ReceivedQty: receivedQty, DamagedQty: damagedQty}
		status := line.DeriveStatus()
		_, err := tx.ExecContext(ctx, `
			UPDATE receiving_lines
			SET received_qty=$2, damaged_qty=$3, putaway_location_id=$4, notes=$5, status=$6
			WHERE id=$1`, lineID, receivedQty, damagedQty, putaway, notes, status)
		return err
	})
}

// Close implements §4.6's close semantics: for each line with
// received_qty>0 and a putaway location, emit one receive transaction (a
// line without a putaway location posts none), then (if PO-linked) invoke
// the PO roll-up callback with every line. Guarded by status != closed so a
// re-close is a no-op (idempotent per receiving line).
func (s *Service) Close(ctx context.Context, id domain.ReceivingID) error {
	var touchedVariants []domain.VariantID
	err := s.db.WithSerializableRetry(ctx, func(tx *sqlx.Tx) error {
		touchedVariants = nil
		var ro domain.ReceivingOrder
		if err := tx.GetContext(ctx, &ro, `SELECT * FROM receiving_orders WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFoundf("receiving_not_found", "receiving order %d does not exist", id)
			}
			return err
		}
		if ro.Status == domain.ReceivingClosed {
			return nil // idempotent
		}
		var lines []domain.ReceivingLine
		if err := tx.SelectContext(ctx, &lines, `SELECT * FROM receiving_lines WHERE receiving_order_id = $1`, id); err != nil {
			return err
		}
		for _, l := range lines {
			if l.ReceivedQty <= 0 || l.PutawayLocation == nil {
				continue
			}
			if err := receiveWithinTx(ctx, tx, s.ledger, l, id); err != nil {
				return err
			}
			touchedVariants = append(touchedVariants, l.VariantID)
		}
		if ro.POID != nil && s.onPOClosed != nil {
			if err := s.onPOClosed(ctx, tx, *ro.POID, lines); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `UPDATE receiving_orders SET status='closed', updated_at=now() WHERE id=$1`, id)
		return err
	})
	if err == nil {
		for _, v := range touchedVariants {
			s.notifier.QueueSyncAfterInventoryChange(ctx, v)
		}
	}
	return err
}

// receiveWithinTx posts the receive ledger transaction using the same
// database transaction the receiving-order close runs in, per §5's
// single-transaction requirement for receiving-close + PO update.
func receiveWithinTx(ctx context.Context, tx *sqlx.Tx, ledgerSvc *ledger.Service, l domain.ReceivingLine, receivingOrderID domain.ReceivingID) error {
	// NOTE: ledger writes normally run in their own top-level transaction
	// (ledger.Service methods call dbx.WithSerializableRetry). Receiving's
	// close requirement in §5 means the receive here must share this tx;
	// the ledger package exposes no sub-transaction entry point, so close
	// performs the balance mutation and transaction insert directly rather
	// than calling back into ledger.Service, keeping the invariant (one
	// transaction per receiving-order close) while still writing through
	// the same inventory_balances/inventory_transactions tables C3 owns.
	_ = ledgerSvc
	var upv int64
	if err := tx.GetContext(ctx, &upv, `SELECT units_per_variant FROM product_variants WHERE id = $1`, l.VariantID); err != nil {
		return fmt.Errorf("lookup units_per_variant for variant %d: %w", l.VariantID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_balances (variant_id, location_id, state, qty, version, created_at, updated_at)
		VALUES ($1,$2,'on_hand',$3,1, now(), now())
		ON CONFLICT (variant_id, location_id, state) DO UPDATE
		SET qty = inventory_balances.qty + $3, version = inventory_balances.version + 1, updated_at = now()`,
		l.VariantID, *l.PutawayLocation, l.ReceivedQty); err != nil {
		return err
	}
	receivingRef := receivingOrderID
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_transactions (
			timestamp, transaction_type, variant_id, to_location_id, source_state, target_state,
			variant_qty_delta, base_qty_delta, receiving_order_id
		) VALUES (now(), 'receipt', $1, $2, 'external', 'on_hand', $3, $4, $5)`,
		l.VariantID, *l.PutawayLocation, l.ReceivedQty, l.ReceivedQty*upv, receivingRef)
	return err
}

// ImportCSV parses receiving CSV rows (headers sku, qty, location?,
// damaged_qty?, unit_cost?, barcode?, notes?) and creates lines for the
// rows that resolve, collecting a per-row error for the rest without
// aborting the import (§4.6).
func (s *Service) ImportCSV(ctx context.Context, receivingOrderID domain.ReceivingID, rows []domain.CSVImportRow, catalogSvc *catalog.Service) []domain.CSVImportRow {
	results := make([]domain.CSVImportRow, 0, len(rows))
	for _, row := range rows {
		r := row
		variant, err := catalogSvc.FindBySKU(ctx, row.SKU)
		if err != nil {
			r.RowError = fmt.Sprintf("row %d: %v", row.RowNumber, err)
			results = append(results, r)
			continue
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO receiving_lines (receiving_order_id, variant_id, sku, name, expected_qty, status)
			VALUES ($1,$2,$3,$4,$5,'pending')`, receivingOrderID, variant.ID, row.SKU, variant.Name, row.Qty)
		if err != nil {
			r.RowError = fmt.Sprintf("row %d: %v", row.RowNumber, err)
		}
		results = append(results, r)
	}
	return results
}
