// Package picking implements wave generation and pick execution (§4.8):
// stable 3-key sort, single/batch mode, and the short-pick retry-then-
// exception policy.
package picking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/wms-core/server/internal/apperr"
	"github.com/wms-core/server/internal/dbx"
	"github.com/wms-core/server/internal/domain"
	"github.com/wms-core/server/internal/ledger"
)

// noopNotifier discards the reactive sync trigger when the service is built
// without one (e.g. package tests).
type noopNotifier struct{}

func (noopNotifier) QueueSyncAfterInventoryChange(context.Context, domain.VariantID) {}

// Service posts pick ledger effects directly against inventory_balances/
// inventory_transactions (the same tables ledger.Service owns) rather than
// calling ledger.Service, for the same single-transaction reason receiving's
// Close does: a short-pick retry and its location reassignment must commit
// atomically with the partial pick it replaces. Since that bypasses
// ledger.Service, it notifies Channel Sync itself after any commit that
// actually moved balances (§4.10).
type Service struct {
	db       *dbx.DB
	notifier ledger.ChangeNotifier
}

func NewService(db *dbx.DB, notifier ledger.ChangeNotifier) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{db: db, notifier: notifier}
}

// candidateLine is the input to wave generation: an allocated order line
// plus the source location already chosen for it (by whatever allocation
// pass assigns pick locations, out of this package's scope) and the zone
// sequence/location code needed to sort it.
type candidateLine struct {
	OrderID        domain.SalesOrderID
	OrderLineID    domain.SOLineID
	VariantID      domain.VariantID
	SourceLocation domain.LocationID
	RequestedQty   int64
	ZoneSequence   int
	LocationCode   string
	Priority       domain.SalesOrderPriority
}

// GenerateWave sorts candidate lines per the §4.8 stable 3-key rule and
// persists one PickTask per line, in sorted sequence order. In batch mode
// lines from different orders naturally interleave by location since the
// sort is location-first; single mode is enforced by the caller passing
// only one order's lines.
func (s *Service) GenerateWave(ctx context.Context, warehouseID domain.WarehouseID, mode domain.PickMode, lines []candidateLine) (domain.WaveID, error) {
	if len(lines) == 0 {
		return 0, apperr.Validationf("empty_wave", "cannot generate a wave with zero candidate lines")
	}
	ordered := sortLines(lines)

	var waveID domain.WaveID
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO pick_waves (warehouse_id, mode, status, created_at, updated_at)
			VALUES ($1,$2,'open', now(), now()) RETURNING id`, warehouseID, mode).Scan(&waveID); err != nil {
			return err
		}
		for i, l := range ordered {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO pick_tasks (
					wave_id, order_id, order_line_id, variant_id, source_location_id,
					requested_qty, sequence_number, status, created_at, updated_at
				) VALUES ($1,$2,$3,$4,$5,$6,$7,'pending', now(), now())`,
				waveID, l.OrderID, l.OrderLineID, l.VariantID, l.SourceLocation, l.RequestedQty, i); err != nil {
				return fmt.Errorf("insert pick task %d: %w", i, err)
			}
		}
		return nil
	})
	return waveID, err
}

func sortLines(lines []candidateLine) []candidateLine {
	ordered := make([]candidateLine, len(lines))
	copy(ordered, lines)
	sort.SliceStable(ordered, func(i, j int) bool {
		ki := domain.WaveSortKey{
			ZoneSequence: ordered[i].ZoneSequence,
			LocationCode: ordered[i].LocationCode,
			PriorityRank: domain.SalesOrder{Priority: ordered[i].Priority}.PriorityRank(),
			TaskIndex:    i,
		}
		kj := domain.WaveSortKey{
			ZoneSequence: ordered[j].ZoneSequence,
			LocationCode: ordered[j].LocationCode,
			PriorityRank: domain.SalesOrder{Priority: ordered[j].Priority}.PriorityRank(),
			TaskIndex:    j,
		}
		return ki.Less(kj)
	})
	return ordered
}

func (s *Service) AssignTask(ctx context.Context, taskID domain.TaskID, assignee string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pick_tasks SET assignee=$2, status='assigned', updated_at=now() WHERE id=$1`, taskID, assignee)
	return err
}

// RecordPick implements the §4.8 short-pick policy: if pickedQty fully
// satisfies the task it completes through insertPickTxn; if short, it tries
// the next FIFO location for the same variant in the same warehouse before
// falling back to marking the line (and order) exception. No negative
// balance is ever created, since insertPickTxn only decrements an on_hand
// balance that holds at least the picked qty.
func (s *Service) RecordPick(ctx context.Context, taskID domain.TaskID, pickedQty int64) error {
	var variantID domain.VariantID
	var touchedBalance bool
	err := s.db.WithSerializableRetry(ctx, func(tx *sqlx.Tx) error {
		var task domain.PickTask
		if err := tx.GetContext(ctx, &task, `SELECT * FROM pick_tasks WHERE id = $1 FOR UPDATE`, taskID); err != nil {
			return err
		}
		variantID = task.VariantID

		if pickedQty >= task.RequestedQty {
			touchedBalance = true
			return completeTask(ctx, tx, task, pickedQty)
		}

		shortfall := task.RequestedQty - pickedQty
		altLocation, err := nextFIFOLocation(ctx, tx, task.VariantID, task.SourceLocationID, shortfall)
		if err != nil {
			return err
		}
		if altLocation == 0 {
			return markException(ctx, tx, task)
		}
		// partial pick from the original location, remainder reassigned.
		if pickedQty > 0 {
			touchedBalance = true
			if err := completeTaskPartial(ctx, tx, task, pickedQty); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE pick_tasks SET source_location_id=$2, requested_qty=$3, status='pending', updated_at=now()
			WHERE id=$1`, task.ID, altLocation, shortfall)
		return err
	})
	if err == nil && touchedBalance {
		s.notifier.QueueSyncAfterInventoryChange(ctx, variantID)
	}
	return err
}

func completeTask(ctx context.Context, tx *sqlx.Tx, task domain.PickTask, qty int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE pick_tasks SET picked_qty=$2, status='picked', updated_at=now() WHERE id=$1`, task.ID, qty)
	if err != nil {
		return err
	}
	return insertPickTxn(ctx, tx, task, qty)
}

func completeTaskPartial(ctx context.Context, tx *sqlx.Tx, task domain.PickTask, qty int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE pick_tasks SET picked_qty=$2, updated_at=now() WHERE id=$1`, task.ID, qty)
	if err != nil {
		return err
	}
	return insertPickTxn(ctx, tx, task, qty)
}

// insertPickTxn moves qty units from on_hand to picked at the task's source
// location, mirroring ledger.Service.Pick: it decrements the on_hand cell,
// upserts the picked cell, and writes two balanced ledger rows (a -qty leg
// against on_hand and a +qty leg against picked) so the pick's net delta
// contribution is zero (§8 property 2) while Service.Ship's
// SUM(variant_qty_delta) WHERE target_state='picked' query still sees the
// full +qty.
func insertPickTxn(ctx context.Context, tx *sqlx.Tx, task domain.PickTask, qty int64) error {
	var upv int64
	if err := tx.GetContext(ctx, &upv, `SELECT units_per_variant FROM product_variants WHERE id = $1`, task.VariantID); err != nil {
		return err
	}
	var newQty, newVersion int64
	if err := tx.QueryRowxContext(ctx, `
		UPDATE inventory_balances SET qty = qty - $3, version = version + 1, updated_at = now()
		WHERE variant_id = $1 AND location_id = $2 AND state = 'on_hand' AND qty >= $3
		RETURNING qty, version`, task.VariantID, task.SourceLocationID, qty).Scan(&newQty, &newVersion); err != nil {
		return apperr.New(apperr.InsufficientStock, "negative_balance",
			fmt.Sprintf("cannot pick %d units of variant %d at location %d: insufficient on-hand", qty, task.VariantID, task.SourceLocationID))
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_balances (variant_id, location_id, state, qty, version, created_at, updated_at)
		VALUES ($1, $2, 'picked', $3, 1, now(), now())
		ON CONFLICT (variant_id, location_id, state) DO UPDATE
		SET qty = inventory_balances.qty + $3, version = inventory_balances.version + 1, updated_at = now()`,
		task.VariantID, task.SourceLocationID, qty); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_transactions (
			timestamp, transaction_type, variant_id, from_location_id, to_location_id, source_state, target_state,
			variant_qty_delta, base_qty_delta, order_line_id
		) VALUES (now(), 'pick', $1, $2, $2, 'on_hand', 'on_hand', $3, $4, $5)`,
		task.VariantID, task.SourceLocationID, -qty, -qty*upv, task.OrderLineID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_transactions (
			timestamp, transaction_type, variant_id, from_location_id, to_location_id, source_state, target_state,
			variant_qty_delta, base_qty_delta, order_line_id
		) VALUES (now(), 'pick', $1, $2, $2, 'on_hand', 'picked', $3, $4, $5)`,
		task.VariantID, task.SourceLocationID, qty, qty*upv, task.OrderLineID)
	return err
}

// nextFIFOLocation finds the oldest-stocked location (by inventory_balances
// created_at) other than the one already tried, holding at least shortfall
// units of the same variant in the same warehouse. Returns 0 if none found.
func nextFIFOLocation(ctx context.Context, tx *sqlx.Tx, variantID domain.VariantID, exclude domain.LocationID, shortfall int64) (domain.LocationID, error) {
	var loc domain.LocationID
	err := tx.GetContext(ctx, &loc, `
		SELECT b.location_id FROM inventory_balances b
		JOIN locations l ON l.id = b.location_id
		JOIN locations excl ON excl.id = $2
		WHERE b.variant_id = $1 AND b.state = 'on_hand' AND b.location_id <> $2
		  AND l.warehouse_id = excl.warehouse_id AND b.qty >= $3
		ORDER BY b.created_at ASC
		LIMIT 1`, variantID, exclude, shortfall)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return loc, nil
}

func markException(ctx context.Context, tx *sqlx.Tx, task domain.PickTask) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE pick_tasks SET status='exception', updated_at=now() WHERE id=$1`, task.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE sales_order_lines SET status='exception' WHERE id=$1`, task.OrderLineID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE sales_orders SET status='exception', updated_at=now()
		WHERE id = (SELECT order_id FROM sales_order_lines WHERE id=$1)`, task.OrderLineID)
	return err
}

func (s *Service) CompleteWave(ctx context.Context, waveID domain.WaveID) error {
	var pending int
	if err := s.db.GetContext(ctx, &pending, `
		SELECT COUNT(*) FROM pick_tasks WHERE wave_id = $1 AND status IN ('pending','assigned')`, waveID); err != nil {
		return err
	}
	if pending > 0 {
		return apperr.Conflictf("wave_has_open_tasks", "wave %d still has %d open tasks", waveID, pending)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE pick_waves SET status='completed', updated_at=now() WHERE id=$1`, waveID)
	return err
}
