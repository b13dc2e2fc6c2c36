// Package replen implements rule-driven replenishment (§4.9): evaluating
// min/max triggers, choosing source locations by fifo or smallest-first,
// sizing tasks by replen method, and deduplicating against in-flight work.
package replen

import (
	"context"
	"fmt"

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

type sourceBalance struct {
	LocationID domain.LocationID `db:"location_id"`
	Qty        int64             `db:"qty"`
}

// Evaluate runs the §4.9 algorithm for one rule: sums current pick qty
// across matching pick locations, and if at or below MinQty, generates
// ReplenTask rows against source locations chosen per SourcePriority,
// sized by ReplenMethod, skipping any (pick_variant, to_location) pair
// that already has a pending/in_progress task.
func (s *Service) Evaluate(ctx context.Context, rule domain.ReplenRule) ([]domain.ReplenTaskID, error) {
	var created []domain.ReplenTaskID
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// ReplenRule carries no warehouse_id of its own (§3): a rule targets
		// a (product, location_type) pair, so pick locations of the pick
		// type are matched in every warehouse; source selection below is
		// then limited to the warehouse of the first pick location.
		var pickLocations []domain.LocationID
		if err := tx.SelectContext(ctx, &pickLocations, `
			SELECT id FROM locations WHERE location_type = $1`, rule.PickLocationType); err != nil {
			return err
		}
		if len(pickLocations) == 0 {
			return nil
		}

		var currentQty int64
		query, args, err := sqlx.In(`
			SELECT COALESCE(SUM(qty),0) FROM inventory_balances
			WHERE variant_id = ? AND state = 'on_hand' AND location_id IN (?)`, rule.PickVariantID, pickLocations)
		if err != nil {
			return err
		}
		if err := tx.GetContext(ctx, &currentQty, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
			return err
		}
		if currentQty > rule.MinQty {
			return nil
		}

		var unitsPerSource int64
		if err := tx.GetContext(ctx, &unitsPerSource, `
			SELECT units_per_variant FROM product_variants WHERE id = $1`, rule.SourceVariantID); err != nil {
			return err
		}
		target := rule.TargetQty(unitsPerSource)
		need := target - currentQty
		if need <= 0 {
			return nil
		}

		toLocation := pickLocations[0]
		var toWarehouse domain.WarehouseID
		if err := tx.GetContext(ctx, &toWarehouse, `SELECT warehouse_id FROM locations WHERE id = $1`, toLocation); err != nil {
			return err
		}
		var dupCount int
		if err := tx.GetContext(ctx, &dupCount, `
			SELECT COUNT(*) FROM replen_tasks
			WHERE (variant_id = $1 OR rule_id IN (SELECT id FROM replen_rules WHERE pick_variant_id = $1))
			  AND to_location_id = $2 AND status IN ('pending','in_progress')`,
			rule.PickVariantID, toLocation); err != nil {
			return err
		}
		if dupCount > 0 {
			return nil
		}

		sources, err := chooseSources(ctx, tx, rule.SourceVariantID, rule.SourceLocationType, rule.SourcePriority, toWarehouse, need)
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			return apperr.NotFoundf("no_source_stock", "no source location holds variant %d in location type %s", rule.SourceVariantID, rule.SourceLocationType)
		}

		remaining := need
		for _, src := range sources {
			if remaining <= 0 {
				break
			}
			qty := sizeByMethod(rule.ReplenMethod, src.Qty, remaining, unitsPerSource)
			if qty <= 0 {
				continue
			}
			var taskID domain.ReplenTaskID
			if err := tx.QueryRowxContext(ctx, `
				INSERT INTO replen_tasks (
					rule_id, from_location_id, to_location_id, variant_id,
					qty_source_units, qty_target_units, qty_completed, status, triggered_by, priority, created_at, updated_at
				) VALUES ($1,$2,$3,$4,$5,$6,0,'pending','min_max',$7, now(), now())
				RETURNING id`, rule.ID, src.LocationID, toLocation, rule.SourceVariantID, qty, qty*unitsPerSource, rule.Priority).Scan(&taskID); err != nil {
				return fmt.Errorf("insert replen task: %w", err)
			}
			created = append(created, taskID)
			remaining -= qty
		}
		return nil
	})
	return created, err
}

func chooseSources(ctx context.Context, tx *sqlx.Tx, variantID domain.VariantID, locType domain.LocationType, priority domain.SourcePriority, warehouseID domain.WarehouseID, minTotal int64) ([]sourceBalance, error) {
	orderBy := "b.created_at ASC"
	if priority == domain.SourceSmallestFirst {
		orderBy = "b.qty ASC"
	}
	var sources []sourceBalance
	err := tx.SelectContext(ctx, &sources, fmt.Sprintf(`
		SELECT b.location_id, b.qty FROM inventory_balances b
		JOIN locations l ON l.id = b.location_id
		WHERE b.variant_id = $1 AND b.state = 'on_hand' AND l.location_type = $2
		  AND l.warehouse_id = $3 AND b.qty > 0
		ORDER BY %s`, orderBy), variantID, locType, warehouseID)
	_ = minTotal
	return sources, err
}

// sizeByMethod sizes one source pull per the §4.9 ReplenMethod rules,
// capped by what's available at the source and what's still needed.
func sizeByMethod(method domain.ReplenMethod, available, needed, unitsPerSource int64) int64 {
	switch method {
	case domain.ReplenFullCase, domain.ReplenPalletDrop:
		whole := (needed + unitsPerSource - 1) / unitsPerSource * unitsPerSource
		if whole > available {
			whole = available / unitsPerSource * unitsPerSource
		}
		return whole
	default: // case_break: open exactly what's needed, up to availability
		if needed > available {
			return available
		}
		return needed
	}
}

// CreateRule persists a new ReplenRule. It resolves no SKUs: the HTTP create
// path relies on a foreign key to check that the product/variant ids exist,
// and the CSV import handler only parses rows with ParseRuleCSV and does not
// call CreateRule.
func (s *Service) CreateRule(ctx context.Context, r domain.ReplenRule) (domain.ReplenRuleID, error) {
	var id domain.ReplenRuleID
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO replen_rules (
			product_id, pick_variant_id, source_variant_id, pick_location_type, source_location_type,
			source_priority, min_qty, max_qty, replen_method, priority, active, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, now(), now())
		RETURNING id`,
		r.ProductID, r.PickVariantID, r.SourceVariantID, r.PickLocationType, r.SourceLocationType,
		r.SourcePriority, r.MinQty, r.MaxQty, r.ReplenMethod, r.Priority, r.Active).Scan(&id)
	return id, err
}

// ListRules returns rules, optionally filtered to only active ones.
func (s *Service) ListRules(ctx context.Context, activeOnly bool) ([]domain.ReplenRule, error) {
	var rules []domain.ReplenRule
	query := `SELECT * FROM replen_rules`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY priority ASC, id ASC`
	err := s.db.SelectContext(ctx, &rules, query)
	return rules, err
}

// GenerateAll evaluates every active rule in priority order and returns
// the union of created task ids, the "POST /api/replen/generate" bulk
// entry point (§6).
func (s *Service) GenerateAll(ctx context.Context) ([]domain.ReplenTaskID, error) {
	rules, err := s.ListRules(ctx, true)
	if err != nil {
		return nil, err
	}
	var all []domain.ReplenTaskID
	for _, rule := range rules {
		created, err := s.Evaluate(ctx, rule)
		if err != nil {
			return all, err
		}
		all = append(all, created...)
	}
	return all, nil
}

// UpdateTask applies an operator edit to a pending/in-progress task
// (assignee and/or status), the "PATCH /api/replen/tasks/:id" surface.
func (s *Service) UpdateTask(ctx context.Context, taskID domain.ReplenTaskID, status *domain.ReplenTaskStatus, assignee *string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE replen_tasks SET
			status = COALESCE($2, status),
			assignee = COALESCE($3, assignee),
			updated_at = now()
		WHERE id = $1`, taskID, status, assignee)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFoundf("replen_task_not_found", "replen task %d does not exist", taskID)
	}
	return nil
}

// MarkTaskCompleted records qty_completed and sets the task to completed.
// It only updates the task bookkeeping: it posts no ledger transaction for
// the replenishment move, and no HTTP handler calls it. Moving the stock is
// a separate ledger.Service.Transfer call (POST /api/inventory/transfer).
func (s *Service) MarkTaskCompleted(ctx context.Context, taskID domain.ReplenTaskID, qtyCompleted int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE replen_tasks SET qty_completed=$2, status='completed', updated_at=now() WHERE id=$1`, taskID, qtyCompleted)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFoundf("replen_task_not_found", "replen task %d does not exist", taskID)
	}
	return nil
}
