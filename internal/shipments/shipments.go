// Package shipments implements the InboundShipment state machine and the
// §4.5 cost-allocation engine: basis selection by cost type/shipment
// default/mode default, even-split fallback, largest-basis remainder
// assignment, and landed-cost finalization.
package shipments

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sort"

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

func (s *Service) Create(ctx context.Context, sh domain.InboundShipment) (domain.ShipmentID, error) {
	var id domain.ShipmentID
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		number, err := seqnum.Next(ctx, tx, "shipment_number", "SHP")
		if err != nil {
			return err
		}
		return tx.QueryRowxContext(ctx, `
			INSERT INTO inbound_shipments (
				shipment_number, mode, carrier_ref, forwarder_ref, origin_port, destination_port,
				container_number, bol_number, tracking_number, etd, eta, allocation_method_default,
				status, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,'draft', now(), now())
			RETURNING id`,
			number, sh.Mode, sh.CarrierRef, sh.ForwarderRef, sh.OriginPort, sh.DestinationPort,
			sh.ContainerNumber, sh.BOLNumber, sh.TrackingNumber, sh.ETD, sh.ETA, sh.AllocationMethodDefault,
		).Scan(&id)
	})
	return id, err
}

// Get returns a shipment header and its lines.
func (s *Service) Get(ctx context.Context, id domain.ShipmentID) (domain.InboundShipment, []domain.InboundShipmentLine, error) {
	var sh domain.InboundShipment
	if err := s.db.GetContext(ctx, &sh, `SELECT * FROM inbound_shipments WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.InboundShipment{}, nil, apperr.NotFoundf("shipment_not_found", "shipment %d does not exist", id)
		}
		return domain.InboundShipment{}, nil, err
	}
	var lines []domain.InboundShipmentLine
	if err := s.db.SelectContext(ctx, &lines, `SELECT * FROM inbound_shipment_lines WHERE shipment_id = $1`, id); err != nil {
		return domain.InboundShipment{}, nil, err
	}
	return sh, lines, nil
}

// List returns shipment headers, optionally filtered by status.
func (s *Service) List(ctx context.Context, status domain.ShipmentStatus) ([]domain.InboundShipment, error) {
	var shipments []domain.InboundShipment
	var err error
	if status != "" {
		err = s.db.SelectContext(ctx, &shipments, `SELECT * FROM inbound_shipments WHERE status = $1 ORDER BY created_at DESC`, status)
	} else {
		err = s.db.SelectContext(ctx, &shipments, `SELECT * FROM inbound_shipments ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, err
	}
	return shipments, nil
}

func (s *Service) Transition(ctx context.Context, id domain.ShipmentID, to domain.ShipmentStatus) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var from domain.ShipmentStatus
		if err := tx.GetContext(ctx, &from, `SELECT status FROM inbound_shipments WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFoundf("shipment_not_found", "shipment %d does not exist", id)
			}
			return err
		}
		if !domain.CanTransitionShipment(from, to) {
			return apperr.InvalidTransitionf("shipment_bad_transition", "cannot move shipment %d from %s to %s", id, from, to)
		}
		_, err := tx.ExecContext(ctx, `UPDATE inbound_shipments SET status=$2, updated_at=now() WHERE id=$1`, id, to)
		return err
	})
}

// RunAllocation recomputes and persists ShipmentCostAllocation rows for
// every cost booked against a shipment, replacing whatever allocations
// were computed before. It does not transition shipment status; Finalize
// does that once the caller is satisfied with the allocation.
func (s *Service) RunAllocation(ctx context.Context, shipmentID domain.ShipmentID) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var sh domain.InboundShipment
		if err := tx.GetContext(ctx, &sh, `SELECT * FROM inbound_shipments WHERE id = $1 FOR UPDATE`, shipmentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFoundf("shipment_not_found", "shipment %d does not exist", shipmentID)
			}
			return err
		}

		var lines []domain.InboundShipmentLine
		if err := tx.SelectContext(ctx, &lines, `SELECT * FROM inbound_shipment_lines WHERE shipment_id = $1`, shipmentID); err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperr.Validationf("shipment_no_lines", "shipment %d has no lines to allocate", shipmentID)
		}

		lineValueCents := make(map[domain.ShipLineID]int64, len(lines))
		for _, l := range lines {
			var unitCost int64
			if l.POLineID != nil {
				if err := tx.GetContext(ctx, &unitCost, `SELECT unit_cost_cents FROM purchase_order_lines WHERE id = $1`, *l.POLineID); err != nil && !errors.Is(err, sql.ErrNoRows) {
					return err
				}
			}
			lineValueCents[l.ID] = unitCost * l.QtyShipped
		}

		var costs []domain.ShipmentCost
		if err := tx.SelectContext(ctx, &costs, `SELECT * FROM shipment_costs WHERE shipment_id = $1`, shipmentID); err != nil {
			return err
		}

		for _, cost := range costs {
			if _, err := tx.ExecContext(ctx, `DELETE FROM shipment_cost_allocations WHERE shipment_cost_id = $1`, cost.ID); err != nil {
				return err
			}
			for _, a := range Allocate(cost, sh.AllocationMethodDefault, sh.Mode, lines, lineValueCents) {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO shipment_cost_allocations (
						shipment_cost_id, shipment_line_id, allocated_cents, basis_value, basis_total, share_pct
					) VALUES ($1,$2,$3,$4,$5,$6)`,
					a.ShipmentCostID, a.ShipLineID, a.AllocatedCents, a.BasisValue, a.BasisTotal, a.SharePct); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// resolveMethod implements the §4.5 allocation-method priority: per-cost-
// type override, then an explicit per-cost override, then the shipment's
// configured default, then the mode default.
func resolveMethod(cost domain.ShipmentCost, shipmentDefault domain.AllocationMethod, mode domain.ShipmentMode) domain.AllocationMethod {
	if m, ok := domain.CostTypeOverride(cost.CostType); ok {
		return m
	}
	if cost.AllocationOverride != nil {
		return *cost.AllocationOverride
	}
	if shipmentDefault != "" {
		return shipmentDefault
	}
	return domain.ModeDefaultAllocation(mode)
}

// basisValue returns the per-line basis figure for the given method.
func basisValue(method domain.AllocationMethod, line domain.InboundShipmentLine, lineValueCents int64) float64 {
	switch method {
	case domain.ByVolume:
		return line.TotalVolumeCBM
	case domain.ByChargeableWeight:
		return line.ChargeableWeightKG
	case domain.ByWeight:
		return line.TotalWeightKG
	case domain.ByValue:
		return float64(lineValueCents)
	case domain.ByLineCount:
		return 1
	default:
		return 0
	}
}

// Allocate computes ShipmentCostAllocation rows for one ShipmentCost
// across the shipment's lines. Falls back to an even split when the
// basis total is zero, and assigns any penny remainder to the line with
// the largest basis share (§4.5).
func Allocate(cost domain.ShipmentCost, shipmentDefault domain.AllocationMethod, mode domain.ShipmentMode, lines []domain.InboundShipmentLine, lineValueCents map[domain.ShipLineID]int64) []domain.ShipmentCostAllocation {
	method := resolveMethod(cost, shipmentDefault, mode)
	total := cost.EffectiveAmount()
	if len(lines) == 0 || total == 0 {
		return nil
	}
	sortLinesStable(lines)

	basisTotal := 0.0
	values := make(map[domain.ShipLineID]float64, len(lines))
	for _, l := range lines {
		v := basisValue(method, l, lineValueCents[l.ID])
		values[l.ID] = v
		basisTotal += v
	}

	allocations := make([]domain.ShipmentCostAllocation, len(lines))
	if basisTotal == 0 {
		// even split fallback
		share := total / int64(len(lines))
		remainder := total - share*int64(len(lines))
		for i, l := range lines {
			amt := share
			if i == 0 {
				amt += remainder
			}
			allocations[i] = domain.ShipmentCostAllocation{
				ShipmentCostID: cost.ID, ShipLineID: l.ID,
				AllocatedCents: amt, BasisValue: 0, BasisTotal: 0,
				SharePct: 100.0 / float64(len(lines)),
			}
		}
		return allocations
	}

	var allocated int64
	largestIdx, largestShare := 0, -1.0
	for i, l := range lines {
		share := values[l.ID] / basisTotal
		amt := int64(float64(total) * share)
		allocated += amt
		if share > largestShare {
			largestShare = share
			largestIdx = i
		}
		allocations[i] = domain.ShipmentCostAllocation{
			ShipmentCostID: cost.ID, ShipLineID: l.ID,
			AllocatedCents: amt, BasisValue: values[l.ID], BasisTotal: basisTotal,
			SharePct: share * 100,
		}
	}
	// assign the rounding remainder to the largest-basis line
	allocations[largestIdx].AllocatedCents += total - allocated
	return allocations
}

// Finalize snapshots LandedCostSnapshot rows for every line of a shipment
// from its most recently computed allocations; it is immutable afterward
// (§3, §4.5).
func (s *Service) Finalize(ctx context.Context, shipmentID domain.ShipmentID) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var lines []domain.InboundShipmentLine
		if err := tx.SelectContext(ctx, &lines, `SELECT * FROM inbound_shipment_lines WHERE shipment_id = $1`, shipmentID); err != nil {
			return err
		}
		for _, l := range lines {
			var freight, duty, insurance, other int64
			if err := tx.GetContext(ctx, &freight, `
				SELECT COALESCE(SUM(a.allocated_cents), 0) FROM shipment_cost_allocations a
				JOIN shipment_costs c ON c.id = a.shipment_cost_id
				WHERE a.shipment_line_id = $1 AND c.cost_type = 'freight'`, l.ID); err != nil {
				return err
			}
			if err := tx.GetContext(ctx, &duty, `
				SELECT COALESCE(SUM(a.allocated_cents), 0) FROM shipment_cost_allocations a
				JOIN shipment_costs c ON c.id = a.shipment_cost_id
				WHERE a.shipment_line_id = $1 AND c.cost_type = 'duty'`, l.ID); err != nil {
				return err
			}
			if err := tx.GetContext(ctx, &insurance, `
				SELECT COALESCE(SUM(a.allocated_cents), 0) FROM shipment_cost_allocations a
				JOIN shipment_costs c ON c.id = a.shipment_cost_id
				WHERE a.shipment_line_id = $1 AND c.cost_type = 'insurance'`, l.ID); err != nil {
				return err
			}
			if err := tx.GetContext(ctx, &other, `
				SELECT COALESCE(SUM(a.allocated_cents), 0) FROM shipment_cost_allocations a
				JOIN shipment_costs c ON c.id = a.shipment_cost_id
				WHERE a.shipment_line_id = $1 AND c.cost_type NOT IN ('freight','duty','insurance')`, l.ID); err != nil {
				return err
			}
			var poUnitCost int64
			if l.POLineID != nil {
				if err := tx.GetContext(ctx, &poUnitCost, `SELECT unit_cost_cents FROM purchase_order_lines WHERE id = $1`, *l.POLineID); err != nil && !errors.Is(err, sql.ErrNoRows) {
					return err
				}
			}
			totalLanded := poUnitCost*l.QtyShipped + freight + duty + insurance + other
			var landedUnit int64
			if l.QtyShipped > 0 {
				landedUnit = int64(math.Round(float64(totalLanded) / float64(l.QtyShipped)))
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO landed_cost_snapshots (
					shipment_line_id, po_unit_cost_cents, allocated_freight_cents, allocated_duty_cents,
					allocated_insurance_cents, allocated_other_cents, total_landed_cost_cents,
					landed_unit_cost_cents, qty, finalized_at
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, now())
				ON CONFLICT (shipment_line_id) DO NOTHING`,
				l.ID, poUnitCost, freight, duty, insurance, other, totalLanded, landedUnit, l.QtyShipped); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `UPDATE inbound_shipments SET status='costing', updated_at=now() WHERE id=$1`, shipmentID)
		return err
	})
}

// sortLinesStable orders lines by id, in place, so Allocate iterates them
// in a deterministic order.
func sortLinesStable(lines []domain.InboundShipmentLine) {
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
}
