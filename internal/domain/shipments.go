package domain

import "time"

// ShipmentMode is the transport mode of an inbound shipment (§3).
type ShipmentMode string

const (
	ModeSeaFCL   ShipmentMode = "sea_fcl"
	ModeSeaLCL   ShipmentMode = "sea_lcl"
	ModeAir      ShipmentMode = "air"
	ModeGround   ShipmentMode = "ground"
	ModeLTL      ShipmentMode = "ltl"
	ModeFTL      ShipmentMode = "ftl"
	ModeParcel   ShipmentMode = "parcel"
	ModeCourier  ShipmentMode = "courier"
)

// ShipmentStatus is the §4.5 state machine.
type ShipmentStatus string

const (
	ShipDraft            ShipmentStatus = "draft"
	ShipBooked           ShipmentStatus = "booked"
	ShipInTransit        ShipmentStatus = "in_transit"
	ShipAtPort           ShipmentStatus = "at_port"
	ShipCustomsClearance ShipmentStatus = "customs_clearance"
	ShipDelivered        ShipmentStatus = "delivered"
	ShipCosting          ShipmentStatus = "costing"
	ShipClosed           ShipmentStatus = "closed"
	ShipCancelled        ShipmentStatus = "cancelled"
)

var shipmentAllowedTransitions = map[ShipmentStatus]map[ShipmentStatus]bool{
	ShipDraft:            {ShipBooked: true, ShipCancelled: true},
	ShipBooked:           {ShipInTransit: true, ShipCancelled: true},
	ShipInTransit:        {ShipAtPort: true, ShipCancelled: true},
	ShipAtPort:           {ShipCustomsClearance: true, ShipCancelled: true},
	ShipCustomsClearance: {ShipDelivered: true, ShipCancelled: true},
	ShipDelivered:        {ShipCosting: true, ShipCancelled: true},
	ShipCosting:          {ShipClosed: true, ShipCancelled: true},
	ShipClosed:           {},
	ShipCancelled:        {},
}

func CanTransitionShipment(from, to ShipmentStatus) bool {
	next, ok := shipmentAllowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// AllocationMethod is the basis used to spread a ShipmentCost across lines
// (§4.5 allocation engine).
type AllocationMethod string

const (
	ByVolume            AllocationMethod = "by_volume"
	ByChargeableWeight  AllocationMethod = "by_chargeable_weight"
	ByWeight            AllocationMethod = "by_weight"
	ByValue             AllocationMethod = "by_value"
	ByLineCount         AllocationMethod = "by_line_count"
)

// CostType is the category of a ShipmentCost row (§3).
type CostType string

const (
	CostFreight      CostType = "freight"
	CostDuty         CostType = "duty"
	CostInsurance    CostType = "insurance"
	CostDrayage      CostType = "drayage"
	CostPortHandling CostType = "port_handling"
	CostBrokerage    CostType = "brokerage"
	CostInspection   CostType = "inspection"
)

type InboundShipment struct {
	ID                    ShipmentID     `db:"id"`
	ShipmentNumber        string         `db:"shipment_number"`
	Mode                  ShipmentMode   `db:"mode"`
	CarrierRef            string         `db:"carrier_ref"`
	ForwarderRef          string         `db:"forwarder_ref"`
	OriginPort            string         `db:"origin_port"`
	DestinationPort       string         `db:"destination_port"`
	ContainerNumber       string         `db:"container_number"`
	BOLNumber             string         `db:"bol_number"`
	TrackingNumber        string         `db:"tracking_number"`
	ETD                   *time.Time     `db:"etd"`
	ETA                   *time.Time     `db:"eta"`
	AllocationMethodDefault AllocationMethod `db:"allocation_method_default"`
	TotalWeightKG         float64        `db:"total_weight_kg"`
	TotalVolumeCBM        float64        `db:"total_volume_cbm"`
	TotalPieces           int64          `db:"total_pieces"`
	TotalCartons          int64          `db:"total_cartons"`
	EstimatedTotalCostCents int64        `db:"estimated_total_cost_cents"`
	ActualTotalCostCents  int64          `db:"actual_total_cost_cents"`
	Status                ShipmentStatus `db:"status"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

type InboundShipmentLine struct {
	ID                    ShipLineID `db:"id"`
	ShipmentID            ShipmentID `db:"shipment_id"`
	POLineID              *POLineID  `db:"po_line_id"`
	VariantID             VariantID  `db:"variant_id"`
	QtyShipped            int64      `db:"qty_shipped"`
	UnitWeightKG          float64    `db:"unit_weight_kg"`
	UnitLengthCM          float64    `db:"unit_length_cm"`
	UnitWidthCM           float64    `db:"unit_width_cm"`
	UnitHeightCM          float64    `db:"unit_height_cm"`
	GrossVolumeCBM        *float64   `db:"gross_volume_cbm"`
	TotalWeightKG         float64    `db:"total_weight_kg"`
	TotalVolumeCBM        float64    `db:"total_volume_cbm"`
	ChargeableWeightKG    float64    `db:"chargeable_weight_kg"`
	AllocatedCostCents    int64      `db:"allocated_cost_cents"`
	LandedUnitCostCents   int64      `db:"landed_unit_cost_cents"`
}

// DeriveDimensions fills the derived dimensional fields from the unit
// dimensions and qty shipped (§3 InboundShipmentLine, §4.5 chargeable
// weight formula: qty * max(weight_kg, (L*W*H cm)/5000)).
func (l *InboundShipmentLine) DeriveDimensions() {
	l.TotalWeightKG = float64(l.QtyShipped) * l.UnitWeightKG
	volM3 := (l.UnitLengthCM / 100) * (l.UnitWidthCM / 100) * (l.UnitHeightCM / 100)
	l.TotalVolumeCBM = float64(l.QtyShipped) * volM3
	dimWeight := (l.UnitLengthCM * l.UnitWidthCM * l.UnitHeightCM) / 5000
	perUnit := l.UnitWeightKG
	if dimWeight > perUnit {
		perUnit = dimWeight
	}
	l.ChargeableWeightKG = float64(l.QtyShipped) * perUnit
}

type ShipmentCost struct {
	ID                 ShipCostID        `db:"id"`
	ShipmentID         ShipmentID        `db:"shipment_id"`
	CostType           CostType          `db:"cost_type"`
	EstimatedCents     int64             `db:"estimated_cents"`
	ActualCents        *int64            `db:"actual_cents"`
	AllocationOverride *AllocationMethod `db:"allocation_method_override"`
}

// EffectiveAmount returns actual if set, else estimated (§4.5).
func (c ShipmentCost) EffectiveAmount() int64 {
	if c.ActualCents != nil {
		return *c.ActualCents
	}
	return c.EstimatedCents
}

type ShipmentCostAllocation struct {
	ShipmentCostID ShipCostID `db:"shipment_cost_id"`
	ShipLineID     ShipLineID `db:"shipment_line_id"`
	AllocatedCents int64      `db:"allocated_cents"`
	BasisValue     float64    `db:"basis_value"`
	BasisTotal     float64    `db:"basis_total"`
	SharePct       float64    `db:"share_pct"`
}

// LandedCostSnapshot is immutable after finalization (§3, §4.5).
type LandedCostSnapshot struct {
	ShipLineID            ShipLineID `db:"shipment_line_id"`
	POUnitCostCents       int64      `db:"po_unit_cost_cents"`
	AllocatedFreightCents int64      `db:"allocated_freight_cents"`
	AllocatedDutyCents    int64      `db:"allocated_duty_cents"`
	AllocatedInsuranceCents int64    `db:"allocated_insurance_cents"`
	AllocatedOtherCents   int64      `db:"allocated_other_cents"`
	TotalLandedCostCents  int64      `db:"total_landed_cost_cents"`
	LandedUnitCostCents   int64      `db:"landed_unit_cost_cents"`
	Qty                   int64      `db:"qty"`
	FinalizedAt           time.Time  `db:"finalized_at"`
}

// CostTypeOverride implements the §4.5 hard-coded per-cost-type allocation
// override: duty => by_value, brokerage/inspection => by_line_count.
func CostTypeOverride(ct CostType) (AllocationMethod, bool) {
	switch ct {
	case CostDuty:
		return ByValue, true
	case CostBrokerage, CostInspection:
		return ByLineCount, true
	default:
		return "", false
	}
}

// ModeDefaultAllocation implements the §4.5 mode-default table.
func ModeDefaultAllocation(mode ShipmentMode) AllocationMethod {
	switch mode {
	case ModeSeaFCL, ModeSeaLCL:
		return ByVolume
	case ModeAir:
		return ByChargeableWeight
	default:
		return ByWeight
	}
}
