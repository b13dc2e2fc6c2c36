package domain

import "time"

// POStatus is the purchase-order lifecycle state (§4.4).
type POStatus string

const (
	PODraft             POStatus = "draft"
	POPendingApproval   POStatus = "pending_approval"
	POApproved          POStatus = "approved"
	POSent              POStatus = "sent"
	POAcknowledged      POStatus = "acknowledged"
	POPartiallyReceived POStatus = "partially_received"
	POReceived          POStatus = "received"
	POClosed            POStatus = "closed"
	POCancelled         POStatus = "cancelled"
	POVoid              POStatus = "void"
)

// POLineStatus derives deterministically from received/cancelled/order qty
// (§3 PurchaseOrderLine).
type POLineStatus string

const (
	LineOpen              POLineStatus = "open"
	LinePartiallyReceived POLineStatus = "partially_received"
	LineReceived          POLineStatus = "received"
	LineClosed            POLineStatus = "closed"
	LineCancelled         POLineStatus = "cancelled"
)

type Vendor struct {
	ID            VendorID `db:"id"`
	Code          string   `db:"code"`
	Name          string   `db:"name"`
	ContactInfo   string   `db:"contact_info"`
	Currency      string   `db:"currency"`
	PaymentTerms  string   `db:"payment_terms"`
	Active        bool     `db:"active"`
}

// ApprovalTier matches a PO's grand total to an approval requirement by
// threshold (§4.4 "lowest matching Approval Tier by grand-total threshold").
type ApprovalTier struct {
	ID        ApprovalID `db:"id"`
	Name      string     `db:"name"`
	MinCents  int64      `db:"min_cents"`
	MaxCents  *int64     `db:"max_cents"` // nil = unbounded
}

type PurchaseOrder struct {
	ID                   POID       `db:"id"`
	PONumber             string     `db:"po_number"`
	VendorID             VendorID   `db:"vendor_id"`
	WarehouseID          *WarehouseID `db:"warehouse_id"`
	Status               POStatus   `db:"status"`
	Priority             int        `db:"priority"`
	Currency             string     `db:"currency"`
	ExpectedDeliveryDate *time.Time `db:"expected_delivery_date"`
	ConfirmedDeliveryDate *time.Time `db:"confirmed_delivery_date"`
	ActualDeliveryDate   *time.Time `db:"actual_delivery_date"`
	SubtotalCents        int64      `db:"subtotal_cents"`
	DiscountCents        int64      `db:"discount_cents"`
	TaxCents             int64      `db:"tax_cents"`
	ShippingCents        int64      `db:"shipping_cents"`
	GrandTotalCents      int64      `db:"grand_total_cents"`
	ApprovalTierID       *ApprovalID `db:"approval_tier_id"`
	RevisionNumber       int        `db:"revision_number"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

type PurchaseOrderLine struct {
	ID            POLineID     `db:"id"`
	POID          POID         `db:"po_id"`
	LineNumber    int          `db:"line_number"`
	ProductID     ProductID    `db:"product_id"`
	VariantID     VariantID    `db:"variant_id"`
	VendorProductID *int64     `db:"vendor_product_id"`
	SKUSnapshot   string       `db:"sku_snapshot"`
	UnitCostCents int64        `db:"unit_cost_cents"`
	OrderQty      int64        `db:"order_qty"`
	ReceivedQty   int64        `db:"received_qty"`
	CancelledQty  int64        `db:"cancelled_qty"`
	DamagedQty    int64        `db:"damaged_qty"`
	DiscountPct   float64      `db:"discount_pct"`
	TaxPct        float64      `db:"tax_pct"`
	LineTotalCents int64       `db:"line_total_cents"`
	Status        POLineStatus `db:"status"`
}

// DeriveStatus implements the §3 derivation rule for a PO line's status.
func (l PurchaseOrderLine) DeriveStatus() POLineStatus {
	if l.CancelledQty >= l.OrderQty && l.OrderQty > 0 {
		return LineCancelled
	}
	remaining := l.OrderQty - l.ReceivedQty - l.CancelledQty
	switch {
	case l.ReceivedQty == 0 && l.CancelledQty == 0:
		return LineOpen
	case remaining <= 0:
		return LineReceived
	default:
		return LinePartiallyReceived
	}
}

// PoRevision snapshots before/after line-level fields whenever a sent PO
// is modified (§4.4 "Revisions").
type PoRevision struct {
	ID             int64     `db:"id"`
	POID           POID      `db:"po_id"`
	RevisionNumber int       `db:"revision_number"`
	FieldName      string    `db:"field_name"`
	BeforeValue    string    `db:"before_value"`
	AfterValue     string    `db:"after_value"`
	ChangedBy      string    `db:"changed_by"`
	ChangedAt      time.Time `db:"changed_at"`
}

// POStatusEvent is the audit trail of who/when for each state transition
// (§3 "audit trail of who/when for each state transition"; §3 SPEC_FULL
// supplement names the read accessor explicitly since spec.md names only
// the field).
type POStatusEvent struct {
	ID        int64     `db:"id"`
	POID      POID      `db:"po_id"`
	FromStatus POStatus `db:"from_status"`
	ToStatus  POStatus  `db:"to_status"`
	ChangedBy string    `db:"changed_by"`
	Note      string    `db:"note"`
	ChangedAt time.Time `db:"changed_at"`
}

// poAllowedTransitions is the explicit allowed-set table of §4.4.
var poAllowedTransitions = map[POStatus]map[POStatus]bool{
	PODraft:             {POPendingApproval: true, POApproved: true, POCancelled: true},
	POPendingApproval:   {POApproved: true, POCancelled: true},
	POApproved:          {POSent: true, POCancelled: true},
	POSent:              {POAcknowledged: true, POPartiallyReceived: true, POCancelled: true},
	POAcknowledged:      {POPartiallyReceived: true, POReceived: true, POCancelled: true},
	POPartiallyReceived: {POReceived: true, POClosed: true},
	POReceived:          {POClosed: true},
	POClosed:            {},
	POCancelled:         {},
	POVoid:              {},
}

// CanTransition reports whether the PO status graph allows from -> to.
func CanTransition(from, to POStatus) bool {
	next, ok := poAllowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}
