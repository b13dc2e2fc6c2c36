package domain

import "time"

// ReceivingSourceType is where a ReceivingOrder's lines originated (§3).
type ReceivingSourceType string

const (
	ReceivingBlind       ReceivingSourceType = "blind"
	ReceivingPO          ReceivingSourceType = "po"
	ReceivingASN         ReceivingSourceType = "asn"
	ReceivingInitialLoad ReceivingSourceType = "initial_load"
)

// ReceivingOrderStatus is the §4.6 lifecycle: draft -> open|receiving -> closed.
type ReceivingOrderStatus string

const (
	ReceivingDraft     ReceivingOrderStatus = "draft"
	ReceivingOpen      ReceivingOrderStatus = "open"
	ReceivingReceiving ReceivingOrderStatus = "receiving"
	ReceivingClosed    ReceivingOrderStatus = "closed"
)

// ReceivingLineStatus derives from expected vs received/damaged qty (§3).
type ReceivingLineStatus string

const (
	RecvLinePending  ReceivingLineStatus = "pending"
	RecvLinePartial  ReceivingLineStatus = "partial"
	RecvLineComplete ReceivingLineStatus = "complete"
	RecvLineOverage  ReceivingLineStatus = "overage"
)

type ReceivingOrder struct {
	ID              ReceivingID         `db:"id"`
	ReceiptNumber   string              `db:"receipt_number"`
	SourceType      ReceivingSourceType `db:"source_type"`
	VendorID        *VendorID           `db:"vendor_id"`
	WarehouseID     *WarehouseID        `db:"warehouse_id"`
	POID            *POID               `db:"po_id"`
	Status          ReceivingOrderStatus `db:"status"`
	ExpectedLines   int64               `db:"expected_lines"`
	ReceivedLines   int64               `db:"received_lines"`
	ExpectedUnits   int64               `db:"expected_units"`
	ReceivedUnits   int64               `db:"received_units"`
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
}

type ReceivingLine struct {
	ID              RecvLineID           `db:"id"`
	ReceivingOrderID ReceivingID          `db:"receiving_order_id"`
	POLineID        *POLineID            `db:"po_line_id"`
	VariantID       VariantID            `db:"variant_id"`
	SKU             string               `db:"sku"`
	Name            string               `db:"name"`
	ExpectedQty     int64                `db:"expected_qty"`
	ReceivedQty     int64                `db:"received_qty"`
	DamagedQty      int64                `db:"damaged_qty"`
	PutawayLocation *LocationID          `db:"putaway_location_id"`
	Notes           string               `db:"notes"`
	Status          ReceivingLineStatus  `db:"status"`
}

// DeriveStatus implements the §3 ReceivingLine status derivation: pending
// while nothing is received, overage when received+damaged exceeds expected,
// complete once received+damaged meets expected, partial otherwise.
func (l ReceivingLine) DeriveStatus() ReceivingLineStatus {
	total := l.ReceivedQty + l.DamagedQty
	switch {
	case total == 0:
		return RecvLinePending
	case l.ExpectedQty > 0 && total > l.ExpectedQty:
		return RecvLineOverage
	case total >= l.ExpectedQty:
		return RecvLineComplete
	default:
		return RecvLinePartial
	}
}

// CSVImportRow is one parsed row of the §4.6 receiving CSV import. Rows
// that fail to resolve still populate RowError rather than aborting the
// whole import.
type CSVImportRow struct {
	RowNumber  int
	SKU        string
	Qty        int64
	Location   string
	DamagedQty int64
	UnitCostCents int64
	Barcode    string
	Notes      string
	RowError   string
}
