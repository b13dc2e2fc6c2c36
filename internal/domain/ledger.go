package domain

import "time"

// BalanceState is the state dimension of an InventoryBalance cell (§3).
type BalanceState string

const (
	StateOnHand    BalanceState = "on_hand"
	StateCommitted BalanceState = "committed"
	StatePicked    BalanceState = "picked"
	StateShipped   BalanceState = "shipped"
	StateExternal  BalanceState = "external"
)

// TransactionType enumerates every mutation kind the ledger accepts (§3
// InventoryTransaction).
type TransactionType string

const (
	TxnReceipt    TransactionType = "receipt"
	TxnPick       TransactionType = "pick"
	TxnAdjustment TransactionType = "adjustment"
	TxnTransfer   TransactionType = "transfer"
	TxnShip       TransactionType = "ship"
	TxnReturn     TransactionType = "return"
	TxnReplenish  TransactionType = "replenish"
	TxnReserve    TransactionType = "reserve"
	TxnUnreserve  TransactionType = "unreserve"
	TxnCSVUpload  TransactionType = "csv_upload"
)

// InventoryBalance is the (variant, location, state) -> qty cell. Version
// is an optimistic-concurrency counter incremented on every write to the
// cell; it backs the UndoToken watermark check for transfer/undo_transfer
// (§4.3, §8 round-trip property).
type InventoryBalance struct {
	VariantID  VariantID    `db:"variant_id"`
	LocationID LocationID   `db:"location_id"`
	State      BalanceState `db:"state"`
	Qty        int64        `db:"qty"`
	Version    int64        `db:"version"`
	CreatedAt  time.Time    `db:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at"`
}

// TxnRefs carries the optional cross-references every transaction may
// carry (§3 InventoryTransaction).
type TxnRefs struct {
	OrderID          *SalesOrderID
	OrderLineID      *SOLineID
	ReceivingOrderID *ReceivingID
	CycleCountID     *int64
	FreeText         string
	User             string
	Notes            string
	Reason           string // required for adjust()
}

// InventoryTransaction is the append-only ledger row (§3). It is never
// mutated after insertion (invariant 5, §4.3).
type InventoryTransaction struct {
	ID              TxnID           `db:"id"`
	Timestamp       time.Time       `db:"timestamp"`
	TransactionType TransactionType `db:"transaction_type"`
	VariantID       VariantID       `db:"variant_id"`
	FromLocationID  *LocationID     `db:"from_location_id"`
	ToLocationID    *LocationID     `db:"to_location_id"`
	SourceState     BalanceState    `db:"source_state"`
	TargetState     BalanceState    `db:"target_state"`
	VariantQtyDelta int64           `db:"variant_qty_delta"`
	BaseQtyDelta    int64           `db:"base_qty_delta"`
	BatchID         *BatchID        `db:"batch_id"`
	OrderID         *SalesOrderID   `db:"order_id"`
	OrderLineID     *SOLineID       `db:"order_line_id"`
	ReceivingOrderID *ReceivingID   `db:"receiving_order_id"`
	CycleCountID    *int64          `db:"cycle_count_id"`
	FreeTextRef     string          `db:"free_text_ref"`
	UserRef         string          `db:"user_ref"`
	Notes           string          `db:"notes"`
	Reason          string          `db:"reason"`
}

// ATPResult is the Available-To-Promise figure for one variant, expressed
// both in base units (fungible across UOM siblings) and in the variant's
// own unit (§4.3 ATP projection).
type ATPResult struct {
	VariantID       VariantID
	WarehouseID     WarehouseID
	ATPBaseUnits    int64
	UnitsPerVariant int64
	ATPVariantUnits int64 // floor(ATPBaseUnits / UnitsPerVariant)
}
