// Package domain holds the shared value types, enums, and entity structs
// for the warehouse management core. Identifiers are opaque stable
// integers (sequence-row generated, per §5) except where the spec calls
// for a ULID-shaped token (undo tokens, batch ids), which use uuid.
package domain

import "github.com/google/uuid"

type (
	ProductID    int64
	VariantID    int64
	WarehouseID  int64
	LocationID   int64
	VendorID     int64
	POID         int64
	POLineID     int64
	ShipmentID   int64
	ShipLineID   int64
	ShipCostID   int64
	ReceivingID  int64
	RecvLineID   int64
	SalesOrderID int64
	SOLineID     int64
	WaveID       int64
	TaskID       int64
	ReplenRuleID int64
	ReplenTaskID int64
	ChannelID    int64
	FeedID       int64
	TxnID        int64
	ApprovalID   int64
)

// BatchID groups the related movements of a single logical operation
// (a transfer's two legs, an undo's mirrored pair).
type BatchID uuid.UUID

func NewBatchID() BatchID { return BatchID(uuid.New()) }

func (b BatchID) String() string { return uuid.UUID(b).String() }

// UndoToken is returned by transfer() and is valid only while neither leg
// of the transfer has been superseded by later activity at either cell.
type UndoToken struct {
	BatchID      BatchID
	Variant      VariantID
	FromLocation LocationID
	ToLocation   LocationID
	Qty          int64
	// watermark captures the balance version at each cell at the moment of
	// transfer so undo_transfer can detect intervening activity (§4.3).
	FromWatermark int64
	ToWatermark   int64
}
