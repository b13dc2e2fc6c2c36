package domain

import "time"

// SalesOrderStatus is the §4.7 status set.
type SalesOrderStatus string

const (
	SOReady      SalesOrderStatus = "ready"
	SOInProgress SalesOrderStatus = "in_progress"
	SOException  SalesOrderStatus = "exception"
	SOCompleted  SalesOrderStatus = "completed"
	SOShipped    SalesOrderStatus = "shipped"
)

// SalesOrderPriority ranks orders for wave sort key (3) (§4.8).
type SalesOrderPriority string

const (
	PriorityNormal SalesOrderPriority = "normal"
	PriorityHigh   SalesOrderPriority = "high"
	PriorityRush   SalesOrderPriority = "rush"
)

// priorityRank orders SalesOrderPriority descending for the wave sort key.
func priorityRank(p SalesOrderPriority) int {
	switch p {
	case PriorityRush:
		return 2
	case PriorityHigh:
		return 1
	default:
		return 0
	}
}

// CombinedRole marks an order's position within a combined group (§4.7).
type CombinedRole string

const (
	CombinedParent CombinedRole = "parent"
	CombinedChild  CombinedRole = "child"
)

// AutoReleaseSetting governs how promptly an allocated order reaches the
// picking queue (§4.7).
type AutoReleaseSetting string

const (
	ReleaseImmediate AutoReleaseSetting = "immediate"
	ReleaseEvery5Min AutoReleaseSetting = "every_5_min"
	ReleaseEvery15Min AutoReleaseSetting = "every_15_min"
	ReleaseHourly    AutoReleaseSetting = "hourly"
)

type SalesOrder struct {
	ID                SalesOrderID      `db:"id"`
	OrderNumber       string            `db:"order_number"`
	ChannelID         *ChannelID        `db:"channel_id"`
	CustomerName      string            `db:"customer_name"`
	ShippingStreet    string            `db:"shipping_street"`
	ShippingCity      string            `db:"shipping_city"`
	ShippingState     string            `db:"shipping_state"`
	ShippingPostal    string            `db:"shipping_postal"`
	ShippingCountry   string            `db:"shipping_country"`
	AddressHash       string            `db:"address_hash"`
	Status            SalesOrderStatus  `db:"status"`
	Priority          SalesOrderPriority `db:"priority"`
	OnHold            bool              `db:"on_hold"`
	CombinedGroupID   *int64            `db:"combined_group_id"`
	CombinedRole      *CombinedRole     `db:"combined_role"`
	WarehouseID       WarehouseID       `db:"warehouse_id"`
	CreatedAt         time.Time         `db:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at"`
}

// PriorityRank exposes priorityRank for use by the C8 wave sort key.
func (o SalesOrder) PriorityRank() int { return priorityRank(o.Priority) }

type SOLineStatus string

const (
	SOLineOpen      SOLineStatus = "open"
	SOLinePicking   SOLineStatus = "picking"
	SOLinePicked    SOLineStatus = "picked"
	SOLineException SOLineStatus = "exception"
)

type SalesOrderLine struct {
	ID         SOLineID     `db:"id"`
	OrderID    SalesOrderID `db:"order_id"`
	VariantID  VariantID    `db:"variant_id"`
	OrderedQty int64        `db:"ordered_qty"`
	PickedQty  int64        `db:"picked_qty"`
	Status     SOLineStatus `db:"status"`
}

// CombinedGroup is the in-memory view of orders sharing a combined_group_id.
// The combined_groups table row only allocates the group id; the parent and
// children are derived from SalesOrder rows that share the id (§4.7, §3
// SPEC_FULL supplement).
type CombinedGroup struct {
	GroupID     int64
	ParentOrder SalesOrderID
	ChildOrders []SalesOrderID
}

// CanCombine reports whether two open, unshipped orders share a
// destination and customer and may be combined (§4.7).
func CanCombine(a, b SalesOrder) bool {
	if a.Status == SOShipped || b.Status == SOShipped {
		return false
	}
	if a.CombinedGroupID != nil || b.CombinedGroupID != nil {
		return false
	}
	return a.AddressHash == b.AddressHash && a.CustomerName == b.CustomerName
}
