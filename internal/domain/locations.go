package domain

import "time"

// InventorySourceType distinguishes warehouses whose stock is tracked
// internally from ones whose on-hand figures are supplied externally
// (§3 Warehouse, consumed by §4.10 Channel Sync's per-warehouse push).
type InventorySourceType string

const (
	SourceInternal InventorySourceType = "internal"
	SourceExternal InventorySourceType = "external"
)

type Warehouse struct {
	ID                 WarehouseID         `db:"id"`
	Code               string              `db:"code"`
	Name               string              `db:"name"`
	IsDefault          bool                `db:"is_default"`
	Active             bool                `db:"active"`
	ExternalLocationRef string             `db:"external_location_ref"`
	InventorySourceType InventorySourceType `db:"inventory_source_type"`
	CreatedAt          time.Time           `db:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at"`
}

// LocationType constrains which replenishment rules and picks may use a
// bin (§3 Location, §4.2, §4.9).
type LocationType string

const (
	LocationForwardPick  LocationType = "forward_pick"
	LocationBulkStorage  LocationType = "bulk_storage"
	LocationOverflow     LocationType = "overflow"
	LocationReceiving    LocationType = "receiving"
	LocationStaging      LocationType = "staging"
)

type Location struct {
	ID           LocationID   `db:"id"`
	WarehouseID  WarehouseID  `db:"warehouse_id"`
	Code         string       `db:"code"`
	LocationType LocationType `db:"location_type"`
	IsPickable   bool         `db:"is_pickable"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}
