package domain

import "time"

// ChannelDriverType names the concrete push integration behind a Channel
// (§4.10, §6).
type ChannelDriverType string

const (
	DriverShopify   ChannelDriverType = "shopify"
	DriverAmazonMWS ChannelDriverType = "amazon_mws"
	DriverWooCommerce ChannelDriverType = "woocommerce"
	DriverManual    ChannelDriverType = "manual"
)

type Channel struct {
	ID         ChannelID         `db:"id"`
	Code       string            `db:"code"`
	Name       string            `db:"name"`
	DriverType ChannelDriverType `db:"driver_type"`
	Config     string            `db:"config"` // driver-specific JSON blob
	Active     bool              `db:"active"`
	CreatedAt  time.Time         `db:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at"`
}

// ChannelFeed binds one ProductVariant to its representation on one
// Channel (§3).
type ChannelFeed struct {
	ID                   FeedID     `db:"id"`
	ChannelID            ChannelID  `db:"channel_id"`
	VariantID            VariantID  `db:"variant_id"`
	ChannelSideVariantID string     `db:"channel_side_variant_id"`
	LastSyncedQty        *int64     `db:"last_synced_qty"`
	LastSyncedAt         *time.Time `db:"last_synced_at"`
	Active               bool       `db:"active"`
}

// FeedPushResult is the per-feed outcome of a push_inventory call (§4.10
// "return the per-feed error list from the call").
type FeedPushResult struct {
	FeedID FeedID
	Err    error
}
