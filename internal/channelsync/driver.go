// Package channelsync implements one-way inventory push to sales
// channels (§4.10): per-product sync, all-products sync with a throttle,
// the reactive trigger invoked by the ledger after a commit, and
// per-warehouse push for warehouses with an external location mapping.
package channelsync

import (
	"context"
	"fmt"

	"github.com/wms-core/server/internal/domain"
)

// Driver abstracts one channel integration's inventory push. Each
// platform (Shopify, Amazon MWS, WooCommerce, ...) provides its own
// implementation; channels never write back into the ledger, so Driver
// has no read methods.
type Driver interface {
	PushInventory(ctx context.Context, feed domain.ChannelFeed, atpUnits int64) error
}

// Dispatcher resolves the concrete Driver for a channel's driver type.
type Dispatcher struct {
	drivers map[domain.ChannelDriverType]Driver
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{drivers: make(map[domain.ChannelDriverType]Driver)}
}

func (d *Dispatcher) Register(t domain.ChannelDriverType, driver Driver) {
	d.drivers[t] = driver
}

func (d *Dispatcher) Resolve(t domain.ChannelDriverType) (Driver, error) {
	driver, ok := d.drivers[t]
	if !ok {
		return nil, fmt.Errorf("no driver registered for channel type %q", t)
	}
	return driver, nil
}
