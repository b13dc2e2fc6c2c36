package channelsync

import (
	"context"
	"testing"

	"github.com/wms-core/server/internal/domain"
)

type stubDriver struct {
	calls int
}

func (d *stubDriver) PushInventory(ctx context.Context, feed domain.ChannelFeed, atpUnits int64) error {
	d.calls++
	return nil
}

func TestDispatcherResolvesRegisteredDriver(t *testing.T) {
	d := NewDispatcher()
	stub := &stubDriver{}
	d.Register(domain.DriverShopify, stub)

	driver, err := d.Resolve(domain.DriverShopify)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := driver.PushInventory(context.Background(), domain.ChannelFeed{}, 5); err != nil {
		t.Fatalf("unexpected push error: %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected 1 call, got %d", stub.calls)
	}
}

func TestDispatcherErrorsOnUnregisteredDriver(t *testing.T) {
	d := NewDispatcher()
	if _, err := d.Resolve(domain.DriverAmazonMWS); err == nil {
		t.Fatal("expected an error for an unregistered driver type")
	}
}
