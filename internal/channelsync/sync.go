package channelsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wms-core/server/internal/cache"
	"github.com/wms-core/server/internal/dbx"
	"github.com/wms-core/server/internal/domain"
	"github.com/wms-core/server/internal/ledger"
	"github.com/wms-core/server/pkg/logger"
)

// syncAllFanout bounds how many products SyncAllProducts pushes concurrently;
// each worker waits on the shared limiter before starting a product, so
// product syncs start at least pushInterval apart. The limiter does not space
// the pushes inside one product's sync, nor pushes of products already in
// flight on other workers.
const syncAllFanout = 4

// pushInterval is the throttle SyncAllProducts applies between the starts of
// successive product syncs.
const pushInterval = 300 * time.Millisecond

// debounceWindow suppresses re-triggering a product's reactive sync from a
// burst of balance writes (e.g. a multi-line pick) that all touch the same
// product within a short span.
const debounceWindow = 2 * time.Second

// Service implements ledger.ChangeNotifier, queuing a best-effort sync
// after any committed balance mutation (§4.10 reactive trigger).
type Service struct {
	db          *dbx.DB
	ledger      *ledger.Service
	dispatcher  *Dispatcher
	debounce    cache.DebounceCache
	warehouseID domain.WarehouseID // default warehouse ATP is computed against
	limiter     *rate.Limiter
}

func NewService(db *dbx.DB, ledgerSvc *ledger.Service, dispatcher *Dispatcher, debounce cache.DebounceCache, defaultWarehouse domain.WarehouseID) *Service {
	if debounce == nil {
		debounce = cache.NewNoopDebounceCache()
	}
	return &Service{
		db:          db,
		ledger:      ledgerSvc,
		dispatcher:  dispatcher,
		debounce:    debounce,
		warehouseID: defaultWarehouse,
		limiter:     rate.NewLimiter(rate.Every(pushInterval), 1),
	}
}

var _ ledger.ChangeNotifier = (*Service)(nil)

// QueueSyncAfterInventoryChange implements ledger.ChangeNotifier: if the
// variant has at least one active feed, sync its product. Errors are
// logged, not returned, since this runs as a post-commit side effect of
// a ledger write that has already succeeded.
func (s *Service) QueueSyncAfterInventoryChange(ctx context.Context, variant domain.VariantID) {
	var hasActiveFeed bool
	err := s.db.GetContext(ctx, &hasActiveFeed, `
		SELECT EXISTS(SELECT 1 FROM channel_feeds WHERE variant_id = $1 AND active)`, variant)
	if err != nil {
		logger.Log.Error().Err(err).Int64("variant_id", int64(variant)).Msg("check active feeds for reactive sync")
		return
	}
	if !hasActiveFeed {
		return
	}
	var productID domain.ProductID
	if err := s.db.GetContext(ctx, &productID, `SELECT product_id FROM product_variants WHERE id = $1`, variant); err != nil {
		logger.Log.Error().Err(err).Int64("variant_id", int64(variant)).Msg("resolve product for reactive sync")
		return
	}

	key := fmt.Sprintf("channelsync:product:%d", productID)
	acquired, err := s.debounce.Acquire(ctx, key, debounceWindow)
	if err != nil {
		logger.Log.Error().Err(err).Int64("product_id", int64(productID)).Msg("debounce check failed, syncing anyway")
	} else if !acquired {
		return
	}

	if _, err := s.SyncProduct(ctx, productID); err != nil {
		logger.Log.Error().Err(err).Int64("product_id", int64(productID)).Msg("reactive channel sync failed")
	}
}

// SyncProduct computes ATP for every variant of the product and pushes it
// to every active feed for any of those variants, returning the per-feed
// result list (§4.10 "return the per-feed error list from the call").
func (s *Service) SyncProduct(ctx context.Context, productID domain.ProductID) ([]domain.FeedPushResult, error) {
	var variants []domain.VariantID
	if err := s.db.SelectContext(ctx, &variants, `SELECT id FROM product_variants WHERE product_id = $1`, productID); err != nil {
		return nil, err
	}

	var results []domain.FeedPushResult
	for _, variantID := range variants {
		atp, err := s.ledger.ATP(ctx, variantID, s.warehouseID)
		if err != nil {
			return results, err
		}

		var feeds []domain.ChannelFeed
		if err := s.db.SelectContext(ctx, &feeds, `
			SELECT f.* FROM channel_feeds f WHERE f.variant_id = $1 AND f.active`, variantID); err != nil {
			return results, err
		}
		for _, feed := range feeds {
			results = append(results, s.pushOne(ctx, feed, atp.ATPVariantUnits))
		}
	}
	return results, nil
}

func (s *Service) pushOne(ctx context.Context, feed domain.ChannelFeed, atpUnits int64) domain.FeedPushResult {
	var driverType domain.ChannelDriverType
	if err := s.db.GetContext(ctx, &driverType, `SELECT driver_type FROM channels WHERE id = $1`, feed.ChannelID); err != nil {
		return domain.FeedPushResult{FeedID: feed.ID, Err: err}
	}
	driver, err := s.dispatcher.Resolve(driverType)
	if err != nil {
		return domain.FeedPushResult{FeedID: feed.ID, Err: err}
	}
	if err := driver.PushInventory(ctx, feed, atpUnits); err != nil {
		return domain.FeedPushResult{FeedID: feed.ID, Err: err}
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE channel_feeds SET last_synced_qty=$2, last_synced_at=now() WHERE id=$1`, feed.ID, atpUnits)
	return domain.FeedPushResult{FeedID: feed.ID, Err: err}
}

// SyncAllProducts iterates every product owning at least one active feed,
// optionally restricted to a single driver type ("channel-scoped sync
// filters by driver type"), fanning the work out across a bounded worker
// pool (golang.org/x/sync/errgroup). Each worker waits on the shared 300ms
// limiter before starting a product, so product syncs start at least 300ms
// apart; the feed pushes within one product's sync are not spaced, and they
// can overlap pushes of another product still in flight.
func (s *Service) SyncAllProducts(ctx context.Context, driverType *domain.ChannelDriverType) ([]domain.FeedPushResult, error) {
	var productIDs []domain.ProductID
	query := `
		SELECT DISTINCT pv.product_id
		FROM product_variants pv
		JOIN channel_feeds f ON f.variant_id = pv.id AND f.active
		JOIN channels c ON c.id = f.channel_id
		WHERE ($1::text IS NULL OR c.driver_type = $1)`
	if err := s.db.SelectContext(ctx, &productIDs, query, driverType); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncAllFanout)

	var mu sync.Mutex
	var all []domain.FeedPushResult
	for _, productID := range productIDs {
		productID := productID
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return err
			}
			results, err := s.SyncProduct(gctx, productID)
			if err != nil {
				logger.Log.Error().Err(err).Int64("product_id", int64(productID)).Msg("sync-all product push failed")
			}
			mu.Lock()
			all = append(all, results...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return all, err
	}
	return all, nil
}

// PushWarehouse re-syncs, through SyncProduct, the product of every variant
// that has a balance row in the warehouse. It only runs for a warehouse that
// has both an external_location_ref and SourceInternal, and does nothing for
// any other warehouse (see DESIGN.md). SyncProduct computes ATP against the
// service's default warehouse, not against warehouseID, and the warehouse's
// external_location_ref is not passed to the drivers; each driver picks the
// target location from the feed.
func (s *Service) PushWarehouse(ctx context.Context, warehouseID domain.WarehouseID) error {
	var wh domain.Warehouse
	if err := s.db.GetContext(ctx, &wh, `SELECT * FROM warehouses WHERE id = $1`, warehouseID); err != nil {
		return err
	}
	if wh.ExternalLocationRef == "" || wh.InventorySourceType != domain.SourceInternal {
		return nil
	}

	var variants []domain.VariantID
	err := s.db.SelectContext(ctx, &variants, `
		SELECT DISTINCT b.variant_id
		FROM inventory_balances b
		JOIN locations l ON l.id = b.location_id
		WHERE l.warehouse_id = $1`, warehouseID)
	if err != nil {
		return err
	}
	for _, v := range variants {
		if _, err := s.SyncProduct(ctx, productIDFor(ctx, s.db, v)); err != nil {
			logger.Log.Error().Err(err).Int64("variant_id", int64(v)).Msg("per-warehouse channel push failed")
		}
	}
	return nil
}

func productIDFor(ctx context.Context, db *dbx.DB, variantID domain.VariantID) domain.ProductID {
	var pid domain.ProductID
	_ = db.GetContext(ctx, &pid, `SELECT product_id FROM product_variants WHERE id = $1`, variantID)
	return pid
}
