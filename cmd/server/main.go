// backend-go/cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wms-core/server/internal/api"
	"github.com/wms-core/server/internal/cache"
	"github.com/wms-core/server/internal/catalog"
	"github.com/wms-core/server/internal/channelsync"
	"github.com/wms-core/server/internal/config"
	"github.com/wms-core/server/internal/dbx"
	"github.com/wms-core/server/internal/domain"
	"github.com/wms-core/server/internal/ledger"
	"github.com/wms-core/server/internal/locations"
	"github.com/wms-core/server/internal/oms"
	"github.com/wms-core/server/internal/purchasing"
	"github.com/wms-core/server/internal/receiving"
	"github.com/wms-core/server/internal/replen"
	"github.com/wms-core/server/internal/shipments"
	"github.com/wms-core/server/internal/storage"
	"github.com/wms-core/server/pkg/logger"
)

// notifierSlot is a settable ledger.ChangeNotifier, needed because
// channelsync.Service (the real notifier) is constructed from a
// *ledger.Service and so can't exist before the ledger does. ledger.Service
// is built against this slot first; once channelsync.Service exists, its
// address replaces the slot's target, closing the C3<->C10 wiring loop
// without either package importing the other's concrete type.
type notifierSlot struct {
	target ledger.ChangeNotifier
}

func (n *notifierSlot) QueueSyncAfterInventoryChange(ctx context.Context, variant domain.VariantID) {
	if n.target != nil {
		n.target.QueueSyncAfterInventoryChange(ctx, variant)
	}
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.App.Env, cfg.App.LogLevel)

	db, err := dbx.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		logger.Log.Fatal().Err(err).Msg("Failed to ping database")
	}
	pingCancel()

	debounce, err := cache.NewDebounceCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Falling back to noop debounce cache")
		debounce = cache.NewNoopDebounceCache()
	}

	var objectStorage storage.ObjectStorage
	if cfg.Storage.Enabled {
		minioClient, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Object storage disabled: failed to initialize minio client")
		} else {
			objectStorage = minioClient
		}
	}

	catalogSvc := catalog.NewService(db)
	_ = locations.NewService(db) // constructed but unused: no HTTP surface named in §6

	notifier := &notifierSlot{}
	ledgerSvc := ledger.NewService(db, notifier)

	var defaultWarehouse domain.WarehouseID
	if err := db.GetContext(context.Background(), &defaultWarehouse, `SELECT id FROM warehouses ORDER BY id ASC LIMIT 1`); err != nil {
		logger.Log.Warn().Err(err).Msg("No warehouse row found yet; channel sync ATP resolves against warehouse 0 until one is seeded")
	}

	// Dispatcher starts with no drivers registered: credentials (shop domain,
	// access token) are not in process-wide config but are handed to a
	// driver's constructor when it is registered; pushOne resolves drivers by
	// driver type only and does not read Channel.Config. A deployment wires
	// dispatcher.Register(domain.DriverShopify, channelsync.NewShopifyDriver(...))
	// here once it knows which channels it's serving.
	dispatcher := channelsync.NewDispatcher()
	channelSvc := channelsync.NewService(db, ledgerSvc, dispatcher, debounce, defaultWarehouse)
	notifier.target = channelSvc

	purchasingSvc := purchasing.NewService(db)
	shipmentsSvc := shipments.NewService(db)
	receivingSvc := receiving.NewService(db, ledgerSvc, purchasingSvc.OnReceivingOrderClosed, notifier)
	omsSvc := oms.NewService(db)
	replenSvc := replen.NewService(db)

	router := api.NewRouter(&api.Services{
		Catalog:     catalogSvc,
		Ledger:      ledgerSvc,
		Purchasing:  purchasingSvc,
		Shipments:   shipmentsSvc,
		Receiving:   receivingSvc,
		OMS:         omsSvc,
		Replen:      replenSvc,
		ChannelSync: channelSvc,
		Storage:     objectStorage,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	releaseCtx, stopRelease := context.WithCancel(context.Background())
	go runAutoRelease(releaseCtx, omsSvc, channelSvc)

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")
	stopRelease()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// runAutoRelease implements the §4.7 auto-release scheduler. Per-channel
// AutoReleaseSetting isn't a persisted column in this tree, so every
// active channel is released on one shared one-minute cadence; the
// immediate, 5-minute, 15-minute and hourly settings are not applied.
func runAutoRelease(ctx context.Context, omsSvc *oms.Service, channelSvc *channelsync.Service) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			channels, err := channelSvc.ListChannels(ctx)
			if err != nil {
				logger.Log.Error().Err(err).Msg("auto-release: failed to list channels")
				continue
			}
			ids := make([]domain.ChannelID, 0, len(channels))
			for _, ch := range channels {
				if ch.Active {
					ids = append(ids, ch.ID)
				}
			}
			if n, err := omsSvc.ReleaseDue(ctx, ids); err != nil {
				logger.Log.Error().Err(err).Msg("auto-release: ReleaseDue failed")
			} else if n > 0 {
				logger.Log.Info().Int64("released", n).Msg("auto-release: orders released")
			}
		}
	}
}
