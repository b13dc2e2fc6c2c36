// Package api assembles the gin router: one route group per component,
// each wired to its own handler set and service, following the teacher's
// api.go + handlers/ + middleware/ layout.
package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/wms-core/server/internal/api/handlers"
	"github.com/wms-core/server/internal/api/middleware"
	"github.com/wms-core/server/internal/catalog"
	"github.com/wms-core/server/internal/channelsync"
	"github.com/wms-core/server/internal/ledger"
	"github.com/wms-core/server/internal/oms"
	"github.com/wms-core/server/internal/purchasing"
	"github.com/wms-core/server/internal/receiving"
	"github.com/wms-core/server/internal/replen"
	"github.com/wms-core/server/internal/shipments"
	"github.com/wms-core/server/internal/storage"
)

// Services collects every component service the router needs. A nil
// field simply omits that route group, so a caller can stand up a
// partial server (useful in tests that only exercise one subsystem).
type Services struct {
	Catalog     *catalog.Service
	Ledger      *ledger.Service
	Purchasing  *purchasing.Service
	Shipments   *shipments.Service
	Receiving   *receiving.Service
	OMS         *oms.Service
	Replen      *replen.Service
	ChannelSync *channelsync.Service
	Storage     storage.ObjectStorage // optional; nil disables the CSV landing-zone pull/archive path
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = allowedOrigins
	corsCfg.AllowCredentials = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	router.Use(cors.New(corsCfg))

	if services == nil {
		return router
	}

	apiGroup := router.Group("/api")

	if services.Ledger != nil && services.Catalog != nil {
		h := handlers.NewInventoryHandler(services.Ledger, services.Catalog)
		inv := apiGroup.Group("/inventory")
		{
			inv.GET("/transactions", h.ListTransactions)
			inv.GET("/skus/search", h.SearchSKUs)
			inv.GET("/atp", h.ATP)
			inv.POST("/transfer", h.Transfer)
			inv.POST("/transfer/:id/undo", h.UndoTransfer)
			inv.POST("/adjust", h.Adjust)
		}
	}

	if services.Purchasing != nil {
		h := handlers.NewPurchasingHandler(services.Purchasing)
		po := apiGroup.Group("/purchasing")
		{
			po.GET("/pos", h.List)
			po.POST("/pos", h.Create)
			po.GET("/pos/:id", h.Get)
			po.POST("/pos/:id/submit", h.Submit)
			po.POST("/pos/:id/approve", h.Approve())
			po.POST("/pos/:id/send", h.Send())
			po.POST("/pos/:id/acknowledge", h.Acknowledge())
			po.POST("/pos/:id/cancel", h.Cancel())
			po.POST("/pos/:id/close", h.Close())
			po.POST("/pos/:id/close-short", h.CloseShort())
			po.GET("/on-order", h.OnOrder)
			po.POST("/reorder", h.ReorderToPO)
		}
	}

	if services.Receiving != nil && services.Catalog != nil {
		h := handlers.NewReceivingHandler(services.Receiving, services.Catalog, services.Storage)
		recv := apiGroup.Group("/receiving")
		{
			recv.GET("", h.List)
			recv.POST("", h.Create)
			recv.GET("/:id", h.Get)
			recv.POST("/:id/open", h.Open)
			recv.POST("/:id/close", h.Close)
			recv.POST("/:id/lines/bulk", h.BulkLines)
			recv.PATCH("/lines/:id", h.UpdateLine)
		}
	}

	if services.Shipments != nil {
		h := handlers.NewShipmentsHandler(services.Shipments)
		ship := apiGroup.Group("/inbound-shipments")
		{
			ship.GET("", h.List)
			ship.POST("", h.Create)
			ship.GET("/:id", h.Get)
			ship.POST("/:id/status", h.Transition)
			ship.POST("/:id/run-allocation", h.RunAllocation)
			ship.POST("/:id/finalize", h.Finalize)
		}
	}

	if services.OMS != nil {
		h := handlers.NewOMSHandler(services.OMS)
		omsGroup := apiGroup.Group("/oms")
		{
			omsGroup.GET("/orders", h.List)
			omsGroup.PATCH("/orders/:id/hold", h.SetHold)
			omsGroup.PATCH("/orders/:id/priority", h.SetPriority)
		}
		apiGroup.POST("/orders/combine", h.Combine)
	}

	if services.Replen != nil {
		h := handlers.NewReplenHandler(services.Replen, services.Storage)
		rep := apiGroup.Group("/replen")
		{
			rep.GET("/rules", h.ListRules)
			rep.POST("/rules", h.CreateRule)
			rep.POST("/rules/import", h.ImportCSV)
			rep.POST("/generate", h.Generate)
			rep.PATCH("/tasks/:id", h.UpdateTask)
		}
	}

	if services.ChannelSync != nil {
		h := handlers.NewChannelsHandler(services.ChannelSync)
		ch := apiGroup.Group("/channels")
		{
			ch.GET("", h.List)
			ch.POST("/:id/sync", h.Sync)
		}
	}

	return router
}
