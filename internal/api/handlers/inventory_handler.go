// Package handlers holds one gin handler set per component, each wrapping
// a service and translating JSON requests into service calls.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wms-core/server/internal/catalog"
	"github.com/wms-core/server/internal/domain"
	"github.com/wms-core/server/internal/ledger"
)

type InventoryHandler struct {
	ledger  *ledger.Service
	catalog *catalog.Service
}

func NewInventoryHandler(ledgerSvc *ledger.Service, catalogSvc *catalog.Service) *InventoryHandler {
	return &InventoryHandler{ledger: ledgerSvc, catalog: catalogSvc}
}

// ListTransactions handles GET /api/inventory/transactions.
func (h *InventoryHandler) ListTransactions(c *gin.Context) {
	var filter ledger.TransactionFilter
	if v := c.Query("variant_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid variant_id"})
			return
		}
		filter.VariantID = domain.VariantID(id)
	}
	if v := c.Query("location_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location_id"})
			return
		}
		filter.LocationID = domain.LocationID(id)
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	txns, err := h.ledger.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// SearchSKUs handles GET /api/inventory/skus/search?q. It resolves a
// single variant by SKU, barcode, or external reference — the search box
// on the inventory screen tries all three, in that order.
func (h *InventoryHandler) SearchSKUs(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	variant, err := h.catalog.FindBySKU(c.Request.Context(), q)
	if err != nil {
		variant, err = h.catalog.FindByBarcode(c.Request.Context(), q)
	}
	if err != nil {
		variant, err = h.catalog.FindByExternalRef(c.Request.Context(), q)
	}
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, variant)
}

type transferRequest struct {
	VariantID      domain.VariantID  `json:"variant_id" binding:"required"`
	FromLocationID domain.LocationID `json:"from_location_id" binding:"required"`
	ToLocationID   domain.LocationID `json:"to_location_id" binding:"required"`
	Qty            int64             `json:"qty" binding:"required"`
	UserRef        string            `json:"user_ref"`
	Notes          string            `json:"notes"`
}

// Transfer handles POST /api/inventory/transfer.
func (h *InventoryHandler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	refs := domain.TxnRefs{User: req.UserRef, Notes: req.Notes}
	txnID, token, err := h.ledger.Transfer(c.Request.Context(), req.VariantID, req.FromLocationID, req.ToLocationID, req.Qty, refs)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction_id": txnID, "undo_token": token})
}

type undoTransferRequest struct {
	Token domain.UndoToken `json:"undo_token" binding:"required"`
}

// UndoTransfer handles POST /api/inventory/transfer/:id/undo. The undo
// token is round-tripped by the caller (it is opaque to the path param,
// which only identifies the original transaction for audit purposes).
func (h *InventoryHandler) UndoTransfer(c *gin.Context) {
	var req undoTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	txnID, err := h.ledger.UndoTransfer(c.Request.Context(), req.Token)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction_id": txnID})
}

// ATP handles GET /api/inventory/atp?variant_id&warehouse_id: given a
// variant and warehouse, returns the available-to-promise projection.
func (h *InventoryHandler) ATP(c *gin.Context) {
	variantID, err := strconv.ParseInt(c.Query("variant_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "variant_id is required"})
		return
	}
	warehouseID, err := strconv.ParseInt(c.Query("warehouse_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "warehouse_id is required"})
		return
	}
	result, err := h.ledger.ATP(c.Request.Context(), domain.VariantID(variantID), domain.WarehouseID(warehouseID))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type adjustRequest struct {
	VariantID  domain.VariantID    `json:"variant_id" binding:"required"`
	LocationID domain.LocationID   `json:"location_id" binding:"required"`
	State      domain.BalanceState `json:"state" binding:"required"`
	SignedQty  int64               `json:"signed_qty"`
	Reason     string              `json:"reason" binding:"required"`
	UserRef    string              `json:"user_ref"`
	Notes      string              `json:"notes"`
}

// Adjust handles POST /api/inventory/adjust.
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	refs := domain.TxnRefs{User: req.UserRef, Notes: req.Notes}
	txnID, err := h.ledger.Adjust(c.Request.Context(), req.VariantID, req.LocationID, req.State, req.SignedQty, req.Reason, refs)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction_id": txnID})
}
