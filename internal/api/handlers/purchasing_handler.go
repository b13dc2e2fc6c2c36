package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wms-core/server/internal/domain"
	"github.com/wms-core/server/internal/purchasing"
)

type PurchasingHandler struct {
	svc *purchasing.Service
}

func NewPurchasingHandler(svc *purchasing.Service) *PurchasingHandler {
	return &PurchasingHandler{svc: svc}
}

// List handles GET /api/purchasing/pos?status&vendorId.
func (h *PurchasingHandler) List(c *gin.Context) {
	status := domain.POStatus(c.Query("status"))
	var vendor domain.VendorID
	if v := c.Query("vendorId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendorId"})
			return
		}
		vendor = domain.VendorID(id)
	}
	pos, err := h.svc.List(c.Request.Context(), status, vendor)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchase_orders": pos})
}

// Get handles GET /api/purchasing/pos/:id.
func (h *PurchasingHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	po, lines, err := h.svc.Get(c.Request.Context(), domain.POID(id))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchase_order": po, "lines": lines})
}

type createPORequest struct {
	PO    domain.PurchaseOrder       `json:"po"`
	Lines []domain.PurchaseOrderLine `json:"lines"`
}

// Create handles POST /api/purchasing/pos.
func (h *PurchasingHandler) Create(c *gin.Context) {
	var req createPORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.svc.Create(c.Request.Context(), req.PO, req.Lines)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type submitRequest struct {
	ChangedBy string `json:"changed_by"`
}

// Submit handles POST /api/purchasing/pos/:id/submit.
func (h *PurchasingHandler) Submit(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req submitRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.svc.Submit(c.Request.Context(), domain.POID(id), req.ChangedBy); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusOK)
}

type transitionRequest struct {
	ChangedBy string `json:"changed_by"`
	Note      string `json:"note"`
}

// transitionHandler builds a gin.HandlerFunc that moves a PO to `to`;
// approve/send/acknowledge/cancel/close/close-short are thin wrappers
// around the same Transition call with a fixed target status.
func (h *PurchasingHandler) transitionHandler(to domain.POStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req transitionRequest
		_ = c.ShouldBindJSON(&req)
		if err := h.svc.Transition(c.Request.Context(), domain.POID(id), to, req.ChangedBy, req.Note); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusOK)
	}
}

func (h *PurchasingHandler) Approve() gin.HandlerFunc     { return h.transitionHandler(domain.POApproved) }
func (h *PurchasingHandler) Send() gin.HandlerFunc        { return h.transitionHandler(domain.POSent) }
func (h *PurchasingHandler) Acknowledge() gin.HandlerFunc { return h.transitionHandler(domain.POAcknowledged) }
func (h *PurchasingHandler) Cancel() gin.HandlerFunc      { return h.transitionHandler(domain.POCancelled) }
func (h *PurchasingHandler) Close() gin.HandlerFunc       { return h.transitionHandler(domain.POClosed) }

// CloseShort handles POST /api/purchasing/pos/:id/close-short: closes the
// PO while it still has open quantity, same target status as a normal
// close — the "short" distinction is the caller accepting the shortfall.
func (h *PurchasingHandler) CloseShort() gin.HandlerFunc {
	return h.transitionHandler(domain.POClosed)
}

// OnOrder handles GET /api/purchasing/on-order?variantId.
func (h *PurchasingHandler) OnOrder(c *gin.Context) {
	variantID, err := strconv.ParseInt(c.Query("variantId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "variantId is required"})
		return
	}
	result, err := h.svc.OnOrder(c.Request.Context(), domain.VariantID(variantID))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type reorderRequest struct {
	Items []purchasing.ReorderItem `json:"items" binding:"required"`
}

// ReorderToPO handles POST /api/purchasing/reorder.
func (h *PurchasingHandler) ReorderToPO(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ids, err := h.svc.ReorderToPO(c.Request.Context(), req.Items)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"purchase_order_ids": ids})
}
