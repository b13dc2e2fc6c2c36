package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-core/server/internal/domain"
	"github.com/wms-core/server/internal/shipments"
)

type ShipmentsHandler struct {
	svc *shipments.Service
}

func NewShipmentsHandler(svc *shipments.Service) *ShipmentsHandler {
	return &ShipmentsHandler{svc: svc}
}

// List handles GET /api/inbound-shipments?status.
func (h *ShipmentsHandler) List(c *gin.Context) {
	status := domain.ShipmentStatus(c.Query("status"))
	result, err := h.svc.List(c.Request.Context(), status)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shipments": result})
}

// Get handles GET /api/inbound-shipments/:id.
func (h *ShipmentsHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sh, lines, err := h.svc.Get(c.Request.Context(), domain.ShipmentID(id))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shipment": sh, "lines": lines})
}

// Create handles POST /api/inbound-shipments.
func (h *ShipmentsHandler) Create(c *gin.Context) {
	var sh domain.InboundShipment
	if err := c.ShouldBindJSON(&sh); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.svc.Create(c.Request.Context(), sh)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type shipmentTransitionRequest struct {
	Status domain.ShipmentStatus `json:"status" binding:"required"`
}

// Transition handles POST /api/inbound-shipments/:id/status.
func (h *ShipmentsHandler) Transition(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req shipmentTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Transition(c.Request.Context(), domain.ShipmentID(id), req.Status); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// RunAllocation handles POST /api/inbound-shipments/:id/run-allocation.
func (h *ShipmentsHandler) RunAllocation(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.RunAllocation(c.Request.Context(), domain.ShipmentID(id)); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Finalize handles POST /api/inbound-shipments/:id/finalize.
func (h *ShipmentsHandler) Finalize(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Finalize(c.Request.Context(), domain.ShipmentID(id)); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusOK)
}
