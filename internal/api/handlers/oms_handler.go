package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wms-core/server/internal/domain"
	"github.com/wms-core/server/internal/oms"
)

type OMSHandler struct {
	svc *oms.Service
}

func NewOMSHandler(svc *oms.Service) *OMSHandler {
	return &OMSHandler{svc: svc}
}

// List handles GET /api/oms/orders?status&channelId.
func (h *OMSHandler) List(c *gin.Context) {
	var status *domain.SalesOrderStatus
	if v := c.Query("status"); v != "" {
		s := domain.SalesOrderStatus(v)
		status = &s
	}
	var channelID *domain.ChannelID
	if v := c.Query("channelId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channelId"})
			return
		}
		cid := domain.ChannelID(id)
		channelID = &cid
	}
	orders, err := h.svc.List(c.Request.Context(), status, channelID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type combineRequest struct {
	OrderIDs []domain.SalesOrderID `json:"order_ids" binding:"required"`
}

// Combine handles POST /api/orders/combine.
func (h *OMSHandler) Combine(c *gin.Context) {
	var req combineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	groupID, err := h.svc.Combine(c.Request.Context(), req.OrderIDs)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"combined_group_id": groupID})
}

type holdRequest struct {
	OnHold bool `json:"on_hold"`
}

// SetHold handles PATCH /api/oms/orders/:id/hold.
func (h *OMSHandler) SetHold(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req holdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SetHold(c.Request.Context(), domain.SalesOrderID(id), req.OnHold); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusOK)
}

type priorityRequest struct {
	Priority domain.SalesOrderPriority `json:"priority" binding:"required"`
}

// SetPriority handles PATCH /api/oms/orders/:id/priority.
func (h *OMSHandler) SetPriority(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req priorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SetPriority(c.Request.Context(), domain.SalesOrderID(id), req.Priority); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusOK)
}
