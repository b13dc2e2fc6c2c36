package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-core/server/internal/channelsync"
	"github.com/wms-core/server/internal/domain"
)

type ChannelsHandler struct {
	svc *channelsync.Service
}

func NewChannelsHandler(svc *channelsync.Service) *ChannelsHandler {
	return &ChannelsHandler{svc: svc}
}

// List handles GET /api/channels.
func (h *ChannelsHandler) List(c *gin.Context) {
	channels, err := h.svc.ListChannels(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// Sync handles POST /api/channels/:id/sync: runs an all-products sync
// filtered to this channel's driver type (§4.10 "Channel-scoped sync
// filters by driver type").
func (h *ChannelsHandler) Sync(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	channels, err := h.svc.ListChannels(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	var driverType *domain.ChannelDriverType
	for _, ch := range channels {
		if int64(ch.ID) == id {
			dt := ch.DriverType
			driverType = &dt
			break
		}
	}
	if driverType == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}
	results, err := h.svc.SyncAllProducts(c.Request.Context(), driverType)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
