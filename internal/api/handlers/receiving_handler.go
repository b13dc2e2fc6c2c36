package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/wms-core/server/internal/catalog"
	"github.com/wms-core/server/internal/domain"
	"github.com/wms-core/server/internal/receiving"
	"github.com/wms-core/server/internal/storage"
	"github.com/wms-core/server/pkg/logger"
)

type ReceivingHandler struct {
	svc     *receiving.Service
	catalog *catalog.Service
	objects storage.ObjectStorage
}

func NewReceivingHandler(svc *receiving.Service, catalogSvc *catalog.Service, objects storage.ObjectStorage) *ReceivingHandler {
	return &ReceivingHandler{svc: svc, catalog: catalogSvc, objects: objects}
}

// List handles GET /api/receiving?status.
func (h *ReceivingHandler) List(c *gin.Context) {
	status := domain.ReceivingOrderStatus(c.Query("status"))
	orders, err := h.svc.List(c.Request.Context(), status)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receiving_orders": orders})
}

// Get handles GET /api/receiving/:id.
func (h *ReceivingHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ro, lines, err := h.svc.Get(c.Request.Context(), domain.ReceivingID(id))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receiving_order": ro, "lines": lines})
}

// Create handles POST /api/receiving.
func (h *ReceivingHandler) Create(c *gin.Context) {
	var ro domain.ReceivingOrder
	if err := c.ShouldBindJSON(&ro); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.svc.Create(c.Request.Context(), ro)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Open handles POST /api/receiving/:id/open.
func (h *ReceivingHandler) Open(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Open(c.Request.Context(), domain.ReceivingID(id)); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Close handles POST /api/receiving/:id/close.
func (h *ReceivingHandler) Close(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Close(c.Request.Context(), domain.ReceivingID(id)); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusOK)
}

type updateLineRequest struct {
	ReceivedQty int64              `json:"received_qty"`
	DamagedQty  int64              `json:"damaged_qty"`
	Putaway     *domain.LocationID `json:"putaway_location_id"`
	Notes       string             `json:"notes"`
}

// UpdateLine handles PATCH /api/receiving/lines/:id.
func (h *ReceivingHandler) UpdateLine(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req updateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.UpdateLine(c.Request.Context(), domain.RecvLineID(id), req.ReceivedQty, req.DamagedQty, req.Putaway, req.Notes); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// BulkLines handles POST /api/receiving/:id/lines/bulk: a CSV upload of
// sku,qty,location?,damaged_qty?,unit_cost?,barcode?,notes? rows. The file
// can arrive either as a multipart upload (archived to the object-storage
// landing zone when one is configured) or, via ?object_key=, as a file
// already sitting in that landing zone (dropped there by an out-of-band
// ASN feed), which is pulled down before parsing (§4.6 bulk import).
func (h *ReceivingHandler) BulkLines(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, err := h.openUpload(c, fmt.Sprintf("receiving/%d", id))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	rows, err := receiving.ParseCSV(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	results := h.svc.ImportCSV(c.Request.Context(), domain.ReceivingID(id), rows, h.catalog)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// openUpload resolves the CSV reader for a bulk-import request: an
// object_key query param pulls the file from the configured object store,
// otherwise the multipart "file" field is used directly and, if object
// storage is configured, archived under landingPrefix as a side effect.
func (h *ReceivingHandler) openUpload(c *gin.Context, landingPrefix string) (io.ReadCloser, error) {
	if key := c.Query("object_key"); key != "" {
		if h.objects == nil {
			return nil, fmt.Errorf("object storage is not configured")
		}
		tmp, err := os.CreateTemp("", "receiving-bulk-*.csv")
		if err != nil {
			return nil, err
		}
		tmpPath := tmp.Name()
		tmp.Close()
		if err := h.objects.DownloadObject(c.Request.Context(), key, tmpPath); err != nil {
			os.Remove(tmpPath)
			return nil, fmt.Errorf("download %s: %w", key, err)
		}
		return &tempFile{path: tmpPath}, nil
	}

	file, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file is required")
	}
	uploaded, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open upload")
	}
	if h.objects != nil {
		data, err := io.ReadAll(uploaded)
		uploaded.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		key := fmt.Sprintf("%s/%s", landingPrefix, file.Filename)
		if err := h.objects.UploadObject(c.Request.Context(), key, data); err != nil {
			logger.Log.Warn().Err(err).Str("key", key).Msg("failed to archive bulk-import upload to object storage")
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return uploaded, nil
}
