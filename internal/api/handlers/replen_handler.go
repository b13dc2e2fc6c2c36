package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/wms-core/server/internal/domain"
	"github.com/wms-core/server/internal/replen"
	"github.com/wms-core/server/internal/storage"
	"github.com/wms-core/server/pkg/logger"
)

type ReplenHandler struct {
	svc     *replen.Service
	objects storage.ObjectStorage
}

func NewReplenHandler(svc *replen.Service, objects storage.ObjectStorage) *ReplenHandler {
	return &ReplenHandler{svc: svc, objects: objects}
}

// ListRules handles GET /api/replen/rules?active.
func (h *ReplenHandler) ListRules(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	rules, err := h.svc.ListRules(c.Request.Context(), activeOnly)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// CreateRule handles POST /api/replen/rules.
func (h *ReplenHandler) CreateRule(c *gin.Context) {
	var rule domain.ReplenRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.svc.CreateRule(c.Request.Context(), rule)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Generate handles POST /api/replen/generate: evaluates every active rule.
func (h *ReplenHandler) Generate(c *gin.Context) {
	taskIDs, err := h.svc.GenerateAll(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_ids": taskIDs})
}

type updateTaskRequest struct {
	Status   *domain.ReplenTaskStatus `json:"status"`
	Assignee *string                  `json:"assignee"`
}

// UpdateTask handles PATCH /api/replen/tasks/:id.
func (h *ReplenHandler) UpdateTask(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.UpdateTask(c.Request.Context(), domain.ReplenTaskID(id), req.Status, req.Assignee); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// ImportCSV handles a bulk rule upload, mirroring receiving's bulk-lines
// shape: per-row warnings rather than an all-or-nothing failure (§4.9). As
// with receiving, the file arrives either as a multipart upload (archived
// to the object-storage landing zone when configured) or via ?object_key=
// for a file already sitting there.
func (h *ReplenHandler) ImportCSV(c *gin.Context) {
	f, err := h.openUpload(c, "replen")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	rows, err := replen.ParseRuleCSV(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// openUpload mirrors ReceivingHandler.openUpload: object_key pulls from
// storage, otherwise the multipart file is used directly and archived.
func (h *ReplenHandler) openUpload(c *gin.Context, landingPrefix string) (io.ReadCloser, error) {
	if key := c.Query("object_key"); key != "" {
		if h.objects == nil {
			return nil, fmt.Errorf("object storage is not configured")
		}
		tmp, err := os.CreateTemp("", "replen-bulk-*.csv")
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
