package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"spinly/internal/models"
	"spinly/internal/types"
)

const maxUploadBytes = 10 << 20

// GetStock returns the items on the wheel, or every item with ?all=true.
func (h *HTTPHandler) GetStock(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("all"))

	var (
		items []models.Item
		err   error
	)
	if all {
		items, err = h.stock.All(c.Request.Context())
	} else {
		items, err = h.stock.Available(c.Request.Context())
	}
	if err != nil {
		respondError(c, types.WrapError(types.ErrIO, "failed to fetch stock", err))
		return
	}
	c.JSON(http.StatusOK, items)
}

// ReplaceStock replaces the whole stock list.
func (h *HTTPHandler) ReplaceStock(c *gin.Context) {
	var items []models.Item
	if err := c.ShouldBindJSON(&items); err != nil {
		respondError(c, types.WrapError(types.ErrInvalidInput, "stock must be a JSON array of items", err))
		return
	}
	if err := h.stock.Replace(c.Request.Context(), items); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock updated", "count": len(items)})
}

// Upload stores the multipart "file" field and returns the path it is served from.
func (h *HTTPHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, types.NewError(types.ErrInvalidInput, "No file provided"))
		return
	}
	if header.Size > maxUploadBytes {
		respondError(c, types.Errorf(types.ErrValidation, "file is larger than %d bytes", maxUploadBytes))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, types.WrapError(types.ErrIO, "Failed to upload file", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respondError(c, types.WrapError(types.ErrIO, "Failed to upload file", err))
		return
	}

	path, err := h.assets.Put(c.Request.Context(), header.Filename, data, header.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Infof("Stored upload %s (%d bytes)", path, len(data))
	c.JSON(http.StatusOK, gin.H{"success": true, "path": path})
}

// GetBlob serves a stored blob with a long-lived cache header.
func (h *HTTPHandler) GetBlob(c *gin.Context) {
	asset, err := h.assets.Get(c.Request.Context(), c.Param("store"), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000")
	c.Data(http.StatusOK, asset.ContentType, asset.Data)
}

// WriteLog appends a client-submitted log entry.
func (h *HTTPHandler) WriteLog(c *gin.Context) {
	var entry models.LogEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		respondError(c, types.WrapError(types.ErrInvalidInput, "Invalid log data", err))
		return
	}
	if err := h.logs.Append(c.Request.Context(), entry); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Log saved"})
}

// ReadLogs returns every log entry, newest first.
func (h *HTTPHandler) ReadLogs(c *gin.Context) {
	entries, err := h.logs.List(c.Request.Context())
	if err != nil {
		respondError(c, types.WrapError(types.ErrIO, "Failed to read logs", err))
		return
	}
	c.JSON(http.StatusOK, entries)
}
