package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"vogue-studio-backend/service"
	"vogue-studio-backend/storage"
	"vogue-studio-backend/store"

	"github.com/gin-gonic/gin"
)

// MediaHandler handles image upload and design export.
type MediaHandler struct {
	store            *store.Store
	storage          storage.Storage
	maxFileSize      int64
	allowedMimeTypes map[string]bool
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(st *store.Store, fileStorage storage.Storage) *MediaHandler {
	return &MediaHandler{
		store:       st,
		storage:     fileStorage,
		maxFileSize: 10 * 1024 * 1024, // 10MB
		allowedMimeTypes: map[string]bool{
			"image/png":  true,
			"image/jpeg": true,
			"image/webp": true,
			"image/gif":  true,
		},
	}
}

// Upload handles POST /api/uploads. The image is read fully and handed
// back as a data URI, mirroring the client-side file reader the studio
// replaces; with ?target=reference it also becomes the reference photo.
func (h *MediaHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "File is required",
			},
		})
		return
	}

	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize),
			},
		})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = inferImageMimeType(fileHeader.Filename)
	}
	if !h.allowedMimeTypes[mimeType] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "File type not allowed. Allowed types: PNG, JPEG, WEBP, GIF",
			},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_OPEN_ERROR",
				"message": err.Error(),
			},
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_READ_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	dataURI := service.EncodeDataURI(mimeType, data)

	if c.Query("target") == "reference" {
		h.store.SetUploadedUserImage(dataURI)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"filename":  fileHeader.Filename,
			"mime_type": mimeType,
			"size":      fileHeader.Size,
			"data_uri":  dataURI,
		},
	})
}

// ExportDesign handles POST /api/gallery/:id/export. It decodes the
// saved design's image and uploads it to the configured storage
// backend.
func (h *MediaHandler) ExportDesign(c *gin.Context) {
	id := c.Param("id")
	design, ok := h.store.DesignByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Design not found",
			},
		})
		return
	}

	data, mimeType, err := service.DecodeDataURI(design.ImageURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_EXPORTABLE",
				"message": "Design image is not an inline data URI",
			},
		})
		return
	}

	filename := fmt.Sprintf("vogue-ai-design-%s%s", design.ID, extensionForMimeType(mimeType))
	storagePath, err := h.storage.Upload(c.Request.Context(), design.ID, filename, bytes.NewReader(data))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EXPORT_FAILED",
				"message": fmt.Sprintf("Failed to export design: %v", err),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"id":           design.ID,
			"filename":     filename,
			"mime_type":    mimeType,
			"size":         len(data),
			"storage_path": storagePath,
		},
	})
}

// inferImageMimeType guesses a MIME type from the filename extension.
func inferImageMimeType(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// extensionForMimeType maps an image MIME type to a file extension.
func extensionForMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
