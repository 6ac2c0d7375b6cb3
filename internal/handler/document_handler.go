package handler

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docport/docport/internal/pkg/errcode"
	"github.com/docport/docport/internal/pkg/response"
	"github.com/docport/docport/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	tenantID := c.PostForm("tenant_id")
	if tenantID == "" {
		response.Error(c, errcode.ErrInvalid, "tenant_id is required")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(file.Filename))
	}
	doc, err := h.documents.Upload(c.Request.Context(), getUserID(c), service.UploadInput{
		TenantID: tenantID,
		FileName: file.Filename,
		MimeType: contentType,
		Size:     file.Size,
		Content:  opened,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Query("tenant_id"))
	if tenantID == "" {
		response.Error(c, errcode.ErrInvalid, "tenant_id is required")
		return
	}
	items, err := h.documents.List(c.Request.Context(), getUserID(c), tenantID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	url, err := h.documents.DownloadURL(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"url": url})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
