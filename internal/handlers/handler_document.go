package handlers

import (
	"io"
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/SscSPs/etat_civil_app/internal/dto"
	"github.com/SscSPs/etat_civil_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 10 << 20

var allowedUploadTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// documentHandler stores attachments such as the hospital birth certificate scan.
type documentHandler struct {
	documents portssvc.DocumentStore
}

// RegisterDocumentRoutes registers the attachment upload route.
func RegisterDocumentRoutes(rg *gin.RouterGroup, documents portssvc.DocumentStore) {
	h := &documentHandler{documents: documents}
	rg.POST("/documents", h.uploadDocument)
}

// uploadDocument godoc
// @Summary Upload an attachment
// @Description Stores a PDF or image and returns the reference to put in birthCertificate.fileRef
// @Tags documents
// @Accept  multipart/form-data
// @Produce  json
// @Param   file formData file true "Attachment"
// @Success 201 {object} dto.DocumentUploadResponse
// @Failure 400 {object} map[string]string "Missing or unsupported file"
// @Failure 413 {object} map[string]string "File too large"
// @Failure 500 {object} map[string]string "Failed to store document"
// @Security BearerAuth
// @Router /documents [post]
func (h *documentHandler) uploadDocument(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	fileHeader, err := c.FormFile("file")
	if err != nil {
		logger.Warn("Upload without file", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 10MB"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, logger, err, "Failed to read upload")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respondError(c, logger, err, "Failed to read upload")
		return
	}
	if len(content) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 10MB"})
		return
	}

	contentType := http.DetectContentType(content)
	if !allowedUploadTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type " + contentType})
		return
	}

	ref, err := h.documents.Store(c.Request.Context(), content, contentType)
	if err != nil {
		respondError(c, logger, err, "Failed to store document")
		return
	}
	logger.Info("Document stored", slog.String("ref", ref), slog.Int("bytes", len(content)))
	c.JSON(http.StatusCreated, dto.DocumentUploadResponse{Ref: ref})
}
