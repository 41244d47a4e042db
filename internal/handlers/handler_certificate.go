package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/SscSPs/etat_civil_app/internal/dto"
	"github.com/SscSPs/etat_civil_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// certificateHandler handles issuance and the paid download ledger.
type certificateHandler struct {
	certificateService portssvc.CertificateSvcFacade
}

func newCertificateHandler(cs portssvc.CertificateSvcFacade) *certificateHandler {
	return &certificateHandler{certificateService: cs}
}

// RegisterCertificateRoutes registers the authenticated certificate routes.
func RegisterCertificateRoutes(rg *gin.RouterGroup, certificateService portssvc.CertificateSvcFacade) {
	h := newCertificateHandler(certificateService)

	issuance := rg.Group("/declarations/:declarationID/certificate")
	{
		issuance.POST("", middleware.RequireRoles(domain.RoleMunicipal, domain.RoleAdmin), h.issueCertificate)
		issuance.GET("", h.getCertificateByDeclaration)
	}

	certificates := rg.Group("/certificates/:certificateID")
	{
		certificates.GET("", h.getCertificate)
		certificates.POST("/downloads", h.requestDownload)
		certificates.GET("/downloads", h.listDownloads)
		certificates.GET("/audit", middleware.RequireRoles(domain.RoleMunicipal, domain.RoleAdmin), h.auditTotals)
	}

	downloads := rg.Group("/downloads/:paymentReference")
	{
		downloads.POST("/cancel", h.cancelDownload)
		downloads.GET("/document", h.fetchDocument)
	}
}

// issueCertificate godoc
// @Summary Issue the birth certificate of a validated declaration
// @Description Allocates the next act number of the office registry and seals the certificate. Repeating the call answers 409 with the existing certificate.
// @Tags certificates
// @Produce  json
// @Param   declarationID path string true "Declaration ID"
// @Success 201 {object} dto.CertificateResponse
// @Failure 404 {object} map[string]string "Declaration not found"
// @Failure 409 {object} dto.CertificateResponse "Already issued"
// @Failure 412 {object} map[string]string "Declaration not validated"
// @Failure 500 {object} map[string]string "Failed to issue certificate"
// @Security BearerAuth
// @Router /declarations/{declarationID}/certificate [post]
func (h *certificateHandler) issueCertificate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := actorOrAbort(c, logger)
	if !ok {
		return
	}
	declarationID := c.Param("declarationID")
	logger = logger.With(slog.String("declaration_id", declarationID))

	certificate, err := h.certificateService.Issue(c.Request.Context(), actor, declarationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyIssued) && certificate != nil {
			logger.Info("Certificate already issued", slog.String("certificate_id", certificate.ID))
			c.JSON(http.StatusConflict, dto.ToCertificateResponse(certificate))
			return
		}
		respondError(c, logger, err, "Failed to issue certificate")
		return
	}
	c.JSON(http.StatusCreated, dto.ToCertificateResponse(certificate))
}

// getCertificateByDeclaration godoc
// @Summary Get the certificate of a declaration
// @Tags certificates
// @Produce  json
// @Param   declarationID path string true "Declaration ID"
// @Success 200 {object} dto.CertificateResponse
// @Failure 404 {object} map[string]string "Certificate not found"
// @Security BearerAuth
// @Router /declarations/{declarationID}/certificate [get]
func (h *certificateHandler) getCertificateByDeclaration(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := actorOrAbort(c, logger)
	if !ok {
		return
	}
	certificate, err := h.certificateService.GetCertificateByDeclaration(c.Request.Context(), actor, c.Param("declarationID"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve certificate")
		return
	}
	c.JSON(http.StatusOK, dto.ToCertificateResponse(certificate))
}

// getCertificate godoc
// @Summary Get a certificate by ID
// @Tags certificates
// @Produce  json
// @Param   certificateID path string true "Certificate ID"
// @Success 200 {object} dto.CertificateResponse
// @Failure 404 {object} map[string]string "Certificate not found"
// @Security BearerAuth
// @Router /certificates/{certificateID} [get]
func (h *certificateHandler) getCertificate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := actorOrAbort(c, logger)
	if !ok {
		return
	}
	certificate, err := h.certificateService.GetCertificate(c.Request.Context(), actor, c.Param("certificateID"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve certificate")
		return
	}
	c.JSON(http.StatusOK, dto.ToCertificateResponse(certificate))
}

// requestDownload godoc
// @Summary Request paid copies of a certificate
// @Description Opens a pending ledger entry and returns the checkout link of the payment rail
// @Tags downloads
// @Accept  json
// @Produce  json
// @Param   certificateID path string true "Certificate ID"
// @Param   body body dto.RequestDownloadRequest true "Copies and payment method"
// @Success 201 {object} dto.DownloadRequestResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 404 {object} map[string]string "Certificate not found"
// @Failure 410 {object} map[string]string "Certificate archived"
// @Failure 500 {object} map[string]string "Failed to request download"
// @Security BearerAuth
// @Router /certificates/{certificateID}/downloads [post]
func (h *certificateHandler) requestDownload(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RequestDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, logger, err, "RequestDownload")
		return
	}
	actor, ok := actorOrAbort(c, logger)
	if !ok {
		return
	}
	certificateID := c.Param("certificateID")
	logger = logger.With(slog.String("certificate_id", certificateID))

	result, err := h.certificateService.RequestDownload(c.Request.Context(), actor, certificateID, req.Quantity, req.PaymentMethod)
	if err != nil {
		respondError(c, logger, err, "Failed to request download")
		return
	}

	c.JSON(http.StatusCreated, dto.DownloadRequestResponse{
		PaymentReference: result.Entry.PaymentReference,
		Quantity:         result.Entry.Quantity,
		Amount:           result.Entry.Amount,
		Currency:         result.Currency,
		PaymentMethod:    result.Entry.PaymentMethod,
		PaymentURL:       result.Entry.PaymentURL,
		Status:           result.Entry.Status,
	})
}

// listDownloads godoc
// @Summary List the download ledger of a certificate
// @Tags downloads
// @Produce  json
// @Param   certificateID path string true "Certificate ID"
// @Success 200 {object} dto.ListDownloadsResponse
// @Failure 404 {object} map[string]string "Certificate not found"
// @Security BearerAuth
// @Router /certificates/{certificateID}/downloads [get]
func (h *certificateHandler) listDownloads(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := actorOrAbort(c, logger)
	if !ok {
		return
	}
	entries, err := h.certificateService.ListDownloads(c.Request.Context(), actor, c.Param("certificateID"))
	if err != nil {
		respondError(c, logger, err, "Failed to list downloads")
		return
	}
	if entries == nil {
		entries = []domain.DownloadEntry{}
	}
	c.JSON(http.StatusOK, dto.ListDownloadsResponse{Entries: entries})
}

// auditTotals godoc
// @Summary Audit the ledger totals of a certificate
// @Description Recomputes downloads and collected amount from the paid entries and compares them with the stored totals
// @Tags downloads
// @Produce  json
// @Param   certificateID path string true "Certificate ID"
// @Success 200 {object} dto.LedgerAuditResponse
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Certificate not found"
// @Security BearerAuth
// @Router /certificates/{certificateID}/audit [get]
func (h *certificateHandler) auditTotals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := actorOrAbort(c, logger)
	if !ok {
		return
	}
	audit, err := h.certificateService.AuditTotals(c.Request.Context(), actor, c.Param("certificateID"))
	if err != nil {
		respondError(c, logger, err, "Failed to audit ledger")
		return
	}
	c.JSON(http.StatusOK, dto.LedgerAuditResponse{
		CertificateID: audit.CertificateID,
		Cached:        audit.Cached,
		Recomputed:    audit.Recomputed,
		Consistent:    audit.Consistent(),
		Entries:       audit.Entries,
		SealValid:     audit.SealValid,
	})
}

// cancelDownload godoc
// @Summary Cancel a pending download
// @Tags downloads
// @Produce  json
// @Param   paymentReference path string true "Payment reference"
// @Success 200 {object} domain.DownloadEntry
// @Failure 400 {object} map[string]string "Unknown reference"
// @Failure 412 {object} map[string]string "Entry is no longer pending"
// @Security BearerAuth
// @Router /downloads/{paymentReference}/cancel [post]
func (h *certificateHandler) cancelDownload(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := actorOrAbort(c, logger)
	if !ok {
		return
	}
	reference := c.Param("paymentReference")
	entry, err := h.certificateService.CancelDownload(c.Request.Context(), actor, reference)
	if err != nil {
		respondError(c, logger.With(slog.String("payment_reference", reference)), err, "Failed to cancel download")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// fetchDocument godoc
// @Summary Download the delivered certificate file
// @Tags downloads
// @Produce  application/octet-stream
// @Param   paymentReference path string true "Payment reference"
// @Success 200 {file} file
// @Failure 400 {object} map[string]string "Unknown reference"
// @Failure 412 {object} map[string]string "Payment not confirmed"
// @Security BearerAuth
// @Router /downloads/{paymentReference}/document [get]
func (h *certificateHandler) fetchDocument(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := actorOrAbort(c, logger)
	if !ok {
		return
	}
	reference := c.Param("paymentReference")
	content, err := h.certificateService.FetchDocument(c.Request.Context(), actor, reference)
	if err != nil {
		respondError(c, logger.With(slog.String("payment_reference", reference)), err, "Failed to fetch document")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+reference+`"`)
	c.Data(http.StatusOK, "application/octet-stream", content)
}
