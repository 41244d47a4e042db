package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/SscSPs/etat_civil_app/internal/dto"
	"github.com/SscSPs/etat_civil_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// PaymentSignatureHeader carries the rail's signature over the reference and paid amount.
const PaymentSignatureHeader = "X-Payment-Signature"

// RegisterPaymentRoutes registers the payment rail callback. It carries no
// bearer token; every call must be signed by the rail instead.
func RegisterPaymentRoutes(rg *gin.RouterGroup, ledgerService portssvc.DownloadLedgerSvc, verifier portssvc.PaymentCallbackVerifier) {
	rg.POST("/payments/confirm", confirmPayment(ledgerService, verifier))
}

// confirmPayment godoc
// @Summary Confirm a download payment
// @Description Called by the payment rail. Repeated confirmations return the same file reference.
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   X-Payment-Signature header string true "Hex keyed MAC of reference|paidAmount"
// @Param   body body dto.ConfirmPaymentRequest true "Payment confirmation"
// @Success 200 {object} dto.PaymentConfirmationResponse
// @Failure 400 {object} map[string]string "Unknown or cancelled reference"
// @Failure 401 {object} map[string]string "Missing or invalid signature"
// @Failure 412 {object} map[string]string "Amount mismatch"
// @Failure 500 {object} map[string]string "Failed to confirm payment"
// @Router /payments/confirm [post]
func confirmPayment(ledgerService portssvc.DownloadLedgerSvc, verifier portssvc.PaymentCallbackVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.GetLoggerFromCtx(c.Request.Context())
		var req dto.ConfirmPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, logger, err, "ConfirmPayment")
			return
		}
		logger = logger.With(slog.String("payment_reference", req.PaymentReference))

		if !verifier.VerifyCallback(req.PaymentReference, *req.PaidAmount, c.GetHeader(PaymentSignatureHeader)) {
			logger.Warn("Rejected payment callback with a bad signature")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid payment signature"})
			return
		}

		confirmation, err := ledgerService.ConfirmPayment(c.Request.Context(), req.PaymentReference, *req.PaidAmount)
		if err != nil {
			respondError(c, logger, err, "Failed to confirm payment")
			return
		}

		entry := confirmation.Entry
		c.JSON(http.StatusOK, dto.PaymentConfirmationResponse{
			PaymentReference: entry.PaymentReference,
			CertificateID:    entry.CertificateID,
			FileRef:          entry.FileRef,
			Quantity:         entry.Quantity,
			Amount:           entry.Amount,
			AlreadyConfirmed: confirmation.AlreadyConfirmed,
			PaidAt:           entry.PaidAt,
		})
	}
}
