package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"citygate/internal/services"
)

// MfaHandler handles TOTP enrollment activation and deactivation.
type MfaHandler struct {
	mfaService   services.MfaServicer
	auditService services.AuditServicer
}

// NewMfaHandler creates a new MfaHandler
func NewMfaHandler(mfaService services.MfaServicer, auditService services.AuditServicer) *MfaHandler {
	return &MfaHandler{mfaService: mfaService, auditService: auditService}
}

// ActivateMFA enables MFA and returns the enrollment QR code
// @Summary     Activate MFA
// @Description Enable TOTP MFA; responds with a scannable PNG QR image.
// @Description Calling it again returns the same image.
// @Tags        localauth
// @Produce     png
// @Security    BearerAuth
// @Success     200 {file} binary "Enrollment QR code"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /localauth/activateMFA [post]
func (h *MfaHandler) ActivateMFA(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	image, err := h.mfaService.Activate(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditMfaActivated, "user", userID, c.ClientIP(), nil)

	c.Data(http.StatusOK, "image/png", image)
}

// DeactivateMFA disables MFA for the caller
// @Summary     Deactivate MFA
// @Description Disable TOTP MFA. The enrollment is retained so a later
// @Description re-activation restores the same secret.
// @Tags        localauth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]string
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /localauth/deactivateMFA [post]
func (h *MfaHandler) DeactivateMFA(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.mfaService.Deactivate(userID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditMfaDeactivated, "user", userID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "MFA deactivated"})
}
