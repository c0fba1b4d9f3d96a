package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "citygate/internal/errors"
	"citygate/internal/services"
)

// PasswordHandler handles OTP-based password recovery.
type PasswordHandler struct {
	resetService services.PasswordResetServicer
	auditService services.AuditServicer
}

// NewPasswordHandler creates a new PasswordHandler
func NewPasswordHandler(resetService services.PasswordResetServicer, auditService services.AuditServicer) *PasswordHandler {
	return &PasswordHandler{resetService: resetService, auditService: auditService}
}

// ForgotPasswordRequest starts a password recovery.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyOtpRequest carries the recovery code for verification.
type VerifyOtpRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,mfa_code"`
}

// ResetPasswordRequest carries the verified code and the new password.
type ResetPasswordRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Code            string `json:"code" binding:"required,mfa_code"`
	Password        string `json:"password" binding:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

// ForgotPassword requests a recovery code
// @Summary     Request password recovery
// @Description Send a one-time recovery code to the account's delivery
// @Description channel. Always answers 200 to avoid account enumeration.
// @Tags        localauth
// @Accept      json
// @Produce     json
// @Param       request body ForgotPasswordRequest true "Account email"
// @Success     200 {object} map[string]string
// @Router      /localauth/forgot-password [post]
func (h *PasswordHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.resetService.RequestReset(req.Email); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "If the account exists, a recovery code has been sent"})
}

// VerifyOtp verifies a recovery code
// @Summary     Verify recovery code
// @Tags        localauth
// @Accept      json
// @Produce     json
// @Param       request body VerifyOtpRequest true "Email and code"
// @Success     200 {object} map[string]string
// @Failure     401 {object} ErrorResponse "Invalid or expired code"
// @Router      /localauth/verify-otp [post]
func (h *PasswordHandler) VerifyOtp(c *gin.Context) {
	var req VerifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.resetService.VerifyCode(req.Email, req.Code); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Code verified"})
}

// ResetPassword sets a new password after code verification
// @Summary     Reset password
// @Description Replace the password for a verified recovery code and
// @Description revoke all sessions of the account.
// @Tags        localauth
// @Accept      json
// @Produce     json
// @Param       request body ResetPasswordRequest true "Verified code and new password"
// @Success     200 {object} map[string]string
// @Failure     401 {object} ErrorResponse "Invalid or expired code"
// @Router      /localauth/reset-password [post]
func (h *PasswordHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.resetService.ResetPassword(req.Email, req.Code, req.Password); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(0, services.AuditPasswordReset, "user", 0, c.ClientIP(), map[string]interface{}{
		"email": req.Email,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}
