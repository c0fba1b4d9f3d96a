package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"citygate/internal/config"
	apperrors "citygate/internal/errors"
	"citygate/internal/middleware"
	"citygate/internal/models"
	"citygate/internal/pagination"
	"citygate/internal/services"
)

// AuthHandler handles signup, login, token refresh, logout and session
// listing.
type AuthHandler struct {
	authService  services.AuthServicer
	auditService services.AuditServicer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService services.AuthServicer, auditService services.AuditServicer) *AuthHandler {
	return &AuthHandler{authService: authService, auditService: auditService}
}

// SignupRequest represents the signup request payload
type SignupRequest struct {
	Name                    string `json:"name" binding:"required,max=100"`
	Email                   string `json:"email" binding:"required,email,max=255"`
	Password                string `json:"password" binding:"required,min=8,max=128"`
	ConfirmPassword         string `json:"confirmPassword" binding:"required,eqfield=Password"`
	PhoneNumber             string `json:"phoneNumber" binding:"omitempty,phone"`
	IsOrganizationCreator   bool   `json:"isOrganizationCreator"`
	OrganizationName        string `json:"organizationName" binding:"required,max=255"`
	OrganizationDescription string `json:"organizationDescription" binding:"max=1024"`
	TenantID                string `json:"tenantId" binding:"max=64"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	MfaToken string `json:"mfaToken" binding:"omitempty,mfa_code"`
}

// RefreshRequest carries the refresh token to exchange.
type RefreshRequest struct {
	Token string `json:"token" binding:"required"`
}

// UserResponse represents the user data in the response
type UserResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse represents the authentication response with a token pair
type AuthResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         UserResponse `json:"user"`
}

// issueTokenPair mints an access/refresh pair bound to a fresh session
// and persists the session record. Only the refresh token's digest is
// stored server-side.
func (h *AuthHandler) issueTokenPair(c *gin.Context, user *models.User) (*AuthResponse, error) {
	sessionID := uuid.New().String()

	accessToken, err := middleware.GenerateAccessToken(user, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	refreshToken, err := middleware.GenerateRefreshToken(user, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	expiresAt := time.Now().Add(config.Get().RefreshTokenDur)
	err = h.authService.CreateSession(user.ID, sessionID, middleware.HashToken(refreshToken),
		c.ClientIP(), c.Request.UserAgent(), expiresAt)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         UserResponse{ID: user.ID, Name: user.Name, Email: user.Email},
	}, nil
}

// Signup handles user registration
// @Summary     Register a new user
// @Description Create an account and log it in, returning a token pair
// @Tags        localauth
// @Accept      json
// @Produce     json
// @Param       request body SignupRequest true "User signup data"
// @Success     201 {object} AuthResponse "User registered and logged in"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Duplicate email"
// @Router      /localauth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.authService.Signup(req.Name, req.Email, req.Password, req.PhoneNumber, req.TenantID, c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}

	// Signup logs the fresh account in with the same credentials so the
	// client gets its token pair in one round trip.
	user, err = h.authService.Login(req.Email, req.Password, "", c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp, err := h.issueTokenPair(c, user)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(user.ID, services.AuditSignup, "user", user.ID, c.ClientIP(), map[string]interface{}{
		"organization_name":       req.OrganizationName,
		"is_organization_creator": req.IsOrganizationCreator,
		"tenant_id":               req.TenantID,
	})

	c.JSON(http.StatusCreated, resp)
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate with email, password and optional MFA token
// @Tags        localauth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} AuthResponse "User authenticated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials or MFA token"
// @Failure     403 {object} ErrorResponse "New IP requires MFA"
// @Failure     423 {object} ErrorResponse "Account locked"
// @Router      /localauth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.authService.Login(req.Email, req.Password, req.MfaToken, c.ClientIP())
	if err != nil {
		h.auditService.Log(0, services.AuditLoginFailure, "user", 0, c.ClientIP(), map[string]interface{}{
			"email": req.Email,
		})
		respondWithError(c, err)
		return
	}

	resp, err := h.issueTokenPair(c, user)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(user.ID, services.AuditLoginSuccess, "user", user.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, resp)
}

// RefreshToken exchanges a refresh token for a new access token
// @Summary     Refresh access token
// @Description Verify a refresh token and mint a new access token
// @Tags        localauth
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body RefreshRequest true "Refresh token"
// @Success     200 {object} map[string]string "New access token"
// @Failure     401 {object} ErrorResponse "Invalid refresh token"
// @Router      /localauth/refreshToken [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	claims, err := middleware.ValidateRefreshToken(req.Token)
	if err != nil {
		respondWithError(c, apperrors.ErrInvalidRefreshToken)
		return
	}

	session, err := h.authService.GetSessionByID(claims.SessionID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if !services.VerifySessionToken(session, middleware.HashToken(req.Token)) {
		respondWithError(c, apperrors.ErrInvalidRefreshToken)
		return
	}

	accessToken, err := middleware.GenerateAccessToken(&models.User{
		Base:  models.Base{ID: claims.UserID},
		Email: claims.Email,
	}, claims.SessionID)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	h.auditService.Log(claims.UserID, services.AuditTokenRefresh, "session", session.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

// Logout revokes the current session
// @Summary     Logout
// @Description Revoke the current session's tokens server-side
// @Tags        localauth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]string
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /localauth/logout [get]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	sessionID, err := getSessionID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// Idempotent: logging out an already-revoked session succeeds.
	if err := h.authService.DeleteSession(sessionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditLogout, "session", 0, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// GetSessions lists the caller's active sessions
// @Summary     List active sessions
// @Description Paginated projection of the caller's active sessions
// @Tags        localauth
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[services.SessionInfo]
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /localauth/getSessions [get]
func (h *AuthHandler) GetSessions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	sessions, err := h.authService.GetSessions(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}
