package services

import (
	"time"

	"citygate/internal/models"
	"citygate/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(name, email, password, phoneNumber, tenantID string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	UpdatePassword(userID uint, newPassword string) error
}

// SessionInfo is the read-only projection of an active session
// returned to clients.
type SessionInfo struct {
	IP         string    `json:"ip"`
	Device     string    `json:"device"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// AuthServicer defines the contract for the authentication orchestrator:
// signup, the login state machine, the lock/whitelist guard transitions,
// and server-side session bookkeeping. Token signing itself lives in the
// middleware package; handlers glue the two together.
type AuthServicer interface {
	Signup(name, email, password, phoneNumber, tenantID, sourceIP string) (*models.User, error)
	Login(email, password, mfaToken, sourceIP string) (*models.User, error)
	ValidateAfterMfaChallenge(userID uint, sourceIP string) error

	CreateSession(userID uint, sessionID, tokenHash, ip, userAgent string, expiresAt time.Time) error
	GetSessionByID(sessionID string) (*models.Session, error)
	DeleteSession(sessionID string) error
	RevokeUserSessions(userID uint) error
	GetSessions(userID uint, page pagination.PageRequest) (*pagination.PageResponse[SessionInfo], error)
}

// MfaServicer defines the contract for TOTP enrollment management.
type MfaServicer interface {
	Activate(userID uint) ([]byte, error)
	Deactivate(userID uint) error
	VerifyCode(userID uint, code string) error
}

// OTPSender delivers a password-recovery code to a user out-of-band.
// The delivery channel (SMS, email) is an external collaborator.
type OTPSender interface {
	SendOTP(email, code string) error
}

// PasswordResetServicer defines the contract for OTP-based password recovery.
type PasswordResetServicer interface {
	RequestReset(email string) error
	VerifyCode(email, code string) error
	ResetPassword(email, code, newPassword string) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
