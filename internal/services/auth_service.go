package services

import (
	"crypto/subtle"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "citygate/internal/errors"
	"citygate/internal/logger"
	"citygate/internal/models"
	"citygate/internal/pagination"
)

// authService coordinates the credential store, the password hasher, the
// TOTP engine and the lock/whitelist guard into the signup and login
// flows, and owns server-side session records.
type authService struct {
	db    *gorm.DB
	users UserServicer
	mfa   MfaServicer
}

// NewAuthService creates a new AuthServicer.
func NewAuthService(db *gorm.DB, users UserServicer, mfa MfaServicer) AuthServicer {
	return &authService{db: db, users: users, mfa: mfa}
}

// Signup creates the user together with its login details row, seeding
// the IP whitelist with the registering client's address. Callers are
// expected to follow up with Login using the same credentials so signup
// returns a token pair in one round trip.
func (s *authService) Signup(name, email, password, phoneNumber, tenantID, sourceIP string) (*models.User, error) {
	user, err := s.users.CreateUser(name, email, password, phoneNumber, tenantID)
	if err != nil {
		return nil, err
	}

	details := &models.LoginDetails{
		UserID:         user.ID,
		WhitelistedIPs: models.EncodeIPs([]string{sourceIP}),
		FailedAttempts: 0,
	}
	if err := s.db.Create(details).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// dummyPasswordHash is compared against when the email is unknown so
// both failure modes cost one bcrypt verification. The result is
// discarded.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Login runs the per-attempt state machine:
//
//  1. user lookup — unknown email fails exactly like a wrong password,
//     including a burned hash compare so the latency matches
//  2. lock gate — a locked account is rejected unless this very request
//     carries a valid TOTP code
//  3. password verification — no guard transition runs before this
//  4. unlock+whitelist transition for a locked account that proved MFA
//  5. IP gate — an unrecognized source IP without an MFA proof locks
//     the account and fails, even when the account wanted a code anyway
//  6. MFA gate for MFA-enabled accounts
//  7. a proven MFA code whitelists the new IP inline
//
// The IP and MFA gates are deliberately independent but a single MFA
// proof satisfies both.
func (s *authService) Login(email, password, mfaToken, sourceIP string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			s.users.VerifyPassword(&models.User{Password: dummyPasswordHash}, password)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	mfaProven := false
	if mfaToken != "" {
		if err := s.mfa.VerifyCode(user.ID, mfaToken); err == nil {
			mfaProven = true
		} else if user.IsMfaEnabled {
			// An MFA-enabled account never proceeds past a bad code.
			return nil, err
		}
	}

	if user.IsLocked && !mfaProven {
		return nil, apperrors.ErrAccountLocked
	}

	if !s.users.VerifyPassword(user, password) {
		s.recordFailedAttempt(user.ID, sourceIP)
		return nil, apperrors.ErrInvalidCredentials
	}

	// Unlock only after full authentication; a valid code with a wrong
	// password must leave the lock and the whitelist untouched.
	if user.IsLocked {
		if err := s.ValidateAfterMfaChallenge(user.ID, sourceIP); err != nil {
			return nil, err
		}
		user.IsLocked = false
	}

	details, err := s.loginDetails(user.ID)
	if err != nil {
		return nil, err
	}

	if !details.HasIP(sourceIP) && !mfaProven {
		s.lockForChallenge(user.ID, sourceIP)
		return nil, apperrors.ErrNewIPRequiresMfa
	}

	if user.IsMfaEnabled && mfaToken == "" {
		return nil, apperrors.ErrMfaRequired
	}

	if !details.HasIP(sourceIP) {
		if err := s.whitelistIP(details, sourceIP); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	if err := s.db.Model(details).Updates(map[string]interface{}{
		"last_login_at":   now,
		"failed_attempts": 0,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// ValidateAfterMfaChallenge is the unlock+whitelist guard transition:
// it appends sourceIP to the whitelist if absent and clears the locked
// flag. It must only be called after a successful MFA verification.
func (s *authService) ValidateAfterMfaChallenge(userID uint, sourceIP string) error {
	details, err := s.loginDetails(userID)
	if err != nil {
		return err
	}
	if err := s.whitelistIP(details, sourceIP); err != nil {
		return err
	}
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).Update("is_locked", false).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// lockForChallenge is the lock+challenge guard transition, taken when a
// password-only login arrives from an unrecognized IP.
func (s *authService) lockForChallenge(userID uint, sourceIP string) {
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).Update("is_locked", true).Error; err != nil {
		logger.Named("auth").Errorw("failed to lock account", "error", err, "user_id", userID)
	}
	s.recordFailedAttempt(userID, sourceIP)
}

// recordFailedAttempt bumps the failure counter and remembers the
// offending IP and time. Failures here are logged, not propagated; the
// caller is already returning an auth error.
func (s *authService) recordFailedAttempt(userID uint, sourceIP string) {
	now := time.Now()
	err := s.db.Model(&models.LoginDetails{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"failed_attempts": gorm.Expr("failed_attempts + 1"),
		"last_failed_ip":  sourceIP,
		"last_failed_at":  now,
	}).Error
	if err != nil {
		logger.Named("auth").Errorw("failed to record login failure", "error", err, "user_id", userID)
	}
}

// whitelistIP appends sourceIP to the stored whitelist if absent. The
// append is idempotent; concurrent appends are last-writer-wins, which
// the design tolerates for same-account logins.
func (s *authService) whitelistIP(details *models.LoginDetails, sourceIP string) error {
	if !details.AppendIP(sourceIP) {
		return nil
	}
	err := s.db.Model(&models.LoginDetails{}).Where("user_id = ?", details.UserID).
		Update("whitelisted_ips", details.WhitelistedIPs).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *authService) loginDetails(userID uint) (*models.LoginDetails, error) {
	var details models.LoginDetails
	if err := s.db.Where("user_id = ?", userID).First(&details).Error; err != nil {
		// Every signed-up user has a login details row; absence is an
		// inconsistency, not a client error.
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &details, nil
}

// CreateSession persists a new session record bound to a refresh token hash.
func (s *authService) CreateSession(userID uint, sessionID, tokenHash, ip, userAgent string, expiresAt time.Time) error {
	session := &models.Session{
		SessionID: sessionID,
		UserID:    userID,
		TokenHash: tokenHash,
		UserAgent: userAgent,
		IPAddress: ip,
		ExpiresAt: expiresAt,
	}
	if err := s.db.Create(session).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetSessionByID loads an unexpired session. A missing or expired row
// fails with InvalidRefreshToken since absence means revocation.
func (s *authService) GetSessionByID(sessionID string) (*models.Session, error) {
	var session models.Session
	err := s.db.Where("session_id = ? AND expires_at > ?", sessionID, time.Now()).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &session, nil
}

// VerifySessionToken checks the presented refresh token hash against the
// stored one in constant time.
func VerifySessionToken(session *models.Session, tokenHash string) bool {
	return subtle.ConstantTimeCompare([]byte(session.TokenHash), []byte(tokenHash)) == 1
}

// DeleteSession revokes a single session. Deleting an already-revoked
// session is not an error; logout is idempotent.
func (s *authService) DeleteSession(sessionID string) error {
	if err := s.db.Where("session_id = ?", sessionID).Delete(&models.Session{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RevokeUserSessions deletes every session for the user, e.g. after a
// password reset.
func (s *authService) RevokeUserSessions(userID uint) error {
	if err := s.db.Where("user_id = ?", userID).Delete(&models.Session{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetSessions returns the active sessions for a user, newest first.
func (s *authService) GetSessions(userID uint, page pagination.PageRequest) (*pagination.PageResponse[SessionInfo], error) {
	page.Defaults()

	query := s.db.Model(&models.Session{}).Where("user_id = ? AND expires_at > ?", userID, time.Now())

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var sessions []models.Session
	err := query.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&sessions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, SessionInfo{
			IP:         sess.IPAddress,
			Device:     sess.UserAgent,
			LoggedInAt: sess.CreatedAt,
		})
	}

	resp := pagination.NewPageResponse(infos, page.Page, page.PageSize, total)
	return &resp, nil
}
