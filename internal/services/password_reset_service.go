package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"

	apperrors "citygate/internal/errors"
	"citygate/internal/logger"
	"citygate/internal/models"
)

const resetCodeTTL = 15 * time.Minute

// passwordResetService implements OTP-based password recovery. Codes are
// delivered through an injected OTPSender; only their digests are stored.
type passwordResetService struct {
	db     *gorm.DB
	users  UserServicer
	auth   AuthServicer
	sender OTPSender
}

// NewPasswordResetService creates a new PasswordResetServicer.
func NewPasswordResetService(db *gorm.DB, users UserServicer, auth AuthServicer, sender OTPSender) PasswordResetServicer {
	return &passwordResetService{db: db, users: users, auth: auth, sender: sender}
}

// RequestReset generates a 6-digit code for the account and hands it to
// the delivery channel. Unknown emails succeed silently so the endpoint
// cannot be used to enumerate accounts.
func (s *passwordResetService) RequestReset(email string) error {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			logger.Named("reset").Infow("reset requested for unknown email")
			return nil
		}
		return err
	}

	code, err := generateResetCode()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// A new request supersedes any pending one.
	if err := s.db.Where("user_id = ?", user.ID).Delete(&models.PasswordReset{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	reset := &models.PasswordReset{
		UserID:    user.ID,
		CodeHash:  hashResetCode(code),
		ExpiresAt: time.Now().Add(resetCodeTTL),
	}
	if err := s.db.Create(reset).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.sender.SendOTP(user.Email, code); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// VerifyCode marks the pending reset verified when the code matches.
func (s *passwordResetService) VerifyCode(email, code string) error {
	reset, err := s.pendingReset(email, code)
	if err != nil {
		return err
	}
	if err := s.db.Model(reset).Update("verified", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ResetPassword replaces the password for a verified, unexpired reset,
// consumes the record, and revokes every session of the user.
func (s *passwordResetService) ResetPassword(email, code, newPassword string) error {
	reset, err := s.pendingReset(email, code)
	if err != nil {
		return err
	}
	if !reset.Verified {
		return apperrors.ErrInvalidResetCode
	}

	if err := s.users.UpdatePassword(reset.UserID, newPassword); err != nil {
		return err
	}
	if err := s.db.Delete(reset).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.auth.RevokeUserSessions(reset.UserID)
}

// pendingReset loads the user's unexpired reset record and checks the
// code digest in constant time. Any failure collapses to the same
// client-visible error.
func (s *passwordResetService) pendingReset(email, code string) (*models.PasswordReset, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidResetCode
		}
		return nil, err
	}

	var reset models.PasswordReset
	err = s.db.Where("user_id = ? AND expires_at > ?", user.ID, time.Now()).First(&reset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidResetCode
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	presented := hashResetCode(code)
	if subtle.ConstantTimeCompare([]byte(reset.CodeHash), []byte(presented)) != 1 {
		return nil, apperrors.ErrInvalidResetCode
	}
	return &reset, nil
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashResetCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// logOTPSender is the default delivery channel: it records that a code
// was issued without ever logging the code itself. Real deployments
// inject an SMS or email sender.
type logOTPSender struct{}

// NewLogOTPSender returns an OTPSender that only writes an audit line.
func NewLogOTPSender() OTPSender {
	return &logOTPSender{}
}

func (l *logOTPSender) SendOTP(email, _ string) error {
	logger.Named("reset").Infow("password reset code issued", "email", email)
	return nil
}
