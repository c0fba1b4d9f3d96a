package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "citygate/internal/errors"
	"citygate/internal/models"
	"citygate/internal/totp"
)

// mfaService manages TOTP enrollments.
type mfaService struct {
	db     *gorm.DB
	engine *totp.Engine
	users  UserServicer
}

// NewMfaService creates a new MfaServicer.
func NewMfaService(db *gorm.DB, engine *totp.Engine, users UserServicer) MfaServicer {
	return &mfaService{db: db, engine: engine, users: users}
}

// Activate returns the user's enrollment QR image, generating and
// persisting a secret on first call. Repeat calls return the stored
// image unchanged, so re-scanning is always safe. Activation also flips
// the user's MFA flag on.
func (s *mfaService) Activate(userID uint) ([]byte, error) {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.enrollment(userID)
	if err == nil {
		if !user.IsMfaEnabled {
			if err := s.setMfaEnabled(userID, true); err != nil {
				return nil, err
			}
		}
		return enrollment.Image, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	secret, image, err := s.engine.GenerateSecret(user.Email)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	enrollment = &models.MfaEnrollment{
		UserID: userID,
		Secret: secret,
		Image:  image,
	}
	if err := s.db.Create(enrollment).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.setMfaEnabled(userID, true); err != nil {
		return nil, err
	}

	return enrollment.Image, nil
}

// Deactivate turns the MFA flag off. The enrollment row is kept so a
// later re-activation restores the same secret.
func (s *mfaService) Deactivate(userID uint) error {
	return s.setMfaEnabled(userID, false)
}

// VerifyCode validates a 6-digit TOTP code against the user's enrolled
// secret, tolerating the engine's standard clock-skew window.
func (s *mfaService) VerifyCode(userID uint, code string) error {
	enrollment, err := s.enrollment(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrMfaNotConfigured
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !s.engine.Verify(enrollment.Secret, code) {
		return apperrors.ErrInvalidMfaToken
	}
	return nil
}

func (s *mfaService) enrollment(userID uint) (*models.MfaEnrollment, error) {
	var enrollment models.MfaEnrollment
	if err := s.db.Where("user_id = ?", userID).First(&enrollment).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (s *mfaService) setMfaEnabled(userID uint, enabled bool) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("is_mfa_enabled", enabled)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
