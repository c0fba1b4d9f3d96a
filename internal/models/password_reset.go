package models

import "time"

// PasswordReset is a pending OTP-based password recovery attempt. The
// code is delivered out-of-band; only its SHA-256 hex digest is stored.
type PasswordReset struct {
	Base
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	CodeHash  string    `gorm:"size:64;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	Verified  bool      `gorm:"default:false" json:"verified"`
}
