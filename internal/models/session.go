package models

import "time"

// Session is one refresh-token-backed login session. The refresh token
// itself is never stored; TokenHash holds its SHA-256 hex digest.
// Deleting the row revokes the session.
type Session struct {
	Base
	SessionID string    `gorm:"uniqueIndex;not null" json:"session_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	TokenHash string    `gorm:"size:64;not null" json:"-"`
	UserAgent string    `json:"user_agent"` // identifies the device, e.g. "Chrome on Windows"
	IPAddress string    `json:"ip_address"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}
