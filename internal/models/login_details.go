package models

import (
	"encoding/json"
	"time"
)

// LoginDetails tracks per-user login history and the set of source IPs
// approved for password-only login. One row per user, created at signup.
type LoginDetails struct {
	Base
	UserID         uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	WhitelistedIPs string     `gorm:"not null;default:'[]'" json:"-"`
	FailedAttempts int        `gorm:"default:0" json:"-"`
	LastFailedIP   string     `json:"-"`
	LastFailedAt   *time.Time `json:"-"`
}

// IPs decodes the whitelisted IP set. A corrupt or empty column decodes
// to an empty slice rather than an error; the column is regenerated on
// the next append.
func (d *LoginDetails) IPs() []string {
	var ips []string
	if err := json.Unmarshal([]byte(d.WhitelistedIPs), &ips); err != nil {
		return []string{}
	}
	return ips
}

// HasIP reports whether ip is already whitelisted.
func (d *LoginDetails) HasIP(ip string) bool {
	for _, known := range d.IPs() {
		if known == ip {
			return true
		}
	}
	return false
}

// AppendIP adds ip to the whitelist, preserving order and skipping
// duplicates. Returns true if the set changed.
func (d *LoginDetails) AppendIP(ip string) bool {
	if d.HasIP(ip) {
		return false
	}
	encoded, err := json.Marshal(append(d.IPs(), ip))
	if err != nil {
		return false
	}
	d.WhitelistedIPs = string(encoded)
	return true
}

// EncodeIPs serializes a whitelist for storage. Used when seeding the
// row at signup.
func EncodeIPs(ips []string) string {
	encoded, err := json.Marshal(ips)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}
