package models

// AuditLog records a security-relevant event: logins, lockouts, MFA
// changes, password resets.
type AuditLog struct {
	Base
	UserID       uint   `gorm:"index" json:"user_id"`
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `json:"resource_type"`
	ResourceID   uint   `json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `gorm:"type:text" json:"changes"`
}
