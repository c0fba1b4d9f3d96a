package models

// User represents a dashboard operator account.
type User struct {
	Base
	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Password     string `gorm:"not null" json:"-"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	TenantID     string `gorm:"index" json:"tenant_id,omitempty"`
	IsMfaEnabled bool   `gorm:"default:false" json:"is_mfa_enabled"`
	IsLocked     bool   `gorm:"default:false" json:"-"`

	LoginDetails *LoginDetails  `gorm:"foreignKey:UserID" json:"-"`
	Enrollment   *MfaEnrollment `gorm:"foreignKey:UserID" json:"-"`
	Sessions     []Session      `gorm:"foreignKey:UserID" json:"-"`
}
