package models

// MfaEnrollment holds a user's TOTP secret and the rendered enrollment
// QR image. Created lazily on first activation and never regenerated,
// so repeat activation calls return byte-identical images.
type MfaEnrollment struct {
	Base
	UserID uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	Secret string `gorm:"not null" json:"-"`
	Image  []byte `gorm:"not null" json:"-"`
}
