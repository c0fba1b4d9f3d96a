// Package totp wraps TOTP secret generation and code validation for
// authenticator-app MFA enrollment.
package totp

import (
	"bytes"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const qrSize = 200

// Engine generates enrollment secrets and validates 6-digit codes.
type Engine struct {
	issuer string
	// skew is the number of 30-second steps of clock drift tolerated
	// on either side of the current step.
	skew uint
}

// NewEngine creates an Engine that labels enrollments with the given
// issuer and tolerates one step of clock drift.
func NewEngine(issuer string) *Engine {
	return &Engine{issuer: issuer, skew: 1}
}

// GenerateSecret produces a fresh TOTP secret for the given account
// label together with a PNG QR image scannable by authenticator apps.
func (e *Engine) GenerateSecret(accountLabel string) (secret string, image []byte, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: accountLabel,
	})
	if err != nil {
		return "", nil, err
	}

	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", nil, err
	}

	return key.Secret(), buf.Bytes(), nil
}

// Verify reports whether code is a valid TOTP code for secret within
// the engine's skew window.
func (e *Engine) Verify(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      e.skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
