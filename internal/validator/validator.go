// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	mfaCodeRegex = regexp.MustCompile(`^[0-9]{6}$`)
	phoneRegex   = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("mfa_code", validateMfaCode)
		_ = v.RegisterValidation("phone", validatePhone)
	}
}

// validateMfaCode accepts exactly six digits, the standard TOTP length.
func validateMfaCode(fl validator.FieldLevel) bool {
	return mfaCodeRegex.MatchString(fl.Field().String())
}

// validatePhone accepts loose E.164: optional +, 7 to 15 digits.
func validatePhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}
