package integration

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"citygate/internal/models"
)

func (app *testApp) currentMfaCode(t *testing.T, email string) string {
	t.Helper()

	var user models.User
	if err := app.DB.Where("email = ?", email).First(&user).Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	var enrollment models.MfaEnrollment
	if err := app.DB.Where("user_id = ?", user.ID).First(&enrollment).Error; err != nil {
		t.Fatalf("failed to load enrollment: %v", err)
	}
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	if err != nil {
		t.Fatalf("failed to generate TOTP code: %v", err)
	}
	return code
}

func TestMfaEnrollment(t *testing.T) {
	app := setupApp(t)
	access, _ := app.signupUser(t, "1.1.1.1", "ada@example.com", "Secret1!pw")

	var firstImage []byte

	t.Run("activation returns a PNG QR code", func(t *testing.T) {
		rec := app.request("POST", "/localauth/activateMFA", "", access)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("expected image/png, got %s", ct)
		}
		firstImage = rec.Body.Bytes()
		if !bytes.HasPrefix(firstImage, []byte{0x89, 'P', 'N', 'G'}) {
			t.Error("response is not a PNG image")
		}
	})

	t.Run("repeat activation returns the identical image", func(t *testing.T) {
		rec := app.request("POST", "/localauth/activateMFA", "", access)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !bytes.Equal(rec.Body.Bytes(), firstImage) {
			t.Error("expected repeat activation to return the stored image unchanged")
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		if rec := app.request("POST", "/localauth/activateMFA", "", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestMfaLogin(t *testing.T) {
	app := setupApp(t)
	access, _ := app.signupUser(t, "1.1.1.1", "ada@example.com", "Secret1!pw")

	if rec := app.request("POST", "/localauth/activateMFA", "", access); rec.Code != http.StatusOK {
		t.Fatalf("activation failed: %d %s", rec.Code, rec.Body.String())
	}

	t.Run("login without a code is rejected", func(t *testing.T) {
		rec := app.request("POST", "/localauth/login",
			`{"email":"ada@example.com","password":"Secret1!pw"}`, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
		}
		if code := errorCode(t, rec); code != "MFA_REQUIRED" {
			t.Errorf("expected MFA_REQUIRED, got %s", code)
		}
	})

	t.Run("login with a wrong code is rejected", func(t *testing.T) {
		rec := app.request("POST", "/localauth/login",
			`{"email":"ada@example.com","password":"Secret1!pw","mfaToken":"000000"}`, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
		}
		if code := errorCode(t, rec); code != "INVALID_MFA_TOKEN" {
			t.Errorf("expected INVALID_MFA_TOKEN, got %s", code)
		}
	})

	t.Run("login with a valid code succeeds", func(t *testing.T) {
		code := app.currentMfaCode(t, "ada@example.com")
		app.loginUser(t, "1.1.1.1", "ada@example.com", "Secret1!pw", code)
	})

	t.Run("a valid code satisfies the new-IP guard inline", func(t *testing.T) {
		code := app.currentMfaCode(t, "ada@example.com")
		app.loginUser(t, "9.9.9.9", "ada@example.com", "Secret1!pw", code)

		// 9.9.9.9 was whitelisted by the proven attempt.
		code = app.currentMfaCode(t, "ada@example.com")
		app.loginUser(t, "9.9.9.9", "ada@example.com", "Secret1!pw", code)
	})

	t.Run("deactivation lifts the MFA requirement", func(t *testing.T) {
		if rec := app.request("POST", "/localauth/deactivateMFA", "", access); rec.Code != http.StatusOK {
			t.Fatalf("deactivation failed: %d %s", rec.Code, rec.Body.String())
		}
		app.loginUser(t, "1.1.1.1", "ada@example.com", "Secret1!pw", "")
	})
}

func TestMfaUnlocksLockedAccount(t *testing.T) {
	app := setupApp(t)
	access, _ := app.signupUser(t, "1.1.1.1", "ada@example.com", "Secret1!pw")

	if rec := app.request("POST", "/localauth/activateMFA", "", access); rec.Code != http.StatusOK {
		t.Fatalf("activation failed: %d %s", rec.Code, rec.Body.String())
	}

	// Lock the account with a password-only attempt from a new IP.
	rec := app.requestFrom("2.2.2.2", "POST", "/localauth/login",
		`{"email":"ada@example.com","password":"Secret1!pw"}`, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}

	// A single MFA-proven login unlocks the account and whitelists the IP.
	code := app.currentMfaCode(t, "ada@example.com")
	app.loginUser(t, "2.2.2.2", "ada@example.com", "Secret1!pw", code)

	var user models.User
	if err := app.DB.Where("email = ?", "ada@example.com").First(&user).Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	if user.IsLocked {
		t.Error("expected account unlocked after MFA-proven login")
	}
}
