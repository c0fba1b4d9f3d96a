package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"citygate/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plaintext password used by every user fixture.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Name:     fmt.Sprintf("Test User %d", nextID()),
		Email:    email,
		Password: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestLoginDetails seeds a login details row whitelisting the given IPs.
func CreateTestLoginDetails(t *testing.T, db *gorm.DB, userID uint, ips ...string) *models.LoginDetails {
	t.Helper()

	details := &models.LoginDetails{
		UserID:         userID,
		WhitelistedIPs: models.EncodeIPs(ips),
	}
	if err := db.Create(details).Error; err != nil {
		t.Fatalf("failed to create test login details: %v", err)
	}
	return details
}

// CreateTestEnrollment stores an MFA enrollment with the given secret.
func CreateTestEnrollment(t *testing.T, db *gorm.DB, userID uint, secret string) *models.MfaEnrollment {
	t.Helper()

	enrollment := &models.MfaEnrollment{
		UserID: userID,
		Secret: secret,
		Image:  []byte("png-placeholder"),
	}
	if err := db.Create(enrollment).Error; err != nil {
		t.Fatalf("failed to create test enrollment: %v", err)
	}
	return enrollment
}

// CreateTestSession stores an unexpired session for the user.
func CreateTestSession(t *testing.T, db *gorm.DB, userID uint, sessionID, tokenHash string) *models.Session {
	t.Helper()

	session := &models.Session{
		SessionID: sessionID,
		UserID:    userID,
		TokenHash: tokenHash,
		UserAgent: "Test Agent",
		IPAddress: "1.1.1.1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := db.Create(session).Error; err != nil {
		t.Fatalf("failed to create test session: %v", err)
	}
	return session
}
