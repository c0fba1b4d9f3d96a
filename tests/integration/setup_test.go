package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"citygate/internal/handlers"
	"citygate/internal/logger"
	"citygate/internal/middleware"
	"citygate/internal/models"
	"citygate/internal/services"
	"citygate/internal/totp"
	"citygate/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Sender *captureSender
}

// captureSender records recovery codes instead of delivering them.
type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (c *captureSender) SendOTP(email, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[email] = code
	return nil
}

func (c *captureSender) codeFor(t *testing.T, email string) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	code, ok := c.codes[email]
	if !ok {
		t.Fatalf("no recovery code was issued for %s", email)
	}
	return code
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:integdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.LoginDetails{},
		&models.MfaEnrollment{},
		&models.Session{},
		&models.PasswordReset{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	sender := &captureSender{codes: map[string]string{}}

	// Services
	userService := services.NewUserService(db)
	totpEngine := totp.NewEngine("CityGate Test")
	mfaService := services.NewMfaService(db, totpEngine, userService)
	authService := services.NewAuthService(db, userService, mfaService)
	resetService := services.NewPasswordResetService(db, userService, authService, sender)
	auditService := services.NewAuditService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, auditService)
	mfaHandler := handlers.NewMfaHandler(mfaService, auditService)
	passwordHandler := handlers.NewPasswordHandler(resetService, auditService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	localauth := router.Group("/localauth")
	localauth.POST("/signup", authHandler.Signup)
	localauth.POST("/login", authHandler.Login)
	localauth.POST("/forgot-password", passwordHandler.ForgotPassword)
	localauth.POST("/verify-otp", passwordHandler.VerifyOtp)
	localauth.POST("/reset-password", passwordHandler.ResetPassword)

	protected := localauth.Group("")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/getSessions", authHandler.GetSessions)
	protected.POST("/refreshToken", authHandler.RefreshToken)
	protected.POST("/activateMFA", mfaHandler.ActivateMFA)
	protected.POST("/deactivateMFA", mfaHandler.DeactivateMFA)
	protected.GET("/logout", authHandler.Logout)

	return &testApp{DB: db, Router: router, Sender: sender}
}

// requestFrom makes an HTTP request appearing to come from the given client IP.
func (app *testApp) requestFrom(ip, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = ip + ":51234"
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "integration-test")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// request makes an HTTP request from the default client IP.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	return app.requestFrom("1.1.1.1", method, path, body, token)
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// errorCode extracts the error code from an error response.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	result := parseJSON(t, rec)
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got: %s", rec.Body.String())
	}
	return errObj["code"].(string)
}

// signupUser registers a user from the given IP and returns the token pair.
func (app *testApp) signupUser(t *testing.T, ip, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{
		"name": "Test User",
		"email": %q,
		"password": %q,
		"confirmPassword": %q,
		"organizationName": "Transport Authority",
		"tenantId": "tenant-1"
	}`, email, password, password)
	rec := app.requestFrom(ip, "POST", "/localauth/signup", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["accessToken"].(string), result["refreshToken"].(string)
}

// loginUser logs in from the given IP and returns the token pair.
func (app *testApp) loginUser(t *testing.T, ip, email, password, mfaToken string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q`, email, password)
	if mfaToken != "" {
		body += fmt.Sprintf(`,"mfaToken":%q`, mfaToken)
	}
	body += "}"
	rec := app.requestFrom(ip, "POST", "/localauth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["accessToken"].(string), result["refreshToken"].(string)
}
