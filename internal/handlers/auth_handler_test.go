package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "citygate/internal/errors"
	"citygate/internal/middleware"
	"citygate/internal/models"
	"citygate/internal/pagination"
	"citygate/internal/services"
	"citygate/internal/validator"
)

// --- mock auth service ---

type mockAuthService struct {
	signupFn             func(name, email, password, phoneNumber, tenantID, sourceIP string) (*models.User, error)
	loginFn              func(email, password, mfaToken, sourceIP string) (*models.User, error)
	validateAfterMfaFn   func(userID uint, sourceIP string) error
	createSessionFn      func(userID uint, sessionID, tokenHash, ip, userAgent string, expiresAt time.Time) error
	getSessionByIDFn     func(sessionID string) (*models.Session, error)
	deleteSessionFn      func(sessionID string) error
	revokeUserSessionsFn func(userID uint) error
	getSessionsFn        func(userID uint, page pagination.PageRequest) (*pagination.PageResponse[services.SessionInfo], error)
}

func (m *mockAuthService) Signup(name, email, password, phoneNumber, tenantID, sourceIP string) (*models.User, error) {
	if m.signupFn != nil {
		return m.signupFn(name, email, password, phoneNumber, tenantID, sourceIP)
	}
	return &models.User{Name: name, Email: email}, nil
}

func (m *mockAuthService) Login(email, password, mfaToken, sourceIP string) (*models.User, error) {
	if m.loginFn != nil {
		return m.loginFn(email, password, mfaToken, sourceIP)
	}
	return &models.User{Email: email}, nil
}

func (m *mockAuthService) ValidateAfterMfaChallenge(userID uint, sourceIP string) error {
	if m.validateAfterMfaFn != nil {
		return m.validateAfterMfaFn(userID, sourceIP)
	}
	return nil
}

func (m *mockAuthService) CreateSession(userID uint, sessionID, tokenHash, ip, userAgent string, expiresAt time.Time) error {
	if m.createSessionFn != nil {
		return m.createSessionFn(userID, sessionID, tokenHash, ip, userAgent, expiresAt)
	}
	return nil
}

func (m *mockAuthService) GetSessionByID(sessionID string) (*models.Session, error) {
	if m.getSessionByIDFn != nil {
		return m.getSessionByIDFn(sessionID)
	}
	return &models.Session{SessionID: sessionID}, nil
}

func (m *mockAuthService) DeleteSession(sessionID string) error {
	if m.deleteSessionFn != nil {
		return m.deleteSessionFn(sessionID)
	}
	return nil
}

func (m *mockAuthService) RevokeUserSessions(userID uint) error {
	if m.revokeUserSessionsFn != nil {
		return m.revokeUserSessionsFn(userID)
	}
	return nil
}

func (m *mockAuthService) GetSessions(userID uint, page pagination.PageRequest) (*pagination.PageResponse[services.SessionInfo], error) {
	if m.getSessionsFn != nil {
		return m.getSessionsFn(userID, page)
	}
	resp := pagination.NewPageResponse([]services.SessionInfo{}, 1, 25, 0)
	return &resp, nil
}

// verify interface compliance
var _ services.AuthServicer = (*mockAuthService)(nil)

type mockAuditService struct{}

func (m *mockAuditService) Log(_ uint, _, _ string, _ uint, _ string, _ map[string]interface{}) {}

var _ services.AuditServicer = (*mockAuditService)(nil)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectIdentity(uid uint, sessionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Set("sessionID", sessionID)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, code string) {
	t.Helper()
	result := parseJSON(t, rec)
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got: %s", rec.Body.String())
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %s, got %v", code, errObj["code"])
	}
}

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	r := gin.New()
	r.POST("/localauth/signup", handler.Signup)
	r.POST("/localauth/login", handler.Login)
	r.POST("/localauth/refreshToken", handler.RefreshToken)
	auth := r.Group("", injectIdentity(1, "sess-1"))
	auth.GET("/localauth/logout", handler.Logout)
	auth.GET("/localauth/getSessions", handler.GetSessions)
	return r
}

const signupBody = `{
	"name": "Ada",
	"email": "ada@example.com",
	"password": "Secret1!pw",
	"confirmPassword": "Secret1!pw",
	"organizationName": "Transport Authority",
	"isOrganizationCreator": true,
	"tenantId": "tenant-1"
}`

func TestAuthHandler_Signup(t *testing.T) {
	t.Run("returns 201 with token pair", func(t *testing.T) {
		authSvc := &mockAuthService{
			signupFn: func(name, email, _, _, tenantID, _ string) (*models.User, error) {
				user := &models.User{Name: name, Email: email, TenantID: tenantID}
				user.ID = 1
				return user, nil
			},
		}
		handler := NewAuthHandler(authSvc, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/localauth/signup", signupBody)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["accessToken"] == "" || result["refreshToken"] == "" {
			t.Error("expected a token pair in the response")
		}
		user := result["user"].(map[string]interface{})
		if user["email"] != "ada@example.com" {
			t.Errorf("unexpected user payload: %v", user)
		}
	})

	t.Run("returns 400 on password mismatch", func(t *testing.T) {
		handler := NewAuthHandler(&mockAuthService{}, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/localauth/signup",
			`{"name":"Ada","email":"ada@example.com","password":"Secret1!pw","confirmPassword":"Different1!","organizationName":"Transport Authority"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 400 when organization name missing", func(t *testing.T) {
		handler := NewAuthHandler(&mockAuthService{}, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/localauth/signup",
			`{"name":"Ada","email":"ada@example.com","password":"Secret1!pw","confirmPassword":"Secret1!pw"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 409 on duplicate email", func(t *testing.T) {
		authSvc := &mockAuthService{
			signupFn: func(_, _, _, _, _, _ string) (*models.User, error) {
				return nil, apperrors.ErrDuplicateEmail
			},
		}
		handler := NewAuthHandler(authSvc, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/localauth/signup", signupBody)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
		assertErrorCode(t, rec, "DUPLICATE_EMAIL")
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("returns 200 with token pair", func(t *testing.T) {
		authSvc := &mockAuthService{
			loginFn: func(email, _, _, _ string) (*models.User, error) {
				user := &models.User{Name: "Ada", Email: email}
				user.ID = 1
				return user, nil
			},
		}
		handler := NewAuthHandler(authSvc, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/localauth/login",
			`{"email":"ada@example.com","password":"Secret1!pw"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["accessToken"] == "" || result["refreshToken"] == "" {
			t.Error("expected a token pair in the response")
		}
	})

	t.Run("passes the MFA token through", func(t *testing.T) {
		var gotToken string
		authSvc := &mockAuthService{
			loginFn: func(email, _, mfaToken, _ string) (*models.User, error) {
				gotToken = mfaToken
				return &models.User{Email: email}, nil
			},
		}
		handler := NewAuthHandler(authSvc, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/localauth/login",
			`{"email":"ada@example.com","password":"Secret1!pw","mfaToken":"123456"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotToken != "123456" {
			t.Errorf("expected MFA token to reach the service, got %q", gotToken)
		}
	})

	t.Run("returns 400 on malformed MFA token", func(t *testing.T) {
		handler := NewAuthHandler(&mockAuthService{}, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/localauth/login",
			`{"email":"ada@example.com","password":"Secret1!pw","mfaToken":"12345"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("maps service errors to status codes", func(t *testing.T) {
		cases := []struct {
			name   string
			err    *apperrors.AppError
			status int
		}{
			{"invalid credentials", apperrors.ErrInvalidCredentials, http.StatusUnauthorized},
			{"mfa required", apperrors.ErrMfaRequired, http.StatusUnauthorized},
			{"new ip requires mfa", apperrors.ErrNewIPRequiresMfa, http.StatusForbidden},
			{"account locked", apperrors.ErrAccountLocked, http.StatusLocked},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				authSvc := &mockAuthService{
					loginFn: func(_, _, _, _ string) (*models.User, error) {
						return nil, tc.err
					},
				}
				handler := NewAuthHandler(authSvc, &mockAuditService{})
				r := setupAuthRouter(handler)

				rec := doRequest(r, "POST", "/localauth/login",
					`{"email":"ada@example.com","password":"Secret1!pw"}`)

				if rec.Code != tc.status {
					t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
				}
				assertErrorCode(t, rec, tc.err.Code)
			})
		}
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	mintRefresh := func(t *testing.T, sessionID string) string {
		t.Helper()
		user := &models.User{Email: "ada@example.com"}
		user.ID = 1
		token, err := middleware.GenerateRefreshToken(user, sessionID)
		if err != nil {
			t.Fatalf("failed to mint refresh token: %v", err)
		}
		return token
	}

	t.Run("returns a new access token", func(t *testing.T) {
		refresh := mintRefresh(t, "sess-1")
		authSvc := &mockAuthService{
			getSessionByIDFn: func(sessionID string) (*models.Session, error) {
				return &models.Session{
					SessionID: sessionID,
					UserID:    1,
					TokenHash: middleware.HashToken(refresh),
					ExpiresAt: time.Now().Add(time.Hour),
				}, nil
			},
		}
		handler := NewAuthHandler(authSvc, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/localauth/refreshToken", `{"token":"`+refresh+`"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["accessToken"] == nil || result["accessToken"] == "" {
			t.Error("expected a fresh access token")
		}
	})

	t.Run("rejects a tampered token", func(t *testing.T) {
		refresh := mintRefresh(t, "sess-1")
		handler := NewAuthHandler(&mockAuthService{}, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/localauth/refreshToken", `{"token":"`+refresh+`x"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
		}
		assertErrorCode(t, rec, "INVALID_REFRESH_TOKEN")
	})

	t.Run("rejects a revoked session", func(t *testing.T) {
		refresh := mintRefresh(t, "sess-gone")
		authSvc := &mockAuthService{
			getSessionByIDFn: func(string) (*models.Session, error) {
				return nil, apperrors.ErrInvalidRefreshToken
			},
		}
		handler := NewAuthHandler(authSvc, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/localauth/refreshToken", `{"token":"`+refresh+`"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("rejects a token whose digest does not match the session", func(t *testing.T) {
		refresh := mintRefresh(t, "sess-1")
		authSvc := &mockAuthService{
			getSessionByIDFn: func(sessionID string) (*models.Session, error) {
				return &models.Session{
					SessionID: sessionID,
					TokenHash: middleware.HashToken("a different token"),
					ExpiresAt: time.Now().Add(time.Hour),
				}, nil
			},
		}
		handler := NewAuthHandler(authSvc, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/localauth/refreshToken", `{"token":"`+refresh+`"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("revokes the current session", func(t *testing.T) {
		var deleted string
		authSvc := &mockAuthService{
			deleteSessionFn: func(sessionID string) error {
				deleted = sessionID
				return nil
			},
		}
		handler := NewAuthHandler(authSvc, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "GET", "/localauth/logout", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if deleted != "sess-1" {
			t.Errorf("expected session sess-1 revoked, got %q", deleted)
		}
	})

	t.Run("returns 401 without identity", func(t *testing.T) {
		handler := NewAuthHandler(&mockAuthService{}, &mockAuditService{})
		r := gin.New()
		r.GET("/localauth/logout", handler.Logout)

		rec := doRequest(r, "GET", "/localauth/logout", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestAuthHandler_GetSessions(t *testing.T) {
	t.Run("returns the caller's sessions", func(t *testing.T) {
		authSvc := &mockAuthService{
			getSessionsFn: func(userID uint, page pagination.PageRequest) (*pagination.PageResponse[services.SessionInfo], error) {
				if userID != 1 {
					t.Errorf("expected user 1, got %d", userID)
				}
				resp := pagination.NewPageResponse([]services.SessionInfo{
					{IP: "1.1.1.1", Device: "Chrome on Windows", LoggedInAt: time.Now()},
				}, 1, 25, 1)
				return &resp, nil
			},
		}
		handler := NewAuthHandler(authSvc, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "GET", "/localauth/getSessions", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		data := result["data"].([]interface{})
		if len(data) != 1 {
			t.Fatalf("expected 1 session, got %d", len(data))
		}
	})

	t.Run("rejects an out-of-range page size", func(t *testing.T) {
		handler := NewAuthHandler(&mockAuthService{}, &mockAuditService{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "GET", "/localauth/getSessions?page_size=500", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}
