package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gatehouse/internal/auth"
	"gatehouse/internal/handlers"
	"gatehouse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "https://app.example.com"

func newTestAuthHandler(authSvc *handlers.MockAuthService, resetSvc *handlers.MockResetService) *handlers.AuthHandler {
	sessions := auth.NewSessionManager("test-secret-0123456789abcdef", time.Hour)
	return handlers.NewAuthHandler(authSvc, resetSvc, sessions, auth.CookieConfig{}, testOrigin, "/")
}

func successResult() *models.AuthResult {
	return &models.AuthResult{
		Outcome: models.OutcomeSuccess,
		Identity: &models.Identity{
			ID:    "id1",
			Email: "user@example.com",
		},
	}
}

func TestLogin_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		AuthenticateFunc: func(ctx context.Context, email, password string) (*models.AuthResult, error) {
			return successResult(), nil
		},
	}

	handler := newTestAuthHandler(mockAuth, &handlers.MockResetService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "SecurePass123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "/", resp.RedirectTo)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "gatehouse_session", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLogin_SafeBackURLSurvives(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		AuthenticateFunc: func(ctx context.Context, email, password string) (*models.AuthResult, error) {
			return successResult(), nil
		},
	}

	handler := newTestAuthHandler(mockAuth, &handlers.MockResetService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "SecurePass123",
		BackURL:  "/settings/profile?tab=security",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "/settings/profile?tab=security", resp.RedirectTo)
}

func TestLogin_ForeignBackURLFallsBack(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		AuthenticateFunc: func(ctx context.Context, email, password string) (*models.AuthResult, error) {
			return successResult(), nil
		},
	}

	handler := newTestAuthHandler(mockAuth, &handlers.MockResetService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "SecurePass123",
		BackURL:  "https://evil.example.net/phish",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	// Silent fallback: still a successful login, just a safe destination
	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "/", resp.RedirectTo)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		AuthenticateFunc: func(ctx context.Context, email, password string) (*models.AuthResult, error) {
			return &models.AuthResult{Outcome: models.OutcomeInvalidCredentials}, nil
		},
	}

	handler := newTestAuthHandler(mockAuth, &handlers.MockResetService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "WrongPass123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestLogin_LockedOut(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		AuthenticateFunc: func(ctx context.Context, email, password string) (*models.AuthResult, error) {
			return &models.AuthResult{
				Outcome:    models.OutcomeLockedOut,
				RetryAfter: 10 * time.Minute,
			}, nil
		},
	}

	handler := newTestAuthHandler(mockAuth, &handlers.MockResetService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "SecurePass123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, http.StatusTooManyRequests, &resp)
	assert.Equal(t, 600, resp.RetryAfterSeconds)
	assert.Empty(t, w.Result().Cookies())
}

func TestLogin_ExpiredPassword(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		AuthenticateFunc: func(ctx context.Context, email, password string) (*models.AuthResult, error) {
			result := successResult()
			result.Outcome = models.OutcomeExpiredPassword
			return result, nil
		},
	}

	handler := newTestAuthHandler(mockAuth, &handlers.MockResetService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "SecurePass123",
		BackURL:  "/billing",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	// No session yet; the validated BackURL is carried into the change flow
	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, http.StatusForbidden, &resp)
	assert.True(t, resp.PasswordChangeRequired)
	assert.Equal(t, "/billing", resp.RedirectTo)
	assert.Empty(t, w.Result().Cookies())
}

func TestLogin_RememberedEmailEchoed(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		AuthenticateFunc: func(ctx context.Context, email, password string) (*models.AuthResult, error) {
			return &models.AuthResult{
				Outcome:     models.OutcomeInvalidCredentials,
				EchoedEmail: "user@example.com",
			}, nil
		},
	}

	handler := newTestAuthHandler(mockAuth, &handlers.MockResetService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "WrongPass123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, http.StatusUnauthorized, &resp)
	assert.Equal(t, "user@example.com", resp.Email)
}

func TestLogin_InvalidBody(t *testing.T) {
	handler := newTestAuthHandler(&handlers.MockAuthService{}, &handlers.MockResetService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email: "not-an-email",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestLogout_ClearsCookie(t *testing.T) {
	handler := newTestAuthHandler(&handlers.MockAuthService{}, &handlers.MockResetService{})
	req := httptest.NewRequest("POST", "/auth/logout", nil)

	w := httptest.NewRecorder()
	handler.Logout(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "gatehouse_session", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestRequestReset_AlwaysAccepted(t *testing.T) {
	issued := []string{}
	mockReset := &handlers.MockResetService{
		IssueFunc: func(ctx context.Context, email string) error {
			issued = append(issued, email)
			return nil
		},
	}

	handler := newTestAuthHandler(&handlers.MockAuthService{}, mockReset)
	req := handlers.NewTestRequest(t, "POST", "/auth/reset/request", handlers.ResetRequestRequest{
		Email: "User@Example.com",
	})

	w := httptest.NewRecorder()
	handler.RequestReset(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, issued, 1)
	assert.Equal(t, "user@example.com", issued[0])
}

func TestRedeemReset_InvalidTokenRejected(t *testing.T) {
	for _, tokenErr := range []error{
		models.ErrTokenNotFound,
		models.ErrTokenExpired,
		models.ErrTokenMismatch,
	} {
		mockReset := &handlers.MockResetService{
			RedeemFunc: func(ctx context.Context, identityID, plainToken string) (*models.Identity, error) {
				return nil, tokenErr
			},
		}

		handler := newTestAuthHandler(&handlers.MockAuthService{}, mockReset)
		req := handlers.NewTestRequest(t, "POST", "/auth/reset/redeem", handlers.ResetRedeemRequest{
			IdentityID: "id1",
			Token:      "bogus",
		})

		w := httptest.NewRecorder()
		handler.RedeemReset(w, req)

		// All token failures collapse to the same response
		handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
	}
}

func TestCompleteReset_Success(t *testing.T) {
	var consumed, changed bool

	mockReset := &handlers.MockResetService{
		RedeemFunc: func(ctx context.Context, identityID, plainToken string) (*models.Identity, error) {
			return &models.Identity{ID: "id1", Email: "user@example.com"}, nil
		},
		ConsumeFunc: func(ctx context.Context, identityID string) error {
			assert.True(t, changed, "token must be consumed only after the change lands")
			consumed = true
			return nil
		},
	}
	mockAuth := &handlers.MockAuthService{
		ChangePasswordFunc: func(ctx context.Context, identityID, newPassword string) (*models.Identity, error) {
			changed = true
			return &models.Identity{ID: identityID, Email: "user@example.com"}, nil
		},
	}

	handler := newTestAuthHandler(mockAuth, mockReset)
	req := handlers.NewTestRequest(t, "POST", "/auth/reset/complete", handlers.ResetCompleteRequest{
		IdentityID:  "id1",
		Token:       "valid-token",
		NewPassword: "BrandNewPass7",
	})

	w := httptest.NewRecorder()
	handler.CompleteReset(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, changed)
	assert.True(t, consumed)
}

func TestCompleteReset_BadTokenStopsChange(t *testing.T) {
	mockReset := &handlers.MockResetService{
		RedeemFunc: func(ctx context.Context, identityID, plainToken string) (*models.Identity, error) {
			return nil, models.ErrTokenMismatch
		},
	}
	mockAuth := &handlers.MockAuthService{
		ChangePasswordFunc: func(ctx context.Context, identityID, newPassword string) (*models.Identity, error) {
			t.Fatal("password must not change on a bad token")
			return nil, nil
		},
	}

	handler := newTestAuthHandler(mockAuth, mockReset)
	req := handlers.NewTestRequest(t, "POST", "/auth/reset/complete", handlers.ResetCompleteRequest{
		IdentityID:  "id1",
		Token:       "bogus",
		NewPassword: "BrandNewPass7",
	})

	w := httptest.NewRecorder()
	handler.CompleteReset(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestChangeExpiredPassword_BindsSessionAfterChange(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		AuthenticateFunc: func(ctx context.Context, email, password string) (*models.AuthResult, error) {
			result := successResult()
			result.Outcome = models.OutcomeExpiredPassword
			return result, nil
		},
		ChangePasswordFunc: func(ctx context.Context, identityID, newPassword string) (*models.Identity, error) {
			return &models.Identity{ID: identityID, Email: "user@example.com"}, nil
		},
	}

	handler := newTestAuthHandler(mockAuth, &handlers.MockResetService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/password/expired", handlers.ExpiredPasswordRequest{
		Email:           "user@example.com",
		CurrentPassword: "OldPass123",
		NewPassword:     "BrandNewPass7",
		BackURL:         testOrigin + "/dashboard",
	})

	w := httptest.NewRecorder()
	handler.ChangeExpiredPassword(w, req)

	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, testOrigin+"/dashboard", resp.RedirectTo)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestChangeExpiredPassword_WrongCurrentPassword(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		AuthenticateFunc: func(ctx context.Context, email, password string) (*models.AuthResult, error) {
			return &models.AuthResult{Outcome: models.OutcomeInvalidCredentials}, nil
		},
	}

	handler := newTestAuthHandler(mockAuth, &handlers.MockResetService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/password/expired", handlers.ExpiredPasswordRequest{
		Email:           "user@example.com",
		CurrentPassword: "WrongPass123",
		NewPassword:     "BrandNewPass7",
	})

	w := httptest.NewRecorder()
	handler.ChangeExpiredPassword(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}
