package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gatehouse/internal/models"
	pkghttp "gatehouse/pkg/http"

	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	AuthenticateFunc   func(ctx context.Context, email, password string) (*models.AuthResult, error)
	RegisterFunc       func(ctx context.Context, email, password string) (*models.Identity, error)
	ChangePasswordFunc func(ctx context.Context, identityID, newPassword string) (*models.Identity, error)
}

func (m *MockAuthService) Authenticate(ctx context.Context, email, password string) (*models.AuthResult, error) {
	if m.AuthenticateFunc == nil {
		return &models.AuthResult{Outcome: models.OutcomeInvalidCredentials}, nil
	}
	return m.AuthenticateFunc(ctx, email, password)
}

func (m *MockAuthService) Register(ctx context.Context, email, password string) (*models.Identity, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, email, password)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, identityID, newPassword string) (*models.Identity, error) {
	if m.ChangePasswordFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.ChangePasswordFunc(ctx, identityID, newPassword)
}

// MockResetService implements ResetServiceInterface for testing
type MockResetService struct {
	IssueFunc   func(ctx context.Context, email string) error
	RedeemFunc  func(ctx context.Context, identityID, plainToken string) (*models.Identity, error)
	ConsumeFunc func(ctx context.Context, identityID string) error
}

func (m *MockResetService) Issue(ctx context.Context, email string) error {
	if m.IssueFunc == nil {
		return nil
	}
	return m.IssueFunc(ctx, email)
}

func (m *MockResetService) Redeem(ctx context.Context, identityID, plainToken string) (*models.Identity, error) {
	if m.RedeemFunc == nil {
		return nil, models.ErrTokenNotFound
	}
	return m.RedeemFunc(ctx, identityID, plainToken)
}

func (m *MockResetService) Consume(ctx context.Context, identityID string) error {
	if m.ConsumeFunc == nil {
		return nil
	}
	return m.ConsumeFunc(ctx, identityID)
}
