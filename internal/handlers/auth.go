package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gatehouse/internal/auth"
	"gatehouse/internal/models"
	pkghttp "gatehouse/pkg/http"
	"gatehouse/pkg/redirect"
)

// AuthServiceInterface defines the interface for authentication business logic
type AuthServiceInterface interface {
	Authenticate(ctx context.Context, email, password string) (*models.AuthResult, error)
	Register(ctx context.Context, email, password string) (*models.Identity, error)
	ChangePassword(ctx context.Context, identityID, newPassword string) (*models.Identity, error)
}

// ResetServiceInterface defines the interface for password reset flows
type ResetServiceInterface interface {
	Issue(ctx context.Context, email string) error
	Redeem(ctx context.Context, identityID, plainToken string) (*models.Identity, error)
	Consume(ctx context.Context, identityID string) error
}

// AuthHandler translates authentication outcomes into HTTP responses
type AuthHandler struct {
	service         AuthServiceInterface
	resets          ResetServiceInterface
	sessions        *auth.SessionManager
	cookieConfig    auth.CookieConfig
	origin          string
	defaultRedirect string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	service AuthServiceInterface,
	resets ResetServiceInterface,
	sessions *auth.SessionManager,
	cookieConfig auth.CookieConfig,
	origin, defaultRedirect string,
) *AuthHandler {
	return &AuthHandler{
		service:         service,
		resets:          resets,
		sessions:        sessions,
		cookieConfig:    cookieConfig,
		origin:          origin,
		defaultRedirect: defaultRedirect,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	BackURL  string `json:"back_url,omitempty"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetRequestRequest represents the request body for requesting a reset email
type ResetRequestRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetRedeemRequest represents the request body for validating a reset token
type ResetRedeemRequest struct {
	IdentityID string `json:"identity_id" validate:"required"`
	Token      string `json:"token" validate:"required"`
}

// ResetCompleteRequest represents the request body for completing a reset
type ResetCompleteRequest struct {
	IdentityID  string `json:"identity_id" validate:"required"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// ExpiredPasswordRequest represents the forced password change after expiry
type ExpiredPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	BackURL         string `json:"back_url,omitempty"`
}

// Response DTOs

// LoginResponse tells the caller where to navigate next. RedirectTo is always
// a validated destination; an unsafe BackURL has already been replaced.
type LoginResponse struct {
	RedirectTo             string `json:"redirect_to,omitempty"`
	PasswordChangeRequired bool   `json:"password_change_required,omitempty"`
	RetryAfterSeconds      int    `json:"retry_after_seconds,omitempty"`
	Email                  string `json:"email,omitempty"` // Echoed only when remember-username is on
}

// Login handles a login submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	result, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	destination := redirect.Resolve(req.BackURL, h.origin, h.defaultRedirect)

	switch result.Outcome {
	case models.OutcomeLockedOut:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(LoginResponse{
			RetryAfterSeconds: int(result.RetryAfter.Seconds()),
			Email:             result.EchoedEmail,
		})

	case models.OutcomeInvalidCredentials:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(LoginResponse{
			Email: result.EchoedEmail,
		})

	case models.OutcomeExpiredPassword:
		// Authenticated, but no session yet: the caller must route through
		// the change-password flow, carrying the already-validated BackURL.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(LoginResponse{
			PasswordChangeRequired: true,
			RedirectTo:             destination,
			Email:                  result.EchoedEmail,
		})

	case models.OutcomeSuccess:
		token, err := h.sessions.Bind(result.Identity.ID, result.Identity.Email)
		if err != nil {
			pkghttp.WriteInternalError(w, "Internal server error")
			return
		}
		auth.SetSessionCookie(w, token, h.sessions.TokenExpiry(), h.cookieConfig)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(LoginResponse{
			RedirectTo: destination,
		})

	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// Logout clears the bound session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookieConfig)
	w.WriteHeader(http.StatusNoContent)
}

// Register handles identity registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	identity, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "An account with this email already exists")
		case errors.Is(err, models.ErrInternalServer):
			pkghttp.WriteInternalError(w, "Internal server error")
		default:
			pkghttp.WriteBadRequest(w, err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": identity.ID, "email": identity.Email})
}

// RequestReset issues a password reset token and dispatches the email.
// The response is identical for known and unknown emails.
func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequestRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := h.resets.Issue(r.Context(), req.Email); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// RedeemReset validates a reset token so the caller can render the
// change-password form. The token stays live until the change completes.
func (h *AuthHandler) RedeemReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRedeemRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if _, err := h.resets.Redeem(r.Context(), req.IdentityID, req.Token); err != nil {
		writeResetError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// CompleteReset redeems the token, changes the password and consumes the
// token so it can never be used again
func (h *AuthHandler) CompleteReset(w http.ResponseWriter, r *http.Request) {
	var req ResetCompleteRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	identity, err := h.resets.Redeem(r.Context(), req.IdentityID, req.Token)
	if err != nil {
		writeResetError(w, err)
		return
	}

	if _, err := h.service.ChangePassword(r.Context(), identity.ID, req.NewPassword); err != nil {
		if errors.Is(err, models.ErrInternalServer) {
			pkghttp.WriteInternalError(w, "Internal server error")
		} else {
			pkghttp.WriteBadRequest(w, err.Error())
		}
		return
	}

	if err := h.resets.Consume(r.Context(), identity.ID); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ChangeExpiredPassword completes the forced password change for an identity
// whose credential verified but whose password expiry elapsed. On success the
// session is bound and the caller gets its validated destination.
func (h *AuthHandler) ChangeExpiredPassword(w http.ResponseWriter, r *http.Request) {
	var req ExpiredPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	result, err := h.service.Authenticate(r.Context(), req.Email, req.CurrentPassword)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	switch result.Outcome {
	case models.OutcomeLockedOut:
		pkghttp.WriteTooManyRequests(w, "Too many failed login attempts. Please try again later.")
		return
	case models.OutcomeInvalidCredentials:
		pkghttp.WriteUnauthorized(w, "Authentication failed")
		return
	case models.OutcomeExpiredPassword, models.OutcomeSuccess:
		// Either is an authenticated principal; proceed with the change.
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	identity, err := h.service.ChangePassword(r.Context(), result.Identity.ID, req.NewPassword)
	if err != nil {
		if errors.Is(err, models.ErrInternalServer) {
			pkghttp.WriteInternalError(w, "Internal server error")
		} else {
			pkghttp.WriteBadRequest(w, err.Error())
		}
		return
	}

	token, err := h.sessions.Bind(identity.ID, identity.Email)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	auth.SetSessionCookie(w, token, h.sessions.TokenExpiry(), h.cookieConfig)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(LoginResponse{
		RedirectTo: redirect.Resolve(req.BackURL, h.origin, h.defaultRedirect),
	})
}

// writeResetError maps reset token errors to responses. All token failures
// collapse to the same unauthorized response so a probe learns nothing about
// which tokens exist.
func writeResetError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrTokenNotFound),
		errors.Is(err, models.ErrTokenExpired),
		errors.Is(err, models.ErrTokenMismatch):
		pkghttp.WriteUnauthorized(w, "Invalid or expired reset token")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
