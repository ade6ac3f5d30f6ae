package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/anabada/anabada/internal/middleware"
	"github.com/anabada/anabada/internal/models"
	"github.com/anabada/anabada/internal/service"
	"github.com/sirupsen/logrus"
)

type TokenService interface {
	Issue(ctx context.Context, subject string, authorities []string) (*models.TokenPair, error)
	Exchange(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
}

type CredentialService interface {
	Authenticate(ctx context.Context, email, password string) (*models.Member, error)
	SignUp(ctx context.Context, email, password, nickname string) (*models.Member, error)
	IsEmailUnique(ctx context.Context, email string) (bool, error)
}

type AuthHandlers struct {
	tokens      TokenService
	credentials CredentialService
	logger      *logrus.Logger
}

func NewAuthHandlers(tokens TokenService, credentials CredentialService, logger *logrus.Logger) *AuthHandlers {
	return &AuthHandlers{
		tokens:      tokens,
		credentials: credentials,
		logger:      logger,
	}
}

type AuthenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type MemberResponse struct {
	Email       string   `json:"email"`
	Nickname    string   `json:"nickname,omitempty"`
	Authorities []string `json:"authorities"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *AuthHandlers) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req AuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Email and password are required")
		return
	}

	member, err := h.credentials.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(w, err, "Authentication failed")
		return
	}

	pair, err := h.tokens.Issue(r.Context(), member.Email, member.AuthorityList())
	if err != nil {
		h.handleServiceError(w, err, "Failed to issue tokens")
		return
	}

	h.logger.WithField("email", member.Email).Info("Member authenticated")
	h.respondWithJSON(w, http.StatusOK, pair)
}

func (h *AuthHandlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if req.RefreshToken == "" {
		h.respondWithError(w, http.StatusBadRequest, "MISSING_TOKEN", "Refresh token is required")
		return
	}

	pair, err := h.tokens.Exchange(r.Context(), req.RefreshToken)
	if err != nil {
		h.handleServiceError(w, err, "Refresh token exchange failed")
		return
	}

	h.respondWithJSON(w, http.StatusOK, pair)
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required")
		return
	}

	// The body is optional; without a refresh token only the client forgets
	// its access token.
	var req RefreshTokenRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.tokens.Revoke(r.Context(), req.RefreshToken); err != nil {
		h.handleServiceError(w, err, "Failed to revoke refresh token")
		return
	}

	h.logger.WithField("email", principal.Subject).Info("Member logged out")
	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if !isValidEmail(req.Email) {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email format")
		return
	}

	if len(req.Password) < 6 {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_PASSWORD", "Password must be at least 6 characters")
		return
	}

	member, err := h.credentials.SignUp(r.Context(), req.Email, req.Password, req.Nickname)
	if err != nil {
		h.handleServiceError(w, err, "Sign up failed")
		return
	}

	h.respondWithJSON(w, http.StatusCreated, MemberResponse{
		Email:       member.Email,
		Nickname:    member.Nickname,
		Authorities: member.AuthorityList(),
	})
}

func (h *AuthHandlers) IsEmailUnique(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if !isValidEmail(req.Email) {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email format")
		return
	}

	unique, err := h.credentials.IsEmailUnique(r.Context(), req.Email)
	if err != nil {
		h.handleServiceError(w, err, "Email lookup failed")
		return
	}

	if !unique {
		h.respondWithError(w, http.StatusConflict, "EMAIL_TAKEN", "Email is already registered")
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]bool{"unique": true})
}

// Authorize answers 200 for members holding the default member authority.
func (h *AuthHandlers) Authorize(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required")
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]string{"subject": principal.Subject})
}

func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required")
		return
	}

	h.respondWithJSON(w, http.StatusOK, principal)
}

// handleServiceError maps service errors to HTTP responses. Internal error
// text is logged, never returned.
func (h *AuthHandlers) handleServiceError(w http.ResponseWriter, err error, msg string) {
	entry := h.logger.WithError(err)
	if kind, ok := service.TokenErrorKindOf(err); ok {
		entry = entry.WithField("reason", kind.String())
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountDisabled),
		errors.Is(err, service.ErrRefreshTokenNotFound):
		entry.Info(msg)
		h.respondWithError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required")
	case errors.Is(err, service.ErrMemberExists):
		entry.Info(msg)
		h.respondWithError(w, http.StatusConflict, "MEMBER_EXISTS", "Member already exists")
	case errors.Is(err, service.ErrStoreUnavailable), errors.Is(err, service.ErrTokenPersistence):
		entry.Error(msg)
		h.respondWithError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Please retry later")
	default:
		if _, ok := service.TokenErrorKindOf(err); ok {
			entry.Info(msg)
			h.respondWithError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required")
			return
		}
		entry.Error(msg)
		h.respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func (h *AuthHandlers) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Warn("Failed to write response")
	}
}

func (h *AuthHandlers) respondWithError(w http.ResponseWriter, status int, code, message string) {
	h.respondWithJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	return err == nil && addr.Address == strings.TrimSpace(email)
}
