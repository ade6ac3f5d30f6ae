package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/anabada/anabada/internal/models"
	"github.com/anabada/anabada/internal/service"
	"github.com/sirupsen/logrus"
)

// Authenticator turns a bearer token into a principal.
type Authenticator interface {
	Authenticate(token string) (models.Principal, error)
}

type AuthMiddleware struct {
	authenticator Authenticator
	logger        *logrus.Logger
}

func NewAuthMiddleware(authenticator Authenticator, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		logger:        logger,
	}
}

// RequireAuth rejects requests without a valid bearer access token. Every
// failure gets the same 401 body; the reason is only logged.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			m.logger.WithField("path", r.URL.Path).Debug("Missing bearer token")
			respondUnauthenticated(w)
			return
		}

		principal, err := m.authenticator.Authenticate(token)
		if err != nil {
			kind, _ := service.TokenErrorKindOf(err)
			m.logger.WithError(err).WithFields(logrus.Fields{
				"path":   r.URL.Path,
				"reason": kind.String(),
			}).Debug("Token verification failed")
			respondUnauthenticated(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireAuthority must run after RequireAuth.
func (m *AuthMiddleware) RequireAuthority(authority string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				respondUnauthenticated(w)
				return
			}
			if !principal.HasAuthority(authority) {
				m.logger.WithFields(logrus.Fields{
					"subject":   principal.Subject,
					"authority": authority,
				}).Info("Authority check failed")
				respondJSONError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient authority")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

func respondUnauthenticated(w http.ResponseWriter) {
	respondJSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required")
}

func respondJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"code": code, "message": message},
	})
}
