package handlers

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/anabada/anabada/internal/middleware"
	"github.com/anabada/anabada/internal/models"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// LoginLimit configures the per-client limit on the authenticate endpoint.
type LoginLimit struct {
	Limiter        *middleware.RedisLimiter
	Limit          int
	Window         time.Duration
	TrustedProxies []netip.Prefix
}

func NewRouter(
	authHandlers *AuthHandlers,
	authMiddleware *middleware.AuthMiddleware,
	loginLimit LoginLimit,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api/v1").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	authenticate := http.Handler(http.HandlerFunc(authHandlers.Authenticate))
	if loginLimit.Limiter != nil {
		authenticate = middleware.RateLimit(loginLimit.Limiter, "login", loginLimit.Limit, loginLimit.Window, loginLimit.TrustedProxies)(authenticate)
	}
	auth.Handle("/authenticate", authenticate).Methods("POST", "OPTIONS")
	auth.HandleFunc("/refresh", authHandlers.RefreshToken).Methods("POST", "OPTIONS")
	auth.HandleFunc("/signUp", authHandlers.SignUp).Methods("POST", "OPTIONS")
	auth.HandleFunc("/isEmailUnique", authHandlers.IsEmailUnique).Methods("POST", "OPTIONS")
	auth.Handle("/logout", authMiddleware.RequireAuth(http.HandlerFunc(authHandlers.Logout))).Methods("POST", "OPTIONS")

	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware.RequireAuth)
	protected.Handle("/authorize", authMiddleware.RequireAuthority(models.DefaultAuthority)(http.HandlerFunc(authHandlers.Authorize))).Methods("GET", "OPTIONS")
	protected.HandleFunc("/me", authHandlers.Me).Methods("GET", "OPTIONS")

	return router
}
