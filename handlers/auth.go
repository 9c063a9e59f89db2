package handlers

import (
	"errors"
	"net/http"
	"time"

	"race-league-go/interfaces"
	"race-league-go/logging"
	"race-league-go/middleware"
	"race-league-go/models"
	"race-league-go/services"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService  interfaces.AuthService
	secureCookie bool
	logger       *logging.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService interfaces.AuthService, behindProxy bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: !behindProxy,
		logger:       logging.WithPrefix("AuthHandler"),
	}
}

// LoginAPI handles JSON login requests
func (h *AuthHandler) LoginAPI(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if !decodeJSON(w, r, &loginReq) {
		return
	}

	if loginReq.Email == "" || loginReq.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}

	authResponse, err := h.authService.Login(r.Context(), loginReq.Email, loginReq.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.logger.Warnf("API login failed for %s", loginReq.Email)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid email or password"})
			return
		}
		writeError(w, r, err)
		return
	}

	h.logger.Infof("User %s (%s) logged in via API", authResponse.User.Name, authResponse.User.Email)
	h.setAuthCookie(w, authResponse.Token)
	writeJSON(w, http.StatusOK, authResponse)
}

// Me returns the current user's information
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}
	writeJSON(w, http.StatusOK, user.ToSafeUser())
}

// setAuthCookie sets the authentication cookie
func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(24 * 30 * time.Hour),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}
