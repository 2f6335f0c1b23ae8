package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/domain/user"
	"github.com/rs/zerolog/log"
)

const refreshCookiePath = "/api/auth/refresh"

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	userService *user.Service
	jwtService  *auth.JWTService
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(userService *user.Service, jwtService *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{
		userService: userService,
		jwtService:  jwtService,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the user and, for API clients that do not keep
// cookies, the tokens that were also set as cookies.
type AuthResponse struct {
	User             UserResponse `json:"user"`
	AccessToken      string       `json:"access_token,omitempty"`
	AccessExpiresAt  time.Time    `json:"access_expires_at,omitempty"`
	RefreshToken     string       `json:"refresh_token,omitempty"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at,omitempty"`
	Message          string       `json:"message,omitempty"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Blocked   bool      `json:"blocked"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Blocked:   u.Blocked,
		CreatedAt: u.CreatedAt,
	}
}

// Register handles user registration
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	newUser, err := h.userService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	log.Info().Str("component", "auth").Str("user_id", newUser.ID).Msg("user registered")

	h.respondWithTokens(w, r, http.StatusCreated, newUser, "Registration successful")
}

// Login handles user login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	h.respondWithTokens(w, r, http.StatusOK, u, "Login successful")
}

// Refresh exchanges a refresh token, from the cookie or the body, for a new
// token pair.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if cookie, err := r.Cookie("refresh_token"); err == nil && cookie.Value != "" {
		req.RefreshToken = cookie.Value
	} else if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		respondJSONError(w, "no refresh token", "unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwtService.ParseRefresh(req.RefreshToken)
	if err != nil {
		h.clearAuthCookies(w)
		respondErr(w, r, err)
		return
	}

	u, err := h.userService.GetActive(r.Context(), userID)
	if errors.Is(err, user.ErrUserNotFound) {
		h.clearAuthCookies(w)
		respondJSONError(w, "user not found", "invalid_token", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.clearAuthCookies(w)
		respondErr(w, r, err)
		return
	}

	h.respondWithTokens(w, r, http.StatusOK, u, "Token refreshed")
}

// Logout handles user logout
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logout successful",
	})
}

// Me returns the current authenticated user's information
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", "unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := h.userService.GetActive(r.Context(), claims.UserID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(u))
}

// requireActive rejects requests from accounts blocked after their access
// token was issued.
func (h *AuthHandlers) requireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r.Context())
		if !ok {
			respondJSONError(w, "unauthorized", "unauthorized", http.StatusUnauthorized)
			return
		}
		_, err := h.userService.GetActive(r.Context(), claims.UserID)
		if errors.Is(err, user.ErrUserNotFound) {
			respondJSONError(w, "user not found", "invalid_token", http.StatusUnauthorized)
			return
		}
		if err != nil {
			respondErr(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ChangePasswordRequest is the body of POST /api/auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the caller's password.
func (h *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", "unauthorized", http.StatusUnauthorized)
		return
	}
	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.userService.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondErr(w, r, err)
		return
	}
	log.Info().Str("component", "auth").Str("user_id", claims.UserID).Msg("password changed")
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers returns every account, for administration.
func (h *AuthHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	respondJSON(w, http.StatusOK, out)
}

// SetUserBlocked blocks or unblocks a customer. Blocked users cannot log in
// or refresh their tokens.
func (h *AuthHandlers) SetUserBlocked(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blocked *bool `json:"blocked"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Blocked == nil {
		respondJSONError(w, "blocked is required", "invalid_input", http.StatusBadRequest)
		return
	}

	userID := r.PathValue("userID")
	if err := h.userService.SetBlocked(r.Context(), userID, *req.Blocked); err != nil {
		respondErr(w, r, err)
		return
	}
	log.Info().Str("component", "auth").Str("user_id", userID).Bool("blocked", *req.Blocked).Msg("user block status changed")
	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

func (h *AuthHandlers) respondWithTokens(w http.ResponseWriter, r *http.Request, status int, u *user.User, message string) {
	pair, err := h.jwtService.IssuePair(u.ID, u.Email, u.Role)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.setAuthCookies(w, r, pair)

	respondJSON(w, status, AuthResponse{
		User:             toUserResponse(u),
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		Message:          message,
	})
}

func (h *AuthHandlers) setAuthCookies(w http.ResponseWriter, r *http.Request, pair *auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    pair.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandlers) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
	})
}
