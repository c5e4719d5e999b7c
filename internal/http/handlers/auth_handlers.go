package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/flexora/jobboard-api/internal/domain"
	mw "github.com/flexora/jobboard-api/internal/http/middleware"
	"github.com/flexora/jobboard-api/internal/http/response"
	"github.com/flexora/jobboard-api/internal/repo/postgres"
	"github.com/flexora/jobboard-api/internal/service"
	"github.com/flexora/jobboard-api/pkg/config"
	"github.com/go-chi/chi/v5"
)

const refreshCookieName = "refreshToken"

type Handlers struct {
	authService service.AuthService
	config      *config.Config
}

func New(authService service.AuthService, config *config.Config) *Handlers {
	return &Handlers{
		authService: authService,
		config:      config,
	}
}

func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/otpverify", h.VerifyOTP)
	r.Post("/resend-otp", h.ResendOTP)
	r.Post("/login", h.Login)
	r.Post("/refresh-token", h.RefreshToken)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireJWT(h.config.Auth.AccessTokenSecret))
		r.Get("/me", h.Me)
		r.Put("/me", h.UpdateMe)
	})

	return r
}

// Register stages a new registration attempt and triggers OTP delivery. The
// request shape is discriminated by the `role` query parameter.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration

	switch r.URL.Query().Get("role") {
	case domain.RoleSeeker:
		reg = &domain.SeekerRegistration{}
	case domain.RoleEmployer:
		reg = &domain.EmployerRegistration{}
	default:
		response.WriteError(w, http.StatusBadRequest, "Invalid role specified", response.CodeInvalidInput)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(reg); err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid JSON format", response.CodeInvalidInput)
		return
	}

	if err := h.authService.Register(r.Context(), reg); err != nil {
		response.FromError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]string{
		"message": "Registration initiated, OTP sent",
	})
}

// VerifyOTP completes a staged registration. On success the refresh token is
// set as an HTTP-only cookie and the access token returned in the body.
func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.OTP == "" {
		response.WriteError(w, http.StatusBadRequest, "Email and OTP are required", response.CodeInvalidInput)
		return
	}

	result, err := h.authService.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken": result.AccessToken,
		"user":        result.User,
	})
}

func (h *Handlers) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		response.WriteError(w, http.StatusBadRequest, "Email is required", response.CodeInvalidInput)
		return
	}

	if err := h.authService.ResendOTP(r.Context(), req.Email); err != nil {
		response.FromError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "OTP resent to your email",
	})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid JSON format", response.CodeInvalidInput)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken": result.AccessToken,
		"user":        result.User,
	})
}

// RefreshToken exchanges the cookie-carried refresh token for a new access
// token. The refresh cookie itself is not rotated.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		response.WriteError(w, http.StatusForbidden, "Refresh token required", response.CodeForbidden)
		return
	}

	result, err := h.authService.RefreshAccessToken(r.Context(), cookie.Value)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken": result.AccessToken,
		"user":        result.User,
	})
}

// Logout clears the refresh cookie. Tokens are not invalidated server-side;
// validity remains purely cryptographic until expiry.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearRefreshCookie(w)

	response.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// Me returns the authenticated account's role-shaped view.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	if claims == nil {
		response.WriteError(w, http.StatusUnauthorized, "Missing token claims", response.CodeUnauthorized)
		return
	}

	account, err := h.authService.GetAccount(r.Context(), claims.UserID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, account.View())
}

// UpdateMe applies a partial profile update for the authenticated account and
// returns the refreshed role-shaped view.
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	if claims == nil {
		response.WriteError(w, http.StatusUnauthorized, "Missing token claims", response.CodeUnauthorized)
		return
	}

	var req postgres.UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid JSON format", response.CodeInvalidInput)
		return
	}

	account, err := h.authService.UpdateProfile(r.Context(), claims.UserID, &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, account.View())
}

func (h *Handlers) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.config.Auth.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handlers) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteStrictMode,
	})
}
