package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vanishhq/vanish/internal/api/middleware"
	"github.com/vanishhq/vanish/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

// SessionResponse is the converged shape of every entry path: either a
// session token or a second-factor challenge, never both.
type SessionResponse struct {
	User                 *UserResponse `json:"user,omitempty"`
	SessionToken         string        `json:"sessionToken,omitempty"`
	SecondFactorRequired bool          `json:"secondFactorRequired,omitempty"`
	TempToken            string        `json:"tempToken,omitempty"`
}

func sessionResponse(result *service.SignInResult) SessionResponse {
	if result.SecondFactorRequired {
		return SessionResponse{
			SecondFactorRequired: true,
			TempToken:            result.TempToken,
		}
	}
	return SessionResponse{
		User: &UserResponse{
			ID:               result.Session.User.ID.String(),
			Email:            result.Session.User.Email,
			TwoFactorEnabled: result.Session.User.TwoFactorEnabled,
		},
		SessionToken: result.Session.SessionToken,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SessionResponse{
		User: &UserResponse{
			ID:               result.User.ID.String(),
			Email:            result.User.Email,
			TwoFactorEnabled: result.User.TwoFactorEnabled,
		},
		SessionToken: result.SessionToken,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(result))
}

type MagicLinkRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req MagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.authService.RequestMagicLink(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	// Same shape whether or not the address belongs to an account.
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "If that address exists, a sign-in link is on its way",
	})
}

type VerifyMagicLinkRequest struct {
	Token string `json:"token"`
}

func (h *AuthHandler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var req VerifyMagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.authService.VerifyMagicLink(r.Context(), req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(result))
}

type SecondFactorRequest struct {
	TempToken string `json:"tempToken"`
	Code      string `json:"code"`
}

func (h *AuthHandler) CompleteSecondFactor(w http.ResponseWriter, r *http.Request) {
	var req SecondFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.authService.CompleteSecondFactor(r.Context(), req.TempToken, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		User: &UserResponse{
			ID:               result.User.ID.String(),
			Email:            result.User.Email,
			TwoFactorEnabled: result.User.TwoFactorEnabled,
		},
		SessionToken: result.SessionToken,
	})
}

type OAuthCallbackRequest struct {
	Code string `json:"code"`
}

func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	var req OAuthCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.authService.SignInWithOAuth(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(result))
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	// The middleware already verified the token; load the account directly.
	account, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		ID:               account.ID.String(),
		Email:            account.Email,
		TwoFactorEnabled: account.TwoFactorEnabled,
	})
}

type ConfirmSecondFactorRequest struct {
	Code string `json:"code"`
}

func (h *AuthHandler) EnableSecondFactor(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	url, err := h.authService.EnableSecondFactor(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"otpauthUrl": url})
}

func (h *AuthHandler) ConfirmSecondFactor(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	var req ConfirmSecondFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.authService.ConfirmSecondFactor(r.Context(), userID, req.Code); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
