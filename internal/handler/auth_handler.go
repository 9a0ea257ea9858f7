package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// AuthHandler handles authentication-related endpoints
type AuthHandler struct {
	authMiddleware *AuthMiddleware
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authMiddleware *AuthMiddleware) *AuthHandler {
	return &AuthHandler{
		authMiddleware: authMiddleware,
	}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/admin/auth/verify", h.handleVerify)
	r.Get("/api/admin/auth/status", h.handleStatus)
}

// handleVerify verifies the provided password
// POST /api/admin/auth/verify
func (h *AuthHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.authMiddleware.VerifyPassword(body.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   "invalid password",
		})
		return
	}

	token, err := h.authMiddleware.GenerateToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
	})
}

// handleStatus returns the authentication status
// GET /api/admin/auth/status
func (h *AuthHandler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"authEnabled": h.authMiddleware.IsEnabled(),
	})
}
