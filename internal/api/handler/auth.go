package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/basisboard/basisboard/internal/api/middleware"
	"github.com/basisboard/basisboard/internal/api/response"
	"github.com/basisboard/basisboard/internal/api/validation"
	"github.com/basisboard/basisboard/internal/auth"
	"github.com/basisboard/basisboard/internal/provider"
)

type sessionResponse struct {
	User    *auth.Identity `json:"user"`
	IsAdmin bool           `json:"isAdmin"`
}

type loginResponse struct {
	Token   string         `json:"token"`
	User    *auth.Identity `json:"user"`
	IsAdmin bool           `json:"isAdmin"`
}

// AuthHandler wires the login, logout and session endpoints.
type AuthHandler struct {
	service *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service *auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req validation.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	if fieldErrors := validation.Struct(req); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "email and password are required", fieldErrors)
		return
	}

	identity, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidCredentials) {
			response.Err(w, http.StatusUnauthorized, provider.ErrInvalidCredentials.Error())
			return
		}
		slog.Error("login failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "login failed")
		return
	}

	response.JSON(w, http.StatusOK, loginResponse{
		Token:   token,
		User:    identity,
		IsAdmin: identity.IsAdmin(),
	})
}

// Logout handles POST /api/auth/logout. Logout always reports success:
// without a usable token the session is already as good as ended, and a
// provider failure is not the client's problem.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := bearerToken(r); ok {
		h.service.Logout(r.Context(), token)
	}
	response.Message(w, http.StatusOK, "logged out successfully")
}

// Session handles GET /api/auth/session. Requires the Auth middleware.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		response.Err(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	response.JSON(w, http.StatusOK, sessionResponse{
		User:    identity,
		IsAdmin: identity.IsAdmin(),
	})
}

// bearerToken extracts a bearer token from the Authorization header
// without requiring one.
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
