package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/basisboard/basisboard/internal/api/response"
	"github.com/basisboard/basisboard/internal/api/validation"
	"github.com/basisboard/basisboard/internal/provider"
	"github.com/basisboard/basisboard/internal/users"
)

// UserHandler handles the admin-only user management endpoints.
type UserHandler struct {
	service *users.Service
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *users.Service) *UserHandler {
	return &UserHandler{service: service}
}

// List handles GET /api/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
		response.Err(w, http.StatusInternalServerError, "failed to fetch users")
		return
	}

	response.JSON(w, http.StatusOK, all)
}

// Create handles POST /api/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req validation.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	if fieldErrors := validation.Struct(req); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "email and password are required", fieldErrors)
		return
	}

	created, err := h.service.Create(r.Context(), req.Email, req.Password, req.IsAdmin)
	if err != nil {
		if errors.Is(err, provider.ErrUserExists) {
			response.Err(w, http.StatusBadRequest, provider.ErrUserExists.Error())
			return
		}
		slog.Error("failed to create user", "error", err)
		response.Err(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	response.JSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/users/{id} (role replacement).
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req validation.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	if fieldErrors := validation.Struct(req); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "a valid role is required", fieldErrors)
		return
	}

	updated, err := h.service.UpdateRole(r.Context(), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		if errors.Is(err, provider.ErrUserNotFound) {
			response.Err(w, http.StatusNotFound, provider.ErrUserNotFound.Error())
			return
		}
		slog.Error("failed to update user role", "error", err)
		response.Err(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	response.JSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, provider.ErrUserNotFound) {
			response.Err(w, http.StatusNotFound, provider.ErrUserNotFound.Error())
			return
		}
		slog.Error("failed to delete user", "error", err)
		response.Err(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	response.NoContent(w)
}
