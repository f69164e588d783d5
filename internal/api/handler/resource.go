package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/basisboard/basisboard/internal/api/middleware"
	"github.com/basisboard/basisboard/internal/api/response"
	"github.com/basisboard/basisboard/internal/provider"
	"github.com/basisboard/basisboard/internal/resource"
)

// ResourceHandler exposes the CRUD endpoints for one entity definition.
type ResourceHandler struct {
	service *resource.Service
}

// NewResourceHandler creates a ResourceHandler for the given service.
func NewResourceHandler(service *resource.Service) *ResourceHandler {
	return &ResourceHandler{service: service}
}

// List handles GET /api/{entity}. Public.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("failed to list records", "entity", h.service.Definition().Name, "error", err)
		response.Err(w, http.StatusInternalServerError, "failed to fetch "+h.service.Definition().Name)
		return
	}

	response.JSON(w, http.StatusOK, rows)
}

// Create handles POST /api/{entity}. Requires an authenticated principal,
// who becomes the record's owner.
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		response.Err(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	fields, ok := h.decodeFields(w, r)
	if !ok {
		return
	}

	created, err := h.service.Create(r.Context(), fields, identity.PrincipalID)
	if err != nil {
		h.writeError(w, err, "failed to create "+h.service.Definition().Name)
		return
	}

	response.JSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/{entity}/{id}. Admin only (enforced by routing).
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	fields, ok := h.decodeFields(w, r)
	if !ok {
		return
	}

	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), fields)
	if err != nil {
		h.writeError(w, err, "failed to update "+h.service.Definition().Name)
		return
	}

	response.JSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/{entity}/{id}. Admin only (enforced by
// routing). Deleting an absent id succeeds.
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "failed to delete "+h.service.Definition().Name)
		return
	}

	response.NoContent(w)
}

func (h *ResourceHandler) decodeFields(w http.ResponseWriter, r *http.Request) (provider.Row, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var fields provider.Row
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		response.Err(w, http.StatusBadRequest, "request body must be valid JSON")
		return nil, false
	}
	return fields, true
}

func (h *ResourceHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	var verr *resource.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ErrWithDetails(w, http.StatusBadRequest, verr.Error(), verr.Fields)
	case errors.Is(err, resource.ErrNotFound):
		response.Err(w, http.StatusNotFound, h.service.Definition().Name+" record not found")
	default:
		slog.Error("resource operation failed", "entity", h.service.Definition().Name, "error", err)
		response.Err(w, http.StatusInternalServerError, fallback)
	}
}
