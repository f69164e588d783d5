package handler

import (
	"net/http"
	"time"

	"github.com/basisboard/basisboard/internal/api/response"
)

// HealthHandler handles the GET /api/health endpoint.
type HealthHandler struct {
	version  string
	provider string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(version, providerName string) *HealthHandler {
	return &HealthHandler{
		version:  version,
		provider: providerName,
	}
}

type healthData struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Provider  string `json:"provider"`
	Timestamp string `json:"timestamp"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, healthData{
		Status:    "ok",
		Version:   h.version,
		Provider:  h.provider,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
