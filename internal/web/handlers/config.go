package handlers

import (
	"net/http"

	"github.com/kozaktomas/facial-attendance/internal/attendance"
	"github.com/kozaktomas/facial-attendance/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config  *config.Config
	service *attendance.Service
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, svc *attendance.Service) *ConfigHandler {
	return &ConfigHandler{
		config:  cfg,
		service: svc,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Threshold          float64 `json:"threshold"`
	EmbeddingDim       int     `json:"embedding_dim"`
	DefaultMode        string  `json:"default_mode"`
	Timezone           string  `json:"timezone"`
	ExtractorAvailable bool    `json:"extractor_available"`
	DirectoryWritable  bool    `json:"directory_writable"`
}

// Get returns the recognition and ledger configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ConfigResponse{
		Threshold:          h.service.Threshold(),
		EmbeddingDim:       h.service.Dim(),
		DefaultMode:        h.config.Ledger.DefaultMode,
		Timezone:           h.config.Ledger.Location().String(),
		ExtractorAvailable: h.service.HasExtractor(),
		DirectoryWritable:  h.service.DirectoryWritable(),
	})
}
