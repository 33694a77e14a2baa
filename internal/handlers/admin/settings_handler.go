package admin

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	settingssvc "github.com/paygate-io/subscription-gateway/internal/services/settings"
)

// Handler serves the gateway's admin settings endpoints
type Handler struct {
	settings *settingssvc.Service
	logger   *zap.Logger
}

// NewHandler creates a new admin settings handler
func NewHandler(settings *settingssvc.Service, logger *zap.Logger) *Handler {
	return &Handler{
		settings: settings,
		logger:   logger,
	}
}

// GetSchema handles GET /admin/settings/schema
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	schema := h.settings.FormFields(r.Context())
	writeJSON(w, http.StatusOK, schema)
}

// GetSettings handles GET /admin/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	parsed, err := h.settings.LoadSettings(r.Context())
	if err != nil {
		h.logger.Error("could not load settings", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}

// SaveSettings handles POST /admin/settings. The body is a flat JSON
// object of form key to submitted value.
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var submitted map[string]string
	if err := json.NewDecoder(r.Body).Decode(&submitted); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid body"})
		return
	}

	parsed, err := h.settings.SaveSettings(r.Context(), submitted)
	if err != nil {
		h.logger.Error("could not save settings", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"settings": parsed,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
