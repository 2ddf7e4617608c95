package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"voyagelog/pkg/config"
)

// ConfigHandler exposes the runtime setting overrides.
type ConfigHandler struct {
	cfgProv  config.Provider
	onChange func()
}

// NewConfigHandler creates a new ConfigHandler. onChange, if set, is called
// after overrides were modified.
func NewConfigHandler(cfg config.Provider, onChange func()) *ConfigHandler {
	return &ConfigHandler{
		cfgProv:  cfg,
		onChange: onChange,
	}
}

// ConfigResponse represents the config API response.
type ConfigResponse struct {
	Keys      []string          `json:"keys"`
	Overrides map[string]string `json:"overrides"`
}

// HandleGetConfig lists the overridable settings and the overrides in effect.
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ConfigResponse{
		Keys:      config.OverrideKeys(),
		Overrides: h.cfgProv.Overrides(r.Context()),
	})
}

// HandleSetConfig stores overrides from a {"key": "value"} object.
// Nothing is stored unless every entry validates.
func (h *ConfigHandler) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.Body.Close() }()

	var req map[string]string
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	for key, val := range req {
		if err := config.ValidateOverride(key, val); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ctx := r.Context()
	for key, val := range req {
		if err := h.cfgProv.SetOverride(ctx, key, val); err != nil {
			slog.Error("API: failed to save setting", "key", key, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		slog.Info("API: setting overridden", "key", key, "value", val)
	}

	h.changed(len(req) > 0)
	h.HandleGetConfig(w, r)
}

// HandleResetConfig removes one override so the config file value applies again.
func (h *ConfigHandler) HandleResetConfig(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := h.cfgProv.ResetOverride(r.Context(), key); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.Info("API: setting reset", "key", key)
	h.changed(true)
	h.HandleGetConfig(w, r)
}

func (h *ConfigHandler) changed(modified bool) {
	if modified && h.onChange != nil {
		h.onChange()
	}
}
