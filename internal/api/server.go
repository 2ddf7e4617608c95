package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"voyagelog/pkg/version"
)

// NewServer creates and configures the HTTP server.
// Any handler may be nil, in which case its routes are not registered.
// shutdown is called asynchronously when a client requests a graceful shutdown.
func NewServer(addr string, data *DatasetHandler, stats *StatsHandler, cfg *ConfigHandler, regen *RegenerateHandler, hub *Hub, shutdown func()) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewMux(data, stats, cfg, regen, hub, shutdown),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewMux registers all routes. It is split from NewServer so tests can mount it on httptest.
func NewMux(data *DatasetHandler, stats *StatsHandler, cfg *ConfigHandler, regen *RegenerateHandler, hub *Hub, shutdown func()) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// Datasets
	if data != nil {
		mux.HandleFunc("GET /api/voyages", data.HandleVoyages)
		mux.HandleFunc("GET /api/voyages.geojson", data.HandleGeoJSON)
		mux.HandleFunc("GET /api/voyages/{id}", data.HandleVoyage)
		mux.HandleFunc("GET /api/polar", data.HandlePolar)
	}

	if stats != nil {
		mux.Handle("GET /api/stats", stats)
	}

	// Settings overrides
	if cfg != nil {
		mux.HandleFunc("GET /api/config", cfg.HandleGetConfig)
		mux.HandleFunc("PUT /api/config", cfg.HandleSetConfig)
		mux.HandleFunc("DELETE /api/config/{key}", cfg.HandleResetConfig)
	}

	if regen != nil {
		mux.Handle("POST /api/regenerate", regen)
	}

	if hub != nil {
		mux.HandleFunc("GET /api/ws", hub.HandleWS)
	}

	if shutdown != nil {
		mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
			slog.Info("Graceful shutdown initiated via API")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("Shutting down...")); err != nil {
				slog.Error("Failed to write shutdown response", "error", err)
			}
			go func() {
				time.Sleep(100 * time.Millisecond)
				shutdown()
			}()
		})
	}

	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": %q}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("API: failed to encode response", "error", err)
	}
}
