package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"voyagelog/pkg/pipeline"
)

// Regenerator runs the pipeline.
type Regenerator interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

// RegenerateHandler triggers a pipeline run on demand.
type RegenerateHandler struct {
	runner Regenerator
}

func NewRegenerateHandler(r Regenerator) *RegenerateHandler {
	return &RegenerateHandler{runner: r}
}

// ServeHTTP runs the pipeline and returns its Result. With ?async=true the
// run starts in the background and the request returns 202 immediately;
// completion is announced on the websocket.
func (h *RegenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		ctx := context.WithoutCancel(r.Context())
		go func() {
			if _, err := h.runner.Run(ctx); err != nil {
				slog.Warn("API: background regeneration failed", "error", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
		return
	}

	res, err := h.runner.Run(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
