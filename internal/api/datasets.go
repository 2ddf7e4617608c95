package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"voyagelog/pkg/export"
	"voyagelog/pkg/model"
	"voyagelog/pkg/store"
)

// Snapshot exposes the datasets held in memory by the last successful run.
type Snapshot interface {
	Voyages() []model.Voyage
	Polar() model.PolarDataset
}

// DatasetStore is the persistence the dataset endpoints read from.
type DatasetStore interface {
	store.VoyageStore
	store.PolarStore
}

// DatasetHandler serves the generated voyage and polar datasets.
// Reads prefer the store, then the in-memory snapshot, then the voyages file on disk.
type DatasetHandler struct {
	store       DatasetStore
	snap        Snapshot
	voyagesFile string
}

// NewDatasetHandler creates a DatasetHandler. Any source may be nil or empty.
func NewDatasetHandler(st DatasetStore, snap Snapshot, voyagesFile string) *DatasetHandler {
	return &DatasetHandler{store: st, snap: snap, voyagesFile: voyagesFile}
}

// VoyageSummary is a voyage without its points.
type VoyageSummary struct {
	ID         string                 `json:"id"`
	StartTime  model.Timestamp        `json:"startTime"`
	EndTime    model.Timestamp        `json:"endTime"`
	Distance   float64                `json:"distance"`
	MaxSpeed   float64                `json:"maxSpeed"`
	AvgSpeed   float64                `json:"avgSpeed"`
	MaxWind    float64                `json:"maxWind"`
	Points     int                    `json:"points"`
	Activities map[model.Activity]int `json:"activities"`
}

func summarize(v *model.Voyage) VoyageSummary {
	return VoyageSummary{
		ID:         v.ID,
		StartTime:  v.StartTime,
		EndTime:    v.EndTime,
		Distance:   v.Distance,
		MaxSpeed:   v.MaxSpeed,
		AvgSpeed:   v.AvgSpeed,
		MaxWind:    v.MaxWind,
		Points:     len(v.Points),
		Activities: v.ActivityCounts(),
	}
}

func (h *DatasetHandler) voyages(ctx context.Context) ([]model.Voyage, error) {
	if h.store != nil {
		return h.store.ListVoyages(ctx)
	}
	if h.snap != nil {
		if v := h.snap.Voyages(); len(v) > 0 {
			return v, nil
		}
	}
	if h.voyagesFile != "" {
		return export.ReadVoyages(h.voyagesFile)
	}
	return []model.Voyage{}, nil
}

// HandleVoyages returns {"voyages": [...]}. With ?summary=true points are omitted.
func (h *DatasetHandler) HandleVoyages(w http.ResponseWriter, r *http.Request) {
	voyages, err := h.voyages(r.Context())
	if err != nil {
		slog.Error("API: failed to list voyages", "error", err)
		http.Error(w, "failed to list voyages", http.StatusInternalServerError)
		return
	}
	if voyages == nil {
		voyages = []model.Voyage{}
	}

	if summary, _ := strconv.ParseBool(r.URL.Query().Get("summary")); summary {
		out := make([]VoyageSummary, len(voyages))
		for i := range voyages {
			out[i] = summarize(&voyages[i])
		}
		writeJSON(w, http.StatusOK, map[string][]VoyageSummary{"voyages": out})
		return
	}
	writeJSON(w, http.StatusOK, export.VoyagesFile{Voyages: voyages})
}

// HandleVoyage returns a single voyage by ID.
func (h *DatasetHandler) HandleVoyage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	if h.store != nil {
		v, err := h.store.GetVoyage(ctx, id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "voyage not found", http.StatusNotFound)
		case err != nil:
			slog.Error("API: failed to load voyage", "id", id, "error", err)
			http.Error(w, "failed to load voyage", http.StatusInternalServerError)
		default:
			writeJSON(w, http.StatusOK, v)
		}
		return
	}

	voyages, err := h.voyages(ctx)
	if err != nil {
		slog.Error("API: failed to list voyages", "error", err)
		http.Error(w, "failed to load voyage", http.StatusInternalServerError)
		return
	}
	for i := range voyages {
		if voyages[i].ID == id {
			writeJSON(w, http.StatusOK, &voyages[i])
			return
		}
	}
	http.Error(w, "voyage not found", http.StatusNotFound)
}

// HandleGeoJSON returns every voyage track and anchorage as a FeatureCollection.
func (h *DatasetHandler) HandleGeoJSON(w http.ResponseWriter, r *http.Request) {
	voyages, err := h.voyages(r.Context())
	if err != nil {
		slog.Error("API: failed to list voyages", "error", err)
		http.Error(w, "failed to list voyages", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	data, err := export.GeoJSON(voyages).MarshalJSON()
	if err != nil {
		slog.Error("API: failed to encode GeoJSON", "error", err)
		http.Error(w, "encoding error", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(data); err != nil {
		slog.Error("API: failed to write GeoJSON", "error", err)
	}
}

// HandlePolar returns {"points": [...]}.
func (h *DatasetHandler) HandlePolar(w http.ResponseWriter, r *http.Request) {
	var ds model.PolarDataset
	switch {
	case h.store != nil:
		points, err := h.store.ListPolar(r.Context())
		if err != nil {
			slog.Error("API: failed to list polar points", "error", err)
			http.Error(w, "failed to list polar points", http.StatusInternalServerError)
			return
		}
		ds.Points = points
	case h.snap != nil:
		ds = h.snap.Polar()
	}
	if ds.Points == nil {
		ds.Points = []model.PolarPoint{}
	}
	writeJSON(w, http.StatusOK, ds)
}
