package store

import (
	"context"
	"time"

	"voyagelog/pkg/model"
)

// VoyageStore handles the canonical voyage dataset.
type VoyageStore interface {
	ReplaceVoyages(ctx context.Context, voyages []model.Voyage) error
	ListVoyages(ctx context.Context) ([]model.Voyage, error)
	GetVoyage(ctx context.Context, id string) (*model.Voyage, error)
}

// PolarStore handles the polar point dataset.
type PolarStore interface {
	ReplacePolar(ctx context.Context, points []model.PolarPoint) error
	ListPolar(ctx context.Context) ([]model.PolarPoint, error)
}

// Run is the summary of one pipeline run.
type Run struct {
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Files       int       `json:"files"`
	FilesFailed int       `json:"filesFailed"`
	Entries     int       `json:"entries"`
	Voyages     int       `json:"voyages"`
	PolarPoints int       `json:"polarPoints"`
	Error       string    `json:"error,omitempty"`
}

// RunStore keeps a history of pipeline runs.
type RunStore interface {
	RecordRun(ctx context.Context, r Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
