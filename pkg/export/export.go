// Package export writes the canonical datasets to disk.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"voyagelog/pkg/model"
	"voyagelog/pkg/polar"
)

// ErrEmptyPath is returned when an output path is not configured.
var ErrEmptyPath = errors.New("output path is empty")

// VoyagesFile is the on-disk shape of the voyages dataset.
type VoyagesFile struct {
	Voyages []model.Voyage `json:"voyages"`
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	if path == "" {
		return ErrEmptyPath
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// WriteJSON encodes v with two-space indentation and writes it atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return WriteFileAtomic(path, append(data, '\n'))
}

// WriteVoyages writes {"voyages": [...]}.
func WriteVoyages(path string, voyages []model.Voyage) error {
	if voyages == nil {
		voyages = []model.Voyage{}
	}
	return WriteJSON(path, VoyagesFile{Voyages: voyages})
}

// ReadVoyages reads a file written by WriteVoyages.
func ReadVoyages(path string) ([]model.Voyage, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read voyages: %w", err)
	}
	var f VoyagesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse voyages: %w", err)
	}
	if f.Voyages == nil {
		f.Voyages = []model.Voyage{}
	}
	return f.Voyages, nil
}

// WritePolar writes {"points": [...]}.
func WritePolar(path string, ds model.PolarDataset) error {
	if ds.Points == nil {
		ds.Points = []model.PolarPoint{}
	}
	return WriteJSON(path, ds)
}

// WritePolarTable writes the tab-separated polar table.
func WritePolarTable(path string, curves []polar.Curve) error {
	return WriteFileAtomic(path, []byte(polar.Table(curves)))
}

// WritePolarDiagram renders the polar diagram PNG. It returns polar.ErrNoSamples
// without touching the file when there is nothing to draw.
func WritePolarDiagram(path string, curves []polar.Curve, pct float64) error {
	if path == "" {
		return ErrEmptyPath
	}
	var buf bytes.Buffer
	if err := polar.RenderDiagram(&buf, curves, pct); err != nil {
		return err
	}
	return WriteFileAtomic(path, buf.Bytes())
}
