package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyagelog/pkg/config"
	"voyagelog/pkg/db"
	"voyagelog/pkg/export"
	"voyagelog/pkg/store"
	"voyagelog/pkg/tracker"
)

const dayOne = `
- datetime: 2024-06-01T08:00:00Z
  text: Anchor up
  position: {longitude: 10.0, latitude: 54.0}
  speed: {sog: 0.0}
- datetime: 2024-06-01T09:00:00Z
  position: {longitude: 10.1, latitude: 54.0}
  speed: {sog: 5.5}
- datetime: 2024-06-01T10:00:00Z
  position: {longitude: 10.2, latitude: 54.05}
  speed: {sog: 6.0}
`

const dayFive = `
- datetime: 2024-06-05T08:00:00Z
  position: {lon: 11.0, lat: 55.0}
- datetime: 2024-06-05T09:00:00Z
  position: {lon: 11.1, lat: 55.0}
`

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	root := t.TempDir()
	logDir := filepath.Join(root, "logbook")
	require.NoError(t, os.MkdirAll(logDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(logDir, "2024-06-01.yml"), []byte(dayOne), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(logDir, "2024-06-05.yml"), []byte(dayFive), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(logDir, "broken.yml"), []byte("just: a map\n"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Logbook.Dir = logDir
	cfg.Output.Voyages = filepath.Join(root, "public", "voyages.json")
	cfg.Output.Polar = filepath.Join(root, "public", "polar.json")
	cfg.Output.GeoJSON = filepath.Join(root, "public", "voyages.geojson")
	cfg.Output.PolarTable = filepath.Join(root, "public", "polar.txt")
	cfg.Output.PolarDiagram = filepath.Join(root, "public", "polar.png")
	return cfg, root
}

func testStore(t *testing.T, root string) *store.SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(root, "data", "voyagelog.db"))
	require.NoError(t, err)
	s := store.NewSQLiteStore(d)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()
	cfg, root := testConfig(t)
	st := testStore(t, root)
	r := NewRunner(config.NewProvider(cfg, st), st, nil)

	var notified []Result
	r.OnRun(func(res Result) { notified = append(notified, res) })

	res, err := r.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 1, res.FilesFailed)
	assert.Equal(t, 5, res.Entries)
	assert.Equal(t, 2, res.Voyages, "a four day gap splits the voyages")
	assert.Empty(t, res.Error)
	// No sailing samples: the diagram is skipped, the rest is written.
	assert.Len(t, res.Outputs, 4)
	_, statErr := os.Stat(cfg.Output.PolarDiagram)
	assert.True(t, os.IsNotExist(statErr))

	voyages, err := export.ReadVoyages(cfg.Output.Voyages)
	require.NoError(t, err)
	require.Len(t, voyages, 2)
	assert.Len(t, voyages[0].Points, 3)

	stored, err := st.ListVoyages(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, voyages[0].ID, stored[0].ID)

	_, ok := st.GetState(ctx, store.StateLastGenerated)
	assert.True(t, ok)

	runs, err := st.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Voyages)

	require.Len(t, notified, 1)
	assert.Equal(t, res.Voyages, notified[0].Voyages)
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, res.Entries, last.Entries)
	assert.Len(t, r.Voyages(), 2)

	snap := r.Tracker().Snapshot()
	assert.Equal(t, int64(1), snap[tracker.StageLoad].Skipped)
	assert.Equal(t, int64(2), snap[tracker.StageBuild].Items)
}

func TestRunner_OverridesApplyToNextRun(t *testing.T) {
	ctx := context.Background()
	cfg, root := testConfig(t)
	st := testStore(t, root)
	p := config.NewProvider(cfg, st)
	r := NewRunner(p, st, nil)

	res, err := r.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, res.Voyages)

	require.NoError(t, p.SetOverride(ctx, config.KeyMaxDayGap, "5d"))
	res, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Voyages)
}

func TestRunner_MissingLogDir(t *testing.T) {
	ctx := context.Background()
	cfg, root := testConfig(t)
	cfg.Logbook.Dir = filepath.Join(root, "nope")
	st := testStore(t, root)
	r := NewRunner(config.NewProvider(cfg, nil), st, tracker.New())

	res, err := r.Run(ctx)
	require.Error(t, err)
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, r.Voyages())
	assert.Equal(t, int64(1), r.Tracker().Snapshot()[tracker.StageLoad].Failures)

	runs, err := st.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].Error)
}

func TestRunner_WithoutStoreOrOutputs(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.Output = config.OutputConfig{}
	r := NewRunner(config.NewProvider(cfg, nil), nil, nil)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Outputs)
	assert.Equal(t, 2, res.Voyages)
}

func TestRunner_Cancelled(t *testing.T) {
	cfg, _ := testConfig(t)
	r := NewRunner(config.NewProvider(cfg, nil), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(cfg.Output.Voyages)
	assert.True(t, os.IsNotExist(statErr))
}
