package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyagelog/pkg/db"
	"voyagelog/pkg/model"
)

// setupTestStore creates a test database and store for each test.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	s := NewSQLiteStore(d)
	t.Cleanup(func() { s.Close() })
	return s
}

func voyageAt(id string, day int, distance float64) model.Voyage {
	ts := model.NewTimestamp(time.Date(2024, 6, day, 10, 0, 0, 0, time.UTC))
	return model.Voyage{
		ID:        id,
		StartTime: ts,
		EndTime:   ts,
		Distance:  distance,
		Points: []model.VoyagePoint{
			model.NewVoyagePoint(model.LogEntry{
				Datetime: ts,
				Text:     "Departed " + id,
				Position: &model.Position{Longitude: model.Num(10), Latitude: model.Num(54)},
			}),
		},
	}
}

func TestVoyageStore(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	empty, err := s.ListVoyages(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, s.ReplaceVoyages(ctx, []model.Voyage{
		voyageAt("b", 2, 5), voyageAt("a", 1, 3.2),
	}))

	list, err := s.ListVoyages(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID, "insertion order is kept")
	assert.Equal(t, "a", list[1].ID)
	assert.Equal(t, "Departed a", list[1].Points[0].Entry.Text)

	v, err := s.GetVoyage(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3.2, v.Distance)
	assert.Equal(t, "2024-06-01T10:00:00.000Z", v.StartTime.String())

	_, err = s.GetVoyage(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// replace drops the previous set
	require.NoError(t, s.ReplaceVoyages(ctx, []model.Voyage{voyageAt("c", 3, 1)}))
	list, err = s.ListVoyages(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c", list[0].ID)
}

func TestReplaceVoyages_RollsBackOnDuplicate(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	require.NoError(t, s.ReplaceVoyages(ctx, []model.Voyage{voyageAt("keep", 1, 1)}))

	err := s.ReplaceVoyages(ctx, []model.Voyage{voyageAt("dup", 1, 1), voyageAt("dup", 2, 1)})
	require.Error(t, err)

	list, err := s.ListVoyages(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "keep", list[0].ID)
}

func TestPolarStore(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	twa, stw := 90.0, 6.5
	points := []model.PolarPoint{
		{TWA: &twa, STW: &stw},
		{},
	}
	require.NoError(t, s.ReplacePolar(ctx, points))

	got, err := s.ListPolar(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].TWA)
	assert.Equal(t, 90.0, *got[0].TWA)
	assert.Equal(t, 6.5, *got[0].STW)
	assert.Nil(t, got[0].SOG)
	assert.Nil(t, got[1].TWA)

	require.NoError(t, s.ReplacePolar(ctx, nil))
	got, err = s.ListPolar(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunStore(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordRun(ctx, Run{
			StartedAt:  start.Add(time.Duration(i) * time.Minute),
			FinishedAt: start.Add(time.Duration(i)*time.Minute + time.Second),
			Voyages:    i,
		}))
	}
	require.NoError(t, s.RecordRun(ctx, Run{StartedAt: start, FinishedAt: start, Error: "boom"}))

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "boom", runs[0].Error)
	assert.Equal(t, 2, runs[1].Voyages)
	assert.Equal(t, start.Add(2*time.Minute), runs[1].StartedAt)
}

func TestStateStore(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	tests := []struct {
		name    string
		setup   func()
		key     string
		wantVal string
		wantOK  bool
	}{
		{"missing key", func() {}, "nope", "", false},
		{"set and get", func() { _ = s.SetState(ctx, StateLastGenerated, "2024-06-01") }, StateLastGenerated, "2024-06-01", true},
		{"overwrite", func() { _ = s.SetState(ctx, StateLastGenerated, "2024-06-02") }, StateLastGenerated, "2024-06-02", true},
		{"deleted", func() { _ = s.DeleteState(ctx, StateLastGenerated) }, StateLastGenerated, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			val, ok := s.GetState(ctx, tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantVal, val)
		})
	}
}

func TestCompressRoundTrip(t *testing.T) {
	in := []byte(`{"id":"x","points":[]}`)
	c, err := compress(in)
	require.NoError(t, err)
	assert.Equal(t, byte(0x1f), c[0])

	out, err := decompress(c)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
