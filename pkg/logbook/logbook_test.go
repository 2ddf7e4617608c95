package logbook

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"voyagelog/pkg/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2024-06-02.yml", `
- datetime: 2024-06-02T09:00:00Z
  text: second day
- datetime: 2024-06-02T08:00:00Z
  text: second day, earlier
`)
	writeFile(t, dir, "2024-06-01.yaml", `
- datetime: 2024-06-01T10:00:00Z
  text: first
- text: no timestamp
- just a string
- datetime: 2024-06-01T11:00:00Z
  text:
    nested: map
`)
	writeFile(t, dir, "broken.yml", "key: value\n")
	writeFile(t, dir, "notes.txt", "- datetime: 2020-01-01T00:00:00Z\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "merged"), 0o755))
	writeFile(t, filepath.Join(dir, "merged"), "2024-06-03.yml", "- datetime: 2024-06-03T00:00:00Z\n")

	res, err := Load(dir, Options{})
	require.NoError(t, err)

	assert.Len(t, res.Files, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "broken.yml", filepath.Base(res.Failed[0]))

	texts := make([]string, len(res.Entries))
	for i, e := range res.Entries {
		texts[i] = e.Text
	}
	// The 11:00 entry survives its malformed text with the text left empty.
	assert.Equal(t, []string{"first", "no timestamp", "", "second day, earlier", "second day"}, texts)
}

func TestLoad_MissingDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), Options{})
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr error
	}{
		{"Empty", "", 0, nil},
		{"Null", "~\n", 0, nil},
		{"List", "- datetime: 2024-06-01T10:00:00Z\n- datetime: 2024-06-01T11:00:00Z\n", 2, nil},
		{"Mapping", "datetime: 2024-06-01T10:00:00Z\n", 0, ErrNotList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	_, err := Decode([]byte("- [unclosed"))
	assert.Error(t, err)
}

func TestDecode_KeepsEntriesWithMalformedFields(t *testing.T) {
	input := `
- datetime: 2024-06-01T10:00:00Z
  position: {longitude: 10.0, latitude: 54.0}
  speed: fast
- datetime: 2024-06-01T11:00:00Z
  position: {longitude: 10.1, latitude: 54.0}
  wind: 12
- datetime: 2024-06-01T12:00:00Z
  position: {longitude: 10.2, latitude: 54.0}
  text: {a: 1}
  speed: {sog: 5.5}
- datetime: not a date
  position: {longitude: 10.3, latitude: 54.0}
`
	got, err := Decode([]byte(input))
	require.NoError(t, err)
	require.Len(t, got, 4)

	_, ok := got[0].SOG()
	assert.False(t, ok)
	_, ok = got[1].WindSpeed()
	assert.False(t, ok)

	assert.Empty(t, got[2].Text)
	sog, ok := got[2].SOG()
	require.True(t, ok)
	assert.InDelta(t, 5.5, sog, 1e-9)

	_, ok = got[3].Time()
	assert.False(t, ok)
	for i := range got {
		_, ok := got[i].Coord()
		assert.True(t, ok, "entry %d keeps its position", i)
	}
}

func TestSortEntries_KeepsUntimedAfterPredecessor(t *testing.T) {
	at := func(h int) model.Timestamp {
		return model.NewTimestamp(time.Date(2024, 6, 1, h, 0, 0, 0, time.UTC))
	}
	entries := []model.LogEntry{
		{Datetime: at(12), Text: "noon"},
		{Text: "after noon"},
		{Datetime: at(9), Text: "nine"},
		{Datetime: at(12), Text: "noon again"},
	}
	SortEntries(entries)

	var texts []string
	for _, e := range entries {
		texts = append(texts, e.Text)
	}
	assert.Equal(t, []string{"nine", "noon", "after noon", "noon again"}, texts)
}

func TestParseCourseChange(t *testing.T) {
	tests := []struct {
		text     string
		from, to float64
		ok       bool
	}{
		{"Course change: 120° → 135°", 120, 135, true},
		{"Course change: 120 -> 135", 120, 135, true},
		{"Course change:90.5º→100", 90.5, 100, true},
		{"Changed course to 135", 0, 0, false},
	}
	for _, tt := range tests {
		from, to, ok := ParseCourseChange(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.from, from, tt.text)
		assert.Equal(t, tt.to, to, tt.text)
	}
}

func TestMergeCourseChanges(t *testing.T) {
	pos := func(lon, lat float64) *model.Position {
		return &model.Position{Longitude: model.Num(lon), Latitude: model.Num(lat)}
	}
	entries := []model.LogEntry{
		{Text: "Leaving harbour"},
		{
			Text:     "Course change: 120° → 130°",
			Position: pos(10, 54),
			MaxSpeed: model.Num(6),
			Wind:     &model.Wind{Speed: model.Num(10), Direction: model.Num(350)},
		},
		{
			Text:     "Course change: 120° → 140°",
			MaxSpeed: model.Num(7.5),
			MaxWind:  model.Num(18),
			Wind:     &model.Wind{Speed: model.Num(14), Direction: model.Num(10)},
		},
		{
			Text:     "Course change: 120 -> 150",
			Position: pos(10.2, 54.1),
			MaxSpeed: model.Num(7),
		},
		{Text: "Course change: 150° → 160°"},
		{Text: "Anchored"},
	}

	out := MergeCourseChanges(entries)
	require.Len(t, out, 4)
	assert.Equal(t, "Leaving harbour", out[0].Text)
	assert.Equal(t, "Course change: 150° → 160°", out[2].Text, "single-member group passes through")
	assert.Equal(t, "Anchored", out[3].Text)

	m := out[1]
	assert.Equal(t, "Course change: 120° → 150°", m.Text)
	c, ok := m.Coord()
	require.True(t, ok)
	assert.Equal(t, 10.2, c.Lon)
	assert.Equal(t, model.Num(7.5), m.MaxSpeed)
	assert.Equal(t, model.Num(18), m.MaxWind)
	require.NotNil(t, m.Wind)
	ws, _ := m.Wind.Speed.Get()
	assert.Equal(t, 12.0, ws)
	wd, _ := m.Wind.Direction.Get()
	assert.True(t, wd < 1e-6 || wd > 360-1e-6, "circular mean of 350 and 10, got %v", wd)

	ws, _ = entries[1].Wind.Speed.Get()
	assert.Equal(t, 10.0, ws, "input is not modified")
}

func TestFixMaximaPositions(t *testing.T) {
	entries := []model.LogEntry{
		{Text: "Max wind 25kn"},
		{Text: "Start", Position: &model.Position{Longitude: model.Num(10), Latitude: model.Num(54)}},
		{Text: "Max speed 8.1kn"},
		{Text: "Reefed"},
	}
	out := FixMaximaPositions(entries)

	_, ok := out[0].Coord()
	assert.False(t, ok, "no earlier position")
	c, ok := out[2].Coord()
	require.True(t, ok)
	assert.Equal(t, 54.0, c.Lat)
	_, ok = out[3].Coord()
	assert.False(t, ok, "only maxima are backfilled")
	assert.Nil(t, entries[2].Position)
}

func TestMergeFile(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "2024-06-01.yml", `
- datetime: 2024-06-01T10:00:00Z
  text: "Course change: 90° → 100°"
- datetime: 2024-06-01T10:05:00Z
  text: "Course change: 90° → 110°"
  position: {lon: 11, lat: 55}
`)
	dst := filepath.Join(dir, "merged", "2024-06-01.yml")
	require.NoError(t, MergeFile(src, dst, MergeOptions{}))

	got, err := ReadFile(dst)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Course change: 90° → 110°", got[0].Text)
	c, ok := got[0].Coord()
	require.True(t, ok)
	assert.Equal(t, 55.0, c.Lat)

	// in place
	require.NoError(t, MergeFile(src, src, MergeOptions{}))
	got, err = ReadFile(src)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	assert.Empty(t, matches, "temp files cleaned up")
}

func TestMergeFile_KeepsUnmodelledKeys(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "2024-06-01.yml", `
- datetime: 2024-06-01T09:00:00Z
  text: Leaving harbour
  author: skipper
  position: {lon: 10, lat: 54}
  speed: {sog: "4.5"}
- datetime: 2024-06-01T10:00:00Z
  text: "Course change: 90° → 100°"
  author: skipper
  category: navigation
  wind: {speed: 10, direction: 350, gust: 14}
  maxSpeed: 6
- datetime: 2024-06-01T10:05:00Z
  text: "Course change: 90° → 110°"
  barometer: 1013
  position: {lon: 11, lat: 55}
  wind: {speed: 14, direction: 10}
  maxSpeed: 7.5
- datetime: sometime
  text: Max wind 25kn
  observations: [gusty]
`)

	read := func(path string) []map[string]any {
		t.Helper()
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var out []map[string]any
		require.NoError(t, yaml.Unmarshal(data, &out))
		return out
	}

	dst := filepath.Join(dir, "merged", "2024-06-01.yml")
	require.NoError(t, MergeFile(src, dst, MergeOptions{}))
	got := read(dst)
	require.Len(t, got, 3)

	first := got[0]
	assert.Equal(t, "skipper", first["author"])
	assert.Contains(t, first["position"], "lon")
	assert.Equal(t, map[string]any{"sog": "4.5"}, first["speed"], "numeric strings stay strings")

	merged := got[1]
	assert.Equal(t, "Course change: 90° → 110°", merged["text"])
	assert.Equal(t, "skipper", merged["author"])
	assert.Equal(t, "navigation", merged["category"])
	assert.NotContains(t, merged, "barometer", "only the first entry's keys are kept")
	assert.Equal(t, map[string]any{"lon": 11, "lat": 55}, merged["position"])
	assert.InDelta(t, 7.5, merged["maxSpeed"], 1e-9)
	wind, ok := merged["wind"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 12.0, wind["speed"], 1e-9)
	assert.Equal(t, 14, wind["gust"])
	var dirDeg float64
	switch v := wind["direction"].(type) {
	case float64:
		dirDeg = v
	case int:
		dirDeg = float64(v)
	}
	assert.True(t, dirDeg < 1e-6 || dirDeg > 360-1e-6, "circular mean of 350 and 10, got %v", dirDeg)

	last := got[2]
	assert.Equal(t, "sometime", last["datetime"], "unparsable timestamps are kept verbatim")
	assert.Equal(t, []any{"gusty"}, last["observations"])
	assert.NotContains(t, last, "position")

	require.NoError(t, MergeFile(src, dst, MergeOptions{FixMaximaPositions: true}))
	got = read(dst)
	require.Len(t, got, 3)
	pos, ok := got[2]["position"].(map[string]any)
	require.True(t, ok, "max entry gets the last known position")
	assert.InDelta(t, 11.0, pos["longitude"], 1e-9)
	assert.InDelta(t, 55.0, pos["latitude"], 1e-9)
	assert.Equal(t, []any{"gusty"}, got[2]["observations"])
}
