package classifier

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyagelog/pkg/config"
	"voyagelog/pkg/geo"
	"voyagelog/pkg/model"
)

var day = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type pointSpec struct {
	at       time.Duration // offset from midnight of day
	lon, lat float64
	noPos    bool
	sog      *float64
	wind     *float64
	text     string
}

func kn(v float64) *float64 { return &v }

func build(specs ...pointSpec) []model.VoyagePoint {
	points := make([]model.VoyagePoint, len(specs))
	for i, s := range specs {
		e := model.LogEntry{
			Datetime: model.NewTimestamp(day.Add(s.at)),
			Text:     s.text,
		}
		if !s.noPos {
			e.Position = &model.Position{Longitude: model.Num(s.lon), Latitude: model.Num(s.lat)}
		}
		if s.sog != nil {
			e.Speed = &model.Speed{SOG: model.Num(*s.sog)}
		}
		if s.wind != nil {
			e.Wind = &model.Wind{Speed: model.Num(*s.wind)}
		}
		points[i] = model.NewVoyagePoint(e)
	}
	return points
}

func activities(points []model.VoyagePoint) []model.Activity {
	out := make([]model.Activity, len(points))
	for i := range points {
		out[i] = points[i].Activity
	}
	return out
}

const (
	A = model.ActivityAnchored
	M = model.ActivityMotoring
	S = model.ActivitySailing
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		points []model.VoyagePoint
		want   []model.Activity
	}{
		{
			name: "FirstPointAlwaysAnchored",
			points: build(
				pointSpec{at: 8 * time.Hour, lat: 0, sog: kn(6), wind: kn(15)},
				pointSpec{at: 9 * time.Hour, lat: 0.1, sog: kn(6), wind: kn(15)},
				pointSpec{at: 10 * time.Hour, lat: 0.2, sog: kn(6), wind: kn(15)},
			),
			want: []model.Activity{A, S, S},
		},
		{
			name: "NearAnchorIsMotoring",
			points: build(
				pointSpec{at: 8 * time.Hour, lat: 0, sog: kn(0)},
				pointSpec{at: 9 * time.Hour, lat: 0.005, sog: kn(3), wind: kn(15)},
				pointSpec{at: 10 * time.Hour, lat: 0.1, sog: kn(6), wind: kn(15)},
			),
			want: []model.Activity{A, M, S},
		},
		{
			name: "FastInLightWindIsMotoring",
			points: build(
				pointSpec{at: 8 * time.Hour, lat: 0, sog: kn(0)},
				pointSpec{at: 9 * time.Hour, lat: 0.1, sog: kn(6), wind: kn(5)},
				pointSpec{at: 10 * time.Hour, lat: 0.2, sog: kn(6), wind: kn(15)},
			),
			want: []model.Activity{A, M, S},
		},
		{
			name: "UnknownWindIsNotMotorsailing",
			points: build(
				pointSpec{at: 8 * time.Hour, lat: 0, sog: kn(0)},
				pointSpec{at: 9 * time.Hour, lat: 0.1, sog: kn(6)},
				pointSpec{at: 10 * time.Hour, lat: 0.2, sog: kn(6)},
			),
			want: []model.Activity{A, S, S},
		},
		{
			name: "LongSilenceAnchors",
			points: build(
				pointSpec{at: 8 * time.Hour, lat: 0, sog: kn(0)},
				pointSpec{at: 9 * time.Hour, lat: 0.1, sog: kn(0.5)},
				pointSpec{at: 14 * time.Hour, lat: 0.2, sog: kn(6)},
			),
			want: []model.Activity{A, A, S},
		},
		{
			name: "GapOfExactlyFourHoursDoesNotAnchor",
			points: build(
				pointSpec{at: 8 * time.Hour, lat: 0, sog: kn(0)},
				pointSpec{at: 9 * time.Hour, lat: 0.1, sog: kn(0.5)},
				pointSpec{at: 13 * time.Hour, lat: 0.2, sog: kn(6)},
			),
			want: []model.Activity{A, S, S},
		},
		{
			name: "DayBreakAnchorsSlowPoint",
			points: build(
				pointSpec{at: 20 * time.Hour, lat: 0, sog: kn(0)},
				pointSpec{at: 23*time.Hour + 30*time.Minute, lat: 0.1, sog: kn(0.4)},
				pointSpec{at: 24*time.Hour + 30*time.Minute, lat: 0.2, sog: kn(6)},
			),
			want: []model.Activity{A, A, S},
		},
		{
			name: "SlowTailAnchoredBackwards",
			points: build(
				pointSpec{at: 8 * time.Hour, lat: 0, sog: kn(0)},
				pointSpec{at: 9 * time.Hour, lat: 0.1, sog: kn(5)},
				pointSpec{at: 10 * time.Hour, lat: 0.2, sog: kn(5)},
				pointSpec{at: 10*time.Hour + 30*time.Minute, lat: 0.202, sog: kn(0.3)},
			),
			want: []model.Activity{A, S, A, A},
		},
		{
			name: "StoppedTextAnchors",
			points: build(
				pointSpec{at: 8 * time.Hour, lat: 0, sog: kn(0)},
				pointSpec{at: 9 * time.Hour, lat: 0.1, sog: kn(5), text: "Stopped to fix the furler"},
				pointSpec{at: 10 * time.Hour, lat: 0.2, sog: kn(5)},
			),
			want: []model.Activity{A, A, S},
		},
		{
			name: "UnpositionedPointFollowsAnchor",
			points: build(
				pointSpec{at: 8 * time.Hour, lat: 0, sog: kn(0)},
				pointSpec{at: 8*time.Hour + 30*time.Minute, noPos: true, sog: kn(5)},
				pointSpec{at: 9 * time.Hour, lat: 0.1, sog: kn(5)},
				pointSpec{at: 10 * time.Hour, lat: 0.2, sog: kn(5)},
			),
			want: []model.Activity{A, A, S, S},
		},
		{
			name: "SinglePoint",
			points: build(
				pointSpec{at: 8 * time.Hour, lat: 0, sog: kn(7)},
			),
			want: []model.Activity{A},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Classify(tt.points, DefaultThresholds())
			assert.Equal(t, tt.want, activities(tt.points))
		})
	}
}

func TestClassify_DistanceFromAnchor(t *testing.T) {
	points := build(
		pointSpec{at: 8 * time.Hour, lat: 0, sog: kn(0)},
		pointSpec{at: 9 * time.Hour, lat: 0.1, sog: kn(6)},
		pointSpec{at: 10 * time.Hour, lat: 0.2, sog: kn(6)},
	)
	Classify(points, DefaultThresholds())

	leg := geo.DistanceNM(geo.Point{Lat: 0}, geo.Point{Lat: 0.1})
	assert.Equal(t, 0.0, points[0].DistanceFromAnchor)
	assert.InDelta(t, leg, points[1].DistanceFromAnchor, 1e-9)
	assert.InDelta(t, 2*leg, points[2].DistanceFromAnchor, 1e-9)

	for i := range points {
		require.NotNil(t, points[i].Entry.DistanceFromAnchor, "mirrored onto entry")
		assert.Equal(t, points[i].DistanceFromAnchor, *points[i].Entry.DistanceFromAnchor)
		assert.Equal(t, points[i].Activity, points[i].Entry.Activity)
	}
}

func TestClassify_NeverSailingNearAnchor(t *testing.T) {
	var specs []pointSpec
	for i := 0; i < 40; i++ {
		specs = append(specs, pointSpec{
			at:   8*time.Hour + time.Duration(i)*10*time.Minute,
			lat:  float64(i%7) * 0.004,
			lon:  float64(i%5) * 0.003,
			sog:  kn(float64(i % 8)),
			wind: kn(float64(i % 20)),
		})
	}
	points := build(specs...)
	th := DefaultThresholds()
	Classify(points, th)

	for i := range points {
		if points[i].DistanceFromAnchor <= th.NearAnchorNM {
			assert.NotEqual(t, S, points[i].Activity, "point %d", i)
		}
	}
	assert.Equal(t, A, points[0].Activity)
}

func TestSeedAnchors_MoveThresholdInclusive(t *testing.T) {
	points := build(
		pointSpec{at: 8 * time.Hour, lat: 0, sog: kn(0)},
		pointSpec{at: 9 * time.Hour, lat: 0.004, sog: kn(5)},
		pointSpec{at: 10 * time.Hour, lat: 0.1, sog: kn(5)},
	)
	th := DefaultThresholds()
	th.MoveNM = geo.DistanceNM(geo.Point{Lat: 0}, geo.Point{Lat: 0.004})

	flags := SeedAnchors(points, th)
	assert.Equal(t, []bool{true, true, false}, flags)

	th.MoveNM -= 1e-6
	flags = SeedAnchors(points, th)
	assert.Equal(t, []bool{true, false, false}, flags)
}

func TestCorrectTrailing_DoesNotMutateInput(t *testing.T) {
	points := build(
		pointSpec{at: 8 * time.Hour, lat: 0, sog: kn(0)},
		pointSpec{at: 9 * time.Hour, lat: 0.1, sog: kn(0.2)},
	)
	flags := []bool{true, false}
	out := CorrectTrailing(points, flags, DefaultThresholds())

	assert.Equal(t, []bool{true, false}, flags)
	assert.Equal(t, []bool{true, true}, out)
}

func TestClassify_Empty(t *testing.T) {
	assert.NotPanics(t, func() {
		Classify(nil, DefaultThresholds())
	})
}

func TestFromConfig(t *testing.T) {
	assert.Equal(t, DefaultThresholds(), FromConfig(config.DefaultConfig().Classifier))
}

func TestMarkStopGaps(t *testing.T) {
	points := build(
		pointSpec{at: 8 * time.Hour, lat: 0},
		pointSpec{at: 9 * time.Hour, lat: 0.1, text: "Stopped at the pier"},
		pointSpec{at: 10 * time.Hour, lat: 0.1},
		pointSpec{at: 11 * time.Hour, lat: 0.1, text: "Sailing again"},
		pointSpec{at: 12 * time.Hour, lat: 0.2},
		pointSpec{at: 13 * time.Hour, lat: 0.3, text: "stopped for the night"},
		pointSpec{at: 14 * time.Hour, lat: 0.3},
	)
	MarkStopGaps(points)

	type flags struct{ toNext, fromPrev bool }
	got := func() []flags {
		out := make([]flags, len(points))
		for i := range points {
			out[i] = flags{points[i].SkipConnectionToNext, points[i].SkipConnectionFromPrev}
		}
		return out
	}

	want := []flags{
		{false, false},
		{true, false},
		{true, true},
		{false, true},
		{false, false},
		{true, false},
		{false, true},
	}
	first := got()
	if diff := cmp.Diff(want, first, cmp.AllowUnexported(flags{})); diff != "" {
		t.Errorf("stop gap flags mismatch (-want +got):\n%s", diff)
	}

	MarkStopGaps(points)
	if diff := cmp.Diff(first, got(), cmp.AllowUnexported(flags{})); diff != "" {
		t.Errorf("second pass changed flags (-first +second):\n%s", diff)
	}
}

func TestMarkStopGaps_StoppedWinsOverSailing(t *testing.T) {
	points := build(
		pointSpec{at: 8 * time.Hour, text: "Sailing stopped, engine on"},
		pointSpec{at: 9 * time.Hour},
	)
	MarkStopGaps(points)
	assert.True(t, points[0].SkipConnectionToNext)
	assert.True(t, points[1].SkipConnectionFromPrev)
}
