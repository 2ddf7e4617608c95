package logbook

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"voyagelog/pkg/export"
	"voyagelog/pkg/geo"
	"voyagelog/pkg/model"
)

var courseChangeRe = regexp.MustCompile(`Course change:\s*([0-9]+(?:\.[0-9]+)?)\s*[°º]?\s*(?:→|->)\s*([0-9]+(?:\.[0-9]+)?)`)

// ParseCourseChange extracts the from/to courses of a "Course change: X° → Y°" text.
func ParseCourseChange(text string) (from, to float64, ok bool) {
	m := courseChangeRe.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	from, errFrom := strconv.ParseFloat(m[1], 64)
	to, errTo := strconv.ParseFloat(m[2], 64)
	if errFrom != nil || errTo != nil {
		return 0, 0, false
	}
	return from, to, true
}

// MergeCourseChanges collapses runs of successive course changes that start
// from the same course into one entry. The merged entry keeps the first
// entry's fields, takes the final course and the last known position, the
// maxima of maxSpeed and maxWind, and averages wind speed and direction.
func MergeCourseChanges(entries []model.LogEntry) []model.LogEntry {
	out := make([]model.LogEntry, 0, len(entries))
	for _, g := range courseChangeGroups(entries) {
		out = append(out, mergeGroup(entries[g[0]:g[1]]))
	}
	return out
}

// courseChangeGroups splits entries into [start, end) spans. A span longer
// than one holds successive course changes sharing a starting course.
func courseChangeGroups(entries []model.LogEntry) [][2]int {
	var groups [][2]int
	for i := 0; i < len(entries); {
		from, _, ok := ParseCourseChange(entries[i].Text)
		j := i + 1
		for ok && j < len(entries) {
			next, _, nextOK := ParseCourseChange(entries[j].Text)
			if !nextOK || next != from {
				break
			}
			j++
		}
		groups = append(groups, [2]int{i, j})
		i = j
	}
	return groups
}

func mergeGroup(group []model.LogEntry) model.LogEntry {
	if len(group) == 1 {
		return group[0]
	}
	merged := group[0].Clone()
	last := group[len(group)-1]

	from, _, _ := ParseCourseChange(merged.Text)
	_, to, _ := ParseCourseChange(last.Text)
	merged.Text = "Course change: " + formatCourse(from) + "° → " + formatCourse(to) + "°"

	if last.Position != nil {
		p := *last.Position
		merged.Position = &p
	}

	var (
		maxSpeed, maxWind model.Number
		speeds, dirs      []float64
	)
	for i := range group {
		e := &group[i]
		maxSpeed = larger(maxSpeed, e.MaxSpeed)
		maxWind = larger(maxWind, e.MaxWind)
		if e.Wind == nil {
			continue
		}
		if v, ok := e.Wind.Speed.Get(); ok {
			speeds = append(speeds, v)
		}
		if v, ok := e.Wind.Direction.Get(); ok {
			dirs = append(dirs, v)
		}
	}
	if !maxSpeed.IsZero() {
		merged.MaxSpeed = maxSpeed
	}
	if !maxWind.IsZero() {
		merged.MaxWind = maxWind
	}

	if len(speeds) > 0 || len(dirs) > 0 {
		if merged.Wind == nil {
			merged.Wind = &model.Wind{}
		}
		if len(speeds) > 0 {
			merged.Wind.Speed = model.Num(stat.Mean(speeds, nil))
		}
		if mean, ok := geo.CircularMean(dirs); ok {
			merged.Wind.Direction = model.Num(mean)
		}
	}
	return merged
}

func larger(cur, n model.Number) model.Number {
	v, ok := n.Get()
	if !ok {
		return cur
	}
	if c, known := cur.Get(); known && c >= v {
		return cur
	}
	return n
}

// formatCourse prints a course without trailing zeros, 90 rather than 90.0.
func formatCourse(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FixMaximaPositions gives "max ..." entries recorded without a position the
// last known position before them.
func FixMaximaPositions(entries []model.LogEntry) []model.LogEntry {
	out := make([]model.LogEntry, len(entries))
	var last *model.Position
	for i := range entries {
		e := entries[i].Clone()
		if _, ok := e.Coord(); ok {
			p := *e.Position
			last = &p
		} else if last != nil && strings.Contains(strings.ToLower(e.Text), "max") {
			p := *last
			e.Position = &p
		}
		out[i] = e
	}
	return out
}

// MergeOptions controls MergeFile.
type MergeOptions struct {
	FixMaximaPositions bool
}

// MergeFile merges course changes in src and writes the result to dst.
// When dst equals src the file is replaced atomically.
//
// The file is edited as a YAML node tree: entries outside a merged group are
// written back untouched, and a merged entry keeps every key of the group's
// first entry except text, position, maxSpeed, maxWind and wind speed and
// direction.
func MergeFile(src, dst string, opts MergeOptions) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", src, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 || doc.Content[0].Tag == "!!null" {
		return export.WriteFileAtomic(dst, data)
	}
	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return fmt.Errorf("%s: %w", src, ErrNotList)
	}

	items := root.Content
	entries := make([]model.LogEntry, len(items))
	for i, item := range items {
		entries[i], _ = decodeItem(item)
	}

	if opts.FixMaximaPositions {
		fixed := FixMaximaPositions(entries)
		for i := range fixed {
			_, had := entries[i].Coord()
			if _, has := fixed[i].Coord(); has && !had {
				pos, err := valueNode(fixed[i].Position)
				if err != nil {
					return fmt.Errorf("failed to encode position in %s: %w", src, err)
				}
				setMappingValue(items[i], "position", pos)
			}
		}
		entries = fixed
	}

	out := make([]*yaml.Node, 0, len(items))
	for _, g := range courseChangeGroups(entries) {
		if g[1]-g[0] == 1 {
			out = append(out, items[g[0]])
			continue
		}
		node, err := mergeGroupNode(items[g[0]:g[1]], mergeGroup(entries[g[0]:g[1]]))
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", src, err)
		}
		out = append(out, node)
	}
	root.Content = out

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode %s: %w", src, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode %s: %w", src, err)
	}
	return export.WriteFileAtomic(dst, buf.Bytes())
}

// mergeGroupNode copies the first item of a group and overwrites the keys
// that merging changes with the values of merged.
func mergeGroupNode(items []*yaml.Node, merged model.LogEntry) (*yaml.Node, error) {
	node := cloneNode(items[0])

	text, err := valueNode(merged.Text)
	if err != nil {
		return nil, err
	}
	setMappingValue(node, "text", text)

	if pos := mappingValue(items[len(items)-1], "position"); pos != nil {
		setMappingValue(node, "position", cloneNode(pos))
	}

	fields := []struct {
		key string
		n   model.Number
	}{
		{"maxSpeed", merged.MaxSpeed},
		{"maxWind", merged.MaxWind},
	}
	for _, f := range fields {
		v, ok := f.n.Get()
		if !ok {
			continue
		}
		vn, err := valueNode(v)
		if err != nil {
			return nil, err
		}
		setMappingValue(node, f.key, vn)
	}

	if merged.Wind == nil {
		return node, nil
	}
	speed, speedOK := merged.Wind.Speed.Get()
	dir, dirOK := merged.Wind.Direction.Get()
	if !speedOK && !dirOK {
		return node, nil
	}
	wind := mappingValue(node, "wind")
	if wind == nil || wind.Kind != yaml.MappingNode {
		wind = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		setMappingValue(node, "wind", wind)
	}
	if speedOK {
		vn, err := valueNode(speed)
		if err != nil {
			return nil, err
		}
		setMappingValue(wind, "speed", vn)
	}
	if dirOK {
		vn, err := valueNode(dir)
		if err != nil {
			return nil, err
		}
		setMappingValue(wind, "direction", vn)
	}
	return node, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func setMappingValue(m *yaml.Node, key string, v *yaml.Node) {
	if m.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = v
			return
		}
	}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, v)
}

func valueNode(v any) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return &n, nil
}

func cloneNode(n *yaml.Node) *yaml.Node {
	c := *n
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child)
		}
	}
	return &c
}
