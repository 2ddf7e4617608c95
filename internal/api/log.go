package api

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"voyagelog/pkg/logging"
)

// key=value or key="value with spaces"
var logRegex = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

const maxParamLen = 20

// LogLine is the last captured server log line in display form.
type LogLine struct {
	Level string `json:"level,omitempty"`
	Log   string `json:"log"`
}

func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, formatLogLine(logging.GlobalLogCapture.GetLastLine()))
}

// formatLogLine turns a slog text line into "HH:MM:SS msg (k=v, k=v)".
// Params are sorted; values longer than maxParamLen are dropped.
func formatLogLine(raw string) LogLine {
	matches := logRegex.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return LogLine{Log: raw}
	}

	var (
		line    LogLine
		msg     string
		timeStr string
		params  []string
	)
	for _, m := range matches {
		key, val := m[1], m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				timeStr = t.Format("15:04:05")
			}
		case "level":
			line.Level = val
		case "msg":
			msg = val
		default:
			if len(val) <= maxParamLen {
				params = append(params, fmt.Sprintf("%s=%s", key, val))
			}
		}
	}

	if msg == "" {
		return LogLine{Log: raw}
	}
	sort.Strings(params)

	out := msg
	if timeStr != "" {
		out = timeStr + " " + msg
	}
	if len(params) > 0 {
		out = fmt.Sprintf("%s (%s)", out, strings.Join(params, ", "))
	}
	line.Log = out
	return line
}
