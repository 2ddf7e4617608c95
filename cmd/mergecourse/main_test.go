package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyagelog/pkg/logbook"
)

const courseChanges = `
- datetime: 2024-06-01T10:00:00Z
  text: "Course change: 90° → 100°"
- datetime: 2024-06-01T10:05:00Z
  text: "Course change: 90° → 110°"
`

func setupDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]string
		args       func(dir string) []string
		wantCode   int
		wantOut    string
		mergedPath func(dir string) string
	}{
		{
			name:       "DefaultOutDir",
			files:      map[string]string{"2024-06-01.yml": courseChanges},
			args:       func(dir string) []string { return []string{dir} },
			wantCode:   exitOK,
			wantOut:    "Processed: 1; Failed: 0\n",
			mergedPath: func(dir string) string { return filepath.Join(dir, "merged", "2024-06-01.yml") },
		},
		{
			name:       "FlagsFirst",
			files:      map[string]string{"2024-06-01.yml": courseChanges},
			args:       func(dir string) []string { return []string{"-inplace", dir} },
			wantCode:   exitOK,
			wantOut:    "Processed: 1; Failed: 0\n",
			mergedPath: func(dir string) string { return filepath.Join(dir, "2024-06-01.yml") },
		},
		{
			name:  "CustomOutDir",
			files: map[string]string{"2024-06-01.yml": courseChanges},
			args: func(dir string) []string {
				return []string{dir, "-out-dir", filepath.Join(dir, "elsewhere")}
			},
			wantCode:   exitOK,
			wantOut:    "Processed: 1; Failed: 0\n",
			mergedPath: func(dir string) string { return filepath.Join(dir, "elsewhere", "2024-06-01.yml") },
		},
		{
			name: "BrokenFile",
			files: map[string]string{
				"2024-06-01.yml": courseChanges,
				"2024-06-02.yml": "not: a list\n",
			},
			args:     func(dir string) []string { return []string{dir} },
			wantCode: exitFailed,
			wantOut:  "Processed: 1; Failed: 1\n",
		},
		{
			name:     "NotADirectory",
			args:     func(dir string) []string { return []string{filepath.Join(dir, "missing")} },
			wantCode: exitUsage,
		},
		{
			name:     "NoArgs",
			args:     func(string) []string { return nil },
			wantCode: exitUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupDir(t, tt.files)
			var stdout, stderr bytes.Buffer

			code := run(tt.args(dir), &stdout, &stderr)
			assert.Equal(t, tt.wantCode, code, stderr.String())
			assert.Equal(t, tt.wantOut, stdout.String())

			if tt.mergedPath != nil {
				got, err := logbook.ReadFile(tt.mergedPath(dir))
				require.NoError(t, err)
				require.Len(t, got, 1)
				assert.Equal(t, "Course change: 90° → 110°", got[0].Text)
			}
		})
	}
}
