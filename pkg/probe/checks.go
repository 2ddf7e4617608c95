package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"voyagelog/pkg/logbook"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// LogbookDir fails when dir is missing or holds no daily log files.
func LogbookDir(dir string, patterns []string) CheckFunc {
	return func(ctx context.Context) error {
		files, err := logbook.Files(dir, patterns)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no daily log files in %s", dir)
		}
		return nil
	}
}

// Writable fails when a file cannot be created next to path.
// An empty path passes: the output is disabled.
func Writable(path string) CheckFunc {
	return func(ctx context.Context) error {
		if path == "" {
			return nil
		}
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		f, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return err
		}
		name := f.Name()
		return errors.Join(f.Close(), os.Remove(name))
	}
}

// Database pings the database.
func Database(db Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("database not initialized")
		}
		return db.PingContext(ctx)
	}
}
