package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"voyagelog/pkg/db"
	"voyagelog/pkg/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// State keys written by the pipeline.
const (
	StateLastGenerated  = "last_generated"
	StateLogFingerprint = "log_fingerprint"
)

const sqliteTime = "2006-01-02 15:04:05"

// Store defines the repository interface.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	VoyageStore
	PolarStore
	RunStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Voyages ---

// ReplaceVoyages swaps the whole voyage table in one transaction.
// Voyage bodies are stored as gzipped JSON.
func (s *SQLiteStore) ReplaceVoyages(ctx context.Context, voyages []model.Voyage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM voyages"); err != nil {
		return fmt.Errorf("failed to clear voyages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO voyages (id, seq, start_time, end_time, distance, data) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range voyages {
		v := &voyages[i]
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode voyage %s: %w", v.ID, err)
		}
		data, err := compress(raw)
		if err != nil {
			return fmt.Errorf("failed to compress voyage %s: %w", v.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, v.ID, i, v.StartTime.String(), v.EndTime.String(), v.Distance, data); err != nil {
			return fmt.Errorf("failed to insert voyage %s: %w", v.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListVoyages(ctx context.Context) ([]model.Voyage, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM voyages ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	voyages := make([]model.Voyage, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		v, err := decodeVoyage(data)
		if err != nil {
			return nil, err
		}
		voyages = append(voyages, *v)
	}
	return voyages, rows.Err()
}

func (s *SQLiteStore) GetVoyage(ctx context.Context, id string) (*model.Voyage, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM voyages WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeVoyage(data)
}

func decodeVoyage(data []byte) (*model.Voyage, error) {
	// Transparent Decompression
	if len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b {
		raw, err := decompress(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress voyage: %w", err)
		}
		data = raw
	}
	var v model.Voyage
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode voyage: %w", err)
	}
	return &v, nil
}

// --- Polar ---

func (s *SQLiteStore) ReplacePolar(ctx context.Context, points []model.PolarPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM polar_points"); err != nil {
		return fmt.Errorf("failed to clear polar points: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO polar_points (twa, stw, sog, tws, aws) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, nullable(p.TWA), nullable(p.STW), nullable(p.SOG), nullable(p.TWS), nullable(p.AWS)); err != nil {
			return fmt.Errorf("failed to insert polar point: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListPolar(ctx context.Context) ([]model.PolarPoint, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT twa, stw, sog, tws, aws FROM polar_points ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]model.PolarPoint, 0)
	for rows.Next() {
		var twa, stw, sog, tws, aws sql.NullFloat64
		if err := rows.Scan(&twa, &stw, &sog, &tws, &aws); err != nil {
			return nil, err
		}
		points = append(points, model.PolarPoint{
			TWA: ptr(twa), STW: ptr(stw), SOG: ptr(sog), TWS: ptr(tws), AWS: ptr(aws),
		})
	}
	return points, rows.Err()
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func ptr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// --- Runs ---

func (s *SQLiteStore) RecordRun(ctx context.Context, r Run) error {
	query := `INSERT INTO runs (started_at, finished_at, files, files_failed, entries, voyages, polar_points, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		r.StartedAt.UTC().Format(sqliteTime), r.FinishedAt.UTC().Format(sqliteTime),
		r.Files, r.FilesFailed, r.Entries, r.Voyages, r.PolarPoints, r.Error)
	return err
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT started_at, finished_at, files, files_failed, entries, voyages, polar_points, error
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			r                 Run
			started, finished string
			errText           sql.NullString
		)
		if err := rows.Scan(&started, &finished, &r.Files, &r.FilesFailed, &r.Entries, &r.Voyages, &r.PolarPoints, &errText); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(sqliteTime, started)
		r.FinishedAt, _ = time.Parse(sqliteTime, finished)
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- Compression Pooling ---

var (
	// Pool for gzip writers to reuse flate state
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
