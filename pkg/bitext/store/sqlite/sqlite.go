package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/counts"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/internalerr"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// counterColumns are the runs table columns holding counts, one per counter.
var counterColumns = func() []string {
	fields := counts.Counts{}.Fields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return cols
}()

const runColumns = "id, dataset, src_lang, tgt_lang, src_digest, tgt_digest, started_at, finished_at"

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	var b strings.Builder
	b.WriteString(`
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	dataset TEXT NOT NULL,
	src_lang TEXT NOT NULL DEFAULT '',
	tgt_lang TEXT NOT NULL DEFAULT '',
	src_digest TEXT NOT NULL DEFAULT '',
	tgt_digest TEXT NOT NULL DEFAULT '',
	started_at TEXT,
	finished_at TEXT`)
	for _, col := range counterColumns {
		fmt.Fprintf(&b, ",\n\t%s INTEGER NOT NULL DEFAULT 0", col)
	}
	b.WriteString(`
);

CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset);
CREATE INDEX IF NOT EXISTS idx_runs_langs ON runs(src_lang, tgt_lang);
`)
	_, err := db.ExecContext(ctx, b.String())
	return err
}

// PutRun inserts or replaces a run record.
func (s *sqliteStore) PutRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is required", internalerr.ErrInvalidInput)
	}

	cols := runColumns + ", " + strings.Join(counterColumns, ", ")
	n := 8 + len(counterColumns)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", n), ", ")

	args := []any{
		r.ID, r.Dataset, r.SrcLang, r.TgtLang, r.SrcDigest, r.TgtDigest,
		formatTime(r.StartedAt), formatTime(r.FinishedAt),
	}
	for _, f := range r.Counts.Fields() {
		args = append(args, f.Value)
	}

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR REPLACE INTO runs (%s) VALUES (%s)`, cols, placeholders),
		args...)
	if err != nil {
		return fmt.Errorf("put run %s: %w", r.ID, err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s, %s FROM runs WHERE id = ?`, runColumns, strings.Join(counterColumns, ", ")),
		id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return r, err
}

// ListRuns returns matching runs ordered by ID.
func (s *sqliteStore) ListRuns(ctx context.Context, f store.RunFilter) ([]store.Run, error) {
	where, args := whereClause(f)
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s, %s FROM runs%s ORDER BY id LIMIT ?`, runColumns, strings.Join(counterColumns, ", "), where),
		append(args, limitArg(f))...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Totals sums every counter over the matching runs.
func (s *sqliteStore) Totals(ctx context.Context, f store.RunFilter) (counts.Counts, error) {
	sums := make([]string, len(counterColumns))
	for i, col := range counterColumns {
		sums[i] = fmt.Sprintf("COALESCE(SUM(%s), 0)", col)
	}
	where, args := whereClause(f)
	query := fmt.Sprintf(`SELECT %s FROM (SELECT * FROM runs%s ORDER BY id LIMIT ?)`, strings.Join(sums, ", "), where)

	values := make([]int64, len(counterColumns))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := s.db.QueryRowContext(ctx, query, append(args, limitArg(f))...).Scan(dest...); err != nil {
		return counts.Counts{}, err
	}
	return countsFrom(values), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (store.Run, error) {
	var (
		r                 store.Run
		started, finished sql.NullString
	)
	values := make([]int64, len(counterColumns))
	dest := []any{&r.ID, &r.Dataset, &r.SrcLang, &r.TgtLang, &r.SrcDigest, &r.TgtDigest, &started, &finished}
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := sc.Scan(dest...); err != nil {
		return store.Run{}, err
	}

	r.StartedAt = parseTime(started.String)
	r.FinishedAt = parseTime(finished.String)
	r.Counts = countsFrom(values)
	return r, nil
}

func countsFrom(values []int64) counts.Counts {
	fields := make([]counts.Field, len(values))
	for i, v := range values {
		fields[i] = counts.Field{Name: counterColumns[i], Value: v}
	}
	return counts.FromFields(fields)
}

func whereClause(f store.RunFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Dataset != "" {
		conds = append(conds, "dataset = ?")
		args = append(args, f.Dataset)
	}
	if f.SrcLang != "" {
		conds = append(conds, "src_lang = ?")
		args = append(args, f.SrcLang)
	}
	if f.TgtLang != "" {
		conds = append(conds, "tgt_lang = ?")
		args = append(args, f.TgtLang)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// limitArg maps "no limit" to SQLite's LIMIT -1.
func limitArg(f store.RunFilter) int {
	if f.Limit <= 0 {
		return -1
	}
	return f.Limit
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
