package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/flowport/flowport/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// SaveRun archives one migration run. Saving the same run id twice replaces
// the previous row.
func (s *LibSQLStore) SaveRun(ctx context.Context, run *Run) error {
	doc, err := json.Marshal(run.Document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	rep, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, process_id, source_name, feasibility_score, complexity, document, report, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   process_id=excluded.process_id, source_name=excluded.source_name,
		   feasibility_score=excluded.feasibility_score, complexity=excluded.complexity,
		   document=excluded.document, report=excluded.report`,
		run.ID, run.ProcessID, nullStr(run.SourceName), run.FeasibilityScore,
		string(run.Complexity), string(doc), string(rep), timeOrNow(run.CreatedAt),
	)
	return err
}

// GetRun loads one archived run by id.
func (s *LibSQLStore) GetRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{}
	var (
		sourceName       sql.NullString
		complexity       string
		docJSON, repJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, process_id, source_name, feasibility_score, complexity, document, report, created_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.ProcessID, &sourceName, &run.FeasibilityScore,
		&complexity, &docJSON, &repJSON, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("run", id)
	}
	if err != nil {
		return nil, err
	}

	run.SourceName = sourceName.String
	run.Complexity = schema.ComplexityLevel(complexity)
	if err := json.Unmarshal([]byte(docJSON), &run.Document); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if err := json.Unmarshal([]byte(repJSON), &run.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return run, nil
}

// ListRuns returns archived runs newest-first, optionally filtered.
func (s *LibSQLStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ProcessID != "" {
		conds = append(conds, "process_id = ?")
		args = append(args, filter.ProcessID)
	}
	if filter.Complexity != "" {
		conds = append(conds, "complexity = ?")
		args = append(args, string(filter.Complexity))
	}

	query := `SELECT id, process_id, source_name, feasibility_score, complexity, document, report, created_at FROM runs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var (
			sourceName       sql.NullString
			complexity       string
			docJSON, repJSON string
		)
		if err := rows.Scan(&run.ID, &run.ProcessID, &sourceName, &run.FeasibilityScore,
			&complexity, &docJSON, &repJSON, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.SourceName = sourceName.String
		run.Complexity = schema.ComplexityLevel(complexity)
		if err := json.Unmarshal([]byte(docJSON), &run.Document); err != nil {
			return nil, fmt.Errorf("unmarshal document for %s: %w", run.ID, err)
		}
		if err := json.Unmarshal([]byte(repJSON), &run.Report); err != nil {
			return nil, fmt.Errorf("unmarshal report for %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes one archived run.
func (s *LibSQLStore) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "run", id)
}

// --- helpers ---

func storeNotFound(kind, id string) error {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", kind, id)
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(kind, id)
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

var _ Store = (*LibSQLStore)(nil)
