// Package store provides a SQLite-backed history of analysis runs.
// Only aggregate figures are stored; input logs are never written.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ralphopt/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// timeLayout is fixed-width so analyzed_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// History provides SQLite-backed run history.
type History struct {
	db *sql.DB
}

// Run is one saved analysis.
type Run struct {
	ID           int64
	AnalyzedAt   time.Time
	LogPath      string
	Iterations   int
	Sessions     int
	ErrorCount   int
	TotalCost    decimal.Decimal
	InputTokens  int64
	OutputTokens int64
	WasteTokens  int64
	Patterns     []PatternCount
}

// PatternCount is a pattern's headline figures within one run.
type PatternCount struct {
	Name        string
	Occurrences int
	WasteTokens int64
}

// Open opens or creates the history database at the given path.
func Open(dbPath string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the history database.
func (h *History) Close() error {
	return h.db.Close()
}

// RunFromAnalysis extracts the figures worth keeping from an analysis.
func RunFromAnalysis(a model.Analysis, at time.Time) Run {
	in, out := a.TotalTokens()
	r := Run{
		AnalyzedAt:   at,
		LogPath:      a.LogPath,
		Iterations:   len(a.Iterations),
		Sessions:     len(a.Results),
		ErrorCount:   a.ErrorCount(),
		TotalCost:    a.TotalCost(),
		InputTokens:  in,
		OutputTokens: out,
	}
	for _, p := range a.Patterns {
		r.WasteTokens += p.EstimatedWasteTokens
		r.Patterns = append(r.Patterns, PatternCount{
			Name:        p.Name,
			Occurrences: p.Occurrences,
			WasteTokens: p.EstimatedWasteTokens,
		})
	}
	return r
}

// Save stores a run and its patterns, returning the new run id.
func (h *History) Save(r Run) (int64, error) {
	tx, err := h.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`INSERT INTO runs
		(analyzed_at, log_path, iterations, sessions, error_count,
		 total_cost, input_tokens, output_tokens, waste_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.AnalyzedAt.UTC().Format(timeLayout), r.LogPath, r.Iterations, r.Sessions, r.ErrorCount,
		r.TotalCost.String(), r.InputTokens, r.OutputTokens, r.WasteTokens,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, p := range r.Patterns {
		_, err = tx.Exec(`INSERT INTO run_patterns (run_id, name, occurrences, waste_tokens)
			VALUES (?, ?, ?, ?)`, id, p.Name, p.Occurrences, p.WasteTokens)
		if err != nil {
			return 0, err
		}
	}

	return id, tx.Commit()
}

// Recent returns up to limit runs, newest first, with their patterns.
// A non-positive limit returns every run.
func (h *History) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.Query(`SELECT
		id, analyzed_at, log_path, iterations, sessions, error_count,
		total_cost, input_tokens, output_tokens, waste_tokens
		FROM runs ORDER BY analyzed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		var at, cost string
		err := rows.Scan(&r.ID, &at, &r.LogPath, &r.Iterations, &r.Sessions, &r.ErrorCount,
			&cost, &r.InputTokens, &r.OutputTokens, &r.WasteTokens)
		if err != nil {
			return nil, err
		}
		r.AnalyzedAt, _ = time.Parse(timeLayout, at)
		r.TotalCost, err = decimal.NewFromString(cost)
		if err != nil {
			return nil, fmt.Errorf("run %d: bad cost %q: %w", r.ID, cost, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Batch-load pattern rows
	runIdx := make(map[int64]int, len(runs))
	for i, r := range runs {
		runIdx[r.ID] = i
	}

	patternRows, err := h.db.Query(`SELECT run_id, name, occurrences, waste_tokens
		FROM run_patterns ORDER BY waste_tokens DESC, name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = patternRows.Close() }()

	for patternRows.Next() {
		var id int64
		var p PatternCount
		if err := patternRows.Scan(&id, &p.Name, &p.Occurrences, &p.WasteTokens); err != nil {
			return nil, err
		}
		if idx, ok := runIdx[id]; ok {
			runs[idx].Patterns = append(runs[idx].Patterns, p)
		}
	}

	return runs, patternRows.Err()
}

// Delete removes a run and its patterns.
func (h *History) Delete(id int64) error {
	_, err := h.db.Exec("DELETE FROM runs WHERE id = ?", id)
	return err
}

// Count returns the number of saved runs.
func (h *History) Count() (int, error) {
	var count int
	err := h.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	return count, err
}
