package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	if err := row.Scan(&r.ID, &r.Seq, &r.Source, &r.Config); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}

// ListRuns returns every run ordered by seq.
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, source, config
		FROM runs
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns the run with the given id, or ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT id, seq, source, config FROM runs WHERE id = ?`, id))
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ReadGenerations returns every generation of a run in pass order, with
// snapshots, traces and diagnostics.
func (s *Store) ReadGenerations(ctx context.Context, runID string) ([]Generation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, pass, hash, type_count, snapshot
		FROM generations
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
	}

	gens := []Generation{}
	for rows.Next() {
		var g Generation
		var snap string
		if err := rows.Scan(&g.RunID, &g.Seq, &g.Pass, &g.Hash, &g.TypeCount, &snap); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		g.Snapshot = []byte(snap)
		gens = append(gens, g)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate generations: %w", err)
	}

	// Queried after rows is closed: the pool holds a single connection.
	for i := range gens {
		if gens[i].Trace, err = s.readTrace(ctx, runID, gens[i].Seq); err != nil {
			return nil, err
		}
		if gens[i].Diagnostics, err = s.readDiagnostics(ctx, runID, gens[i].Seq); err != nil {
			return nil, err
		}
	}
	return gens, nil
}

// ReadSnapshot returns the canonical snapshot of one generation.
func (s *Store) ReadSnapshot(ctx context.Context, runID string, seq int) ([]byte, error) {
	var snap string
	err := s.db.QueryRowContext(ctx, `
		SELECT snapshot FROM generations WHERE run_id = ? AND seq = ?
	`, runID, seq).Scan(&snap)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read snapshot %s/%d: %w", runID, seq, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s/%d: %w", runID, seq, err)
	}
	return []byte(snap), nil
}

// FindByHash lists the generations, across all runs, whose content hash is
// hash. Ordered by run seq then generation seq; snapshots are left out.
func (s *Store) FindByHash(ctx context.Context, hash string) ([]Generation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.run_id, g.seq, g.pass, g.hash, g.type_count
		FROM generations g
		JOIN runs r ON r.id = g.run_id
		WHERE g.hash = ?
		ORDER BY r.seq ASC, g.seq ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query generations by hash: %w", err)
	}
	defer rows.Close()

	gens := []Generation{}
	for rows.Next() {
		var g Generation
		if err := rows.Scan(&g.RunID, &g.Seq, &g.Pass, &g.Hash, &g.TypeCount); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		gens = append(gens, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generations: %w", err)
	}
	return gens, nil
}

func (s *Store) readTrace(ctx context.Context, runID string, gen int) ([]Reconstitution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT old_ref, new_ref, kind, replaced
		FROM reconstitutions
		WHERE run_id = ? AND generation_seq = ?
		ORDER BY seq ASC
	`, runID, gen)
	if err != nil {
		return nil, fmt.Errorf("query reconstitutions: %w", err)
	}
	defer rows.Close()

	trace := []Reconstitution{}
	for rows.Next() {
		var r Reconstitution
		var replaced int
		if err := rows.Scan(&r.Old, &r.New, &r.Kind, &replaced); err != nil {
			return nil, fmt.Errorf("scan reconstitution: %w", err)
		}
		r.Replaced = replaced != 0
		trace = append(trace, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconstitutions: %w", err)
	}
	return trace, nil
}

func (s *Store) readDiagnostics(ctx context.Context, runID string, gen int) ([]Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pass, code, severity, message
		FROM diagnostics
		WHERE run_id = ? AND generation_seq = ?
		ORDER BY seq ASC
	`, runID, gen)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	diags := []Diagnostic{}
	for rows.Next() {
		var d Diagnostic
		if err := rows.Scan(&d.Pass, &d.Code, &d.Severity, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return diags, nil
}
