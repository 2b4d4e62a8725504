package store

import (
	"context"
	"fmt"
)

// CreateRun records a new run and assigns it the next seq.
// Creating a run with an existing id returns the stored run unchanged.
func (s *Store) CreateRun(ctx context.Context, id, source string, config map[string]any) (Run, error) {
	configJSON, err := marshalConfig(config)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("create run: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, source, config)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, source, configJSON)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}

	run, err := scanRun(tx.QueryRowContext(ctx, `SELECT id, seq, source, config FROM runs WHERE id = ?`, id))
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("create run: commit: %w", err)
	}
	return run, nil
}

// WriteGeneration stores a generation with its trace and diagnostics in
// one transaction. The run must exist (foreign key constraint).
// Writing the same (run, seq) twice is a no-op.
func (s *Store) WriteGeneration(ctx context.Context, gen Generation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write generation: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO generations (run_id, seq, pass, hash, type_count, snapshot)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, gen.RunID, gen.Seq, gen.Pass, gen.Hash, gen.TypeCount, string(gen.Snapshot))
	if err != nil {
		return fmt.Errorf("write generation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	for i, r := range gen.Trace {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reconstitutions (run_id, generation_seq, seq, old_ref, new_ref, kind, replaced)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, gen.RunID, gen.Seq, i, r.Old, r.New, r.Kind, boolToInt(r.Replaced))
		if err != nil {
			return fmt.Errorf("write reconstitution %d: %w", i, err)
		}
	}

	for i, d := range gen.Diagnostics {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO diagnostics (run_id, generation_seq, seq, pass, code, severity, message)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, gen.RunID, gen.Seq, i, d.Pass, d.Code, d.Severity, d.Message)
		if err != nil {
			return fmt.Errorf("write diagnostic %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write generation: commit: %w", err)
	}
	return nil
}
