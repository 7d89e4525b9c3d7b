package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PutConversion records a successful conversion and returns the
// assigned record. The sequence number is allocated inside a
// transaction so concurrent writers never interleave.
//
// A document converted twice yields two rows: the cache is a log, not
// a dedupe table. Readers pick the latest row by sequence.
func (s *Store) PutConversion(ctx context.Context, rec Conversion) (Conversion, error) {
	if rec.DocHash == "" {
		return Conversion{}, fmt.Errorf("put conversion: empty document hash")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Conversion{}, fmt.Errorf("put conversion: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Next seq: logical clock, never wall time.
	var maxSeq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM conversions`,
	).Scan(&maxSeq); err != nil {
		return Conversion{}, fmt.Errorf("put conversion: next seq: %w", err)
	}
	rec.Seq = maxSeq + 1

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversions
		(id, doc_hash, graph_name, ir_version, node_count, param_count, result_count, sink_count, opset_census, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.DocHash,
		rec.GraphName,
		rec.IRVersion,
		rec.NodeCount,
		rec.ParamCount,
		rec.ResultCount,
		rec.SinkCount,
		rec.OpsetCensus,
		rec.Seq,
	); err != nil {
		return Conversion{}, fmt.Errorf("put conversion: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Conversion{}, fmt.Errorf("put conversion: commit: %w", err)
	}

	// CreatedAt is assigned by the database default.
	if err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM conversions WHERE id = ?`, rec.ID,
	).Scan(&rec.CreatedAt); err != nil {
		return Conversion{}, fmt.Errorf("put conversion: read back: %w", err)
	}
	return rec, nil
}
