package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no conversion matches a lookup.
var ErrNotFound = errors.New("conversion not found")

const conversionColumns = `id, doc_hash, graph_name, ir_version, node_count, param_count, result_count, sink_count, opset_census, seq, created_at`

// GetByDocHash returns the most recent conversion of the document with
// the given hash, or ErrNotFound.
func (s *Store) GetByDocHash(ctx context.Context, docHash string) (Conversion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+conversionColumns+`
		FROM conversions
		WHERE doc_hash = ?
		ORDER BY seq DESC, id COLLATE BINARY ASC
		LIMIT 1
	`, docHash)

	rec, err := scanConversion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversion{}, ErrNotFound
	}
	if err != nil {
		return Conversion{}, fmt.Errorf("get by doc hash: %w", err)
	}
	return rec, nil
}

// ListConversions returns all conversion records in deterministic
// order: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListConversions(ctx context.Context) ([]Conversion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+conversionColumns+`
		FROM conversions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query conversions: %w", err)
	}
	defer rows.Close()

	recs := []Conversion{}
	for rows.Next() {
		rec, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversions: %w", err)
	}
	return recs, nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanConversion(sc scanner) (Conversion, error) {
	var rec Conversion
	err := sc.Scan(
		&rec.ID,
		&rec.DocHash,
		&rec.GraphName,
		&rec.IRVersion,
		&rec.NodeCount,
		&rec.ParamCount,
		&rec.ResultCount,
		&rec.SinkCount,
		&rec.OpsetCensus,
		&rec.Seq,
		&rec.CreatedAt,
	)
	return rec, err
}
