package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Record appends a translation to the log and returns it with Seq set.
// The seq is one past the highest seq in the log.
func (s *Store) Record(ctx context.Context, t Translation) (Translation, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO translations
		(id, seq, mode, input_hash, input, output, joins, error_code, error_message)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?, ?, ?
		FROM translations
		RETURNING seq
	`,
		t.ID,
		t.Mode,
		t.InputHash,
		t.Input,
		nullable(t.Output),
		t.Joins,
		nullable(t.ErrorCode),
		nullable(t.ErrorMessage),
	).Scan(&t.Seq)
	if err != nil {
		return Translation{}, fmt.Errorf("record translation: %w", err)
	}
	return t, nil
}

// nullable maps the empty string to NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
