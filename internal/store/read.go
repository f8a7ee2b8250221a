package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no translation has the requested id.
var ErrNotFound = errors.New("translation not found")

const selectColumns = `id, seq, mode, input_hash, input, output, joins, error_code, error_message`

// Latest returns up to limit translations, newest first.
// Returns an empty slice (not nil) when the log is empty.
func (s *Store) Latest(ctx context.Context, limit int) ([]Translation, error) {
	if limit <= 0 {
		return []Translation{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM translations
		ORDER BY seq DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}
	defer rows.Close()

	translations := []Translation{}
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		translations = append(translations, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return translations, nil
}

// Get returns the translation with the given id.
func (s *Store) Get(ctx context.Context, id string) (Translation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM translations
		WHERE id = ?
	`, id)
	t, err := scanTranslation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Translation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, err
}

// CountByHash returns how many translations were recorded for an input hash.
func (s *Store) CountByHash(ctx context.Context, hash string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM translations WHERE input_hash = ?`, hash).Scan(&n); err != nil {
		return 0, fmt.Errorf("count translations: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranslation(row rowScanner) (Translation, error) {
	var (
		t                     Translation
		output, code, message sql.NullString
	)
	err := row.Scan(&t.ID, &t.Seq, &t.Mode, &t.InputHash, &t.Input, &output, &t.Joins, &code, &message)
	if errors.Is(err, sql.ErrNoRows) {
		return Translation{}, err
	}
	if err != nil {
		return Translation{}, fmt.Errorf("scan translation: %w", err)
	}
	t.Output = output.String
	t.ErrorCode = code.String
	t.ErrorMessage = message.String
	return t, nil
}
