package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/mediscan/internal/core/domain"
)

type SearchRepository struct {
	db *sql.DB
}

func NewSearchRepository(db *sql.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Insert writes one search record and returns the store-assigned id.
func (r *SearchRepository) Insert(ctx context.Context, record *domain.SearchRecord) (string, error) {
	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	resultsJSON, err := json.Marshal(record.Results)
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO medicine_searches (
	id, user_id, query, search_type, status, image_data, results, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		id, record.UserID, record.Query, record.SearchType, record.Status,
		record.ImageData, resultsJSON, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert search record: %w", err)
	}

	record.ID = id
	record.CreatedAt = createdAt
	return id, nil
}

func (r *SearchRepository) GetByID(ctx context.Context, id string) (*domain.SearchRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, query, search_type, status, image_data, results, created_at
FROM medicine_searches
WHERE id = $1
`, id)

	record, err := scanSearchRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get search record", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return record, nil
}

// GetResultsByIDs fetches the results documents for a set of record ids.
// Missing ids are simply absent from the map.
func (r *SearchRepository) GetResultsByIDs(ctx context.Context, ids []string) (map[string]domain.AnalysisResults, error) {
	out := make(map[string]domain.AnalysisResults, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
SELECT id, results
FROM medicine_searches
WHERE id IN (%s)
`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select results by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan results row: %w", err)
		}
		var results domain.AnalysisResults
		if err := json.Unmarshal(raw, &results); err != nil {
			return nil, fmt.Errorf("unmarshal results for %s: %w", id, err)
		}
		out[id] = results
	}
	return out, rows.Err()
}

// SearchByQuery matches records by original query text, newest first. Serves
// the history-search fallback when no denormalized history row matched.
func (r *SearchRepository) SearchByQuery(ctx context.Context, query string, limit int) ([]domain.SearchRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, query, search_type, status, image_data, results, created_at
FROM medicine_searches
WHERE query ILIKE $1
ORDER BY created_at DESC
LIMIT $2
`, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search records by query: %w", err)
	}
	defer rows.Close()

	var records []domain.SearchRecord
	for rows.Next() {
		record, err := scanSearchRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// ListMissingLabel returns recent records whose results carry no label data,
// newest first. Used by the backfill sweep.
func (r *SearchRepository) ListMissingLabel(ctx context.Context, since time.Time, limit int) ([]domain.SearchRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, query, search_type, status, image_data, results, created_at
FROM medicine_searches
WHERE results->'fda_data' = 'null'::jsonb
  AND created_at >= $1
ORDER BY created_at DESC
LIMIT $2
`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("select label-less records: %w", err)
	}
	defer rows.Close()

	var records []domain.SearchRecord
	for rows.Next() {
		record, err := scanSearchRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// AttachLabel sets results.fda_data on an existing record.
func (r *SearchRepository) AttachLabel(ctx context.Context, id string, label domain.LabelRecord) error {
	if len(label) == 0 {
		return fmt.Errorf("attach label: empty label document")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE medicine_searches
SET results = jsonb_set(results, '{fda_data}', $2::jsonb)
WHERE id = $1
`, id, []byte(label))
	if err != nil {
		return fmt.Errorf("attach label: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach label rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "attach label", fmt.Errorf("id %s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSearchRecord(row rowScanner) (*domain.SearchRecord, error) {
	var record domain.SearchRecord
	var imageData sql.NullString
	var raw []byte

	err := row.Scan(
		&record.ID, &record.UserID, &record.Query, &record.SearchType,
		&record.Status, &imageData, &raw, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan search record: %w", err)
	}

	record.ImageData = imageData.String
	if err := json.Unmarshal(raw, &record.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	return &record, nil
}
