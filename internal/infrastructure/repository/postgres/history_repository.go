package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/mediscan/internal/core/domain"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Insert(ctx context.Context, entry *domain.HistoryEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	searchDate := entry.SearchDate
	if searchDate.IsZero() {
		searchDate = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO search_history (
	id, user_id, medicine_search_id, medicine_name, medicine_type, identification_confidence, search_date
) VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		id, entry.UserID, entry.SearchRecordID, entry.MedicineName,
		entry.MedicineType, entry.Confidence, searchDate,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	entry.ID = id
	entry.SearchDate = searchDate
	return nil
}

// Search matches medicine name or type case-insensitively, newest first.
// A nil userID searches across all users.
func (r *HistoryRepository) Search(ctx context.Context, query string, userID *string, limit int) ([]domain.HistoryEntry, error) {
	pattern := "%" + query + "%"

	var (
		rows *sql.Rows
		err  error
	)
	if userID != nil {
		rows, err = r.db.QueryContext(ctx, `
SELECT id, user_id, medicine_search_id, medicine_name, medicine_type, identification_confidence, search_date
FROM search_history
WHERE (medicine_name ILIKE $1 OR medicine_type ILIKE $1) AND user_id = $2
ORDER BY search_date DESC
LIMIT $3
`, pattern, *userID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, `
SELECT id, user_id, medicine_search_id, medicine_name, medicine_type, identification_confidence, search_date
FROM search_history
WHERE medicine_name ILIKE $1 OR medicine_type ILIKE $1
ORDER BY search_date DESC
LIMIT $2
`, pattern, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

func (r *HistoryRepository) ListByUser(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, medicine_search_id, medicine_name, medicine_type, identification_confidence, search_date
FROM search_history
WHERE user_id = $1
ORDER BY search_date DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list history by user: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

func scanHistoryRows(rows *sql.Rows) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		var medicineType sql.NullString
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.SearchRecordID, &entry.MedicineName,
			&medicineType, &entry.Confidence, &entry.SearchDate,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entry.MedicineType = medicineType.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
