package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/mediscan/internal/core/domain"
	"github.com/kirillkom/mediscan/internal/core/ports"
)

// HistoryUseCase serves past-identification lookups: denormalized history
// search with a detail join, a direct record fallback, and XLSX export.
type HistoryUseCase struct {
	history  ports.HistoryStore
	searches ports.SearchRecordStore
	limit    int
}

func NewHistoryUseCase(history ports.HistoryStore, searches ports.SearchRecordStore, limit int) *HistoryUseCase {
	if limit <= 0 {
		limit = 20
	}
	return &HistoryUseCase{
		history:  history,
		searches: searches,
		limit:    limit,
	}
}

func (uc *HistoryUseCase) Search(ctx context.Context, query string, userID *string) ([]domain.HistoryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.HistoryResult{}, nil
	}

	entries, err := uc.history.Search(ctx, query, userID, uc.limit)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	if len(entries) > 0 {
		return uc.joinDetails(ctx, entries)
	}

	// No denormalized rows matched; fall back to the raw search records so
	// older data is still discoverable.
	records, err := uc.searches.SearchByQuery(ctx, query, uc.limit/2)
	if err != nil {
		return nil, fmt.Errorf("search records by query: %w", err)
	}

	results := make([]domain.HistoryResult, 0, len(records))
	for _, record := range records {
		record := record
		results = append(results, domain.HistoryResult{
			HistoryEntry: domain.HistoryEntry{
				ID:             record.ID,
				UserID:         record.UserID,
				SearchRecordID: record.ID,
				MedicineName:   record.Results.Extracted.MedicineName,
				MedicineType:   record.Results.Extracted.Form,
				Confidence:     int(record.Results.Extracted.Confidence),
				SearchDate:     record.CreatedAt,
			},
			Results: &record.Results,
		})
	}
	return results, nil
}

func (uc *HistoryUseCase) joinDetails(ctx context.Context, entries []domain.HistoryEntry) ([]domain.HistoryResult, error) {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.SearchRecordID != "" {
			ids = append(ids, entry.SearchRecordID)
		}
	}

	details, err := uc.searches.GetResultsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch search details: %w", err)
	}

	results := make([]domain.HistoryResult, 0, len(entries))
	for _, entry := range entries {
		result := domain.HistoryResult{HistoryEntry: entry}
		if detail, ok := details[entry.SearchRecordID]; ok {
			detail := detail
			result.Results = &detail
		}
		results = append(results, result)
	}
	return results, nil
}

func (uc *HistoryUseCase) GetSearch(ctx context.Context, id string) (*domain.SearchRecord, error) {
	return uc.searches.GetByID(ctx, id)
}

// Export writes the user's history as an XLSX workbook.
func (uc *HistoryUseCase) Export(ctx context.Context, userID string, w io.Writer) error {
	entries, err := uc.history.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	book := excelize.NewFile()
	defer book.Close()

	const sheet = "History"
	if err := book.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headers := []any{"Medicine", "Type", "Confidence", "Search Date", "Search ID"}
	if err := book.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	for i, entry := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row coordinates: %w", err)
		}
		row := []any{
			entry.MedicineName,
			entry.MedicineType,
			entry.Confidence,
			entry.SearchDate.Format("2006-01-02 15:04"),
			entry.SearchRecordID,
		}
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := book.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
