package ports

import (
	"context"
	"io"

	"github.com/kirillkom/mediscan/internal/core/domain"
)

// MedicineAnalyzer is the inbound contract for the image identification
// pipeline.
type MedicineAnalyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string, userID *string) (*domain.AnalysisOutcome, error)
}

// HistoryService is the inbound contract for past-identification lookups.
type HistoryService interface {
	Search(ctx context.Context, query string, userID *string) ([]domain.HistoryResult, error)
	GetSearch(ctx context.Context, id string) (*domain.SearchRecord, error)
	Export(ctx context.Context, userID string, w io.Writer) error
}

// LabelBackfiller retries label resolution for records that completed
// without label data. Sweep reports how many records it filled.
type LabelBackfiller interface {
	BackfillRecord(ctx context.Context, event domain.AnalysisCompleted) error
	Sweep(ctx context.Context) (int, error)
}
