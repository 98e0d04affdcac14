package ports

import (
	"context"
	"time"

	"github.com/kirillkom/mediscan/internal/core/domain"
)

// ImageExtractor turns an image into structured medicine attributes via the
// vision model.
type ImageExtractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (domain.ExtractedAttributes, error)
}

// LabelDatabase is the external drug-label lookup. Both methods return a nil
// record when the query matched nothing; that is a normal outcome, not an
// error.
type LabelDatabase interface {
	FindByBrand(ctx context.Context, term string) (domain.LabelRecord, error)
	FindByGeneric(ctx context.Context, term string) (domain.LabelRecord, error)
}

// SummarySynthesizer produces the lay-readable summary from attributes plus
// optional label data. Any error, transport or parse, is absorbed by the
// orchestrator with a deterministic fallback.
type SummarySynthesizer interface {
	Synthesize(ctx context.Context, attrs domain.ExtractedAttributes, label domain.LabelRecord) (domain.MedicineSummary, error)
}

// SearchRecordStore persists completed identification runs.
type SearchRecordStore interface {
	Insert(ctx context.Context, record *domain.SearchRecord) (string, error)
	GetByID(ctx context.Context, id string) (*domain.SearchRecord, error)
	GetResultsByIDs(ctx context.Context, ids []string) (map[string]domain.AnalysisResults, error)
	SearchByQuery(ctx context.Context, query string, limit int) ([]domain.SearchRecord, error)
	ListMissingLabel(ctx context.Context, since time.Time, limit int) ([]domain.SearchRecord, error)
	AttachLabel(ctx context.Context, id string, label domain.LabelRecord) error
}

// HistoryStore persists the denormalized lookup history.
type HistoryStore interface {
	Insert(ctx context.Context, entry *domain.HistoryEntry) error
	Search(ctx context.Context, query string, userID *string, limit int) ([]domain.HistoryEntry, error)
	ListByUser(ctx context.Context, userID string) ([]domain.HistoryEntry, error)
}

// EventPublisher emits analysis lifecycle events, best effort.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, event domain.AnalysisCompleted) error
}

// EventSubscriber consumes analysis lifecycle events.
type EventSubscriber interface {
	SubscribeAnalysisCompleted(ctx context.Context, handler func(context.Context, domain.AnalysisCompleted) error) error
}
