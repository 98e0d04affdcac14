package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/mediscan/internal/core/domain"
	"github.com/kirillkom/mediscan/internal/core/ports"
)

// BackfillUseCase retries label resolution for completed analyses that got
// no label match. Driven by analysis events and a periodic sweep; it only
// fills gaps, never refreshes an existing match.
type BackfillUseCase struct {
	searches ports.SearchRecordStore
	labels   ports.LabelDatabase
	window   time.Duration
	batch    int
}

func NewBackfillUseCase(searches ports.SearchRecordStore, labels ports.LabelDatabase, window time.Duration, batch int) *BackfillUseCase {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if batch <= 0 {
		batch = 20
	}
	return &BackfillUseCase{
		searches: searches,
		labels:   labels,
		window:   window,
		batch:    batch,
	}
}

func (uc *BackfillUseCase) BackfillRecord(ctx context.Context, event domain.AnalysisCompleted) error {
	if event.LabelFound {
		return nil
	}

	attrs := domain.ExtractedAttributes{
		MedicineName:     event.MedicineName,
		ActiveIngredient: event.ActiveIngredient,
	}
	label := resolveLabel(ctx, uc.labels, attrs)
	if label == nil {
		slog.Debug("backfill_no_match", "search_id", event.SearchID)
		return nil
	}

	if err := uc.searches.AttachLabel(ctx, event.SearchID, label); err != nil {
		return fmt.Errorf("attach backfilled label: %w", err)
	}
	slog.Info("label_backfilled", "search_id", event.SearchID, "medicine", event.MedicineName)
	return nil
}

// Sweep re-resolves recent label-less records and reports how many it
// filled. Individual failures are logged and skipped so one bad record
// cannot stall the batch.
func (uc *BackfillUseCase) Sweep(ctx context.Context) (int, error) {
	since := time.Now().UTC().Add(-uc.window)
	records, err := uc.searches.ListMissingLabel(ctx, since, uc.batch)
	if err != nil {
		return 0, fmt.Errorf("list label-less records: %w", err)
	}

	filled := 0
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return filled, err
		}

		label := resolveLabel(ctx, uc.labels, record.Results.Extracted)
		if label == nil {
			continue
		}
		if err := uc.searches.AttachLabel(ctx, record.ID, label); err != nil {
			slog.Error("backfill_attach_failed", "search_id", record.ID, "error", err)
			continue
		}
		filled++
	}

	slog.Info("backfill_sweep_done", "scanned", len(records), "filled", filled)
	return filled, nil
}
