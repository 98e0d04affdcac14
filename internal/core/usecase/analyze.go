package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/kirillkom/mediscan/internal/core/domain"
	"github.com/kirillkom/mediscan/internal/core/ports"
)

// AnalysisDefaults carries the upstream magic defaults as configuration.
type AnalysisDefaults struct {
	Confidence    int
	FallbackSplit domain.FrequencySplit
}

// AnalyzeUseCase runs the four-stage identification pipeline: vision
// extraction, label resolution, summary synthesis, best-effort persistence.
// Only extraction failures abort a request; every later stage degrades.
type AnalyzeUseCase struct {
	extractor   ports.ImageExtractor
	labels      ports.LabelDatabase
	synthesizer ports.SummarySynthesizer
	searches    ports.SearchRecordStore
	history     ports.HistoryStore
	events      ports.EventPublisher
	defaults    AnalysisDefaults
}

func NewAnalyzeUseCase(
	extractor ports.ImageExtractor,
	labels ports.LabelDatabase,
	synthesizer ports.SummarySynthesizer,
	searches ports.SearchRecordStore,
	history ports.HistoryStore,
	events ports.EventPublisher,
	defaults AnalysisDefaults,
) *AnalyzeUseCase {
	if defaults.Confidence <= 0 {
		defaults.Confidence = domain.DefaultConfidence
	}
	return &AnalyzeUseCase{
		extractor:   extractor,
		labels:      labels,
		synthesizer: synthesizer,
		searches:    searches,
		history:     history,
		events:      events,
		defaults:    defaults,
	}
}

func (uc *AnalyzeUseCase) Analyze(ctx context.Context, image []byte, mimeType string, userID *string) (*domain.AnalysisOutcome, error) {
	attrs, err := uc.extractor.Extract(ctx, image, mimeType)
	if err != nil {
		return nil, fmt.Errorf("extract attributes: %w", err)
	}

	label := resolveLabel(ctx, uc.labels, attrs)

	summary, degraded := uc.synthesize(ctx, attrs, label)

	searchID := uc.persist(ctx, image, mimeType, userID, attrs, label, summary)

	uc.publish(ctx, searchID, attrs, label)

	return &domain.AnalysisOutcome{
		SearchID:        searchID,
		Extracted:       attrs,
		FDAData:         label,
		Summary:         summary,
		Confidence:      attrs.EffectiveConfidence(uc.defaults.Confidence),
		SummaryDegraded: degraded,
	}, nil
}

func (uc *AnalyzeUseCase) synthesize(ctx context.Context, attrs domain.ExtractedAttributes, label domain.LabelRecord) (domain.MedicineSummary, bool) {
	summary, err := uc.synthesizer.Synthesize(ctx, attrs, label)
	if err != nil {
		slog.Warn("summary_degraded",
			"medicine", attrs.MedicineName,
			"error", err,
		)
		summary = domain.FallbackSummary(attrs, uc.defaults.FallbackSplit)
		return domain.NormalizeSummary(summary, attrs), true
	}
	return domain.NormalizeSummary(summary, attrs), false
}

// persist writes the search record then the history entry. Either insert
// failing is logged and absorbed; the history entry is only attempted once
// the record insert returned an id.
func (uc *AnalyzeUseCase) persist(
	ctx context.Context,
	image []byte,
	mimeType string,
	userID *string,
	attrs domain.ExtractedAttributes,
	label domain.LabelRecord,
	summary domain.MedicineSummary,
) string {
	record := &domain.SearchRecord{
		UserID:     userID,
		Query:      attrs.MedicineName,
		SearchType: domain.SearchTypeImageUpload,
		Status:     domain.SearchStatusCompleted,
		ImageData:  encodeDataURL(image, mimeType),
		Results: domain.AnalysisResults{
			Extracted: attrs,
			FDAData:   label,
			Summary:   summary,
		},
	}

	searchID, err := uc.searches.Insert(ctx, record)
	if err != nil {
		slog.Error("search_record_persist_failed",
			"medicine", attrs.MedicineName,
			"error", err,
		)
		return ""
	}

	entry := &domain.HistoryEntry{
		UserID:         userID,
		SearchRecordID: searchID,
		MedicineName:   summary.Name,
		MedicineType:   attrs.Form,
		Confidence:     int(attrs.Confidence),
	}
	if entry.MedicineName == "" {
		entry.MedicineName = attrs.MedicineName
	}
	if err := uc.history.Insert(ctx, entry); err != nil {
		slog.Error("history_persist_failed",
			"search_id", searchID,
			"error", err,
		)
	}
	return searchID
}

func (uc *AnalyzeUseCase) publish(ctx context.Context, searchID string, attrs domain.ExtractedAttributes, label domain.LabelRecord) {
	if uc.events == nil || searchID == "" {
		return
	}
	event := domain.AnalysisCompleted{
		SearchID:         searchID,
		MedicineName:     attrs.MedicineName,
		ActiveIngredient: attrs.ActiveIngredient,
		LabelFound:       len(label) > 0,
	}
	if err := uc.events.PublishAnalysisCompleted(ctx, event); err != nil {
		slog.Warn("analysis_event_publish_failed",
			"search_id", searchID,
			"error", err,
		)
	}
}

func encodeDataURL(image []byte, mimeType string) string {
	if len(image) == 0 {
		return ""
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
}
