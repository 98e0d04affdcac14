package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/kirillkom/mediscan/internal/core/domain"
)

type extractorFake struct {
	attrs domain.ExtractedAttributes
	err   error
	calls int
}

func (f *extractorFake) Extract(context.Context, []byte, string) (domain.ExtractedAttributes, error) {
	f.calls++
	if f.err != nil {
		return domain.ExtractedAttributes{}, f.err
	}
	return f.attrs, nil
}

type labelResponse struct {
	record domain.LabelRecord
	err    error
}

type labelDBFake struct {
	brand   map[string]labelResponse
	generic map[string]labelResponse

	brandCalls   []string
	genericCalls []string
}

func (f *labelDBFake) FindByBrand(_ context.Context, term string) (domain.LabelRecord, error) {
	f.brandCalls = append(f.brandCalls, term)
	resp := f.brand[term]
	return resp.record, resp.err
}

func (f *labelDBFake) FindByGeneric(_ context.Context, term string) (domain.LabelRecord, error) {
	f.genericCalls = append(f.genericCalls, term)
	resp := f.generic[term]
	return resp.record, resp.err
}

type synthesizerFake struct {
	summary domain.MedicineSummary
	err     error
	calls   int
}

func (f *synthesizerFake) Synthesize(context.Context, domain.ExtractedAttributes, domain.LabelRecord) (domain.MedicineSummary, error) {
	f.calls++
	if f.err != nil {
		return domain.MedicineSummary{}, f.err
	}
	return f.summary, nil
}

type searchStoreFake struct {
	insertErr   error
	insertCalls int
	inserted    *domain.SearchRecord

	records map[string]*domain.SearchRecord
	results map[string]domain.AnalysisResults

	byQuery []domain.SearchRecord

	missingLabel []domain.SearchRecord

	attachErr   error
	attachCalls map[string]domain.LabelRecord
}

func (f *searchStoreFake) Insert(_ context.Context, record *domain.SearchRecord) (string, error) {
	f.insertCalls++
	if f.insertErr != nil {
		return "", f.insertErr
	}
	record.ID = "search-1"
	record.CreatedAt = time.Now().UTC()
	copied := *record
	f.inserted = &copied
	return record.ID, nil
}

func (f *searchStoreFake) GetByID(_ context.Context, id string) (*domain.SearchRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get search record", errors.New(id))
	}
	return record, nil
}

func (f *searchStoreFake) GetResultsByIDs(_ context.Context, ids []string) (map[string]domain.AnalysisResults, error) {
	out := map[string]domain.AnalysisResults{}
	for _, id := range ids {
		if results, ok := f.results[id]; ok {
			out[id] = results
		}
	}
	return out, nil
}

func (f *searchStoreFake) SearchByQuery(context.Context, string, int) ([]domain.SearchRecord, error) {
	return f.byQuery, nil
}

func (f *searchStoreFake) ListMissingLabel(context.Context, time.Time, int) ([]domain.SearchRecord, error) {
	return f.missingLabel, nil
}

func (f *searchStoreFake) AttachLabel(_ context.Context, id string, label domain.LabelRecord) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	if f.attachCalls == nil {
		f.attachCalls = map[string]domain.LabelRecord{}
	}
	f.attachCalls[id] = label
	return nil
}

type historyStoreFake struct {
	insertErr   error
	insertCalls int
	inserted    *domain.HistoryEntry

	searchEntries []domain.HistoryEntry
	userEntries   []domain.HistoryEntry
}

func (f *historyStoreFake) Insert(_ context.Context, entry *domain.HistoryEntry) error {
	f.insertCalls++
	if f.insertErr != nil {
		return f.insertErr
	}
	entry.ID = "history-1"
	copied := *entry
	f.inserted = &copied
	return nil
}

func (f *historyStoreFake) Search(context.Context, string, *string, int) ([]domain.HistoryEntry, error) {
	return f.searchEntries, nil
}

func (f *historyStoreFake) ListByUser(context.Context, string) ([]domain.HistoryEntry, error) {
	return f.userEntries, nil
}

type eventsFake struct {
	err    error
	events []domain.AnalysisCompleted
}

func (f *eventsFake) PublishAnalysisCompleted(_ context.Context, event domain.AnalysisCompleted) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}
