package usecase

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/mediscan/internal/core/domain"
)

func TestHistorySearchEmptyQuery(t *testing.T) {
	uc := NewHistoryUseCase(&historyStoreFake{}, &searchStoreFake{}, 20)

	results, err := uc.Search(context.Background(), "   ", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("empty query must return an empty list, got %#v", results)
	}
}

func TestHistorySearchJoinsDetails(t *testing.T) {
	history := &historyStoreFake{searchEntries: []domain.HistoryEntry{
		{ID: "h-1", SearchRecordID: "s-1", MedicineName: "Tylenol"},
		{ID: "h-2", SearchRecordID: "s-missing", MedicineName: "Advil"},
	}}
	searches := &searchStoreFake{results: map[string]domain.AnalysisResults{
		"s-1": {Summary: domain.MedicineSummary{Name: "Tylenol", Description: "Pain reliever."}},
	}}
	uc := NewHistoryUseCase(history, searches, 20)

	results, err := uc.Search(context.Background(), "tyl", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both history rows, got %d", len(results))
	}
	if results[0].Results == nil || results[0].Results.Summary.Name != "Tylenol" {
		t.Fatalf("first row should carry joined results, got %#v", results[0].Results)
	}
	if results[1].Results != nil {
		t.Fatal("row without a matching search record must have nil results")
	}
}

func TestHistorySearchFallsBackToRecords(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	searches := &searchStoreFake{byQuery: []domain.SearchRecord{{
		ID:        "s-9",
		Query:     "Aspirin",
		CreatedAt: created,
		Results: domain.AnalysisResults{
			Extracted: domain.ExtractedAttributes{MedicineName: "Aspirin", Form: "tablet", Confidence: 88},
		},
	}}}
	uc := NewHistoryUseCase(&historyStoreFake{}, searches, 20)

	results, err := uc.Search(context.Background(), "aspirin", nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one fallback result, got %d", len(results))
	}
	got := results[0]
	if got.SearchRecordID != "s-9" || got.MedicineName != "Aspirin" || got.MedicineType != "tablet" {
		t.Fatalf("fallback row not built from the record: %+v", got.HistoryEntry)
	}
	if got.Confidence != 88 {
		t.Fatalf("expected extracted confidence 88, got %d", got.Confidence)
	}
	if got.Results == nil {
		t.Fatal("fallback row must carry the full results")
	}
	if !got.SearchDate.Equal(created) {
		t.Fatalf("expected record creation time, got %v", got.SearchDate)
	}
}

func TestHistoryExportWritesWorkbook(t *testing.T) {
	history := &historyStoreFake{userEntries: []domain.HistoryEntry{
		{
			SearchRecordID: "s-1",
			MedicineName:   "Tylenol",
			MedicineType:   "tablet",
			Confidence:     90,
			SearchDate:     time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		},
	}}
	uc := NewHistoryUseCase(history, &searchStoreFake{}, 20)

	var buf bytes.Buffer
	if err := uc.Export(context.Background(), "u-1", &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	book, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("exported bytes are not a workbook: %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows("History")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(rows))
	}
	if rows[0][0] != "Medicine" {
		t.Fatalf("unexpected header row %v", rows[0])
	}
	if rows[1][0] != "Tylenol" || rows[1][1] != "tablet" {
		t.Fatalf("unexpected data row %v", rows[1])
	}
}
