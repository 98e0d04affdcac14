package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DefaultConfidence is reported when the vision model omits or zeroes the
// confidence field.
const DefaultConfidence = 85

const (
	SearchTypeImageUpload = "image_upload"
	SearchStatusCompleted = "completed"
)

// Confidence is an integer 0-100. The vision model sometimes returns it as a
// quoted string, so decoding is tolerant of both forms.
type Confidence int

func (c *Confidence) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*c = 0
		return nil
	}
	raw := string(data)
	if raw[0] == '"' {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return err
		}
		raw = strings.TrimSpace(unquoted)
		if raw == "" {
			*c = 0
			return nil
		}
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*c = Confidence(parsed)
	return nil
}

// ExtractedAttributes is the structured output of the vision extraction stage.
// MedicineName is the only required field; everything else is best effort.
type ExtractedAttributes struct {
	MedicineName     string     `json:"medicineName"`
	ActiveIngredient string     `json:"activeIngredient,omitempty"`
	Strength         string     `json:"strength,omitempty"`
	Form             string     `json:"form,omitempty"`
	Manufacturer     string     `json:"manufacturer,omitempty"`
	Color            string     `json:"color,omitempty"`
	Shape            string     `json:"shape,omitempty"`
	Markings         string     `json:"markings,omitempty"`
	Packaging        string     `json:"packaging,omitempty"`
	Confidence       Confidence `json:"confidence,omitempty"`
}

// EffectiveConfidence applies the default when the model omitted the field.
func (a ExtractedAttributes) EffectiveConfidence(fallback int) int {
	if a.Confidence <= 0 {
		return fallback
	}
	return int(a.Confidence)
}

// LabelRecord is the raw drug-label document returned by the label database.
// The pipeline never inspects its internals, it is attached and forwarded
// verbatim.
type LabelRecord = json.RawMessage

type FrequencySplit struct {
	Common   int `json:"common"`
	Uncommon int `json:"uncommon"`
	Rare     int `json:"rare"`
}

type SideEffects struct {
	Common      []string       `json:"common"`
	Serious     []string       `json:"serious"`
	Frequencies FrequencySplit `json:"frequencies"`
}

type Alternative struct {
	Name             string `json:"name"`
	ActiveIngredient string `json:"activeIngredient"`
	Reason           string `json:"reason"`
}

// MedicineSummary is the lay-readable synthesis returned to the caller.
type MedicineSummary struct {
	Name               string        `json:"name"`
	Brand              string        `json:"brand,omitempty"`
	ActiveIngredient   string        `json:"activeIngredient,omitempty"`
	Strength           string        `json:"strength,omitempty"`
	Form               string        `json:"form,omitempty"`
	Description        string        `json:"description"`
	Uses               []string      `json:"uses"`
	DosageInstructions string        `json:"dosageInstructions,omitempty"`
	SideEffects        SideEffects   `json:"sideEffects"`
	Warnings           []string      `json:"warnings"`
	Manufacturer       string        `json:"manufacturer,omitempty"`
	FDAStatus          string        `json:"fdaStatus,omitempty"`
	Alternatives       []Alternative `json:"alternatives"`
}

// AnalysisResults is the composite document persisted with a search record.
// FDAData stays an explicit null when no label matched.
type AnalysisResults struct {
	Extracted ExtractedAttributes `json:"extracted"`
	FDAData   LabelRecord         `json:"fda_data"`
	Summary   MedicineSummary     `json:"summary"`
}

// SearchRecord is one persisted identification run. Append-only, never
// mutated after insert except for late label backfill.
type SearchRecord struct {
	ID         string          `json:"id"`
	UserID     *string         `json:"user_id"`
	Query      string          `json:"query"`
	SearchType string          `json:"search_type"`
	Status     string          `json:"status"`
	ImageData  string          `json:"image_data,omitempty"`
	Results    AnalysisResults `json:"results"`
	CreatedAt  time.Time       `json:"created_at"`
}

// HistoryEntry is the denormalized lookup row written after a search record.
// SearchRecordID is a weak reference, relation only.
type HistoryEntry struct {
	ID             string    `json:"id"`
	UserID         *string   `json:"user_id"`
	SearchRecordID string    `json:"medicine_search_id"`
	MedicineName   string    `json:"medicine_name"`
	MedicineType   string    `json:"medicine_type"`
	Confidence     int       `json:"identification_confidence"`
	SearchDate     time.Time `json:"search_date"`
}

// HistoryResult is a history row optionally joined with its full search
// results for the history search endpoint.
type HistoryResult struct {
	HistoryEntry
	Results *AnalysisResults `json:"results,omitempty"`
}

// AnalysisOutcome is what analyze() hands back to the caller. SearchID is
// empty when persistence was unavailable. SummaryDegraded marks a run whose
// summary is the deterministic fallback rather than synthesized text.
type AnalysisOutcome struct {
	SearchID        string              `json:"searchId,omitempty"`
	Extracted       ExtractedAttributes `json:"extracted"`
	FDAData         LabelRecord         `json:"fdaData"`
	Summary         MedicineSummary     `json:"summary"`
	Confidence      int                 `json:"confidence"`
	SummaryDegraded bool                `json:"-"`
}

// AnalysisCompleted is the event published after a finished run so the
// backfill worker can revisit records that missed label data.
type AnalysisCompleted struct {
	SearchID         string `json:"search_id"`
	MedicineName     string `json:"medicine_name"`
	ActiveIngredient string `json:"active_ingredient,omitempty"`
	LabelFound       bool   `json:"label_found"`
}
