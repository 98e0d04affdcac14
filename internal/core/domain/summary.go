package domain

// DefaultFallbackSplit mirrors the split used when a synthesized summary had
// to be replaced wholesale.
var DefaultFallbackSplit = FrequencySplit{Common: 60, Uncommon: 30, Rare: 10}

// FallbackSummary builds a deterministic summary from the extracted
// attributes alone. Used whenever the synthesis model's output cannot be
// parsed; the pipeline must always have a summary to return.
func FallbackSummary(attrs ExtractedAttributes, split FrequencySplit) MedicineSummary {
	if split.Common <= 0 && split.Uncommon <= 0 && split.Rare <= 0 {
		split = DefaultFallbackSplit
	}
	return MedicineSummary{
		Name:             attrs.MedicineName,
		ActiveIngredient: attrs.ActiveIngredient,
		Strength:         attrs.Strength,
		Form:             attrs.Form,
		Description:      "Medicine information extracted from image analysis.",
		Uses:             []string{"Treatment information not available"},
		SideEffects: SideEffects{
			Common:      []string{},
			Serious:     []string{},
			Frequencies: split,
		},
		Warnings:     []string{"Consult healthcare provider before use"},
		Alternatives: []Alternative{},
	}
}

// NormalizeSummary guarantees the response-assembly contract: optional list
// fields are empty lists, never absent, and the name falls back to the
// extracted medicine name.
func NormalizeSummary(summary MedicineSummary, attrs ExtractedAttributes) MedicineSummary {
	if summary.Name == "" {
		summary.Name = attrs.MedicineName
	}
	if summary.ActiveIngredient == "" {
		summary.ActiveIngredient = attrs.ActiveIngredient
	}
	if summary.Uses == nil {
		summary.Uses = []string{}
	}
	if summary.Warnings == nil {
		summary.Warnings = []string{}
	}
	if summary.Alternatives == nil {
		summary.Alternatives = []Alternative{}
	}
	if summary.SideEffects.Common == nil {
		summary.SideEffects.Common = []string{}
	}
	if summary.SideEffects.Serious == nil {
		summary.SideEffects.Serious = []string{}
	}
	return summary
}

// Usable reports whether a parsed summary carries enough content to show to
// a user. An unusable summary is replaced by the deterministic fallback.
func (s MedicineSummary) Usable() bool {
	return s.Name != "" || s.Description != ""
}
