package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kirillkom/mediscan/internal/core/domain"
	"github.com/kirillkom/mediscan/internal/core/ports"
)

// labelCandidates builds the ordered brand-name search terms: exact name,
// active ingredient, then name plus strength. Empty terms are dropped,
// priority order is preserved.
func labelCandidates(attrs domain.ExtractedAttributes) []string {
	candidates := []string{
		attrs.MedicineName,
		attrs.ActiveIngredient,
		strings.TrimSpace(attrs.MedicineName + " " + attrs.Strength),
	}

	out := candidates[:0]
	for _, term := range candidates {
		if term != "" {
			out = append(out, term)
		}
	}
	return out
}

// resolveLabel tries each candidate term in order against the brand-name
// index and takes the first hit. A failed candidate is logged and skipped,
// never fatal. When every brand candidate misses, one generic-name lookup by
// active ingredient is attempted. A nil return means no label data, which is
// an expected outcome.
func resolveLabel(ctx context.Context, labels ports.LabelDatabase, attrs domain.ExtractedAttributes) domain.LabelRecord {
	for _, term := range labelCandidates(attrs) {
		record, err := labels.FindByBrand(ctx, term)
		if err != nil {
			slog.Warn("label_lookup_degraded",
				"term", term,
				"field", "brand_name",
				"error", err,
			)
			continue
		}
		if record != nil {
			slog.Info("label_found", "term", term, "field", "brand_name")
			return record
		}
	}

	if attrs.ActiveIngredient == "" {
		return nil
	}

	record, err := labels.FindByGeneric(ctx, attrs.ActiveIngredient)
	if err != nil {
		slog.Warn("label_lookup_degraded",
			"term", attrs.ActiveIngredient,
			"field", "generic_name",
			"error", err,
		)
		return nil
	}
	if record != nil {
		slog.Info("label_found", "term", attrs.ActiveIngredient, "field", "generic_name")
	}
	return record
}
