package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/mediscan/internal/core/domain"
	"github.com/kirillkom/mediscan/internal/jsonx"
)

// Synthesizer implements the summary synthesis stage. Errors from it are
// never fatal to a request; the orchestrator substitutes a deterministic
// fallback summary.
type Synthesizer struct {
	client *Client
	opts   GenerationOptions
}

func NewSynthesizer(client *Client, opts GenerationOptions) *Synthesizer {
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 2000
	}
	return &Synthesizer{client: client, opts: opts}
}

func (s *Synthesizer) Synthesize(ctx context.Context, attrs domain.ExtractedAttributes, label domain.LabelRecord) (domain.MedicineSummary, error) {
	parts := []part{{Text: buildSummaryPrompt(attrs, label)}}

	text, err := s.client.generateContent(ctx, "summarize", parts, s.opts)
	if err != nil {
		return domain.MedicineSummary{}, fmt.Errorf("summary model call: %w", err)
	}

	span, ok := jsonx.FirstObject(text)
	if !ok {
		return domain.MedicineSummary{}, errors.New("no JSON object in summary response")
	}

	var summary domain.MedicineSummary
	if err := json.Unmarshal([]byte(span), &summary); err != nil {
		return domain.MedicineSummary{}, fmt.Errorf("parse summary json: %w", err)
	}
	if !summary.Usable() {
		return domain.MedicineSummary{}, errors.New("summary response has no name or description")
	}
	return summary, nil
}
