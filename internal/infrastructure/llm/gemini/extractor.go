package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/mediscan/internal/core/domain"
	"github.com/kirillkom/mediscan/internal/jsonx"
)

// Extractor implements the vision extraction stage: one multimodal call, then
// a tolerant parse of the JSON the model was asked to embed.
type Extractor struct {
	client *Client
	opts   GenerationOptions
}

func NewExtractor(client *Client, opts GenerationOptions) *Extractor {
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 1000
	}
	return &Extractor{client: client, opts: opts}
}

func (e *Extractor) Extract(ctx context.Context, image []byte, mimeType string) (domain.ExtractedAttributes, error) {
	if len(image) == 0 {
		return domain.ExtractedAttributes{}, domain.WrapError(domain.ErrInvalidInput, "extract attributes", errors.New("empty image payload"))
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	parts := []part{
		{Text: extractionPrompt},
		{InlineData: &inlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(image),
		}},
	}

	text, err := e.client.generateContent(ctx, "extract", parts, e.opts)
	if err != nil {
		return domain.ExtractedAttributes{}, fmt.Errorf("vision model call: %w", err)
	}

	span, ok := jsonx.FirstObject(text)
	if !ok {
		return domain.ExtractedAttributes{}, domain.WrapError(domain.ErrExtractionFailed, "extract attributes", errors.New("no JSON object in model response"))
	}

	var attrs domain.ExtractedAttributes
	if err := json.Unmarshal([]byte(span), &attrs); err != nil {
		return domain.ExtractedAttributes{}, domain.WrapError(domain.ErrExtractionFailed, "extract attributes", fmt.Errorf("parse attributes json: %w", err))
	}
	if attrs.MedicineName == "" {
		return domain.ExtractedAttributes{}, domain.WrapError(domain.ErrExtractionFailed, "extract attributes", errors.New("model response lacks medicineName"))
	}
	return attrs, nil
}
