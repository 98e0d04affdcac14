// Package gemini adapts the Gemini generateContent API to the extraction and
// synthesis ports.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/mediscan/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// GenerationOptions bound randomness and output length per call site.
type GenerationOptions struct {
	Temperature     float64
	MaxOutputTokens int
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generateContent sends one request and returns the first candidate's text.
func (c *Client) generateContent(ctx context.Context, operation string, parts []part, opts GenerationOptions) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	payload := generateRequest{
		Contents:         []content{{Parts: parts}},
		GenerationConfig: generationConfig(opts),
	}

	var response generateResponse
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, endpoint, payload, &response, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "gemini."+operation, call, classifyGeminiError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, err)
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini %s: empty candidate response", operation)
	}
	return strings.TrimSpace(response.Candidates[0].Content.Parts[0].Text), nil
}
