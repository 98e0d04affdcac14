// Package fda queries the openFDA drug-label database by exact field match.
package fda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/mediscan/internal/core/domain"
	"github.com/kirillkom/mediscan/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		executor:   executor,
	}
}

// FindByBrand looks up one label document by exact brand name. A nil record
// means no match, which is a normal outcome.
func (c *Client) FindByBrand(ctx context.Context, term string) (domain.LabelRecord, error) {
	return c.lookup(ctx, "openfda.brand_name", term)
}

// FindByGeneric looks up one label document by generic/active-ingredient name.
func (c *Client) FindByGeneric(ctx context.Context, term string) (domain.LabelRecord, error) {
	return c.lookup(ctx, "openfda.generic_name", term)
}

func (c *Client) lookup(ctx context.Context, field, term string) (domain.LabelRecord, error) {
	params := url.Values{}
	params.Set("search", fmt.Sprintf("%s:%q", field, term))
	params.Set("limit", "1")
	endpoint := c.baseURL + "/drug/label.json?" + params.Encode()

	var record domain.LabelRecord
	call := func(callCtx context.Context) error {
		found, err := c.fetch(callCtx, endpoint, field)
		if err != nil {
			return err
		}
		record = found
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "fda.lookup", call, classifyFDAError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (c *Client) fetch(ctx context.Context, endpoint, field string) (domain.LabelRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", field, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fda %s request: %w", field, err)
	}
	defer resp.Body.Close()

	// openFDA answers 404 with an error document when nothing matched.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &httpStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var payload struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", field, err)
	}
	if len(payload.Results) == 0 {
		return nil, nil
	}
	return domain.LabelRecord(payload.Results[0]), nil
}
