// Package api implements the HTTP client for the fraud-detection backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/andreiluca/fraudwatch/internal/common"
	"github.com/andreiluca/fraudwatch/internal/normalize"
)

// Client talks to the backend's transaction endpoints. It returns raw
// payloads; normalization is the caller's concern.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetTransactions fetches the historical transaction batch. A limit of 0
// leaves paging to the backend.
func (c *Client) GetTransactions(ctx context.Context, limit int) ([]normalize.RawPayload, error) {
	u, err := url.Parse(c.baseURL + "/api/transactions")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if limit > 0 {
		q := u.Query()
		q.Set("limit", strconv.Itoa(limit))
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	slog.Debug("Fetching transaction batch", "url", u.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFetchFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d - %s", common.ErrFetchFailed, resp.StatusCode, string(body))
	}

	var payloads []normalize.RawPayload
	if err := json.NewDecoder(resp.Body).Decode(&payloads); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", common.ErrFetchFailed, err)
	}
	return payloads, nil
}

// SubmitTransaction posts a new transaction for fraud detection and returns
// the echoed record.
func (c *Client) SubmitTransaction(ctx context.Context, payload normalize.RawPayload) (normalize.RawPayload, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSubmitFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d - %s", common.ErrSubmitFailed, resp.StatusCode, string(respBody))
	}

	var echoed normalize.RawPayload
	if err := json.NewDecoder(resp.Body).Decode(&echoed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", common.ErrSubmitFailed, err)
	}
	return echoed, nil
}
