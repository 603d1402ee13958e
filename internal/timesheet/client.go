// Package timesheet is a client for the remote timesheet backend that stores logs.
package timesheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/christopherklint97/adotime/internal/auth"
	"github.com/christopherklint97/adotime/internal/model"
)

// DefaultBaseURL is the address of a locally running backend.
const DefaultBaseURL = "http://localhost:7071"

// BackendError is returned when the backend answers with a non-2xx status.
type BackendError struct {
	Op     string
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("timesheet %s failed (status %d): %s", e.Op, e.Status, e.Body)
}

type Client struct {
	baseURL    string
	auth       auth.Authorizer
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, authorizer auth.Authorizer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    authorizer,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) doRequest(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		if err := c.auth.Authorize(req); err != nil {
			return nil, fmt.Errorf("authorizing request: %w", err)
		}
	}

	c.logger.Debug("timesheet API request", "op", op, "method", method, "path", path)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("timesheet API transport error", "op", op, "error", err)
		return nil, fmt.Errorf("sending %s request: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", op, err)
	}

	c.logger.Debug("timesheet API response", "op", op, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("timesheet API request failed", "op", op, "status", resp.StatusCode, "response", truncate(string(respBody), 200))
		return nil, &BackendError{Op: op, Status: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// LogQuery selects the logs of one person in one organization on one day.
type LogQuery struct {
	Date         time.Time
	AssignedTo   string
	Organization string
}

// GetLogs returns the logs matching q in backend order.
func (c *Client) GetLogs(ctx context.Context, q LogQuery) ([]model.TimeLogEntry, error) {
	params := url.Values{
		"date":         {model.FormatDay(q.Date)},
		"assignedTo":   {q.AssignedTo},
		"organization": {q.Organization},
	}
	data, err := c.doRequest(ctx, "getLogs", http.MethodGet, "/api/getLogs?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching logs: %w", err)
	}

	var records []logRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing logs response: %w", err)
	}

	entries := make([]model.TimeLogEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, r.toEntry(q.Organization))
	}
	return entries, nil
}

// Create submits a new log and returns the identifier the backend assigned.
// A backend that does not echo the identifier yields a zero LogID.
func (c *Client) Create(ctx context.Context, p CreatePayload) (model.LogID, error) {
	data, err := c.doRequest(ctx, "addLog", http.MethodPost, "/api/addLog", p)
	if err != nil {
		return 0, fmt.Errorf("creating log: %w", err)
	}

	var resp createResponse
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &resp); err != nil {
			c.logger.Debug("addLog response carried no log id", "error", err)
		}
	}
	return model.LogID(resp.LogID), nil
}

// Update changes the hours, minutes and description of an existing log.
func (c *Client) Update(ctx context.Context, p UpdatePayload) error {
	if p.LogID.IsZero() {
		return fmt.Errorf("updating log: missing log id")
	}
	if _, err := c.doRequest(ctx, "updateLog", http.MethodPost, "/api/updateLog", p); err != nil {
		return fmt.Errorf("updating log %s: %w", p.LogID, err)
	}
	return nil
}

// Delete removes a log.
func (c *Client) Delete(ctx context.Context, id model.LogID, organization string) error {
	if id.IsZero() {
		return fmt.Errorf("deleting log: missing log id")
	}
	body := deleteRequest{LogID: id, Organization: organization}
	if _, err := c.doRequest(ctx, "deleteLog", http.MethodPost, "/api/deleteLog", body); err != nil {
		return fmt.Errorf("deleting log %s: %w", id, err)
	}
	return nil
}
