// Package ado is a client for the Azure DevOps work item tracking REST API.
package ado

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
	"strings"
	"time"

	"github.com/christopherklint97/adotime/internal/auth"
)

const (
	DefaultBaseURL = "https://dev.azure.com"
	apiVersion     = "7.0"
	// maxBatchIDs is the most ids the batch work item endpoint accepts.
	maxBatchIDs = 200
)

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

func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
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

	c.logger.Debug("ado API request", "method", method, "path", path)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ado API transport error", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("ado API response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("ado API request failed", "method", method, "path", path, "status", resp.StatusCode, "response", truncate(string(respBody), 200))
		return nil, fmt.Errorf("ADO API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	return respBody, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// GetProjects lists the projects of an organization.
func (c *Client) GetProjects(ctx context.Context, organization string) ([]Project, error) {
	path := fmt.Sprintf("/%s/_apis/projects?api-version=%s", url.PathEscape(organization), apiVersion)
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting projects: %w", err)
	}

	var resp projectsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing projects response: %w", err)
	}
	return resp.Value, nil
}

// GetWorkItem fetches a single work item including its relations.
func (c *Client) GetWorkItem(ctx context.Context, organization, project string, id int) (*WorkItem, error) {
	path := fmt.Sprintf("/%s/%s/_apis/wit/workitems/%d?$expand=relations&api-version=%s",
		url.PathEscape(organization), url.PathEscape(project), id, apiVersion)
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting work item %d: %w", id, err)
	}

	var wi WorkItem
	if err := json.Unmarshal(data, &wi); err != nil {
		return nil, fmt.Errorf("parsing work item %d: %w", id, err)
	}
	return &wi, nil
}

// QueryWorkItems runs a WIQL query in a project and returns the details of at
// most the first 200 matches, in query order.
func (c *Client) QueryWorkItems(ctx context.Context, organization, projectID, query string) ([]WorkItem, error) {
	path := fmt.Sprintf("/%s/%s/_apis/wit/wiql?api-version=%s",
		url.PathEscape(organization), url.PathEscape(projectID), apiVersion)
	data, err := c.doRequest(ctx, http.MethodPost, path, wiqlRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("running WIQL query: %w", err)
	}

	var result wiqlResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing WIQL response: %w", err)
	}
	if len(result.WorkItems) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, min(len(result.WorkItems), maxBatchIDs))
	for _, wi := range result.WorkItems {
		if len(ids) == maxBatchIDs {
			break
		}
		ids = append(ids, strconv.Itoa(wi.ID))
	}

	path = fmt.Sprintf("/%s/_apis/wit/workitems?ids=%s&api-version=%s",
		url.PathEscape(organization), strings.Join(ids, ","), apiVersion)
	data, err = c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting work item details: %w", err)
	}

	var details workItemsResponse
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, fmt.Errorf("parsing work item details: %w", err)
	}
	return details.Value, nil
}
