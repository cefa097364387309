// Package jira is the ticket source: it finds recently resolved issues and
// fetches their full records over the JIRA REST API v3.
package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dt-pm-tools/kbagent/internal/config"
	"github.com/dt-pm-tools/kbagent/internal/ticket"
)

// maxSearchResults caps one resolved-ticket search.
const maxSearchResults = 100

// fullFields is the field list requested for a full ticket record.
var fullFields = []string{
	"summary", "description", "status", "resolution", "assignee", "reporter",
	"priority", "issuetype", "labels", "components", "created", "updated",
	"resolutiondate", "comment", "attachment",
}

// Client is a JIRA REST API v3 client.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// NewClient creates a new JIRA client from the given config.
func NewClient(cfg config.Jira) *Client {
	creds := base64.StdEncoding.EncodeToString([]byte(cfg.Email + ":" + cfg.Token))
	baseURL := strings.TrimRight(cfg.URL, "/")
	return &Client{
		baseURL:    baseURL,
		authHeader: "Basic " + creds,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// ResolvedJQL returns the query for tickets in project resolved within the
// trailing lookback window.
func ResolvedJQL(project string, lookback time.Duration) string {
	minutes := int(lookback / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("project = %s AND resolutiondate >= -%dm ORDER BY resolutiondate ASC", project, minutes)
}

// SearchResolved lists tickets in project resolved within lookback.
func (c *Client) SearchResolved(ctx context.Context, project string, lookback time.Duration) ([]ResolvedIssue, error) {
	q := url.Values{}
	q.Set("jql", ResolvedJQL(project, lookback))
	q.Set("maxResults", strconv.Itoa(maxSearchResults))
	q.Set("fields", "key,resolutiondate")

	body, err := c.get(ctx, "/rest/api/3/search/jql?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var result searchResponse
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	issues := make([]ResolvedIssue, 0, len(result.Issues))
	for _, is := range result.Issues {
		issues = append(issues, ResolvedIssue{Key: is.Key, ResolutionDate: is.Fields.ResolutionDate})
	}
	return issues, nil
}

// FetchFull fetches a single issue by key with every field the context
// formatter renders.
func (c *Client) FetchFull(ctx context.Context, key string) (*ticket.Record, error) {
	path := fmt.Sprintf("/rest/api/3/issue/%s?fields=%s", url.PathEscape(key), strings.Join(fullFields, ","))

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	rec, err := ticket.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding issue %s: %w", key, err)
	}
	return rec, nil
}

// Ping fetches the authenticated user to confirm the credentials work.
func (c *Client) Ping(ctx context.Context) (*User, error) {
	body, err := c.get(ctx, "/rest/api/3/myself")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var u User
	if err := json.NewDecoder(body).Decode(&u); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &u, nil
}

// get performs a GET and returns the body of a 200 response. The caller
// closes it.
func (c *Client) get(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("JIRA API returned %d: %s", resp.StatusCode, string(body))
	}
	return resp.Body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
