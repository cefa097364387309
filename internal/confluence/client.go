// Package confluence is the knowledge-base backend: CQL search over the
// REST v1 content API, page reads and writes over REST v2.
package confluence

import (
	"bytes"
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
)

const storageRepresentation = "storage"

// Client is a Confluence Cloud REST client.
type Client struct {
	baseURL    string
	authHeader string
	spaceKey   string
	parentID   string
	httpClient *http.Client
}

// NewClient creates a new Confluence client from the given config.
func NewClient(cfg config.Confluence) *Client {
	creds := base64.StdEncoding.EncodeToString([]byte(cfg.Email + ":" + cfg.Token))
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		authHeader: "Basic " + creds,
		spaceKey:   cfg.Space,
		parentID:   cfg.ParentID,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Ping runs a one-result CQL query to confirm the credentials work.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.cql(ctx, "type=page", 1)
	return err
}

// Search finds pages whose title or text matches query. An empty space
// falls back to the configured default space.
func (c *Client) Search(ctx context.Context, query, space string, limit int) ([]Article, error) {
	clauses := []string{fmt.Sprintf(`(title ~ "%s" OR text ~ "%s")`, cqlEscape(query), cqlEscape(query)), "type=page"}
	clauses = append(clauses, c.spaceClause(space)...)
	return c.cql(ctx, strings.Join(clauses, " AND "), limit)
}

// FindByTitle looks up a page by exact title. It returns (nil, nil) when no
// page matches.
func (c *Client) FindByTitle(ctx context.Context, title, space string) (*Article, error) {
	clauses := []string{fmt.Sprintf(`title="%s"`, cqlEscape(title)), "type=page"}
	clauses = append(clauses, c.spaceClause(space)...)
	articles, err := c.cql(ctx, strings.Join(clauses, " AND "), 1)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, nil
	}
	return &articles[0], nil
}

// GetContent fetches a page with its storage-format body.
func (c *Client) GetContent(ctx context.Context, id string) (*Article, error) {
	page, err := c.getPage(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.articleFromPage(page), nil
}

// CreatePage creates a page in space (or the default space) under parentID
// (or the default parent, if any).
func (c *Client) CreatePage(ctx context.Context, title, htmlBody, space, parentID string) (*Article, error) {
	if space == "" {
		space = c.spaceKey
	}
	if space == "" {
		return nil, fmt.Errorf("no space key provided or configured")
	}
	if parentID == "" {
		parentID = c.parentID
	}

	s, err := c.SpaceByKey(ctx, space)
	if err != nil {
		return nil, fmt.Errorf("looking up space %q: %w", space, err)
	}

	payload := createPayload{
		SpaceID:  s.ID,
		Status:   "current",
		Title:    title,
		ParentID: parentID,
		Body:     BodyValue{Representation: storageRepresentation, Value: htmlBody},
	}

	var page Page
	if err := c.do(ctx, http.MethodPost, "/wiki/api/v2/pages", payload, &page, http.StatusOK); err != nil {
		return nil, err
	}
	a := c.articleFromPage(&page)
	a.Space = s.Key
	return a, nil
}

// UpdatePage replaces a page body. The current version number is read
// first and incremented; concurrent editors are not detected.
func (c *Client) UpdatePage(ctx context.Context, id, title, htmlBody, versionComment string) (*Article, error) {
	current, err := c.getPage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching current version of page %s: %w", id, err)
	}

	payload := updatePayload{
		ID:     id,
		Status: "current",
		Title:  title,
		Body:   BodyValue{Representation: storageRepresentation, Value: htmlBody},
		Version: PageVersion{
			Number:  current.Version.Number + 1,
			Message: versionComment,
		},
	}

	var page Page
	if err := c.do(ctx, http.MethodPut, "/wiki/api/v2/pages/"+url.PathEscape(id), payload, &page, http.StatusOK); err != nil {
		return nil, err
	}
	return c.articleFromPage(&page), nil
}

// SpaceByKey resolves a space key to its v2 space record.
func (c *Client) SpaceByKey(ctx context.Context, key string) (*Space, error) {
	var result spacesResponse
	path := "/wiki/api/v2/spaces?keys=" + url.QueryEscape(key)
	if err := c.do(ctx, http.MethodGet, path, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return nil, fmt.Errorf("space %q not found", key)
	}
	return &result.Results[0], nil
}

func (c *Client) getPage(ctx context.Context, id string) (*Page, error) {
	var page Page
	path := "/wiki/api/v2/pages/" + url.PathEscape(id) + "?body-format=storage"
	if err := c.do(ctx, http.MethodGet, path, nil, &page, http.StatusOK); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) cql(ctx context.Context, cql string, limit int) ([]Article, error) {
	q := url.Values{}
	q.Set("cql", cql)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("expand", "space")

	var result contentSearchResponse
	if err := c.do(ctx, http.MethodGet, "/wiki/rest/api/content/search?"+q.Encode(), nil, &result, http.StatusOK); err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(result.Results))
	for _, r := range result.Results {
		a := Article{ID: r.ID, Title: r.Title, URL: c.webURL(r.Links.WebUI)}
		if r.Space != nil {
			a.Space = r.Space.Key
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func (c *Client) spaceClause(space string) []string {
	if space == "" {
		space = c.spaceKey
	}
	if space == "" {
		return nil
	}
	return []string{fmt.Sprintf(`space="%s"`, cqlEscape(space))}
}

func (c *Client) articleFromPage(page *Page) *Article {
	a := &Article{
		ID:      page.ID,
		Title:   page.Title,
		Version: page.Version.Number,
	}
	if page.Body.Storage != nil {
		a.Content = page.Body.Storage.Value
	}
	if page.Links.Base != "" && page.Links.WebUI != "" {
		a.URL = page.Links.Base + page.Links.WebUI
	} else {
		a.URL = c.webURL(page.Links.WebUI)
	}
	return a
}

func (c *Client) webURL(webui string) string {
	if webui == "" {
		return ""
	}
	return c.baseURL + "/wiki" + webui
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, wantStatus int) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Confluence API returned %d: %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// cqlEscape escapes a value for use inside a double-quoted CQL string.
func cqlEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
