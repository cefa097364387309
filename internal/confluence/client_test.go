package confluence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dt-pm-tools/kbagent/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.Confluence{URL: srv.URL + "/", Email: "bot@example.com", Token: "secret", Space: "KB", ParentID: "99"})
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/content/search", r.URL.Path)
		assert.Equal(t, `(title ~ "TLS \"proxy\"" OR text ~ "TLS \"proxy\"") AND type=page AND space="KB"`, r.URL.Query().Get("cql"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		assert.Equal(t, "secret", pass)

		w.Write([]byte(`{"results":[
			{"id":"1","type":"page","title":"TLS inspection","space":{"key":"KB"},"_links":{"webui":"/spaces/KB/pages/1"}},
			{"id":"2","type":"page","title":"Proxy setup","_links":{"webui":"/spaces/KB/pages/2"}}
		]}`))
	})

	got, err := c.Search(context.Background(), `TLS "proxy"`, "", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "KB", got[0].Space)
	assert.Equal(t, "TLS inspection", got[0].Title)
	assert.Contains(t, got[0].URL, "/wiki/spaces/KB/pages/1")
	assert.Empty(t, got[1].Space)
	assert.Empty(t, got[0].Content)
}

func TestFindByTitle(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, `title="VPN guide" AND type=page AND space="OPS"`, r.URL.Query().Get("cql"))
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			w.Write([]byte(`{"results":[{"id":"7","title":"VPN guide","space":{"key":"OPS"}}]}`))
		})
		a, err := c.FindByTitle(context.Background(), "VPN guide", "OPS")
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, "7", a.ID)
	})

	t.Run("not found", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":[]}`))
		})
		a, err := c.FindByTitle(context.Background(), "missing", "")
		require.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("transport error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		_, err := c.FindByTitle(context.Background(), "x", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Confluence API returned 500")
	})
}

func TestGetContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/api/v2/pages/42", r.URL.Path)
		assert.Equal(t, "storage", r.URL.Query().Get("body-format"))
		w.Write([]byte(`{"id":"42","title":"Guide","version":{"number":3},
			"body":{"storage":{"representation":"storage","value":"<p>body</p>"}},
			"_links":{"webui":"/spaces/KB/pages/42","base":"https://x.atlassian.net/wiki"}}`))
	})

	a, err := c.GetContent(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "<p>body</p>", a.Content)
	assert.Equal(t, 3, a.Version)
	assert.Equal(t, "https://x.atlassian.net/wiki/spaces/KB/pages/42", a.URL)
}

func TestCreatePage(t *testing.T) {
	var got createPayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/wiki/api/v2/spaces":
			assert.Equal(t, "KB", r.URL.Query().Get("keys"))
			w.Write([]byte(`{"results":[{"id":"1001","key":"KB","name":"Knowledge Base"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/wiki/api/v2/pages":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte(`{"id":"555","title":"[DRAFT] New","version":{"number":1},"_links":{"webui":"/spaces/KB/pages/555"}}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	})

	a, err := c.CreatePage(context.Background(), "[DRAFT] New", "<p>hi</p>", "", "")
	require.NoError(t, err)
	assert.Equal(t, "555", a.ID)
	assert.Equal(t, "KB", a.Space)

	assert.Equal(t, "1001", got.SpaceID)
	assert.Equal(t, "current", got.Status)
	assert.Equal(t, "99", got.ParentID)
	assert.Equal(t, BodyValue{Representation: "storage", Value: "<p>hi</p>"}, got.Body)
}

func TestCreatePage_UnknownSpace(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	})
	_, err := c.CreatePage(context.Background(), "t", "b", "NOPE", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `space "NOPE" not found`)
}

func TestUpdatePage(t *testing.T) {
	var got updatePayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/api/v2/pages/42", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"id":"42","title":"Guide","version":{"number":4}}`))
		case http.MethodPut:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte(`{"id":"42","title":"Guide","version":{"number":5}}`))
		}
	})

	a, err := c.UpdatePage(context.Background(), "42", "Guide", "<p>new</p>", "Updated based on ticket A-1: x")
	require.NoError(t, err)
	assert.Equal(t, 5, a.Version)
	assert.Equal(t, 5, got.Version.Number)
	assert.Equal(t, "Updated based on ticket A-1: x", got.Version.Message)
	assert.Equal(t, "<p>new</p>", got.Body.Value)
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "type=page", r.URL.Query().Get("cql"))
		w.Write([]byte(`{"results":[]}`))
	})
	assert.NoError(t, c.Ping(context.Background()))
}
