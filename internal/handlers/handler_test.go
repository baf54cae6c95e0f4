package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readinglist/internal/app"
	"readinglist/internal/config"
	"readinglist/internal/domain"
	"readinglist/internal/logger"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, url string) domain.MetadataResult {
	title := "Fetched"
	words := 400
	return domain.MetadataResult{Title: &title, WordCount: &words, Success: true}
}

func setupTestHandler(t *testing.T) (*Handler, http.Handler) {
	t.Helper()

	cfg := config.Default()
	cfg.DatabasePath = ":memory:"
	cfg.QueueDir = ""
	cfg.ConnectivityURL = ""
	cfg.CORSOrigins = []string{"http://localhost:3000"}

	a, err := app.New(context.Background(), cfg, logger.Discard(), app.WithFetcher(stubFetcher{}))
	require.NoError(t, err)

	h := NewHandler(a, logger.Discard())
	t.Cleanup(func() {
		h.Close()
		a.Close()
	})
	return h, h.Routes()
}

func doJSON(t *testing.T, routes http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	routes.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	_, routes := setupTestHandler(t)

	rr := doJSON(t, routes, "GET", "/healthz", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestNotFound(t *testing.T) {
	_, routes := setupTestHandler(t)

	rr := doJSON(t, routes, "GET", "/nope", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestItemLifecycle(t *testing.T) {
	_, routes := setupTestHandler(t)

	rr := doJSON(t, routes, "POST", "/api/tags", domain.NewTag{Name: "go"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tag := decode[domain.Tag](t, rr)

	rr = doJSON(t, routes, "POST", "/api/items", domain.NewItem{
		URL:             "www.example.com/post",
		Title:           "Post",
		Tags:            []string{tag.ID},
		MetadataFetched: true,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	item := decode[domain.Item](t, rr)
	assert.Equal(t, "https://www.example.com/post", item.URL)
	assert.Equal(t, "example.com", item.Domain)

	rr = doJSON(t, routes, "GET", "/api/items/"+item.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, routes, "PATCH", "/api/items/"+item.ID, `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, domain.StatusCompleted, decode[domain.Item](t, rr).Status)

	rr = doJSON(t, routes, "GET", "/api/items?status=completed&tag="+tag.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]domain.Item](t, rr), 1)

	rr = doJSON(t, routes, "GET", "/api/items?status=unread", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]domain.Item](t, rr))

	rr = doJSON(t, routes, "GET", "/api/tags", nil)
	tags := decode[[]domain.Tag](t, rr)
	require.Len(t, tags, 1)
	assert.Equal(t, 1, tags[0].UsageCount)

	rr = doJSON(t, routes, "POST", "/api/items/"+item.ID+"/open", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, routes, "GET", "/api/items/recent", nil)
	recent := decode[[]domain.OpenCount](t, rr)
	require.Len(t, recent, 1)
	assert.Equal(t, item.ID, recent[0].ItemID)

	rr = doJSON(t, routes, "GET", "/api/stats", nil)
	stats := decode[domain.ItemStats](t, rr)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Completed)

	rr = doJSON(t, routes, "DELETE", "/api/items/"+item.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, routes, "GET", "/api/items/"+item.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, routes, "GET", "/api/tags", nil)
	assert.Equal(t, 0, decode[[]domain.Tag](t, rr)[0].UsageCount)
}

func TestErrorStatus(t *testing.T) {
	_, routes := setupTestHandler(t)

	tests := []struct {
		name      string
		method    string
		path      string
		body      any
		wantCode  int
		wantField string
	}{
		{"malformed body", "POST", "/api/items", `{"url":`, http.StatusBadRequest, "body"},
		{"invalid url", "POST", "/api/items", `{"url":"https://"}`, http.StatusBadRequest, "url"},
		{"unknown priority", "POST", "/api/items", `{"url":"example.com","priority":"someday"}`, http.StatusBadRequest, "priority"},
		{"unknown tag", "POST", "/api/items", `{"url":"example.com","tags":["missing"]}`, http.StatusBadRequest, "tags"},
		{"missing item", "GET", "/api/items/missing", nil, http.StatusNotFound, ""},
		{"bad time filter", "GET", "/api/items?createdAfter=yesterday", nil, http.StatusBadRequest, "createdAfter"},
		{"bad integer", "GET", "/api/items/recent?days=week", nil, http.StatusBadRequest, "days"},
		{"empty tag name", "POST", "/api/tags", `{"name":"  "}`, http.StatusBadRequest, "name"},
		{"unknown rule field", "POST", "/api/collections", `{"name":"x","rules":[{"field":"author","operator":"equals","value":"a"}]}`, http.StatusBadRequest, "rules"},
		{"invalid setting", "PATCH", "/api/settings", `{"theme":"neon"}`, http.StatusBadRequest, "theme"},
		{"bad export format", "GET", "/api/export?format=xml", nil, http.StatusBadRequest, "format"},
		{"invalid backup", "POST", "/api/import", `{"items":[]}`, http.StatusBadRequest, ""},
		{"bad preview url", "POST", "/api/metadata", `{"url":"https://"}`, http.StatusBadRequest, "url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, routes, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.wantCode, rr.Code, rr.Body.String())
			body := decode[errorBody](t, rr)
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.wantField, body.Field)
		})
	}
}

func TestCollections(t *testing.T) {
	_, routes := setupTestHandler(t)

	for _, n := range []domain.NewItem{
		{URL: "a.com", Title: "B side", Status: domain.StatusCompleted, MetadataFetched: true},
		{URL: "b.com", Title: "A side", Status: domain.StatusCompleted, MetadataFetched: true},
		{URL: "c.com", Title: "Other", MetadataFetched: true},
	} {
		rr := doJSON(t, routes, "POST", "/api/items", n)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := doJSON(t, routes, "POST", "/api/collections", `{
		"name": "Done",
		"isSystem": true,
		"rules": [{"field": "status", "operator": "equals", "value": "completed"}]
	}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	done := decode[domain.Collection](t, rr)
	assert.False(t, done.IsSystem)

	rr = doJSON(t, routes, "GET", "/api/collections/"+done.ID+"/items?sort=title&dir=asc", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	items := decode[[]domain.Item](t, rr)
	require.Len(t, items, 2)
	assert.Equal(t, "A side", items[0].Title)
	assert.Equal(t, "B side", items[1].Title)

	rr = doJSON(t, routes, "PATCH", "/api/collections/"+done.ID, `{"name":"Finished"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Finished", decode[domain.Collection](t, rr).Name)

	rr = doJSON(t, routes, "GET", "/api/collections?q=finish", nil)
	assert.Len(t, decode[[]domain.Collection](t, rr), 1)

	rr = doJSON(t, routes, "GET", "/api/collections", nil)
	all := decode[[]domain.Collection](t, rr)
	assert.Len(t, all, 4)

	var system domain.Collection
	for _, c := range all {
		if c.IsSystem {
			system = c
		}
	}
	rr = doJSON(t, routes, "DELETE", "/api/collections/"+system.ID, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(t, routes, "DELETE", "/api/collections/"+done.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, routes, "GET", "/api/collections/"+done.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTags(t *testing.T) {
	_, routes := setupTestHandler(t)

	for _, name := range []string{"golang", "gardening", "python"} {
		rr := doJSON(t, routes, "POST", "/api/tags", domain.NewTag{Name: name})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := doJSON(t, routes, "POST", "/api/tags?getOrCreate=true", domain.NewTag{Name: "GOLANG"})
	require.Equal(t, http.StatusCreated, rr.Code)
	golang := decode[domain.Tag](t, rr)
	assert.Equal(t, "golang", golang.Name)

	rr = doJSON(t, routes, "GET", "/api/tags/suggest?q=gl", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	suggested := decode[[]domain.Tag](t, rr)
	require.NotEmpty(t, suggested)
	assert.Equal(t, "golang", suggested[0].Name)

	rr = doJSON(t, routes, "GET", "/api/tags?q=python", nil)
	assert.Len(t, decode[[]domain.Tag](t, rr), 1)

	rr = doJSON(t, routes, "PATCH", "/api/tags/"+golang.ID, `{"color":"#000000"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "#000000", decode[domain.Tag](t, rr).Color)

	rr = doJSON(t, routes, "DELETE", "/api/tags/"+golang.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, routes, "GET", "/api/tags?sort=usage", nil)
	assert.Len(t, decode[[]domain.Tag](t, rr), 2)
}

func TestSettings(t *testing.T) {
	_, routes := setupTestHandler(t)

	rr := doJSON(t, routes, "GET", "/api/settings", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.ThemeSystem, decode[domain.Settings](t, rr).Theme)

	rr = doJSON(t, routes, "PATCH", "/api/settings", `{"theme":"dark","readingSpeed":300}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	settings := decode[domain.Settings](t, rr)
	assert.Equal(t, domain.ThemeDark, settings.Theme)
	assert.Equal(t, 300, settings.ReadingSpeed)
	assert.Equal(t, domain.ViewList, settings.ViewMode)
}

func TestExportImport(t *testing.T) {
	_, routes := setupTestHandler(t)

	rr := doJSON(t, routes, "POST", "/api/items", domain.NewItem{URL: "example.com", Title: "Example", MetadataFetched: true})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, routes, "GET", "/api/export", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "reading-list-backup-")
	backup := rr.Body.Bytes()

	var data domain.BackupData
	require.NoError(t, json.Unmarshal(backup, &data))
	assert.Len(t, data.Items, 1)
	assert.Empty(t, data.Collections)

	rr = doJSON(t, routes, "GET", "/api/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	assert.Len(t, lines, 2)

	rr = doJSON(t, routes, "POST", "/api/import", string(backup))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	stats := decode[domain.ImportStats](t, rr)
	assert.Equal(t, 0, stats.ImportedItems)
	assert.Equal(t, 1, stats.SkippedItems)
}

func TestItemNotes(t *testing.T) {
	_, routes := setupTestHandler(t)

	notes := "---\ntitle: My notes\n---\n# Summary\n\n<script>alert(1)</script>\n\nGood **read**."
	rr := doJSON(t, routes, "POST", "/api/items", domain.NewItem{URL: "example.com", Title: "Example", Notes: &notes, MetadataFetched: true})
	require.Equal(t, http.StatusCreated, rr.Code)
	item := decode[domain.Item](t, rr)

	rr = doJSON(t, routes, "GET", "/api/items/"+item.ID+"/notes", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rendered struct {
		HTML     string         `json:"html"`
		Metadata map[string]any `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rendered))
	assert.Contains(t, rendered.HTML, "<strong>read</strong>")
	assert.Equal(t, "My notes", rendered.Metadata["title"])

	rr = doJSON(t, routes, "GET", "/api/items/"+item.ID+"/notes?format=html", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "<title>My notes - Reading List Notes</title>")
	assert.NotContains(t, rr.Body.String(), "<script>alert(1)</script>")
}

func TestNetworkStatus(t *testing.T) {
	_, routes := setupTestHandler(t)

	rr := doJSON(t, routes, "GET", "/api/network", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"isOnline":true,"pendingOperations":0}`, stripLastOnline(t, rr.Body.Bytes()))
}

func stripLastOnline(t *testing.T, body []byte) string {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	delete(m, "lastOnline")
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return string(out)
}

func TestCORSPreflight(t *testing.T) {
	_, routes := setupTestHandler(t)

	req := httptest.NewRequest("OPTIONS", "/api/items", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rr := httptest.NewRecorder()
	routes.ServeHTTP(rr, req)

	assert.Less(t, rr.Code, 300)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	routes.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestEvents(t *testing.T) {
	h, routes := setupTestHandler(t)
	server := httptest.NewServer(routes)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", server.URL+"/api/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)
	assert.Equal(t, 1, h.events.Clients())

	rr := doJSON(t, routes, "POST", "/api/tags", domain.NewTag{Name: "go"})
	require.Equal(t, http.StatusCreated, rr.Code)

	var got []string
	for len(got) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line = strings.TrimSpace(line); line != "" {
			got = append(got, line)
		}
	}
	assert.Equal(t, []string{"event: change", `data: {"store":"tags"}`}, got)
}

func TestEventHub_Close(t *testing.T) {
	src := &fakeSource{}
	hub := NewEventHub(map[string]Source{"items": src}, logger.Discard())

	ch, ok := hub.add()
	require.True(t, ok)

	src.fire()
	assert.Equal(t, "items", <-ch)

	hub.Close()
	_, open := <-ch
	assert.False(t, open)
	assert.Nil(t, src.fn)

	_, ok = hub.add()
	assert.False(t, ok)
}

type fakeSource struct {
	fn func()
}

func (f *fakeSource) Subscribe(fn func()) func() {
	f.fn = fn
	return func() { f.fn = nil }
}

func (f *fakeSource) fire() {
	if f.fn != nil {
		f.fn()
	}
}
