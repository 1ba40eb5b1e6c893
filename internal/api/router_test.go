package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenspend/zenspend/internal/expenses"
	"github.com/zenspend/zenspend/internal/export"
	"github.com/zenspend/zenspend/internal/extractor"
	"github.com/zenspend/zenspend/internal/gcsuploader"
	jobsmem "github.com/zenspend/zenspend/internal/jobs/inmemory"
	"github.com/zenspend/zenspend/internal/storage/inmemory"
)

type testServer struct {
	handler http.Handler
	objects *gcsuploader.MemoryStore
}

func newTestServer(t *testing.T, withExports bool) *testServer {
	t.Helper()
	ex, err := extractor.New(extractor.Config{
		Now:      func() time.Time { return time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	})
	require.NoError(t, err)

	repo := inmemory.NewStore()
	jobStore := jobsmem.NewStore()
	queue := jobsmem.NewQueue(10, jobStore)
	objects := gcsuploader.NewMemoryStore()

	opts := expenses.Options{
		Extractor: ex,
		Repo:      repo,
		Publisher: queue,
		Jobs:      jobStore,
	}
	if withExports {
		opts.Exporter = export.NewExporter(repo, objects, "zenspend-exports")
	}
	svc, err := expenses.NewService(opts)
	require.NoError(t, err)

	require.NoError(t, queue.Start(context.Background(), svc.HandleJob))
	t.Cleanup(func() { queue.Stop(context.Background()) })

	h, err := NewRouter(svc, zerolog.Nop(), Options{})
	require.NoError(t, err)
	return &testServer{handler: h, objects: objects}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestChat(t *testing.T) {
	s := newTestServer(t, false)

	rec, body := s.do(t, http.MethodPost, "/api/chat", `{"message": "I spent 500 on food yesterday"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, "Added ₹500.00 for Food on 2025-07-14.", body["response"])
	assert.Equal(t, "heuristic", body["source"])
	assert.NotContains(t, body, "sync_job_id")

	exp := body["expense"].(map[string]any)
	assert.Equal(t, 500.0, exp["amount"])
	assert.Equal(t, "Food", exp["category"])
	assert.Equal(t, "2025-07-14", exp["date"])
	assert.Nil(t, exp["description"])
	assert.Equal(t, "chat", exp["source"])

	rec, body = s.do(t, http.MethodGet, "/api/expenses/"+exp["id"].(string), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Food", body["category"])
}

func TestChat_StructuredInput(t *testing.T) {
	s := newTestServer(t, false)

	rec, body := s.do(t, http.MethodPost, "/api/chat",
		`{"message": "{\"amount\": 150, \"category\": \"drinks\", \"date\": \"2025-06-01\", \"description\": \"smoothie\"}"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, "json", body["source"])
	exp := body["expense"].(map[string]any)
	assert.Equal(t, "Drinks", exp["category"])
	assert.Equal(t, "2025-06-01", exp["date"])
	assert.Equal(t, "smoothie", exp["description"])
}

func TestChat_NotUnderstood(t *testing.T) {
	s := newTestServer(t, false)

	for _, msg := range []string{`{"message": "hello there"}`, `{"message": ""}`, `{"message": "amount=abc"}`, `{"message": "{\"amount\": 1e400}"}`} {
		rec, body := s.do(t, http.MethodPost, "/api/chat", msg)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, msg)
		assert.Equal(t, "could not understand your expense input", body["error"])
	}

	rec, _ := s.do(t, http.MethodPost, "/api/chat", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := s.do(t, http.MethodGet, "/api/expenses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, body["count"])
}

func TestExtract(t *testing.T) {
	s := newTestServer(t, false)

	rec, body := s.do(t, http.MethodPost, "/api/extract", `{"message": "uber 250 on 3 July 2025"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 250.0, body["amount"])
	assert.Equal(t, "Transport", body["category"])
	assert.Equal(t, "2025-07-03", body["date"])

	rec, body = s.do(t, http.MethodGet, "/api/expenses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, body["count"], "extract does not store")

	rec, _ = s.do(t, http.MethodPost, "/api/extract", `{"message": "nothing"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAddExpense(t *testing.T) {
	s := newTestServer(t, false)

	rec, body := s.do(t, http.MethodPost, "/api/expenses", `{"amount": 42.5, "category": "groceries", "note": "vegetables"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 42.5, body["amount"])
	assert.Equal(t, "Groceries", body["category"])
	assert.Equal(t, "2025-07-15", body["date"])
	assert.Equal(t, "vegetables", body["description"])
	assert.Equal(t, "manual", body["source"])

	rec, body = s.do(t, http.MethodPost, "/add-expense", `{"amount": "99.99", "category": "Books", "date": "2025-07-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 99.99, body["amount"])
	assert.Equal(t, "2025-07-01", body["date"])
}

func TestAddExpense_Invalid(t *testing.T) {
	s := newTestServer(t, false)

	for _, payload := range []string{
		`{"amount": -1, "category": "Food"}`,
		`{"amount": 0, "category": "Food"}`,
		`{"amount": 10}`,
		`{"amount": 10, "category": ""}`,
		`{"amount": "ten", "category": "Food"}`,
		`{"amount": 10, "category": "Food", "colour": "red"}`,
		`{"amount": 10, "category": "Food", "date": "yesterday"}`,
		`{"amount": 10, "category": "Food", "date": "2025-02-30"}`,
		`[1, 2]`,
		`{`,
	} {
		rec, body := s.do(t, http.MethodPost, "/api/expenses", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
		assert.NotEmpty(t, body["error"], payload)
	}
}

func TestListAndSummary(t *testing.T) {
	s := newTestServer(t, false)

	for _, msg := range []string{
		`{"message": "coffee 120 yesterday"}`,
		`{"message": "pizza 300"}`,
		`{"message": "latte 80 on 1 July 2025"}`,
	} {
		rec, _ := s.do(t, http.MethodPost, "/api/chat", msg)
		require.Equal(t, http.StatusCreated, rec.Code, msg)
	}

	rec, body := s.do(t, http.MethodGet, "/api/expenses?from=2025-07-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["count"])
	list := body["expenses"].([]any)
	assert.Equal(t, "2025-07-15", list[0].(map[string]any)["date"])

	rec, body = s.do(t, http.MethodGet, "/api/expenses?category=Drinks&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["count"])

	rec, body = s.do(t, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500.0, body["total"])
	totals := body["totals"].([]any)
	require.Len(t, totals, 2)
	drinks := totals[0].(map[string]any)
	assert.Equal(t, "Drinks", drinks["category"])
	assert.Equal(t, 200.0, drinks["total"])
	assert.Equal(t, 2.0, drinks["count"])

	for _, path := range []string{
		"/api/expenses?from=15-07-2025",
		"/api/expenses?limit=-1",
		"/api/expenses?from=2025-07-10&to=2025-07-01",
		"/api/summary?to=tomorrow",
	} {
		rec, _ := s.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/expenses/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategories(t *testing.T) {
	s := newTestServer(t, false)

	rec, body := s.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 9.0, body["count"])
	assert.Contains(t, body["categories"], "Miscellaneous")
}

func TestExportsAndJobs(t *testing.T) {
	s := newTestServer(t, true)

	rec, _ := s.do(t, http.MethodPost, "/api/chat", `{"message": "netflix 649"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := s.do(t, http.MethodPost, "/api/exports", `{"from": "2025-07-01"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	jobID := body["job_id"].(string)
	require.NotEmpty(t, jobID)

	var job map[string]any
	require.Eventually(t, func() bool {
		rec, job = s.do(t, http.MethodGet, "/api/jobs/"+jobID, "")
		return rec.Code == http.StatusOK && job["status"] == "completed"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "export_expenses", job["type"])
	assert.Equal(t, "2025-07-01", job["from"])
	uri := job["result"].(string)
	assert.True(t, strings.HasPrefix(uri, "gs://zenspend-exports/exports/expenses_2025-07-01_today_"), uri)

	data, err := s.objects.Fetch(context.Background(), uri)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	rec, body = s.do(t, http.MethodGet, "/api/jobs?type=export_expenses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["count"])

	rec, _ = s.do(t, http.MethodPost, "/api/exports", "")
	assert.Equal(t, http.StatusAccepted, rec.Code, "empty body exports everything")

	rec, _ = s.do(t, http.MethodPost, "/api/exports", `{"from": "2025-07-10", "to": "2025-07-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/jobs/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/jobs?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExports_NotConfigured(t *testing.T) {
	s := newTestServer(t, false)

	rec, body := s.do(t, http.MethodPost, "/api/exports", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Exports are not configured", body["error"])
}

func TestMiscRoutes(t *testing.T) {
	s := newTestServer(t, false)

	rec, body := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, body = s.do(t, http.MethodGet, "/api", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to ZenSpend API", body["message"])

	rec, body = s.do(t, http.MethodPost, "/ask", `{"message": "Rs. 60 bus ticket"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Transport", body["expense"].(map[string]any)["category"])

	rec, _ = s.do(t, http.MethodDelete, "/api/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = s.do(t, http.MethodOptions, "/api/chat", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNewRouter_Extra(t *testing.T) {
	ex, err := extractor.New(extractor.Config{})
	require.NoError(t, err)
	svc, err := expenses.NewService(expenses.Options{Extractor: ex, Repo: inmemory.NewStore()})
	require.NoError(t, err)

	h, err := NewRouter(svc, zerolog.Nop(), Options{
		AllowedOrigins: []string{"https://app.zenspend.dev"},
		Extra: func(mux *http.ServeMux) {
			mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("zenspend_up 1\n"))
			})
		},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "zenspend_up 1\n", rec.Body.String())

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Origin", "https://app.zenspend.dev")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "https://app.zenspend.dev", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
