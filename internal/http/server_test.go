package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"flowfunds/internal/core"
	"flowfunds/internal/metrics"
	"flowfunds/internal/services"
	"flowfunds/internal/storage"
	"flowfunds/internal/storage/memory"
)

func TestMain(m *testing.M) {
	// regexp2 runs one process-wide clock goroutine once a match timeout is used.
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/dlclark/regexp2.runClock"))
}

var fixedNow = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

type testServer struct {
	srv     *Server
	tracker *services.Tracker
	store   *memory.Store
	metrics *metrics.Recorder
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	store := memory.New()
	rec := metrics.New()
	tracker := services.NewTracker(storage.NewRepository(store, nil), services.Options{
		Metrics:  rec,
		Location: time.UTC,
		Clock:    func() time.Time { return fixedNow },
	})
	require.NoError(t, tracker.Init(context.Background()))

	opts.Metrics = rec
	srv := NewServer(":0", tracker, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{srv: srv, tracker: tracker, store: store, metrics: rec}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (ts *testServer) create(t *testing.T, body string) core.Transaction {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/api/transactions", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[core.Transaction](t, rr)
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	}

	failing := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("store down") }})
	rr := failing.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, Options{})
	rr := ts.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rr.Body.String())
}

func TestCreateAndListTransactions(t *testing.T) {
	ts := newTestServer(t, Options{})

	lunch := ts.create(t, `{"description":"Lunch at cafe","amount":"12.50","date":"2025-03-10","category":"Food","type":"expense"}`)
	assert.Equal(t, int64(1250), lunch.Amount.Cents)
	assert.True(t, strings.HasPrefix(lunch.ID, core.IDPrefix))

	form := url.Values{"description": {"March salary"}, "amount": {"900"}, "date": {"2025-03-01"}, "category": {"Salary"}, "type": {"income"}}
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Location"), "/api/transactions/"+core.IDPrefix)

	rr = ts.do(t, http.MethodGet, "/api/transactions?q=cafe&sort=amount&dir=asc", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[struct {
		Transactions []struct {
			ID                     string `json:"id"`
			HighlightedDescription string `json:"highlightedDescription"`
		} `json:"transactions"`
		Count int        `json:"count"`
		Total int        `json:"total"`
		View  core.Query `json:"view"`
	}](t, rr)
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, lunch.ID, list.Transactions[0].ID)
	assert.Equal(t, "Lunch at <mark>cafe</mark>", list.Transactions[0].HighlightedDescription)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, core.SortAmount, list.View.SortKey)

	assert.Equal(t, core.DefaultQuery(), ts.tracker.View(), "query parameters do not change the stored view")

	rr = ts.do(t, http.MethodGet, "/api/transactions?type=gift", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateValidation(t *testing.T) {
	ts := newTestServer(t, Options{})

	rr := ts.do(t, http.MethodPost, "/api/transactions", `{"description":"","amount":"abc","date":"2025-13-01","category":"F00d"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decode[ErrorBody](t, rr)
	assert.Equal(t, "Validation failed", body.Error)
	assert.Contains(t, body.Fields, "description")
	assert.Contains(t, body.Fields, "amount")
	assert.Contains(t, body.Fields, "date")
	assert.Contains(t, body.Fields, "category")
	assert.Zero(t, ts.tracker.Len())

	rr = ts.do(t, http.MethodPost, "/api/transactions", `{"description":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, http.MethodPatch, "/api/transactions", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, POST", rr.Header().Get("Allow"))
}

func TestTransactionByID(t *testing.T) {
	ts := newTestServer(t, Options{})
	tx := ts.create(t, `{"description":"Bus ticket","amount":"2","date":"2025-03-11","category":"Transport","type":"expense"}`)

	rr := ts.do(t, http.MethodGet, "/api/transactions/"+tx.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, tx.ID, decode[core.Transaction](t, rr).ID)

	rr = ts.do(t, http.MethodPut, "/api/transactions/"+tx.ID, `{"description":"Train ticket","amount":"4.20","date":"2025-03-11","category":"Legacy_cat"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	edited := decode[core.Transaction](t, rr)
	assert.Equal(t, "Train ticket", edited.Description)
	assert.Equal(t, int64(420), edited.Amount.Cents)
	assert.Equal(t, core.Expense, edited.Type, "type is kept when not sent")

	rr = ts.do(t, http.MethodPut, "/api/transactions/missing", `{"description":"x","amount":"1","date":"2025-03-11"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, http.MethodDelete, "/api/transactions/"+tx.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.do(t, http.MethodDelete, "/api/transactions/"+tx.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = ts.do(t, http.MethodGet, "/api/transactions/"+tx.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSaveFailureIsReported(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.store.FailWrites(errors.New("quota exceeded"))

	rr := ts.do(t, http.MethodPost, "/api/transactions", `{"description":"Snack","amount":"1","date":"2025-03-11","category":"Food"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rr.Body.String())
	assert.Equal(t, 1, ts.tracker.Len(), "memory keeps the change")
}

func TestViewEndpoints(t *testing.T) {
	ts := newTestServer(t, Options{})

	rr := ts.do(t, http.MethodPut, "/api/view", `{"search":"coffee","caseSensitive":true,"filterType":"expense"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[core.Query](t, rr)
	assert.Equal(t, "coffee", view.Search)
	assert.True(t, view.CaseSensitive)
	assert.Equal(t, "expense", view.FilterType)
	assert.Equal(t, view, ts.tracker.View())

	rr = ts.do(t, http.MethodPut, "/api/view", `{"filterType":"gift"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/view/sort/amount", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, core.Asc, decode[core.Query](t, rr).SortDir)
	rr = ts.do(t, http.MethodPost, "/api/view/sort/amount", "")
	assert.Equal(t, core.Desc, decode[core.Query](t, rr).SortDir)

	rr = ts.do(t, http.MethodPost, "/api/view/sort/colour", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/view", "")
	assert.Equal(t, core.SortAmount, decode[core.Query](t, rr).SortKey)
}

func TestDerivedEndpoints(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.create(t, `{"description":"Salary","amount":"1000","date":"2025-03-01","category":"Salary","type":"income"}`)
	ts.create(t, `{"description":"Groceries","amount":"40","date":"2025-03-11","category":"Food","type":"expense"}`)
	ts.create(t, `{"description":"Textbook","amount":"60","date":"2025-02-20","category":"Books","type":"expense"}`)

	rr := ts.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[services.Stats](t, rr)
	assert.Equal(t, int64(100000), stats.Totals.Income.Cents)
	assert.Equal(t, int64(10000), stats.Totals.Expenses.Cents)
	assert.Equal(t, int64(4000), stats.Month.Expenses.Cents)
	assert.Equal(t, int64(4000), stats.Last7DaysSpend.Cents)
	assert.Equal(t, 3, stats.Count)

	rr = ts.do(t, http.MethodGet, "/api/series/last7", "")
	require.Equal(t, http.StatusOK, rr.Code)
	series := decode[struct {
		Days []core.DayTotals `json:"days"`
	}](t, rr)
	require.Len(t, series.Days, 7)
	assert.Equal(t, "2025-03-12", series.Days[6].Date.String())

	rr = ts.do(t, http.MethodGet, "/api/breakdown", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"Books"`)

	rr = ts.do(t, http.MethodGet, "/api/categories?type=income", "")
	require.Equal(t, http.StatusOK, rr.Code)
	cats := decode[struct {
		Categories []string `json:"categories"`
	}](t, rr)
	assert.Equal(t, core.DefaultCategories[core.Income][0], cats.Categories[0])

	rr = ts.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[categoriesResponse](t, rr)
	assert.Equal(t, []string{"Books", "Food", "Salary"}, all.InUse)

	rr = ts.do(t, http.MethodGet, "/api/categories?type=gift", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSettingsAndConvert(t *testing.T) {
	ts := newTestServer(t, Options{})

	rr := ts.do(t, http.MethodGet, "/api/convert?amount=1000", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "no rate yet")

	rr = ts.do(t, http.MethodPatch, "/api/settings", `{"userName":"Ada","rate":"0.00075","budgetCap":"300","theme":"dark"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	settings := decode[core.Settings](t, rr)
	assert.Equal(t, "Ada", settings.UserName)
	require.NotNil(t, settings.BudgetCap)
	assert.Equal(t, int64(30000), settings.BudgetCap.Cents)
	assert.Equal(t, core.ThemeDark, settings.Theme)

	rr = ts.do(t, http.MethodGet, "/api/convert?amount=1000", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	conv := decode[core.Conversion](t, rr)
	assert.Equal(t, "0.75", conv.Result.String())

	rr = ts.do(t, http.MethodGet, "/api/convert?amount=lots", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, http.MethodPatch, "/api/settings", `{"rate":"-2","altCurrency":"ZZZ"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decode[ErrorBody](t, rr)
	assert.Contains(t, body.Fields, "rate")
	assert.Contains(t, body.Fields, "altCurrency")

	rr = ts.do(t, http.MethodDelete, "/api/settings/budget", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, decode[core.Settings](t, rr).BudgetCap)
	assert.Nil(t, ts.tracker.Settings().BudgetCap)
}

func TestExportImportClear(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.create(t, `{"description":"Coffee","amount":"3","date":"2025-03-11","category":"Food"}`)

	rr := ts.do(t, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="flowfunds-export-2025-03-12.json"`, rr.Header().Get("Content-Disposition"))
	exported := rr.Body.String()
	assert.Contains(t, exported, `"_meta"`)
	assert.Contains(t, exported, "\n  \"transactions\"")

	rr = ts.do(t, http.MethodDelete, "/api/data", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, ts.tracker.Len())
	assert.Empty(t, ts.store.Keys())

	rr = ts.do(t, http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"imported":1}`, rr.Body.String())
	assert.Equal(t, 1, ts.tracker.Len())

	rr = ts.do(t, http.MethodPost, "/api/import", `{"transactions":[{"id":"","description":"x","amount":1,"type":"expense"}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, decode[ErrorBody](t, rr).Error, "Record 1: Missing or invalid 'id'")
	assert.Equal(t, 1, ts.tracker.Len(), "rejected import keeps the data")

	rr = ts.do(t, http.MethodPost, "/api/import", `"just a string"`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid JSON format."}`, rr.Body.String())
}

func TestRateLimitOnlyMutations(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitPerMinute: 2})
	body := `{"description":"Gum","amount":"1","date":"2025-03-11","category":"Food"}`

	codes := []int{}
	for range 3 {
		codes = append(codes, ts.do(t, http.MethodPost, "/api/transactions", body).Code)
	}
	assert.Equal(t, []int{201, 201, 429}, codes)

	rr := ts.do(t, http.MethodPost, "/api/transactions", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Rate limit exceeded. Please try again later."}`, rr.Body.String())

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/stats", "").Code, "reads are not limited")

	scrape := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, scrape.Code)
	assert.Contains(t, scrape.Body.String(), "flowfunds_http_rate_limited_total 2")
	assert.Contains(t, scrape.Body.String(), `flowfunds_http_requests_total{code="201",method="POST",route="/api/transactions"} 2`)
}
