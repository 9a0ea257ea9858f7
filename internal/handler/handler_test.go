package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awsl-project/ranstat/internal/domain"
	"github.com/awsl-project/ranstat/internal/events"
	"github.com/awsl-project/ranstat/internal/metrics"
	"github.com/awsl-project/ranstat/internal/reshape"
	"github.com/awsl-project/ranstat/internal/service"
)

type fakeImporter struct {
	mu       sync.Mutex
	feed     domain.Feed
	fileName string
	body     string
	err      error
}

func (f *fakeImporter) Import(_ context.Context, feed domain.Feed, fileName string, r io.Reader) (*domain.ImportSummary, error) {
	b, readErr := io.ReadAll(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feed, f.fileName, f.body = feed, fileName, string(b)
	if readErr != nil {
		return nil, readErr
	}
	s := domain.NewImportSummary("batch-1", feed, fileName)
	s.RawRecords = strings.Count(string(b), "\n")
	return s, f.err
}

type fakeLister struct {
	limit int
	items []*domain.ImportSummary
}

func (f *fakeLister) ListImports(_ context.Context, limit int) ([]*domain.ImportSummary, error) {
	f.limit = limit
	return f.items, nil
}

type fakeQuery struct {
	filter domain.KPIFilter
	err    error
}

func (f *fakeQuery) Hourly(_ context.Context, filter domain.KPIFilter) ([]reshape.HourlyRow, error) {
	f.filter = filter
	return []reshape.HourlyRow{{Date: "2025-11-24", Hour: 9, Band: domain.Band3500MHz}}, f.err
}

func (f *fakeQuery) LTE(_ context.Context, filter domain.KPIFilter) ([]reshape.HourlyRow, error) {
	f.filter = filter
	return []reshape.HourlyRow{{Date: "2025-11-24", Hour: 9, Band: domain.Band900MHz}}, f.err
}

func (f *fakeQuery) Weekly(_ context.Context, filter domain.KPIFilter) ([]reshape.WeeklyRow, error) {
	f.filter = filter
	return []reshape.WeeklyRow{{WeekStart: "2025-11-24", WeekNumber: 48, Site: "SITE01", Band: domain.Band3500MHz}}, f.err
}

func (f *fakeQuery) Overview(_ context.Context, filter domain.KPIFilter) (*service.Overview, error) {
	f.filter = filter
	return &service.Overview{Feeds: []service.FeedOverview{{Feed: domain.FeedNRHourly, Buckets: 1}}}, f.err
}

type testEnv struct {
	importer *fakeImporter
	lister   *fakeLister
	query    *fakeQuery
	hub      *WebSocketHub
	handler  http.Handler
}

func newTestEnv(t *testing.T, password string) *testEnv {
	t.Helper()
	env := &testEnv{
		importer: &fakeImporter{},
		lister:   &fakeLister{items: []*domain.ImportSummary{}},
		query:    &fakeQuery{},
	}
	m := metrics.New()
	env.hub = NewWebSocketHub(m)
	t.Cleanup(func() { _ = env.hub.Close() })
	env.handler = NewRouter(RouterConfig{
		Importer:    env.importer,
		Lister:      env.lister,
		Query:       env.query,
		Hub:         env.hub,
		Auth:        NewAuthMiddleware(password),
		Metrics:     m,
		MaxUploadMB: 1,
	})
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, field, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("comment", "ignored"))
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(httptest.NewRequest(http.MethodGet, "/api/kpi/nr-hourly", nil))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/kpi/nr-hourly"`)
}

func TestUpload_Multipart(t *testing.T) {
	env := newTestEnv(t, "")
	body, ct := multipartBody(t, "file", "nr.csv", "a,b\n1,2\n")
	req := httptest.NewRequest(http.MethodPost, "/api/imports/nr-hourly", body)
	req.Header.Set("Content-Type", ct)

	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary domain.ImportSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, domain.FeedNRHourly, summary.Feed)
	assert.Equal(t, "nr.csv", summary.FileName)
	assert.Equal(t, "a,b\n1,2\n", env.importer.body)
}

func TestUpload_RawBody(t *testing.T) {
	env := newTestEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/imports/lte_hourly?name=lte.csv.gz", strings.NewReader("x\n"))
	req.Header.Set("Content-Type", "application/octet-stream")

	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.FeedLTEHourly, env.importer.feed)
	assert.Equal(t, "lte.csv.gz", env.importer.fileName)
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"unknown feed", "/api/imports/gsm", nil, http.StatusBadRequest},
		{"no header", "/api/imports/nr-hourly", fmt.Errorf("decode: %w", domain.ErrNoHeader), http.StatusUnprocessableEntity},
		{"missing columns", "/api/imports/nr-hourly", domain.ErrMissingColumns, http.StatusUnprocessableEntity},
		{"empty input", "/api/imports/nr-hourly", domain.ErrEmptyInput, http.StatusUnprocessableEntity},
		{"shutting down", "/api/imports/nr-hourly", domain.ErrShuttingDown, http.StatusServiceUnavailable},
		{"storage failure", "/api/imports/nr-hourly", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "")
			env.importer.err = tt.err
			rec := env.do(httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader("x\n")))
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	env := newTestEnv(t, "")
	body, ct := multipartBody(t, "attachment", "nr.csv", "a\n")
	req := httptest.NewRequest(http.MethodPost, "/api/imports/nr-hourly", body)
	req.Header.Set("Content-Type", ct)

	rec := env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t, "")
	big := strings.Repeat("x", 2<<20)
	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/imports/nr-hourly", strings.NewReader(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUpload_RequiresToken(t *testing.T) {
	env := newTestEnv(t, "secret")

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/imports/nr-hourly", strings.NewReader("x\n")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/admin/auth/verify", strings.NewReader(`{"password":"wrong"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/admin/auth/verify", strings.NewReader(`{"password":"secret"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var verify struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verify))
	require.True(t, verify.Success)

	req := httptest.NewRequest(http.MethodPost, "/api/imports/nr-hourly", strings.NewReader("x\n"))
	req.Header.Set(AuthHeader, "Bearer "+verify.Token)
	rec = env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// 查询接口不需要登录
	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/kpi/overview", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthStatus(t *testing.T) {
	env := newTestEnv(t, "secret")
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/admin/auth/status", nil))
	assert.JSONEq(t, `{"authEnabled":true}`, rec.Body.String())
}

func TestValidateToken_Expired(t *testing.T) {
	m := NewAuthMiddleware("secret")
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }
	token, err := m.GenerateToken()
	require.NoError(t, err)
	assert.True(t, m.ValidateToken(token))

	m.now = func() time.Time { return issued.Add(TokenExpiry + time.Minute) }
	assert.False(t, m.ValidateToken(token))

	other := NewAuthMiddleware("other")
	other.now = func() time.Time { return issued }
	assert.False(t, other.ValidateToken(token))
}

func TestListImports(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/imports", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultImportListLimit, env.lister.limit)
	assert.JSONEq(t, `[]`, rec.Body.String())

	env.do(httptest.NewRequest(http.MethodGet, "/api/imports?limit=100000", nil))
	assert.Equal(t, maxImportListLimit, env.lister.limit)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/imports?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKPIQuery_Filter(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(httptest.NewRequest(http.MethodGet,
		"/api/kpi/site-weekly?start=2025-11-01&end=2025-11-30&band=900MHz,3500MHz&band=Unknown&site=SITE01", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	f := env.query.filter
	require.NotNil(t, f.Start)
	require.NotNil(t, f.End)
	assert.Equal(t, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), *f.Start)
	assert.Equal(t, time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC), *f.End)
	assert.Equal(t, []string{"900MHz", "3500MHz", "Unknown"}, f.Bands)
	require.NotNil(t, f.Site)
	assert.Equal(t, "SITE01", *f.Site)

	var rows []reshape.WeeklyRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 48, rows[0].WeekNumber)
}

func TestKPIQuery_Routes(t *testing.T) {
	env := newTestEnv(t, "")
	for _, path := range []string{"/api/kpi/nr-hourly", "/api/kpi/lte-hourly", "/api/kpi/site-weekly", "/api/kpi/overview"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), path)
	}
}

func TestKPIQuery_BadParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"bad start", "start=2025/11/01"},
		{"bad end", "end=yesterday"},
		{"start after end", "start=2025-12-01&end=2025-11-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "")
			rec := env.do(httptest.NewRequest(http.MethodGet, "/api/kpi/nr-hourly?"+tt.query, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestKPIQuery_StoreError(t *testing.T) {
	env := newTestEnv(t, "")
	env.query.err = errors.New("db down")
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/kpi/lte-hourly", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecovery(t *testing.T) {
	h := NewRouter(RouterConfig{Query: panicQuery{&fakeQuery{}}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/kpi/nr-hourly", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type panicQuery struct{ *fakeQuery }

func (panicQuery) Hourly(context.Context, domain.KPIFilter) ([]reshape.HourlyRow, error) {
	panic("boom")
}

func TestCORS(t *testing.T) {
	h := NewRouter(RouterConfig{CORSOrigins: []string{"http://dash.local"}})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://dash.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://dash.local", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocketHub_Broadcast(t *testing.T) {
	env := newTestEnv(t, "")
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	ev := domain.ImportEvent{
		Type:      domain.ImportEventCompleted,
		BatchID:   "batch-1",
		Feed:      domain.FeedNRHourly,
		FileName:  "nr.csv",
		Timestamp: time.Date(2025, 11, 24, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, env.hub.Publish(context.Background(), ev))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got domain.ImportEvent
	require.NoError(t, events.Unmarshal(data, &got))
	assert.Equal(t, ev.BatchID, got.BatchID)
	assert.Equal(t, ev.Type, got.Type)

	require.NoError(t, env.hub.Close())
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestWebSocketHub_RejectsCrossOrigin(t *testing.T) {
	env := newTestEnv(t, "")
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSameHostOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://example.com", true},
		{"https://EXAMPLE.com", true},
		{"http://other.com", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, sameHostOrigin(req), tt.origin)
	}
}
