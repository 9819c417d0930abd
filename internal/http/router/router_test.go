package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"cloudfiles/internal/db"
	"cloudfiles/internal/http/middleware"
	"cloudfiles/internal/metrics"
	"cloudfiles/internal/security"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupTestRouter(t *testing.T) (*mux.Router, *db.DB) {
	t.Helper()
	log := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	store, err := db.Open(context.Background(), db.Options{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "files.db"),
	}, log, m)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sessions, err := security.NewSessionStore("router-test")
	require.NoError(t, err)

	return Setup(store, sessions, log, m, reg), store
}

func TestUploadListDeleteFlow(t *testing.T) {
	r, store := setupTestRouter(t)

	form := url.Values{"action": {"upload"}, "filename": {"report.pdf"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	page := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		page.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, page)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "report.pdf")
	assert.Contains(t, rec.Body.String(), "uploaded successfully")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/delete/report.pdf", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := setupTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `cloudfiles_store_operations_total{operation="list",result="ok"} 1`)
	assert.Contains(t, body, `cloudfiles_http_requests_total{method="GET",route="/",status="200"} 1`)
}

func TestHealthz(t *testing.T) {
	r, store := setupTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	require.NoError(t, store.Close())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	r, _ := setupTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/delete/a.txt", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
