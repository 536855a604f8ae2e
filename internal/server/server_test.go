package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
)

func publishedTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "blog"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("home"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "blog", "index.html"), []byte("blog index"), 0o600))
	return root
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_DomainRoot(t *testing.T) {
	h := New(Options{Root: publishedTree(t)}).Handler()

	rec := get(t, h, "/blog/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "blog index", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(t, h, "/missing").Code)
}

func TestHandler_Subdirectory(t *testing.T) {
	h := New(Options{Root: publishedTree(t), SitePath: "/~user/"}).Handler()

	rec := get(t, h, "/~user/blog/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "blog index", rec.Body.String())

	rec = get(t, h, "/blog/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `<a href="/~user/">`)

	rec = get(t, h, "/~user")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
}

func TestHandler_Metrics(t *testing.T) {
	reg := prom.NewRegistry()
	metrics.NewPrometheusRecorder(reg).AddPagesRendered(3)
	h := New(Options{Root: publishedTree(t), Registry: reg}).Handler()

	rec := get(t, h, MetricsPath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "blogbuilder_pages_rendered_total 3")
}

func TestServer_StartStop(t *testing.T) {
	s := New(Options{Root: publishedTree(t)})
	require.NoError(t, s.Start(context.Background(), "127.0.0.1:0"))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})

	resp, err := http.Get("http://" + s.Addr() + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "home", string(body))
}
