package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("zip-bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "sub", "file.zip")
	c := New(WithHTTPClient(srv.Client()))
	require.NoError(t, c.Download(context.Background(), srv.URL, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "zip-bytes", string(got))
	assert.Equal(t, UserAgent, gotUA)
}

func TestDownload_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "file.zip")
	err := New(WithHTTPClient(srv.Client())).Download(context.Background(), srv.URL, dest)
	require.ErrorIs(t, err, ErrHTTPStatus)
	assert.Contains(t, err.Error(), "404")
	assert.NoFileExists(t, dest)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial files should remain")
}

func TestDownload_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(WithHTTPClient(srv.Client())).Download(ctx, srv.URL, filepath.Join(t.TempDir(), "f"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestDownload_Progress(t *testing.T) {
	payload := strings.Repeat("a", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	c := New(WithHTTPClient(srv.Client()), WithProgress(NewBarFactory(&buf)))
	require.NoError(t, c.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "melon.zip")))

	out := buf.String()
	assert.Contains(t, out, "melon.zip")
	assert.Contains(t, out, "4.1 kB")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestBarProgress_UnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewBarFactory(&buf)("depot.zip", -1).(*BarProgress)
	p.Update(2048)
	assert.Equal(t, "depot.zip 2.0 kB", p.Line())
}

func TestTempPath(t *testing.T) {
	a := TempPath("goldberg", ".zip")
	b := TempPath("goldberg", "zip")

	assert.NotEqual(t, a, b)
	assert.Equal(t, os.TempDir(), filepath.Dir(a))
	assert.True(t, strings.HasPrefix(filepath.Base(a), "goldberg_"))
	assert.True(t, strings.HasSuffix(a, ".zip"))
}
