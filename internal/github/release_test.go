package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DesktopMateInstaller", r.Header.Get("User-Agent"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const releaseJSON = `{
  "tag_name": "v1.2.0",
  "body": "## Changes\n- fixed VRM loading",
  "assets": [
    {"name": "Source.tar.gz", "browser_download_url": "https://example.test/src.tgz"},
    {"name": "other.zip", "browser_download_url": "https://example.test/other.zip"},
    {"name": "customavatarloader.ZIP", "browser_download_url": "https://example.test/cal.zip"}
  ]
}`

func TestLatestRelease(t *testing.T) {
	tests := []struct {
		name    string
		repo    string
		body    string
		filter  string
		wantURL string
	}{
		{
			name:    "filter matches case-insensitively",
			repo:    "desktopmate-custom-avatar-loader",
			body:    releaseJSON,
			filter:  "CustomAvatarLoader.zip",
			wantURL: "https://example.test/cal.zip",
		},
		{
			name:    "no filter picks first zip",
			repo:    "desktopmate-custom-avatar-loader",
			body:    releaseJSON,
			wantURL: "https://example.test/other.zip",
		},
		{
			name:    "no match leaves url empty",
			repo:    "desktopmate-custom-avatar-loader",
			body:    releaseJSON,
			filter:  "missing.zip",
			wantURL: "",
		},
		{
			name:    "melonloader falls back",
			repo:    "MelonLoader",
			body:    `{"tag_name": "v0.7.0", "assets": []}`,
			wantURL: melonLoaderFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, http.StatusOK, tt.body)
			c := NewClient(srv.URL, srv.Client())

			rel, err := c.LatestRelease(context.Background(), "owner", tt.repo, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, rel.DownloadURL)
			assert.NotEmpty(t, rel.Tag)
		})
	}
}

func TestLatestRelease_Notes(t *testing.T) {
	srv := newServer(t, http.StatusOK, releaseJSON)
	rel, err := NewClient(srv.URL, srv.Client()).LatestRelease(context.Background(), "o", "r", "")
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", rel.Tag)
	assert.Contains(t, rel.Notes, "fixed VRM loading")
}

func TestLatestRelease_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusForbidden, body: `{"message": "rate limited"}`},
		{name: "not json", status: http.StatusOK, body: `<html>`},
		{name: "missing tag", status: http.StatusOK, body: `{"assets": []}`},
		{name: "bad asset", status: http.StatusOK, body: `{"tag_name": "v1", "assets": [{"name": 3}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.status, tt.body)
			_, err := NewClient(srv.URL, srv.Client()).LatestRelease(context.Background(), "o", "r", "")
			require.ErrorIs(t, err, ErrNoRelease)
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", nil)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.NotNil(t, c.http)
}
