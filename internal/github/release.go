// Package github looks up the latest published release of a repository.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/text/cases"

	"github.com/desktopmate-tools/dminstall/internal/fetch"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com"

// melonLoaderFallback is used when a MelonLoader release carries no matching asset.
const melonLoaderFallback = "https://github.com/LavaGang/MelonLoader/releases/latest/download/MelonLoader.x64.zip"

// ErrNoRelease is returned when release information could not be obtained.
var ErrNoRelease = errors.New("github: release unavailable")

// Release is the subset of a GitHub release the installer needs.
type Release struct {
	Tag         string
	DownloadURL string
	Notes       string
}

type apiRelease struct {
	TagName string     `json:"tag_name"`
	Body    string     `json:"body"`
	Assets  []apiAsset `json:"assets"`
}

type apiAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Client queries the releases API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client. An empty baseURL means DefaultBaseURL.
func NewClient(baseURL string, hc *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = fetch.NewHTTPClient(fetch.DefaultConfig())
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// LatestRelease returns the latest release of owner/repo. With a non-empty
// assetFilter the asset whose name matches it case-insensitively is chosen;
// otherwise the first .zip asset. DownloadURL is empty when nothing matched,
// except for MelonLoader which falls back to its well-known latest zip.
func (c *Client) LatestRelease(ctx context.Context, owner, repo, assetFilter string) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRelease, err)
	}
	req.Header.Set("User-Agent", fetch.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRelease, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrNoRelease, url, resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRelease, err)
	}
	if err := validateRelease(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRelease, err)
	}

	var rel apiRelease
	if err := json.Unmarshal(raw, &rel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRelease, err)
	}

	out := &Release{
		Tag:         rel.TagName,
		DownloadURL: pickAsset(rel.Assets, assetFilter),
		Notes:       rel.Body,
	}
	if out.DownloadURL == "" && strings.EqualFold(repo, "MelonLoader") {
		out.DownloadURL = melonLoaderFallback
	}
	return out, nil
}

func pickAsset(assets []apiAsset, filter string) string {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(filter))
	for _, a := range assets {
		name := fold.String(a.Name)
		if want != "" {
			if name == want {
				return a.BrowserDownloadURL
			}
			continue
		}
		if strings.HasSuffix(name, ".zip") {
			return a.BrowserDownloadURL
		}
	}
	return ""
}
