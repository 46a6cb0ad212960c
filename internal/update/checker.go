package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default configuration values.
const (
	DefaultRepoOwner    = "Kebolder"
	DefaultRepoName     = "krita-ai-diffusion"
	DefaultCheckTimeout = 10 * time.Second
)

// maxPackageBytes caps the size of a downloaded release package (500 MB).
const maxPackageBytes = 500 << 20

// Error variables for specific error conditions.
var (
	ErrNetworkFailure = fmt.Errorf("network request failed")
	ErrRateLimited    = fmt.Errorf("rate limited by GitHub API")
	ErrDownloadFailed = fmt.Errorf("download failed")
)

// ReleaseAsset represents a downloadable file attached to a release.
type ReleaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	ContentType        string `json:"content_type"`
	Size               int64  `json:"size"`
}

// ReleaseInfo contains information about a published release.
type ReleaseInfo struct {
	TagName     string         `json:"tag_name"`
	Name        string         `json:"name"`
	Body        string         `json:"body"`
	HTMLURL     string         `json:"html_url"`
	PublishedAt time.Time      `json:"published_at"`
	Prerelease  bool           `json:"prerelease"`
	Draft       bool           `json:"draft"`
	Assets      []ReleaseAsset `json:"assets"`
}

// Checker queries the GitHub release feed of the plugin repository and
// downloads release assets. It implements ReleaseSource.
type Checker struct {
	owner     string
	repo      string
	apiClient *http.Client // version-check requests, bounded wait
	dlClient  *http.Client // asset downloads, no explicit timeout
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithHTTPClient sets a custom HTTP client for release feed queries.
func WithHTTPClient(client *http.Client) CheckerOption {
	return func(c *Checker) {
		c.apiClient = client
	}
}

// WithDownloadClient sets a custom HTTP client for asset downloads.
func WithDownloadClient(client *http.Client) CheckerOption {
	return func(c *Checker) {
		c.dlClient = client
	}
}

// WithCheckTimeout sets the timeout for release feed queries.
func WithCheckTimeout(timeout time.Duration) CheckerOption {
	return func(c *Checker) {
		c.apiClient.Timeout = timeout
	}
}

// NewChecker creates a release feed client for the specified repository.
func NewChecker(owner, repo string, opts ...CheckerOption) *Checker {
	c := &Checker{
		owner: owner,
		repo:  repo,
		apiClient: &http.Client{
			Timeout: DefaultCheckTimeout,
		},
		dlClient: &http.Client{
			Timeout: 0, // downloads rely on the transport's own timeouts
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestRelease fetches the newest published release of the repository.
func (c *Checker) LatestRelease(ctx context.Context) (*ReleaseInfo, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", c.owner, c.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "kritactl-updater")

	resp, err := c.apiClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusForbidden {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrNetworkFailure, resp.StatusCode)
	}

	var release ReleaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &release, nil
}

// Download fetches the asset at url and returns its raw bytes.
func (c *Checker) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", "kritactl-updater")

	resp, err := c.dlClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPackageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	return data, nil
}
