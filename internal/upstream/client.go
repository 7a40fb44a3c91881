// Package upstream provides a client for a compatible upstream gallery.
//
// When an upstream URL is configured, the gallery API falls back to it for
// extensions that are not published locally: extension queries are proxied
// and asset requests are redirected to the upstream's own asset endpoints.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/BuckysMyHero/openvsx/internal/gallery"
)

const (
	// DefaultTimeout is the default timeout for upstream requests.
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed upstream response size (100MB).
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent is the user agent string for upstream requests.
	UserAgent = "openvsx-server/1.0"

	// queryMaxTries bounds the retry loop for proxied queries. Upstream
	// queries sit on the interactive request path, so give up quickly.
	queryMaxTries = 3
)

// HTTPError represents a non-success response from the upstream gallery.
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
}

// Error returns the error message.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// Client is an interface for upstream gallery operations.
type Client interface {
	// Query proxies an extension query to the upstream gallery.
	Query(ctx context.Context, req *gallery.QueryRequest) (*gallery.QueryResponse, error)

	// AssetURL returns the upstream URL serving the given asset.
	AssetURL(namespace, extension, version, assetType, targetPlatform string) string

	// DownloadURL returns the upstream vspackage URL for the given build.
	DownloadURL(namespace, extension, version, targetPlatform string) string

	// BrowseURL returns the upstream unpkg URL for the given package path.
	BrowseURL(namespace, extension, version, path string) string
}

// DefaultClient is the default upstream client implementation.
type DefaultClient struct {
	baseURL string
	client  *http.Client
}

var _ Client = (*DefaultClient)(nil)

// NewDefaultClient creates an upstream client for the gallery rooted at
// baseURL. If timeout is 0, DefaultTimeout is used.
func NewDefaultClient(baseURL string, timeout time.Duration) *DefaultClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &DefaultClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Query proxies an extension query to the upstream gallery. Transient
// failures (network errors, 5xx, 429) are retried with exponential backoff.
func (c *DefaultClient) Query(ctx context.Context, req *gallery.QueryRequest) (*gallery.QueryResponse, error) {
	queryURL := c.baseURL + "/vscode/gallery/extensionquery"
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	op := func() (*gallery.QueryResponse, error) {
		return c.doQuery(ctx, queryURL, body)
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(queryMaxTries),
	)
}

func (c *DefaultClient) doQuery(ctx context.Context, queryURL string, body []byte) (*gallery.QueryResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, queryURL, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("User-Agent", UserAgent)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		// Network errors are worth a retry.
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		httpErr := NewHTTPError(resp.StatusCode, queryURL, resp.Status)
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, httpErr
		}
		return nil, backoff.Permanent(httpErr)
	}

	limited := io.LimitReader(resp.Body, MaxResponseSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to read response body: %w", err))
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, backoff.Permanent(fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize))
	}

	var out gallery.QueryResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode upstream response: %w", err))
	}
	return &out, nil
}

// AssetURL returns the upstream URL serving the given asset. The asset type
// may carry a web-resource path suffix and is passed through unescaped.
func (c *DefaultClient) AssetURL(namespace, extension, version, assetType, targetPlatform string) string {
	u := fmt.Sprintf("%s/vscode/asset/%s/%s/%s/%s",
		c.baseURL,
		url.PathEscape(namespace),
		url.PathEscape(extension),
		url.PathEscape(version),
		assetType,
	)
	return appendTargetPlatform(u, targetPlatform)
}

// DownloadURL returns the upstream vspackage URL for the given build.
func (c *DefaultClient) DownloadURL(namespace, extension, version, targetPlatform string) string {
	u := fmt.Sprintf("%s/vscode/gallery/publishers/%s/vsextensions/%s/%s/vspackage",
		c.baseURL,
		url.PathEscape(namespace),
		url.PathEscape(extension),
		url.PathEscape(version),
	)
	return appendTargetPlatform(u, targetPlatform)
}

// BrowseURL returns the upstream unpkg URL for the given package path. An
// empty path addresses the top level of the package.
func (c *DefaultClient) BrowseURL(namespace, extension, version, path string) string {
	u := fmt.Sprintf("%s/vscode/unpkg/%s/%s/%s",
		c.baseURL,
		url.PathEscape(namespace),
		url.PathEscape(extension),
		url.PathEscape(version),
	)
	if path != "" {
		u += "/" + path
	}
	return u
}

func appendTargetPlatform(u, targetPlatform string) string {
	if targetPlatform == "" {
		return u
	}
	return u + "?targetPlatform=" + url.QueryEscape(targetPlatform)
}
