// Package fetcher issues GET requests against the portal REST API and maps
// every transport or status failure into a FetchError.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pevans/campus/logger"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single request when the caller supplies no client.
const DefaultTimeout = 10 * time.Second

// UserAgent identifies the campus client to upstream servers.
const UserAgent = "campus/1.0 (university portal client)"

// Page selects a window of a paginated collection. A nil *Page means the
// collection is requested without _start/_limit parameters.
type Page struct {
	Offset int
	Limit  int
}

// FetchError describes a failed request: a malformed URL, a transport
// failure, or a non-2xx status. StatusCode is zero when no response arrived.
type FetchError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher performs GET requests relative to a base URL. It holds no mutable
// state and is safe for concurrent use.
type Fetcher struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// New creates a fetcher for baseURL. A nil client gets DefaultTimeout.
func New(baseURL string, client *http.Client, log *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		log:     logger.OrNop(log),
	}
}

// BaseURL returns the base URL requests are resolved against.
func (f *Fetcher) BaseURL() string {
	return f.baseURL
}

// Fetch requests path and returns the raw body of a 2xx response.
func (f *Fetcher) Fetch(ctx context.Context, path string, page *Page) ([]byte, error) {
	target, err := f.buildURL(path, page)
	if err != nil {
		return nil, &FetchError{Message: "malformed URL", Err: err}
	}
	return Get(ctx, f.client, target, f.log)
}

// buildURL joins path to the base URL and appends pagination parameters.
func (f *Fetcher) buildURL(path string, page *Page) (string, error) {
	u, err := url.Parse(f.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host in %q", u.String())
	}

	if page != nil {
		q := u.Query()
		q.Set("_start", strconv.Itoa(page.Offset))
		q.Set("_limit", strconv.Itoa(page.Limit))
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// Get performs a single GET of an absolute URL with the shared status and
// error mapping.
func Get(ctx context.Context, client *http.Client, target string, log *zap.Logger) ([]byte, error) {
	body, _, err := GetWithContentType(ctx, client, target, log)
	return body, err
}

// GetWithContentType is Get that also returns the response Content-Type. The
// scraper needs it to decode pages in their declared charset.
func GetWithContentType(ctx context.Context, client *http.Client, target string, log *zap.Logger) ([]byte, string, error) {
	log = logger.OrNop(log)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", &FetchError{Message: "failed to create request", Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		log.Debug("request failed", zap.String("url", target), zap.Error(err))
		return nil, "", &FetchError{Message: "failed to fetch URL", Err: err}
	}
	defer resp.Body.Close()

	log.Debug("request completed",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &FetchError{
			Message:    fmt.Sprintf("HTTP error: %s", resp.Status),
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &FetchError{Message: "failed to read response body", StatusCode: resp.StatusCode, Err: err}
	}

	return body, resp.Header.Get("Content-Type"), nil
}
