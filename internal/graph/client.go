// Package graph is a thin Microsoft Graph OneNote client: notebook, section
// and page listings, page HTML and embedded resources.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/starford/noteport/internal/models"
)

// DefaultBaseURL is the Graph v1.0 root.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// TokenProvider returns a bearer token for each request.
type TokenProvider func(ctx context.Context) (string, error)

// StaticToken returns a provider that always yields token.
func StaticToken(token string) TokenProvider {
	return func(context.Context) (string, error) {
		return token, nil
	}
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL       string
	TokenProvider TokenProvider
	HTTPClient    *http.Client
	UserAgent     string
	// RetryDelay is used when a 429 carries no Retry-After header.
	RetryDelay time.Duration
	// MaxRetryDelay caps the wait honoured from Retry-After.
	MaxRetryDelay time.Duration
}

// Client talks to the Graph OneNote API.
type Client struct {
	baseURL       string
	tokenProvider TokenProvider
	httpClient    *http.Client
	userAgent     string
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

// HTTPError is returned for any non-2xx response that survives the retry.
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("graph: http %d for %s: %s", e.StatusCode, e.URL, e.Message)
}

// Resource is a downloaded embedded resource.
type Resource struct {
	Data        []byte
	Filename    string
	ContentType string
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = "noteport/1.0"
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	maxRetryDelay := opts.MaxRetryDelay
	if maxRetryDelay <= 0 {
		maxRetryDelay = time.Minute
	}
	return &Client{
		baseURL:       baseURL,
		tokenProvider: opts.TokenProvider,
		httpClient:    httpClient,
		userAgent:     userAgent,
		retryDelay:    retryDelay,
		maxRetryDelay: maxRetryDelay,
	}
}

type linkWire struct {
	Href string `json:"href"`
}

type entityWire struct {
	ID                   string `json:"id"`
	DisplayName          string `json:"displayName"`
	Title                string `json:"title"`
	CreatedDateTime      string `json:"createdDateTime"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
	Links                struct {
		OneNoteWebURL    linkWire `json:"oneNoteWebUrl"`
		OneNoteClientURL linkWire `json:"oneNoteClientUrl"`
	} `json:"links"`
}

type listWire struct {
	Value    []entityWire `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

// ListNotebooks returns every notebook visible to the signed-in user.
func (c *Client) ListNotebooks(ctx context.Context) ([]models.NotebookDescriptor, error) {
	items, err := c.list(ctx, c.baseURL+"/me/onenote/notebooks", nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.NotebookDescriptor, 0, len(items))
	for _, it := range items {
		out = append(out, models.NotebookDescriptor{
			ID:       it.ID,
			Name:     it.DisplayName,
			Created:  it.CreatedDateTime,
			Modified: it.LastModifiedDateTime,
		})
	}
	return out, nil
}

// ListSections returns the sections of a notebook.
func (c *Client) ListSections(ctx context.Context, notebookID string) ([]models.SectionDescriptor, error) {
	u := c.baseURL + "/me/onenote/notebooks/" + url.PathEscape(notebookID) + "/sections"
	items, err := c.list(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.SectionDescriptor, 0, len(items))
	for _, it := range items {
		out = append(out, models.SectionDescriptor{
			ID:       it.ID,
			Name:     it.DisplayName,
			Created:  it.CreatedDateTime,
			Modified: it.LastModifiedDateTime,
		})
	}
	return out, nil
}

// ListPages returns the pages of a section, oldest first.
func (c *Client) ListPages(ctx context.Context, sectionID string) ([]models.PageDescriptor, error) {
	u := c.baseURL + "/me/onenote/sections/" + url.PathEscape(sectionID) + "/pages"
	params := url.Values{}
	params.Set("$top", "200")
	params.Set("$orderby", "createdDateTime asc")
	items, err := c.list(ctx, u, params)
	if err != nil {
		return nil, err
	}
	out := make([]models.PageDescriptor, 0, len(items))
	for _, it := range items {
		out = append(out, models.PageDescriptor{
			ID:        it.ID,
			Title:     it.Title,
			Created:   it.CreatedDateTime,
			Modified:  it.LastModifiedDateTime,
			WebURL:    it.Links.OneNoteWebURL.Href,
			ClientURL: it.Links.OneNoteClientURL.Href,
		})
	}
	return out, nil
}

// GetPageHTML returns the raw HTML content of a page.
func (c *Client) GetPageHTML(ctx context.Context, pageID string) (string, error) {
	u := c.baseURL + "/me/onenote/pages/" + url.PathEscape(pageID) + "/content"
	resp, err := c.get(ctx, u, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("graph: read page content: %w", err)
	}
	return string(body), nil
}

// FetchResource downloads an embedded resource referenced from page HTML.
func (c *Client) FetchResource(ctx context.Context, rawURL string) (*Resource, error) {
	resp, err := c.get(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("graph: read resource: %w", err)
	}
	ct := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	return &Resource{
		Data:        data,
		Filename:    dispositionFilename(resp.Header.Get("Content-Disposition")),
		ContentType: ct,
	}, nil
}

// list follows @odata.nextLink until exhausted. params apply to the first
// request only; next links already carry their query.
func (c *Client) list(ctx context.Context, u string, params url.Values) ([]entityWire, error) {
	var out []entityWire
	for u != "" {
		resp, err := c.get(ctx, u, params)
		if err != nil {
			return nil, err
		}
		var page listWire
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("graph: decode list: %w", err)
		}
		out = append(out, page.Value...)
		u = page.NextLink
		params = nil
	}
	return out, nil
}

// get issues an authenticated GET. A 429 is retried exactly once after the
// advertised Retry-After delay; any other failure is returned as is.
func (c *Client) get(ctx context.Context, u string, params url.Values) (*http.Response, error) {
	if c.tokenProvider == nil {
		return nil, fmt.Errorf("graph: token provider is required")
	}
	token, err := c.tokenProvider(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: acquire token: %w", err)
	}
	if params != nil {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + params.Encode()
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("graph: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("graph: get %s: %w", u, err)
		}
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return resp, nil
		}

		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			if err := sleepContext(ctx, c.backoff(resp.Header.Get("Retry-After"))); err != nil {
				return nil, err
			}
			continue
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: u, Message: strings.TrimSpace(string(msg))}
	}
}

func (c *Client) backoff(retryAfter string) time.Duration {
	delay := c.retryDelay
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
		delay = time.Duration(secs) * time.Second
	}
	if delay > c.maxRetryDelay {
		return c.maxRetryDelay
	}
	return delay
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// dispositionFilename extracts the filename parameter of a Content-Disposition
// header, tolerating the bare `filename=x` form some endpoints send.
func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(header); err == nil {
		if fn := params["filename"]; fn != "" {
			return fn
		}
	}
	if i := strings.LastIndex(header, "filename="); i >= 0 {
		return strings.Trim(header[i+len("filename="):], `"; `)
	}
	return ""
}
