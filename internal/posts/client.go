package posts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the collection endpoint of a local json-server style backend
const DefaultBaseURL = "http://localhost:3000/posts"

// ErrNotFound is matched by errors.Is for 404 responses
var ErrNotFound = errors.New("post not found")

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is reports 404 responses as ErrNotFound
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client is a posts API client bound to one collection URL
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a client for the collection at baseURL, e.g. http://localhost:3000/posts
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the collection URL the client talks to
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) postURL(id ID) string {
	return c.baseURL + "/" + url.PathEscape(string(id))
}

// do performs a request with an optional JSON body and decodes a JSON response into result
func (c *Client) do(ctx context.Context, method, url string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// List fetches the whole collection
func (c *Client) List(ctx context.Context) ([]Post, error) {
	var posts []Post
	if err := c.do(ctx, http.MethodGet, c.baseURL, nil, &posts); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// Get fetches a single post
func (c *Client) Get(ctx context.Context, id ID) (*Post, error) {
	var post Post
	if err := c.do(ctx, http.MethodGet, c.postURL(id), nil, &post); err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return &post, nil
}

// Create stores a new post and returns it with its assigned id.
// Fields are normalized first (trimmed, placeholder image).
func (c *Client) Create(ctx context.Context, p NewPost) (*Post, error) {
	var post Post
	if err := c.do(ctx, http.MethodPost, c.baseURL, p.Normalize(), &post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &post, nil
}

// Update sends a partial update of title and content
func (c *Client) Update(ctx context.Context, id ID, u Update) (*Post, error) {
	var post Post
	if err := c.do(ctx, http.MethodPatch, c.postURL(id), u.Normalize(), &post); err != nil {
		return nil, fmt.Errorf("update post %s: %w", id, err)
	}
	return &post, nil
}

// Delete removes a post. The response body, if any, is ignored.
func (c *Client) Delete(ctx context.Context, id ID) error {
	if err := c.do(ctx, http.MethodDelete, c.postURL(id), nil, nil); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	return nil
}
