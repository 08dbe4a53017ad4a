package contacts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/zerr"

	"github.com/jonwraymond/mutcache/observe"
)

// DefaultBaseURL is the address of the playground contacts API.
const DefaultBaseURL = "http://localhost:7777/contacts"

// DefaultTimeout bounds every request unless WithHTTPClient is used.
const DefaultTimeout = 10 * time.Second

// Client talks to a JSON contacts API.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: non-2xx responses wrap ErrNotFound or ErrUnexpectedStatus and carry
//     "method", "path" and "status" metadata; see StatusCode.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger observe.Logger
	token  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger logs each request at debug level.
func WithLogger(l observe.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a client for the collection at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(ErrInvalidBaseURL, err.Error()), "url", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, zerr.With(zerr.Wrap(ErrInvalidBaseURL, "scheme must be http or https"), "url", baseURL)
	}

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: observe.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the collection address.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// List returns every contact.
func (c *Client) List(ctx context.Context) ([]Contact, error) {
	var out []Contact
	_, err := c.do(ctx, http.MethodGet, "", nil, nil, &out)
	return out, err
}

// Get returns the contact with the given id.
func (c *Client) Get(ctx context.Context, id int) (Contact, error) {
	var out Contact
	_, err := c.do(ctx, http.MethodGet, strconv.Itoa(id), nil, nil, &out)
	return out, err
}

// Create stores a new contact and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, info Info) (Contact, error) {
	var out Contact
	_, err := c.do(ctx, http.MethodPost, "", nil, info, &out)
	return out, err
}

// Update applies the set fields of p to the contact p.ID.
func (c *Client) Update(ctx context.Context, p Patch) (Contact, error) {
	var out Contact
	_, err := c.do(ctx, http.MethodPatch, strconv.Itoa(p.ID), nil, p, &out)
	return out, err
}

// Delete removes the contact with the given id.
func (c *Client) Delete(ctx context.Context, id int) error {
	_, err := c.do(ctx, http.MethodDelete, strconv.Itoa(id), nil, nil, nil)
	return err
}

// Search returns one page of contacts matching text and the filters in opts.
// Total comes from the X-Total-Count header; a missing or malformed header
// reads as zero.
func (c *Client) Search(ctx context.Context, text string, opts SearchOptions) (SearchResult, error) {
	query := url.Values{}
	for k, v := range opts.Filter {
		query.Set(k, v)
	}
	if text != "" {
		query.Set("q", text)
	}
	if opts.Page > 0 {
		query.Set("_page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		query.Set("_limit", strconv.Itoa(opts.PerPage))
	}

	var out SearchResult
	header, err := c.do(ctx, http.MethodGet, "", query, nil, &out.Results)
	if err != nil {
		return SearchResult{}, err
	}
	out.Total, _ = strconv.Atoi(header.Get("X-Total-Count"))
	return out, nil
}

// Ping checks that the collection answers by fetching at most one contact.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Search(ctx, "", SearchOptions{Page: 1, PerPage: 1})
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (http.Header, error) {
	u := *c.base
	if path != "" {
		u.Path += "/" + path
	}
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, zerr.Wrap(err, "contacts: encode request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, zerr.Wrap(err, "contacts: build request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, requestError(zerr.Wrap(err, "contacts: request failed"), method, u.Path)
	}
	defer resp.Body.Close()

	c.logger.Debug(ctx, "contacts request",
		observe.Field{Key: "method", Value: method},
		observe.Field{Key: "path", Value: u.Path},
		observe.Field{Key: "status", Value: resp.StatusCode},
		observe.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp, method, u.Path)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, requestError(zerr.Wrap(err, "contacts: decode response"), method, u.Path)
	}
	return resp.Header, nil
}

func requestError(err error, method, path string) error {
	return zerr.With(zerr.With(err, "method", method), "path", path)
}

func statusError(resp *http.Response, method, path string) error {
	sentinel := ErrUnexpectedStatus
	if resp.StatusCode == http.StatusNotFound {
		sentinel = ErrNotFound
	}

	msg := fmt.Sprintf("contacts: %s %s returned %s", method, path, resp.Status)
	if snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512)); len(bytes.TrimSpace(snippet)) > 0 {
		msg += " (" + string(bytes.TrimSpace(snippet)) + ")"
	}
	err := requestError(zerr.Wrap(sentinel, msg), method, path)
	return zerr.With(err, "status", resp.StatusCode)
}

// StatusCode returns the HTTP status attached to err by the client.
func StatusCode(err error) (int, bool) {
	var zerrErr *zerr.Error
	for e := err; errors.As(e, &zerrErr); e = zerrErr.Unwrap() {
		if code, ok := zerrErr.Metadata()["status"].(int); ok {
			return code, true
		}
	}
	return 0, false
}
