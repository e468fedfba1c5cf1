// Package authclient wraps calls to cookie-authenticated backends. A call
// that comes back 401 triggers one shared session refresh and is replayed
// once.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

const (
	refreshPath = "/auth/refresh"
	refreshKey  = "refresh"

	// DefaultVersionHeader carries Config.ClientVersion unless
	// Config.VersionHeader names another header, e.g. "Homebrewery-Version".
	DefaultVersionHeader = "X-Client-Version"

	maxResponseBytes = 10 << 20
)

// Config configures a Client.
type Config struct {
	// BaseURL is prefixed to relative request paths.
	BaseURL string
	// AuthURL is the backend serving /auth/refresh; defaults to BaseURL.
	AuthURL string
	// ClientVersion is sent on every request, refreshes included.
	ClientVersion string
	// VersionHeader names the header ClientVersion is sent in.
	VersionHeader string
	// Token, when set, supplies a bearer token for every request.
	Token func() string

	Timeout        time.Duration
	RefreshTimeout time.Duration
	// HTTPClient is used as is; a cookie jar is installed if it has none.
	HTTPClient *http.Client
	Log        *slog.Logger
}

// Client issues requests with the session cookie jar.
type Client struct {
	baseURL    string
	refreshURL string
	version    string
	versionHdr string
	token      func() string

	httpClient     *http.Client
	refreshTimeout time.Duration
	refreshes      singleflight.Group
	log            *slog.Logger
}

func New(cfg Config) (*Client, error) {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = cfg.BaseURL
	}
	if authURL == "" {
		return nil, fmt.Errorf("authclient: BaseURL or AuthURL is required")
	}

	refreshTimeout := cfg.RefreshTimeout
	if refreshTimeout <= 0 {
		refreshTimeout = 10 * time.Second
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	versionHdr := cfg.VersionHeader
	if versionHdr == "" {
		versionHdr = DefaultVersionHeader
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		refreshURL:     strings.TrimRight(authURL, "/") + refreshPath,
		version:        cfg.ClientVersion,
		versionHdr:     versionHdr,
		token:          cfg.Token,
		httpClient:     hc,
		refreshTimeout: refreshTimeout,
		log:            log,
	}, nil
}

// Jar returns the cookie jar holding the session.
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// outcome is the result of one attempt. authExpired is set when the attempt
// got a 401 and may be replayed after a refresh.
type outcome struct {
	resp        *Response
	err         error
	authExpired bool
}

// Do sends a request. On a 401 it waits for a session refresh (shared with
// every other caller that hit a 401 meanwhile) and replays the request once;
// the replay's result is final. Non-2xx responses are returned as
// *StatusError.
func (c *Client) Do(ctx context.Context, method, path string, opts ...RequestOption) (*Response, error) {
	first := c.attempt(ctx, method, path, opts)
	if !first.authExpired {
		return first.resp, first.err
	}

	var original *StatusError
	errors.As(first.err, &original)

	if err := c.refresh(ctx); err != nil {
		c.log.Warn("session refresh failed", "method", method, "path", path, "error", err)
		return nil, &RefreshFailedError{Original: original, Err: err}
	}

	second := c.attempt(ctx, method, path, opts)
	return second.resp, second.err
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, opts...)
}

func (c *Client) Post(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, opts...)
}

func (c *Client) Put(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, opts...)
}

func (c *Client) attempt(ctx context.Context, method, path string, opts []RequestOption) outcome {
	req, err := c.newRequest(ctx, method, path, opts)
	if err != nil {
		return outcome{err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return outcome{err: fmt.Errorf("%s %s: %w", method, req.URL.Redacted(), err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		serr := &StatusError{
			Method:     method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
		return outcome{err: serr, authExpired: serr.Unauthorized()}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return outcome{err: fmt.Errorf("read response: %w", err)}
	}
	return outcome{resp: &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}}
}

// newRequest builds a fresh request from opts. It runs for every attempt so a
// replay never reuses a consumed body.
func (c *Client) newRequest(ctx context.Context, method, path string, opts []RequestOption) (*http.Request, error) {
	spec := requestSpec{header: make(http.Header), query: make(url.Values)}
	for _, opt := range opts {
		opt(&spec)
	}
	if spec.err != nil {
		return nil, spec.err
	}

	u, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	if len(spec.query) > 0 {
		q := u.Query()
		for k, vs := range spec.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if spec.body != nil {
		body = bytes.NewReader(spec.body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.version != "" {
		req.Header.Set(c.versionHdr, c.version)
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	if spec.contentType != "" {
		req.Header.Set("Content-Type", spec.contentType)
	}
	for k, vs := range spec.header {
		req.Header[k] = vs
	}
	return req, nil
}

func (c *Client) resolve(path string) (*url.URL, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return url.Parse(path)
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("relative path %q without a base URL", path)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return url.Parse(c.baseURL + path)
}

// refresh renews the session. Concurrent callers share one refresh call,
// which is detached from ctx; ctx only bounds this caller's wait.
func (c *Client) refresh(ctx context.Context) error {
	ch := c.refreshes.DoChan(refreshKey, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		return nil, c.doRefresh(rctx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) doRefresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.refreshURL, nil)
	if err != nil {
		return fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.version != "" {
		req.Header.Set(c.versionHdr, c.version)
	}

	c.log.Info("refreshing session")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     http.MethodGet,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
		}
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
