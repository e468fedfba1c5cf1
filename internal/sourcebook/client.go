// Package sourcebook pushes decomposed brews to the sourcebook service.
package sourcebook

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/brewsync/internal/brew"
	"github.com/dgallion1/brewsync/internal/markup"
)

const (
	pushPath     = "/api/sourcebooks"
	untitledBrew = "Untitled Brew"
)

// Payload is the body of a push.
type Payload struct {
	ID         string         `json:"id" yaml:"id"`
	EditID     string         `json:"editId" yaml:"editId"`
	Title      string         `json:"title" yaml:"title"`
	Sections   []brew.Section `json:"sections" yaml:"sections"`
	FrontCover string         `json:"frontCover,omitempty" yaml:"frontCover,omitempty"`
}

// NewPayload builds the push body for doc from its decomposition. The title
// is the stored document title; a title from the embedded header only names
// the fallback section.
func NewPayload(doc brew.Document, dec markup.Decomposition) Payload {
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = untitledBrew
	}
	return Payload{
		ID:         doc.ShareID,
		EditID:     doc.EditID,
		Title:      title,
		Sections:   dec.Sections,
		FrontCover: dec.FrontCover,
	}
}

// PushResult is the decoded response of an accepted push.
type PushResult struct {
	StatusCode int
	Success    bool
	Body       map[string]any
}

// StatusError is returned for a non-2xx push response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("push sourcebook: status %d: %s", e.StatusCode, e.Body)
}

// Client communicates with the sourcebook HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	stats      *Stats
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	insecureTLS bool
	timeout     time.Duration
	httpClient  *http.Client
	stats       *Stats
}

// WithInsecureTLS skips certificate verification. The sourcebook service is
// commonly reached on a self-signed internal certificate.
func WithInsecureTLS(on bool) Option {
	return func(o *clientOptions) { o.insecureTLS = on }
}

func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithHTTPClient replaces the transport entirely; WithInsecureTLS and
// WithTimeout are then ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithStats records the latency of every push into s.
func WithStats(s *Stats) Option {
	return func(o *clientOptions) { o.stats = s }
}

func NewClient(baseURL string, opts ...Option) *Client {
	o := clientOptions{insecureTLS: true, timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	hc := o.httpClient
	if hc == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if o.insecureTLS {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		}
		hc = &http.Client{Timeout: o.timeout, Transport: transport}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
		stats:      o.stats,
	}
}

// Push sends p on behalf of the user holding credential. A 2xx response whose
// JSON lacks a truthy "success" is returned without error; the caller decides
// whether to warn.
func (c *Client) Push(ctx context.Context, p Payload, credential string) (*PushResult, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pushPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.record(start, false)
		return nil, fmt.Errorf("push sourcebook %s: %w", p.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.record(start, false)
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.record(start, false)
		return nil, fmt.Errorf("decode push response: %w", err)
	}
	c.record(start, true)

	return &PushResult{
		StatusCode: resp.StatusCode,
		Success:    truthy(decoded["success"]),
		Body:       decoded,
	}, nil
}

func (c *Client) record(start time.Time, ok bool) {
	if c.stats != nil {
		c.stats.Record(time.Since(start).Milliseconds(), ok)
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// truthy follows the loose notion of success used by the service's clients:
// false, zero, empty string and null are all failures.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
