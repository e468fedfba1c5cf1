package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dgallion1/brewsync/internal/brew"
	"github.com/dgallion1/brewsync/internal/sourcebook"
)

// fakePusher records pushes and returns a canned result.
type fakePusher struct {
	mu       sync.Mutex
	payloads []sourcebook.Payload
	creds    []string
	result   *sourcebook.PushResult
	err      error
}

func (f *fakePusher) Push(_ context.Context, p sourcebook.Payload, credential string) (*sourcebook.PushResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	f.creds = append(f.creds, credential)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &sourcebook.PushResult{StatusCode: 200, Success: true}, nil
}

func (f *fakePusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func publishedDoc() brew.Document {
	return brew.Document{
		ShareID:   "share-1",
		EditID:    "edit-1",
		Published: true,
		Title:     "My Brew",
		Text:      "# Intro\nHello\n## Sub\nWorld",
	}
}

func TestSync_Preconditions(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*brew.Document)
		credential string
		phase      string
	}{
		{"no share id", func(d *brew.Document) { d.ShareID = "" }, "tok", "missing share or edit id"},
		{"no edit id", func(d *brew.Document) { d.EditID = "" }, "tok", "missing share or edit id"},
		{"unpublished", func(d *brew.Document) { d.Published = false }, "tok", "not published"},
		{"no credential", func(d *brew.Document) {}, "", "no credential"},
		{"no sections", func(d *brew.Document) { d.Text = "  \n" }, "tok", "no sections"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pusher := &fakePusher{}
			doc := publishedDoc()
			tt.mutate(&doc)
			job := NewJob(doc, tt.credential)

			NewSyncer(pusher, discardLogger()).Sync(context.Background(), job)

			if pusher.count() != 0 {
				t.Errorf("expected zero outbound calls, got %d", pusher.count())
			}
			snap := job.Snapshot()
			if snap.Status != StatusSkipped || snap.Phase != tt.phase {
				t.Errorf("expected skipped/%q, got %s/%q", tt.phase, snap.Status, snap.Phase)
			}
		})
	}
}

func TestSync_Pushes(t *testing.T) {
	pusher := &fakePusher{}
	job := NewJob(publishedDoc(), "tok")

	NewSyncer(pusher, discardLogger()).Sync(context.Background(), job)

	if pusher.count() != 1 {
		t.Fatalf("expected 1 push, got %d", pusher.count())
	}
	p := pusher.payloads[0]
	if p.ID != "share-1" || p.EditID != "edit-1" || p.Title != "My Brew" {
		t.Errorf("unexpected payload: %+v", p)
	}
	if len(p.Sections) != 2 || p.Sections[1].Depth != 2 {
		t.Errorf("unexpected sections: %+v", p.Sections)
	}
	if p.FrontCover != "" {
		t.Errorf("expected no front cover, got %q", p.FrontCover)
	}
	if pusher.creds[0] != "tok" {
		t.Errorf("expected credential tok, got %q", pusher.creds[0])
	}
	snap := job.Snapshot()
	if snap.Status != StatusCompleted || snap.Sections != 2 {
		t.Errorf("unexpected job state: %+v", snap)
	}
}

func TestSync_PayloadTitle(t *testing.T) {
	header := "```metadata\ntitle: From Header\n```\n\nintro\n# A\n"
	tests := []struct {
		name        string
		stored      string
		wantPayload string
	}{
		{"stored title wins", "Stored", "Stored"},
		{"header title not used", "", "Untitled Brew"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pusher := &fakePusher{}
			doc := publishedDoc()
			doc.Title = tt.stored
			doc.Text = header

			NewSyncer(pusher, discardLogger()).Sync(context.Background(), NewJob(doc, "tok"))

			if pusher.count() != 1 {
				t.Fatalf("expected 1 push, got %d", pusher.count())
			}
			p := pusher.payloads[0]
			if p.Title != tt.wantPayload {
				t.Errorf("payload title = %q, want %q", p.Title, tt.wantPayload)
			}
			if len(p.Sections) != 2 || p.Sections[0].Title != "From Header" {
				t.Errorf("expected fallback section named by the header, got %+v", p.Sections)
			}
		})
	}
}

func TestSync_PushFailure(t *testing.T) {
	pusher := &fakePusher{err: &sourcebook.StatusError{StatusCode: 502, Body: "bad gateway"}}
	job := NewJob(publishedDoc(), "tok")

	NewSyncer(pusher, discardLogger()).Sync(context.Background(), job)

	if pusher.count() != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", pusher.count())
	}
	snap := job.Snapshot()
	if snap.Status != StatusFailed || len(snap.Errors) != 1 {
		t.Errorf("expected failed job with one error, got %+v", snap)
	}
}

func TestSync_NoSuccessFlag(t *testing.T) {
	pusher := &fakePusher{result: &sourcebook.PushResult{StatusCode: 200}}
	job := NewJob(publishedDoc(), "tok")

	NewSyncer(pusher, discardLogger()).Sync(context.Background(), job)

	if got := job.Snapshot().Status; got != StatusWarning {
		t.Errorf("expected %q, got %q", StatusWarning, got)
	}
}

func TestSync_EndToEnd(t *testing.T) {
	var got map[string]any
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	doc := publishedDoc()
	doc.Renderer = brew.ModeV3
	doc.Text = "{{frontCover\n}}\n\\page\n# Intro\nHello\n## Sub\nWorld"
	job := NewJob(doc, "tok")

	client := sourcebook.NewClient(srv.URL)
	NewSyncer(client, discardLogger()).Sync(context.Background(), job)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected 1 request, got %d", calls)
	}
	sections, _ := got["sections"].([]any)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %v", got["sections"])
	}
	first := sections[0].(map[string]any)
	if first["title"] != "Intro" || first["depth"] != float64(1) {
		t.Errorf("unexpected first section: %v", first)
	}
	cover, _ := got["frontCover"].(string)
	if !strings.Contains(cover, "frontCover") {
		t.Errorf("expected rendered front cover, got %q", cover)
	}
	if job.Snapshot().Status != StatusCompleted {
		t.Errorf("expected completed job, got %+v", job.Snapshot())
	}
}

func TestCauseChain(t *testing.T) {
	base := errors.New("connection refused")
	err := errors.Join(errors.New("ignored")) // no Unwrap() error method
	if chain := causeChain(err); len(chain) != 0 {
		t.Errorf("expected empty chain for joined error, got %v", chain)
	}

	wrapped := wrap(wrap(base, "dial"), "push")
	chain := causeChain(wrapped)
	if len(chain) != 2 || chain[1] != "connection refused" {
		t.Errorf("unexpected chain: %v", chain)
	}
}

func wrap(err error, msg string) error {
	return &wrapped{msg: msg, err: err}
}

type wrapped struct {
	msg string
	err error
}

func (w *wrapped) Error() string { return w.msg + ": " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }
