package pipeline

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/brewsync/internal/brew"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fired struct {
	doc        brew.Document
	credential string
}

type fireRecorder struct {
	mu    sync.Mutex
	calls []fired
	ch    chan struct{}
}

func newFireRecorder() *fireRecorder {
	return &fireRecorder{ch: make(chan struct{}, 16)}
}

func (r *fireRecorder) fire(doc brew.Document, credential string) {
	r.mu.Lock()
	r.calls = append(r.calls, fired{doc: doc, credential: credential})
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *fireRecorder) snapshot() []fired {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]fired(nil), r.calls...)
}

func TestScheduler_DebouncesToLastSnapshot(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(50*time.Millisecond, rec.fire, discardLogger())
	defer s.Stop()

	for i := range 5 {
		doc := brew.Document{ShareID: "share-1", Text: string(rune('a' + i))}
		if !s.Schedule(doc, "tok") {
			t.Fatalf("schedule %d was not armed", i)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !s.Pending("share-1") {
		t.Fatal("expected a pending sync")
	}

	select {
	case <-rec.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("sync never fired")
	}
	// Give any stray timer a chance to fire.
	time.Sleep(120 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("expected exactly 1 fire, got %d", len(calls))
	}
	if calls[0].doc.Text != "e" {
		t.Errorf("expected last snapshot %q, got %q", "e", calls[0].doc.Text)
	}
	if calls[0].credential != "tok" {
		t.Errorf("expected credential to be captured, got %q", calls[0].credential)
	}
	if s.Pending("share-1") || s.Len() != 0 {
		t.Error("expected no pending syncs after fire")
	}
}

func TestScheduler_IndependentKeys(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(20*time.Millisecond, rec.fire, discardLogger())
	defer s.Stop()

	s.Schedule(brew.Document{ShareID: "a"}, "")
	s.Schedule(brew.Document{ShareID: "b"}, "")
	if s.Len() != 2 {
		t.Fatalf("expected 2 pending, got %d", s.Len())
	}

	for range 2 {
		select {
		case <-rec.ch:
		case <-time.After(2 * time.Second):
			t.Fatal("sync never fired")
		}
	}
	if got := len(rec.snapshot()); got != 2 {
		t.Errorf("expected 2 fires, got %d", got)
	}
}

func TestScheduler_EmptyShareIDIgnored(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(10*time.Millisecond, rec.fire, discardLogger())
	defer s.Stop()

	if s.Schedule(brew.Document{Text: "x"}, "tok") {
		t.Error("expected empty share id to be ignored")
	}
	if s.Len() != 0 {
		t.Errorf("expected nothing pending, got %d", s.Len())
	}
	time.Sleep(40 * time.Millisecond)
	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("expected no fires, got %d", got)
	}
}

func TestScheduler_SnapshotIsolated(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(10*time.Millisecond, rec.fire, discardLogger())
	defer s.Stop()

	doc := brew.Document{ShareID: "s", Tags: []string{"before"}}
	s.Schedule(doc, "")
	doc.Tags[0] = "after"

	select {
	case <-rec.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("sync never fired")
	}
	if got := rec.snapshot()[0].doc.Tags[0]; got != "before" {
		t.Errorf("scheduled snapshot was mutated: %q", got)
	}
}

func TestScheduler_Stop(t *testing.T) {
	rec := newFireRecorder()
	s := NewScheduler(20*time.Millisecond, rec.fire, discardLogger())

	s.Schedule(brew.Document{ShareID: "a"}, "")
	s.Stop()
	if s.Schedule(brew.Document{ShareID: "b"}, "") {
		t.Error("expected Schedule after Stop to be ignored")
	}

	time.Sleep(60 * time.Millisecond)
	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("expected no fires after Stop, got %d", got)
	}
	if s.Len() != 0 {
		t.Errorf("expected nothing pending, got %d", s.Len())
	}
}
