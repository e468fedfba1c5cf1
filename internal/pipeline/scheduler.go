package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/brewsync/internal/brew"
)

// DefaultDebounce is how long a document must stay unchanged before it syncs.
const DefaultDebounce = 15 * time.Second

// FireFunc receives the last snapshot scheduled for a share id once its
// debounce window has passed.
type FireFunc func(doc brew.Document, credential string)

type pendingSync struct {
	timer      *time.Timer
	doc        brew.Document
	credential string
}

// Scheduler debounces syncs per share id. Each Schedule replaces the pending
// snapshot and restarts the window; only the last one fires.
type Scheduler struct {
	delay time.Duration
	fire  FireFunc
	log   *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingSync
	stopped bool
}

func NewScheduler(delay time.Duration, fire FireFunc, log *slog.Logger) *Scheduler {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Scheduler{
		delay:   delay,
		fire:    fire,
		log:     log,
		pending: make(map[string]*pendingSync),
	}
}

// Schedule arms a sync of doc. Documents without a share id are ignored.
// It reports whether a sync was armed.
func (s *Scheduler) Schedule(doc brew.Document, credential string) bool {
	if doc.ShareID == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}

	if prev, ok := s.pending[doc.ShareID]; ok {
		prev.timer.Stop()
	}

	entry := &pendingSync{doc: doc.Clone(), credential: credential}
	entry.timer = time.AfterFunc(s.delay, func() { s.run(doc.ShareID, entry) })
	s.pending[doc.ShareID] = entry

	s.log.Debug("sync scheduled", "share_id", doc.ShareID, "delay", s.delay)
	return true
}

// run fires entry if it is still the current one for shareID. A superseded
// timer that was already running when Stop was called lands here and exits.
func (s *Scheduler) run(shareID string, entry *pendingSync) {
	s.mu.Lock()
	if s.pending[shareID] != entry {
		s.mu.Unlock()
		return
	}
	delete(s.pending, shareID)
	s.mu.Unlock()

	s.fire(entry.doc, entry.credential)
}

// Pending reports whether a sync for shareID is waiting to fire.
func (s *Scheduler) Pending(shareID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[shareID]
	return ok
}

// Len returns the number of pending syncs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every pending sync. Later calls to Schedule are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
	s.stopped = true
}
