package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/brewsync/internal/brew"
	"github.com/google/uuid"
)

// JobStatus represents the state of one sync attempt.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusDecomposing JobStatus = "decomposing"
	StatusPushing     JobStatus = "pushing"
	StatusCompleted   JobStatus = "completed"
	StatusWarning     JobStatus = "completed_with_warning"
	StatusFailed      JobStatus = "failed"
	StatusSkipped     JobStatus = "skipped"
	StatusDropped     JobStatus = "dropped"
)

// Job tracks a single sync of one document snapshot.
type Job struct {
	mu sync.Mutex

	ID      string
	ShareID string
	EditID  string
	UserID  string

	Status JobStatus
	Phase  string

	Sections   int
	FrontCover bool

	CreatedAt time.Time
	UpdatedAt time.Time

	// Internal: not serialized.
	doc        brew.Document
	credential string
	errors     []string
}

// NewJob captures doc and the credential it will be pushed with.
func NewJob(doc brew.Document, credential string) *Job {
	now := time.Now()
	return &Job{
		ID:         uuid.NewString(),
		ShareID:    doc.ShareID,
		EditID:     doc.EditID,
		Status:     StatusQueued,
		Phase:      "queued",
		CreatedAt:  now,
		UpdatedAt:  now,
		doc:        doc.Clone(),
		credential: credential,
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetResult records what the decomposition produced.
func (j *Job) SetResult(sections int, frontCover bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Sections = sections
	j.FrontCover = frontCover
	j.UpdatedAt = time.Now()
}

// Document returns the captured snapshot and credential.
func (j *Job) Document() (brew.Document, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.doc, j.credential
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID         string    `json:"job_id"`
	ShareID    string    `json:"share_id"`
	EditID     string    `json:"edit_id"`
	UserID     string    `json:"user_id,omitempty"`
	Status     JobStatus `json:"status"`
	Phase      string    `json:"phase"`
	Sections   int       `json:"sections"`
	FrontCover bool      `json:"front_cover"`
	Errors     []string  `json:"errors"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	return JobSnapshot{
		ID:         j.ID,
		ShareID:    j.ShareID,
		EditID:     j.EditID,
		UserID:     j.UserID,
		Status:     j.Status,
		Phase:      j.Phase,
		Sections:   j.Sections,
		FrontCover: j.FrontCover,
		Errors:     errs,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// JobStore is a thread-safe in-memory job registry with TTL eviction. It
// also remembers the most recent job per share id.
type JobStore struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	byShare map[string]string
	ttl     time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs:    make(map[string]*Job),
		byShare: make(map[string]string),
		ttl:     ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	if job.ShareID != "" {
		s.byShare[job.ShareID] = job.ID
	}
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Latest returns the most recently stored job for shareID, or nil.
func (s *JobStore) Latest(shareID string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[s.byShare[shareID]]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
			if s.byShare[job.ShareID] == id {
				delete(s.byShare, job.ShareID)
			}
		}
	}
}
