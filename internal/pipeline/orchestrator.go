package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/brewsync/internal/brew"
	"github.com/dgallion1/brewsync/internal/config"
)

// Orchestrator wires the debounce scheduler to a pool of sync workers.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	scheduler *Scheduler
	syncer    *Syncer
	log       *slog.Logger
	cfg       config.Config

	// closed guards sends on queue against Stop.
	mu     sync.RWMutex
	closed bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, pusher Pusher, log *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		syncer: NewSyncer(pusher, log),
		log:    log,
		cfg:    cfg,
	}
	o.scheduler = NewScheduler(cfg.SyncDebounce, o.enqueue, log)
	return o
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.syncer.Sync(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels pending syncs and shuts down the workers.
func (o *Orchestrator) Stop() {
	o.scheduler.Stop()

	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Schedule debounces a sync of doc. It reports whether one was armed.
func (o *Orchestrator) Schedule(doc brew.Document, credential string) bool {
	return o.scheduler.Schedule(doc, credential)
}

// Pending reports whether a sync for shareID is waiting out its debounce.
func (o *Orchestrator) Pending(shareID string) bool {
	return o.scheduler.Pending(shareID)
}

// Submit queues a job for immediate processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		job.SetStatus(StatusDropped, "shutdown")
		return fmt.Errorf("sync pipeline is stopped")
	}
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusDropped, "queue_full")
		return fmt.Errorf("sync queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// enqueue is the scheduler's fire callback.
func (o *Orchestrator) enqueue(doc brew.Document, credential string) {
	job := NewJob(doc, credential)
	if err := o.Submit(job); err != nil {
		// The next change to the document schedules it again.
		o.log.Warn("sync dropped", "share_id", doc.ShareID, "job_id", job.ID, "error", err)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// LatestJob returns the most recent sync job for shareID, or nil.
func (o *Orchestrator) LatestJob(shareID string) *Job {
	return o.jobs.Latest(shareID)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// PendingCount returns the number of syncs waiting out their debounce.
func (o *Orchestrator) PendingCount() int {
	return o.scheduler.Len()
}

// Debounce returns the configured debounce window.
func (o *Orchestrator) Debounce() time.Duration {
	return o.scheduler.delay
}
