package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/brewsync/internal/markup"
	"github.com/dgallion1/brewsync/internal/sourcebook"
)

// Pusher delivers a payload to the sourcebook service.
type Pusher interface {
	Push(ctx context.Context, p sourcebook.Payload, credential string) (*sourcebook.PushResult, error)
}

// Syncer turns one document snapshot into a sourcebook push.
type Syncer struct {
	pusher Pusher
	log    *slog.Logger
}

func NewSyncer(pusher Pusher, log *slog.Logger) *Syncer {
	return &Syncer{pusher: pusher, log: log}
}

// Sync runs the full sync for a job. Documents that are not shareable,
// not published or have no credential are skipped without a request.
// Failures are recorded on the job and never retried.
func (s *Syncer) Sync(ctx context.Context, job *Job) {
	doc, credential := job.Document()
	log := s.log.With("job_id", job.ID, "share_id", doc.ShareID)

	switch {
	case doc.ShareID == "" || doc.EditID == "":
		s.skip(log, job, "missing share or edit id")
		return
	case !doc.Published:
		s.skip(log, job, "not published")
		return
	case credential == "":
		s.skip(log, job, "no credential")
		return
	}

	job.SetStatus(StatusDecomposing, "decomposing")
	dec, err := markup.Decompose(doc)
	if err != nil {
		log.Error("decompose failed", "error", err)
		job.AddError(fmt.Sprintf("decompose: %s", err))
		job.SetStatus(StatusFailed, "decomposing")
		return
	}
	job.SetResult(len(dec.Sections), dec.FrontCover != "")

	if len(dec.Sections) == 0 {
		s.skip(log, job, "no sections")
		return
	}

	payload := sourcebook.NewPayload(doc, dec)

	job.SetStatus(StatusPushing, "pushing")
	res, err := s.pusher.Push(ctx, payload, credential)
	if err != nil {
		log.Error("sourcebook sync failed", "error", err, "causes", causeChain(err))
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "pushing")
		return
	}

	if !res.Success {
		log.Warn("sourcebook sync returned no success flag", "status", res.StatusCode, "response", res.Body)
		job.SetStatus(StatusWarning, "done")
		return
	}

	log.Info("sourcebook synced", "sections", len(dec.Sections), "front_cover", dec.FrontCover != "")
	job.SetStatus(StatusCompleted, "done")
}

func (s *Syncer) skip(log *slog.Logger, job *Job, reason string) {
	log.Info("sync skipped", "reason", reason)
	job.SetStatus(StatusSkipped, reason)
}

// causeChain lists the messages of every wrapped error below err.
func causeChain(err error) []string {
	var chain []string
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	return chain
}
