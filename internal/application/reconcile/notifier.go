package reconcile

import (
	"context"
	"time"

	"github.com/eshaffer321/reconcile-core/internal/infrastructure/storage"
)

// Notifier hands a committed batch to the downstream auto-posting worker.
type Notifier interface {
	Enqueue(ctx context.Context, job storage.PostingJob) error
}

// OutboxNotifier writes posting jobs to the storage outbox table.
type OutboxNotifier struct {
	repo storage.Repository
}

// NewOutboxNotifier creates a notifier backed by the posting_jobs table.
func NewOutboxNotifier(repo storage.Repository) *OutboxNotifier {
	return &OutboxNotifier{repo: repo}
}

// Enqueue appends the job to the outbox.
func (n *OutboxNotifier) Enqueue(ctx context.Context, job storage.PostingJob) error {
	return n.repo.WithTx(ctx, job.TenantID, func(q storage.Queries) error {
		return q.EnqueuePostingJob(ctx, &job)
	})
}

const notifyTimeout = 30 * time.Second

// notify enqueues job in the background. Failures are logged and never
// reach the caller.
func (s *Service) notify(ctx context.Context, job storage.PostingJob) {
	if s.notifier == nil {
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := s.notifier.Enqueue(nctx, job); err != nil {
			s.logger.Warn("Failed to queue auto-posting job",
				"tenant", job.TenantID,
				"batch_id", job.BatchID,
				"error", err)
			return
		}
		s.logger.Debug("Queued auto-posting job", "tenant", job.TenantID, "batch_id", job.BatchID, "rows", job.RowCount)
	}()
}
