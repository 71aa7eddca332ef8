package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Posting job statuses
const (
	PostingJobQueued = "queued"
)

// EnqueuePostingJob appends a job to the posting outbox.
func (t *Tx) EnqueuePostingJob(ctx context.Context, job *PostingJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.TenantID = t.tenantID
	job.Status = PostingJobQueued
	job.CreatedAt = t.now()

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO posting_jobs (id, tenant_id, requested_by, batch_id, row_count, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.TenantID, job.RequestedBy, job.BatchID, job.RowCount, job.Status, formatTimestamp(job.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to enqueue posting job: %w", err)
	}
	return nil
}

// ListPostingJobs returns queued jobs, oldest first.
func (t *Tx) ListPostingJobs(ctx context.Context, limit int) ([]PostingJob, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, tenant_id, requested_by, batch_id, row_count, status, created_at
		FROM posting_jobs
		WHERE tenant_id = ?
		ORDER BY created_at, id
		LIMIT ?
	`, t.tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posting jobs: %w", err)
	}
	defer rows.Close()

	var jobs []PostingJob
	for rows.Next() {
		var j PostingJob
		var created string
		if err := rows.Scan(&j.ID, &j.TenantID, &j.RequestedBy, &j.BatchID, &j.RowCount, &j.Status, &created); err != nil {
			return nil, err
		}
		if j.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
