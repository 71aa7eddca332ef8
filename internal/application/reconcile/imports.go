package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eshaffer321/reconcile-core/internal/domain/statement"
	"github.com/eshaffer321/reconcile-core/internal/infrastructure/storage"
)

// ImportOptions controls what happens after deduplication.
type ImportOptions struct {
	// Historical links the new rows to vouchers already posted, inside the
	// import transaction. Otherwise an auto-posting job is queued after commit.
	Historical  bool
	RequestedBy string
	SourceName  string
}

// ImportResult summarizes one import
type ImportResult struct {
	BatchID      string `json:"batch_id"`
	TotalRows    int    `json:"total_rows"`
	InsertedRows int    `json:"inserted_rows"`
	SkippedRows  int    `json:"skipped_rows"`
	LinkedRows   int    `json:"linked_rows"`
}

// ImportBatch stores a parsed statement batch. Rows whose content hash is
// already stored for the tenant are skipped. New rows get the next free
// sequence number of their date, in file order.
//
// All rows commit together or not at all.
func (s *Service) ImportBatch(ctx context.Context, tenantID string, rows []statement.Row, opts ImportOptions) (*ImportResult, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("%w: tenant is required", ErrInvalidInput)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: batch has no rows", ErrInvalidInput)
	}

	normalized := make([]statement.Row, len(rows))
	for i, r := range rows {
		r.Normalize()
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidInput, i+1, err)
		}
		normalized[i] = r
	}

	mode := storage.BatchModeNormal
	if opts.Historical {
		mode = storage.BatchModeHistorical
	}

	logger := s.logger.With("tenant", tenantID, "mode", mode)
	batch := &storage.Batch{
		Mode:        mode,
		SourceName:  opts.SourceName,
		RequestedBy: opts.RequestedBy,
		TotalRows:   len(normalized),
	}

	err := s.repo.WithTx(ctx, tenantID, func(q storage.Queries) error {
		if err := q.CreateBatch(ctx, batch); err != nil {
			return err
		}

		stored, err := q.MaxSequences(ctx, statement.DateKeys(normalized))
		if err != nil {
			return err
		}
		seq := statement.NewSequencer(stored)

		for i := range normalized {
			if err := ctx.Err(); err != nil {
				return err
			}

			row := &normalized[i]
			key := row.DateKey()
			row.BatchID = batch.ID
			row.ContentHash = statement.ContentHash(tenantID, *row)
			row.Sequence = seq.Next(key)
			row.Status = statement.StatusPending

			inserted, err := q.InsertTransaction(ctx, row)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			if !inserted {
				batch.SkippedRows++
				logger.Debug("Skipping duplicate row", "row", i+1, "date", key, "hash", row.ContentHash)
				continue
			}
			seq.Confirm(key, row.Sequence)
			batch.InsertedRows++
		}

		if opts.Historical && batch.InsertedRows > 0 {
			linked, err := s.linkBatch(ctx, q, batch.ID)
			if err != nil {
				return err
			}
			batch.LinkedRows = linked
		}

		return q.CompleteBatch(ctx, batch)
	})
	if err != nil {
		logger.Error("Import aborted", "rows", len(normalized), "error", err)
		return nil, fmt.Errorf("import failed: %w", err)
	}

	logger.Info("Import complete",
		"batch_id", batch.ID,
		"total", batch.TotalRows,
		"inserted", batch.InsertedRows,
		"skipped", batch.SkippedRows,
		"linked", batch.LinkedRows)

	if !opts.Historical && batch.InsertedRows > 0 {
		s.notify(ctx, storage.PostingJob{
			TenantID:    tenantID,
			RequestedBy: opts.RequestedBy,
			BatchID:     batch.ID,
			RowCount:    batch.InsertedRows,
		})
	}

	return &ImportResult{
		BatchID:      batch.ID,
		TotalRows:    batch.TotalRows,
		InsertedRows: batch.InsertedRows,
		SkippedRows:  batch.SkippedRows,
		LinkedRows:   batch.LinkedRows,
	}, nil
}

// GetBatch returns the summary record of a batch.
func (s *Service) GetBatch(ctx context.Context, tenantID, batchID string) (*storage.Batch, error) {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(batchID) == "" {
		return nil, fmt.Errorf("%w: tenant and batch are required", ErrInvalidInput)
	}

	var batch *storage.Batch
	err := s.repo.ReadTx(ctx, tenantID, func(q storage.Queries) error {
		var err error
		batch, err = q.GetBatch(ctx, batchID)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", batchID, ErrBatchNotFound)
	}
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// ListBatches returns the tenant's most recent batches.
func (s *Service) ListBatches(ctx context.Context, tenantID string, limit int) ([]storage.Batch, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("%w: tenant is required", ErrInvalidInput)
	}

	var batches []storage.Batch
	err := s.repo.ReadTx(ctx, tenantID, func(q storage.Queries) error {
		var err error
		batches, err = q.ListBatches(ctx, limit)
		return err
	})
	return batches, err
}

// ListTransactions returns the rows of a batch, optionally filtered by status.
func (s *Service) ListTransactions(ctx context.Context, tenantID, batchID string, status statement.Status) ([]statement.Row, error) {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(batchID) == "" {
		return nil, fmt.Errorf("%w: tenant and batch are required", ErrInvalidInput)
	}

	var rows []statement.Row
	err := s.repo.ReadTx(ctx, tenantID, func(q storage.Queries) error {
		if _, err := q.GetBatch(ctx, batchID); err != nil {
			return err
		}
		var err error
		rows, err = q.ListTransactions(ctx, batchID, status)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", batchID, ErrBatchNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}
