package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eshaffer321/reconcile-core/internal/domain/matcher"
	"github.com/eshaffer321/reconcile-core/internal/domain/money"
	"github.com/eshaffer321/reconcile-core/internal/domain/statement"
	"github.com/eshaffer321/reconcile-core/internal/infrastructure/storage"
)

// LinkBatchToExistingVouchers attaches each pending row of a batch to a
// posted voucher, or marks it unmatched. Returns the number of rows linked.
func (s *Service) LinkBatchToExistingVouchers(ctx context.Context, tenantID, batchID string) (int, error) {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(batchID) == "" {
		return 0, fmt.Errorf("%w: tenant and batch are required", ErrInvalidInput)
	}

	var linked int
	err := s.repo.WithTx(ctx, tenantID, func(q storage.Queries) error {
		batch, err := q.GetBatch(ctx, batchID)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", batchID, ErrBatchNotFound)
		}
		if err != nil {
			return err
		}

		if linked, err = s.linkBatch(ctx, q, batchID); err != nil {
			return err
		}

		batch.LinkedRows += linked
		return q.CompleteBatch(ctx, batch)
	})
	if err != nil {
		s.logger.Error("Linking aborted", "tenant", tenantID, "batch_id", batchID, "error", err)
		return 0, err
	}

	return linked, nil
}

// linkBatch runs one linking pass inside an open unit of work. Each row works
// under its own savepoint: a row that fails is rolled back and marked
// unmatched without disturbing the others. Cancellation aborts the pass.
func (s *Service) linkBatch(ctx context.Context, q storage.Queries, batchID string) (int, error) {
	rows, err := q.ListTransactions(ctx, batchID, statement.StatusPending)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	bank, err := s.bankAccounts.Get(ctx, q.TenantID(), func(ctx context.Context, _ string) ([]string, error) {
		return q.ListBankAccountCodes(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load bank accounts: %w", err)
	}

	logger := s.logger.With("tenant", q.TenantID(), "batch_id", batchID)
	used := make(map[string]bool)
	linked, unmatched := 0, 0

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		sp := fmt.Sprintf("link_row_%d", row.ID)
		if err := q.Savepoint(ctx, sp); err != nil {
			return 0, err
		}

		ok, err := s.linkRow(ctx, q, row, bank, used)
		if err != nil {
			if rbErr := q.RollbackTo(ctx, sp); rbErr != nil {
				return 0, fmt.Errorf("failed to roll back row %d: %w", row.ID, rbErr)
			}
			logger.Warn("Row link failed", "row_id", row.ID, "date", row.DateKey(), "error", err)
			if err := q.MarkUnmatched(ctx, row.ID, "link failed: "+err.Error()); err != nil {
				return 0, err
			}
			unmatched++
			continue
		}
		if err := q.Release(ctx, sp); err != nil {
			return 0, err
		}

		if ok {
			linked++
		} else {
			unmatched++
		}
	}

	logger.Info("Linking pass complete", "rows", len(rows), "linked", linked, "unmatched", unmatched)
	return linked, nil
}

// linkRow links one row or marks it unmatched. It reports whether a link
// was made.
func (s *Service) linkRow(ctx context.Context, q storage.Queries, row statement.Row, bank map[string]bool, used map[string]bool) (bool, error) {
	target, ok := matcher.TargetFor(row.NetAmount(), row.Date)
	if !ok {
		return false, q.MarkUnmatched(ctx, row.ID, "net amount is zero")
	}

	from, to := s.matcher.Window(target)
	lines, err := q.ListVoucherLines(ctx, target.Side, from, to)
	if err != nil {
		return false, err
	}

	match := s.matcher.FindMatch(target, row.ID, lines, bank, used)
	if match == nil {
		reason := fmt.Sprintf("no posted voucher with a %s of %s to a bank account between %s and %s",
			target.Side, money.Canonical(target.Amount),
			from.Format(statement.DateLayout), to.Format(statement.DateLayout))
		return false, q.MarkUnmatched(ctx, row.ID, reason)
	}

	note := fmt.Sprintf("linked to voucher %s posted %s (%d day(s) from transaction)",
		match.Line.VoucherNo, match.Line.PostingDate.Format(statement.DateLayout), match.DateDiff)
	if err := q.LinkTransaction(ctx, row.ID, match.Line.VoucherID, note); err != nil {
		return false, err
	}
	used[match.Line.VoucherID] = true
	return true, nil
}
