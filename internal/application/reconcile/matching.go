package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-core/internal/domain/allocator"
	"github.com/eshaffer321/reconcile-core/internal/domain/candidate"
	"github.com/eshaffer321/reconcile-core/internal/domain/money"
	"github.com/eshaffer321/reconcile-core/internal/domain/solver"
	"github.com/eshaffer321/reconcile-core/internal/infrastructure/storage"
)

// CollectMatchCandidates returns the counterparty's open items in priority
// order. The list is rebuilt from current state on every call.
func (s *Service) CollectMatchCandidates(ctx context.Context, tenantID, counterpartyID string) ([]candidate.MatchCandidate, error) {
	if err := validateScope(tenantID, counterpartyID); err != nil {
		return nil, err
	}

	var cands []candidate.MatchCandidate
	err := s.repo.ReadTx(ctx, tenantID, func(q storage.Queries) error {
		var err error
		cands, err = s.collect(ctx, q, counterpartyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cands, nil
}

func (s *Service) collect(ctx context.Context, q storage.Queries, counterpartyID string) ([]candidate.MatchCandidate, error) {
	invoices, err := q.ListIssuedInvoices(ctx, counterpartyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	obligations, err := q.ListOpenObligations(ctx, counterpartyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load obligations: %w", err)
	}
	return s.collector.Collect(obligations, invoices), nil
}

// AutoMatch proposes how a payment settles the counterparty's open items.
// An exact combination within tolerance wins; otherwise the payment is
// spread greedily in priority order. Nothing is persisted.
func (s *Service) AutoMatch(ctx context.Context, tenantID, counterpartyID string, amount decimal.Decimal) (allocator.Result, error) {
	if err := validateScope(tenantID, counterpartyID); err != nil {
		return allocator.Result{}, err
	}
	if !amount.IsPositive() {
		return allocator.Result{}, fmt.Errorf("%w: payment amount must be positive, got %s", ErrInvalidInput, amount)
	}

	cands, err := s.CollectMatchCandidates(ctx, tenantID, counterpartyID)
	if err != nil {
		return allocator.Result{}, err
	}

	if len(cands) == 0 {
		s.logger.Info("No open items for payment",
			"tenant", tenantID,
			"counterparty", counterpartyID,
			"amount", amount.String())
		return allocator.None(amount, fmt.Sprintf("no open items for counterparty %s", counterpartyID)), nil
	}

	sol := solver.Solve(cands, amount, s.config.Solver)
	if sol.Exhausted {
		s.logger.Warn("Combination search hit node budget",
			"tenant", tenantID,
			"counterparty", counterpartyID,
			"nodes", sol.Nodes,
			"found", sol.Found())
	}

	var result allocator.Result
	if sol.Found() {
		result = allocator.Exact(sol.Picks, amount)
	} else {
		result = allocator.Greedy(cands, amount, s.config.Solver.Tolerance)
	}

	s.logger.Info("Auto-match complete",
		"tenant", tenantID,
		"counterparty", counterpartyID,
		"amount", amount.String(),
		"status", result.Status,
		"strategy", sol.Strategy,
		"allocations", len(result.Allocations),
		"remainder", result.Remainder.String())

	return result, nil
}

// Settle applies an allocation to obligation residuals. Each obligation must
// still carry at least the applied amount; otherwise nothing is written and
// ErrStaleAllocation is returned.
func (s *Service) Settle(ctx context.Context, tenantID string, result allocator.Result) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant is required", ErrInvalidInput)
	}
	if len(result.Allocations) == 0 {
		return fmt.Errorf("%w: allocation has nothing to settle", ErrInvalidInput)
	}
	for _, a := range result.Allocations {
		if a.CandidateID == "" || !a.Applied.IsPositive() {
			return fmt.Errorf("%w: allocation line %q has no positive amount", ErrInvalidInput, a.CandidateID)
		}
	}

	tol := s.config.Solver.Tolerance

	err := s.repo.WithTx(ctx, tenantID, func(q storage.Queries) error {
		for _, a := range result.Allocations {
			if err := ctx.Err(); err != nil {
				return err
			}

			ob, err := q.GetObligation(ctx, a.CandidateID)
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("obligation %s: %w", a.CandidateID, ErrStaleAllocation)
			}
			if err != nil {
				return err
			}
			if ob.Cleared || ob.Residual.LessThan(a.Applied) {
				return fmt.Errorf("obligation %s has residual %s, cannot apply %s: %w",
					a.CandidateID, ob.Residual, a.Applied, ErrStaleAllocation)
			}

			residual := ob.Residual.Sub(a.Applied)
			if money.IsZero(residual, tol) {
				residual = decimal.Zero
			}
			if err := q.UpdateResidual(ctx, a.CandidateID, residual); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Settlement failed", "tenant", tenantID, "error", err)
		return err
	}

	s.logger.Info("Settled allocation",
		"tenant", tenantID,
		"obligations", len(result.Allocations),
		"matched", result.TotalMatched.String())
	return nil
}

func validateScope(tenantID, counterpartyID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant is required", ErrInvalidInput)
	}
	if strings.TrimSpace(counterpartyID) == "" {
		return fmt.Errorf("%w: counterparty is required", ErrInvalidInput)
	}
	return nil
}
