// Package solver finds the smallest set of candidates whose residual amounts
// add up to a payment.
//
// The search is a bounded depth-first walk over candidates sorted by
// descending residual. It runs once per subset size, from 1 up to
// MaxSubsetSize, so the first solution found is also the smallest one. Among
// solutions of the same size the one visited first wins, which makes the
// result a pure function of the candidate order and the target.
//
// Example usage:
//
//	sol := solver.Solve(cands, decimal.NewFromInt(25000), solver.DefaultConfig())
//	if sol.Found() {
//		// sol.Picks sum to the target within tolerance
//	}
package solver

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-core/internal/domain/candidate"
	"github.com/eshaffer321/reconcile-core/internal/domain/money"
)

// Strategy names the rule that produced a solution.
type Strategy string

const (
	StrategyNone          Strategy = ""
	StrategySingleInvoice Strategy = "single-invoice"
	StrategyCombination   Strategy = "combination"
)

// Config holds solver configuration
type Config struct {
	Tolerance     decimal.Decimal // Default: 0.01
	MaxSubsetSize int             // Default: 5
	MaxNodes      int             // Search budget across all depths (0 = unbounded)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Tolerance:     money.DefaultTolerance,
		MaxSubsetSize: 5,
		MaxNodes:      200000,
	}
}

// Solution is the outcome of a search. An empty Picks slice means no exact
// combination exists within the configured bounds.
type Solution struct {
	Picks     []candidate.MatchCandidate
	Strategy  Strategy
	Nodes     int  // Search nodes visited
	Exhausted bool // True if MaxNodes stopped the search early
}

// Found reports whether a combination was found.
func (s Solution) Found() bool {
	return len(s.Picks) > 0
}

// Total returns the sum of the picked residuals.
func (s Solution) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Picks {
		total = total.Add(p.Residual)
	}
	return total
}

// Solve looks for an exact combination. A single invoice-backed candidate
// matching the target is preferred over everything else; otherwise the
// bounded subset search runs over all candidates.
func Solve(cands []candidate.MatchCandidate, target decimal.Decimal, cfg Config) Solution {
	if !target.IsPositive() || len(cands) == 0 || cfg.MaxSubsetSize < 1 {
		return Solution{}
	}

	for _, c := range cands {
		if c.IsInvoice() && money.WithinTolerance(c.Residual, target, cfg.Tolerance) {
			return Solution{
				Picks:    []candidate.MatchCandidate{c},
				Strategy: StrategySingleInvoice,
				Nodes:    1,
			}
		}
	}

	sorted := make([]candidate.MatchCandidate, 0, len(cands))
	for _, c := range cands {
		if c.Residual.IsPositive() {
			sorted = append(sorted, c)
		}
	}
	slices.SortStableFunc(sorted, func(a, b candidate.MatchCandidate) int {
		return cmp.Compare(0, a.Residual.Cmp(b.Residual))
	})

	s := &search{
		items: sorted,
		tol:   cfg.Tolerance,
		limit: cfg.MaxNodes,
	}

	maxSize := min(cfg.MaxSubsetSize, len(sorted))
	for size := 1; size <= maxSize; size++ {
		if idx := s.find(0, size, target, nil); idx != nil {
			picks := make([]candidate.MatchCandidate, len(idx))
			for i, j := range idx {
				picks[i] = sorted[j]
			}
			return Solution{Picks: picks, Strategy: StrategyCombination, Nodes: s.nodes}
		}
		if s.exhausted() {
			break
		}
	}

	return Solution{Nodes: s.nodes, Exhausted: s.exhausted()}
}

// search carries the read-only inputs and the node counter of a single Solve
// call. Nothing in it outlives the call.
type search struct {
	items []candidate.MatchCandidate
	tol   decimal.Decimal
	limit int
	nodes int
}

func (s *search) exhausted() bool {
	return s.limit > 0 && s.nodes >= s.limit
}

// find returns the indexes of the first subset of exactly `need` more items,
// taken from items[start:], that brings remaining to zero.
func (s *search) find(start, need int, remaining decimal.Decimal, picked []int) []int {
	if need == 0 {
		if money.IsZero(remaining, s.tol) {
			return slices.Clone(picked)
		}
		return nil
	}

	for i := start; i <= len(s.items)-need; i++ {
		if s.exhausted() {
			return nil
		}
		s.nodes++

		// Items are sorted descending, so the next `need` items are the most
		// this branch can still absorb.
		if remaining.Sub(s.headroom(i, need)).GreaterThan(s.tol) {
			return nil
		}

		next := remaining.Sub(s.items[i].Residual)
		if next.LessThan(s.tol.Neg()) {
			continue
		}

		if found := s.find(i+1, need-1, next, append(picked, i)); found != nil {
			return found
		}
	}

	return nil
}

func (s *search) headroom(from, n int) decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.items[from : from+n] {
		total = total.Add(it.Residual)
	}
	return total
}
