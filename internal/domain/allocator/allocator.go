// Package allocator turns a payment and a set of open items into an
// AllocationResult.
//
// Two builders exist:
//
//	Exact  - wraps a solver solution whose amounts already sum to the payment
//	Greedy - consumes candidates in priority order until the payment runs out
//
// Every result satisfies sum(applied) + remainder == payment, and no applied
// amount exceeds the candidate's residual.
package allocator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-core/internal/domain/candidate"
	"github.com/eshaffer321/reconcile-core/internal/domain/money"
)

// Status classifies an allocation.
type Status string

const (
	StatusExact   Status = "exact"
	StatusFull    Status = "full"
	StatusPartial Status = "partial"
	StatusNone    Status = "none"
)

// Allocation is the amount applied to one candidate.
type Allocation struct {
	CandidateID    string          `json:"candidate_id"`
	InvoiceNumber  string          `json:"invoice_number,omitempty"`
	Applied        decimal.Decimal `json:"applied"`
	ResidualBefore decimal.Decimal `json:"residual_before"`
}

// Result is the outcome of applying a payment to candidates.
type Result struct {
	Payment      decimal.Decimal `json:"payment"`
	Allocations  []Allocation    `json:"allocations"`
	TotalMatched decimal.Decimal `json:"total_matched"`
	Remainder    decimal.Decimal `json:"remainder"`
	Success      bool            `json:"success"`
	Status       Status          `json:"status"`
	Rationale    string          `json:"rationale"`
}

// None builds the result for a payment with nothing to apply it to.
func None(payment decimal.Decimal, reason string) Result {
	if reason == "" {
		reason = "no open items available"
	}
	return Result{
		Payment:      payment,
		Allocations:  []Allocation{},
		TotalMatched: decimal.Zero,
		Remainder:    payment,
		Status:       StatusNone,
		Rationale:    reason,
	}
}

// Exact builds a result from solver picks that sum to payment. When the
// picks overshoot within tolerance the last applied amount is trimmed so the
// remainder never goes negative.
func Exact(picks []candidate.MatchCandidate, payment decimal.Decimal) Result {
	if len(picks) == 0 {
		return None(payment, "")
	}

	allocations := make([]Allocation, len(picks))
	total := decimal.Zero
	for i, p := range picks {
		allocations[i] = Allocation{
			CandidateID:    p.ID,
			InvoiceNumber:  p.InvoiceNumber,
			Applied:        p.Residual,
			ResidualBefore: p.Residual,
		}
		total = total.Add(p.Residual)
	}

	if over := total.Sub(payment); over.IsPositive() {
		last := &allocations[len(allocations)-1]
		last.Applied = last.Applied.Sub(over)
		total = payment
	}

	return Result{
		Payment:      payment,
		Allocations:  allocations,
		TotalMatched: total,
		Remainder:    payment.Sub(total),
		Success:      true,
		Status:       StatusExact,
		Rationale:    exactRationale(picks, total),
	}
}

// Greedy applies payment to cands in the order given, taking
// min(remaining, residual) from each until the payment is used up.
func Greedy(cands []candidate.MatchCandidate, payment, tol decimal.Decimal) Result {
	if len(cands) == 0 {
		return None(payment, "")
	}

	remaining := payment
	allocations := make([]Allocation, 0, len(cands))

	for _, c := range cands {
		if money.IsZero(remaining, tol) || !remaining.IsPositive() {
			break
		}
		if !c.Residual.IsPositive() {
			continue
		}

		applied := money.Min(remaining, c.Residual)
		allocations = append(allocations, Allocation{
			CandidateID:    c.ID,
			InvoiceNumber:  c.InvoiceNumber,
			Applied:        applied,
			ResidualBefore: c.Residual,
		})
		remaining = remaining.Sub(applied)
	}

	matched := payment.Sub(remaining)
	result := Result{
		Payment:      payment,
		Allocations:  allocations,
		TotalMatched: matched,
		Remainder:    remaining,
	}

	switch {
	case len(allocations) == 0:
		return None(payment, "")
	case money.IsZero(remaining, tol):
		result.Success = true
		result.Status = StatusFull
		result.Rationale = fmt.Sprintf("allocated %s across %d open item(s) in priority order",
			money.Canonical(matched), len(allocations))
	default:
		result.Status = StatusPartial
		result.Rationale = fmt.Sprintf("partial match: allocated %s to %d open item(s), remaining unmatched amount %s",
			money.Canonical(matched), len(allocations), money.Canonical(remaining))
	}

	return result
}

func exactRationale(picks []candidate.MatchCandidate, total decimal.Decimal) string {
	invoices := make([]string, 0, len(picks))
	for _, p := range picks {
		if p.IsInvoice() {
			invoices = append(invoices, p.InvoiceNumber)
		}
	}

	switch {
	case len(picks) == 1 && len(invoices) == 1:
		return fmt.Sprintf("exact match with invoice %s for %s", invoices[0], money.Canonical(total))
	case len(invoices) == len(picks):
		return fmt.Sprintf("exact invoice combination %s = %s", strings.Join(invoices, " + "), money.Canonical(total))
	case len(picks) == 1:
		return fmt.Sprintf("exact match with open item %s for %s", picks[0].ID, money.Canonical(total))
	default:
		return fmt.Sprintf("exact combination of %d open items (%d invoice-backed) = %s",
			len(picks), len(invoices), money.Canonical(total))
	}
}
