// Package candidate projects open obligations into match candidates.
//
// A candidate is a read-only view: it is derived from the current obligation
// and invoice state every time it is needed and never stored.
//
// Example usage:
//
//	c := candidate.NewCollector(candidate.DefaultConfig())
//	cands := c.Collect(obligations, invoices)
//	// invoice-backed and most overdue first
package candidate

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Provenance tells whether a candidate was correlated to an issued invoice.
type Provenance string

const (
	ProvenanceInvoice Provenance = "invoice"
	ProvenanceBare    Provenance = "bare-obligation"
)

// Obligation is an unsettled receivable item as loaded from the ledger.
type Obligation struct {
	ID               string
	AccountCode      string
	Residual         decimal.Decimal
	DocumentDate     time.Time
	CounterpartyID   string
	CounterpartyName string
	Reference        Reference
}

// Invoice is an issued invoice that obligations may point at.
type Invoice struct {
	Number         string
	CounterpartyID string
	FaceAmount     decimal.Decimal
	DueDate        *time.Time
}

// MatchCandidate is one outstanding obligation eligible for settlement.
type MatchCandidate struct {
	ID               string          `json:"id"`
	AccountCode      string          `json:"account_code"`
	Residual         decimal.Decimal `json:"residual"`
	DocumentDate     time.Time       `json:"document_date"`
	CounterpartyID   string          `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name,omitempty"`

	InvoiceNumber string              `json:"invoice_number,omitempty"`
	InvoiceAmount decimal.NullDecimal `json:"invoice_amount"`
	DueDate       *time.Time          `json:"due_date,omitempty"`
	OverdueDays   int                 `json:"overdue_days"`
	Provenance    Provenance          `json:"provenance"`
}

// IsInvoice reports whether the candidate is invoice-correlated.
func (c MatchCandidate) IsInvoice() bool {
	return c.Provenance == ProvenanceInvoice
}

// Config holds collector configuration
type Config struct {
	InvoicePrefixes []string // Prefixes recognised when scanning reference lists
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		InvoicePrefixes: []string{"INV-"},
	}
}

// Collector correlates obligations with invoices.
type Collector struct {
	config Config
	now    func() time.Time
}

// NewCollector creates a collector using the wall clock.
func NewCollector(config Config) *Collector {
	return &Collector{config: config, now: time.Now}
}

// WithClock returns a copy of the collector that reads "today" from now.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	cp := *c
	cp.now = now
	return &cp
}

// Collect builds the canonical, priority-ordered candidate list. Obligations
// with a non-positive residual are dropped.
func (c *Collector) Collect(obligations []Obligation, invoices []Invoice) []MatchCandidate {
	byNumber := make(map[string]Invoice, len(invoices))
	for _, inv := range invoices {
		byNumber[inv.Number] = inv
	}

	today := c.now()
	out := make([]MatchCandidate, 0, len(obligations))

	for _, ob := range obligations {
		if !ob.Residual.IsPositive() {
			continue
		}

		mc := MatchCandidate{
			ID:               ob.ID,
			AccountCode:      ob.AccountCode,
			Residual:         ob.Residual,
			DocumentDate:     ob.DocumentDate,
			CounterpartyID:   ob.CounterpartyID,
			CounterpartyName: ob.CounterpartyName,
			Provenance:       ProvenanceBare,
		}

		if number, ok := ob.Reference.ResolveInvoiceNumber(c.config.InvoicePrefixes); ok {
			if inv, found := byNumber[number]; found {
				mc.InvoiceNumber = inv.Number
				mc.InvoiceAmount = decimal.NewNullDecimal(inv.FaceAmount)
				mc.DueDate = inv.DueDate
				mc.Provenance = ProvenanceInvoice
				if inv.DueDate != nil {
					mc.OverdueDays = OverdueDays(*inv.DueDate, today)
				}
			}
		}

		out = append(out, mc)
	}

	SortCanonical(out)
	return out
}

// SortCanonical orders candidates: invoice-backed first, then most overdue,
// then oldest document date. ID breaks remaining ties.
func SortCanonical(cands []MatchCandidate) {
	slices.SortStableFunc(cands, func(a, b MatchCandidate) int {
		if a.IsInvoice() != b.IsInvoice() {
			if a.IsInvoice() {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(b.OverdueDays, a.OverdueDays); c != 0 {
			return c
		}
		if c := a.DocumentDate.Compare(b.DocumentDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// OverdueDays returns max(0, today - due) in whole calendar days.
func OverdueDays(due, today time.Time) int {
	d := dateOnly(due)
	t := dateOnly(today)
	if !t.After(d) {
		return 0
	}
	return int(t.Sub(d).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
