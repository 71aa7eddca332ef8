// Package statement models imported bank-statement rows and the pure parts
// of deduplicated ingestion: sign normalisation, content hashing and per-date
// sequence numbering.
//
// Sign convention: Deposit and Withdrawal are both stored as non-negative
// magnitudes. A parser handing over a negative withdrawal (the ledger-style
// convention) is normalised to its absolute value before hashing. Deposits
// have no such convention, so a negative deposit is rejected. The signed
// NetAmount is Deposit - Withdrawal, so money leaving the account is negative.
package statement

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the linking state of an imported row.
type Status string

const (
	StatusPending   Status = "pending"
	StatusLinked    Status = "linked"
	StatusUnmatched Status = "unmatched"
)

// DateLayout is the storage and hashing format of transaction dates.
const DateLayout = "2006-01-02"

// Row is one line of a bank statement batch.
type Row struct {
	ID       int64  `json:"id,omitempty"`
	BatchID  string `json:"batch_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`

	Date          time.Time           `json:"date"`
	Deposit       decimal.NullDecimal `json:"deposit"`
	Withdrawal    decimal.NullDecimal `json:"withdrawal"`
	Balance       decimal.NullDecimal `json:"balance"`
	Currency      string              `json:"currency"`
	Description   string              `json:"description"`
	BankName      string              `json:"bank_name"`
	AccountName   string              `json:"account_name"`
	AccountNumber string              `json:"account_number"`

	ContentHash     string `json:"content_hash,omitempty"`
	Sequence        int    `json:"sequence,omitempty"`
	Status          Status `json:"status,omitempty"`
	LinkedVoucherID string `json:"linked_voucher_id,omitempty"`
	StatusNote      string `json:"status_note,omitempty"`
}

// DateKey returns the transaction date as YYYY-MM-DD.
func (r Row) DateKey() string {
	return r.Date.Format(DateLayout)
}

// NetAmount returns deposit - withdrawal.
func (r Row) NetAmount() decimal.Decimal {
	net := decimal.Zero
	if r.Deposit.Valid {
		net = net.Add(r.Deposit.Decimal)
	}
	if r.Withdrawal.Valid {
		net = net.Sub(r.Withdrawal.Decimal)
	}
	return net
}

// Normalize applies the sign convention and trims text fields. It is
// idempotent.
func (r *Row) Normalize() {
	if r.Withdrawal.Valid {
		r.Withdrawal.Decimal = r.Withdrawal.Decimal.Abs()
	}
	y, m, d := r.Date.Date()
	r.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.Description = strings.TrimSpace(r.Description)
	r.BankName = strings.TrimSpace(r.BankName)
	r.AccountName = strings.TrimSpace(r.AccountName)
	r.AccountNumber = strings.TrimSpace(r.AccountNumber)
}

// ErrInvalidRow is wrapped by Validate failures.
var ErrInvalidRow = errors.New("invalid statement row")

// Validate checks a row before any storage work happens.
func (r Row) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("%w: missing transaction date", ErrInvalidRow)
	}
	if !r.Deposit.Valid && !r.Withdrawal.Valid {
		return fmt.Errorf("%w: %s has neither deposit nor withdrawal", ErrInvalidRow, r.DateKey())
	}
	if r.Deposit.Valid && r.Deposit.Decimal.IsNegative() {
		return fmt.Errorf("%w: %s has negative deposit %s", ErrInvalidRow, r.DateKey(), r.Deposit.Decimal)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD transaction date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidRow, s)
	}
	return t, nil
}
