package matcher

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the accounting side a voucher line is posted on.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Config holds matcher configuration
type Config struct {
	IncomingWindowDays int // Deposits, default: 3
	OutgoingWindowDays int // Withdrawals, default: 5
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		IncomingWindowDays: 3,
		OutgoingWindowDays: 5,
	}
}

// Target describes what a bank line needs from a voucher.
type Target struct {
	Side   Side
	Amount decimal.Decimal // Always positive
	Date   time.Time
}

// VoucherLine is one line of a posted voucher, flattened with the voucher
// header fields the matcher needs.
type VoucherLine struct {
	VoucherID   string
	VoucherNo   string
	PostingDate time.Time
	CreatedAt   time.Time
	AccountCode string
	Side        Side
	Amount      decimal.Decimal
	LinkedRowID int64 // Imported row already linked to this voucher (0 = none)
}

// MatchResult contains match information
type MatchResult struct {
	Line     VoucherLine
	DateDiff int // Days between transaction and posting date
}
