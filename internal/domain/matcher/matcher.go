// Package matcher decides which posted voucher an imported bank line belongs
// to.
//
// The matcher uses strict matching criteria:
//   - Voucher line amount must equal the bank amount exactly
//   - Voucher line side must follow the cash direction (withdrawal = credit,
//     deposit = debit)
//   - Voucher line account must be one of the tenant's bank accounts
//   - Posting date must be inside the direction's window (default ±5 days
//     outgoing, ±3 days incoming)
//   - Voucher must not already be linked to a different bank line
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig())
//	target, ok := matcher.TargetFor(row.NetAmount(), row.Date)
//	result := m.FindMatch(target, row.ID, lines, bankAccounts, used)
//	if result != nil {
//		// link row to result.Line.VoucherID
//	}
package matcher

import (
	"time"

	"github.com/shopspring/decimal"
)

// Matcher links bank lines to voucher lines
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config) *Matcher {
	return &Matcher{
		config: config,
	}
}

// TargetFor derives the match target from a signed net bank amount
// (deposit - withdrawal). Money leaving the account credits the bank
// account; money arriving debits it. A zero amount has no target.
func TargetFor(net decimal.Decimal, date time.Time) (Target, bool) {
	switch net.Sign() {
	case -1:
		return Target{Side: SideCredit, Amount: net.Abs(), Date: date}, true
	case 1:
		return Target{Side: SideDebit, Amount: net, Date: date}, true
	default:
		return Target{}, false
	}
}

// WindowDays returns the date tolerance for the target's direction.
func (m *Matcher) WindowDays(t Target) int {
	if t.Side == SideCredit {
		return m.config.OutgoingWindowDays
	}
	return m.config.IncomingWindowDays
}

// Window returns the inclusive posting-date range searched for t.
func (m *Matcher) Window(t Target) (from, to time.Time) {
	d := dateOnly(t.Date)
	days := m.WindowDays(t)
	return d.AddDate(0, 0, -days), d.AddDate(0, 0, days)
}

// FindMatch finds the best voucher line for the target.
// Returns nil if no suitable match found.
//
// rowID is the bank line being matched: a voucher already linked to that
// same row is still eligible, so re-running a pass is idempotent.
// usedVoucherIDs holds vouchers claimed earlier in the current pass.
func (m *Matcher) FindMatch(
	target Target,
	rowID int64,
	lines []VoucherLine,
	bankAccounts map[string]bool,
	usedVoucherIDs map[string]bool,
) *MatchResult {
	if !target.Amount.IsPositive() {
		return nil
	}

	var best *VoucherLine
	bestDiff := 0
	window := m.WindowDays(target)
	txDate := dateOnly(target.Date)

	for i := range lines {
		line := &lines[i]

		// Skip if linked to another row
		if line.LinkedRowID != 0 && line.LinkedRowID != rowID {
			continue
		}
		if usedVoucherIDs[line.VoucherID] {
			continue
		}

		if line.Side != target.Side {
			continue
		}
		if !bankAccounts[line.AccountCode] {
			continue
		}
		if !line.Amount.Equal(target.Amount) {
			continue
		}

		diff := absDays(dateOnly(line.PostingDate).Sub(txDate))
		if diff > window {
			continue
		}

		if best == nil || better(line, diff, best, bestDiff) {
			best = line
			bestDiff = diff
		}
	}

	if best == nil {
		return nil
	}

	return &MatchResult{
		Line:     *best,
		DateDiff: bestDiff,
	}
}

// better prefers the closer posting date, then the most recently created
// voucher, then the lower voucher ID so the choice is stable.
func better(a *VoucherLine, aDiff int, b *VoucherLine, bDiff int) bool {
	if aDiff != bDiff {
		return aDiff < bDiff
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.VoucherID < b.VoucherID
}

func absDays(d time.Duration) int {
	days := int(d.Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
