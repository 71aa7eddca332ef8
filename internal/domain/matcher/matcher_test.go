package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bankAccounts = map[string]bool{"1002": true, "1003": true}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Helper to create test voucher line
func makeLine(id string, side Side, amount int64, posted time.Time) VoucherLine {
	return VoucherLine{
		VoucherID:   id,
		VoucherNo:   "V-" + id,
		PostingDate: posted,
		CreatedAt:   posted,
		AccountCode: "1002",
		Side:        side,
		Amount:      decimal.NewFromInt(amount),
	}
}

func withdrawal(amount int64, on time.Time) Target {
	t, _ := TargetFor(decimal.NewFromInt(-amount), on)
	return t
}

func deposit(amount int64, on time.Time) Target {
	t, _ := TargetFor(decimal.NewFromInt(amount), on)
	return t
}

func TestTargetFor_SignConvention(t *testing.T) {
	// Net amount is deposit - withdrawal, so withdrawals arrive negative
	target, ok := TargetFor(decimal.NewFromInt(-12000), date(2024, 3, 10))
	require.True(t, ok)
	assert.Equal(t, SideCredit, target.Side)
	assert.True(t, target.Amount.Equal(decimal.NewFromInt(12000)))

	target, ok = TargetFor(decimal.NewFromInt(500), date(2024, 3, 10))
	require.True(t, ok)
	assert.Equal(t, SideDebit, target.Side)
	assert.True(t, target.Amount.Equal(decimal.NewFromInt(500)))

	_, ok = TargetFor(decimal.Zero, date(2024, 3, 10))
	assert.False(t, ok)
}

func TestMatcher_WithdrawalWithinWindow(t *testing.T) {
	// Arrange
	m := NewMatcher(DefaultConfig())
	lines := []VoucherLine{makeLine("v1", SideCredit, 12000, date(2024, 3, 8))}

	// Act
	result := m.FindMatch(withdrawal(12000, date(2024, 3, 10)), 1, lines, bankAccounts, nil)

	// Assert
	require.NotNil(t, result)
	assert.Equal(t, "v1", result.Line.VoucherID)
	assert.Equal(t, 2, result.DateDiff)
}

func TestMatcher_WithdrawalOutsideWindow(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	lines := []VoucherLine{makeLine("v1", SideCredit, 12000, date(2024, 3, 8))}

	result := m.FindMatch(withdrawal(12000, date(2024, 3, 20)), 1, lines, bankAccounts, nil)

	assert.Nil(t, result)
}

func TestMatcher_AsymmetricWindows(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	posted := date(2024, 3, 10)

	tests := []struct {
		name   string
		target Target
		side   Side
		match  bool
	}{
		{"outgoing +5 days", withdrawal(100, posted.AddDate(0, 0, 5)), SideCredit, true},
		{"outgoing -5 days", withdrawal(100, posted.AddDate(0, 0, -5)), SideCredit, true},
		{"outgoing +6 days", withdrawal(100, posted.AddDate(0, 0, 6)), SideCredit, false},
		{"incoming +3 days", deposit(100, posted.AddDate(0, 0, 3)), SideDebit, true},
		{"incoming -3 days", deposit(100, posted.AddDate(0, 0, -3)), SideDebit, true},
		{"incoming +4 days", deposit(100, posted.AddDate(0, 0, 4)), SideDebit, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := []VoucherLine{makeLine("v", tt.side, 100, posted)}
			result := m.FindMatch(tt.target, 1, lines, bankAccounts, nil)
			assert.Equal(t, tt.match, result != nil)
		})
	}
}

func TestMatcher_WrongSideSkipped(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	lines := []VoucherLine{makeLine("v1", SideDebit, 12000, date(2024, 3, 10))}

	assert.Nil(t, m.FindMatch(withdrawal(12000, date(2024, 3, 10)), 1, lines, bankAccounts, nil))
	assert.NotNil(t, m.FindMatch(deposit(12000, date(2024, 3, 10)), 1, lines, bankAccounts, nil))
}

func TestMatcher_NonBankAccountSkipped(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	line := makeLine("v1", SideCredit, 12000, date(2024, 3, 10))
	line.AccountCode = "4000"

	assert.Nil(t, m.FindMatch(withdrawal(12000, date(2024, 3, 10)), 1, []VoucherLine{line}, bankAccounts, nil))
}

func TestMatcher_AmountMustBeExact(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	line := makeLine("v1", SideCredit, 0, date(2024, 3, 10))
	line.Amount = decimal.RequireFromString("12000.01")

	assert.Nil(t, m.FindMatch(withdrawal(12000, date(2024, 3, 10)), 1, []VoucherLine{line}, bankAccounts, nil))

	// Scale differences do not matter
	line.Amount = decimal.RequireFromString("12000.00")
	assert.NotNil(t, m.FindMatch(withdrawal(12000, date(2024, 3, 10)), 1, []VoucherLine{line}, bankAccounts, nil))
}

func TestMatcher_LinkedToOtherRowSkipped(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	line := makeLine("v1", SideCredit, 12000, date(2024, 3, 10))
	line.LinkedRowID = 7

	assert.Nil(t, m.FindMatch(withdrawal(12000, date(2024, 3, 10)), 8, []VoucherLine{line}, bankAccounts, nil))

	// Same row may be matched again
	result := m.FindMatch(withdrawal(12000, date(2024, 3, 10)), 7, []VoucherLine{line}, bankAccounts, nil)
	require.NotNil(t, result)
	assert.Equal(t, "v1", result.Line.VoucherID)
}

func TestMatcher_UsedInPassSkipped(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	lines := []VoucherLine{
		makeLine("v1", SideCredit, 12000, date(2024, 3, 10)),
		makeLine("v2", SideCredit, 12000, date(2024, 3, 12)),
	}
	used := map[string]bool{"v1": true}

	result := m.FindMatch(withdrawal(12000, date(2024, 3, 10)), 1, lines, bankAccounts, used)

	require.NotNil(t, result)
	assert.Equal(t, "v2", result.Line.VoucherID)
}

func TestMatcher_MultipleMatches_PicksClosestDate(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	lines := []VoucherLine{
		makeLine("far", SideCredit, 100, date(2024, 3, 14)),
		makeLine("near", SideCredit, 100, date(2024, 3, 9)),
		makeLine("mid", SideCredit, 100, date(2024, 3, 7)),
	}

	result := m.FindMatch(withdrawal(100, date(2024, 3, 10)), 1, lines, bankAccounts, nil)

	require.NotNil(t, result)
	assert.Equal(t, "near", result.Line.VoucherID)
	assert.Equal(t, 1, result.DateDiff)
}

func TestMatcher_TieBrokenByMostRecentlyCreated(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	older := makeLine("older", SideCredit, 100, date(2024, 3, 9))
	newer := makeLine("newer", SideCredit, 100, date(2024, 3, 11))
	older.CreatedAt = date(2024, 3, 1)
	newer.CreatedAt = date(2024, 3, 2)

	result := m.FindMatch(withdrawal(100, date(2024, 3, 10)), 1, []VoucherLine{older, newer}, bankAccounts, nil)

	require.NotNil(t, result)
	assert.Equal(t, "newer", result.Line.VoucherID)
}

func TestMatcher_Window(t *testing.T) {
	m := NewMatcher(DefaultConfig())

	from, to := m.Window(withdrawal(1, date(2024, 3, 10)))
	assert.Equal(t, date(2024, 3, 5), from)
	assert.Equal(t, date(2024, 3, 15), to)

	from, to = m.Window(deposit(1, date(2024, 3, 10)))
	assert.Equal(t, date(2024, 3, 7), from)
	assert.Equal(t, date(2024, 3, 13), to)
}

func TestMatcher_CustomConfig(t *testing.T) {
	m := NewMatcher(Config{IncomingWindowDays: 0, OutgoingWindowDays: 1})
	lines := []VoucherLine{makeLine("v1", SideDebit, 100, date(2024, 3, 11))}

	assert.Nil(t, m.FindMatch(deposit(100, date(2024, 3, 10)), 1, lines, bankAccounts, nil))
}

func TestMatcher_EmptyLines(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	assert.Nil(t, m.FindMatch(withdrawal(100, date(2024, 3, 10)), 1, nil, bankAccounts, nil))
}
