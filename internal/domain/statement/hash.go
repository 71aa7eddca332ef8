package statement

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-core/internal/domain/money"
)

// ContentHash returns the hex sha256 of the identity-bearing fields of a
// normalised row. Two rows hash equal iff they would be the same bank line.
func ContentHash(tenantID string, r Row) string {
	fields := []string{
		tenantID,
		r.DateKey(),
		nullAmount(r.Deposit),
		nullAmount(r.Withdrawal),
		money.Canonical(r.NetAmount()),
		nullAmount(r.Balance),
		r.Currency,
		r.BankName,
		r.Description,
		r.AccountName,
		r.AccountNumber,
	}

	// Unit separator keeps "a|b" + "c" distinct from "a" + "b|c".
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func nullAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return money.Canonical(d.Decimal)
}
