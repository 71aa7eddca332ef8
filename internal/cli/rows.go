package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-core/internal/application/reconcile"
	"github.com/eshaffer321/reconcile-core/internal/domain/statement"
)

// RowInput is one parsed statement line as produced by a statement parser.
// Dates are YYYY-MM-DD; amounts may be JSON numbers or strings.
type RowInput struct {
	Date          string              `json:"date"`
	Deposit       decimal.NullDecimal `json:"deposit"`
	Withdrawal    decimal.NullDecimal `json:"withdrawal"`
	Balance       decimal.NullDecimal `json:"balance"`
	Currency      string              `json:"currency"`
	Description   string              `json:"description"`
	BankName      string              `json:"bank_name"`
	AccountName   string              `json:"account_name"`
	AccountNumber string              `json:"account_number"`
}

// DecodeRows reads a JSON array of RowInput. A malformed date fails the
// whole batch with reconcile.ErrInvalidInput.
func DecodeRows(r io.Reader) ([]statement.Row, error) {
	var inputs []RowInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, fmt.Errorf("%w: rows are not a JSON array: %v", reconcile.ErrInvalidInput, err)
	}

	rows := make([]statement.Row, 0, len(inputs))
	for i, in := range inputs {
		date, err := statement.ParseDate(in.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", reconcile.ErrInvalidInput, i+1, err)
		}
		rows = append(rows, statement.Row{
			Date:          date,
			Deposit:       in.Deposit,
			Withdrawal:    in.Withdrawal,
			Balance:       in.Balance,
			Currency:      in.Currency,
			Description:   in.Description,
			BankName:      in.BankName,
			AccountName:   in.AccountName,
			AccountNumber: in.AccountNumber,
		})
	}
	return rows, nil
}
