package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/reconcile-core/internal/domain/matcher"
	"github.com/eshaffer321/reconcile-core/internal/domain/statement"
)

// ErrAlreadyLinked is returned when a row or voucher already carries a link.
var ErrAlreadyLinked = errors.New("already linked")

// ListBankAccountCodes returns the tenant's designated bank account codes.
func (t *Tx) ListBankAccountCodes(ctx context.Context) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT account_code FROM bank_accounts WHERE tenant_id = ? ORDER BY account_code
	`, t.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank accounts: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// AddBankAccount designates an account code as a bank account.
func (t *Tx) AddBankAccount(ctx context.Context, accountCode string) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO bank_accounts (tenant_id, account_code) VALUES (?, ?)
		ON CONFLICT(tenant_id, account_code) DO NOTHING
	`, t.tenantID, accountCode)
	if err != nil {
		return fmt.Errorf("failed to add bank account: %w", err)
	}
	return nil
}

// ListVoucherLines returns bank-account lines of posted vouchers dated
// within [from, to] on one side. Amount equality is left to the matcher.
func (t *Tx) ListVoucherLines(ctx context.Context, side matcher.Side, from, to time.Time) ([]matcher.VoucherLine, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT v.id, v.voucher_no, v.posting_date, v.created_at,
		       COALESCE(v.linked_transaction_id, 0),
		       l.account_code, l.side, l.amount
		FROM vouchers v
		JOIN voucher_lines l ON l.tenant_id = v.tenant_id AND l.voucher_id = v.id
		JOIN bank_accounts b ON b.tenant_id = l.tenant_id AND b.account_code = l.account_code
		WHERE v.tenant_id = ? AND v.status = ? AND l.side = ?
		  AND v.posting_date BETWEEN ? AND ?
		ORDER BY v.posting_date, v.id, l.line_no
	`, t.tenantID, VoucherPosted, string(side), formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query voucher lines: %w", err)
	}
	defer rows.Close()

	var lines []matcher.VoucherLine
	for rows.Next() {
		var l matcher.VoucherLine
		var posting, created, lineSide string
		if err := rows.Scan(&l.VoucherID, &l.VoucherNo, &posting, &created,
			&l.LinkedRowID, &l.AccountCode, &lineSide, &l.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan voucher line: %w", err)
		}
		l.Side = matcher.Side(lineSide)
		if l.PostingDate, err = parseDate(posting); err != nil {
			return nil, fmt.Errorf("voucher %s: bad posting date: %w", l.VoucherID, err)
		}
		if l.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, fmt.Errorf("voucher %s: bad created_at: %w", l.VoucherID, err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// LinkTransaction links a pending row to a voucher and writes the
// back-reference on the voucher. Either both sides change or neither does.
func (t *Tx) LinkTransaction(ctx context.Context, rowID int64, voucherID, note string) error {
	now := formatTimestamp(t.now())

	res, err := t.tx.ExecContext(ctx, `
		UPDATE bank_transactions
		SET status = ?, linked_voucher_id = ?, status_note = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND status = ?
	`, statement.StatusLinked, voucherID, note, now, t.tenantID, rowID, statement.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to link transaction %d: %w", rowID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %d is not pending: %w", rowID, ErrAlreadyLinked)
	}

	res, err = t.tx.ExecContext(ctx, `
		UPDATE vouchers SET linked_transaction_id = ?
		WHERE tenant_id = ? AND id = ? AND status = ?
		  AND (linked_transaction_id IS NULL OR linked_transaction_id = ?)
	`, rowID, t.tenantID, voucherID, VoucherPosted, rowID)
	if err != nil {
		return fmt.Errorf("failed to link voucher %s: %w", voucherID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("voucher %s: %w", voucherID, ErrAlreadyLinked)
	}
	return nil
}

// MarkUnmatched records why a pending row could not be linked.
func (t *Tx) MarkUnmatched(ctx context.Context, rowID int64, reason string) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE bank_transactions
		SET status = ?, status_note = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND status = ?
	`, statement.StatusUnmatched, reason, formatTimestamp(t.now()), t.tenantID, rowID, statement.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark transaction %d unmatched: %w", rowID, err)
	}
	return nil
}

// SaveVoucher inserts a voucher and its lines. An empty ID gets a new UUID.
func (t *Tx) SaveVoucher(ctx context.Context, v VoucherRecord) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.Status == "" {
		v.Status = VoucherPosted
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = t.now()
	}
	var linked any
	if v.LinkedTransactionID != 0 {
		linked = v.LinkedTransactionID
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO vouchers (id, tenant_id, voucher_no, posting_date, status, created_at, linked_transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.ID, t.tenantID, v.VoucherNo, formatDate(v.PostingDate), v.Status, formatTimestamp(v.CreatedAt), linked)
	if err != nil {
		return fmt.Errorf("failed to save voucher: %w", err)
	}

	for i, l := range v.Lines {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO voucher_lines (tenant_id, voucher_id, line_no, account_code, side, amount)
			VALUES (?, ?, ?, ?, ?, ?)
		`, t.tenantID, v.ID, i+1, l.AccountCode, string(l.Side), l.Amount.String())
		if err != nil {
			return fmt.Errorf("failed to save voucher line %d: %w", i+1, err)
		}
	}
	return nil
}

// GetVoucher returns a voucher with its lines.
func (t *Tx) GetVoucher(ctx context.Context, id string) (*VoucherRecord, error) {
	var v VoucherRecord
	var posting, created string
	var linked sql.NullInt64
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, voucher_no, posting_date, status, created_at, linked_transaction_id
		FROM vouchers WHERE tenant_id = ? AND id = ?
	`, t.tenantID, id).Scan(&v.ID, &v.VoucherNo, &posting, &v.Status, &created, &linked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("voucher %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	if v.PostingDate, err = parseDate(posting); err != nil {
		return nil, err
	}
	if v.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	v.LinkedTransactionID = linked.Int64

	rows, err := t.tx.QueryContext(ctx, `
		SELECT account_code, side, amount FROM voucher_lines
		WHERE tenant_id = ? AND voucher_id = ? ORDER BY line_no
	`, t.tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query voucher lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l VoucherLineRecord
		var side string
		if err := rows.Scan(&l.AccountCode, &side, &l.Amount); err != nil {
			return nil, err
		}
		l.Side = matcher.Side(side)
		v.Lines = append(v.Lines, l)
	}
	return &v, rows.Err()
}
