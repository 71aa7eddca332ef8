package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-core/internal/domain/candidate"
)

// ListIssuedInvoices returns issued invoices for a counterparty.
func (t *Tx) ListIssuedInvoices(ctx context.Context, counterpartyID string) ([]candidate.Invoice, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT invoice_no, counterparty_id, face_amount, due_date
		FROM invoices
		WHERE tenant_id = ? AND counterparty_id = ? AND status = ?
		ORDER BY invoice_no
	`, t.tenantID, counterpartyID, InvoiceIssued)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []candidate.Invoice
	for rows.Next() {
		var inv candidate.Invoice
		var due sql.NullString
		if err := rows.Scan(&inv.Number, &inv.CounterpartyID, &inv.FaceAmount, &due); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		if due.Valid && due.String != "" {
			d, err := parseDate(due.String)
			if err != nil {
				return nil, fmt.Errorf("invoice %s: bad due date: %w", inv.Number, err)
			}
			inv.DueDate = &d
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// ListOpenObligations returns uncleared obligations with a positive residual.
// The stored reference payload is decoded here; a malformed payload becomes
// an empty reference rather than an error.
func (t *Tx) ListOpenObligations(ctx context.Context, counterpartyID string) ([]candidate.Obligation, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, account_code, residual_amount, document_date,
		       counterparty_id, counterparty_name, reference_json
		FROM obligations
		WHERE tenant_id = ? AND counterparty_id = ? AND cleared = 0
		ORDER BY document_date, id
	`, t.tenantID, counterpartyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query obligations: %w", err)
	}
	defer rows.Close()

	var obligations []candidate.Obligation
	for rows.Next() {
		var ob candidate.Obligation
		var docDate string
		var ref sql.NullString
		if err := rows.Scan(&ob.ID, &ob.AccountCode, &ob.Residual, &docDate,
			&ob.CounterpartyID, &ob.CounterpartyName, &ref); err != nil {
			return nil, fmt.Errorf("failed to scan obligation: %w", err)
		}
		if !ob.Residual.IsPositive() {
			continue
		}
		if ob.DocumentDate, err = parseDate(docDate); err != nil {
			return nil, fmt.Errorf("obligation %s: bad document date: %w", ob.ID, err)
		}
		if ref.Valid {
			ob.Reference = candidate.DecodeReference([]byte(ref.String))
		}
		obligations = append(obligations, ob)
	}
	return obligations, rows.Err()
}

// GetObligation returns a single obligation by ID.
func (t *Tx) GetObligation(ctx context.Context, id string) (*ObligationRecord, error) {
	var ob ObligationRecord
	var docDate string
	var ref sql.NullString
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, counterparty_id, counterparty_name, account_code, document_date,
		       original_amount, residual_amount, reference_json, cleared
		FROM obligations
		WHERE tenant_id = ? AND id = ?
	`, t.tenantID, id).Scan(&ob.ID, &ob.CounterpartyID, &ob.CounterpartyName, &ob.AccountCode,
		&docDate, &ob.OriginalAmount, &ob.Residual, &ref, &ob.Cleared)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("obligation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get obligation: %w", err)
	}
	if ob.DocumentDate, err = parseDate(docDate); err != nil {
		return nil, fmt.Errorf("obligation %s: bad document date: %w", id, err)
	}
	if ref.Valid {
		ob.Reference = candidate.DecodeReference([]byte(ref.String))
	}
	return &ob, nil
}

// UpdateResidual stores a new residual. A zero residual clears the obligation.
func (t *Tx) UpdateResidual(ctx context.Context, id string, residual decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE obligations
		SET residual_amount = ?, cleared = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`, residual.String(), !residual.IsPositive(), formatTimestamp(t.now()), t.tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to update residual: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("obligation %s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveInvoice inserts or replaces an invoice.
func (t *Tx) SaveInvoice(ctx context.Context, inv InvoiceRecord) error {
	var due any
	if inv.DueDate != nil {
		due = formatDate(*inv.DueDate)
	}
	status := inv.Status
	if status == "" {
		status = InvoiceIssued
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO invoices (tenant_id, counterparty_id, invoice_no, face_amount, due_date, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, invoice_no) DO UPDATE SET
			counterparty_id = excluded.counterparty_id,
			face_amount = excluded.face_amount,
			due_date = excluded.due_date,
			status = excluded.status
	`, t.tenantID, inv.CounterpartyID, inv.InvoiceNo, inv.FaceAmount.String(), due, status)
	if err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

// SaveObligation inserts or replaces an obligation.
func (t *Tx) SaveObligation(ctx context.Context, ob ObligationRecord) error {
	original := ob.OriginalAmount
	if original.IsZero() {
		original = ob.Residual
	}
	var ref any
	if ob.Reference.Kind != candidate.ReferenceNone {
		ref = string(ob.Reference.Encode())
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO obligations (
			id, tenant_id, counterparty_id, counterparty_name, account_code,
			document_date, original_amount, residual_amount, reference_json, cleared, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			counterparty_id = excluded.counterparty_id,
			counterparty_name = excluded.counterparty_name,
			account_code = excluded.account_code,
			document_date = excluded.document_date,
			original_amount = excluded.original_amount,
			residual_amount = excluded.residual_amount,
			reference_json = excluded.reference_json,
			cleared = excluded.cleared,
			updated_at = excluded.updated_at
	`, ob.ID, t.tenantID, ob.CounterpartyID, ob.CounterpartyName, ob.AccountCode,
		formatDate(ob.DocumentDate), original.String(), ob.Residual.String(), ref,
		ob.Cleared || !ob.Residual.IsPositive(), formatTimestamp(t.now()))
	if err != nil {
		return fmt.Errorf("failed to save obligation: %w", err)
	}
	return nil
}
