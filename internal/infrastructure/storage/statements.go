package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eshaffer321/reconcile-core/internal/domain/statement"
)

// CreateBatch inserts a running batch. An empty ID gets a new UUID.
func (t *Tx) CreateBatch(ctx context.Context, b *Batch) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	b.TenantID = t.tenantID
	b.Status = BatchRunning
	b.CreatedAt = t.now()

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO statement_batches (id, tenant_id, source_name, mode, requested_by, status, total_rows, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.TenantID, b.SourceName, string(b.Mode), b.RequestedBy, b.Status, b.TotalRows, formatTimestamp(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

// CompleteBatch writes the final counters and marks the batch completed.
func (t *Tx) CompleteBatch(ctx context.Context, b *Batch) error {
	completed := t.now()
	b.Status = BatchCompleted
	b.CompletedAt = &completed

	res, err := t.tx.ExecContext(ctx, `
		UPDATE statement_batches
		SET status = ?, total_rows = ?, inserted_rows = ?, skipped_rows = ?, linked_rows = ?, completed_at = ?
		WHERE tenant_id = ? AND id = ?
	`, b.Status, b.TotalRows, b.InsertedRows, b.SkippedRows, b.LinkedRows, formatTimestamp(completed), t.tenantID, b.ID)
	if err != nil {
		return fmt.Errorf("failed to complete batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("batch %s: %w", b.ID, ErrNotFound)
	}
	return nil
}

const batchColumns = `id, tenant_id, source_name, mode, requested_by, status,
	total_rows, inserted_rows, skipped_rows, linked_rows, created_at, completed_at`

func scanBatch(scan func(...any) error) (*Batch, error) {
	var b Batch
	var mode, created string
	var completed sql.NullString
	if err := scan(&b.ID, &b.TenantID, &b.SourceName, &mode, &b.RequestedBy, &b.Status,
		&b.TotalRows, &b.InsertedRows, &b.SkippedRows, &b.LinkedRows, &created, &completed); err != nil {
		return nil, err
	}
	b.Mode = BatchMode(mode)

	var err error
	if b.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	if completed.Valid {
		c, err := parseTimestamp(completed.String)
		if err != nil {
			return nil, err
		}
		b.CompletedAt = &c
	}
	return &b, nil
}

// GetBatch returns a batch summary by ID.
func (t *Tx) GetBatch(ctx context.Context, id string) (*Batch, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+batchColumns+`
		FROM statement_batches WHERE tenant_id = ? AND id = ?`, t.tenantID, id)
	b, err := scanBatch(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return b, nil
}

// ListBatches returns the most recent batches, newest first.
func (t *Tx) ListBatches(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := t.tx.QueryContext(ctx, `SELECT `+batchColumns+`
		FROM statement_batches WHERE tenant_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, t.tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		b, err := scanBatch(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

// MaxSequences returns the highest stored sequence per date key. Dates with
// no stored rows are absent from the map.
func (t *Tx) MaxSequences(ctx context.Context, dateKeys []string) (map[string]int, error) {
	result := make(map[string]int, len(dateKeys))
	if len(dateKeys) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(dateKeys)), ",")
	args := make([]any, 0, len(dateKeys)+1)
	args = append(args, t.tenantID)
	for _, k := range dateKeys {
		args = append(args, k)
	}

	rows, err := t.tx.QueryContext(ctx, `
		SELECT txn_date, MAX(seq_no) FROM bank_transactions
		WHERE tenant_id = ? AND txn_date IN (`+placeholders+`)
		GROUP BY txn_date
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sequences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var seq int
		if err := rows.Scan(&key, &seq); err != nil {
			return nil, err
		}
		result[key] = seq
	}
	return result, rows.Err()
}

// InsertTransaction inserts a row, skipping it when the content hash is
// already stored for the tenant. On insert the row's ID is set.
func (t *Tx) InsertTransaction(ctx context.Context, row *statement.Row) (bool, error) {
	now := formatTimestamp(t.now())
	status := row.Status
	if status == "" {
		status = statement.StatusPending
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO bank_transactions (
			tenant_id, batch_id, txn_date, deposit, withdrawal, net_amount, balance,
			currency, description, bank_name, account_name, account_number,
			content_hash, seq_no, status, status_note, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, content_hash) DO NOTHING
	`, t.tenantID, row.BatchID, row.DateKey(), row.Deposit, row.Withdrawal, row.NetAmount().String(), row.Balance,
		row.Currency, row.Description, row.BankName, row.AccountName, row.AccountNumber,
		row.ContentHash, row.Sequence, string(status), row.StatusNote, now, now)
	if err != nil {
		return false, fmt.Errorf("failed to insert transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	row.ID = id
	row.TenantID = t.tenantID
	row.Status = status
	return true, nil
}

// ListTransactions returns the rows of a batch ordered by date and sequence.
func (t *Tx) ListTransactions(ctx context.Context, batchID string, status statement.Status) ([]statement.Row, error) {
	query := `
		SELECT id, batch_id, txn_date, deposit, withdrawal, balance, currency, description,
		       bank_name, account_name, account_number, content_hash, seq_no, status,
		       COALESCE(linked_voucher_id, ''), status_note
		FROM bank_transactions
		WHERE tenant_id = ? AND batch_id = ?`
	args := []any{t.tenantID, batchID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY txn_date, seq_no`

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var result []statement.Row
	for rows.Next() {
		var r statement.Row
		var date, st string
		if err := rows.Scan(&r.ID, &r.BatchID, &date, &r.Deposit, &r.Withdrawal, &r.Balance,
			&r.Currency, &r.Description, &r.BankName, &r.AccountName, &r.AccountNumber,
			&r.ContentHash, &r.Sequence, &st, &r.LinkedVoucherID, &r.StatusNote); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if r.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %d: bad date: %w", r.ID, err)
		}
		r.TenantID = t.tenantID
		r.Status = statement.Status(st)
		result = append(result, r)
	}
	return result, rows.Err()
}
