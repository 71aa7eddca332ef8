package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-core/internal/domain/candidate"
	"github.com/eshaffer321/reconcile-core/internal/domain/matcher"
	"github.com/eshaffer321/reconcile-core/internal/domain/statement"
)

// Repository defines the storage entry point.
// All reads and writes go through a tenant-scoped transaction so a pass
// either commits completely or leaves nothing behind. ReadTx is for pure
// reads and must not be used for anything that writes.
type Repository interface {
	WithTx(ctx context.Context, tenantID string, fn func(Queries) error) error
	ReadTx(ctx context.Context, tenantID string, fn func(Queries) error) error
	Close() error
}

// Queries is everything a unit of work can do. Implementations filter every
// statement by the tenant the unit of work was opened for.
type Queries interface {
	TenantID() string

	ObligationRepository
	VoucherRepository
	StatementRepository
	PostingJobRepository

	// Savepoint, RollbackTo and Release isolate row-level work inside the
	// enclosing transaction.
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
}

// ObligationRepository reads open items and invoices and records settlement.
type ObligationRepository interface {
	// ListIssuedInvoices returns active (issued, unpaid) invoices of a counterparty
	ListIssuedInvoices(ctx context.Context, counterpartyID string) ([]candidate.Invoice, error)

	// ListOpenObligations returns uncleared obligations with a positive residual
	ListOpenObligations(ctx context.Context, counterpartyID string) ([]candidate.Obligation, error)

	// GetObligation returns one obligation, or ErrNotFound
	GetObligation(ctx context.Context, id string) (*ObligationRecord, error)

	// UpdateResidual stores a new residual; zero marks the obligation cleared
	UpdateResidual(ctx context.Context, id string, residual decimal.Decimal) error

	SaveInvoice(ctx context.Context, inv InvoiceRecord) error
	SaveObligation(ctx context.Context, ob ObligationRecord) error
}

// VoucherRepository reads posted vouchers and writes the bank-line back-reference.
type VoucherRepository interface {
	// ListBankAccountCodes returns the tenant's designated bank accounts
	ListBankAccountCodes(ctx context.Context) ([]string, error)

	// ListVoucherLines returns lines of posted vouchers dated within
	// [from, to] on the given side, limited to the tenant's bank accounts
	ListVoucherLines(ctx context.Context, side matcher.Side, from, to time.Time) ([]matcher.VoucherLine, error)

	// LinkTransaction marks a pending row linked and points the voucher back at it
	LinkTransaction(ctx context.Context, rowID int64, voucherID, note string) error

	// MarkUnmatched marks a pending row unmatched with a reason
	MarkUnmatched(ctx context.Context, rowID int64, reason string) error

	AddBankAccount(ctx context.Context, accountCode string) error
	SaveVoucher(ctx context.Context, v VoucherRecord) error
	GetVoucher(ctx context.Context, id string) (*VoucherRecord, error)
}

// StatementRepository handles statement batches and imported rows.
type StatementRepository interface {
	CreateBatch(ctx context.Context, b *Batch) error
	CompleteBatch(ctx context.Context, b *Batch) error
	GetBatch(ctx context.Context, id string) (*Batch, error)
	ListBatches(ctx context.Context, limit int) ([]Batch, error)

	// MaxSequences returns the highest stored sequence number per date key
	MaxSequences(ctx context.Context, dateKeys []string) (map[string]int, error)

	// InsertTransaction inserts the row unless its content hash already
	// exists for the tenant. Returns false for a duplicate.
	InsertTransaction(ctx context.Context, row *statement.Row) (bool, error)

	// ListTransactions returns the rows of a batch in date, sequence order.
	// An empty status returns every row.
	ListTransactions(ctx context.Context, batchID string, status statement.Status) ([]statement.Row, error)
}

// PostingJobRepository is the outbox read by the downstream auto-posting worker.
type PostingJobRepository interface {
	EnqueuePostingJob(ctx context.Context, job *PostingJob) error
	ListPostingJobs(ctx context.Context, limit int) ([]PostingJob, error)
}
