package storage

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-core/internal/domain/candidate"
	"github.com/eshaffer321/reconcile-core/internal/domain/matcher"
)

// ErrNotFound is returned when a looked-up record does not exist for the tenant.
var ErrNotFound = errors.New("not found")

// Invoice statuses
const (
	InvoiceIssued = "issued"
	InvoicePaid   = "paid"
	InvoiceVoid   = "void"
)

// Voucher statuses
const (
	VoucherDraft  = "draft"
	VoucherPosted = "posted"
	VoucherVoid   = "void"
)

// BatchMode selects what happens after deduplication.
type BatchMode string

const (
	// BatchModeNormal commits the rows and queues them for auto-posting
	BatchModeNormal BatchMode = "normal"
	// BatchModeHistorical links rows to vouchers that were already posted
	BatchModeHistorical BatchMode = "historical"
)

// Batch statuses
const (
	BatchRunning   = "running"
	BatchCompleted = "completed"
)

// Batch is the summary record of one statement import
type Batch struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	SourceName   string     `json:"source_name"`
	Mode         BatchMode  `json:"mode"`
	RequestedBy  string     `json:"requested_by"`
	Status       string     `json:"status"`
	TotalRows    int        `json:"total_rows"`
	InsertedRows int        `json:"inserted_rows"`
	SkippedRows  int        `json:"skipped_rows"`
	LinkedRows   int        `json:"linked_rows"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// InvoiceRecord is an issued invoice as stored
type InvoiceRecord struct {
	CounterpartyID string
	InvoiceNo      string
	FaceAmount     decimal.Decimal
	DueDate        *time.Time
	Status         string
}

// ObligationRecord is an open item as stored
type ObligationRecord struct {
	ID               string
	CounterpartyID   string
	CounterpartyName string
	AccountCode      string
	DocumentDate     time.Time
	OriginalAmount   decimal.Decimal
	Residual         decimal.Decimal
	Reference        candidate.Reference
	Cleared          bool
}

// VoucherRecord is a voucher with its lines
type VoucherRecord struct {
	ID                  string
	VoucherNo           string
	PostingDate         time.Time
	Status              string
	CreatedAt           time.Time
	LinkedTransactionID int64
	Lines               []VoucherLineRecord
}

// VoucherLineRecord is one debit or credit line
type VoucherLineRecord struct {
	AccountCode string
	Side        matcher.Side
	Amount      decimal.Decimal
}

// PostingJob is a queued request for downstream journal generation
type PostingJob struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	RequestedBy string    `json:"requested_by"`
	BatchID     string    `json:"batch_id"`
	RowCount    int       `json:"row_count"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
