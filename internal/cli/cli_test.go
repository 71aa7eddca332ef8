package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/reconcile-core/internal/application/reconcile"
	"github.com/eshaffer321/reconcile-core/internal/domain/candidate"
	"github.com/eshaffer321/reconcile-core/internal/domain/matcher"
	"github.com/eshaffer321/reconcile-core/internal/infrastructure/config"
	"github.com/eshaffer321/reconcile-core/internal/infrastructure/storage"
)

const rowsJSON = `[
  {"date": "2024-03-10", "withdrawal": "12000", "currency": "krw", "description": "rent", "bank_name": "Hana"},
  {"date": "2024-03-20", "withdrawal": 12000, "deposit": null, "currency": "KRW", "description": "rent", "bank_name": "Hana"}
]`

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "reconcile.db")

	app, err := NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	var out bytes.Buffer
	app.Out = &out
	return app, &out
}

func TestDecodeRows(t *testing.T) {
	rows, err := DecodeRows(strings.NewReader(rowsJSON))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.True(t, rows[0].Withdrawal.Valid)
	assert.True(t, rows[0].Withdrawal.Decimal.Equal(decimal.NewFromInt(12000)))
	assert.False(t, rows[0].Deposit.Valid)
	assert.True(t, rows[1].Withdrawal.Decimal.Equal(decimal.NewFromInt(12000)))
	assert.False(t, rows[1].Deposit.Valid)
}

func TestDecodeRows_Invalid(t *testing.T) {
	_, err := DecodeRows(strings.NewReader(`[{"date": "10/03/2024", "withdrawal": 1}]`))
	assert.ErrorIs(t, err, reconcile.ErrInvalidInput)

	_, err = DecodeRows(strings.NewReader(`{"date": "2024-03-10"}`))
	assert.ErrorIs(t, err, reconcile.ErrInvalidInput)
}

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer

	_, err := ParseMatchFlags("automatch", []string{"-counterparty", "c1", "-amount", "10"}, &out, true)
	assert.ErrorContains(t, err, "-tenant")

	_, err = ParseMatchFlags("automatch", []string{"-tenant", "t", "-counterparty", "c1", "-amount", "ten"}, &out, true)
	assert.ErrorContains(t, err, "-amount")

	f, err := ParseMatchFlags("automatch", []string{"-tenant", "t", "-counterparty", "c1", "-amount", "25000.50", "-json"}, &out, true)
	require.NoError(t, err)
	assert.True(t, f.Amount.Equal(decimal.RequireFromString("25000.50")))
	assert.True(t, f.JSON)

	_, err = ParseBatchFlags("link", []string{"-tenant", "t"}, &out, true)
	assert.ErrorContains(t, err, "-batch")

	_, err = ParseImportFlags([]string{"-tenant", "t"}, &out)
	assert.ErrorContains(t, err, "-file")
}

func TestServiceConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Reconcile.AmountTolerance = "0.5"
	cfg.Reconcile.OutgoingWindowDays = 9

	svc, err := ServiceConfig(cfg)
	require.NoError(t, err)
	assert.True(t, svc.Solver.Tolerance.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, 5, svc.Solver.MaxSubsetSize)
	assert.Equal(t, 9, svc.Matcher.OutgoingWindowDays)
	assert.Equal(t, []string{"INV-"}, svc.Candidate.InvoicePrefixes)
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Reconcile.MaxSubsetSize = 0

	_, err := NewApp(cfg, nil)
	assert.ErrorContains(t, err, "max_subset_size")
}

func TestRunImport_HistoricalAndReimport(t *testing.T) {
	ctx := context.Background()
	app, out := newTestApp(t)

	require.NoError(t, app.Store.WithTx(ctx, "acme", func(q storage.Queries) error {
		return q.SaveVoucher(ctx, storage.VoucherRecord{
			ID: "v1", VoucherNo: "JV-1", PostingDate: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
			Lines: []storage.VoucherLineRecord{
				{AccountCode: "1002", Side: matcher.SideCredit, Amount: decimal.NewFromInt(12000)},
			},
		})
	}))
	require.NoError(t, RunBankAccount(ctx, app, []string{"-tenant", "acme", "-add", "1002"}))
	assert.Equal(t, "1002\n", out.String())

	file := filepath.Join(t.TempDir(), "march.json")
	require.NoError(t, os.WriteFile(file, []byte(rowsJSON), 0644))

	out.Reset()
	require.NoError(t, RunImport(ctx, app, []string{"-tenant", "acme", "-file", file, "-historical", "-json"}, nil))
	var result reconcile.ImportResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 2, result.InsertedRows)
	assert.Equal(t, 1, result.LinkedRows)

	out.Reset()
	require.NoError(t, RunImport(ctx, app, []string{"-tenant", "acme", "-file", "-"}, strings.NewReader(rowsJSON)))
	assert.Contains(t, out.String(), "Inserted=0 Skipped=2")

	out.Reset()
	require.NoError(t, RunBatches(ctx, app, []string{"-tenant", "acme", "-json"}))
	var batches []storage.Batch
	require.NoError(t, json.Unmarshal(out.Bytes(), &batches))
	assert.Len(t, batches, 2)

	out.Reset()
	require.NoError(t, RunBatches(ctx, app, []string{"-tenant", "acme", "-batch", result.BatchID}))
	assert.Contains(t, out.String(), "linked")
	assert.Contains(t, out.String(), "unmatched")
	assert.Contains(t, out.String(), "v1")

	out.Reset()
	require.NoError(t, RunLink(ctx, app, []string{"-tenant", "acme", "-batch", result.BatchID}))
	assert.Contains(t, out.String(), "Linked 0 row(s)")
}

func TestRunSettle(t *testing.T) {
	ctx := context.Background()
	app, out := newTestApp(t)

	require.NoError(t, app.Store.WithTx(ctx, "acme", func(q storage.Queries) error {
		for id, amt := range map[string]int64{"A": 10000, "B": 15000} {
			if err := q.SaveInvoice(ctx, storage.InvoiceRecord{
				CounterpartyID: "c1", InvoiceNo: "INV-" + id, FaceAmount: decimal.NewFromInt(amt),
			}); err != nil {
				return err
			}
			if err := q.SaveObligation(ctx, storage.ObligationRecord{
				ID: id, CounterpartyID: "c1", AccountCode: "1200",
				DocumentDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
				Residual:     decimal.NewFromInt(amt),
				Reference:    candidate.DirectReference("INV-" + id),
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, RunCandidates(ctx, app, []string{"-tenant", "acme", "-counterparty", "c1"}))
	assert.Contains(t, out.String(), "INV-A")
	assert.Contains(t, out.String(), "INV-B")

	out.Reset()
	require.NoError(t, RunAutoMatch(ctx, app, []string{"-tenant", "acme", "-counterparty", "c1", "-amount", "25000"}, true))
	assert.Contains(t, out.String(), "Status: exact")
	assert.Contains(t, out.String(), "Settled.")

	out.Reset()
	require.NoError(t, RunCandidates(ctx, app, []string{"-tenant", "acme", "-counterparty", "c1"}))
	assert.Equal(t, "No open items.\n", out.String())
}
