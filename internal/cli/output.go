package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/eshaffer321/reconcile-core/internal/application/reconcile"
	"github.com/eshaffer321/reconcile-core/internal/domain/allocator"
	"github.com/eshaffer321/reconcile-core/internal/domain/candidate"
	"github.com/eshaffer321/reconcile-core/internal/domain/money"
	"github.com/eshaffer321/reconcile-core/internal/domain/statement"
	"github.com/eshaffer321/reconcile-core/internal/infrastructure/storage"
)

// WriteJSON prints v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintImportSummary prints the result of an import
func PrintImportSummary(w io.Writer, r *reconcile.ImportResult, historical bool) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Batch: %s\n", r.BatchID)
	fmt.Fprintf(w, "Summary: Total=%d Inserted=%d Skipped=%d", r.TotalRows, r.InsertedRows, r.SkippedRows)
	if historical {
		fmt.Fprintf(w, " Linked=%d", r.LinkedRows)
	}
	fmt.Fprintln(w)
}

// PrintCandidates prints candidates in priority order
func PrintCandidates(w io.Writer, cands []candidate.MatchCandidate) {
	if len(cands) == 0 {
		fmt.Fprintln(w, "No open items.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tINVOICE\tRESIDUAL\tDOC DATE\tOVERDUE\tSOURCE")
	for _, c := range cands {
		inv := c.InvoiceNumber
		if inv == "" {
			inv = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			c.ID, inv, money.Canonical(c.Residual), c.DocumentDate.Format(statement.DateLayout), c.OverdueDays, c.Provenance)
	}
	tw.Flush()
}

// PrintAllocation prints an allocation result
func PrintAllocation(w io.Writer, r allocator.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, a := range r.Allocations {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", a.CandidateID, a.InvoiceNumber, money.Canonical(a.Applied))
	}
	tw.Flush()
	fmt.Fprintf(w, "Status: %s | Matched: %s | Remainder: %s\n",
		r.Status, money.Canonical(r.TotalMatched), money.Canonical(r.Remainder))
	fmt.Fprintf(w, "Rationale: %s\n", r.Rationale)
}

// PrintBatches prints batch summaries
func PrintBatches(w io.Writer, batches []storage.Batch) {
	if len(batches) == 0 {
		fmt.Fprintln(w, "No batches.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODE\tSTATUS\tTOTAL\tINSERTED\tSKIPPED\tLINKED\tCREATED")
	for _, b := range batches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			b.ID, b.Mode, b.Status, b.TotalRows, b.InsertedRows, b.SkippedRows, b.LinkedRows,
			b.CreatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

// PrintTransactions prints the rows of a batch with their link status
func PrintTransactions(w io.Writer, rows []statement.Row) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSEQ\tNET\tSTATUS\tVOUCHER\tNOTE")
	for _, r := range rows {
		voucher := r.LinkedVoucherID
		if voucher == "" {
			voucher = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			r.DateKey(), r.Sequence, money.Canonical(r.NetAmount()), r.Status, voucher, r.StatusNote)
	}
	tw.Flush()
}
