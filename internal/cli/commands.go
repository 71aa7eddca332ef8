package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/eshaffer321/reconcile-core/internal/application/reconcile"
	"github.com/eshaffer321/reconcile-core/internal/infrastructure/storage"
)

// RunImport imports a JSON file of statement rows.
func RunImport(ctx context.Context, app *App, args []string, stdin io.Reader) error {
	flags, err := ParseImportFlags(args, app.Out)
	if err != nil {
		return err
	}

	in := stdin
	source := "stdin"
	if flags.File != "-" {
		f, err := os.Open(flags.File)
		if err != nil {
			return fmt.Errorf("failed to open rows file: %w", err)
		}
		defer f.Close()
		in = f
		source = filepath.Base(flags.File)
	}

	rows, err := DecodeRows(in)
	if err != nil {
		return err
	}

	result, err := app.Service.ImportBatch(ctx, flags.Tenant, rows, reconcile.ImportOptions{
		Historical:  flags.Historical,
		RequestedBy: flags.RequestedBy,
		SourceName:  source,
	})
	if err != nil {
		return err
	}

	if flags.JSON {
		return WriteJSON(app.Out, result)
	}
	PrintImportSummary(app.Out, result, flags.Historical)
	return nil
}

// RunLink links the pending rows of a batch to posted vouchers.
func RunLink(ctx context.Context, app *App, args []string) error {
	flags, err := ParseBatchFlags("link", args, app.Out, true)
	if err != nil {
		return err
	}

	linked, err := app.Service.LinkBatchToExistingVouchers(ctx, flags.Tenant, flags.BatchID)
	if err != nil {
		return err
	}

	if flags.JSON {
		return WriteJSON(app.Out, map[string]any{"batch_id": flags.BatchID, "linked": linked})
	}
	fmt.Fprintf(app.Out, "Linked %d row(s) in batch %s\n", linked, flags.BatchID)
	return nil
}

// RunCandidates lists the open items of a counterparty.
func RunCandidates(ctx context.Context, app *App, args []string) error {
	flags, err := ParseMatchFlags("candidates", args, app.Out, false)
	if err != nil {
		return err
	}

	cands, err := app.Service.CollectMatchCandidates(ctx, flags.Tenant, flags.Counterparty)
	if err != nil {
		return err
	}

	if flags.JSON {
		return WriteJSON(app.Out, cands)
	}
	PrintCandidates(app.Out, cands)
	return nil
}

// RunAutoMatch proposes an allocation for a payment. With settle it is
// applied to the obligations right away.
func RunAutoMatch(ctx context.Context, app *App, args []string, settle bool) error {
	name := "automatch"
	if settle {
		name = "settle"
	}
	flags, err := ParseMatchFlags(name, args, app.Out, true)
	if err != nil {
		return err
	}

	result, err := app.Service.AutoMatch(ctx, flags.Tenant, flags.Counterparty, flags.Amount)
	if err != nil {
		return err
	}

	if settle && len(result.Allocations) > 0 {
		if err := app.Service.Settle(ctx, flags.Tenant, result); err != nil {
			return err
		}
	}

	if flags.JSON {
		return WriteJSON(app.Out, result)
	}
	PrintAllocation(app.Out, result)
	if settle {
		if len(result.Allocations) > 0 {
			fmt.Fprintln(app.Out, "Settled.")
		} else {
			fmt.Fprintln(app.Out, "Nothing to settle.")
		}
	}
	return nil
}

// RunBatches lists recent batches, or shows one batch with its rows.
func RunBatches(ctx context.Context, app *App, args []string) error {
	flags, err := ParseBatchFlags("batches", args, app.Out, false)
	if err != nil {
		return err
	}

	if flags.BatchID != "" {
		batch, err := app.Service.GetBatch(ctx, flags.Tenant, flags.BatchID)
		if err != nil {
			return err
		}
		rows, err := app.Service.ListTransactions(ctx, flags.Tenant, flags.BatchID, "")
		if err != nil {
			return err
		}
		if flags.JSON {
			return WriteJSON(app.Out, map[string]any{"batch": batch, "rows": rows})
		}
		PrintBatches(app.Out, []storage.Batch{*batch})
		fmt.Fprintln(app.Out)
		PrintTransactions(app.Out, rows)
		return nil
	}

	batches, err := app.Service.ListBatches(ctx, flags.Tenant, flags.Limit)
	if err != nil {
		return err
	}
	if flags.JSON {
		return WriteJSON(app.Out, batches)
	}
	PrintBatches(app.Out, batches)
	return nil
}

// RunBankAccount lists or adds the tenant's designated bank accounts.
func RunBankAccount(ctx context.Context, app *App, args []string) error {
	flags, err := ParseAccountFlags(args, app.Out)
	if err != nil {
		return err
	}

	if flags.Add != "" {
		if err := app.Service.RegisterBankAccount(ctx, flags.Tenant, flags.Add); err != nil {
			return err
		}
	}

	codes, err := app.Service.BankAccounts(ctx, flags.Tenant)
	if err != nil {
		return err
	}
	if flags.JSON {
		return WriteJSON(app.Out, codes)
	}
	for _, c := range codes {
		fmt.Fprintln(app.Out, c)
	}
	return nil
}
