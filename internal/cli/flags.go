package cli

import (
	"errors"
	"flag"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// CommonFlags are accepted by every command
type CommonFlags struct {
	Tenant string
	JSON   bool
}

func (c *CommonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.Tenant, "tenant", "", "Tenant (company) identifier")
	fs.BoolVar(&c.JSON, "json", false, "Print machine-readable JSON")
}

func (c *CommonFlags) validate() error {
	if strings.TrimSpace(c.Tenant) == "" {
		return errors.New("-tenant is required")
	}
	return nil
}

func newFlagSet(name string, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	return fs
}

// ImportFlags holds the flags of the import command
type ImportFlags struct {
	CommonFlags
	File        string
	Historical  bool
	RequestedBy string
}

// ParseImportFlags parses import flags from args
func ParseImportFlags(args []string, output io.Writer) (*ImportFlags, error) {
	f := &ImportFlags{}
	fs := newFlagSet("import", output)
	f.register(fs)
	fs.StringVar(&f.File, "file", "", "JSON file of parsed statement rows (- for stdin)")
	fs.BoolVar(&f.Historical, "historical", false, "Link rows to already posted vouchers instead of queuing auto-posting")
	fs.StringVar(&f.RequestedBy, "requested-by", "", "Operator recorded on the batch")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	if f.File == "" {
		return nil, errors.New("-file is required")
	}
	return f, nil
}

// BatchFlags holds the flags of commands that act on one batch
type BatchFlags struct {
	CommonFlags
	BatchID string
	Limit   int
}

// ParseBatchFlags parses flags for link and batches. requireBatch makes
// -batch mandatory.
func ParseBatchFlags(name string, args []string, output io.Writer, requireBatch bool) (*BatchFlags, error) {
	f := &BatchFlags{}
	fs := newFlagSet(name, output)
	f.register(fs)
	fs.StringVar(&f.BatchID, "batch", "", "Batch identifier")
	fs.IntVar(&f.Limit, "limit", 20, "Maximum batches to list")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	if requireBatch && f.BatchID == "" {
		return nil, errors.New("-batch is required")
	}
	return f, nil
}

// MatchFlags holds the flags of candidates, automatch and settle
type MatchFlags struct {
	CommonFlags
	Counterparty string
	Amount       decimal.Decimal
}

// ParseMatchFlags parses matching flags. needAmount makes -amount mandatory.
func ParseMatchFlags(name string, args []string, output io.Writer, needAmount bool) (*MatchFlags, error) {
	f := &MatchFlags{}
	var amount string
	fs := newFlagSet(name, output)
	f.register(fs)
	fs.StringVar(&f.Counterparty, "counterparty", "", "Counterparty identifier")
	fs.StringVar(&amount, "amount", "", "Payment amount")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	if f.Counterparty == "" {
		return nil, errors.New("-counterparty is required")
	}
	if needAmount {
		if amount == "" {
			return nil, errors.New("-amount is required")
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, errors.New("-amount must be a decimal number")
		}
		f.Amount = d
	}
	return f, nil
}

// AccountFlags holds the flags of the bank-account command
type AccountFlags struct {
	CommonFlags
	Add string
}

// ParseAccountFlags parses bank-account flags
func ParseAccountFlags(args []string, output io.Writer) (*AccountFlags, error) {
	f := &AccountFlags{}
	fs := newFlagSet("bank-account", output)
	f.register(fs)
	fs.StringVar(&f.Add, "add", "", "Designate this account code as a bank account")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}
