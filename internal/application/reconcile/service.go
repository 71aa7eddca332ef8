// Package reconcile wires the pure matching rules to storage.
//
// It exposes the reconciliation operations used by the CLI:
//
//	CollectMatchCandidates      - open items of a counterparty, priority ordered
//	AutoMatch                   - exact combination first, greedy fallback
//	Settle                      - apply an allocation to obligation residuals
//	ImportBatch                 - deduplicated statement import
//	LinkBatchToExistingVouchers - attach imported rows to posted vouchers
//
// Every operation runs in one tenant-scoped transaction.
package reconcile

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/eshaffer321/reconcile-core/internal/domain/bankaccounts"
	"github.com/eshaffer321/reconcile-core/internal/domain/candidate"
	"github.com/eshaffer321/reconcile-core/internal/domain/matcher"
	"github.com/eshaffer321/reconcile-core/internal/domain/solver"
	"github.com/eshaffer321/reconcile-core/internal/infrastructure/storage"
)

var (
	// ErrInvalidInput is wrapped by every validation failure. Validation
	// happens before any database work.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBatchNotFound is returned when a batch does not exist for the tenant.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrStaleAllocation is returned by Settle when an obligation no longer
	// has the residual the allocation was computed against.
	ErrStaleAllocation = errors.New("stale allocation")
)

// Config holds service configuration
type Config struct {
	Candidate           candidate.Config
	Solver              solver.Config
	Matcher             matcher.Config
	BankAccountCacheTTL time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Candidate:           candidate.DefaultConfig(),
		Solver:              solver.DefaultConfig(),
		Matcher:             matcher.DefaultConfig(),
		BankAccountCacheTTL: 5 * time.Minute,
	}
}

// Service runs reconciliation passes against a repository
type Service struct {
	repo         storage.Repository
	config       Config
	collector    *candidate.Collector
	matcher      *matcher.Matcher
	bankAccounts *bankaccounts.Cache
	notifier     Notifier
	logger       *slog.Logger
	now          func() time.Time

	pending sync.WaitGroup
}

// NewService creates a reconciliation service. A nil notifier disables
// post-import notifications; a nil logger uses slog.Default().
func NewService(repo storage.Repository, config Config, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:         repo,
		config:       config,
		matcher:      matcher.NewMatcher(config.Matcher),
		bankAccounts: bankaccounts.NewCache(config.BankAccountCacheTTL),
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
	s.collector = candidate.NewCollector(config.Candidate).WithClock(func() time.Time { return s.now() })
	return s
}

// WithClock overrides the clock used for overdue computation.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Wait blocks until all in-flight notifications have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}
