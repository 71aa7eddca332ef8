// Package cli holds the operator commands of the reconcile binary.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/eshaffer321/reconcile-core/internal/application/reconcile"
	"github.com/eshaffer321/reconcile-core/internal/domain/candidate"
	"github.com/eshaffer321/reconcile-core/internal/domain/matcher"
	"github.com/eshaffer321/reconcile-core/internal/domain/solver"
	"github.com/eshaffer321/reconcile-core/internal/infrastructure/config"
	"github.com/eshaffer321/reconcile-core/internal/infrastructure/storage"
)

// App bundles what every command needs
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   *storage.Storage
	Service *reconcile.Service
	Out     io.Writer
}

// NewApp validates the config, opens storage and builds the service.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	svcCfg, err := ServiceConfig(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	svc := reconcile.NewService(store, svcCfg, reconcile.NewOutboxNotifier(store), logger)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Service: svc,
		Out:     os.Stdout,
	}, nil
}

// Close waits for background notifications and closes storage.
func (a *App) Close() error {
	a.Service.Wait()
	return a.Store.Close()
}

// ServiceConfig maps the file configuration onto the service configuration.
func ServiceConfig(cfg *config.Config) (reconcile.Config, error) {
	tol, err := cfg.Reconcile.Tolerance()
	if err != nil {
		return reconcile.Config{}, err
	}

	r := cfg.Reconcile
	return reconcile.Config{
		Candidate: candidate.Config{
			InvoicePrefixes: r.InvoicePrefixes,
		},
		Solver: solver.Config{
			Tolerance:     tol,
			MaxSubsetSize: r.MaxSubsetSize,
			MaxNodes:      r.MaxSearchNodes,
		},
		Matcher: matcher.Config{
			IncomingWindowDays: r.IncomingWindowDays,
			OutgoingWindowDays: r.OutgoingWindowDays,
		},
		BankAccountCacheTTL: r.BankAccountCacheTTL,
	}, nil
}
