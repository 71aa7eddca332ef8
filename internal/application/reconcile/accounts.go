package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/eshaffer321/reconcile-core/internal/infrastructure/storage"
)

// RegisterBankAccount designates an account code as one of the tenant's bank
// accounts and drops the cached set so the next linking pass sees it.
func (s *Service) RegisterBankAccount(ctx context.Context, tenantID, accountCode string) error {
	accountCode = strings.TrimSpace(accountCode)
	if strings.TrimSpace(tenantID) == "" || accountCode == "" {
		return fmt.Errorf("%w: tenant and account code are required", ErrInvalidInput)
	}

	err := s.repo.WithTx(ctx, tenantID, func(q storage.Queries) error {
		return q.AddBankAccount(ctx, accountCode)
	})
	if err != nil {
		return err
	}

	s.bankAccounts.Invalidate(tenantID)
	return nil
}

// BankAccounts returns the tenant's designated bank account codes.
func (s *Service) BankAccounts(ctx context.Context, tenantID string) ([]string, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("%w: tenant is required", ErrInvalidInput)
	}

	var codes []string
	err := s.repo.ReadTx(ctx, tenantID, func(q storage.Queries) error {
		var err error
		codes, err = q.ListBankAccountCodes(ctx)
		return err
	})
	return codes, err
}
