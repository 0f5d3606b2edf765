package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-wallet/app/entity"
	"github.com/vibast-solutions/ms-go-wallet/app/repository"
	"github.com/vibast-solutions/ms-go-wallet/config"
)

type ledgerRepository interface {
	BalanceForUpdate(ctx context.Context, tx repository.DBTX, customerID uint64) (int64, error)
	Balance(ctx context.Context, customerID uint64) (int64, error)
	UpdateBalance(ctx context.Context, tx repository.DBTX, customerID uint64, balanceCents int64) error
	InsertEntry(ctx context.Context, tx repository.DBTX, entry *entity.WalletLedgerEntry) error
	ListEntries(ctx context.Context, customerID uint64) ([]*entity.WalletLedgerEntry, error)
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(tx repository.DBTX) error) error
}

type quotaClient interface {
	UpdateBalance(ctx context.Context, customerID uint64, balanceCents int64) error
}

// LedgerService owns all wallet balance mutations. Every mutation appends an
// immutable ledger entry and updates the denormalized customer balance in the
// same transaction; the ledger sum stays authoritative.
type LedgerService struct {
	ledgerRepo ledgerRepository
	tx         txRunner
	quota      quotaClient
	quotaCfg   config.QuotaConfig
}

func NewLedgerService(
	ledgerRepo ledgerRepository,
	tx txRunner,
	quota quotaClient,
	quotaCfg config.QuotaConfig,
) *LedgerService {
	return &LedgerService{
		ledgerRepo: ledgerRepo,
		tx:         tx,
		quota:      quota,
		quotaCfg:   quotaCfg,
	}
}

// CreditTx applies a credit on the caller's transaction so the caller can tie
// it to its own conditional state transition. Returns the balance after the
// credit.
func (s *LedgerService) CreditTx(
	ctx context.Context,
	tx repository.DBTX,
	customerID uint64,
	amountCents int64,
	source int32,
	description string,
	orderID *string,
) (int64, error) {
	if amountCents <= 0 {
		return 0, ErrInvalidRequest
	}

	previous, err := s.ledgerRepo.BalanceForUpdate(ctx, tx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return 0, ErrCustomerNotFound
		}
		return 0, err
	}

	entry := &entity.WalletLedgerEntry{
		CustomerID:           customerID,
		AmountCents:          amountCents,
		Direction:            entity.LedgerDirectionCredit,
		PreviousBalanceCents: previous,
		Source:               source,
		Description:          strings.TrimSpace(description),
		OrderID:              orderID,
		AddedAt:              time.Now().UTC(),
	}
	if err := s.ledgerRepo.InsertEntry(ctx, tx, entry); err != nil {
		return 0, err
	}

	newBalance := previous + amountCents
	if err := s.ledgerRepo.UpdateBalance(ctx, tx, customerID, newBalance); err != nil {
		return 0, err
	}

	return newBalance, nil
}

// AdminAdjust applies a manual credit or debit in its own transaction and
// mirrors the result to the quota service best-effort.
func (s *LedgerService) AdminAdjust(
	ctx context.Context,
	customerID uint64,
	amountCents int64,
	direction int32,
	description string,
) (*entity.WalletLedgerEntry, error) {
	if customerID == 0 || amountCents <= 0 {
		return nil, ErrInvalidRequest
	}
	if direction != entity.LedgerDirectionCredit && direction != entity.LedgerDirectionDebit {
		return nil, ErrInvalidRequest
	}

	entry := &entity.WalletLedgerEntry{
		CustomerID:  customerID,
		AmountCents: amountCents,
		Direction:   direction,
		Source:      entity.LedgerSourceAdminAdjustment,
		Description: strings.TrimSpace(description),
		AddedAt:     time.Now().UTC(),
	}

	var newBalance int64
	err := s.tx.RunInTx(ctx, func(tx repository.DBTX) error {
		previous, err := s.ledgerRepo.BalanceForUpdate(ctx, tx, customerID)
		if err != nil {
			if errors.Is(err, repository.ErrCustomerNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		entry.PreviousBalanceCents = previous
		newBalance = previous + entry.SignedAmountCents()
		if newBalance < 0 {
			return ErrInsufficientBalance
		}

		if err := s.ledgerRepo.InsertEntry(ctx, tx, entry); err != nil {
			return err
		}
		return s.ledgerRepo.UpdateBalance(ctx, tx, customerID, newBalance)
	})
	if err != nil {
		return nil, err
	}

	_ = s.PushQuota(ctx, customerID, newBalance)

	return entry, nil
}

func (s *LedgerService) Balance(ctx context.Context, customerID uint64) (int64, error) {
	balance, err := s.ledgerRepo.Balance(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return 0, ErrCustomerNotFound
		}
		return 0, err
	}
	return balance, nil
}

func (s *LedgerService) Entries(ctx context.Context, customerID uint64) ([]*entity.WalletLedgerEntry, error) {
	if customerID == 0 {
		return nil, ErrInvalidRequest
	}
	return s.ledgerRepo.ListEntries(ctx, customerID)
}

// PushQuota mirrors a balance to the external quota service with one inline
// retry. Callers that need durable retry record the failure on the order and
// let the quota-sync job take over.
func (s *LedgerService) PushQuota(ctx context.Context, customerID uint64, balanceCents int64) error {
	err := s.quota.UpdateBalance(ctx, customerID, balanceCents)
	if err == nil {
		return nil
	}
	return s.quota.UpdateBalance(ctx, customerID, balanceCents)
}
