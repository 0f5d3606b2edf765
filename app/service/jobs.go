package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-wallet/app/entity"
	"github.com/vibast-solutions/ms-go-wallet/app/repository"
)

// RunQuotaSyncBatch retries quota mirroring for orders whose inline push
// failed. It pushes the customer's current balance, not the balance at credit
// time, so repeated failures cannot replay stale values.
func (s *WalletService) RunQuotaSyncBatch(ctx context.Context) error {
	now := time.Now().UTC()
	items, err := s.orderRepo.ListDueQuotaSync(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, order := range items {
		if order == nil {
			continue
		}

		balance, err := s.ledger.Balance(ctx, order.CustomerID)
		if err != nil {
			s.recordQuotaSyncFailure(ctx, order, now, err)
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		if err := s.ledger.PushQuota(ctx, order.CustomerID, balance); err != nil {
			s.recordQuotaSyncFailure(ctx, order, now, err)
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		order.QuotaSyncStatus = entity.QuotaSyncSuccess
		order.QuotaSyncAttempts++
		order.QuotaSyncNextAt = nil
		order.QuotaSyncLastErr = nil
		order.UpdatedAt = now
		if err := s.orderRepo.UpdateQuotaSync(ctx, order); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunExpireAwaitingBatch fails orders whose callback never arrived. The
// conditional update keeps a late callback from double-applying: whichever
// side transitions the order first wins, the other sees zero matched rows.
func (s *WalletService) RunExpireAwaitingBatch(ctx context.Context) error {
	now := time.Now().UTC()
	timeout := s.walletCfg.AwaitingTimeout
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	cutoff := now.Add(-timeout)

	items, err := s.orderRepo.ListStuckAwaiting(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	reason := "no gateway callback received before timeout"
	outcome := repository.ReconcileOutcome{
		Status:          entity.OrderStatusFailed,
		FailureReason:   &reason,
		QuotaSyncStatus: entity.QuotaSyncNone,
	}

	var firstErr error
	for _, order := range items {
		if order == nil {
			continue
		}

		orderID := order.OrderID
		err := s.tx.RunInTx(ctx, func(tx repository.DBTX) error {
			_, err := s.orderRepo.TryReconcile(ctx, tx, orderID, outcome)
			return err
		})
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
