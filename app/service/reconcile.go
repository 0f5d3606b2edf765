package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-wallet/app/entity"
	"github.com/vibast-solutions/ms-go-wallet/app/repository"
)

// authStatusSuccess is the gateway's only success code; every other value is
// a failed transaction.
const authStatusSuccess = "0300"

type gatewayCallback struct {
	OrderID              string `json:"orderid"`
	AuthStatus           string `json:"auth_status"`
	BankRefNo            string `json:"bank_ref_no"`
	TransactionID        string `json:"transactionid"`
	TransactionDate      string `json:"transaction_date"`
	TransactionErrorCode string `json:"transaction_error_code"`
	TransactionErrorDesc string `json:"transaction_error_desc"`
	TransactionErrorType string `json:"transaction_error_type"`
}

// HandleGatewayCallback turns one inbound delivery into at most one wallet
// credit. Every delivery leaves exactly one audit record regardless of
// outcome. The returned error is for logging only; the HTTP response to the
// gateway is always the fixed ack page.
func (s *WalletService) HandleGatewayCallback(ctx context.Context, rawEnvelope string) error {
	now := time.Now().UTC()

	payload, err := s.codec.VerifyAndDecode(rawEnvelope)
	if err != nil {
		s.persistCallbackRecord(ctx, &entity.GatewayCallbackRecord{
			Envelope:           rawEnvelope,
			Disposition:        entity.CallbackRecordRejected,
			VerificationFailed: true,
			Error:              errorText(fmt.Sprintf("callback verification failed: %v", err)),
			CreatedAt:          now,
		})
		return fmt.Errorf("gateway callback rejected: %w", err)
	}

	var callback gatewayCallback
	if err := json.Unmarshal(payload, &callback); err != nil {
		s.persistCallbackRecord(ctx, &entity.GatewayCallbackRecord{
			Envelope:    rawEnvelope,
			PayloadJSON: string(payload),
			Disposition: entity.CallbackRecordRejected,
			Error:       errorText(fmt.Sprintf("callback payload decoding failed: %v", err)),
			CreatedAt:   now,
		})
		return fmt.Errorf("gateway callback rejected: %w", err)
	}

	record := &entity.GatewayCallbackRecord{
		OrderID:     strings.TrimSpace(callback.OrderID),
		Envelope:    rawEnvelope,
		PayloadJSON: string(payload),
		CreatedAt:   now,
	}

	if !strings.HasPrefix(record.OrderID, orderIDPrefix) {
		record.Disposition = entity.CallbackRecordIgnored
		record.Error = errorText("order id belongs to another payment flow")
		s.persistCallbackRecord(ctx, record)
		return nil
	}

	order, err := s.orderRepo.FindByOrderID(ctx, record.OrderID)
	if err != nil {
		record.Disposition = entity.CallbackRecordIgnored
		record.Error = errorText(fmt.Sprintf("order lookup failed: %v", err))
		s.persistCallbackRecord(ctx, record)
		return err
	}
	if order == nil {
		record.Disposition = entity.CallbackRecordIgnored
		record.Error = errorText("no order matches the callback order id")
		s.persistCallbackRecord(ctx, record)
		return nil
	}

	success := callback.AuthStatus == authStatusSuccess
	outcome := buildReconcileOutcome(callback, success, now)

	var applied bool
	var newBalance int64
	txErr := s.tx.RunInTx(ctx, func(tx repository.DBTX) error {
		var err error
		applied, err = s.orderRepo.TryReconcile(ctx, tx, order.OrderID, outcome)
		if err != nil {
			return err
		}
		if !applied || !success {
			return nil
		}

		newBalance, err = s.ledger.CreditTx(
			ctx, tx,
			order.CustomerID,
			order.AmountCents,
			entity.LedgerSourceGatewayTopUp,
			"wallet top-up "+order.OrderID,
			&order.OrderID,
		)
		return err
	})
	if txErr != nil {
		record.Disposition = entity.CallbackRecordIgnored
		record.Error = errorText(fmt.Sprintf("reconciliation failed: %v", txErr))
		s.persistCallbackRecord(ctx, record)
		return fmt.Errorf("callback for order %s not applied: %w", order.OrderID, txErr)
	}

	if !applied {
		// Normal at-least-once duplicate, or a late callback for an already
		// expired order. Absorbed silently.
		record.Disposition = entity.CallbackRecordIgnored
		s.persistCallbackRecord(ctx, record)
		return nil
	}

	record.Disposition = entity.CallbackRecordApplied
	s.persistCallbackRecord(ctx, record)

	if success {
		s.cooldown.Set(order.CustomerID)
		s.syncQuotaAfterCredit(ctx, order, newBalance, now)
	}

	return nil
}

func buildReconcileOutcome(callback gatewayCallback, success bool, now time.Time) repository.ReconcileOutcome {
	if !success {
		reason := strings.TrimSpace(callback.TransactionErrorDesc)
		if reason == "" {
			reason = strings.TrimSpace(callback.TransactionErrorType)
		}
		if reason == "" {
			reason = "transaction failed with status " + callback.AuthStatus
		}
		if code := strings.TrimSpace(callback.TransactionErrorCode); code != "" {
			reason = code + ": " + reason
		}
		return repository.ReconcileOutcome{
			Status:          entity.OrderStatusFailed,
			FailureReason:   errorText(reason),
			QuotaSyncStatus: entity.QuotaSyncNone,
		}
	}

	paidAt := now
	if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(callback.TransactionDate)); err == nil {
		paidAt = parsed.UTC()
	}

	outcome := repository.ReconcileOutcome{
		Status:          entity.OrderStatusSucceeded,
		PaidAt:          &paidAt,
		QuotaSyncStatus: entity.QuotaSyncPending,
		QuotaSyncNextAt: &now,
	}
	if v := strings.TrimSpace(callback.BankRefNo); v != "" {
		outcome.BankRefNo = &v
	}
	if v := strings.TrimSpace(callback.TransactionID); v != "" {
		outcome.TransactionID = &v
	}
	return outcome
}

// syncQuotaAfterCredit pushes the fresh balance inline once. A failure is
// recorded on the order so the quota-sync job retries it durably.
func (s *WalletService) syncQuotaAfterCredit(ctx context.Context, order *entity.WalletOrder, balanceCents int64, now time.Time) {
	order.QuotaSyncStatus = entity.QuotaSyncPending
	order.QuotaSyncNextAt = &now

	if err := s.ledger.PushQuota(ctx, order.CustomerID, balanceCents); err != nil {
		s.recordQuotaSyncFailure(ctx, order, now, err)
		return
	}

	order.QuotaSyncStatus = entity.QuotaSyncSuccess
	order.QuotaSyncAttempts++
	order.QuotaSyncNextAt = nil
	order.QuotaSyncLastErr = nil
	order.UpdatedAt = now
	_ = s.orderRepo.UpdateQuotaSync(ctx, order)
}

func (s *WalletService) recordQuotaSyncFailure(ctx context.Context, order *entity.WalletOrder, now time.Time, syncErr error) {
	order.QuotaSyncAttempts++
	trimmed := truncate(syncErr.Error(), 1024)
	order.QuotaSyncLastErr = &trimmed

	maxAttempts := s.quotaCfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	if order.QuotaSyncAttempts >= maxAttempts {
		order.QuotaSyncStatus = entity.QuotaSyncFailed
		order.QuotaSyncNextAt = nil
	} else {
		retryAfter := s.quotaCfg.RetryAfter
		if retryAfter <= 0 {
			retryAfter = 5 * time.Minute
		}
		next := now.Add(retryAfter)
		order.QuotaSyncStatus = entity.QuotaSyncPending
		order.QuotaSyncNextAt = &next
	}
	order.UpdatedAt = now

	_ = s.orderRepo.UpdateQuotaSync(ctx, order)
}

func (s *WalletService) persistCallbackRecord(ctx context.Context, record *entity.GatewayCallbackRecord) {
	_ = s.recordRepo.Create(ctx, record)
}

func errorText(message string) *string {
	trimmed := truncate(strings.TrimSpace(message), 1024)
	return &trimmed
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
