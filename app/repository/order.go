package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-wallet/app/entity"
)

var (
	ErrOrderNotFound     = errors.New("wallet order not found")
	ErrDuplicateOrderID  = errors.New("wallet order id already exists")
	ErrIllegalTransition = errors.New("illegal wallet order status transition")
)

const orderColumns = `id, order_id, payment_id, customer_id, amount_cents, currency, status,
		gateway_order_id, auth_token, trace_id, gateway_timestamp, outbound_payload, outbound_signature,
		bank_ref_no, transaction_id, paid_at, failure_reason,
		quota_sync_status, quota_sync_attempts, quota_sync_next_at, quota_sync_last_error,
		created_at, updated_at`

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Insert(ctx context.Context, order *entity.WalletOrder) error {
	query := `
		INSERT INTO wallet_orders (
			order_id, payment_id, customer_id, amount_cents, currency, status,
			gateway_order_id, auth_token, trace_id, gateway_timestamp, outbound_payload, outbound_signature,
			bank_ref_no, transaction_id, paid_at, failure_reason,
			quota_sync_status, quota_sync_attempts, quota_sync_next_at, quota_sync_last_error,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		order.OrderID,
		order.PaymentID,
		order.CustomerID,
		order.AmountCents,
		order.Currency,
		order.Status,
		nullableStringValue(order.GatewayOrderID),
		nullableStringValue(order.AuthToken),
		order.TraceID,
		order.GatewayTimestamp,
		order.OutboundPayload,
		order.OutboundSignature,
		nullableStringValue(order.BankRefNo),
		nullableStringValue(order.TransactionID),
		nullableTimeValue(order.PaidAt),
		nullableStringValue(order.FailureReason),
		order.QuotaSyncStatus,
		order.QuotaSyncAttempts,
		nullableTimeValue(order.QuotaSyncNextAt),
		nullableStringValue(order.QuotaSyncLastErr),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateOrderID
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	order.ID = uint64(id)
	return nil
}

// RecordOutbound retains the exact signed bytes and correlation headers sent
// to the gateway for later replay diagnosis, regardless of call outcome.
func (r *OrderRepository) RecordOutbound(ctx context.Context, orderID, traceID, timestamp, payload, signature string) error {
	query := `
		UPDATE wallet_orders
		SET trace_id = ?, gateway_timestamp = ?, outbound_payload = ?, outbound_signature = ?, updated_at = ?
		WHERE order_id = ?
	`

	result, err := r.db.ExecContext(ctx, query, traceID, timestamp, payload, signature, time.Now().UTC(), orderID)
	if err != nil {
		return err
	}
	return requireRow(result, ErrOrderNotFound)
}

func (r *OrderRepository) MarkAwaitingCallback(ctx context.Context, orderID, gatewayOrderID, authToken string) error {
	query := `
		UPDATE wallet_orders
		SET status = ?, gateway_order_id = ?, auth_token = ?, updated_at = ?
		WHERE order_id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.OrderStatusAwaitingCallback,
		gatewayOrderID,
		authToken,
		time.Now().UTC(),
		orderID,
		entity.OrderStatusCreated,
	)
	if err != nil {
		return err
	}
	return requireRow(result, ErrIllegalTransition)
}

func (r *OrderRepository) MarkFailed(ctx context.Context, orderID, reason string) error {
	query := `
		UPDATE wallet_orders
		SET status = ?, failure_reason = ?, updated_at = ?
		WHERE order_id = ? AND status IN (?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.OrderStatusFailed,
		reason,
		time.Now().UTC(),
		orderID,
		entity.OrderStatusCreated,
		entity.OrderStatusAwaitingCallback,
	)
	if err != nil {
		return err
	}
	return requireRow(result, ErrIllegalTransition)
}

// ReconcileOutcome is the terminal state a callback resolves an order to.
type ReconcileOutcome struct {
	Status          int32
	BankRefNo       *string
	TransactionID   *string
	PaidAt          *time.Time
	FailureReason   *string
	QuotaSyncStatus int32
	QuotaSyncNextAt *time.Time
}

// TryReconcile is the idempotency gate: a single conditional update that only
// matches while the order still awaits its callback. Zero matched rows is the
// expected duplicate-delivery case and reports applied=false, not an error.
// It must run on the same transaction as any ledger mutation it authorizes.
func (r *OrderRepository) TryReconcile(ctx context.Context, tx DBTX, orderID string, outcome ReconcileOutcome) (bool, error) {
	query := `
		UPDATE wallet_orders
		SET status = ?, bank_ref_no = ?, transaction_id = ?, paid_at = ?, failure_reason = ?,
			quota_sync_status = ?, quota_sync_next_at = ?, updated_at = ?
		WHERE order_id = ? AND status = ?
	`

	result, err := tx.ExecContext(ctx, query,
		outcome.Status,
		nullableStringValue(outcome.BankRefNo),
		nullableStringValue(outcome.TransactionID),
		nullableTimeValue(outcome.PaidAt),
		nullableStringValue(outcome.FailureReason),
		outcome.QuotaSyncStatus,
		nullableTimeValue(outcome.QuotaSyncNextAt),
		time.Now().UTC(),
		orderID,
		entity.OrderStatusAwaitingCallback,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *OrderRepository) UpdateQuotaSync(ctx context.Context, order *entity.WalletOrder) error {
	query := `
		UPDATE wallet_orders
		SET quota_sync_status = ?, quota_sync_attempts = ?, quota_sync_next_at = ?, quota_sync_last_error = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		order.QuotaSyncStatus,
		order.QuotaSyncAttempts,
		nullableTimeValue(order.QuotaSyncNextAt),
		nullableStringValue(order.QuotaSyncLastErr),
		order.UpdatedAt,
		order.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result, ErrOrderNotFound)
}

func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.WalletOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM wallet_orders WHERE order_id = ?`

	order := &entity.WalletOrder{}
	if err := scanOrder(r.db.QueryRowContext(ctx, query, orderID), order); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) FindByPaymentID(ctx context.Context, paymentID string) (*entity.WalletOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM wallet_orders WHERE payment_id = ?`

	order := &entity.WalletOrder{}
	if err := scanOrder(r.db.QueryRowContext(ctx, query, paymentID), order); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) ListDueQuotaSync(ctx context.Context, now time.Time, limit int32) ([]*entity.WalletOrder, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM wallet_orders
		WHERE quota_sync_status = ?
		  AND quota_sync_next_at IS NOT NULL
		  AND quota_sync_next_at <= ?
		ORDER BY quota_sync_next_at ASC
		LIMIT ?
	`

	return r.queryOrders(ctx, query, entity.QuotaSyncPending, now, limit)
}

func (r *OrderRepository) ListStuckAwaiting(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.WalletOrder, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM wallet_orders
		WHERE status = ?
		  AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`

	return r.queryOrders(ctx, query, entity.OrderStatusAwaitingCallback, cutoff, limit)
}

func (r *OrderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*entity.WalletOrder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*entity.WalletOrder, 0)
	for rows.Next() {
		item := &entity.WalletOrder{}
		if err := scanOrder(rows, item); err != nil {
			return nil, err
		}
		orders = append(orders, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(scan rowScanner, order *entity.WalletOrder) error {
	var gatewayOrderID sql.NullString
	var authToken sql.NullString
	var bankRefNo sql.NullString
	var transactionID sql.NullString
	var paidAt sql.NullTime
	var failureReason sql.NullString
	var quotaNextAt sql.NullTime
	var quotaLastErr sql.NullString

	err := scan.Scan(
		&order.ID,
		&order.OrderID,
		&order.PaymentID,
		&order.CustomerID,
		&order.AmountCents,
		&order.Currency,
		&order.Status,
		&gatewayOrderID,
		&authToken,
		&order.TraceID,
		&order.GatewayTimestamp,
		&order.OutboundPayload,
		&order.OutboundSignature,
		&bankRefNo,
		&transactionID,
		&paidAt,
		&failureReason,
		&order.QuotaSyncStatus,
		&order.QuotaSyncAttempts,
		&quotaNextAt,
		&quotaLastErr,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	order.GatewayOrderID = stringPtrFromNull(gatewayOrderID)
	order.AuthToken = stringPtrFromNull(authToken)
	order.BankRefNo = stringPtrFromNull(bankRefNo)
	order.TransactionID = stringPtrFromNull(transactionID)
	order.PaidAt = timePtrFromNull(paidAt)
	order.FailureReason = stringPtrFromNull(failureReason)
	order.QuotaSyncNextAt = timePtrFromNull(quotaNextAt)
	order.QuotaSyncLastErr = stringPtrFromNull(quotaLastErr)

	return nil
}

func requireRow(result sql.Result, sentinel error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel
	}
	return nil
}
