package entity

import "time"

const (
	OrderStatusCreated          int32 = 1
	OrderStatusAwaitingCallback int32 = 2
	OrderStatusSucceeded        int32 = 10
	OrderStatusFailed           int32 = 20
)

const (
	QuotaSyncNone    int32 = 0
	QuotaSyncPending int32 = 1
	QuotaSyncSuccess int32 = 10
	QuotaSyncFailed  int32 = 20
)

type WalletOrder struct {
	ID uint64

	OrderID   string
	PaymentID string

	CustomerID  uint64
	AmountCents int64
	Currency    string

	Status int32

	GatewayOrderID *string
	AuthToken      *string

	TraceID           string
	GatewayTimestamp  string
	OutboundPayload   string
	OutboundSignature string

	BankRefNo     *string
	TransactionID *string
	PaidAt        *time.Time
	FailureReason *string

	QuotaSyncStatus   int32
	QuotaSyncAttempts int32
	QuotaSyncNextAt   *time.Time
	QuotaSyncLastErr  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *WalletOrder) Terminal() bool {
	return o.Status == OrderStatusSucceeded || o.Status == OrderStatusFailed
}
