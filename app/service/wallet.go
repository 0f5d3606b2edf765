package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-wallet/app/entity"
	"github.com/vibast-solutions/ms-go-wallet/app/gateway"
	"github.com/vibast-solutions/ms-go-wallet/app/repository"
	"github.com/vibast-solutions/ms-go-wallet/config"
)

const (
	// orderIDPrefix distinguishes wallet top-up orders from other payment
	// flows sharing the gateway callback endpoint.
	orderIDPrefix = "PGW-"

	defaultBatchSize = int32(100)
)

type orderRepository interface {
	Insert(ctx context.Context, order *entity.WalletOrder) error
	RecordOutbound(ctx context.Context, orderID, traceID, timestamp, payload, signature string) error
	MarkAwaitingCallback(ctx context.Context, orderID, gatewayOrderID, authToken string) error
	MarkFailed(ctx context.Context, orderID, reason string) error
	TryReconcile(ctx context.Context, tx repository.DBTX, orderID string, outcome repository.ReconcileOutcome) (bool, error)
	FindByOrderID(ctx context.Context, orderID string) (*entity.WalletOrder, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*entity.WalletOrder, error)
	ListDueQuotaSync(ctx context.Context, now time.Time, limit int32) ([]*entity.WalletOrder, error)
	ListStuckAwaiting(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.WalletOrder, error)
	UpdateQuotaSync(ctx context.Context, order *entity.WalletOrder) error
}

type callbackRecordRepository interface {
	Create(ctx context.Context, record *entity.GatewayCallbackRecord) error
}

type orderSequence interface {
	Next(ctx context.Context) (uint64, error)
}

type gatewayClient interface {
	CreateOrder(ctx context.Context, input gateway.OrderInput, device gateway.DeviceInfo) (*gateway.CreateOrderResult, error)
}

type signedCodec interface {
	VerifyAndDecode(envelope string) ([]byte, error)
}

type WalletService struct {
	orderRepo  orderRepository
	recordRepo callbackRecordRepository
	seq        orderSequence
	gateway    gatewayClient
	codec      signedCodec
	ledger     *LedgerService
	cooldown   *Cooldown
	tx         txRunner
	walletCfg  config.WalletConfig
	quotaCfg   config.QuotaConfig
}

func NewWalletService(
	orderRepo orderRepository,
	recordRepo callbackRecordRepository,
	seq orderSequence,
	gatewayClient gatewayClient,
	codec signedCodec,
	ledger *LedgerService,
	cooldown *Cooldown,
	tx txRunner,
	walletCfg config.WalletConfig,
	quotaCfg config.QuotaConfig,
) *WalletService {
	return &WalletService{
		orderRepo:  orderRepo,
		recordRepo: recordRepo,
		seq:        seq,
		gateway:    gatewayClient,
		codec:      codec,
		ledger:     ledger,
		cooldown:   cooldown,
		tx:         tx,
		walletCfg:  walletCfg,
		quotaCfg:   quotaCfg,
	}
}

type TopUpInput struct {
	CustomerID  uint64
	AmountCents int64
	Currency    string
	Device      gateway.DeviceInfo
}

// InitiateTopUp allocates a fresh order id, persists the order, and registers
// it with the payment gateway. A gateway decline marks the order Failed; a
// transport failure leaves it Created so a retry starts over with a new id.
func (s *WalletService) InitiateTopUp(ctx context.Context, input TopUpInput) (*entity.WalletOrder, error) {
	if input.CustomerID == 0 || input.AmountCents <= 0 {
		return nil, ErrInvalidRequest
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "INR"
	}

	if s.cooldown.Active(input.CustomerID) {
		return nil, ErrTopUpCooldown
	}

	seq, err := s.seq.Next(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &entity.WalletOrder{
		OrderID:     fmt.Sprintf("%s%06d", orderIDPrefix, seq),
		PaymentID:   uuid.NewString(),
		CustomerID:  input.CustomerID,
		AmountCents: input.AmountCents,
		Currency:    currency,
		Status:      entity.OrderStatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orderRepo.Insert(ctx, order); err != nil {
		return nil, err
	}

	result, gwErr := s.gateway.CreateOrder(ctx, gateway.OrderInput{
		OrderID:     order.OrderID,
		AmountCents: order.AmountCents,
		Currency:    order.Currency,
	}, input.Device)

	if result != nil {
		order.TraceID = result.TraceID
		order.GatewayTimestamp = result.Timestamp
		order.OutboundPayload = result.Payload
		order.OutboundSignature = result.SignedRequest
		_ = s.orderRepo.RecordOutbound(ctx, order.OrderID, result.TraceID, result.Timestamp, result.Payload, result.SignedRequest)
	}

	if gwErr != nil {
		var declineErr *gateway.Error
		if errors.As(gwErr, &declineErr) && declineErr.Declined {
			if err := s.orderRepo.MarkFailed(ctx, order.OrderID, declineErr.Message); err != nil {
				return nil, err
			}
		}
		return nil, gwErr
	}

	if err := s.orderRepo.MarkAwaitingCallback(ctx, order.OrderID, result.GatewayOrderID, result.AuthToken); err != nil {
		return nil, err
	}

	order.Status = entity.OrderStatusAwaitingCallback
	order.GatewayOrderID = &result.GatewayOrderID
	order.AuthToken = &result.AuthToken

	return order, nil
}

func (s *WalletService) batchSize() int32 {
	if s.walletCfg.JobBatchSize > 0 {
		return s.walletCfg.JobBatchSize
	}
	return defaultBatchSize
}
