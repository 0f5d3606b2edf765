package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-wallet/app/entity"
	"github.com/vibast-solutions/ms-go-wallet/app/envelope"
	"github.com/vibast-solutions/ms-go-wallet/app/gateway"
	"github.com/vibast-solutions/ms-go-wallet/app/repository"
	"github.com/vibast-solutions/ms-go-wallet/app/service"
	"github.com/vibast-solutions/ms-go-wallet/app/types"
	"github.com/vibast-solutions/ms-go-wallet/config"
)

type controllerOrderRepo struct {
	orders map[string]*entity.WalletOrder
	nextID uint64
}

func newControllerOrderRepo() *controllerOrderRepo {
	return &controllerOrderRepo{orders: map[string]*entity.WalletOrder{}, nextID: 1}
}

func (r *controllerOrderRepo) Insert(_ context.Context, order *entity.WalletOrder) error {
	order.ID = r.nextID
	r.nextID++
	copyItem := *order
	r.orders[order.OrderID] = &copyItem
	return nil
}

func (r *controllerOrderRepo) RecordOutbound(_ context.Context, orderID, traceID, timestamp, payload, signature string) error {
	if item, ok := r.orders[orderID]; ok {
		item.TraceID = traceID
		item.GatewayTimestamp = timestamp
		item.OutboundPayload = payload
		item.OutboundSignature = signature
	}
	return nil
}

func (r *controllerOrderRepo) MarkAwaitingCallback(_ context.Context, orderID, gatewayOrderID, authToken string) error {
	item := r.orders[orderID]
	item.Status = entity.OrderStatusAwaitingCallback
	item.GatewayOrderID = &gatewayOrderID
	item.AuthToken = &authToken
	return nil
}

func (r *controllerOrderRepo) MarkFailed(_ context.Context, orderID, reason string) error {
	item := r.orders[orderID]
	item.Status = entity.OrderStatusFailed
	item.FailureReason = &reason
	return nil
}

func (r *controllerOrderRepo) TryReconcile(_ context.Context, _ repository.DBTX, orderID string, outcome repository.ReconcileOutcome) (bool, error) {
	item, ok := r.orders[orderID]
	if !ok || item.Status != entity.OrderStatusAwaitingCallback {
		return false, nil
	}
	item.Status = outcome.Status
	return true, nil
}

func (r *controllerOrderRepo) FindByOrderID(_ context.Context, orderID string) (*entity.WalletOrder, error) {
	item, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *controllerOrderRepo) FindByPaymentID(_ context.Context, paymentID string) (*entity.WalletOrder, error) {
	for _, item := range r.orders {
		if item.PaymentID == paymentID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *controllerOrderRepo) ListDueQuotaSync(context.Context, time.Time, int32) ([]*entity.WalletOrder, error) {
	return []*entity.WalletOrder{}, nil
}

func (r *controllerOrderRepo) ListStuckAwaiting(context.Context, time.Time, int32) ([]*entity.WalletOrder, error) {
	return []*entity.WalletOrder{}, nil
}

func (r *controllerOrderRepo) UpdateQuotaSync(context.Context, *entity.WalletOrder) error {
	return nil
}

type controllerRecordRepo struct {
	records []*entity.GatewayCallbackRecord
}

func (r *controllerRecordRepo) Create(_ context.Context, record *entity.GatewayCallbackRecord) error {
	copyItem := *record
	r.records = append(r.records, &copyItem)
	return nil
}

type controllerSequence struct {
	next uint64
}

func (s *controllerSequence) Next(context.Context) (uint64, error) {
	s.next++
	return s.next, nil
}

type controllerGateway struct {
	result *gateway.CreateOrderResult
	err    error
}

func (g *controllerGateway) CreateOrder(context.Context, gateway.OrderInput, gateway.DeviceInfo) (*gateway.CreateOrderResult, error) {
	return g.result, g.err
}

type controllerLedgerRepo struct {
	balances map[uint64]int64
	entries  []*entity.WalletLedgerEntry
}

func (r *controllerLedgerRepo) BalanceForUpdate(_ context.Context, _ repository.DBTX, customerID uint64) (int64, error) {
	return r.Balance(context.Background(), customerID)
}

func (r *controllerLedgerRepo) Balance(_ context.Context, customerID uint64) (int64, error) {
	balance, ok := r.balances[customerID]
	if !ok {
		return 0, repository.ErrCustomerNotFound
	}
	return balance, nil
}

func (r *controllerLedgerRepo) UpdateBalance(_ context.Context, _ repository.DBTX, customerID uint64, balanceCents int64) error {
	r.balances[customerID] = balanceCents
	return nil
}

func (r *controllerLedgerRepo) InsertEntry(_ context.Context, _ repository.DBTX, entry *entity.WalletLedgerEntry) error {
	copyItem := *entry
	r.entries = append(r.entries, &copyItem)
	return nil
}

func (r *controllerLedgerRepo) ListEntries(_ context.Context, customerID uint64) ([]*entity.WalletLedgerEntry, error) {
	return r.entries, nil
}

type controllerQuota struct{}

func (controllerQuota) UpdateBalance(context.Context, uint64, int64) error { return nil }

type controllerTx struct{}

func (controllerTx) RunInTx(_ context.Context, fn func(tx repository.DBTX) error) error {
	return fn(nil)
}

type controllerFixture struct {
	orders     *controllerOrderRepo
	records    *controllerRecordRepo
	gateway    *controllerGateway
	ledgerRepo *controllerLedgerRepo
	controller *WalletController
}

func newWalletControllerForTest() *controllerFixture {
	orders := newControllerOrderRepo()
	records := &controllerRecordRepo{}
	gatewayClient := &controllerGateway{
		result: &gateway.CreateOrderResult{
			TraceID:        "trace-1",
			Timestamp:      "20260101120000",
			Payload:        `{}`,
			SignedRequest:  "signed",
			GatewayOrderID: "BD77",
			AuthToken:      "token-1",
		},
	}
	ledgerRepo := &controllerLedgerRepo{balances: map[uint64]int64{42: 120000}}

	gatewayCfg := config.GatewayConfig{MerchantID: "MERC1", MerchantLogoURL: "https://cdn.example/logo.png", RetryCount: 3}
	quotaCfg := config.QuotaConfig{MaxAttempts: 3, RetryAfter: time.Minute}

	ledgerService := service.NewLedgerService(ledgerRepo, controllerTx{}, controllerQuota{}, quotaCfg)
	walletService := service.NewWalletService(
		orders,
		records,
		&controllerSequence{},
		gatewayClient,
		envelope.NewCodec("test-signing-key"),
		ledgerService,
		service.NewCooldown(time.Minute),
		controllerTx{},
		config.WalletConfig{AwaitingTimeout: time.Hour, JobBatchSize: 100},
		quotaCfg,
	)

	return &controllerFixture{
		orders:     orders,
		records:    records,
		gateway:    gatewayClient,
		ledgerRepo: ledgerRepo,
		controller: NewWalletController(walletService, ledgerService, gatewayCfg),
	}
}

func doRequest(t *testing.T, handler echo.HandlerFunc, req *http.Request, pathParams map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	for name, value := range pathParams {
		ctx.SetParamNames(name)
		ctx.SetParamValues(value)
	}
	if err := handler(ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestHealthReturnsOK(t *testing.T) {
	f := newWalletControllerForTest()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	rec := doRequest(t, f.controller.Health, req, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestInitiateTopUpReturnsSession(t *testing.T) {
	f := newWalletControllerForTest()
	body := `{"customer_id":42,"amount_cents":50000,"currency":"inr","device":{"javascript_enabled":true}}`
	req := httptest.NewRequest(http.MethodPost, "/wallet/topups", bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := doRequest(t, f.controller.InitiateTopUp, req, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp types.TopUpSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if resp.GatewayOrderID != "BD77" || resp.AuthToken != "token-1" {
		t.Fatalf("unexpected session response: %+v", resp)
	}
	if resp.MerchantID != "MERC1" || resp.RetryCount != 3 {
		t.Fatalf("expected merchant config in response, got %+v", resp)
	}
	if resp.PaymentID == "" {
		t.Fatal("expected opaque payment id in response")
	}
}

func TestInitiateTopUpValidationFailure(t *testing.T) {
	f := newWalletControllerForTest()
	req := httptest.NewRequest(http.MethodPost, "/wallet/topups", bytes.NewBufferString(`{"customer_id":42,"amount_cents":0}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := doRequest(t, f.controller.InitiateTopUp, req, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response failed: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected user-correctable message in error response")
	}
}

func TestInitiateTopUpGatewayDeclineReturnsBadGateway(t *testing.T) {
	f := newWalletControllerForTest()
	f.gateway.err = &gateway.Error{Message: "order rejected", Declined: true}

	req := httptest.NewRequest(http.MethodPost, "/wallet/topups", bytes.NewBufferString(`{"customer_id":42,"amount_cents":50000}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := doRequest(t, f.controller.InitiateTopUp, req, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "payment gateway error") {
		t.Fatalf("expected generic gateway error message, got %s", rec.Body.String())
	}
}

func TestGetTopUpStatusMalformedID(t *testing.T) {
	f := newWalletControllerForTest()
	req := httptest.NewRequest(http.MethodGet, "/wallet/topups/zzz", nil)

	rec := doRequest(t, f.controller.GetTopUpStatus, req, map[string]string{"payment_id": "zzz"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid payment id") {
		t.Fatalf("expected invalid-id message, got %s", rec.Body.String())
	}
}

func TestGetTopUpStatusNotFound(t *testing.T) {
	f := newWalletControllerForTest()
	req := httptest.NewRequest(http.MethodGet, "/wallet/topups/3b35b4b7-ecf5-4df8-9a30-7b2f0f1a1a1a", nil)

	rec := doRequest(t, f.controller.GetTopUpStatus, req, map[string]string{"payment_id": "3b35b4b7-ecf5-4df8-9a30-7b2f0f1a1a1a"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleGatewayCallbackAlwaysAcksWithPage(t *testing.T) {
	f := newWalletControllerForTest()
	req := httptest.NewRequest(http.MethodPost, "/callbacks/gateway", strings.NewReader("garbage-envelope"))

	rec := doRequest(t, f.controller.HandleGatewayCallback, req, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected unconditional 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "window.close()") {
		t.Fatalf("expected auto-closing ack page, got %s", rec.Body.String())
	}
	if len(f.records.records) != 1 || f.records.records[0].Disposition != entity.CallbackRecordRejected {
		t.Fatal("expected rejected callback to still be recorded")
	}
}

func TestGetBalanceReturnsLedger(t *testing.T) {
	f := newWalletControllerForTest()
	f.ledgerRepo.entries = append(f.ledgerRepo.entries, &entity.WalletLedgerEntry{
		ID:          1,
		CustomerID:  42,
		AmountCents: 120000,
		Direction:   entity.LedgerDirectionCredit,
		Source:      entity.LedgerSourceGatewayTopUp,
		Description: "wallet top-up PGW-000001",
		AddedAt:     time.Now().UTC(),
	})

	req := httptest.NewRequest(http.MethodGet, "/wallet/customers/42/balance", nil)
	rec := doRequest(t, f.controller.GetBalance, req, map[string]string{"customer_id": "42"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp types.WalletBalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if resp.BalanceCents != 120000 {
		t.Fatalf("expected balance 120000, got %d", resp.BalanceCents)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Direction != "credit" {
		t.Fatalf("expected one credit entry, got %+v", resp.Entries)
	}

	req = httptest.NewRequest(http.MethodGet, "/wallet/customers/7/balance", nil)
	rec = doRequest(t, f.controller.GetBalance, req, map[string]string{"customer_id": "7"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown customer, got %d", rec.Code)
	}
}

func TestAdminAdjustCreditAndOverdraw(t *testing.T) {
	f := newWalletControllerForTest()

	req := httptest.NewRequest(http.MethodPost, "/wallet/adjustments", bytes.NewBufferString(`{"customer_id":42,"amount_cents":500,"direction":"credit","description":"goodwill"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(t, f.controller.AdminAdjust, req, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	if f.ledgerRepo.balances[42] != 120500 {
		t.Fatalf("expected balance 120500, got %d", f.ledgerRepo.balances[42])
	}

	req = httptest.NewRequest(http.MethodPost, "/wallet/adjustments", bytes.NewBufferString(`{"customer_id":42,"amount_cents":999999999,"direction":"debit","description":"refund"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = doRequest(t, f.controller.AdminAdjust, req, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for overdraw, got %d", rec.Code)
	}
}
