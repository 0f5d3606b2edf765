package types

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type DeviceFingerprint struct {
	UserAgent         string `json:"user_agent"`
	FingerprintID     string `json:"fingerprint_id"`
	JavascriptEnabled bool   `json:"javascript_enabled"`
	TimezoneOffset    int32  `json:"timezone_offset"`
	ColorDepth        int32  `json:"color_depth"`
	ScreenHeight      int32  `json:"screen_height"`
	ScreenWidth       int32  `json:"screen_width"`
	Language          string `json:"language"`
}

type InitiateTopUpRequest struct {
	CustomerID  uint64            `json:"customer_id"`
	AmountCents int64             `json:"amount_cents"`
	Currency    string            `json:"currency"`
	Device      DeviceFingerprint `json:"device"`

	// Captured from the HTTP request, not the body.
	ClientIP         string `json:"-"`
	RequestUserAgent string `json:"-"`
	AcceptHeader     string `json:"-"`
}

func NewInitiateTopUpRequestFromContext(ctx echo.Context) (*InitiateTopUpRequest, error) {
	var body InitiateTopUpRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.Device.UserAgent = strings.TrimSpace(body.Device.UserAgent)
	body.Device.FingerprintID = strings.TrimSpace(body.Device.FingerprintID)
	body.Device.Language = strings.TrimSpace(body.Device.Language)
	body.ClientIP = ctx.RealIP()
	body.RequestUserAgent = strings.TrimSpace(ctx.Request().UserAgent())
	body.AcceptHeader = strings.TrimSpace(ctx.Request().Header.Get("Accept"))

	return &body, nil
}

func (r *InitiateTopUpRequest) Validate() error {
	if r.CustomerID == 0 {
		return errors.New("customer_id is required")
	}
	if r.AmountCents <= 0 {
		return errors.New("amount_cents must be > 0")
	}
	if r.Currency != "" && len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if r.Device.UserAgent != "" && r.Device.UserAgent != r.RequestUserAgent {
		return errors.New("device user agent does not match the request")
	}
	return nil
}

type TopUpStatusRequest struct {
	PaymentID string
}

func NewTopUpStatusRequestFromContext(ctx echo.Context) (*TopUpStatusRequest, error) {
	return &TopUpStatusRequest{PaymentID: strings.TrimSpace(ctx.Param("payment_id"))}, nil
}

func (r *TopUpStatusRequest) Validate() error {
	if r.PaymentID == "" {
		return errors.New("payment id is required")
	}
	return nil
}

type AdminAdjustmentRequest struct {
	CustomerID  uint64 `json:"customer_id"`
	AmountCents int64  `json:"amount_cents"`
	Direction   string `json:"direction"`
	Description string `json:"description"`
}

func NewAdminAdjustmentRequestFromContext(ctx echo.Context) (*AdminAdjustmentRequest, error) {
	var body AdminAdjustmentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Direction = strings.ToLower(strings.TrimSpace(body.Direction))
	body.Description = strings.TrimSpace(body.Description)

	return &body, nil
}

func (r *AdminAdjustmentRequest) Validate() error {
	if r.CustomerID == 0 {
		return errors.New("customer_id is required")
	}
	if r.AmountCents <= 0 {
		return errors.New("amount_cents must be > 0")
	}
	if r.Direction != "credit" && r.Direction != "debit" {
		return errors.New("direction must be credit or debit")
	}
	if r.Description == "" {
		return errors.New("description is required")
	}
	return nil
}

type WalletBalanceRequest struct {
	CustomerID uint64
}

func NewWalletBalanceRequestFromContext(ctx echo.Context) (*WalletBalanceRequest, error) {
	raw := strings.TrimSpace(ctx.Param("customer_id"))
	customerID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &WalletBalanceRequest{CustomerID: customerID}, nil
}

func (r *WalletBalanceRequest) Validate() error {
	if r.CustomerID == 0 {
		return errors.New("customer id is required")
	}
	return nil
}

type GatewayCallbackRequest struct {
	Envelope string
}

// NewGatewayCallbackRequestFromContext accepts both the gateway's form post
// (transaction_response field) and a raw envelope body.
func NewGatewayCallbackRequestFromContext(ctx echo.Context) (*GatewayCallbackRequest, error) {
	if envelope := strings.TrimSpace(ctx.FormValue("transaction_response")); envelope != "" {
		return &GatewayCallbackRequest{Envelope: envelope}, nil
	}

	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}
	return &GatewayCallbackRequest{Envelope: strings.TrimSpace(string(rawBody))}, nil
}

type TopUpUIPreferences struct {
	CheckoutMode string `json:"checkout_mode"`
}

type TopUpSessionResponse struct {
	PaymentID      string             `json:"payment_id"`
	OrderID        string             `json:"order_id"`
	GatewayOrderID string             `json:"gateway_order_id"`
	AuthToken      string             `json:"auth_token"`
	MerchantID     string             `json:"merchant_id"`
	MerchantLogo   string             `json:"merchant_logo"`
	RetryCount     int32              `json:"retry_count"`
	UIPreferences  TopUpUIPreferences `json:"ui_preferences"`
}

type TopUpStatusResponse struct {
	Status        string `json:"status"`
	IsSuccess     bool   `json:"is_success"`
	BankRefNo     string `json:"bank_ref_no,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	PaymentDate   string `json:"payment_date,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type LedgerEntryResponse struct {
	ID                   uint64 `json:"id"`
	CustomerID           uint64 `json:"customer_id"`
	AmountCents          int64  `json:"amount_cents"`
	Direction            string `json:"direction"`
	PreviousBalanceCents int64  `json:"previous_balance_cents"`
	Source               string `json:"source"`
	Description          string `json:"description"`
	OrderID              string `json:"order_id,omitempty"`
	AddedAt              string `json:"added_at"`
}

type AdminAdjustmentResponse struct {
	Entry *LedgerEntryResponse `json:"entry"`
}

type WalletBalanceResponse struct {
	CustomerID   uint64                 `json:"customer_id"`
	BalanceCents int64                  `json:"balance_cents"`
	Entries      []*LedgerEntryResponse `json:"entries,omitempty"`
}
