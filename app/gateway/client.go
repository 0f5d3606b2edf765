package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-wallet/app/envelope"
)

// ErrGatewayCommunication covers every failure talking to the payment
// gateway: transport errors, non-200 responses, and unverifiable responses.
var ErrGatewayCommunication = errors.New("payment gateway error")

// Error carries the best human-readable diagnostic available. Declined means
// the gateway answered and refused the order; the order id must not be
// retried. A transport-level failure is not a decline and the order stays
// retryable with a fresh id.
type Error struct {
	Message  string
	Declined bool
}

func (e *Error) Error() string {
	return "payment gateway error: " + e.Message
}

func (e *Error) Unwrap() error {
	return ErrGatewayCommunication
}

type Config struct {
	BaseURL     string
	MerchantID  string
	ClientID    string
	ReturnURL   string
	HTTPTimeout time.Duration
}

type Client struct {
	cfg    Config
	codec  *envelope.Codec
	client *http.Client
}

func NewClient(cfg Config, codec *envelope.Codec) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		cfg:    cfg,
		codec:  codec,
		client: &http.Client{Timeout: timeout},
	}
}

type OrderInput struct {
	OrderID     string
	AmountCents int64
	Currency    string
}

// DeviceInfo carries the browser/device fingerprint reported by the paying
// client. The scripting-dependent fields are sent only when JavaScriptEnabled.
type DeviceInfo struct {
	IP                string
	UserAgent         string
	AcceptHeader      string
	FingerprintID     string
	JavaScriptEnabled bool
	TimezoneOffset    int32
	ColorDepth        int32
	ScreenHeight      int32
	ScreenWidth       int32
	Language          string
}

// CreateOrderResult is non-nil whenever a request was composed, so the exact
// signed bytes and correlation headers can be persisted even on failure.
type CreateOrderResult struct {
	TraceID       string
	Timestamp     string
	Payload       string
	SignedRequest string

	GatewayOrderID string
	AuthToken      string
}

// Field order follows the gateway's order-creation specification.
type createOrderRequest struct {
	MercID    string       `json:"mercid"`
	OrderID   string       `json:"orderid"`
	Amount    string       `json:"amount"`
	Currency  string       `json:"currency"`
	OrderDate string       `json:"order_date"`
	RU        string       `json:"ru"`
	ItemCode  string       `json:"itemcode"`
	Device    deviceFields `json:"device"`
}

type deviceFields struct {
	InitChannel   string `json:"init_channel"`
	IP            string `json:"ip"`
	UserAgent     string `json:"user_agent"`
	AcceptHeader  string `json:"accept_header"`
	FingerprintID string `json:"fingerprintid,omitempty"`

	BrowserTZ                string `json:"browser_tz,omitempty"`
	BrowserColorDepth        string `json:"browser_color_depth,omitempty"`
	BrowserJavaEnabled       string `json:"browser_java_enabled,omitempty"`
	BrowserJavascriptEnabled string `json:"browser_javascript_enabled,omitempty"`
	BrowserScreenHeight      string `json:"browser_screen_height,omitempty"`
	BrowserScreenWidth       string `json:"browser_screen_width,omitempty"`
	BrowserLanguage          string `json:"browser_language,omitempty"`
}

type createOrderResponse struct {
	OrderID        string `json:"orderid"`
	GatewayOrderID string `json:"bdorderid"`
	AuthToken      string `json:"authtoken"`
	Status         string `json:"status"`
}

type errorResponse struct {
	ErrorCode string `json:"error_code"`
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

func (c *Client) CreateOrder(ctx context.Context, input OrderInput, device DeviceInfo) (*CreateOrderResult, error) {
	if strings.TrimSpace(c.cfg.BaseURL) == "" {
		return nil, errors.New("gateway base url is not configured")
	}
	if strings.TrimSpace(c.cfg.MerchantID) == "" {
		return nil, errors.New("gateway merchant id is not configured")
	}

	now := time.Now().UTC()
	payload, err := json.Marshal(buildCreateOrderRequest(c.cfg, input, device, now))
	if err != nil {
		return nil, err
	}

	result := &CreateOrderResult{
		TraceID:       uuid.NewString(),
		Timestamp:     now.Format("20060102150405"),
		Payload:       string(payload),
		SignedRequest: c.codec.Sign(payload, c.cfg.ClientID),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/payments/ve1_2/orders/create", strings.NewReader(result.SignedRequest))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/jose")
	req.Header.Set("Accept", "application/jose")
	req.Header.Set("trace-id", result.TraceID)
	req.Header.Set("timestamp", result.Timestamp)

	resp, err := c.client.Do(req)
	if err != nil {
		return result, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, &Error{Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return result, &Error{Message: c.decodeErrorMessage(body, resp.StatusCode), Declined: true}
	}

	decoded, err := c.codec.VerifyAndDecode(string(body))
	if err != nil {
		return result, &Error{Message: fmt.Sprintf("response verification failed: %v", err), Declined: true}
	}

	var parsed createOrderResponse
	if err := json.Unmarshal(decoded, &parsed); err != nil {
		return result, &Error{Message: fmt.Sprintf("response decoding failed: %v", err), Declined: true}
	}
	if strings.TrimSpace(parsed.GatewayOrderID) == "" {
		return result, &Error{Message: "gateway order id missing in response", Declined: true}
	}

	result.GatewayOrderID = strings.TrimSpace(parsed.GatewayOrderID)
	result.AuthToken = strings.TrimSpace(parsed.AuthToken)

	return result, nil
}

// decodeErrorMessage attempts the signed error envelope first and falls back
// to the HTTP status text.
func (c *Client) decodeErrorMessage(body []byte, statusCode int) string {
	decoded, err := c.codec.VerifyAndDecode(string(body))
	if err != nil {
		return http.StatusText(statusCode)
	}

	var parsed errorResponse
	if err := json.Unmarshal(decoded, &parsed); err != nil {
		return http.StatusText(statusCode)
	}
	if strings.TrimSpace(parsed.Message) == "" {
		return http.StatusText(statusCode)
	}
	return strings.TrimSpace(parsed.Message)
}

func buildCreateOrderRequest(cfg Config, input OrderInput, device DeviceInfo, now time.Time) *createOrderRequest {
	fields := deviceFields{
		InitChannel:   "internet",
		IP:            strings.TrimSpace(device.IP),
		UserAgent:     strings.TrimSpace(device.UserAgent),
		AcceptHeader:  strings.TrimSpace(device.AcceptHeader),
		FingerprintID: strings.TrimSpace(device.FingerprintID),
	}

	if device.JavaScriptEnabled {
		fields.BrowserTZ = fmt.Sprintf("%d", device.TimezoneOffset)
		fields.BrowserColorDepth = fmt.Sprintf("%d", device.ColorDepth)
		fields.BrowserJavaEnabled = "false"
		fields.BrowserJavascriptEnabled = "true"
		fields.BrowserScreenHeight = fmt.Sprintf("%d", device.ScreenHeight)
		fields.BrowserScreenWidth = fmt.Sprintf("%d", device.ScreenWidth)
		fields.BrowserLanguage = strings.TrimSpace(device.Language)
	}

	return &createOrderRequest{
		MercID:    cfg.MerchantID,
		OrderID:   input.OrderID,
		Amount:    FormatAmount(input.AmountCents),
		Currency:  strings.ToUpper(strings.TrimSpace(input.Currency)),
		OrderDate: now.Format(time.RFC3339),
		RU:        cfg.ReturnURL,
		ItemCode:  "DIRECT",
		Device:    fields,
	}
}

func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
