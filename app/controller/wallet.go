package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-wallet/app/entity"
	"github.com/vibast-solutions/ms-go-wallet/app/factory"
	"github.com/vibast-solutions/ms-go-wallet/app/gateway"
	"github.com/vibast-solutions/ms-go-wallet/app/mapper"
	"github.com/vibast-solutions/ms-go-wallet/app/service"
	"github.com/vibast-solutions/ms-go-wallet/app/types"
	"github.com/vibast-solutions/ms-go-wallet/config"
)

type WalletController struct {
	walletService *service.WalletService
	ledgerService *service.LedgerService
	gatewayCfg    config.GatewayConfig
	logger        logrus.FieldLogger
}

func NewWalletController(
	walletService *service.WalletService,
	ledgerService *service.LedgerService,
	gatewayCfg config.GatewayConfig,
) *WalletController {
	return &WalletController{
		walletService: walletService,
		ledgerService: ledgerService,
		gatewayCfg:    gatewayCfg,
		logger:        factory.NewModuleLogger("wallet-controller"),
	}
}

func (c *WalletController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *WalletController) InitiateTopUp(ctx echo.Context) error {
	req, err := types.NewInitiateTopUpRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	userAgent := req.Device.UserAgent
	if userAgent == "" {
		userAgent = req.RequestUserAgent
	}

	order, err := c.walletService.InitiateTopUp(ctx.Request().Context(), service.TopUpInput{
		CustomerID:  req.CustomerID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Device: gateway.DeviceInfo{
			IP:                req.ClientIP,
			UserAgent:         userAgent,
			AcceptHeader:      req.AcceptHeader,
			FingerprintID:     req.Device.FingerprintID,
			JavaScriptEnabled: req.Device.JavascriptEnabled,
			TimezoneOffset:    req.Device.TimezoneOffset,
			ColorDepth:        req.Device.ColorDepth,
			ScreenHeight:      req.Device.ScreenHeight,
			ScreenWidth:       req.Device.ScreenWidth,
			Language:          req.Device.Language,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrTopUpCooldown):
			return c.writeError(ctx, http.StatusTooManyRequests, "please wait a few minutes before starting another top-up")
		case errors.Is(err, gateway.ErrGatewayCommunication):
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Gateway order creation failed")
			return c.writeError(ctx, http.StatusBadGateway, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Initiate top-up failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, mapper.OrderToTopUpSession(order, c.gatewayCfg))
}

func (c *WalletController) GetTopUpStatus(ctx echo.Context) error {
	req, err := types.NewTopUpStatusRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.walletService.TopUpStatus(ctx.Request().Context(), req.PaymentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, "invalid payment id")
		case errors.Is(err, service.ErrOrderNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Top-up status lookup failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, mapper.OrderToTopUpStatus(order))
}

func (c *WalletController) AdminAdjust(ctx echo.Context) error {
	req, err := types.NewAdminAdjustmentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	direction := entity.LedgerDirectionCredit
	if req.Direction == "debit" {
		direction = entity.LedgerDirectionDebit
	}

	entry, err := c.ledgerService.AdminAdjust(ctx.Request().Context(), req.CustomerID, req.AmountCents, direction, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInsufficientBalance):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrCustomerNotFound):
			return c.writeError(ctx, http.StatusNotFound, "customer not found")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Admin adjustment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.AdminAdjustmentResponse{Entry: mapper.LedgerEntryToResponse(entry)})
}

func (c *WalletController) GetBalance(ctx echo.Context) error {
	req, err := types.NewWalletBalanceRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid customer id")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	balance, err := c.ledgerService.Balance(ctx.Request().Context(), req.CustomerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCustomerNotFound):
			return c.writeError(ctx, http.StatusNotFound, "customer not found")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Balance lookup failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	entries, err := c.ledgerService.Entries(ctx.Request().Context(), req.CustomerID)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Ledger entries lookup failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.WalletBalanceResponse{
		CustomerID:   req.CustomerID,
		BalanceCents: balance,
		Entries:      mapper.LedgerEntriesToResponse(entries),
	})
}

func (c *WalletController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
