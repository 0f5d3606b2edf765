package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-wallet/app/factory"
	"github.com/vibast-solutions/ms-go-wallet/app/types"
)

// callbackAckPage is what the gateway's browser popup expects back. The
// response is this page with status 200 no matter what happened; anything
// else makes the gateway retry indefinitely.
const callbackAckPage = `<!DOCTYPE html>
<html>
<head><title>Payment received</title></head>
<body onload="window.close();">Processing complete. You can close this window.</body>
</html>`

func (c *WalletController) HandleGatewayCallback(ctx echo.Context) error {
	req, err := types.NewGatewayCallbackRequestFromContext(ctx)
	if err != nil || req.Envelope == "" {
		factory.LoggerWithContext(c.logger, ctx).Warn("Gateway callback arrived without an envelope")
		return ctx.HTML(http.StatusOK, callbackAckPage)
	}

	if err := c.walletService.HandleGatewayCallback(ctx.Request().Context(), req.Envelope); err != nil {
		// Rejections and ledger failures are logged for operators; the
		// gateway still gets its ack.
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Gateway callback not applied")
	}

	return ctx.HTML(http.StatusOK, callbackAckPage)
}
