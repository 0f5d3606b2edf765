package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-wallet/app/controller"
	"github.com/vibast-solutions/ms-go-wallet/app/envelope"
	"github.com/vibast-solutions/ms-go-wallet/app/gateway"
	"github.com/vibast-solutions/ms-go-wallet/app/quota"
	"github.com/vibast-solutions/ms-go-wallet/app/repository"
	"github.com/vibast-solutions/ms-go-wallet/app/service"
	"github.com/vibast-solutions/ms-go-wallet/app/types"
	"github.com/vibast-solutions/ms-go-wallet/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for wallet top-ups, status polling, and gateway callbacks.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, services, cleanup := mustCreateServices()
	defer cleanup()

	walletController := controller.NewWalletController(services.wallet, services.ledger, cfg.Gateway)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(walletController, echoInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	walletController *controller.WalletController,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", walletController.Health)

	// The gateway posts here from the payer's browser; no internal auth and
	// no request-id requirement can apply to it.
	e.POST("/callbacks/gateway", walletController.HandleGatewayCallback)

	wallet := e.Group("/wallet")
	wallet.Use(requireRequestID())
	wallet.Use(internalAuthMiddleware.RequireInternalAccess(appServiceName))
	wallet.POST("/topups", walletController.InitiateTopUp)
	wallet.GET("/topups/:payment_id", walletController.GetTopUpStatus)
	wallet.POST("/adjustments", walletController.AdminAdjust)
	wallet.GET("/customers/:customer_id/balance", walletController.GetBalance)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

type walletServices struct {
	wallet *service.WalletService
	ledger *service.LedgerService
}

func mustCreateServices() (*config.Config, *walletServices, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	orderRepo := repository.NewOrderRepository(db)
	recordRepo := repository.NewCallbackRecordRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	orderSeq := repository.NewOrderSequence(db)
	txRunner := repository.NewTxRunner(db)

	codec := envelope.NewCodec(cfg.Gateway.SigningKey)
	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:     cfg.Gateway.BaseURL,
		MerchantID:  cfg.Gateway.MerchantID,
		ClientID:    cfg.Gateway.ClientID,
		ReturnURL:   cfg.Gateway.ReturnURL,
		HTTPTimeout: cfg.Gateway.HTTPTimeout,
	}, codec)
	quotaClient := quota.NewClient(quota.Config{
		BaseURL:     cfg.Quota.BaseURL,
		APIKey:      cfg.Quota.APIKey,
		HTTPTimeout: cfg.Quota.HTTPTimeout,
	})

	ledgerService := service.NewLedgerService(ledgerRepo, txRunner, quotaClient, cfg.Quota)
	walletService := service.NewWalletService(
		orderRepo,
		recordRepo,
		orderSeq,
		gatewayClient,
		codec,
		ledgerService,
		service.NewCooldown(cfg.Wallet.CooldownTTL),
		txRunner,
		cfg.Wallet,
		cfg.Quota,
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, &walletServices{wallet: walletService, ledger: ledgerService}, cleanup
}
