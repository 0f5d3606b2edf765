package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-wallet/app/service"
	"github.com/vibast-solutions/ms-go-wallet/config"
)

var (
	workerMode bool
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Run quota mirror related commands",
}

var quotaSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Retry failed quota balance mirrors",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"quota_sync",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.QuotaSyncInterval },
			func(s *service.WalletService, ctx context.Context) error {
				return s.RunQuotaSyncBatch(ctx)
			},
		)
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run expiration-related commands",
}

var expireAwaitingCmd = &cobra.Command{
	Use:   "awaiting",
	Short: "Fail orders whose gateway callback never arrived",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"expire_awaiting",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpireAwaitingInterval },
			func(s *service.WalletService, ctx context.Context) error {
				return s.RunExpireAwaitingBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(expireCmd)
	quotaCmd.AddCommand(quotaSyncCmd)
	expireCmd.AddCommand(expireAwaitingCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.WalletService, ctx context.Context) error,
) {
	cfg, services, cleanup := mustCreateServices()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), services.wallet, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(services.wallet, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	walletService *service.WalletService,
	fn func(s *service.WalletService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(walletService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(walletService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
