package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/wallet?parseTime=true")
	setEnv(t, "APP_SERVICE_NAME", "wallet-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "MYSQL_MAX_OPEN_CONNS", "20")
	setEnv(t, "MYSQL_MAX_IDLE_CONNS", "8")
	setEnv(t, "MYSQL_CONN_MAX_LIFETIME_MINUTES", "40")
	setEnv(t, "GATEWAY_MERCHANT_ID", "MERC001")
	setEnv(t, "GATEWAY_HTTP_TIMEOUT_SECONDS", "7")
	setEnv(t, "QUOTA_SYNC_MAX_ATTEMPTS", "5")
	setEnv(t, "QUOTA_SYNC_RETRY_INTERVAL_MINUTES", "7")
	setEnv(t, "WALLET_COOLDOWN_TTL_MINUTES", "2")
	setEnv(t, "WALLET_AWAITING_TIMEOUT_MINUTES", "60")
	setEnv(t, "WALLET_JOB_BATCH_SIZE", "99")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "wallet-test" {
		t.Fatalf("unexpected app service name: %s", cfg.App.ServiceName)
	}
	if cfg.HTTP.Port != "8181" {
		t.Fatalf("unexpected http port: %s", cfg.HTTP.Port)
	}
	if cfg.MySQL.MaxOpenConns != 20 || cfg.MySQL.MaxIdleConns != 8 {
		t.Fatalf("unexpected mysql pool config: %+v", cfg.MySQL)
	}
	if cfg.MySQL.ConnMaxLifetime != 40*time.Minute {
		t.Fatalf("unexpected mysql lifetime: %v", cfg.MySQL.ConnMaxLifetime)
	}
	if cfg.Gateway.MerchantID != "MERC001" {
		t.Fatalf("unexpected merchant id: %s", cfg.Gateway.MerchantID)
	}
	if cfg.Gateway.HTTPTimeout != 7*time.Second {
		t.Fatalf("unexpected gateway timeout: %v", cfg.Gateway.HTTPTimeout)
	}
	if cfg.Quota.MaxAttempts != 5 {
		t.Fatalf("unexpected quota max attempts: %d", cfg.Quota.MaxAttempts)
	}
	if cfg.Quota.RetryAfter != 7*time.Minute {
		t.Fatalf("unexpected quota retry interval: %v", cfg.Quota.RetryAfter)
	}
	if cfg.Wallet.CooldownTTL != 2*time.Minute {
		t.Fatalf("unexpected cooldown ttl: %v", cfg.Wallet.CooldownTTL)
	}
	if cfg.Wallet.AwaitingTimeout != 60*time.Minute {
		t.Fatalf("unexpected awaiting timeout: %v", cfg.Wallet.AwaitingTimeout)
	}
	if cfg.Wallet.JobBatchSize != 99 {
		t.Fatalf("unexpected job batch size: %d", cfg.Wallet.JobBatchSize)
	}
}
