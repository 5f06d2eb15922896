package app

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestDefaultPaymentConfig(t *testing.T) {
	cfg := DefaultPaymentConfig()

	if cfg.HTTPAddr == "" || cfg.MetricsAddr == "" {
		t.Fatalf("default addresses must be set: %+v", cfg)
	}
	if cfg.PostgresDSN != "" {
		t.Fatal("default config must use in-memory storage")
	}
	if cfg.JWTSecret == "" {
		t.Fatal("default config must carry a dev jwt secret")
	}
}

func TestDefaultAccountConfig(t *testing.T) {
	cfg := DefaultAccountConfig()

	if cfg.HTTPAddr == "" || cfg.MetricsAddr == "" {
		t.Fatalf("default addresses must be set: %+v", cfg)
	}
}

func TestNewPaymentDependenciesMemory(t *testing.T) {
	deps, err := NewPaymentDependencies(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("new dependencies: %v", err)
	}
	defer deps.Close()

	if deps.Payments == nil || deps.Outbox == nil || deps.Timeline == nil || deps.Idempotency == nil {
		t.Fatal("all repositories must be initialized")
	}
	if deps.Store != nil {
		t.Fatal("in-memory mode must not open postgres")
	}
}

func TestNewAccountDependenciesMemorySeedsDevAccount(t *testing.T) {
	deps, err := NewAccountDependencies(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("new dependencies: %v", err)
	}
	defer deps.Close()

	account, err := deps.Accounts.Get("acc-1")
	if err != nil {
		t.Fatalf("dev account must be seeded: %v", err)
	}
	if account.BalanceMinor != 10000 {
		t.Fatalf("unexpected dev balance: %d", account.BalanceMinor)
	}
}

func TestServeHTTPStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- serveHTTP(ctx, "127.0.0.1:0", http.NewServeMux(), testLogger())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop on context cancel")
	}
}
