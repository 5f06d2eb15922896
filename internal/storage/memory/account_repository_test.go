package memory

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

func seedAccount(t *testing.T, repo domain.AccountRepository, id, customerID string, balanceMinor int64) {
	t.Helper()

	now := time.Now().UTC()
	err := repo.Create(domain.Account{
		ID:           id,
		CustomerID:   customerID,
		BalanceMinor: balanceMinor,
		Currency:     "RUB",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("seed account %s: %v", id, err)
	}
}

func TestDebitHappyPath(t *testing.T) {
	repo := NewAccountRepository()
	seedAccount(t, repo, "acc-1", "cust-1", 10000)

	res, err := repo.Debit("acc-1", 6000, "tx-1")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !res.Applied {
		t.Fatal("first debit must be applied")
	}
	if res.BalanceAfterMinor != 4000 {
		t.Fatalf("expected balance 4000, got %d", res.BalanceAfterMinor)
	}

	account, err := repo.Get("acc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if account.BalanceMinor != 4000 {
		t.Fatalf("stored balance mismatch: %d", account.BalanceMinor)
	}
}

func TestDebitInsufficientFundsNoMutation(t *testing.T) {
	repo := NewAccountRepository()
	seedAccount(t, repo, "acc-1", "cust-1", 3000)

	if _, err := repo.Debit("acc-1", 6000, "tx-1"); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	account, err := repo.Get("acc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if account.BalanceMinor != 3000 {
		t.Fatalf("balance must stay 3000, got %d", account.BalanceMinor)
	}
}

func TestDebitIdempotentReplay(t *testing.T) {
	repo := NewAccountRepository()
	seedAccount(t, repo, "acc-1", "cust-1", 10000)

	first, err := repo.Debit("acc-1", 6000, "tx-1")
	if err != nil {
		t.Fatalf("first debit: %v", err)
	}

	// Повтор с тем же ключом возвращает прежний результат без списания.
	replay, err := repo.Debit("acc-1", 6000, "tx-1")
	if err != nil {
		t.Fatalf("replay debit: %v", err)
	}
	if replay.Applied {
		t.Fatal("replay must not be applied")
	}
	if replay.BalanceAfterMinor != first.BalanceAfterMinor {
		t.Fatalf("replay balance mismatch: %d vs %d", replay.BalanceAfterMinor, first.BalanceAfterMinor)
	}

	account, _ := repo.Get("acc-1")
	if account.BalanceMinor != 4000 {
		t.Fatalf("balance debited twice: %d", account.BalanceMinor)
	}
}

func TestDebitValidation(t *testing.T) {
	repo := NewAccountRepository()
	seedAccount(t, repo, "acc-1", "cust-1", 10000)

	if _, err := repo.Debit("acc-1", 6000, ""); !errors.Is(err, domain.ErrIdempotencyKeyRequired) {
		t.Fatalf("expected ErrIdempotencyKeyRequired, got %v", err)
	}
	if _, err := repo.Debit("acc-1", 0, "tx-1"); !errors.Is(err, domain.ErrAmountInvalid) {
		t.Fatalf("expected ErrAmountInvalid, got %v", err)
	}
	if _, err := repo.Debit("missing", 6000, "tx-1"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

// Свойство: сумма успешных списаний никогда не превышает стартовый баланс,
// сколько бы конкурентных попыток ни выполнялось.
func TestDebitConcurrentNeverOverdraws(t *testing.T) {
	repo := NewAccountRepository()
	seedAccount(t, repo, "acc-1", "cust-1", 10000)

	const (
		workers = 32
		amount  = 1000
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := "tx-" + string(rune('a'+n%26)) + string(rune('0'+n/26))
			_, _ = repo.Debit("acc-1", amount, key)
		}(i)
	}
	wg.Wait()

	account, err := repo.Get("acc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if account.BalanceMinor < 0 {
		t.Fatalf("balance went negative: %d", account.BalanceMinor)
	}
	if account.BalanceMinor != 0 {
		t.Fatalf("expected fully drained balance, got %d", account.BalanceMinor)
	}
}

func TestGetByCustomer(t *testing.T) {
	repo := NewAccountRepository()
	seedAccount(t, repo, "acc-1", "cust-1", 10000)
	seedAccount(t, repo, "acc-2", "cust-2", 5000)

	account, err := repo.GetByCustomer("cust-2")
	if err != nil {
		t.Fatalf("get by customer: %v", err)
	}
	if account.ID != "acc-2" {
		t.Fatalf("wrong account: %s", account.ID)
	}

	if _, err := repo.GetByCustomer("unknown"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
