package domain

import (
	"testing"
	"time"
)

func TestAccountCanDebit(t *testing.T) {
	acc := Account{ID: "acc-1", CustomerID: "customer-1", BalanceMinor: 10000, Currency: "USD"}

	if !acc.CanDebit(6000) {
		t.Fatal("balance 10000 must cover 6000")
	}
	if !acc.CanDebit(10000) {
		t.Fatal("exact balance must be debitable")
	}
	if acc.CanDebit(10001) {
		t.Fatal("debit above balance must be rejected")
	}
	if acc.CanDebit(0) || acc.CanDebit(-1) {
		t.Fatal("non-positive amounts must be rejected")
	}
}

func TestAccountValidateInvariants(t *testing.T) {
	now := time.Now().UTC()
	acc := Account{ID: "acc-1", CustomerID: "customer-1", BalanceMinor: 0, Currency: "USD", CreatedAt: now, UpdatedAt: now}
	if errs := acc.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	acc.CustomerID = ""
	acc.BalanceMinor = -1
	if errs := acc.ValidateInvariants(); len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}
