package domain

import (
	"testing"
	"time"
)

func validPayment() Payment {
	now := time.Now().UTC()
	return Payment{
		ID:          "pay-1",
		CustomerID:  "customer-1",
		AccountID:   "acc-1",
		AmountMinor: 6000,
		Currency:    "USD",
		Description: "tuition fee",
		Status:      PaymentStatusUnpaid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestPaymentValidateInvariants(t *testing.T) {
	p := validPayment()
	if errs := p.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	p = validPayment()
	p.CustomerID = ""
	p.AmountMinor = 0
	errs := p.ValidateInvariants()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}

func TestPaymentStatusTerminal(t *testing.T) {
	cases := []struct {
		status   PaymentStatus
		terminal bool
	}{
		{PaymentStatusUnpaid, false},
		{PaymentStatusPaid, true},
		{PaymentStatusFailed, true},
	}
	for _, tc := range cases {
		if got := tc.status.Terminal(); got != tc.terminal {
			t.Fatalf("Terminal(%s) = %v, want %v", tc.status, got, tc.terminal)
		}
	}
}

func TestPaymentCanTransition(t *testing.T) {
	p := validPayment()

	if !p.CanTransition(PaymentStatusPaid) {
		t.Fatal("unpaid -> paid must be allowed")
	}
	if !p.CanTransition(PaymentStatusFailed) {
		t.Fatal("unpaid -> failed must be allowed")
	}
	if p.CanTransition(PaymentStatusUnpaid) {
		t.Fatal("unpaid -> unpaid must be rejected")
	}

	// Конечные статусы неизменяемы.
	p.Status = PaymentStatusPaid
	if p.CanTransition(PaymentStatusFailed) || p.CanTransition(PaymentStatusUnpaid) {
		t.Fatal("paid payment must be immutable")
	}
	p.Status = PaymentStatusFailed
	if p.CanTransition(PaymentStatusPaid) {
		t.Fatal("failed payment must be immutable")
	}
}

func TestPaymentStatusValid(t *testing.T) {
	if PaymentStatus("unknown").Valid() {
		t.Fatal("unknown status must be invalid")
	}
	if !PaymentStatusUnpaid.Valid() {
		t.Fatal("unpaid must be valid")
	}
}
