package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

func seedIntegrationPayment(t *testing.T, repo domain.PaymentRepository, customerID string, status domain.PaymentStatus, createdAt time.Time) domain.Payment {
	t.Helper()

	payment := domain.Payment{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		AccountID:   uuid.NewString(),
		AmountMinor: 10000,
		Currency:    "RUB",
		Status:      status,
		Version:     1,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := repo.Create(payment); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return payment
}

func TestPaymentFindUnpaidIntegration(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewPaymentRepository(store)

	customerID := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond)

	seedIntegrationPayment(t, repo, customerID, domain.PaymentStatusUnpaid, base.Add(time.Hour))
	oldest := seedIntegrationPayment(t, repo, customerID, domain.PaymentStatusUnpaid, base)
	seedIntegrationPayment(t, repo, customerID, domain.PaymentStatusPaid, base.Add(-time.Hour))

	got, err := repo.FindUnpaid(customerID)
	if err != nil {
		t.Fatalf("find unpaid: %v", err)
	}
	if got.ID != oldest.ID {
		t.Fatalf("expected oldest unpaid %s, got %s", oldest.ID, got.ID)
	}

	if _, err := repo.FindUnpaid(uuid.NewString()); !errors.Is(err, domain.ErrNoUnpaidPayment) {
		t.Fatalf("expected ErrNoUnpaidPayment, got %v", err)
	}
}

func TestPaymentSaveIntegration(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewPaymentRepository(store)

	payment := seedIntegrationPayment(t, repo, uuid.NewString(), domain.PaymentStatusUnpaid, time.Now().UTC().Truncate(time.Microsecond))

	paidAt := time.Now().UTC().Truncate(time.Microsecond)
	payment.Status = domain.PaymentStatusPaid
	payment.PaidAt = &paidAt
	payment.UpdatedAt = paidAt

	if err := repo.Save(payment); err != nil {
		t.Fatalf("save: %v", err)
	}

	stored, err := repo.Get(payment.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", stored.Status)
	}
	if stored.PaidAt == nil || !stored.PaidAt.Equal(paidAt) {
		t.Fatalf("paid_at mismatch: %v", stored.PaidAt)
	}
	if stored.Version != payment.Version+1 {
		t.Fatalf("version not incremented: %d", stored.Version)
	}

	// Сохранение со старой версией — конфликт.
	if err := repo.Save(payment); !domain.IsVersionConflict(err) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	// Перевод из конечного статуса запрещён.
	stored.Status = domain.PaymentStatusFailed
	if err := repo.Save(stored); !errors.Is(err, domain.ErrPaymentAlreadySettled) {
		t.Fatalf("expected ErrPaymentAlreadySettled, got %v", err)
	}
}

func TestPaymentListByStatusIntegration(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewPaymentRepository(store)

	customerID := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond)

	seedIntegrationPayment(t, repo, customerID, domain.PaymentStatusPaid, base)
	newest := seedIntegrationPayment(t, repo, customerID, domain.PaymentStatusPaid, base.Add(time.Minute))
	seedIntegrationPayment(t, repo, customerID, domain.PaymentStatusUnpaid, base)

	paid, err := repo.ListByStatus(customerID, domain.PaymentStatusPaid, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paid) != 2 {
		t.Fatalf("expected 2 paid payments, got %d", len(paid))
	}
	if paid[0].ID != newest.ID {
		t.Fatalf("expected newest first, got %s", paid[0].ID)
	}
}
