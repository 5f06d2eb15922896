package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

func TestTimelineAppendAndList(t *testing.T) {
	repo := NewTimelineRepository()
	now := time.Now().UTC()

	events := []domain.TimelineEvent{
		{PaymentID: "pay-1", Type: "settlement.started", Occurred: now},
		{PaymentID: "pay-1", Type: "balance.checked", Occurred: now.Add(time.Millisecond)},
		{PaymentID: "pay-1", Type: "settlement.completed", Occurred: now.Add(2 * time.Millisecond)},
	}
	for _, ev := range events {
		if err := repo.Append(ev); err != nil {
			t.Fatalf("append %s: %v", ev.Type, err)
		}
	}

	got, err := repo.List("pay-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	// Порядок добавления сохраняется.
	if got[0].Type != "settlement.started" || got[2].Type != "settlement.completed" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestTimelineRequiresPaymentID(t *testing.T) {
	repo := NewTimelineRepository()

	err := repo.Append(domain.TimelineEvent{Type: "settlement.started"})
	if !errors.Is(err, domain.ErrPaymentIDRequired) {
		t.Fatalf("expected ErrPaymentIDRequired, got %v", err)
	}
}

func TestTimelineEmptyListIsNotError(t *testing.T) {
	repo := NewTimelineRepository()

	got, err := repo.List("unknown")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no events, got %d", len(got))
	}
}
