package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

// timelineRepositoryInMemory — append-only история транзакций в памяти.
type timelineRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{
		items: make(map[string][]domain.TimelineEvent),
	}
}

// Append добавляет событие в историю требования.
func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	if event.PaymentID == "" {
		return domain.ErrPaymentIDRequired
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[event.PaymentID] = append(r.items[event.PaymentID], event)
	return nil
}

// List возвращает события требования в порядке добавления.
func (r *timelineRepositoryInMemory) List(paymentID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.items[paymentID]
	result := make([]domain.TimelineEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
