package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

// paymentRepositoryInMemory — простая in-memory реализация PaymentRepository.
type paymentRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Payment
}

// NewPaymentRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewPaymentRepository() domain.PaymentRepository {
	return &paymentRepositoryInMemory{
		items: make(map[string]domain.Payment),
	}
}

// Create сохраняет новое требование, если ID ещё не занят.
func (r *paymentRepositoryInMemory) Create(payment domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[payment.ID]; exists {
		return domain.ErrPaymentVersionConflict
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[payment.ID] = payment
	return nil
}

// Get возвращает требование или ErrPaymentNotFound, если его нет.
func (r *paymentRepositoryInMemory) Get(id string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.items[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return payment, nil
}

// FindUnpaid возвращает единственное актуальное unpaid-требование клиента.
// Порядок детерминирован: раннее created_at, при равенстве — меньший id.
func (r *paymentRepositoryInMemory) FindUnpaid(customerID string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		found  bool
		result domain.Payment
	)
	for _, payment := range r.items {
		if payment.CustomerID != customerID || payment.Status != domain.PaymentStatusUnpaid {
			continue
		}
		if !found {
			found = true
			result = payment
			continue
		}
		if payment.CreatedAt.Before(result.CreatedAt) ||
			(payment.CreatedAt.Equal(result.CreatedAt) && payment.ID < result.ID) {
			result = payment
		}
	}

	if !found {
		return domain.Payment{}, domain.ErrNoUnpaidPayment
	}
	return result, nil
}

// ListByStatus возвращает требования клиента в заданном статусе, ограничивая выборку limit (если >0).
func (r *paymentRepositoryInMemory) ListByStatus(customerID string, status domain.PaymentStatus, limit int) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Payment, 0, len(r.items))
	for _, payment := range r.items {
		if payment.CustomerID != customerID || payment.Status != status {
			continue
		}
		result = append(result, payment)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Save перезаписывает требование, проверяя версию (optimistic locking)
// и однонаправленность переходов статуса.
func (r *paymentRepositoryInMemory) Save(payment domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[payment.ID]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	if current.Version != payment.Version {
		return domain.ErrPaymentVersionConflict
	}
	if current.Status.Terminal() && current.Status != payment.Status {
		return domain.ErrPaymentAlreadySettled
	}
	// Инкрементируем версию перед сохранением.
	payment.Version++
	r.items[payment.ID] = payment
	return nil
}

var _ domain.PaymentRepository = (*paymentRepositoryInMemory)(nil)
