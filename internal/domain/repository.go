package domain

import "time"

// PaymentRepository описывает требования к хранилищу платёжных требований.
type PaymentRepository interface {
	// Create сохраняет новое требование. Возвращает ошибку, если запись с таким ID уже существует.
	Create(payment Payment) error
	// Get возвращает требование по идентификатору или ErrPaymentNotFound, если его нет.
	Get(id string) (Payment, error)
	// FindUnpaid возвращает единственное актуальное unpaid-требование клиента.
	// При нескольких unpaid-строках выбор детерминирован: раннее created_at, затем меньший id.
	FindUnpaid(customerID string) (Payment, error)
	// ListByStatus возвращает требования клиента в заданном статусе с опциональным лимитом.
	ListByStatus(customerID string, status PaymentStatus, limit int) ([]Payment, error)
	// Save применяет обновления к требованию с учётом optimistic locking.
	Save(payment Payment) error
}

// AccountRepository описывает хранилище счетов на стороне Account service.
type AccountRepository interface {
	// Create сохраняет новый счёт (provisioning в dev-наборе данных).
	Create(account Account) error
	// Get возвращает счёт или ErrAccountNotFound.
	Get(id string) (Account, error)
	// GetByCustomer возвращает счёт по владельцу.
	GetByCustomer(customerID string) (Account, error)
	// Debit атомарно выполняет compare-and-debit: проверка достаточности и
	// мутация в одной storage-транзакции под row-level exclusivity.
	// Повтор idempotencyKey возвращает сохранённый результат с Applied=false.
	Debit(accountID string, amountMinor int64, idempotencyKey string) (DebitResult, error)
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит историю транзакции платёжного требования.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(paymentID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}
