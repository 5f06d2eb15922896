package domain

import (
	"context"
	"time"
)

// AccountGateway описывает контракт Account Balance Service со стороны оркестратора.
// Обе операции должны укладываться в таймаут вызывающего контекста; таймаут
// трактуется как жёсткий сбой шага, успех по таймауту никогда не предполагается.
type AccountGateway interface {
	// GetBalance возвращает текущий баланс счёта в минимальных единицах.
	GetBalance(ctx context.Context, accountID string) (int64, error)
	// Debit атомарно проверяет достаточность средств и списывает сумму.
	// Повтор с тем же idempotencyKey обязан вернуть зафиксированный ранее
	// результат без повторного списания.
	Debit(ctx context.Context, accountID string, amountMinor int64, idempotencyKey string) (DebitResult, error)
}

// CustomerProfile — поля профиля, нужные пути нотификаций.
type CustomerProfile struct {
	CustomerID string
	Email      string
	FullName   string
}

// CustomerGateway описывает доступ к профилю клиента (используется только нотификациями).
type CustomerGateway interface {
	Profile(ctx context.Context, customerID string) (CustomerProfile, error)
}

// EmailGateway описывает отправку писем. Со стороны расчёта это fire-and-forget:
// сбой отправки никогда не откатывает успешный расчёт.
type EmailGateway interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// TokenClaims — результат успешной проверки bearer-токена.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// TokenVerifier проверяет bearer-токен до запуска машины состояний расчёта.
type TokenVerifier interface {
	Verify(token string) (TokenClaims, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// SettlementStep задаёт константы шагов для метрик/логов.
type SettlementStep string

const (
	SettlementStepLock    SettlementStep = "lock"
	SettlementStepLookup  SettlementStep = "lookup"
	SettlementStepBalance SettlementStep = "balance"
	SettlementStepDebit   SettlementStep = "debit"
	SettlementStepCommit  SettlementStep = "commit"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
